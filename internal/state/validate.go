package state

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed schema/economic-state.schema.json
var schemaBytes []byte

var (
	compiledSchema *jsonschema.Schema
	compileOnce    sync.Once
	compileErr     error
	printer        = message.NewPrinter(language.English)
)

// ValidationResult is the outcome of checking a document against the
// current schema.
type ValidationResult struct {
	Valid   bool              `json:"valid"`
	Version string            `json:"version,omitempty"`
	Issues  []ValidationIssue `json:"issues,omitempty"`
}

// ValidationIssue is one schema violation.
type ValidationIssue struct {
	Path    string `json:"path"`
	Keyword string `json:"keyword"`
	Message string `json:"message"`
}

func getSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaBytes))
		if err != nil {
			compileErr = fmt.Errorf("unmarshaling schema JSON: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("economic-state.schema.json", doc); err != nil {
			compileErr = fmt.Errorf("adding schema resource: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile("economic-state.schema.json")
		if compileErr != nil {
			compileErr = fmt.Errorf("compiling schema: %w", compileErr)
		}
	})
	return compiledSchema, compileErr
}

// Validate checks raw document bytes against the schema of the current
// version. The error return is reserved for unparsable input and schema
// compilation failures; violations are reported in the result.
func Validate(data []byte) (*ValidationResult, error) {
	schema, err := getSchema()
	if err != nil {
		return nil, fmt.Errorf("loading schema: %w", err)
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}

	res := &ValidationResult{}
	if m, ok := inst.(map[string]any); ok {
		if v, ok := m["version"].(string); ok {
			res.Version = v
		}
	}

	err = schema.Validate(inst)
	if err == nil {
		res.Valid = true
		return res, nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return nil, fmt.Errorf("validating document: %w", err)
	}
	res.Issues = collectIssues(ve, nil)
	if len(res.Issues) == 0 {
		res.Issues = []ValidationIssue{{Message: ve.Error()}}
	}
	return res, nil
}

// ValidateFile validates the state document of loc without loading or
// migrating it.
func ValidateFile(loc Location) (*ValidationResult, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(loc.StatePath())
	if err != nil {
		return nil, fmt.Errorf("reading economic state: %w", err)
	}
	return Validate(data)
}

func collectIssues(ve *jsonschema.ValidationError, out []ValidationIssue) []ValidationIssue {
	if len(ve.Causes) > 0 {
		for _, c := range ve.Causes {
			out = collectIssues(c, out)
		}
		return out
	}
	if ve.ErrorKind == nil {
		return out
	}

	kw := ve.ErrorKind.KeywordPath()
	keyword := ""
	if len(kw) > 0 {
		keyword = kw[len(kw)-1]
	}
	if keyword == "" || keyword == "oneOf" || keyword == "$ref" {
		return out
	}

	path := ""
	if len(ve.InstanceLocation) > 0 {
		path = "/" + strings.Join(ve.InstanceLocation, "/")
	}
	issue := ValidationIssue{Path: path, Keyword: keyword, Message: ve.ErrorKind.LocalizedString(printer)}
	for _, seen := range out {
		if seen == issue {
			return out
		}
	}
	return append(out, issue)
}
