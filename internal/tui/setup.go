package tui

import (
	"strings"

	"github.com/ACNet-AI/OpenPersona-sub000/internal/config"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/state"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/tui/theme"

	"github.com/charmbracelet/huh"
)

// setupValues holds what the first-run form collects.
type setupValues struct {
	slug        string
	dataDir     string
	theme       string
	acnEndpoint string
	autoRefresh bool
}

func setupValuesFrom(cfg config.Config) setupValues {
	return setupValues{
		slug:        cfg.General.PersonaSlug,
		dataDir:     cfg.General.DataDir,
		theme:       cfg.Appearance.Theme,
		acnEndpoint: cfg.Providers.ACN.Endpoint,
		autoRefresh: cfg.TUI.AutoRefresh,
	}
}

// apply copies the collected values onto cfg.
func (v setupValues) apply(cfg config.Config) config.Config {
	cfg.General.PersonaSlug = strings.TrimSpace(v.slug)
	cfg.General.DataDir = strings.TrimSpace(v.dataDir)
	cfg.Providers.ACN.Endpoint = strings.TrimSpace(v.acnEndpoint)
	cfg.TUI.AutoRefresh = v.autoRefresh
	if v.theme != "" {
		cfg.Appearance.Theme = v.theme
	}
	return cfg
}

func validateSlug(s string) error {
	return state.Location{Slug: strings.TrimSpace(s), Dir: "."}.Validate()
}

func newSetupForm(v *setupValues) *huh.Form {
	themes := make([]huh.Option[string], 0, len(theme.All))
	for _, name := range theme.Names() {
		themes = append(themes, huh.NewOption(name, name))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Persona economy").
				Description("Pick the persona to track. Settings are saved to\n"+config.ConfigPath()),
			huh.NewInput().
				Title("Persona slug").
				Placeholder("ada").
				Value(&v.slug).
				Validate(validateSlug),
			huh.NewInput().
				Title("Data directory").
				Description("Leave blank for "+config.DefaultDataDir()).
				Value(&v.dataDir),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Color theme").
				Options(themes...).
				Value(&v.theme),
			huh.NewInput().
				Title("ACN endpoint").
				Description("Optional. Used when the persona connects an ACN wallet.").
				Value(&v.acnEndpoint),
			huh.NewConfirm().
				Title("Refresh the dashboard automatically?").
				Value(&v.autoRefresh),
		),
	).WithShowHelp(true)
}
