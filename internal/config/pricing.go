package config

import (
	"strings"
	"time"
)

// ModelPricing holds per-million-token prices for a model in USD.
type ModelPricing struct {
	InputPerMTok     float64
	OutputPerMTok    float64
	CacheReadPerMTok float64
	// Thinking tokens bill at the output rate unless overridden.
	ThinkingPerMTok float64
}

type modelPricingVersion struct {
	EffectiveFrom time.Time
	Pricing       ModelPricing
}

// PricingOverrides allows user-defined pricing for specific models.
type PricingOverrides struct {
	Overrides map[string]ModelPricingOverride `toml:"overrides,omitempty"`
}

// ModelPricingOverride holds per-model pricing overrides.
type ModelPricingOverride struct {
	InputPerMTok     *float64 `toml:"input_per_mtok,omitempty"`
	OutputPerMTok    *float64 `toml:"output_per_mtok,omitempty"`
	CacheReadPerMTok *float64 `toml:"cache_read_per_mtok,omitempty"`
	ThinkingPerMTok  *float64 `toml:"thinking_per_mtok,omitempty"`
}

// DefaultPricing maps model base names to their pricing.
var DefaultPricing = map[string]ModelPricing{
	"claude-opus-4-6":   {InputPerMTok: 5.00, OutputPerMTok: 25.00, CacheReadPerMTok: 0.50},
	"claude-opus-4-5":   {InputPerMTok: 5.00, OutputPerMTok: 25.00, CacheReadPerMTok: 0.50},
	"claude-opus-4-1":   {InputPerMTok: 15.00, OutputPerMTok: 75.00, CacheReadPerMTok: 1.50},
	"claude-sonnet-4-6": {InputPerMTok: 3.00, OutputPerMTok: 15.00, CacheReadPerMTok: 0.30},
	"claude-sonnet-4-5": {InputPerMTok: 3.00, OutputPerMTok: 15.00, CacheReadPerMTok: 0.30},
	"claude-sonnet-4":   {InputPerMTok: 3.00, OutputPerMTok: 15.00, CacheReadPerMTok: 0.30},
	"claude-haiku-4-5":  {InputPerMTok: 1.00, OutputPerMTok: 5.00, CacheReadPerMTok: 0.10},
	"gpt-4o":            {InputPerMTok: 2.50, OutputPerMTok: 10.00, CacheReadPerMTok: 1.25},
	"gpt-4o-mini":       {InputPerMTok: 0.15, OutputPerMTok: 0.60, CacheReadPerMTok: 0.075},
}

// defaultPricingHistory stores effective-dated prices for each model.
// Entries must be sorted by EffectiveFrom ascending.
var defaultPricingHistory = makeDefaultPricingHistory(DefaultPricing)

func makeDefaultPricingHistory(base map[string]ModelPricing) map[string][]modelPricingVersion {
	history := make(map[string][]modelPricingVersion, len(base))
	for modelName, pricing := range base {
		history[modelName] = []modelPricingVersion{
			{Pricing: pricing},
		}
	}
	return history
}

func hasPricingModel(model string) bool {
	if _, ok := defaultPricingHistory[model]; ok {
		return true
	}
	_, ok := DefaultPricing[model]
	return ok
}

// NormalizeModelName lowercases the identifier and strips a trailing date
// suffix, e.g. "claude-opus-4-5-20251101" -> "claude-opus-4-5".
func NormalizeModelName(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if hasPricingModel(raw) {
		return raw
	}

	parts := strings.Split(raw, "-")
	if len(parts) >= 2 {
		last := parts[len(parts)-1]
		if isAllDigits(last) && len(last) >= 8 {
			candidate := strings.Join(parts[:len(parts)-1], "-")
			if hasPricingModel(candidate) {
				return candidate
			}
		}
	}

	return raw
}

func isAllDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// LookupPricingAt returns the pricing for a model at the given timestamp.
// If at is zero, the latest known pricing entry is used.
func LookupPricingAt(model string, at time.Time) (ModelPricing, bool) {
	normalized := NormalizeModelName(model)
	versions, ok := defaultPricingHistory[normalized]
	if !ok || len(versions) == 0 {
		p, fallback := DefaultPricing[normalized]
		return p, fallback
	}

	if at.IsZero() {
		return versions[len(versions)-1].Pricing, true
	}

	at = at.UTC()
	selected := versions[0].Pricing
	for _, v := range versions {
		if v.EffectiveFrom.IsZero() || !at.Before(v.EffectiveFrom.UTC()) {
			selected = v.Pricing
			continue
		}
		break
	}
	return selected, true
}

// PriceFor resolves a model's pricing at a point in time with the
// configured overrides applied. Models known only through overrides are
// priced from the overrides alone.
func (c Config) PriceFor(model string, at time.Time) (ModelPricing, bool) {
	p, ok := LookupPricingAt(model, at)
	o, hasOverride := c.Pricing.Overrides[NormalizeModelName(model)]
	if !ok && !hasOverride {
		return ModelPricing{}, false
	}
	if hasOverride {
		apply(&p.InputPerMTok, o.InputPerMTok)
		apply(&p.OutputPerMTok, o.OutputPerMTok)
		apply(&p.CacheReadPerMTok, o.CacheReadPerMTok)
		apply(&p.ThinkingPerMTok, o.ThinkingPerMTok)
	}
	return p, true
}

func apply(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

// TokenUsage counts the tokens of one or more model calls.
type TokenUsage struct {
	Input     int64
	Output    int64
	Thinking  int64
	CacheRead int64
}

// InferenceCost is a priced TokenUsage split by the expense leaves it
// lands in. Cache reads are billed as input.
type InferenceCost struct {
	Input    float64 `json:"input"`
	Output   float64 `json:"output"`
	Thinking float64 `json:"thinking"`
}

// Total is the sum of all parts.
func (c InferenceCost) Total() float64 {
	return c.Input + c.Output + c.Thinking
}

// CalculateCost prices usage with p.
func CalculateCost(p ModelPricing, u TokenUsage) InferenceCost {
	thinking := p.ThinkingPerMTok
	if thinking == 0 {
		thinking = p.OutputPerMTok
	}
	return InferenceCost{
		Input:    (float64(u.Input)*p.InputPerMTok + float64(u.CacheRead)*p.CacheReadPerMTok) / 1_000_000,
		Output:   float64(u.Output) * p.OutputPerMTok / 1_000_000,
		Thinking: float64(u.Thinking) * thinking / 1_000_000,
	}
}
