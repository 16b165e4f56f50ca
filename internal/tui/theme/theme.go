// Package theme defines color themes for the vitality dashboard.
package theme

import "github.com/charmbracelet/lipgloss"

// Theme holds the color roles the dashboard draws with. The four health
// colors (Green, Yellow, Orange, Red) double as the tier palette.
type Theme struct {
	Name string

	Background   lipgloss.Color // behind everything
	Surface      lipgloss.Color // cards and bars
	SurfaceHover lipgloss.Color // active tab, selected ledger row
	Border       lipgloss.Color
	BorderAccent lipgloss.Color // card borders

	TextDim     lipgloss.Color // hints, separators
	TextMuted   lipgloss.Color // labels
	TextPrimary lipgloss.Color

	Accent       lipgloss.Color // titles, spinner
	AccentBright lipgloss.Color // primary provider, active tab

	Green  lipgloss.Color // normal tier, income
	Yellow lipgloss.Color // optimizing tier
	Orange lipgloss.Color // critical tier
	Red    lipgloss.Color // suspended tier, losses
	Blue   lipgloss.Color // deposits
	Cyan   lipgloss.Color // charts
}

// Active is the theme the dashboard renders with.
var Active = FlexokiDark

// FlexokiDark is the default: warm paper tones on near-black.
var FlexokiDark = Theme{
	Name:         "flexoki-dark",
	Background:   "#100F0F",
	Surface:      "#1C1B1A",
	SurfaceHover: "#282726",
	Border:       "#403E3C",
	BorderAccent: "#3AA99F",
	TextDim:      "#575653",
	TextMuted:    "#878580",
	TextPrimary:  "#FFFCF0",
	Accent:       "#3AA99F",
	AccentBright: "#5BC8BE",
	Green:        "#879A39",
	Yellow:       "#D0A215",
	Orange:       "#DA702C",
	Red:          "#D14D41",
	Blue:         "#4385BE",
	Cyan:         "#24837B",
}

// TokyoNight is a cool blue theme.
var TokyoNight = Theme{
	Name:         "tokyo-night",
	Background:   "#1A1B26",
	Surface:      "#24283B",
	SurfaceHover: "#343A52",
	Border:       "#565F89",
	BorderAccent: "#7AA2F7",
	TextDim:      "#565F89",
	TextMuted:    "#A9B1D6",
	TextPrimary:  "#C0CAF5",
	Accent:       "#7AA2F7",
	AccentBright: "#A9C1FF",
	Green:        "#9ECE6A",
	Yellow:       "#E0AF68",
	Orange:       "#FF9E64",
	Red:          "#F7768E",
	Blue:         "#7AA2F7",
	Cyan:         "#7DCFFF",
}

// Terminal sticks to the 16 ANSI colors for terminals without true color.
var Terminal = Theme{
	Name:         "terminal",
	Background:   "0",
	Surface:      "0",
	SurfaceHover: "8",
	Border:       "8",
	BorderAccent: "6",
	TextDim:      "8",
	TextMuted:    "7",
	TextPrimary:  "15",
	Accent:       "6",
	AccentBright: "14",
	Green:        "2",
	Yellow:       "3",
	Orange:       "11",
	Red:          "1",
	Blue:         "4",
	Cyan:         "6",
}

// All lists the selectable themes in display order.
var All = []Theme{FlexokiDark, TokyoNight, Terminal}

// ByName returns the named theme, or FlexokiDark when there is none.
func ByName(name string) Theme {
	for _, t := range All {
		if t.Name == name {
			return t
		}
	}
	return FlexokiDark
}

// SetActive switches the dashboard to the named theme.
func SetActive(name string) {
	Active = ByName(name)
}

// Names lists the selectable theme names.
func Names() []string {
	names := make([]string, len(All))
	for i, t := range All {
		names[i] = t.Name
	}
	return names
}

// TierColor maps a vitality tier to its health color.
func (t Theme) TierColor(tier string) lipgloss.Color {
	switch tier {
	case "normal":
		return t.Green
	case "optimizing":
		return t.Yellow
	case "critical":
		return t.Orange
	case "suspended":
		return t.Red
	}
	return t.TextMuted
}

// ScoreColor grades a 0-1 score, higher is healthier.
func (t Theme) ScoreColor(score float64) lipgloss.Color {
	switch {
	case score >= 0.7:
		return t.Green
	case score >= 0.5:
		return t.Yellow
	case score >= 0.3:
		return t.Orange
	default:
		return t.Red
	}
}
