package viz

import "github.com/charmbracelet/lipgloss"

// Theme is a phosphor color scheme.
type Theme struct {
	Name     string
	Beam     lipgloss.Color
	Positive lipgloss.Color
	Negative lipgloss.Color
	Neutral  lipgloss.Color
	Muted    lipgloss.Color
}

var (
	ThemeP1 = Theme{
		Name:     "p1",
		Beam:     lipgloss.Color("#33ff66"),
		Positive: lipgloss.Color("#ff4040"),
		Negative: lipgloss.Color("#4080ff"),
		Neutral:  lipgloss.Color("#808080"),
		Muted:    lipgloss.Color("#1a4d26"),
	}

	ThemeP3 = Theme{
		Name:     "p3",
		Beam:     lipgloss.Color("#ffb000"),
		Positive: lipgloss.Color("#ff5a36"),
		Negative: lipgloss.Color("#36a3ff"),
		Neutral:  lipgloss.Color("#8a7a5c"),
		Muted:    lipgloss.Color("#4d3500"),
	}

	ThemeP4 = Theme{
		Name:     "p4",
		Beam:     lipgloss.Color("#e8f0ff"),
		Positive: lipgloss.Color("#ff6060"),
		Negative: lipgloss.Color("#6090ff"),
		Neutral:  lipgloss.Color("#909090"),
		Muted:    lipgloss.Color("#404850"),
	}
)

var themes = []Theme{ThemeP1, ThemeP3, ThemeP4}

func GetTheme(name string) Theme {
	for _, t := range themes {
		if t.Name == name {
			return t
		}
	}
	return ThemeP1
}

// NextTheme returns the theme after t, wrapping around.
func NextTheme(t Theme) Theme {
	for i, th := range themes {
		if th.Name == t.Name {
			return themes[(i+1)%len(themes)]
		}
	}
	return themes[0]
}

func ThemeNames() []string {
	names := make([]string, len(themes))
	for i, t := range themes {
		names[i] = t.Name
	}
	return names
}
