package viz

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
)

var sceneInfo = map[string]string{
	"crt":     "neutral deflection plates",
	"deflect": "static vertical deflection",
	"sweep":   "sinusoidal raster sweep",
	"steer":   "pid spot steering",
	"single":  "one electron from rest",
}

// Picker lets the user choose a scene by name. Chosen is empty if the
// user quit.
type Picker struct {
	scenes []string
	cursor int
	Chosen string
}

func NewPicker(scenes []string) Picker {
	return Picker{scenes: scenes}
}

func (p Picker) Init() tea.Cmd { return nil }

func (p Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}
	switch key.String() {
	case "q", "ctrl+c", "esc":
		p.Chosen = ""
		return p, tea.Quit
	case "up", "k":
		if p.cursor > 0 {
			p.cursor--
		}
	case "down", "j":
		if p.cursor < len(p.scenes)-1 {
			p.cursor++
		}
	case "enter":
		if len(p.scenes) > 0 {
			p.Chosen = p.scenes[p.cursor]
			return p, tea.Quit
		}
	}
	return p, nil
}

func (p Picker) View() string {
	var s strings.Builder
	s.WriteString(cyan.Render("crtsim") + dim.Render("  choose a scene") + "\n\n")
	for i, name := range p.scenes {
		info := dimmer.Render(sceneInfo[name])
		if i == p.cursor {
			s.WriteString(cyan.Render("> ") + white.Render(name) + "  " + info + "\n")
		} else {
			s.WriteString("  " + dim.Render(name) + "  " + info + "\n")
		}
	}
	s.WriteString("\n" + dimmer.Render("↑↓ move  enter start  q quit") + "\n")
	return s.String()
}
