package cli

import "github.com/charmbracelet/lipgloss"

// Theme holds the color scheme for terminal output.
type Theme struct {
	Accent    lipgloss.Color
	Companion lipgloss.Color
	User      lipgloss.Color
	Success   lipgloss.Color
	Error     lipgloss.Color
	Hint      lipgloss.Color
	Border    lipgloss.Color
}

var defaultTheme = Theme{
	Accent:    lipgloss.Color("#FF5FAF"), // pink
	Companion: lipgloss.Color("#AF87FF"), // lavender
	User:      lipgloss.Color("#5FAFD7"), // light blue
	Success:   lipgloss.Color("#00D787"), // green
	Error:     lipgloss.Color("#FF005F"), // red
	Hint:      lipgloss.Color("#6C6C6C"), // dim gray
	Border:    lipgloss.Color("#3A3A3A"), // dark gray
}

func (t Theme) titleStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
}

func (t Theme) companionStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Companion)
}

func (t Theme) userStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.User)
}

func (t Theme) successStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

func (t Theme) cardStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Padding(0, 1).
		Width(44)
}

// moodStyle tints text for moods that have a visual filter.
func (t Theme) moodStyle(filter string) lipgloss.Style {
	switch filter {
	case "jealous":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#87D700"))
	case "annoyed":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#FF8700"))
	case "sad":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#5F87AF"))
	default:
		return lipgloss.NewStyle()
	}
}
