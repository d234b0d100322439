package banner

import (
	"github.com/charmbracelet/lipgloss"
)

func GetString() string {
	renderer := lipgloss.DefaultRenderer()

	style := renderer.NewStyle().
		Foreground(lipgloss.Color("#7D56F4")).
		Bold(true)

	ascii := `
                __ __
 _   __ ____   / // /___   __  __
| | / // __ \ / // // _ \ / / / /
| |/ // /_/ // // //  __// /_/ /
|___/ \____//_//_/ \___/ \__, /
                        /____/   `

	return "\n" + style.Render(ascii) + "\n"
}
