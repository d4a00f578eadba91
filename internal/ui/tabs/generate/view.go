package generate

import (
	"strings"

	"github.com/dmelo/outfit-studio/internal/services/transform"
	"github.com/dmelo/outfit-studio/internal/ui/styles"
)

// View renders the generate tab.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render("Generate Image"))
	b.WriteString("\n\n")

	promptStyle := styles.BlurredBorderStyle
	if m.promptInput.Focused() {
		promptStyle = styles.FocusedBorderStyle
	}
	b.WriteString(promptStyle.Width(max(m.width-6, 24)).Render(
		styles.CardTitleStyle.Render("Prompt") + "\n" + m.promptInput.View(),
	))
	b.WriteString("\n")
	b.WriteString(m.renderStatus())

	return styles.DocStyle.Render(b.String())
}

func (m *Model) renderStatus() string {
	switch m.orch.Phase() {
	case transform.Submitting:
		return m.spinner.ViewWithLabel()

	case transform.Failed:
		var b strings.Builder
		if err := m.orch.Err(); err != nil {
			b.WriteString(styles.ErrorTextStyle.Render("Error: " + err.Error()))
		}
		if text := m.orch.ResponseText(); text != "" {
			b.WriteString("\n")
			b.WriteString(styles.InfoTextStyle.Render("Model response: " + text))
		}
		return b.String()

	case transform.Succeeded:
		var b strings.Builder
		b.WriteString(styles.SuccessTextStyle.Render("Image ready"))
		if m.savedPath != "" {
			b.WriteString("\n")
			b.WriteString(styles.InfoTextStyle.Render("Saved: " + m.savedPath))
		} else {
			b.WriteString("\n")
			b.WriteString(styles.HelpStyle.Render("press ctrl+o to save to the gallery"))
		}
		return b.String()
	}

	return styles.HelpStyle.Render("type a prompt, then press ctrl+s")
}
