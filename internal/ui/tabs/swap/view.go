package swap

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dmelo/outfit-studio/internal/services/transform"
	"github.com/dmelo/outfit-studio/internal/ui/styles"
)

// View renders the swap tab.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render("Outfit Swap"))
	b.WriteString("\n\n")
	b.WriteString(m.renderForm())
	b.WriteString("\n")
	b.WriteString(m.renderStatus())

	return styles.DocStyle.Render(b.String())
}

func (m *Model) renderForm() string {
	var b strings.Builder

	b.WriteString(m.renderField("Person image", m.primaryInput.View(), m.focus == focusPrimary))
	b.WriteString("\n")
	b.WriteString(m.renderField("Outfit image", m.secondaryInput.View(), m.focus == focusSecondary))
	b.WriteString("\n")
	b.WriteString(m.renderField("Prompt", m.promptInput.View(), m.focus == focusPrompt))

	return b.String()
}

func (m *Model) renderField(label, input string, focused bool) string {
	style := styles.BlurredBorderStyle
	if focused {
		style = styles.FocusedBorderStyle
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		styles.CardTitleStyle.Render(label),
		input,
	)

	return style.Width(max(m.width-6, 24)).Render(content)
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
		result := m.orch.Result()
		var b strings.Builder
		b.WriteString(styles.SuccessTextStyle.Render("Outfit swapped"))
		if result != nil {
			b.WriteString(styles.InfoTextStyle.Render(
				"  (" + result.MimeType + ", " + formatDataSize(len(result.ImageDataURI)) + ")"))
		}
		if m.savedPath != "" {
			b.WriteString("\n")
			b.WriteString(styles.InfoTextStyle.Render("Saved: " + m.savedPath))
		} else {
			b.WriteString("\n")
			b.WriteString(styles.HelpStyle.Render("press ctrl+o to save to the gallery"))
		}
		return b.String()
	}

	return styles.HelpStyle.Render("fill in both image paths, then press ctrl+s")
}

func formatDataSize(n int) string {
	const kib = 1024
	switch {
	case n >= kib*kib:
		return fmt.Sprintf("%d MiB", n/(kib*kib))
	case n >= kib:
		return fmt.Sprintf("%d KiB", n/kib)
	default:
		return fmt.Sprintf("%d B", n)
	}
}
