package keys

import (
	"strings"

	"github.com/dmelo/outfit-studio/internal/models"
	"github.com/dmelo/outfit-studio/internal/ui/styles"
)

// View renders the keys tab.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render("API Key"))
	b.WriteString("\n\n")
	b.WriteString(m.renderCurrent())
	b.WriteString("\n")
	b.WriteString(m.renderInput())
	b.WriteString("\n")

	set, _, validating := m.state.KeyView()
	if validating {
		b.WriteString(m.spinner.ViewWithLabel())
	} else if m.lastError != nil {
		b.WriteString(styles.ErrorTextStyle.Render("Error: " + m.lastError.Error()))
	} else if set {
		b.WriteString(styles.HelpStyle.Render("requests send this key instead of counting against the free tier"))
	} else {
		b.WriteString(styles.HelpStyle.Render("paste a key and press enter, or ctrl+t to test it first"))
	}

	return styles.DocStyle.Render(b.String())
}

func (m *Model) renderCurrent() string {
	var b strings.Builder
	b.WriteString(styles.CardTitleStyle.Render("Stored key"))
	b.WriteString("\n")

	set, validation, _ := m.state.KeyView()
	if !set {
		b.WriteString(styles.InfoTextStyle.Render("None"))
		return styles.CardStyle.Width(max(m.width-4, 24)).Render(b.String())
	}

	b.WriteString(styles.InfoTextStyle.Render(maskKey(m.service.Key())))
	b.WriteString("  ")
	switch validation {
	case models.KeyValid:
		b.WriteString(styles.SuccessTextStyle.Render("valid"))
	case models.KeyInvalid:
		b.WriteString(styles.ErrorTextStyle.Render("invalid"))
	default:
		b.WriteString(styles.WarningTextStyle.Render("unvalidated"))
	}

	return styles.CardStyle.Width(max(m.width-4, 24)).Render(b.String())
}

func (m *Model) renderInput() string {
	style := styles.BlurredBorderStyle
	if m.keyInput.Focused() {
		style = styles.FocusedBorderStyle
	}
	return style.Width(max(m.width-4, 24)).Render(
		styles.CardTitleStyle.Render("New key") + "\n" + m.keyInput.View(),
	)
}

// maskKey keeps the first and last four characters visible.
func maskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
