package account

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/dmelo/outfit-studio/internal/models"
	"github.com/dmelo/outfit-studio/internal/services/auth"
	"github.com/dmelo/outfit-studio/internal/ui/components"
	"github.com/dmelo/outfit-studio/internal/ui/styles"
)

// freeTierLimit is the number of calls new accounts start with, used to
// scale the usage bar.
const freeTierLimit = 25

// View renders the account tab.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render("Account"))
	b.WriteString("\n\n")
	b.WriteString(m.renderSession())
	b.WriteString("\n")
	b.WriteString(m.renderUsage())
	b.WriteString("\n")
	b.WriteString(m.renderHistory())

	if m.busy {
		b.WriteString("\n")
		b.WriteString(m.spinner.ViewWithLabel())
	}
	if m.lastError != nil {
		b.WriteString("\n")
		b.WriteString(styles.ErrorTextStyle.Render("Error: " + m.lastError.Error()))
	}

	return styles.DocStyle.Render(b.String())
}

func (m *Model) renderSession() string {
	state, user := m.state.Session()

	var b strings.Builder
	b.WriteString(styles.CardTitleStyle.Render("Session"))
	b.WriteString("\n")

	switch state {
	case auth.SignedIn:
		if user != nil {
			b.WriteString(styles.SuccessTextStyle.Render(user.Email))
			if user.IsPremium {
				b.WriteString("  ")
				b.WriteString(styles.KeyBadgeStyle.Render("PREMIUM"))
			}
			b.WriteString("\n")
			b.WriteString(styles.InfoTextStyle.Render("uid " + user.UID))
		}
		b.WriteString("\n")
		b.WriteString(styles.HelpStyle.Render("o: sign out · r: refresh · u: upgrade"))

	case auth.SigningIn:
		b.WriteString(styles.InfoTextStyle.Render("Signing in..."))

	case auth.Refreshing:
		b.WriteString(styles.InfoTextStyle.Render("Refreshing profile..."))

	default:
		b.WriteString(styles.InfoTextStyle.Render("Not signed in"))
		b.WriteString("\n")
		b.WriteString(styles.HelpStyle.Render("press s to sign in with Google"))
	}

	if m.checkoutURL != "" {
		b.WriteString("\n")
		b.WriteString(styles.WarningTextStyle.Render("Checkout: " + m.checkoutURL))
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(b.String())
}

func (m *Model) renderUsage() string {
	var b strings.Builder
	b.WriteString(styles.CardTitleStyle.Render("Usage"))
	b.WriteString("\n")
	b.WriteString(components.UsageBar(m.state.GetUsage(), freeTierLimit, m.cardWidth()-4))

	if history := m.state.UsageHistory(); len(history) >= 2 {
		b.WriteString("\n\n")
		b.WriteString(components.RenderUsageChart(history, m.cardWidth()-6, 6, "calls remaining this session"))
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(b.String())
}

func (m *Model) renderHistory() string {
	var b strings.Builder
	b.WriteString(styles.CardTitleStyle.Render("Recent calls"))
	b.WriteString("\n")

	calls := m.state.GetCalls()
	if len(calls) == 0 {
		b.WriteString(styles.InfoTextStyle.Render("No calls yet"))
		return styles.CardStyle.Width(m.cardWidth()).Render(b.String())
	}

	for i, call := range calls {
		if i > 0 {
			b.WriteString("\n")
		}
		line := fmt.Sprintf("%s  %-13s %-12s %s",
			call.Timestamp.Format("Jan 02 15:04"),
			call.Kind,
			call.Status,
			call.Duration.Round(10*time.Millisecond),
		)
		switch call.Status {
		case models.CallStatusOK:
			b.WriteString(styles.SuccessTextStyle.Render(line))
		case models.CallStatusFailed:
			b.WriteString(styles.ErrorTextStyle.Render(line))
		default:
			b.WriteString(styles.WarningTextStyle.Render(line))
		}
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(b.String())
}

func (m *Model) cardWidth() int {
	return max(m.width-4, lipgloss.Width("Recent calls")+8)
}
