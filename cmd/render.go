package cmd

import (
	"strings"

	"kydx-console/chat"
	"kydx-console/session"
	"kydx-console/web/format"

	"github.com/charmbracelet/lipgloss"
)

var (
	userLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	botLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Bold(true)

	contentStyle = lipgloss.NewStyle().
			PaddingLeft(2)

	mediaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true).
			PaddingLeft(2)

	affordanceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

// commands maps REPL commands to the actions they trigger.
var commands = map[string]session.Affordance{
	"/mydata":    session.MyData,
	"/visualize": session.Visualize,
	"/infograph": session.Infograph,
	"/summarize": session.Summarize,
	"/directors": session.DirectorsCut,
}

func commandFor(a session.Affordance) string {
	for cmd, aff := range commands {
		if aff == a {
			return cmd
		}
	}
	return ""
}

// renderMessage draws one log entry. Media is shown as its resolved link.
func renderMessage(m chat.Message, width int, mediaBase string) string {
	label := botLabelStyle.Render("KYDxBot")
	if m.IsUser() {
		label = userLabelStyle.Render("You")
	}

	body := contentStyle
	if width > 4 && m.Render != chat.RenderMultiline {
		body = body.Width(width)
	}

	var b strings.Builder
	b.WriteString(label)
	b.WriteString("\n")
	if m.Media != nil {
		b.WriteString(mediaStyle.Render("[" + string(m.Media.Kind) + "] " + mediaBase + m.Media.URL))
		if m.Aux != "" {
			b.WriteString("\n")
			b.WriteString(mediaStyle.Render("data: " + mediaBase + m.Aux))
		}
		if m.Text != "" && m.Media.Kind != chat.MediaTableImage {
			b.WriteString("\n")
			b.WriteString(body.Render(m.Text))
		}
	} else {
		b.WriteString(body.Render(format.PreprocessBotText(m.Text)))
	}
	return b.String()
}

// renderAffordances draws the offered actions with the command for each.
func renderAffordances(as session.Affordances, width int) string {
	list := as.List()
	if len(list) == 0 {
		return ""
	}
	buttons := make([]string, 0, len(list))
	for _, a := range list {
		buttons = append(buttons, affordanceStyle.Render(commandFor(a)+" "+format.AffordanceLabel(a, width)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, buttons...)
}

func renderView(v *session.ViewRequest, mediaBase string) string {
	text := "Open " + mediaBase + v.URL
	if v.Caption != "" {
		text = v.Caption + ": " + mediaBase + v.URL
	}
	return hintStyle.Render(text)
}

func renderError(text string) string {
	return errorStyle.Render(text)
}

func renderHint(text string) string {
	return hintStyle.Render(text)
}
