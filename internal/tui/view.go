package tui

import (
	"fmt"
	"strings"

	"github.com/liliang-cn/policychat/internal/domain"
)

// View implements tea.Model
func (m *Model) View() string {
	snap := m.ctrl.Snapshot()

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.widget.Title))
	b.WriteString("\n\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	if snap.LastError != "" {
		b.WriteString(errorStyle.Render(snap.LastError))
		b.WriteString("\n")
	}
	if m.notice != "" {
		b.WriteString(noticeStyle.Render(m.notice))
		b.WriteString("\n")
	}

	line := m.input.View()
	if snap.AwaitingResponse {
		line = m.spinner.View() + " " + line
	}
	b.WriteString(inputBoxStyle.Render(line))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter send · tab sources · ctrl+r new chat · esc quit"))
	return b.String()
}

func (m *Model) renderTranscript(snap domain.Snapshot) string {
	var b strings.Builder
	last := len(snap.Turns) - 1
	for i, turn := range snap.Turns {
		switch {
		case turn.Role == domain.RoleAssistant:
			b.WriteString(assistantRoleStyle.Render("AI"))
		case snap.AwaitingResponse && i == last:
			b.WriteString(waitingRoleStyle.Render("You"))
		default:
			b.WriteString(userRoleStyle.Render("You"))
		}
		b.WriteString("\n")
		b.WriteString(m.renderMarkdown(turn.Text))
		b.WriteString("\n")

		if m.widget.ShowSources && turn.Citations.Present() {
			b.WriteString(m.renderCitations(turn.Citations))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderCitations(c domain.Citations) string {
	var b strings.Builder
	for i, cit := range c.All() {
		b.WriteString(sourceHeaderStyle.Render(fmt.Sprintf("  Source %d", i+1)))
		if cit.Origin != "" {
			b.WriteString(dimStyle.Render(" · " + cit.Origin))
		}
		b.WriteString("\n")
		if m.showPassages && cit.Content != "" {
			b.WriteString(m.renderMarkdown(cit.Content))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m *Model) renderMarkdown(text string) string {
	if m.renderer == nil {
		return text
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}
