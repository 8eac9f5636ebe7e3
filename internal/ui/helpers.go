package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"forge/internal/agent"
	"forge/internal/models"
	"forge/internal/styles"
)

func WrappedLineCount(value string, width int) int {
	if width <= 0 {
		return 1
	}
	lines := strings.Split(value, "\n")
	count := 0
	for _, line := range lines {
		w := runewidth.StringWidth(line)
		if w == 0 {
			count++
			continue
		}
		count += (w-1)/width + 1
	}
	return count
}

func PromptPreview(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.Join(strings.Fields(s), " ")
	const maxRunes = 500
	r := []rune(s)
	if len(r) > maxRunes {
		return string(r[:maxRunes])
	}
	return s
}

func TruncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 1 {
		return "…"
	}
	return string(r[:max-1]) + "…"
}

func RelativeTime(t time.Time) string {
	d := time.Since(t)
	if d < 0 {
		d = -d
	}
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d.Minutes()), "min")
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hr")
	}
	days := int(d.Hours() / 24)
	if days < 14 {
		return plural(days, "day")
	}
	return plural(days/7, "week")
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit + " ago"
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// SyncModelViewportScroll keeps the selected catalog row visible. Each
// provider group adds a header line, and every group after the first adds a
// spacer line.
func (m *Model) SyncModelViewportScroll() {
	y := 0
	var lastProvider string
	for i, mdl := range models.AvailableModels {
		start := y
		if mdl.Provider != lastProvider {
			if lastProvider != "" {
				y++
			}
			start = y
			y++
			lastProvider = mdl.Provider
		}
		if i == m.SelectedModelIndex {
			if y+1 > m.ModelViewport.YOffset+m.ModelViewport.Height {
				m.ModelViewport.SetYOffset(y + 1 - m.ModelViewport.Height)
			}
			if start < m.ModelViewport.YOffset {
				m.ModelViewport.SetYOffset(start)
			}
			return
		}
		y++
	}
}

func FormatUserMessage(content string, width int, isFirst bool) string {
	label := styles.UserLabelStyle.Render("YOU")
	msg := styles.UserMsgStyle.Width(width - 4).Render(content)
	if isFirst {
		return fmt.Sprintf("\n%s\n%s", label, msg)
	}
	return fmt.Sprintf("%s\n%s", label, msg)
}

func FormatAIMessage(content string) string {
	label := styles.AiLabelStyle.Render("FORGE")
	msg := styles.AiMsgStyle.Render(content)
	return fmt.Sprintf("%s\n%s", label, msg)
}

func FormatToolActions(actions []models.ToolAction) string {
	var lines []string
	for _, action := range actions {
		icon := styles.ToolIconStyle.Render("→")
		name := styles.ToolNameStyle.Render(action.Summary)
		if action.Failed {
			icon = styles.ToolFailedStyle.Render("✗")
			name = styles.ToolFailedStyle.Render(action.Summary)
		}
		lines = append(lines, styles.ToolActionStyle.Render(fmt.Sprintf("%s %s", icon, name)))
	}
	return strings.Join(lines, "\n")
}

func FormatAIMessageWithTools(toolDisplay, content string) string {
	label := styles.AiLabelStyle.Render("FORGE")
	msg := styles.AiMsgStyle.Render(content)
	return fmt.Sprintf("%s\n%s\n%s", label, toolDisplay, msg)
}

// formatAnswer renders an assistant reply. Errors and the tool ceiling
// notice bypass markdown so they keep their own styling.
func (m *Model) formatAnswer(content string, actions []models.ToolAction) string {
	var body string
	switch {
	case strings.HasPrefix(content, agent.ErrorPrefix):
		body = styles.ErrorStyle.Render(content)
	case content == agent.CeilingMessage:
		body = styles.WarningStyle.Render(content)
	default:
		body = strings.TrimSpace(content)
		if m.Renderer != nil {
			if rendered, err := m.Renderer.Render(content); err == nil {
				body = strings.TrimSpace(rendered)
			}
		}
	}
	if len(actions) > 0 {
		return FormatAIMessageWithTools(FormatToolActions(actions), body)
	}
	return FormatAIMessage(body)
}
