package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"forge/internal/models"
	"forge/internal/styles"
)

func (m *Model) UpdateModelSelectorContent() {
	var items []string
	var lastProvider string
	for i, mdl := range models.AvailableModels {
		if mdl.Provider != lastProvider {
			if lastProvider != "" {
				items = append(items, "")
			}
			header := styles.ModalHeaderStyle.
				Foreground(styles.GetProviderColor(mdl.Provider)).
				Render(mdl.Provider)
			items = append(items, header)
			lastProvider = mdl.Provider
		}

		isCurrent := m.CurrentModel.ID == mdl.ID
		displayName := "  " + mdl.Name
		if isCurrent {
			displayName = "● " + mdl.Name
		}

		if i == m.SelectedModelIndex {
			items = append(items, styles.ModalSelectedStyle.Width(styles.ContentWidth).Render(displayName))
			continue
		}
		style := styles.ModalItemStyle.Width(styles.ContentWidth)
		if isCurrent {
			style = style.Foreground(lipgloss.Color("#90CAF9"))
		} else {
			style = style.Foreground(lipgloss.AdaptiveColor{Light: "#1a1a2e", Dark: "#FFFFFF"})
		}
		items = append(items, style.Render(displayName))
	}

	m.ModelViewport.SetContent(lipgloss.JoinVertical(lipgloss.Left, items...))
}

func hint(text string) string {
	return lipgloss.NewStyle().
		Foreground(styles.HintColor).
		Width(styles.ContentWidth).
		PaddingTop(1).
		Render(text)
}

func (m *Model) RenderModelSelector() string {
	title := styles.ModalTitleStyle.Render("Select AI Model")
	content := lipgloss.JoinVertical(lipgloss.Left, title, m.ModelViewport.View())
	return lipgloss.JoinVertical(lipgloss.Left, content, hint("↑/↓: navigate • Enter: select • Esc: close"))
}

func (m *Model) RenderHistorySelector() string {
	totalPages := (m.HistoryChatCount + HistoryPageSize - 1) / HistoryPageSize
	if totalPages < 1 {
		totalPages = 1
	}
	title := styles.ModalTitleStyle.Render(fmt.Sprintf("Recent Chats (%d) - Page %d/%d", m.HistoryChatCount, m.HistoryPage+1, totalPages))

	var body string
	switch {
	case m.HistoryErr != nil:
		body = lipgloss.NewStyle().Width(styles.ContentWidth).Render(styles.ErrorStyle.Render(fmt.Sprintf("Error: %v", m.HistoryErr)))
	case len(m.HistoryChats) == 0:
		body = styles.ModalItemStyle.Render(lipgloss.NewStyle().Foreground(styles.HintColor).Render("No chats yet"))
	default:
		items := make([]string, 0, len(m.HistoryChats))
		for i, chat := range m.HistoryChats {
			cursor := "  "
			if i == m.HistorySelectedIdx {
				cursor = "> "
			}
			timeStr := RelativeTime(chat.UpdatedAt)
			prompt := PromptPreview(chat.Title)
			if prompt == "" {
				prompt = "(no prompt)"
			}
			prompt = TruncateRunes(prompt, styles.ContentWidth-2-len(cursor)-1-len(timeStr))

			item := fmt.Sprintf("%s%s %s", cursor, prompt, lipgloss.NewStyle().Foreground(styles.HintColor).Render(timeStr))
			if i == m.HistorySelectedIdx {
				items = append(items, styles.ModalSelectedStyle.Render(item))
			} else {
				items = append(items, styles.ModalItemStyle.Render(item))
			}
		}
		body = lipgloss.JoinVertical(lipgloss.Left, items...)
	}

	content := lipgloss.JoinVertical(lipgloss.Left, title, body)
	return lipgloss.JoinVertical(lipgloss.Left, content, hint("↑/↓: navigate • ←/→: page • Enter: open • Esc: close"))
}

var shortcuts = []struct {
	key  string
	desc string
}{
	{"Tab", "Cycle focus"},
	{"Ctrl+C", "Quit"},
	{"Ctrl+N", "New chat (or /clear)"},
	{"Ctrl+B", "Select AI model"},
	{"Ctrl+K", "Set API key"},
	{"Ctrl+H", "Chat history"},
	{"Ctrl+P", "Toggle preview"},
	{"Ctrl+W", "Close tab"},
	{"Ctrl+←/→", "Switch tab"},
	{"Ctrl+Y", "Copy file or last answer"},
	{"a / A", "New file / folder"},
	{"r / d", "Rename / delete"},
	{"Ctrl+G", "Shortcuts (this menu)"},
}

func (m *Model) RenderShortcutsModal() string {
	title := styles.ModalTitleStyle.Render("Keyboard Shortcuts")

	keyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFCC80")).
		Bold(true).
		Width(12)
	descStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#E0E0E0"))

	items := make([]string, 0, len(shortcuts))
	for _, s := range shortcuts {
		line := fmt.Sprintf("%s %s", keyStyle.Render(s.key), descStyle.Render(s.desc))
		items = append(items, styles.ModalItemStyle.Render(line))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, items...))
	return lipgloss.JoinVertical(lipgloss.Left, content, hint("Esc/Enter: close"))
}

func (m *Model) RenderAPIKeyModal() string {
	title := styles.ModalTitleStyle.Render("Groq API Key")
	parts := []string{title}

	status := "Using the shared default key"
	if m.Creds != nil {
		if c, ok := m.Creds.Active(); !ok {
			status = "No key configured"
		} else if !c.Shared {
			status = "Using your own key"
		}
	}
	parts = append(parts,
		lipgloss.NewStyle().Foreground(styles.HintColor).Render(status),
		"",
		m.APIKeyInput.View(),
	)
	if m.APIKeyErr != nil {
		parts = append(parts, styles.ErrorStyle.Render(m.APIKeyErr.Error()))
	}
	content := lipgloss.JoinVertical(lipgloss.Left, parts...)
	return lipgloss.JoinVertical(lipgloss.Left, content, hint("Enter: save (empty clears) • Esc: cancel"))
}

var focusNames = [...]string{"EXPLORER", "EDITOR", "CHAT"}

func (m *Model) RenderBottomBar() string {
	focusColor := "#81D4FA"
	switch m.Focus {
	case FocusEditor:
		focusColor = "#A5D6A7"
	case FocusChat:
		focusColor = "#CE93D8"
	}
	badge := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color(focusColor)).
		Padding(0, 1).
		Render(focusNames[m.Focus])

	model := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#B39DDB")).
		Render(TruncateRunes(m.CurrentModel.Name, 25))

	status := ""
	if m.Status != "" {
		status = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Render(TruncateRunes(m.Status, 30))
	}

	tokens := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666666")).
		Render(fmt.Sprintf("In:%d Out:%d", m.InputTokens, m.OutputTokens))
	help := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#555555")).
		Render("Help: ^G")

	leftSide := lipgloss.JoinHorizontal(lipgloss.Center, badge, "  ", model, "  ", status)
	rightSide := lipgloss.JoinHorizontal(lipgloss.Center, tokens, "  ", help)

	gap := m.WindowWidth - lipgloss.Width(leftSide) - lipgloss.Width(rightSide) - 2
	if gap < 0 {
		gap = 0
	}
	bar := lipgloss.JoinHorizontal(lipgloss.Center, leftSide, strings.Repeat(" ", gap), rightSide)

	return lipgloss.NewStyle().
		Width(m.WindowWidth).
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#333333")).
		Padding(0, 1).
		Render(bar)
}

func GetWelcomeScreen(width, height int) string {
	art := `
 ╭────────────────────────────────────────────╮
 │                                            │
 │   ███████  ██████  ██████   ██████  ███████ │
 │   ██      ██    ██ ██   ██ ██       ██      │
 │   █████   ██    ██ ██████  ██   ███ █████   │
 │   ██      ██    ██ ██   ██ ██    ██ ██      │
 │   ██       ██████  ██   ██  ██████  ███████ │
 │                                            │
 ╰────────────────────────────────────────────╯
`
	subtitle := "Ask about your project, or tell me what to change."

	styledArt := styles.WelcomeArtStyle.Render(art)
	styledSubtitle := styles.WelcomeSubtitleStyle.Italic(true).Render(subtitle)
	content := lipgloss.JoinVertical(lipgloss.Center, styledArt, "", styledSubtitle)
	if lipgloss.Width(styledArt) > width {
		content = styledSubtitle
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}

func (m *Model) UpdateViewport() {
	if len(m.Messages) == 0 && !m.Loading {
		m.Viewport.SetContent(GetWelcomeScreen(m.Viewport.Width, m.Viewport.Height))
		return
	}

	content := strings.Join(m.Messages, "\n\n")
	if m.Loading {
		statusText := " Thinking..."
		if m.ExecutingTool != "" {
			statusText = fmt.Sprintf(" %s...", m.ExecutingTool)
		}

		parts := []string{styles.AiLabelStyle.Render("FORGE")}
		if len(m.ToolActions) > 0 {
			parts = append(parts, FormatToolActions(m.ToolActions))
		}
		parts = append(parts, m.Spinner.View()+statusText)

		loading := strings.Join(parts, "\n")
		if len(m.Messages) > 0 {
			content += "\n\n" + loading
		} else {
			content = loading
		}
	}
	m.Viewport.SetContent(content)
	m.Viewport.GotoBottom()
}

func (m *Model) renderModal(body string) string {
	modal := styles.ModalStyle.Width(ModalWidth).Render(body)
	return lipgloss.Place(m.WindowWidth, m.WindowHeight, lipgloss.Center, lipgloss.Center, modal)
}

func (m *Model) renderPane(title string, focused bool, width, height int, body string) string {
	head := styles.PaneTitleStyle.Render(title)
	if focused {
		head = styles.TitleStyle.Render(title)
	}
	inner := lipgloss.JoinVertical(lipgloss.Left, head, body)
	return styles.Pane(focused).
		Width(width - 2).
		Height(height - 2).
		MaxHeight(height).
		Render(inner)
}

func (m *Model) View() string {
	switch {
	case m.HistoryOpen:
		return m.renderModal(m.RenderHistorySelector())
	case m.ModelSelectorOpen:
		return m.renderModal(m.RenderModelSelector())
	case m.APIKeyOpen:
		return m.renderModal(m.RenderAPIKeyModal())
	case m.ShortcutsOpen:
		return m.renderModal(m.RenderShortcutsModal())
	}
	if m.WindowWidth == 0 {
		return ""
	}

	bodyH := m.WindowHeight - 3
	if bodyH < 8 {
		bodyH = 8
	}
	explorerW := ExplorerWidth
	if m.WindowWidth < CompactWidthThresh {
		explorerW = 0
	}
	chatW := m.Viewport.Width + 2
	editorW := m.WindowWidth - explorerW - chatW
	if editorW < 20 {
		editorW = 20
	}

	var panes []string
	if explorerW > 0 {
		panes = append(panes, m.renderPane("FILES", m.Focus == FocusExplorer, explorerW, bodyH,
			m.RenderExplorer(explorerW-2, bodyH-3)))
	}

	editorBody := m.Editor.View()
	editorTitle := "EDITOR"
	if m.PreviewOpen {
		editorBody = m.Preview.View()
		editorTitle = "PREVIEW"
	}
	if m.EditorID == "" && !m.PreviewOpen {
		editorBody = lipgloss.Place(editorW-2, bodyH-4, lipgloss.Center, lipgloss.Center,
			lipgloss.NewStyle().Foreground(styles.HintColor).Render("Select a file in the explorer"))
	}
	editorBody = lipgloss.JoinVertical(lipgloss.Left, m.RenderTabStrip(editorW-2), editorBody)
	panes = append(panes, m.renderPane(editorTitle, m.Focus == FocusEditor, editorW, bodyH, editorBody))

	inputBox := styles.InputBoxStyle.Width(chatW - 4).Render(m.TextInput.View())
	chatBody := lipgloss.JoinVertical(lipgloss.Left, m.Viewport.View(), inputBox)
	panes = append(panes, m.renderPane("FORGE AI", m.Focus == FocusChat, chatW, bodyH, chatBody))

	body := lipgloss.JoinHorizontal(lipgloss.Top, panes...)

	banner := ""
	if m.Banner != "" {
		banner = styles.BannerStyle.Width(m.WindowWidth).Render(TruncateRunes(m.Banner, m.WindowWidth-2))
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, banner, m.RenderBottomBar())
}
