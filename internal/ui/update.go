package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"forge/internal/agent"
	"forge/internal/db"
	"forge/internal/models"
	"forge/internal/styles"
)

const duplicateWindow = time.Second

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		if m.Loading {
			m.UpdateViewport()
		}
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)

	case ToolCallMsg:
		m.ExecutingTool = msg.Name
		m.UpdateViewport()
		return m, nil

	case ToolResultMsg:
		m.ExecutingTool = ""
		m.ToolActions = append(m.ToolActions, models.ToolAction{Name: msg.Name, Summary: msg.Summary, Failed: !msg.OK})
		m.UpdateViewport()
		return m, nil

	case ResponseMsg:
		m.Loading = false
		m.ExecutingTool = ""
		m.InputTokens = msg.Usage.PromptTokens
		m.OutputTokens = msg.Usage.CompletionTokens
		m.LastAnswer = msg.Message.Content
		m.Messages = append(m.Messages, m.formatAnswer(msg.Message.Content, m.ToolActions))
		m.ToolActions = nil
		if err := m.PersistTurn(msg.Prompt, msg.Message); err != nil {
			m.Messages = append(m.Messages, styles.ErrorStyle.Render(fmt.Sprintf("History error: %v", err)))
		}
		m.syncEditor()
		m.UpdateViewport()
		return m, nil

	case ValidationMsg:
		m.Loading = false
		m.Banner = msg.Err.Error()
		m.UpdateViewport()
		return m, nil

	case TreeChangedMsg:
		m.refreshExplorer()
		m.syncEditor()
		return m, nil

	case FilesDeletedMsg:
		m.closeTabs(msg.IDs)
		return m, nil

	case StatusMsg:
		m.Status = string(msg)
		return m, nil

	case tea.WindowSizeMsg:
		m.WindowWidth = msg.Width
		m.WindowHeight = msg.Height

		ModalWidth = msg.Width - 10
		if ModalWidth > 60 {
			ModalWidth = 60
		}
		if ModalWidth < 30 {
			ModalWidth = 30
		}
		styles.ContentWidth = ModalWidth - 6

		m.ModelViewport.Width = styles.ContentWidth
		m.ModelViewport.Height = msg.Height - 15
		if m.ModelViewport.Height > 20 {
			m.ModelViewport.Height = 20
		}
		if m.ModelViewport.Height < 5 {
			m.ModelViewport.Height = 5
		}

		m.layout()
		glamourStyle := "dark"
		if !lipgloss.HasDarkBackground() {
			glamourStyle = "light"
		}
		m.Renderer, _ = glamour.NewTermRenderer(
			glamour.WithStylePath(glamourStyle),
			glamour.WithWordWrap(m.Viewport.Width-4),
		)
		m.refreshPreview()
		m.UpdateViewport()
		return m, nil
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.HistoryOpen {
		return m.updateHistory(msg)
	}
	if m.ModelSelectorOpen {
		return m.updateModelSelector(msg)
	}
	if m.APIKeyOpen {
		return m.updateAPIKey(msg)
	}
	if m.ShortcutsOpen {
		switch msg.String() {
		case "esc", "enter", "ctrl+g":
			m.ShortcutsOpen = false
		}
		return m, nil
	}

	m.Banner = ""
	if m.Prompt == PromptNone {
		switch msg.String() {
		case "tab":
			m.setFocus(m.Focus.Next(1))
			return m, nil
		case "shift+tab":
			m.setFocus(m.Focus.Next(-1))
			return m, nil
		case "ctrl+n":
			m.ResetSession()
			return m, nil
		case "ctrl+b":
			m.ModelSelectorOpen = true
			m.UpdateModelSelectorContent()
			m.SyncModelViewportScroll()
			return m, nil
		case "ctrl+k":
			m.APIKeyOpen = true
			m.APIKeyErr = nil
			m.APIKeyInput.Reset()
			return m, m.APIKeyInput.Focus()
		case "ctrl+h":
			m.HistoryOpen = true
			m.HistoryPage = 0
			m.RefreshHistoryFromDB()
			return m, nil
		case "ctrl+g":
			m.ShortcutsOpen = true
			return m, nil
		case "ctrl+p":
			m.PreviewOpen = !m.PreviewOpen
			m.layout()
			m.refreshPreview()
			return m, nil
		case "ctrl+w":
			if id := m.Tabs.ActiveID(); id != "" {
				m.closeTabs([]string{id})
			}
			return m, nil
		case "ctrl+right":
			m.Tabs.Cycle(1)
			m.loadEditor()
			return m, nil
		case "ctrl+left":
			m.Tabs.Cycle(-1)
			m.loadEditor()
			return m, nil
		case "ctrl+y":
			m.copySelection()
			return m, nil
		}
	}

	switch m.Focus {
	case FocusExplorer:
		return m.updateExplorer(msg)
	case FocusEditor:
		return m.updateEditor(msg)
	default:
		return m.updateChat(msg)
	}
}

func (m *Model) setFocus(f Focus) {
	m.Focus = f
	m.Editor.Blur()
	m.TextInput.Blur()
	switch f {
	case FocusEditor:
		m.Editor.Focus()
	case FocusChat:
		m.TextInput.Focus()
	}
}

func (m *Model) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if isNewlineShortcut(msg) {
		m.TextInput.InsertString("\n")
		m.layout()
		return m, nil
	}

	switch msg.Type {
	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.Viewport, cmd = m.Viewport.Update(msg)
		return m, cmd
	case tea.KeyEnter:
		return m, m.submit()
	}

	var cmd tea.Cmd
	m.TextInput, cmd = m.TextInput.Update(msg)
	m.layout()
	return m, cmd
}

// submit validates the input and starts an agent turn.
func (m *Model) submit() tea.Cmd {
	input := strings.TrimSpace(m.TextInput.Value())
	if input == "" {
		return nil
	}
	if input == "/clear" || input == "/reset" {
		m.ResetSession()
		return nil
	}
	if m.Agent == nil {
		m.Banner = "Agent not configured"
		return nil
	}
	if m.Loading {
		m.Banner = agent.ErrBusy.Error()
		return nil
	}
	if m.Agent.Conversation().IsDuplicateSubmission(input, duplicateWindow) {
		return nil
	}
	if err := m.Agent.Validate(input); err != nil {
		m.Banner = validationText(err)
		return nil
	}

	m.Messages = append(m.Messages, FormatUserMessage(input, m.Viewport.Width, len(m.Messages) == 0))
	m.TextInput.Reset()
	m.layout()
	m.Loading = true
	m.ToolActions = nil
	m.UpdateViewport()

	return tea.Batch(m.SendMessage(input), m.Spinner.Tick)
}

// SendMessage runs the turn off the event loop.
func (m *Model) SendMessage(input string) tea.Cmd {
	orchestrator := m.Agent
	log := m.Log
	return func() tea.Msg {
		reply, err := orchestrator.SendMessage(context.Background(), input)
		if err != nil {
			log.Warn("submission rejected", zap.Error(err))
			return ValidationMsg{Err: errors.New(validationText(err))}
		}
		prompt, _ := openingPrompt(orchestrator.Conversation().Snapshot(), input)
		return ResponseMsg{Message: reply, Prompt: prompt, Usage: orchestrator.Usage()}
	}
}

// openingPrompt finds the user message that started the latest turn. It is
// missing when the transcript was cleared while the turn ran.
func openingPrompt(transcript []models.Message, input string) (models.Message, bool) {
	for i := len(transcript) - 1; i > 0; i-- {
		if msg := transcript[i]; msg.Role == models.RoleUser && msg.Content == input {
			return msg, true
		}
	}
	return models.Message{}, false
}

func validationText(err error) string {
	switch {
	case errors.Is(err, agent.ErrMissingCredential):
		return "API key not set. Press Ctrl+K to add one."
	case errors.Is(err, agent.ErrNoModel):
		return "No model selected. Press Ctrl+B to pick one."
	case errors.Is(err, agent.ErrEmptyPrompt):
		return "Please enter a message."
	default:
		return err.Error()
	}
}

func (m *Model) updateHistory(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+h":
		m.HistoryOpen = false
		m.HistoryErr = nil
	case "up", "k":
		if len(m.HistoryChats) == 0 {
			return m, nil
		}
		m.HistorySelectedIdx--
		if m.HistorySelectedIdx < 0 {
			m.HistorySelectedIdx = len(m.HistoryChats) - 1
		}
	case "down", "j":
		if len(m.HistoryChats) == 0 {
			return m, nil
		}
		m.HistorySelectedIdx++
		if m.HistorySelectedIdx >= len(m.HistoryChats) {
			m.HistorySelectedIdx = 0
		}
	case "enter":
		if len(m.HistoryChats) == 0 {
			return m, nil
		}
		if m.Loading {
			m.HistoryErr = agent.ErrBusy
			return m, nil
		}
		chat := m.HistoryChats[m.HistorySelectedIdx]
		if err := m.LoadChatFromDB(chat.ID, chat.ModelID); err != nil {
			m.HistoryErr = err
			return m, nil
		}
		m.HistoryOpen = false
		m.HistoryErr = nil
	case "left", "h":
		if m.HistoryPage > 0 {
			m.HistoryPage--
			m.RefreshHistoryFromDB()
		}
	case "right", "l":
		totalPages := (m.HistoryChatCount + HistoryPageSize - 1) / HistoryPageSize
		if m.HistoryPage < totalPages-1 {
			m.HistoryPage++
			m.RefreshHistoryFromDB()
		}
	}
	return m, nil
}

func (m *Model) updateModelSelector(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+b":
		m.ModelSelectorOpen = false
	case "up", "k":
		m.SelectedModelIndex--
		if m.SelectedModelIndex < 0 {
			m.SelectedModelIndex = len(models.AvailableModels) - 1
		}
		m.SyncModelViewportScroll()
		m.UpdateModelSelectorContent()
	case "down", "j":
		m.SelectedModelIndex++
		if m.SelectedModelIndex >= len(models.AvailableModels) {
			m.SelectedModelIndex = 0
		}
		m.SyncModelViewportScroll()
		m.UpdateModelSelectorContent()
	case "enter":
		m.selectModel(models.AvailableModels[m.SelectedModelIndex])
		m.ModelSelectorOpen = false
	}
	return m, nil
}

func (m *Model) selectModel(mdl models.AIModel) {
	m.CurrentModel = mdl
	if m.Agent != nil {
		m.Agent.SetModel(mdl.ID)
	}
	if m.Creds != nil {
		if err := m.Creds.SetModelID(mdl.ID); err != nil {
			m.Log.Warn("persist model", zap.Error(err))
		}
	}
}

func (m *Model) updateAPIKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.APIKeyOpen = false
		m.APIKeyInput.Blur()
		return m, nil
	case tea.KeyEnter:
		if m.Creds == nil {
			m.APIKeyErr = errors.New("settings storage unavailable")
			return m, nil
		}
		if err := m.Creds.SetKey(m.APIKeyInput.Value()); err != nil {
			m.APIKeyErr = err
			return m, nil
		}
		m.APIKeyOpen = false
		m.APIKeyInput.Reset()
		m.APIKeyInput.Blur()
		m.Status = "API key saved"
		return m, nil
	}
	var cmd tea.Cmd
	m.APIKeyInput, cmd = m.APIKeyInput.Update(msg)
	return m, cmd
}

func isNewlineShortcut(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "shift+enter", "shift+return", "ctrl+j", "ctrl+enter", "alt+enter":
		return true
	default:
		return false
	}
}

// layout sizes every pane from the window dimensions.
func (m *Model) layout() {
	if m.WindowWidth == 0 || m.WindowHeight == 0 {
		return
	}

	explorerW := ExplorerWidth
	if m.WindowWidth < CompactWidthThresh {
		explorerW = 0
	}
	chatW := m.WindowWidth * 2 / 5
	if chatW < MinChatWidth {
		chatW = MinChatWidth
	}
	editorW := m.WindowWidth - explorerW - chatW
	if editorW < 20 {
		editorW = 20
	}
	bodyH := m.WindowHeight - 3 // bottom bar + banner line
	if bodyH < 8 {
		bodyH = 8
	}

	// pane borders take two columns and two rows
	m.Editor.SetWidth(editorW - 2)
	m.Editor.SetHeight(bodyH - 3)
	m.Preview.Width = editorW - 2
	m.Preview.Height = bodyH - 3

	inputWidth := chatW - 6
	if inputWidth < 10 {
		inputWidth = 10
	}
	lineCount := WrappedLineCount(m.TextInput.Value(), inputWidth-2)
	if lineCount < 1 {
		lineCount = 1
	}
	if lineCount > m.TextInput.MaxHeight {
		lineCount = m.TextInput.MaxHeight
	}
	m.TextInput.SetWidth(inputWidth)
	m.TextInput.SetHeight(lineCount)

	m.Viewport.Width = chatW - 2
	m.Viewport.Height = bodyH - 2 - 1 - (m.TextInput.Height() + 2)
	if m.Viewport.Height < 3 {
		m.Viewport.Height = 3
	}
	m.PromptInput.Width = explorerW - 6
}

// ResetSession starts a new chat. The workspace is untouched.
func (m *Model) ResetSession() {
	if m.Agent != nil {
		m.Agent.Clear()
	}
	m.Messages = []string{}
	m.CurrentChatID = 0
	m.InputTokens = 0
	m.OutputTokens = 0
	m.ToolActions = nil
	m.LastAnswer = ""
	m.HistoryOpen = false
	m.HistoryErr = nil
	m.TextInput.Reset()
	m.layout()
	m.UpdateViewport()
	m.Viewport.GotoTop()
}

func (m *Model) RefreshHistoryFromDB() {
	m.HistoryErr = nil
	m.HistoryChats = nil
	m.HistorySelectedIdx = 0

	if m.DBErr != nil {
		m.HistoryErr = m.DBErr
		return
	}
	if m.DB == nil {
		m.HistoryErr = fmt.Errorf("history database not initialized")
		return
	}

	offset := m.HistoryPage * HistoryPageSize
	count, chats, err := db.GetRecentChats(m.DB, HistoryPageSize, offset)
	if err != nil {
		m.HistoryErr = err
		return
	}
	m.HistoryChatCount = count
	m.HistoryChats = chats
}

// PersistTurn saves a finished turn to the current chat, starting a new
// chat on the first turn. A turn whose prompt was cleared away mid-flight
// is not saved.
func (m *Model) PersistTurn(prompt, reply models.Message) error {
	if m.DB == nil {
		return m.DBErr
	}
	if prompt.ID == "" {
		return nil
	}

	id, err := db.SaveTurn(m.DB, db.Turn{
		ChatID:  m.CurrentChatID,
		ModelID: m.CurrentModel.ID,
		Title:   PromptPreview(prompt.Content),
		Prompt:  prompt,
		Reply:   reply,
	})
	if err != nil {
		return err
	}
	m.CurrentChatID = id
	return nil
}

// LoadChatFromDB restores a saved chat into both the panel and the agent's
// transcript.
func (m *Model) LoadChatFromDB(chatID int64, modelID string) error {
	if m.DB == nil {
		if m.DBErr != nil {
			return m.DBErr
		}
		return fmt.Errorf("history database not initialized")
	}

	msgs, err := db.GetChatMessages(m.DB, chatID)
	if err != nil {
		return err
	}

	if modelID != "" {
		if mdl, idx, ok := models.FindModelByID(modelID); ok {
			m.SelectedModelIndex = idx
			m.selectModel(mdl)
		} else {
			m.selectModel(models.AIModel{ID: modelID, Name: modelID, Provider: "Unknown"})
		}
	}

	m.CurrentChatID = chatID
	m.Loading = false
	m.InputTokens = 0
	m.OutputTokens = 0
	m.Messages = []string{}

	restored := make([]models.Message, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case models.RoleUser:
			m.Messages = append(m.Messages, FormatUserMessage(msg.Content, m.Viewport.Width, len(m.Messages) == 0))
		case models.RoleAssistant:
			m.Messages = append(m.Messages, m.formatAnswer(msg.Content, nil))
			m.LastAnswer = msg.Content
		default:
			continue
		}
		restored = append(restored, msg)
	}
	if m.Agent != nil {
		m.Agent.Clear()
		m.Agent.Conversation().ReplaceAll(restored)
	}

	m.UpdateViewport()
	return nil
}
