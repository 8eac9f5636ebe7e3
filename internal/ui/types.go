package ui

import (
	"database/sql"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"

	"forge/internal/agent"
	"forge/internal/credentials"
	"forge/internal/models"
	"forge/internal/tabs"
	"forge/internal/vfs"
)

const (
	ExplorerWidth      = 28
	MinChatWidth       = 40
	CompactWidthThresh = 100 // Width below which the explorer is hidden

	HistoryPageSize = 10
)

// ModalWidth follows the window size.
var ModalWidth = 60

type Focus int

const (
	FocusExplorer Focus = iota
	FocusEditor
	FocusChat
)

func (f Focus) Next(delta int) Focus {
	return Focus(((int(f)+delta)%3 + 3) % 3)
}

// PromptKind is the explorer action waiting for input.
type PromptKind int

const (
	PromptNone PromptKind = iota
	PromptNewFile
	PromptNewFolder
	PromptRename
	PromptDelete
)

type ExplorerRow struct {
	Node  *vfs.Node
	Depth int
}

type (
	ToolCallMsg struct {
		Name  string
		Input map[string]any
	}

	ToolResultMsg struct {
		Name    string
		OK      bool
		Summary string
	}

	// ResponseMsg ends a turn. Prompt is zero when the transcript was
	// cleared before the reply arrived.
	ResponseMsg struct {
		Message models.Message
		Prompt  models.Message
		Usage   agent.Usage
	}

	// ValidationMsg is a rejected submission. Nothing reached the transcript.
	ValidationMsg struct{ Err error }

	TreeChangedMsg struct{}

	FilesDeletedMsg struct{ IDs []string }

	StatusMsg string
)

// Deps are the services the UI drives.
type Deps struct {
	Store       *vfs.Store
	Agent       *agent.Orchestrator
	Credentials *credentials.Store
	DB          *sql.DB
	DBErr       error
	Logger      *zap.Logger
}

type Model struct {
	Store   *vfs.Store
	Agent   *agent.Orchestrator
	Creds   *credentials.Store
	DB      *sql.DB
	DBErr   error
	Log     *zap.Logger
	Program *tea.Program

	Focus        Focus
	WindowWidth  int
	WindowHeight int
	Banner       string
	Status       string

	// Explorer
	ExplorerRows []ExplorerRow
	ExplorerIdx  int
	Prompt       PromptKind
	PromptTarget *vfs.Node
	PromptInput  textinput.Model
	PromptErr    error

	// Editor
	Tabs        tabs.Strip
	Editor      textarea.Model
	EditorID    string
	PreviewOpen bool
	Preview     viewport.Model

	// Chat
	Viewport      viewport.Model
	Messages      []string
	TextInput     textarea.Model
	Spinner       spinner.Model
	Renderer      *glamour.TermRenderer
	Loading       bool
	CurrentChatID int64
	ExecutingTool string
	ToolActions   []models.ToolAction
	InputTokens   int64
	OutputTokens  int64
	LastAnswer    string

	// Modals
	HistoryOpen        bool
	HistorySelectedIdx int
	HistoryChatCount   int
	HistoryChats       []models.ChatListItem
	HistoryErr         error
	HistoryPage        int
	ModelSelectorOpen  bool
	ModelViewport      viewport.Model
	CurrentModel       models.AIModel
	SelectedModelIndex int
	ShortcutsOpen      bool
	APIKeyOpen         bool
	APIKeyInput        textinput.Model
	APIKeyErr          error
}
