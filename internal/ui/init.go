package ui

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"forge/internal/models"
	"forge/internal/styles"
	"forge/internal/tools"
	"forge/internal/vfs"
)

func New(deps Deps) Model {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	ti := textarea.New()
	ti.Placeholder = "Ask about your project..."
	ti.Prompt = "❯ "
	ti.ShowLineNumbers = false
	ti.CharLimit = 0
	ti.MaxHeight = 6
	ti.SetHeight(2)
	ti.SetWidth(40)
	ti.FocusedStyle.Prompt = lipgloss.NewStyle().Foreground(lipgloss.Color("#B39DDB")).Bold(true)
	ti.BlurredStyle.Prompt = lipgloss.NewStyle().Foreground(lipgloss.Color("#545454"))
	ti.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(lipgloss.Color("#545454"))
	ti.BlurredStyle.Placeholder = lipgloss.NewStyle().Foreground(lipgloss.Color("#545454"))
	ti.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ti.BlurredStyle.CursorLine = lipgloss.NewStyle()
	ti.Blur()

	ed := textarea.New()
	ed.Placeholder = "Open a file from the explorer"
	ed.Prompt = ""
	ed.ShowLineNumbers = true
	ed.CharLimit = 0
	ed.MaxHeight = 0
	ed.FocusedStyle.CursorLine = lipgloss.NewStyle().Background(lipgloss.AdaptiveColor{Light: "#F4F4F5", Dark: "#1E1E2A"})
	ed.BlurredStyle.CursorLine = lipgloss.NewStyle()
	ed.Blur()

	pi := textinput.New()
	pi.Prompt = "› "
	pi.CharLimit = 128

	ki := textinput.New()
	ki.Placeholder = "gsk_..."
	ki.EchoMode = textinput.EchoPassword
	ki.EchoCharacter = '•'
	ki.CharLimit = 256

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#B39DDB"))

	m := Model{
		Store:         deps.Store,
		Agent:         deps.Agent,
		Creds:         deps.Credentials,
		DB:            deps.DB,
		DBErr:         deps.DBErr,
		Log:           deps.Logger.Named("ui"),
		Focus:         FocusExplorer,
		PromptInput:   pi,
		Editor:        ed,
		Preview:       viewport.New(40, 10),
		Viewport:      viewport.New(40, 15),
		TextInput:     ti,
		Spinner:       sp,
		ModelViewport: viewport.New(ModalWidth-4, 15),
		APIKeyInput:   ki,
		CurrentModel:  models.AvailableModels[0],
	}
	if m.Store == nil {
		m.Store = vfs.NewStore(vfs.NewSeedTree())
	}

	if m.Agent != nil {
		if mdl, idx, ok := models.FindModelByID(m.Agent.Model()); ok {
			m.CurrentModel = mdl
			m.SelectedModelIndex = idx
		} else if id := m.Agent.Model(); id != "" {
			m.CurrentModel = models.AIModel{ID: id, Name: id, Provider: "Unknown"}
		}
	}

	m.refreshExplorer()
	return m
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.Spinner.Tick,
	)
}

// programObserver forwards tool progress from the agent goroutine into the
// event loop.
type programObserver struct {
	p *tea.Program
}

func (o programObserver) ToolStarted(name string, input map[string]any) {
	o.p.Send(ToolCallMsg{Name: name, Input: input})
}

func (o programObserver) ToolFinished(name string, input map[string]any, res tools.Result) {
	o.p.Send(ToolResultMsg{Name: name, OK: res.OK, Summary: tools.Summarize(name, input, res)})
}

// NewProgram builds the program and routes agent and store notifications
// into it.
func NewProgram(deps Deps) *tea.Program {
	styles.InitTheme()
	m := New(deps)
	p := tea.NewProgram(&m, tea.WithAltScreen())
	m.Program = p

	if m.Agent != nil {
		m.Agent.SetObserver(programObserver{p: p})
	}
	m.Store.OnChange(func(*vfs.Tree) { go p.Send(TreeChangedMsg{}) })
	m.Store.OnDelete(func(ids []string) { go p.Send(FilesDeletedMsg{IDs: ids}) })
	return p
}
