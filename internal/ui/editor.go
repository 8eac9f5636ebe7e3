package ui

import (
	"path"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"forge/internal/styles"
	"forge/internal/vfs"
)

var fenceLanguages = map[string]string{
	".js":   "javascript",
	".jsx":  "jsx",
	".ts":   "typescript",
	".tsx":  "tsx",
	".css":  "css",
	".json": "json",
	".html": "html",
	".go":   "go",
	".py":   "python",
	".sh":   "bash",
	".yaml": "yaml",
	".yml":  "yaml",
}

// PreviewSource is the markdown the preview pane renders for a file:
// markdown files as they are, everything else fenced by extension.
func PreviewSource(n *vfs.Node) string {
	if n == nil || !n.IsFile() {
		return "_Nothing to preview_"
	}
	ext := strings.ToLower(path.Ext(n.Name))
	if ext == ".md" || ext == ".markdown" {
		return n.Text()
	}
	fence := "```"
	for strings.Contains(n.Text(), fence) {
		fence += "`"
	}
	return "### " + n.Name + "\n\n" + fence + fenceLanguages[ext] + "\n" + strings.TrimRight(n.Text(), "\n") + "\n" + fence + "\n"
}

// loadEditor binds the editor to the active tab.
func (m *Model) loadEditor() {
	id := m.Tabs.ActiveID()
	m.EditorID = id
	n := m.Store.Tree().LookupByID(id)
	if n == nil || !n.IsFile() {
		m.EditorID = ""
		m.Editor.Reset()
		m.refreshPreview()
		return
	}
	m.Editor.SetValue(n.Text())
	m.Store.SetActive(id)
	m.refreshPreview()
}

// syncEditor reloads the buffer when the file changed underneath it, e.g.
// after an agent edit.
func (m *Model) syncEditor() {
	if m.EditorID == "" {
		return
	}
	n := m.Store.Tree().LookupByID(m.EditorID)
	if n == nil {
		m.loadEditor()
		return
	}
	if n.Text() != m.Editor.Value() {
		m.Editor.SetValue(n.Text())
	}
	m.refreshPreview()
}

func (m *Model) closeTabs(ids []string) {
	before := m.Tabs.ActiveID()
	m.Tabs.CloseAll(ids)
	if m.Tabs.ActiveID() != before || m.EditorID != m.Tabs.ActiveID() {
		m.loadEditor()
	}
}

func (m *Model) updateEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.EditorID == "" {
		return m, nil
	}
	if msg.Type == tea.KeyEsc {
		m.setFocus(FocusExplorer)
		return m, nil
	}

	var cmd tea.Cmd
	before := m.Editor.Value()
	m.Editor, cmd = m.Editor.Update(msg)
	if after := m.Editor.Value(); after != before {
		if err := m.Store.SetContent(m.EditorID, after); err != nil {
			m.Banner = err.Error()
		}
		m.refreshPreview()
	}
	return m, cmd
}

func (m *Model) refreshPreview() {
	if !m.PreviewOpen {
		return
	}
	source := PreviewSource(m.Store.Tree().LookupByID(m.EditorID))
	content := source
	if m.Renderer != nil {
		if rendered, err := m.Renderer.Render(source); err == nil {
			content = strings.TrimSpace(rendered)
		}
	}
	m.Preview.SetContent(content)
}

// copySelection puts the open file or the last answer on the clipboard.
func (m *Model) copySelection() {
	text, what := m.LastAnswer, "last answer"
	if m.Focus == FocusEditor && m.EditorID != "" {
		text, what = m.Editor.Value(), "file"
	}
	if text == "" {
		m.Status = "Nothing to copy"
		return
	}
	if err := clipboard.WriteAll(text); err != nil {
		m.Banner = "Clipboard unavailable: " + err.Error()
		return
	}
	m.Status = "Copied " + what
}

func (m *Model) RenderTabStrip(width int) string {
	open := m.Tabs.Tabs()
	if len(open) == 0 {
		return styles.TabStyle.Render("No open files")
	}
	var parts []string
	for _, t := range open {
		label := TruncateRunes(t.Name, 20)
		if t.ID == m.Tabs.ActiveID() {
			parts = append(parts, styles.ActiveTabStyle.Render(label))
		} else {
			parts = append(parts, styles.TabStyle.Render(label))
		}
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(lipgloss.JoinHorizontal(lipgloss.Top, parts...))
}
