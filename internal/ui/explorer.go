package ui

import (
	"fmt"
	"path"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"forge/internal/styles"
	"forge/internal/tabs"
	"forge/internal/vfs"
)

// ExplorerRows flattens the visible part of the tree in display order. The
// root is always listed and always open.
func ExplorerRows(t *vfs.Tree) []ExplorerRow {
	root := t.Root()
	rows := []ExplorerRow{{Node: root}}
	var visit func(n *vfs.Node, depth int)
	visit = func(n *vfs.Node, depth int) {
		for _, child := range vfs.SortedChildren(n) {
			rows = append(rows, ExplorerRow{Node: child, Depth: depth})
			if child.IsFolder() && child.Expanded {
				visit(child, depth+1)
			}
		}
	}
	visit(root, 1)
	return rows
}

func (m *Model) refreshExplorer() {
	var selected string
	if sel := m.selectedNode(); sel != nil {
		selected = sel.ID
	}
	m.ExplorerRows = ExplorerRows(m.Store.Tree())
	m.ExplorerIdx = 0
	for i, row := range m.ExplorerRows {
		if row.Node.ID == selected {
			m.ExplorerIdx = i
			break
		}
	}
}

func (m *Model) selectedNode() *vfs.Node {
	if m.ExplorerIdx < 0 || m.ExplorerIdx >= len(m.ExplorerRows) {
		return nil
	}
	return m.ExplorerRows[m.ExplorerIdx].Node
}

func (m *Model) selectNode(id string) {
	for i, row := range m.ExplorerRows {
		if row.Node.ID == id {
			m.ExplorerIdx = i
			return
		}
	}
}

// targetFolder is where new entries go for the current selection.
func (m *Model) targetFolder() string {
	sel := m.selectedNode()
	switch {
	case sel == nil:
		return vfs.RootPath
	case sel.IsFolder():
		return sel.Path
	default:
		return path.Dir(sel.Path)
	}
}

func (m *Model) updateExplorer(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.Prompt != PromptNone {
		return m.updatePrompt(msg)
	}

	switch msg.String() {
	case "up", "k":
		if m.ExplorerIdx > 0 {
			m.ExplorerIdx--
		}
	case "down", "j":
		if m.ExplorerIdx < len(m.ExplorerRows)-1 {
			m.ExplorerIdx++
		}
	case "enter", "l", "right", " ":
		sel := m.selectedNode()
		if sel == nil {
			return m, nil
		}
		if sel.IsFile() {
			m.openFile(sel)
			if msg.String() == "enter" {
				m.setFocus(FocusEditor)
			}
			return m, nil
		}
		if sel.Path == vfs.RootPath {
			return m, nil
		}
		if msg.String() == "l" || msg.String() == "right" {
			if !sel.Expanded {
				m.toggleFolder(sel)
			}
			return m, nil
		}
		m.toggleFolder(sel)
	case "h", "left":
		sel := m.selectedNode()
		if sel == nil {
			return m, nil
		}
		if sel.IsFolder() && sel.Expanded && sel.Path != vfs.RootPath {
			m.toggleFolder(sel)
			return m, nil
		}
		if parent := m.Store.Tree().LookupByPath(path.Dir(sel.Path)); parent != nil {
			m.selectNode(parent.ID)
		}
	case "a":
		m.startPrompt(PromptNewFile, "")
	case "A":
		m.startPrompt(PromptNewFolder, "")
	case "r":
		if sel := m.selectedNode(); sel != nil && sel.Path != vfs.RootPath {
			m.startPrompt(PromptRename, sel.Name)
		}
	case "d", "delete":
		if sel := m.selectedNode(); sel != nil && sel.Path != vfs.RootPath {
			m.startPrompt(PromptDelete, "")
		}
	}
	return m, nil
}

func (m *Model) toggleFolder(n *vfs.Node) {
	if err := m.Store.ToggleExpand(n.ID); err != nil {
		m.Banner = err.Error()
		return
	}
	m.refreshExplorer()
}

func (m *Model) startPrompt(kind PromptKind, initial string) {
	m.Prompt = kind
	m.PromptTarget = m.selectedNode()
	m.PromptErr = nil
	m.PromptInput.SetValue(initial)
	m.PromptInput.CursorEnd()
	m.PromptInput.Focus()
}

func (m *Model) closePrompt() {
	m.Prompt = PromptNone
	m.PromptTarget = nil
	m.PromptErr = nil
	m.PromptInput.Reset()
	m.PromptInput.Blur()
}

func (m *Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.Prompt == PromptDelete {
		switch msg.String() {
		case "y", "Y", "enter":
			m.deleteNode(m.PromptTarget)
			m.closePrompt()
		case "n", "N", "esc":
			m.closePrompt()
		}
		return m, nil
	}

	switch msg.Type {
	case tea.KeyEsc:
		m.closePrompt()
		return m, nil
	case tea.KeyEnter:
		if err := m.applyPrompt(strings.TrimSpace(m.PromptInput.Value())); err != nil {
			m.PromptErr = err
			return m, nil
		}
		m.closePrompt()
		return m, nil
	}

	var cmd tea.Cmd
	m.PromptInput, cmd = m.PromptInput.Update(msg)
	return m, cmd
}

func (m *Model) applyPrompt(name string) error {
	switch m.Prompt {
	case PromptNewFile:
		n, err := m.Store.CreateFile(m.targetFolder(), name)
		if err != nil {
			return err
		}
		m.refreshExplorer()
		m.selectNode(n.ID)
		m.openFile(n)
	case PromptNewFolder:
		n, err := m.Store.CreateFolder(m.targetFolder(), name)
		if err != nil {
			return err
		}
		m.refreshExplorer()
		m.selectNode(n.ID)
	case PromptRename:
		if m.PromptTarget == nil {
			return nil
		}
		n, err := m.Store.Rename(m.PromptTarget.ID, name)
		if err != nil {
			return err
		}
		m.Tabs.Rename(n.ID, n.Name)
		m.refreshExplorer()
		m.selectNode(n.ID)
	}
	return nil
}

func (m *Model) deleteNode(n *vfs.Node) {
	if n == nil {
		return
	}
	removed, err := m.Store.Delete(n.ID)
	if err != nil {
		m.Banner = err.Error()
		return
	}
	m.closeTabs(removed)
	m.refreshExplorer()
	m.Status = fmt.Sprintf("Deleted %s", n.Name)
}

func (m *Model) openFile(n *vfs.Node) {
	m.Tabs.Open(tabs.Tab{ID: n.ID, Name: n.Name})
	m.Store.SetActive(n.ID)
	m.loadEditor()
}

func (m *Model) RenderExplorer(width, height int) string {
	var lines []string
	activeID := m.Tabs.ActiveID()
	for i, row := range m.ExplorerRows {
		n := row.Node
		icon := "  "
		style := styles.FileStyle
		if n.IsFolder() {
			icon = "▸ "
			if n.Expanded {
				icon = "▾ "
			}
			style = styles.FolderStyle
		}
		if n.ID == activeID {
			style = styles.ActiveFileStyle
		}
		label := TruncateRunes(strings.Repeat("  ", row.Depth)+icon+n.Name, width-2)
		if i == m.ExplorerIdx && m.Focus == FocusExplorer {
			lines = append(lines, styles.TreeCursorStyle.Width(width-2).Render(label))
			continue
		}
		lines = append(lines, style.Render(label))
	}

	if m.Prompt != PromptNone {
		lines = append(lines, "", m.renderPrompt(width-2))
	}

	// keep the cursor row in view
	if len(lines) > height {
		start := m.ExplorerIdx - height/2
		if start < 0 {
			start = 0
		}
		if start > len(lines)-height {
			start = len(lines) - height
		}
		lines = lines[start : start+height]
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderPrompt(width int) string {
	var label string
	switch m.Prompt {
	case PromptNewFile:
		label = "New file in " + path.Base(m.targetFolder())
	case PromptNewFolder:
		label = "New folder in " + path.Base(m.targetFolder())
	case PromptRename:
		label = "Rename"
	case PromptDelete:
		name := ""
		if m.PromptTarget != nil {
			name = m.PromptTarget.Name
		}
		return styles.PromptLabelStyle.Render(TruncateRunes("Delete "+name+"? (y/n)", width))
	}
	out := styles.PromptLabelStyle.Render(TruncateRunes(label, width)) + "\n" + m.PromptInput.View()
	if m.PromptErr != nil {
		out += "\n" + styles.ErrorStyle.Render(TruncateRunes(m.PromptErr.Error(), width))
	}
	return out
}
