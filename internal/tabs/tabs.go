// Package tabs tracks the editor's open files.
package tabs

type Tab struct {
	ID   string
	Name string
}

// Strip is the ordered set of open tabs. The zero value is empty.
type Strip struct {
	open     []Tab
	activeID string
}

// Open adds the tab when it is not already open and makes it active.
func (s *Strip) Open(tab Tab) {
	if s.index(tab.ID) < 0 {
		s.open = append(s.open, tab)
	}
	s.activeID = tab.ID
}

// Close removes the tab. Closing the active tab activates the last remaining
// one.
func (s *Strip) Close(id string) {
	i := s.index(id)
	if i < 0 {
		return
	}
	s.open = append(s.open[:i:i], s.open[i+1:]...)
	if s.activeID != id {
		return
	}
	s.activeID = ""
	if n := len(s.open); n > 0 {
		s.activeID = s.open[n-1].ID
	}
}

// CloseAll closes every tab in ids, e.g. after a folder delete.
func (s *Strip) CloseAll(ids []string) {
	for _, id := range ids {
		s.Close(id)
	}
}

func (s *Strip) SetActive(id string) {
	if s.index(id) >= 0 {
		s.activeID = id
	}
}

// Rename updates the label of an open tab.
func (s *Strip) Rename(id, name string) {
	if i := s.index(id); i >= 0 {
		s.open[i].Name = name
	}
}

func (s *Strip) ActiveID() string { return s.activeID }

func (s *Strip) Tabs() []Tab {
	return append([]Tab(nil), s.open...)
}

// Cycle moves the active tab by delta positions, wrapping around.
func (s *Strip) Cycle(delta int) {
	n := len(s.open)
	if n == 0 {
		return
	}
	i := s.index(s.activeID)
	if i < 0 {
		i = 0
	}
	s.activeID = s.open[((i+delta)%n+n)%n].ID
}

func (s *Strip) index(id string) int {
	for i, t := range s.open {
		if t.ID == id {
			return i
		}
	}
	return -1
}
