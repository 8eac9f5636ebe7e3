package tabs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func ids(s *Strip) []string {
	var out []string
	for _, t := range s.Tabs() {
		out = append(out, t.ID)
	}
	return out
}

func TestOpenIsIdempotent(t *testing.T) {
	var s Strip
	s.Open(Tab{ID: "a", Name: "App.jsx"})
	s.Open(Tab{ID: "b", Name: "index.jsx"})
	s.Open(Tab{ID: "a", Name: "App.jsx"})

	require.Equal(t, []string{"a", "b"}, ids(&s))
	require.Equal(t, "a", s.ActiveID())
}

func TestClose(t *testing.T) {
	tests := []struct {
		name       string
		active     string
		close      string
		wantTabs   []string
		wantActive string
	}{
		{name: "active falls back to last", active: "a", close: "a", wantTabs: []string{"b", "c"}, wantActive: "c"},
		{name: "inactive keeps active", active: "a", close: "b", wantTabs: []string{"a", "c"}, wantActive: "a"},
		{name: "unknown is ignored", active: "b", close: "z", wantTabs: []string{"a", "b", "c"}, wantActive: "b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Strip
			for _, id := range []string{"a", "b", "c"} {
				s.Open(Tab{ID: id})
			}
			s.SetActive(tt.active)
			s.Close(tt.close)
			require.Equal(t, tt.wantTabs, ids(&s))
			require.Equal(t, tt.wantActive, s.ActiveID())
		})
	}
}

func TestCloseLastLeavesNoActive(t *testing.T) {
	var s Strip
	s.Open(Tab{ID: "a"})
	s.Close("a")
	require.Empty(t, s.Tabs())
	require.Empty(t, s.ActiveID())
}

func TestCloseAllAndCycle(t *testing.T) {
	var s Strip
	for _, id := range []string{"a", "b", "c", "d"} {
		s.Open(Tab{ID: id})
	}
	s.CloseAll([]string{"b", "d"})
	require.Equal(t, []string{"a", "c"}, ids(&s))
	require.Equal(t, "c", s.ActiveID())

	s.Cycle(1)
	require.Equal(t, "a", s.ActiveID())
	s.Cycle(-1)
	require.Equal(t, "c", s.ActiveID())

	s.SetActive("missing")
	require.Equal(t, "c", s.ActiveID())

	s.Rename("a", "Main.jsx")
	require.Equal(t, "Main.jsx", s.Tabs()[0].Name)
}
