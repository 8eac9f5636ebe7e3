package agent

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInterpret(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Response
	}{
		{
			name: "plain text",
			text: "All done.",
			want: PlainAnswer{Text: "All done."},
		},
		{
			name: "directive with preamble",
			text: "Let me look.\n<tool_call>\n{\"name\":\"list_files\",\"input\":{\"path\":\"./src\"}}\n</tool_call>",
			want: ToolInvocation{
				Name:      "list_files",
				Input:     map[string]any{"path": "./src"},
				Preceding: "Let me look.",
				Raw:       "Let me look.\n<tool_call>\n{\"name\":\"list_files\",\"input\":{\"path\":\"./src\"}}\n</tool_call>",
			},
		},
		{
			name: "only first directive honored",
			text: `<tool_call>{"name":"read_file","input":{"path":"a"}}</tool_call><tool_call>{"name":"read_file","input":{"path":"b"}}</tool_call>`,
			want: ToolInvocation{
				Name:  "read_file",
				Input: map[string]any{"path": "a"},
				Raw:   `<tool_call>{"name":"read_file","input":{"path":"a"}}</tool_call><tool_call>{"name":"read_file","input":{"path":"b"}}</tool_call>`,
			},
		},
		{
			name: "missing input",
			text: `<tool_call>{"name":"list_files"}</tool_call>`,
			want: ToolInvocation{Name: "list_files", Input: map[string]any{}, Raw: `<tool_call>{"name":"list_files"}</tool_call>`},
		},
		{
			name: "malformed json",
			text: `<tool_call>{"name":"read_file",</tool_call>`,
			want: PlainAnswer{Text: `<tool_call>{"name":"read_file",</tool_call>`},
		},
		{
			name: "missing name",
			text: `<tool_call>{"input":{}}</tool_call>`,
			want: PlainAnswer{Text: `<tool_call>{"input":{}}</tool_call>`},
		},
		{
			name: "input not an object",
			text: `<tool_call>{"name":"read_file","input":"src/App.jsx"}</tool_call>`,
			want: PlainAnswer{Text: `<tool_call>{"name":"read_file","input":"src/App.jsx"}</tool_call>`},
		},
		{
			name: "unterminated directive",
			text: `<tool_call>{"name":"read_file","input":{}}`,
			want: PlainAnswer{Text: `<tool_call>{"name":"read_file","input":{}}`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Interpret(tt.text))
		})
	}
}
