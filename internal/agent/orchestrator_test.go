package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"forge/internal/conversation"
	"forge/internal/credentials"
	"forge/internal/llm"
	"forge/internal/models"
	"forge/internal/tools"
	"forge/internal/vfs"
)

// scripted replays replies in order and repeats the last one when exhausted.
type scripted struct {
	mu       sync.Mutex
	replies  []string
	err      error
	calls    int
	requests []llm.Request
	block    chan struct{}
}

func (s *scripted) Complete(ctx context.Context, req llm.Request) (llm.Completion, error) {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.requests = append(s.requests, req)
	if s.err != nil {
		return llm.Completion{}, s.err
	}
	i := s.calls - 1
	if i >= len(s.replies) {
		i = len(s.replies) - 1
	}
	return llm.Completion{Content: s.replies[i], PromptTokens: 10, CompletionTokens: 2}, nil
}

func (s *scripted) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recordingObserver struct {
	started  []string
	finished []tools.Result
}

func (r *recordingObserver) ToolStarted(name string, _ map[string]any) {
	r.started = append(r.started, name)
}

func (r *recordingObserver) ToolFinished(_ string, _ map[string]any, res tools.Result) {
	r.finished = append(r.finished, res)
}

func srcTree(t *testing.T) *vfs.Store {
	t.Helper()
	tree, err := vfs.NewTree().CreateFolder(vfs.RootPath, "src")
	require.NoError(t, err)
	tree, err = tree.CreateFile("/project/src", "App.jsx")
	require.NoError(t, err)
	tree, err = tree.CreateFile("/project/src", "index.jsx")
	require.NoError(t, err)
	return vfs.NewStore(tree)
}

func newTestOrchestrator(t *testing.T, completer llm.Completer, creds credentials.Provider, obs Observer) (*Orchestrator, *vfs.Store) {
	t.Helper()
	store := srcTree(t)
	registry := tools.NewDefaultRegistry(store)
	o := New(Deps{
		Completer:    completer,
		Credentials:  creds,
		Registry:     registry,
		Conversation: conversation.New("sys"),
		Observer:     obs,
	}, DefaultConfig())
	return o, store
}

func TestSendMessageListScenario(t *testing.T) {
	directive := "I'll list it.\n<tool_call>\n{\"name\":\"list_files\",\"input\":{\"path\":\"./src\"}}\n</tool_call>"
	model := &scripted{replies: []string{directive, "src has App.jsx and index.jsx."}}
	obs := &recordingObserver{}
	o, _ := newTestOrchestrator(t, model, credentials.Static{Key: "k"}, obs)

	final, err := o.SendMessage(context.Background(), "list the src folder")
	require.NoError(t, err)
	require.Equal(t, "src has App.jsx and index.jsx.", final.Content)

	msgs := o.Conversation().Snapshot()
	require.Len(t, msgs, 5)
	roles := []string{msgs[0].Role, msgs[1].Role, msgs[2].Role, msgs[3].Role, msgs[4].Role}
	require.Equal(t, []string{models.RoleSystem, models.RoleUser, models.RoleAssistant, models.RoleUser, models.RoleAssistant}, roles)
	require.Equal(t, directive, msgs[2].Content)
	require.Equal(t, "Tool result:\n[\n  \"App.jsx\",\n  \"index.jsx\"\n]", msgs[3].Content)

	require.Equal(t, 2, model.callCount())
	require.Len(t, model.requests[1].Messages, 4)
	require.Equal(t, "k", model.requests[0].APIKey)
	require.InDelta(t, DefaultTemperature, model.requests[0].Temperature, 1e-9)

	require.Equal(t, []string{"list_files"}, obs.started)
	require.Len(t, obs.finished, 1)
	require.Equal(t, 0, o.ToolCalls())
	require.Equal(t, Idle, o.State())
	require.Equal(t, Usage{PromptTokens: 20, CompletionTokens: 4}, o.Usage())
}

func TestSendMessageEditMissFeedsFailureBack(t *testing.T) {
	directive := `<tool_call>{"name":"edit_file","input":{"path":"./src/App.jsx","old_str":"absent","new_str":"x"}}</tool_call>`
	model := &scripted{replies: []string{directive, "It was not there."}}
	o, store := newTestOrchestrator(t, model, credentials.Static{Key: "k"}, nil)
	require.NoError(t, store.SetContent(store.Tree().LookupByPath("/project/src/App.jsx").ID, "export default App"))
	before := store.Tree().LookupByPath("/project/src/App.jsx").Text()

	_, err := o.SendMessage(context.Background(), "rename absent")
	require.NoError(t, err)

	msgs := o.Conversation().Snapshot()
	require.Equal(t, ToolResultPrefix+tools.FailureMarker+"old_str not found in file.", msgs[3].Content)
	require.Equal(t, before, store.Tree().LookupByPath("/project/src/App.jsx").Text())
}

func TestSendMessageCeiling(t *testing.T) {
	loop := `<tool_call>{"name":"read_file","input":{"path":"./src/App.jsx"}}</tool_call>`
	model := &scripted{replies: []string{loop}}
	o, _ := newTestOrchestrator(t, model, credentials.Static{Key: "k"}, nil)
	start := o.Conversation().Len()

	final, err := o.SendMessage(context.Background(), "keep reading")
	require.NoError(t, err)
	require.Equal(t, CeilingMessage, final.Content)
	require.Equal(t, models.RoleAssistant, final.Role)
	require.Equal(t, DefaultMaxConsecutiveToolCalls, model.callCount())
	require.Equal(t, 0, o.ToolCalls())

	// user + ceiling pairs of (directive, tool result) + warning
	require.Equal(t, start+1+2*DefaultMaxConsecutiveToolCalls+1, o.Conversation().Len())

	// a fresh turn starts from zero again
	model.replies = []string{"done"}
	final, err = o.SendMessage(context.Background(), "stop")
	require.NoError(t, err)
	require.Equal(t, "done", final.Content)
}

// clearingCompleter clears the transcript from inside the turn on one call.
type clearingCompleter struct {
	orch    *Orchestrator
	clearAt int
	calls   int
}

func (c *clearingCompleter) Complete(context.Context, llm.Request) (llm.Completion, error) {
	c.calls++
	if c.calls == c.clearAt {
		c.orch.Clear()
	}
	return llm.Completion{Content: `<tool_call>{"name":"read_file","input":{"path":"./src/App.jsx"}}</tool_call>`}, nil
}

func TestClearDuringTurnKeepsCeiling(t *testing.T) {
	tests := []struct {
		name    string
		clearAt int
	}{
		{"first call", 1},
		{"midway", 5},
		{"last call", DefaultMaxConsecutiveToolCalls},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &clearingCompleter{clearAt: tt.clearAt}
			o, _ := newTestOrchestrator(t, model, credentials.Static{Key: "k"}, nil)
			model.orch = o

			final, err := o.SendMessage(context.Background(), "keep reading")
			require.NoError(t, err)
			require.Equal(t, CeilingMessage, final.Content)
			require.Equal(t, DefaultMaxConsecutiveToolCalls, model.calls)
			require.Equal(t, 0, o.ToolCalls())
			require.Equal(t, Idle, o.State())
		})
	}
}

func TestSendMessageConfigurableCeiling(t *testing.T) {
	loop := `<tool_call>{"name":"list_files","input":{}}</tool_call>`
	model := &scripted{replies: []string{loop}}
	cfg := DefaultConfig()
	cfg.MaxConsecutiveToolCalls = 2
	o := New(Deps{
		Completer:   model,
		Credentials: credentials.Static{Key: "k"},
		Registry:    tools.NewDefaultRegistry(srcTree(t)),
	}, cfg)

	final, err := o.SendMessage(context.Background(), "go")
	require.NoError(t, err)
	require.Equal(t, CeilingMessage, final.Content)
	require.Equal(t, 2, model.callCount())
}

func TestSendMessageValidation(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		creds credentials.Provider
		model string
		want  error
	}{
		{name: "empty prompt", text: "   ", creds: credentials.Static{Key: "k"}, model: "m", want: ErrEmptyPrompt},
		{name: "missing credential", text: "hi", creds: credentials.Static{}, model: "m", want: ErrMissingCredential},
		{name: "nil provider", text: "hi", model: "m", want: ErrMissingCredential},
		{name: "missing model", text: "hi", creds: credentials.Static{Key: "k"}, want: ErrNoModel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &scripted{replies: []string{"unused"}}
			o, _ := newTestOrchestrator(t, model, tt.creds, nil)
			o.SetModel(tt.model)
			before := o.Conversation().Len()

			_, err := o.SendMessage(context.Background(), tt.text)
			require.ErrorIs(t, err, tt.want)
			require.Equal(t, 0, model.callCount())
			require.Equal(t, before, o.Conversation().Len())
		})
	}
}

func TestSendMessageRemoteError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		shared bool
		want   string
	}{
		{
			name: "api error verbatim",
			err:  &llm.APIError{StatusCode: 401, Message: "Invalid API Key"},
			want: "Error: Invalid API Key",
		},
		{
			name:   "shared key rate limit hint",
			err:    &llm.APIError{StatusCode: 429, Message: "Rate limit reached for model"},
			shared: true,
			want:   "Error: Rate limit reached for model" + sharedKeyHint,
		},
		{
			name: "own key gets no hint",
			err:  &llm.APIError{StatusCode: 429, Message: "quota exceeded"},
			want: "Error: quota exceeded",
		},
		{
			name: "transport failure",
			err:  errors.New("dial tcp: connection refused"),
			want: "Error: dial tcp: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &scripted{err: tt.err}
			o, _ := newTestOrchestrator(t, model, credentials.Static{Key: "k", Shared: tt.shared}, nil)

			final, err := o.SendMessage(context.Background(), "hi")
			require.NoError(t, err)
			require.Equal(t, tt.want, final.Content)
			require.Equal(t, models.RoleAssistant, final.Role)
			require.Equal(t, 1, model.callCount())
			require.Equal(t, Failed, o.State())
			require.Equal(t, 0, o.ToolCalls())
			require.Equal(t, final, o.Conversation().Last())
		})
	}
}

func TestSendMessageUnknownToolIsFinalAnswer(t *testing.T) {
	reply := `<tool_call>{"name":"delete_everything","input":{}}</tool_call>`
	model := &scripted{replies: []string{reply}}
	o, _ := newTestOrchestrator(t, model, credentials.Static{Key: "k"}, nil)

	final, err := o.SendMessage(context.Background(), "hi")
	require.NoError(t, err)
	require.Equal(t, reply, final.Content)
	require.Equal(t, 1, model.callCount())
	require.Equal(t, 3, o.Conversation().Len())
}

func TestSendMessageRejectsConcurrentTurn(t *testing.T) {
	model := &scripted{replies: []string{"ok"}, block: make(chan struct{})}
	o, _ := newTestOrchestrator(t, model, credentials.Static{Key: "k"}, nil)

	done := make(chan error, 1)
	go func() {
		_, err := o.SendMessage(context.Background(), "first")
		done <- err
	}()
	require.Eventually(t, o.Busy, time.Second, time.Millisecond)

	_, err := o.SendMessage(context.Background(), "second")
	require.ErrorIs(t, err, ErrBusy)

	close(model.block)
	require.NoError(t, <-done)
	require.False(t, o.Busy())
	require.Equal(t, 1, model.callCount())
}

func TestRegisterToolsAndClear(t *testing.T) {
	o, _ := newTestOrchestrator(t, &scripted{replies: []string{"hi"}}, credentials.Static{Key: "k"}, nil)
	o.RegisterTools()

	prompt := o.Conversation().SystemPrompt()
	for _, name := range []string{"read_file", "list_files", "edit_file", "create_file"} {
		require.Contains(t, prompt, name+"\n   • Description: ")
	}
	require.Contains(t, prompt, "<tool_call>")

	_, err := o.SendMessage(context.Background(), "hello")
	require.NoError(t, err)
	o.Clear()
	require.Equal(t, 1, o.Conversation().Len())
	require.Equal(t, prompt, o.Conversation().SystemPrompt())
}

func TestValidateHasNoSideEffects(t *testing.T) {
	model := &scripted{replies: []string{"ok"}}
	o, _ := newTestOrchestrator(t, model, credentials.Static{Key: "k"}, nil)

	require.ErrorIs(t, o.Validate(""), ErrEmptyPrompt)
	require.NoError(t, o.Validate("hello"))
	o.SetModel("")
	require.ErrorIs(t, o.Validate("hello"), ErrNoModel)
	require.Equal(t, 1, o.Conversation().Len())
	require.Equal(t, 0, model.callCount())
}
