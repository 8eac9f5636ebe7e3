// Package agent runs the model/tool loop: it sends the transcript to the
// completion endpoint, executes the tool a reply asks for, feeds the result
// back, and stops at a plain answer, an error, or the tool-call ceiling.
package agent

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"forge/internal/conversation"
	"forge/internal/credentials"
	"forge/internal/llm"
	"forge/internal/models"
	"forge/internal/tools"
)

const (
	DefaultMaxConsecutiveToolCalls = 10
	DefaultTemperature             = 0.7

	CeilingMessage   = "⚠️ Tool call recursion limit reached. Please provide a new request."
	ToolResultPrefix = "Tool result:\n"
	ErrorPrefix      = "Error: "

	sharedKeyHint = " (Using default API key - set your own key for unlimited usage)"
)

var (
	ErrEmptyPrompt       = errors.New("message is empty")
	ErrMissingCredential = errors.New("API key not set")
	ErrNoModel           = errors.New("no model selected")
	ErrBusy              = errors.New("a request is already in progress")
)

type State int

const (
	Idle State = iota
	AwaitingModelResponse
	ToolInvocationPending
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingModelResponse:
		return "awaiting model response"
	case ToolInvocationPending:
		return "tool invocation pending"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Observer receives tool progress. Calls happen on the goroutine running
// SendMessage.
type Observer interface {
	ToolStarted(name string, input map[string]any)
	ToolFinished(name string, input map[string]any, result tools.Result)
}

type Deps struct {
	Completer    llm.Completer
	Credentials  credentials.Provider
	Registry     *tools.Registry
	Conversation *conversation.Conversation
	Logger       *zap.Logger
	Observer     Observer
}

type Config struct {
	MaxConsecutiveToolCalls int
	Temperature             float64
	Model                   string
}

func DefaultConfig() Config {
	return Config{
		MaxConsecutiveToolCalls: DefaultMaxConsecutiveToolCalls,
		Temperature:             DefaultTemperature,
		Model:                   models.AvailableModels[0].ID,
	}
}

// Usage is the running token count reported by the endpoint.
type Usage struct {
	PromptTokens     int64
	CompletionTokens int64
}

type Orchestrator struct {
	completer llm.Completer
	creds     credentials.Provider
	registry  *tools.Registry
	conv      *conversation.Conversation
	log       *zap.Logger
	observer  Observer

	mu        sync.Mutex
	cfg       Config
	state     State
	busy      bool
	toolCalls int
	usage     Usage
}

func New(deps Deps, cfg Config) *Orchestrator {
	if cfg.MaxConsecutiveToolCalls <= 0 {
		cfg.MaxConsecutiveToolCalls = DefaultMaxConsecutiveToolCalls
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Registry == nil {
		deps.Registry = tools.NewRegistry()
	}
	if deps.Conversation == nil {
		deps.Conversation = conversation.New(BasePrompt(deps.Registry.Names()))
	}
	return &Orchestrator{
		completer: deps.Completer,
		creds:     deps.Credentials,
		registry:  deps.Registry,
		conv:      deps.Conversation,
		log:       deps.Logger.Named("agent"),
		observer:  deps.Observer,
		cfg:       cfg,
	}
}

// RegisterTools writes the registry's tool catalog into the system message.
func (o *Orchestrator) RegisterTools() {
	o.conv.SetSystemPrompt(SystemPrompt(o.registry.Names(), o.registry.Describe()))
}

// SetObserver replaces the tool progress observer.
func (o *Orchestrator) SetObserver(obs Observer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observer = obs
}

func (o *Orchestrator) Conversation() *conversation.Conversation {
	return o.conv
}

func (o *Orchestrator) SetModel(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cfg.Model = id
}

func (o *Orchestrator) Model() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cfg.Model
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Busy reports whether a turn is in flight.
func (o *Orchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.busy
}

// ToolCalls is the number of consecutive tool invocations in the current
// turn.
func (o *Orchestrator) ToolCalls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.toolCalls
}

func (o *Orchestrator) Usage() Usage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.usage
}

// Clear drops everything but the system message. A response still in
// flight appends to the cleared transcript and keeps its tool-call count,
// so clearing mid-turn cannot lift the ceiling.
func (o *Orchestrator) Clear() {
	o.conv.Clear()
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.busy {
		o.toolCalls = 0
		o.state = Idle
	}
}

// SendMessage runs one user turn to completion and returns the final
// assistant message. Validation failures return an error and leave the
// transcript untouched. Remote failures end the turn with an "Error:"
// assistant message and a nil error.
func (o *Orchestrator) SendMessage(ctx context.Context, text string) (models.Message, error) {
	cred, err := o.credential(text)
	if err != nil {
		return models.Message{}, err
	}

	o.mu.Lock()
	if err := o.readyLocked(); err != nil {
		o.mu.Unlock()
		return models.Message{}, err
	}
	cfg := o.cfg
	o.busy = true
	o.toolCalls = 0
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.busy = false
		o.mu.Unlock()
	}()

	log := o.log.With(zap.String("model", cfg.Model))
	log.Info("turn started", zap.Int("transcript_len", o.conv.Len()+1))
	o.conv.Append(models.RoleUser, text)

	for {
		if o.ToolCalls() >= cfg.MaxConsecutiveToolCalls {
			log.Warn("tool call ceiling reached", zap.Int("ceiling", cfg.MaxConsecutiveToolCalls))
			msg := o.conv.Append(models.RoleAssistant, CeilingMessage)
			o.finish(Idle)
			return msg, nil
		}

		o.setState(AwaitingModelResponse)
		completion, err := o.completer.Complete(ctx, llm.Request{
			Model:       cfg.Model,
			Messages:    o.conv.Snapshot(),
			Temperature: cfg.Temperature,
			APIKey:      cred.Key,
		})
		if err != nil {
			log.Error("completion failed", zap.Error(err))
			msg := o.conv.Append(models.RoleAssistant, ErrorPrefix+remoteMessage(err, cred.Shared))
			o.finish(Failed)
			return msg, nil
		}
		o.addUsage(completion)

		inv, isTool := Interpret(completion.Content).(ToolInvocation)
		if isTool {
			if _, known := o.registry.Lookup(inv.Name); !known {
				log.Debug("unknown tool requested", zap.String("tool", inv.Name))
				isTool = false
			}
		}
		if !isTool {
			msg := o.conv.Append(models.RoleAssistant, completion.Content)
			o.finish(Idle)
			log.Info("turn finished", zap.Int("transcript_len", o.conv.Len()))
			return msg, nil
		}

		o.conv.Append(models.RoleAssistant, completion.Content)
		o.setState(ToolInvocationPending)
		result := o.invoke(ctx, inv)
		log.Debug("tool finished",
			zap.String("tool", inv.Name),
			zap.Bool("ok", result.OK),
		)
		o.conv.Append(models.RoleUser, ToolResultPrefix+result.String())

		o.mu.Lock()
		o.toolCalls++
		o.mu.Unlock()
	}
}

// Validate reports the error SendMessage would reject text with, without
// touching the transcript.
func (o *Orchestrator) Validate(text string) error {
	if _, err := o.credential(text); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.readyLocked()
}

func (o *Orchestrator) credential(text string) (credentials.Credential, error) {
	if strings.TrimSpace(text) == "" {
		return credentials.Credential{}, ErrEmptyPrompt
	}
	if o.creds == nil {
		return credentials.Credential{}, ErrMissingCredential
	}
	cred, ok := o.creds.Active()
	if !ok {
		return credentials.Credential{}, ErrMissingCredential
	}
	return cred, nil
}

func (o *Orchestrator) readyLocked() error {
	if o.busy {
		return ErrBusy
	}
	if o.cfg.Model == "" {
		return ErrNoModel
	}
	return nil
}

func (o *Orchestrator) invoke(ctx context.Context, inv ToolInvocation) tools.Result {
	o.mu.Lock()
	obs := o.observer
	o.mu.Unlock()

	if obs != nil {
		obs.ToolStarted(inv.Name, inv.Input)
	}
	result, _ := o.registry.Invoke(ctx, inv.Name, inv.Input)
	if obs != nil {
		obs.ToolFinished(inv.Name, inv.Input, result)
	}
	return result
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = s
}

// finish ends the turn and resets the tool-call counter.
func (o *Orchestrator) finish(s State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = s
	o.toolCalls = 0
}

func (o *Orchestrator) addUsage(c llm.Completion) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.usage.PromptTokens += c.PromptTokens
	o.usage.CompletionTokens += c.CompletionTokens
}

func remoteMessage(err error, shared bool) string {
	msg := err.Error()
	var apiErr *llm.APIError
	if errors.As(err, &apiErr) {
		msg = apiErr.Message
	}
	if shared {
		lower := strings.ToLower(msg)
		if strings.Contains(lower, "rate limit") || strings.Contains(lower, "quota") {
			msg += sharedKeyHint
		}
	}
	return msg
}
