package agent

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

// Response is what the model's reply means to the orchestrator: either a
// PlainAnswer or a ToolInvocation.
type Response interface {
	isResponse()
}

type PlainAnswer struct {
	Text string
}

// ToolInvocation is a parsed <tool_call> directive. Preceding is the text the
// model wrote before the directive; Raw is the full reply.
type ToolInvocation struct {
	Name      string
	Input     map[string]any
	Preceding string
	Raw       string
}

func (PlainAnswer) isResponse()    {}
func (ToolInvocation) isResponse() {}

var toolCallPattern = regexp.MustCompile(`(?s)<tool_call>(.*?)</tool_call>`)

// Interpret extracts the first tool directive in text. Anything that does not
// parse as {"name": string, "input": object} is a plain answer.
func Interpret(text string) Response {
	loc := toolCallPattern.FindStringSubmatchIndex(text)
	if loc == nil {
		return PlainAnswer{Text: text}
	}

	var directive struct {
		Name  string          `json:"name"`
		Input json.RawMessage `json:"input"`
	}
	if err := json.Unmarshal([]byte(text[loc[2]:loc[3]]), &directive); err != nil {
		return PlainAnswer{Text: text}
	}
	name := strings.TrimSpace(directive.Name)
	if name == "" {
		return PlainAnswer{Text: text}
	}

	input := map[string]any{}
	raw := bytes.TrimSpace(directive.Input)
	if len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		if err := json.Unmarshal(raw, &input); err != nil {
			return PlainAnswer{Text: text}
		}
		if input == nil {
			input = map[string]any{}
		}
	}

	return ToolInvocation{
		Name:      name,
		Input:     input,
		Preceding: strings.TrimSpace(text[:loc[0]]),
		Raw:       text,
	}
}
