package models

import "time"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn in a conversation. Tool results travel back to the
// model as user-role messages.
type Message struct {
	ID        string
	Role      string
	Content   string
	Timestamp time.Time
}

type AIModel struct {
	ID          string
	Name        string
	Provider    string
	Description string
}

// AvailableModels is the selectable catalog; the first entry is the default.
var AvailableModels = []AIModel{
	{ID: "llama3-70b-8192", Name: "Llama 3 70B", Provider: "Groq", Description: "General purpose chat model"},
	{ID: "meta-llama/llama-4-maverick-17b-128e-instruct", Name: "Llama 4 Maverick 17B-128E", Provider: "Groq", Description: "Mixture-of-experts instruct model"},
	{ID: "meta-llama/llama-4-scout-17b-16e-instruct", Name: "Llama 4 Scout 17B-16E", Provider: "Groq", Description: "Smaller mixture-of-experts model"},
	{ID: "mistral-saba-24b", Name: "Mistral Saba 24B", Provider: "Groq", Description: "Multilingual model"},
	{ID: "deepseek-r1-distill-llama-70b", Name: "DeepSeek R1 Distill 70B", Provider: "Groq", Description: "Reasoning model"},
}

func FindModelByID(id string) (AIModel, int, bool) {
	for i, mdl := range AvailableModels {
		if mdl.ID == id {
			return mdl, i, true
		}
	}
	return AIModel{}, 0, false
}

// ChatListItem is one row of the history panel.
type ChatListItem struct {
	ID        int64
	Title     string
	ModelID   string
	UpdatedAt time.Time
}

// ToolAction represents a completed tool action for display
type ToolAction struct {
	Name    string
	Summary string
	Failed  bool
}
