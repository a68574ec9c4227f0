package mcp

import "fmt"

// Prompt is a reusable message template offered to clients.
type Prompt struct {
	Name        string           `json:"name"`
	Title       string           `json:"title,omitempty"`
	Description string           `json:"description,omitempty"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`

	// Render builds the prompt messages from validated arguments.
	Render func(args map[string]string) []PromptMessage `json:"-"`
}

// PromptArgument describes one prompt argument.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// PromptMessage is one message of a rendered prompt.
type PromptMessage struct {
	Role    string        `json:"role"`
	Content PromptContent `json:"content"`
}

// PromptContent is the text body of a prompt message.
type PromptContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ReviewCodePrompt asks the model to review a snippet of code.
func ReviewCodePrompt() Prompt {
	return Prompt{
		Name:        "review-code",
		Title:       "Code Review",
		Description: "Review code for best practices and potential issues",
		Arguments: []PromptArgument{
			{Name: "code", Description: "The code to review", Required: true},
		},
		Render: func(args map[string]string) []PromptMessage {
			return []PromptMessage{{
				Role: "user",
				Content: PromptContent{
					Type: "text",
					Text: "Please review this code:\n\n" + args["code"],
				},
			}}
		},
	}
}

// render checks required arguments and renders p.
func (p Prompt) render(args map[string]string) ([]PromptMessage, error) {
	for _, arg := range p.Arguments {
		if _, ok := args[arg.Name]; arg.Required && !ok {
			return nil, fmt.Errorf("missing required argument %q", arg.Name)
		}
	}
	if p.Render == nil {
		return []PromptMessage{}, nil
	}
	return p.Render(args), nil
}
