package prompt

import (
	"fmt"

	"careerbot/internal/models"
)

// Mode selects between the fixed-format feature prompts and free chat.
type Mode int

const (
	Structured Mode = iota
	Conversational
)

func (m Mode) String() string {
	if m == Conversational {
		return "conversational"
	}
	return "structured"
}

const (
	structuredWindow     = 6
	conversationalWindow = 10

	defaultMaxTokens        = 250
	conversationalMaxTokens = 250
	careerNamesMaxTokens    = 100

	DefaultStructuredTemperature     float32 = 0.7
	DefaultConversationalTemperature float32 = 0.8
)

// Request is everything one completion call needs.
type Request struct {
	Messages    []models.ChatMessage
	MaxTokens   int
	Temperature float32
}

// Assembler turns a feature, a user input and prior turns into a Request.
type Assembler struct {
	StructuredTemperature     float32
	ConversationalTemperature float32
}

// NewAssembler uses the default temperature for a nil argument. Zero is a valid temperature.
func NewAssembler(structuredTemp, conversationalTemp *float32) *Assembler {
	a := &Assembler{
		StructuredTemperature:     DefaultStructuredTemperature,
		ConversationalTemperature: DefaultConversationalTemperature,
	}
	if structuredTemp != nil {
		a.StructuredTemperature = *structuredTemp
	}
	if conversationalTemp != nil {
		a.ConversationalTemperature = *conversationalTemp
	}
	return a
}

// Build returns [system, windowed history, user turn]. history is not modified.
func (a *Assembler) Build(feature models.Feature, mode Mode, input string, history []models.Turn) Request {
	fp, known := featurePrompts[feature]

	var (
		system string
		user   = input
		window int
		req    Request
	)
	switch mode {
	case Conversational:
		system = conversationalSystem(feature)
		window = conversationalWindow
		req.MaxTokens = conversationalMaxTokens
		req.Temperature = a.ConversationalTemperature
	default:
		window = structuredWindow
		req.Temperature = a.StructuredTemperature
		if known {
			system = fp.system
			user = fmt.Sprintf(fp.template, input)
			req.MaxTokens = fp.maxTokens
		} else {
			system = genericStructuredSystem
			req.MaxTokens = defaultMaxTokens
		}
	}

	recent := windowTurns(history, window)
	req.Messages = make([]models.ChatMessage, 0, len(recent)+2)
	req.Messages = append(req.Messages, models.ChatMessage{Role: models.RoleSystem, Content: system})
	req.Messages = append(req.Messages, recent...)
	req.Messages = append(req.Messages, models.ChatMessage{Role: models.RoleUser, Content: user})
	return req
}

// BuildCareerNames asks for a bare comma separated list of careers matching interest.
func (a *Assembler) BuildCareerNames(interest string) Request {
	return Request{
		Messages: []models.ChatMessage{
			{Role: models.RoleSystem, Content: careerNamesSystem},
			{Role: models.RoleUser, Content: fmt.Sprintf(careerNamesTemplate, interest)},
		},
		MaxTokens:   careerNamesMaxTokens,
		Temperature: a.StructuredTemperature,
	}
}

// windowTurns keeps the last n turns, then drops anything that is not a user or assistant turn.
func windowTurns(history []models.Turn, n int) []models.ChatMessage {
	if len(history) > n {
		history = history[len(history)-n:]
	}
	out := make([]models.ChatMessage, 0, len(history))
	for _, turn := range history {
		if turn.Role != models.RoleUser && turn.Role != models.RoleAssistant {
			continue
		}
		out = append(out, models.ChatMessage{Role: turn.Role, Content: turn.Content})
	}
	return out
}
