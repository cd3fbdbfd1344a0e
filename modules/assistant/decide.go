package assistant

import (
	"strings"

	domain "github.com/example/workspace-chat/domain/chat"
)

// Assistant identity. Every injected message carries these fields.
const (
	Name        = "AI Assistant"
	SenderID    = "ai-assistant"
	AvatarColor = "#7c3aed"
)

// Response probabilities for the heuristic rules.
const (
	questionProbability = 0.8
	openerProbability   = 0.4
)

var mentionTokens = []string{"@ai", "ai assistant", "🤖"}

var helpTokens = []string{"help", "assist", "support"}

var questionWords = map[string]bool{
	"what": true, "how": true, "why": true, "when": true, "where": true,
	"who": true, "which": true, "can": true, "could": true, "would": true,
	"should": true, "is": true, "are": true, "do": true, "does": true,
}

var openerTokens = []string{
	"hello", "hi", "hey", "thanks", "thank you",
	"good morning", "good evening", "bye",
}

// ShouldRespond decides whether the assistant reacts to a new message. Rules
// are evaluated in priority order over the lower-cased text; roll supplies
// uniform [0,1) values for the probabilistic rules. The assistant never
// responds to its own messages.
func ShouldRespond(msg *domain.Message, channel *domain.Channel, roll func() float64) bool {
	if msg.IsAI || msg.Sender == Name {
		return false
	}

	text := strings.ToLower(msg.Text)

	for _, token := range mentionTokens {
		if strings.Contains(text, token) {
			return true
		}
	}

	for _, token := range helpTokens {
		if strings.Contains(text, token) {
			return true
		}
	}

	if isQuestion(text) {
		return roll() < questionProbability
	}

	// A channel with at most one message is effectively empty: welcome the
	// sender.
	if len(channel.Messages) <= 1 {
		return true
	}

	for _, token := range openerTokens {
		if strings.Contains(text, token) {
			return roll() < openerProbability
		}
	}

	return false
}

func isQuestion(text string) bool {
	if strings.Contains(text, "?") {
		return true
	}
	for _, word := range strings.Fields(text) {
		if questionWords[strings.Trim(word, ".,!:;")] {
			return true
		}
	}
	return false
}
