package assistant

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	domain "github.com/example/workspace-chat/domain/chat"
	"github.com/example/workspace-chat/events"
	"github.com/example/workspace-chat/modules/chat"
)

// Delay window for delayed responses, modeling human-like latency.
const (
	minResponseDelay = 500 * time.Millisecond
	maxResponseDelay = 2500 * time.Millisecond
)

// contextWindowSize bounds how many recent messages feed the prompt.
const contextWindowSize = 10

// Responder turns trigger messages into injected assistant replies. Delayed
// tasks have no cancellation path: once scheduled they always run, and
// re-validate their target channel when they resume.
type Responder struct {
	chat  ChatPort
	gen   Generator
	delay func() time.Duration
	roll  func() float64
	wg    sync.WaitGroup
}

// NewResponder creates a responder over the given chat port and generator.
func NewResponder(port ChatPort, gen Generator) *Responder {
	return &Responder{
		chat: port,
		gen:  gen,
		delay: func() time.Duration {
			return minResponseDelay + time.Duration(rand.Int63n(int64(maxResponseDelay-minResponseDelay)))
		},
		roll: rand.Float64,
	}
}

// HandleMessage evaluates the decision function against the channel's state
// at decision time and, on a positive decision, schedules a delayed
// response.
func (r *Responder) HandleMessage(ctx context.Context, ev events.MessageSentEvent) {
	if ev.Message == nil {
		return
	}

	snapshot, err := r.chat.ChannelSnapshot(ctx, ev.WorkspaceID, ev.ChannelID)
	if err != nil {
		log.Printf("[assistant] Failed to read channel for decision: %v", err)
		return
	}
	if snapshot == nil {
		return
	}
	if !ShouldRespond(ev.Message, snapshot, r.roll) {
		return
	}

	delay := r.delay()
	log.Printf("[assistant] Responding to message %s in %v", ev.Message.ID, delay)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		time.Sleep(delay)
		r.respond(context.Background(), ev.WorkspaceID, ev.ChannelID, ev.Message)
	}()
}

// respond runs when the delay elapses: it reloads the channel's current
// state (which may have changed since the decision), aborts as a no-op if
// the channel is gone, and injects the generated reply through the ordinary
// coordinator path.
func (r *Responder) respond(ctx context.Context, workspaceID, channelID string, trigger *domain.Message) {
	snapshot, err := r.chat.ChannelSnapshot(ctx, workspaceID, channelID)
	if err != nil {
		log.Printf("[assistant] Failed to reload channel: %v", err)
		return
	}
	if snapshot == nil {
		log.Printf("[assistant] Channel %s gone before response, dropping", channelID)
		return
	}

	instruction := instructionFor(trigger.Text)
	prompt := buildPrompt(snapshot, trigger)

	text, err := r.gen.Generate(ctx, instruction, prompt)
	if err != nil {
		text = failureMessage(err)
	}

	r.post(ctx, workspaceID, channelID, text)
}

// Respond is the synchronous entry point for explicit ai-request prompts:
// no decision function and no delay, same generation and injection path.
// requester attributes the prompt to the asking user when known.
func (r *Responder) Respond(ctx context.Context, workspaceID, channelID, prompt, requester string) error {
	snapshot, err := r.chat.ChannelSnapshot(ctx, workspaceID, channelID)
	if err != nil {
		return err
	}
	if snapshot == nil {
		return nil
	}

	request := prompt
	if requester != "" {
		request = fmt.Sprintf("%s asks: %s", requester, prompt)
	}
	full := request
	if window := contextWindow(snapshot); window != "" {
		full = fmt.Sprintf("Recent conversation:\n%s\n\nRequest: %s", window, request)
	}

	text, err := r.gen.Generate(ctx, generalInstruction, full)
	if err != nil {
		text = failureMessage(err)
	}

	r.post(ctx, workspaceID, channelID, text)
	return nil
}

// Drain waits for in-flight delayed responses, up to the context deadline.
func (r *Responder) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Responder) post(ctx context.Context, workspaceID, channelID, text string) {
	if text == "" {
		return
	}
	_, err := r.chat.PostMessage(ctx, chat.PostMessageRequest{
		WorkspaceID: workspaceID,
		ChannelID:   channelID,
		Text:        text,
		Sender:      Name,
		SenderID:    SenderID,
		AvatarColor: AvatarColor,
		IsAI:        true,
	})
	if err != nil {
		log.Printf("[assistant] Failed to post response: %v", err)
	}
}

// Response strategy instructions, selected by scanning the trigger text.
const (
	helpInstruction      = "You are a helpful team assistant in a group chat. Give concrete, actionable help in a few sentences."
	sentimentInstruction = "You are a perceptive team assistant. Briefly describe the mood of the recent conversation and respond supportively."
	summaryInstruction   = "You are a team assistant. Summarize the recent conversation in a few short bullet points."
	topicInstruction     = "You are a team assistant. Suggest two or three relevant topics or next steps for this conversation."
	generalInstruction   = "You are a friendly participant in a team chat. Reply briefly and stay on topic."
)

func instructionFor(text string) string {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, "help", "assist", "support", "how do", "how to"):
		return helpInstruction
	case containsAny(lower, "sentiment", "mood", "feel", "feeling"):
		return sentimentInstruction
	case containsAny(lower, "summar", "recap", "tl;dr"):
		return summaryInstruction
	case containsAny(lower, "topic", "suggest", "idea", "what should we"):
		return topicInstruction
	default:
		return generalInstruction
	}
}

func containsAny(text string, tokens ...string) bool {
	for _, token := range tokens {
		if strings.Contains(text, token) {
			return true
		}
	}
	return false
}

// buildPrompt assembles the bounded context window plus the trigger message.
func buildPrompt(channel *domain.Channel, trigger *domain.Message) string {
	window := contextWindow(channel)
	if window == "" {
		return trigger.Text
	}
	return fmt.Sprintf("Recent conversation:\n%s\n\nRespond to the last message from %s: %s", window, trigger.Sender, trigger.Text)
}

func contextWindow(channel *domain.Channel) string {
	msgs := channel.Messages
	if len(msgs) > contextWindowSize {
		msgs = msgs[len(msgs)-contextWindowSize:]
	}
	lines := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		lines = append(lines, fmt.Sprintf("%s: %s", msg.Sender, msg.Text))
	}
	return strings.Join(lines, "\n")
}

// failureMessage converts a generation failure into a visible assistant
// message, categorized by known failure codes.
func failureMessage(err error) string {
	switch {
	case errors.Is(err, ErrQuotaExceeded):
		return "I can't respond right now: my usage quota is exhausted. Please check the plan and billing details."
	case errors.Is(err, ErrInvalidCredential):
		return "I can't respond right now: my API credential looks invalid. Please check the configured key."
	case errors.Is(err, ErrRateLimited):
		return "I'm being rate limited at the moment. Give me a few seconds and try again."
	default:
		return "Sorry, I ran into a problem generating a response. Please try again."
	}
}
