package assistant

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/example/workspace-chat/events"
)

// drainTimeout bounds how long Stop waits for in-flight delayed responses.
const drainTimeout = 10 * time.Second

// Module is the assistant response pipeline: it consumes new-message events,
// decides whether to respond, and injects replies through the chat module's
// services.
type Module struct {
	responder *Responder
	port      ChatPort
	gen       Generator
}

// Compile-time interface checks.
var (
	_ mono.Module              = (*Module)(nil)
	_ mono.DependentModule     = (*Module)(nil)
	_ mono.EventConsumerModule = (*Module)(nil)
)

// NewModule creates a new assistant module.
func NewModule() *Module {
	return &Module{
		gen: NewHTTPGenerator(),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "assistant"
}

// Dependencies returns the list of module dependencies.
func (m *Module) Dependencies() []string {
	return []string{"chat"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *Module) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	if dependency == "chat" {
		m.port = NewChatAdapter(container)
	}
}

// RegisterEventConsumers subscribes to new top-level messages.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.MessageSentV1, m.handleMessageSent, m,
	); err != nil {
		return fmt.Errorf("failed to register MessageSent consumer: %w", err)
	}

	log.Println("[assistant] Registered event consumers: MessageSent")
	return nil
}

func (m *Module) handleMessageSent(ctx context.Context, event events.MessageSentEvent, _ *mono.Msg) error {
	if m.responder != nil {
		m.responder.HandleMessage(ctx, event)
	}
	return nil
}

// Respond handles an explicit ai-request: generate and inject without the
// decision function or the randomized delay.
func (m *Module) Respond(ctx context.Context, workspaceID, channelID, prompt, requester string) error {
	if m.responder == nil {
		return fmt.Errorf("assistant module not started")
	}
	return m.responder.Respond(ctx, workspaceID, channelID, prompt, requester)
}

// Start wires the responder.
func (m *Module) Start(_ context.Context) error {
	if m.port == nil {
		return fmt.Errorf("chat dependency not set")
	}
	m.responder = NewResponder(m.port, m.gen)
	log.Println("[assistant] Module started")
	return nil
}

// Stop waits for in-flight delayed responses before shutting down.
func (m *Module) Stop(ctx context.Context) error {
	if m.responder == nil {
		return nil
	}

	drainCtx, cancel := context.WithTimeout(ctx, drainTimeout)
	defer cancel()

	if err := m.responder.Drain(drainCtx); err != nil {
		log.Printf("[assistant] Timeout waiting for delayed responses: %v", err)
	}
	log.Println("[assistant] Module stopped")
	return nil
}
