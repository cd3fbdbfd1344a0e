package broadcast

import (
	"context"
	"fmt"
	"log"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/example/workspace-chat/events"
)

// BroadcastModule consumes chat events from the bus and fans them out to
// WebSocket clients: message/reply/reaction deltas to the channel's room,
// workspace/channel lifecycle to everyone.
type BroadcastModule struct {
	hub *Hub
}

// Compile-time interface checks.
var _ mono.Module = (*BroadcastModule)(nil)
var _ mono.EventConsumerModule = (*BroadcastModule)(nil)
var _ mono.HealthCheckableModule = (*BroadcastModule)(nil)

// NewModule creates a new BroadcastModule.
func NewModule() *BroadcastModule {
	return &BroadcastModule{
		hub: NewHub(),
	}
}

// Name returns the module name.
func (m *BroadcastModule) Name() string {
	return "broadcast"
}

// Hub returns the WebSocket session registry for the API module to use.
func (m *BroadcastModule) Hub() *Hub {
	return m.hub
}

// Start initializes the module.
func (m *BroadcastModule) Start(_ context.Context) error {
	log.Println("[broadcast] Module started - session registry ready")
	return nil
}

// Stop closes all client connections.
func (m *BroadcastModule) Stop(_ context.Context) error {
	clientCount := m.hub.ClientCount()
	m.hub.CloseAll()
	log.Printf("[broadcast] Module stopped - %d clients were connected", clientCount)
	return nil
}

// Health returns the health status.
func (m *BroadcastModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connected_clients": m.hub.ClientCount(),
		},
	}
}

// RegisterEventConsumers registers event handlers.
func (m *BroadcastModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.MessageSentV1, m.handleMessageSent, m,
	); err != nil {
		return fmt.Errorf("failed to register MessageSent consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.MessageChangedV1, m.handleMessageChanged, m,
	); err != nil {
		return fmt.Errorf("failed to register MessageChanged consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.ReplyChangedV1, m.handleReplyChanged, m,
	); err != nil {
		return fmt.Errorf("failed to register ReplyChanged consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.ReactionUpdatedV1, m.handleReactionUpdated, m,
	); err != nil {
		return fmt.Errorf("failed to register ReactionUpdated consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.TopologyChangedV1, m.handleTopologyChanged, m,
	); err != nil {
		return fmt.Errorf("failed to register TopologyChanged consumer: %w", err)
	}

	log.Println("[broadcast] Registered event consumers: MessageSent, MessageChanged, ReplyChanged, ReactionUpdated, TopologyChanged")
	return nil
}

func (m *BroadcastModule) handleMessageSent(_ context.Context, event events.MessageSentEvent, _ *mono.Msg) error {
	m.hub.BroadcastRoom(event.ChannelID, "chat-message", event)
	return nil
}

func (m *BroadcastModule) handleMessageChanged(_ context.Context, event events.MessageChangedEvent, _ *mono.Msg) error {
	frameType := "message-updated"
	if event.Action == events.ActionDeleted {
		frameType = "message-deleted"
	}
	m.hub.BroadcastRoom(event.ChannelID, frameType, event)
	return nil
}

func (m *BroadcastModule) handleReplyChanged(_ context.Context, event events.ReplyChangedEvent, _ *mono.Msg) error {
	var frameType string
	switch event.Action {
	case events.ActionAdded:
		frameType = "reply-added"
	case events.ActionUpdated:
		frameType = "reply-updated"
	case events.ActionDeleted:
		frameType = "reply-deleted"
	default:
		log.Printf("[broadcast] Unknown reply action: %s", event.Action)
		return nil
	}
	m.hub.BroadcastRoom(event.ChannelID, frameType, event)
	return nil
}

func (m *BroadcastModule) handleReactionUpdated(_ context.Context, event events.ReactionUpdatedEvent, _ *mono.Msg) error {
	m.hub.BroadcastRoom(event.ChannelID, "reaction-updated", event)
	return nil
}

func (m *BroadcastModule) handleTopologyChanged(_ context.Context, event events.TopologyChangedEvent, _ *mono.Msg) error {
	// Lifecycle changes go to every connected client regardless of room
	// membership, so sidebars stay current across workspaces.
	m.hub.BroadcastAll(event.Scope+"-"+event.Action, event)
	return nil
}
