package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	domain "github.com/example/workspace-chat/domain/chat"
	"github.com/example/workspace-chat/events"
)

// Module hosts the mutation coordinator and exposes it on the event bus and
// the service container.
type Module struct {
	coordinator *Coordinator
	store       DocumentStore
	bus         mono.EventBus
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
)

// NewModule creates a new chat module. The document store is injected from
// main.go before the application starts.
func NewModule() *Module {
	return &Module{}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "chat"
}

// SetDocumentStore injects the document store handle.
func (m *Module) SetDocumentStore(store DocumentStore) {
	m.store = store
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.bus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.MessageSentV1.ToBase(),
		events.MessageChangedV1.ToBase(),
		events.ReplyChangedV1.ToBase(),
		events.ReactionUpdatedV1.ToBase(),
		events.TopologyChangedV1.ToBase(),
	}
}

// Coordinator returns the mutation coordinator. Valid after Start.
func (m *Module) Coordinator() *Coordinator {
	return m.coordinator
}

// Start wires the coordinator to the store and the bus.
func (m *Module) Start(_ context.Context) error {
	if m.store == nil {
		return fmt.Errorf("document store dependency not set")
	}
	m.coordinator = NewCoordinator(m.store, &busPublisher{bus: m.bus})
	log.Println("[chat] Module started")
	return nil
}

// Stop gracefully shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	log.Println("[chat] Module stopped")
	return nil
}

// RegisterServices registers request-reply services used by the assistant
// module: posting a message through the coordinator path and reading a
// channel snapshot.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "post-message", json.Unmarshal, json.Marshal, m.postMessage,
	); err != nil {
		return fmt.Errorf("failed to register post-message service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "channel-snapshot", json.Unmarshal, json.Marshal, m.channelSnapshot,
	); err != nil {
		return fmt.Errorf("failed to register channel-snapshot service: %w", err)
	}

	log.Printf("[chat] Registered services: services.chat.{post-message,channel-snapshot}")
	return nil
}

// PostMessageRequest is the request for the post-message service.
type PostMessageRequest struct {
	WorkspaceID string `json:"workspaceId"`
	ChannelID   string `json:"channelId"`
	Text        string `json:"text"`
	Sender      string `json:"sender"`
	SenderID    string `json:"senderId"`
	AvatarColor string `json:"avatarColor,omitempty"`
	IsAI        bool   `json:"isAI,omitempty"`
}

// PostMessageResponse is the response for the post-message service. Message
// is nil when the target workspace or channel no longer exists.
type PostMessageResponse struct {
	Message *domain.Message `json:"message,omitempty"`
}

// ChannelSnapshotRequest is the request for the channel-snapshot service.
type ChannelSnapshotRequest struct {
	WorkspaceID string `json:"workspaceId"`
	ChannelID   string `json:"channelId"`
}

// ChannelSnapshotResponse is the response for the channel-snapshot service.
// Channel is nil when the target no longer exists.
type ChannelSnapshotResponse struct {
	Channel *domain.Channel `json:"channel,omitempty"`
}

func (m *Module) postMessage(ctx context.Context, req PostMessageRequest, _ *mono.Msg) (PostMessageResponse, error) {
	if m.coordinator == nil {
		return PostMessageResponse{}, fmt.Errorf("chat module not started")
	}
	msg, err := m.coordinator.SendMessage(ctx, SendMessageInput{
		WorkspaceID: req.WorkspaceID,
		ChannelID:   req.ChannelID,
		Text:        req.Text,
		Username:    req.Sender,
		UserID:      req.SenderID,
		AvatarColor: req.AvatarColor,
		IsAI:        req.IsAI,
	})
	if err != nil {
		return PostMessageResponse{}, err
	}
	return PostMessageResponse{Message: msg}, nil
}

func (m *Module) channelSnapshot(ctx context.Context, req ChannelSnapshotRequest, _ *mono.Msg) (ChannelSnapshotResponse, error) {
	if m.coordinator == nil {
		return ChannelSnapshotResponse{}, fmt.Errorf("chat module not started")
	}
	ch, err := m.coordinator.ChannelSnapshot(ctx, req.WorkspaceID, req.ChannelID)
	if err != nil {
		return ChannelSnapshotResponse{}, err
	}
	return ChannelSnapshotResponse{Channel: ch}, nil
}

// busPublisher forwards coordinator deltas onto the event bus. Publish
// failures are logged, not propagated: the mutation already persisted.
type busPublisher struct {
	bus mono.EventBus
}

var _ EventPublisher = (*busPublisher)(nil)

func (p *busPublisher) MessageSent(ev events.MessageSentEvent) {
	if err := events.MessageSentV1.Publish(p.bus, ev, nil); err != nil {
		slog.Warn("Failed to publish MessageSent event", "error", err)
	}
}

func (p *busPublisher) MessageChanged(ev events.MessageChangedEvent) {
	if err := events.MessageChangedV1.Publish(p.bus, ev, nil); err != nil {
		slog.Warn("Failed to publish MessageChanged event", "error", err)
	}
}

func (p *busPublisher) ReplyChanged(ev events.ReplyChangedEvent) {
	if err := events.ReplyChangedV1.Publish(p.bus, ev, nil); err != nil {
		slog.Warn("Failed to publish ReplyChanged event", "error", err)
	}
}

func (p *busPublisher) ReactionUpdated(ev events.ReactionUpdatedEvent) {
	if err := events.ReactionUpdatedV1.Publish(p.bus, ev, nil); err != nil {
		slog.Warn("Failed to publish ReactionUpdated event", "error", err)
	}
}

func (p *busPublisher) TopologyChanged(ev events.TopologyChangedEvent) {
	if err := events.TopologyChangedV1.Publish(p.bus, ev, nil); err != nil {
		slog.Warn("Failed to publish TopologyChanged event", "error", err)
	}
}
