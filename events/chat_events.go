package events

import (
	"github.com/go-monolith/mono/pkg/helper"

	domain "github.com/example/workspace-chat/domain/chat"
)

// Actions carried by change events.
const (
	ActionCreated = "created"
	ActionAdded   = "added"
	ActionUpdated = "updated"
	ActionRenamed = "renamed"
	ActionDeleted = "deleted"
)

// Scopes for topology events.
const (
	ScopeWorkspace = "workspace"
	ScopeChannel   = "channel"
)

// MessageSentEvent is emitted when a new top-level message lands in a channel.
// Both human messages and injected assistant messages flow through it.
type MessageSentEvent struct {
	WorkspaceID string          `json:"workspaceId"`
	ChannelID   string          `json:"channelId"`
	Message     *domain.Message `json:"message"`
}

// MessageChangedEvent is emitted when a top-level message is edited or removed.
type MessageChangedEvent struct {
	Action      string `json:"action"` // "updated" or "deleted"
	WorkspaceID string `json:"workspaceId"`
	ChannelID   string `json:"channelId"`
	MessageID   string `json:"messageId"`
	NewText     string `json:"newText,omitempty"`
	Time        string `json:"time,omitempty"`
}

// ReplyChangedEvent is emitted when a reply is added, edited, or removed at
// any depth of a message tree.
type ReplyChangedEvent struct {
	Action      string          `json:"action"` // "added", "updated", or "deleted"
	WorkspaceID string          `json:"workspaceId"`
	ChannelID   string          `json:"channelId"`
	ParentID    string          `json:"parentId,omitempty"`
	ReplyID     string          `json:"replyId,omitempty"`
	Reply       *domain.Message `json:"reply,omitempty"`
	NewText     string          `json:"newText,omitempty"`
	Time        string          `json:"time,omitempty"`
}

// ReactionUpdatedEvent carries the full post-mutation reaction collection of
// one message after a toggle.
type ReactionUpdatedEvent struct {
	WorkspaceID string                 `json:"workspaceId"`
	ChannelID   string                 `json:"channelId"`
	MessageID   string                 `json:"messageId"`
	Reactions   []domain.ReactionGroup `json:"reactions"`
}

// TopologyChangedEvent is emitted on workspace/channel lifecycle changes.
// These are broadcast to every connected client regardless of room membership.
type TopologyChangedEvent struct {
	Scope       string            `json:"scope"`  // "workspace" or "channel"
	Action      string            `json:"action"` // "created", "renamed", or "deleted"
	WorkspaceID string            `json:"workspaceId"`
	ChannelID   string            `json:"channelId,omitempty"`
	NewName     string            `json:"newName,omitempty"`
	Workspace   *domain.Workspace `json:"workspace,omitempty"`
	Channel     *domain.Channel   `json:"channel,omitempty"`
}

// Event definitions for the chat domain.
var (
	MessageSentV1 = helper.EventDefinition[MessageSentEvent](
		"chat",
		"MessageSent",
		"v1",
	)

	MessageChangedV1 = helper.EventDefinition[MessageChangedEvent](
		"chat",
		"MessageChanged",
		"v1",
	)

	ReplyChangedV1 = helper.EventDefinition[ReplyChangedEvent](
		"chat",
		"ReplyChanged",
		"v1",
	)

	ReactionUpdatedV1 = helper.EventDefinition[ReactionUpdatedEvent](
		"chat",
		"ReactionUpdated",
		"v1",
	)

	TopologyChangedV1 = helper.EventDefinition[TopologyChangedEvent](
		"chat",
		"TopologyChanged",
		"v1",
	)
)
