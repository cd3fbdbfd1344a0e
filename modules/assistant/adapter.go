package assistant

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	domain "github.com/example/workspace-chat/domain/chat"
	"github.com/example/workspace-chat/modules/chat"
)

// ChatPort is the slice of the chat module the assistant needs: posting a
// message through the ordinary coordinator path and reading a channel's
// current state.
type ChatPort interface {
	PostMessage(ctx context.Context, req chat.PostMessageRequest) (*domain.Message, error)
	ChannelSnapshot(ctx context.Context, workspaceID, channelID string) (*domain.Channel, error)
}

// chatAdapter implements ChatPort over the chat module's service container.
type chatAdapter struct {
	container mono.ServiceContainer
}

// NewChatAdapter creates a ChatPort backed by request-reply services.
func NewChatAdapter(container mono.ServiceContainer) ChatPort {
	if container == nil {
		panic("assistant: ServiceContainer is nil")
	}
	return &chatAdapter{container: container}
}

// PostMessage appends a message to a channel via the coordinator. A nil
// message means the target workspace or channel no longer exists.
func (a *chatAdapter) PostMessage(ctx context.Context, req chat.PostMessageRequest) (*domain.Message, error) {
	var resp chat.PostMessageResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"post-message",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("failed to post message: %w", err)
	}
	return resp.Message, nil
}

// ChannelSnapshot reads a channel's current state. A nil channel means the
// target no longer exists.
func (a *chatAdapter) ChannelSnapshot(ctx context.Context, workspaceID, channelID string) (*domain.Channel, error) {
	req := chat.ChannelSnapshotRequest{WorkspaceID: workspaceID, ChannelID: channelID}
	var resp chat.ChannelSnapshotResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"channel-snapshot",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("failed to get channel snapshot: %w", err)
	}
	return resp.Channel, nil
}
