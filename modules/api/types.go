package api

import "encoding/json"

// WebSocketMessage is the inbound envelope: an event type plus its payload.
type WebSocketMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// UserInfoPayload identifies the connection for presence.
type UserInfoPayload struct {
	Username    string `json:"username"`
	AvatarColor string `json:"avatarColor"`
}

// JoinChannelPayload subscribes the connection to a channel room.
type JoinChannelPayload struct {
	WorkspaceID string `json:"workspaceId"`
	ChannelID   string `json:"channelId"`
}

// LeaveChannelPayload unsubscribes the connection from a channel room.
type LeaveChannelPayload struct {
	ChannelID string `json:"channelId"`
}

// ChatMessagePayload carries a new top-level message.
type ChatMessagePayload struct {
	WorkspaceID string `json:"workspaceId"`
	ChannelID   string `json:"channel"`
	Msg         string `json:"msg"`
	Username    string `json:"username"`
	AvatarColor string `json:"avatarColor"`
	UserID      string `json:"userId"`
	FileURL     string `json:"fileUrl,omitempty"`
	FileName    string `json:"fileName,omitempty"`
}

// AIRequestPayload asks the assistant for a direct reply to a prompt.
type AIRequestPayload struct {
	WorkspaceID string `json:"workspaceId"`
	ChannelID   string `json:"channelId"`
	Prompt      string `json:"prompt"`
	Username    string `json:"username"`
	UserID      string `json:"userId"`
}

// DeleteMessagePayload removes a top-level message.
type DeleteMessagePayload struct {
	WorkspaceID string `json:"workspaceId"`
	ChannelID   string `json:"channel"`
	MessageID   string `json:"messageId"`
	Username    string `json:"username"`
}

// EditMessagePayload edits a top-level message.
type EditMessagePayload struct {
	WorkspaceID string `json:"workspaceId"`
	ChannelID   string `json:"channel"`
	MessageID   string `json:"messageId"`
	NewText     string `json:"newText"`
	Username    string `json:"username"`
}

// ReplyPayload is the client-supplied body of a new reply.
type ReplyPayload struct {
	Text        string `json:"text"`
	Sender      string `json:"sender"`
	SenderID    string `json:"senderId"`
	AvatarColor string `json:"avatarColor,omitempty"`
	FileURL     string `json:"fileUrl,omitempty"`
	FileName    string `json:"fileName,omitempty"`
}

// AddReplyPayload attaches a reply to a parent at any depth.
type AddReplyPayload struct {
	WorkspaceID string       `json:"workspaceId"`
	ChannelID   string       `json:"channelId"`
	ParentID    string       `json:"parentId"`
	Reply       ReplyPayload `json:"reply"`
}

// UpdateReplyPayload edits a reply node.
type UpdateReplyPayload struct {
	WorkspaceID string `json:"workspaceId"`
	ChannelID   string `json:"channelId"`
	ReplyID     string `json:"replyId"`
	NewText     string `json:"newText"`
	Username    string `json:"username"`
}

// DeleteReplyPayload removes a reply node.
type DeleteReplyPayload struct {
	WorkspaceID string `json:"workspaceId"`
	ChannelID   string `json:"channelId"`
	ReplyID     string `json:"replyId"`
	Username    string `json:"username"`
}

// UpdateReactionPayload toggles one user's reaction on a message.
type UpdateReactionPayload struct {
	WorkspaceID string `json:"workspaceId"`
	ChannelID   string `json:"channelId"`
	MessageID   string `json:"messageId"`
	UserID      string `json:"userId"`
	Emoji       string `json:"emoji"`
}

// CreateWorkspacePayload creates a workspace.
type CreateWorkspacePayload struct {
	Name      string `json:"name"`
	CreatedBy string `json:"createdBy"`
	UserID    string `json:"userId"`
}

// CreateChannelPayload creates a channel inside a workspace.
type CreateChannelPayload struct {
	WorkspaceID string `json:"workspaceId"`
	Name        string `json:"name"`
	CreatedBy   string `json:"createdBy"`
	UserID      string `json:"userId"`
}

// DeleteWorkspacePayload removes a workspace.
type DeleteWorkspacePayload struct {
	WorkspaceID string `json:"workspaceId"`
	Username    string `json:"username"`
}

// DeleteChannelPayload removes a channel.
type DeleteChannelPayload struct {
	WorkspaceID string `json:"workspaceId"`
	ChannelID   string `json:"channelId"`
	Username    string `json:"username"`
}

// RenameWorkspacePayload renames a workspace.
type RenameWorkspacePayload struct {
	WorkspaceID string `json:"workspaceId"`
	NewName     string `json:"newName"`
	Username    string `json:"username"`
}

// RenameChannelPayload renames a channel.
type RenameChannelPayload struct {
	WorkspaceID string `json:"workspaceId"`
	ChannelID   string `json:"channelId"`
	NewName     string `json:"newName"`
	Username    string `json:"username"`
}

// ErrorPayload is a targeted error event sent to the requester only.
type ErrorPayload struct {
	Message string `json:"message"`
}

// UploadResponse is returned by the upload boundary endpoint.
type UploadResponse struct {
	FileURL      string `json:"fileUrl"`
	OriginalName string `json:"originalName"`
}

// ErrorResponse is the HTTP API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is the API health check response.
type HealthResponse struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}
