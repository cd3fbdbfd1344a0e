package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"path/filepath"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/workspace-chat/modules/chat"
)

// maxUploadSize caps the upload boundary endpoint.
const maxUploadSize int64 = 25 * 1024 * 1024

// handleWebSocket runs the per-connection event loop. The loop only reads;
// every write to the connection goes through the hub, which serializes
// writers per client.
func (m *APIModule) handleWebSocket(c *websocket.Conn) {
	clientID := uuid.New().String()
	m.hub.Register(clientID, c)

	defer func() {
		m.hub.Unregister(clientID)
		c.Close()
	}()

	slog.Info("WebSocket connected", "clientID", clientID)

	// Every connection starts with the full workspace collection.
	m.sendInit(clientID)

	for {
		_, msgBytes, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket error", "clientID", clientID, "error", err)
			}
			break
		}

		var msg WebSocketMessage
		if err := json.Unmarshal(msgBytes, &msg); err != nil {
			m.sendError(clientID, "Invalid message format")
			continue
		}

		m.handleMessage(clientID, msg)
	}

	slog.Info("WebSocket disconnected", "clientID", clientID)
}

// handleMessage dispatches one inbound event.
func (m *APIModule) handleMessage(clientID string, msg WebSocketMessage) {
	switch msg.Type {
	case "user-info":
		m.handleUserInfo(clientID, msg.Payload)
	case "join-channel":
		m.handleJoinChannel(clientID, msg.Payload)
	case "leave-channel":
		m.handleLeaveChannel(clientID, msg.Payload)
	case "chat-message":
		m.handleChatMessage(clientID, msg.Payload)
	case "ai-request":
		m.handleAIRequest(clientID, msg.Payload)
	case "edit-message":
		m.handleEditMessage(clientID, msg.Payload)
	case "delete-message":
		m.handleDeleteMessage(clientID, msg.Payload)
	case "add-reply":
		m.handleAddReply(clientID, msg.Payload)
	case "update-reply":
		m.handleUpdateReply(clientID, msg.Payload)
	case "delete-reply":
		m.handleDeleteReply(clientID, msg.Payload)
	case "update-reaction":
		m.handleUpdateReaction(clientID, msg.Payload)
	case "get-workspaces":
		m.sendInit(clientID)
	case "create-workspace":
		m.handleCreateWorkspace(clientID, msg.Payload)
	case "create-channel":
		m.handleCreateChannel(clientID, msg.Payload)
	case "rename-workspace":
		m.handleRenameWorkspace(clientID, msg.Payload)
	case "rename-channel":
		m.handleRenameChannel(clientID, msg.Payload)
	case "delete-workspace":
		m.handleDeleteWorkspace(clientID, msg.Payload)
	case "delete-channel":
		m.handleDeleteChannel(clientID, msg.Payload)
	default:
		m.sendError(clientID, "Unknown message type: "+msg.Type)
	}
}

func (m *APIModule) handleUserInfo(clientID string, payload json.RawMessage) {
	var req UserInfoPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		m.sendError(clientID, "Invalid user-info payload")
		return
	}
	m.hub.Identify(clientID, req.Username, req.AvatarColor)
}

func (m *APIModule) handleJoinChannel(clientID string, payload json.RawMessage) {
	var req JoinChannelPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		m.sendError(clientID, "Invalid join-channel payload")
		return
	}
	if req.ChannelID == "" {
		m.sendError(clientID, "channelId is required")
		return
	}
	m.hub.JoinRoom(clientID, req.ChannelID)
}

func (m *APIModule) handleLeaveChannel(clientID string, payload json.RawMessage) {
	var req LeaveChannelPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		m.sendError(clientID, "Invalid leave-channel payload")
		return
	}
	m.hub.LeaveRoom(clientID, req.ChannelID)
}

func (m *APIModule) handleChatMessage(clientID string, payload json.RawMessage) {
	var req ChatMessagePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		m.sendError(clientID, "Invalid chat-message payload")
		return
	}

	_, err := m.chat.Coordinator().SendMessage(context.Background(), chat.SendMessageInput{
		WorkspaceID: req.WorkspaceID,
		ChannelID:   req.ChannelID,
		Text:        req.Msg,
		Username:    req.Username,
		UserID:      req.UserID,
		AvatarColor: req.AvatarColor,
		FileURL:     req.FileURL,
		FileName:    req.FileName,
	})
	m.reportError(clientID, err)
}

func (m *APIModule) handleAIRequest(clientID string, payload json.RawMessage) {
	var req AIRequestPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		m.sendError(clientID, "Invalid ai-request payload")
		return
	}

	slog.Info("ai-request received", "user", req.Username, "userId", req.UserID, "channelId", req.ChannelID)

	// Generation can take a while; run it off the read loop so the
	// connection stays responsive.
	go func() {
		if err := m.assistant.Respond(context.Background(), req.WorkspaceID, req.ChannelID, req.Prompt, req.Username); err != nil {
			slog.Error("ai-request failed", "user", req.Username, "userId", req.UserID, "error", err)
		}
	}()
}

func (m *APIModule) handleEditMessage(clientID string, payload json.RawMessage) {
	var req EditMessagePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		m.sendError(clientID, "Invalid edit-message payload")
		return
	}
	err := m.chat.Coordinator().EditMessage(context.Background(), req.WorkspaceID, req.ChannelID, req.MessageID, req.NewText, req.Username)
	m.reportError(clientID, err)
}

func (m *APIModule) handleDeleteMessage(clientID string, payload json.RawMessage) {
	var req DeleteMessagePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		m.sendError(clientID, "Invalid delete-message payload")
		return
	}
	err := m.chat.Coordinator().DeleteMessage(context.Background(), req.WorkspaceID, req.ChannelID, req.MessageID, req.Username)
	m.reportError(clientID, err)
}

func (m *APIModule) handleAddReply(clientID string, payload json.RawMessage) {
	var req AddReplyPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		m.sendError(clientID, "Invalid add-reply payload")
		return
	}
	_, err := m.chat.Coordinator().AddReply(context.Background(), req.WorkspaceID, req.ChannelID, req.ParentID, chat.ReplyInput{
		Text:        req.Reply.Text,
		Username:    req.Reply.Sender,
		UserID:      req.Reply.SenderID,
		AvatarColor: req.Reply.AvatarColor,
		FileURL:     req.Reply.FileURL,
		FileName:    req.Reply.FileName,
	})
	m.reportError(clientID, err)
}

func (m *APIModule) handleUpdateReply(clientID string, payload json.RawMessage) {
	var req UpdateReplyPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		m.sendError(clientID, "Invalid update-reply payload")
		return
	}
	err := m.chat.Coordinator().UpdateReply(context.Background(), req.WorkspaceID, req.ChannelID, req.ReplyID, req.NewText, req.Username)
	m.reportError(clientID, err)
}

func (m *APIModule) handleDeleteReply(clientID string, payload json.RawMessage) {
	var req DeleteReplyPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		m.sendError(clientID, "Invalid delete-reply payload")
		return
	}
	err := m.chat.Coordinator().DeleteReply(context.Background(), req.WorkspaceID, req.ChannelID, req.ReplyID, req.Username)
	m.reportError(clientID, err)
}

func (m *APIModule) handleUpdateReaction(clientID string, payload json.RawMessage) {
	var req UpdateReactionPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		m.sendError(clientID, "Invalid update-reaction payload")
		return
	}
	err := m.chat.Coordinator().ToggleReaction(context.Background(), req.WorkspaceID, req.ChannelID, req.MessageID, req.UserID, req.Emoji)
	m.reportError(clientID, err)
}

func (m *APIModule) handleCreateWorkspace(clientID string, payload json.RawMessage) {
	var req CreateWorkspacePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		m.sendError(clientID, "Invalid create-workspace payload")
		return
	}
	_, err := m.chat.Coordinator().CreateWorkspace(context.Background(), req.Name, req.CreatedBy, req.UserID)
	m.reportError(clientID, err)
}

func (m *APIModule) handleCreateChannel(clientID string, payload json.RawMessage) {
	var req CreateChannelPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		m.sendError(clientID, "Invalid create-channel payload")
		return
	}
	_, err := m.chat.Coordinator().CreateChannel(context.Background(), req.WorkspaceID, req.Name, req.CreatedBy, req.UserID)
	m.reportError(clientID, err)
}

func (m *APIModule) handleRenameWorkspace(clientID string, payload json.RawMessage) {
	var req RenameWorkspacePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		m.sendError(clientID, "Invalid rename-workspace payload")
		return
	}
	err := m.chat.Coordinator().RenameWorkspace(context.Background(), req.WorkspaceID, req.NewName, req.Username)
	m.reportError(clientID, err)
}

func (m *APIModule) handleRenameChannel(clientID string, payload json.RawMessage) {
	var req RenameChannelPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		m.sendError(clientID, "Invalid rename-channel payload")
		return
	}
	err := m.chat.Coordinator().RenameChannel(context.Background(), req.WorkspaceID, req.ChannelID, req.NewName, req.Username)
	m.reportError(clientID, err)
}

func (m *APIModule) handleDeleteWorkspace(clientID string, payload json.RawMessage) {
	var req DeleteWorkspacePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		m.sendError(clientID, "Invalid delete-workspace payload")
		return
	}
	err := m.chat.Coordinator().DeleteWorkspace(context.Background(), req.WorkspaceID, req.Username)
	m.reportError(clientID, err)
}

func (m *APIModule) handleDeleteChannel(clientID string, payload json.RawMessage) {
	var req DeleteChannelPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		m.sendError(clientID, "Invalid delete-channel payload")
		return
	}
	err := m.chat.Coordinator().DeleteChannel(context.Background(), req.WorkspaceID, req.ChannelID, req.Username)
	m.reportError(clientID, err)
}

// sendInit pushes the full workspace collection to one client.
func (m *APIModule) sendInit(clientID string) {
	workspaces, err := m.chat.Coordinator().Workspaces(context.Background())
	if err != nil {
		slog.Error("Failed to load workspaces for init", "error", err)
		m.sendError(clientID, "Failed to load workspaces")
		return
	}
	m.hub.SendTo(clientID, "init", fiber.Map{"workspaces": workspaces})
}

// reportError maps validation failures to a targeted error event. Every
// other error is logged only; not-found and authorization aborts arrive
// here as nil.
func (m *APIModule) reportError(clientID string, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, chat.ErrNameEmpty) ||
		errors.Is(err, chat.ErrNameTaken) ||
		errors.Is(err, chat.ErrLastWorkspace) ||
		errors.Is(err, chat.ErrLastChannel) {
		m.sendError(clientID, err.Error())
		return
	}
	slog.Error("Mutation failed", "error", err)
}

// sendError sends a targeted error event to one client.
func (m *APIModule) sendError(clientID, message string) {
	m.hub.SendTo(clientID, "error", ErrorPayload{Message: message})
}

// uploadFile handles POST /api/v1/upload. The file lands on local disk under
// a uuid-prefixed name; the response URL is embedded verbatim on messages.
func (m *APIModule) uploadFile(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "A single 'file' form field is required",
		})
	}

	if file.Size > maxUploadSize {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(ErrorResponse{
			Error:   "file_too_large",
			Message: "File exceeds the 25MB upload limit",
		})
	}

	storedName := uuid.New().String()[:8] + "_" + filepath.Base(file.Filename)
	if err := c.SaveFile(file, filepath.Join(m.uploadDir, storedName)); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "save_failed",
			Message: "Failed to store file",
		})
	}

	return c.JSON(UploadResponse{
		FileURL:      "/uploads/" + storedName,
		OriginalName: file.Filename,
	})
}
