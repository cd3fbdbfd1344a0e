package chat

import (
	"time"

	"github.com/google/uuid"
)

// ReactionGroup is one emoji and the set of users who applied it to a message.
// A group with no users must never be stored; mutations prune empty groups.
type ReactionGroup struct {
	Emoji string   `json:"emoji"`
	Users []string `json:"users"`
}

// Message is a node in the conversation tree. Replies are full Messages and may
// carry their own replies and reactions to unbounded depth. Replies and
// Reactions are always non-nil on a normalized tree.
type Message struct {
	ID          string          `json:"id"`
	Text        string          `json:"text"`
	Sender      string          `json:"sender"`
	SenderID    string          `json:"senderId"`
	Time        string          `json:"time"`
	AvatarColor string          `json:"avatarColor,omitempty"`
	FileURL     string          `json:"fileUrl,omitempty"`
	FileName    string          `json:"fileName,omitempty"`
	IsAI        bool            `json:"isAI,omitempty"`
	Replies     []*Message      `json:"replies"`
	Reactions   []ReactionGroup `json:"reactions"`
}

// Channel is a named conversation stream holding an ordered message sequence.
type Channel struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	CreatedBy string     `json:"createdBy,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	Messages  []*Message `json:"messages"`
}

// Workspace is the top-level tenant grouping of channels.
type Workspace struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	CreatedBy string     `json:"createdBy,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	Channels  []*Channel `json:"channels"`
}

// Document is the whole persisted collection. It is the unit of persistence:
// every mutation cycle reloads it, applies one change, and rewrites it.
type Document struct {
	Workspaces []*Workspace `json:"workspaces"`
}

// ClockTime renders the display time stored on messages.
func ClockTime(t time.Time) string {
	return t.Format("15:04")
}

// Workspace returns the workspace with the given id, or nil.
func (d *Document) Workspace(id string) *Workspace {
	for _, ws := range d.Workspaces {
		if ws.ID == id {
			return ws
		}
	}
	return nil
}

// Channel returns the channel with the given id, or nil.
func (w *Workspace) Channel(id string) *Channel {
	for _, ch := range w.Channels {
		if ch.ID == id {
			return ch
		}
	}
	return nil
}

// Normalize backfills missing ids and nil reply/reaction sequences on a
// document loaded from storage, so tree operations never have to test for
// absent fields. Legacy documents written before ids existed get fresh ones.
func (d *Document) Normalize() {
	if d.Workspaces == nil {
		d.Workspaces = []*Workspace{}
	}
	for _, ws := range d.Workspaces {
		if ws.ID == "" {
			ws.ID = uuid.New().String()
		}
		if ws.Channels == nil {
			ws.Channels = []*Channel{}
		}
		for _, ch := range ws.Channels {
			if ch.ID == "" {
				ch.ID = uuid.New().String()
			}
			if ch.Messages == nil {
				ch.Messages = []*Message{}
			}
			for _, msg := range ch.Messages {
				normalizeMessage(msg)
			}
		}
	}
}

func normalizeMessage(m *Message) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.Replies == nil {
		m.Replies = []*Message{}
	}
	if m.Reactions == nil {
		m.Reactions = []ReactionGroup{}
	}
	for _, reply := range m.Replies {
		normalizeMessage(reply)
	}
}

// Clone returns a deep copy of the channel, detached from the document it was
// loaded from. Used to hand snapshots across module boundaries.
func (c *Channel) Clone() *Channel {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Messages = cloneMessages(c.Messages)
	return &clone
}

func cloneMessages(msgs []*Message) []*Message {
	out := make([]*Message, len(msgs))
	for i, m := range msgs {
		c := *m
		c.Replies = cloneMessages(m.Replies)
		c.Reactions = make([]ReactionGroup, len(m.Reactions))
		for j, g := range m.Reactions {
			users := make([]string, len(g.Users))
			copy(users, g.Users)
			c.Reactions[j] = ReactionGroup{Emoji: g.Emoji, Users: users}
		}
		out[i] = &c
	}
	return out
}
