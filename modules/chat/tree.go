package chat

import (
	"time"

	domain "github.com/example/workspace-chat/domain/chat"
)

// Tree operations are pure, synchronous functions over a channel's message
// sequence. Replies are full messages, so every operation recurses to
// unbounded depth. All searches are pre-order: a node's subtree is exhausted
// before its next sibling is visited, and the first match wins.

// Locate returns the first message in the tree (top-level or nested at any
// depth) with the given id, or nil.
func Locate(tree []*domain.Message, id string) *domain.Message {
	for _, msg := range tree {
		if msg.ID == id {
			return msg
		}
		if found := Locate(msg.Replies, id); found != nil {
			return found
		}
	}
	return nil
}

// AttachReply appends reply to the reply sequence of the node carrying
// parentID, wherever it sits in the tree. Returns false if no node matches.
func AttachReply(tree []*domain.Message, parentID string, reply *domain.Message) bool {
	parent := Locate(tree, parentID)
	if parent == nil {
		return false
	}
	if reply.Replies == nil {
		reply.Replies = []*domain.Message{}
	}
	if reply.Reactions == nil {
		reply.Reactions = []domain.ReactionGroup{}
	}
	parent.Replies = append(parent.Replies, reply)
	return true
}

// FindReply returns the reply node with the given id, searching strictly
// among reply nodes: top-level messages are never candidates, their subtrees
// are.
func FindReply(tree []*domain.Message, replyID string) *domain.Message {
	for _, msg := range tree {
		if found := Locate(msg.Replies, replyID); found != nil {
			return found
		}
	}
	return nil
}

// EditReply updates the text of a reply node in place and refreshes its
// display time. Returns the updated node, or nil if no reply matches.
func EditReply(tree []*domain.Message, replyID, newText string, now time.Time) *domain.Message {
	reply := FindReply(tree, replyID)
	if reply == nil {
		return nil
	}
	reply.Text = newText
	reply.Time = domain.ClockTime(now)
	return reply
}

// DeleteReply removes a reply node at any depth, preserving the order of its
// siblings. Returns the parent node's id and true on success.
func DeleteReply(tree []*domain.Message, replyID string) (string, bool) {
	for _, msg := range tree {
		if parentID, ok := deleteReplyFrom(msg, replyID); ok {
			return parentID, ok
		}
	}
	return "", false
}

func deleteReplyFrom(parent *domain.Message, replyID string) (string, bool) {
	for i, reply := range parent.Replies {
		if reply.ID == replyID {
			parent.Replies = append(parent.Replies[:i], parent.Replies[i+1:]...)
			return parent.ID, true
		}
		if parentID, ok := deleteReplyFrom(reply, replyID); ok {
			return parentID, ok
		}
	}
	return "", false
}

// ToggleReaction applies the per-user reaction state machine to the message
// with messageID (at any depth):
//
//   - same emoji present for the user: toggle off
//   - different emoji present: switch to the target emoji
//   - no reaction present: add the user to the target group
//
// Empty groups are pruned afterwards, so a user id appears in at most one
// group and no group is ever stored empty. Returns the full post-mutation
// reaction collection and true, or nil and false if the message is missing.
func ToggleReaction(tree []*domain.Message, messageID, userID, emoji string) ([]domain.ReactionGroup, bool) {
	msg := Locate(tree, messageID)
	if msg == nil {
		return nil, false
	}

	toggledOff := false
	for gi := range msg.Reactions {
		group := &msg.Reactions[gi]
		for ui, user := range group.Users {
			if user != userID {
				continue
			}
			group.Users = append(group.Users[:ui], group.Users[ui+1:]...)
			if group.Emoji == emoji {
				toggledOff = true
			}
			break
		}
	}

	if !toggledOff {
		added := false
		for gi := range msg.Reactions {
			if msg.Reactions[gi].Emoji == emoji {
				msg.Reactions[gi].Users = append(msg.Reactions[gi].Users, userID)
				added = true
				break
			}
		}
		if !added {
			msg.Reactions = append(msg.Reactions, domain.ReactionGroup{
				Emoji: emoji,
				Users: []string{userID},
			})
		}
	}

	pruned := msg.Reactions[:0]
	for _, group := range msg.Reactions {
		if len(group.Users) > 0 {
			pruned = append(pruned, group)
		}
	}
	msg.Reactions = pruned

	return msg.Reactions, true
}
