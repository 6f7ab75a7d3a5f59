package chat

import (
	"errors"
	"sort"
	"strings"
	"unicode/utf8"
)

// Domain-level errors for chat behaviors
var (
	ErrInvalidConversation = errors.New("chat: conversation/message mismatch")
	ErrNotParticipant      = errors.New("chat: user is not a participant in the conversation")
	ErrNotGroup            = errors.New("chat: operation requires a group conversation")
	ErrNotAdmin            = errors.New("chat: only the group admin may do this")
	ErrSelfTarget          = errors.New("chat: use leave to remove yourself")
	ErrEmptyMessage        = errors.New("chat: empty message content")
	ErrEmptyName           = errors.New("chat: name must not be empty")
	ErrNameTooLong         = errors.New("chat: name is too long")
)

// MaxNameLength bounds a group name, counted in runes.
const MaxNameLength = 255

// Chat is the membership aggregate for one conversation.
//
// Notes:
//   - The application layer hydrates it inside the transaction that will
//     apply the change, after locking the conversation row, so every decision
//     below is taken on data nobody else can change concurrently.
//   - Persistence stays in the repositories; this type only enforces rules.
type Chat struct {
	Conversation Conversation
	Participants []Participant // succession order
}

// NewChat builds the aggregate and sorts the roster by join order.
func NewChat(conv Conversation, participants []Participant) *Chat {
	roster := make([]Participant, len(participants))
	copy(roster, participants)
	sort.SliceStable(roster, func(i, j int) bool { return joinedBefore(roster[i], roster[j]) })
	return &Chat{Conversation: conv, Participants: roster}
}

// HasParticipant tells whether userID is part of this chat.
func (c *Chat) HasParticipant(userID string) bool {
	if c == nil {
		return false
	}
	for _, p := range c.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// MemberIDs lists current participants in join order.
func (c *Chat) MemberIDs() []string {
	ids := make([]string, 0, len(c.Participants))
	for _, p := range c.Participants {
		ids = append(ids, p.UserID)
	}
	return ids
}

// RequireMember fails with ErrNotParticipant when userID is not in the roster.
func (c *Chat) RequireMember(userID string) error {
	if !c.HasParticipant(userID) {
		return ErrNotParticipant
	}
	return nil
}

// RequireGroupAdmin checks the precondition shared by every roster change
// and rename: the caller is a member, the chat is a group, and the caller
// is its admin. Membership is checked first so outsiders learn nothing.
func (c *Chat) RequireGroupAdmin(userID string) error {
	if err := c.RequireMember(userID); err != nil {
		return err
	}
	if !c.Conversation.IsGroup() {
		return ErrNotGroup
	}
	if !c.Conversation.IsAdmin(userID) {
		return ErrNotAdmin
	}
	return nil
}

// Remove drops userID from the in-memory roster.
func (c *Chat) Remove(userID string) bool {
	for i, p := range c.Participants {
		if p.UserID == userID {
			c.Participants = append(c.Participants[:i], c.Participants[i+1:]...)
			return true
		}
	}
	return false
}

// Successor returns the participant who takes over administration:
// the earliest joiner, ties broken by row id.
func (c *Chat) Successor() (Participant, bool) {
	if c == nil || len(c.Participants) == 0 {
		return Participant{}, false
	}
	best := c.Participants[0]
	for _, p := range c.Participants[1:] {
		if joinedBefore(p, best) {
			best = p
		}
	}
	return best, true
}

// LeaveOutcome describes what a leave did to the conversation.
type LeaveOutcome struct {
	Deleted  bool     // conversation removed entirely
	NewAdmin *string  // set when administration moved
	Former   []string // members before the leave
	Members  []string // members after the leave; empty when Deleted
}

// Leave applies the leave rules for userID to the roster.
//
// Behavior:
//   - dialog: the whole conversation goes.
//   - group, nobody left: the whole conversation goes.
//   - group, admin left: the earliest remaining joiner becomes admin; when no
//     successor can be found the conversation is deleted rather than left without one.
//   - group, member left: nothing else changes.
func (c *Chat) Leave(userID string) (LeaveOutcome, error) {
	if err := c.RequireMember(userID); err != nil {
		return LeaveOutcome{}, err
	}
	out := LeaveOutcome{Former: c.MemberIDs()}

	if !c.Conversation.IsGroup() {
		out.Deleted = true
		return out, nil
	}

	wasAdmin := c.Conversation.IsAdmin(userID)
	c.Remove(userID)
	if len(c.Participants) == 0 {
		out.Deleted = true
		return out, nil
	}

	if wasAdmin {
		next, ok := c.Successor()
		if !ok {
			out.Deleted = true
			return out, nil
		}
		id := next.UserID
		out.NewAdmin = &id
		c.Conversation.AdminID = &id
	}
	out.Members = c.MemberIDs()
	return out, nil
}

// NormalizeName trims a proposed group name and checks its bounds.
func NormalizeName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", ErrEmptyName
	}
	if utf8.RuneCountInString(trimmed) > MaxNameLength {
		return "", ErrNameTooLong
	}
	return trimmed, nil
}
