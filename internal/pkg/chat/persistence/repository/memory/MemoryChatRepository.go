package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	chat "go-chatsync/internal/pkg/chat/application/domain"
	repository "go-chatsync/internal/pkg/chat/persistence/repository/port"
)

// MemoryChatRepository keeps the participation tables in process memory.
// Transactions run against a private copy of the state under the write lock
// and replace it on success, so a failed body leaves nothing behind.
type MemoryChatRepository struct {
	mu  sync.RWMutex
	st  *state
	now func() time.Time
}

func NewMemoryChatRepository(now func() time.Time) *MemoryChatRepository {
	if now == nil {
		now = time.Now
	}
	return &MemoryChatRepository{st: newState(), now: now}
}

// Ensure interface is satisfied
var _ repository.ChatRepository = (*MemoryChatRepository)(nil)

func (r *MemoryChatRepository) WithinTx(ctx context.Context, fn func(tx repository.ChatTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	work := r.st.clone()
	if err := fn(&memoryTx{state: work, now: r.now}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.st = work
	return nil
}

func (r *MemoryChatRepository) SaveUser(ctx context.Context, u chat.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.st.users[u.ID] = u
	return nil
}

func (r *MemoryChatRepository) ListConversationRecords(ctx context.Context, userID string) ([]chat.ConversationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.st.ListConversationRecords(ctx, userID)
}

func (r *MemoryChatRepository) GetConversationRecord(ctx context.Context, conversationID string, userID string) (*chat.ConversationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.st.GetConversationRecord(ctx, conversationID, userID)
}

func (r *MemoryChatRepository) GetMessagesByConversation(ctx context.Context, conversationID string, limit int, offset int) ([]chat.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.st.GetMessagesByConversation(ctx, conversationID, limit, offset)
}

func (r *MemoryChatRepository) IsParticipant(ctx context.Context, conversationID string, userID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.st.IsParticipant(ctx, conversationID, userID)
}

func (r *MemoryChatRepository) ListParticipantIDs(ctx context.Context, conversationID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.st.ListParticipantIDs(ctx, conversationID)
}

func (r *MemoryChatRepository) ListConversationIDs(ctx context.Context, userID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.st.ListConversationIDs(ctx, userID)
}

func (r *MemoryChatRepository) FindUsers(ctx context.Context, userIDs []string) ([]chat.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.st.FindUsers(ctx, userIDs)
}

func (r *MemoryChatRepository) ListPinnedMessageIDs(ctx context.Context, conversationID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.st.ListPinnedMessageIDs(ctx, conversationID)
}

func (r *MemoryChatRepository) GetUnreadState(ctx context.Context, conversationID string, userID string) (chat.UnreadState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.st.GetUnreadState(ctx, conversationID, userID)
}

// ===================== State =====================

type messageRow struct {
	chat.Message
	seq int64
}

type pinRow struct {
	chat.Pin
	seq int64
}

type readKey struct {
	messageID string
	userID    string
}

type state struct {
	users         map[string]chat.User
	conversations map[string]chat.Conversation
	participants  map[string]map[string]chat.Participant // conversationID -> userID
	messages      map[string]messageRow
	reads         map[readKey]struct{}
	pins          map[string]map[string]pinRow // conversationID -> messageID
	seq           int64
}

func newState() *state {
	return &state{
		users:         make(map[string]chat.User),
		conversations: make(map[string]chat.Conversation),
		participants:  make(map[string]map[string]chat.Participant),
		messages:      make(map[string]messageRow),
		reads:         make(map[readKey]struct{}),
		pins:          make(map[string]map[string]pinRow),
	}
}

func (s *state) clone() *state {
	c := newState()
	c.seq = s.seq
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.conversations {
		c.conversations[k] = v
	}
	for conv, members := range s.participants {
		m := make(map[string]chat.Participant, len(members))
		for k, v := range members {
			m[k] = v
		}
		c.participants[conv] = m
	}
	for k, v := range s.messages {
		c.messages[k] = v
	}
	for k := range s.reads {
		c.reads[k] = struct{}{}
	}
	for conv, pins := range s.pins {
		m := make(map[string]pinRow, len(pins))
		for k, v := range pins {
			m[k] = v
		}
		c.pins[conv] = m
	}
	return c
}

func (s *state) next() int64 {
	s.seq++
	return s.seq
}

func (s *state) conversationMessages(conversationID string) []messageRow {
	var rows []messageRow
	for _, m := range s.messages {
		if m.ConversationID == conversationID {
			rows = append(rows, m)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].seq > rows[j].seq
	})
	return rows
}

func (s *state) unreadCount(conversationID string, userID string) int {
	n := 0
	for _, m := range s.messages {
		if m.ConversationID != conversationID || m.SenderID == userID {
			continue
		}
		if _, ok := s.reads[readKey{messageID: m.ID, userID: userID}]; !ok {
			n++
		}
	}
	return n
}

func (s *state) record(conv chat.Conversation, me chat.Participant) chat.ConversationRecord {
	rec := chat.ConversationRecord{
		Conversation:     conv,
		UnreadCount:      s.unreadCount(conv.ID, me.UserID),
		IsMuted:          me.IsMuted,
		PinnedMessageIDs: s.pinnedIDs(conv.ID),
	}
	if msgs := s.conversationMessages(conv.ID); len(msgs) > 0 {
		last := msgs[0].Message
		rec.LastMessage = &last
	}
	for _, p := range s.participants[conv.ID] {
		u := s.users[p.UserID]
		rec.Participants = append(rec.Participants, chat.ParticipantRecord{
			UserID:    p.UserID,
			Username:  u.Username,
			AvatarURL: u.AvatarURL,
			IsAdmin:   conv.IsAdmin(p.UserID),
			JoinedAt:  p.JoinedAt,
		})
	}
	sort.Slice(rec.Participants, func(i, j int) bool {
		a, b := rec.Participants[i], rec.Participants[j]
		if a.Username != b.Username {
			return a.Username < b.Username
		}
		return a.UserID < b.UserID
	})
	return rec
}

func (s *state) pinnedIDs(conversationID string) []string {
	rows := make([]pinRow, 0, len(s.pins[conversationID]))
	for _, p := range s.pins[conversationID] {
		rows = append(rows, p)
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].PinnedAt.Equal(rows[j].PinnedAt) {
			return rows[i].PinnedAt.After(rows[j].PinnedAt)
		}
		return rows[i].seq > rows[j].seq
	})
	ids := make([]string, 0, len(rows))
	for _, p := range rows {
		ids = append(ids, p.MessageID)
	}
	return ids
}

func (s *state) ListConversationRecords(ctx context.Context, userID string) ([]chat.ConversationRecord, error) {
	records := make([]chat.ConversationRecord, 0)
	for convID, members := range s.participants {
		me, ok := members[userID]
		if !ok {
			continue
		}
		records = append(records, s.record(s.conversations[convID], me))
	}
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		switch {
		case a.LastMessage != nil && b.LastMessage == nil:
			return true
		case a.LastMessage == nil && b.LastMessage != nil:
			return false
		case a.LastMessage != nil && !a.LastMessage.CreatedAt.Equal(b.LastMessage.CreatedAt):
			return a.LastMessage.CreatedAt.After(b.LastMessage.CreatedAt)
		case !a.Conversation.CreatedAt.Equal(b.Conversation.CreatedAt):
			return a.Conversation.CreatedAt.After(b.Conversation.CreatedAt)
		}
		return a.Conversation.ID < b.Conversation.ID
	})
	return records, nil
}

func (s *state) GetConversationRecord(ctx context.Context, conversationID string, userID string) (*chat.ConversationRecord, error) {
	conv, ok := s.conversations[conversationID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	me, ok := s.participants[conversationID][userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	rec := s.record(conv, me)
	return &rec, nil
}

func (s *state) GetMessagesByConversation(ctx context.Context, conversationID string, limit int, offset int) ([]chat.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows := s.conversationMessages(conversationID)
	if offset >= len(rows) {
		return []chat.Message{}, nil
	}
	rows = rows[offset:]
	if len(rows) > limit {
		rows = rows[:limit]
	}
	msgs := make([]chat.Message, 0, len(rows))
	for _, m := range rows {
		msgs = append(msgs, m.Message)
	}
	return msgs, nil
}

func (s *state) IsParticipant(ctx context.Context, conversationID string, userID string) (bool, error) {
	_, ok := s.participants[conversationID][userID]
	return ok, nil
}

func (s *state) ListParticipantIDs(ctx context.Context, conversationID string) ([]string, error) {
	roster := s.roster(conversationID)
	ids := make([]string, 0, len(roster))
	for _, p := range roster {
		ids = append(ids, p.UserID)
	}
	return ids, nil
}

func (s *state) ListConversationIDs(ctx context.Context, userID string) ([]string, error) {
	ids := make([]string, 0)
	for convID, members := range s.participants {
		if _, ok := members[userID]; ok {
			ids = append(ids, convID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *state) FindUsers(ctx context.Context, userIDs []string) ([]chat.User, error) {
	users := make([]chat.User, 0, len(userIDs))
	for _, id := range userIDs {
		if u, ok := s.users[id]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

func (s *state) ListPinnedMessageIDs(ctx context.Context, conversationID string) ([]string, error) {
	return s.pinnedIDs(conversationID), nil
}

func (s *state) GetUnreadState(ctx context.Context, conversationID string, userID string) (chat.UnreadState, error) {
	me, ok := s.participants[conversationID][userID]
	if !ok {
		return chat.UnreadState{}, repository.ErrNotFound
	}
	return chat.UnreadState{
		ConversationID: conversationID,
		UnreadCount:    s.unreadCount(conversationID, userID),
		IsMuted:        me.IsMuted,
	}, nil
}

// roster returns participants in join order.
func (s *state) roster(conversationID string) []chat.Participant {
	members := s.participants[conversationID]
	roster := make([]chat.Participant, 0, len(members))
	for _, p := range members {
		roster = append(roster, p)
	}
	sort.Slice(roster, func(i, j int) bool {
		if !roster[i].JoinedAt.Equal(roster[j].JoinedAt) {
			return roster[i].JoinedAt.Before(roster[j].JoinedAt)
		}
		return roster[i].RowID < roster[j].RowID
	})
	return roster
}

// ===================== Transaction =====================

type memoryTx struct {
	*state
	now func() time.Time
}

func (tx *memoryTx) LockConversation(ctx context.Context, conversationID string) (chat.Conversation, error) {
	conv, ok := tx.conversations[conversationID]
	if !ok {
		return chat.Conversation{}, repository.ErrNotFound
	}
	return conv, nil
}

// LockDialogPair is a no-op: the whole store is locked for the transaction.
func (tx *memoryTx) LockDialogPair(ctx context.Context, userA string, userB string) error {
	return nil
}

func (tx *memoryTx) FindDialog(ctx context.Context, userA string, userB string) (string, error) {
	var found []string
	for id, conv := range tx.conversations {
		if conv.Kind != chat.KindDialog {
			continue
		}
		members := tx.participants[id]
		if len(members) != 2 {
			continue
		}
		_, okA := members[userA]
		_, okB := members[userB]
		if okA && okB {
			found = append(found, id)
		}
	}
	if len(found) == 0 {
		return "", nil
	}
	sort.Strings(found)
	return found[0], nil
}

func (tx *memoryTx) ListParticipants(ctx context.Context, conversationID string) ([]chat.Participant, error) {
	return tx.roster(conversationID), nil
}

func (tx *memoryTx) CreateConversation(ctx context.Context, c chat.Conversation) (chat.Conversation, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = tx.now().UTC()
	}
	if c.AdminID != nil {
		if _, ok := tx.users[*c.AdminID]; !ok {
			return chat.Conversation{}, repository.ErrNotFound
		}
	}
	tx.conversations[c.ID] = c
	tx.participants[c.ID] = make(map[string]chat.Participant)
	return c, nil
}

func (tx *memoryTx) DeleteConversation(ctx context.Context, conversationID string) error {
	if _, ok := tx.conversations[conversationID]; !ok {
		return repository.ErrNotFound
	}
	delete(tx.conversations, conversationID)
	delete(tx.participants, conversationID)
	delete(tx.pins, conversationID)
	for id, m := range tx.messages {
		if m.ConversationID != conversationID {
			continue
		}
		delete(tx.messages, id)
		for k := range tx.reads {
			if k.messageID == id {
				delete(tx.reads, k)
			}
		}
	}
	return nil
}

func (tx *memoryTx) UpdateConversationName(ctx context.Context, conversationID string, name string) error {
	conv, ok := tx.conversations[conversationID]
	if !ok {
		return repository.ErrNotFound
	}
	conv.Name = &name
	tx.conversations[conversationID] = conv
	return nil
}

func (tx *memoryTx) UpdateConversationAdmin(ctx context.Context, conversationID string, adminID *string) error {
	conv, ok := tx.conversations[conversationID]
	if !ok {
		return repository.ErrNotFound
	}
	if adminID != nil {
		id := *adminID
		conv.AdminID = &id
	} else {
		conv.AdminID = nil
	}
	tx.conversations[conversationID] = conv
	return nil
}

func (tx *memoryTx) InsertParticipant(ctx context.Context, p chat.Participant) (chat.Participant, error) {
	members, ok := tx.participants[p.ConversationID]
	if !ok {
		return chat.Participant{}, repository.ErrNotFound
	}
	if _, ok := tx.users[p.UserID]; !ok {
		return chat.Participant{}, repository.ErrNotFound
	}
	if _, ok := members[p.UserID]; ok {
		return chat.Participant{}, repository.ErrAlreadyMember
	}
	if p.JoinedAt.IsZero() {
		p.JoinedAt = tx.now().UTC()
	}
	p.RowID = tx.next()
	members[p.UserID] = p
	return p, nil
}

func (tx *memoryTx) DeleteParticipant(ctx context.Context, conversationID string, userID string) error {
	members := tx.participants[conversationID]
	if _, ok := members[userID]; !ok {
		return repository.ErrNotFound
	}
	delete(members, userID)
	return nil
}

func (tx *memoryTx) SetParticipantMuted(ctx context.Context, conversationID string, userID string, muted bool) error {
	members := tx.participants[conversationID]
	p, ok := members[userID]
	if !ok {
		return repository.ErrNotFound
	}
	p.IsMuted = muted
	members[userID] = p
	return nil
}

func (tx *memoryTx) InsertMessage(ctx context.Context, m chat.Message) (chat.Message, error) {
	if _, ok := tx.conversations[m.ConversationID]; !ok {
		return chat.Message{}, repository.ErrNotFound
	}
	if _, ok := tx.users[m.SenderID]; !ok {
		return chat.Message{}, repository.ErrNotFound
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = tx.now().UTC()
	}
	tx.messages[m.ID] = messageRow{Message: m, seq: tx.next()}
	return m, nil
}

func (tx *memoryTx) FindMessage(ctx context.Context, messageID string) (chat.Message, error) {
	m, ok := tx.messages[messageID]
	if !ok {
		return chat.Message{}, repository.ErrNotFound
	}
	return m.Message, nil
}

func (tx *memoryTx) InsertRead(ctx context.Context, messageID string, userID string) error {
	if _, ok := tx.messages[messageID]; !ok {
		return repository.ErrNotFound
	}
	if _, ok := tx.users[userID]; !ok {
		return repository.ErrNotFound
	}
	tx.reads[readKey{messageID: messageID, userID: userID}] = struct{}{}
	return nil
}

func (tx *memoryTx) MarkConversationRead(ctx context.Context, conversationID string, userID string) (int64, error) {
	var n int64
	for _, m := range tx.messages {
		if m.ConversationID != conversationID || m.SenderID == userID {
			continue
		}
		key := readKey{messageID: m.ID, userID: userID}
		if _, ok := tx.reads[key]; ok {
			continue
		}
		tx.reads[key] = struct{}{}
		n++
	}
	return n, nil
}

func (tx *memoryTx) MarkConversationUnread(ctx context.Context, conversationID string, userID string) (int64, error) {
	var n int64
	for key := range tx.reads {
		if key.userID != userID {
			continue
		}
		if m, ok := tx.messages[key.messageID]; ok && m.ConversationID == conversationID {
			delete(tx.reads, key)
			n++
		}
	}
	return n, nil
}

func (tx *memoryTx) PinExists(ctx context.Context, conversationID string, messageID string) (bool, error) {
	_, ok := tx.pins[conversationID][messageID]
	return ok, nil
}

func (tx *memoryTx) InsertPin(ctx context.Context, p chat.Pin) error {
	if _, ok := tx.conversations[p.ConversationID]; !ok {
		return repository.ErrNotFound
	}
	if _, ok := tx.messages[p.MessageID]; !ok {
		return repository.ErrNotFound
	}
	pins := tx.pins[p.ConversationID]
	if pins == nil {
		pins = make(map[string]pinRow)
		tx.pins[p.ConversationID] = pins
	}
	if _, ok := pins[p.MessageID]; ok {
		return nil
	}
	if p.PinnedAt.IsZero() {
		p.PinnedAt = tx.now().UTC()
	}
	pins[p.MessageID] = pinRow{Pin: p, seq: tx.next()}
	return nil
}

func (tx *memoryTx) DeletePin(ctx context.Context, conversationID string, messageID string) error {
	pins := tx.pins[conversationID]
	if _, ok := pins[messageID]; !ok {
		return repository.ErrNotFound
	}
	delete(pins, messageID)
	return nil
}
