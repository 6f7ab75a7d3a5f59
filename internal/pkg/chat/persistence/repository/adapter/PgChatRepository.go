package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	chat "go-chatsync/internal/pkg/chat/application/domain"
	repository "go-chatsync/internal/pkg/chat/persistence/repository/port"
)

// querier is the part of pgx shared by the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgChatRepository serves reads straight from the pool; mutations are only
// reachable through WithinTx.
type PgChatRepository struct {
	repository.ChatReader
	pool *pgxpool.Pool
}

func NewPgChatRepository(pool *pgxpool.Pool) *PgChatRepository {
	store := &pgChatStore{}
	if pool != nil {
		store.q = pool
	}
	return &PgChatRepository{ChatReader: store, pool: pool}
}

// Ensure interface is satisfied
var _ repository.ChatRepository = (*PgChatRepository)(nil)

// WithinTx runs fn in a read-committed transaction. Row locks taken through
// LockConversation serialize concurrent mutations of one conversation.
func (r *PgChatRepository) WithinTx(ctx context.Context, fn func(tx repository.ChatTx) error) error {
	if r == nil || r.pool == nil {
		return errors.New("PgChatRepository: nil pool")
	}
	return pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(&pgChatStore{q: tx})
	})
}

func (r *PgChatRepository) SaveUser(ctx context.Context, u chat.User) error {
	if r == nil || r.pool == nil {
		return errors.New("PgChatRepository: nil pool")
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO chat.users (id, username, avatar_url)
		VALUES ($1::uuid, $2, $3)
		ON CONFLICT (id)
		DO UPDATE SET username = EXCLUDED.username,
		              avatar_url = EXCLUDED.avatar_url
	`, u.ID, u.Username, u.AvatarURL)
	return translate(err)
}

// pgChatStore implements every query against either the pool or a transaction.
type pgChatStore struct {
	q querier
}

var _ repository.ChatTx = (*pgChatStore)(nil)

func (s *pgChatStore) ready() error {
	if s == nil || s.q == nil {
		return errors.New("PgChatRepository: nil pool")
	}
	return nil
}

// translate maps driver failures onto the repository sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if pgErr.ConstraintName == "participants_conversation_user_key" {
				return repository.ErrAlreadyMember
			}
			return fmt.Errorf("%w: %s", repository.ErrAlreadyMember, pgErr.ConstraintName)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%w: %s", repository.ErrNotFound, pgErr.ConstraintName)
		case "22P02": // invalid_text_representation, e.g. a malformed uuid
			return repository.ErrNotFound
		}
	}
	return err
}

// ===================== Aggregated reads =====================

// conversationRecordSQL computes the per-viewer row: last message through a
// lateral join, a live unread recount, pins newest first and the roster by
// username. $1 is always the viewer.
const conversationRecordSQL = `
	SELECT c.id::text, c.kind, c.name, c.admin_id::text, c.created_at,
	       me.is_muted,
	       lm.id::text, lm.sender_id::text, lm.content, lm.forwarded_from, lm.created_at,
	       (SELECT count(*)
	          FROM chat.messages m
	         WHERE m.conversation_id = c.id
	           AND m.sender_id <> $1::uuid
	           AND NOT EXISTS (SELECT 1 FROM chat.reads r
	                            WHERE r.message_id = m.id AND r.user_id = $1::uuid)) AS unread_count,
	       COALESCE((SELECT array_agg(p.message_id::text ORDER BY p.pinned_at DESC, p.id DESC)
	                   FROM chat.pins p
	                  WHERE p.conversation_id = c.id), '{}'::text[]) AS pinned_message_ids,
	       COALESCE((SELECT json_agg(json_build_object(
	                          'user_id', u.id::text,
	                          'username', u.username,
	                          'avatar_url', u.avatar_url,
	                          'is_admin', CASE WHEN u.id = c.admin_id THEN true ELSE false END,
	                          'joined_at', pp.joined_at)
	                        ORDER BY u.username ASC, u.id ASC)
	                   FROM chat.participants pp
	                   JOIN chat.users u ON u.id = pp.user_id
	                  WHERE pp.conversation_id = c.id), '[]'::json) AS participants
	  FROM chat.participants me
	  JOIN chat.conversations c ON c.id = me.conversation_id
	  LEFT JOIN LATERAL (
	        SELECT m.id, m.sender_id, m.content, m.forwarded_from, m.created_at
	          FROM chat.messages m
	         WHERE m.conversation_id = c.id
	         ORDER BY m.created_at DESC, m.id DESC
	         LIMIT 1) lm ON true
	 WHERE me.user_id = $1::uuid`

func scanConversationRecord(row pgx.Row) (chat.ConversationRecord, error) {
	var (
		rec          chat.ConversationRecord
		kind         string
		lastID       *string
		lastSender   *string
		lastContent  *string
		lastFwd      *string
		lastAt       *time.Time
		unread       int64
		participants []byte
	)
	err := row.Scan(
		&rec.Conversation.ID, &kind, &rec.Conversation.Name, &rec.Conversation.AdminID, &rec.Conversation.CreatedAt,
		&rec.IsMuted,
		&lastID, &lastSender, &lastContent, &lastFwd, &lastAt,
		&unread, &rec.PinnedMessageIDs, &participants,
	)
	if err != nil {
		return chat.ConversationRecord{}, err
	}
	rec.Conversation.Kind = chat.Kind(kind)
	rec.UnreadCount = int(unread)
	if lastID != nil {
		rec.LastMessage = &chat.Message{
			ID:             *lastID,
			ConversationID: rec.Conversation.ID,
			SenderID:       deref(lastSender),
			Content:        deref(lastContent),
			ForwardedFrom:  lastFwd,
			CreatedAt:      derefTime(lastAt),
		}
	}
	if rec.PinnedMessageIDs == nil {
		rec.PinnedMessageIDs = []string{}
	}
	if err := json.Unmarshal(participants, &rec.Participants); err != nil {
		return chat.ConversationRecord{}, fmt.Errorf("decode participants: %w", err)
	}
	return rec, nil
}

func (s *pgChatStore) ListConversationRecords(ctx context.Context, userID string) ([]chat.ConversationRecord, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.q.Query(ctx, conversationRecordSQL+`
	 ORDER BY lm.created_at DESC NULLS LAST, c.created_at DESC, c.id`, userID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	records := make([]chat.ConversationRecord, 0)
	for rows.Next() {
		rec, err := scanConversationRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

func (s *pgChatStore) GetConversationRecord(ctx context.Context, conversationID string, userID string) (*chat.ConversationRecord, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rec, err := scanConversationRecord(s.q.QueryRow(ctx, conversationRecordSQL+`
	   AND c.id = $2::uuid`, userID, conversationID))
	if err != nil {
		return nil, translate(err)
	}
	return &rec, nil
}

func (s *pgChatStore) GetUnreadState(ctx context.Context, conversationID string, userID string) (chat.UnreadState, error) {
	if err := s.ready(); err != nil {
		return chat.UnreadState{}, err
	}
	st := chat.UnreadState{ConversationID: conversationID}
	var unread int64
	err := s.q.QueryRow(ctx, `
		SELECT p.is_muted,
		       (SELECT count(*)
		          FROM chat.messages m
		         WHERE m.conversation_id = p.conversation_id
		           AND m.sender_id <> p.user_id
		           AND NOT EXISTS (SELECT 1 FROM chat.reads r
		                            WHERE r.message_id = m.id AND r.user_id = p.user_id))
		  FROM chat.participants p
		 WHERE p.conversation_id = $1::uuid AND p.user_id = $2::uuid
	`, conversationID, userID).Scan(&st.IsMuted, &unread)
	if err != nil {
		return chat.UnreadState{}, translate(err)
	}
	st.UnreadCount = int(unread)
	return st, nil
}

// ===================== Plain reads =====================

func (s *pgChatStore) GetMessagesByConversation(ctx context.Context, conversationID string, limit int, offset int) ([]chat.Message, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.q.Query(ctx, `
		SELECT id::text, conversation_id::text, sender_id::text, content, forwarded_from, created_at
		FROM chat.messages
		WHERE conversation_id = $1::uuid
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, conversationID, limit, offset)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	msgs := make([]chat.Message, 0, limit)
	for rows.Next() {
		var msg chat.Message
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Content, &msg.ForwardedFrom, &msg.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return msgs, nil
}

func (s *pgChatStore) IsParticipant(ctx context.Context, conversationID string, userID string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	var ok bool
	err := s.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM chat.participants
			WHERE conversation_id = $1::uuid AND user_id = $2::uuid
		)
	`, conversationID, userID).Scan(&ok)
	if err != nil {
		return false, translate(err)
	}
	return ok, nil
}

func (s *pgChatStore) ListParticipantIDs(ctx context.Context, conversationID string) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.collectIDs(ctx, `
		SELECT user_id::text FROM chat.participants
		WHERE conversation_id = $1::uuid
		ORDER BY joined_at, id
	`, conversationID)
}

func (s *pgChatStore) ListConversationIDs(ctx context.Context, userID string) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.collectIDs(ctx, `
		SELECT conversation_id::text FROM chat.participants
		WHERE user_id = $1::uuid
		ORDER BY conversation_id
	`, userID)
}

func (s *pgChatStore) ListPinnedMessageIDs(ctx context.Context, conversationID string) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.collectIDs(ctx, `
		SELECT message_id::text FROM chat.pins
		WHERE conversation_id = $1::uuid
		ORDER BY pinned_at DESC, id DESC
	`, conversationID)
}

func (s *pgChatStore) collectIDs(ctx context.Context, sql string, args ...any) ([]string, error) {
	rows, err := s.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, translate(err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, translate(err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

func (s *pgChatStore) FindUsers(ctx context.Context, userIDs []string) ([]chat.User, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if len(userIDs) == 0 {
		return []chat.User{}, nil
	}
	rows, err := s.q.Query(ctx, `
		SELECT id::text, username, avatar_url
		FROM chat.users
		WHERE id::text = ANY($1::text[])
	`, userIDs)
	if err != nil {
		return nil, translate(err)
	}
	found, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (chat.User, error) {
		var u chat.User
		err := row.Scan(&u.ID, &u.Username, &u.AvatarURL)
		return u, err
	})
	if err != nil {
		return nil, err
	}

	// keep the caller's order
	pos := make(map[string]int, len(userIDs))
	for i, id := range userIDs {
		if _, ok := pos[id]; !ok {
			pos[id] = i
		}
	}
	sort.Slice(found, func(i, j int) bool { return pos[found[i].ID] < pos[found[j].ID] })
	return found, nil
}

// ===================== Locks =====================

func (s *pgChatStore) LockConversation(ctx context.Context, conversationID string) (chat.Conversation, error) {
	if err := s.ready(); err != nil {
		return chat.Conversation{}, err
	}
	var (
		c    chat.Conversation
		kind string
	)
	err := s.q.QueryRow(ctx, `
		SELECT id::text, kind, name, admin_id::text, created_at
		FROM chat.conversations
		WHERE id = $1::uuid
		FOR UPDATE
	`, conversationID).Scan(&c.ID, &kind, &c.Name, &c.AdminID, &c.CreatedAt)
	if err != nil {
		return chat.Conversation{}, translate(err)
	}
	c.Kind = chat.Kind(kind)
	return c, nil
}

func (s *pgChatStore) LockDialogPair(ctx context.Context, userA string, userB string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if userB < userA {
		userA, userB = userB, userA
	}
	_, err := s.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, "dialog:"+userA+":"+userB)
	return translate(err)
}

func (s *pgChatStore) FindDialog(ctx context.Context, userA string, userB string) (string, error) {
	if err := s.ready(); err != nil {
		return "", err
	}
	var id string
	err := s.q.QueryRow(ctx, `
		SELECT c.id::text
		FROM chat.conversations c
		WHERE c.kind = 'dialog'
		  AND EXISTS (SELECT 1 FROM chat.participants p WHERE p.conversation_id = c.id AND p.user_id = $1::uuid)
		  AND EXISTS (SELECT 1 FROM chat.participants p WHERE p.conversation_id = c.id AND p.user_id = $2::uuid)
		  AND (SELECT count(*) FROM chat.participants p WHERE p.conversation_id = c.id) = 2
		ORDER BY c.id
		LIMIT 1
	`, userA, userB).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", translate(err)
	}
	return id, nil
}

func (s *pgChatStore) ListParticipants(ctx context.Context, conversationID string) ([]chat.Participant, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.q.Query(ctx, `
		SELECT id, conversation_id::text, user_id::text, joined_at, is_muted
		FROM chat.participants
		WHERE conversation_id = $1::uuid
		ORDER BY joined_at, id
	`, conversationID)
	if err != nil {
		return nil, translate(err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (chat.Participant, error) {
		var p chat.Participant
		err := row.Scan(&p.RowID, &p.ConversationID, &p.UserID, &p.JoinedAt, &p.IsMuted)
		return p, err
	})
}

// ===================== Mutations =====================

func (s *pgChatStore) CreateConversation(ctx context.Context, c chat.Conversation) (chat.Conversation, error) {
	if err := s.ready(); err != nil {
		return chat.Conversation{}, err
	}
	err := s.q.QueryRow(ctx, `
		INSERT INTO chat.conversations (kind, name, admin_id, created_at)
		VALUES ($1, $2, $3::uuid, COALESCE($4, now()))
		RETURNING id::text, created_at
	`, string(c.Kind), c.Name, c.AdminID, nullTime(c.CreatedAt)).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return chat.Conversation{}, translate(err)
	}
	return c, nil
}

func (s *pgChatStore) DeleteConversation(ctx context.Context, conversationID string) error {
	return s.execOne(ctx, `DELETE FROM chat.conversations WHERE id = $1::uuid`, conversationID)
}

func (s *pgChatStore) UpdateConversationName(ctx context.Context, conversationID string, name string) error {
	return s.execOne(ctx, `UPDATE chat.conversations SET name = $2 WHERE id = $1::uuid`, conversationID, name)
}

func (s *pgChatStore) UpdateConversationAdmin(ctx context.Context, conversationID string, adminID *string) error {
	return s.execOne(ctx, `UPDATE chat.conversations SET admin_id = $2::uuid WHERE id = $1::uuid`, conversationID, adminID)
}

func (s *pgChatStore) InsertParticipant(ctx context.Context, p chat.Participant) (chat.Participant, error) {
	if err := s.ready(); err != nil {
		return chat.Participant{}, err
	}
	err := s.q.QueryRow(ctx, `
		INSERT INTO chat.participants (conversation_id, user_id, joined_at, is_muted)
		VALUES ($1::uuid, $2::uuid, COALESCE($3, now()), $4)
		RETURNING id, joined_at
	`, p.ConversationID, p.UserID, nullTime(p.JoinedAt), p.IsMuted).Scan(&p.RowID, &p.JoinedAt)
	if err != nil {
		return chat.Participant{}, translate(err)
	}
	return p, nil
}

func (s *pgChatStore) DeleteParticipant(ctx context.Context, conversationID string, userID string) error {
	return s.execOne(ctx, `
		DELETE FROM chat.participants
		WHERE conversation_id = $1::uuid AND user_id = $2::uuid
	`, conversationID, userID)
}

func (s *pgChatStore) SetParticipantMuted(ctx context.Context, conversationID string, userID string, muted bool) error {
	return s.execOne(ctx, `
		UPDATE chat.participants
		SET is_muted = $3
		WHERE conversation_id = $1::uuid AND user_id = $2::uuid
	`, conversationID, userID, muted)
}

func (s *pgChatStore) InsertMessage(ctx context.Context, m chat.Message) (chat.Message, error) {
	if err := s.ready(); err != nil {
		return chat.Message{}, err
	}
	err := s.q.QueryRow(ctx, `
		INSERT INTO chat.messages (conversation_id, sender_id, content, forwarded_from, created_at)
		VALUES ($1::uuid, $2::uuid, $3, $4, COALESCE($5, now()))
		RETURNING id::text, created_at
	`, m.ConversationID, m.SenderID, m.Content, m.ForwardedFrom, nullTime(m.CreatedAt)).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return chat.Message{}, translate(err)
	}
	return m, nil
}

func (s *pgChatStore) FindMessage(ctx context.Context, messageID string) (chat.Message, error) {
	if err := s.ready(); err != nil {
		return chat.Message{}, err
	}
	var m chat.Message
	err := s.q.QueryRow(ctx, `
		SELECT id::text, conversation_id::text, sender_id::text, content, forwarded_from, created_at
		FROM chat.messages
		WHERE id = $1::uuid
	`, messageID).Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.ForwardedFrom, &m.CreatedAt)
	if err != nil {
		return chat.Message{}, translate(err)
	}
	return m, nil
}

func (s *pgChatStore) InsertRead(ctx context.Context, messageID string, userID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	_, err := s.q.Exec(ctx, `
		INSERT INTO chat.reads (message_id, user_id)
		VALUES ($1::uuid, $2::uuid)
		ON CONFLICT (message_id, user_id) DO NOTHING
	`, messageID, userID)
	return translate(err)
}

func (s *pgChatStore) MarkConversationRead(ctx context.Context, conversationID string, userID string) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	ct, err := s.q.Exec(ctx, `
		INSERT INTO chat.reads (message_id, user_id)
		SELECT m.id, $2::uuid
		FROM chat.messages m
		WHERE m.conversation_id = $1::uuid AND m.sender_id <> $2::uuid
		ON CONFLICT (message_id, user_id) DO NOTHING
	`, conversationID, userID)
	if err != nil {
		return 0, translate(err)
	}
	return ct.RowsAffected(), nil
}

func (s *pgChatStore) MarkConversationUnread(ctx context.Context, conversationID string, userID string) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	ct, err := s.q.Exec(ctx, `
		DELETE FROM chat.reads r
		USING chat.messages m
		WHERE r.message_id = m.id
		  AND m.conversation_id = $1::uuid
		  AND r.user_id = $2::uuid
	`, conversationID, userID)
	if err != nil {
		return 0, translate(err)
	}
	return ct.RowsAffected(), nil
}

func (s *pgChatStore) PinExists(ctx context.Context, conversationID string, messageID string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	var ok bool
	err := s.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM chat.pins
			WHERE conversation_id = $1::uuid AND message_id = $2::uuid
		)
	`, conversationID, messageID).Scan(&ok)
	if err != nil {
		return false, translate(err)
	}
	return ok, nil
}

func (s *pgChatStore) InsertPin(ctx context.Context, p chat.Pin) error {
	if err := s.ready(); err != nil {
		return err
	}
	_, err := s.q.Exec(ctx, `
		INSERT INTO chat.pins (conversation_id, message_id, pinned_by, pinned_at)
		VALUES ($1::uuid, $2::uuid, $3::uuid, COALESCE($4, now()))
		ON CONFLICT (conversation_id, message_id) DO NOTHING
	`, p.ConversationID, p.MessageID, p.PinnedBy, nullTime(p.PinnedAt))
	return translate(err)
}

func (s *pgChatStore) DeletePin(ctx context.Context, conversationID string, messageID string) error {
	return s.execOne(ctx, `
		DELETE FROM chat.pins
		WHERE conversation_id = $1::uuid AND message_id = $2::uuid
	`, conversationID, messageID)
}

// execOne runs a statement that must touch at least one row.
func (s *pgChatStore) execOne(ctx context.Context, sql string, args ...any) error {
	if err := s.ready(); err != nil {
		return err
	}
	ct, err := s.q.Exec(ctx, sql, args...)
	if err != nil {
		return translate(err)
	}
	if ct.RowsAffected() == 0 {
		return translate(pgx.ErrNoRows)
	}
	return nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
