package usecase

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-chatsync/internal/pkg/apperr"
	"go-chatsync/internal/pkg/chat/application/fanout"
)

func TestTogglePin_OrderIsMostRecentFirst(t *testing.T) {
	h := newHarness(t, "a", "b")
	conv := h.group("a", "Pins", "b")
	m1 := h.send("a", conv, "first")
	m2 := h.send("b", conv, "second")
	uc := NewTogglePinUseCase(h.deps)

	res, err := uc.Execute(h.ctx, TogglePinInput{UserID: h.id("a"), ConversationID: conv, MessageID: m1})
	require.NoError(t, err)
	assert.True(t, res.Pinned)
	assert.Equal(t, []string{m1}, res.PinnedMessageIDs)

	res, err = uc.Execute(h.ctx, TogglePinInput{UserID: h.id("b"), ConversationID: conv, MessageID: m2})
	require.NoError(t, err)
	assert.Equal(t, []string{m2, m1}, res.PinnedMessageIDs)

	res, err = uc.Execute(h.ctx, TogglePinInput{UserID: h.id("a"), ConversationID: conv, MessageID: m1})
	require.NoError(t, err)
	assert.False(t, res.Pinned)
	assert.Equal(t, []string{m2}, res.PinnedMessageIDs)
	assert.Equal(t, []string{m2}, h.detail("b", conv).PinnedMessageIDs)

	ds := h.pub.take()
	require.Len(t, ds, 3)
	last := ds[2]
	assert.Equal(t, fanout.AudienceRoom, last.Audience)
	assert.Equal(t, fanout.EventConversationPins, last.Event)
	assert.Equal(t, PinsPayload{ConversationID: conv, PinnedMessageIDs: []string{m2}}, decode[PinsPayload](t, last.Payload))
}

func TestTogglePin_TwiceRestoresState(t *testing.T) {
	h := newHarness(t, "a", "b")
	conv := h.dialog("a", "b")
	m1 := h.send("a", conv, "keep")
	m2 := h.send("a", conv, "flip")
	uc := NewTogglePinUseCase(h.deps)

	_, err := uc.Execute(h.ctx, TogglePinInput{UserID: h.id("a"), ConversationID: conv, MessageID: m1})
	require.NoError(t, err)
	before := h.detail("a", conv).PinnedMessageIDs

	_, err = uc.Execute(h.ctx, TogglePinInput{UserID: h.id("b"), ConversationID: conv, MessageID: m2})
	require.NoError(t, err)
	res, err := uc.Execute(h.ctx, TogglePinInput{UserID: h.id("b"), ConversationID: conv, MessageID: m2})
	require.NoError(t, err)
	assert.Equal(t, before, res.PinnedMessageIDs)
}

func TestTogglePin_Errors(t *testing.T) {
	h := newHarness(t, "a", "b", "mallory")
	conv := h.dialog("a", "b")
	other := h.dialog("a", "mallory")
	foreign := h.send("a", other, "elsewhere")
	own := h.send("a", conv, "here")
	uc := NewTogglePinUseCase(h.deps)

	_, err := uc.Execute(h.ctx, TogglePinInput{UserID: h.id("a"), ConversationID: conv, MessageID: foreign})
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	_, err = uc.Execute(h.ctx, TogglePinInput{UserID: h.id("a"), ConversationID: conv, MessageID: uuid.NewString()})
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	_, err = uc.Execute(h.ctx, TogglePinInput{UserID: h.id("mallory"), ConversationID: conv, MessageID: own})
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	_, err = uc.Execute(h.ctx, TogglePinInput{UserID: h.id("a"), ConversationID: conv, MessageID: "x"})
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidArgument))
	assert.Empty(t, h.pub.take())
}
