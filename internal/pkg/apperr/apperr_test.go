package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "without cause",
			err:      NotFound("conversation not found"),
			expected: "conversation not found",
		},
		{
			name:     "with cause",
			err:      Wrap(KindInternal, "internal error", errors.New("connection reset")),
			expected: "internal error: connection reset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Kind
	}{
		{name: "app error", err: Forbidden("only the admin can rename"), expected: KindForbidden},
		{name: "wrapped app error", err: fmt.Errorf("rename: %w", Conflict("already a member")), expected: KindConflict},
		{name: "standard error", err: errors.New("boom"), expected: KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, KindOf(tt.err))
		})
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("original")
	err := Wrap(KindInternal, "internal error", cause)

	assert.Same(t, cause, errors.Unwrap(err))
	assert.True(t, errors.Is(err, cause))
}

func TestWithDetails_DoesNotMutateReceiver(t *testing.T) {
	base := NotFound("users not found")
	withDetails := base.WithDetails(map[string]any{"missing_user_ids": []string{"a"}})

	assert.Nil(t, base.Details)
	assert.Equal(t, []string{"a"}, withDetails.Details["missing_user_ids"])
	assert.Equal(t, base.Kind, withDetails.Kind)
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindUnauthenticated: http.StatusUnauthorized,
		KindForbidden:       http.StatusForbidden,
		KindNotFound:        http.StatusNotFound,
		KindInvalidArgument: http.StatusBadRequest,
		KindConflict:        http.StatusConflict,
		KindInternal:        http.StatusInternalServerError,
		Kind("OTHER"):       http.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, HTTPStatus(kind), string(kind))
	}
}

func TestIsKind(t *testing.T) {
	assert.True(t, IsKind(InvalidArgument("bad id"), KindInvalidArgument))
	assert.False(t, IsKind(nil, KindInternal))
	assert.False(t, IsKind(NotFound("x"), KindConflict))
}
