package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type connFlag bool

func (c connFlag) IsConnected() bool { return bool(c) }

func TestChecker(t *testing.T) {
	up := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("down") })

	tests := []struct {
		name    string
		checker *Checker
		want    Status
		code    int
	}{
		{"all up", NewChecker(up, up, connFlag(true)), Status{StatusConnected, StatusConnected, StatusConnected}, http.StatusOK},
		{"optional deps absent", NewChecker(up, nil, nil), Status{StatusConnected, StatusDisabled, StatusDisabled}, http.StatusOK},
		{"database down", NewChecker(down, up, nil), Status{StatusDisconnected, StatusConnected, StatusDisabled}, http.StatusServiceUnavailable},
		{"nats down", NewChecker(up, up, connFlag(false)), Status{StatusConnected, StatusConnected, StatusDisconnected}, http.StatusServiceUnavailable},
	}

	gin.SetMode(gin.TestMode)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.checker.Check(context.Background()))

			r := gin.New()
			r.GET("/health", tt.checker.Handler())
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tt.code, w.Code)
		})
	}
}
