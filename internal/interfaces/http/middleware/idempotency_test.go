package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/erp/posledger/internal/infrastructure/cache"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func idempotentRouter(store interface {
	MarkProcessed(context.Context, string, time.Duration) (bool, error)
	IsProcessed(context.Context, string) (bool, error)
	Release(context.Context, string) error
	Close() error
}, status *int, calls *int) *gin.Engine {
	router := gin.New()
	router.Use(Idempotency(store, time.Hour, zap.NewNop()))
	handler := func(c *gin.Context) {
		*calls++
		c.Status(*status)
	}
	router.POST("/sales/:id/void", handler)
	router.GET("/sales/:id", handler)
	return router
}

func send(router *gin.Engine, method, path, key string) int {
	req := httptest.NewRequest(method, path, nil)
	if key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w.Code
}

func TestIdempotency(t *testing.T) {
	t.Run("repeat of an accepted write is rejected", func(t *testing.T) {
		store := cache.NewInMemoryIdempotencyStore(time.Hour)
		defer store.Close()
		status, calls := http.StatusOK, 0
		router := idempotentRouter(store, &status, &calls)

		assert.Equal(t, http.StatusOK, send(router, http.MethodPost, "/sales/1/void", "k1"))
		assert.Equal(t, http.StatusConflict, send(router, http.MethodPost, "/sales/1/void", "k1"))
		assert.Equal(t, 1, calls)
	})

	t.Run("same key on another path is independent", func(t *testing.T) {
		store := cache.NewInMemoryIdempotencyStore(time.Hour)
		defer store.Close()
		status, calls := http.StatusOK, 0
		router := idempotentRouter(store, &status, &calls)

		send(router, http.MethodPost, "/sales/1/void", "k1")
		assert.Equal(t, http.StatusOK, send(router, http.MethodPost, "/sales/2/void", "k1"))
		assert.Equal(t, 2, calls)
	})

	t.Run("failed request releases its key", func(t *testing.T) {
		store := cache.NewInMemoryIdempotencyStore(time.Hour)
		defer store.Close()
		status, calls := http.StatusUnprocessableEntity, 0
		router := idempotentRouter(store, &status, &calls)

		send(router, http.MethodPost, "/sales/1/void", "k1")
		status = http.StatusOK
		assert.Equal(t, http.StatusOK, send(router, http.MethodPost, "/sales/1/void", "k1"))
		assert.Equal(t, 2, calls)
	})

	t.Run("reads and keyless writes pass through", func(t *testing.T) {
		store := cache.NewInMemoryIdempotencyStore(time.Hour)
		defer store.Close()
		status, calls := http.StatusOK, 0
		router := idempotentRouter(store, &status, &calls)

		send(router, http.MethodGet, "/sales/1", "k1")
		send(router, http.MethodGet, "/sales/1", "k1")
		send(router, http.MethodPost, "/sales/1/void", "")
		send(router, http.MethodPost, "/sales/1/void", "")
		assert.Equal(t, 4, calls)
		assert.Zero(t, store.Size())
	})
}

type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockIdempotencyStore) Close() error { return nil }

func TestIdempotency_StoreFailureLetsRequestThrough(t *testing.T) {
	store := new(MockIdempotencyStore)
	store.On("MarkProcessed", mock.Anything, "POST /sales/1/void k1", time.Hour).
		Return(false, errors.New("connection refused"))

	status, calls := http.StatusOK, 0
	router := idempotentRouter(store, &status, &calls)

	assert.Equal(t, http.StatusOK, send(router, http.MethodPost, "/sales/1/void", "k1"))
	assert.Equal(t, 1, calls)
	store.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
}
