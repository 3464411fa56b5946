package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMockDB(t *testing.T) {
	mockDB := NewMockDB(t)

	assert.NotNil(t, mockDB.DB)
	assert.NotNil(t, mockDB.Mock)
	assert.NotNil(t, mockDB.SqlDB)
	mockDB.ExpectationsWereMet(t)
}

func TestNewSQLiteDB(t *testing.T) {
	db := NewSQLiteDB(t)

	for _, table := range []string{"products", "ledger_entries", "sales", "sale_items", "purchase_orders", "receipts", "return_transactions"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}

func TestNewTestUUID(t *testing.T) {
	assert.Equal(t, NewTestUUID("seed"), NewTestUUID("seed"))
	assert.NotEqual(t, NewTestUUID("seed"), NewTestUUID("other"))
	assert.Equal(t, NewTestUUID("test-cashier"), TestCashierID())
}

func TestContextWithTimeout(t *testing.T) {
	ctx, cancel := ContextWithTimeout(t, 10*time.Millisecond)
	defer cancel()

	<-ctx.Done()
	assert.ErrorIs(t, ctx.Err(), context.DeadlineExceeded)
}

func echoEngine() *gin.Engine {
	engine := gin.New()
	engine.POST("/echo", func(c *gin.Context) {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": gin.H{"code": "ERR_INVALID_JSON", "message": err.Error()}})
			return
		}
		body["actor"] = c.GetHeader("X-User-ID")
		c.JSON(http.StatusOK, gin.H{"success": true, "data": body})
	})
	return engine
}

func TestDo_JSONBodyAndHeaders(t *testing.T) {
	w := Do(t, echoEngine(), Request{
		Method:  http.MethodPost,
		Path:    "/echo",
		Body:    map[string]string{"sku": "COLA-330"},
		Headers: map[string]string{"X-User-ID": "cashier-1"},
	})

	require.Equal(t, http.StatusOK, w.Code)
	data := Data[map[string]string](t, w)
	assert.Equal(t, "COLA-330", data["sku"])
	assert.Equal(t, "cashier-1", data["actor"])
}

func TestDo_RawBody(t *testing.T) {
	w := Do(t, echoEngine(), Request{Method: http.MethodPost, Path: "/echo", Body: "{not json"})

	AssertErrorCode(t, w, http.StatusBadRequest, "ERR_INVALID_JSON")
	assert.Equal(t, false, JSONResponse(t, w)["success"])
}
