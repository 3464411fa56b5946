package returns

import (
	"testing"

	"github.com/erp/posledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusApproved, true},
		{StatusPending, StatusRejected, true},
		{StatusPending, StatusCompleted, true},
		{StatusApproved, StatusCompleted, true},
		{StatusApproved, StatusRejected, false},
		{StatusApproved, StatusPending, false},
		{StatusRejected, StatusCompleted, false},
		{StatusCompleted, StatusPending, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus("APPROVED")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, st)

	_, err = ParseStatus("approved")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestReturnTransaction_Items(t *testing.T) {
	_, err := NewReturnTransaction(uuid.Nil, uuid.New())
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	r, err := NewReturnTransaction(uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, StatusPending, r.Status)

	a, err := r.AddItem(uuid.New(), uuid.New(), dec("2"), dec("3.50"))
	require.NoError(t, err)
	aID := a.ID
	_, err = r.AddItem(uuid.New(), uuid.New(), dec("1"), dec("10"))
	require.NoError(t, err)
	assert.True(t, dec("17").Equal(r.TotalRefund), r.TotalRefund.String())

	_, err = r.AddItem(uuid.New(), uuid.New(), dec("0"), dec("1"))
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	removed, err := r.RemoveItem(aID)
	require.NoError(t, err)
	assert.True(t, dec("2").Equal(removed.Quantity))
	assert.True(t, dec("10").Equal(r.TotalRefund))

	_, err = r.RemoveItem(aID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestReturnTransaction_ChangeStatus(t *testing.T) {
	r, err := NewReturnTransaction(uuid.New(), uuid.New())
	require.NoError(t, err)
	_, err = r.AddItem(uuid.New(), uuid.New(), dec("1"), dec("1"))
	require.NoError(t, err)
	itemID := r.Items[0].ID

	actor := uuid.New()
	require.NoError(t, r.ChangeStatus(StatusApproved, actor))
	assert.Equal(t, actor, *r.StatusChangedBy)

	_, err = r.RemoveItem(itemID)
	assert.ErrorIs(t, err, shared.ErrInvalidState, "only pending returns lose items")

	assert.ErrorIs(t, r.ChangeStatus(StatusRejected, actor), shared.ErrInvalidState)
	require.NoError(t, r.ChangeStatus(StatusCompleted, actor))

	_, err = r.AddItem(uuid.New(), uuid.New(), dec("1"), dec("1"))
	assert.ErrorIs(t, err, shared.ErrInvalidState)
	assert.ErrorIs(t, r.ChangeStatus(Status("BOGUS"), actor), shared.ErrInvalidInput)
}
