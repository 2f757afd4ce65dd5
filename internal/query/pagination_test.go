package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(v int) *int       { return &v }
func orderp(o OrderBy) *OrderBy { return &o }

func TestValidateMixedPaginationStrategy(t *testing.T) {
	p := Pagination{After: "x", Limit: intp(10)}
	assert.ErrorIs(t, p.Validate(), ErrMixedPaginationStrategy)
}

func TestValidateConflictingCursors(t *testing.T) {
	p := Pagination{After: "a", Before: "b", First: intp(1), Last: intp(1)}
	// ConflictingCursors must be detected before ConflictingFirstLast
	// since the rule table lists it first.
	assert.ErrorIs(t, p.Validate(), ErrConflictingCursors)
}

func TestValidateConflictingFirstLast(t *testing.T) {
	p := Pagination{First: intp(5), Last: intp(5)}
	assert.ErrorIs(t, p.Validate(), ErrConflictingFirstLast)
}

func TestValidateMissingFirstWithAfter(t *testing.T) {
	p := Pagination{After: "cursor-1"}
	assert.ErrorIs(t, p.Validate(), ErrMissingFirstWithAfter)
}

func TestValidateMissingLastWithBefore(t *testing.T) {
	p := Pagination{Before: "cursor-1"}
	assert.ErrorIs(t, p.Validate(), ErrMissingLastWithBefore)
}

func TestValidateInvalidFirstRange(t *testing.T) {
	p := Pagination{After: "c", First: intp(2000)}
	err := p.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidFirst)
	assert.Contains(t, err.Error(), "'first' parameter must be between 1 and 1000")
}

func TestValidateNegativeOffset(t *testing.T) {
	p := Pagination{Offset: intp(-1)}
	assert.ErrorIs(t, p.Validate(), ErrNegativeOffset)
}

func TestValidateOrderByWithCursor(t *testing.T) {
	p := Pagination{After: "c", First: intp(10), OrderBy: orderp(OrderDesc)}
	assert.ErrorIs(t, p.Validate(), ErrOrderByWithCursor)
}

func TestValidateHappyPathCursor(t *testing.T) {
	p := Pagination{After: "c", First: intp(50)}
	assert.NoError(t, p.Validate())
	assert.Equal(t, OrderAsc, p.EffectiveOrder())
	assert.Equal(t, 50, p.EffectiveLimit())
}

func TestValidateHappyPathOffset(t *testing.T) {
	p := Pagination{Limit: intp(20), Offset: intp(40)}
	assert.NoError(t, p.Validate())
	assert.Equal(t, 20, p.EffectiveLimit())
	assert.False(t, p.IsCursorBased())
}

func TestDefaultLimitWhenUnspecified(t *testing.T) {
	p := Pagination{}
	assert.NoError(t, p.Validate())
	assert.Equal(t, DefaultLimit, p.EffectiveLimit())
}

func TestBuildPlanCursorShape(t *testing.T) {
	p := Pagination{After: "00000000000000000100-0000000000-0000000000", First: intp(10)}
	plan := BuildPlan("blocks", "Block", p, "", "", nil)
	sql := plan.SQL()
	assert.Contains(t, sql, "SELECT * FROM blocks")
	assert.Contains(t, sql, "WHERE id > ")
	assert.Contains(t, sql, "ORDER BY id ASC")
	assert.Contains(t, sql, "LIMIT 10")
}

func TestBuildPlanOffsetShape(t *testing.T) {
	p := Pagination{Limit: intp(20), Offset: intp(5)}
	plan := BuildPlan("transactions", "Transaction", p, "tx_status = 'success'", "mainnet", nil)
	sql := plan.SQL()
	assert.Contains(t, sql, "WHERE tx_status = 'success' AND namespace = 'mainnet'")
	assert.Contains(t, sql, "LIMIT 20")
	assert.Contains(t, sql, "OFFSET 5")
}
