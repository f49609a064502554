package register_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lotledger/internal/core/id"
)

const selectLots = "SELECT id, product_id, supplier_id, initial_quantity, current_quantity, unit_cost, arrived_at, origin, created_at FROM lots"

func TestLotRepo_AvailableSQL(t *testing.T) {
	repo := NewLotRepo(nil)
	productID := id.New()

	sql, args, err := repo.availableQuery(productID).ToSql()
	require.NoError(t, err)

	assert.Equal(t, selectLots+" WHERE product_id = $1 AND current_quantity > $2 ORDER BY arrived_at, id FOR UPDATE", sql)
	assert.Equal(t, []any{productID, 0}, args)
}

func TestLotRepo_LatestSQL(t *testing.T) {
	repo := NewLotRepo(nil)
	productID := id.New()

	sql, args, err := repo.latestQuery(productID).ToSql()
	require.NoError(t, err)

	assert.Equal(t, selectLots+" WHERE product_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1 FOR UPDATE", sql)
	assert.Equal(t, []any{productID}, args)
}

func TestLotRepo_DecrementSQL(t *testing.T) {
	repo := NewLotRepo(nil)
	lotID := id.New()

	sql, args, err := repo.decrementQuery(lotID, 7).ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"UPDATE lots SET current_quantity = current_quantity - $1 WHERE id = $2 AND current_quantity >= $3 RETURNING current_quantity",
		sql)
	assert.Equal(t, []any{int64(7), lotID, int64(7)}, args)
}

func TestLotRepo_IncrementSQL(t *testing.T) {
	repo := NewLotRepo(nil)
	lotID := id.New()

	sql, args, err := repo.incrementQuery(lotID, 3).ToSql()
	require.NoError(t, err)

	assert.Equal(t, "UPDATE lots SET current_quantity = current_quantity + $1 WHERE id = $2 RETURNING current_quantity", sql)
	assert.Equal(t, []any{int64(3), lotID}, args)
}
