package catalog_repo

import (
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lotledger/internal/core/id"
	"lotledger/internal/core/types"
	"lotledger/internal/domain/catalog"
)

func TestProductRepo_InsertSQL(t *testing.T) {
	repo := NewProductRepo(nil)
	price := types.MustMoney("12.50")
	p := catalog.NewProduct("Coffee", &price)

	sql, args, err := repo.insertQuery(p).ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"INSERT INTO products (id,name,sale_price,active,supplier_id,lead_time_days,min_coverage_days,created_at,updated_at) "+
			"VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)", sql)
	require.Len(t, args, 9)
	assert.Equal(t, p.ID, args[0])
	assert.Equal(t, "Coffee", args[1])
}

func TestProductRepo_UpdateSQL(t *testing.T) {
	repo := NewProductRepo(nil)
	p := catalog.NewProduct("Tea", nil)
	p.UpdatedAt = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	sql, args, err := repo.updateQuery(p).ToSql()
	require.NoError(t, err)

	// SetMap sorts columns by name.
	assert.Equal(t,
		"UPDATE products SET active = $1, lead_time_days = $2, min_coverage_days = $3, name = $4, "+
			"sale_price = $5, supplier_id = $6, updated_at = $7 WHERE id = $8", sql)
	assert.Equal(t, p.ID, args[len(args)-1])
}

func TestProductRepo_SelectSQL(t *testing.T) {
	repo := NewProductRepo(nil)

	sql, _, err := repo.baseSelect().OrderBy("name", "id").ToSql()
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT id, name, sale_price, active, supplier_id, lead_time_days, min_coverage_days, created_at, updated_at "+
			"FROM products ORDER BY name, id", sql)
}

func TestProductRepo_DeleteSQL(t *testing.T) {
	repo := NewProductRepo(nil)
	productID := id.New()

	sql, args, err := repo.deleteQuery(productID).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM products WHERE id = $1", sql)
	assert.Equal(t, []any{productID}, args)
}

func TestIsForeignKeyViolation(t *testing.T) {
	assert.True(t, isForeignKeyViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isForeignKeyViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isForeignKeyViolation(errors.New("boom")))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("boom")))
}
