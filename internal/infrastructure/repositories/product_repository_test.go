package repositories

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/catalog-service/configs"
	"github.com/avatarctic/catalog-service/internal/core/domain/product"
	"github.com/avatarctic/catalog-service/internal/infrastructure/db"
)

const testID = "6f1c2a8e-3b7d-4c1e-9a55-0d2f4e6b8a10"

func newProductRepo(t *testing.T) (*ProductRepository, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })
	database := db.Wrap(sqlx.NewDb(raw, "postgres"), &configs.DatabaseConfig{MaxOpenConns: 2, ConnectionTimeout: time.Second})
	return &ProductRepository{db: database, logger: logrus.New()}, mock
}

func productRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "description", "price", "sku", "created_at", "updated_at"})
}

func TestProductRepository_FindByID_InvalidIDSkipsDatabase(t *testing.T) {
	repo, mock := newProductRepo(t)

	_, err := repo.FindByID(context.Background(), "missing-id")
	require.Error(t, err)
	assert.True(t, errors.Is(err, product.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_FindByID_NoRows(t *testing.T) {
	repo, mock := newProductRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM products WHERE id = $1")).
		WithArgs(testID).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), testID)
	assert.ErrorIs(t, err, product.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_FindByID_ScansDecimalPrice(t *testing.T) {
	repo, mock := newProductRepo(t)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM products WHERE id = $1")).
		WithArgs(testID).
		WillReturnRows(productRows().AddRow(testID, "Widget", "", []byte("9.99"), "W-1", now, now))

	p, err := repo.FindByID(context.Background(), testID)
	require.NoError(t, err)
	assert.Equal(t, "Widget", p.Name)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("9.99")))
}

func TestProductRepository_FindAll(t *testing.T) {
	repo, mock := newProductRepo(t)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM products ORDER BY created_at DESC")).
		WillReturnRows(productRows().
			AddRow(testID, "Widget", "", "9.99", "W-1", now, now).
			AddRow("0b7e1d8c-9f1a-4c55-8a2e-3f4d5c6b7a89", "Gadget", "shiny", "4.50", "G-1", now, now))

	products, err := repo.FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Gadget", products[1].Name)
}

func TestProductRepository_FindAll_EmptyIsNotNil(t *testing.T) {
	repo, mock := newProductRepo(t)
	mock.ExpectQuery("FROM products").WillReturnRows(productRows())

	products, err := repo.FindAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, products)
	assert.Empty(t, products)
}

func TestProductRepository_Create_NormalizesBeforeInsert(t *testing.T) {
	repo, mock := newProductRepo(t)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO products (name, description, price, sku)")).
		WithArgs("Widget", "", decimal.RequireFromString("9.99"), "W-1").
		WillReturnRows(productRows().AddRow(testID, "Widget", "", "9.99", "W-1", now, now))

	in := &product.Product{Name: " Widget ", Price: decimal.RequireFromString("9.99"), SKU: "w-1"}
	created, err := repo.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, testID, created.ID)
	assert.Equal(t, " Widget ", in.Name, "input must not be mutated")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Create_DuplicateSKU(t *testing.T) {
	repo, mock := newProductRepo(t)
	mock.ExpectQuery("INSERT INTO products").
		WillReturnError(&pq.Error{Code: "23505", Detail: "Key (sku)=(W-1) already exists."})

	_, err := repo.Create(context.Background(), &product.Product{Name: "Widget", Price: decimal.NewFromInt(1), SKU: "W-1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, product.ErrDuplicateSKU)
	assert.ErrorIs(t, err, product.ErrWriteFailed)
}

func TestProductRepository_Create_DriverErrorIsWriteFailed(t *testing.T) {
	repo, mock := newProductRepo(t)
	mock.ExpectQuery("INSERT INTO products").WillReturnError(errors.New("connection reset"))

	_, err := repo.Create(context.Background(), &product.Product{Name: "Widget", Price: decimal.NewFromInt(1), SKU: "W-1"})
	assert.ErrorIs(t, err, product.ErrWriteFailed)
	assert.False(t, errors.Is(err, product.ErrDuplicateSKU))
}

func TestProductRepository_Update_ReturnsCanonicalRow(t *testing.T) {
	repo, mock := newProductRepo(t)
	now := time.Now()
	price := decimal.RequireFromString("19.99")
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE products")).
		WithArgs(testID, nil, nil, price, nil).
		WillReturnRows(productRows().AddRow(testID, "Widget", "", "19.99", "W-1", now, now))

	updated, err := repo.Update(context.Background(), testID, &product.UpdateProductRequest{Price: &price})
	require.NoError(t, err)
	assert.True(t, updated.Price.Equal(price))
	assert.Equal(t, "W-1", updated.SKU)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Update_Missing(t *testing.T) {
	repo, mock := newProductRepo(t)
	mock.ExpectQuery("UPDATE products").WillReturnError(sql.ErrNoRows)

	name := "New"
	_, err := repo.Update(context.Background(), testID, &product.UpdateProductRequest{Name: &name})
	assert.ErrorIs(t, err, product.ErrNotFound)
}

func TestProductRepository_Delete(t *testing.T) {
	repo, mock := newProductRepo(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM products WHERE id = $1")).
		WithArgs(testID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), testID))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Delete_NoRowsIsNotFound(t *testing.T) {
	repo, mock := newProductRepo(t)
	mock.ExpectExec("DELETE FROM products").WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), testID), product.ErrNotFound)
}
