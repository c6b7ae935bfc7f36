package storage

import (
	"context"
	"path/filepath"
	"testing"

	"expense-client/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// DBTestSuite provides a test suite for database operations
type DBTestSuite struct {
	suite.Suite
	db  *DB
	ctx context.Context
}

// SetupTest runs before each test
func (suite *DBTestSuite) SetupTest() {
	db, err := NewDB(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db
	suite.ctx = context.Background()
}

// TearDownTest runs after each test
func (suite *DBTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *DBTestSuite) TestKeyValueRoundTrip() {
	err := suite.db.Set(suite.ctx, "token", "abc")
	require.NoError(suite.T(), err)

	value, err := suite.db.Get(suite.ctx, "token")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "abc", value)

	// Overwrite replaces the value
	require.NoError(suite.T(), suite.db.Set(suite.ctx, "token", "def"))
	value, err = suite.db.Get(suite.ctx, "token")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "def", value)

	require.NoError(suite.T(), suite.db.Remove(suite.ctx, "token"))
	_, err = suite.db.Get(suite.ctx, "token")
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *DBTestSuite) TestGetMissingKey() {
	_, err := suite.db.Get(suite.ctx, "missing")
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *DBTestSuite) TestRemoveMissingKey() {
	assert.NoError(suite.T(), suite.db.Remove(suite.ctx, "missing"))
}

func (suite *DBTestSuite) TestCreateTransaction() {
	id, err := suite.db.CreateTransaction(suite.ctx, 7, models.NewTransaction{
		Description: "Lunch", Sum: 10.5, Category: models.CategoryFood, Date: "2024-01-15",
	})
	require.NoError(suite.T(), err)

	txs, err := suite.db.ListTransactions(suite.ctx, 7)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), txs, 1)
	tx := txs[0]
	assert.Equal(suite.T(), id, tx.ID)
	assert.Equal(suite.T(), int64(7), tx.UserID)
	assert.Equal(suite.T(), "Lunch", tx.Description)
	assert.Equal(suite.T(), 10.5, tx.Sum)
	assert.Equal(suite.T(), models.CategoryFood, tx.Category)
	assert.Equal(suite.T(), "2024-01-15", tx.Date)
}

func (suite *DBTestSuite) TestListTransactions() {
	rows := []struct {
		user int64
		desc string
		date string
	}{
		{1, "Bus", "2024-01-10"},
		{1, "Coffee", "2024-01-12"},
		{2, "Rent", "2024-01-01"},
		{1, "Snack", "2024-01-12"},
	}
	for _, r := range rows {
		_, err := suite.db.CreateTransaction(suite.ctx, r.user, models.NewTransaction{
			Description: r.desc, Sum: 1, Category: models.CategoryOthers, Date: r.date,
		})
		require.NoError(suite.T(), err, "failed to create transaction: %s", r.desc)
	}

	result, err := suite.db.ListTransactions(suite.ctx, 1)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), result, 3, "expected only user 1 transactions")

	// Newest date first, later insert first within a day
	assert.Equal(suite.T(), "Snack", result[0].Description)
	assert.Equal(suite.T(), "Coffee", result[1].Description)
	assert.Equal(suite.T(), "Bus", result[2].Description)

	empty, err := suite.db.ListTransactions(suite.ctx, 42)
	require.NoError(suite.T(), err)
	assert.NotNil(suite.T(), empty)
	assert.Empty(suite.T(), empty)
}

func (suite *DBTestSuite) TestDeleteTransaction() {
	id, err := suite.db.CreateTransaction(suite.ctx, 1, models.NewTransaction{
		Description: "Taxi", Sum: 3, Category: models.CategoryTransport, Date: "2024-02-01",
	})
	require.NoError(suite.T(), err)

	// Other users cannot delete it
	assert.ErrorIs(suite.T(), suite.db.DeleteTransaction(suite.ctx, 2, id), ErrNotFound)

	require.NoError(suite.T(), suite.db.DeleteTransaction(suite.ctx, 1, id))
	assert.ErrorIs(suite.T(), suite.db.DeleteTransaction(suite.ctx, 1, id), ErrNotFound)

	count, err := suite.db.TransactionCount(suite.ctx)
	require.NoError(suite.T(), err)
	assert.Zero(suite.T(), count)
}

// TestDBSuite runs the database test suite
func TestDBSuite(t *testing.T) {
	suite.Run(t, new(DBTestSuite))
}

func TestNewDB_PersistsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")
	ctx := context.Background()

	db, err := NewDB(path)
	require.NoError(t, err)
	require.NoError(t, db.Set(ctx, "user", `{"id":1}`))
	require.NoError(t, db.Close())

	db, err = NewDB(path)
	require.NoError(t, err)
	defer db.Close()

	value, err := db.Get(ctx, "user")
	require.NoError(t, err)
	assert.Equal(t, `{"id":1}`, value)
}

func TestNewDB_InvalidPath(t *testing.T) {
	_, err := NewDB(t.TempDir())
	assert.Error(t, err)
}
