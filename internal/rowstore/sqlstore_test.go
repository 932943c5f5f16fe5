package rowstore

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyeh/ehiledger/internal/model"
)

func newMockStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLStore(db, SQLite), mock
}

func expectExists(mock sqlmock.Sqlmock, table string, n int) {
	mock.ExpectQuery(regexp.QuoteMeta(SQLite.TableExists)).
		WithArgs(table).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(n))
}

func TestFetchSelectsQuotedColumns(t *testing.T) {
	s, mock := newMockStore(t)
	expectExists(mock, "ARPB_TRANSACTIONS", 1)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "TX_ID", "AMOUNT" FROM "ARPB_TRANSACTIONS"`)).
		WillReturnRows(sqlmock.NewRows([]string{"TX_ID", "AMOUNT"}).
			AddRow([]byte("9001"), 330.0).
			AddRow("9002", nil))

	rows, err := s.Fetch(context.Background(), "ARPB_TRANSACTIONS", "TX_ID", "AMOUNT")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "9001", rows[0]["TX_ID"], "[]byte values are returned as strings")
	assert.Equal(t, 330.0, rows[0]["AMOUNT"])
	assert.Nil(t, rows[1]["AMOUNT"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchAllColumns(t *testing.T) {
	s, mock := newMockStore(t)
	expectExists(mock, "PAT_ENC", 1)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "PAT_ENC"`)).
		WillReturnRows(sqlmock.NewRows([]string{"PAT_ENC_CSN_ID"}).AddRow("1001"))

	rows, err := s.Fetch(context.Background(), "PAT_ENC")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "1001", rows[0]["PAT_ENC_CSN_ID"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchMissingTable(t *testing.T) {
	s, mock := newMockStore(t)
	expectExists(mock, "CL_REMIT", 0)

	_, err := s.Fetch(context.Background(), "CL_REMIT")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTableNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTables(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(SQLite.ListTables)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("ARPB_VISITS").AddRow("PAT_ENC"))

	names, err := s.Tables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ARPB_VISITS", "PAT_ENC"}, names)
}

func TestVisitMap(t *testing.T) {
	s, mock := newMockStore(t)
	expectExists(mock, VisitTable, 1)
	expectExists(mock, VisitTable, 1)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "PB_VISIT_NUM", "PRIM_ENC_CSN_ID" FROM "ARPB_VISITS"`)).
		WillReturnRows(sqlmock.NewRows([]string{VisitNumberCol, VisitCSNCol}).
			AddRow("V1", "1001.0").
			AddRow("V2", nil).
			AddRow([]byte("V3"), []byte("1003")))

	m, err := VisitMap(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"V1": "1001", "V3": "1003"}, m)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVisitMapWithoutTable(t *testing.T) {
	s, mock := newMockStore(t)
	expectExists(mock, VisitTable, 0)

	m, err := VisitMap(context.Background(), s)
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"PAT_ENC"`, QuoteIdent("PAT_ENC"))
	assert.Equal(t, `"a""b"`, QuoteIdent(`a"b`))
}

func TestCoverage(t *testing.T) {
	s, mock := newMockStore(t)
	for _, c := range model.AllCollections {
		n := 0
		if c.Table == "PAT_ENC" || c.Table == "ARPB_TRANSACTIONS" {
			n = 1
		}
		expectExists(mock, c.Table, n)
	}

	cov, err := Coverage(context.Background(), s)
	require.NoError(t, err)
	assert.Len(t, cov, len(model.AllCollections))
	assert.True(t, cov["encounters"])
	assert.True(t, cov["transactions"])
	assert.False(t, cov["allergies"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
