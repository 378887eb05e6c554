package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/biokgraph/biokg/internal/kgerr"
	"github.com/biokgraph/biokg/internal/models"
	"github.com/biokgraph/biokg/internal/query"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "kg.db"), 5, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedEntities(t *testing.T, s *Store, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		label := "Gene"
		if i%3 == 0 {
			label = "Disease"
		}
		_, err := s.db.Exec(
			"INSERT INTO kg_entity (id, name, label, resource, description) VALUES (?, ?, ?, ?, '')",
			fmt.Sprintf("TEST:%04d", i), fmt.Sprintf("entity %d", i), label, "TEST")
		require.NoError(t, err)
	}
}

func uptr(v uint64) *uint64 { return &v }

func TestNewPagination(t *testing.T) {
	pg, err := NewPagination(nil, nil, 100)
	require.NoError(t, err)
	assert.Nil(t, pg, "absent pagination means unpaged")

	pg, err = NewPagination(uptr(2), nil, 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), pg.Page)
	assert.Equal(t, uint64(DefaultPageSize), pg.PageSize)
	assert.Equal(t, uint64(10), pg.Offset())

	_, err = NewPagination(uptr(0), uptr(10), 100)
	assert.ErrorIs(t, err, kgerr.ErrInvalidPagination)

	_, err = NewPagination(uptr(1), uptr(0), 100)
	assert.ErrorIs(t, err, kgerr.ErrInvalidPagination)

	_, err = NewPagination(uptr(1), uptr(500), 100)
	assert.ErrorIs(t, err, kgerr.ErrInvalidPagination)
}

func TestFetchRecordsPagination(t *testing.T) {
	s := newTestStore(t)
	seedEntities(t, s, 25)
	ctx := context.Background()

	var all []models.Entity
	for page := uint64(1); ; page++ {
		got, err := s.Entities(ctx, nil, &Pagination{Page: page, PageSize: 10}, nil)
		require.NoError(t, err)
		assert.Equal(t, uint64(25), got.Total, "total reflects the full match count on every page")
		assert.Equal(t, page, got.Page)
		if len(got.Records) == 0 {
			break
		}
		all = append(all, got.Records...)
	}

	// 25 rows at page size 10: pages of 10, 10, 5
	require.Len(t, all, 25)
	seen := make(map[string]struct{})
	for _, e := range all {
		_, dup := seen[e.ID]
		assert.False(t, dup, "row %s appeared on two pages", e.ID)
		seen[e.ID] = struct{}{}
	}
}

func TestFetchRecordsUnpaged(t *testing.T) {
	s := newTestStore(t)
	seedEntities(t, s, 25)

	got, err := s.Entities(context.Background(), nil, nil, nil)
	require.NoError(t, err)
	assert.Len(t, got.Records, 25)
	assert.Equal(t, uint64(25), got.Total)
	assert.Equal(t, uint64(0), got.Page)
	assert.Equal(t, uint64(0), got.PageSize)
}

func TestFetchRecordsFilteredTotal(t *testing.T) {
	s := newTestStore(t)
	seedEntities(t, s, 25)
	ctx := context.Background()

	filter, err := query.Parse(`{"operator": "eq", "field": "label", "value": "Disease"}`)
	require.NoError(t, err)

	got, err := s.Entities(ctx, filter, &Pagination{Page: 1, PageSize: 3}, nil)
	require.NoError(t, err)
	assert.Len(t, got.Records, 3)
	assert.Equal(t, uint64(9), got.Total, "total counts every filtered row, not just the page")
	for _, e := range got.Records {
		assert.Equal(t, "Disease", e.Label)
	}
}

func TestFetchRecordsNoMatches(t *testing.T) {
	s := newTestStore(t)
	seedEntities(t, s, 5)

	filter, err := query.Parse(`{"operator": "eq", "field": "id", "value": "NOPE:0"}`)
	require.NoError(t, err)

	got, err := s.Entities(context.Background(), filter, &Pagination{Page: 1, PageSize: 10}, nil)
	require.NoError(t, err)
	assert.NotNil(t, got.Records, "empty page still serializes as [] not null")
	assert.Empty(t, got.Records)
	assert.Equal(t, uint64(0), got.Total)
}

func TestFetchRecordsOrderBy(t *testing.T) {
	s := newTestStore(t)
	seedEntities(t, s, 5)
	ctx := context.Background()

	got, err := s.Entities(ctx, nil, nil, &OrderSpec{Column: "id", Descending: true})
	require.NoError(t, err)
	require.Len(t, got.Records, 5)
	assert.Equal(t, "TEST:0004", got.Records[0].ID)

	_, err = s.Entities(ctx, nil, nil, &OrderSpec{Column: "id; DROP TABLE kg_entity"})
	assert.ErrorIs(t, err, kgerr.ErrUnknownField)
}

func TestFetchRecordsRejectsUnknownFilterField(t *testing.T) {
	s := newTestStore(t)

	filter, err := query.Parse(`{"operator": "eq", "field": "password", "value": "x"}`)
	require.NoError(t, err)

	_, err = s.Entities(context.Background(), filter, nil, nil)
	assert.ErrorIs(t, err, kgerr.ErrUnknownField)
}
