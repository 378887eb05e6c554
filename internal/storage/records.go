package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/biokgraph/biokg/internal/kgerr"
	"github.com/biokgraph/biokg/internal/query"
)

// DefaultPageSize applies when a caller paginates without an explicit
// page_size.
const DefaultPageSize = 10

// Pagination selects one window of a result set. Page starts at 1.
type Pagination struct {
	Page     uint64
	PageSize uint64
}

// NewPagination validates page/page_size query inputs. Both absent means
// "unpaged": the caller gets every matching row and the response carries
// the page=0/page_size=0 sentinel. page=0 is rejected outright rather than
// coerced, since (page-1)*page_size underflows under unsigned arithmetic.
func NewPagination(page, pageSize *uint64, maxPageSize uint64) (*Pagination, error) {
	if page == nil && pageSize == nil {
		return nil, nil
	}

	p := Pagination{Page: 1, PageSize: DefaultPageSize}
	if page != nil {
		if *page == 0 {
			return nil, fmt.Errorf("%w: page must be at least 1", kgerr.ErrInvalidPagination)
		}
		p.Page = *page
	}
	if pageSize != nil {
		if *pageSize == 0 {
			return nil, fmt.Errorf("%w: page_size must be at least 1", kgerr.ErrInvalidPagination)
		}
		if maxPageSize > 0 && *pageSize > maxPageSize {
			return nil, fmt.Errorf("%w: page_size exceeds the maximum of %d", kgerr.ErrInvalidPagination, maxPageSize)
		}
		p.PageSize = *pageSize
	}
	return &p, nil
}

// Offset returns the number of rows to skip.
func (p *Pagination) Offset() uint64 {
	return (p.Page - 1) * p.PageSize
}

// OrderSpec names the column rows are sorted by. The column is validated
// against the same whitelist as filter fields.
type OrderSpec struct {
	Column     string
	Descending bool
}

// RecordPage is the uniform paged list response. Page and PageSize are
// both 0 when the query ran unpaged.
type RecordPage[T any] struct {
	Records  []T    `json:"records"`
	Total    uint64 `json:"total"`
	Page     uint64 `json:"page"`
	PageSize uint64 `json:"page_size"`
}

// RowScanner maps one result row onto a record.
type RowScanner[T any] func(*sql.Rows) (T, error)

// FetchRecords runs the two-query paged fetch against one table: a SELECT
// bounded by LIMIT/OFFSET for the window and an unbounded COUNT for the
// total, both sharing the compiled predicate so the total reflects the true
// match count regardless of the window.
func FetchRecords[T any](
	ctx context.Context,
	db *sql.DB,
	table string,
	columns []string,
	allowed map[string]struct{},
	pred *query.Predicate,
	pg *Pagination,
	order *OrderSpec,
	scan RowScanner[T],
) (*RecordPage[T], error) {
	if pred == nil {
		pred = query.AlwaysTrue()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s WHERE %s", strings.Join(columns, ", "), table, pred.Text)
	args := append([]any(nil), pred.Args...)

	if order != nil {
		if _, ok := allowed[order.Column]; !ok {
			return nil, fmt.Errorf("%w: cannot order by %q", kgerr.ErrUnknownField, order.Column)
		}
		direction := "ASC"
		if order.Descending {
			direction = "DESC"
		}
		fmt.Fprintf(&sb, " ORDER BY %s %s", order.Column, direction)
	}

	if pg != nil {
		sb.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, pg.PageSize, pg.Offset())
	}

	rows, err := db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, kgerr.Queryf("select %s: %v", table, err)
	}
	defer rows.Close()

	records := []T{}
	for rows.Next() {
		rec, err := scan(rows)
		if err != nil {
			return nil, kgerr.Queryf("scan %s row: %v", table, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, kgerr.Queryf("iterate %s rows: %v", table, err)
	}

	var total uint64
	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", table, pred.Text)
	if err := db.QueryRowContext(ctx, countSQL, pred.Args...).Scan(&total); err != nil {
		return nil, kgerr.Queryf("count %s: %v", table, err)
	}

	page := &RecordPage[T]{Records: records, Total: total}
	if pg != nil {
		page.Page = pg.Page
		page.PageSize = pg.PageSize
	}
	return page, nil
}
