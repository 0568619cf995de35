package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"webform-store/internal/webform"
)

// Row is one result row of a read. Header columns repeat for every field
// value of the same entry; the field columns are NULL for an entry without
// values and absent entirely on header-only reads.
type Row struct {
	EntryID     int64          `db:"entry_id"`
	DateCreated int64          `db:"date_created"`
	FormID      string         `db:"form_id"`
	State       int            `db:"state"`
	Resource    sql.NullString `db:"resource_id"`
	FieldName   sql.NullString `db:"field_name"`
	FieldValue  sql.NullString `db:"field_value"`
}

// ResolveFunc turns a stored resource token into an identifier. It never
// fails; unresolvable tokens map to webform.NullResourceID().
type ResolveFunc func(ctx context.Context, token string) uuid.UUID

// Aggregator folds a row stream into submissions. Rows of one entry must be
// contiguous; a new entry id finishes the previous submission.
type Aggregator struct {
	headersOnly bool
	resolve     ResolveFunc
	current     *webform.Submission
	out         []webform.Submission
}

// NewAggregator creates an aggregator. With headersOnly set, field columns
// are ignored.
func NewAggregator(headersOnly bool, resolve ResolveFunc) *Aggregator {
	return &Aggregator{headersOnly: headersOnly, resolve: resolve}
}

// Add consumes one row.
func (a *Aggregator) Add(ctx context.Context, r Row) {
	if a.current == nil || a.current.EntryID != r.EntryID {
		a.flush()
		a.current = &webform.Submission{
			EntryID:     r.EntryID,
			FormID:      r.FormID,
			DateCreated: r.DateCreated,
			State:       r.State,
			ResourceID:  a.resolveResource(ctx, r.Resource),
		}
	}
	if a.headersOnly || !r.FieldName.Valid {
		return
	}
	a.current.AddField(r.FieldName.String, r.FieldValue.String)
}

// Submissions finishes the last submission and returns all of them in row
// order.
func (a *Aggregator) Submissions() []webform.Submission {
	a.flush()
	return a.out
}

func (a *Aggregator) flush() {
	if a.current != nil {
		a.out = append(a.out, *a.current)
		a.current = nil
	}
}

func (a *Aggregator) resolveResource(ctx context.Context, token sql.NullString) uuid.UUID {
	if !token.Valid || a.resolve == nil {
		return webform.NullResourceID()
	}
	return a.resolve(ctx, token.String)
}

// Aggregate folds rows in one call.
func Aggregate(ctx context.Context, rows []Row, headersOnly bool, resolve ResolveFunc) []webform.Submission {
	agg := NewAggregator(headersOnly, resolve)
	for _, r := range rows {
		agg.Add(ctx, r)
	}
	return agg.Submissions()
}
