// Package store persists and reads form submissions through a query
// catalog, one pooled connection per operation.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"webform-store/internal/catalog"
	"webform-store/internal/query"
	"webform-store/internal/webform"
)

// ParamDBPool names the module parameter holding the pool to draw
// connections from.
const ParamDBPool = "db-pool"

// ParameterReader reads module configuration.
type ParameterReader interface {
	Parameter(name string) (string, bool)
}

// Params is a ParameterReader over a fixed map.
type Params map[string]string

// Parameter implements ParameterReader.
func (p Params) Parameter(name string) (string, bool) {
	v, ok := p[name]
	return v, ok
}

// ConnectionProvider hands out connections from a named pool.
type ConnectionProvider interface {
	Acquire(ctx context.Context, pool string) (*sqlx.Conn, error)
}

// Options configure a Store.
type Options struct {
	Params   ParameterReader
	Pools    ConnectionProvider
	Catalog  *catalog.Catalog
	Resolver ResourceResolver
	Logger   *slog.Logger
	Clock    func() time.Time
}

// Store represents the submission tables and the operations on them.
type Store struct {
	pool    string
	pools   ConnectionProvider
	catalog *catalog.Catalog
	chain   ResolutionChain
	logger  *slog.Logger
	now     func() time.Time
}

// WriteResult reports the outcome of WriteSubmission.
type WriteResult struct {
	EntryID     int64
	DateCreated int64
	ResourceID  uuid.UUID
	Written     int
	Failed      []*webform.PartialWriteError
}

// New creates a Store. A missing db-pool parameter, catalog or connection
// provider is a configuration error.
func New(opts Options) (*Store, error) {
	if opts.Params == nil {
		return nil, &webform.ConfigurationError{Item: "module parameters", Reason: "not provided"}
	}
	pool, ok := opts.Params.Parameter(ParamDBPool)
	if !ok || strings.TrimSpace(pool) == "" {
		return nil, &webform.ConfigurationError{Item: ParamDBPool, Reason: "module parameter is missing"}
	}
	if opts.Pools == nil {
		return nil, &webform.ConfigurationError{Item: "connection provider", Reason: "not provided"}
	}
	if opts.Catalog == nil {
		return nil, &webform.ConfigurationError{Item: "query catalog", Reason: "not provided"}
	}

	s := &Store{
		pool:    strings.TrimSpace(pool),
		pools:   opts.Pools,
		catalog: opts.Catalog,
		chain:   NewResolutionChain(opts.Resolver),
		logger:  opts.Logger,
		now:     opts.Clock,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Pool returns the name of the pool the store draws connections from.
func (s *Store) Pool() string { return s.pool }

// CountByForm returns the number of submissions per form id.
func (s *Store) CountByForm(ctx context.Context) (map[string]int, error) {
	q, err := s.catalog.Lookup(catalog.ReadFormNames)
	if err != nil {
		return nil, &webform.StoreError{Op: "count submissions by form", Err: err}
	}

	conn, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer s.releaseConn(conn)

	rows, err := conn.QueryxContext(ctx, conn.Rebind(q))
	if err != nil {
		return nil, &webform.StoreError{Op: "count submissions by form", Err: err}
	}
	defer s.closeRows(rows)

	counts := make(map[string]int)
	for rows.Next() {
		var formID string
		var n int
		if err := rows.Scan(&formID, &n); err != nil {
			return nil, &webform.StoreError{Op: "scan form count", Err: err}
		}
		counts[formID] = n
	}
	if err := rows.Err(); err != nil {
		return nil, &webform.StoreError{Op: "iterate form counts", Err: err}
	}
	return counts, nil
}

// CountByFilter returns the number of submissions matching f. Paging and
// ordering in f are ignored.
func (s *Store) CountByFilter(ctx context.Context, f webform.Filter) (int, error) {
	stmt, err := query.Build(s.catalog, f, true)
	if err != nil {
		return 0, err
	}

	conn, err := s.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer s.releaseConn(conn)

	var n int
	if err := conn.GetContext(ctx, &n, conn.Rebind(stmt.SQL), stmt.Args...); err != nil {
		return 0, &webform.StoreError{Op: "count submissions", Err: err}
	}
	return n, nil
}

// Delete removes a submission header and its field values.
func (s *Store) Delete(ctx context.Context, entryID int64) error {
	conn, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer s.releaseConn(conn)

	for _, name := range []catalog.Name{catalog.DeleteFormEntry, catalog.DeleteFormData} {
		if err := s.exec(ctx, conn, name, entryID); err != nil {
			return &webform.StoreError{Op: fmt.Sprintf("delete submission %d", entryID), Err: err}
		}
	}
	return nil
}

// ReadByID returns one submission with its field values, or
// webform.ErrNotFound.
func (s *Store) ReadByID(ctx context.Context, entryID int64) (*webform.Submission, error) {
	if entryID <= 0 {
		return nil, webform.ErrNotFound
	}
	subs, err := s.ReadByFilter(ctx, webform.Default().WithEntryID(entryID))
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, webform.ErrNotFound
	}
	return &subs[0], nil
}

// ReadFieldNames returns the distinct field names used by submissions of
// formID created within [start, end]. DateUnbounded leaves a side open.
func (s *Store) ReadFieldNames(ctx context.Context, formID string, start, end int64) ([]string, error) {
	q, err := s.catalog.Lookup(catalog.ReadFormFieldNames)
	if err != nil {
		return nil, &webform.StoreError{Op: "read field names", Err: err}
	}
	if end == webform.DateUnbounded {
		end = math.MaxInt64
	}

	conn, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer s.releaseConn(conn)

	var names []string
	if err := conn.SelectContext(ctx, &names, conn.Rebind(q), formID, start, end); err != nil {
		return nil, &webform.StoreError{Op: "read field names", Err: err}
	}
	return names, nil
}

// ReadByFilter returns the submissions matching f in the order f asks for.
// On a full read a window bounds the joined header/field rows, not
// submissions; page with a headers-only filter.
func (s *Store) ReadByFilter(ctx context.Context, f webform.Filter) ([]webform.Submission, error) {
	stmt, err := query.Build(s.catalog, f, false)
	if err != nil {
		return nil, err
	}

	conn, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer s.releaseConn(conn)

	rows, err := conn.QueryxContext(ctx, conn.Rebind(stmt.SQL), stmt.Args...)
	if err != nil {
		return nil, &webform.StoreError{Op: "read submissions", Err: err}
	}
	defer s.closeRows(rows)

	agg := NewAggregator(f.IsHeadersOnly(), s.resolveResource)
	for rows.Next() {
		var r Row
		if err := rows.StructScan(&r); err != nil {
			return nil, &webform.StoreError{Op: "scan submission row", Err: err}
		}
		agg.Add(ctx, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &webform.StoreError{Op: "iterate submission rows", Err: err}
	}
	return agg.Submissions(), nil
}

// ReadByFormAndDate returns the submissions of formID created within
// [start, end], newest first.
func (s *Store) ReadByFormAndDate(ctx context.Context, formID string, start, end int64) ([]webform.Submission, error) {
	return s.ReadByFilter(ctx, webform.Default().WithFormID(formID).WithDateRange(start, end))
}

// ReadForFieldValue returns the submissions of formID whose field name
// holds value.
func (s *Store) ReadForFieldValue(ctx context.Context, formID, name, value string) ([]webform.Submission, error) {
	return s.ReadByFilter(ctx, webform.Default().WithFormID(formID).WithField(name, value))
}

// WriteSubmission stores a new submission in the initial state. The header
// is written first; each field value is then written on its own, and a
// failing value is recorded in the result without stopping the rest.
func (s *Store) WriteSubmission(ctx context.Context, in webform.NewSubmission) (*WriteResult, error) {
	if strings.TrimSpace(in.FormID) == "" {
		return nil, &webform.StoreError{Op: "write submission", Err: errors.New("form id is empty")}
	}
	entryQ, err := s.catalog.Lookup(catalog.WriteFormEntry)
	if err != nil {
		return nil, &webform.StoreError{Op: "write submission", Err: err}
	}
	dataQ, err := s.catalog.Lookup(catalog.WriteFormData)
	if err != nil {
		return nil, &webform.StoreError{Op: "write submission", Err: err}
	}

	conn, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer s.releaseConn(conn)

	res := &WriteResult{
		DateCreated: s.now().UnixMilli(),
		ResourceID:  s.resolveResource(ctx, in.Resource),
	}
	err = conn.QueryRowxContext(ctx, conn.Rebind(entryQ),
		in.FormID, res.DateCreated, res.ResourceID.String(), webform.StateInitial).Scan(&res.EntryID)
	if err != nil {
		return nil, &webform.StoreError{Op: "write submission header", Err: err}
	}
	if len(in.Fields) == 0 {
		return res, nil
	}

	stmt, err := conn.PreparexContext(ctx, conn.Rebind(dataQ))
	if err != nil {
		for _, fv := range in.Fields {
			res.fail(s.logger, res.EntryID, fv, err)
		}
		return res, nil
	}
	defer s.closeStmt(stmt)

	for _, fv := range in.Fields {
		if _, err := stmt.ExecContext(ctx, res.EntryID, fv.Name, fv.Value); err != nil {
			res.fail(s.logger, res.EntryID, fv, err)
			continue
		}
		res.Written++
	}
	return res, nil
}

func (r *WriteResult) fail(logger *slog.Logger, entryID int64, fv webform.FieldValue, err error) {
	pe := &webform.PartialWriteError{EntryID: entryID, Field: fv.Name, Value: fv.Value, Err: err}
	logger.Error("field value not written", "entry_id", entryID, "field", fv.Name, "error", err)
	r.Failed = append(r.Failed, pe)
}

// UpdateFieldValue replaces every value of field name in a submission. A
// blank value removes the field.
func (s *Store) UpdateFieldValue(ctx context.Context, entryID int64, name, value string) error {
	conn, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer s.releaseConn(conn)

	if err := s.exec(ctx, conn, catalog.DeleteFormField, entryID, name); err != nil {
		return &webform.StoreError{Op: fmt.Sprintf("clear field %s of submission %d", name, entryID), Err: err}
	}
	if strings.TrimSpace(value) == "" {
		return nil
	}
	if err := s.exec(ctx, conn, catalog.WriteFormData, entryID, name, value); err != nil {
		return &webform.StoreError{Op: fmt.Sprintf("write field %s of submission %d", name, entryID), Err: err}
	}
	return nil
}

// UpdateState sets the workflow state of a submission.
func (s *Store) UpdateState(ctx context.Context, entryID int64, state int) error {
	conn, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer s.releaseConn(conn)

	if err := s.exec(ctx, conn, catalog.UpdateFormState, state, entryID); err != nil {
		return &webform.StoreError{Op: fmt.Sprintf("update state of submission %d", entryID), Err: err}
	}
	return nil
}

func (s *Store) acquire(ctx context.Context) (*sqlx.Conn, error) {
	conn, err := s.pools.Acquire(ctx, s.pool)
	if err != nil {
		return nil, &webform.StoreError{Op: "acquire connection", Err: err}
	}
	return conn, nil
}

func (s *Store) exec(ctx context.Context, conn *sqlx.Conn, name catalog.Name, args ...any) error {
	q, err := s.catalog.Lookup(name)
	if err != nil {
		return err
	}
	_, err = conn.ExecContext(ctx, conn.Rebind(q), args...)
	return err
}

func (s *Store) resolveResource(ctx context.Context, token string) uuid.UUID {
	id, ok := s.chain.Resolve(ctx, token)
	if !ok {
		s.logger.Debug("resource not resolved, using null id", "token", token)
	}
	return id
}

func (s *Store) closeRows(rows interface{ Close() error }) {
	if err := rows.Close(); err != nil {
		s.logger.Warn("failed to close result set", "error", err)
	}
}

func (s *Store) closeStmt(stmt *sqlx.Stmt) {
	if err := stmt.Close(); err != nil {
		s.logger.Warn("failed to close statement", "error", err)
	}
}

func (s *Store) releaseConn(conn *sqlx.Conn) {
	if err := conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		s.logger.Warn("failed to release connection", "pool", s.pool, "error", err)
	}
}
