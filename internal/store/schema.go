package store

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"webform-store/internal/catalog"
	"webform-store/internal/webform"
)

// SchemaState is the detected shape of the submission tables.
type SchemaState int

const (
	// SchemaAbsent means the tables do not exist.
	SchemaAbsent SchemaState = iota
	// SchemaOutdated means the tables predate the state and resource columns.
	SchemaOutdated
	// SchemaCurrent needs no action.
	SchemaCurrent
)

// schemaMarker is the newest column; its presence means the tables are current.
const schemaMarker = "resource_id"

// migrations adds the columns newer than the original header table, oldest
// first.
var migrations = []struct {
	column string
	step   catalog.Name
}{
	{"state", catalog.MigrateEntryState},
	{schemaMarker, catalog.MigrateEntryResourceID},
}

func (s SchemaState) String() string {
	switch s {
	case SchemaAbsent:
		return "absent"
	case SchemaOutdated:
		return "outdated"
	case SchemaCurrent:
		return "current"
	default:
		return "unknown"
	}
}

// DetectSchema probes the header table. A failing probe is reported as
// SchemaAbsent, not as an error.
func (s *Store) DetectSchema(ctx context.Context) (SchemaState, error) {
	conn, err := s.acquire(ctx)
	if err != nil {
		return SchemaAbsent, err
	}
	defer s.releaseConn(conn)

	state, _, err := s.detect(ctx, conn)
	return state, err
}

// EnsureSchema creates the tables when absent and adds the missing columns
// when outdated. It returns the state found before acting.
func (s *Store) EnsureSchema(ctx context.Context) (SchemaState, error) {
	conn, err := s.acquire(ctx)
	if err != nil {
		return SchemaAbsent, err
	}
	defer s.releaseConn(conn)

	state, cols, err := s.detect(ctx, conn)
	if err != nil {
		return state, err
	}

	var steps []catalog.Name
	switch state {
	case SchemaAbsent:
		steps = []catalog.Name{catalog.CreateEntriesTable, catalog.CreateDataTable}
	case SchemaOutdated:
		for _, m := range migrations {
			if !hasColumn(cols, m.column) {
				steps = append(steps, m.step)
			}
		}
	case SchemaCurrent:
		return state, nil
	}

	for _, name := range steps {
		if err := s.exec(ctx, conn, name); err != nil {
			return state, &webform.StoreError{Op: "apply " + string(name), Err: err}
		}
	}
	s.logger.Info("webform schema updated", "from", state.String(), "pool", s.pool)
	return state, nil
}

// detect also returns the header table columns when the probe succeeds.
func (s *Store) detect(ctx context.Context, conn *sqlx.Conn) (SchemaState, []string, error) {
	q, err := s.catalog.Lookup(catalog.CheckTables)
	if err != nil {
		return SchemaAbsent, nil, &webform.StoreError{Op: "detect schema", Err: err}
	}

	rows, err := conn.QueryxContext(ctx, conn.Rebind(q))
	if err != nil {
		attrs := []any{"pool", s.pool, "error", err}
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			attrs = append(attrs, "code", string(pqErr.Code))
		}
		s.logger.Info("webform tables not found", attrs...)
		return SchemaAbsent, nil, nil
	}
	defer s.closeRows(rows)

	cols, err := rows.Columns()
	if err != nil {
		s.logger.Warn("cannot read webform columns", "pool", s.pool, "error", err)
		return SchemaOutdated, nil, nil
	}
	if hasColumn(cols, schemaMarker) {
		return SchemaCurrent, cols, nil
	}
	s.logger.Log(ctx, slog.LevelInfo, "webform tables are outdated", "pool", s.pool, "columns", cols)
	return SchemaOutdated, cols, nil
}

func hasColumn(cols []string, name string) bool {
	for _, c := range cols {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}
