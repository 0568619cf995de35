package query

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webform-store/internal/catalog"
	"webform-store/internal/webform"
)

const (
	headersBase = "SELECT e.entry_id, e.date_created, e.form_id, e.state, e.resource_id FROM webform_entries e"
	dataBase    = "SELECT e.entry_id, e.date_created, e.form_id, e.state, e.resource_id, d.field_name, d.field_value " +
		"FROM webform_entries e LEFT JOIN webform_data d ON d.entry_id = e.entry_id"
	countBase = "SELECT COUNT(DISTINCT e.entry_id) AS entry_count FROM webform_entries e"
	orderDesc = "ORDER BY e.date_created DESC, e.entry_id DESC"
	orderAsc  = "ORDER BY e.date_created ASC, e.entry_id ASC"
)

func postgresCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.ForDialect(catalog.DialectPostgres)
	require.NoError(t, err)
	return cat
}

func TestBuild_EmptyFilter(t *testing.T) {
	cat := postgresCatalog(t)

	stmt, err := Build(cat, webform.Default(), false)
	require.NoError(t, err)
	assert.Equal(t, dataBase+" "+orderDesc, stmt.SQL)
	assert.NotContains(t, stmt.SQL, "WHERE")
	assert.Empty(t, stmt.Args)
}

func TestBuild_HeadersOnly(t *testing.T) {
	cat := postgresCatalog(t)

	stmt, err := Build(cat, webform.Headers(), false)
	require.NoError(t, err)
	assert.Equal(t, headersBase+" "+orderDesc, stmt.SQL)
	assert.NotContains(t, stmt.SQL, "webform_data")
	assert.Empty(t, stmt.Args)
}

func TestBuild_HeadersOnlyWithFieldsOnlyJoinsConstraints(t *testing.T) {
	cat := postgresCatalog(t)

	stmt, err := Build(cat, webform.Headers().WithField("email", "a@example.com"), false)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stmt.SQL, headersBase+" JOIN webform_data f0 ON f0.entry_id = e.entry_id"))
	assert.NotContains(t, stmt.SQL, "d.field_name")
	assert.NotContains(t, stmt.SQL, "LEFT JOIN")
	assert.Equal(t, []any{"email", "a@example.com"}, stmt.Args)
}

func TestBuild_PredicateOrder(t *testing.T) {
	cat := postgresCatalog(t)
	resource := uuid.MustParse("6f1c2a52-0f8e-4d7a-9f45-0c2f5a9b1e11")

	f := webform.Default().
		WithField("a", "1").
		WithStates(2, 1).
		WithResourceID(resource).
		WithDateRange(100, 200).
		WithFormID("contact").
		WithEntryID(7).
		WithField("b", "2").
		OrderAscending(true)

	stmt, err := Build(cat, f, false)
	require.NoError(t, err)

	want := dataBase +
		" JOIN webform_data f0 ON f0.entry_id = e.entry_id" +
		" JOIN webform_data f1 ON f1.entry_id = e.entry_id" +
		" WHERE e.entry_id = ? AND e.form_id = ? AND e.date_created <= ? AND e.date_created >= ?" +
		" AND e.resource_id = ? AND e.state IN (?, ?)" +
		" AND f0.field_name = ? AND f0.field_value = ? AND f1.field_name = ? AND f1.field_value = ?" +
		" " + orderAsc
	assert.Equal(t, want, stmt.SQL)
	assert.Equal(t, []any{
		int64(7), "contact", int64(200), int64(100), resource.String(),
		1, 2,
		"a", "1", "b", "2",
	}, stmt.Args)
}

func TestBuild_OpenDateBounds(t *testing.T) {
	cat := postgresCatalog(t)

	stmt, err := Build(cat, webform.Headers().WithDateRange(webform.DateUnbounded, 500), false)
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, "WHERE e.date_created <= ?")
	assert.NotContains(t, stmt.SQL, ">=")
	assert.Equal(t, []any{int64(500)}, stmt.Args)

	stmt, err = Build(cat, webform.Headers().WithDateRange(500, webform.DateUnbounded), false)
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, "WHERE e.date_created >= ?")
	assert.NotContains(t, stmt.SQL, "<=")
	assert.Equal(t, []any{int64(500)}, stmt.Args)
}

func TestBuild_FieldConstraints(t *testing.T) {
	cat := postgresCatalog(t)

	for n := 0; n <= 5; n++ {
		t.Run(fmt.Sprintf("%d fields", n), func(t *testing.T) {
			f := webform.Default()
			var want []any
			for i := 0; i < n; i++ {
				name, value := fmt.Sprintf("field%d", i), fmt.Sprintf("value%d", i)
				f = f.WithField(name, value)
				want = append(want, name, value)
			}

			stmt, err := Build(cat, f, false)
			require.NoError(t, err)
			assert.Equal(t, n, strings.Count(stmt.SQL, "JOIN webform_data f"))
			assert.Len(t, stmt.Args, 2*n)
			if n > 0 {
				assert.Equal(t, want, stmt.Args)
			}
		})
	}
}

func TestBuild_ArgsMatchPlaceholders(t *testing.T) {
	cat := postgresCatalog(t)

	filters := map[string]webform.Filter{
		"empty":        webform.Default(),
		"headers":      webform.Headers(),
		"entry":        webform.Default().WithEntryID(3),
		"states":       webform.Headers().WithStates(0, 1, 2, 3),
		"fields":       webform.Default().WithField("x", "y").WithField("z", "w"),
		"paged":        webform.Headers().WithFormID("f").WithWindow(10, 25),
		"everything":   webform.Default().WithEntryID(1).WithFormID("f").WithDateRange(1, 2).WithResourceID(uuid.New()).WithStates(4).WithField("k", "v").WithWindow(0, 5),
		"resource nil": webform.Default().WithResourceID(webform.NullResourceID()),
	}

	for name, f := range filters {
		for _, count := range []bool{false, true} {
			t.Run(fmt.Sprintf("%s/count=%v", name, count), func(t *testing.T) {
				stmt, err := Build(cat, f, count)
				require.NoError(t, err)
				assert.Equal(t, strings.Count(stmt.SQL, "?"), len(stmt.Args))
			})
		}
	}
}

func TestBuild_Pagination(t *testing.T) {
	cat := postgresCatalog(t)

	stmt, err := Build(cat, webform.Headers().WithWindow(10, 25), false)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(stmt.SQL, orderDesc+" LIMIT 15 OFFSET 10"), stmt.SQL)

	stmt, err = Build(cat, webform.Headers().WithWindow(0, 5), false)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(stmt.SQL, orderDesc+" LIMIT 5"), stmt.SQL)
	assert.NotContains(t, stmt.SQL, "OFFSET")
	assert.Empty(t, stmt.Args)
}

func TestBuild_InvalidWindow(t *testing.T) {
	cat := postgresCatalog(t)

	_, err := Build(cat, webform.Headers().WithWindow(25, 10), false)
	assert.ErrorIs(t, err, webform.ErrInvalidWindow)
}

func TestBuild_Count(t *testing.T) {
	cat := postgresCatalog(t)

	stmt, err := Build(cat, webform.Default(), true)
	require.NoError(t, err)
	assert.Equal(t, countBase, stmt.SQL)
	assert.Empty(t, stmt.Args)

	stmt, err = Build(cat, webform.Default().WithFormID("contact").WithField("a", "b").WithWindow(10, 20), true)
	require.NoError(t, err)
	assert.Equal(t, countBase+
		" JOIN webform_data f0 ON f0.entry_id = e.entry_id"+
		" WHERE e.form_id = ? AND f0.field_name = ? AND f0.field_value = ?", stmt.SQL)
	assert.Equal(t, []any{"contact", "a", "b"}, stmt.Args)
}

func TestPredicate_String(t *testing.T) {
	assert.Equal(t, "states", PredicateStates.String())
	assert.Equal(t, "unknown", Predicate(99).String())
	assert.Len(t, predicates, 7)
}
