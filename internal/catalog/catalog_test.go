package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webform-store/internal/webform"
)

func TestForDialect_DefinesEveryRequiredName(t *testing.T) {
	for _, dialect := range []string{DialectPostgres, DialectSQLite} {
		t.Run(dialect, func(t *testing.T) {
			c, err := ForDialect(dialect)
			require.NoError(t, err)
			for _, name := range Required() {
				q, err := c.Lookup(name)
				require.NoError(t, err, name)
				assert.NotEmpty(t, q, name)
			}
		})
	}
}

func TestForDialect_Unknown(t *testing.T) {
	_, err := ForDialect("oracle")
	var cfgErr *webform.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "dialect", cfgErr.Item)
}

func TestParse_MissingFragmentIsConfigurationError(t *testing.T) {
	data, err := definitions.ReadFile("postgres.yaml")
	require.NoError(t, err)

	var kept []string
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, string(CondWhere)+":") {
			continue
		}
		kept = append(kept, line)
	}

	_, err = Parse([]byte(strings.Join(kept, "\n")))
	var cfgErr *webform.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Reason, string(CondWhere))
}

func TestParse_BlankFragmentIsConfigurationError(t *testing.T) {
	data, err := definitions.ReadFile("sqlite.yaml")
	require.NoError(t, err)
	blanked := strings.Replace(string(data), `COND_AND: "AND"`, `COND_AND: "  "`, 1)
	require.NotEqual(t, string(data), blanked)

	_, err = Parse([]byte(blanked))
	var cfgErr *webform.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Reason, string(CondAnd))
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("READ_FORM_NAMES: [unterminated"))
	var cfgErr *webform.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestLoad_FromFile(t *testing.T) {
	data, err := definitions.ReadFile("sqlite.yaml")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "queries.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	q, err := c.Lookup(CondWhere)
	require.NoError(t, err)
	assert.Equal(t, "WHERE", q)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	var cfgErr *webform.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestLookup_Missing(t *testing.T) {
	c := &Catalog{queries: map[Name]string{}}
	_, err := c.Lookup("NOPE")

	var missing *MissingQueryError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, Name("NOPE"), missing.Name)
}

func TestLookupWith_ReplacesEveryOccurrence(t *testing.T) {
	c, err := ForDialect(DialectPostgres)
	require.NoError(t, err)

	q, err := c.LookupWith(FilterField, "3")
	require.NoError(t, err)
	assert.NotContains(t, q, Placeholder)
	assert.Equal(t, 2, strings.Count(q, "f3."))

	q, err = c.LookupWith(CondFieldFrom, "0")
	require.NoError(t, err)
	assert.Equal(t, "JOIN webform_data f0 ON f0.entry_id = e.entry_id", q)
}

func TestLookup_ConcurrentReaders(t *testing.T) {
	c, err := ForDialect(DialectSQLite)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, name := range Required() {
				_, _ = c.LookupWith(name, "1")
			}
		}()
	}
	wg.Wait()
}
