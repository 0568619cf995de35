// Package catalog maps symbolic query names to the SQL fragments of one
// dialect. A Catalog is built once at startup and is read-only afterwards.
package catalog

import (
	"embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"webform-store/internal/webform"
)

// Placeholder is the token LookupWith replaces.
const Placeholder = "${ph}"

// Supported dialects with an embedded definition.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

//go:embed postgres.yaml sqlite.yaml
var definitions embed.FS

// MissingQueryError is returned when a name has no fragment.
type MissingQueryError struct {
	Name Name
}

func (e *MissingQueryError) Error() string {
	return fmt.Sprintf("query %s is not defined", e.Name)
}

// Catalog holds the fragments of one dialect.
type Catalog struct {
	queries map[Name]string
}

// Parse reads a flat YAML mapping of NAME: fragment and checks that every
// required name is defined.
func Parse(data []byte) (*Catalog, error) {
	raw := make(map[string]string)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &webform.ConfigurationError{Item: "query catalog", Reason: err.Error()}
	}

	c := &Catalog{queries: make(map[Name]string, len(raw))}
	for k, v := range raw {
		c.queries[Name(k)] = strings.TrimSpace(v)
	}

	for _, name := range Required() {
		if c.queries[name] == "" {
			return nil, &webform.ConfigurationError{
				Item:   "query catalog",
				Reason: (&MissingQueryError{Name: name}).Error(),
			}
		}
	}
	return c, nil
}

// Load parses the definition file at path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &webform.ConfigurationError{Item: "query catalog", Reason: err.Error()}
	}
	return Parse(data)
}

// ForDialect returns the embedded catalog for dialect.
func ForDialect(dialect string) (*Catalog, error) {
	switch dialect {
	case DialectPostgres, DialectSQLite:
	default:
		return nil, &webform.ConfigurationError{Item: "dialect", Reason: fmt.Sprintf("unsupported dialect %q", dialect)}
	}
	data, err := definitions.ReadFile(dialect + ".yaml")
	if err != nil {
		return nil, &webform.ConfigurationError{Item: "dialect", Reason: err.Error()}
	}
	return Parse(data)
}

// Lookup returns the fragment for name.
func (c *Catalog) Lookup(name Name) (string, error) {
	q, ok := c.queries[name]
	if !ok {
		return "", &MissingQueryError{Name: name}
	}
	return q, nil
}

// LookupWith returns the fragment for name with every Placeholder replaced
// by ph.
func (c *Catalog) LookupWith(name Name, ph string) (string, error) {
	q, err := c.Lookup(name)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(q, Placeholder, ph), nil
}
