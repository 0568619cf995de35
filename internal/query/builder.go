// Package query turns a webform.Filter into a parameterized SQL statement
// using the fragments of a catalog.
package query

import (
	"strconv"
	"strings"

	"webform-store/internal/catalog"
	"webform-store/internal/webform"
)

// Statement is SQL text plus its positional arguments. Args line up one to
// one with the ? markers in SQL.
type Statement struct {
	SQL  string
	Args []any
}

// Predicate is one kind of WHERE condition. The constants are declared in
// the order the conditions appear in the generated statement.
type Predicate int

const (
	PredicateEntryID Predicate = iota
	PredicateFormID
	PredicateDateEnd
	PredicateDateStart
	PredicateResourceID
	PredicateStates
	PredicateFields
)

var predicates = []Predicate{
	PredicateEntryID,
	PredicateFormID,
	PredicateDateEnd,
	PredicateDateStart,
	PredicateResourceID,
	PredicateStates,
	PredicateFields,
}

func (p Predicate) String() string {
	switch p {
	case PredicateEntryID:
		return "entry_id"
	case PredicateFormID:
		return "form_id"
	case PredicateDateEnd:
		return "date_end"
	case PredicateDateStart:
		return "date_start"
	case PredicateResourceID:
		return "resource_id"
	case PredicateStates:
		return "states"
	case PredicateFields:
		return "fields"
	default:
		return "unknown"
	}
}

// applies reports whether the predicate contributes to the statement.
func (p Predicate) applies(f webform.Filter) bool {
	switch p {
	case PredicateEntryID:
		return f.EntryID() > 0
	case PredicateFormID:
		return f.FormID() != ""
	case PredicateDateEnd:
		return f.DateEnd() != webform.DateUnbounded
	case PredicateDateStart:
		return f.DateStart() != webform.DateUnbounded
	case PredicateResourceID:
		_, ok := f.ResourceID()
		return ok
	case PredicateStates:
		return len(f.States()) > 0
	case PredicateFields:
		return len(f.Fields()) > 0
	}
	return false
}

// render returns the condition text and the values bound by it, in
// placeholder order.
func (p Predicate) render(cat *catalog.Catalog, f webform.Filter) (string, []any, error) {
	switch p {
	case PredicateEntryID:
		q, err := cat.Lookup(catalog.FilterEntryID)
		return q, []any{f.EntryID()}, err
	case PredicateFormID:
		q, err := cat.Lookup(catalog.FilterFormID)
		return q, []any{f.FormID()}, err
	case PredicateDateEnd:
		q, err := cat.Lookup(catalog.FilterDateEnd)
		return q, []any{f.DateEnd()}, err
	case PredicateDateStart:
		q, err := cat.Lookup(catalog.FilterDateStart)
		return q, []any{f.DateStart()}, err
	case PredicateResourceID:
		id, _ := f.ResourceID()
		q, err := cat.Lookup(catalog.FilterResourceID)
		return q, []any{id.String()}, err
	case PredicateStates:
		states := f.States()
		marks := make([]string, len(states))
		args := make([]any, len(states))
		for i, s := range states {
			marks[i] = "?"
			args[i] = s
		}
		q, err := cat.LookupWith(catalog.FilterStates, strings.Join(marks, ", "))
		return q, args, err
	case PredicateFields:
		and, err := cat.Lookup(catalog.CondAnd)
		if err != nil {
			return "", nil, err
		}
		fields := f.Fields()
		parts := make([]string, 0, len(fields))
		args := make([]any, 0, 2*len(fields))
		for i, fv := range fields {
			q, err := cat.LookupWith(catalog.FilterField, strconv.Itoa(i))
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, q)
			args = append(args, fv.Name, fv.Value)
		}
		return strings.Join(parts, " "+and+" "), args, nil
	}
	return "", nil, nil
}

// Build assembles the read statement for f, or the count statement when
// count is set.
func Build(cat *catalog.Catalog, f webform.Filter, count bool) (Statement, error) {
	if err := f.Validate(); err != nil {
		return Statement{}, err
	}

	var base catalog.Name
	switch {
	case count:
		base = catalog.CountFormEntries
	case f.IsHeadersOnly():
		base = catalog.ReadFormEntry
	default:
		base = catalog.ReadFormData
	}
	from, err := cat.Lookup(base)
	if err != nil {
		return Statement{}, err
	}

	parts := []string{from}

	// One aliased join of the data table per field constraint.
	for i := range f.Fields() {
		join, err := cat.LookupWith(catalog.CondFieldFrom, strconv.Itoa(i))
		if err != nil {
			return Statement{}, err
		}
		parts = append(parts, join)
	}

	and, err := cat.Lookup(catalog.CondAnd)
	if err != nil {
		return Statement{}, err
	}
	var conds []string
	var args []any
	for _, p := range predicates {
		if !p.applies(f) {
			continue
		}
		cond, condArgs, err := p.render(cat, f)
		if err != nil {
			return Statement{}, err
		}
		conds = append(conds, cond)
		args = append(args, condArgs...)
	}
	if len(conds) > 0 {
		where, err := cat.Lookup(catalog.CondWhere)
		if err != nil {
			return Statement{}, err
		}
		parts = append(parts, where, strings.Join(conds, " "+and+" "))
	}

	if !count {
		order := catalog.CondOrderDesc
		if f.IsAscending() {
			order = catalog.CondOrderAsc
		}
		q, err := cat.Lookup(order)
		if err != nil {
			return Statement{}, err
		}
		parts = append(parts, q)
	}

	// Counts are never paged.
	if indexFrom, indexTo, ok := f.Window(); ok && !count {
		limit, err := cat.LookupWith(catalog.FilterLimit, strconv.Itoa(indexTo-indexFrom))
		if err != nil {
			return Statement{}, err
		}
		parts = append(parts, limit)
		if indexFrom != 0 {
			offset, err := cat.LookupWith(catalog.FilterOffset, strconv.Itoa(indexFrom))
			if err != nil {
				return Statement{}, err
			}
			parts = append(parts, offset)
		}
	}

	return Statement{SQL: strings.Join(parts, " "), Args: args}, nil
}
