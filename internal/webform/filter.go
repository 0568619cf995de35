package webform

import (
	"slices"

	"github.com/google/uuid"
)

// DateUnbounded leaves a date bound open.
const DateUnbounded int64 = 0

// Filter describes which submissions to read. It is immutable: every
// With method returns a new Filter and never touches the receiver, so one
// Filter value can be shared between goroutines and reused as a base.
// The zero value selects everything.
type Filter struct {
	entryID     int64
	formID      string
	dateStart   int64
	dateEnd     int64
	resourceID  uuid.UUID
	hasResource bool
	states      []int
	fields      []FieldValue
	headersOnly bool
	paged       bool
	indexFrom   int
	indexTo     int
	ascending   bool
}

// Default returns a filter selecting every submission with its field
// values.
func Default() Filter { return Filter{} }

// Headers returns a filter selecting every submission header without field
// values.
func Headers() Filter { return Filter{headersOnly: true} }

// WithEntryID restricts the filter to one entry. Zero clears it.
func (f Filter) WithEntryID(id int64) Filter {
	f.entryID = id
	return f
}

// WithFormID restricts the filter to one form. Empty clears it.
func (f Filter) WithFormID(formID string) Filter {
	f.formID = formID
	return f
}

// WithDateRange bounds the creation time, inclusive at both ends.
// DateUnbounded leaves a side open.
func (f Filter) WithDateRange(start, end int64) Filter {
	f.dateStart = start
	f.dateEnd = end
	return f
}

// WithResourceID restricts the filter to submissions owned by id.
func (f Filter) WithResourceID(id uuid.UUID) Filter {
	f.resourceID = id
	f.hasResource = true
	return f
}

// WithoutResourceID drops the resource restriction.
func (f Filter) WithoutResourceID() Filter {
	f.resourceID = uuid.Nil
	f.hasResource = false
	return f
}

// WithStates adds workflow states to the accepted set.
func (f Filter) WithStates(states ...int) Filter {
	merged := make([]int, 0, len(f.states)+len(states))
	merged = append(merged, f.states...)
	for _, s := range states {
		if !slices.Contains(merged, s) {
			merged = append(merged, s)
		}
	}
	slices.Sort(merged)
	f.states = merged
	return f
}

// WithField requires field name to hold value. Setting the same name again
// replaces the value but keeps the original position.
func (f Filter) WithField(name, value string) Filter {
	fields := slices.Clone(f.fields)
	idx := slices.IndexFunc(fields, func(fv FieldValue) bool { return fv.Name == name })
	if idx >= 0 {
		fields[idx].Value = value
	} else {
		fields = append(fields, FieldValue{Name: name, Value: value})
	}
	f.fields = fields
	return f
}

// HeadersOnly toggles reading headers without field values.
func (f Filter) HeadersOnly(on bool) Filter {
	f.headersOnly = on
	return f
}

// WithWindow pages the result to rows [from, to).
func (f Filter) WithWindow(from, to int) Filter {
	f.paged = true
	f.indexFrom = from
	f.indexTo = to
	return f
}

// WithoutWindow removes paging.
func (f Filter) WithoutWindow() Filter {
	f.paged = false
	f.indexFrom = 0
	f.indexTo = 0
	return f
}

// OrderAscending sorts oldest first when on, newest first otherwise.
func (f Filter) OrderAscending(on bool) Filter {
	f.ascending = on
	return f
}

func (f Filter) EntryID() int64   { return f.entryID }
func (f Filter) FormID() string   { return f.formID }
func (f Filter) DateStart() int64 { return f.dateStart }
func (f Filter) DateEnd() int64   { return f.dateEnd }

// ResourceID returns the resource restriction and whether one is set.
func (f Filter) ResourceID() (uuid.UUID, bool) { return f.resourceID, f.hasResource }

// States returns a copy of the accepted states in ascending order.
func (f Filter) States() []int { return slices.Clone(f.states) }

// Fields returns a copy of the field constraints in insertion order.
func (f Filter) Fields() []FieldValue { return slices.Clone(f.fields) }

func (f Filter) IsHeadersOnly() bool { return f.headersOnly }
func (f Filter) IsAscending() bool   { return f.ascending }

// Window returns the paging bounds and whether paging is set.
func (f Filter) Window() (from, to int, ok bool) {
	return f.indexFrom, f.indexTo, f.paged
}

// Validate reports caller errors the query builder cannot render.
func (f Filter) Validate() error {
	if f.paged && (f.indexFrom < 0 || f.indexTo < f.indexFrom) {
		return ErrInvalidWindow
	}
	return nil
}
