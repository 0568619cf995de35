package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"webform-store/internal/webform"
)

// filterFlags are the selection flags shared by list and count.
type filterFlags struct {
	entryID  int64
	formID   string
	start    string
	end      string
	resource string
	states   []int
	fields   []string
	headers  bool
	from     int
	to       int
	asc      bool
}

func (ff *filterFlags) register(cmd *cobra.Command, paging bool) {
	f := cmd.Flags()
	f.Int64Var(&ff.entryID, "entry", 0, "Entry id")
	f.StringVar(&ff.formID, "form", "", "Form id")
	f.StringVar(&ff.start, "start", "", "Created at or after (RFC 3339, YYYY-MM-DD or epoch millis)")
	f.StringVar(&ff.end, "end", "", "Created at or before (RFC 3339, YYYY-MM-DD or epoch millis)")
	f.StringVar(&ff.resource, "resource", "", "Owning resource id")
	f.IntSliceVar(&ff.states, "state", nil, "Workflow state (repeatable)")
	f.StringArrayVar(&ff.fields, "field", nil, "Field constraint name=value (repeatable)")
	if paging {
		f.BoolVar(&ff.headers, "headers", false, "Read headers without field values")
		f.IntVar(&ff.from, "from", 0, "First row of the page")
		f.IntVar(&ff.to, "to", 0, "Row after the last row of the page")
		f.BoolVar(&ff.asc, "asc", false, "Oldest first")
	}
}

// isEmpty reports whether no selection flag was given.
func (ff *filterFlags) isEmpty() bool {
	return ff.entryID == 0 && ff.formID == "" && ff.start == "" && ff.end == "" &&
		ff.resource == "" && len(ff.states) == 0 && len(ff.fields) == 0
}

func (ff *filterFlags) filter() (webform.Filter, error) {
	f := webform.Default().
		WithEntryID(ff.entryID).
		WithFormID(ff.formID).
		HeadersOnly(ff.headers).
		OrderAscending(ff.asc)

	start, err := parseTime(ff.start)
	if err != nil {
		return f, fmt.Errorf("invalid --start: %w", err)
	}
	end, err := parseTime(ff.end)
	if err != nil {
		return f, fmt.Errorf("invalid --end: %w", err)
	}
	f = f.WithDateRange(start, end)

	if ff.resource != "" {
		id, err := uuid.Parse(ff.resource)
		if err != nil {
			return f, fmt.Errorf("invalid --resource: %w", err)
		}
		f = f.WithResourceID(id)
	}
	if len(ff.states) > 0 {
		f = f.WithStates(ff.states...)
	}
	for _, raw := range ff.fields {
		fv, err := parseField(raw)
		if err != nil {
			return f, err
		}
		f = f.WithField(fv.Name, fv.Value)
	}
	if ff.from != 0 || ff.to != 0 {
		f = f.WithWindow(ff.from, ff.to)
	}
	return f, f.Validate()
}

// parseField splits name=value. The value may be empty or contain '='.
func parseField(raw string) (webform.FieldValue, error) {
	name, value, ok := strings.Cut(raw, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return webform.FieldValue{}, fmt.Errorf("invalid field %q, expected name=value", raw)
	}
	return webform.FieldValue{Name: name, Value: value}, nil
}

// parseTime returns epoch millis for an RFC 3339 time, a date or a number.
// Empty input is webform.DateUnbounded.
func parseTime(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return webform.DateUnbounded, nil
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return ms, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UnixMilli(), nil
		}
	}
	return 0, fmt.Errorf("cannot parse %q as a time", raw)
}
