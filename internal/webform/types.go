// Package webform holds the form submission entities and the immutable
// filter used to select them.
package webform

import (
	"time"

	"github.com/google/uuid"
)

// NullResourceID returns the identifier that stands in for a resource that
// could not be resolved.
func NullResourceID() uuid.UUID { return uuid.Nil }

// StateInitial is the workflow state of a freshly written submission.
const StateInitial = 0

// FieldValue is one named value inside a submission. Multi-valued fields
// produce several FieldValues with the same name.
type FieldValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Submission is one stored form entry: the header columns plus its field
// values in the order they were read.
type Submission struct {
	EntryID     int64        `json:"entry_id"`
	FormID      string       `json:"form_id"`
	DateCreated int64        `json:"date_created"` // epoch millis
	ResourceID  uuid.UUID    `json:"resource_id"`
	State       int          `json:"state"`
	Fields      []FieldValue `json:"fields"`
}

// AddField appends a field value.
func (s *Submission) AddField(name, value string) {
	s.Fields = append(s.Fields, FieldValue{Name: name, Value: value})
}

// Values returns every value stored under name, in order.
func (s *Submission) Values(name string) []string {
	var out []string
	for _, f := range s.Fields {
		if f.Name == name {
			out = append(out, f.Value)
		}
	}
	return out
}

// FieldNames returns the distinct field names in first-seen order.
func (s *Submission) FieldNames() []string {
	seen := make(map[string]bool, len(s.Fields))
	var names []string
	for _, f := range s.Fields {
		if !seen[f.Name] {
			seen[f.Name] = true
			names = append(names, f.Name)
		}
	}
	return names
}

// Created returns the creation time.
func (s *Submission) Created() time.Time {
	return time.UnixMilli(s.DateCreated)
}

// NewSubmission is the input for writing a submission. Resource is either a
// resource id or a resource path; it is resolved the same way stored tokens
// are when read back.
type NewSubmission struct {
	FormID   string
	Resource string
	Fields   []FieldValue
}
