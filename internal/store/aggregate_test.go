package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webform-store/internal/webform"
)

func field(name, value string) (sql.NullString, sql.NullString) {
	return sql.NullString{String: name, Valid: true}, sql.NullString{String: value, Valid: true}
}

func row(id int64, name, value string) Row {
	n, v := field(name, value)
	return Row{EntryID: id, DateCreated: id * 1000, FormID: "contact", FieldName: n, FieldValue: v}
}

func TestAggregate_GroupsContiguousRows(t *testing.T) {
	rows := []Row{row(1, "A", "x"), row(1, "B", "y"), row(2, "A", "z")}

	subs := Aggregate(context.Background(), rows, false, nil)

	require.Len(t, subs, 2)
	assert.Equal(t, int64(1), subs[0].EntryID)
	assert.Equal(t, []webform.FieldValue{{Name: "A", Value: "x"}, {Name: "B", Value: "y"}}, subs[0].Fields)
	assert.Equal(t, int64(2), subs[1].EntryID)
	assert.Equal(t, []webform.FieldValue{{Name: "A", Value: "z"}}, subs[1].Fields)
}

func TestAggregate_HeadersOnlyIgnoresFieldColumns(t *testing.T) {
	rows := []Row{row(1, "A", "x"), row(1, "B", "y"), row(2, "A", "z")}

	subs := Aggregate(context.Background(), rows, true, nil)

	require.Len(t, subs, 2)
	for _, s := range subs {
		assert.Empty(t, s.Fields)
	}
}

func TestAggregate_NullFieldColumns(t *testing.T) {
	rows := []Row{
		{EntryID: 5, FormID: "contact"},
		row(6, "A", "x"),
	}

	subs := Aggregate(context.Background(), rows, false, nil)

	require.Len(t, subs, 2)
	assert.Empty(t, subs[0].Fields)
	assert.Len(t, subs[1].Fields, 1)
}

func TestAggregate_Empty(t *testing.T) {
	assert.Empty(t, Aggregate(context.Background(), nil, false, nil))
}

func TestAggregate_HeaderColumnsAndResource(t *testing.T) {
	id := uuid.New()
	var seen []string
	resolve := func(_ context.Context, token string) uuid.UUID {
		seen = append(seen, token)
		return id
	}
	rows := []Row{
		{EntryID: 9, DateCreated: 1234, FormID: "survey", State: 3, Resource: sql.NullString{String: "/forms/survey", Valid: true}},
		{EntryID: 10, FormID: "survey"},
	}

	subs := Aggregate(context.Background(), rows, true, resolve)

	require.Len(t, subs, 2)
	assert.Equal(t, webform.Submission{EntryID: 9, DateCreated: 1234, FormID: "survey", State: 3, ResourceID: id}, subs[0])
	assert.Equal(t, webform.NullResourceID(), subs[1].ResourceID, "NULL resource column")
	assert.Equal(t, []string{"/forms/survey"}, seen, "resolved once per submission")
}

func TestAggregator_NonContiguousRowsSplit(t *testing.T) {
	agg := NewAggregator(false, nil)
	for _, r := range []Row{row(1, "A", "x"), row(2, "A", "y"), row(1, "B", "z")} {
		agg.Add(context.Background(), r)
	}

	subs := agg.Submissions()
	require.Len(t, subs, 3)
	assert.Equal(t, []int64{1, 2, 1}, []int64{subs[0].EntryID, subs[1].EntryID, subs[2].EntryID})
}
