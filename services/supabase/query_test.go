package supabase

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryValues(t *testing.T) {
	q := &Query{
		Select: "id,title",
		Filter: Match(Eq("course_id", 5), Eq("is_published", true)),
		Order:  []Order{{Column: "order_index"}, {Column: "created_at", Desc: true}},
		Limit:  10,
	}

	values, err := q.Values()
	require.NoError(t, err)

	assert.Equal(t, "id,title", values.Get("select"))
	assert.Equal(t, "eq.5", values.Get("course_id"))
	assert.Equal(t, "eq.true", values.Get("is_published"))
	assert.Equal(t, "order_index.asc,created_at.desc", values.Get("order"))
	assert.Equal(t, "10", values.Get("limit"))
}

func TestQueryValues_DefaultsToStar(t *testing.T) {
	values, err := (&Query{}).Values()
	require.NoError(t, err)
	assert.Equal(t, "*", values.Get("select"))

	var nilQuery *Query
	values, err = nilQuery.Values()
	require.NoError(t, err)
	assert.Equal(t, "*", values.Get("select"))
}

func TestQueryValues_EscapesValues(t *testing.T) {
	q := &Query{Filter: Match(Eq("title", "Rock & Roll?limit=1"))}

	values, err := q.Values()
	require.NoError(t, err)

	encoded := values.Encode()
	assert.Contains(t, encoded, "title=eq.Rock+%26+Roll%3Flimit%3D1")
	assert.Empty(t, values.Get("limit"))
}

func TestConditionEncoding(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("BRT", -3*3600))

	tests := []struct {
		name string
		cond Condition
		want string
	}{
		{"lt time", Lt("end_date", ts), "lt.2024-03-01T15:00:00Z"},
		{"neq string", Neq("status", "expired"), "neq.expired"},
		{"gte float", Gte("price", 9.5), "gte.9.5"},
		{"is null", Is("completed_at", nil), "is.null"},
		{"is bool", Is("completed", false), "is.false"},
		{"in ints", In("id", Values([]int64{1, 2, 3})...), "in.(1,2,3)"},
		{"in quoted", In("email", "a@x.com", "b,c", `say "hi"`), `in.("a@x.com","b,c","say \"hi\"")`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cond.encode()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilterValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
	}{
		{"bad column", Match(Eq("id;drop", 1))},
		{"reserved column", Match(Eq("select", "x"))},
		{"unknown operator", Match(Condition{Column: "id", Op: "like", Value: "x"})},
		{"empty in", Match(In("id"))},
		{"is with string", Match(Is("id", "maybe"))},
		{"unsupported value", Match(Eq("id", struct{}{}))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.filter.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidQuery))
		})
	}
}

func TestQueryValues_RejectsBadSelectAndOrder(t *testing.T) {
	_, err := (&Query{Select: "id&order=x"}).Values()
	assert.ErrorIs(t, err, ErrInvalidQuery)

	_, err = (&Query{Order: []Order{{Column: "id desc"}}}).Values()
	assert.ErrorIs(t, err, ErrInvalidQuery)

	_, err = (&Query{Limit: -1}).Values()
	assert.ErrorIs(t, err, ErrInvalidQuery)
}
