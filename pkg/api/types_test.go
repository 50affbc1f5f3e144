package api

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestID_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in   string
		want ID
	}{
		{`{"id":"abc"}`, "abc"},
		{`{"id":42}`, "42"},
		{`{"id":null}`, ""},
		{`{}`, ""},
	}
	for _, tc := range tests {
		var c Comment
		require.NoError(t, json.Unmarshal([]byte(tc.in), &c), tc.in)
		assert.Equal(t, tc.want, c.ID, tc.in)
	}

	var c Comment
	assert.Error(t, json.Unmarshal([]byte(`{"id":true}`), &c))
}

func TestComment_NumericAndStringIDsAgree(t *testing.T) {
	var a, b Comment
	require.NoError(t, json.Unmarshal([]byte(`{"id":5,"parent_id":1}`), &a))
	require.NoError(t, json.Unmarshal([]byte(`{"id":"5","parent_id":"1"}`), &b))
	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, a.ParentID, b.ParentID)
}

func TestComment_Edited(t *testing.T) {
	now := time.Now()
	before := now.Add(-time.Second)
	after := now.Add(time.Second)

	assert.False(t, Comment{CreatedAt: now}.Edited())
	assert.False(t, Comment{CreatedAt: now, UpdatedAt: &now}.Edited())
	assert.False(t, Comment{CreatedAt: now, UpdatedAt: &before}.Edited())
	assert.True(t, Comment{CreatedAt: now, UpdatedAt: &after}.Edited())
	assert.True(t, Post{CreatedAt: now, UpdatedAt: &after}.Edited())
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	assert.NotEqual(t, a, b)
	assert.Len(t, string(a), 36)
}
