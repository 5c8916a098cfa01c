package optional

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type patch struct {
	Title     Field[string]  `json:"title"`
	ProjectID Field[*int64]  `json:"project_id"`
	WorkType  Field[*string] `json:"work_type"`
}

func TestFieldPresence(t *testing.T) {
	var p patch
	require.NoError(t, json.Unmarshal([]byte(`{"title":"printer","project_id":null}`), &p))

	assert.True(t, p.Title.Set)
	assert.Equal(t, "printer", p.Title.Value)

	assert.True(t, p.ProjectID.Set, "explicit null is present")
	assert.Nil(t, p.ProjectID.Value)

	assert.False(t, p.WorkType.Set, "absent field stays unset")
}

func TestFieldOr(t *testing.T) {
	assert.Equal(t, "b", Field[string]{}.Or("b"))
	assert.Equal(t, "a", Of("a").Or("b"))
}
