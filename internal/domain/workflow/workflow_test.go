package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	t.Run("ValidWorkflow", func(t *testing.T) {
		wf := New("test", "user-1",
			[]Node{
				{ID: "a", Type: NodeTypeStart},
				{ID: "b", Type: NodeTypeEnd},
			},
			[]Connection{{ID: "c1", Source: "a", Target: "b"}},
		)
		assert.NoError(t, wf.Validate())
	})

	t.Run("MissingTitle", func(t *testing.T) {
		wf := New("", "user-1", nil, nil)
		assert.Error(t, wf.Validate())
	})

	t.Run("ConnectionToMissingNode", func(t *testing.T) {
		wf := New("test", "user-1",
			[]Node{{ID: "a", Type: NodeTypeStart}},
			[]Connection{{ID: "c1", Source: "a", Target: "ghost"}},
		)
		err := wf.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "target node")
	})

	t.Run("ConnectionFromMissingNode", func(t *testing.T) {
		wf := New("test", "user-1",
			[]Node{{ID: "a", Type: NodeTypeStart}},
			[]Connection{{ID: "c1", Source: "ghost", Target: "a"}},
		)
		assert.Error(t, wf.Validate())
	})

	t.Run("MultipleStartNodes", func(t *testing.T) {
		wf := New("test", "user-1",
			[]Node{
				{ID: "a", Type: NodeTypeStart},
				{ID: "b", Type: NodeTypeStart},
			},
			nil,
		)
		err := wf.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "start nodes")
	})

	t.Run("DuplicateNodeID", func(t *testing.T) {
		wf := New("test", "user-1",
			[]Node{
				{ID: "a", Type: NodeTypeStart},
				{ID: "a", Type: NodeTypeEnd},
			},
			nil,
		)
		assert.Error(t, wf.Validate())
	})

	t.Run("CycleIsAllowed", func(t *testing.T) {
		wf := New("test", "user-1",
			[]Node{
				{ID: "a", Type: NodeTypeStart},
				{ID: "b", Type: "task"},
				{ID: "c", Type: "task"},
			},
			[]Connection{
				{ID: "c1", Source: "a", Target: "b"},
				{ID: "c2", Source: "b", Target: "c"},
				{ID: "c3", Source: "c", Target: "b"},
			},
		)
		assert.NoError(t, wf.Validate())
	})

	t.Run("NoStartNodeIsAllowedAtSave", func(t *testing.T) {
		wf := New("draft", "user-1", []Node{{ID: "a", Type: NodeTypeEnd}}, nil)
		assert.NoError(t, wf.Validate())
		assert.Nil(t, wf.StartNode())
	})
}

func TestStartNode(t *testing.T) {
	wf := New("test", "user-1",
		[]Node{
			{ID: "x", Type: NodeTypeEnd},
			{ID: "s", Type: NodeTypeStart},
		},
		nil,
	)
	start := wf.StartNode()
	require.NotNil(t, start)
	assert.Equal(t, "s", start.ID)
}
