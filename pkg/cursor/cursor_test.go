package cursor_test

import (
	"testing"

	"github.com/orneryd/hyperstore/pkg/cursor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursor_HasNextNextReset(t *testing.T) {
	c := cursor.From([]int{1, 2, 3})
	var seen []int
	for c.HasNext() {
		v, ok := c.Next()
		require.True(t, ok)
		seen = append(seen, v)
	}
	assert.Equal(t, []int{1, 2, 3}, seen)
	assert.False(t, c.HasNext())

	c.Reset()
	assert.True(t, c.HasNext())
	v, _ := c.Next()
	assert.Equal(t, 1, v)
}

func TestCursor_ToArrayForEachAnyFirstOrDefault(t *testing.T) {
	c := cursor.From([]int{1, 2, 3, 4})
	assert.True(t, c.Any(func(v int) bool { return v == 3 }))

	c.Reset()
	c.ForEach(func(v int) {})

	c.Reset()
	assert.Equal(t, 3, c.FirstOrDefault(func(v int) bool { return v > 2 }, -1))

	c.Reset()
	assert.Equal(t, []int{1, 2, 3, 4}, c.ToArray())
}

func TestMap_ProjectsElements(t *testing.T) {
	c := cursor.From([]int{1, 2, 3})
	out := cursor.Map(c, func(v int) string {
		if v == 2 {
			return "two"
		}
		return "other"
	})
	assert.Equal(t, []string{"other", "two", "other"}, out.ToArray())
}
