package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnionFind(t *testing.T) {
	uf := NewUnionFind([]string{"a", "b", "c", "d", "e"})

	assert.Equal(t, 5, uf.Len())
	assert.Len(t, uf.Components(), 5)

	assert.True(t, uf.Union(0, 1))
	assert.True(t, uf.UnionIDs("b", "c"))
	assert.False(t, uf.UnionIDs("a", "c"), "already connected")
	assert.False(t, uf.UnionIDs("a", "zzz"), "unknown id ignored")

	assert.True(t, uf.Connected(0, 2))
	assert.False(t, uf.Connected(0, 3))

	assert.Equal(t, [][]int{{0, 1, 2}, {3}, {4}}, uf.Components())

	i, ok := uf.IndexOf("d")
	assert.True(t, ok)
	assert.Equal(t, 3, i)
}

func TestUnionFind_LongChainCompresses(t *testing.T) {
	ids := make([]string, 1000)
	for i := range ids {
		ids[i] = string(rune('a'+i%26)) + string(rune('0'+i/26%10)) + string(rune('A'+i/260))
	}
	uf := NewUnionFind(ids)
	for i := 1; i < len(ids); i++ {
		uf.Union(i-1, i)
	}

	root := uf.Find(len(ids) - 1)
	for i := range ids {
		assert.Equal(t, root, uf.Find(i))
	}
	assert.Len(t, uf.Components(), 1)
}
