package pep425_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datawire/masonry/pkg/python/pep425"
)

func TestParseTag(t *testing.T) {
	t.Parallel()

	tag, err := pep425.ParseTag("py3-none-any")
	require.NoError(t, err)
	assert.Equal(t, pep425.Tag{Python: "py3", ABI: "none", Platform: "any"}, tag)
	assert.Equal(t, "py3-none-any", tag.String())

	_, err = pep425.ParseTag("py3-none")
	assert.Error(t, err)
}

func TestIntersect(t *testing.T) {
	t.Parallel()

	compressed := pep425.Tag{Python: "py2.py3", ABI: "none", Platform: "any"}
	assert.Len(t, compressed.Decompress(), 2)

	pure := []pep425.Tag{{Python: "py3", ABI: "none", Platform: "any"}}
	assert.True(t, pep425.Intersect([]pep425.Tag{compressed}, pure))
	assert.False(t, pep425.Intersect(
		[]pep425.Tag{{Python: "cp311", ABI: "abi3", Platform: "linux_x86_64"}},
		pure))
}
