package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomSlugGenerator(t *testing.T) {
	g := NewRandomSlugGenerator(0)

	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		slug := g.Generate()
		require.Len(t, slug, DefaultSlugLength)
		for _, c := range slug {
			assert.True(t, strings.ContainsRune(slugAlphabet, c), "unexpected character %q in %s", c, slug)
		}
		seen[slug] = struct{}{}
	}
	assert.Len(t, seen, 1000)
}

func TestRandomSlugGeneratorLength(t *testing.T) {
	assert.Len(t, NewRandomSlugGenerator(12).Generate(), 12)
}

func TestSnowflakeSlugGenerator(t *testing.T) {
	g, err := NewSnowflakeSlugGenerator(1)
	require.NoError(t, err)

	a, b := g.Generate(), g.Generate()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
	assert.True(t, validSlug(a))

	_, err = NewSnowflakeSlugGenerator(-1)
	assert.Error(t, err)
}
