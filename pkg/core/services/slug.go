package services

import (
	"crypto/rand"

	"github.com/bwmarrin/snowflake"
	"github.com/jxskiss/base62"
	"github.com/pkg/errors"
)

const (
	slugAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// Largest multiple of len(slugAlphabet) that fits in a byte; bytes at or
	// above it are rejected to keep the distribution uniform.
	slugByteLimit = 256 - 256%len(slugAlphabet)

	DefaultSlugLength = 8
)

// RandomSlugGenerator draws alphanumeric slugs from crypto/rand.
type RandomSlugGenerator struct {
	length int
}

func NewRandomSlugGenerator(length int) *RandomSlugGenerator {
	if length <= 0 {
		length = DefaultSlugLength
	}
	return &RandomSlugGenerator{length: length}
}

func (g *RandomSlugGenerator) Generate() string {
	out := make([]byte, 0, g.length)
	buf := make([]byte, g.length*2)
	for len(out) < g.length {
		// crypto/rand.Read never returns an error since Go 1.24.
		_, _ = rand.Read(buf)
		for _, c := range buf {
			if int(c) >= slugByteLimit {
				continue
			}
			out = append(out, slugAlphabet[int(c)%len(slugAlphabet)])
			if len(out) == g.length {
				break
			}
		}
	}
	return string(out)
}

// SnowflakeSlugGenerator renders time-ordered snowflake ids in base62.
// Slugs are unique per node without consulting the store.
type SnowflakeSlugGenerator struct {
	node *snowflake.Node
}

func NewSnowflakeSlugGenerator(nodeID int64) (*SnowflakeSlugGenerator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, errors.Wrap(err, "create snowflake node failed")
	}
	return &SnowflakeSlugGenerator{node: node}, nil
}

func (g *SnowflakeSlugGenerator) Generate() string {
	return string(base62.FormatInt(g.node.Generate().Int64()))
}
