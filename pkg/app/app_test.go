package app

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wadjakorntonsri/go-slug-shortener/pkg/adapters/cache"
	"github.com/wadjakorntonsri/go-slug-shortener/pkg/adapters/repository/memory"
	"github.com/wadjakorntonsri/go-slug-shortener/pkg/adapters/repository/sqlite"
	"github.com/wadjakorntonsri/go-slug-shortener/pkg/config"
	"github.com/wadjakorntonsri/go-slug-shortener/pkg/core/services"
)

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	s, err := OpenStore(ctx, "memory://", zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &memory.MemoryRepository{}, s)

	s, err = OpenStore(ctx, "file:app_open_store?mode=memory&cache=shared", zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()
	assert.IsType(t, &sqlite.SQLiteRepository{}, s)
}

func TestNewCache(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		backend string
		want    any
	}{
		{"memory", &cache.Memory{}},
		{"", &cache.Memory{}},
		{"lru", &cache.LRU{}},
		{"none", cache.Nop{}},
	}
	for _, tt := range tests {
		c, err := NewCache(ctx, &config.Config{CacheBackend: tt.backend, CacheMaxEntries: 10})
		require.NoError(t, err)
		assert.IsType(t, tt.want, c)
	}

	_, err := NewCache(ctx, &config.Config{CacheBackend: "memcached"})
	assert.Error(t, err)
}

func TestNewSlugGenerator(t *testing.T) {
	g, err := NewSlugGenerator(&config.Config{SlugStrategy: "random", SlugLength: 8})
	require.NoError(t, err)
	assert.IsType(t, &services.RandomSlugGenerator{}, g)

	g, err = NewSlugGenerator(&config.Config{SlugStrategy: "snowflake", SnowflakeNode: 3})
	require.NoError(t, err)
	assert.IsType(t, &services.SnowflakeSlugGenerator{}, g)

	_, err = NewSlugGenerator(&config.Config{SlugStrategy: "uuid"})
	assert.Error(t, err)
}

func TestNewAndClose(t *testing.T) {
	cfg := &config.Config{
		DatabaseURL:    "memory://",
		BaseURL:        "https://symph.co",
		CacheBackend:   "lru",
		SlugStrategy:   "random",
		SlugLength:     8,
		CounterWorkers: 2,
	}
	a, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.NotNil(t, a.Handler)
	assert.NoError(t, a.Close(context.Background()))
}
