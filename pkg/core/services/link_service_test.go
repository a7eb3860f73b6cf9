package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wadjakorntonsri/go-slug-shortener/pkg/adapters/cache"
	"github.com/wadjakorntonsri/go-slug-shortener/pkg/adapters/repository/memory"
	"github.com/wadjakorntonsri/go-slug-shortener/pkg/core/domain"
)

var errBoom = errors.New("boom")

// fixedSlugs hands out slugs in order.
type fixedSlugs struct {
	mu    sync.Mutex
	slugs []string
}

func (f *fixedSlugs) Generate() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.slugs[0]
	f.slugs = f.slugs[1:]
	return s
}

// recordingCounter captures enqueued slugs synchronously.
type recordingCounter struct {
	mu    sync.Mutex
	slugs []string
}

func (c *recordingCounter) Enqueue(slug string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slugs = append(c.slugs, slug)
}

func (c *recordingCounter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.slugs)
}

// flakyStore wraps the memory repository with switchable failures and call
// accounting.
type flakyStore struct {
	*memory.MemoryRepository

	mu          sync.Mutex
	failReads   bool
	failInserts bool
	hidePresent bool // FindBySlug always reports absence, as if a racing insert had not landed yet
	inserts     int
	activeReads int
}

func newFlakyStore() *flakyStore {
	return &flakyStore{MemoryRepository: memory.NewMemoryRepository()}
}

func (s *flakyStore) FindBySlug(ctx context.Context, slug string) (*domain.Link, error) {
	s.mu.Lock()
	failReads, hide := s.failReads, s.hidePresent
	s.mu.Unlock()
	if failReads {
		return nil, errBoom
	}
	if hide {
		return nil, nil
	}
	return s.MemoryRepository.FindBySlug(ctx, slug)
}

func (s *flakyStore) FindActiveBySlug(ctx context.Context, slug string, now time.Time) (*domain.Link, error) {
	s.mu.Lock()
	s.activeReads++
	failReads := s.failReads
	s.mu.Unlock()
	if failReads {
		return nil, errBoom
	}
	return s.MemoryRepository.FindActiveBySlug(ctx, slug, now)
}

func (s *flakyStore) Insert(ctx context.Context, link *domain.Link) error {
	s.mu.Lock()
	s.inserts++
	failInserts := s.failInserts
	s.mu.Unlock()
	if failInserts {
		return errBoom
	}
	return s.MemoryRepository.Insert(ctx, link)
}

func (s *flakyStore) setFailReads(v bool) {
	s.mu.Lock()
	s.failReads = v
	s.mu.Unlock()
}

type fixture struct {
	svc     *LinkService
	store   *flakyStore
	cache   *cache.Memory
	counter *recordingCounter
	now     time.Time
}

func newFixture(t *testing.T, slugs ...string) *fixture {
	t.Helper()
	f := &fixture{
		store:   newFlakyStore(),
		cache:   cache.NewMemory(0),
		counter: &recordingCounter{},
		now:     time.Now().UTC().Truncate(time.Second),
	}
	f.svc = NewLinkService(f.store, f.cache, &fixedSlugs{slugs: slugs}, f.counter, "https://symph.co/",
		WithClock(func() time.Time { return f.now }))
	return f
}

func TestCreateAndResolve(t *testing.T) {
	f := newFixture(t, "gen12345")
	ctx := context.Background()

	shortURL, err := f.svc.CreateLink(ctx, domain.NewLink{OriginalURL: "https://example.com/page"})
	require.NoError(t, err)
	assert.Equal(t, "https://symph.co/gen12345", shortURL)

	dest, err := f.svc.ResolveSlug(ctx, "gen12345")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/page", dest)
	assert.Equal(t, []string{"gen12345"}, f.counter.slugs)

	link, err := f.svc.GetLink(ctx, "gen12345")
	require.NoError(t, err)
	assert.NotEmpty(t, link.ID)
	assert.True(t, f.now.Equal(link.CreatedAt))
	assert.Equal(t, int64(0), link.RedirectCount)
}

func TestCreateLinkCustomSlugAndUTM(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateLink(ctx, domain.NewLink{
		OriginalURL: "https://x.com/a",
		Slug:        "spring",
		UTMParams:   map[string]string{"utm_medium": "cpc", "utm_source": "google", "gclid": "drop-me"},
	})
	require.NoError(t, err)

	dest, err := f.svc.ResolveSlug(ctx, "spring")
	require.NoError(t, err)
	assert.Equal(t, "https://x.com/a?utm_source=google&utm_medium=cpc", dest)

	link, err := f.svc.GetLink(ctx, "spring")
	require.NoError(t, err)
	assert.Equal(t, domain.UTMParams{"utm_source": "google", "utm_medium": "cpc"}, link.UTMParams)
}

func TestResolveMergesExistingQuery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateLink(ctx, domain.NewLink{
		OriginalURL: "https://x.com/a?x=1",
		Slug:        "q",
		UTMParams:   map[string]string{"utm_campaign": "spring"},
	})
	require.NoError(t, err)

	for i := 0; i < 2; i++ { // miss, then cache hit
		dest, err := f.svc.ResolveSlug(ctx, "q")
		require.NoError(t, err)
		assert.Equal(t, "https://x.com/a?x=1&utm_campaign=spring", dest)
	}
}

func TestCreateLinkInvalidURL(t *testing.T) {
	f := newFixture(t, "unused00")
	ctx := context.Background()

	for _, raw := range []string{"", "not a url", "/relative/path", "example.com", "http://"} {
		_, err := f.svc.CreateLink(ctx, domain.NewLink{OriginalURL: raw})
		assert.ErrorIs(t, err, domain.ErrInvalidURL, raw)
	}
	assert.Equal(t, 0, f.store.inserts)
}

func TestCreateLinkInvalidSlug(t *testing.T) {
	f := newFixture(t)
	for _, slug := range []string{"a/b", "has space", "ünïcode", "healthz", ".", "..", "a?b", string(make([]byte, 65))} {
		_, err := f.svc.CreateLink(context.Background(), domain.NewLink{OriginalURL: "https://example.com", Slug: slug})
		assert.ErrorIs(t, err, domain.ErrInvalidSlug)
	}
	assert.Equal(t, 0, f.store.inserts)
}

func TestCreateLinkUnreservedPunctuationSlug(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, slug := range []string{"v1.2", "~team", "a.b~c_d-e"} {
		_, err := f.svc.CreateLink(ctx, domain.NewLink{OriginalURL: "https://example.com/" + slug, Slug: slug})
		require.NoError(t, err, slug)

		dest, err := f.svc.ResolveSlug(ctx, slug)
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/"+slug, dest)
	}
}

func TestValidateLink(t *testing.T) {
	tests := []struct {
		name string
		link domain.Link
		want error
	}{
		{"valid", domain.Link{Slug: "ok", OriginalURL: "https://example.com"}, nil},
		{"empty url", domain.Link{Slug: "ok"}, domain.ErrInvalidURL},
		{"not a url", domain.Link{Slug: "ok", OriginalURL: "not a url"}, domain.ErrInvalidURL},
		{"script scheme", domain.Link{Slug: "ok", OriginalURL: "javascript:alert(1)"}, domain.ErrInvalidURL},
		{"empty slug", domain.Link{OriginalURL: "https://example.com"}, domain.ErrInvalidSlug},
		{"slash in slug", domain.Link{Slug: "a/b", OriginalURL: "https://example.com"}, domain.ErrInvalidSlug},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLink(&tt.link)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCreateLinkSlugTaken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateLink(ctx, domain.NewLink{OriginalURL: "https://first.example", Slug: "taken"})
	require.NoError(t, err)

	_, err = f.svc.CreateLink(ctx, domain.NewLink{OriginalURL: "https://second.example", Slug: "taken"})
	assert.ErrorIs(t, err, domain.ErrSlugTaken)
	assert.Equal(t, 1, f.store.inserts, "pre-check must stop the doomed write")

	link, err := f.svc.GetLink(ctx, "taken")
	require.NoError(t, err)
	assert.Equal(t, "https://first.example", link.OriginalURL)
}

func TestCreateLinkExpiredSlugStaysReserved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	past := f.now.Add(-time.Hour)
	_, err := f.svc.CreateLink(ctx, domain.NewLink{OriginalURL: "https://old.example", Slug: "gone", ExpiresAt: &past})
	require.NoError(t, err)

	_, err = f.svc.CreateLink(ctx, domain.NewLink{OriginalURL: "https://new.example", Slug: "gone"})
	assert.ErrorIs(t, err, domain.ErrSlugTaken)
}

func TestCreateLinkRaceLostAtInsert(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateLink(ctx, domain.NewLink{OriginalURL: "https://first.example", Slug: "race"})
	require.NoError(t, err)

	f.store.hidePresent = true
	_, err = f.svc.CreateLink(ctx, domain.NewLink{OriginalURL: "https://second.example", Slug: "race"})
	assert.ErrorIs(t, err, domain.ErrSlugTaken)
	assert.Equal(t, 2, f.store.inserts)

	all, err := f.store.Dump(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "https://first.example", all[0].OriginalURL)
}

func TestCreateLinkConcurrentSameSlug(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const n = 16
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.CreateLink(ctx, domain.NewLink{OriginalURL: "https://example.com", Slug: "same"})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrSlugTaken)
	}
	assert.Equal(t, 1, succeeded)

	all, err := f.store.Dump(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreateLinkStoreFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.store.failInserts = true
	_, err := f.svc.CreateLink(ctx, domain.NewLink{OriginalURL: "https://example.com", Slug: "x"})
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.ErrorIs(t, err, errBoom)

	f.store.setFailReads(true)
	_, err = f.svc.CreateLink(ctx, domain.NewLink{OriginalURL: "https://example.com", Slug: "y"})
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestCreateLinkNormalizesExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	loc := time.FixedZone("ICT", 7*3600)
	at := time.Date(2025, 5, 12, 21, 30, 0, 0, loc)
	_, err := f.svc.CreateLink(ctx, domain.NewLink{OriginalURL: "https://example.com", Slug: "tz", ExpiresAt: &at})
	require.NoError(t, err)

	link, err := f.svc.GetLink(ctx, "tz")
	require.NoError(t, err)
	require.NotNil(t, link.ExpiresAt)
	assert.Equal(t, time.UTC, link.ExpiresAt.Location())
	assert.True(t, at.Equal(*link.ExpiresAt))
}

func TestResolveUnknownSlug(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ResolveSlug(context.Background(), "never")
	assert.ErrorIs(t, err, domain.ErrNotFoundOrExpired)
	assert.Equal(t, 0, f.counter.count())

	_, err = f.svc.GetLink(context.Background(), "never")
	assert.ErrorIs(t, err, domain.ErrNotFoundOrExpired)
}

func TestResolveExpiredViaStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	past := f.now.Add(-time.Minute)
	_, err := f.svc.CreateLink(ctx, domain.NewLink{OriginalURL: "https://example.com", Slug: "old", ExpiresAt: &past})
	require.NoError(t, err)

	_, err = f.svc.ResolveSlug(ctx, "old")
	assert.ErrorIs(t, err, domain.ErrNotFoundOrExpired)
	assert.Equal(t, 0, f.cache.Len())
	assert.Equal(t, 0, f.counter.count())
}

func TestResolveCachedEntryExpires(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	soon := f.now.Add(time.Minute)
	_, err := f.svc.CreateLink(ctx, domain.NewLink{OriginalURL: "https://example.com", Slug: "soon", ExpiresAt: &soon})
	require.NoError(t, err)

	_, err = f.svc.ResolveSlug(ctx, "soon")
	require.NoError(t, err)
	require.Equal(t, 1, f.cache.Len())

	f.now = f.now.Add(2 * time.Minute)
	_, err = f.svc.ResolveSlug(ctx, "soon")
	assert.ErrorIs(t, err, domain.ErrNotFoundOrExpired)
	assert.Equal(t, 0, f.cache.Len(), "stale entry must be evicted")
}

func TestResolveCacheHitSkipsStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateLink(ctx, domain.NewLink{OriginalURL: "https://example.com", Slug: "hot"})
	require.NoError(t, err)

	_, err = f.svc.ResolveSlug(ctx, "hot")
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.activeReads)

	f.store.setFailReads(true)
	dest, err := f.svc.ResolveSlug(ctx, "hot")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", dest)
	assert.Equal(t, 1, f.store.activeReads)
	assert.Equal(t, 2, f.counter.count(), "cache hits are counted too")
}

func TestResolveWithoutCache(t *testing.T) {
	store := newFlakyStore()
	counter := &recordingCounter{}
	svc := NewLinkService(store, cache.Nop{}, NewRandomSlugGenerator(8), counter, "https://symph.co")
	ctx := context.Background()

	shortURL, err := svc.CreateLink(ctx, domain.NewLink{OriginalURL: "https://example.com", UTMParams: map[string]string{"utm_source": "a"}})
	require.NoError(t, err)
	slug := shortURL[len("https://symph.co/"):]
	require.Len(t, slug, 8)

	for i := 0; i < 3; i++ {
		dest, err := svc.ResolveSlug(ctx, slug)
		require.NoError(t, err)
		assert.Equal(t, "https://example.com?utm_source=a", dest)
	}
	assert.Equal(t, 3, store.activeReads)
	assert.Equal(t, 3, counter.count())
}

func TestResolveStoreUnavailable(t *testing.T) {
	f := newFixture(t)
	f.store.setFailReads(true)

	_, err := f.svc.ResolveSlug(context.Background(), "any")
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.NotErrorIs(t, err, domain.ErrNotFoundOrExpired)
}

func TestResolveCountsEventually(t *testing.T) {
	store := newFlakyStore()
	worker := NewCounterWorker(store, CounterConfig{Workers: 4, QueueSize: 64}, testLogger(t), nil)
	worker.Start()
	defer worker.Close(context.Background())

	svc := NewLinkService(store, cache.NewMemory(0), &fixedSlugs{}, worker, "https://symph.co")
	ctx := context.Background()

	_, err := svc.CreateLink(ctx, domain.NewLink{OriginalURL: "https://example.com", Slug: "count"})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := svc.ResolveSlug(ctx, "count")
		require.NoError(t, err)
	}

	drainCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, worker.Drain(drainCtx))

	link, err := svc.GetLink(ctx, "count")
	require.NoError(t, err)
	assert.Equal(t, int64(5), link.RedirectCount)
}

func TestShortURLJoinsBase(t *testing.T) {
	for _, base := range []string{"https://symph.co", "https://symph.co/", "https://symph.co//"} {
		svc := NewLinkService(nil, nil, nil, nil, base)
		assert.Equal(t, "https://symph.co/abc", svc.ShortURL("abc"))
	}
}
