package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingFetcher struct {
	calls int
	fail  bool
}

func (f *countingFetcher) Fetch(_ context.Context, url string, _ FetchOptions) (*Page, error) {
	f.calls++
	if f.fail {
		return nil, errors.New("unreachable")
	}
	return &Page{URL: url, StatusCode: 200, Body: []byte("detail")}, nil
}

func TestDetailCache_FetchesOncePerURL(t *testing.T) {
	f := &countingFetcher{}
	cache := NewDetailCache(f, FetchOptions{})

	for i := 0; i < 3; i++ {
		page, err := cache.Get(context.Background(), "https://eigersund.example/mote/1")
		require.NoError(t, err)
		assert.Equal(t, "detail", string(page.Body))
	}
	_, err := cache.Get(context.Background(), "https://eigersund.example/mote/2")
	require.NoError(t, err)

	assert.Equal(t, 2, f.calls)
	assert.Equal(t, 2, cache.Len())
}

func TestDetailCache_FailuresAreNotCached(t *testing.T) {
	f := &countingFetcher{fail: true}
	cache := NewDetailCache(f, FetchOptions{})

	_, err := cache.Get(context.Background(), "https://eigersund.example/mote/1")
	require.Error(t, err)
	_, err = cache.Get(context.Background(), "https://eigersund.example/mote/1")
	require.Error(t, err)

	assert.Equal(t, 2, f.calls)
	assert.Zero(t, cache.Len())
}

func TestDetailCacheContext(t *testing.T) {
	assert.Nil(t, DetailCacheFrom(context.Background()))

	cache := NewDetailCache(&countingFetcher{}, FetchOptions{})
	ctx := WithDetailCache(context.Background(), cache)
	assert.Same(t, cache, DetailCacheFrom(ctx))
}
