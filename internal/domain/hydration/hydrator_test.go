package hydration

import (
	"context"
	"errors"
	"testing"

	"dog-match/internal/ports/dogs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -------------------------
// Fake fetcher
// -------------------------

type fakeFetcher struct {
	known   map[string]dogs.Dog
	reverse bool
	err     error

	calls int
	last  []string
}

func newFakeFetcher(ids ...string) *fakeFetcher {
	f := &fakeFetcher{known: map[string]dogs.Dog{}}
	for _, id := range ids {
		f.known[id] = dogs.Dog{ID: id, Name: "n-" + id}
	}
	return f
}

func (f *fakeFetcher) Fetch(_ context.Context, ids []string) ([]dogs.Dog, error) {
	f.calls++
	f.last = append([]string(nil), ids...)
	if f.err != nil {
		return nil, f.err
	}
	out := make([]dogs.Dog, 0, len(ids))
	for _, id := range ids {
		if d, ok := f.known[id]; ok {
			out = append(out, d)
		}
	}
	if f.reverse {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}

func ids(dd []dogs.Dog) []string {
	out := make([]string, 0, len(dd))
	for _, d := range dd {
		out = append(out, d.ID)
	}
	return out
}

// -------------------------
// Tests
// -------------------------

func TestHydrate_Empty_DoesNotCallService(t *testing.T) {
	f := newFakeFetcher()
	h := NewHydrator(f)

	got, err := h.Hydrate(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Equal(t, 0, f.calls)
}

func TestHydrate_PreservesInputOrder(t *testing.T) {
	f := newFakeFetcher("a", "b", "c")
	f.reverse = true
	h := NewHydrator(f)

	got, err := h.Hydrate(context.Background(), []string{"b", "c", "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "a"}, ids(got))
}

func TestHydrate_TruncatesTo25(t *testing.T) {
	all := make([]string, 0, 30)
	for i := 0; i < 30; i++ {
		all = append(all, string(rune('A'+i)))
	}
	f := newFakeFetcher(all...)
	h := NewHydrator(f)

	got, err := h.Hydrate(context.Background(), all)
	require.NoError(t, err)
	assert.Len(t, got, dogs.MaxBatch)
	assert.Equal(t, all[:dogs.MaxBatch], f.last)
}

func TestHydrate_Partial_ReturnsResolvedAndMissing(t *testing.T) {
	f := newFakeFetcher("a", "c")
	h := NewHydrator(f)

	got, err := h.Hydrate(context.Background(), []string{"a", "b", "c", "d"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPartialFetch))

	var pf *PartialFetchError
	require.ErrorAs(t, err, &pf)
	assert.Equal(t, []string{"b", "d"}, pf.Missing)
	assert.Equal(t, []string{"a", "c"}, ids(got))
}

func TestHydrate_RejectsDuplicates(t *testing.T) {
	f := newFakeFetcher("a")
	h := NewHydrator(f)

	_, err := h.Hydrate(context.Background(), []string{"a", "a"})
	assert.ErrorIs(t, err, ErrDuplicateID)
	assert.Equal(t, 0, f.calls)
}

func TestHydrate_PropagatesSourceError(t *testing.T) {
	f := newFakeFetcher("a")
	f.err = dogs.ErrNetworkFailure
	h := NewHydrator(f)

	got, err := h.Hydrate(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, dogs.ErrNetworkFailure)
	assert.Nil(t, got)
}
