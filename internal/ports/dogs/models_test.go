package dogs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSort_Normalize(t *testing.T) {
	s, err := Sort{}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, "breed:asc", s.String())

	s, err = Sort{Field: " Name ", Direction: "DESC"}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, Sort{Field: SortByName, Direction: Desc}, s)

	_, err = Sort{Field: "color"}.Normalize()
	assert.ErrorIs(t, err, ErrInvalidQuery)

	_, err = Sort{Field: SortByAge, Direction: "sideways"}.Normalize()
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestSearchQuery_Normalize(t *testing.T) {
	q, err := SearchQuery{Breed: "  Beagle ", Size: 100}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, "Beagle", q.Breed)
	assert.Equal(t, MaxBatch, q.Size)
	assert.Equal(t, SortByBreed, q.Sort.Field)

	q, err = SearchQuery{}.Normalize()
	require.NoError(t, err)
	assert.Zero(t, q.Size)

	_, err = SearchQuery{Size: -1}.Normalize()
	assert.ErrorIs(t, err, ErrInvalidQuery)
}
