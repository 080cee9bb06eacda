package dedup

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopreviews/internal/core/domain"
)

func page1() []domain.Review {
	return []domain.Review{
		{Author: "J***n", Rating: 5, Body: "Crushes ice without any trouble at all, very happy."},
		{Author: "M**a", Rating: 4, Body: "Arrived quickly and works as described."},
	}
}

func TestAccumulator_MergeTwiceIsIdempotent(t *testing.T) {
	acc := New()
	assert.Equal(t, 2, acc.Add(page1()))
	first := acc.Reviews()

	assert.Equal(t, 0, acc.Add(page1()))
	assert.Equal(t, first, acc.Reviews())
	assert.Equal(t, 2, acc.Len())
}

func TestAccumulator_FirstSeenWinsPosition(t *testing.T) {
	acc := New()
	acc.Add([]domain.Review{{Author: "A**1", Body: "Second review body that is unique here"}})
	acc.Add([]domain.Review{
		{Author: "B**2", Body: "A fresh review body appearing later on"},
		{Author: "C**3", Body: "Second review body that is unique here"},
	})

	got := acc.Reviews()
	require.Len(t, got, 2)
	assert.Equal(t, "A**1", got[0].Author)
	assert.Equal(t, "B**2", got[1].Author)
}

func TestAccumulator_TruncatedFingerprintCollides(t *testing.T) {
	prefix := strings.Repeat("Excellent sound quality and the battery lasts. ", 2)[:60]
	acc := New()
	acc.Add([]domain.Review{{Author: "X**1", Rating: 5, Body: prefix + " Five stars from me."}})
	added := acc.Add([]domain.Review{{Author: "Y**2", Rating: 3, Body: prefix + " Shipping was slow though."}})

	assert.Equal(t, 0, added)
	require.Equal(t, 1, acc.Len())
	assert.Equal(t, "X**1", acc.Reviews()[0].Author)
}

func TestMerge_DropsEmptyFingerprint(t *testing.T) {
	seen := map[string]struct{}{}
	list, added := Merge(seen, nil, []domain.Review{
		{Author: "A", Body: "   "},
		{Author: "B", Body: "Readable body text"},
	})
	assert.Equal(t, 1, added)
	require.Len(t, list, 1)
	assert.Equal(t, "B", list[0].Author)
	assert.Contains(t, seen, "Readable body text")
}

func TestAccumulator_ReviewsReturnsCopy(t *testing.T) {
	acc := New()
	acc.Add(page1())
	got := acc.Reviews()
	got[0].Author = "changed"
	assert.Equal(t, "J***n", acc.Reviews()[0].Author)
	assert.True(t, acc.Seen(page1()[1]))
}
