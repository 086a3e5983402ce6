package ingestion

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camrobjones/papernet/internal/domain"
	"github.com/camrobjones/papernet/internal/papersources"
)

func TestHarvestAuthor(t *testing.T) {
	c, g, src := newTestCoordinator(t)
	src.authorHit = &papersources.AuthorSearchResult{
		Works: []*domain.Work{
			sampleWork("10.1234/attention"),
			{Title: []string{"Missing identifier"}},
		},
		Rejected: 3,
	}

	tally, err := c.HarvestAuthor(context.Background(), domain.WorkAuthor{Given: "Ashish", Family: "Vaswani"}, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, tally.Added)
	assert.Equal(t, 3, tally.Rejected)
	assert.Equal(t, 1, tally.Errors)
	assert.Len(t, tally.Messages, 1)

	require.Contains(t, g.papers, "10.1234/attention")
	assert.Len(t, g.references, 2)
}

func TestHarvestJournal(t *testing.T) {
	c, g, src := newTestCoordinator(t)
	src.listed = []*domain.Work{
		sampleWork("10.1234/one"),
		sampleWork("10.1234/two"),
		{DOI: "nope"},
	}

	tally, err := c.HarvestJournal(context.Background(), papersources.ListParams{ISSN: "1049-5258"})
	require.NoError(t, err)
	assert.Equal(t, HarvestTally{Added: 2, Errors: 1, Messages: tally.Messages}, tally)
	assert.Len(t, g.papers, 2)
	assert.Len(t, g.journals, 1)

	t.Run("limit", func(t *testing.T) {
		c, g, src := newTestCoordinator(t)
		src.listed = []*domain.Work{sampleWork("10.1234/one"), sampleWork("10.1234/two")}

		tally, err := c.HarvestJournal(context.Background(), papersources.ListParams{ISSN: "1049-5258", Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, 1, tally.Added)
		assert.Len(t, g.papers, 1)
	})
}

func TestHarvestTally_BoundsMessages(t *testing.T) {
	var tally HarvestTally
	for i := 0; i < maxHarvestMessages+5; i++ {
		tally.fail(domain.NewInvalidDOIError("x"))
	}
	assert.Equal(t, maxHarvestMessages+5, tally.Errors)
	assert.Len(t, tally.Messages, maxHarvestMessages)
}
