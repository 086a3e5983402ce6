//go:build integration

package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camrobjones/papernet/internal/database/dbtest"
	"github.com/camrobjones/papernet/internal/domain"
	"github.com/camrobjones/papernet/internal/repository"
)

func TestPaperGetOrCreate_Concurrent(t *testing.T) {
	db := dbtest.Start(t)
	store := repository.NewStore(db, zerolog.Nop())
	ctx := context.Background()

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ids     = make(map[uuid.UUID]int)
		created int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			paper, wasCreated, err := store.Papers.GetOrCreate(ctx, "10.1234/race")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			ids[paper.ID]++
			if wasCreated {
				created++
			}
		}()
	}
	wg.Wait()

	assert.Len(t, ids, 1)
	assert.Equal(t, 1, created)
}

func TestReferenceGraph_Integration(t *testing.T) {
	db := dbtest.Start(t)
	store := repository.NewStore(db, zerolog.Nop())
	ctx := context.Background()

	citing, _, err := store.Papers.GetOrCreate(ctx, "10.1234/citing")
	require.NoError(t, err)

	for _, cited := range []string{"10.1234/a", "10.1234/b", "10.1234/b"} {
		_, _, err := store.References.GetOrCreate(ctx, &domain.Reference{
			CitingDOI:     citing.DOI,
			CitedDOI:      cited,
			CitingPaperID: &citing.ID,
		})
		require.NoError(t, err)
	}

	refs, err := store.References.ListByCiting(ctx, citing.DOI)
	require.NoError(t, err)
	assert.Len(t, refs, 2)

	missing, err := store.References.MostCitedMissing(ctx, nil, 10)
	require.NoError(t, err)
	assert.Len(t, missing, 2)

	b, _, err := store.Papers.GetOrCreate(ctx, "10.1234/b")
	require.NoError(t, err)
	linked, err := store.References.LinkPaper(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, int64(1), linked)

	unresolved, err := store.References.ListUnresolvedByCiting(ctx, citing.DOI)
	require.NoError(t, err)
	require.Len(t, unresolved, 1)
	assert.Equal(t, "10.1234/a", unresolved[0].CitedDOI)

	cited, err := store.References.ListCitedPapers(ctx, []uuid.UUID{citing.ID})
	require.NoError(t, err)
	require.Len(t, cited, 1)
	assert.Equal(t, b.ID, cited[0].ID)
}

func TestJournalMergeTx_Integration(t *testing.T) {
	db := dbtest.Start(t)
	store := repository.NewStore(db, zerolog.Nop())
	ctx := context.Background()

	keep, err := store.Journals.Create(ctx, &domain.Journal{ISSN: "1111-1111", PrintISSN: "1111-1111"})
	require.NoError(t, err)
	drop, err := store.Journals.Create(ctx, &domain.Journal{ISSN: "2222-2222", ElectronicISSN: "2222-2222"})
	require.NoError(t, err)

	paper, _, err := store.Papers.GetOrCreate(ctx, "10.1234/venue")
	require.NoError(t, err)
	pub, _, err := store.Publications.GetOrCreate(ctx, paper.ID, &drop.ID)
	require.NoError(t, err)

	err = store.InTx(ctx, func(tx *repository.Store) error {
		if err := tx.Publications.Reassign(ctx, pub.ID, keep.ID); err != nil {
			return err
		}
		if err := tx.Journals.Delete(ctx, drop.ID); err != nil {
			return err
		}
		return tx.Journals.SetISSNs(ctx, keep.ID, "1111-1111", "2222-2222")
	})
	require.NoError(t, err)

	found, err := store.Journals.FindByAnyISSN(ctx, []string{"2222-2222"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, keep.ID, found[0].ID)

	pubs, err := store.Publications.ListByJournal(ctx, keep.ID)
	require.NoError(t, err)
	assert.Len(t, pubs, 1)
}

func TestRequestLog_Integration(t *testing.T) {
	db := dbtest.Start(t)
	ledger := repository.NewPgRequestLogRepository(db, db, 7311)
	ctx := context.Background()

	last, err := ledger.LastCall(ctx)
	require.NoError(t, err)
	assert.Nil(t, last)

	start := time.Now().UTC().Truncate(time.Microsecond)
	err = ledger.Serialize(ctx, func(ctx context.Context) error {
		return ledger.RecordCall(ctx, &domain.RequestLog{
			URL:        "https://api.crossref.org/works/10.1234/x",
			Params:     map[string]string{"mailto": "ops@example.org"},
			StartTime:  start,
			EndTime:    start.Add(5 * time.Second),
			Elapsed:    5 * time.Second,
			StatusCode: 200,
			Wait:       2 * time.Second,
		})
	})
	require.NoError(t, err)

	last, err = ledger.LastCall(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, 5*time.Second, last.Elapsed)
	assert.Equal(t, "ops@example.org", last.Params["mailto"])

	pruned, err := ledger.Prune(ctx, start.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)
}
