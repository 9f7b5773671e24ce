package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkvend/vendbot/internal/domain/catalog"
)

func mustProduct(t *testing.T, name string, kind catalog.Kind, units ...string) *catalog.Product {
	t.Helper()
	p, err := catalog.New(name, "desc", decimal.NewFromInt(100), kind, units)
	require.NoError(t, err)
	return p
}

func TestCatalogCRUDRoundTrip(t *testing.T) {
	repo := NewCatalogRepository()
	ctx := context.Background()

	id, err := repo.Create(ctx, mustProduct(t, "Key-A", catalog.KindKey, "K1"))
	require.NoError(t, err)

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Key-A", got.Name)
	assert.Equal(t, "desc", got.Description)
	assert.True(t, got.Price.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, catalog.KindKey, got.Kind)

	newDesc := "updated"
	newPrice := decimal.NewFromInt(250)
	require.NoError(t, repo.Update(ctx, id, catalog.Patch{Description: &newDesc, Price: &newPrice}))

	got, err = repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "updated", got.Description)
	assert.True(t, got.Price.Equal(newPrice))

	require.NoError(t, repo.Delete(ctx, id))
	_, err = repo.Get(ctx, id)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestCatalogListOrderedByID(t *testing.T) {
	repo := NewCatalogRepository()
	ctx := context.Background()

	for _, name := range []string{"A", "B", "C"} {
		_, err := repo.Create(ctx, mustProduct(t, name, catalog.KindKey))
		require.NoError(t, err)
	}

	products, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, []string{"A", "B", "C"}, []string{products[0].Name, products[1].Name, products[2].Name})
}

func TestClaimUnitFIFO(t *testing.T) {
	repo := NewCatalogRepository()
	ctx := context.Background()

	id, err := repo.Create(ctx, mustProduct(t, "Key-A", catalog.KindKey, "K1", "K2", "K3"))
	require.NoError(t, err)

	for _, want := range []string{"K1", "K2", "K3"} {
		unit, err := repo.ClaimUnit(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, unit)
	}

	_, err = repo.ClaimUnit(ctx, id)
	assert.ErrorIs(t, err, catalog.ErrOutOfStock)
}

func TestClaimUnitFileKindNotDepleted(t *testing.T) {
	repo := NewCatalogRepository()
	ctx := context.Background()

	id, err := repo.Create(ctx, mustProduct(t, "File-A", catalog.KindFile, "tok"))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		unit, err := repo.ClaimUnit(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "tok", unit)
	}

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, got.StockCount())
}

func TestClaimUnitConcurrentExactness(t *testing.T) {
	repo := NewCatalogRepository()
	ctx := context.Background()

	units := []string{"K1", "K2", "K3", "K4", "K5"}
	id, err := repo.Create(ctx, mustProduct(t, "Key-A", catalog.KindKey, units...))
	require.NoError(t, err)

	const callers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	claimed := make(map[string]int)
	var outOfStock int

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unit, err := repo.ClaimUnit(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				assert.ErrorIs(t, err, catalog.ErrOutOfStock)
				outOfStock++
				return
			}
			claimed[unit]++
		}()
	}
	wg.Wait()

	assert.Equal(t, callers-len(units), outOfStock)
	assert.Len(t, claimed, len(units))
	for unit, n := range claimed {
		assert.Equalf(t, 1, n, "unit %s returned to %d callers", unit, n)
	}
}

func TestAppendAndReplaceUnits(t *testing.T) {
	repo := NewCatalogRepository()
	ctx := context.Background()

	id, err := repo.Create(ctx, mustProduct(t, "Key-A", catalog.KindKey, "K1"))
	require.NoError(t, err)

	require.NoError(t, repo.AppendUnits(ctx, id, []string{"K2", "", "K3"}))
	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"K1", "K2", "K3"}, got.Units)

	require.NoError(t, repo.ReplaceUnits(ctx, id, []string{"N1"}))
	got, err = repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"N1"}, got.Units)
}

func TestUpdateRejectsNonPositivePrice(t *testing.T) {
	repo := NewCatalogRepository()
	ctx := context.Background()

	id, err := repo.Create(ctx, mustProduct(t, "Key-A", catalog.KindKey))
	require.NoError(t, err)

	bad := decimal.Zero
	assert.ErrorIs(t, repo.Update(ctx, id, catalog.Patch{Price: &bad}), catalog.ErrInvalidPrice)
}
