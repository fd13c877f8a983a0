package knowledge

import (
	"context"
	"errors"
	"testing"

	"github.com/avvvet/staybuddy/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeFetcher struct {
	calls   map[string]int
	catalog []models.CatalogEntry
	err     error
}

func (f *fakeFetcher) GetCatalog(_ context.Context, hotelID string) ([]models.CatalogEntry, error) {
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[hotelID]++
	return f.catalog, f.err
}

func TestCacheFetchesOnce(t *testing.T) {
	fetcher := &fakeFetcher{catalog: []models.CatalogEntry{{ID: 1, Name: "Suíte Luxo", Capacity: 2, DailyRate: 150}}}
	cache, err := NewCache(fetcher, 10, nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	first, err := cache.Knowledge(context.Background(), "hotel-1")
	require.NoError(t, err)
	second, err := cache.Knowledge(context.Background(), "hotel-1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Contains(t, first, "Suíte Luxo")
	assert.Equal(t, 1, fetcher.calls["hotel-1"])
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	fetcher := &fakeFetcher{}
	cache, err := NewCache(fetcher, 2, nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	cache.Knowledge(ctx, "a")
	cache.Knowledge(ctx, "b")
	cache.Knowledge(ctx, "a")
	cache.Knowledge(ctx, "c") // evicts b

	assert.Equal(t, 2, cache.Len())
	cache.Knowledge(ctx, "a")
	cache.Knowledge(ctx, "b")
	assert.Equal(t, 1, fetcher.calls["a"])
	assert.Equal(t, 2, fetcher.calls["b"])
}

func TestCacheInvalidate(t *testing.T) {
	fetcher := &fakeFetcher{}
	cache, err := NewCache(fetcher, 0, nil, nil)
	require.NoError(t, err)

	assert.False(t, cache.Invalidate("hotel-1"))

	cache.Knowledge(context.Background(), "hotel-1")
	assert.True(t, cache.Invalidate("hotel-1"))
	assert.False(t, cache.Invalidate("hotel-1"))

	cache.Knowledge(context.Background(), "hotel-1")
	assert.Equal(t, 2, fetcher.calls["hotel-1"])
}

func TestCacheDoesNotKeepFailures(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("boom")}
	cache, err := NewCache(fetcher, 0, nil, nil)
	require.NoError(t, err)

	_, err = cache.Knowledge(context.Background(), "hotel-1")
	assert.Error(t, err)
	assert.Zero(t, cache.Len())
}

func TestFormatCatalog(t *testing.T) {
	assert.Equal(t, EmptyCatalog, FormatCatalog(nil))

	text := FormatCatalog([]models.CatalogEntry{{
		Name:      "Suíte Luxo",
		Capacity:  3,
		DailyRate: 150,
		Amenities: map[string]bool{"tech_wifi": true, "kitchen_frigobar": true, "extra_berco": false},
		Photos:    []string{"https://img.example.com/1.jpg"},
	}})

	assert.Contains(t, text, "* Nome do Quarto: Suíte Luxo")
	assert.Contains(t, text, "  - Descrição: N/A")
	assert.Contains(t, text, "Até 3 pessoas")
	assert.Contains(t, text, "R$ 150.00")
	assert.Contains(t, text, "Comodidades: Cozinha: frigobar, Tecnologia: wifi\n")
	assert.NotContains(t, text, "berco")
	assert.Contains(t, text, "Fotos: Veja em https://img.example.com/1.jpg")
}
