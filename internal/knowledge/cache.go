// Package knowledge caches each hotel's room catalog as prompt-ready text.
package knowledge

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/avvvet/staybuddy/internal/metrics"
	"github.com/avvvet/staybuddy/internal/models"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// DefaultSize is how many hotels are kept before the least recently used
// one is evicted.
const DefaultSize = 100

// EmptyCatalog is rendered for a hotel without rooms.
const EmptyCatalog = "Nenhuma informação de quarto disponível."

// CatalogFetcher loads a hotel's room catalog.
type CatalogFetcher interface {
	GetCatalog(ctx context.Context, hotelID string) ([]models.CatalogEntry, error)
}

// Cache is a bounded LRU of formatted hotel knowledge keyed by hotel id.
type Cache struct {
	fetcher CatalogFetcher
	entries *lru.Cache[string, string]
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewCache creates a cache holding up to size hotels.
func NewCache(fetcher CatalogFetcher, size int, m *metrics.Metrics, logger *zap.Logger) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	entries, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create knowledge cache: %w", err)
	}
	return &Cache{
		fetcher: fetcher,
		entries: entries,
		metrics: m,
		logger:  logger,
	}, nil
}

// Knowledge returns the formatted catalog for hotelID, fetching it on a miss.
// Failed fetches are not cached.
func (c *Cache) Knowledge(ctx context.Context, hotelID string) (string, error) {
	if text, ok := c.entries.Get(hotelID); ok {
		c.metrics.ObserveKnowledgeLookup(true)
		return text, nil
	}
	c.metrics.ObserveKnowledgeLookup(false)

	catalog, err := c.fetcher.GetCatalog(ctx, hotelID)
	if err != nil {
		return "", fmt.Errorf("failed to fetch catalog for hotel %s: %w", hotelID, err)
	}

	text := FormatCatalog(catalog)
	c.entries.Add(hotelID, text)
	c.logger.Info("🧠 hotel knowledge cached",
		zap.String("hotel_id", hotelID),
		zap.Int("rooms", len(catalog)),
	)
	return text, nil
}

// Invalidate drops hotelID from the cache and reports whether it was there.
func (c *Cache) Invalidate(hotelID string) bool {
	removed := c.entries.Remove(hotelID)
	if removed {
		c.logger.Info("🧹 hotel knowledge invalidated", zap.String("hotel_id", hotelID))
	}
	return removed
}

// Len returns the number of cached hotels.
func (c *Cache) Len() int {
	return c.entries.Len()
}

var amenityPrefixes = strings.NewReplacer(
	"tech_", "Tecnologia: ",
	"kitchen_", "Cozinha: ",
	"comfort_", "Conforto: ",
	"outdoor_", "Área Externa: ",
	"bathroom_", "Banheiro: ",
	"extra_", "Extra: ",
	"workspace_", "Espaço de Trabalho: ",
)

// FormatCatalog renders catalog entries as a text block for the model.
func FormatCatalog(catalog []models.CatalogEntry) string {
	if len(catalog) == 0 {
		return EmptyCatalog
	}

	var b strings.Builder
	b.WriteString("**Catálogo de Quartos Disponíveis:**\n\n")
	for _, room := range catalog {
		fmt.Fprintf(&b, "* Nome do Quarto: %s\n", orNA(room.Name))
		fmt.Fprintf(&b, "  - Descrição: %s\n", orNA(room.Description))
		if room.Capacity > 0 {
			fmt.Fprintf(&b, "  - Capacidade: Até %d pessoas\n", room.Capacity)
		}
		if room.DailyRate > 0 {
			fmt.Fprintf(&b, "  - Diária: R$ %.2f\n", room.DailyRate)
		}

		if amenities := friendlyAmenities(room.Amenities); len(amenities) > 0 {
			fmt.Fprintf(&b, "  - Comodidades: %s\n", strings.Join(amenities, ", "))
		}
		if len(room.Photos) > 0 {
			fmt.Fprintf(&b, "  - Fotos: Veja em %s\n", strings.Join(room.Photos, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func friendlyAmenities(amenities map[string]bool) []string {
	var names []string
	for name, present := range amenities {
		if present {
			names = append(names, amenityPrefixes.Replace(name))
		}
	}
	sort.Strings(names)
	return names
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
