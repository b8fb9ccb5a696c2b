package registry

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// MarketSource describes one retail source configured for a country.
// Instances are resolved once per scraping request and never mutated afterwards.
type MarketSource struct {
	CountryCode    string
	Name           string
	BaseURL        string
	PriceSelectors []string
	Priority       int
	Weight         float64
	Enabled        bool
}

// Catalog is the live source-configuration lookup, usually database-backed.
// Implementations return sources for one country ordered by ascending priority.
type Catalog interface {
	ListSources(ctx context.Context, countryCode string) ([]MarketSource, error)
}

// Registry resolves the ordered source list for a country, preferring the
// live catalog and falling back to the static default tables.
type Registry struct {
	catalog Catalog
	logger  zerolog.Logger
}

// New constructs a Registry. A nil catalog is tolerated and means
// "defaults only".
func New(catalog Catalog, logger zerolog.Logger) *Registry {
	return &Registry{
		catalog: catalog,
		logger:  logger.With().Str("component", "registry").Logger(),
	}
}

// SourcesForCountry returns the enabled sources for a country code, ordered by
// ascending priority. An unsupported country yields an empty slice, not an
// error.
func (r *Registry) SourcesForCountry(ctx context.Context, countryCode string) []MarketSource {
	countryCode = strings.ToUpper(strings.TrimSpace(countryCode))

	if r.catalog != nil {
		sources, err := r.catalog.ListSources(ctx, countryCode)
		if err != nil {
			r.logger.Warn().Err(err).Str("country", countryCode).Msg("catalog lookup failed, using defaults")
		} else if cleaned := sortEnabled(sources); len(cleaned) > 0 {
			r.logger.Info().
				Str("country", countryCode).
				Str("path", "catalog").
				Int("count", len(cleaned)).
				Msg("sources resolved")
			return cleaned
		}
	}

	defaults := defaultsForCountry(countryCode)
	r.logger.Info().
		Str("country", countryCode).
		Str("path", "defaults").
		Int("count", len(defaults)).
		Msg("sources resolved")
	return defaults
}

func sortEnabled(sources []MarketSource) []MarketSource {
	cleaned := make([]MarketSource, 0, len(sources))
	for _, source := range sources {
		if source.Enabled {
			cleaned = append(cleaned, source)
		}
	}
	sort.SliceStable(cleaned, func(i, j int) bool {
		return cleaned[i].Priority < cleaned[j].Priority
	})
	return cleaned
}
