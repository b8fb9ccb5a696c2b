package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

type fakeCatalog struct {
	sources []MarketSource
	err     error
}

func (c *fakeCatalog) ListSources(ctx context.Context, countryCode string) ([]MarketSource, error) {
	return c.sources, c.err
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestSourcesForCountryDefaults(t *testing.T) {
	reg := New(nil, testLogger())

	sources := reg.SourcesForCountry(context.Background(), "FR")
	if len(sources) == 0 {
		t.Fatal("FR should have default sources")
	}
	for i, source := range sources {
		if source.CountryCode != "FR" {
			t.Fatalf("source %d has wrong country: %+v", i, source)
		}
		if !source.Enabled {
			t.Fatalf("defaults must be enabled: %+v", source)
		}
		if i > 0 && sources[i-1].Priority > source.Priority {
			t.Fatalf("sources out of priority order at %d: %v", i, sources)
		}
	}
}

func TestSourcesForCountryCaseInsensitive(t *testing.T) {
	reg := New(nil, testLogger())

	upper := reg.SourcesForCountry(context.Background(), "GB")
	lower := reg.SourcesForCountry(context.Background(), " gb ")
	if len(upper) == 0 || len(upper) != len(lower) {
		t.Fatalf("country lookup should normalise case, got %d vs %d", len(upper), len(lower))
	}
}

func TestSourcesForCountryUnsupported(t *testing.T) {
	reg := New(nil, testLogger())

	if sources := reg.SourcesForCountry(context.Background(), "ZZ"); len(sources) != 0 {
		t.Fatalf("unsupported country should yield no sources, got %d", len(sources))
	}
}

func TestSourcesForCountryCatalogPreferred(t *testing.T) {
	catalog := &fakeCatalog{sources: []MarketSource{
		{CountryCode: "FR", Name: "custom_low", Priority: 5, Enabled: true},
		{CountryCode: "FR", Name: "custom_high", Priority: 1, Enabled: true},
		{CountryCode: "FR", Name: "custom_off", Priority: 2, Enabled: false},
	}}
	reg := New(catalog, testLogger())

	sources := reg.SourcesForCountry(context.Background(), "FR")
	if len(sources) != 2 {
		t.Fatalf("disabled catalog sources should be filtered, got %d", len(sources))
	}
	if sources[0].Name != "custom_high" || sources[1].Name != "custom_low" {
		t.Fatalf("catalog sources should be priority ordered: %v", sources)
	}
}

func TestSourcesForCountryCatalogErrorFallsBack(t *testing.T) {
	catalog := &fakeCatalog{err: errors.New("connection refused")}
	reg := New(catalog, testLogger())

	sources := reg.SourcesForCountry(context.Background(), "US")
	if len(sources) == 0 {
		t.Fatal("catalog failure should fall back to defaults")
	}
	for _, source := range sources {
		if source.CountryCode != "US" {
			t.Fatalf("fallback source has wrong country: %+v", source)
		}
	}
}

func TestSourcesForCountryEmptyCatalogFallsBack(t *testing.T) {
	reg := New(&fakeCatalog{}, testLogger())

	sources := reg.SourcesForCountry(context.Background(), "FR")
	if len(sources) == 0 {
		t.Fatal("an empty catalog should fall back to defaults")
	}
}

func TestDefaultsAreCopies(t *testing.T) {
	reg := New(nil, testLogger())

	first := reg.SourcesForCountry(context.Background(), "FR")
	first[0].Name = "mutated"

	second := reg.SourcesForCountry(context.Background(), "FR")
	if second[0].Name == "mutated" {
		t.Fatal("callers must not be able to mutate the default tables")
	}
}
