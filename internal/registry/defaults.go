package registry

// Static fallback tables used when the catalog is absent, errors out, or has
// no rows for a country. Priorities start at 1 and leave gaps for catalog
// overrides to slot in between.
var defaultSources = map[string][]MarketSource{
	"FR": {
		{
			CountryCode: "FR",
			Name:        "google_shopping_fr",
			BaseURL:     "https://www.google.fr",
			PriceSelectors: []string{
				"span.a8Pemb",
				"div.sh-dgr__grid-result span[aria-hidden=\"true\"]",
			},
			Priority: 1,
			Weight:   1.0,
			Enabled:  true,
		},
		{
			CountryCode: "FR",
			Name:        "amazon_fr",
			BaseURL:     "https://www.amazon.fr",
			PriceSelectors: []string{
				"span.a-price .a-offscreen",
				"span.a-price-whole",
			},
			Priority: 2,
			Weight:   1.0,
			Enabled:  true,
		},
		{
			CountryCode: "FR",
			Name:        "fnac",
			BaseURL:     "https://www.fnac.com",
			PriceSelectors: []string{
				".f-priceBox-price",
				".userPrice",
			},
			Priority: 3,
			Weight:   0.8,
			Enabled:  true,
		},
		{
			CountryCode: "FR",
			Name:        "cdiscount",
			BaseURL:     "https://www.cdiscount.com",
			PriceSelectors: []string{
				".c-price--promo",
				".fpPrice",
			},
			Priority: 4,
			Weight:   0.8,
			Enabled:  true,
		},
	},
	"GB": {
		{
			CountryCode: "GB",
			Name:        "google_shopping_uk",
			BaseURL:     "https://www.google.co.uk",
			PriceSelectors: []string{
				"span.a8Pemb",
				"div.sh-dgr__grid-result span[aria-hidden=\"true\"]",
			},
			Priority: 1,
			Weight:   1.0,
			Enabled:  true,
		},
		{
			CountryCode: "GB",
			Name:        "amazon_uk",
			BaseURL:     "https://www.amazon.co.uk",
			PriceSelectors: []string{
				"span.a-price .a-offscreen",
				"span.a-price-whole",
			},
			Priority: 2,
			Weight:   1.0,
			Enabled:  true,
		},
		{
			CountryCode: "GB",
			Name:        "ebay_uk",
			BaseURL:     "https://www.ebay.co.uk",
			PriceSelectors: []string{
				".s-item__price",
				".x-price-primary span",
			},
			Priority: 3,
			Weight:   0.7,
			Enabled:  true,
		},
		{
			CountryCode: "GB",
			Name:        "argos",
			BaseURL:     "https://www.argos.co.uk",
			PriceSelectors: []string{
				"[data-test=\"product-price\"]",
				".prices strong",
			},
			Priority: 4,
			Weight:   0.7,
			Enabled:  true,
		},
	},
	"US": {
		{
			CountryCode: "US",
			Name:        "google_shopping_us",
			BaseURL:     "https://www.google.com",
			PriceSelectors: []string{
				"span.a8Pemb",
				"div.sh-dgr__grid-result span[aria-hidden=\"true\"]",
			},
			Priority: 1,
			Weight:   1.0,
			Enabled:  true,
		},
		{
			CountryCode: "US",
			Name:        "amazon_us",
			BaseURL:     "https://www.amazon.com",
			PriceSelectors: []string{
				"span.a-price .a-offscreen",
				"span.a-price-whole",
			},
			Priority: 2,
			Weight:   1.0,
			Enabled:  true,
		},
		{
			CountryCode: "US",
			Name:        "ebay_us",
			BaseURL:     "https://www.ebay.com",
			PriceSelectors: []string{
				".s-item__price",
				".x-price-primary span",
			},
			Priority: 3,
			Weight:   0.7,
			Enabled:  true,
		},
		{
			CountryCode: "US",
			Name:        "walmart",
			BaseURL:     "https://www.walmart.com",
			PriceSelectors: []string{
				"[data-automation-id=\"product-price\"]",
				"span[itemprop=\"price\"]",
			},
			Priority: 4,
			Weight:   0.8,
			Enabled:  true,
		},
		{
			CountryCode: "US",
			Name:        "bestbuy",
			BaseURL:     "https://www.bestbuy.com",
			PriceSelectors: []string{
				".priceView-customer-price span",
				".pricing-price__regular-price",
			},
			Priority: 5,
			Weight:   0.8,
			Enabled:  true,
		},
	},
}

func defaultsForCountry(countryCode string) []MarketSource {
	sources, ok := defaultSources[countryCode]
	if !ok {
		return nil
	}
	out := make([]MarketSource, len(sources))
	copy(out, sources)
	return out
}
