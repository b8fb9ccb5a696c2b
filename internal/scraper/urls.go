package scraper

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"price-scout/internal/registry"
)

// Search path templates keyed by a substring of the source host. First match
// wins; sources with no matching template get the generic ?q= form.
var searchTemplates = []struct {
	hostPart string
	path     string
}{
	{"google", "/search?tbm=shop&q=%s"},
	{"amazon", "/s?k=%s"},
	{"ebay", "/sch/i.html?_nkw=%s"},
	{"fnac", "/SearchResult/ResultList.aspx?Search=%s"},
	{"cdiscount", "/f-10-%s.html"},
	{"walmart", "/search?q=%s"},
	{"bestbuy", "/site/searchpage.jsp?st=%s"},
	{"argos", "/search/%s/"},
}

var (
	nonWordPattern    = regexp.MustCompile(`[^\p{L}\p{N}\s-]+`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// BuildSearchURL turns a product name into the source-specific search URL.
// It returns "" only when the source base URL is unusable; callers treat that
// as a terminal per-source failure.
func BuildSearchURL(source registry.MarketSource, product string) string {
	base, err := url.Parse(strings.TrimSpace(source.BaseURL))
	if err != nil || base.Host == "" || base.Scheme == "" {
		return ""
	}

	query := cleanQuery(product)
	if query == "" {
		return ""
	}

	// Shopping aggregators rank product pages higher when the query carries
	// purchase-intent keywords.
	if strings.Contains(base.Host, "google") {
		if strings.EqualFold(source.CountryCode, "FR") {
			query += " acheter prix"
		} else {
			query += " buy price"
		}
	}

	root := strings.TrimRight(source.BaseURL, "/")
	escaped := url.QueryEscape(query)

	for _, tpl := range searchTemplates {
		if strings.Contains(base.Host, tpl.hostPart) {
			return root + fmt.Sprintf(tpl.path, escaped)
		}
	}
	return root + "/?q=" + escaped
}

// cleanQuery strips punctuation and collapses whitespace so the product name
// survives URL templating on every retailer.
func cleanQuery(product string) string {
	cleaned := nonWordPattern.ReplaceAllString(product, " ")
	cleaned = whitespacePattern.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// domainOf extracts the host of a base URL for rate-limit and client keying.
func domainOf(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Host == "" {
		return "unknown"
	}
	return parsed.Host
}
