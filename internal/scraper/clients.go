package scraper

import (
	"math/rand"
	"net"
	"net/http"
	"sync"
	"time"
)

// DefaultRequestTimeout bounds one complete HTTP exchange.
const DefaultRequestTimeout = 12 * time.Second

// Small fixed pool of desktop browser user agents. One is picked per domain
// when its client is first created, so repeated requests to a retailer look
// like one browser session.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
}

// Client pairs a reusable HTTP client with the user agent it presents.
type Client struct {
	HTTP      *http.Client
	UserAgent string
}

// ConnectionManager caches one Client per domain so keep-alive connections
// survive across attempts and retries. CloseAll drains the cache; a domain
// seen again afterwards gets a fresh client.
type ConnectionManager struct {
	mu      sync.Mutex
	clients map[string]*Client
	timeout time.Duration
}

// NewConnectionManager constructs a manager with the given total per-request
// timeout.
func NewConnectionManager(timeout time.Duration) *ConnectionManager {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &ConnectionManager{
		clients: make(map[string]*Client),
		timeout: timeout,
	}
}

// ClientFor returns the cached client for a domain, creating one on first use.
func (m *ConnectionManager) ClientFor(domain string) *Client {
	m.mu.Lock()
	defer m.mu.Unlock()

	if client, ok := m.clients[domain]; ok {
		return client
	}

	client := &Client{
		HTTP: &http.Client{
			Timeout: m.timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   m.timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		UserAgent: userAgents[rand.Intn(len(userAgents))],
	}
	m.clients[domain] = client
	return client
}

// CloseAll closes idle connections of every cached client and empties the
// cache. Used at shutdown and in test teardown.
func (m *ConnectionManager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for domain, client := range m.clients {
		client.HTTP.CloseIdleConnections()
		delete(m.clients, domain)
	}
}
