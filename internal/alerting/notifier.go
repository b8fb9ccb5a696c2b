package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Notification describes a scraping degradation event: a tracked product
// whose reference price had to be simulated.
type Notification struct {
	ProductName      string
	CountryCode      string
	CorrelationID    string
	SuccessRate      float64
	SimulationReason string
	ScrapedAt        time.Time
}

// Notifier delivers degradation alerts.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier pushes alerts through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram notifier.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify sends the alert text via the sendMessage API.
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderMessage(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected telegram status: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram returned ok=false")
		}
	}

	n.logger.Info().
		Str("product", note.ProductName).
		Str("country", note.CountryCode).
		Str("correlation_id", note.CorrelationID).
		Msg("degradation alert sent")
	return nil
}

func renderMessage(note Notification) string {
	builder := strings.Builder{}
	builder.WriteString("[PriceScout Degradation]\n")
	builder.WriteString(fmt.Sprintf("Product: %s (%s)\n", note.ProductName, note.CountryCode))
	builder.WriteString(fmt.Sprintf("Scraped: %s UTC\n", note.ScrapedAt.UTC().Format(time.RFC3339)))
	builder.WriteString(fmt.Sprintf("Success rate: %.0f%%\n", note.SuccessRate*100))
	builder.WriteString(fmt.Sprintf("Reason: %s\n", note.SimulationReason))
	builder.WriteString(fmt.Sprintf("Correlation: %s\n", note.CorrelationID))
	builder.WriteString("Reference price is simulated until a source recovers.")
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
