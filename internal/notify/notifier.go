package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/opedromartinss/cotacoes-cafe-cacau/internal/market"
)

// Update summarises what a collection run changed.
type Update struct {
	NewDates []string
	Arabica  *decimal.Decimal
	Robusta  *decimal.Decimal
	Records  int
}

// Notifier delivers collection updates.
type Notifier interface {
	Notify(ctx context.Context, update Update) error
}

// TelegramNotifier pushes updates through the Telegram Bot API.
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
		logger:   logger.With().Str("component", "notify_telegram").Logger(),
	}
}

// Notify sends the rendered update via the sendMessage API.
func (n *TelegramNotifier) Notify(ctx context.Context, update Update) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderMessage(update),
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
		return fmt.Errorf("telegram unexpected status: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram returned ok=false")
		}
	}

	n.logger.Info().Strs("new_dates", update.NewDates).Msg("update sent (Telegram)")
	return nil
}

func renderMessage(update Update) string {
	builder := strings.Builder{}
	builder.WriteString("[Cotações Café]\n")
	if len(update.NewDates) > 0 {
		builder.WriteString(fmt.Sprintf("Novas datas: %s\n", strings.Join(update.NewDates, ", ")))
	}
	if update.Arabica != nil {
		builder.WriteString(fmt.Sprintf("Arábica: %s/saca\n", market.FormatBRL(*update.Arabica)))
	}
	if update.Robusta != nil {
		builder.WriteString(fmt.Sprintf("Robusta: %s/saca\n", market.FormatBRL(*update.Robusta)))
	}
	builder.WriteString(fmt.Sprintf("Registros retidos: %d\n", update.Records))
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
