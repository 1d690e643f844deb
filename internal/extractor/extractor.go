// Package extractor recovers price records from raw HTML through the
// OpenAI API when direct parsing yields too little, using strict
// JSON-schema structured output.
package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/opedromartinss/cotacoes-cafe-cacau/internal/market"
)

const (
	defaultModel        = "gpt-4o-mini"
	defaultTimeout      = 90 * time.Second
	defaultMaxHTMLBytes = 150_000
)

// Options parameterise the extractor.
type Options struct {
	APIKey       string
	Model        string
	BaseURL      string
	Timeout      time.Duration
	MaxHTMLBytes int
}

// Extractor asks a model to read an indicator page and emit records.
type Extractor struct {
	opts   Options
	client openai.Client
	logger zerolog.Logger
	now    func() time.Time
}

// New constructs an extractor. The zero-valued APIKey disables it; callers
// are expected to check Enabled before fetching pages solely for fallback.
func New(opts Options, logger zerolog.Logger) *Extractor {
	if opts.Model == "" {
		opts.Model = defaultModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxHTMLBytes <= 0 {
		opts.MaxHTMLBytes = defaultMaxHTMLBytes
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithRequestTimeout(opts.Timeout),
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}

	return &Extractor{
		opts:   opts,
		client: openai.NewClient(clientOpts...),
		logger: logger.With().Str("component", "ai_extractor").Logger(),
		now:    time.Now,
	}
}

// Enabled reports whether a credential is configured.
func (e *Extractor) Enabled() bool {
	return e != nil && e.opts.APIKey != ""
}

type extractedRecord struct {
	Valor      float64 `json:"valor"`
	ReferenteA *string `json:"referente_a"`
}

type extractedList struct {
	Registros []extractedRecord `json:"registros"`
}

var recordSchema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"required":             []string{"registros"},
	"properties": map[string]any{
		"registros": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []string{"valor", "referente_a"},
				"properties": map[string]any{
					"valor":       map[string]any{"type": "number"},
					"referente_a": map[string]any{"type": []string{"string", "null"}},
				},
			},
		},
	},
}

// Extract sends the page to the model and normalizes the response into
// candidate records for the given variant.
func (e *Extractor) Extract(ctx context.Context, html []byte, tipo, fonteURL string) ([]market.Record, error) {
	if !e.Enabled() {
		return nil, errors.New("extractor: no api key configured")
	}

	page := string(html)
	if len(page) > e.opts.MaxHTMLBytes {
		page = page[:e.opts.MaxHTMLBytes]
	}

	schema := shared.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:   "lista_precos",
		Schema: recordSchema,
		Strict: openai.Bool(true),
	}
	format := shared.ResponseFormatJSONSchemaParam{JSONSchema: schema}
	format.Type = format.Type.Default()

	resp, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(e.opts.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt(tipo, page)),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &format,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("extract records: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("extract records: empty response")
	}

	var decoded extractedList
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &decoded); err != nil {
		return nil, fmt.Errorf("decode extracted records: %w", err)
	}

	collected := market.Timestamp(e.now())
	records := make([]market.Record, 0, len(decoded.Registros))
	for _, item := range decoded.Registros {
		if item.Valor <= 0 {
			continue
		}
		refDate := ""
		if item.ReferenteA != nil && isISODate(*item.ReferenteA) {
			refDate = *item.ReferenteA
		}
		records = append(records, market.Record{
			Produto:    market.ProductCoffee,
			Tipo:       tipo,
			Moeda:      market.CurrencyBRL,
			Valor:      decimalFromFloat(item.Valor),
			ReferenteA: refDate,
			FonteURL:   fonteURL,
			ColetadoEm: collected,
		})
	}

	e.logger.Info().Str("tipo", tipo).Int("records", len(records)).Msg("ai extraction complete")
	return records, nil
}

func prompt(tipo, page string) string {
	var b strings.Builder
	b.WriteString("You will receive the raw HTML of a page carrying the Cepea/Esalq ")
	b.WriteString(tipo)
	b.WriteString(" coffee indicator history.\n")
	b.WriteString("Return a JSON object with a \"registros\" array holding one entry per displayed date:\n")
	b.WriteString("- valor: the price in BRL as a number with a decimal point (e.g. 1402.21)\n")
	b.WriteString("- referente_a: the closing date as YYYY-MM-DD when the page shows something like \"Fechamento: DD/MM/AAAA\", otherwise null\n\n")
	b.WriteString("HTML:\n")
	b.WriteString(page)
	return b.String()
}

func isISODate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

func decimalFromFloat(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}
