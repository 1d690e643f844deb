package extractor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func fakeCompletionServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Contains(t, r.URL.Path, "chat/completions")

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req["messages"])
		require.NotNil(t, req["response_format"], "structured output must be requested")

		resp := map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"model":   "gpt-4o-mini",
			"created": time.Now().Unix(),
			"choices": []map[string]any{
				{
					"index":         0,
					"finish_reason": "stop",
					"message": map[string]any{
						"role":    "assistant",
						"content": content,
					},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestExtract(t *testing.T) {
	srv := fakeCompletionServer(t, `{"registros": [
		{"valor": 2277.034, "referente_a": "2025-09-05"},
		{"valor": 2270.00, "referente_a": null},
		{"valor": -1, "referente_a": "2025-09-03"}
	]}`)
	defer srv.Close()

	e := New(Options{APIKey: "test-key", BaseURL: srv.URL}, zerolog.Nop())
	e.now = func() time.Time { return time.Date(2025, 9, 5, 14, 0, 0, 0, time.UTC) }

	records, err := e.Extract(context.Background(), []byte("<html>pagina</html>"), "arabica", "https://example.com/indicador")
	require.NoError(t, err)
	require.Len(t, records, 2, "non-positive values must be discarded")

	require.Equal(t, "2277.03", records[0].Valor.String(), "values are rounded to 2 decimals")
	require.Equal(t, "2025-09-05", records[0].ReferenteA)
	require.Equal(t, "cafe", records[0].Produto)
	require.Equal(t, "arabica", records[0].Tipo)
	require.Equal(t, "BRL", records[0].Moeda)
	require.Equal(t, "https://example.com/indicador", records[0].FonteURL)
	require.Equal(t, "2025-09-05T14:00:00Z", records[0].ColetadoEm)

	require.Empty(t, records[1].ReferenteA, "null closing dates yield undated records")
}

func TestExtractRejectsMalformedDates(t *testing.T) {
	srv := fakeCompletionServer(t, `{"registros": [{"valor": 2277.03, "referente_a": "05/09/2025"}]}`)
	defer srv.Close()

	e := New(Options{APIKey: "test-key", BaseURL: srv.URL}, zerolog.Nop())
	records, err := e.Extract(context.Background(), []byte("<html></html>"), "conillon", "https://example.com")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Empty(t, records[0].ReferenteA, "non-ISO dates degrade to undated")
}

func TestExtractDisabledWithoutKey(t *testing.T) {
	e := New(Options{}, zerolog.Nop())
	require.False(t, e.Enabled())

	_, err := e.Extract(context.Background(), []byte("<html></html>"), "arabica", "https://example.com")
	require.Error(t, err)
}

func TestExtractTruncatesOversizedPages(t *testing.T) {
	var promptLen int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		promptLen = len(req.Messages[0].Content)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"x","object":"chat.completion","model":"gpt-4o-mini","created":1,"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"{\"registros\":[]}"}}]}`))
	}))
	defer srv.Close()

	e := New(Options{APIKey: "test-key", BaseURL: srv.URL, MaxHTMLBytes: 100}, zerolog.Nop())

	page := make([]byte, 10_000)
	for i := range page {
		page[i] = 'a'
	}
	records, err := e.Extract(context.Background(), page, "arabica", "https://example.com")
	require.NoError(t, err)
	require.Empty(t, records)
	require.Less(t, promptLen, 1_000, "page must be capped before prompting")
}
