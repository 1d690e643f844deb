package fetcher

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubFetcher struct {
	body []byte
	err  error
}

func (s *stubFetcher) Get(ctx context.Context, url string) ([]byte, error) {
	return s.body, s.err
}

const widgetHTML = `<html><body>
<table>
  <thead><tr><th>Data</th><th>Valor</th></tr></thead>
  <tbody>
    <tr><td>05/09/2025</td><td>2.277,03</td><td>+0,35%</td></tr>
    <tr><td>04/09/2025</td><td>2.270,00</td><td>-0,10%</td></tr>
  </tbody>
</table>
</body></html>`

func fixedNow() time.Time {
	return time.Date(2025, 9, 5, 14, 0, 0, 0, time.UTC)
}

func TestWidgetProduce(t *testing.T) {
	w := NewWidget(&stubFetcher{body: []byte(widgetHTML)}, "https://example.com/widget", "arabica", noopLogger())
	w.now = fixedNow

	records, err := w.Produce(context.Background())
	if err != nil {
		t.Fatalf("produce: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected single record, got %d", len(records))
	}

	r := records[0]
	if r.Valor.String() != "2277.03" {
		t.Fatalf("unexpected value %s", r.Valor)
	}
	if r.ReferenteA != "2025-09-05" {
		t.Fatalf("unexpected reference date %s", r.ReferenteA)
	}
	if r.Tipo != "arabica" || r.Produto != "cafe" || r.Moeda != "BRL" {
		t.Fatalf("unexpected record identity: %+v", r)
	}
	if r.ColetadoEm != "2025-09-05T14:00:00Z" {
		t.Fatalf("unexpected collection timestamp %s", r.ColetadoEm)
	}
}

func TestWidgetMissingTableBody(t *testing.T) {
	w := NewWidget(&stubFetcher{body: []byte("<html><body><p>manutencao</p></body></html>")},
		"https://example.com/widget", "arabica", noopLogger())

	if _, err := w.Produce(context.Background()); err == nil {
		t.Fatal("missing tbody must be an error for the widget producer")
	}
}

func TestWidgetUnexpectedColumns(t *testing.T) {
	w := NewWidget(&stubFetcher{body: []byte("<table><tbody><tr><td>05/09/2025</td></tr></tbody></table>")},
		"https://example.com/widget", "arabica", noopLogger())

	if _, err := w.Produce(context.Background()); err == nil {
		t.Fatal("short row must be an error")
	}
}

func TestWidgetUnparseableDateDegradesToUndated(t *testing.T) {
	w := NewWidget(&stubFetcher{body: []byte("<table><tbody><tr><td>hoje</td><td>2.277,03</td></tr></tbody></table>")},
		"https://example.com/widget", "arabica", noopLogger())
	w.now = fixedNow

	records, err := w.Produce(context.Background())
	if err != nil {
		t.Fatalf("produce: %v", err)
	}
	if records[0].ReferenteA != "" {
		t.Fatalf("expected undated record, got %q", records[0].ReferenteA)
	}
	if records[0].EffectiveDate() != "2025-09-05" {
		t.Fatalf("effective date must fall back to collection day, got %s", records[0].EffectiveDate())
	}
}

func TestWidgetFetchErrorPropagates(t *testing.T) {
	w := NewWidget(&stubFetcher{err: errors.New("boom")}, "https://example.com/widget", "arabica", noopLogger())
	if _, err := w.Produce(context.Background()); err == nil {
		t.Fatal("fetch error must propagate")
	}
}
