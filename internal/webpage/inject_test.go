package webpage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const pageHTML = `<!DOCTYPE html>
<html><body>
<span id="preco-arabica">carregando...</span>
<span id="preco-robusta">carregando...</span>
<span id="preco-cacau">carregando...</span>
</body></html>`

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func writePage(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.html")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestInjectReplacesPlaceholders(t *testing.T) {
	path := writePage(t, pageHTML)

	inj := NewInjector(path, zerolog.Nop())
	if err := inj.Inject(dec("2277.03"), dec("1402.21")); err != nil {
		t.Fatalf("inject: %v", err)
	}

	out, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	html := string(out)
	if !strings.Contains(html, "R$ 2.277,03") {
		t.Fatalf("arabica placeholder not replaced: %s", html)
	}
	if !strings.Contains(html, "R$ 1.402,21") {
		t.Fatalf("robusta placeholder not replaced: %s", html)
	}
	if !strings.Contains(html, `id="preco-cacau">carregando...`) {
		t.Fatal("unrelated placeholders must stay untouched")
	}
}

func TestInjectMissingPlaceholderIsNoop(t *testing.T) {
	path := writePage(t, "<html><body><p>sem placeholders</p></body></html>")
	before, _ := os.ReadFile(path)

	inj := NewInjector(path, zerolog.Nop())
	if err := inj.Inject(dec("2277.03"), dec("1402.21")); err != nil {
		t.Fatalf("inject: %v", err)
	}

	after, _ := os.ReadFile(path)
	if string(before) != string(after) {
		t.Fatal("document without placeholders must not be rewritten")
	}
}

func TestInjectMissingFileIsNoop(t *testing.T) {
	inj := NewInjector(filepath.Join(t.TempDir(), "missing.html"), zerolog.Nop())
	if err := inj.Inject(dec("2277.03"), dec("1402.21")); err != nil {
		t.Fatalf("missing file must be a no-op: %v", err)
	}
}

func TestInjectNilValueLeavesPlaceholder(t *testing.T) {
	path := writePage(t, pageHTML)

	inj := NewInjector(path, zerolog.Nop())
	if err := inj.Inject(dec("2277.03"), nil); err != nil {
		t.Fatalf("inject: %v", err)
	}

	out, _ := os.ReadFile(path)
	if !strings.Contains(string(out), `id="preco-robusta">carregando...`) {
		t.Fatal("nil value must leave its placeholder untouched")
	}
}
