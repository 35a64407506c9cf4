package extract

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"

	"promo_engine/internal/model"
)

func TestPrice(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   float64
		wantOK bool
	}{
		{name: "thousands separator", text: "Notebook por R$ 1.299,00 à vista", want: 1299.00, wantOK: true},
		{name: "no space", text: "Fone R$50,00", want: 50.00, wantOK: true},
		{name: "millions", text: "TV R$ 1.234.567,89", want: 1234567.89, wantOK: true},
		{name: "unseparated thousands", text: "Geladeira R$2499,90", want: 2499.90, wantOK: true},
		{name: "first amount wins", text: "De R$ 199,90 por R$ 149,90", want: 199.90, wantOK: true},
		{name: "cents", text: "Cabo R$ 0,99", want: 0.99, wantOK: true},
		{name: "non-breaking space", text: "Notebook R$\u00a01.299,00", want: 1299.00, wantOK: true},
		{name: "narrow no-break space", text: "Fone R$\u202f89,90", want: 89.90, wantOK: true},
		{name: "no currency marker", text: "Apenas 50,00 hoje"},
		{name: "missing cents", text: "Por R$ 1.299 só hoje"},
		{name: "dollar amount", text: "US$ 10.00"},
		{name: "empty", text: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Price(tt.text)
			if diff := cmp.Diff(tt.wantOK, ok); diff != "" {
				t.Fatalf("Price() ok mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Price() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLink(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "first url only",
			text: "Confira: https://loja.com/x?y=1 e mais https://outra.com/z",
			want: "https://loja.com/x?y=1",
		},
		{name: "plain http", text: "link http://example.com/p", want: "http://example.com/p"},
		{name: "trailing punctuation trimmed", text: "Veja https://loja.com/oferta.", want: "https://loja.com/oferta"},
		{name: "inside parentheses", text: "(https://loja.com/a)", want: "https://loja.com/a"},
		{name: "balanced parentheses kept", text: "veja (https://x.com/a_(b)) ok", want: "https://x.com/a_(b)"},
		{name: "parenthesised path", text: "https://pt.wikipedia.org/wiki/Real_(moeda) hoje", want: "https://pt.wikipedia.org/wiki/Real_(moeda)"},
		{name: "bracket then period", text: "[https://loja.com/b].", want: "https://loja.com/b"},
		{name: "ends at non-breaking space", text: "https://loja.com/c\u00a0agora", want: "https://loja.com/c"},
		{name: "multiline", text: "Oferta\n\nhttps://amzn.to/abc\nCupom X", want: "https://amzn.to/abc"},
		{name: "scheme without host skipped", text: "https:// nada https://ok.com", want: "https://ok.com"},
		{name: "no url", text: "sem link aqui", want: model.LinkNotFound},
		{name: "ftp ignored", text: "ftp://files.example.com", want: model.LinkNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Link(tt.text)); diff != "" {
				t.Errorf("Link() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTitle(t *testing.T) {
	long := strings.Repeat("a", 150)
	accented := strings.Repeat("ç", 120)

	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "first line", text: "iPhone 15\nR$ 4.999,00", want: "iPhone 15"},
		{name: "crlf", text: "Promoção\r\nmais texto", want: "Promoção"},
		{name: "single line", text: "Cupom AMAZON10", want: "Cupom AMAZON10"},
		{name: "truncated to 100", text: long + "\nsegunda", want: long[:100]},
		{name: "truncation counts characters", text: accented, want: strings.Repeat("ç", 100)},
		{name: "empty first line", text: "\nsegunda", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Title(tt.text)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Title() mismatch (-want +got):\n%s", diff)
			}
			if n := utf8.RuneCountInString(got); n > MaxTitleLength {
				t.Errorf("Title() has %d characters, want <= %d", n, MaxTitleLength)
			}
		})
	}
}
