package widget

import (
	"strings"
	"testing"
)

func TestLinkify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []Fragment
	}{
		{"plain", "no links here", []Fragment{{Text: "no links here"}}},
		{"empty", "", nil},
		{
			"https link kept exactly",
			"see https://example.com/path for more",
			[]Fragment{
				{Text: "see "},
				{Text: "https://example.com/path", Href: "https://example.com/path"},
				{Text: " for more"},
			},
		},
		{
			"www gets https href",
			"visit www.github.com/ehtisham",
			[]Fragment{
				{Text: "visit "},
				{Text: "www.github.com/ehtisham", Href: "https://www.github.com/ehtisham"},
			},
		},
		{
			"two links",
			"http://a.io and www.b.io",
			[]Fragment{
				{Text: "http://a.io", Href: "http://a.io"},
				{Text: " and "},
				{Text: "www.b.io", Href: "https://www.b.io"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Linkify(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d fragments, got %d: %+v", len(tt.want), len(got), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("fragment %d: expected %+v, got %+v", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestLinkifyHTML(t *testing.T) {
	got := string(LinkifyHTML("<b>hi</b> www.example.com"))

	if strings.Contains(got, "<b>") {
		t.Errorf("plain text must be escaped: %s", got)
	}
	want := `<a href="https://www.example.com" target="_blank" rel="noopener noreferrer">www.example.com</a>`
	if !strings.Contains(got, want) {
		t.Errorf("expected %s in %s", want, got)
	}
}
