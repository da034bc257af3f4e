package widget

import (
	"html/template"
	"regexp"
	"strings"
)

var urlRe = regexp.MustCompile(`https?://[^\s]+|www\.[^\s]+`)

// Fragment is a piece of a rendered message: plain text, or a link when Href
// is set. Text always holds the original substring.
type Fragment struct {
	Text string
	Href string
}

func (f Fragment) IsLink() bool { return f.Href != "" }

// Linkify splits text into plain and link fragments. "www." links get an
// https:// href; the visible text is left untouched.
func Linkify(text string) []Fragment {
	matches := urlRe.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		if text == "" {
			return nil
		}
		return []Fragment{{Text: text}}
	}

	fragments := make([]Fragment, 0, 2*len(matches)+1)
	last := 0
	for _, m := range matches {
		if m[0] > last {
			fragments = append(fragments, Fragment{Text: text[last:m[0]]})
		}
		raw := text[m[0]:m[1]]
		href := raw
		if !strings.HasPrefix(raw, "http") {
			href = "https://" + raw
		}
		fragments = append(fragments, Fragment{Text: raw, Href: href})
		last = m[1]
	}
	if last < len(text) {
		fragments = append(fragments, Fragment{Text: text[last:]})
	}
	return fragments
}

// LinkifyHTML renders text as escaped HTML with clickable links that open in
// a new tab.
func LinkifyHTML(text string) template.HTML {
	var b strings.Builder
	for _, f := range Linkify(text) {
		if !f.IsLink() {
			b.WriteString(template.HTMLEscapeString(f.Text))
			continue
		}
		b.WriteString(`<a href="`)
		b.WriteString(template.HTMLEscapeString(f.Href))
		b.WriteString(`" target="_blank" rel="noopener noreferrer">`)
		b.WriteString(template.HTMLEscapeString(f.Text))
		b.WriteString(`</a>`)
	}
	return template.HTML(b.String())
}
