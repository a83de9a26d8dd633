package scrape

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// skipped elements never carry result text.
var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Nav:      true,
	atom.Footer:   true,
	atom.Svg:      true,
	atom.Template: true,
	atom.Iframe:   true,
}

// breaks start a new line.
var breaks = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Tr: true,
	atom.Section: true, atom.Article: true, atom.Ul: true, atom.Ol: true,
	atom.Table: true, atom.Dd: true, atom.Dt: true, atom.Address: true,
}

var headingLevel = map[atom.Atom]int{
	atom.H1: 1, atom.H2: 2, atom.H3: 3, atom.H4: 4, atom.H5: 4, atom.H6: 4,
}

// htmlToText renders an HTML document as light markdown: headings and
// list items keep their markers, everything else becomes plain lines.
func htmlToText(body []byte) (title, text string) {
	z := html.NewTokenizer(bytes.NewReader(body))
	var (
		b       strings.Builder
		depth   int // inside a skipped element
		inTitle bool
	)
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or a read error; either way render what was seen.
			return title, tidy(b.String())

		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			switch {
			case skipped[a]:
				depth++
			case a == atom.Title:
				inTitle = true
			case a == atom.Li:
				b.WriteString("\n- ")
			case headingLevel[a] > 0:
				b.WriteString("\n" + strings.Repeat("#", headingLevel[a]) + " ")
			case breaks[a]:
				b.WriteByte('\n')
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			switch {
			case skipped[a]:
				if depth > 0 {
					depth--
				}
			case a == atom.Title:
				inTitle = false
			case headingLevel[a] > 0 || breaks[a] || a == atom.Li:
				b.WriteByte('\n')
			}

		case html.TextToken:
			if depth > 0 {
				continue
			}
			t := string(z.Text())
			if inTitle {
				if title == "" {
					title = strings.TrimSpace(t)
				}
				continue
			}
			b.WriteString(t)
			b.WriteByte(' ')
		}
	}
}

// tidy collapses runs of whitespace within lines and drops empty lines.
func tidy(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		l = strings.Join(strings.Fields(l), " ")
		if l == "" || l == "-" || strings.Trim(l, "# ") == "" {
			continue
		}
		out = append(out, l)
	}
	return strings.Join(out, "\n")
}
