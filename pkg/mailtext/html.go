package mailtext

import (
	"strings"

	"golang.org/x/net/html"
)

var blockTags = map[string]bool{
	"p": true, "div": true, "li": true, "tr": true, "table": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// inlineTags format a run inside a sentence, sometimes mid-word, so they are
// removed without a separator. Every other tag separates words.
var inlineTags = map[string]bool{
	"b": true, "strong": true, "i": true, "em": true, "u": true, "s": true,
	"small": true, "sup": true, "sub": true, "font": true, "mark": true, "abbr": true,
}

// HTMLToText renders an HTML fragment as readable text. style and script
// content is dropped, block closings and <br> become newlines, list items get
// a "• " marker, other non-inline tags become spaces and entities are decoded.
func HTMLToText(src string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(src))
	skipping := ""

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return tidy(b.String())

		case html.TextToken:
			if skipping == "" {
				b.Write(z.Text())
			}

		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if skipping != "" {
				continue
			}
			switch {
			case tag == "style" || tag == "script":
				if tt == html.StartTagToken {
					skipping = tag
				}
			case tag == "br":
				b.WriteByte('\n')
			case tag == "li":
				b.WriteString("• ")
			case !inlineTags[tag]:
				b.WriteByte(' ')
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if skipping != "" {
				if tag == skipping {
					skipping = ""
				}
				continue
			}
			switch {
			case blockTags[tag] || tag == "br":
				b.WriteByte('\n')
			case !inlineTags[tag]:
				b.WriteByte(' ')
			}
		}
	}
}
