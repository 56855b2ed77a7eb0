package render

import "strings"

// Span is a run of text with uniform emphasis.
type Span struct {
	Text   string
	Accent bool
}

const accentMarker = "**"

// ParseMarkup splits text on paired ** markers into plain and accent spans.
// An unbalanced trailing marker is kept as literal text; malformed emphasis
// should degrade visibly rather than fail a whole page.
func ParseMarkup(text string) []Span {
	var spans []Span
	for len(text) > 0 {
		open := strings.Index(text, accentMarker)
		if open < 0 {
			spans = append(spans, Span{Text: text})
			break
		}
		close := strings.Index(text[open+len(accentMarker):], accentMarker)
		if close < 0 {
			// No closing marker: everything from here is literal.
			spans = append(spans, Span{Text: text})
			break
		}
		if open > 0 {
			spans = append(spans, Span{Text: text[:open]})
		}
		inner := text[open+len(accentMarker) : open+len(accentMarker)+close]
		if inner != "" {
			spans = append(spans, Span{Text: inner, Accent: true})
		}
		text = text[open+len(accentMarker)+close+len(accentMarker):]
	}
	return spans
}
