package telegram

import (
	"regexp"
	"strings"
)

var (
	lineBreakTags = regexp.MustCompile(`(?i)</p\s*>|</div\s*>|<br\s*/?\s*>`)
	wrapperTags   = regexp.MustCompile(`(?i)<(?:p|div|span)(?:\s[^>]*)?>|</span\s*>`)
	openingTag    = regexp.MustCompile(`<[a-zA-Z](?:[^>"']|"[^"]*"|'[^']*')*>`)
	tagParts      = regexp.MustCompile(`(?s)^(<[a-zA-Z][^\s/>]*)(.*?)(\s*/?>)$`)
	attribute     = regexp.MustCompile(`\s+([^\s=/>"']+)(?:\s*=\s*(?:"[^"]*"|'[^']*'|[^\s"'>]+))?`)
	blankLineRuns = regexp.MustCompile(`\n{3,}`)
)

// Layout attributes Telegram rejects or ignores
var strippedAttrs = map[string]bool{
	"class": true, "style": true, "id": true, "dir": true,
	"target": true, "rel": true, "width": true, "height": true,
}

// Sanitize rewrites rich-text editor HTML into the subset Telegram accepts
// with parse_mode=HTML. Paragraph and div boundaries become line breaks,
// wrapper tags are dropped and layout attributes are removed. Tags outside
// those rules are left as they are.
func Sanitize(html string) string {
	out := html
	for {
		next := sanitizePass(out)
		if next == out {
			return out
		}
		out = next
	}
}

func sanitizePass(s string) string {
	s = lineBreakTags.ReplaceAllString(s, "\n")
	s = wrapperTags.ReplaceAllString(s, "")
	s = openingTag.ReplaceAllStringFunc(s, stripAttributes)
	s = blankLineRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// stripAttributes drops layout attributes from one opening tag. Attributes
// are matched whole, so text inside another attribute's quoted value is
// never mistaken for an attribute.
func stripAttributes(tag string) string {
	parts := tagParts.FindStringSubmatch(tag)
	if parts == nil {
		return tag
	}
	name, attrs, end := parts[1], parts[2], parts[3]

	var b strings.Builder
	b.WriteString(name)
	last := 0
	for _, loc := range attribute.FindAllStringSubmatchIndex(attrs, -1) {
		b.WriteString(attrs[last:loc[0]])
		if !strippedAttrs[strings.ToLower(attrs[loc[2]:loc[3]])] {
			b.WriteString(attrs[loc[0]:loc[1]])
		}
		last = loc[1]
	}
	b.WriteString(attrs[last:])
	b.WriteString(end)
	return b.String()
}
