package service

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

var (
	quoteReplacer = strings.NewReplacer(
		"“", `"`, "”", `"`, "„", `"`, "«", `"`, "»", `"`,
		"‘", "'", "’", "'", "‚", "'", "´", "'",
	)
	spaceRun     = regexp.MustCompile(`[ \t\f\v\x{00A0}]+`)
	newlineRun   = regexp.MustCompile(`\n{2,}`)
	periodNoGap  = regexp.MustCompile(`\.(\p{Lu})`)
	spaceNewline = regexp.MustCompile(` *\n *`)
)

// blockTags break text when stripped.
var blockTags = map[string]bool{
	"br": true, "p": true, "div": true, "li": true, "ul": true, "ol": true,
	"tr": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// CleanText strips markup and normalizes product text for the destination
// catalog: HTML tags and control characters go, typographic quotes become
// ASCII, whitespace and newlines collapse, and sentences get a space after
// the period.
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	s = stripHTML(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r == '\r':
			return '\n'
		case unicode.IsControl(r), r == '\u200b', r == '\ufeff':
			return -1
		}
		return r
	}, s)
	s = quoteReplacer.Replace(s)
	s = spaceRun.ReplaceAllString(s, " ")
	s = spaceNewline.ReplaceAllString(s, "\n")
	s = newlineRun.ReplaceAllString(s, "\n")
	s = periodNoGap.ReplaceAllString(s, ". $1")
	return strings.TrimSpace(s)
}

func stripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if blockTags[string(name)] {
				b.WriteByte('\n')
			}
		}
	}
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
