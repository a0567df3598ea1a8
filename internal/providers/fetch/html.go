package fetch

import (
	"regexp"
	"strings"
)

var (
	reTitle   = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	reDropped = regexp.MustCompile(`(?is)<(script|style|noscript)[^>]*>.*?</(script|style|noscript)>`)
	reNav     = regexp.MustCompile(`(?is)<(nav|header|footer|aside)[^>]*>.*?</(nav|header|footer|aside)>`)
	reTag     = regexp.MustCompile(`(?s)<[^>]+>`)
	reEntity  = regexp.MustCompile(`&(amp|lt|gt|quot|#39|nbsp);`)
	reSpaces  = regexp.MustCompile(`[ \t]+`)
	reBlanks  = regexp.MustCompile(`\n{3,}`)
)

var entityMap = map[string]string{
	"&amp;":  "&",
	"&lt;":   "<",
	"&gt;":   ">",
	"&quot;": `"`,
	"&#39;":  "'",
	"&nbsp;": " ",
}

// StripHTML is the secondary extraction path: it drops non-content elements
// and tags and normalizes whitespace. Crude compared to the reader service,
// but good enough for chunking when the reader is unavailable.
func StripHTML(html string) (title, text string) {
	if m := reTitle.FindStringSubmatch(html); len(m) > 1 {
		title = strings.TrimSpace(reTag.ReplaceAllString(m[1], ""))
	}

	body := reDropped.ReplaceAllString(html, " ")
	body = reNav.ReplaceAllString(body, " ")
	body = reTag.ReplaceAllString(body, " ")
	body = reEntity.ReplaceAllStringFunc(body, func(e string) string {
		if r, ok := entityMap[e]; ok {
			return r
		}
		return " "
	})
	body = reSpaces.ReplaceAllString(body, " ")
	body = reBlanks.ReplaceAllString(body, "\n\n")

	return title, strings.TrimSpace(body)
}
