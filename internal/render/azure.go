package render

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/samvad-hq/outage-bot/internal/domain"
	"github.com/samvad-hq/outage-bot/pkg/providers"
)

const maxSummaryRunes = 200

// Azure appends a plain-text summary of the HTML description; Azure titles
// alone rarely say which regions are affected.
func Azure(p providers.Provider, e domain.FeedEntry) string {
	line := Generic(p, e)
	summary := Summary(e.Description, maxSummaryRunes)
	if summary == "" {
		return line
	}
	return line + " :: " + summary
}

// Summary extracts the text of an HTML fragment, collapses whitespace and
// truncates it to limit runes with a trailing ellipsis.
func Summary(html string, limit int) string {
	html = strings.TrimSpace(html)
	if html == "" {
		return ""
	}

	text := html
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		text = doc.Text()
	}
	text = oneLine(text)

	runes := []rune(text)
	if limit > 0 && len(runes) > limit {
		return strings.TrimSpace(string(runes[:limit])) + "…"
	}
	return text
}
