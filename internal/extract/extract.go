package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// References returns the src attribute of every img element in document
// order. Elements without a src attribute are skipped; duplicates are kept.
func References(htmlContent string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var srcs []string
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok {
			srcs = append(srcs, src)
		}
	})

	return srcs, nil
}

// Title extracts the <title> content from HTML.
func Title(htmlContent string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
