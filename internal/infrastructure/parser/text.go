package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const userAgent = "regwatch/1.0"

// plainText flattens an HTML fragment into whitespace-normalized text.
func plainText(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return collapse(fragment)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return collapse(fragment)
	}
	return collapse(doc.Text())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func sourceLabel(siteName, category string) string {
	if category == "" {
		return siteName
	}
	return siteName + "/" + category
}
