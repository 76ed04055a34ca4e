// Package matching implements the text normalization, similarity scoring
// and document-type classification used to match a user-supplied company
// name against SEBI filing titles.
package matching

import (
	"regexp"
	"strings"
)

// Words stripped from both the query and candidate titles before scoring,
// so that partial queries like "Zomato" match "Zomato Limited - RHP".
var stopwords = map[string]bool{
	"rhp": true, "drhp": true,
	"limited": true, "ltd": true,
	"india": true, "indian": true,
	"private": true, "pvt": true,
	"company": true, "co": true,
	"industries": true, "industry": true,
}

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9\s]`)

// Normalize lowercases text, strips punctuation, removes noise stopwords
// and collapses whitespace. It is applied to BOTH the user query and every
// candidate title before similarity scoring; comparing a normalized string
// against a raw one is a bug.
func Normalize(text string) string {
	text = strings.ToLower(text)
	text = nonAlnumRe.ReplaceAllString(text, " ")

	var kept []string
	for _, tok := range strings.Fields(text) {
		if !stopwords[tok] {
			kept = append(kept, tok)
		}
	}
	return strings.Join(kept, " ")
}
