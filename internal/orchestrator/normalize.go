package orchestrator

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/person-search/internal/model"
)

// Normalize folds a query into its cache form: NFKC, lower case, single
// spaces and no leading @.
func Normalize(query string) string {
	q := cases.Lower(language.Und).String(norm.NFKC.String(query))
	q = strings.Join(strings.Fields(q), " ")
	return strings.TrimPrefix(q, "@")
}

// CacheKey is the normalized query, qualified by the candidate id when a
// candidate was selected.
func CacheKey(normalized string, c *model.Candidate) string {
	if c == nil || c.ID == "" {
		return normalized
	}
	return normalized + model.CandidateKeySeparator + c.ID
}
