package pdl

import (
	"fmt"
	"strings"
)

// Query holds the attributes a person search is composed from.
type Query struct {
	Name     string
	Location string
	Company  string
	School   string
	Social   string
	// Age in years. Zero means unknown.
	Age int
}

var socialPrefixes = []string{
	"instagram:", "twitter:", "facebook:", "linkedin:", "github:",
	"https://", "http://", "www.",
}

// BuildSQL composes a PDL person search query. Age becomes a birth-year
// window of currentYear-age±1. It returns "" when q has no usable fields.
func BuildSQL(q Query, currentYear int) string {
	var clauses []string

	if q.Name != "" {
		clauses = append(clauses, fmt.Sprintf("full_name='%s'", escape(q.Name)))
	}
	if q.Location != "" {
		clauses = append(clauses, fmt.Sprintf("location_name LIKE '%%%s%%'", escape(q.Location)))
	}
	if q.Company != "" {
		clauses = append(clauses, fmt.Sprintf("job_company_name LIKE '%%%s%%'", escape(q.Company)))
	}
	if q.School != "" {
		clauses = append(clauses, fmt.Sprintf("education_school_name LIKE '%%%s%%'", escape(q.School)))
	}
	if q.Social != "" {
		s := strings.ToLower(q.Social)
		for _, p := range socialPrefixes {
			s = strings.TrimSpace(strings.ReplaceAll(s, p, ""))
		}
		s = escape(s)
		clauses = append(clauses, fmt.Sprintf(
			"(linkedin_url LIKE '%%%[1]s%%' OR twitter_url LIKE '%%%[1]s%%' OR facebook_url LIKE '%%%[1]s%%' OR github_url LIKE '%%%[1]s%%')",
			s,
		))
	}
	if q.Age > 0 {
		birth := currentYear - q.Age
		clauses = append(clauses, fmt.Sprintf("birth_year BETWEEN %d AND %d", birth-1, birth+1))
	}

	if len(clauses) == 0 {
		return ""
	}
	return "SELECT * FROM person WHERE " + strings.Join(clauses, " AND ")
}

func escape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
