package model

import (
	"fmt"
	"strconv"
	"strings"
)

// CandidateKeySeparator joins a normalized query and a candidate id in a
// cache key.
const CandidateKeySeparator = "::"

// CandidateSource tags where a candidate was discovered.
type CandidateSource string

const (
	CandidateSourcePDL     CandidateSource = "pdl"
	CandidateSourceSerpAPI CandidateSource = "serpapi"
	CandidateSourceLLM     CandidateSource = "llm"
)

// Candidate is one hypothesis for the person a query refers to.
type Candidate struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	ImageURL        string          `json:"imageUrl,omitempty"`
	SimilarityScore *float64        `json:"similarityScore,omitempty"`
	Rank            int             `json:"rank,omitempty"`
	HasFaceImage    bool            `json:"hasFaceImage,omitempty"`
	Source          CandidateSource `json:"source"`

	PDLID       string `json:"pdl_id,omitempty"`
	LinkedInURL string `json:"linkedin_url,omitempty"`
	TwitterURL  string `json:"twitter_url,omitempty"`
}

// Score returns the similarity score, or 0 when unset.
func (c Candidate) Score() float64 {
	if c.SimilarityScore == nil {
		return 0
	}
	return *c.SimilarityScore
}

// Company parses the company out of a "Title at Company • Location"
// description. It returns "" when the description has no " at " part.
func (c Candidate) Company() string {
	_, after, ok := strings.Cut(c.Description, " at ")
	if !ok {
		return ""
	}
	company, _, _ := strings.Cut(after, " • ")
	return strings.TrimSpace(company)
}

// Location parses the trailing "• Location" part of the description.
func (c Candidate) Location() string {
	i := strings.LastIndex(c.Description, " • ")
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(c.Description[i+len(" • "):])
}

// UniqueIDs rewrites ids in place so that no two candidates share one. A
// blank id takes the candidate's name, and later repeats get -2, -3
// suffixes. The id ends up in a cache key, so two people must never share
// it.
func UniqueIDs(cands []Candidate) {
	used := make(map[string]bool, len(cands))
	seen := make(map[string]int, len(cands))
	for i := range cands {
		base := strings.TrimSpace(cands[i].ID)
		if base == "" {
			base = strings.TrimSpace(cands[i].Name)
		}
		if base == "" {
			base = "candidate"
		}
		id := base
		for n := max(seen[base], 1) + 1; used[id]; n++ {
			id = fmt.Sprintf("%s-%d", base, n)
			seen[base] = n
		}
		used[id] = true
		cands[i].ID = id
	}
}

// Refinements are optional attributes narrowing a candidate search.
type Refinements struct {
	Age      string `json:"age,omitempty"`
	Location string `json:"location,omitempty"`
	School   string `json:"school,omitempty"`
	Company  string `json:"company,omitempty"`
	Social   string `json:"social,omitempty"`
}

// IdentityQuery is a structured identity-graph lookup.
type IdentityQuery struct {
	Name string
	Refinements
}

// AgeYears parses Age when it is all digits.
func (r Refinements) AgeYears() (int, bool) {
	a := strings.TrimSpace(r.Age)
	if a == "" {
		return 0, false
	}
	for _, ch := range a {
		if ch < '0' || ch > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(a)
	if err != nil {
		return 0, false
	}
	return n, true
}

// RefinedQuery appends the non-empty refinements to query in the fixed
// order age, location, school, company, social.
func (r Refinements) RefinedQuery(query string) string {
	parts := []string{query}
	if a := strings.TrimSpace(r.Age); a != "" {
		parts = append(parts, "age "+a)
	}
	for _, v := range []string{r.Location, r.School, r.Company, r.Social} {
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}
