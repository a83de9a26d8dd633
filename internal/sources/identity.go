package sources

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/person-search/internal/model"
	"github.com/sells-group/person-search/internal/resilience"
	"github.com/sells-group/person-search/pkg/pdl"
)

const pdlSearchSize = 10

// PDL is the People Data Labs identity graph.
type PDL struct {
	client pdl.Client
	retry  resilience.RetryConfig
	now    func() time.Time
}

// NewPDL wraps client. Transient failures are retried per retry.
func NewPDL(client pdl.Client, retry resilience.RetryConfig) *PDL {
	retry.OnRetry = resilience.RetryLogger("pdl", "search")
	return &PDL{client: client, retry: retry, now: time.Now}
}

// Search looks people up by name and refinements. Age becomes a birth-year
// window of one year either side.
func (p *PDL) Search(ctx context.Context, q model.IdentityQuery) ([]model.Candidate, error) {
	age, _ := q.AgeYears()
	sql := pdl.BuildSQL(pdl.Query{
		Name:     strings.TrimSpace(q.Name),
		Location: strings.TrimSpace(q.Location),
		Company:  strings.TrimSpace(q.Company),
		School:   strings.TrimSpace(q.School),
		Social:   strings.TrimSpace(q.Social),
		Age:      age,
	}, p.now().Year())
	if sql == "" {
		return nil, nil
	}
	zap.L().Debug("pdl: search", zap.String("sql", sql))

	resp, err := resilience.DoVal(ctx, p.retry, func(ctx context.Context) (*pdl.SearchResponse, error) {
		return p.client.Search(ctx, sql, pdlSearchSize)
	})
	if err != nil {
		return nil, eris.Wrap(err, "pdl: search")
	}

	out := make([]model.Candidate, 0, len(resp.Data))
	for _, person := range resp.Data {
		out = append(out, pdlCandidate(person))
	}
	return out, nil
}

// pdlCandidate renders "Title at Company • Location". PDL carries no
// public photo, so ImageURL stays empty until hydration.
func pdlCandidate(person pdl.Person) model.Candidate {
	name := pdl.Str(person.FullName)
	if name == "" {
		name = "Unknown"
	}
	title := pdl.Str(person.JobTitle)
	company := pdl.Str(person.JobCompanyName)

	var parts []string
	switch {
	case title != "" && company != "":
		parts = append(parts, title+" at "+company)
	case title != "":
		parts = append(parts, title)
	case company != "":
		parts = append(parts, company)
	}
	if loc := pdl.Str(person.LocationName); loc != "" {
		parts = append(parts, loc)
	}

	id := person.ID
	if id == "" {
		id = name
	}
	return model.Candidate{
		ID:          id,
		Name:        name,
		Description: strings.Join(parts, " • "),
		Source:      model.CandidateSourcePDL,
		PDLID:       person.ID,
		LinkedInURL: pdl.Str(person.LinkedInURL),
		TwitterURL:  pdl.Str(person.TwitterURL),
	}
}

// Enrich fetches the full record for a PDL id or profile URL.
func (p *PDL) Enrich(ctx context.Context, key model.EnrichKey) (*model.IdentityRecord, error) {
	params := pdl.EnrichParams{PDLID: key.ID, Profile: key.ProfileURL}
	if params.PDLID == "" && params.Profile == "" {
		return nil, nil
	}
	person, err := resilience.DoVal(ctx, p.retry, func(ctx context.Context) (*pdl.Person, error) {
		return p.client.Enrich(ctx, params)
	})
	if err != nil {
		return nil, eris.Wrap(err, "pdl: enrich")
	}
	if person == nil {
		return nil, nil
	}
	return identityRecord(person), nil
}

func identityRecord(person *pdl.Person) *model.IdentityRecord {
	rec := &model.IdentityRecord{
		ID:               person.ID,
		FullName:         pdl.Str(person.FullName),
		JobTitle:         pdl.Str(person.JobTitle),
		JobCompanyName:   pdl.Str(person.JobCompanyName),
		LocationName:     pdl.Str(person.LocationName),
		LinkedInURL:      person.LinkedInURL,
		LinkedInUsername: person.LinkedInUsername,
		TwitterURL:       person.TwitterURL,
		TwitterUsername:  person.TwitterUsername,
		FacebookURL:      person.FacebookURL,
		FacebookUsername: person.FacebookUsername,
	}
	for _, e := range person.Education {
		if s := pdl.Str(e.School.Name); s != "" {
			rec.Schools = append(rec.Schools, s)
		}
	}
	return rec
}
