package resolver

import "github.com/sells-group/person-search/internal/model"

// Outcome is the result of one candidate provider: Found, Empty or Failed.
type Outcome interface {
	provider() string
}

// Found carries a non-empty candidate list.
type Found struct {
	Provider   string
	Candidates []model.Candidate
}

// Empty means the provider answered with nothing.
type Empty struct {
	Provider string
}

// Failed means the provider errored. The chain treats it like Empty.
type Failed struct {
	Provider string
	Err      error
}

func (o Found) provider() string  { return o.Provider }
func (o Empty) provider() string  { return o.Provider }
func (o Failed) provider() string { return o.Provider }

func outcomeOf(provider string, cands []model.Candidate, err error) Outcome {
	switch {
	case err != nil:
		return Failed{Provider: provider, Err: err}
	case len(cands) == 0:
		return Empty{Provider: provider}
	default:
		return Found{Provider: provider, Candidates: cands}
	}
}
