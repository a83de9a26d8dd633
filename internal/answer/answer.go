// Package answer writes the biography and related questions shown with a
// person, and patches them onto stored records.
package answer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/person-search/internal/llm"
	"github.com/sells-group/person-search/internal/model"
)

const relatedCount = 6

// refusalPhrases short-circuit the validity check.
var refusalPhrases = []string{
	"i don't have", "i do not have", "i cannot provide", "i can't provide",
	"no reliable", "no verifiable", "doesn't have information",
	"don't have information", "unable to provide", "cannot fabricate",
}

const (
	biographySystem = `You write clear, encyclopedic biographical summaries in the style of a reference article. Stick to facts, achievements and notable information.`

	validitySystem = `Decide whether a text contains specific biographical facts about a person.
Reply INVALID if it is a refusal ("I don't have information", "I cannot verify"), a template, or a request for more details.
Reply VALID if it states any concrete fact such as a job, age, work or background.
Reply with exactly one word: VALID or INVALID.`

	relatedSystem = `You suggest follow-up questions people commonly search about a person. Reply with JSON only.`
)

// Store is the slice of the person store answer generation needs.
type Store interface {
	GetPersonByID(ctx context.Context, id string) (*model.Person, error)
	PatchAnswer(ctx context.Context, id string, patch model.AnswerPatch) error
}

// Service generates answers.
type Service struct {
	llm   llm.Completer
	store Store
	now   func() time.Time
}

// New creates a Service. store may be nil when only Compose is used.
func New(completer llm.Completer, store Store) *Service {
	return &Service{llm: completer, store: store, now: time.Now}
}

// Compose produces the answer patch for p. candidateDesc, when known,
// feeds the fallback for an unusable biography.
func (s *Service) Compose(ctx context.Context, p *model.Person, candidateDesc string) (model.AnswerPatch, error) {
	ans, err := s.Answer(ctx, p, candidateDesc)
	if err != nil {
		return model.AnswerPatch{}, err
	}
	return model.AnswerPatch{
		Answer:           ans,
		RelatedQuestions: s.RelatedQuestions(ctx, p),
		GeneratedAt:      s.now().UTC(),
	}, nil
}

// Generate returns the person with an answer, generating and patching one
// only when none exists yet. Calling it again returns the stored answer.
func (s *Service) Generate(ctx context.Context, personID string) (*model.Person, error) {
	if s.store == nil {
		return nil, eris.New("answer: no store configured")
	}
	p, err := s.store.GetPersonByID(ctx, personID)
	if err != nil {
		return nil, eris.Wrap(err, "answer: load person")
	}
	if p.HasAnswer() {
		return p, nil
	}

	patch, err := s.Compose(ctx, p, "")
	if err != nil {
		return nil, err
	}
	if err := s.store.PatchAnswer(ctx, p.ID, patch); err != nil {
		return nil, eris.Wrap(err, "answer: patch")
	}
	p.Answer = patch.Answer
	p.RelatedQuestions = patch.RelatedQuestions
	generatedAt := patch.GeneratedAt
	p.AnswerGeneratedAt = &generatedAt
	return p, nil
}

// Answer writes a biography and replaces it with a fallback when the
// model refuses or fails.
func (s *Service) Answer(ctx context.Context, p *model.Person, candidateDesc string) (string, error) {
	query := p.DisplayQuery()
	log := zap.L().With(zap.String("query", query))

	bio, err := s.llm.Text(ctx, llm.Request{
		Tier:      llm.Smart,
		System:    biographySystem,
		Prompt:    fmt.Sprintf("Write a biographical summary of %s covering background, career, major achievements and notable contributions.\n\nAvailable information:\n%s", query, BuildContext(p)),
		MaxTokens: 1024,
		Phase:     "answer",
	})
	bio = strings.TrimSpace(bio)
	if err == nil && bio != "" && s.valid(ctx, bio) {
		return bio, nil
	}
	if err != nil {
		log.Warn("answer: biography failed", zap.Error(err))
	} else {
		log.Info("answer: biography unusable, falling back")
	}

	if fb := s.fallback(ctx, query, candidateDesc, p.BasicInfo); fb != "" {
		return fb, nil
	}
	if err != nil {
		return "", eris.Wrap(err, "answer: generate")
	}
	return bio, nil
}

// valid applies the refusal phrases, then asks the fast model. An error
// from the model counts as valid.
func (s *Service) valid(ctx context.Context, text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return false
		}
	}
	verdict, err := s.llm.Text(ctx, llm.Request{
		Tier:      llm.Fast,
		System:    validitySystem,
		Prompt:    text,
		MaxTokens: 8,
		Phase:     "answer_validity",
	})
	if err != nil {
		zap.L().Warn("answer: validity check failed, accepting", zap.Error(err))
		return true
	}
	return !strings.Contains(strings.ToUpper(verdict), "INVALID")
}

// fallback summarizes the chosen candidate's description, or the basic
// info when no candidate was chosen. It returns "" when neither exists.
func (s *Service) fallback(ctx context.Context, query, candidateDesc string, basic model.BasicInfo) string {
	candidateDesc = strings.TrimSpace(candidateDesc)
	if candidateDesc == "" {
		return Summary(query, basic)
	}
	summary, err := s.llm.Text(ctx, llm.Request{
		Tier:      llm.Fast,
		System:    fmt.Sprintf("Rewrite the known data as a two-paragraph professional profile of %s. Add nothing that is not in the data.", query),
		Prompt:    "Data:\n" + candidateDesc,
		MaxTokens: 1024,
		Phase:     "answer_fallback",
	})
	if err != nil || strings.TrimSpace(summary) == "" {
		return query + ": " + candidateDesc
	}
	return strings.TrimSpace(summary)
}

// Summary is a one-sentence profile built only from basic info, or "".
func Summary(query string, b model.BasicInfo) string {
	name := strings.TrimSpace(b.Name)
	if name == "" {
		name = query
	}
	var sb strings.Builder
	switch {
	case b.Occupation != "" && b.Company != "":
		fmt.Fprintf(&sb, "%s is %s at %s", name, b.Occupation, b.Company)
	case b.Occupation != "":
		fmt.Fprintf(&sb, "%s is %s", name, b.Occupation)
	case b.Company != "":
		fmt.Fprintf(&sb, "%s works at %s", name, b.Company)
	default:
		if b.Location == "" && b.Education == "" {
			return ""
		}
		sb.WriteString(name)
	}
	if b.Location != "" {
		fmt.Fprintf(&sb, ", based in %s", b.Location)
	}
	if b.Education != "" {
		fmt.Fprintf(&sb, ", educated at %s", b.Education)
	}
	sb.WriteString(".")
	return sb.String()
}

// RelatedQuestions suggests up to six follow-up questions. Failure yields
// an empty list.
func (s *Service) RelatedQuestions(ctx context.Context, p *model.Person) []string {
	role := p.BasicInfo.Occupation
	if role == "" {
		role = "a notable person"
	}
	if p.BasicInfo.Company != "" {
		role += " at " + p.BasicInfo.Company
	}

	var out struct {
		Questions []string `json:"questions"`
	}
	err := s.llm.JSON(ctx, llm.Request{
		Tier:   llm.Fast,
		System: relatedSystem,
		Prompt: fmt.Sprintf(`Suggest %d follow-up questions about %s, considering their role as %s. Favor common topics such as net worth, companies, achievements, personal life and career milestones.
Return {"questions": ["...", ...]}.`, relatedCount, p.DisplayQuery(), role),
		MaxTokens: 1024,
		Phase:     "related_questions",
	}, &out)
	if err != nil {
		zap.L().Warn("answer: related questions failed", zap.Error(err))
		return []string{}
	}

	qs := make([]string, 0, relatedCount)
	for _, q := range out.Questions {
		if q = strings.TrimSpace(q); q != "" {
			qs = append(qs, q)
		}
		if len(qs) == relatedCount {
			break
		}
	}
	return qs
}

// BuildContext renders the facts the biography may draw on.
func BuildContext(p *model.Person) string {
	var lines []string
	add := func(label, v string) {
		if v = strings.TrimSpace(v); v != "" {
			lines = append(lines, label+": "+v)
		}
	}
	b := p.BasicInfo
	add("Name", b.Name)
	add("Occupation", b.Occupation)
	add("Company", b.Company)
	add("Location", b.Location)
	add("Education", b.Education)

	var platforms []string
	for _, sp := range p.SocialProfiles {
		if sp.Platform != "" {
			platforms = append(platforms, string(sp.Platform))
		}
	}
	add("Social media", strings.Join(platforms, ", "))

	var mentions []string
	for _, m := range p.NotableMentions {
		if len(mentions) == 3 {
			break
		}
		if m.Title != "" {
			mentions = append(mentions, m.Title)
		}
	}
	add("Notable mentions", strings.Join(mentions, "; "))

	if len(lines) == 0 {
		return "Person: " + p.DisplayQuery()
	}
	return strings.Join(lines, "\n")
}
