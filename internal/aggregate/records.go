package aggregate

import (
	"context"
	"regexp"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/person-search/internal/llm"
	"github.com/sells-group/person-search/internal/model"
)

const (
	recordsTextLimit  = 20000
	maxRegexRelatives = 10
	maxRegexLocations = 5
)

var (
	relativesBlock = regexp.MustCompile(`(?is)(?:Possible Matches|Possible Relatives|Related To|Associates)[:\s]+(.*?)(?:Born|Age|Lives|Associates|Properties|$)`)
	livesInBlock   = regexp.MustCompile(`(?is)(?:Lives In|Resides In|Address)[:\s]+(.*?)(?:Born|Age|Related|Associates|$)`)
	relativeName   = regexp.MustCompile(`^[A-Z][a-z]+(?:\s[A-Z][a-z]+)+$`)
	cityState      = regexp.MustCompile(`[A-Z][a-zA-Z\s]+,\s[A-Z]{2}`)
	listSplit      = regexp.MustCompile(`[,|\n]`)
)

const recordsSystem = `You read text scraped from a US people-search site and extract the possible relatives and the places the person has lived.
Reply with JSON only: {"relatives": ["Full Name", ...], "locations": ["City, ST", ...]}.
Use empty lists when the text has none.`

// publicRecords collects relatives and locations from every successful
// people-search page, extracting with the LLM first and the regex fallback
// when that fails or finds nothing. The result is a sorted set union.
func (a *Aggregator) publicRecords(ctx context.Context, scrapes []model.ScrapeResult) model.PublicRecords {
	relatives := map[string]struct{}{}
	locations := map[string]struct{}{}

	for _, res := range scrapes {
		if !res.OK() || !res.PublicRecord() {
			continue
		}
		var sb strings.Builder
		for _, p := range res.Pages {
			sb.WriteString(p.Markdown)
			sb.WriteString("\n")
		}
		recs := a.extractRecords(ctx, res.Source, sb.String())
		for _, r := range recs.Relatives {
			if r = strings.TrimSpace(r); r != "" {
				relatives[r] = struct{}{}
			}
		}
		for _, l := range recs.Locations {
			if l = strings.TrimSpace(l); l != "" {
				locations[l] = struct{}{}
			}
		}
	}
	return model.PublicRecords{
		Relatives: sortedKeys(relatives),
		Locations: sortedKeys(locations),
	}
}

func (a *Aggregator) extractRecords(ctx context.Context, source, text string) model.PublicRecords {
	if strings.TrimSpace(text) == "" {
		return model.PublicRecords{}
	}
	if a.deps.LLM != nil {
		r := []rune(text)
		if len(r) > recordsTextLimit {
			text = string(r[:recordsTextLimit])
		}
		var out model.PublicRecords
		err := a.deps.LLM.JSON(ctx, llm.Request{
			Tier:      llm.Fast,
			System:    recordsSystem,
			Prompt:    "Text:\n" + text,
			MaxTokens: 1024,
			Phase:     "extract_public_records",
		}, &out)
		switch {
		case err != nil:
			zap.L().Warn("aggregate: record extraction failed, using patterns", zap.String("source", source), zap.Error(err))
		case len(out.Relatives) > 0 || len(out.Locations) > 0:
			return out
		}
	}
	return ExtractRecordsRegex(text)
}

// ExtractRecordsRegex pulls relatives from a "Possible Relatives" style
// block and "City, ST" locations from a "Lives In" style block.
func ExtractRecordsRegex(text string) model.PublicRecords {
	var out model.PublicRecords

	if m := relativesBlock.FindStringSubmatch(text); m != nil {
		for _, part := range listSplit.Split(m[1], -1) {
			part = strings.TrimSpace(part)
			if len(part) <= 3 || len(part) >= 30 || !relativeName.MatchString(part) {
				continue
			}
			out.Relatives = append(out.Relatives, part)
			if len(out.Relatives) == maxRegexRelatives {
				break
			}
		}
	}

	if m := livesInBlock.FindStringSubmatch(text); m != nil {
		seen := map[string]bool{}
		for _, loc := range cityState.FindAllString(m[1], -1) {
			loc = strings.TrimSpace(loc)
			if seen[loc] {
				continue
			}
			seen[loc] = true
			out.Locations = append(out.Locations, loc)
			if len(out.Locations) == maxRegexLocations {
				break
			}
		}
	}
	return out
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
