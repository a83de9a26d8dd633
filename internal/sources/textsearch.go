package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/person-search/internal/llm"
	"github.com/sells-group/person-search/internal/model"
	"github.com/sells-group/person-search/internal/resilience"
	"github.com/sells-group/person-search/pkg/perplexity"
)

const (
	maxLLMCandidates  = 5
	maxSurfacedImages = 5
	// Search results beyond this are noise for structuring.
	maxExtractChars = 12000
)

const searchSystem = `You are a person search assistant with live web access. Report only facts you found about the person asked for. Say so when results are ambiguous.`

const searchPrompt = `Search the web for information about: %s

Cover, when available: full name, age, location, occupation, employer, education, social media profiles with their URLs, photos of the person, and notable mentions (news, achievements, publications). Include ONLY items that are directly about this specific person. Exclude general news about their company or industry and people with similar names.`

const extractSystem = `You are a data extraction assistant. You output a single JSON object and nothing else.`

const extractPrompt = `Extract structured information about the person in the query from the search results.

Query: %s

Search results:
%s

Return a JSON object with these keys:
- "basic_info": {"name", "age", "location", "occupation", "education", "company"} (strings, omit unknown)
- "social_profiles": [{"platform", "username", "url", "followers", "verified"}]; platform is one of instagram, twitter, linkedin, tiktok, facebook, youtube
- "photos": [{"url", "source", "caption"}]
- "notable_mentions": [{"title", "description", "url", "source"}]; MUST be directly about this person

Use empty objects or arrays when nothing is found.`

const candidatesPrompt = `Find the real people who could be meant by the search: "%s".

Return ONLY a JSON object {"candidates": [...]} with at most 5 entries, most relevant first. Each entry has:
- "id": a unique string (the name is fine)
- "name": full name without titles like "Dr." or prefixes like "20+ profiles"
- "description": "Occupation • Location", e.g. "Software Engineer • New York, NY"
- "imageUrl": a direct URL to a profile photo, or null

If only one person matches, return just that person.`

// Perplexity is TextSearch backed by Perplexity's online model, with
// structuring done by the fast LLM tier.
type Perplexity struct {
	client perplexity.Client
	llm    llm.Completer
	retry  resilience.RetryConfig
}

// NewPerplexity wires the search client and the extraction model.
func NewPerplexity(client perplexity.Client, completer llm.Completer, retry resilience.RetryConfig) *Perplexity {
	retry.OnRetry = resilience.RetryLogger("perplexity", "chat")
	return &Perplexity{client: client, llm: completer, retry: retry}
}

func (p *Perplexity) ask(ctx context.Context, prompt string, images bool) (*perplexity.ChatCompletionResponse, error) {
	temp := 0.1
	req := perplexity.ChatCompletionRequest{
		Messages: []perplexity.Message{
			{Role: "system", Content: searchSystem},
			{Role: "user", Content: prompt},
		},
		Temperature:  &temp,
		ReturnImages: images,
	}
	return resilience.DoVal(ctx, p.retry, func(ctx context.Context) (*perplexity.ChatCompletionResponse, error) {
		resp, err := p.client.ChatCompletion(ctx, req)
		var apiErr *perplexity.APIError
		if errors.As(err, &apiErr) {
			return nil, resilience.ClassifyStatus(err, apiErr.StatusCode)
		}
		return resp, err
	})
}

// Query searches the web for text and structures the answer. A failed
// structuring step leaves Structured empty rather than failing the query.
func (p *Perplexity) Query(ctx context.Context, text string) (*model.TextSearchResult, error) {
	resp, err := p.ask(ctx, fmt.Sprintf(searchPrompt, text), true)
	if err != nil {
		return nil, eris.Wrap(err, "perplexity: query")
	}
	content := resp.Text()
	res := &model.TextSearchResult{Content: content}

	info, err := p.ExtractStructured(ctx, text, content)
	if err != nil {
		zap.L().Warn("perplexity: structuring failed", zap.String("query", text), zap.Error(err))
		info = &model.StructuredInfo{}
	}
	for i, img := range resp.Images {
		if i == maxSurfacedImages {
			break
		}
		if img.ImageURL != "" {
			info.Photos = append(info.Photos, model.Photo{URL: img.ImageURL, Source: "websearch"})
		}
	}
	res.Structured = info
	return res, nil
}

// ExtractStructured structures raw search text about query.
func (p *Perplexity) ExtractStructured(ctx context.Context, query, raw string) (*model.StructuredInfo, error) {
	if strings.TrimSpace(raw) == "" {
		return &model.StructuredInfo{}, nil
	}
	if len(raw) > maxExtractChars {
		raw = raw[:maxExtractChars]
	}
	var reply structuredReply
	err := p.llm.JSON(ctx, llm.Request{
		Tier:      llm.Fast,
		System:    extractSystem,
		Prompt:    fmt.Sprintf(extractPrompt, query, raw),
		MaxTokens: 2048,
		Phase:     "extract_structured",
	}, &reply)
	if err != nil {
		return nil, eris.Wrap(err, "perplexity: extract structured")
	}
	return reply.toModel(), nil
}

// FindCandidates asks the online model for likely people matching query.
func (p *Perplexity) FindCandidates(ctx context.Context, query string) ([]model.Candidate, error) {
	resp, err := p.ask(ctx, fmt.Sprintf(candidatesPrompt, query), false)
	if err != nil {
		return nil, eris.Wrap(err, "perplexity: find candidates")
	}
	var reply struct {
		Candidates []struct {
			ID          string  `json:"id"`
			Name        string  `json:"name"`
			Description string  `json:"description"`
			ImageURL    *string `json:"imageUrl"`
		} `json:"candidates"`
	}
	if err := llm.Decode(resp.Text(), &reply); err != nil {
		return nil, eris.Wrap(err, "perplexity: decode candidates")
	}

	out := make([]model.Candidate, 0, maxLLMCandidates)
	for _, c := range reply.Candidates {
		if len(out) == maxLLMCandidates {
			break
		}
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		cand := model.Candidate{ID: c.ID, Name: name, Description: c.Description, Source: model.CandidateSourceLLM}
		if c.ImageURL != nil {
			cand.ImageURL = *c.ImageURL
		}
		out = append(out, cand)
	}
	model.UniqueIDs(out)
	return out, nil
}

// structuredReply tolerates the shapes models actually emit: counts as
// strings, photos as bare URLs, "X" for Twitter.
type structuredReply struct {
	BasicInfo      model.BasicInfo `json:"basic_info"`
	SocialProfiles []struct {
		Platform  string          `json:"platform"`
		Username  string          `json:"username"`
		URL       string          `json:"url"`
		Followers json.RawMessage `json:"followers"`
		Verified  json.RawMessage `json:"verified"`
	} `json:"social_profiles"`
	Photos          []json.RawMessage      `json:"photos"`
	NotableMentions []model.NotableMention `json:"notable_mentions"`
}

func (r structuredReply) toModel() *model.StructuredInfo {
	info := &model.StructuredInfo{
		BasicInfo:       r.BasicInfo,
		NotableMentions: make([]model.NotableMention, 0, len(r.NotableMentions)),
	}
	for _, m := range r.NotableMentions {
		if strings.TrimSpace(m.Title) != "" {
			info.NotableMentions = append(info.NotableMentions, m)
		}
	}

	for _, sp := range r.SocialProfiles {
		platform, ok := NormalizePlatform(sp.Platform)
		if !ok || (sp.URL == "" && sp.Username == "") {
			continue
		}
		info.SocialProfiles = append(info.SocialProfiles, model.SocialProfile{
			Platform:  platform,
			Username:  strings.TrimPrefix(strings.TrimSpace(sp.Username), "@"),
			URL:       sp.URL,
			Followers: lenientInt(sp.Followers),
			Verified:  lenientBool(sp.Verified),
			Source:    "websearch",
		})
	}

	for _, raw := range r.Photos {
		var u string
		if json.Unmarshal(raw, &u) == nil {
			if u != "" {
				info.Photos = append(info.Photos, model.Photo{URL: u, Source: "websearch"})
			}
			continue
		}
		var ph struct {
			URL     string `json:"url"`
			Source  string `json:"source"`
			Caption string `json:"caption"`
		}
		if json.Unmarshal(raw, &ph) == nil && ph.URL != "" {
			src := ph.Source
			if src == "" {
				src = "websearch"
			}
			info.Photos = append(info.Photos, model.Photo{URL: ph.URL, Source: src, Caption: ph.Caption})
		}
	}
	return info
}

var platformAliases = map[string]model.Platform{
	"instagram": model.PlatformInstagram,
	"twitter":   model.PlatformTwitter,
	"x":         model.PlatformTwitter,
	"x.com":     model.PlatformTwitter,
	"twitter/x": model.PlatformTwitter,
	"linkedin":  model.PlatformLinkedIn,
	"tiktok":    model.PlatformTikTok,
	"facebook":  model.PlatformFacebook,
	"youtube":   model.PlatformYouTube,
}

// NormalizePlatform maps a free-form platform label to a Platform.
func NormalizePlatform(label string) (model.Platform, bool) {
	p, ok := platformAliases[strings.ToLower(strings.TrimSpace(label))]
	return p, ok
}

// lenientInt reads 1200, "1200", "1,200", or "1.2K".
func lenientInt(raw json.RawMessage) *int {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var n float64
	if json.Unmarshal(raw, &n) == nil {
		v := int(n)
		return &v
	}
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return nil
	}
	s = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
	mult := 1.0
	switch {
	case strings.HasSuffix(s, "K"):
		mult, s = 1e3, strings.TrimSuffix(s, "K")
	case strings.HasSuffix(s, "M"):
		mult, s = 1e6, strings.TrimSuffix(s, "M")
	case strings.HasSuffix(s, "B"):
		mult, s = 1e9, strings.TrimSuffix(s, "B")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	v := int(math.Round(f * mult))
	return &v
}

func lenientBool(raw json.RawMessage) *bool {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var b bool
	if json.Unmarshal(raw, &b) == nil {
		return &b
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		if v, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return &v
		}
	}
	return nil
}
