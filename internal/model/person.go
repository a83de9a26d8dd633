// Package model defines the records passed between the search stages.
package model

import (
	"strings"
	"time"
)

// Platform identifies a social network.
type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformTwitter   Platform = "twitter"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformTikTok    Platform = "tiktok"
	PlatformFacebook  Platform = "facebook"
	PlatformYouTube   Platform = "youtube"
)

// PriorityPlatforms are the platforms whose absence triggers the
// site-restricted identifier fallback.
var PriorityPlatforms = []Platform{PlatformInstagram, PlatformTwitter, PlatformLinkedIn}

// HandleBased reports whether profiles on p are addressed by username
// rather than by URL.
func (p Platform) HandleBased() bool {
	switch p {
	case PlatformInstagram, PlatformTwitter, PlatformTikTok:
		return true
	}
	return false
}

// Photo sources with special handling.
const (
	PhotoSourceCandidateSelection = "candidate_selection"
	PhotoSourceGoogleImages       = "google_images"
)

// BasicInfo holds the headline facts about a person.
type BasicInfo struct {
	Name       string `json:"name,omitempty"`
	Age        string `json:"age,omitempty"`
	Occupation string `json:"occupation,omitempty"`
	Location   string `json:"location,omitempty"`
	Company    string `json:"company,omitempty"`
	Education  string `json:"education,omitempty"`
}

// FillEmpty copies every field of other into b that is empty in b.
// Present values are never overwritten.
func (b *BasicInfo) FillEmpty(other BasicInfo) {
	fill := func(dst *string, src string) {
		if strings.TrimSpace(*dst) == "" && strings.TrimSpace(src) != "" {
			*dst = src
		}
	}
	fill(&b.Name, other.Name)
	fill(&b.Age, other.Age)
	fill(&b.Occupation, other.Occupation)
	fill(&b.Location, other.Location)
	fill(&b.Company, other.Company)
	fill(&b.Education, other.Education)
}

// SocialProfile is one account on one platform.
type SocialProfile struct {
	Platform   Platform `json:"platform"`
	Username   string   `json:"username,omitempty"`
	URL        string   `json:"url"`
	FullName   string   `json:"full_name,omitempty"`
	Bio        string   `json:"bio,omitempty"`
	Followers  *int     `json:"followers,omitempty"`
	Following  *int     `json:"following,omitempty"`
	PostsCount *int     `json:"posts_count,omitempty"`
	Verified   *bool    `json:"verified,omitempty"`
	ProfilePic string   `json:"profile_pic,omitempty"`
	Source     string   `json:"source"`
}

// Photo is one image believed to depict the person.
type Photo struct {
	URL        string   `json:"url"`
	Source     string   `json:"source"`
	Caption    string   `json:"caption,omitempty"`
	Likes      *int     `json:"likes,omitempty"`
	Verified   bool     `json:"verified,omitempty"`
	Similarity *float64 `json:"similarity,omitempty"`
}

// DedupKey is the photo URL without its query string, so the same asset
// served with different CDN parameters collapses to one entry.
func (p Photo) DedupKey() string {
	if i := strings.IndexByte(p.URL, '?'); i >= 0 {
		return p.URL[:i]
	}
	return p.URL
}

// FromCandidateSelection reports whether the photo came from the candidate
// the user picked, which exempts it from validation and proxy-failure removal.
func (p Photo) FromCandidateSelection() bool {
	return p.Source == PhotoSourceCandidateSelection
}

// NotableMention is a free-text mention of the person.
type NotableMention struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
	Source      string `json:"source,omitempty"`
}

// PublicRecords holds best-effort relatives and locations. Both lists have
// set semantics and no ordering guarantee.
type PublicRecords struct {
	Relatives []string `json:"relatives"`
	Locations []string `json:"locations"`
}

// RawSource is a transparency entry naming one scraped source.
type RawSource struct {
	Source string `json:"source"`
	Data   string `json:"data"`
}

// Person is the aggregate root persisted per cache key.
type Person struct {
	ID                string           `json:"personId"`
	CacheKey          string           `json:"-"`
	Query             string           `json:"query"`
	BasicInfo         BasicInfo        `json:"basic_info"`
	SocialProfiles    []SocialProfile  `json:"social_profiles"`
	Photos            []Photo          `json:"photos"`
	NotableMentions   []NotableMention `json:"notable_mentions"`
	PublicRecords     PublicRecords    `json:"public_records"`
	RawSources        []RawSource      `json:"raw_sources"`
	Answer            string           `json:"answer,omitempty"`
	RelatedQuestions  []string         `json:"related_questions"`
	AnswerGeneratedAt *time.Time       `json:"answer_generated_at,omitempty"`
	ReportCount       int              `json:"-"`
	CreatedAt         time.Time        `json:"-"`
}

// DisplayQuery returns the query without its candidate qualifier.
func (p *Person) DisplayQuery() string {
	q, _, _ := strings.Cut(p.Query, CandidateKeySeparator)
	return q
}

// HasAnswer reports whether answer generation already ran for p.
func (p *Person) HasAnswer() bool {
	return p.Answer != "" && p.AnswerGeneratedAt != nil
}

// AnswerPatch is the field set written by answer generation.
type AnswerPatch struct {
	Answer           string    `json:"answer"`
	RelatedQuestions []string  `json:"related_questions"`
	GeneratedAt      time.Time `json:"answer_generated_at"`
}
