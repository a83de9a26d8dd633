package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBasicInfo_FillEmpty(t *testing.T) {
	b := BasicInfo{Name: "Jane Doe", Company: "Acme"}
	b.FillEmpty(BasicInfo{Name: "J. Doe", Company: "Globex", Location: "Austin, TX", Occupation: " "})

	assert.Equal(t, "Jane Doe", b.Name)
	assert.Equal(t, "Acme", b.Company)
	assert.Equal(t, "Austin, TX", b.Location)
	assert.Empty(t, b.Occupation)
}

func TestPhoto_DedupKey(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://img.example/a.jpg?size=200", "https://img.example/a.jpg"},
		{"https://img.example/a.jpg", "https://img.example/a.jpg"},
		{"https://img.example/a.jpg?", "https://img.example/a.jpg"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Photo{URL: tt.url}.DedupKey(), tt.url)
	}
}

func TestPerson_DisplayQuery(t *testing.T) {
	p := &Person{Query: "john smith::pdl-123"}
	assert.Equal(t, "john smith", p.DisplayQuery())

	p.Query = "john smith"
	assert.Equal(t, "john smith", p.DisplayQuery())
}

func TestPlatform_HandleBased(t *testing.T) {
	assert.True(t, PlatformInstagram.HandleBased())
	assert.True(t, PlatformTikTok.HandleBased())
	assert.False(t, PlatformLinkedIn.HandleBased())
	assert.False(t, PlatformYouTube.HandleBased())
}

func TestIdentifiers_HasAny(t *testing.T) {
	ids := Identifiers{PlatformFacebook: "https://facebook.com/jane"}
	assert.False(t, ids.HasAny(PriorityPlatforms...))

	ids[PlatformTwitter] = "jane"
	assert.True(t, ids.HasAny(PriorityPlatforms...))
}
