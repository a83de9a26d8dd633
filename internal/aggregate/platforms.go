package aggregate

import (
	"encoding/json"
	"strings"

	"github.com/sells-group/person-search/internal/model"
)

const captionLimit = 200

// parsed is what one social scrape contributes to the aggregate.
type parsed struct {
	profile *model.SocialProfile
	photos  []model.Photo
	basic   model.BasicInfo
}

type platformParser func(items []json.RawMessage) parsed

var parsers = map[model.Platform]platformParser{
	model.PlatformInstagram: parseInstagram,
	model.PlatformTwitter:   parseTwitter,
	model.PlatformLinkedIn:  parseLinkedIn,
	model.PlatformTikTok:    parseTikTok,
	model.PlatformFacebook:  parseFacebook,
	model.PlatformYouTube:   parseYouTube,
}

// parseScrape dispatches on the scrape's source. Unknown sources and
// undecodable items contribute nothing.
func parseScrape(res model.ScrapeResult) parsed {
	parse, ok := parsers[model.Platform(res.Source)]
	if !ok || len(res.Items) == 0 {
		return parsed{}
	}
	return parse(res.Items)
}

func first[T any](items []json.RawMessage) (T, bool) {
	var v T
	if len(items) == 0 {
		return v, false
	}
	if err := json.Unmarshal(items[0], &v); err != nil {
		return v, false
	}
	return v, true
}

func caption(s string) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) > captionLimit {
		return string(r[:captionLimit])
	}
	return string(r)
}

func intPtr(n int) *int { return &n }

func boolPtr(b bool) *bool { return &b }

type instagramProfile struct {
	Username       string `json:"username"`
	FullName       string `json:"fullName"`
	Biography      string `json:"biography"`
	FollowersCount int    `json:"followersCount"`
	FollowsCount   int    `json:"followsCount"`
	PostsCount     int    `json:"postsCount"`
	Verified       bool   `json:"verified"`
	ProfilePicURL  string `json:"profilePicUrl"`
	ProfilePicHD   string `json:"profilePicUrlHD"`
	LatestPosts    []struct {
		DisplayURL string `json:"displayUrl"`
		Caption    string `json:"caption"`
		LikesCount int    `json:"likesCount"`
	} `json:"latestPosts"`
}

func parseInstagram(items []json.RawMessage) parsed {
	p, ok := first[instagramProfile](items)
	if !ok || p.Username == "" {
		return parsed{}
	}
	pic := p.ProfilePicHD
	if pic == "" {
		pic = p.ProfilePicURL
	}
	out := parsed{
		profile: &model.SocialProfile{
			Platform:   model.PlatformInstagram,
			Username:   p.Username,
			URL:        "https://instagram.com/" + p.Username,
			FullName:   p.FullName,
			Bio:        p.Biography,
			Followers:  intPtr(p.FollowersCount),
			Following:  intPtr(p.FollowsCount),
			PostsCount: intPtr(p.PostsCount),
			Verified:   boolPtr(p.Verified),
			ProfilePic: pic,
			Source:     string(model.PlatformInstagram),
		},
		basic: model.BasicInfo{Name: p.FullName},
	}
	for _, post := range p.LatestPosts {
		if post.DisplayURL == "" {
			continue
		}
		out.photos = append(out.photos, model.Photo{
			URL:     post.DisplayURL,
			Source:  string(model.PlatformInstagram),
			Caption: caption(post.Caption),
			Likes:   intPtr(post.LikesCount),
		})
	}
	return out
}

type tweet struct {
	FullText      string `json:"full_text"`
	FavoriteCount int    `json:"favorite_count"`
	User          struct {
		ScreenName     string `json:"screen_name"`
		Name           string `json:"name"`
		Description    string `json:"description"`
		Location       string `json:"location"`
		FollowersCount int    `json:"followers_count"`
		FriendsCount   int    `json:"friends_count"`
		StatusesCount  int    `json:"statuses_count"`
		Verified       bool   `json:"verified"`
		ProfileImage   string `json:"profile_image_url_https"`
	} `json:"user"`
	Entities struct {
		Media []struct {
			Type     string `json:"type"`
			MediaURL string `json:"media_url_https"`
		} `json:"media"`
	} `json:"entities"`
}

// parseTwitter reads the account from the first tweet and photos from
// every tweet's media.
func parseTwitter(items []json.RawMessage) parsed {
	var tweets []tweet
	for _, raw := range items {
		var t tweet
		if err := json.Unmarshal(raw, &t); err == nil {
			tweets = append(tweets, t)
		}
	}
	if len(tweets) == 0 || tweets[0].User.ScreenName == "" {
		return parsed{}
	}
	u := tweets[0].User
	out := parsed{
		profile: &model.SocialProfile{
			Platform:   model.PlatformTwitter,
			Username:   u.ScreenName,
			URL:        "https://twitter.com/" + u.ScreenName,
			FullName:   u.Name,
			Bio:        u.Description,
			Followers:  intPtr(u.FollowersCount),
			Following:  intPtr(u.FriendsCount),
			PostsCount: intPtr(u.StatusesCount),
			Verified:   boolPtr(u.Verified),
			ProfilePic: u.ProfileImage,
			Source:     string(model.PlatformTwitter),
		},
		basic: model.BasicInfo{Name: u.Name, Location: u.Location},
	}
	for _, t := range tweets {
		for _, m := range t.Entities.Media {
			if m.Type != "photo" || m.MediaURL == "" {
				continue
			}
			out.photos = append(out.photos, model.Photo{
				URL:     m.MediaURL,
				Source:  string(model.PlatformTwitter),
				Caption: caption(t.FullText),
				Likes:   intPtr(t.FavoriteCount),
			})
		}
	}
	return out
}

// linkedInRecord covers both the profile shape and the posts shape, where
// the profile sits under "author".
type linkedInRecord struct {
	PublicIdentifier string `json:"publicIdentifier"`
	URL              string `json:"url"`
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	Headline         string `json:"headline"`
	Location         string `json:"location"`
	ProfilePicture   string `json:"profilePicture"`
	Experience       []struct {
		CompanyName string `json:"companyName"`
	} `json:"experience"`
	Education []struct {
		SchoolName string `json:"schoolName"`
	} `json:"education"`
	Author *struct {
		FirstName      string `json:"first_name"`
		LastName       string `json:"last_name"`
		Headline       string `json:"headline"`
		Username       string `json:"username"`
		ProfileURL     string `json:"profile_url"`
		ProfilePicture string `json:"profile_picture"`
	} `json:"author"`
}

func parseLinkedIn(items []json.RawMessage) parsed {
	r, ok := first[linkedInRecord](items)
	if !ok {
		return parsed{}
	}
	if r.Author != nil && r.FirstName == "" && r.PublicIdentifier == "" {
		r.FirstName, r.LastName = r.Author.FirstName, r.Author.LastName
		r.Headline = r.Author.Headline
		r.PublicIdentifier, r.URL = r.Author.Username, r.Author.ProfileURL
		r.ProfilePicture = r.Author.ProfilePicture
	}
	name := strings.TrimSpace(r.FirstName + " " + r.LastName)
	if name == "" && r.URL == "" {
		return parsed{}
	}
	basic := model.BasicInfo{Name: name, Occupation: r.Headline, Location: r.Location}
	if len(r.Experience) > 0 {
		basic.Company = r.Experience[0].CompanyName
	}
	var schools []string
	for _, e := range r.Education {
		if s := strings.TrimSpace(e.SchoolName); s != "" {
			schools = append(schools, s)
		}
	}
	basic.Education = strings.Join(schools, ", ")

	return parsed{
		profile: &model.SocialProfile{
			Platform:   model.PlatformLinkedIn,
			Username:   r.PublicIdentifier,
			URL:        r.URL,
			FullName:   name,
			Bio:        r.Headline,
			ProfilePic: r.ProfilePicture,
			Source:     string(model.PlatformLinkedIn),
		},
		basic: basic,
	}
}

type tiktokVideo struct {
	Text       string `json:"text"`
	DiggCount  int    `json:"diggCount"`
	AuthorMeta struct {
		Name      string `json:"name"`
		NickName  string `json:"nickName"`
		Signature string `json:"signature"`
		Avatar    string `json:"avatar"`
		Fans      int    `json:"fans"`
		Following int    `json:"following"`
		Video     int    `json:"video"`
		Verified  bool   `json:"verified"`
	} `json:"authorMeta"`
	VideoMeta struct {
		CoverURL string `json:"coverUrl"`
	} `json:"videoMeta"`
}

func parseTikTok(items []json.RawMessage) parsed {
	v, ok := first[tiktokVideo](items)
	if !ok || v.AuthorMeta.Name == "" {
		return parsed{}
	}
	a := v.AuthorMeta
	out := parsed{
		profile: &model.SocialProfile{
			Platform:   model.PlatformTikTok,
			Username:   a.Name,
			URL:        "https://www.tiktok.com/@" + a.Name,
			FullName:   a.NickName,
			Bio:        a.Signature,
			Followers:  intPtr(a.Fans),
			Following:  intPtr(a.Following),
			PostsCount: intPtr(a.Video),
			Verified:   boolPtr(a.Verified),
			ProfilePic: a.Avatar,
			Source:     string(model.PlatformTikTok),
		},
		basic: model.BasicInfo{Name: a.NickName},
	}
	if v.VideoMeta.CoverURL != "" {
		out.photos = append(out.photos, model.Photo{
			URL:     v.VideoMeta.CoverURL,
			Source:  string(model.PlatformTikTok),
			Caption: caption(v.Text),
			Likes:   intPtr(v.DiggCount),
		})
	}
	return out
}

type facebookPage struct {
	Title          string `json:"title"`
	PageName       string `json:"pageName"`
	PageURL        string `json:"pageUrl"`
	URL            string `json:"url"`
	Intro          string `json:"intro"`
	Followers      int    `json:"followers"`
	ProfilePicture string `json:"profilePictureUrl"`
	CoverPhoto     string `json:"coverPhotoUrl"`
	Address        string `json:"address"`
}

func parseFacebook(items []json.RawMessage) parsed {
	p, ok := first[facebookPage](items)
	if !ok {
		return parsed{}
	}
	url := p.PageURL
	if url == "" {
		url = p.URL
	}
	if url == "" {
		return parsed{}
	}
	return parsed{
		profile: &model.SocialProfile{
			Platform:   model.PlatformFacebook,
			Username:   p.PageName,
			URL:        url,
			FullName:   p.Title,
			Bio:        p.Intro,
			Followers:  intPtr(p.Followers),
			ProfilePic: p.ProfilePicture,
			Source:     string(model.PlatformFacebook),
		},
		basic: model.BasicInfo{Name: p.Title, Location: p.Address},
	}
}

type youtubeChannel struct {
	Name        string `json:"name"`
	ChannelName string `json:"channel_name"`
	Handle      string `json:"handle"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Subscribers int    `json:"subscribers"`
	Videos      int    `json:"videos_count"`
	Avatar      string `json:"profile_image"`
}

func parseYouTube(items []json.RawMessage) parsed {
	c, ok := first[youtubeChannel](items)
	if !ok || c.URL == "" {
		return parsed{}
	}
	name := c.ChannelName
	if name == "" {
		name = c.Name
	}
	return parsed{
		profile: &model.SocialProfile{
			Platform:   model.PlatformYouTube,
			Username:   strings.TrimPrefix(c.Handle, "@"),
			URL:        c.URL,
			FullName:   name,
			Bio:        c.Description,
			Followers:  intPtr(c.Subscribers),
			PostsCount: intPtr(c.Videos),
			ProfilePic: c.Avatar,
			Source:     string(model.PlatformYouTube),
		},
	}
}
