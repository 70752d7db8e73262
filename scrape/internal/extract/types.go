package extract

// Counts are the per-tweet engagement counters. Absent markup yields 0.
type Counts struct {
	Likes   int64 `json:"likes"`
	Replies int64 `json:"replies"`
	Reposts int64 `json:"reposts"`
}

// Tweet is one normalized timeline item.
type Tweet struct {
	ID                string   `json:"id"`
	AuthorUsername    string   `json:"author_username"`
	AuthorDisplayName string   `json:"author_display_name"`
	AuthorAvatar      string   `json:"author_avatar,omitempty"`
	Content           string   `json:"content"`
	PostedAt          string   `json:"posted_at"`
	Counts            Counts   `json:"counts"`
	Media             []string `json:"media"`
	Permalink         string   `json:"permalink"`
	IsRepost          bool     `json:"is_repost"`
	RepostedBy        string   `json:"reposted_by,omitempty"`
	IsReply           bool     `json:"is_reply"`
	ReplyTarget       string   `json:"reply_target,omitempty"`
}

// ProfileCounts are the profile-level stat counters.
type ProfileCounts struct {
	Tweets    int64 `json:"tweets"`
	Following int64 `json:"following"`
	Followers int64 `json:"followers"`
	Likes     int64 `json:"likes"`
	Media     int64 `json:"media"`
}

// Profile is the normalized profile card.
type Profile struct {
	Username    string        `json:"username"`
	DisplayName string        `json:"display_name"`
	Bio         string        `json:"bio"`
	Location    string        `json:"location"`
	Joined      string        `json:"joined"`
	Counts      ProfileCounts `json:"counts"`
	AvatarURL   string        `json:"avatar_url"`
	BannerURL   string        `json:"banner_url,omitempty"`
}

// ProfileResult pairs a profile card with its timeline slice and the
// photo-rail media found on the page.
type ProfileResult struct {
	Profile Profile  `json:"profile"`
	Tweets  []Tweet  `json:"tweets"`
	Media   []string `json:"media,omitempty"`
}
