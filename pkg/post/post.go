package post

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"polls/pkg/common"
)

const (
	MinOptions = 2
	MaxOptions = 10
)

type PostId string

type Option struct {
	Text      string   `json:"text" bson:"text"`
	VoteCount int      `json:"voteCount" bson:"voteCount"`
	Voters    []string `json:"voters" bson:"voters"`
}

type Post struct {
	Id PostId `json:"id" bson:"id"`

	CreatorId string `json:"creatorId" bson:"creatorId"`
	// Copied from the creator profile once, at creation time.
	CreatorName string `json:"creatorName" bson:"creatorName"`

	Title    string    `json:"title" bson:"title"`
	ImageURL string    `json:"imageUrl,omitempty" bson:"imageUrl,omitempty"`
	Tags     []string  `json:"tags" bson:"tags"`
	Options  []*Option `json:"options" bson:"options"`

	TotalVotes int      `json:"totalVotes" bson:"totalVotes"`
	Likes      []string `json:"likes" bson:"likes"`
	LikesCount int      `json:"likesCount" bson:"likesCount"`
	Shares     int      `json:"shares" bson:"shares"`
	Views      int      `json:"views" bson:"views"`

	// Written only by the trending job.
	EngagementScore float64 `json:"engagementScore" bson:"engagementScore"`
	TrendingScore   float64 `json:"trendingScore" bson:"trendingScore"`

	Created time.Time `json:"createdAt" bson:"createdAt"`
}

type OptionSummary struct {
	Text      string `json:"text"`
	VoteCount int    `json:"voteCount"`
}

// Summary is the listing view of a post, without voter and liker sets.
type Summary struct {
	Id            PostId          `json:"id"`
	CreatorName   string          `json:"creatorName"`
	Title         string          `json:"title"`
	ImageURL      string          `json:"imageUrl,omitempty"`
	Tags          []string        `json:"tags"`
	Options       []OptionSummary `json:"options"`
	TotalVotes    int             `json:"totalVotes"`
	LikesCount    int             `json:"likesCount"`
	Shares        int             `json:"shares"`
	Views         int             `json:"views"`
	TrendingScore float64         `json:"trendingScore"`
	Created       time.Time       `json:"createdAt"`
}

// New validates the input and builds a post with zero counters. Voter and
// like sets start as empty arrays so $addToSet has an array to work on.
func New(creatorId, creatorName, title, imageURL string, tags, options []string, now time.Time) (*Post, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, common.Validation("title is required")
	}
	if strings.TrimSpace(creatorId) == "" {
		return nil, common.Validation("creatorIdentifier is required")
	}
	if len(options) < MinOptions || len(options) > MaxOptions {
		return nil, common.Validation("a post needs between 2 and 10 options")
	}

	opts := make([]*Option, 0, len(options))
	for _, text := range options {
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, common.Validation("option text can't be empty")
		}
		opts = append(opts, &Option{Text: text, Voters: []string{}})
	}

	return &Post{
		Id:          PostId(uuid.NewString()),
		CreatorId:   creatorId,
		CreatorName: creatorName,
		Title:       title,
		ImageURL:    strings.TrimSpace(imageURL),
		Tags:        NormalizeTags(tags),
		Options:     opts,
		Likes:       []string{},
		Created:     now,
	}, nil
}

// NormalizeTags trims, lower-cases and deduplicates tags, keeping first-seen order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func (p *Post) HasVoted(userIdentifier string) bool {
	for _, o := range p.Options {
		for _, v := range o.Voters {
			if v == userIdentifier {
				return true
			}
		}
	}
	return false
}

func (p *Post) IsLikedBy(userIdentifier string) bool {
	for _, l := range p.Likes {
		if l == userIdentifier {
			return true
		}
	}
	return false
}

func (p *Post) Summary() Summary {
	opts := make([]OptionSummary, len(p.Options))
	for i, o := range p.Options {
		opts[i] = OptionSummary{Text: o.Text, VoteCount: o.VoteCount}
	}
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	return Summary{
		Id:            p.Id,
		CreatorName:   p.CreatorName,
		Title:         p.Title,
		ImageURL:      p.ImageURL,
		Tags:          tags,
		Options:       opts,
		TotalVotes:    p.TotalVotes,
		LikesCount:    p.LikesCount,
		Shares:        p.Shares,
		Views:         p.Views,
		TrendingScore: p.TrendingScore,
		Created:       p.Created,
	}
}

func Summaries(posts []*Post) []Summary {
	out := make([]Summary, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.Summary())
	}
	return out
}

// Detail is the single-post view. It tells the viewer about their own vote
// and like but never lists other users.
type Detail struct {
	Summary
	CreatorId       string  `json:"creatorId"`
	EngagementScore float64 `json:"engagementScore"`
	Voted           bool    `json:"voted"`
	Liked           bool    `json:"liked"`
}

func (p *Post) Detail(viewer string) Detail {
	d := Detail{
		Summary:         p.Summary(),
		CreatorId:       p.CreatorId,
		EngagementScore: p.EngagementScore,
	}
	if viewer != "" {
		d.Voted = p.HasVoted(viewer)
		d.Liked = p.IsLikedBy(viewer)
	}
	return d
}

func (p *Post) clone() *Post {
	c := *p
	c.Tags = append([]string(nil), p.Tags...)
	c.Likes = append([]string{}, p.Likes...)
	c.Options = make([]*Option, len(p.Options))
	for i, o := range p.Options {
		oc := *o
		oc.Voters = append([]string{}, o.Voters...)
		c.Options[i] = &oc
	}
	return &c
}

// TrendingLess orders by trendingScore desc, then createdAt desc, then id.
// The id tie-break keeps pages stable while scores are frozen.
func TrendingLess(a, b *Post) bool {
	if a.TrendingScore != b.TrendingScore {
		return a.TrendingScore > b.TrendingScore
	}
	if !a.Created.Equal(b.Created) {
		return a.Created.After(b.Created)
	}
	return a.Id < b.Id
}

func SortTrending(posts []*Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return TrendingLess(posts[i], posts[j])
	})
}
