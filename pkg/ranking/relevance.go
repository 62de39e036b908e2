package ranking

import (
	"polls/pkg/post"
)

// TagMatchWeight is added to relevance for every post tag the user is interested in.
const TagMatchWeight = 10.0

// TagOverlap counts the distinct tags of p present in interests.
func TagOverlap(p *post.Post, interests map[string]struct{}) int {
	n := 0
	counted := make(map[string]struct{}, len(p.Tags))
	for _, t := range p.Tags {
		if _, dup := counted[t]; dup {
			continue
		}
		counted[t] = struct{}{}
		if _, ok := interests[t]; ok {
			n++
		}
	}
	return n
}

// RecencyBonus grows with createdAt: milliseconds since the epoch scaled by 1e-9,
// so it only separates posts whose other terms tie closely.
func RecencyBonus(p *post.Post) float64 {
	return float64(p.Created.UnixMilli()) / 1e9
}

func Relevance(p *post.Post, interests map[string]struct{}, withRecency bool) float64 {
	r := TagMatchWeight*float64(TagOverlap(p, interests)) + p.TrendingScore
	if withRecency {
		r += RecencyBonus(p)
	}
	return r
}
