// Package matching scores interest overlap between users and ranks candidate matches.
package matching

import (
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/samber/lo"

	"vexa-service/internal/models"
)

const (
	// NeutralScore is returned when either side has no interests.
	NeutralScore = 0.5
	// MaxScore caps every score; a perfect 1.0 is never reported.
	MaxScore = 0.99
	// DefaultLimit is the number of candidates returned by Rank.
	DefaultLimit = 6

	jitterFloor = 0.7
	jitterSpan  = 0.3
)

// RandomSource yields uniform values in [0, 1).
type RandomSource interface {
	Float64() float64
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

// Scorer computes jittered Jaccard similarity between interest lists.
type Scorer struct {
	rnd RandomSource
}

// NewScorer builds a Scorer. A nil source falls back to math/rand/v2.
func NewScorer(rnd RandomSource) *Scorer {
	if rnd == nil {
		rnd = globalSource{}
	}
	return &Scorer{rnd: rnd}
}

// Score returns a similarity in [0, MaxScore]. Matching is case-insensitive.
func (s *Scorer) Score(viewer, candidate []string) float64 {
	if len(viewer) == 0 || len(candidate) == 0 {
		return NeutralScore
	}

	a := interestSet(viewer)
	b := interestSet(candidate)

	common := 0
	for interest := range a {
		if _, ok := b[interest]; ok {
			common++
		}
	}
	union := len(a) + len(b) - common
	jaccard := float64(common) / float64(union)

	jitter := jitterFloor + s.rnd.Float64()*jitterSpan
	return min(MaxScore, jaccard*jitter)
}

// Rank scores every user except viewerID against viewerInterests and returns
// the best limit candidates, highest score first.
func (s *Scorer) Rank(viewerID string, viewerInterests []string, users []models.User, limit int) []models.MatchCandidate {
	others := lo.Filter(users, func(u models.User, _ int) bool {
		return u.ID != viewerID
	})
	candidates := lo.Map(others, func(u models.User, _ int) models.MatchCandidate {
		return models.MatchCandidate{
			ID:        u.ID,
			Name:      u.Name,
			Score:     s.Score(viewerInterests, u.Interests),
			Interests: u.Interests,
			AvatarURL: u.AvatarURL,
		}
	})

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if limit >= 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

func interestSet(interests []string) map[string]struct{} {
	set := make(map[string]struct{}, len(interests))
	for _, interest := range interests {
		set[strings.ToLower(interest)] = struct{}{}
	}
	return set
}
