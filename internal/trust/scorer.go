package trust

import (
	"regexp"
	"strings"
	"time"
)

// FlagKind is the closed set of reasons a review can be routed to the flagged
// queue. Moderation logic and tests match on these exhaustively; free-form
// flag strings are not allowed.
type FlagKind string

const (
	FlagUnverifiedAccount   FlagKind = "unverified_account"
	FlagExtremeLanguage     FlagKind = "extreme_language"
	FlagSuspiciousROI       FlagKind = "suspicious_roi"
	FlagGenericContent      FlagKind = "generic_content"
	FlagPossibleSpamAccount FlagKind = "possible_spam_account"
)

// AccountSignals are derived from the author's profile at scoring time.
// AccountAge is precomputed by the caller so scoring stays deterministic.
type AccountSignals struct {
	AccountAge      time.Duration
	EmailVerified   bool
	LinkedInLinked  bool
	PriorRejections int
}

// ContentSignals are derived from the submitted review payload.
type ContentSignals struct {
	Title         string
	Content       string
	Rating        int
	ROI           *float64
	EventCategory string
}

// Scorer computes a 0-100 confidence score from account and content signals.
// Identical inputs always produce identical output.
type Scorer struct {
	// MaxROIByCategory overrides DefaultMaxROI per event category; an ROI
	// claim above the applicable ceiling is treated as implausible.
	MaxROIByCategory map[string]float64
	DefaultMaxROI    float64

	// LowScoreFloor is the routing threshold below which a review must carry
	// at least one flag (it lands in the flagged queue, which requires an
	// explanation for the moderator).
	LowScoreFloor int

	MinAccountAge time.Duration
}

func NewScorer(lowScoreFloor int) Scorer {
	return Scorer{
		DefaultMaxROI: 10.0,
		LowScoreFloor: lowScoreFloor,
		MinAccountAge: 30 * 24 * time.Hour,
	}
}

var superlatives = []string{
	"amazing", "incredible", "unbelievable", "best ever", "worst ever",
	"terrible", "scam", "insane", "guaranteed", "life-changing", "mind-blowing",
}

var positiveWords = []string{
	"great", "excellent", "valuable", "outstanding", "recommend", "engaged", "worthwhile",
}

var negativeWords = []string{
	"waste", "disappointing", "avoid", "poor", "overpriced", "unresponsive", "chaotic",
}

var numberGroup = regexp.MustCompile(`\d+(\.\d+)?%?`)

// Score combines account- and content-derived signals into a confidence score
// and the set of flags explaining any weak signals. A score below
// LowScoreFloor always carries at least one flag.
func (s Scorer) Score(acct AccountSignals, content ContentSignals) (int, []FlagKind) {
	score := 0
	var flags []FlagKind

	// Account signals.
	if acct.AccountAge >= s.MinAccountAge {
		score += 20
	}
	if acct.EmailVerified {
		score += 15
	} else {
		flags = append(flags, FlagUnverifiedAccount)
	}
	if acct.LinkedInLinked {
		score += 10
	}
	switch {
	case acct.PriorRejections == 0:
		score += 10
	case acct.PriorRejections >= 2:
		flags = append(flags, FlagPossibleSpamAccount)
	}

	text := strings.ToLower(strings.TrimSpace(content.Content))
	title := strings.ToLower(strings.TrimSpace(content.Title))

	// Length as a proxy for specificity of the writeup.
	switch n := len(text); {
	case n >= 400:
		score += 15
	case n >= 150:
		score += 10
	case n >= 80:
		score += 5
	default:
		flags = append(flags, FlagGenericContent)
	}

	// Concrete numbers (lead counts, percentages, costs) are the strongest
	// specificity signal sponsors leave in real reviews.
	switch groups := len(numberGroup.FindAllString(text, -1)); {
	case groups >= 2:
		score += 10
	case groups == 1:
		score += 5
	}

	// ROI plausibility relative to the event category norm.
	if content.ROI == nil {
		score += 5
	} else if *content.ROI >= 0 && *content.ROI <= s.maxROI(content.EventCategory) {
		score += 10
	} else {
		flags = append(flags, FlagSuspiciousROI)
	}

	// Superlative density across title and body.
	switch count := countOccurrences(title+" "+text, superlatives); {
	case count == 0:
		score += 10
	case count <= 2:
		score += 5
	default:
		flags = append(flags, FlagExtremeLanguage)
	}

	if sentimentConsistent(content.Rating, text) {
		score += 5
	}

	if score > 100 {
		score = 100
	}

	// A low-confidence review must tell the moderator why it is in the
	// flagged queue. If no individual signal failed hard enough to flag,
	// the weak overall specificity is the reason.
	if score < s.LowScoreFloor && len(flags) == 0 {
		flags = append(flags, FlagGenericContent)
	}

	return score, flags
}

func (s Scorer) maxROI(category string) float64 {
	if norm, ok := s.MaxROIByCategory[strings.ToLower(category)]; ok {
		return norm
	}
	return s.DefaultMaxROI
}

func countOccurrences(text string, words []string) int {
	total := 0
	for _, w := range words {
		total += strings.Count(text, w)
	}
	return total
}

// sentimentConsistent checks the rating against the dominant sentiment of the
// text. A 5-star review written in avoid/waste language (or the reverse) is a
// mismatch and simply earns no consistency points; there is no flag for it.
func sentimentConsistent(rating int, text string) bool {
	pos := countOccurrences(text, positiveWords)
	neg := countOccurrences(text, negativeWords)

	switch {
	case rating >= 4:
		return neg <= pos
	case rating <= 2:
		return pos <= neg
	default:
		return true
	}
}
