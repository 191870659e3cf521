package service

import (
	"context"
	"strings"

	"github.com/davidpm1021/dungeonsanddumbells/internal/domain"
	"go.uber.org/zap"
)

const (
	// siblingCount is how many alternate generations back the original in a
	// consistency check.
	siblingCount = 3

	// agreementThreshold is the minimum mean pairwise overlap for the
	// original to stand. Below it, the most central sibling substitutes.
	agreementThreshold = 0.5
)

// ConsistencyReport records what a self-consistency check decided.
type ConsistencyReport struct {
	Agreement   float64 `json:"agreement"`
	Siblings    int     `json:"siblings"`
	Substituted bool    `json:"substituted"`
}

// SelfConsistencyChecker cross-checks a borderline candidate against
// independently generated siblings. High agreement means the original stands;
// low agreement swaps in the sibling most similar to the rest of the group.
type SelfConsistencyChecker struct {
	generator *ContentGenerator
	logger    *zap.Logger
}

func NewSelfConsistencyChecker(generator *ContentGenerator, logger *zap.Logger) *SelfConsistencyChecker {
	return &SelfConsistencyChecker{generator: generator, logger: logger}
}

// Check runs the consistency protocol for one borderline candidate. When
// sibling generation yields fewer than two comparable texts the original
// stands with full agreement.
func (s *SelfConsistencyChecker) Check(ctx context.Context, original *domain.Candidate, need domain.NarrativeNeed, gc *domain.GenerationContext) (*domain.Candidate, *ConsistencyReport) {
	siblings := s.generator.Variations(ctx, need, gc, siblingCount)

	if len(siblings) == 0 {
		return original, &ConsistencyReport{Agreement: 1.0, Siblings: 0}
	}
	group := append([]*domain.Candidate{original}, siblings...)

	agreement := meanAgreementWithSiblings(original, siblings)
	report := &ConsistencyReport{Agreement: agreement, Siblings: len(siblings)}

	if agreement >= agreementThreshold {
		return original, report
	}

	central := mostCentral(group)
	if central == original {
		return original, report
	}

	report.Substituted = true
	s.logger.Info("substituting more consistent sibling",
		zap.String("character_id", original.CharacterID.String()),
		zap.Float64("agreement", agreement))
	return central, report
}

// meanAgreementWithSiblings is the mean Jaccard overlap between the
// original's token set and each sibling's. An original that diverges from
// every sibling scores low even when the siblings agree among themselves.
func meanAgreementWithSiblings(original *domain.Candidate, siblings []*domain.Candidate) float64 {
	origSet := candidateTokens(original)
	var total float64
	for _, s := range siblings {
		total += jaccard(origSet, candidateTokens(s))
	}
	return total / float64(len(siblings))
}

// mostCentral returns the group member with the highest mean similarity to
// the rest of the group.
func mostCentral(group []*domain.Candidate) *domain.Candidate {
	sets := make([]map[string]bool, len(group))
	for i, c := range group {
		sets[i] = candidateTokens(c)
	}

	best, bestScore := group[0], -1.0
	for i := range group {
		var sum float64
		for j := range group {
			if i == j {
				continue
			}
			sum += jaccard(sets[i], sets[j])
		}
		score := sum / float64(len(group)-1)
		if score > bestScore {
			best, bestScore = group[i], score
		}
	}
	return best
}

func candidateTokens(c *domain.Candidate) map[string]bool {
	text := c.Title + " " + c.Narrative + " " + strings.Join(c.Objectives, " ")
	return tokenSet(text)
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	intersection := 0
	for t := range a {
		if b[t] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 1.0
	}
	return float64(intersection) / float64(union)
}
