package engine

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/metroflow/induction-backend/internal/types"
)

// fitnessClipDays is the margin beyond which extra certificate headroom
// stops improving the score.
const fitnessClipDays = 90

// cleaningPendingScore keeps pending cleaning a material penalty without
// making it a gate.
const cleaningPendingScore = 0.3

// FleetContext carries the fleet-wide statistics the per-trainset criteria
// normalize against. It is computed once per run from the same snapshot the
// trainsets come from.
type FleetContext struct {
	MeanOdometer     float64
	OdometerRange    float64
	MaxShuntingMoves int
	EvalDate         time.Time
}

// NewFleetContext derives the fleet statistics from a snapshot.
func NewFleetContext(snapshot *types.FleetSnapshot, evalDate time.Time) FleetContext {
	ctx := FleetContext{EvalDate: evalDate}
	if len(snapshot.Trainsets) == 0 {
		return ctx
	}
	minOdo, maxOdo := snapshot.Trainsets[0].OdometerKM, snapshot.Trainsets[0].OdometerKM
	var sum int64
	for _, fact := range snapshot.Trainsets {
		sum += fact.OdometerKM
		if fact.OdometerKM < minOdo {
			minOdo = fact.OdometerKM
		}
		if fact.OdometerKM > maxOdo {
			maxOdo = fact.OdometerKM
		}
		if fact.ShuntingMoves > ctx.MaxShuntingMoves {
			ctx.MaxShuntingMoves = fact.ShuntingMoves
		}
	}
	ctx.MeanOdometer = float64(sum) / float64(len(snapshot.Trainsets))
	ctx.OdometerRange = float64(maxOdo - minOdo)
	return ctx
}

// Score computes the weighted multi-criteria breakdown for one trainset.
// It is pure: identical fact, weights, and fleet context always produce a
// bit-identical breakdown. Weights must already be validated.
func Score(fact *types.TrainsetFact, weights map[string]float64, fleet FleetContext) *types.ScoreBreakdown {
	bd := &types.ScoreBreakdown{TrainsetID: fact.ID}

	for _, criterion := range Criteria {
		raw, normalized := criterionValue(criterion, fact, fleet)
		weight := weights[criterion]
		row := types.CriterionScore{
			Criterion:  criterion,
			Raw:        raw,
			Normalized: normalized,
			Weight:     weight,
			Weighted:   weight * normalized,
		}
		bd.Criteria = append(bd.Criteria, row)
		bd.Total += row.Weighted
	}

	bd.Total *= 100
	bd.Confidence = int(math.Round(bd.Total))
	if bd.Confidence < 0 {
		bd.Confidence = 0
	}
	if bd.Confidence > 100 {
		bd.Confidence = 100
	}
	bd.Rationale = buildRationale(fact, fleet, bd.Criteria)
	return bd
}

func criterionValue(criterion string, fact *types.TrainsetFact, fleet FleetContext) (raw, normalized float64) {
	switch criterion {
	case CriterionFitness:
		days := minFitnessMarginDays(fact, fleet.EvalDate)
		return float64(days), clamp01(float64(clampInt(days, 0, fitnessClipDays)) / fitnessClipDays)
	case CriterionJobCard:
		major := len(fact.OpenJobCards(types.JobCardMajor))
		minor := len(fact.OpenJobCards(types.JobCardMinor))
		return float64(major + minor), 1.0 / (1.0 + 2.0*float64(major) + float64(minor))
	case CriterionMileage:
		if fleet.OdometerRange == 0 {
			return float64(fact.OdometerKM), 1.0
		}
		norm := 1.0 - math.Abs(float64(fact.OdometerKM)-fleet.MeanOdometer)/fleet.OdometerRange
		return float64(fact.OdometerKM), clamp01(norm)
	case CriterionBranding:
		required, deficit := brandingTotals(fact)
		if required == 0 {
			return 0, 0.5
		}
		return deficit, clamp01(deficit / required)
	case CriterionCleaning:
		if fact.Cleaning == types.CleaningDone {
			return 1, 1.0
		}
		return 0, cleaningPendingScore
	case CriterionShunting:
		if fleet.MaxShuntingMoves == 0 {
			return float64(fact.ShuntingMoves), 1.0
		}
		norm := 1.0 - float64(fact.ShuntingMoves)/float64(fleet.MaxShuntingMoves)
		return float64(fact.ShuntingMoves), clamp01(norm)
	}
	return 0, 0
}

// minFitnessMarginDays returns the smallest days-until-expiry across the
// certificate domains, never negative.
func minFitnessMarginDays(fact *types.TrainsetFact, evalDate time.Time) int {
	eval := dateOnly(evalDate)
	min := fitnessClipDays
	found := false
	for _, domain := range types.FitnessDomains {
		expiry, ok := fact.FitnessExpiry[domain]
		if !ok {
			continue
		}
		days := int(dateOnly(expiry).Sub(eval).Hours() / 24)
		if !found || days < min {
			min = days
			found = true
		}
	}
	if min < 0 {
		min = 0
	}
	return min
}

// minFitnessDomain names the certificate domain with the tightest margin.
func minFitnessDomain(fact *types.TrainsetFact, evalDate time.Time) string {
	eval := dateOnly(evalDate)
	best := ""
	bestDays := 0
	for _, domain := range types.FitnessDomains {
		expiry, ok := fact.FitnessExpiry[domain]
		if !ok {
			continue
		}
		days := int(dateOnly(expiry).Sub(eval).Hours() / 24)
		if best == "" || days < bestDays {
			best = domain
			bestDays = days
		}
	}
	return best
}

func brandingTotals(fact *types.TrainsetFact) (required, deficit float64) {
	for _, b := range fact.Branding {
		if b.RequiredHours <= 0 {
			continue
		}
		required += b.RequiredHours
		deficit += b.DeficitHours()
	}
	return required, deficit
}

// buildRationale renders the two or three dominant weighted contributors as
// short human-readable clauses, highest contribution first.
func buildRationale(fact *types.TrainsetFact, fleet FleetContext, criteria []types.CriterionScore) []string {
	ranked := make([]types.CriterionScore, len(criteria))
	copy(ranked, criteria)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Weighted > ranked[j].Weighted
	})

	limit := 3
	if limit > len(ranked) {
		limit = len(ranked)
	}
	var out []string
	for _, row := range ranked[:limit] {
		if clause := rationaleClause(row, fact, fleet); clause != "" {
			out = append(out, clause)
		}
	}
	return out
}

func rationaleClause(row types.CriterionScore, fact *types.TrainsetFact, fleet FleetContext) string {
	switch row.Criterion {
	case CriterionFitness:
		days := int(row.Raw)
		if days <= 30 {
			domain := minFitnessDomain(fact, fleet.EvalDate)
			return fmt.Sprintf("%s fitness expiring in %d days", domain, days)
		}
		return fmt.Sprintf("fitness margin %d days", days)
	case CriterionJobCard:
		open := int(row.Raw)
		if open == 0 {
			return "no open job cards"
		}
		return fmt.Sprintf("%d open job cards", open)
	case CriterionMileage:
		if fleet.OdometerRange == 0 {
			return "balanced mileage"
		}
		if float64(fact.OdometerKM) < fleet.MeanOdometer {
			return "low mileage"
		}
		if row.Normalized >= 0.8 {
			return "balanced mileage"
		}
		return "high mileage"
	case CriterionBranding:
		required, deficit := brandingTotals(fact)
		if required == 0 {
			return "no branding commitments"
		}
		if deficit > 0 {
			return fmt.Sprintf("branding behind target by %.0fh", deficit)
		}
		return "branding on target"
	case CriterionCleaning:
		if fact.Cleaning == types.CleaningDone {
			return "cleaning done"
		}
		return "cleaning pending"
	case CriterionShunting:
		return fmt.Sprintf("%d shunting moves", fact.ShuntingMoves)
	}
	return ""
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
