package engine

import (
	"sort"

	"github.com/metroflow/induction-backend/internal/types"
)

// scored pairs a verdict with its breakdown for sorting.
type scored struct {
	verdict   *types.Verdict
	breakdown *types.ScoreBreakdown
}

// Assign partitions the fleet into Service, Standby, and Maintenance under
// the service capacity. Every trainset must appear in both maps. When the
// eligible pool is smaller than the capacity, the highest-scoring
// ineligible trainsets are promoted into Service with ManualOverride set;
// the audit log refuses to lock such a plan until each promotion carries a
// justification.
func Assign(breakdowns map[string]*types.ScoreBreakdown, verdicts map[string]*types.Verdict, serviceCapacity int) []types.Decision {
	var eligible, ineligible []scored
	for id, verdict := range verdicts {
		entry := scored{verdict: verdict, breakdown: breakdowns[id]}
		if verdict.Eligible {
			eligible = append(eligible, entry)
		} else {
			ineligible = append(ineligible, entry)
		}
	}
	sortByScore(eligible)
	sortByScore(ineligible)

	serviceCount := serviceCapacity
	if serviceCount > len(eligible) {
		serviceCount = len(eligible)
	}

	decisions := make([]types.Decision, 0, len(verdicts))
	rank := 0
	for i, entry := range eligible {
		rank++
		category := types.CategoryStandby
		if i < serviceCount {
			category = types.CategoryService
		}
		decisions = append(decisions, types.Decision{
			TrainsetID: entry.verdict.TrainsetID,
			Category:   category,
			Rank:       rank,
			Breakdown:  entry.breakdown,
			Verdict:    entry.verdict,
		})
	}

	// Capacity shortfall: promote the best ineligible units, explicitly
	// flagged, never silently.
	promoted := 0
	if serviceCapacity > len(eligible) {
		promoted = serviceCapacity - len(eligible)
		if promoted > len(ineligible) {
			promoted = len(ineligible)
		}
		for _, entry := range ineligible[:promoted] {
			rank++
			decisions = append(decisions, types.Decision{
				TrainsetID:     entry.verdict.TrainsetID,
				Category:       types.CategoryService,
				Rank:           rank,
				ManualOverride: true,
				Breakdown:      entry.breakdown,
				Verdict:        entry.verdict,
			})
		}
	}

	// Remaining ineligible go to Maintenance, ranked among themselves in
	// descending score for reporting order.
	for i, entry := range ineligible[promoted:] {
		decisions = append(decisions, types.Decision{
			TrainsetID: entry.verdict.TrainsetID,
			Category:   types.CategoryMaintenance,
			Rank:       i + 1,
			Breakdown:  entry.breakdown,
			Verdict:    entry.verdict,
		})
	}

	return decisions
}

// sortByScore orders descending by total score with the fixed tie-break
// chain: higher fitness-margin criterion, fewer open job cards,
// lexicographically smaller trainset id.
func sortByScore(entries []scored) {
	sort.SliceStable(entries, func(i, j int) bool {
		bi, bj := entries[i].breakdown, entries[j].breakdown
		if bi.Total != bj.Total {
			return bi.Total > bj.Total
		}
		fi, fj := criterionNorm(bi, CriterionFitness), criterionNorm(bj, CriterionFitness)
		if fi != fj {
			return fi > fj
		}
		oi, oj := criterionRaw(bi, CriterionJobCard), criterionRaw(bj, CriterionJobCard)
		if oi != oj {
			return oi < oj
		}
		return bi.TrainsetID < bj.TrainsetID
	})
}

func criterionNorm(bd *types.ScoreBreakdown, criterion string) float64 {
	for _, row := range bd.Criteria {
		if row.Criterion == criterion {
			return row.Normalized
		}
	}
	return 0
}

func criterionRaw(bd *types.ScoreBreakdown, criterion string) float64 {
	for _, row := range bd.Criteria {
		if row.Criterion == criterion {
			return row.Raw
		}
	}
	return 0
}
