package engine

import (
	"fmt"
	"time"

	"github.com/metroflow/induction-backend/internal/types"
)

// BuildPlan runs the full classify → score → assign pipeline over one fleet
// snapshot. It is pure and allocation-fresh: callers may run any number of
// builds concurrently over the same snapshot. The returned plan carries no
// id; the plan service assigns identity and lifecycle.
func BuildPlan(snapshot *types.FleetSnapshot, weights map[string]float64, serviceCapacity int, evalDate time.Time) (*types.Plan, error) {
	if err := ValidateWeights(weights); err != nil {
		return nil, err
	}
	if serviceCapacity < 0 {
		return nil, fmt.Errorf("service capacity must be non-negative, got %d", serviceCapacity)
	}

	fleet := NewFleetContext(snapshot, evalDate)
	verdicts := make(map[string]*types.Verdict, len(snapshot.Trainsets))
	breakdowns := make(map[string]*types.ScoreBreakdown, len(snapshot.Trainsets))
	for _, fact := range snapshot.Trainsets {
		verdict := Classify(fact, evalDate)
		verdicts[fact.ID] = &verdict
		bd := Score(fact, weights, fleet)
		if !verdict.Eligible {
			// Blocking reasons lead the rationale so a Maintenance
			// assignment always names the rule that caused it.
			bd.Rationale = append(append([]string{}, verdict.BlockingReasons...), bd.Rationale...)
		}
		breakdowns[fact.ID] = bd
	}

	decisions := Assign(breakdowns, verdicts, serviceCapacity)
	return &types.Plan{
		DepotID:    snapshot.DepotID,
		Status:     types.PlanDraft,
		Capacity:   serviceCapacity,
		Weights:    CloneWeights(weights),
		SnapshotAt: snapshot.TakenAt,
		Decisions:  decisions,
		Snapshot:   snapshot,
	}, nil
}

// Simulate re-runs the pipeline over the baseline's snapshot with alternate
// weights and/or capacity. The baseline is read, never written; the
// candidate is a fresh value, so concurrent simulations against the same
// baseline need no coordination.
func Simulate(baseline *types.Plan, altWeights map[string]float64, altCapacity *int, evalDate time.Time) (*types.Plan, *types.PlanDiff, error) {
	weights := baseline.Weights
	if altWeights != nil {
		weights = altWeights
	}
	capacity := baseline.Capacity
	if altCapacity != nil {
		capacity = *altCapacity
	}

	candidate, err := BuildPlan(baseline.Snapshot, weights, capacity, evalDate)
	if err != nil {
		return nil, nil, err
	}

	diff := &types.PlanDiff{BaselinePlanID: baseline.ID}
	baseDecisions := decisionIndex(baseline.Decisions)
	for _, dec := range candidate.Decisions {
		base, ok := baseDecisions[dec.TrainsetID]
		if !ok {
			continue
		}
		delta := dec.Breakdown.Confidence - base.Breakdown.Confidence
		if base.Category == dec.Category && delta == 0 {
			continue
		}
		diff.Changes = append(diff.Changes, types.DecisionDiff{
			TrainsetID:   dec.TrainsetID,
			FromCategory: base.Category,
			ToCategory:   dec.Category,
			ScoreDelta:   delta,
		})
	}
	return candidate, diff, nil
}

func decisionIndex(decisions []types.Decision) map[string]types.Decision {
	out := make(map[string]types.Decision, len(decisions))
	for _, dec := range decisions {
		out[dec.TrainsetID] = dec
	}
	return out
}
