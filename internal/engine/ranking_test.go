package engine

import (
	"testing"

	"github.com/metroflow/induction-backend/internal/types"
)

// mkScored builds a breakdown/verdict pair with a synthetic total and
// tie-break inputs.
func mkScored(id string, total float64, eligible bool, fitnessNorm float64, openCards float64) (*types.ScoreBreakdown, *types.Verdict) {
	bd := &types.ScoreBreakdown{
		TrainsetID: id,
		Total:      total,
		Confidence: int(total),
		Criteria: []types.CriterionScore{
			{Criterion: CriterionFitness, Normalized: fitnessNorm},
			{Criterion: CriterionJobCard, Raw: openCards},
		},
	}
	verdict := &types.Verdict{TrainsetID: id, Eligible: eligible}
	if !eligible {
		verdict.BlockingReasons = []string{"critical job card JC-X open: test"}
	}
	return bd, verdict
}

func assign(t *testing.T, capacity int, entries ...func() (*types.ScoreBreakdown, *types.Verdict)) []types.Decision {
	t.Helper()
	breakdowns := map[string]*types.ScoreBreakdown{}
	verdicts := map[string]*types.Verdict{}
	for _, entry := range entries {
		bd, v := entry()
		breakdowns[bd.TrainsetID] = bd
		verdicts[v.TrainsetID] = v
	}
	return Assign(breakdowns, verdicts, capacity)
}

func byID(decisions []types.Decision) map[string]types.Decision {
	out := map[string]types.Decision{}
	for _, d := range decisions {
		out[d.TrainsetID] = d
	}
	return out
}

func TestAssignCapacityPartition(t *testing.T) {
	// capacity=2, four eligible with distinct scores: top two go to
	// Service, the rest to Standby.
	decisions := assign(t, 2,
		func() (*types.ScoreBreakdown, *types.Verdict) { return mkScored("T1", 90, true, 1, 0) },
		func() (*types.ScoreBreakdown, *types.Verdict) { return mkScored("T2", 80, true, 1, 0) },
		func() (*types.ScoreBreakdown, *types.Verdict) { return mkScored("T3", 70, true, 1, 0) },
		func() (*types.ScoreBreakdown, *types.Verdict) { return mkScored("T4", 60, true, 1, 0) },
	)
	if len(decisions) != 4 {
		t.Fatalf("got %d decisions, want 4", len(decisions))
	}
	got := byID(decisions)
	for id, want := range map[string]types.Category{
		"T1": types.CategoryService,
		"T2": types.CategoryService,
		"T3": types.CategoryStandby,
		"T4": types.CategoryStandby,
	} {
		if got[id].Category != want {
			t.Fatalf("%s category = %s, want %s", id, got[id].Category, want)
		}
		if got[id].ManualOverride {
			t.Fatalf("%s unexpectedly flagged as override", id)
		}
	}
	for id, wantRank := range map[string]int{"T1": 1, "T2": 2, "T3": 3, "T4": 4} {
		if got[id].Rank != wantRank {
			t.Fatalf("%s rank = %d, want %d", id, got[id].Rank, wantRank)
		}
	}
}

func TestAssignTieBreakChain(t *testing.T) {
	cases := []struct {
		name      string
		a, b      func() (*types.ScoreBreakdown, *types.Verdict)
		wantFirst string
	}{
		{
			name:      "higher_fitness_margin_wins",
			a:         func() (*types.ScoreBreakdown, *types.Verdict) { return mkScored("T2", 75, true, 0.9, 0) },
			b:         func() (*types.ScoreBreakdown, *types.Verdict) { return mkScored("T1", 75, true, 0.4, 0) },
			wantFirst: "T2",
		},
		{
			name:      "fewer_open_cards_wins",
			a:         func() (*types.ScoreBreakdown, *types.Verdict) { return mkScored("T2", 75, true, 0.5, 1) },
			b:         func() (*types.ScoreBreakdown, *types.Verdict) { return mkScored("T1", 75, true, 0.5, 3) },
			wantFirst: "T2",
		},
		{
			name:      "lexicographic_id_last_resort",
			a:         func() (*types.ScoreBreakdown, *types.Verdict) { return mkScored("T2", 75, true, 0.5, 1) },
			b:         func() (*types.ScoreBreakdown, *types.Verdict) { return mkScored("T1", 75, true, 0.5, 1) },
			wantFirst: "T1",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decisions := assign(t, 1, tc.a, tc.b)
			got := byID(decisions)
			if got[tc.wantFirst].Category != types.CategoryService {
				t.Fatalf("want %s in Service, got %+v", tc.wantFirst, decisions)
			}
		})
	}
}

func TestAssignIneligibleToMaintenance(t *testing.T) {
	decisions := assign(t, 2,
		func() (*types.ScoreBreakdown, *types.Verdict) { return mkScored("T1", 90, true, 1, 0) },
		func() (*types.ScoreBreakdown, *types.Verdict) { return mkScored("T2", 85, false, 1, 0) },
		func() (*types.ScoreBreakdown, *types.Verdict) { return mkScored("T3", 40, false, 1, 0) },
		func() (*types.ScoreBreakdown, *types.Verdict) { return mkScored("T4", 70, true, 1, 0) },
	)
	got := byID(decisions)
	if got["T2"].Category != types.CategoryMaintenance || got["T3"].Category != types.CategoryMaintenance {
		t.Fatalf("ineligible trainsets not in Maintenance: %+v", decisions)
	}
	// Maintenance reporting order: descending score among themselves.
	if got["T2"].Rank != 1 || got["T3"].Rank != 2 {
		t.Fatalf("maintenance ranks = %d,%d, want 1,2", got["T2"].Rank, got["T3"].Rank)
	}
	if got["T1"].Category != types.CategoryService || got["T4"].Category != types.CategoryService {
		t.Fatalf("eligible trainsets should fill capacity: %+v", decisions)
	}
}

func TestAssignShortfallPromotesWithOverride(t *testing.T) {
	// capacity=3 but only 2 eligible: the best ineligible is promoted,
	// explicitly flagged.
	decisions := assign(t, 3,
		func() (*types.ScoreBreakdown, *types.Verdict) { return mkScored("T1", 90, true, 1, 0) },
		func() (*types.ScoreBreakdown, *types.Verdict) { return mkScored("T2", 80, true, 1, 0) },
		func() (*types.ScoreBreakdown, *types.Verdict) { return mkScored("T3", 70, false, 1, 0) },
		func() (*types.ScoreBreakdown, *types.Verdict) { return mkScored("T4", 60, false, 1, 0) },
	)
	got := byID(decisions)

	service := 0
	for _, d := range decisions {
		if d.Category == types.CategoryService {
			service++
		}
	}
	if service != 3 {
		t.Fatalf("|Service| = %d, want exactly capacity 3", service)
	}
	if !got["T3"].ManualOverride {
		t.Fatal("promoted ineligible trainset must carry ManualOverride")
	}
	if got["T3"].Category != types.CategoryService {
		t.Fatalf("T3 category = %s, want Service", got["T3"].Category)
	}
	if got["T1"].ManualOverride || got["T2"].ManualOverride {
		t.Fatal("eligible trainsets must not be flagged")
	}
	if got["T4"].Category != types.CategoryMaintenance {
		t.Fatalf("T4 category = %s, want Maintenance", got["T4"].Category)
	}
}

func TestAssignZeroCapacity(t *testing.T) {
	decisions := assign(t, 0,
		func() (*types.ScoreBreakdown, *types.Verdict) { return mkScored("T1", 90, true, 1, 0) },
	)
	if decisions[0].Category != types.CategoryStandby {
		t.Fatalf("with zero capacity the eligible trainset should be Standby, got %s", decisions[0].Category)
	}
}
