package engine

import (
	"reflect"
	"testing"
	"time"

	"github.com/metroflow/induction-backend/internal/types"
)

func snapshotOf(facts ...*types.TrainsetFact) *types.FleetSnapshot {
	return &types.FleetSnapshot{DepotID: "muttom", TakenAt: evalDate, Trainsets: facts}
}

func criterionRow(t *testing.T, bd *types.ScoreBreakdown, criterion string) types.CriterionScore {
	t.Helper()
	for _, row := range bd.Criteria {
		if row.Criterion == criterion {
			return row
		}
	}
	t.Fatalf("criterion %q missing from breakdown", criterion)
	return types.CriterionScore{}
}

func TestScoreCriterionNormalization(t *testing.T) {
	cases := []struct {
		name      string
		mutate    func(f *types.TrainsetFact)
		criterion string
		want      float64
	}{
		{
			name: "fitness_margin_clipped_at_90_days",
			mutate: func(f *types.TrainsetFact) {
				f.FitnessExpiry[types.FitnessDomainRollingStock] = day(400)
				f.FitnessExpiry[types.FitnessDomainSignalling] = day(400)
				f.FitnessExpiry[types.FitnessDomainTelecom] = day(400)
			},
			criterion: CriterionFitness,
			want:      1.0,
		},
		{
			name: "fitness_margin_uses_minimum_domain",
			mutate: func(f *types.TrainsetFact) {
				f.FitnessExpiry[types.FitnessDomainSignalling] = day(45)
			},
			criterion: CriterionFitness,
			want:      0.5,
		},
		{
			name:      "no_open_cards_scores_one",
			mutate:    func(f *types.TrainsetFact) {},
			criterion: CriterionJobCard,
			want:      1.0,
		},
		{
			name: "major_card_penalizes_more_than_minor",
			mutate: func(f *types.TrainsetFact) {
				f.JobCards = []types.JobCard{
					{ID: "JC-1", Severity: types.JobCardMajor, Status: types.JobCardOpen},
				}
			},
			criterion: CriterionJobCard,
			want:      1.0 / 3.0,
		},
		{
			name: "minor_card_mild_penalty",
			mutate: func(f *types.TrainsetFact) {
				f.JobCards = []types.JobCard{
					{ID: "JC-2", Severity: types.JobCardMinor, Status: types.JobCardOpen},
				}
			},
			criterion: CriterionJobCard,
			want:      0.5,
		},
		{
			name:      "no_branding_neutral",
			mutate:    func(f *types.TrainsetFact) {},
			criterion: CriterionBranding,
			want:      0.5,
		},
		{
			name: "full_branding_deficit",
			mutate: func(f *types.TrainsetFact) {
				f.Branding = []types.BrandingAssignment{
					{AdvertiserID: "adv1", RequiredHours: 100, ActualHours: 0},
				}
			},
			criterion: CriterionBranding,
			want:      1.0,
		},
		{
			name: "half_branding_deficit",
			mutate: func(f *types.TrainsetFact) {
				f.Branding = []types.BrandingAssignment{
					{AdvertiserID: "adv1", RequiredHours: 80, ActualHours: 40},
				}
			},
			criterion: CriterionBranding,
			want:      0.5,
		},
		{
			name: "branding_over_target_scores_zero",
			mutate: func(f *types.TrainsetFact) {
				f.Branding = []types.BrandingAssignment{
					{AdvertiserID: "adv1", RequiredHours: 50, ActualHours: 70},
				}
			},
			criterion: CriterionBranding,
			want:      0.0,
		},
		{
			name:      "cleaning_done",
			mutate:    func(f *types.TrainsetFact) {},
			criterion: CriterionCleaning,
			want:      1.0,
		},
		{
			name: "cleaning_pending_penalized_not_gated",
			mutate: func(f *types.TrainsetFact) {
				f.Cleaning = types.CleaningPending
			},
			criterion: CriterionCleaning,
			want:      cleaningPendingScore,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fact := healthyFact("T1")
			// Expiries far out so the fitness rows are stable unless the
			// case overrides them.
			fact.FitnessExpiry = map[string]time.Time{
				types.FitnessDomainRollingStock: day(120),
				types.FitnessDomainSignalling:   day(120),
				types.FitnessDomainTelecom:      day(120),
			}
			tc.mutate(fact)
			fleet := NewFleetContext(snapshotOf(fact), evalDate)
			bd := Score(fact, DefaultWeights(), fleet)
			row := criterionRow(t, bd, tc.criterion)
			if diff := row.Normalized - tc.want; diff > 1e-9 || diff < -1e-9 {
				t.Fatalf("%s normalized = %v, want %v", tc.criterion, row.Normalized, tc.want)
			}
		})
	}
}

func TestScoreMileageBalance(t *testing.T) {
	low := healthyFact("T1")
	low.OdometerKM = 100000
	mid := healthyFact("T2")
	mid.OdometerKM = 150000
	high := healthyFact("T3")
	high.OdometerKM = 200000

	fleet := NewFleetContext(snapshotOf(low, mid, high), evalDate)
	bdMid := Score(mid, DefaultWeights(), fleet)
	bdHigh := Score(high, DefaultWeights(), fleet)

	rowMid := criterionRow(t, bdMid, CriterionMileage)
	rowHigh := criterionRow(t, bdHigh, CriterionMileage)
	if rowMid.Normalized <= rowHigh.Normalized {
		t.Fatalf("trainset at fleet mean should outscore outlier: mid=%v high=%v", rowMid.Normalized, rowHigh.Normalized)
	}
	if rowMid.Normalized != 1.0 {
		t.Fatalf("mean-odometer trainset mileage = %v, want 1.0", rowMid.Normalized)
	}
}

func TestScoreShuntingInverse(t *testing.T) {
	cheap := healthyFact("T1")
	cheap.ShuntingMoves = 0
	costly := healthyFact("T2")
	costly.ShuntingMoves = 4

	fleet := NewFleetContext(snapshotOf(cheap, costly), evalDate)
	if got := criterionRow(t, Score(cheap, DefaultWeights(), fleet), CriterionShunting).Normalized; got != 1.0 {
		t.Fatalf("zero moves normalized = %v, want 1.0", got)
	}
	if got := criterionRow(t, Score(costly, DefaultWeights(), fleet), CriterionShunting).Normalized; got != 0.0 {
		t.Fatalf("max moves normalized = %v, want 0.0", got)
	}
}

func TestScoreConfidenceBounds(t *testing.T) {
	// A trainset with every penalty and one with every bonus both stay in
	// [0,100] and produce integer confidence.
	worst := healthyFact("T1")
	worst.Cleaning = types.CleaningPending
	worst.ShuntingMoves = 9
	worst.JobCards = []types.JobCard{
		{ID: "JC-1", Severity: types.JobCardMajor, Status: types.JobCardOpen},
		{ID: "JC-2", Severity: types.JobCardMajor, Status: types.JobCardOpen},
		{ID: "JC-3", Severity: types.JobCardMinor, Status: types.JobCardOpen},
	}
	worst.Branding = []types.BrandingAssignment{{AdvertiserID: "adv", RequiredHours: 10, ActualHours: 10}}
	best := healthyFact("T2")
	best.FitnessExpiry = map[string]time.Time{
		types.FitnessDomainRollingStock: day(120),
		types.FitnessDomainSignalling:   day(120),
		types.FitnessDomainTelecom:      day(120),
	}

	fleet := NewFleetContext(snapshotOf(worst, best), evalDate)
	for _, fact := range []*types.TrainsetFact{worst, best} {
		bd := Score(fact, DefaultWeights(), fleet)
		if bd.Confidence < 0 || bd.Confidence > 100 {
			t.Fatalf("confidence %d out of [0,100]", bd.Confidence)
		}
	}
}

func TestScoreDeterminism(t *testing.T) {
	fact := healthyFact("T1")
	fact.Branding = []types.BrandingAssignment{{AdvertiserID: "adv", RequiredHours: 120, ActualHours: 80}}
	fact.JobCards = []types.JobCard{{ID: "JC-4", Severity: types.JobCardMinor, Status: types.JobCardOpen}}
	fleet := NewFleetContext(snapshotOf(fact), evalDate)

	first := Score(fact, DefaultWeights(), fleet)
	for i := 0; i < 10; i++ {
		again := Score(fact, DefaultWeights(), fleet)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d produced a different breakdown", i)
		}
	}
}

func TestScoreRationaleMentionsTightFitness(t *testing.T) {
	fact := healthyFact("T1")
	fact.FitnessExpiry[types.FitnessDomainSignalling] = day(12)
	fleet := NewFleetContext(snapshotOf(fact), evalDate)

	// Make fitness the dominant contributor.
	weights := map[string]float64{
		CriterionFitness:  0.7,
		CriterionJobCard:  0.1,
		CriterionMileage:  0.05,
		CriterionBranding: 0.05,
		CriterionCleaning: 0.05,
		CriterionShunting: 0.05,
	}
	bd := Score(fact, weights, fleet)
	found := false
	for _, clause := range bd.Rationale {
		if clause == "signalling fitness expiring in 12 days" {
			found = true
		}
	}
	if !found {
		t.Fatalf("rationale %v missing fitness clause", bd.Rationale)
	}
}
