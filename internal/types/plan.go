package types

import (
  "time"
  "github.com/google/uuid"
)

// Verdict is the eligibility outcome for one trainset. BlockingReasons is
// empty iff Eligible; the first entry is the primary reason.
type Verdict struct {
  TrainsetID      string   `json:"trainset_id"`
  Eligible        bool     `json:"eligible"`
  BlockingReasons []string `json:"blocking_reasons,omitempty"`
}

// CriterionScore is one row of a score breakdown.
type CriterionScore struct {
  Criterion  string  `json:"criterion"`
  Raw        float64 `json:"raw"`
  Normalized float64 `json:"normalized"`
  Weight     float64 `json:"weight"`
  Weighted   float64 `json:"weighted"`
}

// ScoreBreakdown explains one trainset's confidence score. Confidence is an
// integer in [0,100]; Rationale holds the dominant contributors rendered as
// short clauses.
type ScoreBreakdown struct {
  TrainsetID string           `json:"trainset_id"`
  Criteria   []CriterionScore `json:"criteria"`
  Total      float64          `json:"total"`
  Confidence int              `json:"confidence"`
  Rationale  []string         `json:"rationale"`
}

type Category string

const (
  CategoryService     Category = "Service"
  CategoryStandby     Category = "Standby"
  CategoryMaintenance Category = "Maintenance"
)

// Decision places one trainset in a category. ManualOverride is true only
// when a capacity shortfall forced an ineligible trainset into Service.
type Decision struct {
  TrainsetID     string          `json:"trainset_id"`
  Category       Category        `json:"category"`
  Rank           int             `json:"rank"`
  ManualOverride bool            `json:"manual_override"`
  Breakdown      *ScoreBreakdown `json:"breakdown,omitempty"`
  Verdict        *Verdict        `json:"verdict"`
}

type PlanStatus string

const (
  PlanDraft  PlanStatus = "Draft"
  PlanLocked PlanStatus = "Locked"
)

// Plan is the immutable aggregate of all decisions for one fleet snapshot.
// A Draft is replaced wholesale by re-running; a Locked plan never changes.
type Plan struct {
  ID         uuid.UUID          `json:"id"`
  DepotID    string             `json:"depot_id"`
  Status     PlanStatus         `json:"status"`
  Capacity   int                `json:"capacity"`
  Weights    map[string]float64 `json:"weights"`
  SnapshotAt time.Time          `json:"snapshot_at"`
  CreatedAt  time.Time          `json:"created_at"`
  Decisions  []Decision         `json:"decisions"`
  // Snapshot is retained so simulations can re-score from the same facts.
  Snapshot *FleetSnapshot `json:"-"`
  ApproverID string     `json:"approver_id,omitempty"`
  LockedAt   *time.Time `json:"locked_at,omitempty"`
}

// DecisionDiff reports how one trainset moved between a baseline plan and a
// simulated candidate.
type DecisionDiff struct {
  TrainsetID   string   `json:"trainset_id"`
  FromCategory Category `json:"from_category"`
  ToCategory   Category `json:"to_category"`
  ScoreDelta   int      `json:"score_delta"`
}

// PlanDiff is the simulate output alongside the candidate plan. Entries
// cover only trainsets whose category or confidence changed.
type PlanDiff struct {
  BaselinePlanID uuid.UUID      `json:"baseline_plan_id"`
  Changes        []DecisionDiff `json:"changes"`
}
