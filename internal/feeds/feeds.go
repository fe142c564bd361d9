package feeds

import (
  "context"
  "time"

  "github.com/metroflow/induction-backend/internal/types"
)

// Feed domain names. These key the staleness cache and the stale:<domain>
// annotations, so they must stay stable.
const (
  DomainRollingStock = "rolling_stock"
  DomainSignalling   = "signalling"
  DomainTelecom      = "telecom"
  DomainCleaning     = "cleaning"
  DomainBranding     = "branding"
  DomainYard         = "yard"
)

// Per-domain fact slices as supplied by the collaborator systems. Each map
// is keyed by trainset id.

type RollingStockFacts struct {
  OdometerKM    int64           `json:"odometer_km"`
  FitnessExpiry time.Time       `json:"fitness_expiry"`
  JobCards      []types.JobCard `json:"job_cards"`
}

type SignallingFacts struct {
  FitnessExpiry time.Time `json:"fitness_expiry"`
}

type TelecomFacts struct {
  FitnessExpiry time.Time `json:"fitness_expiry"`
}

type CleaningFacts struct {
  Status types.CleaningStatus `json:"status"`
}

type BrandingFacts struct {
  Assignments []types.BrandingAssignment `json:"assignments"`
}

type YardFacts struct {
  ShuntingMoves  int `json:"shunting_moves"`
  TurnoutMinutes int `json:"turnout_minutes"`
}

// One capability interface per domain so the aggregator can be assembled
// from fakes in tests without any network dependency.

type RollingStockFeed interface {
  FetchRollingStock(ctx context.Context, depotID string) (map[string]RollingStockFacts, error)
}

type SignallingFeed interface {
  FetchSignalling(ctx context.Context, depotID string) (map[string]SignallingFacts, error)
}

type TelecomFeed interface {
  FetchTelecom(ctx context.Context, depotID string) (map[string]TelecomFacts, error)
}

type CleaningFeed interface {
  FetchCleaning(ctx context.Context, depotID string) (map[string]CleaningFacts, error)
}

type BrandingFeed interface {
  FetchBranding(ctx context.Context, depotID string) (map[string]BrandingFacts, error)
}

type YardFeed interface {
  FetchYard(ctx context.Context, depotID string) (map[string]YardFacts, error)
}

// Set bundles the six domain feeds the aggregator consumes.
type Set struct {
  RollingStock RollingStockFeed
  Signalling   SignallingFeed
  Telecom      TelecomFeed
  Cleaning     CleaningFeed
  Branding     BrandingFeed
  Yard         YardFeed
}
