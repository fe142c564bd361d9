package types

import (
  "time"
)

// Certificate domains. Every trainset carries one fitness certificate per
// domain; expiry is compared at day granularity.
const (
  FitnessDomainRollingStock = "rolling_stock"
  FitnessDomainSignalling   = "signalling"
  FitnessDomainTelecom      = "telecom"
)

// FitnessDomains lists the certificate domains in their canonical evaluation
// order.
var FitnessDomains = []string{
  FitnessDomainRollingStock,
  FitnessDomainSignalling,
  FitnessDomainTelecom,
}

type JobCardSeverity string

const (
  JobCardMinor    JobCardSeverity = "minor"
  JobCardMajor    JobCardSeverity = "major"
  JobCardCritical JobCardSeverity = "critical"
)

type JobCardStatus string

const (
  JobCardOpen   JobCardStatus = "open"
  JobCardClosed JobCardStatus = "closed"
)

type JobCard struct {
  ID          string          `json:"id"`
  Severity    JobCardSeverity `json:"severity"`
  Status      JobCardStatus   `json:"status"`
  Description string          `json:"description"`
}

func (jc JobCard) IsOpen() bool { return jc.Status == JobCardOpen }

type BrandingAssignment struct {
  AdvertiserID  string  `json:"advertiser_id"`
  RequiredHours float64 `json:"required_hours"`
  ActualHours   float64 `json:"actual_hours"`
}

// DeficitHours is the exposure still owed to the advertiser, never negative.
func (b BrandingAssignment) DeficitHours() float64 {
  d := b.RequiredHours - b.ActualHours
  if d < 0 {
    return 0
  }
  return d
}

type CleaningStatus string

const (
  CleaningDone    CleaningStatus = "Done"
  CleaningPending CleaningStatus = "Pending"
)

// TrainsetFact is the full typed snapshot of one trainset's inputs for one
// induction run. Facts are constructed once by the aggregator and never
// mutated afterwards; the engine treats them as read-only.
type TrainsetFact struct {
  ID             string               `json:"id"`
  OdometerKM     int64                `json:"odometer_km"`
  FitnessExpiry  map[string]time.Time `json:"fitness_expiry"`
  JobCards       []JobCard            `json:"job_cards"`
  Branding       []BrandingAssignment `json:"branding"`
  Cleaning       CleaningStatus       `json:"cleaning"`
  ShuntingMoves  int                  `json:"shunting_moves"`
  TurnoutMinutes int                  `json:"turnout_minutes"`
  // StaleDomains lists feed domains whose data came from the staleness
  // cache rather than a live fetch, as "stale:<domain>" annotations.
  StaleDomains []string `json:"stale_domains,omitempty"`
}

// OpenJobCards returns the open cards filtered by severity.
func (f *TrainsetFact) OpenJobCards(severity JobCardSeverity) []JobCard {
  var out []JobCard
  for _, jc := range f.JobCards {
    if jc.IsOpen() && jc.Severity == severity {
      out = append(out, jc)
    }
  }
  return out
}

// FleetSnapshot is the aggregator's output: every trainset fact for one
// depot at one point in time.
type FleetSnapshot struct {
  DepotID    string          `json:"depot_id"`
  TakenAt    time.Time       `json:"taken_at"`
  Trainsets  []*TrainsetFact `json:"trainsets"`
}
