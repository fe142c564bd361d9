package services

import (
  "context"
  "errors"
  "testing"
  "time"

  "go.uber.org/zap"

  "github.com/metroflow/induction-backend/internal/apierr"
  "github.com/metroflow/induction-backend/internal/cache"
  "github.com/metroflow/induction-backend/internal/feeds"
  "github.com/metroflow/induction-backend/internal/logger"
  "github.com/metroflow/induction-backend/internal/types"
)

func testLogger() *logger.Logger {
  return &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// fakeFeeds implements all six domain feed interfaces with canned data and
// per-domain error injection.
type fakeFeeds struct {
  rolling    map[string]feeds.RollingStockFacts
  signalling map[string]feeds.SignallingFacts
  telecom    map[string]feeds.TelecomFacts
  cleaning   map[string]feeds.CleaningFacts
  branding   map[string]feeds.BrandingFacts
  yard       map[string]feeds.YardFacts

  rollingErr    error
  signallingErr error
  telecomErr    error
  cleaningErr   error
  brandingErr   error
  yardErr       error

  cleaningCalls int
  // cleaningFailures makes the first N cleaning fetches fail before the
  // canned data is returned.
  cleaningFailures int
}

func (f *fakeFeeds) FetchRollingStock(_ context.Context, _ string) (map[string]feeds.RollingStockFacts, error) {
  return f.rolling, f.rollingErr
}
func (f *fakeFeeds) FetchSignalling(_ context.Context, _ string) (map[string]feeds.SignallingFacts, error) {
  return f.signalling, f.signallingErr
}
func (f *fakeFeeds) FetchTelecom(_ context.Context, _ string) (map[string]feeds.TelecomFacts, error) {
  return f.telecom, f.telecomErr
}
func (f *fakeFeeds) FetchCleaning(_ context.Context, _ string) (map[string]feeds.CleaningFacts, error) {
  f.cleaningCalls++
  if f.cleaningErr != nil {
    return nil, f.cleaningErr
  }
  if f.cleaningCalls <= f.cleaningFailures {
    return nil, errors.New("cleaning endpoint flaked")
  }
  return f.cleaning, nil
}
func (f *fakeFeeds) FetchBranding(_ context.Context, _ string) (map[string]feeds.BrandingFacts, error) {
  return f.branding, f.brandingErr
}
func (f *fakeFeeds) FetchYard(_ context.Context, _ string) (map[string]feeds.YardFacts, error) {
  return f.yard, f.yardErr
}

func (f *fakeFeeds) set() feeds.Set {
  return feeds.Set{
    RollingStock: f,
    Signalling:   f,
    Telecom:      f,
    Cleaning:     f,
    Branding:     f,
    Yard:         f,
  }
}

func threeTrainsetFeeds() *fakeFeeds {
  expiry := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
  f := &fakeFeeds{
    rolling:    map[string]feeds.RollingStockFacts{},
    signalling: map[string]feeds.SignallingFacts{},
    telecom:    map[string]feeds.TelecomFacts{},
    cleaning:   map[string]feeds.CleaningFacts{},
    branding:   map[string]feeds.BrandingFacts{},
    yard:       map[string]feeds.YardFacts{},
  }
  for i, id := range []string{"TS-01", "TS-02", "TS-03"} {
    f.rolling[id] = feeds.RollingStockFacts{OdometerKM: int64(40000 + i*1000), FitnessExpiry: expiry}
    f.signalling[id] = feeds.SignallingFacts{FitnessExpiry: expiry}
    f.telecom[id] = feeds.TelecomFacts{FitnessExpiry: expiry}
    f.cleaning[id] = feeds.CleaningFacts{Status: types.CleaningDone}
    f.branding[id] = feeds.BrandingFacts{}
    f.yard[id] = feeds.YardFacts{ShuntingMoves: i, TurnoutMinutes: 10 * i}
  }
  return f
}

func newTestAggregator(set feeds.Set, staleCache cache.StalenessCache) *feedAggregator {
  return &feedAggregator{
    log:       testLogger(),
    feeds:     set,
    cache:     staleCache,
    timeout:   2 * time.Second,
    retries:   1,
    threshold: 0.5,
    now:       func() time.Time { return time.Date(2026, 9, 1, 21, 0, 0, 0, time.UTC) },
  }
}

func TestCollectAssemblesSnapshot(t *testing.T) {
  f := threeTrainsetFeeds()
  agg := newTestAggregator(f.set(), cache.NewMemoryCache())

  snapshot, err := agg.Collect(context.Background(), "depot-a")
  if err != nil {
    t.Fatalf("Collect: %v", err)
  }
  if snapshot.DepotID != "depot-a" {
    t.Fatalf("depot id = %q", snapshot.DepotID)
  }
  if len(snapshot.Trainsets) != 3 {
    t.Fatalf("expected 3 trainsets, got %d", len(snapshot.Trainsets))
  }
  for i, want := range []string{"TS-01", "TS-02", "TS-03"} {
    fact := snapshot.Trainsets[i]
    if fact.ID != want {
      t.Fatalf("trainset %d = %q, want %q (order must be deterministic)", i, fact.ID, want)
    }
    if len(fact.StaleDomains) != 0 {
      t.Fatalf("%s: unexpected stale annotations %v", fact.ID, fact.StaleDomains)
    }
    if len(fact.FitnessExpiry) != 3 {
      t.Fatalf("%s: expected 3 fitness certificates, got %d", fact.ID, len(fact.FitnessExpiry))
    }
    if fact.Cleaning != types.CleaningDone {
      t.Fatalf("%s: cleaning = %q", fact.ID, fact.Cleaning)
    }
  }
  if snapshot.Trainsets[2].ShuntingMoves != 2 {
    t.Fatalf("yard facts not merged: %+v", snapshot.Trainsets[2])
  }
}

func TestCollectFallsBackToCacheWhenDomainFails(t *testing.T) {
  f := threeTrainsetFeeds()
  staleCache := cache.NewMemoryCache()
  agg := newTestAggregator(f.set(), staleCache)

  // First run populates the cache with live cleaning data.
  if _, err := agg.Collect(context.Background(), "depot-a"); err != nil {
    t.Fatalf("priming Collect: %v", err)
  }

  f.cleaningErr = errors.New("cleaning system offline")
  snapshot, err := agg.Collect(context.Background(), "depot-a")
  if err != nil {
    t.Fatalf("Collect with cached cleaning: %v", err)
  }
  for _, fact := range snapshot.Trainsets {
    if fact.Cleaning != types.CleaningDone {
      t.Fatalf("%s: cached cleaning status lost, got %q", fact.ID, fact.Cleaning)
    }
    found := false
    for _, d := range fact.StaleDomains {
      if d == "stale:cleaning" {
        found = true
      }
    }
    if !found {
      t.Fatalf("%s: missing stale:cleaning annotation, got %v", fact.ID, fact.StaleDomains)
    }
  }
}

func TestCollectFatalWithoutRoster(t *testing.T) {
  f := threeTrainsetFeeds()
  f.rollingErr = errors.New("maximo down")
  agg := newTestAggregator(f.set(), cache.NewMemoryCache())

  _, err := agg.Collect(context.Background(), "depot-a")
  var fatal *apierr.FatalIncompleteDataError
  if !errors.As(err, &fatal) {
    t.Fatalf("expected FatalIncompleteDataError, got %v", err)
  }
  if fatal.Domain != feeds.DomainRollingStock {
    t.Fatalf("fatal domain = %q", fatal.Domain)
  }
}

func TestCollectFatalWhenDomainMissingBeyondThreshold(t *testing.T) {
  f := threeTrainsetFeeds()
  f.signallingErr = errors.New("signalling gateway timeout")
  agg := newTestAggregator(f.set(), cache.NewMemoryCache())

  _, err := agg.Collect(context.Background(), "depot-a")
  var fatal *apierr.FatalIncompleteDataError
  if !errors.As(err, &fatal) {
    t.Fatalf("expected FatalIncompleteDataError, got %v", err)
  }
  if fatal.Domain != feeds.DomainSignalling {
    t.Fatalf("fatal domain = %q", fatal.Domain)
  }
  if fatal.Missing != 3 || fatal.FleetSize != 3 {
    t.Fatalf("fatal counts = %d/%d", fatal.Missing, fatal.FleetSize)
  }
}

func TestCollectToleratesPartialDomainWithinThreshold(t *testing.T) {
  f := threeTrainsetFeeds()
  delete(f.signalling, "TS-02")
  agg := newTestAggregator(f.set(), cache.NewMemoryCache())

  snapshot, err := agg.Collect(context.Background(), "depot-a")
  if err != nil {
    t.Fatalf("Collect: %v", err)
  }
  fact := snapshot.Trainsets[1]
  if fact.ID != "TS-02" {
    t.Fatalf("unexpected order: %q", fact.ID)
  }
  if _, ok := fact.FitnessExpiry[types.FitnessDomainSignalling]; ok {
    t.Fatal("TS-02 should have no signalling certificate entry")
  }
  if _, ok := snapshot.Trainsets[0].FitnessExpiry[types.FitnessDomainSignalling]; !ok {
    t.Fatal("TS-01 lost its signalling certificate")
  }
}

func TestCollectRetriesTransientFailure(t *testing.T) {
  f := threeTrainsetFeeds()
  f.cleaningFailures = 1
  agg := newTestAggregator(f.set(), cache.NewMemoryCache())

  snapshot, err := agg.Collect(context.Background(), "depot-a")
  if err != nil {
    t.Fatalf("Collect: %v", err)
  }
  if f.cleaningCalls != 2 {
    t.Fatalf("expected one retry, saw %d calls", f.cleaningCalls)
  }
  for _, fact := range snapshot.Trainsets {
    if len(fact.StaleDomains) != 0 {
      t.Fatalf("retried fetch succeeded live but %s tagged stale: %v", fact.ID, fact.StaleDomains)
    }
  }
}
