package services

import (
  "context"
  "encoding/json"
  "fmt"
  "sort"
  "time"

  "golang.org/x/sync/errgroup"

  "github.com/metroflow/induction-backend/internal/apierr"
  "github.com/metroflow/induction-backend/internal/cache"
  "github.com/metroflow/induction-backend/internal/feeds"
  "github.com/metroflow/induction-backend/internal/logger"
  "github.com/metroflow/induction-backend/internal/types"
  "github.com/metroflow/induction-backend/internal/utils"
)

// FeedAggregator assembles one fleet-wide fact snapshot from the six
// domain collaborators. Domain fetches run in parallel with independent
// timeouts; a failed domain degrades to the staleness cache and tags the
// affected trainsets, and only a domain missing beyond the threshold
// aborts the run.
type FeedAggregator interface {
  Collect(ctx context.Context, depotID string) (*types.FleetSnapshot, error)
}

type feedAggregator struct {
  log       *logger.Logger
  feeds     feeds.Set
  cache     cache.StalenessCache
  timeout   time.Duration
  retries   int
  threshold float64
  now       func() time.Time
}

func NewFeedAggregator(baseLog *logger.Logger, feedSet feeds.Set, staleCache cache.StalenessCache) FeedAggregator {
  log := baseLog.With("service", "FeedAggregator")
  timeoutMS := utils.GetEnvAsInt("FEED_TIMEOUT_MS", 5000, baseLog)
  retries := utils.GetEnvAsInt("FEED_RETRIES", 1, baseLog)
  threshold := utils.GetEnvAsFloat("FEED_MISSING_THRESHOLD", 0.5, baseLog)
  return &feedAggregator{
    log:       log,
    feeds:     feedSet,
    cache:     staleCache,
    timeout:   time.Duration(timeoutMS) * time.Millisecond,
    retries:   retries,
    threshold: threshold,
    now:       time.Now,
  }
}

// domainResult carries one domain's outcome: live or cached data, or
// nothing at all.
type domainResult[T any] struct {
  data  map[string]T
  stale bool
}

// collectDomain fetches one domain with bounded retries, refreshing the
// staleness cache on success and falling back to it on failure. A domain
// with neither live nor cached data returns an empty result; the caller
// judges whether that is fatal.
func collectDomain[T any](ctx context.Context, agg *feedAggregator, depotID, domain string, fetch func(context.Context) (map[string]T, error)) domainResult[T] {
  var lastErr error
  for attempt := 0; attempt <= agg.retries; attempt++ {
    attemptCtx, cancel := context.WithTimeout(ctx, agg.timeout)
    data, err := fetch(attemptCtx)
    cancel()
    if err == nil {
      if raw, merr := json.Marshal(data); merr == nil {
        if cerr := agg.cache.Put(ctx, depotID, domain, raw, agg.now()); cerr != nil {
          agg.log.Warn("Staleness cache update failed", "domain", domain, "error", cerr)
        }
      }
      return domainResult[T]{data: data}
    }
    lastErr = err
  }

  unavailable := &apierr.DataUnavailableError{Domain: domain, Err: lastErr}
  agg.log.Warn("Feed unavailable, falling back to staleness cache", "domain", domain, "depot_id", depotID, "error", unavailable)

  raw, fetchedAt, ok, err := agg.cache.Get(ctx, depotID, domain)
  if err != nil {
    agg.log.Warn("Staleness cache read failed", "domain", domain, "error", err)
    return domainResult[T]{}
  }
  if !ok {
    return domainResult[T]{}
  }
  var data map[string]T
  if err := json.Unmarshal(raw, &data); err != nil {
    agg.log.Warn("Staleness cache entry unreadable", "domain", domain, "error", err)
    return domainResult[T]{}
  }
  agg.log.Info("Using cached feed data", "domain", domain, "depot_id", depotID, "fetched_at", fetchedAt)
  return domainResult[T]{data: data, stale: true}
}

func (agg *feedAggregator) Collect(ctx context.Context, depotID string) (*types.FleetSnapshot, error) {
  var (
    rolling    domainResult[feeds.RollingStockFacts]
    signalling domainResult[feeds.SignallingFacts]
    telecom    domainResult[feeds.TelecomFacts]
    cleaning   domainResult[feeds.CleaningFacts]
    branding   domainResult[feeds.BrandingFacts]
    yard       domainResult[feeds.YardFacts]
  )

  g, gctx := errgroup.WithContext(ctx)
  g.Go(func() error {
    rolling = collectDomain(gctx, agg, depotID, feeds.DomainRollingStock, func(c context.Context) (map[string]feeds.RollingStockFacts, error) {
      return agg.feeds.RollingStock.FetchRollingStock(c, depotID)
    })
    return nil
  })
  g.Go(func() error {
    signalling = collectDomain(gctx, agg, depotID, feeds.DomainSignalling, func(c context.Context) (map[string]feeds.SignallingFacts, error) {
      return agg.feeds.Signalling.FetchSignalling(c, depotID)
    })
    return nil
  })
  g.Go(func() error {
    telecom = collectDomain(gctx, agg, depotID, feeds.DomainTelecom, func(c context.Context) (map[string]feeds.TelecomFacts, error) {
      return agg.feeds.Telecom.FetchTelecom(c, depotID)
    })
    return nil
  })
  g.Go(func() error {
    cleaning = collectDomain(gctx, agg, depotID, feeds.DomainCleaning, func(c context.Context) (map[string]feeds.CleaningFacts, error) {
      return agg.feeds.Cleaning.FetchCleaning(c, depotID)
    })
    return nil
  })
  g.Go(func() error {
    branding = collectDomain(gctx, agg, depotID, feeds.DomainBranding, func(c context.Context) (map[string]feeds.BrandingFacts, error) {
      return agg.feeds.Branding.FetchBranding(c, depotID)
    })
    return nil
  })
  g.Go(func() error {
    yard = collectDomain(gctx, agg, depotID, feeds.DomainYard, func(c context.Context) (map[string]feeds.YardFacts, error) {
      return agg.feeds.Yard.FetchYard(c, depotID)
    })
    return nil
  })
  // Goroutines report through their result slots, not errors.
  _ = g.Wait()

  // The rolling-stock domain is the authoritative fleet roster; without
  // it there is no fleet to reason about.
  if len(rolling.data) == 0 {
    return nil, &apierr.FatalIncompleteDataError{Domain: feeds.DomainRollingStock, Missing: 0, FleetSize: 0}
  }

  roster := make([]string, 0, len(rolling.data))
  for id := range rolling.data {
    roster = append(roster, id)
  }
  fleetSize := len(roster)

  if err := agg.checkCoverage(feeds.DomainSignalling, roster, signalling.covered(roster)); err != nil {
    return nil, err
  }
  if err := agg.checkCoverage(feeds.DomainTelecom, roster, telecom.covered(roster)); err != nil {
    return nil, err
  }
  if err := agg.checkCoverage(feeds.DomainCleaning, roster, cleaning.covered(roster)); err != nil {
    return nil, err
  }
  if err := agg.checkCoverage(feeds.DomainBranding, roster, branding.covered(roster)); err != nil {
    return nil, err
  }
  if err := agg.checkCoverage(feeds.DomainYard, roster, yard.covered(roster)); err != nil {
    return nil, err
  }

  var staleDomains []string
  appendStale := func(domain string, stale bool) {
    if stale {
      staleDomains = append(staleDomains, "stale:"+domain)
    }
  }
  appendStale(feeds.DomainRollingStock, rolling.stale)
  appendStale(feeds.DomainSignalling, signalling.stale)
  appendStale(feeds.DomainTelecom, telecom.stale)
  appendStale(feeds.DomainCleaning, cleaning.stale)
  appendStale(feeds.DomainBranding, branding.stale)
  appendStale(feeds.DomainYard, yard.stale)

  snapshot := &types.FleetSnapshot{
    DepotID: depotID,
    TakenAt: agg.now(),
  }
  for _, id := range sortedIDs(roster) {
    rs := rolling.data[id]
    fact := &types.TrainsetFact{
      ID:         id,
      OdometerKM: rs.OdometerKM,
      FitnessExpiry: map[string]time.Time{
        types.FitnessDomainRollingStock: rs.FitnessExpiry,
      },
      JobCards: rs.JobCards,
      Cleaning: types.CleaningPending,
    }
    if sig, ok := signalling.data[id]; ok {
      fact.FitnessExpiry[types.FitnessDomainSignalling] = sig.FitnessExpiry
    }
    if tel, ok := telecom.data[id]; ok {
      fact.FitnessExpiry[types.FitnessDomainTelecom] = tel.FitnessExpiry
    }
    if cl, ok := cleaning.data[id]; ok {
      fact.Cleaning = cl.Status
    }
    if br, ok := branding.data[id]; ok {
      fact.Branding = br.Assignments
    }
    if yd, ok := yard.data[id]; ok {
      fact.ShuntingMoves = yd.ShuntingMoves
      fact.TurnoutMinutes = yd.TurnoutMinutes
    }
    if len(staleDomains) > 0 {
      fact.StaleDomains = append([]string{}, staleDomains...)
    }
    snapshot.Trainsets = append(snapshot.Trainsets, fact)
  }

  if fleetSize != len(snapshot.Trainsets) {
    return nil, fmt.Errorf("snapshot assembly dropped trainsets: roster %d, snapshot %d", fleetSize, len(snapshot.Trainsets))
  }
  return snapshot, nil
}

// covered counts how many roster trainsets have data in this domain.
func (r domainResult[T]) covered(roster []string) int {
  n := 0
  for _, id := range roster {
    if _, ok := r.data[id]; ok {
      n++
    }
  }
  return n
}

// sortedIDs keeps snapshot assembly order deterministic.
func sortedIDs(ids []string) []string {
  out := append([]string{}, ids...)
  sort.Strings(out)
  return out
}

// checkCoverage fails the run when a domain is systematically missing: a
// partial input of that size is judged unsafe to reason about silently.
func (agg *feedAggregator) checkCoverage(domain string, roster []string, covered int) error {
  fleetSize := len(roster)
  missing := fleetSize - covered
  if float64(missing) > agg.threshold*float64(fleetSize) {
    agg.log.Error("Domain coverage below threshold", "domain", domain, "missing", missing, "fleet_size", fleetSize)
    return &apierr.FatalIncompleteDataError{Domain: domain, Missing: missing, FleetSize: fleetSize}
  }
  return nil
}
