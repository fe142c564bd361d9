package services

import (
  "context"
  "encoding/json"
  "errors"
  "fmt"
  "sync"
  "time"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/metroflow/induction-backend/internal/apierr"
  "github.com/metroflow/induction-backend/internal/engine"
  "github.com/metroflow/induction-backend/internal/logger"
  "github.com/metroflow/induction-backend/internal/repos"
  "github.com/metroflow/induction-backend/internal/sse"
  "github.com/metroflow/induction-backend/internal/types"
)

// PlanService owns the plan lifecycle: at most one Draft per depot,
// side-effect-free simulation against a draft's snapshot, and the
// single-flight lock that turns a Draft into an append-only audit record.
type PlanService interface {
  CreateDraft(ctx context.Context, depotID string, capacity int, weights map[string]float64, profileName string) (*types.Plan, error)
  Get(ctx context.Context, planID uuid.UUID) (*types.Plan, error)
  Simulate(ctx context.Context, planID uuid.UUID, altWeights map[string]float64, altCapacity *int) (*types.Plan, *types.PlanDiff, error)
  Lock(ctx context.Context, planID uuid.UUID, approverID string, justifications map[string]string) (uuid.UUID, error)
  AuditLog(ctx context.Context, depotID string) ([]*types.AuditRecord, error)
  AuditRecord(ctx context.Context, recordID uuid.UUID) (*types.AuditRecord, error)
}

type planService struct {
  db         *gorm.DB
  log        *logger.Logger
  aggregator FeedAggregator
  auditRepo  repos.AuditRecordRepo
  sseHub     *sse.SSEHub
  profiles   map[string]map[string]float64
  now        func() time.Time

  mu           sync.RWMutex
  draftByDepot map[string]*types.Plan
  planByID     map[uuid.UUID]*types.Plan

  lockMu     sync.Mutex
  lockActive map[string]bool
}

func NewPlanService(
  db *gorm.DB,
  baseLog *logger.Logger,
  aggregator FeedAggregator,
  auditRepo repos.AuditRecordRepo,
  sseHub *sse.SSEHub,
  profiles map[string]map[string]float64,
) PlanService {
  return &planService{
    db:           db,
    log:          baseLog.With("service", "PlanService"),
    aggregator:   aggregator,
    auditRepo:    auditRepo,
    sseHub:       sseHub,
    profiles:     profiles,
    now:          time.Now,
    draftByDepot: make(map[string]*types.Plan),
    planByID:     make(map[uuid.UUID]*types.Plan),
    lockActive:   make(map[string]bool),
  }
}

// resolveWeights picks explicit weights over a named profile over the
// default. Validation happens inside the engine; resolution only decides
// which map to hand it.
func (s *planService) resolveWeights(weights map[string]float64, profileName string) (map[string]float64, error) {
  if weights != nil {
    return weights, nil
  }
  if profileName != "" {
    profile, ok := s.profiles[profileName]
    if !ok {
      return nil, &apierr.ValidationError{Field: "profileName", Reason: fmt.Sprintf("unknown weight profile %q", profileName)}
    }
    return profile, nil
  }
  return engine.DefaultWeights(), nil
}

func (s *planService) CreateDraft(ctx context.Context, depotID string, capacity int, weights map[string]float64, profileName string) (*types.Plan, error) {
  if depotID == "" {
    return nil, &apierr.ValidationError{Field: "depotId", Reason: "must not be empty"}
  }
  if capacity < 0 {
    return nil, &apierr.ValidationError{Field: "capacity", Reason: "must be non-negative"}
  }
  resolved, err := s.resolveWeights(weights, profileName)
  if err != nil {
    return nil, err
  }
  if err := engine.ValidateWeights(resolved); err != nil {
    return nil, err
  }

  snapshot, err := s.aggregator.Collect(ctx, depotID)
  if err != nil {
    return nil, err
  }

  now := s.now()
  plan, err := engine.BuildPlan(snapshot, resolved, capacity, now)
  if err != nil {
    return nil, err
  }
  plan.ID = uuid.New()
  plan.CreatedAt = now

  s.mu.Lock()
  if prev, ok := s.draftByDepot[depotID]; ok {
    // Re-running replaces the depot's draft; the old draft id stops
    // resolving so stale references fail loudly.
    delete(s.planByID, prev.ID)
  }
  s.draftByDepot[depotID] = plan
  s.planByID[plan.ID] = plan
  s.mu.Unlock()

  s.log.Info("Draft plan created", "plan_id", plan.ID, "depot_id", depotID, "capacity", capacity, "fleet_size", len(plan.Decisions))
  s.sseHub.Broadcast(sse.SSEMessage{
    Channel: sse.DepotChannel(depotID),
    Event:   sse.SSEEventDraftCreated,
    Data:    map[string]any{"plan_id": plan.ID, "depot_id": depotID},
  })
  return plan, nil
}

func (s *planService) Get(ctx context.Context, planID uuid.UUID) (*types.Plan, error) {
  s.mu.RLock()
  plan, ok := s.planByID[planID]
  s.mu.RUnlock()
  if ok {
    return plan, nil
  }

  // Fall back to the audit log for plans locked before a restart.
  records, err := s.auditRepo.GetByPlanIDs(ctx, nil, []uuid.UUID{planID})
  if err != nil {
    return nil, err
  }
  if len(records) == 0 {
    return nil, apierr.ErrPlanNotFound
  }
  return planFromRecord(records[0])
}

func (s *planService) Simulate(ctx context.Context, planID uuid.UUID, altWeights map[string]float64, altCapacity *int) (*types.Plan, *types.PlanDiff, error) {
  baseline, err := s.Get(ctx, planID)
  if err != nil {
    return nil, nil, err
  }
  if baseline.Snapshot == nil {
    return nil, nil, &apierr.ValidationError{Field: "planId", Reason: "plan snapshot no longer available for simulation"}
  }
  if altCapacity != nil && *altCapacity < 0 {
    return nil, nil, &apierr.ValidationError{Field: "capacity", Reason: "must be non-negative"}
  }
  if altWeights != nil {
    if err := engine.ValidateWeights(altWeights); err != nil {
      return nil, nil, err
    }
  }

  candidate, diff, err := engine.Simulate(baseline, altWeights, altCapacity, s.now())
  if err != nil {
    return nil, nil, err
  }
  candidate.ID = uuid.New()
  candidate.CreatedAt = s.now()
  // Candidates are never stored: a simulation is a discarded branch.
  return candidate, diff, nil
}

func (s *planService) Lock(ctx context.Context, planID uuid.UUID, approverID string, justifications map[string]string) (uuid.UUID, error) {
  if approverID == "" {
    return uuid.Nil, &apierr.ValidationError{Field: "approverId", Reason: "must not be empty"}
  }

  s.mu.RLock()
  plan, ok := s.planByID[planID]
  s.mu.RUnlock()
  if !ok {
    return uuid.Nil, apierr.ErrPlanNotFound
  }
  if plan.Status != types.PlanDraft {
    return uuid.Nil, &apierr.ConflictError{DepotID: plan.DepotID}
  }

  var missing []string
  for _, dec := range plan.Decisions {
    if dec.ManualOverride && justifications[dec.TrainsetID] == "" {
      missing = append(missing, dec.TrainsetID)
    }
  }
  if len(missing) > 0 {
    return uuid.Nil, &apierr.MissingOverrideJustificationError{TrainsetIDs: missing}
  }

  // At most one lock in flight per depot; a concurrent attempt is
  // rejected immediately rather than queued.
  s.lockMu.Lock()
  if s.lockActive[plan.DepotID] {
    s.lockMu.Unlock()
    return uuid.Nil, &apierr.ConflictError{DepotID: plan.DepotID}
  }
  s.lockActive[plan.DepotID] = true
  s.lockMu.Unlock()
  defer func() {
    s.lockMu.Lock()
    delete(s.lockActive, plan.DepotID)
    s.lockMu.Unlock()
  }()

  record, err := buildAuditRecord(plan, approverID, justifications, s.now())
  if err != nil {
    return uuid.Nil, err
  }
  if _, err := s.auditRepo.Create(ctx, nil, record); err != nil {
    s.log.Error("Audit record persist failed", "plan_id", planID, "error", err)
    return uuid.Nil, err
  }

  locked := *plan
  locked.Status = types.PlanLocked
  locked.ApproverID = approverID
  lockedAt := record.LockedAt
  locked.LockedAt = &lockedAt

  s.mu.Lock()
  s.planByID[planID] = &locked
  if s.draftByDepot[plan.DepotID] != nil && s.draftByDepot[plan.DepotID].ID == planID {
    delete(s.draftByDepot, plan.DepotID)
  }
  s.mu.Unlock()

  s.log.Info("Plan locked", "plan_id", planID, "depot_id", plan.DepotID, "approver_id", approverID, "record_id", record.ID)
  s.sseHub.Broadcast(sse.SSEMessage{
    Channel: sse.DepotChannel(plan.DepotID),
    Event:   sse.SSEEventPlanLocked,
    Data:    map[string]any{"plan_id": planID, "record_id": record.ID, "approver_id": approverID},
  })
  return record.ID, nil
}

// AuditLog lists the locked plans for one depot, newest first, for report
// rendering.
func (s *planService) AuditLog(ctx context.Context, depotID string) ([]*types.AuditRecord, error) {
  if depotID == "" {
    return nil, &apierr.ValidationError{Field: "depotId", Reason: "must not be empty"}
  }
  return s.auditRepo.ListByDepot(ctx, nil, depotID)
}

func (s *planService) AuditRecord(ctx context.Context, recordID uuid.UUID) (*types.AuditRecord, error) {
  record, err := s.auditRepo.GetByID(ctx, nil, recordID)
  if err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      return nil, apierr.ErrPlanNotFound
    }
    return nil, err
  }
  return record, nil
}

func buildAuditRecord(plan *types.Plan, approverID string, justifications map[string]string, lockedAt time.Time) (*types.AuditRecord, error) {
  weightsJSON, err := json.Marshal(plan.Weights)
  if err != nil {
    return nil, fmt.Errorf("marshal weights: %w", err)
  }
  decisionsJSON, err := json.Marshal(plan.Decisions)
  if err != nil {
    return nil, fmt.Errorf("marshal decisions: %w", err)
  }
  justJSON, err := json.Marshal(justifications)
  if err != nil {
    return nil, fmt.Errorf("marshal justifications: %w", err)
  }
  return &types.AuditRecord{
    ID:             uuid.New(),
    PlanID:         plan.ID,
    DepotID:        plan.DepotID,
    ApproverID:     approverID,
    Capacity:       plan.Capacity,
    LockedAt:       lockedAt,
    Weights:        weightsJSON,
    Decisions:      decisionsJSON,
    Justifications: justJSON,
  }, nil
}

// planFromRecord reconstructs a locked plan from its audit record. The
// fact snapshot is not persisted, so reconstructed plans can be read and
// exported but not simulated against.
func planFromRecord(record *types.AuditRecord) (*types.Plan, error) {
  var weights map[string]float64
  if err := json.Unmarshal(record.Weights, &weights); err != nil {
    return nil, fmt.Errorf("unmarshal weights: %w", err)
  }
  var decisions []types.Decision
  if err := json.Unmarshal(record.Decisions, &decisions); err != nil {
    return nil, fmt.Errorf("unmarshal decisions: %w", err)
  }
  lockedAt := record.LockedAt
  return &types.Plan{
    ID:         record.PlanID,
    DepotID:    record.DepotID,
    Status:     types.PlanLocked,
    Capacity:   record.Capacity,
    Weights:    weights,
    Decisions:  decisions,
    CreatedAt:  record.CreatedAt,
    ApproverID: record.ApproverID,
    LockedAt:   &lockedAt,
  }, nil
}
