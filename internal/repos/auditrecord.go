package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/metroflow/induction-backend/internal/logger"
  "github.com/metroflow/induction-backend/internal/types"
)

// AuditRecordRepo is append-only: locked plans are written once and never
// updated or deleted.
type AuditRecordRepo interface {
  Create(ctx context.Context, tx *gorm.DB, record *types.AuditRecord) (*types.AuditRecord, error)
  GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.AuditRecord, error)
  GetByPlanIDs(ctx context.Context, tx *gorm.DB, planIDs []uuid.UUID) ([]*types.AuditRecord, error)
  ListByDepot(ctx context.Context, tx *gorm.DB, depotID string) ([]*types.AuditRecord, error)
}

type auditRecordRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewAuditRecordRepo(db *gorm.DB, baseLog *logger.Logger) AuditRecordRepo {
  repoLog := baseLog.With("repo", "AuditRecordRepo")
  return &auditRecordRepo{db: db, log: repoLog}
}

func (arr *auditRecordRepo) Create(ctx context.Context, tx *gorm.DB, record *types.AuditRecord) (*types.AuditRecord, error) {
  transaction := tx
  if transaction == nil {
    transaction = arr.db
  }

  if record.ID == uuid.Nil {
    record.ID = uuid.New()
  }

  if err := transaction.WithContext(ctx).Create(record).Error; err != nil {
    return nil, err
  }

  return record, nil
}

func (arr *auditRecordRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.AuditRecord, error) {
  transaction := tx
  if transaction == nil {
    transaction = arr.db
  }

  var result types.AuditRecord

  if err := transaction.WithContext(ctx).
    Where("id = ?", id).
    First(&result).Error; err != nil {
    return nil, err
  }

  return &result, nil
}

func (arr *auditRecordRepo) GetByPlanIDs(ctx context.Context, tx *gorm.DB, planIDs []uuid.UUID) ([]*types.AuditRecord, error) {
  transaction := tx
  if transaction == nil {
    transaction = arr.db
  }

  var results []*types.AuditRecord

  if len(planIDs) == 0 {
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("plan_id IN ?", planIDs).
    Find(&results).Error; err != nil {
    return nil, err
  }

  return results, nil
}

func (arr *auditRecordRepo) ListByDepot(ctx context.Context, tx *gorm.DB, depotID string) ([]*types.AuditRecord, error) {
  transaction := tx
  if transaction == nil {
    transaction = arr.db
  }

  var results []*types.AuditRecord

  if err := transaction.WithContext(ctx).
    Where("depot_id = ?", depotID).
    Order("locked_at DESC").
    Find(&results).Error; err != nil {
    return nil, err
  }

  return results, nil
}
