package types

import (
  "time"
  "github.com/google/uuid"
  "gorm.io/datatypes"
)

// AuditRecord is the only persisted state the induction core owns: one
// append-only row per locked plan. Rows are never updated or deleted.
type AuditRecord struct {
  ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
  PlanID         uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"plan_id"`
  DepotID        string         `gorm:"not null;index" json:"depot_id"`
  ApproverID     string         `gorm:"not null" json:"approver_id"`
  Capacity       int            `gorm:"not null" json:"capacity"`
  LockedAt       time.Time      `gorm:"not null" json:"locked_at"`
  Weights        datatypes.JSON `gorm:"not null" json:"weights"`
  Decisions      datatypes.JSON `gorm:"not null" json:"decisions"`
  Justifications datatypes.JSON `json:"justifications,omitempty"`
  CreatedAt      time.Time      `gorm:"not null" json:"created_at"`
}

func (AuditRecord) TableName() string { return "audit_record" }
