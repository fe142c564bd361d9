package handlers

import (
  "net/http"
  "github.com/gin-gonic/gin"
  "github.com/google/uuid"
  "github.com/metroflow/induction-backend/internal/logger"
  "github.com/metroflow/induction-backend/internal/services"
)

type AuditHandler struct {
  log         *logger.Logger
  planService services.PlanService
}

func NewAuditHandler(log *logger.Logger, planService services.PlanService) *AuditHandler {
  return &AuditHandler{
    log:         log.With("handler", "AuditHandler"),
    planService: planService,
  }
}

// List returns a depot's locked plans, newest first.
func (h *AuditHandler) List(c *gin.Context) {
  depotID := c.Query("depot")
  records, err := h.planService.AuditLog(c.Request.Context(), depotID)
  if err != nil {
    RespondAppError(c, err)
    return
  }
  RespondOK(c, gin.H{"records": records})
}

func (h *AuditHandler) Get(c *gin.Context) {
  recordID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_record_id", err)
    return
  }
  record, err := h.planService.AuditRecord(c.Request.Context(), recordID)
  if err != nil {
    RespondAppError(c, err)
    return
  }
  RespondOK(c, gin.H{"record": record})
}
