package handlers

import (
  "net/http"
  "github.com/gin-gonic/gin"
  "github.com/google/uuid"
  "github.com/metroflow/induction-backend/internal/logger"
  "github.com/metroflow/induction-backend/internal/services"
)

type PlanHandler struct {
  log         *logger.Logger
  planService services.PlanService
}

func NewPlanHandler(log *logger.Logger, planService services.PlanService) *PlanHandler {
  return &PlanHandler{
    log:         log.With("handler", "PlanHandler"),
    planService: planService,
  }
}

type createDraftRequest struct {
  DepotID       string             `json:"depotId" binding:"required"`
  Capacity      int                `json:"capacity"`
  WeightProfile map[string]float64 `json:"weightProfile,omitempty"`
  ProfileName   string             `json:"profileName,omitempty"`
}

func (h *PlanHandler) CreateDraft(c *gin.Context) {
  var req createDraftRequest
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_request", err)
    return
  }
  plan, err := h.planService.CreateDraft(c.Request.Context(), req.DepotID, req.Capacity, req.WeightProfile, req.ProfileName)
  if err != nil {
    h.log.Warn("CreateDraft failed", "depot_id", req.DepotID, "error", err)
    RespondAppError(c, err)
    return
  }
  RespondOK(c, gin.H{"plan": plan})
}

type simulateRequest struct {
  WeightProfile map[string]float64 `json:"weightProfile,omitempty"`
  Capacity      *int               `json:"capacity,omitempty"`
}

func (h *PlanHandler) Simulate(c *gin.Context) {
  planID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_plan_id", err)
    return
  }
  var req simulateRequest
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_request", err)
    return
  }
  candidate, diff, err := h.planService.Simulate(c.Request.Context(), planID, req.WeightProfile, req.Capacity)
  if err != nil {
    h.log.Warn("Simulate failed", "plan_id", planID, "error", err)
    RespondAppError(c, err)
    return
  }
  RespondOK(c, gin.H{"candidate": candidate, "diff": diff})
}

type lockRequest struct {
  ApproverID             string            `json:"approverId" binding:"required"`
  OverrideJustifications map[string]string `json:"overrideJustifications,omitempty"`
}

func (h *PlanHandler) Lock(c *gin.Context) {
  planID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_plan_id", err)
    return
  }
  var req lockRequest
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_request", err)
    return
  }
  recordID, err := h.planService.Lock(c.Request.Context(), planID, req.ApproverID, req.OverrideJustifications)
  if err != nil {
    h.log.Warn("Lock failed", "plan_id", planID, "approver_id", req.ApproverID, "error", err)
    RespondAppError(c, err)
    return
  }
  RespondOK(c, gin.H{"recordId": recordID})
}

func (h *PlanHandler) Get(c *gin.Context) {
  planID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_plan_id", err)
    return
  }
  plan, err := h.planService.Get(c.Request.Context(), planID)
  if err != nil {
    RespondAppError(c, err)
    return
  }
  RespondOK(c, gin.H{"plan": plan})
}
