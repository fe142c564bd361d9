package handlers

import (
  "errors"
  "net/http"
  "github.com/gin-gonic/gin"
  "github.com/metroflow/induction-backend/internal/apierr"
)

type APIError struct {
  Message string `json:"message"`
  Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
  Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
  msg := "unknown error"
  if err != nil {
    msg = err.Error()
  }
  c.JSON(status, ErrorEnvelope{
    Error: APIError{
      Message: msg,
      Code:    code,
    },
  })
}

func RespondOK(c *gin.Context, payload any) {
  c.JSON(http.StatusOK, payload)
}

// RespondAppError maps the induction error taxonomy onto HTTP statuses.
// Everything unrecognized is a 500.
func RespondAppError(c *gin.Context, err error) {
  var (
    validationErr *apierr.ValidationError
    fatalErr      *apierr.FatalIncompleteDataError
    conflictErr   *apierr.ConflictError
    missingErr    *apierr.MissingOverrideJustificationError
    apiErr        *apierr.Error
  )
  switch {
  case errors.As(err, &validationErr):
    RespondError(c, http.StatusBadRequest, "validation_error", err)
  case errors.As(err, &fatalErr):
    RespondError(c, http.StatusServiceUnavailable, "fatal_incomplete_data", err)
  case errors.As(err, &conflictErr):
    RespondError(c, http.StatusConflict, "conflict", err)
  case errors.As(err, &missingErr):
    RespondError(c, http.StatusUnprocessableEntity, "missing_override_justification", err)
  case errors.Is(err, apierr.ErrPlanNotFound):
    RespondError(c, http.StatusNotFound, "plan_not_found", err)
  case errors.As(err, &apiErr):
    RespondError(c, apiErr.Status, apiErr.Code, err)
  default:
    RespondError(c, http.StatusInternalServerError, "internal_error", err)
  }
}
