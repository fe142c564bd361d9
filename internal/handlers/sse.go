package handlers

import (
  "net/http"
  "github.com/gin-gonic/gin"
  "github.com/metroflow/induction-backend/internal/logger"
  "github.com/metroflow/induction-backend/internal/sse"
)

// SSEHandler streams plan lifecycle events to depot dashboards.
type SSEHandler struct {
  log *logger.Logger
  hub *sse.SSEHub
}

func NewSSEHandler(log *logger.Logger, hub *sse.SSEHub) *SSEHandler {
  return &SSEHandler{
    log: log.With("handler", "SSEHandler"),
    hub: hub,
  }
}

// SSEStream opens the event stream. The depot query parameter selects the
// depot channel to follow.
func (h *SSEHandler) SSEStream(c *gin.Context) {
  depotID := c.Query("depot")
  if depotID == "" {
    RespondError(c, http.StatusBadRequest, "missing_depot", nil)
    return
  }

  client := h.hub.NewSSEClient()
  h.hub.AddChannel(client, sse.DepotChannel(depotID))
  defer h.hub.CloseClient(client)

  h.hub.ServeHTTP(c.Writer, c.Request, client)
}
