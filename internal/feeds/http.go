package feeds

import (
  "context"
  "encoding/json"
  "fmt"
  "io"
  "net/http"
  "strings"
  "time"

  "github.com/metroflow/induction-backend/internal/apierr"
  "github.com/metroflow/induction-backend/internal/logger"
  "github.com/metroflow/induction-backend/internal/utils"
)

// HTTPClient talks to the per-domain collaborator services over their REST
// surface. One base URL per collaborator, resolved from env; the shared
// shape is GET {base}/api/{domain}/depot/{depotID} returning a JSON object
// keyed by trainset id.
type HTTPClient struct {
  log     *logger.Logger
  client  *http.Client
  baseURL map[string]string
}

func NewHTTPClient(baseLog *logger.Logger) *HTTPClient {
  log := baseLog.With("service", "FeedHTTPClient")
  timeoutMS := utils.GetEnvAsInt("FEED_HTTP_TIMEOUT_MS", 5000, baseLog)
  defaultBase := utils.GetEnv("COLLABORATOR_BASE_URL", "http://localhost:8000", baseLog)
  base := map[string]string{
    DomainRollingStock: utils.GetEnv("ROLLINGSTOCK_FEED_URL", defaultBase, baseLog),
    DomainSignalling:   utils.GetEnv("SIGNALLING_FEED_URL", defaultBase, baseLog),
    DomainTelecom:      utils.GetEnv("TELECOM_FEED_URL", defaultBase, baseLog),
    DomainCleaning:     utils.GetEnv("CLEANING_FEED_URL", defaultBase, baseLog),
    DomainBranding:     utils.GetEnv("BRANDING_FEED_URL", defaultBase, baseLog),
    DomainYard:         utils.GetEnv("YARD_FEED_URL", defaultBase, baseLog),
  }
  return &HTTPClient{
    log:     log,
    client:  &http.Client{Timeout: time.Duration(timeoutMS) * time.Millisecond},
    baseURL: base,
  }
}

func (c *HTTPClient) fetch(ctx context.Context, domain, path, depotID string, out any) error {
  base := strings.TrimRight(c.baseURL[domain], "/")
  url := fmt.Sprintf("%s/api/%s/depot/%s", base, path, depotID)

  req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
  if err != nil {
    return fmt.Errorf("build %s feed request: %w", domain, err)
  }
  req.Header.Set("Accept", "application/json")

  resp, err := c.client.Do(req)
  if err != nil {
    return fmt.Errorf("%s feed request: %w", domain, err)
  }
  defer resp.Body.Close()

  if resp.StatusCode != http.StatusOK {
    body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
    return apierr.New(resp.StatusCode, domain+"_feed_error",
      fmt.Errorf("%s feed returned %d: %s", domain, resp.StatusCode, strings.TrimSpace(string(body))))
  }
  if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
    return fmt.Errorf("decode %s feed response: %w", domain, err)
  }
  return nil
}

func (c *HTTPClient) FetchRollingStock(ctx context.Context, depotID string) (map[string]RollingStockFacts, error) {
  out := map[string]RollingStockFacts{}
  if err := c.fetch(ctx, DomainRollingStock, "rollingstock", depotID, &out); err != nil {
    return nil, err
  }
  return out, nil
}

func (c *HTTPClient) FetchSignalling(ctx context.Context, depotID string) (map[string]SignallingFacts, error) {
  out := map[string]SignallingFacts{}
  if err := c.fetch(ctx, DomainSignalling, "signalling", depotID, &out); err != nil {
    return nil, err
  }
  return out, nil
}

func (c *HTTPClient) FetchTelecom(ctx context.Context, depotID string) (map[string]TelecomFacts, error) {
  out := map[string]TelecomFacts{}
  if err := c.fetch(ctx, DomainTelecom, "telecom", depotID, &out); err != nil {
    return nil, err
  }
  return out, nil
}

func (c *HTTPClient) FetchCleaning(ctx context.Context, depotID string) (map[string]CleaningFacts, error) {
  out := map[string]CleaningFacts{}
  if err := c.fetch(ctx, DomainCleaning, "cleaning", depotID, &out); err != nil {
    return nil, err
  }
  return out, nil
}

func (c *HTTPClient) FetchBranding(ctx context.Context, depotID string) (map[string]BrandingFacts, error) {
  out := map[string]BrandingFacts{}
  if err := c.fetch(ctx, DomainBranding, "branding", depotID, &out); err != nil {
    return nil, err
  }
  return out, nil
}

func (c *HTTPClient) FetchYard(ctx context.Context, depotID string) (map[string]YardFacts, error) {
  out := map[string]YardFacts{}
  if err := c.fetch(ctx, DomainYard, "yard", depotID, &out); err != nil {
    return nil, err
  }
  return out, nil
}
