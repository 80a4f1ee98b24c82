package handler

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/sifan077/PowerDrive/internal/app/model"
	"github.com/sifan077/PowerDrive/internal/app/service"
	"github.com/sifan077/PowerDrive/internal/http/view"
	infraPrometheus "github.com/sifan077/PowerDrive/internal/infra/prometheus"
	"go.uber.org/zap"
)

const readinessTimeout = 2 * time.Second

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// ShareAccessDeps groups dependencies required by the public share endpoints.
type ShareAccessDeps struct {
	Logger      *zap.Logger
	Shares      service.ShareService
	RateLimit   fiber.Handler
	Events      EventPublisher
	Metrics     *infraPrometheus.ShareMetrics
	ReadyChecks map[string]HealthCheck
}

// ShareAccessHandler resolves share tokens for anonymous callers.
type ShareAccessHandler struct {
	logger      *zap.Logger
	shares      service.ShareService
	rateLimit   fiber.Handler
	events      EventPublisher
	metrics     *infraPrometheus.ShareMetrics
	readyChecks map[string]HealthCheck
}

// NewShareAccessHandler creates a share access handler with the provided dependencies.
func NewShareAccessHandler(deps ShareAccessDeps) *ShareAccessHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	rateLimit := deps.RateLimit
	if rateLimit == nil {
		rateLimit = func(c *fiber.Ctx) error { return c.Next() }
	}
	return &ShareAccessHandler{
		logger:      logger,
		shares:      deps.Shares,
		rateLimit:   rateLimit,
		events:      deps.Events,
		metrics:     deps.Metrics,
		readyChecks: deps.ReadyChecks,
	}
}

// Register wires public routes onto the provided router.
func (h *ShareAccessHandler) Register(router fiber.Router) {
	router.Get("/health", h.Health)
	router.Get("/ready", h.Ready)

	share := router.Group("/share", h.rateLimit)
	{
		share.Get("/:token", h.Resolve)
		share.Get("/:token/download", h.Download)
	}
}

// Health is a liveness endpoint.
func (h *ShareAccessHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": "PowerDrive",
		"status":  "ok",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready runs every readiness check and reports 503 if any of them fails.
func (h *ShareAccessHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()

	status := fiber.StatusOK
	checks := make(fiber.Map, len(h.readyChecks))
	for name, check := range h.readyChecks {
		if err := check(ctx); err != nil {
			h.logger.Warn("readiness check failed", zap.String("check", name), zap.Error(err))
			checks[name] = err.Error()
			status = fiber.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	return c.Status(status).JSON(fiber.Map{
		"ready":  status == fiber.StatusOK,
		"checks": checks,
	})
}

// SharedFile is the public view of a shared file.
type SharedFile struct {
	ID      uint64 `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Size    int64  `json:"size"`
	Content string `json:"content"`
}

// ResolveResponse is returned by GET /share/:token.
type ResolveResponse struct {
	File       SharedFile `json:"file"`
	SharedAt   time.Time  `json:"sharedAt"`
	ExpiryDate *time.Time `json:"expiryDate"`
}

// Resolve handles GET /share/:token. Browsers asking for HTML get a download page.
func (h *ShareAccessHandler) Resolve(c *fiber.Ctx) error {
	resolved, err := h.resolve(c, infraPrometheus.RouteView)
	if err != nil {
		return err
	}
	if resolved == nil {
		return nil
	}

	file := resolved.File
	if c.Accepts(fiber.MIMEApplicationJSON, fiber.MIMETextHTML) == fiber.MIMETextHTML {
		html, err := view.RenderSharedFilePage(view.SharedFilePageData{
			FileName:    file.Name,
			FileType:    file.Type,
			Size:        file.Size,
			DownloadURL: c.Path() + "/download",
			ExpiryDate:  resolved.Link.ExpiryDate,
		})
		if err != nil {
			h.logger.Error("failed to render shared file page", zap.Error(err))
			return errorJSON(c, fiber.StatusInternalServerError, "failed to render page")
		}
		return c.Type("html", "utf-8").SendString(html)
	}

	return c.JSON(ResolveResponse{
		File: SharedFile{
			ID:      file.ID,
			Name:    file.Name,
			Type:    file.Type,
			Size:    file.Size,
			Content: file.Content,
		},
		SharedAt:   resolved.Link.CreatedAt,
		ExpiryDate: resolved.Link.ExpiryDate,
	})
}

// Download handles GET /share/:token/download and streams the decoded file body.
func (h *ShareAccessHandler) Download(c *fiber.Ctx) error {
	resolved, err := h.resolve(c, infraPrometheus.RouteDownload)
	if err != nil {
		return err
	}
	if resolved == nil {
		return nil
	}

	file := resolved.File
	body, contentType, err := DecodeContent(file.Content)
	if err != nil {
		h.logger.Error("stored file content is not valid base64",
			zap.Error(err),
			zap.Uint64("file_id", file.ID),
		)
		return errorJSON(c, fiber.StatusInternalServerError, "file content is corrupt")
	}
	if file.Type != "" {
		contentType = file.Type
	}
	if contentType == "" {
		contentType = fiber.MIMEOctetStream
	}

	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", file.Name))
	return c.Send(body)
}

// resolve runs the shared lookup for both endpoints; route tags the metric
// and the access event. A nil result with a nil error means the error
// response has already been written.
func (h *ShareAccessHandler) resolve(c *fiber.Ctx, route string) (*service.ResolvedShare, error) {
	token := c.Params("token")
	if !service.IsWellFormedToken(token) {
		h.metrics.Resolved(route, infraPrometheus.OutcomeNotFound)
		return nil, errorJSON(c, fiber.StatusNotFound, "share link not found")
	}

	resolved, err := h.shares.ResolveLink(c.UserContext(), token)
	if err != nil {
		h.metrics.Resolved(route, outcomeOf(err))
		return nil, serviceError(c, h.logger, err, "share link not found")
	}

	h.metrics.Resolved(route, infraPrometheus.OutcomeOK)
	eventType := model.ShareEventAccessed
	if route == infraPrometheus.RouteDownload {
		eventType = model.ShareEventDownloaded
	}
	h.publishAccess(c, eventType, resolved.Link)
	return resolved, nil
}

func (h *ShareAccessHandler) publishAccess(c *fiber.Ctx, eventType model.ShareEventType, link *model.ShareLink) {
	if h.events == nil {
		return
	}

	// fiber recycles the request after the handler returns
	event := model.ShareEvent{
		Type:      eventType,
		LinkID:    link.ID,
		FileID:    link.FileID,
		IP:        c.IP(),
		UserAgent: utils.CopyString(c.Get(fiber.HeaderUserAgent)),
	}

	go func() {
		if err := h.events.Publish(event); err != nil {
			h.logger.Warn("failed to publish access event", zap.Error(err), zap.Uint64("link_id", event.LinkID))
		}
	}()
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return infraPrometheus.OutcomeNotFound
	case errors.Is(err, service.ErrExpired):
		return infraPrometheus.OutcomeExpired
	default:
		return infraPrometheus.OutcomeError
	}
}

// DecodeContent decodes stored base64 content. Content saved as a data URL
// ("data:<mime>;base64,<payload>") also yields the embedded MIME type.
func DecodeContent(content string) ([]byte, string, error) {
	var contentType string
	if rest, ok := strings.CutPrefix(content, "data:"); ok {
		header, payload, found := strings.Cut(rest, ",")
		if !found {
			return nil, "", errors.New("malformed data url")
		}
		contentType = strings.TrimSuffix(header, ";base64")
		content = payload
	}

	body, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return nil, "", err
	}
	return body, contentType, nil
}
