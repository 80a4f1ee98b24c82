package handler

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/PowerDrive/internal/app/model"
	"github.com/sifan077/PowerDrive/internal/app/service"
	"github.com/sifan077/PowerDrive/internal/http/middleware"
	infraPrometheus "github.com/sifan077/PowerDrive/internal/infra/prometheus"
	"go.uber.org/zap"
)

// EventPublisher emits share lifecycle events. Publishing is best effort.
type EventPublisher interface {
	Publish(event model.ShareEvent) error
}

// ShareAPIDeps groups dependencies required by the owner-facing share endpoints.
type ShareAPIDeps struct {
	Logger        *zap.Logger
	Shares        service.ShareService
	Auth          fiber.Handler
	PublicBaseURL string
	Events        EventPublisher
	Metrics       *infraPrometheus.ShareMetrics
}

// ShareAPIHandler implements issuance, listing and revocation of share links.
type ShareAPIHandler struct {
	logger  *zap.Logger
	shares  service.ShareService
	auth    fiber.Handler
	baseURL string
	events  EventPublisher
	metrics *infraPrometheus.ShareMetrics
}

// NewShareAPIHandler creates a share API handler with the provided dependencies.
func NewShareAPIHandler(deps ShareAPIDeps) *ShareAPIHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShareAPIHandler{
		logger:  logger,
		shares:  deps.Shares,
		auth:    deps.Auth,
		baseURL: strings.TrimRight(deps.PublicBaseURL, "/"),
		events:  deps.Events,
		metrics: deps.Metrics,
	}
}

// Register wires the authenticated share routes onto the provided router.
func (h *ShareAPIHandler) Register(router fiber.Router) {
	files := router.Group("/files", h.auth)
	{
		files.Post("/:fileId/share", h.IssueLink)
		files.Get("/:fileId/shares", h.ListLinks)
		files.Delete("/:fileId/shares", h.RevokeAllForFile)
	}

	router.Delete("/shares/:linkId", h.auth, h.RevokeLink)
}

// IssueLinkRequest is the body of POST /files/:fileId/share. A missing
// expiryDays selects the default; zero or negative means the link never expires.
type IssueLinkRequest struct {
	ExpiryDays *int `json:"expiryDays"`
}

// ShareLinkResponse describes a share link to its owner.
type ShareLinkResponse struct {
	ID         uint64     `json:"id"`
	Token      string     `json:"token"`
	URL        string     `json:"url"`
	FileID     uint64     `json:"fileId"`
	CreatedAt  time.Time  `json:"createdAt"`
	ExpiryDate *time.Time `json:"expiryDate"`
}

// IssueLink handles POST /files/:fileId/share
func (h *ShareAPIHandler) IssueLink(c *fiber.Ctx) error {
	requesterID, ok := middleware.Requester(c)
	if !ok {
		return errorJSON(c, fiber.StatusUnauthorized, "authentication required")
	}

	fileID, ok := uintParam(c, "fileId")
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "invalid file id")
	}

	var req IssueLinkRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return errorJSON(c, fiber.StatusBadRequest, "invalid request body")
		}
	}

	expiryDays := service.DefaultExpiryDays
	if req.ExpiryDays != nil {
		expiryDays = *req.ExpiryDays
	}

	link, err := h.shares.IssueLink(c.UserContext(), requesterID, fileID, expiryDays)
	if err != nil {
		return serviceError(c, h.logger, err, "file not found")
	}

	h.metrics.Issued()
	h.publish(model.ShareEvent{
		Type:   model.ShareEventIssued,
		LinkID: link.ID,
		FileID: link.FileID,
		UserID: requesterID,
		IP:     c.IP(),
	})

	h.logger.Info("share link issued",
		zap.Uint64("link_id", link.ID),
		zap.Uint64("file_id", link.FileID),
		zap.Uint64("user_id", requesterID),
		zap.Int("expiry_days", expiryDays),
	)

	return c.Status(fiber.StatusCreated).JSON(h.toResponse(*link))
}

// ListLinks handles GET /files/:fileId/shares
func (h *ShareAPIHandler) ListLinks(c *fiber.Ctx) error {
	requesterID, ok := middleware.Requester(c)
	if !ok {
		return errorJSON(c, fiber.StatusUnauthorized, "authentication required")
	}

	fileID, ok := uintParam(c, "fileId")
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "invalid file id")
	}

	links, err := h.shares.ListLinks(c.UserContext(), requesterID, fileID)
	if err != nil {
		return serviceError(c, h.logger, err, "file not found")
	}

	response := make([]ShareLinkResponse, len(links))
	for i, link := range links {
		response[i] = h.toResponse(link)
	}

	return c.JSON(fiber.Map{
		"links": response,
		"count": len(response),
	})
}

// RevokeAllForFile handles DELETE /files/:fileId/shares
func (h *ShareAPIHandler) RevokeAllForFile(c *fiber.Ctx) error {
	requesterID, ok := middleware.Requester(c)
	if !ok {
		return errorJSON(c, fiber.StatusUnauthorized, "authentication required")
	}

	fileID, ok := uintParam(c, "fileId")
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "invalid file id")
	}

	removed, err := h.shares.RevokeAllForFile(c.UserContext(), requesterID, fileID)
	if err != nil {
		return serviceError(c, h.logger, err, "file not found")
	}

	h.metrics.Revoked(len(removed))
	ip := c.IP()
	for _, link := range removed {
		h.publish(model.ShareEvent{
			Type:   model.ShareEventRevoked,
			LinkID: link.ID,
			FileID: link.FileID,
			UserID: requesterID,
			IP:     ip,
		})
	}

	return c.JSON(fiber.Map{
		"revoked": len(removed),
	})
}

// RevokeLink handles DELETE /shares/:linkId
func (h *ShareAPIHandler) RevokeLink(c *fiber.Ctx) error {
	requesterID, ok := middleware.Requester(c)
	if !ok {
		return errorJSON(c, fiber.StatusUnauthorized, "authentication required")
	}

	linkID, ok := uintParam(c, "linkId")
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "invalid link id")
	}

	link, err := h.shares.RevokeLink(c.UserContext(), requesterID, linkID)
	if err != nil {
		return serviceError(c, h.logger, err, "share link not found")
	}

	h.metrics.Revoked(1)
	h.publish(model.ShareEvent{
		Type:   model.ShareEventRevoked,
		LinkID: link.ID,
		FileID: link.FileID,
		UserID: requesterID,
		IP:     c.IP(),
	})

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ShareAPIHandler) toResponse(link model.ShareLink) ShareLinkResponse {
	return ShareLinkResponse{
		ID:         link.ID,
		Token:      link.Token,
		URL:        shareURL(h.baseURL, link.Token),
		FileID:     link.FileID,
		CreatedAt:  link.CreatedAt,
		ExpiryDate: link.ExpiryDate,
	}
}

func (h *ShareAPIHandler) publish(event model.ShareEvent) {
	if h.events == nil {
		return
	}
	go func() {
		if err := h.events.Publish(event); err != nil {
			h.logger.Warn("failed to publish share event",
				zap.Error(err),
				zap.String("type", string(event.Type)),
				zap.Uint64("link_id", event.LinkID),
			)
		}
	}()
}

func shareURL(baseURL, token string) string {
	return baseURL + "/share/" + token
}
