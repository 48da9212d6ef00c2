// Package admin exposes the operator HTTP API: login, completed
// registrations, slot occupancy, and presigned proof downloads.
package admin

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atelier-events/bookingbot/internal/capacity"
	"github.com/atelier-events/bookingbot/internal/registration"
	"github.com/atelier-events/bookingbot/internal/schedule"
	"github.com/atelier-events/bookingbot/pkg/response"
	"github.com/atelier-events/bookingbot/pkg/storage"
	"github.com/atelier-events/bookingbot/pkg/utils"
)

// LoginRequest is the body for POST /admin/login.
type LoginRequest struct {
	Password string `json:"password" binding:"required"`
}

// SlotStatus is one slot's occupancy for GET /admin/slots. Reserved is
// the tracker count (incremented at slot choice); Persisted counts fully
// completed registrations, so the two diverge when users abandon the flow
// after picking a slot.
type SlotStatus struct {
	DateLabel string `json:"date_label"`
	TimeLabel string `json:"time_label"`
	Reserved  int    `json:"reserved"`
	Persisted int    `json:"persisted"`
	Capacity  int    `json:"capacity"`
}

// RegistrationStore is the registration read surface the API needs.
type RegistrationStore interface {
	List(ctx context.Context) ([]registration.Registration, error)
	GetByID(ctx context.Context, id uuid.UUID) (*registration.Registration, error)
	CountBySlot(ctx context.Context, dateLabel, timeLabel string) (int, error)
}

// Handler handles admin HTTP endpoints.
type Handler struct {
	repo         RegistrationStore
	tracker      capacity.Tracker
	catalog      *schedule.Catalog
	s3           *storage.S3 // nil when S3 is disabled
	tokens       *TokenService
	passwordHash string
	slotCapacity int
	logger       *zap.Logger
}

// NewHandler creates an admin handler.
func NewHandler(repo RegistrationStore, tracker capacity.Tracker, catalog *schedule.Catalog, s3 *storage.S3, tokens *TokenService, passwordHash string, slotCapacity int, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		repo:         repo,
		tracker:      tracker,
		catalog:      catalog,
		s3:           s3,
		tokens:       tokens,
		passwordHash: passwordHash,
		slotCapacity: slotCapacity,
		logger:       logger,
	}
}

// Login handles POST /admin/login: operator password in, JWT out.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if h.passwordHash == "" || !utils.CheckPassword(req.Password, h.passwordHash) {
		response.Unauthorized(c, "invalid credentials")
		return
	}
	token, err := h.tokens.Generate(RoleOperator)
	if err != nil {
		h.logger.Error("generate token failed", zap.Error(err))
		response.Internal(c, "failed to issue token")
		return
	}
	response.OK(c, gin.H{"token": token, "role": RoleOperator})
}

// List handles GET /admin/registrations.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list registrations failed", zap.Error(err))
		response.Internal(c, "failed to list registrations")
		return
	}
	response.OK(c, gin.H{"registrations": list, "count": len(list)})
}

// Slots handles GET /admin/slots: catalog with per-slot occupancy, both
// the reservation count and the persisted-registration count.
func (h *Handler) Slots(c *gin.Context) {
	var out []SlotStatus
	for _, offering := range h.catalog.Offerings() {
		for _, t := range offering.Times {
			reserved, err := h.tracker.Reserved(c.Request.Context(), offering.Label, t)
			if err != nil {
				h.logger.Error("read slot count failed", zap.Error(err),
					zap.String("date", offering.Label), zap.String("time", t))
				response.Internal(c, "failed to read slot occupancy")
				return
			}
			persisted, err := h.repo.CountBySlot(c.Request.Context(), offering.Label, t)
			if err != nil {
				h.logger.Error("count registrations failed", zap.Error(err),
					zap.String("date", offering.Label), zap.String("time", t))
				response.Internal(c, "failed to read slot occupancy")
				return
			}
			out = append(out, SlotStatus{
				DateLabel: offering.Label,
				TimeLabel: t,
				Reserved:  reserved,
				Persisted: persisted,
				Capacity:  h.slotCapacity,
			})
		}
	}
	response.OK(c, gin.H{"slots": out})
}

// ProofURL handles GET /admin/registrations/:id/proof: a presigned S3 GET.
func (h *Handler) ProofURL(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid registration id")
		return
	}
	reg, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "registration not found")
		return
	}
	if h.s3 == nil {
		response.NotFound(c, "proof storage not configured")
		return
	}
	url, err := h.s3.PresignedDownloadURL(c.Request.Context(), reg.ProofKey)
	if err != nil {
		h.logger.Error("presign proof failed", zap.Error(err), zap.String("proof_key", reg.ProofKey))
		response.Internal(c, "failed to generate download link")
		return
	}
	response.OK(c, gin.H{"url": url, "expires_in": h.s3.PresignExpire().String()})
}
