package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"municipality/internal/apperr"
	"municipality/internal/middleware"
	"municipality/internal/models"
	"municipality/internal/policy"
	"municipality/internal/repository"
	"municipality/internal/service"
)

// Services groups the lifecycle services exposed over HTTP
type Services struct {
	Identity      *service.IdentityService
	Requests      *service.RequestService
	Payments      *service.PaymentService
	Complaints    *service.ComplaintService
	Notifications *service.NotificationService
	Attachments   *service.AttachmentService
	Announcements *service.AnnouncementService
	Feedback      *service.FeedbackService
}

// RealtimeServer upgrades a request to a notification stream
type RealtimeServer interface {
	Serve(w http.ResponseWriter, r *http.Request, citizenID uint) error
}

// Handler serves the REST API
type Handler struct {
	Services
	policy   *policy.Authorizer
	realtime RealtimeServer
	audit    repository.AuditRepository
	logger   *zap.Logger
}

// New creates the API handler
func New(services Services, authorizer *policy.Authorizer, realtime RealtimeServer, audit repository.AuditRepository, logger *zap.Logger) *Handler {
	registerValidators()
	return &Handler{
		Services: services,
		policy:   authorizer,
		realtime: realtime,
		audit:    audit,
		logger:   logger.Named("api_handler"),
	}
}

var validatorsOnce sync.Once

// registerValidators adds the enum tags used by the request payloads
func registerValidators() {
	validatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("request_type", func(fl validator.FieldLevel) bool {
			return models.RequestType(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("payment_method", func(fl validator.FieldLevel) bool {
			return models.PaymentMethod(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("complaint_category", func(fl validator.FieldLevel) bool {
			return models.ComplaintCategory(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("announcement_category", func(fl validator.FieldLevel) bool {
			return models.AnnouncementCategory(fl.Field().String()).Valid()
		})
	})
}

// respondError writes err with the status code of its kind
func (h *Handler) respondError(c *gin.Context, err error) {
	var status int
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindForbidden:
		status = http.StatusForbidden
	case apperr.KindUnauthorized:
		status = http.StatusUnauthorized
	case apperr.KindInvalidState:
		status = http.StatusBadRequest
	case apperr.KindValidation:
		status = http.StatusUnprocessableEntity
	case apperr.KindConflict:
		status = http.StatusConflict
	default:
		h.logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": apperr.MessageOf(err)})
}

// bindJSON decodes the body into payload, answering 400 when it cannot
func (h *Handler) bindJSON(c *gin.Context, payload interface{}) bool {
	if err := c.ShouldBindJSON(payload); err != nil {
		h.logger.Warn("Invalid request payload", zap.String("route", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return false
	}
	return true
}

// paramID parses a positive numeric path parameter
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// pagination reads skip and limit; the services clamp them to their bounds
func pagination(c *gin.Context) (int, int, bool) {
	skip, err := strconv.Atoi(c.DefaultQuery("skip", "0"))
	if err != nil || skip < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid skip parameter"})
		return 0, 0, false
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit < 1 || limit > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
		return 0, 0, false
	}
	return skip, limit, true
}

// queryInt reads an optional integer query parameter, answering 400 when
// it is malformed
func queryInt(c *gin.Context, name string, fallback int) (int, bool) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return fallback, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name + " parameter"})
		return 0, false
	}
	return value, true
}

// queryBool reads an optional boolean query parameter
func queryBool(c *gin.Context, name string, fallback bool) (bool, bool) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return fallback, true
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name + " parameter"})
		return false, false
	}
	return value, true
}

// principal returns the authenticated caller
func (h *Handler) principal(c *gin.Context) (policy.Principal, bool) {
	principal, ok := middleware.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
	}
	return principal, ok
}

// authorize checks a capability and answers 403 on denial
func (h *Handler) authorize(c *gin.Context, principal policy.Principal, action policy.Action, entity policy.Entity) bool {
	if err := h.policy.Authorize(principal, action, entity); err != nil {
		h.respondError(c, err)
		return false
	}
	return true
}

// record writes an audit entry for a mutation. Failures are logged only.
func (h *Handler) record(c *gin.Context, principal policy.Principal, action string, resource policy.Resource, resourceID uint, details interface{}) {
	entry := &models.AuditLog{
		AccountID:  principal.AccountID,
		Action:     action,
		Resource:   string(resource),
		ResourceID: resourceID,
		IPAddress:  c.ClientIP(),
	}
	if details != nil {
		raw, err := json.Marshal(details)
		if err == nil {
			entry.Details = datatypes.JSON(raw)
		}
	}

	ctx := context.WithoutCancel(c.Request.Context())
	if err := h.audit.Create(ctx, entry); err != nil {
		h.logger.Warn("Failed to write audit entry",
			zap.String("action", action),
			zap.String("resource", string(resource)),
			zap.Error(err))
	}
}
