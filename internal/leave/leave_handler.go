package leave

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Harshith-Raju/Leave-Management-System/internal/middleware"
	"github.com/Harshith-Raju/Leave-Management-System/internal/shared/apperror"
	"github.com/Harshith-Raju/Leave-Management-System/internal/shared/contextutil"
	"github.com/Harshith-Raju/Leave-Management-System/internal/shared/response"
)

const idempotencyCacheTTL = 24 * time.Hour

type Handler struct {
	service Service
	rdb     *redis.Client
	logger  *zap.Logger
}

func NewHandler(service Service, rdb *redis.Client, logger ...*zap.Logger) *Handler {
	var l *zap.Logger
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	} else {
		l = zap.L().Named("leave-handler")
	}
	return &Handler{service: service, rdb: rdb, logger: l}
}

func (h *Handler) Apply(c *gin.Context) {
	var req ApplyLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.releaseIdempotencyLock(c)
		h.writeError(c, apperror.MapValidationError(err))
		return
	}

	ctx := contextutil.WithLogger(c.Request.Context(), h.logger)
	employeeID := c.GetString(middleware.ContextEmployeeID)
	resp, err := h.service.Apply(ctx, employeeID, req)
	if err != nil {
		h.releaseIdempotencyLock(c)
		h.writeError(c, err)
		return
	}

	h.cacheIdempotentResult(c, resp)
	response.Success(c, http.StatusCreated, resp, nil)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, apperror.MapValidationError(err))
		return
	}

	ctx := contextutil.WithLogger(c.Request.Context(), h.logger)
	deciderID := c.GetString(middleware.ContextEmployeeID)
	resp, err := h.service.UpdateStatus(ctx, c.Param("id"), deciderID, req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) GetAll(c *gin.Context) {
	resp, err := h.service.GetAll(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if pageSize < 1 {
		pageSize = 10
	}

	total := int64(len(resp))
	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(resp) {
		start = len(resp)
	}
	if end > len(resp) {
		end = len(resp)
	}

	meta := response.NewPaginationMeta(total, page, pageSize)
	response.Success(c, http.StatusOK, resp[start:end], &meta)
}

func (h *Handler) GetMine(c *gin.Context) {
	employeeID := c.GetString(middleware.ContextEmployeeID)
	resp, err := h.service.GetMine(c.Request.Context(), employeeID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) GetByID(c *gin.Context) {
	resp, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

// cacheIdempotentResult stores the successful response under the idempotency
// cache key set by the middleware and drops the in-flight lock.
func (h *Handler) cacheIdempotentResult(c *gin.Context, resp *LeaveResponse) {
	cacheKey := c.GetString(middleware.IdempotencyCacheKey)
	if cacheKey == "" || h.rdb == nil {
		return
	}

	payload, err := json.Marshal(resp)
	if err == nil {
		if err := h.rdb.Set(c.Request.Context(), cacheKey, payload, idempotencyCacheTTL).Err(); err != nil {
			h.logger.Warn("failed to cache idempotent response", zap.Error(err))
		}
	}

	h.rdb.Del(c.Request.Context(), c.GetString(middleware.IdempotencyLockKey))
}

func (h *Handler) releaseIdempotencyLock(c *gin.Context) {
	lockKey := c.GetString(middleware.IdempotencyLockKey)
	if lockKey == "" || h.rdb == nil {
		return
	}
	h.rdb.Del(c.Request.Context(), lockKey)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	if httpErr.Status >= http.StatusInternalServerError {
		h.logger.Error("leave request failed", zap.Error(err))
	}
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}
