package api

import (
	"Mnemo_1.0/internal/models"
	"Mnemo_1.0/pkg/logger"
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Engine 是处理函数依赖的记忆引擎表面。*service.MemoryService 实现了它。
type Engine interface {
	AddMemory(ctx context.Context, turn models.ConversationTurn) (*models.ReconciliationResult, error)
	SearchMemory(ctx context.Context, userID, query string, topK int) (*models.SearchResult, error)
	GetAllMemory(ctx context.Context, userID string) (*models.SearchResult, error)
	History(ctx context.Context, userID string, limit int64) ([]*models.MemoryEvent, error)
}

// Handler 封装了所有 API endpoint 的处理函数。
type Handler struct {
	engine Engine
	logger *logger.Logger
}

// NewHandler 创建一个新的 Handler 实例。
func NewHandler(engine Engine, log *logger.Logger) *Handler {
	return &Handler{engine: engine, logger: log}
}

// AddMemoryRequest 定义了摄取对话回合请求的 JSON 结构。
type AddMemoryRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Role   string `json:"role"`
	Text   string `json:"text" binding:"required"`
}

// AddMemory 处理摄取一个对话回合的请求。
func (h *Handler) AddMemory(c *gin.Context) {
	var req AddMemoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role := models.SpeakerRole(req.Role)
	if role == "" {
		role = models.SpeakerUser
	}

	result, err := h.engine.AddMemory(c.Request.Context(), models.ConversationTurn{
		Role: role,
		Text: req.Text,
		User: req.UserID,
	})
	if err != nil {
		h.logger.WithOwner(req.UserID).WithError(models.ErrorInfo{Message: err.Error()}).Error("add memory failed")
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": result})
}

// SearchMemory 处理检索请求。
func (h *Handler) SearchMemory(c *gin.Context) {
	userID := c.Query("user_id")
	query := c.Query("q")
	if userID == "" || query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and q are required"})
		return
	}
	topK, _ := strconv.Atoi(c.DefaultQuery("top_k", "0"))

	result, err := h.engine.SearchMemory(c.Request.Context(), userID, query, topK)
	if err != nil {
		h.logger.WithOwner(userID).WithError(models.ErrorInfo{Message: err.Error()}).Error("search memory failed")
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListMemories 返回某个用户的全部记忆。
func (h *Handler) ListMemories(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	result, err := h.engine.GetAllMemory(c.Request.Context(), userID)
	if err != nil {
		h.logger.WithOwner(userID).WithError(models.ErrorInfo{Message: err.Error()}).Error("list memories failed")
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// History 返回某个用户最近的协调事件。
func (h *Handler) History(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)

	events, err := h.engine.History(c.Request.Context(), userID, limit)
	if err != nil {
		h.logger.WithOwner(userID).WithError(models.ErrorInfo{Message: err.Error()}).Error("list history failed")
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	if events == nil {
		events = []*models.MemoryEvent{}
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}

// statusFor 将引擎错误映射为 HTTP 状态码。依赖服务不可用返回 503，
// 其余视为服务器内部错误。
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrExtractionUnavailable),
		errors.Is(err, models.ErrJudgmentUnavailable),
		errors.Is(err, models.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, models.ErrDimensionMismatch):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
