package freemium

import (
	"net/http"

	"github.com/BrightBuddy/brightbuddy-backend/internal/user"
	"github.com/gin-gonic/gin"
)

// Handler 承载freemium模块的只读HTTP接口。
// 订阅的升降级会触发成就事件，属于编排层，见activity模块。
type Handler struct {
	svc     *Service
	history History
}

// NewHandler 创建freemium模块的HTTP处理器。
func NewHandler(svc *Service, history History) *Handler {
	return &Handler{svc: svc, history: history}
}

// GetSubscription 返回当前用户的订阅、今日用量和配额决策。
func (h *Handler) GetSubscription(c *gin.Context) {
	userID := user.CurrentUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "缺少用户标识"})
		return
	}

	perm, err := h.svc.CanPerformActivity(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法读取订阅状态"})
		return
	}
	usage, err := h.svc.GetTodayUsage(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法读取今日用量"})
		return
	}

	resp := gin.H{
		"subscription": perm.Subscription,
		"todayUsage":   usage,
		"canPerform":   perm.CanPerform,
	}
	if perm.Reason != "" {
		resp["reason"] = perm.Reason
	}
	if perm.RemainingActivities != nil {
		resp["remainingActivities"] = *perm.RemainingActivities
	}
	c.JSON(http.StatusOK, resp)
}

// GetStats 返回最近一周/一月的用量统计。
func (h *Handler) GetStats(c *gin.Context) {
	userID := user.CurrentUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "缺少用户标识"})
		return
	}

	period := c.DefaultQuery("period", "week")
	if period != "week" && period != "month" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "period只支持week或month"})
		return
	}

	now := h.svc.Clock().UTC()
	stats, err := h.history.PeriodStats(userID, period, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法读取用量统计"})
		return
	}

	streak, err := h.history.CurrentStreak(userID, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法计算连续学习天数"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"period":        period,
		"stats":         stats,
		"currentStreak": streak,
	})
}

// GetHistory 返回最近的完成历史。
func (h *Handler) GetHistory(c *gin.Context) {
	userID := user.CurrentUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "缺少用户标识"})
		return
	}

	records, err := h.history.Recent(userID, 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法读取完成历史"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": records})
}
