package activity

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/BrightBuddy/brightbuddy-backend/internal/freemium"
	"github.com/BrightBuddy/brightbuddy-backend/internal/user"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	orchestrator *Orchestrator
}

func NewHandler(orchestrator *Orchestrator) *Handler {
	return &Handler{orchestrator: orchestrator}
}

// ListActivities 返回完整的活动目录。
func (h *Handler) ListActivities(c *gin.Context) {
	ids := ListActivityIDs()
	activities := make([]gin.H, 0, len(ids))
	for _, id := range ids {
		info, ok := GetActivityInfoByID(id)
		if !ok {
			continue
		}
		activities = append(activities, gin.H{
			"id":            id,
			"title":         info.Title,
			"subject":       info.Subject,
			"difficulty":    info.Difficulty,
			"type":          info.Type,
			"isPremium":     info.IsPremium,
			"estimatedTime": info.EstimatedTime,
		})
	}
	c.JSON(http.StatusOK, gin.H{"activities": activities})
}

// GetActivity 返回单个活动的静态信息。
func (h *Handler) GetActivity(c *gin.Context) {
	activityID := c.Param("id")
	info, ok := GetActivityInfoByID(activityID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "活动不存在"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":            activityID,
		"title":         info.Title,
		"subject":       info.Subject,
		"difficulty":    info.Difficulty,
		"type":          info.Type,
		"isPremium":     info.IsPremium,
		"estimatedTime": info.EstimatedTime,
	})
}

// StartActivity 判定当前用户能否开始指定活动，允许时签发完成凭证。
func (h *Handler) StartActivity(c *gin.Context) {
	userID := user.CurrentUserID(c)
	activityID := c.Param("id")

	result, err := h.orchestrator.Start(c.Request.Context(), userID, activityID)
	if err != nil {
		switch {
		case errors.Is(err, ErrActivityNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "活动不存在"})
		case errors.Is(err, ErrPremiumContent):
			c.JSON(http.StatusForbidden, gin.H{"error": "该活动需要高级订阅", "reason": "premium_content"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "无法开始活动"})
		}
		return
	}

	if !result.Allowed {
		c.JSON(http.StatusForbidden, gin.H{
			"canPerform": false,
			"reason":     result.Permission.Reason,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"canPerform": true,
		"ticket":     result.Ticket,
		"issuedAt":   result.IssuedAt,
		"activity": gin.H{
			"id":            activityID,
			"title":         result.Activity.Title,
			"subject":       result.Activity.Subject,
			"estimatedTime": result.Activity.EstimatedTime,
		},
	})
}

type completeRequestBody struct {
	Score     *int            `json:"score" binding:"omitempty,min=0,max=100"`
	TimeSpent int             `json:"timeSpent" binding:"required,min=1"`
	Answers   json.RawMessage `json:"answers"`
	Ticket    string          `json:"ticket" binding:"required"`
	IssuedAt  int64           `json:"issuedAt" binding:"required"`
}

// CompleteActivity 处理一次活动完成。
func (h *Handler) CompleteActivity(c *gin.Context) {
	userID := user.CurrentUserID(c)
	activityID := c.Param("id")

	var body completeRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求体"})
		return
	}

	result, err := h.orchestrator.Complete(c.Request.Context(), CompleteInput{
		UserID:     userID,
		ActivityID: activityID,
		Score:      body.Score,
		TimeSpent:  body.TimeSpent,
		Answers:    body.Answers,
		Ticket:     body.Ticket,
		IssuedAt:   body.IssuedAt,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrActivityNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "活动不存在"})
		case errors.Is(err, ErrInvalidTicket):
			c.JSON(http.StatusForbidden, gin.H{"error": "无效的活动凭证"})
		case errors.Is(err, freemium.ErrQuotaExceeded):
			c.JSON(http.StatusForbidden, gin.H{"error": "今日活动次数已用完", "reason": freemium.ReasonDailyLimitReached})
		case errors.Is(err, freemium.ErrSubscriptionInactive):
			c.JSON(http.StatusForbidden, gin.H{"error": "订阅未激活", "reason": freemium.ReasonSubscriptionInactive})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "无法记录活动完成"})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

type upgradeRequestBody struct {
	BillingCustomerID     string `json:"billingCustomerId" binding:"required"`
	BillingSubscriptionID string `json:"billingSubscriptionId" binding:"required"`
}

// UpgradeSubscription 把当前用户升级为高级订阅。幂等。
func (h *Handler) UpgradeSubscription(c *gin.Context) {
	userID := user.CurrentUserID(c)

	var body upgradeRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求体"})
		return
	}

	unlocked, err := h.orchestrator.Upgrade(c.Request.Context(), userID, body.BillingCustomerID, body.BillingSubscriptionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "升级失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tier":          freemium.TierPremium,
		"newlyUnlocked": unlocked,
	})
}

// DowngradeSubscription 把当前用户降级回免费订阅。幂等。
func (h *Handler) DowngradeSubscription(c *gin.Context) {
	userID := user.CurrentUserID(c)

	if err := h.orchestrator.Downgrade(c.Request.Context(), userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "降级失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tier": freemium.TierFree})
}

// StartTrial 为当前用户开启限时试用。
func (h *Handler) StartTrial(c *gin.Context) {
	userID := user.CurrentUserID(c)

	started, err := h.orchestrator.StartTrial(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "开启试用失败"})
		return
	}
	if !started {
		c.JSON(http.StatusConflict, gin.H{"error": "当前订阅状态无法开启试用"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": freemium.StatusTrial})
}
