package api

import (
	"github.com/BrightBuddy/brightbuddy-backend/internal/achievement"
	"github.com/BrightBuddy/brightbuddy-backend/internal/activity"
	"github.com/BrightBuddy/brightbuddy-backend/internal/freemium"
	"github.com/BrightBuddy/brightbuddy-backend/internal/notification"
	"github.com/BrightBuddy/brightbuddy-backend/internal/user"
	"github.com/gin-gonic/gin"
)

// Handlers 汇集各模块的HTTP处理器，由main在启动时组装。
type Handlers struct {
	Activity     *activity.Handler
	Freemium     *freemium.Handler
	Achievement  *achievement.Handler
	Notification *notification.Handler
}

// SetupRoutes 注册项目的所有API路由
func SetupRoutes(router *gin.Engine, h *Handlers) {
	api := router.Group("/api")
	{
		// 活动目录与活动生命周期
		activities := api.Group("/activities")
		{
			activities.GET("", h.Activity.ListActivities)
			activities.GET("/:id", h.Activity.GetActivity)
			activities.POST("/:id/start", user.EnsureUserCookieMiddleware(), h.Activity.StartActivity)
			activities.POST("/:id/complete", user.LoadUserMiddleware(), h.Activity.CompleteActivity)
		}

		// 订阅相关的路由
		subscription := api.Group("/subscription", user.EnsureUserCookieMiddleware())
		{
			subscription.GET("", h.Freemium.GetSubscription)
			subscription.POST("/upgrade", h.Activity.UpgradeSubscription)
			subscription.POST("/downgrade", h.Activity.DowngradeSubscription)
			subscription.POST("/trial", h.Activity.StartTrial)
		}

		// 成就与统计
		api.GET("/progress", user.EnsureUserCookieMiddleware(), h.Achievement.GetProgress)
		api.GET("/progress/recent", user.EnsureUserCookieMiddleware(), h.Achievement.GetRecent)
		api.GET("/stats", user.LoadUserMiddleware(), h.Freemium.GetStats)
		api.GET("/history", user.LoadUserMiddleware(), h.Freemium.GetHistory)

		// 通知
		api.GET("/notifications/pending", user.LoadUserMiddleware(), h.Notification.GetPending)
	}
}
