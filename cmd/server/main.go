package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/BrightBuddy/brightbuddy-backend/api"
	"github.com/BrightBuddy/brightbuddy-backend/internal/achievement"
	"github.com/BrightBuddy/brightbuddy-backend/internal/activity"
	"github.com/BrightBuddy/brightbuddy-backend/internal/analytics"
	"github.com/BrightBuddy/brightbuddy-backend/internal/freemium"
	"github.com/BrightBuddy/brightbuddy-backend/internal/notification"
	"github.com/BrightBuddy/brightbuddy-backend/internal/platform/backup"
	"github.com/BrightBuddy/brightbuddy-backend/internal/platform/config"
	"github.com/BrightBuddy/brightbuddy-backend/internal/platform/database"
	"github.com/BrightBuddy/brightbuddy-backend/internal/platform/health"
	"github.com/BrightBuddy/brightbuddy-backend/internal/platform/shutdown"
	"github.com/BrightBuddy/brightbuddy-backend/internal/platform/startup"
	"github.com/BrightBuddy/brightbuddy-backend/internal/platform/storage"
	"github.com/BrightBuddy/brightbuddy-backend/pkg/lifecycle"
	"github.com/BrightBuddy/brightbuddy-backend/pkg/ticket"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	ticket.GenerateSecretKey()

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("加载配置失败: %v", err))
	}

	database.InitDB(cfg.Database.Sqlite)
	database.InitRedis(cfg.Database.Redis)

	// 阻塞式获取初始Run ID
	health.InitializeRunID()

	// 组装领域服务：共享一个Redis文档存储
	store := storage.NewRedisStore(database.RDB)
	ledger := freemium.NewService(store, cfg.Freemium)
	engine := achievement.NewEngine(store)
	history := freemium.History{}
	recorder := analytics.NewSink()
	queue := notification.NewQueue()
	orchestrator := activity.NewOrchestrator(ledger, engine, history, recorder, queue, activity.SchedulerMarker{})

	// 执行应用首次启动初始化流程
	if err := startup.InitializeApplication(ledger, engine); err != nil {
		panic(fmt.Sprintf("应用初始化失败，无法启动: %v", err))
	}

	rebuild := func() error { return startup.RebuildCache(ledger, engine) }

	// 阻塞式执行一次启动后健康检查
	fmt.Println("正在执行启动后健康检查...")
	health.PerformCheck(rebuild)

	// 异步启动后台的持续健康检查器
	go health.StartRedisHealthCheck(rebuild)

	// 后台定时备份，挂在优雅停机的第一阶段
	gracefulMgr := lifecycle.NewManager()
	forcefulMgr := lifecycle.NewManager()
	backupHandle, err := gracefulMgr.NewServiceHandle("backup-scheduler")
	if err != nil {
		panic(fmt.Sprintf("创建备份调度器句柄失败: %v", err))
	}
	go backup.StartBackupScheduler(backupHandle, store)

	gin.SetMode(cfg.Server.Mode)
	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.Cors.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api.SetupRoutes(r, &api.Handlers{
		Activity:     activity.NewHandler(orchestrator),
		Freemium:     freemium.NewHandler(ledger, history),
		Achievement:  achievement.NewHandler(engine),
		Notification: notification.NewHandler(queue),
	})

	server := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: r,
	}

	go func() {
		fmt.Printf("服务器已准备就绪，开始监听 %s\n", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			panic("Failed to start server: " + err.Error())
		}
	}()

	coordinator := shutdown.NewCoordinator(gracefulMgr, forcefulMgr)
	coordinator.ListenForSignalsAndShutdown(server, store)
}
