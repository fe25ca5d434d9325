package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/stanrainier/stan-finance-tracker/internal/config"
	"github.com/stanrainier/stan-finance-tracker/internal/feed"
	"github.com/stanrainier/stan-finance-tracker/internal/handler"
	"github.com/stanrainier/stan-finance-tracker/internal/ledger"
	"github.com/stanrainier/stan-finance-tracker/internal/middleware"
)

// SetupRouter configures the Gin engine with the JSON API, the live feed,
// health and metrics.
func SetupRouter(cfg *config.Config, db *gorm.DB, svc *ledger.Service, hub *feed.Hub) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ====== API ======
	api := r.Group("/api")

	jwtSecret := cfg.Auth.Secret
	// 登录接口（不需要鉴权）
	authHandler := handler.NewAuthHandler(db, cfg.Auth)
	api.POST("/auth/session", authHandler.CreateSession)

	// 需要登录才能访问的接口
	protected := api.Group("")
	protected.Use(
		middleware.AuthMiddleware(jwtSecret, db),
		middleware.AuditMiddleware(db, cfg.Security.EncryptionKey),
	)

	protected.POST("/auth/logout", authHandler.Logout)
	protected.GET("/me", handler.GetMe)
	protected.POST("/profile", handler.UpdateProfile(db))

	ledgerHandler := handler.NewLedgerHandler(svc, cfg.App.PageSize)
	protected.GET("/accounts", ledgerHandler.ListAccounts)
	protected.POST("/accounts", ledgerHandler.CreateAccount)
	protected.GET("/accounts/:id", ledgerHandler.GetAccount)
	protected.PUT("/accounts/:id", ledgerHandler.UpdateAccount)

	protected.GET("/transactions", ledgerHandler.ListTransactions)
	protected.POST("/transactions", ledgerHandler.CreateTransaction)
	protected.DELETE("/transactions/:id", ledgerHandler.DeleteTransaction)
	protected.POST("/transfers", ledgerHandler.CreateTransfer)

	protected.GET("/payables", ledgerHandler.ListPayables)
	protected.POST("/payables", ledgerHandler.CreatePayable)
	protected.POST("/payables/:id/pay", ledgerHandler.PayPayable)
	protected.POST("/payables/:id/add", ledgerHandler.AddToPayable)

	protected.GET("/receivables", ledgerHandler.ListReceivables)
	protected.POST("/receivables", ledgerHandler.CreateReceivable)
	protected.POST("/receivables/:id/settle", ledgerHandler.SettleReceivable)
	protected.DELETE("/receivables/:id", ledgerHandler.DeleteReceivable)

	protected.GET("/totals", ledgerHandler.GetTotals)
	protected.GET("/dashboard", ledgerHandler.GetDashboard)

	feedHandler := handler.NewFeedHandler(hub)
	protected.GET("/feed", feedHandler.Stream)

	backupHandler := handler.NewBackupHandler(db, cfg.Security.EncryptionKey, cfg.Backup.Dir, hub)
	protected.POST("/backups", backupHandler.CreateBackup)
	protected.GET("/backups", backupHandler.ListBackups)
	protected.GET("/backups/:id/download", backupHandler.DownloadBackup)
	protected.POST("/backups/:id/restore", backupHandler.RestoreBackup)
	protected.DELETE("/backups/:id", backupHandler.DeleteBackup)

	logHandler := handler.NewLogHandler(db, cfg.Security.EncryptionKey)
	protected.GET("/logs", logHandler.ListLogs)
	protected.GET("/history", logHandler.ListHistory)

	importExportHandler := handler.NewImportExportHandler(db)
	protected.GET("/export/csv", importExportHandler.ExportCSV)
	protected.GET("/export/xlsx", importExportHandler.ExportXLSX)

	return r
}
