// Package cli wires configuration, storage and the ledger into the
// command-line entry points.
package cli

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/stanrainier/stan-finance-tracker/internal/config"
	"github.com/stanrainier/stan-finance-tracker/internal/database"
	"github.com/stanrainier/stan-finance-tracker/internal/feed"
	"github.com/stanrainier/stan-finance-tracker/internal/ledger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "finance",
	Short: "Personal finance tracker: accounts, payables, receivables",
	Long: `finance keeps account balances, payables and receivables in step with
the transaction ledger. Run "finance serve" for the HTTP API.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./config.yaml)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app is what every command needs after startup.
type app struct {
	cfg    *config.Config
	db     *gorm.DB
	hub    *feed.Hub
	ledger *ledger.Service
	logOut io.Closer
}

func (a *app) Close() {
	if err := database.Close(a.db); err != nil {
		log.Printf("close database: %v", err)
	}
	if a.logOut != nil {
		_ = a.logOut.Close()
	}
}

// bootstrap loads config, sets up logging, opens and migrates the database
// and builds the ledger.
func bootstrap() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logOut, err := setupLogging(cfg.Log)
	if err != nil {
		return nil, err
	}

	// ensure basic directories exist
	for _, dir := range []string{filepath.Dir(cfg.Database.Path), cfg.Backup.Dir} {
		if err := ensureDir(dir); err != nil {
			return nil, fmt.Errorf("create dir %s: %w", dir, err)
		}
	}

	db, err := database.Init(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	hub := feed.NewHub(64)
	svc := ledger.New(db, hub, ledger.Options{
		MaxRetries:             cfg.Ledger.MaxRetries,
		RetryBackoff:           time.Duration(cfg.Ledger.RetryBackoffMs) * time.Millisecond,
		ZeroSettledReceivables: cfg.Ledger.ZeroSettledReceivables,
	})
	return &app{cfg: cfg, db: db, hub: hub, ledger: svc, logOut: logOut}, nil
}

// setupLogging sends the standard logger and gin's request log to stdout and
// the configured log file.
func setupLogging(cfg config.LogConfig) (io.Closer, error) {
	if cfg.Level == "debug" {
		gin.SetMode(gin.DebugMode)
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}
	if cfg.File == "" {
		return nil, nil
	}
	if err := ensureDir(filepath.Dir(cfg.File)); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	w := io.MultiWriter(os.Stdout, f)
	log.SetOutput(w)
	gin.DefaultWriter = w
	gin.DefaultErrorWriter = w
	return f, nil
}

func ensureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
