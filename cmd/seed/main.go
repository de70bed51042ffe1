package main

import (
	"context"
	"fmt"
	"os"
	"time"

	auditapp "github.com/erp/ledger/internal/application/audit"
	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/application/posting"
	retentionapp "github.com/erp/ledger/internal/application/retention"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/infrastructure/persistence"
	"github.com/erp/ledger/internal/infrastructure/seed"
	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	var (
		filePath string
		tenant   string
		actor    string
		logLevel string
		dryRun   bool
		timeout  time.Duration
	)

	flags := pflag.NewFlagSet("seed", pflag.ContinueOnError)
	flags.StringVarP(&filePath, "file", "f", "seeds/default.yaml", "seed file to load")
	flags.StringVarP(&tenant, "tenant", "t", "", "tenant id to load into (required)")
	flags.StringVar(&actor, "actor", uuid.Nil.String(), "actor id recorded in the audit log")
	flags.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.BoolVar(&dryRun, "dry-run", false, "validate the file without writing")
	flags.DurationVar(&timeout, "timeout", 2*time.Minute, "overall deadline")
	flags.BoolP("help", "h", false, "show help")

	if err := flags.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return
		}
		os.Exit(2)
	}
	if help, _ := flags.GetBool("help"); help {
		fmt.Println("Usage: seed --tenant <uuid> [--file seeds/default.yaml]")
		fmt.Print(flags.FlagUsages())
		return
	}

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync(log)

	file, err := seed.ReadFile(filePath)
	if err != nil {
		log.Fatal("Invalid seed file", zap.String("file", filePath), zap.Error(err))
	}
	log.Info("Seed file parsed",
		zap.String("file", filePath),
		zap.Int("accounts", len(file.Accounts)),
		zap.Int("periods", len(file.Periods)),
		zap.Int("tax_rules", len(file.TaxRules)),
		zap.Int("retention_policies", len(file.RetentionPolicies)),
	)
	if dryRun {
		return
	}

	tenantID, err := uuid.Parse(tenant)
	if err != nil {
		log.Fatal("A valid --tenant is required", zap.String("tenant", tenant))
	}
	actorID, err := uuid.Parse(actor)
	if err != nil {
		log.Fatal("Invalid --actor", zap.String("actor", actor))
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, logger.NewGormLogger(log, logger.MapGormLogLevel(logLevel), logger.WithSlowThreshold(time.Second)))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	uow := persistence.NewGormUnitOfWork(db.DB, nil, persistence.WithLockTimeout(cfg.Ledger.LockTimeout))
	settings := ledgerapp.NewSettings(cfg.Ledger)
	recorder := auditapp.NewRecorder(settings.AuditTimeout, log)
	journal := ledgerapp.NewJournalService(uow, recorder, settings, log)
	executor := retentionapp.NewExecutor(uow, persistence.NewGormRecordStore(db.DB), persistence.NewGormArchiveSink(db.DB), cfg.Retention.BatchSize, log)

	loader := seed.NewLoader(
		ledgerapp.NewAccountService(uow, recorder, settings, log),
		ledgerapp.NewPeriodService(uow, journal, recorder, settings, log),
		posting.NewARService(uow, journal, recorder, settings, log),
		retentionapp.NewService(uow, executor, recorder, log),
		log,
	)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if _, err := loader.Load(ctx, tenantID, actorID, file); err != nil {
		log.Fatal("Seed failed", zap.Error(err))
	}
}
