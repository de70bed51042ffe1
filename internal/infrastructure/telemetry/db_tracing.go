package telemetry

import (
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const queryStartKey = "telemetry:query_start"

// DBTracingConfig holds configuration for database tracing
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool // include query variables in spans; never in production
	SlowQueryThresh time.Duration
	DBName          string
}

// InstrumentDB registers otelgorm and a slow query logger on db
func InstrumentDB(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBName)}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	if cfg.SlowQueryThresh > 0 {
		if err := registerSlowQueryLog(db, cfg.SlowQueryThresh, logger); err != nil {
			return err
		}
	}

	logger.Info("database tracing enabled",
		zap.Bool("log_full_sql", cfg.LogFullSQL),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThresh),
	)
	return nil
}

func registerSlowQueryLog(db *gorm.DB, threshold time.Duration, logger *zap.Logger) error {
	before := func(tx *gorm.DB) {
		tx.InstanceSet(queryStartKey, time.Now())
	}
	after := func(tx *gorm.DB) {
		v, ok := tx.InstanceGet(queryStartKey)
		if !ok {
			return
		}
		elapsed := time.Since(v.(time.Time))
		if elapsed < threshold {
			return
		}
		logger.Warn("slow query",
			zap.String("table", tx.Statement.Table),
			zap.Duration("elapsed", elapsed),
			zap.Int64("rows", tx.RowsAffected),
		)
	}

	cb := db.Callback()
	steps := []struct {
		name   string
		before error
		after  error
	}{
		{"create", cb.Create().Before("gorm:create").Register("telemetry:before_create", before), cb.Create().After("gorm:create").Register("telemetry:after_create", after)},
		{"query", cb.Query().Before("gorm:query").Register("telemetry:before_query", before), cb.Query().After("gorm:query").Register("telemetry:after_query", after)},
		{"update", cb.Update().Before("gorm:update").Register("telemetry:before_update", before), cb.Update().After("gorm:update").Register("telemetry:after_update", after)},
		{"delete", cb.Delete().Before("gorm:delete").Register("telemetry:before_delete", before), cb.Delete().After("gorm:delete").Register("telemetry:after_delete", after)},
		{"raw", cb.Raw().Before("gorm:raw").Register("telemetry:before_raw", before), cb.Raw().After("gorm:raw").Register("telemetry:after_raw", after)},
	}
	for _, s := range steps {
		if s.before != nil {
			return s.before
		}
		if s.after != nil {
			return s.after
		}
	}
	return nil
}
