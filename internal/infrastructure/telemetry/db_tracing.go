package telemetry

import (
	"context"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool
	SlowQueryThresh time.Duration
	DBName          string
}

type queryStartKey struct{}

// RegisterDBTracing installs otelgorm and a slow-query logger on db.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
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

	thresh := cfg.SlowQueryThresh
	if thresh <= 0 {
		thresh = 200 * time.Millisecond
	}
	before := func(tx *gorm.DB) {
		if tx.Statement.Context != nil {
			tx.Statement.Context = context.WithValue(tx.Statement.Context, queryStartKey{}, time.Now())
		}
	}
	after := func(tx *gorm.DB) {
		if tx.Statement.Context == nil {
			return
		}
		start, ok := tx.Statement.Context.Value(queryStartKey{}).(time.Time)
		if !ok {
			return
		}
		if d := time.Since(start); d >= thresh {
			logger.Warn("Slow query",
				zap.String("table", tx.Statement.Table),
				zap.Duration("duration", d),
				zap.Int64("rows", tx.Statement.RowsAffected),
				zap.String("trace_id", GetTraceID(tx.Statement.Context)),
			)
		}
	}

	cb := db.Callback()
	for _, reg := range []error{
		cb.Create().Before("gorm:create").Register("timing:before_create", before),
		cb.Query().Before("gorm:query").Register("timing:before_query", before),
		cb.Update().Before("gorm:update").Register("timing:before_update", before),
		cb.Delete().Before("gorm:delete").Register("timing:before_delete", before),
		cb.Create().After("gorm:create").Register("timing:after_create", after),
		cb.Query().After("gorm:query").Register("timing:after_query", after),
		cb.Update().After("gorm:update").Register("timing:after_update", after),
		cb.Delete().After("gorm:delete").Register("timing:after_delete", after),
	} {
		if reg != nil {
			return reg
		}
	}

	logger.Info("Database tracing enabled", zap.Duration("slow_query_threshold", thresh))
	return nil
}
