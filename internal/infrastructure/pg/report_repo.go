package pg

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"arbscan-service/internal/application"
	"arbscan-service/internal/domain"
	"arbscan-service/internal/infrastructure/logx"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	_ application.Publisher     = (*ReportRepo)(nil)
	_ application.ReportHistory = (*ReportRepo)(nil)
)

// ReportRepo persists every published scan with its ranked opportunities.
type ReportRepo struct {
	db  *DB
	uow *UnitOfWork
}

func NewReportRepo(db *DB) *ReportRepo {
	return &ReportRepo{db: db, uow: &UnitOfWork{Pool: db.Pool}}
}

func (r *ReportRepo) Publish(ctx context.Context, report domain.ScanReport) error {
	return r.uow.Do(ctx, func(ctx context.Context) error {
		if err := r.insertScan(ctx, report); err != nil {
			return err
		}
		return r.insertOpportunities(ctx, report)
	})
}

func (r *ReportRepo) insertScan(ctx context.Context, report domain.ScanReport) error {
	const ins = `
        INSERT INTO scans(id, cycle, started_at, finished_at, attempted, succeeded, failed, failures)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (id) DO NOTHING`
	failures := report.Diagnostics.Failures
	if failures == nil {
		failures = []domain.FetchFailure{}
	}
	failuresJSON, err := json.Marshal(failures)
	if err != nil {
		return fmt.Errorf("pg: encode failures: %w", err)
	}
	log := logx.L().With(
		zap.String("repo", "report"),
		zap.String("operation", "insertScan"),
		zap.String("scan_id", report.ID),
	)
	d := report.Diagnostics
	tag, err := conn(ctx, r.db.Pool).Exec(ctx, ins,
		report.ID, report.Cycle, report.StartedAt, report.FinishedAt,
		d.Attempted, d.Succeeded, d.Failed, failuresJSON,
	)
	if err != nil {
		log.Error("sql.exec_failed", zap.Error(err))
		return err
	}
	log.Debug("sql.exec_success", zap.Int64("rows_affected", tag.RowsAffected()))
	return nil
}

func (r *ReportRepo) insertOpportunities(ctx context.Context, report domain.ScanReport) error {
	if report.Opportunities.Empty() {
		return nil
	}
	const ins = `
        INSERT INTO opportunities(scan_id, rank, pair, buy_source, sell_source, buy_price, sell_price, profit_pct, detected_at)
        VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8::numeric, $9)
        ON CONFLICT (scan_id, rank) DO NOTHING`
	batch := &pgx.Batch{}
	for i, o := range report.Opportunities {
		batch.Queue(ins, report.ID, i+1, string(o.Pair), o.BuySource, o.SellSource,
			o.BuyPrice.String(), o.SellPrice.String(), o.ProfitPct.String(), o.DetectedAt)
	}
	results := conn(ctx, r.db.Pool).SendBatch(ctx, batch)
	for range report.Opportunities {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			logx.L().Error("sql.batch_failed", zap.String("scan_id", report.ID), zap.Error(err))
			return err
		}
	}
	return results.Close()
}

// ListRecent returns the most recent opportunities, newest scan first and
// ranked within a scan.
func (r *ReportRepo) ListRecent(ctx context.Context, limit int) ([]domain.ArbitrageOpportunity, error) {
	if limit <= 0 {
		return []domain.ArbitrageOpportunity{}, nil
	}
	const q = `
        SELECT pair, buy_source, sell_source, buy_price::text, sell_price::text, profit_pct::text, detected_at
        FROM opportunities
        ORDER BY detected_at DESC, scan_id DESC, rank ASC
        LIMIT $1`
	rows, err := conn(ctx, r.db.Pool).Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ArbitrageOpportunity, 0, limit)
	for rows.Next() {
		var (
			o                 domain.ArbitrageOpportunity
			pair              string
			buy, sell, profit string
			detectedAt        time.Time
		)
		if err := rows.Scan(&pair, &o.BuySource, &o.SellSource, &buy, &sell, &profit, &detectedAt); err != nil {
			return nil, err
		}
		o.Pair = domain.Pair(pair)
		if o.BuyPrice, err = decimal.NewFromString(buy); err != nil {
			return nil, err
		}
		if o.SellPrice, err = decimal.NewFromString(sell); err != nil {
			return nil, err
		}
		if o.ProfitPct, err = decimal.NewFromString(profit); err != nil {
			return nil, err
		}
		o.DetectedAt = detectedAt.UTC()
		out = append(out, o)
	}
	return out, rows.Err()
}
