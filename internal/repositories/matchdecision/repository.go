package matchdecision

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const tableName = "match_decisions"

var columns = []string{
	"id",
	"run_id",
	"crawl_id",
	"business_number",
	"block_key",
	"similarity",
	"confidence",
	"rationale",
	"source",
	"accepted",
	"created_at",
	"updated_at",
}

// Repository keeps the audit trail of adjudicated candidate pairs
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new match decision repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// RecordBatch stores the decisions of a run. A pair decided again in a later
// run overwrites its previous row.
func (r *Repository) RecordBatch(ctx context.Context, runID string, decisions []models.MatchDecision, ceiling int) error {
	ctx, span := tracing.StartSpan(ctx, "matchdecision.Repository.RecordBatch")
	defer span.End()

	records := toRecords(runID, decisions, ceiling, time.Now().UTC())
	if len(records) == 0 {
		return nil
	}

	err := r.db.WithTx(ctx, nil, func(tx *sqlx.Tx) error {
		for _, batch := range database.Batches(records, database.MaxRowsPerStatement(len(columns))) {
			ib := database.NewInsertBuilder()
			ib.InsertInto(tableName)
			ib.Cols(columns...)
			for _, rec := range batch {
				ib.Values(rec.ID, rec.RunID, rec.CrawlID, rec.BusinessNumber, rec.BlockKey, rec.Similarity,
					rec.Confidence, rec.Rationale, rec.Source, rec.Accepted, rec.CreatedAt, rec.UpdatedAt)
			}

			query, args := ib.Build()
			query += database.UpsertClause(
				[]string{"crawl_id", "business_number"},
				[]string{"run_id", "block_key", "similarity", "confidence", "rationale", "source", "accepted", "updated_at"},
			)

			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"run_id":    runID,
			"decisions": len(records),
		}).Error("Failed to record match decisions")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to record match decisions")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"run_id":    runID,
		"decisions": len(records),
	}).Debug("Recorded match decisions")
	return nil
}

// ListByRun returns the decisions recorded by a run
func (r *Repository) ListByRun(ctx context.Context, runID string) ([]models.MatchDecisionRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "matchdecision.Repository.ListByRun")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(sb.Equal("run_id", runID))
	sb.OrderBy("crawl_id", "business_number")

	query, args := sb.Build()
	var records []models.MatchDecisionRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("run_id", runID).Error("Failed to list match decisions")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list match decisions")
	}
	return records, nil
}

// toRecords converts decisions to rows, keeping the last decision per pair so
// one statement never touches the same key twice.
func toRecords(runID string, decisions []models.MatchDecision, ceiling int, now time.Time) []models.MatchDecisionRecord {
	position := make(map[[2]string]int, len(decisions))
	records := make([]models.MatchDecisionRecord, 0, len(decisions))

	for _, d := range decisions {
		rec := models.MatchDecisionRecord{
			ID:             uuid.New().String(),
			RunID:          runID,
			CrawlID:        d.Pair.Crawl.ID,
			BusinessNumber: d.Pair.Registry.BusinessNumber,
			BlockKey:       d.Pair.BlockKey,
			Similarity:     d.Pair.Similarity,
			Confidence:     d.Confidence,
			Rationale:      d.Rationale,
			Source:         string(d.Source),
			Accepted:       d.Confidence >= ceiling,
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		key := [2]string{rec.CrawlID, rec.BusinessNumber}
		if i, ok := position[key]; ok {
			records[i] = rec
			continue
		}
		position[key] = len(records)
		records = append(records, rec)
	}
	return records
}
