package crawlrecord

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const tableName = "raw_common_crawl"

var columns = []string{"id", "company_name", "industry", "url"}

// Repository reads the staged web-crawl batch
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new crawl record repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// List returns every staged crawl record ordered by id
func (r *Repository) List(ctx context.Context) ([]models.CrawlRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "crawlrecord.Repository.List")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.OrderBy("id")

	query, args := sb.Build()
	var records []models.CrawlRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list crawl records")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list crawl records")
	}

	r.logger.WithContext(ctx).WithField("count", len(records)).Debug("Loaded crawl records")
	return records, nil
}

// InsertBatch stages crawl records, replacing rows with the same id
func (r *Repository) InsertBatch(ctx context.Context, records []models.CrawlRecord) error {
	ctx, span := tracing.StartSpan(ctx, "crawlrecord.Repository.InsertBatch")
	defer span.End()

	if len(records) == 0 {
		return nil
	}

	err := r.db.WithTx(ctx, nil, func(tx *sqlx.Tx) error {
		for _, batch := range database.Batches(records, database.MaxRowsPerStatement(len(columns))) {
			ib := database.NewInsertBuilder()
			ib.InsertInto(tableName)
			ib.Cols(columns...)
			for _, rec := range batch {
				ib.Values(rec.ID, rec.Name, rec.Industry, rec.URL)
			}

			query, args := ib.Build()
			query += database.UpsertClause([]string{"id"}, columns[1:])
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("count", len(records)).Error("Failed to stage crawl records")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to stage crawl records")
	}
	return nil
}
