package unifiedcompany

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const tableName = "unified_companies"

var columns = []string{
	"business_number",
	"company_name",
	"entity_type",
	"entity_status",
	"address",
	"postcode",
	"state",
	"effective_date",
	"industry",
	"source_url",
	"confidence",
	"created_at",
	"updated_at",
}

// every column except the key and created_at is overwritten on conflict
var updateColumns = columns[1 : len(columns)-2]

// Config controls batch upserts
type Config struct {
	ChunkSize int // Rows per INSERT statement and transaction (default: 5000)
	Workers   int // Chunks written concurrently (default: 4)
}

// DefaultConfig returns default upsert configuration
func DefaultConfig() Config {
	return Config{
		ChunkSize: 5000,
		Workers:   4,
	}
}

// Repository persists unified companies keyed by business number
type Repository struct {
	db     database.DB
	logger ectologger.Logger
	config Config
}

// NewRepository creates a new unified company repository
func NewRepository(db database.DB, logger ectologger.Logger, config Config) *Repository {
	if config.ChunkSize < 1 {
		config.ChunkSize = DefaultConfig().ChunkSize
	}
	if config.Workers < 1 {
		config.Workers = 1
	}
	return &Repository{
		db:     db,
		logger: logger,
		config: config,
	}
}

// UpsertBatch writes companies with last-write-wins semantics on business
// number and returns how many rows were written.
//
// Duplicate keys in the batch are collapsed first (the last one wins). Rows are
// sorted by business number and split into chunks; each chunk is one statement
// in its own transaction, so chunks never share a key and can run
// concurrently. Chunks committed before a failure or cancellation stay
// committed.
func (r *Repository) UpsertBatch(ctx context.Context, companies []models.UnifiedCompany) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "unifiedcompany.Repository.UpsertBatch")
	defer span.End()

	rows := collapse(companies)
	if len(rows) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	chunks := database.Batches(rows, r.config.ChunkSize)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(r.config.Workers)

	written := make([]int, len(chunks))
	for i, rows := range chunks {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			err := r.db.WithTx(egCtx, nil, func(tx *sqlx.Tx) error {
				return r.upsertChunk(egCtx, tx, rows, now)
			})
			if err != nil {
				return err
			}
			written[i] = len(rows)
			metrics.UnifiedCompaniesUpserted.Add(float64(len(rows)))
			return nil
		})
	}

	err := eg.Wait()

	total := 0
	for _, n := range written {
		total += n
	}

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"companies": len(rows),
		"chunks":    len(chunks),
		"written":   total,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			log.WithError(err).Warn("Unified company upsert interrupted")
			return total, err
		}
		log.WithError(err).Error("Failed to upsert unified companies")
		return total, httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert unified companies")
	}

	log.Info("Upserted unified companies")
	return total, nil
}

func (r *Repository) upsertChunk(ctx context.Context, tx *sqlx.Tx, rows []models.UnifiedCompany, now time.Time) error {
	ib := database.NewInsertBuilder()
	ib.InsertInto(tableName)
	ib.Cols(columns...)
	for _, c := range rows {
		ib.Values(
			c.BusinessNumber,
			c.CompanyName,
			c.EntityType,
			c.EntityStatus,
			c.Address,
			c.Postcode,
			c.State,
			c.EffectiveDate,
			c.Industry,
			c.SourceURL,
			c.Confidence,
			now,
			now,
		)
	}

	query, args := ib.Build()
	query += database.UpsertClause([]string{"business_number"}, updateColumns, "updated_at = EXCLUDED.updated_at")

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert chunk [%s..%s]: %w", rows[0].BusinessNumber, rows[len(rows)-1].BusinessNumber, err)
	}
	return nil
}

// Get retrieves a unified company by business number
func (r *Repository) Get(ctx context.Context, businessNumber string) (*models.UnifiedCompany, error) {
	ctx, span := tracing.StartSpan(ctx, "unifiedcompany.Repository.Get")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(sb.Equal("business_number", businessNumber))

	query, args := sb.Build()
	var company models.UnifiedCompany
	if err := r.db.GetContext(ctx, &company, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("unified company %s not found", businessNumber))
		}
		r.logger.WithContext(ctx).WithError(err).WithField("business_number", businessNumber).Error("Failed to get unified company")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get unified company")
	}

	return &company, nil
}

// Count returns the number of unified companies
func (r *Repository) Count(ctx context.Context) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "unifiedcompany.Repository.Count")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From(tableName)

	query, args := sb.Build()
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count unified companies")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count unified companies")
	}
	return count, nil
}

// collapse keeps the last company per business number and sorts by key
func collapse(companies []models.UnifiedCompany) []models.UnifiedCompany {
	latest := make(map[string]models.UnifiedCompany, len(companies))
	for _, c := range companies {
		if c.BusinessNumber == "" {
			continue
		}
		latest[c.BusinessNumber] = c
	}

	rows := make([]models.UnifiedCompany, 0, len(latest))
	for _, c := range latest {
		rows = append(rows, c)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].BusinessNumber < rows[j].BusinessNumber
	})
	return rows
}
