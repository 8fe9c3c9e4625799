package registryrecord

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

const tableName = "raw_abr"

var columns = []string{
	"id",
	"abn",
	"entity_name",
	"entity_type",
	"entity_status",
	"address",
	"postcode",
	"state",
	"start_date",
}

// Repository reads the staged business-registry batch
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new registry record repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// List returns every staged registry record ordered by id.
// abn is coalesced so a missing identifier surfaces as "" and is skipped by validation.
func (r *Repository) List(ctx context.Context) ([]models.RegistryRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "registryrecord.Repository.List")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(
		"id",
		"COALESCE(abn, '') AS abn",
		"entity_name",
		"entity_type",
		"entity_status",
		"address",
		"postcode",
		"state",
		"start_date",
	)
	sb.From(tableName)
	sb.OrderBy("id")

	query, args := sb.Build()
	var records []models.RegistryRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list registry records")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list registry records")
	}

	r.logger.WithContext(ctx).WithField("count", len(records)).Debug("Loaded registry records")
	return records, nil
}

// InsertBatch stages registry records, replacing rows with the same id.
// An empty business number is stored as NULL.
func (r *Repository) InsertBatch(ctx context.Context, records []models.RegistryRecord) error {
	ctx, span := tracing.StartSpan(ctx, "registryrecord.Repository.InsertBatch")
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
				var abn *string
				if rec.BusinessNumber != "" {
					abn = &rec.BusinessNumber
				}
				ib.Values(rec.ID, abn, rec.Name, rec.EntityType, rec.EntityStatus, rec.Address, rec.Postcode, rec.State, rec.EffectiveDate)
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
		r.logger.WithContext(ctx).WithError(err).WithField("count", len(records)).Error("Failed to stage registry records")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to stage registry records")
	}
	return nil
}
