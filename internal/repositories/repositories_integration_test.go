//go:build integration

package repositories_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Ramsey-B/clover/internal/repositories/crawlrecord"
	"github.com/Ramsey-B/clover/internal/repositories/matchdecision"
	"github.com/Ramsey-B/clover/internal/repositories/registryrecord"
	"github.com/Ramsey-B/clover/internal/repositories/unifiedcompany"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/fixtures"
	"github.com/Ramsey-B/clover/pkg/models"
)

func getTestLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

// startPostgres runs a throwaway Postgres and applies the migrations
func startPostgres(t *testing.T) *database.DatabaseInstance {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:15-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "clover",
				"POSTGRES_PASSWORD": "clover",
				"POSTGRES_DB":       "clover",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://clover:clover@%s:%s/clover?sslmode=disable", host, port.Port())
	db, err := database.Connect(ctx, dsn, database.PoolConfig{MaxOpenConns: 10}, getTestLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	migrations := database.NewMigrationService(getTestLogger(), &database.MigrationConfig{
		MigrationFolderPath: "../../db/pg",
	})
	require.NoError(t, migrations.Migrate(ctx, db, "clover"))

	return db
}

func TestRepositories_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := startPostgres(t)
	logger := getTestLogger()
	ctx := context.Background()

	_, err := db.ExecContext(ctx, `
		INSERT INTO raw_common_crawl (id, company_name, industry, url) VALUES
			('c2', 'Other Co', NULL, 'other.example'),
			('c1', 'Example Pty Ltd', 'retail', 'example.com.au')`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `
		INSERT INTO raw_abr (id, abn, entity_name, address, state, postcode) VALUES
			('r1', '12345678901', 'EXAMPLE', '1 Main St, Sydney', 'nsw', '2000'),
			('r2', NULL, 'NO NUMBER', NULL, NULL, NULL)`)
	require.NoError(t, err)

	t.Run("list sources", func(t *testing.T) {
		crawl, err := crawlrecord.NewRepository(db, logger).List(ctx)
		require.NoError(t, err)
		require.Len(t, crawl, 2)
		assert.Equal(t, "c1", crawl[0].ID)
		assert.Equal(t, "Example Pty Ltd", *crawl[0].Name)
		assert.Nil(t, crawl[1].Industry)

		registry, err := registryrecord.NewRepository(db, logger).List(ctx)
		require.NoError(t, err)
		require.Len(t, registry, 2)
		assert.Equal(t, "12345678901", registry[0].BusinessNumber)
		assert.Equal(t, "", registry[1].BusinessNumber)
	})

	t.Run("upsert is idempotent and last write wins", func(t *testing.T) {
		repo := unifiedcompany.NewRepository(db, logger, unifiedcompany.Config{ChunkSize: 2, Workers: 3})

		companies := make([]models.UnifiedCompany, 0, 7)
		for i := 0; i < 7; i++ {
			companies = append(companies, models.UnifiedCompany{
				BusinessNumber: fmt.Sprintf("%011d", i),
				CompanyName:    fmt.Sprintf("Company %d", i),
				Confidence:     90,
			})
		}

		written, err := repo.UpsertBatch(ctx, companies)
		require.NoError(t, err)
		assert.Equal(t, 7, written)

		companies[3].SourceURL = "updated.example"
		companies[3].Confidence = 99
		_, err = repo.UpsertBatch(ctx, append(companies, companies[3]))
		require.NoError(t, err)

		count, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 7, count)

		got, err := repo.Get(ctx, fmt.Sprintf("%011d", 3))
		require.NoError(t, err)
		assert.Equal(t, "updated.example", got.SourceURL)
		assert.Equal(t, 99, got.Confidence)
		assert.True(t, !got.UpdatedAt.Before(got.CreatedAt))

		_, err = repo.Get(ctx, "missing")
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
	})

	t.Run("record decisions", func(t *testing.T) {
		repo := matchdecision.NewRepository(db, logger)
		runID := "3b241101-e2bb-4255-8caf-4136c566a962"

		decisions := []models.MatchDecision{{
			Pair: models.CandidatePair{
				Crawl:      models.CrawlRecord{ID: "c1"},
				Registry:   models.RegistryRecord{BusinessNumber: "12345678901"},
				BlockKey:   "exa",
				Similarity: 100,
			},
			Confidence: 80,
			Rationale:  "fallback",
			Source:     models.DecisionSourceFallback,
		}}

		require.NoError(t, repo.RecordBatch(ctx, runID, decisions, 90))
		decisions[0].Confidence = 96
		decisions[0].Source = models.DecisionSourceExternal
		require.NoError(t, repo.RecordBatch(ctx, runID, decisions, 90))

		records, err := repo.ListByRun(ctx, runID)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, 96, records[0].Confidence)
		assert.True(t, records[0].Accepted)
		assert.Equal(t, "external_service", records[0].Source)
	})
	t.Run("stage fixtures", func(t *testing.T) {
		f, err := fixtures.Load("../../testdata/fixtures.yaml")
		require.NoError(t, err)

		crawlRepo := crawlrecord.NewRepository(db, logger)
		registryRepo := registryrecord.NewRepository(db, logger)

		// staging twice replaces rows by id
		for i := 0; i < 2; i++ {
			require.NoError(t, crawlRepo.InsertBatch(ctx, f.Crawl))
			require.NoError(t, registryRepo.InsertBatch(ctx, f.Registry))
		}

		crawl, err := crawlRepo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, crawl, 2+len(f.Crawl))

		registry, err := registryRepo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, registry, 2+len(f.Registry))
	})
}
