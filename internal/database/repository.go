package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/aegisshield/entity-network/internal/config"
	"github.com/aegisshield/entity-network/internal/models"
)

// ErrNotFound is returned when a looked-up row does not exist
var ErrNotFound = errors.New("not found")

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Repository persists resolved entities and resolution jobs in PostgreSQL
type Repository struct {
	sqlDB  *sql.DB
	db     *gorm.DB
	logger *slog.Logger
}

// NewRepository opens the connection pool and verifies it
func NewRepository(cfg config.DatabaseConfig, logger *slog.Logger) (*Repository, error) {
	sqlDB, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxConnections)
	sqlDB.SetMaxIdleConns(cfg.MaxConnections / 2)
	sqlDB.SetConnMaxLifetime(cfg.MaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.MaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to initialise gorm: %w", err)
	}

	return &Repository{
		sqlDB:  sqlDB,
		db:     db,
		logger: logger,
	}, nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.sqlDB.Close()
}

// Ping checks the database connection
func (r *Repository) Ping(ctx context.Context) error {
	return r.sqlDB.PingContext(ctx)
}

// Migrate applies the embedded schema migrations
func (r *Repository) Migrate() error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open migration source: %w", err)
	}

	driver, err := migratepostgres.WithInstance(r.sqlDB, &migratepostgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	r.logger.Info("Database migrations completed successfully")
	return nil
}

// Entity operations

// SaveEntities upserts resolved entities keyed by resolved id
func (r *Repository) SaveEntities(ctx context.Context, entities []models.ResolvedEntity) error {
	if len(entities) == 0 {
		return nil
	}

	rows := make([]ResolvedEntityRow, 0, len(entities))
	for _, entity := range entities {
		row, err := toEntityRow(entity)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "resolved_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"canonical_name", "entity_kind", "member_record_ids", "source_systems",
				"attributes", "match_scores", "confidence", "updated_at",
			}),
		}).
		CreateInBatches(rows, 500).Error
	if err != nil {
		return fmt.Errorf("failed to save entities: %w", err)
	}

	r.logger.Debug("Entities saved", "count", len(rows))
	return nil
}

// GetEntity retrieves a resolved entity by id
func (r *Repository) GetEntity(ctx context.Context, resolvedID string) (*models.ResolvedEntity, error) {
	var row ResolvedEntityRow
	err := r.db.WithContext(ctx).First(&row, "resolved_id = ?", resolvedID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("entity %s: %w", resolvedID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get entity: %w", err)
	}

	entity, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

// ListEntities lists resolved entities ordered by id, optionally filtered by kind
func (r *Repository) ListEntities(ctx context.Context, kind string, limit, offset int) ([]models.ResolvedEntity, error) {
	query := r.db.WithContext(ctx).Order("resolved_id")
	if kind != "" {
		query = query.Where("entity_kind = ?", kind)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []ResolvedEntityRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}

	entities := make([]models.ResolvedEntity, 0, len(rows))
	for _, row := range rows {
		entity, err := row.toModel()
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

// Resolution job operations

// SaveJob inserts or updates a resolution job
func (r *Repository) SaveJob(ctx context.Context, job *models.ResolutionJob) error {
	row := toJobRow(job)
	if err := r.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("failed to save resolution job: %w", err)
	}
	return nil
}

// GetJob retrieves a resolution job by id
func (r *Repository) GetJob(ctx context.Context, id string) (*models.ResolutionJob, error) {
	var row ResolutionJobRow
	err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("resolution job %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get resolution job: %w", err)
	}

	job := row.toModel()
	return &job, nil
}
