package backup

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/identitycore/idcenter/pkg/models"
)

// CatalogueStore defines the persistence interface for the backup metadata
// catalogue: the small, queryable record describing each backup, separate
// from the (much larger) resource graph the storage backend holds.
// Implementations must be safe for concurrent use.
type CatalogueStore interface {
	SaveMetadata(ctx context.Context, meta models.BackupMetadata) error
	GetMetadata(ctx context.Context, backupID string) (models.BackupMetadata, error)
	ListMetadata(ctx context.Context) ([]models.BackupMetadata, error)
	DeleteMetadata(ctx context.Context, backupID string) error
}

// scannable is satisfied by both pgx.Row and pgx.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// PgCatalogueStore implements CatalogueStore using PostgreSQL via pgxpool.
type PgCatalogueStore struct {
	pool *pgxpool.Pool
}

// NewPgCatalogueStore creates a new PostgreSQL-backed catalogue store.
func NewPgCatalogueStore(pool *pgxpool.Pool) *PgCatalogueStore {
	return &PgCatalogueStore{pool: pool}
}

const metadataCols = `backup_id, timestamp, source_instance_arn, source_account,
	source_region, type, version, encryption_info, resource_counts,
	size_bytes, checksum`

// SaveMetadata inserts or updates a backup's catalogue entry.
func (s *PgCatalogueStore) SaveMetadata(ctx context.Context, meta models.BackupMetadata) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO backup_metadata (`+metadataCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (backup_id) DO UPDATE SET
			resource_counts=$9, size_bytes=$10, checksum=$11`,
		meta.BackupID, meta.Timestamp, meta.SourceInstanceArn, meta.SourceAccount,
		meta.SourceRegion, string(meta.Type), meta.Version, meta.EncryptionInfo,
		meta.ResourceCounts, meta.SizeBytes, meta.Checksum)
	if err != nil {
		return fmt.Errorf("catalogue: save metadata: %w", err)
	}
	return nil
}

// GetMetadata retrieves a backup's catalogue entry by id.
func (s *PgCatalogueStore) GetMetadata(ctx context.Context, backupID string) (models.BackupMetadata, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+metadataCols+` FROM backup_metadata WHERE backup_id = $1`, backupID)
	return scanMetadata(row)
}

// ListMetadata returns every catalogue entry, most recent first.
func (s *PgCatalogueStore) ListMetadata(ctx context.Context) ([]models.BackupMetadata, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+metadataCols+` FROM backup_metadata ORDER BY timestamp DESC`)
	if err != nil {
		return nil, fmt.Errorf("catalogue: list metadata: %w", err)
	}
	defer rows.Close()

	var out []models.BackupMetadata
	for rows.Next() {
		meta, scanErr := scanMetadata(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, meta)
	}
	return out, rows.Err()
}

// DeleteMetadata removes a backup's catalogue entry by id.
func (s *PgCatalogueStore) DeleteMetadata(ctx context.Context, backupID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM backup_metadata WHERE backup_id = $1`, backupID)
	if err != nil {
		return fmt.Errorf("catalogue: delete metadata: %w", err)
	}
	return nil
}

func scanMetadata(s scannable) (models.BackupMetadata, error) {
	var meta models.BackupMetadata
	var backupType string
	err := s.Scan(
		&meta.BackupID, &meta.Timestamp, &meta.SourceInstanceArn, &meta.SourceAccount,
		&meta.SourceRegion, &backupType, &meta.Version, &meta.EncryptionInfo,
		&meta.ResourceCounts, &meta.SizeBytes, &meta.Checksum)
	if err != nil {
		if err == pgx.ErrNoRows {
			return models.BackupMetadata{}, fmt.Errorf("catalogue: backup not found")
		}
		return models.BackupMetadata{}, fmt.Errorf("catalogue: scan metadata: %w", err)
	}
	meta.Type = models.BackupType(backupType)
	return meta, nil
}

// logStoreErr logs a catalogue persistence error without failing the
// operation. The storage backend's own blob remains authoritative; the
// catalogue is a queryable index that catches up on the next successful
// write.
func logStoreErr(operation string, err error) {
	if err != nil {
		log.Printf("backup: warning: catalogue %s failed: %v", operation, err)
	}
}
