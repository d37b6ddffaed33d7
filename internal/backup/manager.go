package backup

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/identitycore/idcenter/pkg/models"
)

// StorageInfo summarizes the storage backend's current occupancy, the
// payload get_storage_info() returns.
type StorageInfo struct {
	BackupCount int   `json:"backup_count"`
	TotalBytes  int64 `json:"total_bytes"`
}

// Service is the Storage Engine (§6 "Storage back-end"): it owns a
// StorageBackend for the backup byte blobs and an optional CatalogueStore
// for the queryable metadata index, and exposes the store/retrieve/list/
// delete/verify_integrity/get_storage_info/get_backup_metadata contract.
//
// This replaces the donor's job-centric BackupManager: the new domain has
// no recurring "BackupJob" concept (scheduling is an external collaborator
// that calls Store directly; cmd/main.go's cron job runs only the retention
// sweep), so
// the manager collapses to a thin facade over storage plus an optional
// catalogue, the same shape the donor's manager held around StorageBackend
// but without the in-memory job/record maps.
type Service struct {
	storage   StorageBackend
	catalogue CatalogueStore // optional: nil means catalogue entries are derived from storage alone
}

// NewService constructs a Service. catalogue may be nil, in which case
// List/GetBackupMetadata fall back to reading every stored blob's
// metadata directly from the storage backend.
func NewService(storage StorageBackend, catalogue CatalogueStore) *Service {
	return &Service{storage: storage, catalogue: catalogue}
}

func backupPath(backupID string) string {
	return fmt.Sprintf("backups/%s.json", backupID)
}

// Store persists a BackupData: the byte blob to the storage backend and, if
// configured, its metadata to the catalogue. Returns the backup's id.
func (s *Service) Store(ctx context.Context, data models.BackupData) (string, error) {
	serialized, err := Serialize(data)
	if err != nil {
		return "", err
	}

	path := backupPath(data.Metadata.BackupID)
	if err := s.storage.Write(ctx, path, serialized); err != nil {
		return "", fmt.Errorf("backup: failed to store %q: %w", data.Metadata.BackupID, err)
	}

	if s.catalogue != nil {
		reloaded, err := Deserialize(serialized)
		if err != nil {
			return "", err
		}
		if err := s.catalogue.SaveMetadata(ctx, reloaded.Metadata); err != nil {
			logStoreErr("save metadata", err)
		}
	}

	log.Printf("backup: stored %s (%d bytes)", data.Metadata.BackupID, len(serialized))
	return data.Metadata.BackupID, nil
}

// Retrieve loads a backup's full resource graph by id.
func (s *Service) Retrieve(ctx context.Context, backupID string) (models.BackupData, error) {
	data, err := s.storage.Read(ctx, backupPath(backupID))
	if err != nil {
		return models.BackupData{}, fmt.Errorf("backup: failed to retrieve %q: %w", backupID, err)
	}
	return Deserialize(data)
}

// List returns the catalogue entry for every stored backup, most recent
// first. When no CatalogueStore is configured, entries are derived by
// reading each stored blob's metadata directly.
func (s *Service) List(ctx context.Context) ([]models.BackupMetadata, error) {
	if s.catalogue != nil {
		return s.catalogue.ListMetadata(ctx)
	}

	paths, err := s.storage.List(ctx, "backups")
	if err != nil {
		return nil, fmt.Errorf("backup: failed to list backups: %w", err)
	}

	var out []models.BackupMetadata
	for _, path := range paths {
		data, err := s.storage.Read(ctx, path)
		if err != nil {
			logStoreErr("read during list", err)
			continue
		}
		backupData, err := Deserialize(data)
		if err != nil {
			logStoreErr("parse during list", err)
			continue
		}
		out = append(out, backupData.Metadata)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

// Delete removes a backup's blob and catalogue entry.
func (s *Service) Delete(ctx context.Context, backupID string) error {
	if err := s.storage.Delete(ctx, backupPath(backupID)); err != nil {
		return fmt.Errorf("backup: failed to delete %q: %w", backupID, err)
	}
	if s.catalogue != nil {
		if err := s.catalogue.DeleteMetadata(ctx, backupID); err != nil {
			logStoreErr("delete metadata", err)
		}
	}
	log.Printf("backup: deleted %s", backupID)
	return nil
}

// VerifyIntegrity retrieves a backup and recomputes its checksum.
func (s *Service) VerifyIntegrity(ctx context.Context, backupID string) error {
	data, err := s.Retrieve(ctx, backupID)
	if err != nil {
		return err
	}
	return VerifyIntegrity(data)
}

// GetBackupMetadata returns one backup's metadata without loading its full
// resource graph, preferring the catalogue when configured.
func (s *Service) GetBackupMetadata(ctx context.Context, backupID string) (models.BackupMetadata, error) {
	if s.catalogue != nil {
		return s.catalogue.GetMetadata(ctx, backupID)
	}
	data, err := s.Retrieve(ctx, backupID)
	if err != nil {
		return models.BackupMetadata{}, err
	}
	return data.Metadata, nil
}

// GetStorageInfo summarizes the backend's current occupancy.
func (s *Service) GetStorageInfo(ctx context.Context) (StorageInfo, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return StorageInfo{}, err
	}
	info := StorageInfo{BackupCount: len(entries)}
	for _, e := range entries {
		info.TotalBytes += e.SizeBytes
	}
	return info, nil
}

// Exists reports whether a backup with the given id is currently stored.
func (s *Service) Exists(ctx context.Context, backupID string) (bool, error) {
	return s.storage.Exists(ctx, backupPath(backupID))
}
