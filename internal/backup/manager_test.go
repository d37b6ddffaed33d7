package backup

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/identitycore/idcenter/pkg/models"
)

func setupTestService(t *testing.T) (*Service, string) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "idcenter-backup-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	storage, err := NewLocalStorage(tmpDir)
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("failed to create storage: %v", err)
	}

	return NewService(storage, nil), tmpDir
}

func testBackup(id string, ts time.Time) models.BackupData {
	return models.BackupData{
		Metadata: models.BackupMetadata{
			BackupID:          id,
			Timestamp:         ts,
			SourceInstanceArn: "arn:aws:sso:::instance/ssoins-default",
			Type:              models.BackupTypeFull,
			Version:           CurrentVersion,
		},
		Users: []models.User{{ID: "u1", Name: "alice", LastModified: ts}},
	}
}

func TestService_StoreAndRetrieve(t *testing.T) {
	svc, tmpDir := setupTestService(t)
	defer os.RemoveAll(tmpDir)
	ctx := context.Background()

	id, err := svc.Store(ctx, testBackup("bkp-1", time.Now().UTC()))
	if err != nil {
		t.Fatalf("unexpected error storing: %v", err)
	}
	if id != "bkp-1" {
		t.Fatalf("expected id bkp-1, got %q", id)
	}

	retrieved, err := svc.Retrieve(ctx, id)
	if err != nil {
		t.Fatalf("unexpected error retrieving: %v", err)
	}
	if len(retrieved.Users) != 1 || retrieved.Users[0].Name != "alice" {
		t.Fatalf("expected retrieved backup to carry the stored user, got %+v", retrieved.Users)
	}
}

func TestService_VerifyIntegrity(t *testing.T) {
	svc, tmpDir := setupTestService(t)
	defer os.RemoveAll(tmpDir)
	ctx := context.Background()

	if _, err := svc.Store(ctx, testBackup("bkp-verify", time.Now().UTC())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.VerifyIntegrity(ctx, "bkp-verify"); err != nil {
		t.Fatalf("expected a freshly stored backup to pass integrity verification: %v", err)
	}
}

func TestService_ListAndDelete(t *testing.T) {
	svc, tmpDir := setupTestService(t)
	defer os.RemoveAll(tmpDir)
	ctx := context.Background()

	now := time.Now().UTC()
	if _, err := svc.Store(ctx, testBackup("bkp-a", now)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Store(ctx, testBackup("bkp-b", now)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error listing: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 backups, got %d", len(entries))
	}

	if err := svc.Delete(ctx, "bkp-a"); err != nil {
		t.Fatalf("unexpected error deleting: %v", err)
	}

	exists, err := svc.Exists(ctx, "bkp-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists {
		t.Fatalf("expected bkp-a to be gone after delete")
	}

	entries, err = svc.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error listing after delete: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 backup after delete, got %d", len(entries))
	}
}

func TestService_GetStorageInfo(t *testing.T) {
	svc, tmpDir := setupTestService(t)
	defer os.RemoveAll(tmpDir)
	ctx := context.Background()

	if _, err := svc.Store(ctx, testBackup("bkp-info", time.Now().UTC())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	info, err := svc.GetStorageInfo(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.BackupCount != 1 {
		t.Fatalf("expected 1 backup counted, got %d", info.BackupCount)
	}
	if info.TotalBytes <= 0 {
		t.Fatalf("expected positive total bytes, got %d", info.TotalBytes)
	}
}
