package retention

import (
	"context"
	"testing"
	"time"

	"github.com/identitycore/idcenter/pkg/models"
)

type fakeStore struct {
	backups map[string]models.BackupMetadata
}

func newFakeStore() *fakeStore {
	return &fakeStore{backups: make(map[string]models.BackupMetadata)}
}

func (f *fakeStore) add(id string, age time.Duration, size int64) {
	f.backups[id] = models.BackupMetadata{
		BackupID:       id,
		Timestamp:      time.Now().UTC().Add(-age),
		SizeBytes:      size,
		ResourceCounts: map[string]int{"users": 3, "groups": 1},
		Version:        "1",
	}
}

func (f *fakeStore) List(ctx context.Context) ([]models.BackupMetadata, error) {
	var out []models.BackupMetadata
	for _, b := range f.backups {
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeStore) Delete(ctx context.Context, backupID string) error {
	if _, ok := f.backups[backupID]; !ok {
		return context.DeadlineExceeded
	}
	delete(f.backups, backupID)
	return nil
}

func (f *fakeStore) GetBackupMetadata(ctx context.Context, backupID string) (models.BackupMetadata, error) {
	b, ok := f.backups[backupID]
	if !ok {
		return models.BackupMetadata{}, context.DeadlineExceeded
	}
	return b, nil
}

func TestEnforceRetentionPolicy_DeletesBeyondKeepLimit(t *testing.T) {
	store := newFakeStore()
	for i := 0; i < 5; i++ {
		store.add("daily-"+string(rune('a'+i)), time.Duration(i)*time.Hour, 1024)
	}
	mgr := NewManager(store, DefaultStorageLimit())

	policy := models.RetentionPolicy{KeepDaily: 2}
	result, err := mgr.EnforceRetentionPolicy(context.Background(), policy, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.DeletedBackups) != 3 {
		t.Fatalf("expected 3 backups deleted (5 daily - keep 2), got %d", len(result.DeletedBackups))
	}
	if len(store.backups) != 2 {
		t.Fatalf("expected 2 backups remaining, got %d", len(store.backups))
	}
}

func TestEnforceRetentionPolicy_DryRunDoesNotDelete(t *testing.T) {
	store := newFakeStore()
	for i := 0; i < 3; i++ {
		store.add("daily-"+string(rune('a'+i)), time.Duration(i)*time.Hour, 1024)
	}
	mgr := NewManager(store, DefaultStorageLimit())

	policy := models.RetentionPolicy{KeepDaily: 1}
	result, err := mgr.EnforceRetentionPolicy(context.Background(), policy, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.DeletedBackups) != 2 {
		t.Fatalf("expected 2 backups identified for deletion, got %d", len(result.DeletedBackups))
	}
	if len(store.backups) != 3 {
		t.Fatalf("expected dry run to leave all 3 backups in place, got %d", len(store.backups))
	}
}

func TestCompareBackups_ComputesSimilarity(t *testing.T) {
	store := newFakeStore()
	store.add("a", time.Hour, 1000)
	store.add("b", 2*time.Hour, 2000)

	mgr := NewManager(store, DefaultStorageLimit())
	cmp, err := mgr.CompareBackups(context.Background(), "a", "b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmp.SimilarityScore != 1.0 {
		t.Fatalf("expected identical resource counts to score 1.0 similarity, got %f", cmp.SimilarityScore)
	}
	if cmp.SizeDifference != 1000 {
		t.Fatalf("expected size difference of 1000, got %d", cmp.SizeDifference)
	}
}

func TestCheckStorageLimits_WarnsAndCriticalsByThreshold(t *testing.T) {
	store := newFakeStore()
	store.add("big", time.Hour, 950)

	mgr := NewManager(store, StorageLimit{MaxSizeBytes: 1000, WarningThresholdPercent: 80, CriticalThresholdPercent: 95})
	alerts, err := mgr.CheckStorageLimits(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(alerts) != 1 || alerts[0].AlertType != models.SeverityCritical {
		t.Fatalf("expected a single critical alert at 95%% usage, got %+v", alerts)
	}
}

func TestGetStorageUsage_CategorizesByAge(t *testing.T) {
	store := newFakeStore()
	store.add("recent", time.Hour, 100)
	store.add("old", 40*24*time.Hour, 200)

	mgr := NewManager(store, DefaultStorageLimit())
	usage, err := mgr.GetStorageUsage(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if usage.CountByPeriod[models.PeriodDaily] != 1 {
		t.Fatalf("expected 1 daily backup, got %d", usage.CountByPeriod[models.PeriodDaily])
	}
	if usage.CountByPeriod[models.PeriodYearly] != 1 {
		t.Fatalf("expected 1 yearly backup, got %d", usage.CountByPeriod[models.PeriodYearly])
	}
}
