package restore

import (
	"context"
	"testing"
	"time"

	"github.com/identitycore/idcenter/internal/directory"
	"github.com/identitycore/idcenter/pkg/models"
)

const testInstance = "arn:aws:sso:::instance/ssoins-default"

type fakeStore struct {
	backups map[string]models.BackupData
}

func newFakeStore() *fakeStore {
	return &fakeStore{backups: make(map[string]models.BackupData)}
}

func (f *fakeStore) put(data models.BackupData) {
	f.backups[data.Metadata.BackupID] = data
}

func (f *fakeStore) Retrieve(ctx context.Context, backupID string) (models.BackupData, error) {
	data, ok := f.backups[backupID]
	if !ok {
		return models.BackupData{}, context.DeadlineExceeded
	}
	return data, nil
}

func newBackup(id string) models.BackupData {
	return models.BackupData{
		Metadata: models.BackupMetadata{
			BackupID:          id,
			Timestamp:         time.Now().UTC(),
			SourceInstanceArn: testInstance,
			SourceAccount:     "123456789012",
			SourceRegion:      "us-east-1",
			Type:              models.BackupTypeFull,
			Version:           "1",
		},
	}
}

func TestRestore_CreatesAbsentResources(t *testing.T) {
	client := directory.NewSimulatedClient()
	store := newFakeStore()

	backup := newBackup("bkp-1")
	backup.Users = []models.User{{Name: "carol", DisplayName: "Carol Example", Email: "carol@example.com", Active: true}}
	backup.Groups = []models.Group{{Name: "ops", Description: "Operations"}}
	backup.PermissionSets = []models.PermissionSet{{Name: "NewAccess", Arn: "arn:aws:sso:::permissionSet/ps-new"}}
	backup.Assignments = []models.Assignment{{AccountID: "123456789012", PermissionSetArn: "arn:aws:sso:::permissionSet/ps-new", PrincipalType: models.PrincipalUser, PrincipalID: "carol"}}
	store.put(backup)

	engine := New(client, store)
	result, err := engine.Restore(context.Background(), "bkp-1", Options{
		ConflictStrategy:  models.ConflictOverwrite,
		TargetInstanceArn: testInstance,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got errors: %v", result.Errors)
	}
	for _, kind := range []string{"users", "groups", "permission_sets", "assignments"} {
		if result.ChangesApplied[kind] != 1 {
			t.Fatalf("expected 1 change applied for %s, got %d", kind, result.ChangesApplied[kind])
		}
	}

	if _, err := client.FindUserByName(context.Background(), "carol"); err != nil {
		t.Fatalf("expected carol to have been created: %v", err)
	}
}

func TestRestore_SkipStrategyLeavesExistingUserUnchanged(t *testing.T) {
	client := directory.NewSimulatedClient()
	store := newFakeStore()

	backup := newBackup("bkp-2")
	backup.Users = []models.User{{Name: "alice", DisplayName: "Alice Example", Email: "alice-new@example.com", Active: true}}
	store.put(backup)

	engine := New(client, store)
	result, err := engine.Restore(context.Background(), "bkp-2", Options{
		ConflictStrategy:  models.ConflictSkip,
		TargetInstanceArn: testInstance,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Warnings) == 0 {
		t.Fatalf("expected a skip warning, got none")
	}

	existing, err := client.FindUserByName(context.Background(), "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if existing.Email == "alice-new@example.com" {
		t.Fatalf("expected SKIP strategy to leave alice's email unchanged")
	}
}

func TestRestore_MergeOverwritesWhenEmailDiffers(t *testing.T) {
	client := directory.NewSimulatedClient()
	store := newFakeStore()

	backup := newBackup("bkp-3")
	backup.Users = []models.User{{Name: "alice", DisplayName: "Alice Example", Email: "alice-new@example.com", Active: true}}
	store.put(backup)

	engine := New(client, store)
	_, err := engine.Restore(context.Background(), "bkp-3", Options{
		ConflictStrategy:  models.ConflictMerge,
		TargetInstanceArn: testInstance,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	existing, err := client.FindUserByName(context.Background(), "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if existing.Email != "alice-new@example.com" {
		t.Fatalf("expected MERGE to overwrite alice's email, got %q", existing.Email)
	}
}

func TestRestore_MergeSkipsWhenNothingDiffers(t *testing.T) {
	client := directory.NewSimulatedClient()
	store := newFakeStore()

	existing, err := client.FindUserByName(context.Background(), "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	backup := newBackup("bkp-4")
	backup.Users = []models.User{{Name: "alice", DisplayName: existing.DisplayName, Email: existing.Email, GivenName: existing.GivenName, FamilyName: existing.FamilyName, Active: true}}
	store.put(backup)

	engine := New(client, store)
	result, err := engine.Restore(context.Background(), "bkp-4", Options{
		ConflictStrategy:  models.ConflictMerge,
		TargetInstanceArn: testInstance,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Warnings) == 0 {
		t.Fatalf("expected a skip warning when nothing differs, got none")
	}
}

func TestRestore_DryRunAppliesNothing(t *testing.T) {
	client := directory.NewSimulatedClient()
	store := newFakeStore()

	backup := newBackup("bkp-5")
	backup.Users = []models.User{{Name: "dave", DisplayName: "Dave Example", Active: true}}
	store.put(backup)

	engine := New(client, store)
	result, err := engine.Restore(context.Background(), "bkp-5", Options{
		ConflictStrategy:  models.ConflictOverwrite,
		TargetInstanceArn: testInstance,
		DryRun:            true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ChangesApplied["users"] != 1 {
		t.Fatalf("expected dry run to still count the planned change")
	}
	if _, err := client.FindUserByName(context.Background(), "dave"); err == nil {
		t.Fatalf("expected dry run not to actually create dave")
	}
}

func TestValidateCompatibility_WarnsOnCrossAccount(t *testing.T) {
	client := directory.NewSimulatedClient()
	store := newFakeStore()
	engine := New(client, store)

	data := newBackup("bkp-6")
	data.Metadata.SourceAccount = "999999999999"

	result, err := engine.ValidateCompatibility(context.Background(), data, testInstance)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsValid {
		t.Fatalf("expected cross-account restore to remain valid (warning, not error), got errors: %v", result.Errors)
	}
	if result.Details["cross_account"] != true {
		t.Fatalf("expected cross_account detail to be set, got %+v", result.Details)
	}
}

func TestValidateCompatibility_RejectsUnknownManagedPolicy(t *testing.T) {
	client := directory.NewSimulatedClient()
	store := newFakeStore()
	engine := New(client, store)

	data := newBackup("bkp-7")
	data.PermissionSets = []models.PermissionSet{{Name: "Custom", Arn: "arn:aws:sso:::permissionSet/ps-custom", ManagedPolicies: []string{"arn:aws:iam::123456789012:policy/Custom"}}}

	result, err := engine.ValidateCompatibility(context.Background(), data, testInstance)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsValid {
		t.Fatalf("expected an unrecognized managed policy arn to invalidate compatibility")
	}
}

func TestPreview_ReportsConflictsWithoutApplying(t *testing.T) {
	client := directory.NewSimulatedClient()
	store := newFakeStore()

	backup := newBackup("bkp-8")
	backup.Users = []models.User{{Name: "alice", DisplayName: "Alice Example", Active: true}}
	backup.Users = append(backup.Users, models.User{Name: "erin", DisplayName: "Erin Example", Active: true})
	store.put(backup)

	engine := New(client, store)
	preview, err := engine.Preview(context.Background(), "bkp-8", Options{TargetInstanceArn: testInstance})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if preview.ChangesPlanned["users"] != 2 {
		t.Fatalf("expected 2 planned user changes, got %d", preview.ChangesPlanned["users"])
	}
	if len(preview.Conflicts) != 1 || preview.Conflicts[0].ResourceID != "alice" {
		t.Fatalf("expected exactly one conflict for alice, got %+v", preview.Conflicts)
	}

	if _, err := client.FindUserByName(context.Background(), "erin"); err == nil {
		t.Fatalf("expected preview not to actually create erin")
	}
}
