package exportimport

import (
	"context"
	"testing"
	"time"

	"github.com/identitycore/idcenter/internal/backup"
	"github.com/identitycore/idcenter/pkg/models"
)

type memStore struct {
	data map[string]models.BackupData
}

func newMemStore() *memStore { return &memStore{data: make(map[string]models.BackupData)} }

func (s *memStore) Retrieve(ctx context.Context, backupID string) (models.BackupData, error) {
	return s.data[backupID], nil
}

func (s *memStore) Store(ctx context.Context, data models.BackupData) (string, error) {
	serialized, err := backup.Serialize(data)
	if err != nil {
		return "", err
	}
	reloaded, err := backup.Deserialize(serialized)
	if err != nil {
		return "", err
	}
	s.data[reloaded.Metadata.BackupID] = reloaded
	return reloaded.Metadata.BackupID, nil
}

func sampleBackup() models.BackupData {
	data := models.BackupData{
		Metadata: models.BackupMetadata{
			BackupID:          "bkp-sample",
			Timestamp:         time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			SourceInstanceArn: "arn:aws:sso:::instance/ssoins-default",
			SourceAccount:     "123456789012",
			SourceRegion:      "us-east-1",
			Type:              models.BackupTypeFull,
			Version:           backup.CurrentVersion,
		},
		Users:          []models.User{{ID: "u-1", Name: "alice", DisplayName: "Alice", Active: true}},
		Groups:         []models.Group{{ID: "g-1", Name: "ops", Members: []string{"u-1"}}},
		PermissionSets: []models.PermissionSet{{Arn: "arn:aws:sso:::permissionSet/ps-1", Name: "Admin", ManagedPolicies: []string{"arn:aws:iam::aws:policy/AdministratorAccess"}}},
		Assignments:    []models.Assignment{{AccountID: "123456789012", PermissionSetArn: "arn:aws:sso:::permissionSet/ps-1", PrincipalType: models.PrincipalUser, PrincipalID: "u-1"}},
	}
	serialized, _ := backup.Serialize(data)
	reloaded, _ := backup.Deserialize(serialized)
	return reloaded
}

func TestExportImport_JSONRoundTrip(t *testing.T) {
	store := newMemStore()
	store.data["bkp-sample"] = sampleBackup()
	mgr := New(store)

	files, err := mgr.Export(context.Background(), "bkp-sample", FormatJSON, false)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	newID, err := mgr.Import(context.Background(), files, FormatJSON)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if newID == "bkp-sample" {
		t.Fatalf("expected import to mint a new backup id")
	}

	imported := store.data[newID]
	if len(imported.Users) != 1 || imported.Users[0].Name != "alice" {
		t.Fatalf("expected alice to round-trip, got %+v", imported.Users)
	}
}

func TestExportImport_CompressedYAMLRoundTrip(t *testing.T) {
	store := newMemStore()
	store.data["bkp-sample"] = sampleBackup()
	mgr := New(store)

	files, err := mgr.Export(context.Background(), "bkp-sample", FormatYAML, true)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, ok := files["backup.yaml.gz"]; !ok {
		t.Fatalf("expected a compressed backup.yaml.gz entry, got %v", files)
	}

	newID, err := mgr.Import(context.Background(), files, FormatYAML)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	imported := store.data[newID]
	if len(imported.Groups) != 1 || imported.Groups[0].Name != "ops" {
		t.Fatalf("expected ops group to round-trip, got %+v", imported.Groups)
	}
}

func TestExportImport_CSVRoundTrip(t *testing.T) {
	store := newMemStore()
	store.data["bkp-sample"] = sampleBackup()
	mgr := New(store)

	files, err := mgr.Export(context.Background(), "bkp-sample", FormatCSV, false)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	for _, want := range []string{"users.csv", "groups.csv", "permission_sets.csv", "assignments.csv", "metadata.csv"} {
		if _, ok := files[want]; !ok {
			t.Fatalf("expected CSV export to include %q, got %v", want, files)
		}
	}

	newID, err := mgr.Import(context.Background(), files, FormatCSV)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	imported := store.data[newID]
	if len(imported.Assignments) != 1 {
		t.Fatalf("expected one assignment to round-trip, got %d", len(imported.Assignments))
	}
	if imported.Assignments[0].PrincipalID != "u-1" {
		t.Fatalf("expected assignment principal to round-trip, got %q", imported.Assignments[0].PrincipalID)
	}
}

func TestImport_RejectsMissingRequiredFields(t *testing.T) {
	store := newMemStore()
	mgr := New(store)

	data := sampleBackup()
	data.Users = append(data.Users, models.User{Name: "no-id"})
	serialized, _ := backup.Serialize(data)

	_, err := mgr.Import(context.Background(), map[string][]byte{"backup.json": serialized}, FormatJSON)
	if err == nil {
		t.Fatalf("expected import to reject a user missing an id")
	}
}
