package backup

import (
	"testing"
	"time"

	"github.com/identitycore/idcenter/pkg/models"
)

func sampleBackupData() models.BackupData {
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	return models.BackupData{
		Metadata: models.BackupMetadata{
			BackupID:          "bkp-1",
			Timestamp:         now,
			SourceInstanceArn: "arn:aws:sso:::instance/ssoins-default",
			Type:              models.BackupTypeFull,
			Version:           CurrentVersion,
		},
		Users: []models.User{
			{ID: "u2", Name: "bob", LastModified: now},
			{ID: "u1", Name: "alice", LastModified: now},
		},
		Groups: []models.Group{
			{ID: "g1", Name: "devs", LastModified: now},
		},
		PermissionSets: []models.PermissionSet{
			{Arn: "arn:aws:sso:::permissionSet/ps-b", Name: "B", LastModified: now},
			{Arn: "arn:aws:sso:::permissionSet/ps-a", Name: "A", LastModified: now},
		},
		Assignments: []models.Assignment{
			{AccountID: "234567890123", PermissionSetArn: "arn:aws:sso:::permissionSet/ps-b", PrincipalType: models.PrincipalUser, PrincipalID: "u2"},
			{AccountID: "123456789012", PermissionSetArn: "arn:aws:sso:::permissionSet/ps-a", PrincipalType: models.PrincipalUser, PrincipalID: "u1"},
		},
	}
}

func TestChecksum_StableAcrossFieldOrder(t *testing.T) {
	a := sampleBackupData()
	b := sampleBackupData()
	// Reverse the slice order of an otherwise identical graph.
	b.Users[0], b.Users[1] = b.Users[1], b.Users[0]
	b.PermissionSets[0], b.PermissionSets[1] = b.PermissionSets[1], b.PermissionSets[0]
	b.Assignments[0], b.Assignments[1] = b.Assignments[1], b.Assignments[0]

	sumA, err := Checksum(a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sumB, err := Checksum(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sumA != sumB {
		t.Fatalf("expected identical checksums for reordered slices, got %s vs %s", sumA, sumB)
	}
}

func TestSerializeDeserialize_RoundTrip(t *testing.T) {
	original := sampleBackupData()

	data, err := Serialize(original)
	if err != nil {
		t.Fatalf("unexpected error serializing: %v", err)
	}

	restored, err := Deserialize(data)
	if err != nil {
		t.Fatalf("unexpected error deserializing: %v", err)
	}

	if restored.Metadata.BackupID != original.Metadata.BackupID {
		t.Fatalf("expected backup id %q, got %q", original.Metadata.BackupID, restored.Metadata.BackupID)
	}
	if len(restored.Users) != len(original.Users) {
		t.Fatalf("expected %d users, got %d", len(original.Users), len(restored.Users))
	}
	if restored.Metadata.Checksum == "" {
		t.Fatalf("expected a non-empty checksum on the round-tripped backup")
	}

	if err := VerifyIntegrity(restored); err != nil {
		t.Fatalf("expected round-tripped backup to pass integrity verification: %v", err)
	}
}

func TestVerifyIntegrity_DetectsTampering(t *testing.T) {
	original := sampleBackupData()
	data, err := Serialize(original)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	restored, err := Deserialize(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	restored.Users = append(restored.Users, models.User{ID: "intruder", Name: "mallory"})

	if err := VerifyIntegrity(restored); err == nil {
		t.Fatalf("expected integrity verification to fail after tampering")
	}
}

func TestVerifyIntegrity_RejectsMissingChecksum(t *testing.T) {
	b := sampleBackupData()
	if err := VerifyIntegrity(b); err == nil {
		t.Fatalf("expected an error when no checksum has been stamped")
	}
}
