package collector

import (
	"context"
	"testing"
	"time"

	"github.com/identitycore/idcenter/internal/backup"
	"github.com/identitycore/idcenter/internal/directory"
)

const testInstance = "arn:aws:sso:::instance/ssoins-default"

func TestSnapshot_CollectsAllResourceKinds(t *testing.T) {
	client := directory.NewSimulatedClient()
	c := New(client)

	data, err := c.Snapshot(context.Background(), testInstance)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(data.Users) == 0 {
		t.Fatalf("expected at least one seeded user")
	}
	if len(data.PermissionSets) == 0 {
		t.Fatalf("expected at least one seeded permission set")
	}
	if data.Metadata.Checksum == "" {
		t.Fatalf("expected a stamped checksum")
	}
	if err := backup.VerifyIntegrity(data); err != nil {
		t.Fatalf("expected a self-consistent snapshot: %v", err)
	}
}

func TestIncremental_ExcludesUnchangedResources(t *testing.T) {
	client := directory.NewSimulatedClient()
	c := New(client)

	future := time.Now().Add(24 * time.Hour)
	data, err := c.Incremental(context.Background(), testInstance, future)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(data.Users) != 0 {
		t.Fatalf("expected zero users modified after a future cutoff, got %d", len(data.Users))
	}
}

func TestProbe_ReportsOK(t *testing.T) {
	client := directory.NewSimulatedClient()
	c := New(client)

	result, err := c.Probe(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.OK {
		t.Fatalf("expected the simulated client's probe to report OK")
	}
}

func TestSnapshotFleet_ReturnsPerAccountMap(t *testing.T) {
	client := directory.NewSimulatedClient()
	c := New(client)

	fleet, err := c.SnapshotFleet(context.Background(), testInstance, []CrossAccountConfig{
		{AccountID: "234567890123", RoleArn: "arn:aws:iam::234567890123:role/backup"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fleet) != 2 {
		t.Fatalf("expected 2 accounts in the fleet snapshot, got %d", len(fleet))
	}
	if _, ok := fleet["234567890123"]; !ok {
		t.Fatalf("expected the cross-account config's account id to be present")
	}
}
