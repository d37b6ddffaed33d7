package executor

import (
	"context"
	"testing"

	"github.com/identitycore/idcenter/internal/directory"
	"github.com/identitycore/idcenter/pkg/models"
)

func seededAssignment(t *testing.T) (models.BulkRecord, *directory.SimulatedClient) {
	t.Helper()
	client := directory.NewSimulatedClient()
	alice, err := client.FindUserByName(context.Background(), "alice")
	if err != nil {
		t.Fatalf("expected seeded user alice: %v", err)
	}
	ps, err := client.FindPermissionSetByName(context.Background(), "ReadOnlyAccess")
	if err != nil {
		t.Fatalf("expected seeded permission set: %v", err)
	}
	rec := models.BulkRecord{
		PrincipalName:    "alice",
		PermissionSet:    "ReadOnlyAccess",
		AccountName:      "Prod",
		PrincipalType:    models.PrincipalUser,
		PrincipalID:      alice.ID,
		PermissionSetArn: ps.Arn,
		AccountID:        "123456789012",
		Resolved:         true,
	}
	return rec, client
}

func TestProcess_AssignIdempotence(t *testing.T) {
	// §8 law 2: a successful assign followed by a repeat assign of the
	// same 4-tuple returns success-with-already-exists and issues no create.
	rec, client := seededAssignment(t)
	e := New(client)
	opts := DefaultOptions()
	opts.ContinueOnError = true

	first := e.Process(context.Background(), []models.BulkRecord{rec}, models.OpAssign, opts)
	if len(first.Successful) != 1 || first.Successful[0].Status != "created" {
		t.Fatalf("expected first assign to create, got %+v", first)
	}

	second := e.Process(context.Background(), []models.BulkRecord{rec}, models.OpAssign, opts)
	if len(second.Successful) != 1 || second.Successful[0].Status != "already-exists" {
		t.Fatalf("expected repeat assign to report already-exists, got %+v", second)
	}
}

func TestProcess_RevokeIdempotence(t *testing.T) {
	// §8 law 3: revoking a non-existent assignment returns
	// success-with-already-absent and issues no delete.
	rec, client := seededAssignment(t)
	e := New(client)
	opts := DefaultOptions()
	opts.ContinueOnError = true

	result := e.Process(context.Background(), []models.BulkRecord{rec}, models.OpRevoke, opts)
	if len(result.Successful) != 1 || result.Successful[0].Status != "already-absent" {
		t.Fatalf("expected revoke of absent assignment to report already-absent, got %+v", result)
	}
}

func TestProcess_DryRunIssuesNoMutations(t *testing.T) {
	rec, client := seededAssignment(t)
	e := New(client)
	opts := DefaultOptions()
	opts.DryRun = true

	result := e.Process(context.Background(), []models.BulkRecord{rec}, models.OpAssign, opts)
	if result.TotalProcessed != 1 {
		t.Fatalf("expected 1 processed item, got %+v", result)
	}

	existing, _, _ := client.ListAssignments(context.Background(), "123456789012", rec.PermissionSetArn, directory.Page{})
	if len(existing) != 0 {
		t.Fatalf("dry-run must not mutate the directory, found %d assignments", len(existing))
	}
}

func TestTuningFor_Buckets(t *testing.T) {
	small := TuningFor(5, models.OpAssign)
	if small.MaxConcurrent != 5 || small.BatchSize != 5 {
		t.Fatalf("unexpected small-bucket tuning: %+v", small)
	}

	medium := TuningFor(30, models.OpAssign)
	if medium.MaxConcurrent != 25 || medium.BatchSize != 50 {
		t.Fatalf("unexpected medium-bucket tuning: %+v", medium)
	}

	large := TuningFor(100, models.OpAssign)
	if large.MaxConcurrent != 30 || large.BatchSize != 50 {
		t.Fatalf("unexpected large-bucket tuning: %+v", large)
	}

	assignTuning := TuningFor(30, models.OpAssign)
	revokeTuning := TuningFor(30, models.OpRevoke)
	if revokeTuning.MaxConcurrent <= assignTuning.MaxConcurrent {
		t.Fatalf("expected revoke tuning to be at least as aggressive as assign tuning")
	}
}
