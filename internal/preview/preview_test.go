package preview

import (
	"context"
	"testing"

	"github.com/identitycore/idcenter/pkg/models"
)

func resolved(name, ps, acct string) models.BulkRecord {
	return models.BulkRecord{PrincipalName: name, PermissionSet: ps, AccountName: acct, Resolved: true}
}

func unresolved(name, ps, acct string) models.BulkRecord {
	r := resolved(name, ps, acct)
	r.Resolved = false
	r.ResolutionErrors = []string{"principal not found: " + name}
	return r
}

func TestGate_DryRunNeverTouchesExecutor(t *testing.T) {
	records := []models.BulkRecord{resolved("alice", "ReadOnlyAccess", "Prod"), resolved("devs", "PowerUserAccess", "Dev")}
	d := Gate(context.Background(), records, Options{DryRun: true}, nil)
	if d.Proceed {
		t.Fatalf("dry-run must never proceed to execution")
	}
	if d.Aborted {
		t.Fatalf("dry-run with fully resolved records must not be aborted")
	}
	if d.Summary.Resolvable != 2 || d.Summary.Unresolvable != 0 {
		t.Fatalf("expected 2 resolvable, 0 unresolvable, got %+v", d.Summary)
	}
}

func TestGate_UnresolvableAbortsWhenNotDryRun(t *testing.T) {
	records := []models.BulkRecord{resolved("alice", "ReadOnlyAccess", "Prod"), unresolved("bob", "PowerUserAccess", "Dev")}
	d := Gate(context.Background(), records, Options{DryRun: false}, nil)
	if !d.Aborted || d.Proceed {
		t.Fatalf("expected abort when unresolvable records remain and dry-run is false, got %+v", d)
	}
}

func TestGate_UnresolvableWithDryRunDoesNotAbort(t *testing.T) {
	records := []models.BulkRecord{unresolved("bob", "PowerUserAccess", "Dev")}
	d := Gate(context.Background(), records, Options{DryRun: true}, nil)
	if d.Aborted {
		t.Fatalf("dry-run must emit a preview instead of aborting")
	}
	if d.Proceed {
		t.Fatalf("dry-run must never proceed")
	}
}

func TestGate_ForceSkipsConfirmation(t *testing.T) {
	called := false
	confirmer := ConfirmerFunc(func(ctx context.Context, s Summary) bool {
		called = true
		return false
	})
	records := []models.BulkRecord{resolved("alice", "ReadOnlyAccess", "Prod")}
	d := Gate(context.Background(), records, Options{Force: true}, confirmer)
	if called {
		t.Fatalf("force must bypass the confirmer entirely")
	}
	if !d.Proceed {
		t.Fatalf("force must proceed without confirmation")
	}
}

func TestGate_PreviewEquivalence(t *testing.T) {
	// §8 law 4: dry-run=true and dry-run=false produce identical preview
	// summaries over the same resolved inputs.
	records := []models.BulkRecord{resolved("alice", "ReadOnlyAccess", "Prod"), resolved("devs", "PowerUserAccess", "Dev")}
	dryRun := Gate(context.Background(), records, Options{DryRun: true}, nil)
	live := Gate(context.Background(), records, Options{DryRun: false, Force: true}, nil)

	if dryRun.Summary.Total != live.Summary.Total ||
		dryRun.Summary.Resolvable != live.Summary.Resolvable ||
		dryRun.Summary.Unresolvable != live.Summary.Unresolvable {
		t.Fatalf("expected identical preview summaries, got %+v vs %+v", dryRun.Summary, live.Summary)
	}
}
