package resolver

import (
	"context"
	"sync"
	"testing"

	"github.com/identitycore/idcenter/internal/directory"
	"github.com/identitycore/idcenter/pkg/models"
)

// countingClient wraps a directory.Client and counts calls per method, so
// tests can assert the memoisation invariant (§8 law 1): for any sequence
// of identical resolve_* calls, at most one directory call is issued.
type countingClient struct {
	directory.Client
	mu     sync.Mutex
	calls  map[string]int
}

func newCountingClient(inner directory.Client) *countingClient {
	return &countingClient{Client: inner, calls: make(map[string]int)}
}

func (c *countingClient) count(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[name]++
}

func (c *countingClient) callCount(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[name]
}

func (c *countingClient) FindUserByName(ctx context.Context, name string) (models.User, error) {
	c.count("FindUserByName")
	return c.Client.FindUserByName(ctx, name)
}

func (c *countingClient) FindGroupByName(ctx context.Context, name string) (models.Group, error) {
	c.count("FindGroupByName")
	return c.Client.FindGroupByName(ctx, name)
}

func (c *countingClient) FindPermissionSetByName(ctx context.Context, name string) (models.PermissionSet, error) {
	c.count("FindPermissionSetByName")
	return c.Client.FindPermissionSetByName(ctx, name)
}

func (c *countingClient) ListAccounts(ctx context.Context, page directory.Page) ([]directory.AccountInfo, directory.Page, error) {
	c.count("ListAccounts")
	return c.Client.ListAccounts(ctx, page)
}

func TestResolvePrincipal_MemoisesRepeatedLookups(t *testing.T) {
	cc := newCountingClient(directory.NewSimulatedClient())
	r := New(cc)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		id, found, err := r.ResolvePrincipal(ctx, "alice", models.PrincipalUser)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !found || id == "" {
			t.Fatalf("expected alice to resolve, got found=%v id=%q", found, id)
		}
	}

	if got := cc.callCount("FindUserByName"); got != 1 {
		t.Fatalf("expected exactly 1 directory call, got %d", got)
	}
}

func TestResolvePrincipal_CachesNegativeLookups(t *testing.T) {
	cc := newCountingClient(directory.NewSimulatedClient())
	r := New(cc)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, found, err := r.ResolvePrincipal(ctx, "nonexistent", models.PrincipalUser)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if found {
			t.Fatalf("expected nonexistent user to not resolve")
		}
	}

	if got := cc.callCount("FindUserByName"); got != 1 {
		t.Fatalf("expected negative lookup cached after first miss, got %d calls", got)
	}
}

func TestResolveAssignment_ReportsPerFieldErrors(t *testing.T) {
	client := directory.NewSimulatedClient()
	r := New(client)
	ctx := context.Background()

	rec := models.BulkRecord{
		PrincipalName: "bob",
		PermissionSet: "ReadOnlyAccess",
		AccountName:   "Prod",
		PrincipalType: models.PrincipalUser,
	}

	out, err := r.ResolveAssignment(ctx, rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Resolved {
		t.Fatalf("expected bob to resolve since SimulatedClient seeds bob")
	}

	rec.PrincipalName = "charlie"
	out, err = r.ResolveAssignment(ctx, rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Resolved {
		t.Fatalf("expected charlie to be unresolvable")
	}
	if len(out.ResolutionErrors) != 1 {
		t.Fatalf("expected exactly one resolution error, got %v", out.ResolutionErrors)
	}
}

func TestResolvePermissionSet_ConcurrentMissesCollapseToOneFetch(t *testing.T) {
	cc := newCountingClient(directory.NewSimulatedClient())
	r := New(cc)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = r.ResolvePermissionSet(ctx, "DevAccess")
		}()
	}
	wg.Wait()

	if got := cc.callCount("FindPermissionSetByName"); got != 1 {
		t.Fatalf("expected concurrent misses to collapse to 1 fetch, got %d", got)
	}
}
