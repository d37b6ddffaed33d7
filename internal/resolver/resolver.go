// Package resolver implements the Resolver & Cache component (§4.A): it
// maps (principal-name, permission-set-name, account-name) triples to the
// directory's stable identifiers and memoises every resolution — including
// negative lookups — for the lifetime of one batch run.
//
// A Resolver is owned by the batch run that constructs it (§9
// "process-wide Resolver cache... model as an explicitly-passed, scoped
// cache owned by the batch run; avoid module-global mutable state").
// Concurrent misses on the same key collapse to a single directory fetch,
// the same mutex-guarded in-memory-state discipline the donor codebase
// uses for its job/record maps, generalized here to a resolution cache
// plus an in-flight set rather than a jobs map.
package resolver

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/identitycore/idcenter/internal/directory"
	"github.com/identitycore/idcenter/pkg/models"
)

// Kind distinguishes the three resolvable name spaces.
type Kind string

const (
	KindUser          Kind = "user"
	KindGroup         Kind = "group"
	KindPermissionSet Kind = "permission_set"
	KindAccount       Kind = "account"
)

type cacheKey struct {
	kind Kind
	name string
}

type cacheEntry struct {
	id    string
	found bool
}

// SecondaryCache is the narrow capability a cross-process cache (Redis)
// offers the Resolver: a resolution that survives past this one batch
// run's in-memory Resolver. *cache.Cache satisfies this; it is optional —
// a Resolver with no secondary configured behaves exactly as before.
type SecondaryCache interface {
	GetResolution(ctx context.Context, kind, name string) (id string, found bool, err error)
	PutResolution(ctx context.Context, kind, name, id string, ttl time.Duration) error
}

// Resolver memoises directory lookups for one batch run.
type Resolver struct {
	client    directory.Client
	secondary SecondaryCache
	cacheTTL  time.Duration

	mu      sync.Mutex
	entries map[cacheKey]cacheEntry
	inFlight map[cacheKey]*sync.WaitGroup
}

// New constructs a Resolver scoped to a single batch run.
func New(client directory.Client) *Resolver {
	return &Resolver{
		client:  client,
		entries: make(map[cacheKey]cacheEntry),
		inFlight: make(map[cacheKey]*sync.WaitGroup),
	}
}

// NewWithSecondaryCache constructs a Resolver that also consults secondary
// on a local miss, and populates it on every genuine directory fetch, so a
// resolution survives past this one Resolver's lifetime.
func NewWithSecondaryCache(client directory.Client, secondary SecondaryCache, ttl time.Duration) *Resolver {
	r := New(client)
	r.secondary = secondary
	r.cacheTTL = ttl
	return r
}

// lookup performs the single-flight-collapsed, memoised resolution of one
// (kind, name) key using fetch to hit the directory on a genuine miss.
func (r *Resolver) lookup(key cacheKey, fetch func() (string, bool, error)) (string, bool, error) {
	r.mu.Lock()
	if e, ok := r.entries[key]; ok {
		r.mu.Unlock()
		return e.id, e.found, nil
	}
	if wg, ok := r.inFlight[key]; ok {
		r.mu.Unlock()
		wg.Wait()
		r.mu.Lock()
		e := r.entries[key]
		r.mu.Unlock()
		return e.id, e.found, nil
	}
	wg := &sync.WaitGroup{}
	wg.Add(1)
	r.inFlight[key] = wg
	r.mu.Unlock()

	id, found, err := r.fetchWithSecondary(key, fetch)

	r.mu.Lock()
	if err == nil {
		r.entries[key] = cacheEntry{id: id, found: found}
	}
	delete(r.inFlight, key)
	r.mu.Unlock()
	wg.Done()

	return id, found, err
}

// fetchWithSecondary consults the secondary cache before calling fetch, and
// populates the secondary cache on a genuine directory fetch. With no
// secondary configured it's just fetch().
func (r *Resolver) fetchWithSecondary(key cacheKey, fetch func() (string, bool, error)) (string, bool, error) {
	if r.secondary == nil {
		return fetch()
	}

	ctx := context.Background()
	if id, hit, err := r.secondary.GetResolution(ctx, string(key.kind), key.name); err == nil && hit {
		return id, id != "", nil
	}

	id, found, err := fetch()
	if err == nil {
		if putErr := r.secondary.PutResolution(ctx, string(key.kind), key.name, id, r.cacheTTL); putErr != nil {
			log.Printf("resolver: failed to populate secondary cache for %s/%s: %v", key.kind, key.name, putErr)
		}
	}
	return id, found, err
}

// ResolvePrincipal maps a principal name to its directory id. kind must be
// KindUser or KindGroup.
func (r *Resolver) ResolvePrincipal(ctx context.Context, name string, kind models.PrincipalType) (string, bool, error) {
	k := KindUser
	if kind == models.PrincipalGroup {
		k = KindGroup
	}
	return r.lookup(cacheKey{kind: k, name: name}, func() (string, bool, error) {
		if kind == models.PrincipalGroup {
			g, err := r.client.FindGroupByName(ctx, name)
			if err == directory.NotFound {
				return "", false, nil
			}
			if err != nil {
				return "", false, err
			}
			return g.ID, true, nil
		}
		u, err := r.client.FindUserByName(ctx, name)
		if err == directory.NotFound {
			return "", false, nil
		}
		if err != nil {
			return "", false, err
		}
		return u.ID, true, nil
	})
}

// ResolvePermissionSet maps a permission-set name to its arn.
func (r *Resolver) ResolvePermissionSet(ctx context.Context, name string) (string, bool, error) {
	return r.lookup(cacheKey{kind: KindPermissionSet, name: name}, func() (string, bool, error) {
		p, err := r.client.FindPermissionSetByName(ctx, name)
		if err == directory.NotFound {
			return "", false, nil
		}
		if err != nil {
			return "", false, err
		}
		return p.Arn, true, nil
	})
}

// ResolveAccount maps an account name to its account id.
func (r *Resolver) ResolveAccount(ctx context.Context, name string) (string, bool, error) {
	return r.lookup(cacheKey{kind: KindAccount, name: name}, func() (string, bool, error) {
		accounts, _, err := r.client.ListAccounts(ctx, directory.Page{})
		if err != nil {
			return "", false, err
		}
		for _, a := range accounts {
			if a.Name == name {
				return a.AccountID, true, nil
			}
		}
		return "", false, nil
	})
}

// WarmCacheFor performs a bulk pre-fetch of every distinct name referenced
// by records, to minimise directory round-trips before individual
// ResolveAssignment calls.
func (r *Resolver) WarmCacheFor(ctx context.Context, records []models.BulkRecord) error {
	seenPrincipal := make(map[cacheKey]struct{})
	seenSet := make(map[string]struct{})
	seenAccount := make(map[string]struct{})

	for _, rec := range records {
		pk := cacheKey{kind: KindUser, name: rec.PrincipalName}
		if rec.PrincipalType == models.PrincipalGroup {
			pk.kind = KindGroup
		}
		seenPrincipal[pk] = struct{}{}
		seenSet[rec.PermissionSet] = struct{}{}
		seenAccount[rec.AccountName] = struct{}{}
	}

	for pk := range seenPrincipal {
		kind := models.PrincipalUser
		if pk.kind == KindGroup {
			kind = models.PrincipalGroup
		}
		if _, _, err := r.ResolvePrincipal(ctx, pk.name, kind); err != nil {
			return err
		}
	}
	for name := range seenSet {
		if _, _, err := r.ResolvePermissionSet(ctx, name); err != nil {
			return err
		}
	}
	for name := range seenAccount {
		if _, _, err := r.ResolveAccount(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// ResolveAssignment enriches a BulkRecord with resolved identifiers,
// setting Resolved=false and accumulating ResolutionErrors for any of its
// three names that fail to resolve. It never returns a non-nil error for
// an unresolvable name — those are reported per-record, per §4.A and §7
// ("Resolution errors are collected and returned per record; they do not
// abort the batch").
func (r *Resolver) ResolveAssignment(ctx context.Context, rec models.BulkRecord) (models.BulkRecord, error) {
	out := rec
	out.Resolved = true

	principalID, found, err := r.ResolvePrincipal(ctx, rec.PrincipalName, rec.PrincipalType)
	if err != nil {
		return out, err
	}
	if !found {
		out.Resolved = false
		out.ResolutionErrors = append(out.ResolutionErrors, "principal not found: "+rec.PrincipalName)
	} else {
		out.PrincipalID = principalID
	}

	psArn, found, err := r.ResolvePermissionSet(ctx, rec.PermissionSet)
	if err != nil {
		return out, err
	}
	if !found {
		out.Resolved = false
		out.ResolutionErrors = append(out.ResolutionErrors, "permission set not found: "+rec.PermissionSet)
	} else {
		out.PermissionSetArn = psArn
	}

	accountID, found, err := r.ResolveAccount(ctx, rec.AccountName)
	if err != nil {
		return out, err
	}
	if !found {
		out.Resolved = false
		out.ResolutionErrors = append(out.ResolutionErrors, "account not found: "+rec.AccountName)
	} else {
		out.AccountID = accountID
	}

	return out, nil
}
