// Package preview implements the Preview & Confirmation component (§4.C):
// it summarises a resolved batch, gates interactive confirmation behind an
// injected Confirmer capability, and honours the dry-run/force flags.
package preview

import (
	"context"

	"github.com/identitycore/idcenter/pkg/models"
)

// Confirmer is the injected capability the caller supplies for interactive
// confirmation. It is never implemented inside the core — terminal
// rendering of progress is an external collaborator per §1 — so this is
// an explicit, testable seam rather than a direct terminal read (§9
// "conflict-resolution prompt... provide an explicit prompter-capability
// interface").
type Confirmer interface {
	Confirm(ctx context.Context, summary Summary) bool
}

// ConfirmerFunc adapts a plain function to the Confirmer interface.
type ConfirmerFunc func(ctx context.Context, summary Summary) bool

func (f ConfirmerFunc) Confirm(ctx context.Context, summary Summary) bool { return f(ctx, summary) }

// AutoConfirm always confirms; Gate falls back to it when no Confirmer is
// given. Force skips the Confirmer call altogether.
var AutoConfirm Confirmer = ConfirmerFunc(func(ctx context.Context, summary Summary) bool { return true })

// Summary is the computed preview of a resolved batch.
type Summary struct {
	Total         int
	Resolvable    int
	Unresolvable  int
	Principals    []string
	PermissionSets []string
	Accounts      []string
	UnresolvableDetails []models.BulkRecord
}

// Options gates Summarize/Gate behaviour.
type Options struct {
	DryRun bool
	Force  bool
}

// Summarize computes counts and the distinct touched-resource sets over a
// resolved record set.
func Summarize(records []models.BulkRecord) Summary {
	s := Summary{Total: len(records)}

	seenPrincipal := make(map[string]struct{})
	seenSet := make(map[string]struct{})
	seenAccount := make(map[string]struct{})

	for _, r := range records {
		if r.Resolved {
			s.Resolvable++
		} else {
			s.Unresolvable++
			s.UnresolvableDetails = append(s.UnresolvableDetails, r)
		}
		if _, ok := seenPrincipal[r.PrincipalName]; !ok {
			seenPrincipal[r.PrincipalName] = struct{}{}
			s.Principals = append(s.Principals, r.PrincipalName)
		}
		if _, ok := seenSet[r.PermissionSet]; !ok {
			seenSet[r.PermissionSet] = struct{}{}
			s.PermissionSets = append(s.PermissionSets, r.PermissionSet)
		}
		if _, ok := seenAccount[r.AccountName]; !ok {
			seenAccount[r.AccountName] = struct{}{}
			s.Accounts = append(s.Accounts, r.AccountName)
		}
	}
	return s
}

// Decision is the outcome of gating a batch through preview and
// confirmation.
type Decision struct {
	Summary Summary
	Proceed bool
	// Aborted is true when unresolvable records exist and dry-run was not
	// requested: the caller must fix inputs before execution can proceed.
	Aborted bool
}

// Gate computes the Summary and decides whether execution should proceed,
// per §4.C: dry-run always emits the preview without touching the
// executor; unresolved records abort the run unless dry-run is set; force
// skips the interactive confirmation call.
func Gate(ctx context.Context, records []models.BulkRecord, opts Options, confirmer Confirmer) Decision {
	summary := Summarize(records)

	if summary.Unresolvable > 0 && !opts.DryRun {
		return Decision{Summary: summary, Proceed: false, Aborted: true}
	}
	if opts.DryRun {
		return Decision{Summary: summary, Proceed: false, Aborted: false}
	}

	if opts.Force {
		return Decision{Summary: summary, Proceed: true}
	}

	c := confirmer
	if c == nil {
		c = AutoConfirm
	}
	return Decision{Summary: summary, Proceed: c.Confirm(ctx, summary)}
}
