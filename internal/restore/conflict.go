package restore

import "github.com/identitycore/idcenter/pkg/models"

// conflictInfo mirrors the Python ConflictInfo record passed into
// resolve_conflict: enough context to pick an action without the caller
// needing to know the resolver's strategy.
type conflictInfo struct {
	resourceType    models.ResourceKind
	resourceID      string
	conflictType    string
	suggestedAction string
}

// conflictResolver picks the action ("overwrite", "skip", or "merge") for
// one conflicting resource per the configured ConflictStrategy. PROMPT
// decisions are cached per (resource-type, resource-id) so the same
// resource resolves consistently if it conflicts more than once in a run.
type conflictResolver struct {
	strategy models.ConflictStrategy
	cache    map[string]string
}

func newConflictResolver(strategy models.ConflictStrategy) *conflictResolver {
	if strategy == "" {
		strategy = models.ConflictSkip
	}
	return &conflictResolver{strategy: strategy, cache: make(map[string]string)}
}

// resolve returns the action to take. merge is invoked only under the
// MERGE strategy and supplies the resource-type-specific merge heuristic.
func (r *conflictResolver) resolve(c conflictInfo, merge func() string) string {
	switch r.strategy {
	case models.ConflictOverwrite:
		return "overwrite"
	case models.ConflictSkip:
		return "skip"
	case models.ConflictMerge:
		return merge()
	case models.ConflictPrompt:
		key := string(c.resourceType) + ":" + c.resourceID
		if action, ok := r.cache[key]; ok {
			return action
		}
		action := "skip"
		switch c.suggestedAction {
		case "overwrite", "skip", "merge":
			action = c.suggestedAction
		}
		r.cache[key] = action
		return action
	default:
		return "skip"
	}
}

// mergeUser implements the semantics-aware MERGE rule for users: overwrite
// when any scalar identity field differs from what's on record, else skip.
func mergeUser(existing, incoming models.User) string {
	if incoming.Email != "" && incoming.Email != existing.Email {
		return "overwrite"
	}
	if incoming.DisplayName != "" && incoming.DisplayName != existing.DisplayName {
		return "overwrite"
	}
	if incoming.GivenName != existing.GivenName || incoming.FamilyName != existing.FamilyName {
		return "overwrite"
	}
	return "skip"
}

// mergeGroup implements the semantics-aware MERGE rule for groups:
// overwrite when the description differs, else skip.
func mergeGroup(existing, incoming models.Group) string {
	if incoming.Description != existing.Description {
		return "overwrite"
	}
	return "skip"
}
