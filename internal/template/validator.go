// Package template implements the Template Model & Validator (§4.E) and
// Template Executor (§4.F) components: structural and semantic validation
// of a declarative assignment template, account expansion by tag
// resolution, and expansion into the entity x permission-set x account
// cross-product the Batch Executor (D) ultimately drives.
package template

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/identitycore/idcenter/internal/directory"
	"github.com/identitycore/idcenter/pkg/models"
)

var accountIDPattern = regexp.MustCompile(`^\d{12}$`)

// ValidationResult mirrors the original's ValidationResult: accumulated
// errors/warnings plus the resolved entity and account sets the executor
// needs, never raised as an exception mid-validation.
type ValidationResult struct {
	Valid            bool
	Errors           []string
	Warnings         []string
	ResolvedAccounts map[string][]string // assignment index (as string) -> resolved account ids
	ResolvedEntities map[string]string   // "user:name"/"group:name" -> resolved id
}

func newValidationResult() *ValidationResult {
	return &ValidationResult{
		Valid:            true,
		ResolvedAccounts: make(map[string][]string),
		ResolvedEntities: make(map[string]string),
	}
}

func (r *ValidationResult) addError(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Valid = false
}

func (r *ValidationResult) addWarning(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// ValidateStructure checks non-empty name, >=1 assignment, each assignment
// has >=1 entity and >=1 permission set, and well-formed targets. It never
// touches the directory.
func ValidateStructure(t models.Template) []string {
	var errors []string

	if strings.TrimSpace(t.Metadata.Name) == "" {
		errors = append(errors, "template name is required")
	}
	if len(t.Assignments) == 0 {
		errors = append(errors, "at least one assignment must be specified")
		return errors
	}

	for i, a := range t.Assignments {
		if len(a.Entities) == 0 {
			errors = append(errors, fmt.Sprintf("assignment %d: at least one entity must be specified", i+1))
		}
		if len(a.PermissionSets) == 0 {
			errors = append(errors, fmt.Sprintf("assignment %d: at least one permission set must be specified", i+1))
		}
		if errs := validateTarget(a.Targets); len(errs) > 0 {
			for _, e := range errs {
				errors = append(errors, fmt.Sprintf("assignment %d: %s", i+1, e))
			}
		}
	}
	return errors
}

func validateTarget(t models.TemplateTarget) []string {
	var errors []string
	hasIDs := len(t.AccountIDs) > 0
	hasTags := len(t.AccountTags) > 0

	if !hasIDs && !hasTags {
		errors = append(errors, "either account_ids or account_tags must be specified")
	}
	if hasIDs && hasTags {
		errors = append(errors, "cannot specify both account_ids and account_tags")
	}
	for k, v := range t.AccountTags {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			errors = append(errors, fmt.Sprintf("invalid tag %q=%q: keys and values must be non-empty", k, v))
		}
	}
	for _, id := range t.AccountIDs {
		if !accountIDPattern.MatchString(id) {
			errors = append(errors, fmt.Sprintf("invalid account id %q: must be a 12-digit number", id))
		}
	}
	for _, id := range t.ExcludeAccounts {
		if !accountIDPattern.MatchString(id) {
			errors = append(errors, fmt.Sprintf("invalid exclude_accounts entry %q: must be a 12-digit number", id))
		}
	}
	return errors
}

// Validator performs full structural + semantic validation against a live
// directory, grounded on original_source/templates/validator.py's
// TemplateValidator.validate_template pipeline (structure, then entities,
// then permission sets, then accounts).
type Validator struct {
	client directory.Client
}

// NewValidator constructs a Validator bound to a directory capability.
func NewValidator(client directory.Client) *Validator {
	return &Validator{client: client}
}

// Validate runs the full structural + semantic validation pass and, for
// tag-based targets, expands the account set per §4.E's account-expansion
// algorithm. Structural failures short-circuit before any directory call.
func (v *Validator) Validate(ctx context.Context, t models.Template) ValidationResult {
	result := *newValidationResult()

	structErrors := ValidateStructure(t)
	if len(structErrors) > 0 {
		result.Errors = structErrors
		result.Valid = false
		return result
	}

	v.validateEntities(ctx, t, &result)
	v.validatePermissionSets(ctx, t, &result)
	v.validateAccounts(ctx, t, &result)

	return result
}

func (v *Validator) validateEntities(ctx context.Context, t models.Template, result *ValidationResult) {
	for _, a := range t.Assignments {
		for _, ref := range a.Entities {
			parts := strings.SplitN(ref, ":", 2)
			if len(parts) != 2 {
				result.addError("invalid entity format %q: expected 'user:name' or 'group:name'", ref)
				continue
			}
			kind, name := parts[0], parts[1]
			var id string
			var err error
			switch kind {
			case "user":
				var u models.User
				u, err = v.client.FindUserByName(ctx, name)
				id = u.ID
			case "group":
				var g models.Group
				g, err = v.client.FindGroupByName(ctx, name)
				id = g.ID
			default:
				result.addError("invalid entity format %q: type must be 'user' or 'group'", ref)
				continue
			}
			if err == directory.NotFound {
				result.addError("entity %q does not resolve in the directory", ref)
				continue
			}
			if err != nil {
				result.addError("entity %q: %v", ref, err)
				continue
			}
			result.ResolvedEntities[ref] = id
		}
	}
}

func (v *Validator) validatePermissionSets(ctx context.Context, t models.Template, result *ValidationResult) {
	for _, a := range t.Assignments {
		for _, name := range a.PermissionSets {
			if _, err := v.client.FindPermissionSetByName(ctx, name); err == directory.NotFound {
				result.addError("permission set %q not found", name)
			} else if err != nil {
				result.addError("permission set %q: %v", name, err)
			}
		}
	}
}

func (v *Validator) validateAccounts(ctx context.Context, t models.Template, result *ValidationResult) {
	for i, a := range t.Assignments {
		accounts, err := v.ExpandAccounts(ctx, a.Targets)
		if err != nil {
			result.addError("assignment %d: failed to expand accounts: %v", i+1, err)
			continue
		}
		key := fmt.Sprintf("%d", i)
		result.ResolvedAccounts[key] = accounts
		if len(accounts) == 0 {
			result.addWarning("assignment %d: target resolved to zero accounts", i+1)
		}
	}
}

// ExpandAccounts implements §4.E's account-expansion algorithm: for
// tag-based targets, enumerate all active accounts, retain those matching
// every key=value pair, then subtract exclude-accounts; for explicit
// targets, subtract exclude-accounts directly.
func (v *Validator) ExpandAccounts(ctx context.Context, target models.TemplateTarget) ([]string, error) {
	exclude := make(map[string]struct{}, len(target.ExcludeAccounts))
	for _, id := range target.ExcludeAccounts {
		exclude[id] = struct{}{}
	}

	if len(target.AccountIDs) > 0 {
		out := make([]string, 0, len(target.AccountIDs))
		for _, id := range target.AccountIDs {
			if _, excluded := exclude[id]; !excluded {
				out = append(out, id)
			}
		}
		return out, nil
	}

	accounts, _, err := v.client.ListAccounts(ctx, directory.Page{})
	if err != nil {
		return nil, err
	}

	var out []string
	for _, acct := range accounts {
		if !acct.Active {
			continue
		}
		if _, excluded := exclude[acct.AccountID]; excluded {
			continue
		}
		if matchesAllTags(acct.Tags, target.AccountTags) {
			out = append(out, acct.AccountID)
		}
	}
	return out, nil
}

func matchesAllTags(have, want map[string]string) bool {
	for k, v := range want {
		if have[k] != v {
			return false
		}
	}
	return true
}
