package template

import (
	"context"
	"fmt"
	"strings"

	"github.com/identitycore/idcenter/internal/executor"
	"github.com/identitycore/idcenter/internal/resolver"
	"github.com/identitycore/idcenter/pkg/models"
)

// PreviewResult is the Template Executor's dry-run output: total
// assignment count, the resolved account list, and per-entity /
// per-permission-set existence flags, without issuing any writes.
type PreviewResult struct {
	TotalAssignments      int
	ResolvedAccounts      []string
	EntityExists          map[string]bool
	PermissionSetExists   map[string]bool
}

// ExpandResult is the outcome of driving a validated template through the
// Batch Executor: every concrete triple classified as created, skipped
// (already-exists), or failed.
type ExpandResult struct {
	Results models.BulkResults
}

// Executor expands a validated Template into the entity x permission-set x
// account cross-product and drives each triple through the Batch
// Executor's assignment pipeline (§4.F delegates to §4.D).
type Executor struct {
	validator *Validator
	batch     *executor.Executor
}

// NewExecutor constructs a template Executor.
func NewExecutor(validator *Validator, batch *executor.Executor) *Executor {
	return &Executor{validator: validator, batch: batch}
}

// Expand resolves every assignment's entities/permission-sets/accounts and
// builds the cross-product of concrete BulkRecords, without issuing any
// directory mutations. Scenario S3's cross-product example is exercised
// through this function.
func (e *Executor) Expand(ctx context.Context, t models.Template) ([]models.BulkRecord, ValidationResult, error) {
	result := e.validator.Validate(ctx, t)
	if !result.Valid {
		return nil, result, nil
	}

	var records []models.BulkRecord
	for i, a := range t.Assignments {
		accounts := result.ResolvedAccounts[fmt.Sprintf("%d", i)]
		for _, entityRef := range a.Entities {
			parts := strings.SplitN(entityRef, ":", 2)
			if len(parts) != 2 {
				continue
			}
			kind, name := parts[0], parts[1]
			principalType := models.PrincipalUser
			if kind == "group" {
				principalType = models.PrincipalGroup
			}
			for _, psName := range a.PermissionSets {
				ps, err := e.validator.client.FindPermissionSetByName(ctx, psName)
				if err != nil {
					return nil, result, fmt.Errorf("template: failed to resolve permission set %q: %w", psName, err)
				}
				for _, accountID := range accounts {
					records = append(records, models.BulkRecord{
						PrincipalName:    name,
						PrincipalID:      result.ResolvedEntities[entityRef],
						PermissionSet:    psName,
						PermissionSetArn: ps.Arn,
						AccountName:      accountID,
						AccountID:        accountID,
						PrincipalType:    principalType,
						Resolved:         true,
					})
				}
			}
		}
	}
	return records, result, nil
}

// Preview resolves everything but issues no writes, returning the
// aggregate counts and existence flags §4.F specifies for preview mode.
func (e *Executor) Preview(ctx context.Context, t models.Template) (PreviewResult, error) {
	records, result, err := e.Expand(ctx, t)
	if err != nil {
		return PreviewResult{}, err
	}

	pr := PreviewResult{
		TotalAssignments:    len(records),
		EntityExists:        make(map[string]bool),
		PermissionSetExists: make(map[string]bool),
	}

	for _, a := range t.Assignments {
		for _, ref := range a.Entities {
			_, exists := result.ResolvedEntities[ref]
			pr.EntityExists[ref] = exists
		}
	}

	accountSeen := make(map[string]struct{})
	for key, accounts := range result.ResolvedAccounts {
		_ = key
		for _, acct := range accounts {
			if _, ok := accountSeen[acct]; !ok {
				accountSeen[acct] = struct{}{}
				pr.ResolvedAccounts = append(pr.ResolvedAccounts, acct)
			}
		}
	}

	// Permission-set existence is derived from whether the validator
	// recorded an error naming it; a clean ValidationResult means every
	// referenced permission set exists.
	for _, a := range t.Assignments {
		for _, name := range a.PermissionSets {
			exists := true
			for _, e := range result.Errors {
				if strings.Contains(e, name) {
					exists = false
					break
				}
			}
			pr.PermissionSetExists[name] = exists
		}
	}

	return pr, nil
}

// Apply expands the template and drives the resulting records through the
// Batch Executor, classifying outcomes as created/skipped/failed.
func (e *Executor) Apply(ctx context.Context, t models.Template, res *resolver.Resolver, opts executor.Options) (ExpandResult, ValidationResult, error) {
	records, validation, err := e.Expand(ctx, t)
	if err != nil {
		return ExpandResult{}, validation, err
	}
	if !validation.Valid {
		return ExpandResult{}, validation, nil
	}

	results := e.batch.Process(ctx, records, models.OpAssign, opts)
	return ExpandResult{Results: results}, validation, nil
}
