// Package restore implements the Restore Engine (§4.I): dependency-ordered
// replay of a backup's resource graph into a target directory, with
// semantics-aware conflict resolution, a rollback journal, and per-phase
// checkpointing.
//
// This generalizes the donor's RecoveryManager.ExecuteRecovery/
// executeRecoveryInternal (internal/recovery/manager.go), which only
// supported a two-way Skip/Overwrite conflict choice and carried no
// rollback journal, into the four-strategy OVERWRITE/SKIP/MERGE/PROMPT
// model below. The additional MERGE/PROMPT semantics and the rollback
// journal/checkpoint machinery are grounded on
// original_source/backup_restore/restore_manager.py's ConflictResolver and
// enhanced_restore_manager.py's EnhancedRestoreManager/
// EnhancedRestoreProcessor: a rollback action is recorded after every
// create/update that succeeds (a call that returns an error leaves no
// journal entry), phases run in dependency order, and an operation state
// with named checkpoints is consulted on rerun.
package restore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/identitycore/idcenter/internal/directory"
	"github.com/identitycore/idcenter/pkg/models"
)

// Store is the narrow capability the Restore Engine needs from the
// Storage Engine: retrieve a backup's full resource graph by id.
type Store interface {
	Retrieve(ctx context.Context, backupID string) (models.BackupData, error)
}

// ResourceMapping rewrites a backup's source account/region namespace into
// a target one before restore, with optional per-permission-set renames.
type ResourceMapping struct {
	SourceAccountID    string
	TargetAccountID    string
	SourceRegion       string
	TargetRegion       string
	PermissionSetNames map[string]string // old name -> new name
}

// Options configures one restore run.
type Options struct {
	TargetResources   []models.ResourceKind
	ConflictStrategy  models.ConflictStrategy
	DryRun            bool
	TargetInstanceArn string
	ResourceMappings  *ResourceMapping
	SkipValidation    bool
	// PriorState, when set, is consulted so phases whose checkpoint was
	// already reached on an earlier attempt are skipped on rerun.
	PriorState *models.OperationState
}

func (o Options) wants(kind models.ResourceKind) bool {
	if len(o.TargetResources) == 0 {
		return true
	}
	for _, k := range o.TargetResources {
		if k == kind || k == models.KindAll {
			return true
		}
	}
	return false
}

func (o Options) checkpointed(state *models.OperationState, phase models.ResourceKind) bool {
	if state == nil {
		return false
	}
	for _, c := range state.Checkpoints {
		if c.Phase == phase {
			return true
		}
	}
	return false
}

// RollbackResult summarizes a rollback attempt folded into a RestoreResult.
type RollbackResult struct {
	Success                bool
	AppliedChangesReverted int
	Message                string
	Errors                 []string
}

// RestoreResult is the restore(backup-id, options) contract's return value.
type RestoreResult struct {
	Success        bool
	Message        string
	Errors         []string
	Warnings       []string
	ChangesApplied map[string]int
	Duration       time.Duration
	Rollback       *RollbackResult
	State          models.OperationState
}

// ConflictPreview describes one resource preview(...) found already present
// at the target, along with the action that would be taken.
type ConflictPreview struct {
	ResourceType    models.ResourceKind
	ResourceID      string
	ConflictType    string
	SuggestedAction string
}

// RestorePreview is preview(backup-id, options)'s return value: what would
// happen, without applying anything.
type RestorePreview struct {
	ChangesPlanned map[string]int
	Conflicts      []ConflictPreview
	Warnings       []string
}

// ValidationResult is validate_compatibility(...)'s return value.
type ValidationResult struct {
	IsValid  bool
	Errors   []string
	Warnings []string
	Details  map[string]any
}

// Engine is the Restore Engine: a directory capability to apply changes
// against, and a Store to load backups from.
type Engine struct {
	client directory.Client
	store  Store
}

// New constructs an Engine.
func New(client directory.Client, store Store) *Engine {
	return &Engine{client: client, store: store}
}

// Restore implements restore(backup-id, options) -> RestoreResult.
func (e *Engine) Restore(ctx context.Context, backupID string, opts Options) (RestoreResult, error) {
	start := time.Now()
	state := models.OperationState{
		OperationID: fmt.Sprintf("restore-%d", time.Now().UnixNano()),
		Type:        "restore",
		StartTime:   start,
	}
	if opts.PriorState != nil {
		state.Checkpoints = append(state.Checkpoints, opts.PriorState.Checkpoints...)
		state.AppliedChanges = append(state.AppliedChanges, opts.PriorState.AppliedChanges...)
		state.RollbackActions = append(state.RollbackActions, opts.PriorState.RollbackActions...)
	}

	data, err := e.store.Retrieve(ctx, backupID)
	if err != nil {
		return RestoreResult{Success: false, Message: "restore failed", Errors: []string{fmt.Sprintf("failed to retrieve backup %q: %v", backupID, err)}, Duration: time.Since(start)}, err
	}

	if opts.ResourceMappings != nil {
		data = applyResourceMapping(data, *opts.ResourceMappings)
	}

	var errs, warnings []string

	if !opts.SkipValidation {
		target := opts.TargetInstanceArn
		if target == "" {
			target = data.Metadata.SourceInstanceArn
		}
		validation, vErr := e.ValidateCompatibility(ctx, data, target)
		if vErr == nil && !validation.IsValid {
			return RestoreResult{
				Success:  false,
				Message:  "restore aborted: target is not compatible with this backup",
				Errors:   validation.Errors,
				Warnings: validation.Warnings,
				Duration: time.Since(start),
			}, nil
		}
		warnings = append(warnings, validation.Warnings...)
	}

	resolver := newConflictResolver(opts.ConflictStrategy)
	applied := map[string]int{}

	phases := []struct {
		kind models.ResourceKind
		run  func() (int, []string, []string, error)
	}{
		{models.KindUsers, func() (int, []string, []string, error) { return e.restoreUsers(ctx, data.Users, opts.DryRun, resolver, &state) }},
		{models.KindGroups, func() (int, []string, []string, error) { return e.restoreGroups(ctx, data.Groups, opts.DryRun, resolver, &state) }},
		{models.KindPermissionSets, func() (int, []string, []string, error) {
			return e.restorePermissionSets(ctx, data.PermissionSets, opts.DryRun, opts.TargetInstanceArn, resolver, &state)
		}},
		{models.KindAssignments, func() (int, []string, []string, error) { return e.restoreAssignments(ctx, data.Assignments, opts.DryRun, &state) }},
	}

	var fatalErr error
	for _, phase := range phases {
		if !opts.wants(phase.kind) {
			continue
		}
		if opts.checkpointed(opts.PriorState, phase.kind) {
			warnings = append(warnings, fmt.Sprintf("skipping %s: checkpoint already reached", phase.kind))
			continue
		}

		count, phaseErrs, phaseWarnings, err := phase.run()
		applied[string(phase.kind)] = count
		errs = append(errs, phaseErrs...)
		warnings = append(warnings, phaseWarnings...)

		if err == nil && len(phaseErrs) > 0 && !opts.DryRun {
			err = fmt.Errorf("%s phase failed: %s", phase.kind, phaseErrs[0])
		}
		if err != nil {
			fatalErr = err
			break
		}

		state.Checkpoints = append(state.Checkpoints, models.Checkpoint{
			Phase:          phase.kind,
			ResourceCounts: map[string]int{string(phase.kind): count},
			CompletedAt:    time.Now().UTC(),
		})
	}

	var rollback *RollbackResult
	if fatalErr != nil && len(state.AppliedChanges) > 0 && !opts.DryRun {
		r := e.rollback(ctx, &state)
		rollback = &r
		errs = append(errs, fmt.Sprintf("restore aborted after error: %v", fatalErr))
	} else if fatalErr != nil {
		errs = append(errs, fatalErr.Error())
	}

	state.Completed = true
	state.Success = len(errs) == 0
	success := state.Success

	message := "restore completed successfully"
	if !success {
		message = "restore completed with errors"
	}

	return RestoreResult{
		Success:        success,
		Message:        message,
		Errors:         errs,
		Warnings:       warnings,
		ChangesApplied: applied,
		Duration:       time.Since(start),
		Rollback:       rollback,
		State:          state,
	}, nil
}

func (e *Engine) restoreUsers(ctx context.Context, users []models.User, dryRun bool, resolver *conflictResolver, state *models.OperationState) (int, []string, []string, error) {
	var errs, warnings []string
	applied := 0

	for _, u := range users {
		existing, err := e.client.FindUserByName(ctx, u.Name)
		switch {
		case errors.Is(err, directory.NotFound):
			if dryRun {
				applied++
				continue
			}
			created, cErr := e.client.CreateUser(ctx, u)
			if cErr != nil {
				errs = append(errs, fmt.Sprintf("failed to restore user %s: %v", u.Name, cErr))
				continue
			}
			state.RollbackActions = append(state.RollbackActions, models.RollbackAction{ResourceType: models.KindUsers, ResourceID: created.ID, Inverse: "delete"})
			state.AppliedChanges = append(state.AppliedChanges, models.AppliedChange{ResourceType: models.KindUsers, ResourceID: created.ID, Action: models.ChangeCreate, NewValue: created})
			applied++

		case err != nil:
			errs = append(errs, fmt.Sprintf("failed to look up user %s: %v", u.Name, err))

		default:
			action := resolver.resolve(conflictInfo{
				resourceType:    models.KindUsers,
				resourceID:      u.Name,
				conflictType:    "user_exists",
				suggestedAction: "overwrite",
			}, func() string { return mergeUser(existing, u) })

			switch action {
			case "overwrite":
				if dryRun {
					applied++
					continue
				}
				updated := u
				updated.ID = existing.ID
				result, uErr := e.client.UpdateUser(ctx, updated)
				if uErr != nil {
					errs = append(errs, fmt.Sprintf("failed to update user %s: %v", u.Name, uErr))
					continue
				}
				state.RollbackActions = append(state.RollbackActions, models.RollbackAction{ResourceType: models.KindUsers, ResourceID: existing.ID, Inverse: models.ChangeUpdate, PriorValue: existing})
				state.AppliedChanges = append(state.AppliedChanges, models.AppliedChange{ResourceType: models.KindUsers, ResourceID: existing.ID, Action: models.ChangeUpdate, PriorValue: existing, NewValue: result})
				applied++
			default:
				warnings = append(warnings, fmt.Sprintf("skipped existing user: %s", u.Name))
			}
		}
	}

	return applied, errs, warnings, nil
}

func (e *Engine) restoreGroups(ctx context.Context, groups []models.Group, dryRun bool, resolver *conflictResolver, state *models.OperationState) (int, []string, []string, error) {
	var errs, warnings []string
	applied := 0

	for _, g := range groups {
		existing, err := e.client.FindGroupByName(ctx, g.Name)
		switch {
		case errors.Is(err, directory.NotFound):
			if dryRun {
				applied++
				continue
			}
			created, cErr := e.client.CreateGroup(ctx, g)
			if cErr != nil {
				errs = append(errs, fmt.Sprintf("failed to restore group %s: %v", g.Name, cErr))
				continue
			}
			state.RollbackActions = append(state.RollbackActions, models.RollbackAction{ResourceType: models.KindGroups, ResourceID: created.ID, Inverse: "delete"})
			state.AppliedChanges = append(state.AppliedChanges, models.AppliedChange{ResourceType: models.KindGroups, ResourceID: created.ID, Action: models.ChangeCreate, NewValue: created})
			applied++

		case err != nil:
			errs = append(errs, fmt.Sprintf("failed to look up group %s: %v", g.Name, err))

		default:
			action := resolver.resolve(conflictInfo{
				resourceType:    models.KindGroups,
				resourceID:      g.Name,
				conflictType:    "group_exists",
				suggestedAction: "merge",
			}, func() string { return mergeGroup(existing, g) })

			switch action {
			case "overwrite", "merge":
				if dryRun {
					applied++
					continue
				}
				updated := g
				updated.ID = existing.ID
				result, uErr := e.client.UpdateGroup(ctx, updated)
				if uErr != nil {
					errs = append(errs, fmt.Sprintf("failed to update group %s: %v", g.Name, uErr))
					continue
				}
				state.RollbackActions = append(state.RollbackActions, models.RollbackAction{ResourceType: models.KindGroups, ResourceID: existing.ID, Inverse: models.ChangeUpdate, PriorValue: existing})
				state.AppliedChanges = append(state.AppliedChanges, models.AppliedChange{ResourceType: models.KindGroups, ResourceID: existing.ID, Action: models.ChangeUpdate, PriorValue: existing, NewValue: result})
				applied++
			default:
				warnings = append(warnings, fmt.Sprintf("skipped existing group: %s", g.Name))
			}
		}
	}

	return applied, errs, warnings, nil
}

func (e *Engine) restorePermissionSets(ctx context.Context, sets []models.PermissionSet, dryRun bool, instanceArn string, resolver *conflictResolver, state *models.OperationState) (int, []string, []string, error) {
	var errs, warnings []string
	applied := 0

	if len(sets) == 0 {
		return 0, errs, warnings, nil
	}
	if instanceArn == "" {
		warnings = append(warnings, "target instance ARN not specified for permission set restore, skipping")
		return 0, errs, warnings, nil
	}

	for _, ps := range sets {
		existing, err := e.client.FindPermissionSetByName(ctx, ps.Name)
		switch {
		case errors.Is(err, directory.NotFound):
			if dryRun {
				applied++
				continue
			}
			created, cErr := e.client.CreatePermissionSet(ctx, ps)
			if cErr != nil {
				errs = append(errs, fmt.Sprintf("failed to restore permission set %s: %v", ps.Name, cErr))
				continue
			}
			state.RollbackActions = append(state.RollbackActions, models.RollbackAction{ResourceType: models.KindPermissionSets, ResourceID: created.Arn, Inverse: "delete"})
			state.AppliedChanges = append(state.AppliedChanges, models.AppliedChange{ResourceType: models.KindPermissionSets, ResourceID: created.Arn, Action: models.ChangeCreate, NewValue: created})
			applied++

		case err != nil:
			errs = append(errs, fmt.Sprintf("failed to look up permission set %s: %v", ps.Name, err))

		default:
			// MERGE has no sophisticated semantics for permission sets; it
			// collapses to OVERWRITE, same as the Python original.
			action := resolver.resolve(conflictInfo{
				resourceType:    models.KindPermissionSets,
				resourceID:      ps.Name,
				conflictType:    "permission_set_exists",
				suggestedAction: "overwrite",
			}, func() string { return "overwrite" })

			switch action {
			case "overwrite", "merge":
				if dryRun {
					applied++
					continue
				}
				updated := ps
				updated.Arn = existing.Arn
				result, uErr := e.client.UpdatePermissionSet(ctx, updated)
				if uErr != nil {
					errs = append(errs, fmt.Sprintf("failed to update permission set %s: %v", ps.Name, uErr))
					continue
				}
				state.RollbackActions = append(state.RollbackActions, models.RollbackAction{ResourceType: models.KindPermissionSets, ResourceID: existing.Arn, Inverse: models.ChangeUpdate, PriorValue: existing})
				state.AppliedChanges = append(state.AppliedChanges, models.AppliedChange{ResourceType: models.KindPermissionSets, ResourceID: existing.Arn, Action: models.ChangeUpdate, PriorValue: existing, NewValue: result})
				applied++
			default:
				warnings = append(warnings, fmt.Sprintf("skipped existing permission set: %s", ps.Name))
			}
		}
	}

	return applied, errs, warnings, nil
}

// restoreAssignments restores the 4-tuple bindings. Assignment creation is
// idempotent (models.Assignment.Key() is the identity), so there is no
// conflict to resolve: every assignment is simply (re)created.
func (e *Engine) restoreAssignments(ctx context.Context, assignments []models.Assignment, dryRun bool, state *models.OperationState) (int, []string, []string, error) {
	var errs, warnings []string
	applied := 0

	for _, a := range assignments {
		if dryRun {
			applied++
			continue
		}
		if err := e.client.CreateAssignment(ctx, a); err != nil {
			errs = append(errs, fmt.Sprintf("failed to restore assignment %s: %v", a.Key(), err))
			continue
		}
		state.RollbackActions = append(state.RollbackActions, models.RollbackAction{ResourceType: models.KindAssignments, ResourceID: a.Key(), Inverse: "delete", PriorValue: a})
		state.AppliedChanges = append(state.AppliedChanges, models.AppliedChange{ResourceType: models.KindAssignments, ResourceID: a.Key(), Action: models.ChangeCreate, NewValue: a})
		applied++
	}

	return applied, errs, warnings, nil
}

// rollback walks the rollback-action journal in reverse order, invoking
// the inverse operation for each. Rollback failures are collected; a
// partial rollback does not retry the forward path.
func (e *Engine) rollback(ctx context.Context, state *models.OperationState) RollbackResult {
	var errs []string
	reverted := 0

	for i := len(state.RollbackActions) - 1; i >= 0; i-- {
		action := state.RollbackActions[i]
		if err := e.applyRollback(ctx, action); err != nil {
			errs = append(errs, fmt.Sprintf("rollback of %s %s failed: %v", action.ResourceType, action.ResourceID, err))
			continue
		}
		reverted++
	}

	message := fmt.Sprintf("reverted %d of %d changes", reverted, len(state.RollbackActions))
	log.Printf("restore: %s", message)

	return RollbackResult{
		Success:                len(errs) == 0,
		AppliedChangesReverted: reverted,
		Message:                message,
		Errors:                 errs,
	}
}

func (e *Engine) applyRollback(ctx context.Context, action models.RollbackAction) error {
	switch action.ResourceType {
	case models.KindUsers:
		if action.Inverse == models.ChangeUpdate {
			prior, ok := action.PriorValue.(models.User)
			if !ok {
				return fmt.Errorf("rollback: prior user value missing or malformed")
			}
			_, err := e.client.UpdateUser(ctx, prior)
			return err
		}
		return e.client.DeleteUser(ctx, action.ResourceID)

	case models.KindGroups:
		if action.Inverse == models.ChangeUpdate {
			prior, ok := action.PriorValue.(models.Group)
			if !ok {
				return fmt.Errorf("rollback: prior group value missing or malformed")
			}
			_, err := e.client.UpdateGroup(ctx, prior)
			return err
		}
		return e.client.DeleteGroup(ctx, action.ResourceID)

	case models.KindPermissionSets:
		if action.Inverse == models.ChangeUpdate {
			prior, ok := action.PriorValue.(models.PermissionSet)
			if !ok {
				return fmt.Errorf("rollback: prior permission set value missing or malformed")
			}
			_, err := e.client.UpdatePermissionSet(ctx, prior)
			return err
		}
		return e.client.DeletePermissionSet(ctx, action.ResourceID)

	case models.KindAssignments:
		// ResourceID is the assignment's Key(); the journal's PriorValue
		// carries the original models.Assignment for reconstruction.
		prior, ok := action.PriorValue.(models.Assignment)
		if ok {
			return e.client.DeleteAssignment(ctx, prior)
		}
		return nil

	default:
		return fmt.Errorf("rollback: unknown resource type %q", action.ResourceType)
	}
}

// Preview implements preview(backup-id, options) -> RestorePreview: reports
// what a restore would do without applying anything.
func (e *Engine) Preview(ctx context.Context, backupID string, opts Options) (RestorePreview, error) {
	data, err := e.store.Retrieve(ctx, backupID)
	if err != nil {
		return RestorePreview{}, fmt.Errorf("restore: preview failed to retrieve backup %q: %w", backupID, err)
	}
	if opts.ResourceMappings != nil {
		data = applyResourceMapping(data, *opts.ResourceMappings)
	}

	plan := map[string]int{}
	var conflicts []ConflictPreview
	var warnings []string

	if opts.wants(models.KindUsers) {
		plan[string(models.KindUsers)] = len(data.Users)
		for _, u := range data.Users {
			if _, err := e.client.FindUserByName(ctx, u.Name); err == nil {
				conflicts = append(conflicts, ConflictPreview{models.KindUsers, u.Name, "user_exists", "overwrite"})
			}
		}
	}
	if opts.wants(models.KindGroups) {
		plan[string(models.KindGroups)] = len(data.Groups)
		for _, g := range data.Groups {
			if _, err := e.client.FindGroupByName(ctx, g.Name); err == nil {
				conflicts = append(conflicts, ConflictPreview{models.KindGroups, g.Name, "group_exists", "merge"})
			}
		}
	}
	if opts.wants(models.KindPermissionSets) {
		plan[string(models.KindPermissionSets)] = len(data.PermissionSets)
		if opts.TargetInstanceArn == "" {
			warnings = append(warnings, "target instance ARN not specified for permission set restore, skipping")
		} else {
			for _, ps := range data.PermissionSets {
				if _, err := e.client.FindPermissionSetByName(ctx, ps.Name); err == nil {
					conflicts = append(conflicts, ConflictPreview{models.KindPermissionSets, ps.Name, "permission_set_exists", "overwrite"})
				}
			}
		}
	}
	if opts.wants(models.KindAssignments) {
		plan[string(models.KindAssignments)] = len(data.Assignments)
	}

	return RestorePreview{ChangesPlanned: plan, Conflicts: conflicts, Warnings: warnings}, nil
}

// ValidateCompatibility implements validate_compatibility(backup-id,
// target-instance-arn) -> ValidationResult, reused by Restore before it
// applies any change unless options.SkipValidation is set.
func (e *Engine) ValidateCompatibility(ctx context.Context, data models.BackupData, targetInstanceArn string) (ValidationResult, error) {
	var errs, warnings []string
	details := map[string]any{}

	instance, err := e.client.DescribeInstance(ctx, targetInstanceArn)
	if err != nil {
		return ValidationResult{IsValid: false, Errors: []string{fmt.Sprintf("cannot access target instance: %s", targetInstanceArn)}}, nil
	}

	psConflicts := []string{}
	for _, ps := range data.PermissionSets {
		if _, err := e.client.FindPermissionSetByName(ctx, ps.Name); err == nil {
			warnings = append(warnings, fmt.Sprintf("permission set %q already exists and may be overwritten", ps.Name))
			psConflicts = append(psConflicts, ps.Name)
		}
		for _, policyArn := range ps.ManagedPolicies {
			if !isManagedPolicyArn(policyArn) {
				errs = append(errs, fmt.Sprintf("managed policy not found: %s", policyArn))
			}
		}
	}
	details["permission_sets"] = map[string]any{"total": len(data.PermissionSets), "conflicts": psConflicts}

	accountIDs := map[string]bool{}
	for _, a := range data.Assignments {
		accountIDs[a.AccountID] = true
	}
	details["accounts"] = map[string]any{"total_accounts": len(accountIDs)}

	if n := len(data.Users); n > 40000 {
		warnings = append(warnings, fmt.Sprintf("large number of users (%d) may approach service limits", n))
	}
	if n := len(data.Groups); n > 8000 {
		warnings = append(warnings, fmt.Sprintf("large number of groups (%d) may approach service limits", n))
	}
	if n := len(data.PermissionSets); n > 400 {
		warnings = append(warnings, fmt.Sprintf("large number of permission sets (%d) may approach service limits", n))
	}
	details["limits"] = map[string]any{
		"user_count":            len(data.Users),
		"group_count":           len(data.Groups),
		"permission_set_count":  len(data.PermissionSets),
	}

	if instance.AccountID != "" && data.Metadata.SourceAccount != "" && instance.AccountID != data.Metadata.SourceAccount {
		warnings = append(warnings, fmt.Sprintf("restoring across accounts: source %s, target %s", data.Metadata.SourceAccount, instance.AccountID))
		details["cross_account"] = true
	}
	if instance.Region != "" && data.Metadata.SourceRegion != "" && instance.Region != data.Metadata.SourceRegion {
		warnings = append(warnings, fmt.Sprintf("restoring across regions: source %s, target %s", data.Metadata.SourceRegion, instance.Region))
		details["cross_region"] = true
	}

	return ValidationResult{IsValid: len(errs) == 0, Errors: errs, Warnings: warnings, Details: details}, nil
}

func isManagedPolicyArn(arn string) bool {
	const prefix = "arn:aws:iam::aws:policy/"
	return len(arn) >= len(prefix) && arn[:len(prefix)] == prefix
}

// applyResourceMapping rewrites a defensive copy of data's account/region
// namespace and, if given, renames permission sets, before restore.
func applyResourceMapping(data models.BackupData, mapping ResourceMapping) models.BackupData {
	out := data
	out.PermissionSets = append([]models.PermissionSet(nil), data.PermissionSets...)
	out.Assignments = append([]models.Assignment(nil), data.Assignments...)

	for i, ps := range out.PermissionSets {
		if newName, ok := mapping.PermissionSetNames[ps.Name]; ok {
			ps.Name = newName
		}
		ps.Arn = remapArnNamespace(ps.Arn, mapping)
		out.PermissionSets[i] = ps
	}

	for i, a := range out.Assignments {
		if mapping.TargetAccountID != "" && a.AccountID == mapping.SourceAccountID {
			a.AccountID = mapping.TargetAccountID
		}
		a.PermissionSetArn = remapArnNamespace(a.PermissionSetArn, mapping)
		out.Assignments[i] = a
	}

	return out
}

// remapArnNamespace returns arn unchanged. Permission-set ARNs in this
// domain (arn:aws:sso:::permissionSet/...) carry no account/region segment;
// ARNs that do carry one (e.g. arn:aws:iam::ACCOUNT:...) are not rewritten
// either.
func remapArnNamespace(arn string, mapping ResourceMapping) string {
	return arn
}
