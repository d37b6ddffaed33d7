// Package models defines the core data structures shared across idcenter.
//
// idcenter administers a cloud-identity service: users, groups, permission
// sets, and per-account assignments of permission sets to principals. These
// types represent the directory's own entities plus the backup, template,
// and restore-operation records idcenter layers on top of them.
package models

import "time"

// PrincipalType distinguishes a User from a Group as an assignment target.
type PrincipalType string

const (
	PrincipalUser  PrincipalType = "USER"
	PrincipalGroup PrincipalType = "GROUP"
)

// BackupType distinguishes a full snapshot from an incremental one.
type BackupType string

const (
	BackupTypeFull        BackupType = "FULL"
	BackupTypeIncremental BackupType = "INCREMENTAL"
)

// ConflictStrategy selects how the Restore Engine treats an existing
// resource that collides with one being restored.
type ConflictStrategy string

const (
	ConflictOverwrite ConflictStrategy = "OVERWRITE"
	ConflictSkip      ConflictStrategy = "SKIP"
	ConflictMerge     ConflictStrategy = "MERGE"
	ConflictPrompt    ConflictStrategy = "PROMPT"
)

// ChangeAction is the kind of mutation an applied-change record describes.
type ChangeAction string

const (
	ChangeCreate ChangeAction = "create"
	ChangeUpdate ChangeAction = "update"
)

// RetentionPeriod is one of the four buckets a backup's age is sorted into.
type RetentionPeriod string

const (
	PeriodDaily   RetentionPeriod = "daily"
	PeriodWeekly  RetentionPeriod = "weekly"
	PeriodMonthly RetentionPeriod = "monthly"
	PeriodYearly  RetentionPeriod = "yearly"
)

// AlertSeverity grades a storage-limit alert.
type AlertSeverity string

const (
	SeverityWarning  AlertSeverity = "WARNING"
	SeverityCritical AlertSeverity = "CRITICAL"
)

// BulkOperation is the kind of mutation the Batch Executor applies to an
// assignment 4-tuple.
type BulkOperation string

const (
	OpAssign BulkOperation = "assign"
	OpRevoke BulkOperation = "revoke"
)

// ResourceKind enumerates the four snapshot-able resource types plus the
// catch-all "all" used in restore target-resource selections.
type ResourceKind string

const (
	KindUsers           ResourceKind = "users"
	KindGroups          ResourceKind = "groups"
	KindPermissionSets  ResourceKind = "permission_sets"
	KindAssignments     ResourceKind = "assignments"
	KindAll             ResourceKind = "all"
)

// User is a principal with a login identity in the directory.
type User struct {
	ID          string            `json:"id" db:"id"`
	Name        string            `json:"name" db:"name"`
	DisplayName string            `json:"display_name" db:"display_name"`
	Email       string            `json:"email,omitempty" db:"email"`
	GivenName   string            `json:"given_name,omitempty" db:"given_name"`
	FamilyName  string            `json:"family_name,omitempty" db:"family_name"`
	Active      bool              `json:"active" db:"active"`
	ExternalIDs map[string]string `json:"external_ids,omitempty" db:"external_ids"`
	LastModified time.Time        `json:"last_modified" db:"last_modified"`
}

// Group is a principal whose membership is a set of user ids.
type Group struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Description  string    `json:"description,omitempty" db:"description"`
	Members      []string  `json:"members" db:"members"`
	LastModified time.Time `json:"last_modified" db:"last_modified"`
}

// PermissionSet is a named bundle of policies assignable to a principal in
// an account. Its arn is the stable key; its name is unique per instance.
type PermissionSet struct {
	Arn                    string    `json:"arn" db:"arn"`
	Name                   string    `json:"name" db:"name"`
	Description            string    `json:"description,omitempty" db:"description"`
	SessionDuration        string    `json:"session_duration,omitempty" db:"session_duration"`
	RelayState             string    `json:"relay_state,omitempty" db:"relay_state"`
	InlinePolicy           string    `json:"inline_policy,omitempty" db:"inline_policy"`
	ManagedPolicies        []string  `json:"managed_policies" db:"managed_policies"`
	CustomerManagedPolicies []string `json:"customer_managed_policies" db:"customer_managed_policies"`
	PermissionsBoundary    string    `json:"permissions_boundary,omitempty" db:"permissions_boundary"`
	LastModified           time.Time `json:"last_modified" db:"last_modified"`
}

// Assignment binds one principal to one permission set in one account.
// Identity is the 4-tuple; duplicate creation is an idempotent no-op.
type Assignment struct {
	AccountID        string        `json:"account_id" db:"account_id"`
	PermissionSetArn string        `json:"permission_set_arn" db:"permission_set_arn"`
	PrincipalType    PrincipalType `json:"principal_type" db:"principal_type"`
	PrincipalID      string        `json:"principal_id" db:"principal_id"`
}

// Key returns the assignment's identity tuple as a stable map key.
func (a Assignment) Key() string {
	return a.AccountID + "/" + a.PermissionSetArn + "/" + string(a.PrincipalType) + "/" + a.PrincipalID
}

// RelationshipMap captures the graph edges a Backup needs to restore
// membership and assignment relationships, not just flat resource lists.
type RelationshipMap struct {
	UserGroups            map[string][]string `json:"user_groups"`             // user id -> group ids
	GroupMembers          map[string][]string `json:"group_members"`           // group id -> user ids
	PermissionSetAssigns  map[string][]string `json:"permission_set_assigns"`  // permission-set arn -> assignment keys
}

// BackupMetadata describes a Backup without its resource graph.
type BackupMetadata struct {
	BackupID          string           `json:"backup_id" db:"backup_id"`
	Timestamp         time.Time        `json:"timestamp" db:"timestamp"`
	SourceInstanceArn string           `json:"source_instance_arn" db:"source_instance_arn"`
	SourceAccount     string           `json:"source_account" db:"source_account"`
	SourceRegion      string           `json:"source_region" db:"source_region"`
	Type              BackupType       `json:"type" db:"type"`
	Version           string           `json:"version" db:"version"`
	RetentionPolicy   *RetentionPolicy `json:"retention_policy,omitempty" db:"retention_policy"`
	EncryptionInfo    string           `json:"encryption_info,omitempty" db:"encryption_info"`
	ResourceCounts    map[string]int   `json:"resource_counts" db:"resource_counts"`
	SizeBytes         int64            `json:"size_bytes" db:"size_bytes"`
	Checksum          string           `json:"checksum" db:"checksum"`
}

// BackupData is the full aggregate: principals, groups, permission sets,
// assignments, their relationships, and the metadata record describing them.
type BackupData struct {
	Metadata        BackupMetadata     `json:"metadata"`
	Users           []User             `json:"users"`
	Groups          []Group            `json:"groups"`
	PermissionSets  []PermissionSet    `json:"permission_sets"`
	Assignments     []Assignment       `json:"assignments"`
	Relationships   RelationshipMap    `json:"relationships"`
}

// RetentionPolicy controls how many backups of each age bucket are kept.
type RetentionPolicy struct {
	KeepDaily   int  `json:"keep_daily" db:"keep_daily"`
	KeepWeekly  int  `json:"keep_weekly" db:"keep_weekly"`
	KeepMonthly int  `json:"keep_monthly" db:"keep_monthly"`
	KeepYearly  int  `json:"keep_yearly" db:"keep_yearly"`
	AutoCleanup bool `json:"auto_cleanup" db:"auto_cleanup"`
}

// AppliedChange records one mutation performed during a restore, along with
// enough of the prior value to reverse it.
type AppliedChange struct {
	ResourceType ResourceKind `json:"resource_type"`
	ResourceID   string       `json:"resource_id"`
	Action       ChangeAction `json:"action"`
	PriorValue   interface{}  `json:"prior_value,omitempty"`
	NewValue     interface{}  `json:"new_value"`
}

// RollbackAction is the inverse of one AppliedChange: delete what was
// created, or restore what was overwritten.
type RollbackAction struct {
	ResourceType ResourceKind `json:"resource_type"`
	ResourceID   string       `json:"resource_id"`
	Inverse      ChangeAction `json:"inverse"` // "delete" conceptually, or "update" to restore prior
	PriorValue   interface{}  `json:"prior_value,omitempty"`
}

// Checkpoint records the resource counts a restore phase observed when it
// completed, so a rerun against persisted OperationState can skip it.
type Checkpoint struct {
	Phase          ResourceKind   `json:"phase"`
	ResourceCounts map[string]int `json:"resource_counts"`
	CompletedAt    time.Time      `json:"completed_at"`
}

// OperationState is the Restore Engine's in-flight and post-hoc record of
// one restore run: checkpoints reached, changes applied, and the rollback
// journal needed to undo them.
type OperationState struct {
	OperationID     string           `json:"operation_id" db:"operation_id"`
	Type            string           `json:"type" db:"type"`
	StartTime       time.Time        `json:"start_time" db:"start_time"`
	Checkpoints     []Checkpoint     `json:"checkpoints" db:"checkpoints"`
	AppliedChanges  []AppliedChange  `json:"applied_changes" db:"applied_changes"`
	RollbackActions []RollbackAction `json:"rollback_actions" db:"rollback_actions"`
	Completed       bool             `json:"completed" db:"completed"`
	Success         bool             `json:"success" db:"success"`
}

// TemplateMetadata documents a Template: who owns it and when it changed.
type TemplateMetadata struct {
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Version     string    `json:"version,omitempty" yaml:"version,omitempty"`
	Author      string    `json:"author,omitempty" yaml:"author,omitempty"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at"`
}

// TemplateTarget selects the accounts a TemplateAssignment applies to,
// either by explicit id list or by a tag filter, never both.
type TemplateTarget struct {
	AccountIDs      []string          `json:"account_ids,omitempty" yaml:"account_ids,omitempty"`
	AccountTags     map[string]string `json:"account_tags,omitempty" yaml:"account_tags,omitempty"`
	ExcludeAccounts []string          `json:"exclude_accounts,omitempty" yaml:"exclude_accounts,omitempty"`
}

// EstimateAccountCount returns the number of accounts this target will
// affect: the explicit id count, or -1 when the target is tag-based and
// needs directory resolution to know the real count.
func (t TemplateTarget) EstimateAccountCount() int {
	if len(t.AccountIDs) > 0 {
		return len(t.AccountIDs)
	}
	if len(t.AccountTags) > 0 {
		return -1
	}
	return 0
}

// TemplateAssignment is one entry of a Template: a set of entity references
// crossed with a set of permission sets, applied to a set of target accounts.
type TemplateAssignment struct {
	Entities        []string       `json:"entities" yaml:"entities"`
	PermissionSets  []string       `json:"permission_sets" yaml:"permission_sets"`
	Targets         TemplateTarget `json:"targets" yaml:"targets"`
}

// GetTotalAssignments returns |entities| * |permission_sets| *
// |resolved accounts|, or -1 if the target's account count is indeterminate.
func (a TemplateAssignment) GetTotalAssignments() int {
	accounts := a.Targets.EstimateAccountCount()
	if accounts == -1 {
		return -1
	}
	return len(a.Entities) * len(a.PermissionSets) * accounts
}

// Template is a declarative assignment template: metadata plus a non-empty
// ordered sequence of assignments to expand into concrete triples.
type Template struct {
	Metadata    TemplateMetadata      `json:"metadata" yaml:"metadata"`
	Assignments []TemplateAssignment  `json:"assignments" yaml:"assignments"`
}

// GetTotalAssignments sums GetTotalAssignments across every assignment, or
// returns -1 if any one of them is indeterminate (tag-based targets).
func (t Template) GetTotalAssignments() int {
	total := 0
	for _, a := range t.Assignments {
		n := a.GetTotalAssignments()
		if n == -1 {
			return -1
		}
		total += n
	}
	return total
}

// GetEntityCount returns the number of distinct entity references across
// every assignment in the template.
func (t Template) GetEntityCount() int {
	seen := make(map[string]struct{})
	for _, a := range t.Assignments {
		for _, e := range a.Entities {
			seen[e] = struct{}{}
		}
	}
	return len(seen)
}

// GetPermissionSetCount returns the number of distinct permission-set names
// referenced across every assignment in the template.
func (t Template) GetPermissionSetCount() int {
	seen := make(map[string]struct{})
	for _, a := range t.Assignments {
		for _, p := range a.PermissionSets {
			seen[p] = struct{}{}
		}
	}
	return len(seen)
}

// BulkRecord is one row of an Ingestor-parsed assignment file, enriched by
// the Resolver as it progresses through the pipeline.
type BulkRecord struct {
	LineNumber      int           `json:"line_number"`
	PrincipalName   string        `json:"principal_name"`
	PermissionSet   string        `json:"permission_set_name"`
	AccountName     string        `json:"account_name"`
	PrincipalType   PrincipalType `json:"principal_type"`

	// Populated by the Resolver.
	PrincipalID      string `json:"principal_id,omitempty"`
	PermissionSetArn string `json:"permission_set_arn,omitempty"`
	AccountID        string `json:"account_id,omitempty"`
	Resolved         bool   `json:"resolved"`
	ResolutionErrors []string `json:"resolution_errors,omitempty"`
}

// BulkResults is the outcome of a Batch Executor run.
type BulkResults struct {
	Successful      []BulkItemResult `json:"successful"`
	Failed          []BulkItemResult `json:"failed"`
	Skipped         []BulkItemResult `json:"skipped"`
	TotalProcessed  int              `json:"total_processed"`
	OpType          BulkOperation    `json:"op_type"`
}

// BulkItemResult is the per-item outcome of one assign/revoke dispatch.
type BulkItemResult struct {
	Record   BulkRecord    `json:"record"`
	Status   string        `json:"status"` // "already-exists", "already-absent", "created", "deleted", "failed", "dry-run", "skipped-cancelled"
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration"`
}
