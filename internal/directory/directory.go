// Package directory defines the narrow capability interface idcenter's
// core consumes from the identity directory (§6): list/describe/create/
// update for users, groups, and permission sets; list/create/delete for
// assignments; instance and account/tag lookups. The core never talks to a
// concrete cloud-API client directly — that client is an external
// collaborator (§1) wired in at construction, never loaded lazily or
// reached through a hidden global (§9 "dynamic dispatch / duck-typed
// clients").
package directory

import (
	"context"
	"time"

	"github.com/identitycore/idcenter/pkg/models"
)

// NotFound is returned by resolution lookups when no matching resource
// exists. Callers distinguish it from transport/permission failures with
// errors.Is.
var NotFound = notFoundErr{}

type notFoundErr struct{}

func (notFoundErr) Error() string { return "directory: resource not found" }

// AccountInfo describes one account reachable from the instance, with the
// tags the tag-based template target expansion (§4.E) matches against.
type AccountInfo struct {
	AccountID string
	Name      string
	Active    bool
	Tags      map[string]string
}

// InstanceInfo describes an identity-center instance.
type InstanceInfo struct {
	InstanceArn string
	AccountID   string
	Region      string
	IdentityStoreID string
}

// Page is a pagination cursor; an empty Page means start from the
// beginning. Every list call must tolerate pagination and throttling per
// §6.
type Page struct {
	Token string
}

// Client is the capability set the core is allowed to depend on. A real
// implementation wraps the cloud-API client library named as an external
// collaborator in §1; SimulatedClient (see simulated.go) is an in-memory
// stand-in used by tests and by the ambient entry point when no real
// credentials are configured.
type Client interface {
	// Users
	ListUsers(ctx context.Context, page Page) (users []models.User, next Page, err error)
	DescribeUser(ctx context.Context, id string) (models.User, error)
	FindUserByName(ctx context.Context, name string) (models.User, error)
	CreateUser(ctx context.Context, u models.User) (models.User, error)
	UpdateUser(ctx context.Context, u models.User) (models.User, error)
	DeleteUser(ctx context.Context, id string) error

	// Groups
	ListGroups(ctx context.Context, page Page) (groups []models.Group, next Page, err error)
	DescribeGroup(ctx context.Context, id string) (models.Group, error)
	FindGroupByName(ctx context.Context, name string) (models.Group, error)
	CreateGroup(ctx context.Context, g models.Group) (models.Group, error)
	UpdateGroup(ctx context.Context, g models.Group) (models.Group, error)
	DeleteGroup(ctx context.Context, id string) error

	// Permission sets
	ListPermissionSets(ctx context.Context, page Page) (sets []models.PermissionSet, next Page, err error)
	DescribePermissionSet(ctx context.Context, arn string) (models.PermissionSet, error)
	FindPermissionSetByName(ctx context.Context, name string) (models.PermissionSet, error)
	CreatePermissionSet(ctx context.Context, p models.PermissionSet) (models.PermissionSet, error)
	UpdatePermissionSet(ctx context.Context, p models.PermissionSet) (models.PermissionSet, error)
	DeletePermissionSet(ctx context.Context, arn string) error

	// Assignments
	ListAssignments(ctx context.Context, accountID, permissionSetArn string, page Page) (assigns []models.Assignment, next Page, err error)
	CreateAssignment(ctx context.Context, a models.Assignment) error
	DeleteAssignment(ctx context.Context, a models.Assignment) error

	// Instances and accounts
	ListInstances(ctx context.Context) ([]InstanceInfo, error)
	DescribeInstance(ctx context.Context, instanceArn string) (InstanceInfo, error)
	ListAccounts(ctx context.Context, page Page) (accounts []AccountInfo, next Page, err error)
	DescribeAccount(ctx context.Context, accountID string) (AccountInfo, error)
	ListTags(ctx context.Context, accountID string) (map[string]string, error)

	// Probe issues a benign read call used by collector connection
	// validation (§4.G) and returns the capabilities it could exercise.
	Probe(ctx context.Context) (ProbeResult, error)
}

// ProbeResult lists any capabilities a connection-validation probe could
// not exercise, so the Collector can report missing permissions up front
// instead of failing mid-snapshot.
type ProbeResult struct {
	OK                bool
	MissingCapabilities []string
	CheckedAt         time.Time
}
