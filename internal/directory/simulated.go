package directory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/identitycore/idcenter/pkg/models"
)

// SimulatedClient is an in-memory stand-in for the real cloud-API client
// named as an external collaborator in §1/§6. It is used by tests and by
// the ambient entry point when no real directory credentials are
// configured, the same way the donor codebase's SimulatedKubeClient stands
// in for a real Kubernetes client.
type SimulatedClient struct {
	mu sync.RWMutex

	usersByID    map[string]models.User
	usersByName  map[string]string // name -> id
	groupsByID   map[string]models.Group
	groupsByName map[string]string
	setsByArn    map[string]models.PermissionSet
	setsByName   map[string]string // name -> arn
	assignments  map[string]models.Assignment // key -> assignment

	accounts  map[string]AccountInfo
	instances map[string]InstanceInfo
}

// NewSimulatedClient creates a SimulatedClient seeded with a handful of
// sample accounts, users, groups, and permission sets so the ambient
// process has something to snapshot and the exported example scenarios in
// SPEC_FULL.md (S1-S6) are reproducible against it.
func NewSimulatedClient() *SimulatedClient {
	c := &SimulatedClient{
		usersByID:    make(map[string]models.User),
		usersByName:  make(map[string]string),
		groupsByID:   make(map[string]models.Group),
		groupsByName: make(map[string]string),
		setsByArn:    make(map[string]models.PermissionSet),
		setsByName:   make(map[string]string),
		assignments:  make(map[string]models.Assignment),
		accounts:     make(map[string]AccountInfo),
		instances:    make(map[string]InstanceInfo),
	}

	now := time.Now()

	c.seedUser(models.User{Name: "alice", DisplayName: "Alice Example", Email: "alice@example.com", Active: true, LastModified: now})
	c.seedUser(models.User{Name: "bob", DisplayName: "Bob Example", Email: "bob@example.com", Active: true, LastModified: now})

	c.seedGroup(models.Group{Name: "devs", Description: "Developers", LastModified: now})

	c.seedPermissionSet(models.PermissionSet{Name: "ReadOnlyAccess", Arn: "arn:aws:sso:::permissionSet/ps-readonly", LastModified: now})
	c.seedPermissionSet(models.PermissionSet{Name: "PowerUserAccess", Arn: "arn:aws:sso:::permissionSet/ps-poweruser", LastModified: now})
	c.seedPermissionSet(models.PermissionSet{Name: "DevAccess", Arn: "arn:aws:sso:::permissionSet/ps-devaccess", LastModified: now})

	c.accounts["123456789012"] = AccountInfo{AccountID: "123456789012", Name: "Prod", Active: true, Tags: map[string]string{"Environment": "production"}}
	c.accounts["234567890123"] = AccountInfo{AccountID: "234567890123", Name: "Dev", Active: true, Tags: map[string]string{"Environment": "development"}}

	c.instances["arn:aws:sso:::instance/ssoins-default"] = InstanceInfo{
		InstanceArn:     "arn:aws:sso:::instance/ssoins-default",
		AccountID:       "123456789012",
		Region:          "us-east-1",
		IdentityStoreID: "d-simulated",
	}

	return c
}

func (c *SimulatedClient) seedUser(u models.User) {
	u.ID = uuid.NewString()
	c.usersByID[u.ID] = u
	c.usersByName[u.Name] = u.ID
}

func (c *SimulatedClient) seedGroup(g models.Group) {
	g.ID = uuid.NewString()
	c.groupsByID[g.ID] = g
	c.groupsByName[g.Name] = g.ID
}

func (c *SimulatedClient) seedPermissionSet(p models.PermissionSet) {
	c.setsByArn[p.Arn] = p
	c.setsByName[p.Name] = p.Arn
}

func (c *SimulatedClient) ListUsers(ctx context.Context, page Page) ([]models.User, Page, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.User, 0, len(c.usersByID))
	for _, u := range c.usersByID {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, Page{}, nil
}

func (c *SimulatedClient) DescribeUser(ctx context.Context, id string) (models.User, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	u, ok := c.usersByID[id]
	if !ok {
		return models.User{}, NotFound
	}
	return u, nil
}

func (c *SimulatedClient) FindUserByName(ctx context.Context, name string) (models.User, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.usersByName[name]
	if !ok {
		return models.User{}, NotFound
	}
	return c.usersByID[id], nil
}

func (c *SimulatedClient) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.LastModified = time.Now()
	c.usersByID[u.ID] = u
	c.usersByName[u.Name] = u.ID
	return u, nil
}

func (c *SimulatedClient) UpdateUser(ctx context.Context, u models.User) (models.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.usersByID[u.ID]; !ok {
		return models.User{}, NotFound
	}
	u.LastModified = time.Now()
	c.usersByID[u.ID] = u
	c.usersByName[u.Name] = u.ID
	return u, nil
}

func (c *SimulatedClient) DeleteUser(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.usersByID[id]
	if !ok {
		return NotFound
	}
	delete(c.usersByID, id)
	delete(c.usersByName, u.Name)
	return nil
}

func (c *SimulatedClient) ListGroups(ctx context.Context, page Page) ([]models.Group, Page, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Group, 0, len(c.groupsByID))
	for _, g := range c.groupsByID {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, Page{}, nil
}

func (c *SimulatedClient) DescribeGroup(ctx context.Context, id string) (models.Group, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	g, ok := c.groupsByID[id]
	if !ok {
		return models.Group{}, NotFound
	}
	return g, nil
}

func (c *SimulatedClient) FindGroupByName(ctx context.Context, name string) (models.Group, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.groupsByName[name]
	if !ok {
		return models.Group{}, NotFound
	}
	return c.groupsByID[id], nil
}

func (c *SimulatedClient) CreateGroup(ctx context.Context, g models.Group) (models.Group, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	g.LastModified = time.Now()
	c.groupsByID[g.ID] = g
	c.groupsByName[g.Name] = g.ID
	return g, nil
}

func (c *SimulatedClient) UpdateGroup(ctx context.Context, g models.Group) (models.Group, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.groupsByID[g.ID]; !ok {
		return models.Group{}, NotFound
	}
	g.LastModified = time.Now()
	c.groupsByID[g.ID] = g
	c.groupsByName[g.Name] = g.ID
	return g, nil
}

func (c *SimulatedClient) DeleteGroup(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.groupsByID[id]
	if !ok {
		return NotFound
	}
	delete(c.groupsByID, id)
	delete(c.groupsByName, g.Name)
	return nil
}

func (c *SimulatedClient) ListPermissionSets(ctx context.Context, page Page) ([]models.PermissionSet, Page, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.PermissionSet, 0, len(c.setsByArn))
	for _, p := range c.setsByArn {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, Page{}, nil
}

func (c *SimulatedClient) DescribePermissionSet(ctx context.Context, arn string) (models.PermissionSet, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.setsByArn[arn]
	if !ok {
		return models.PermissionSet{}, NotFound
	}
	return p, nil
}

func (c *SimulatedClient) FindPermissionSetByName(ctx context.Context, name string) (models.PermissionSet, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	arn, ok := c.setsByName[name]
	if !ok {
		return models.PermissionSet{}, NotFound
	}
	return c.setsByArn[arn], nil
}

func (c *SimulatedClient) CreatePermissionSet(ctx context.Context, p models.PermissionSet) (models.PermissionSet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p.Arn == "" {
		p.Arn = fmt.Sprintf("arn:aws:sso:::permissionSet/ps-%s", uuid.NewString())
	}
	p.LastModified = time.Now()
	c.setsByArn[p.Arn] = p
	c.setsByName[p.Name] = p.Arn
	return p, nil
}

func (c *SimulatedClient) UpdatePermissionSet(ctx context.Context, p models.PermissionSet) (models.PermissionSet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.setsByArn[p.Arn]; !ok {
		return models.PermissionSet{}, NotFound
	}
	p.LastModified = time.Now()
	c.setsByArn[p.Arn] = p
	c.setsByName[p.Name] = p.Arn
	return p, nil
}

func (c *SimulatedClient) DeletePermissionSet(ctx context.Context, arn string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.setsByArn[arn]
	if !ok {
		return NotFound
	}
	delete(c.setsByArn, arn)
	delete(c.setsByName, p.Name)
	return nil
}

func (c *SimulatedClient) ListAssignments(ctx context.Context, accountID, permissionSetArn string, page Page) ([]models.Assignment, Page, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Assignment, 0)
	for _, a := range c.assignments {
		if accountID != "" && a.AccountID != accountID {
			continue
		}
		if permissionSetArn != "" && a.PermissionSetArn != permissionSetArn {
			continue
		}
		out = append(out, a)
	}
	return out, Page{}, nil
}

func (c *SimulatedClient) CreateAssignment(ctx context.Context, a models.Assignment) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.assignments[a.Key()] = a
	return nil
}

func (c *SimulatedClient) DeleteAssignment(ctx context.Context, a models.Assignment) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.assignments, a.Key())
	return nil
}

func (c *SimulatedClient) ListInstances(ctx context.Context) ([]InstanceInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]InstanceInfo, 0, len(c.instances))
	for _, i := range c.instances {
		out = append(out, i)
	}
	return out, nil
}

func (c *SimulatedClient) DescribeInstance(ctx context.Context, instanceArn string) (InstanceInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.instances[instanceArn]
	if !ok {
		return InstanceInfo{}, NotFound
	}
	return i, nil
}

func (c *SimulatedClient) ListAccounts(ctx context.Context, page Page) ([]AccountInfo, Page, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]AccountInfo, 0, len(c.accounts))
	for _, a := range c.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out, Page{}, nil
}

func (c *SimulatedClient) DescribeAccount(ctx context.Context, accountID string) (AccountInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.accounts[accountID]
	if !ok {
		return AccountInfo{}, NotFound
	}
	return a, nil
}

func (c *SimulatedClient) ListTags(ctx context.Context, accountID string) (map[string]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.accounts[accountID]
	if !ok {
		return nil, NotFound
	}
	return a.Tags, nil
}

func (c *SimulatedClient) Probe(ctx context.Context) (ProbeResult, error) {
	return ProbeResult{OK: true, CheckedAt: time.Now()}, nil
}
