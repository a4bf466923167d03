package rbac

import (
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

// Role names are fixed; there is no per-tenant policy store.
const (
	RoleEmployee = "employee"
	RoleManager  = "manager"
	RoleAdmin    = "admin"
)

const modelText = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

// policy rows: role, resource, action
var policy = [][]string{
	{RoleEmployee, "leave", "apply"},
	{RoleEmployee, "leave", "read_own"},
	{RoleEmployee, "balance", "read_own"},
	{RoleManager, "leave", "read_all"},
	{RoleManager, "leave", "approve"},
	{RoleManager, "employee", "read"},
	{RoleManager, "balance", "read"},
	{RoleAdmin, "employee", "manage"},
}

// grouping rows: child role inherits parent role's permissions
var grouping = [][]string{
	{RoleManager, RoleEmployee},
	{RoleAdmin, RoleManager},
}

type Service interface {
	Enforce(role, resource, action string) (bool, error)
}

type service struct {
	enforcer *casbin.Enforcer
	mu       sync.RWMutex
}

func NewService() (Service, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}

	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}

	for _, p := range policy {
		if _, err := e.AddPolicy(p[0], p[1], p[2]); err != nil {
			return nil, err
		}
	}
	for _, g := range grouping {
		if _, err := e.AddGroupingPolicy(g[0], g[1]); err != nil {
			return nil, err
		}
	}

	return &service{enforcer: e}, nil
}

func (s *service) Enforce(role, resource, action string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.enforcer.Enforce(role, resource, action)
}
