package policy

import (
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"municipality/internal/apperr"
)

// Role constants
const (
	RoleCitizen       = "citizen"
	RoleEmployee      = "employee"
	RoleManager       = "manager"
	RoleAdministrator = "administrator"
)

// Resource names an entity kind guarded by the policy
type Resource string

const (
	ResourceRequest      Resource = "request"
	ResourcePayment      Resource = "payment"
	ResourceComplaint    Resource = "complaint"
	ResourceNotification Resource = "notification"
	ResourceAttachment   Resource = "attachment"
	ResourceEmployee     Resource = "employee"
	ResourceDepartment   Resource = "department"
	ResourceAnnouncement Resource = "announcement"
	ResourceFeedback     Resource = "feedback"
	ResourceTask         Resource = "task"
)

// Action names an operation on a resource
type Action string

const (
	ActionCreate  Action = "create"
	ActionRead    Action = "read"
	ActionList    Action = "list"
	ActionUpdate  Action = "update"
	ActionAssign  Action = "assign"
	ActionDelete  Action = "delete"
	ActionPay     Action = "pay"
	ActionRespond Action = "respond"
	ActionSend    Action = "send"
)

const (
	scopeAny = "any"
	scopeOwn = "own"
)

// Principal is the authenticated caller. An employee is also a citizen, so
// both ids may be set and Roles may hold both roles.
type Principal struct {
	AccountID  uint
	CitizenID  uint
	EmployeeID uint
	Email      string
	Roles      []string
}

// HasRole checks if the principal holds a specific role
func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Entity describes the target of an action. OwnerID is the citizen id of
// the owner; zero means the entity has no owner.
type Entity struct {
	Resource Resource
	OwnerID  uint
}

// On builds an entity for a resource owned by citizenID
func On(resource Resource, citizenID uint) Entity {
	return Entity{Resource: resource, OwnerID: citizenID}
}

const modelText = `
[request_definition]
r = sub, obj, act, scope

[policy_definition]
p = sub, obj, act, scope

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj && r.act == p.act && r.scope == p.scope
`

// DefaultRules grants each role its capabilities as (role, resource, action, scope)
var DefaultRules = [][]string{
	{RoleCitizen, "request", "create", scopeOwn},
	{RoleCitizen, "request", "read", scopeOwn},
	{RoleCitizen, "request", "list", scopeOwn},
	{RoleCitizen, "request", "delete", scopeOwn},
	{RoleCitizen, "payment", "pay", scopeOwn},
	{RoleCitizen, "payment", "read", scopeOwn},
	{RoleCitizen, "payment", "list", scopeOwn},
	{RoleCitizen, "complaint", "create", scopeOwn},
	{RoleCitizen, "complaint", "read", scopeOwn},
	{RoleCitizen, "complaint", "list", scopeOwn},
	{RoleCitizen, "complaint", "delete", scopeOwn},
	{RoleCitizen, "notification", "read", scopeOwn},
	{RoleCitizen, "notification", "list", scopeOwn},
	{RoleCitizen, "notification", "update", scopeOwn},
	{RoleCitizen, "notification", "delete", scopeOwn},
	{RoleCitizen, "attachment", "create", scopeOwn},
	{RoleCitizen, "attachment", "read", scopeOwn},
	{RoleCitizen, "attachment", "list", scopeOwn},
	{RoleCitizen, "attachment", "delete", scopeOwn},
	{RoleCitizen, "department", "list", scopeAny},
	{RoleCitizen, "feedback", "create", scopeOwn},
	{RoleCitizen, "feedback", "list", scopeOwn},

	{RoleEmployee, "request", "read", scopeAny},
	{RoleEmployee, "request", "list", scopeAny},
	{RoleEmployee, "request", "assign", scopeAny},
	{RoleEmployee, "request", "update", scopeAny},
	{RoleEmployee, "payment", "read", scopeAny},
	{RoleEmployee, "payment", "list", scopeAny},
	{RoleEmployee, "complaint", "read", scopeAny},
	{RoleEmployee, "complaint", "list", scopeAny},
	{RoleEmployee, "complaint", "assign", scopeAny},
	{RoleEmployee, "complaint", "update", scopeAny},
	{RoleEmployee, "complaint", "respond", scopeAny},
	{RoleEmployee, "notification", "send", scopeAny},
	{RoleEmployee, "attachment", "read", scopeAny},
	{RoleEmployee, "attachment", "list", scopeAny},
	{RoleEmployee, "employee", "create", scopeAny},
	{RoleEmployee, "employee", "read", scopeAny},
	{RoleEmployee, "employee", "list", scopeAny},
	{RoleEmployee, "department", "create", scopeAny},
	{RoleEmployee, "department", "read", scopeAny},
	{RoleEmployee, "department", "list", scopeAny},
	{RoleEmployee, "announcement", "create", scopeAny},
	{RoleEmployee, "announcement", "update", scopeAny},
	{RoleEmployee, "announcement", "delete", scopeAny},
	{RoleEmployee, "feedback", "list", scopeAny},
	{RoleEmployee, "task", "list", scopeAny},

	{RoleManager, "employee", "update", scopeAny},
	{RoleManager, "department", "update", scopeAny},

	{RoleAdministrator, "employee", "update", scopeAny},
	{RoleAdministrator, "employee", "delete", scopeAny},
	{RoleAdministrator, "department", "update", scopeAny},
	{RoleAdministrator, "department", "delete", scopeAny},
}

// Authorizer answers capability questions from casbin rules
type Authorizer struct {
	enforcer *casbin.Enforcer
	logger   *zap.Logger
}

// New creates an authorizer loaded with rules
func New(rules [][]string, logger *zap.Logger) (*Authorizer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse policy model")
	}

	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create enforcer")
	}

	if len(rules) > 0 {
		if _, err := enforcer.AddPolicies(rules); err != nil {
			return nil, errors.Wrap(err, "failed to load policy rules")
		}
	}

	return &Authorizer{enforcer: enforcer, logger: logger.Named("policy")}, nil
}

// Can reports whether principal may perform action on entity. An "any" grant
// covers every entity; an "own" grant requires the principal to own it.
func (a *Authorizer) Can(principal Principal, action Action, entity Entity) bool {
	for _, role := range principal.Roles {
		if a.enforce(role, entity.Resource, action, scopeAny) {
			return true
		}
		if entity.OwnerID != 0 && entity.OwnerID == principal.CitizenID &&
			a.enforce(role, entity.Resource, action, scopeOwn) {
			return true
		}
	}
	return false
}

// Authorize is Can returning a Forbidden error on denial
func (a *Authorizer) Authorize(principal Principal, action Action, entity Entity) error {
	if a.Can(principal, action, entity) {
		return nil
	}
	a.logger.Debug("Capability denied",
		zap.Uint("account_id", principal.AccountID),
		zap.String("action", string(action)),
		zap.String("resource", string(entity.Resource)))
	return apperr.Forbidden("Not enough permissions")
}

func (a *Authorizer) enforce(role string, resource Resource, action Action, scope string) bool {
	ok, err := a.enforcer.Enforce(role, string(resource), string(action), scope)
	if err != nil {
		a.logger.Error("Policy evaluation failed", zap.Error(err))
		return false
	}
	return ok
}
