package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"municipality/internal/apperr"
)

func newAuthorizer(t *testing.T) *Authorizer {
	t.Helper()
	authorizer, err := New(DefaultRules, zap.NewNop())
	require.NoError(t, err)
	return authorizer
}

func TestAuthorizer_Can(t *testing.T) {
	authorizer := newAuthorizer(t)

	citizen := Principal{AccountID: 1, CitizenID: 10, Roles: []string{RoleCitizen}}
	employee := Principal{AccountID: 2, CitizenID: 20, EmployeeID: 7, Roles: []string{RoleCitizen, RoleEmployee}}
	manager := Principal{AccountID: 3, CitizenID: 30, EmployeeID: 8, Roles: []string{RoleCitizen, RoleEmployee, RoleManager}}
	admin := Principal{AccountID: 4, CitizenID: 40, EmployeeID: 9, Roles: []string{RoleCitizen, RoleEmployee, RoleAdministrator}}

	tests := []struct {
		name      string
		principal Principal
		action    Action
		entity    Entity
		want      bool
	}{
		{"citizen reads own request", citizen, ActionRead, On(ResourceRequest, 10), true},
		{"citizen cannot read other request", citizen, ActionRead, On(ResourceRequest, 11), false},
		{"citizen cannot assign", citizen, ActionAssign, On(ResourceRequest, 10), false},
		{"citizen pays own request", citizen, ActionPay, On(ResourcePayment, 10), true},
		{"citizen cannot pay for others", citizen, ActionPay, On(ResourcePayment, 12), false},
		{"ownerless entity needs any scope", citizen, ActionRead, On(ResourceRequest, 0), false},
		{"employee reads any request", employee, ActionRead, On(ResourceRequest, 10), true},
		{"employee responds to complaints", employee, ActionRespond, On(ResourceComplaint, 10), true},
		{"employee cannot delete others complaint", employee, ActionDelete, On(ResourceComplaint, 10), false},
		{"employee deletes own complaint as citizen", employee, ActionDelete, On(ResourceComplaint, 20), true},
		{"everyone lists departments", citizen, ActionList, On(ResourceDepartment, 0), true},
		{"citizen rates own request", citizen, ActionCreate, On(ResourceFeedback, 10), true},
		{"citizen cannot list all feedback", citizen, ActionList, On(ResourceFeedback, 0), false},
		{"employee lists all feedback", employee, ActionList, On(ResourceFeedback, 0), true},
		{"citizen cannot publish announcements", citizen, ActionCreate, On(ResourceAnnouncement, 0), false},
		{"employee publishes announcements", employee, ActionCreate, On(ResourceAnnouncement, 0), true},
		{"employee cannot update employees", employee, ActionUpdate, On(ResourceEmployee, 0), false},
		{"manager updates employees", manager, ActionUpdate, On(ResourceEmployee, 0), true},
		{"manager cannot deactivate employees", manager, ActionDelete, On(ResourceEmployee, 0), false},
		{"administrator deactivates employees", admin, ActionDelete, On(ResourceEmployee, 0), true},
		{"manager cannot delete departments", manager, ActionDelete, On(ResourceDepartment, 0), false},
		{"administrator deletes departments", admin, ActionDelete, On(ResourceDepartment, 0), true},
		{"no roles no access", Principal{CitizenID: 10}, ActionRead, On(ResourceRequest, 10), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, authorizer.Can(tt.principal, tt.action, tt.entity))
		})
	}
}

func TestAuthorizer_AuthorizeReturnsForbidden(t *testing.T) {
	authorizer := newAuthorizer(t)
	err := authorizer.Authorize(Principal{CitizenID: 1, Roles: []string{RoleCitizen}}, ActionList, On(ResourcePayment, 0))
	require.Error(t, err)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestPrincipal_HasRole(t *testing.T) {
	p := Principal{Roles: []string{RoleCitizen}}
	assert.True(t, p.HasRole(RoleCitizen))
	assert.False(t, p.HasRole(RoleEmployee))
}
