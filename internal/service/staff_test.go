package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"municipality/internal/apperr"
	"municipality/internal/models"
	"municipality/internal/policy"
)

func (f *fixture) department(t *testing.T, name string, staff int) *models.Department {
	t.Helper()
	department := &models.Department{Name: name, StaffCount: staff}
	require.NoError(t, f.store.Departments().Create(f.ctx, department))
	return department
}

func TestIdentityService_EmployeeDirectory(t *testing.T) {
	f := newFixture(t)
	first := f.employee(t, "NID-7", "Bruno", "Costa")
	second := f.employee(t, "NID-8", "Carla", "Reis")

	employees, err := f.identity.ListEmployees(f.ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, employees, 2)
	assert.Equal(t, first.ID, employees[0].ID)
	assert.Equal(t, "Bruno Costa", employees[0].FullName)
	assert.Equal(t, "NID-7@example.com", employees[0].Email)
	assert.Equal(t, "Dept NID-7", employees[0].DepartmentName)
	assert.True(t, employees[0].IsActive)

	detail, err := f.identity.GetEmployee(f.ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "Carla Reis", detail.FullName)

	_, err = f.identity.GetEmployee(f.ctx, 404)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestIdentityService_UpdateEmployeeMovesStaff(t *testing.T) {
	f := newFixture(t)
	employee := f.employee(t, "NID-7", "Bruno", "Costa")
	source, err := f.store.Departments().GetByID(f.ctx, employee.DepartmentID)
	require.NoError(t, err)
	source.StaffCount = 1
	require.NoError(t, f.store.Departments().Update(f.ctx, source))
	target := f.department(t, "Roads", 2)

	position := "Inspector"
	salary := 3100.0
	endDate := "2025-12-31"
	updated, err := f.identity.UpdateEmployee(f.ctx, employee.ID, models.UpdateEmployeePayload{
		Position:     &position,
		Salary:       &salary,
		EndDate:      &endDate,
		DepartmentID: &target.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Inspector", updated.Position)
	assert.Equal(t, 3100.0, updated.Salary)
	assert.Equal(t, target.ID, updated.DepartmentID)
	require.NotNil(t, updated.EndDate)
	assert.Equal(t, "2025-12-31", updated.EndDate.Format(dateLayout))

	source, err = f.store.Departments().GetByID(f.ctx, source.ID)
	require.NoError(t, err)
	assert.Zero(t, source.StaffCount)
	target, err = f.store.Departments().GetByID(f.ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, target.StaffCount)

	t.Run("UnknownDepartment", func(t *testing.T) {
		_, err := f.identity.UpdateEmployee(f.ctx, employee.ID, models.UpdateEmployeePayload{DepartmentID: uintPtr(404)})
		assert.True(t, apperr.Is(err, apperr.KindNotFound))

		target, err := f.store.Departments().GetByID(f.ctx, target.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, target.StaffCount, "nothing changes")
	})

	t.Run("InvalidEndDate", func(t *testing.T) {
		bad := "31/12/2025"
		_, err := f.identity.UpdateEmployee(f.ctx, employee.ID, models.UpdateEmployeePayload{EndDate: &bad})
		assert.True(t, apperr.Is(err, apperr.KindValidation))
	})
}

func TestIdentityService_DeactivateEmployee(t *testing.T) {
	f := newFixture(t)
	employee := f.employee(t, "NID-7", "Bruno", "Costa")
	department, err := f.store.Departments().GetByID(f.ctx, employee.DepartmentID)
	require.NoError(t, err)
	department.StaffCount = 1
	require.NoError(t, f.store.Departments().Update(f.ctx, department))

	require.NoError(t, f.identity.DeactivateEmployee(f.ctx, employee.ID))

	account, err := f.store.Accounts().GetByID(f.ctx, employee.AccountID)
	require.NoError(t, err)
	assert.False(t, account.IsActive)

	stored, err := f.store.Employees().GetByID(f.ctx, employee.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.EndDate)
	assert.Equal(t, "2024-03-15", stored.EndDate.Format(dateLayout))

	department, err = f.store.Departments().GetByID(f.ctx, department.ID)
	require.NoError(t, err)
	assert.Zero(t, department.StaffCount)

	require.NoError(t, f.identity.DeactivateEmployee(f.ctx, employee.ID))
	department, err = f.store.Departments().GetByID(f.ctx, department.ID)
	require.NoError(t, err)
	assert.Zero(t, department.StaffCount, "never below zero")

	assert.True(t, apperr.Is(f.identity.DeactivateEmployee(f.ctx, 404), apperr.KindNotFound))
}

func TestIdentityService_EmployeeTasks(t *testing.T) {
	f := newFixture(t)
	citizen := f.citizen(t, "NID-1", "Ana", "Silva")
	clerk := f.employee(t, "NID-7", "Bruno", "Costa")
	colleague := f.employee(t, "NID-8", "Carla", "Reis")

	first := f.submit(t, citizen.ID, models.RequestTypeOther)
	f.submit(t, citizen.ID, models.RequestTypeOther)
	second := f.submit(t, citizen.ID, models.RequestTypeTaxClearance)
	for _, id := range []uint{first.ID, second.ID} {
		_, err := f.requests.Assign(f.ctx, id, clerk.ID)
		require.NoError(t, err)
	}

	own := policy.Principal{EmployeeID: clerk.ID, Roles: []string{policy.RoleEmployee}}
	tasks, err := f.identity.EmployeeTasks(f.ctx, own, clerk.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, second.ID, tasks[0].ID, "newest first")

	peer := policy.Principal{EmployeeID: colleague.ID, Roles: []string{policy.RoleEmployee}}
	_, err = f.identity.EmployeeTasks(f.ctx, peer, clerk.ID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	manager := policy.Principal{EmployeeID: colleague.ID, Roles: []string{policy.RoleEmployee, policy.RoleManager}}
	tasks, err = f.identity.EmployeeTasks(f.ctx, manager, clerk.ID)
	require.NoError(t, err)
	assert.Len(t, tasks, 2)

	admin := policy.Principal{Roles: []string{policy.RoleEmployee, policy.RoleAdministrator}}
	_, err = f.identity.EmployeeTasks(f.ctx, admin, 404)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestIdentityService_PrincipalCarriesClearance(t *testing.T) {
	f := newFixture(t)
	employee := f.employee(t, "NID-7", "Bruno", "Costa")
	employee.AccessClearance = models.ClearanceManager
	require.NoError(t, f.store.Employees().Update(f.ctx, employee))

	account, err := f.store.Accounts().GetByID(f.ctx, employee.AccountID)
	require.NoError(t, err)
	principal, err := f.identity.Principal(f.ctx, account)
	require.NoError(t, err)
	assert.Equal(t, []string{policy.RoleCitizen, policy.RoleEmployee, policy.RoleManager}, principal.Roles)
}

func TestIdentityService_Departments(t *testing.T) {
	f := newFixture(t)
	staffed := f.department(t, "Roads", 2)
	empty := f.department(t, "Parks", 0)

	got, err := f.identity.GetDepartment(f.ctx, staffed.ID)
	require.NoError(t, err)
	assert.Equal(t, "Roads", got.Name)

	name := "Gardens"
	email := "gardens@municipality.gov"
	updated, err := f.identity.UpdateDepartment(f.ctx, empty.ID, models.UpdateDepartmentPayload{Name: &name, Email: &email})
	require.NoError(t, err)
	assert.Equal(t, "Gardens", updated.Name)
	assert.Equal(t, email, updated.Email)

	taken := "Roads"
	_, err = f.identity.UpdateDepartment(f.ctx, empty.ID, models.UpdateDepartmentPayload{Name: &taken})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	err = f.identity.DeleteDepartment(f.ctx, staffed.ID)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, "Cannot delete department with 2 employees. Reassign them first.", apperr.MessageOf(err))

	require.NoError(t, f.identity.DeleteDepartment(f.ctx, empty.ID))
	_, err = f.identity.GetDepartment(f.ctx, empty.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.True(t, apperr.Is(f.identity.DeleteDepartment(f.ctx, empty.ID), apperr.KindNotFound))
}
