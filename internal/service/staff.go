package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"municipality/internal/apperr"
	"municipality/internal/models"
	"municipality/internal/policy"
	"municipality/internal/repository"
)

// ListEmployees pages through employees in id order
func (s *IdentityService) ListEmployees(ctx context.Context, skip, limit int) ([]models.EmployeeDetail, error) {
	skip, limit = clampPage(skip, limit)
	employees, err := s.Store.Employees().List(ctx, skip, limit)
	if err != nil {
		return nil, storeErr(err, "failed to list employees")
	}

	details := make([]models.EmployeeDetail, 0, len(employees))
	for i := range employees {
		details = append(details, s.employeeDetail(ctx, &employees[i]))
	}
	return details, nil
}

// GetEmployee returns an employee with its name, contact and department
func (s *IdentityService) GetEmployee(ctx context.Context, id uint) (*models.EmployeeDetail, error) {
	employee, err := s.Store.Employees().GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "Employee not found")
	}
	detail := s.employeeDetail(ctx, employee)
	return &detail, nil
}

func (s *IdentityService) employeeDetail(ctx context.Context, employee *models.Employee) models.EmployeeDetail {
	detail := models.EmployeeDetail{
		Employee: *employee,
		FullName: citizenName(ctx, s.Store, employee.CitizenID),
	}
	if account, err := s.Store.Accounts().GetByID(ctx, employee.AccountID); err == nil {
		detail.Email = account.Email
		detail.Phone = account.Phone
		detail.IsActive = account.IsActive
	}
	if department, err := s.Store.Departments().GetByID(ctx, employee.DepartmentID); err == nil {
		detail.DepartmentName = department.Name
	}
	return detail
}

// UpdateEmployee changes the fields set in payload. Moving an employee
// between departments keeps both staff counts current.
func (s *IdentityService) UpdateEmployee(ctx context.Context, id uint, payload models.UpdateEmployeePayload) (*models.Employee, error) {
	var endDate *time.Time
	if payload.EndDate != nil {
		parsed, err := time.Parse(dateLayout, *payload.EndDate)
		if err != nil {
			return nil, apperr.Validation("Invalid end date")
		}
		endDate = &parsed
	}

	var employee *models.Employee
	err := s.Store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		employee, err = tx.Employees().GetByID(ctx, id)
		if err != nil {
			return lookupErr(err, "Employee not found")
		}

		if payload.DepartmentID != nil && *payload.DepartmentID != employee.DepartmentID {
			target, err := tx.Departments().GetByID(ctx, *payload.DepartmentID)
			if err != nil {
				return lookupErr(err, "Department not found")
			}
			if err := leaveDepartment(ctx, tx, employee.DepartmentID); err != nil {
				return err
			}
			target.StaffCount++
			if err := tx.Departments().Update(ctx, target); err != nil {
				return storeErr(err, "failed to update department")
			}
			employee.DepartmentID = target.ID
		}

		if payload.Position != nil {
			employee.Position = strings.TrimSpace(*payload.Position)
		}
		if payload.EmploymentType != nil {
			employee.EmploymentType = *payload.EmploymentType
		}
		if payload.AccessClearance != nil {
			employee.AccessClearance = *payload.AccessClearance
		}
		if payload.Salary != nil {
			employee.Salary = *payload.Salary
		}
		if endDate != nil {
			employee.EndDate = endDate
		}
		return storeErr(tx.Employees().Update(ctx, employee), "failed to update employee")
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Employee updated", zap.Uint("employee_id", id))
	return employee, nil
}

// DeactivateEmployee disables the employee's account, closes the
// employment at today's date unless an end date is set and releases the
// department seat
func (s *IdentityService) DeactivateEmployee(ctx context.Context, id uint) error {
	err := s.Store.WithinTx(ctx, func(tx repository.Store) error {
		employee, err := tx.Employees().GetByID(ctx, id)
		if err != nil {
			return lookupErr(err, "Employee not found")
		}

		account, err := tx.Accounts().GetByID(ctx, employee.AccountID)
		if err != nil {
			return lookupErr(err, "Account not found")
		}
		account.IsActive = false
		if err := tx.Accounts().Update(ctx, account); err != nil {
			return storeErr(err, "failed to deactivate account")
		}

		if employee.EndDate == nil {
			now := s.Clock()
			today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
			employee.EndDate = &today
			if err := tx.Employees().Update(ctx, employee); err != nil {
				return storeErr(err, "failed to close employment")
			}
		}
		return leaveDepartment(ctx, tx, employee.DepartmentID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Employee deactivated", zap.Uint("employee_id", id))
	return nil
}

// leaveDepartment decrements the staff count of a department, never below zero
func leaveDepartment(ctx context.Context, tx repository.Store, departmentID uint) error {
	department, err := tx.Departments().GetByID(ctx, departmentID)
	if err != nil {
		return lookupErr(err, "Department not found")
	}
	if department.StaffCount == 0 {
		return nil
	}
	department.StaffCount--
	return storeErr(tx.Departments().Update(ctx, department), "failed to update department")
}

// EmployeeTasks lists the requests assigned to employeeID, newest first.
// Employees see their own tasks; managers and administrators see anyone's.
func (s *IdentityService) EmployeeTasks(ctx context.Context, principal policy.Principal, employeeID uint) ([]models.Request, error) {
	if principal.EmployeeID != employeeID &&
		!principal.HasRole(policy.RoleManager) && !principal.HasRole(policy.RoleAdministrator) {
		return nil, apperr.Forbidden("You can only view your own tasks")
	}
	if _, err := s.Store.Employees().GetByID(ctx, employeeID); err != nil {
		return nil, lookupErr(err, "Employee not found")
	}

	tasks, err := s.Store.Requests().List(ctx, models.RequestFilter{AssignedEmployeeID: &employeeID})
	if err != nil {
		return nil, storeErr(err, "failed to list tasks")
	}
	return tasks, nil
}

// GetDepartment returns a department by id
func (s *IdentityService) GetDepartment(ctx context.Context, id uint) (*models.Department, error) {
	department, err := s.Store.Departments().GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "Department not found")
	}
	return department, nil
}

// UpdateDepartment changes the fields set in payload
func (s *IdentityService) UpdateDepartment(ctx context.Context, id uint, payload models.UpdateDepartmentPayload) (*models.Department, error) {
	department, err := s.Store.Departments().GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "Department not found")
	}
	if payload.Name != nil {
		department.Name = strings.TrimSpace(*payload.Name)
	}
	if payload.Extension != nil {
		department.Extension = *payload.Extension
	}
	if payload.Email != nil {
		department.Email = *payload.Email
	}

	if err := s.Store.Departments().Update(ctx, department); err != nil {
		return nil, conflictOr(err, "Department already exists", "failed to update department")
	}
	s.logger.Info("Department updated", zap.Uint("department_id", id))
	return department, nil
}

// DeleteDepartment removes a department without staff
func (s *IdentityService) DeleteDepartment(ctx context.Context, id uint) error {
	department, err := s.Store.Departments().GetByID(ctx, id)
	if err != nil {
		return lookupErr(err, "Department not found")
	}
	if department.StaffCount > 0 {
		return apperr.Validation("Cannot delete department with %d employees. Reassign them first.", department.StaffCount)
	}
	if err := s.Store.Departments().Delete(ctx, id); err != nil {
		return lookupErr(err, "Department not found")
	}

	s.logger.Info("Department deleted", zap.Uint("department_id", id))
	return nil
}
