package service

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"municipality/internal/apperr"
	"municipality/internal/auth"
	"municipality/internal/config"
	"municipality/internal/models"
	"municipality/internal/policy"
	"municipality/internal/repository"
)

const (
	messageBadCredentials = "Incorrect email or password"
	dateLayout            = "2006-01-02"
)

// IdentityService manages accounts, citizens, employees and departments
type IdentityService struct {
	Deps
	tokens *auth.Service
	config config.AuthConfig
	logger *zap.Logger
}

// NewIdentityService creates an identity service
func NewIdentityService(deps Deps, tokens *auth.Service, cfg config.AuthConfig) *IdentityService {
	deps = deps.withDefaults()
	return &IdentityService{
		Deps:   deps,
		tokens: tokens,
		config: cfg,
		logger: deps.Logger.Named("identity_service"),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RegisterCitizen creates an account with its citizen profile and signs the
// caller in
func (s *IdentityService) RegisterCitizen(ctx context.Context, payload models.RegisterCitizenPayload) (*models.Token, error) {
	email := normalizeEmail(payload.Email)
	s.logger.Info("Registration attempt", zap.String("email", email))

	dateOfBirth, err := time.Parse(dateLayout, payload.DateOfBirth)
	if err != nil {
		return nil, apperr.Validation("Invalid date of birth")
	}

	hash, err := auth.HashPassword(payload.Password, s.config.BcryptCost)
	if err != nil {
		return nil, apperr.Internal(err, "Registration failed")
	}

	var account *models.Account
	err = s.Store.WithinTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Accounts().GetByEmail(ctx, email); err == nil {
			return apperr.Conflict("Email already registered")
		} else if !errors.Is(err, repository.ErrNotFound) {
			return storeErr(err, "failed to check email")
		}
		if _, err := tx.Citizens().GetByNationalID(ctx, payload.NationalID); err == nil {
			return apperr.Conflict("National ID already registered")
		} else if !errors.Is(err, repository.ErrNotFound) {
			return storeErr(err, "failed to check national id")
		}

		account = &models.Account{
			Email:        email,
			Phone:        payload.Phone,
			PasswordHash: hash,
			IsActive:     true,
			CreatedAt:    s.Clock(),
		}
		if err := tx.Accounts().Create(ctx, account); err != nil {
			return conflictOr(err, "Email already registered", "failed to create account")
		}

		citizen := &models.Citizen{
			NationalID:     payload.NationalID,
			FirstName:      payload.FirstName,
			MiddleName:     payload.MiddleName,
			LastName:       payload.LastName,
			DateOfBirth:    dateOfBirth,
			FatherName:     payload.FatherName,
			MotherName:     payload.MotherName,
			Address:        payload.Address,
			MaritalStatus:  payload.MaritalStatus,
			ResidentStatus: true,
			AccountID:      uintPtr(account.ID),
		}
		return conflictOr(tx.Citizens().Create(ctx, citizen), "National ID already registered", "failed to create citizen")
	})
	if err != nil {
		s.logger.Warn("Registration failed", zap.String("email", email), zap.Error(err))
		return nil, err
	}

	s.logger.Info("User registered successfully", zap.String("email", email))
	return s.issue(ctx, account)
}

// Login checks credentials, locking the account after repeated failures
func (s *IdentityService) Login(ctx context.Context, payload models.LoginPayload) (*models.Token, error) {
	email := normalizeEmail(payload.Email)

	account, err := s.Store.Accounts().GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("Login failed: account not found", zap.String("email", email))
		return nil, apperr.Unauthorized(messageBadCredentials)
	}
	if err != nil {
		return nil, storeErr(err, "failed to load account")
	}

	now := s.Clock()
	if account.LockedUntil != nil && account.LockedUntil.After(now) {
		s.logger.Warn("Login failed: account locked", zap.String("email", email))
		return nil, apperr.Forbidden("Account is locked until %s", account.LockedUntil.Format(time.RFC3339))
	}

	if !auth.CheckPassword(account.PasswordHash, payload.Password) {
		account.FailedLoginAttempts++
		if account.FailedLoginAttempts >= s.config.MaxFailedLogins {
			lockedUntil := now.Add(s.config.LockoutDuration)
			account.LockedUntil = &lockedUntil
			s.logger.Warn("Account locked due to failed attempts", zap.String("email", email))
		}
		if err := s.Store.Accounts().Update(ctx, account); err != nil {
			return nil, storeErr(err, "failed to record login failure")
		}
		s.logger.Warn("Login failed: invalid password", zap.String("email", email))
		return nil, apperr.Unauthorized(messageBadCredentials)
	}

	if !account.IsActive {
		s.logger.Warn("Login failed: account inactive", zap.String("email", email))
		return nil, apperr.Forbidden("Account is inactive")
	}

	if account.FailedLoginAttempts != 0 || account.LockedUntil != nil {
		account.FailedLoginAttempts = 0
		account.LockedUntil = nil
		if err := s.Store.Accounts().Update(ctx, account); err != nil {
			return nil, storeErr(err, "failed to reset login failures")
		}
	}

	token, err := s.issue(ctx, account)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Login successful", zap.String("email", email), zap.String("role", token.Role))
	return token, nil
}

// Principal resolves the roles and profile ids of an account
func (s *IdentityService) Principal(ctx context.Context, account *models.Account) (policy.Principal, error) {
	principal := policy.Principal{AccountID: account.ID, Email: account.Email}

	citizen, err := s.Store.Citizens().GetByAccountID(ctx, account.ID)
	switch {
	case err == nil:
		principal.CitizenID = citizen.ID
		principal.Roles = append(principal.Roles, policy.RoleCitizen)
	case !errors.Is(err, repository.ErrNotFound):
		return principal, storeErr(err, "failed to load citizen")
	}

	employee, err := s.Store.Employees().GetByAccountID(ctx, account.ID)
	switch {
	case err == nil:
		principal.EmployeeID = employee.ID
		principal.Roles = append(principal.Roles, policy.RoleEmployee)
		switch employee.AccessClearance {
		case models.ClearanceManager:
			principal.Roles = append(principal.Roles, policy.RoleManager)
		case models.ClearanceAdministrator:
			principal.Roles = append(principal.Roles, policy.RoleAdministrator)
		}
	case !errors.Is(err, repository.ErrNotFound):
		return principal, storeErr(err, "failed to load employee")
	}

	return principal, nil
}

func (s *IdentityService) issue(ctx context.Context, account *models.Account) (*models.Token, error) {
	principal, err := s.Principal(ctx, account)
	if err != nil {
		return nil, err
	}

	accessToken, expiresAt, err := s.tokens.GenerateToken(principal)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to issue token")
	}

	role := policy.RoleCitizen
	if principal.HasRole(policy.RoleEmployee) {
		role = policy.RoleEmployee
	}
	return &models.Token{
		AccessToken: accessToken,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
		AccountID:   account.ID,
		Email:       account.Email,
		Role:        role,
	}, nil
}

// Logout revokes the presented token
func (s *IdentityService) Logout(ctx context.Context, claims *auth.Claims) error {
	if err := s.tokens.Revoke(ctx, claims); err != nil {
		return apperr.Internal(err, "Failed to revoke token")
	}
	s.logger.Info("User logged out", zap.Uint("account_id", claims.AccountID))
	return nil
}

// Me returns the profile of an account
func (s *IdentityService) Me(ctx context.Context, accountID uint) (*models.Profile, error) {
	account, err := s.Store.Accounts().GetByID(ctx, accountID)
	if err != nil {
		return nil, lookupErr(err, "Account not found")
	}

	profile := &models.Profile{
		AccountID: account.ID,
		Email:     account.Email,
		Phone:     account.Phone,
		IsActive:  account.IsActive,
		CreatedAt: account.CreatedAt,
	}
	if citizen, err := s.Store.Citizens().GetByAccountID(ctx, accountID); err == nil {
		profile.Citizen = citizen
	}
	if employee, err := s.Store.Employees().GetByAccountID(ctx, accountID); err == nil {
		profile.Employee = employee
		if department, err := s.Store.Departments().GetByID(ctx, employee.DepartmentID); err == nil {
			profile.Department = department.Name
		}
	}
	return profile, nil
}

// ChangePassword replaces the password after verifying the current one
func (s *IdentityService) ChangePassword(ctx context.Context, accountID uint, payload models.ChangePasswordPayload) error {
	account, err := s.Store.Accounts().GetByID(ctx, accountID)
	if err != nil {
		return lookupErr(err, "Account not found")
	}
	if !auth.CheckPassword(account.PasswordHash, payload.CurrentPassword) {
		s.logger.Warn("Invalid current password", zap.Uint("account_id", accountID))
		return apperr.Validation("Current password is incorrect")
	}

	hash, err := auth.HashPassword(payload.NewPassword, s.config.BcryptCost)
	if err != nil {
		return apperr.Internal(err, "Failed to change password")
	}
	account.PasswordHash = hash
	if err := s.Store.Accounts().Update(ctx, account); err != nil {
		return storeErr(err, "failed to change password")
	}

	s.logger.Info("Password changed", zap.Uint("account_id", accountID))
	return nil
}

// Deactivate disables an account after confirming its password
func (s *IdentityService) Deactivate(ctx context.Context, accountID uint, payload models.DeactivateAccountPayload) error {
	account, err := s.Store.Accounts().GetByID(ctx, accountID)
	if err != nil {
		return lookupErr(err, "Account not found")
	}
	if !auth.CheckPassword(account.PasswordHash, payload.Password) {
		return apperr.Validation("Password is incorrect")
	}

	account.IsActive = false
	if err := s.Store.Accounts().Update(ctx, account); err != nil {
		return storeErr(err, "failed to deactivate account")
	}

	s.logger.Info("Account deactivated", zap.Uint("account_id", accountID), zap.String("reason", payload.Reason))
	return nil
}

// RegisterEmployee promotes an existing citizen to employee. A citizen that
// already has an account keeps it; otherwise one is created.
func (s *IdentityService) RegisterEmployee(ctx context.Context, payload models.RegisterEmployeePayload) (*models.Employee, error) {
	startDate, err := time.Parse(dateLayout, payload.StartDate)
	if err != nil {
		return nil, apperr.Validation("Invalid start date")
	}

	var employee *models.Employee
	err = s.Store.WithinTx(ctx, func(tx repository.Store) error {
		citizen, err := tx.Citizens().GetByNationalID(ctx, payload.NationalID)
		if err != nil {
			return lookupErr(err, "Citizen with this national ID not found. Please register as citizen first.")
		}
		if _, err := tx.Employees().GetByCitizenID(ctx, citizen.ID); err == nil {
			return apperr.Conflict("This citizen is already registered as an employee")
		} else if !errors.Is(err, repository.ErrNotFound) {
			return storeErr(err, "failed to check employee")
		}

		department, err := tx.Departments().GetByID(ctx, payload.DepartmentID)
		if err != nil {
			return lookupErr(err, "Department not found")
		}

		accountID, err := s.accountFor(ctx, tx, citizen, payload)
		if err != nil {
			return err
		}

		employee = &models.Employee{
			CitizenID:       citizen.ID,
			Position:        payload.Position,
			EmploymentType:  payload.EmploymentType,
			AccessClearance: payload.AccessClearance,
			DepartmentID:    department.ID,
			StartDate:       startDate,
			Salary:          payload.Salary,
			AccountID:       accountID,
		}
		if err := tx.Employees().Create(ctx, employee); err != nil {
			return conflictOr(err, "This citizen is already registered as an employee", "failed to create employee")
		}

		department.StaffCount++
		return storeErr(tx.Departments().Update(ctx, department), "failed to update department")
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Employee registered",
		zap.Uint("employee_id", employee.ID),
		zap.Uint("department_id", employee.DepartmentID))
	return employee, nil
}

func (s *IdentityService) accountFor(ctx context.Context, tx repository.Store, citizen *models.Citizen, payload models.RegisterEmployeePayload) (uint, error) {
	if citizen.AccountID != nil {
		return *citizen.AccountID, nil
	}

	email := normalizeEmail(payload.Email)
	if _, err := tx.Accounts().GetByEmail(ctx, email); err == nil {
		return 0, apperr.Conflict("Email already registered")
	}

	hash, err := auth.HashPassword(payload.Password, s.config.BcryptCost)
	if err != nil {
		return 0, apperr.Internal(err, "Employee registration failed")
	}
	account := &models.Account{
		Email:        email,
		Phone:        payload.Phone,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    s.Clock(),
	}
	if err := tx.Accounts().Create(ctx, account); err != nil {
		return 0, conflictOr(err, "Email already registered", "failed to create account")
	}

	citizen.AccountID = uintPtr(account.ID)
	if err := tx.Citizens().Update(ctx, citizen); err != nil {
		return 0, storeErr(err, "failed to link account")
	}
	return account.ID, nil
}

// Employee returns the employee record of an account
func (s *IdentityService) Employee(ctx context.Context, accountID uint) (*models.Employee, error) {
	employee, err := s.Store.Employees().GetByAccountID(ctx, accountID)
	if err != nil {
		return nil, lookupErr(err, "Employee not found")
	}
	return employee, nil
}

// CreateDepartment adds a department with a unique name
func (s *IdentityService) CreateDepartment(ctx context.Context, payload models.CreateDepartmentPayload) (*models.Department, error) {
	department := &models.Department{
		Name:      strings.TrimSpace(payload.Name),
		Extension: payload.Extension,
		Email:     payload.Email,
	}
	if _, err := s.Store.Departments().GetByName(ctx, department.Name); err == nil {
		return nil, apperr.Conflict("Department already exists")
	}
	if err := s.Store.Departments().Create(ctx, department); err != nil {
		return nil, conflictOr(err, "Department already exists", "failed to create department")
	}

	s.logger.Info("Department created", zap.Uint("department_id", department.ID), zap.String("name", department.Name))
	return department, nil
}

// Departments lists every department
func (s *IdentityService) Departments(ctx context.Context) ([]models.Department, error) {
	departments, err := s.Store.Departments().List(ctx)
	if err != nil {
		return nil, storeErr(err, "failed to list departments")
	}
	return departments, nil
}

// conflictOr maps unique-key violations to a Conflict with message
func conflictOr(err error, message, action string) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return apperr.Conflict(message)
	}
	return storeErr(err, action)
}
