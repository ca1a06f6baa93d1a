package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"municipality/internal/models"
)

type accountRepository struct {
	db *gorm.DB
}

func (r *accountRepository) Create(ctx context.Context, account *models.Account) error {
	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		return duplicate(err, "failed to create account")
	}
	return nil
}

func (r *accountRepository) GetByID(ctx context.Context, id uint) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).First(&account, id).Error; err != nil {
		return nil, notFound(err, "failed to get account")
	}
	return &account, nil
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&account).Error; err != nil {
		return nil, notFound(err, "failed to get account by email")
	}
	return &account, nil
}

func (r *accountRepository) Update(ctx context.Context, account *models.Account) error {
	if err := r.db.WithContext(ctx).Save(account).Error; err != nil {
		return errors.Wrap(err, "failed to update account")
	}
	return nil
}

type citizenRepository struct {
	db *gorm.DB
}

func (r *citizenRepository) Create(ctx context.Context, citizen *models.Citizen) error {
	if err := r.db.WithContext(ctx).Create(citizen).Error; err != nil {
		return duplicate(err, "failed to create citizen")
	}
	return nil
}

func (r *citizenRepository) GetByID(ctx context.Context, id uint) (*models.Citizen, error) {
	var citizen models.Citizen
	if err := r.db.WithContext(ctx).First(&citizen, id).Error; err != nil {
		return nil, notFound(err, "failed to get citizen")
	}
	return &citizen, nil
}

func (r *citizenRepository) GetByNationalID(ctx context.Context, nationalID string) (*models.Citizen, error) {
	var citizen models.Citizen
	if err := r.db.WithContext(ctx).Where("national_id = ?", nationalID).First(&citizen).Error; err != nil {
		return nil, notFound(err, "failed to get citizen by national id")
	}
	return &citizen, nil
}

func (r *citizenRepository) GetByAccountID(ctx context.Context, accountID uint) (*models.Citizen, error) {
	var citizen models.Citizen
	if err := r.db.WithContext(ctx).Where("account_id = ?", accountID).First(&citizen).Error; err != nil {
		return nil, notFound(err, "failed to get citizen by account")
	}
	return &citizen, nil
}

func (r *citizenRepository) Update(ctx context.Context, citizen *models.Citizen) error {
	if err := r.db.WithContext(ctx).Save(citizen).Error; err != nil {
		return errors.Wrap(err, "failed to update citizen")
	}
	return nil
}

func (r *citizenRepository) ListActiveIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Citizen{}).
		Joins("JOIN accounts ON accounts.id = citizens.account_id").
		Where("accounts.is_active = ?", true).
		Order("citizens.id").
		Pluck("citizens.id", &ids).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list active citizens")
	}
	return ids, nil
}

type employeeRepository struct {
	db *gorm.DB
}

func (r *employeeRepository) Create(ctx context.Context, employee *models.Employee) error {
	if err := r.db.WithContext(ctx).Create(employee).Error; err != nil {
		return duplicate(err, "failed to create employee")
	}
	return nil
}

func (r *employeeRepository) GetByID(ctx context.Context, id uint) (*models.Employee, error) {
	var employee models.Employee
	if err := r.db.WithContext(ctx).First(&employee, id).Error; err != nil {
		return nil, notFound(err, "failed to get employee")
	}
	return &employee, nil
}

func (r *employeeRepository) GetByAccountID(ctx context.Context, accountID uint) (*models.Employee, error) {
	var employee models.Employee
	if err := r.db.WithContext(ctx).Where("account_id = ?", accountID).First(&employee).Error; err != nil {
		return nil, notFound(err, "failed to get employee by account")
	}
	return &employee, nil
}

func (r *employeeRepository) GetByCitizenID(ctx context.Context, citizenID uint) (*models.Employee, error) {
	var employee models.Employee
	if err := r.db.WithContext(ctx).Where("citizen_id = ?", citizenID).First(&employee).Error; err != nil {
		return nil, notFound(err, "failed to get employee by citizen")
	}
	return &employee, nil
}

// List returns employees in id order
func (r *employeeRepository) List(ctx context.Context, skip, limit int) ([]models.Employee, error) {
	var employees []models.Employee
	if err := paginate(r.db.WithContext(ctx).Order("id"), skip, limit).Find(&employees).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list employees")
	}
	return employees, nil
}

func (r *employeeRepository) Update(ctx context.Context, employee *models.Employee) error {
	if err := r.db.WithContext(ctx).Save(employee).Error; err != nil {
		return errors.Wrap(err, "failed to update employee")
	}
	return nil
}

type departmentRepository struct {
	db *gorm.DB
}

func (r *departmentRepository) Create(ctx context.Context, department *models.Department) error {
	if err := r.db.WithContext(ctx).Create(department).Error; err != nil {
		return duplicate(err, "failed to create department")
	}
	return nil
}

func (r *departmentRepository) GetByID(ctx context.Context, id uint) (*models.Department, error) {
	var department models.Department
	if err := r.db.WithContext(ctx).First(&department, id).Error; err != nil {
		return nil, notFound(err, "failed to get department")
	}
	return &department, nil
}

func (r *departmentRepository) GetByName(ctx context.Context, name string) (*models.Department, error) {
	var department models.Department
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&department).Error; err != nil {
		return nil, notFound(err, "failed to get department by name")
	}
	return &department, nil
}

func (r *departmentRepository) List(ctx context.Context) ([]models.Department, error) {
	var departments []models.Department
	if err := r.db.WithContext(ctx).Order("name").Find(&departments).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list departments")
	}
	return departments, nil
}

func (r *departmentRepository) Update(ctx context.Context, department *models.Department) error {
	if err := r.db.WithContext(ctx).Save(department).Error; err != nil {
		return duplicate(err, "failed to update department")
	}
	return nil
}

func (r *departmentRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Department{}, id)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to delete department")
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
