package database

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/wavevms/wave-backend/internal/models"
)

// EmployeeRepository handles employee directory database operations. The
// directory is read-only here: rows are maintained by an HR sync job, the
// workflow engine only resolves them.
type EmployeeRepository struct {
	db DB
}

// NewEmployeeRepository creates a new EmployeeRepository
func NewEmployeeRepository(db DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

const employeeColumns = `
	emp_id, emp_email, emp_name, dept, sub_dept, emp_location,
	designation, active, manager_id, created_at, updated_at`

// GetEmployeeByEmail retrieves an employee by email (case-insensitive)
func (r *EmployeeRepository) GetEmployeeByEmail(email string) (*models.Employee, error) {
	var emp models.Employee
	query := `
		SELECT ` + employeeColumns + `
		FROM employees
		WHERE LOWER(emp_email) = LOWER($1)`

	err := r.db.Get(&emp, query, strings.TrimSpace(email))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee by email: %w", err)
	}
	return &emp, nil
}

// GetEmployeeByID retrieves an employee by employee id
func (r *EmployeeRepository) GetEmployeeByID(id string) (*models.Employee, error) {
	var emp models.Employee
	query := `
		SELECT ` + employeeColumns + `
		FROM employees
		WHERE emp_id = $1`

	err := r.db.Get(&emp, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee by id: %w", err)
	}
	return &emp, nil
}

// ListActiveEmployees retrieves all active employees, ordered by name
func (r *EmployeeRepository) ListActiveEmployees() ([]models.Employee, error) {
	var employees []models.Employee
	query := `
		SELECT ` + employeeColumns + `
		FROM employees
		WHERE active = TRUE
		ORDER BY emp_name`

	if err := r.db.Select(&employees, query); err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	return employees, nil
}
