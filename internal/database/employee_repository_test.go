package database

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func employeeRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"emp_id", "emp_email", "emp_name", "dept", "sub_dept", "emp_location",
		"designation", "active", "manager_id", "created_at", "updated_at",
	}).AddRow(
		"EMP-001", "ravi@corp.com", "Ravi Requester", "Quality", nil, "Plant 2",
		"Engineer", true, "EMP-MGR", now, now,
	)
}

func TestGetEmployeeByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewEmployeeRepository(newMockDatabase(db))

	t.Run("Found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM employees").
			WithArgs("ravi@corp.com").
			WillReturnRows(employeeRows())

		emp, err := repo.GetEmployeeByEmail("ravi@corp.com")
		require.NoError(t, err)
		require.NotNil(t, emp)
		assert.Equal(t, "EMP-001", emp.ID)
		assert.True(t, emp.Active)
		assert.True(t, emp.HasManager())
		assert.Equal(t, "EMP-MGR", emp.ManagerID.String)
		assert.False(t, emp.SubDepartment.Valid)
		assert.Equal(t, "Plant 2", emp.Location.ValueOrEmpty())
	})

	t.Run("Trims Whitespace", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM employees").
			WithArgs("ravi@corp.com").
			WillReturnRows(employeeRows())

		emp, err := repo.GetEmployeeByEmail("  ravi@corp.com  ")
		require.NoError(t, err)
		assert.NotNil(t, emp)
	})

	t.Run("Not Found Returns Nil", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM employees").
			WithArgs("nobody@corp.com").
			WillReturnError(sql.ErrNoRows)

		emp, err := repo.GetEmployeeByEmail("nobody@corp.com")
		require.NoError(t, err)
		assert.Nil(t, emp)
	})
}

func TestGetEmployeeByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewEmployeeRepository(newMockDatabase(db))

	t.Run("Found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM employees").
			WithArgs("EMP-001").
			WillReturnRows(employeeRows())

		emp, err := repo.GetEmployeeByID("EMP-001")
		require.NoError(t, err)
		require.NotNil(t, emp)
		assert.Equal(t, "ravi@corp.com", emp.Email)
	})

	t.Run("Not Found Returns Nil", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM employees").
			WithArgs("EMP-GONE").
			WillReturnError(sql.ErrNoRows)

		emp, err := repo.GetEmployeeByID("EMP-GONE")
		require.NoError(t, err)
		assert.Nil(t, emp)
	})
}

func TestListActiveEmployees(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewEmployeeRepository(newMockDatabase(db))

	now := time.Now()
	rows := employeeRows().AddRow(
		// HR sync leaves descriptive columns empty for freshly imported rows
		"EMP-002", "nimal@corp.com", "Nimal New", "Quality", nil, nil,
		nil, true, nil, now, now,
	)
	mock.ExpectQuery("SELECT (.+) FROM employees").
		WillReturnRows(rows)

	employees, err := repo.ListActiveEmployees()
	require.NoError(t, err)
	require.Len(t, employees, 2)
	assert.Equal(t, "EMP-001", employees[0].ID)
	assert.False(t, employees[1].Location.Valid)
	assert.False(t, employees[1].HasManager())
}
