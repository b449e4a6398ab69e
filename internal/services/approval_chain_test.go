package services

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wavevms/wave-backend/internal/config"
	"github.com/wavevms/wave-backend/internal/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testWorkflowPolicy() config.WorkflowConfig {
	return config.WorkflowConfig{
		PlantApproverID:        "EMP-PLANT",
		PlantApproverEmail:     "plant.approver@corp.com",
		CellLineApproverID:     "EMP-CELL",
		CellLineApproverEmail:  "cell.approver@corp.com",
		DwellMinutes:           15,
		AllowEditAfterDecision: true,
		AllowZeroApprovers:     true,
	}
}

func testDirectory() *fakeDirectory {
	return &fakeDirectory{employees: []models.Employee{
		{ID: "EMP-MGR", Email: "manager@corp.com", Name: "Mary Manager", Active: true},
		{ID: "EMP-001", Email: "requester@corp.com", Name: "Ravi Requester", Active: true,
			ManagerID: models.NewNullString("EMP-MGR")},
		{ID: "EMP-002", Email: "orphan@corp.com", Name: "Olive Orphan", Active: true},
	}}
}

func TestApprovalChainBuilder_Build(t *testing.T) {
	directory := testDirectory()
	builder := NewApprovalChainBuilder(directory, testWorkflowPolicy(), testLogger())

	requester, err := directory.GetEmployeeByID("EMP-001")
	require.NoError(t, err)
	require.NotNil(t, requester)

	t.Run("Office Visit Gets Manager Only", func(t *testing.T) {
		approvals, err := builder.Build(models.LocationTypeOffice, false, requester)
		require.NoError(t, err)
		require.Len(t, approvals, 1)
		assert.Equal(t, "manager@corp.com", approvals[0].ApproverEmail)
		assert.Equal(t, models.ApprovalStatusPending, approvals[0].Status)
	})

	t.Run("Plant Visit Adds Plant Approver", func(t *testing.T) {
		approvals, err := builder.Build(models.LocationTypePlant, false, requester)
		require.NoError(t, err)
		require.Len(t, approvals, 2)
		assert.Equal(t, "manager@corp.com", approvals[0].ApproverEmail)
		assert.Equal(t, "plant.approver@corp.com", approvals[1].ApproverEmail)
	})

	t.Run("Cell Line Visit Replaces Plant Approver", func(t *testing.T) {
		approvals, err := builder.Build(models.LocationTypePlant, true, requester)
		require.NoError(t, err)
		require.Len(t, approvals, 2)
		assert.Equal(t, "manager@corp.com", approvals[0].ApproverEmail)
		assert.Equal(t, "cell.approver@corp.com", approvals[1].ApproverEmail)
	})

	t.Run("Cell Line Office Visit Still Gets Cell Line Approver", func(t *testing.T) {
		approvals, err := builder.Build(models.LocationTypeOffice, true, requester)
		require.NoError(t, err)
		require.Len(t, approvals, 2)
		assert.Equal(t, "cell.approver@corp.com", approvals[1].ApproverEmail)
	})

	t.Run("Deterministic", func(t *testing.T) {
		first, err := builder.Build(models.LocationTypePlant, true, requester)
		require.NoError(t, err)
		second, err := builder.Build(models.LocationTypePlant, true, requester)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}

func TestApprovalChainBuilder_NoManager(t *testing.T) {
	directory := testDirectory()
	builder := NewApprovalChainBuilder(directory, testWorkflowPolicy(), testLogger())

	orphan, err := directory.GetEmployeeByID("EMP-002")
	require.NoError(t, err)

	t.Run("Office Visit Yields Empty Chain When Allowed", func(t *testing.T) {
		approvals, err := builder.Build(models.LocationTypeOffice, false, orphan)
		require.NoError(t, err)
		assert.Empty(t, approvals)
	})

	t.Run("Empty Chain Rejected When Policy Forbids It", func(t *testing.T) {
		policy := testWorkflowPolicy()
		policy.AllowZeroApprovers = false
		strict := NewApprovalChainBuilder(directory, policy, testLogger())

		_, err := strict.Build(models.LocationTypeOffice, false, orphan)
		var valErr *ValidationError
		require.ErrorAs(t, err, &valErr)
		assert.Contains(t, valErr.Fields, "approvers")
	})

	t.Run("Plant Visit Still Gets Plant Approver", func(t *testing.T) {
		approvals, err := builder.Build(models.LocationTypePlant, false, orphan)
		require.NoError(t, err)
		require.Len(t, approvals, 1)
		assert.Equal(t, "plant.approver@corp.com", approvals[0].ApproverEmail)
	})
}

func TestApprovalChainBuilder_DanglingManagerReference(t *testing.T) {
	// Manager ID on file but no longer in the directory: the manager step is
	// skipped rather than failing the whole request.
	directory := &fakeDirectory{employees: []models.Employee{
		{ID: "EMP-003", Email: "left.behind@corp.com", Active: true,
			ManagerID: models.NewNullString("EMP-GONE")},
	}}
	builder := NewApprovalChainBuilder(directory, testWorkflowPolicy(), testLogger())

	requester, err := directory.GetEmployeeByID("EMP-003")
	require.NoError(t, err)

	approvals, err := builder.Build(models.LocationTypePlant, false, requester)
	require.NoError(t, err)
	require.Len(t, approvals, 1)
	assert.Equal(t, "plant.approver@corp.com", approvals[0].ApproverEmail)
}

func TestApprovalChainBuilder_DuplicateApproverNotDeduplicated(t *testing.T) {
	// The manager is also the designated plant approver: both steps stay in
	// the chain and both must be decided.
	policy := testWorkflowPolicy()
	policy.PlantApproverID = "EMP-MGR"
	policy.PlantApproverEmail = "manager@corp.com"

	directory := testDirectory()
	builder := NewApprovalChainBuilder(directory, policy, testLogger())

	requester, err := directory.GetEmployeeByID("EMP-001")
	require.NoError(t, err)

	approvals, err := builder.Build(models.LocationTypePlant, false, requester)
	require.NoError(t, err)
	require.Len(t, approvals, 2)
	assert.Equal(t, "manager@corp.com", approvals[0].ApproverEmail)
	assert.Equal(t, "manager@corp.com", approvals[1].ApproverEmail)
}
