package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"partner-payouts/internal/domain"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsageRepo_ApplyWorkspaceUsage(t *testing.T) {
	mock := newMock(t)
	repo := NewUsageRepository(mock)

	expectTx(mock)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE workspaces")).
		WithArgs("ws_1", int64(40), int64(2)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE workspaces")).
		WithArgs("ws_2", int64(1), int64(0)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err := repo.ApplyWorkspaceUsage(context.Background(), []domain.UsageUpdate{
		{WorkspaceID: "ws_1", Clicks: 40, Links: 2},
		{WorkspaceID: "ws_2", Clicks: 1},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsageRepo_ApplyPartnerActivityRollsBack(t *testing.T) {
	mock := newMock(t)
	repo := NewUsageRepository(mock)

	expectTx(mock)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE program_enrollments")).
		WithArgs("prog_1", "pn_1", int64(3), int64(1), int64(0), int64(0)).
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	err := repo.ApplyPartnerActivity(context.Background(), []domain.ActivityUpdate{
		{ProgramID: "prog_1", PartnerID: "pn_1", Clicks: 3, Leads: 1},
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsageRepo_EmptyIsNoop(t *testing.T) {
	mock := newMock(t)
	repo := NewUsageRepository(mock)

	assert.NoError(t, repo.ApplyWorkspaceUsage(context.Background(), nil))
	assert.NoError(t, repo.ApplyPartnerActivity(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}
