package valueobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProjectStatus_CanTransitionTo(t *testing.T) {
	cases := []struct {
		from    ProjectStatus
		to      ProjectStatus
		allowed bool
	}{
		{ProjectStatusOpen, ProjectStatusInProgress, true},
		{ProjectStatusInProgress, ProjectStatusPendingReview, true},
		{ProjectStatusPendingReview, ProjectStatusPendingPayment, true},
		{ProjectStatusPendingReview, ProjectStatusInProgress, true},
		{ProjectStatusPendingPayment, ProjectStatusCompleted, true},

		{ProjectStatusOpen, ProjectStatusPendingReview, false},
		{ProjectStatusOpen, ProjectStatusCompleted, false},
		{ProjectStatusInProgress, ProjectStatusOpen, false},
		{ProjectStatusInProgress, ProjectStatusCompleted, false},
		{ProjectStatusPendingPayment, ProjectStatusInProgress, false},
		{ProjectStatusCompleted, ProjectStatusOpen, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

// Любой нетерминальный статус может перейти в cancelled, терминальный не может.
func TestProjectStatus_CancelFromAnyActiveStatus(t *testing.T) {
	active := []ProjectStatus{
		ProjectStatusOpen,
		ProjectStatusInProgress,
		ProjectStatusPendingReview,
		ProjectStatusPendingPayment,
	}
	for _, s := range active {
		assert.True(t, s.CanTransitionTo(ProjectStatusCancelled), "%s -> cancelled", s)
	}

	assert.False(t, ProjectStatusCompleted.CanTransitionTo(ProjectStatusCancelled))
	assert.False(t, ProjectStatusCancelled.CanTransitionTo(ProjectStatusCancelled))
}

func TestProjectStatus_IsTerminal(t *testing.T) {
	assert.True(t, ProjectStatusCompleted.IsTerminal())
	assert.True(t, ProjectStatusCancelled.IsTerminal())
	assert.False(t, ProjectStatusOpen.IsTerminal())
	assert.False(t, ProjectStatusPendingPayment.IsTerminal())
}

func TestNewProjectStatus(t *testing.T) {
	status, err := NewProjectStatus("in_progress")
	assert.NoError(t, err)
	assert.Equal(t, ProjectStatusInProgress, status)

	_, err = NewProjectStatus("done")
	assert.Error(t, err)
}

func TestEscrowStatus_Transitions(t *testing.T) {
	assert.True(t, EscrowStatusLocked.CanTransitionTo(EscrowStatusReleased))
	assert.True(t, EscrowStatusLocked.CanTransitionTo(EscrowStatusRefunded))

	// Терминальный escrow не меняет статус
	assert.False(t, EscrowStatusReleased.CanTransitionTo(EscrowStatusRefunded))
	assert.False(t, EscrowStatusRefunded.CanTransitionTo(EscrowStatusReleased))
	assert.False(t, EscrowStatusReleased.CanTransitionTo(EscrowStatusLocked))
}

func TestDeliverableStatus_Transitions(t *testing.T) {
	assert.True(t, DeliverableStatusPendingReview.CanTransitionTo(DeliverableStatusApproved))
	assert.True(t, DeliverableStatusPendingReview.CanTransitionTo(DeliverableStatusRevisionRequested))

	assert.False(t, DeliverableStatusApproved.CanTransitionTo(DeliverableStatusRevisionRequested))
	assert.False(t, DeliverableStatusRevisionRequested.CanTransitionTo(DeliverableStatusApproved))
}
