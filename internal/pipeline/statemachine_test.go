package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShayCichocki/kai/pkg/models"
)

func TestTransitions_OnlyDeployedIsTerminal(t *testing.T) {
	for _, s := range models.AllTaskStatuses {
		if s == models.TaskDeployed {
			assert.Empty(t, AllowedTransitions(s))
			continue
		}
		assert.NotEmpty(t, AllowedTransitions(s), "status %s", s)
	}
}

func TestTransitions_OnlyBugCreatedRestarts(t *testing.T) {
	for _, from := range models.AllTaskStatuses {
		allowed := CanTransition(from, models.TaskCreated)
		assert.Equal(t, from == models.TaskBugCreated, allowed, "from %s", from)
	}
}

func TestTransitions_EveryTargetIsKnown(t *testing.T) {
	for from, targets := range transitions {
		require.True(t, from.Valid())
		for _, to := range targets {
			assert.True(t, to.Valid(), "%s -> %s", from, to)
		}
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to models.TaskStatus
		want     bool
	}{
		{models.TaskCreated, models.TaskPlanned, true},
		{models.TaskReviewing, models.TaskApproved, true},
		{models.TaskReviewing, models.TaskChangesRequested, true},
		{models.TaskChangesRequested, models.TaskInProgress, true},
		{models.TaskTesting, models.TaskTestFailed, true},
		{models.TaskTestFailed, models.TaskBugCreated, true},
		{models.TaskCreated, models.TaskReady, false},
		{models.TaskReviewing, models.TaskDeployed, false},
		{models.TaskDeployed, models.TaskCreated, false},
		{models.TaskPlanned, models.TaskPlanned, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestCheckTransition_Error(t *testing.T) {
	err := CheckTransition(models.TaskReviewing, models.TaskDeployed)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTransition))

	var te *TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, models.TaskReviewing, te.From)
	assert.Equal(t, models.TaskDeployed, te.To)
	assert.Equal(t, "Invalid transition: REVIEWING -> DEPLOYED. Allowed from REVIEWING: APPROVED, CHANGES_REQUESTED", err.Error())
}

func TestValidateTransition(t *testing.T) {
	ok := ValidateTransition(models.TaskCreated, models.TaskPlanned)
	assert.True(t, ok.Valid)
	assert.Empty(t, ok.ErrorMessage)

	bad := ValidateTransition(models.TaskDeployed, models.TaskCreated)
	assert.False(t, bad.Valid)
	assert.Equal(t, "Invalid transition: DEPLOYED -> CREATED. Allowed from DEPLOYED: ", bad.ErrorMessage)
}

func TestAllowedTransitions_ReturnsCopy(t *testing.T) {
	got := AllowedTransitions(models.TaskReviewing)
	got[0] = models.TaskDeployed
	assert.Equal(t, models.TaskApproved, AllowedTransitions(models.TaskReviewing)[0])
}
