package bot

import (
	"testing"

	"github.com/Houeta/crm-dispatch-bot/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestStateManager_GetPopsState(t *testing.T) {
	t.Parallel()

	sm := NewStateManager()
	sm.Set(-100, 7, UserState{WaitingFor: stateAwaitingEmployeeID, Department: models.DepartmentSupport})

	state, ok := sm.Get(-100, 7)
	assert.True(t, ok)
	assert.Equal(t, stateAwaitingEmployeeID, state.WaitingFor)
	assert.Equal(t, models.DepartmentSupport, state.Department)

	_, ok = sm.Get(-100, 7)
	assert.False(t, ok, "state should be consumed by the first Get")
}

func TestStateManager_ScopedPerChat(t *testing.T) {
	t.Parallel()

	sm := NewStateManager()
	sm.Set(-100, 7, UserState{WaitingFor: stateAwaitingCategoryCode})
	sm.Set(-200, 7, UserState{WaitingFor: stateAwaitingDuplicateConfirm})

	state, ok := sm.Get(-100, 7)
	assert.True(t, ok)
	assert.Equal(t, stateAwaitingCategoryCode, state.WaitingFor)

	state, ok = sm.Get(-200, 7)
	assert.True(t, ok)
	assert.Equal(t, stateAwaitingDuplicateConfirm, state.WaitingFor)
}

func TestStateManager_Clear(t *testing.T) {
	t.Parallel()

	sm := NewStateManager()
	sm.Set(-100, 7, UserState{WaitingFor: stateAwaitingEmployeeName})
	sm.Clear(-100, 7)

	_, ok := sm.Get(-100, 7)
	assert.False(t, ok)
}

func TestStateManager_MissingState(t *testing.T) {
	t.Parallel()

	sm := NewStateManager()
	_, ok := sm.Get(-100, 42)
	assert.False(t, ok)
}
