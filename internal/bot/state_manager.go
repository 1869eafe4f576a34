package bot

import (
	"sync"

	"github.com/Houeta/crm-dispatch-bot/internal/models"
	"github.com/Houeta/crm-dispatch-bot/internal/workflow"
)

const (
	// stateAwaitingEmployeeID indicates the bot is waiting for the Telegram ID
	// of an employee being onboarded.
	stateAwaitingEmployeeID = "awaiting_employee_id"
	// stateAwaitingEmployeeBitrixID indicates the bot is waiting for the
	// Bitrix user ID of an employee being onboarded.
	stateAwaitingEmployeeBitrixID = "awaiting_employee_bitrix_id"
	// stateAwaitingEmployeeName indicates the bot is waiting for the display
	// name of an employee being onboarded.
	stateAwaitingEmployeeName = "awaiting_employee_name"
	// stateAwaitingCategoryCode indicates the bot is waiting for a new
	// category code.
	stateAwaitingCategoryCode = "awaiting_category_code"
	// stateAwaitingCategoryName indicates the bot is waiting for a new
	// category name.
	stateAwaitingCategoryName = "awaiting_category_name"
	// stateAwaitingDuplicateConfirm indicates a parsed record hit the
	// duplicate window and the bot is waiting for a yes/no answer.
	stateAwaitingDuplicateConfirm = "awaiting_duplicate_confirm"
)

// UserState saves a context for the next message from a user. One state is a
// single step of a conversation; handlers pop it and set the next one.
type UserState struct {
	WaitingFor string
	Department models.Department
	Employee   models.Employee     // employee onboarding draft
	Category   models.Category     // category onboarding draft
	Pending    *workflow.Candidate // record awaiting duplicate confirmation
}

// stateKey scopes a conversation to one user inside one chat, so the same
// person talking in both department chats holds two independent states.
type stateKey struct {
	chatID int64
	userID int64
}

// StateManager manages the conversation states of all users.
type StateManager struct {
	mu     sync.Mutex
	states map[stateKey]UserState
}

func NewStateManager() *StateManager {
	return &StateManager{states: make(map[stateKey]UserState)}
}

// Set sets the state for the user in the given chat.
func (sm *StateManager) Set(chatID, userID int64, state UserState) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.states[stateKey{chatID, userID}] = state
}

// Get gets and immediately deletes the user state.
func (sm *StateManager) Get(chatID, userID int64) (UserState, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	key := stateKey{chatID, userID}
	state, ok := sm.states[key]
	if ok {
		delete(sm.states, key)
	}
	return state, ok
}

// Clear drops any pending state for the user in the given chat.
func (sm *StateManager) Clear(chatID, userID int64) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	delete(sm.states, stateKey{chatID, userID})
}
