package task

// State — состояние жизненного цикла задачи
type State int32

const (
	StateNone State = iota
	StateScheduled
	StateWaiting
	StatePending
	StateDone
	StateSuspended
	StateCanceled
)

var stateNames = [...]string{"none", "scheduled", "waiting", "pending", "done", "suspended", "canceled"}

func (s State) String() string {
	if int(s) >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "invalid"
}

// Terminal сообщает, что из состояния нет переходов
func (s State) Terminal() bool {
	return s == StateDone || s == StateCanceled
}
