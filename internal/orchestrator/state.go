package orchestrator

// State is the orchestrator's position in a run.
type State string

const (
	StateIdle        State = "idle"
	StateStaging     State = "staging"
	StateBundling    State = "bundling"
	StateServing     State = "serving"
	StateWatching    State = "watching"
	StateTerminating State = "terminating"
	StateCleaningUp  State = "cleaning_up"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

func (s State) String() string { return string(s) }
