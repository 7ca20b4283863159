package events

// GitOperationPayload is the payload for git_operation events.
type GitOperationPayload struct {
	Operation string `json:"operation"` // init, reset, revert
	Cwd       string `json:"cwd"`
	Mode      string `json:"mode,omitempty"`   // reset mode
	Commit    string `json:"commit,omitempty"` // target commit
	Head      string `json:"head,omitempty"`   // resulting HEAD
	Outcome   string `json:"outcome"`
	Code      string `json:"code,omitempty"`
	Error     string `json:"error,omitempty"`
}

// NewGitOperationEvent creates a new git_operation event.
func NewGitOperationEvent(p GitOperationPayload) *BaseEvent {
	return NewEvent(EventTypeGitOperation, p)
}

// CommandExecutedPayload is the payload for command_executed events.
type CommandExecutedPayload struct {
	Command    string   `json:"command"`
	Args       []string `json:"args,omitempty"`
	Cwd        string   `json:"cwd,omitempty"`
	ExitCode   int      `json:"exit_code"`
	DurationMs int64    `json:"duration_ms"`
	RemoteAddr string   `json:"remote_addr,omitempty"`
	Outcome    string   `json:"outcome"`
	Error      string   `json:"error,omitempty"`
}

// NewCommandExecutedEvent creates a new command_executed event.
func NewCommandExecutedEvent(p CommandExecutedPayload) *BaseEvent {
	return NewEvent(EventTypeCommandExecuted, p)
}
