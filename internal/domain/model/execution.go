package model

import "time"

// Execution is the audit record persisted for every orchestrated request
// that reached the command builder.
type Execution struct {
	ID           string        `json:"id"`
	Action       Action        `json:"action"`
	Kind         string        `json:"kind"`
	Namespace    string        `json:"namespace"`
	Names        []string      `json:"names"`
	Status       OutcomeStatus `json:"status"`
	Commands     []string      `json:"commands"`
	Output       string        `json:"output"`
	ErrorMessage string        `json:"error_message"`
	ErrorKind    ErrorKind     `json:"error_kind"`
	DurationMs   int64         `json:"duration_ms"`
	CreatedAt    time.Time     `json:"created_at"`
}

// NewExecution snapshots an outcome into an audit record.
func NewExecution(o OrchestrationOutcome) Execution {
	e := Execution{
		ID:         o.ID,
		Action:     o.Action,
		Kind:       string(o.Request.Kind),
		Namespace:  o.Request.Namespace,
		Names:      o.Request.TargetNames(),
		Status:     o.Status,
		Commands:   o.Commands(),
		Output:     o.Output(),
		DurationMs: o.Duration().Milliseconds(),
		CreatedAt:  o.StartedAt.UTC(),
	}
	if e.ID == "" {
		e.ID = NewID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.Names == nil {
		e.Names = []string{}
	}
	if o.Err != nil {
		e.ErrorMessage = o.Err.Error()
		e.ErrorKind = KindOf(o.Err)
	}
	return e
}

func (e Execution) IsSuccess() bool {
	return e.Status == StatusFullSuccess
}
