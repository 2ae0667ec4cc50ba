package model

import "strings"

// CommandSpec is one process invocation. Args are handed to the process as
// discrete argv entries and are never joined into a shell string.
type CommandSpec struct {
	Binary string   `json:"binary"`
	Args   []string `json:"args"`
	Stdin  string   `json:"-"`
}

// Verb returns the first argument, e.g. "create" or "delete".
func (c CommandSpec) Verb() string {
	if len(c.Args) == 0 {
		return ""
	}
	return c.Args[0]
}

// String renders the command for display only.
func (c CommandSpec) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Binary)
	parts = append(parts, c.Args...)
	return strings.Join(parts, " ")
}

type ExecutionResult struct {
	Command    CommandSpec `json:"command"`
	ExitCode   int         `json:"exitCode"`
	Stdout     string      `json:"stdout"`
	Stderr     string      `json:"stderr"`
	DurationMs int64       `json:"durationMs"`
}

func (r ExecutionResult) Succeeded() bool {
	return r.ExitCode == 0
}
