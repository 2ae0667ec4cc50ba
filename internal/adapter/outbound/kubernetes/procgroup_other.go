//go:build !unix

package kubernetes

import "os/exec"

// setProcessGroup is a no-op where process groups are unavailable; the
// default cancellation kills the direct child only.
func setProcessGroup(*exec.Cmd) {}
