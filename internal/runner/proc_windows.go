//go:build windows

package runner

import "os/exec"

// configureProcess keeps the default behaviour on Windows: cancellation
// kills the direct child only.
func configureProcess(cmd *exec.Cmd) {}
