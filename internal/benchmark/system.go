package benchmark

import (
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// SystemInfo captures system details for reproducibility.
type SystemInfo struct {
	OS        string `json:"os" yaml:"os"`
	Arch      string `json:"arch" yaml:"arch"`
	CPUs      int    `json:"cpus" yaml:"cpus"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	GitCommit string `json:"git_commit,omitempty" yaml:"git_commit,omitempty"`
	Hostname  string `json:"hostname,omitempty" yaml:"hostname,omitempty"`
}

// GetSystemInfo captures current system information, including the git
// commit of the working directory and the hostname when available.
func GetSystemInfo() SystemInfo {
	info := SystemInfo{
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		CPUs:      runtime.NumCPU(),
		GoVersion: runtime.Version(),
	}

	if commit, err := getGitCommit(); err == nil {
		info.GitCommit = commit
	}
	if hostname, err := os.Hostname(); err == nil {
		info.Hostname = hostname
	}

	return info
}

// getGitCommit returns the current git commit hash.
func getGitCommit() (string, error) {
	cmd := exec.Command("git", "rev-parse", "--short", "HEAD")
	output, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(output)), nil
}
