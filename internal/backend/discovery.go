package backend

import (
	"os"
	"path/filepath"
	"runtime"
)

// Target is one discovered backend executable.
type Target struct {
	Kind Kind
	Path string
}

// Discovery records, per backend, whether its executable exists.
// It is computed once per run and not updated afterwards.
type Discovery struct {
	dir     string
	targets map[Kind]Target
}

// Discover probes binDir for every known backend. An artifact is available
// when <binDir>/<name> exists and is not a directory; on Windows the name
// carries an ".exe" suffix.
func Discover(binDir string) Discovery {
	return discover(binDir, runtime.GOOS)
}

func discover(binDir, goos string) Discovery {
	d := Discovery{
		dir:     binDir,
		targets: make(map[Kind]Target, len(Kinds)),
	}

	for _, k := range Kinds {
		path := ArtifactPath(binDir, k, goos)
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		d.targets[k] = Target{Kind: k, Path: path}
	}

	return d
}

// ArtifactPath returns the conventional location of a backend executable.
func ArtifactPath(binDir string, k Kind, goos string) string {
	path := filepath.Join(binDir, k.String())
	if goos == "windows" {
		path += ".exe"
	}
	return path
}

// NewDiscovery builds a Discovery from already known targets.
func NewDiscovery(targets ...Target) Discovery {
	d := Discovery{targets: make(map[Kind]Target, len(targets))}
	for _, t := range targets {
		d.targets[t.Kind] = t
	}
	return d
}

// Dir returns the probed directory.
func (d Discovery) Dir() string {
	return d.dir
}

// Lookup returns the target for a backend, if available.
func (d Discovery) Lookup(k Kind) (Target, bool) {
	t, ok := d.targets[k]
	return t, ok
}

// Available returns the discovered targets in benchmark order.
func (d Discovery) Available() []Target {
	out := make([]Target, 0, len(d.targets))
	for _, k := range Kinds {
		if t, ok := d.targets[k]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Len returns how many backends are available.
func (d Discovery) Len() int {
	return len(d.targets)
}
