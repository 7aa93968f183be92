// Package version exposes build metadata injected with -ldflags, e.g.
//
//	go build -ldflags "-X github.com/pscheid92/liveshop/internal/platform/version.Version=v1.2.0"
package version

import "runtime"

const Service = "liveshop"

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

type Info struct {
	Service   string `json:"service"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

func Get() Info {
	return Info{
		Service:   Service,
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
}

// String is a one-line summary for startup logs and CLI output.
func (i Info) String() string {
	return i.Service + " " + i.Version + " (" + i.Commit + ", " + i.GoVersion + ")"
}
