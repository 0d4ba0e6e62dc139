package session

import (
	"context"
	"strings"

	"github.com/L1nMay/portscanner-console/internal/model"
)

// Launch selects which scan endpoint starts a session.
type Launch struct {
	custom *model.ScanRequest
}

// DefaultLaunch starts the scan the server is configured for.
func DefaultLaunch() Launch {
	return Launch{}
}

// CustomLaunch starts a scan of typed targets. Blank targets are dropped,
// surrounding whitespace is trimmed and empty ports mean "auto".
func CustomLaunch(targets []string, ports string) Launch {
	req := model.ScanRequest{Targets: nonBlank(targets), Ports: strings.TrimSpace(ports)}
	req = req.Normalize()
	return Launch{custom: &req}
}

// PlanLaunch replays a request built from a cached scan plan. Targets and
// ports go to the server as the plan gave them; only empty ports become
// "auto".
func PlanLaunch(req model.ScanRequest) Launch {
	out := model.ScanRequest{Targets: nonBlank(req.Targets), Ports: req.Ports}
	if out.Ports == "" {
		out.Ports = "auto"
	}
	return Launch{custom: &out}
}

func nonBlank(targets []string) []string {
	var out []string
	for _, t := range targets {
		if strings.TrimSpace(t) != "" {
			out = append(out, t)
		}
	}
	return out
}

func (l Launch) Kind() string {
	if l.custom == nil {
		return "default"
	}
	return "custom"
}

// Request returns the custom launch body, if any.
func (l Launch) Request() (model.ScanRequest, bool) {
	if l.custom == nil {
		return model.ScanRequest{}, false
	}
	return *l.custom, true
}

func (l Launch) Validate() error {
	if l.custom == nil {
		return nil
	}
	return l.custom.Validate()
}

func (l Launch) run(ctx context.Context, launcher Launcher) error {
	if l.custom == nil {
		return launcher.StartScan(ctx)
	}
	return launcher.StartCustomScan(ctx, *l.custom)
}
