package model

import (
	"fmt"
	"net"
	"strings"
)

// ValidationError is returned for launch requests rejected before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Normalize trims targets and defaults blank ports to "auto". Any other ports
// value is kept as is; the server's port resolver decides what it means.
func (r ScanRequest) Normalize() ScanRequest {
	out := ScanRequest{Targets: make([]string, 0, len(r.Targets)), Ports: r.Ports}
	for _, t := range r.Targets {
		out.Targets = append(out.Targets, strings.TrimSpace(t))
	}
	if strings.TrimSpace(out.Ports) == "" {
		out.Ports = "auto"
	}
	return out
}

// Validate checks the targets of a custom launch. Whether a target is allowed
// to be scanned, and the ports string, are left to the server.
func (r ScanRequest) Validate() error {
	if len(r.Targets) == 0 {
		return invalid("targets", "Target is required")
	}
	for _, raw := range r.Targets {
		if err := validateTarget(raw); err != nil {
			return err
		}
	}
	return nil
}

func validateTarget(raw string) error {
	t := strings.TrimSpace(raw)
	if t == "" {
		return invalid("targets", "Target is required")
	}

	if net.ParseIP(t) != nil {
		return nil
	}

	if strings.Contains(t, "/") {
		if _, ipnet, err := net.ParseCIDR(t); err != nil || ipnet == nil {
			return invalid("targets", "invalid target: %s", t)
		}
		return nil
	}

	// hostnames: no URLs, credentials, ports or whitespace
	if strings.ContainsAny(t, " \t\\@:") || len(t) > 253 {
		return invalid("targets", "invalid target: %s", t)
	}
	for _, label := range strings.Split(t, ".") {
		if label == "" || len(label) > 63 {
			return invalid("targets", "invalid target: %s", t)
		}
	}
	return nil
}
