package model

import (
	"fmt"
	"time"
)

// Finding is one open endpoint as reported by /api/results.
type Finding struct {
	IP        string    `json:"ip"`
	Port      int       `json:"port"`
	Proto     string    `json:"proto"`
	Banner    string    `json:"banner,omitempty"`
	Service   string    `json:"service,omitempty"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// Key is the server-side identity (ip, port, proto). Display only: the client never dedups.
func (f *Finding) Key() string {
	proto := f.Proto
	if proto == "" {
		proto = "tcp"
	}
	return fmt.Sprintf("%s:%d/%s", f.IP, f.Port, proto)
}

// ServiceName returns the service or "unknown" when the server sent none.
func (f *Finding) ServiceName() string {
	if f.Service == "" {
		return "unknown"
	}
	return f.Service
}

type ScanRun struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	TargetsCount int    `json:"targets_count"`
	PortsSpec    string `json:"ports_spec"`
	Engine       string `json:"engine"` // masscan|nmap|mixed

	Found    int `json:"found"`
	NewFound int `json:"new_found"`

	Notes string `json:"notes,omitempty"`
}

type ScanPlan struct {
	Targets     []string `json:"targets"`
	Ports       string   `json:"ports"`
	Engine      string   `json:"engine"`
	Interface   string   `json:"interface"`
	WaitSeconds int      `json:"wait_seconds"`
	Reason      string   `json:"reason"`
}

type Stats struct {
	TotalFindings int `json:"total_findings"`
	UniqueHosts   int `json:"unique_hosts"`
}

// ScanRequest is the body of POST /api/scan/custom.
type ScanRequest struct {
	Targets []string `json:"targets"`
	Ports   string   `json:"ports"`
}
