// Package results is the result view model: the last fetched snapshot and a
// pure filter, sort and paginate pipeline over it.
package results

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/L1nMay/portscanner-console/internal/model"
)

const DefaultPageSize = 20

type SortMode int

const (
	SortLastSeenDesc SortMode = iota
	SortLastSeenAsc
	SortAddressAsc
	SortPortAsc
)

var sortNames = map[SortMode]string{
	SortLastSeenDesc: "lastSeenDesc",
	SortLastSeenAsc:  "lastSeenAsc",
	SortAddressAsc:   "ipAsc",
	SortPortAsc:      "portAsc",
}

func (s SortMode) String() string {
	if name, ok := sortNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseSort maps a sort name to its mode. An empty name is the default.
func ParseSort(name string) (SortMode, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return SortLastSeenDesc, nil
	}
	for mode, n := range sortNames {
		if strings.EqualFold(n, name) {
			return mode, nil
		}
	}
	return SortLastSeenDesc, fmt.Errorf("unknown sort mode %q (want lastSeenDesc, lastSeenAsc, ipAsc or portAsc)", name)
}

// Query holds every view-affecting input.
type Query struct {
	Text    string
	Service string // empty means all services
	Sort    SortMode
	Page    int
}

// Normalize resets a service selection that no longer exists in services.
func (q Query) Normalize(services []string) Query {
	if q.Service == "" {
		return q
	}
	want := strings.ToLower(strings.TrimSpace(q.Service))
	for _, s := range services {
		if s == want {
			return q
		}
	}
	q.Service = ""
	return q
}

type Page struct {
	Items     []model.Finding
	Total     int
	Page      int
	PageCount int
}

// Apply filters, sorts and paginates findings. The input slice is not modified.
func Apply(findings []model.Finding, q Query, pageSize int) Page {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	filtered := filter(findings, q)
	sortFindings(filtered, q.Sort)

	total := len(filtered)
	pageCount := (total + pageSize - 1) / pageSize
	if pageCount < 1 {
		pageCount = 1
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	if page > pageCount {
		page = pageCount
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if end > total {
		end = total
	}

	return Page{
		Items:     filtered[start:end],
		Total:     total,
		Page:      page,
		PageCount: pageCount,
	}
}

func filter(findings []model.Finding, q Query) []model.Finding {
	service := strings.ToLower(strings.TrimSpace(q.Service))
	text := strings.ToLower(strings.TrimSpace(q.Text))

	out := make([]model.Finding, 0, len(findings))
	for _, f := range findings {
		if service != "" && strings.ToLower(f.ServiceName()) != service {
			continue
		}
		if text != "" && !strings.Contains(haystack(f), text) {
			continue
		}
		out = append(out, f)
	}
	return out
}

func haystack(f model.Finding) string {
	return strings.ToLower(fmt.Sprintf("%s:%d %s %s", f.IP, f.Port, f.Service, f.Banner))
}

func lastSeen(f model.Finding) int64 {
	if f.LastSeen.IsZero() {
		return 0
	}
	return f.LastSeen.UnixMilli()
}

func sortFindings(items []model.Finding, mode SortMode) {
	var less func(a, b model.Finding) bool
	switch mode {
	case SortLastSeenAsc:
		less = func(a, b model.Finding) bool { return lastSeen(a) < lastSeen(b) }
	case SortAddressAsc:
		less = func(a, b model.Finding) bool { return ipToNum(a.IP) < ipToNum(b.IP) }
	case SortPortAsc:
		less = func(a, b model.Finding) bool { return a.Port < b.Port }
	default:
		less = func(a, b model.Finding) bool { return lastSeen(a) > lastSeen(b) }
	}
	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
}

// ipToNum converts a dotted quad to its numeric value; anything else is 0.
func ipToNum(ip string) uint32 {
	parts := strings.Split(strings.TrimSpace(ip), ".")
	if len(parts) != 4 {
		return 0
	}
	var n uint32
	for _, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 || v > 255 {
			return 0
		}
		n = n<<8 | uint32(v)
	}
	return n
}

// Services lists the distinct lowercase service names, "unknown" for findings without one.
func Services(findings []model.Finding) []string {
	seen := make(map[string]struct{})
	for _, f := range findings {
		seen[strings.ToLower(f.ServiceName())] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// LastRun returns the newest run; the server orders runs newest first.
func LastRun(runs []model.ScanRun) (model.ScanRun, bool) {
	if len(runs) == 0 {
		return model.ScanRun{}, false
	}
	return runs[0], true
}
