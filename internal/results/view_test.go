package results

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/L1nMay/portscanner-console/internal/model"
)

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func sample() []model.Finding {
	return []model.Finding{
		{IP: "10.0.0.2", Port: 22, Proto: "tcp", Service: "ssh", Banner: "OpenSSH_9.6", LastSeen: base.Add(2 * time.Minute)},
		{IP: "10.0.0.1", Port: 80, Proto: "tcp", Service: "HTTP", Banner: "nginx/1.25", LastSeen: base.Add(5 * time.Minute)},
		{IP: "192.168.1.10", Port: 443, Proto: "tcp", Service: "https", LastSeen: base},
		{IP: "10.0.1.0", Port: 6379, Proto: "tcp", Banner: "redis_version:7.2"},
		{IP: "bogus", Port: 8080, Proto: "tcp", Service: "http", Banner: "Apache", LastSeen: base.Add(time.Minute)},
	}
}

func ips(items []model.Finding) []string {
	out := make([]string, 0, len(items))
	for _, f := range items {
		out = append(out, f.IP)
	}
	return out
}

func TestApply_ServiceFilterIsExactAndCaseInsensitive(t *testing.T) {
	t.Parallel()
	findings := sample()

	for _, service := range []string{"http", "HTTP", "ssh", "unknown", "UNKNOWN", "https", "ftp"} {
		page := Apply(findings, Query{Service: service}, 100)

		var want []string
		for _, f := range findings {
			if strings.EqualFold(f.ServiceName(), service) {
				want = append(want, f.IP)
			}
		}
		assert.ElementsMatch(t, want, ips(page.Items), "service %q", service)
		assert.Equal(t, len(want), page.Total)
	}

	// "http" must not match "https"
	page := Apply(findings, Query{Service: "http"}, 100)
	assert.ElementsMatch(t, []string{"10.0.0.1", "bogus"}, ips(page.Items))
}

func TestApply_FreeTextFilter(t *testing.T) {
	t.Parallel()
	findings := sample()

	for _, q := range []string{"nginx", "NGINX", "10.0.0", ":22 ", "redis", ":6379  redis", "ssh open", "443", ""} {
		page := Apply(findings, Query{Text: q}, 100)

		var want []string
		for _, f := range findings {
			hay := strings.ToLower(fmt.Sprintf("%s:%d %s %s", f.IP, f.Port, f.Service, f.Banner))
			if strings.Contains(hay, strings.ToLower(strings.TrimSpace(q))) {
				want = append(want, f.IP)
			}
		}
		assert.ElementsMatch(t, want, ips(page.Items), "query %q", q)
	}
}

func TestApply_FreeTextIsTrimmed(t *testing.T) {
	t.Parallel()
	findings := sample()

	assert.Equal(t, []string{"10.0.0.2"}, ips(Apply(findings, Query{Text: "ssh "}, 100).Items))
	assert.Equal(t, []string{"10.0.1.0"}, ips(Apply(findings, Query{Text: "\tredis\n"}, 100).Items))
	assert.Len(t, Apply(findings, Query{Text: "   "}, 100).Items, len(findings))
}

func TestApply_FiltersCombine(t *testing.T) {
	t.Parallel()
	page := Apply(sample(), Query{Text: "apache", Service: "http"}, 20)
	assert.Equal(t, []string{"bogus"}, ips(page.Items))
}

func TestApply_Sort(t *testing.T) {
	t.Parallel()
	findings := sample()

	tests := []struct {
		mode SortMode
		want []string
	}{
		{SortLastSeenDesc, []string{"10.0.0.1", "10.0.0.2", "bogus", "192.168.1.10", "10.0.1.0"}},
		{SortLastSeenAsc, []string{"10.0.1.0", "192.168.1.10", "bogus", "10.0.0.2", "10.0.0.1"}},
		{SortAddressAsc, []string{"bogus", "10.0.0.1", "10.0.0.2", "10.0.1.0", "192.168.1.10"}},
		{SortPortAsc, []string{"10.0.0.2", "10.0.0.1", "192.168.1.10", "10.0.1.0", "bogus"}},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			page := Apply(findings, Query{Sort: tt.mode}, 100)
			assert.Equal(t, tt.want, ips(page.Items))
		})
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	t.Parallel()
	findings := sample()
	before := ips(findings)

	Apply(findings, Query{Sort: SortAddressAsc}, 2)
	assert.Equal(t, before, ips(findings))
}

func TestApply_SortIsStable(t *testing.T) {
	t.Parallel()
	findings := []model.Finding{
		{IP: "10.0.0.1", Port: 1},
		{IP: "10.0.0.1", Port: 2},
		{IP: "10.0.0.1", Port: 3},
	}
	page := Apply(findings, Query{Sort: SortAddressAsc}, 20)
	assert.Equal(t, 1, page.Items[0].Port)
	assert.Equal(t, 2, page.Items[1].Port)
	assert.Equal(t, 3, page.Items[2].Port)
}

func TestIPToNum(t *testing.T) {
	t.Parallel()
	assert.Less(t, ipToNum("0.0.0.1"), ipToNum("0.0.1.0"))
	assert.Equal(t, uint32(1), ipToNum("0.0.0.1"))
	assert.Equal(t, uint32(256), ipToNum("0.0.1.0"))
	assert.Equal(t, uint32(0xC0A8010A), ipToNum("192.168.1.10"))
	assert.Equal(t, uint32(0xFFFFFFFF), ipToNum("255.255.255.255"))

	for _, bad := range []string{"", "bogus", "1.2.3", "1.2.3.4.5", "256.0.0.1", "1.2.3.x", "-1.0.0.0", "::1"} {
		assert.Zero(t, ipToNum(bad), bad)
	}
}

func TestApply_Pagination(t *testing.T) {
	t.Parallel()
	findings := make([]model.Finding, 45)
	for i := range findings {
		findings[i] = model.Finding{IP: fmt.Sprintf("10.0.0.%d", i+1), Port: i}
	}

	tests := []struct {
		requested int
		page      int
		items     int
	}{
		{requested: 1, page: 1, items: 20},
		{requested: 2, page: 2, items: 20},
		{requested: 3, page: 3, items: 5},
		{requested: 5, page: 3, items: 5},
		{requested: 0, page: 1, items: 20},
		{requested: -4, page: 1, items: 20},
	}
	for _, tt := range tests {
		p := Apply(findings, Query{Sort: SortPortAsc, Page: tt.requested}, 20)
		assert.Equal(t, 3, p.PageCount)
		assert.Equal(t, 45, p.Total)
		assert.Equal(t, tt.page, p.Page, "requested %d", tt.requested)
		assert.Len(t, p.Items, tt.items, "requested %d", tt.requested)
	}

	last := Apply(findings, Query{Sort: SortPortAsc, Page: 3}, 20)
	assert.Equal(t, 40, last.Items[0].Port)
}

func TestApply_EmptySnapshotHasOnePage(t *testing.T) {
	t.Parallel()
	p := Apply(nil, Query{Page: 7}, 0)
	assert.Equal(t, 1, p.PageCount)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 0, p.Total)
	assert.Empty(t, p.Items)
}

func TestParseSort(t *testing.T) {
	t.Parallel()
	for name, want := range map[string]SortMode{
		"":             SortLastSeenDesc,
		"lastSeenDesc": SortLastSeenDesc,
		"lastseenasc":  SortLastSeenAsc,
		"ipAsc":        SortAddressAsc,
		" portAsc ":    SortPortAsc,
	} {
		got, err := ParseSort(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseSort("random")
	assert.Error(t, err)
}

func TestServicesAndNormalize(t *testing.T) {
	t.Parallel()
	services := Services(sample())
	assert.Equal(t, []string{"http", "https", "ssh", "unknown"}, services)

	assert.Equal(t, "HTTP", Query{Service: "HTTP"}.Normalize(services).Service)
	assert.Equal(t, "", Query{Service: "ftp"}.Normalize(services).Service)
	assert.Equal(t, "", Query{}.Normalize(nil).Service)
}

func TestLastRun(t *testing.T) {
	t.Parallel()
	_, ok := LastRun(nil)
	assert.False(t, ok)

	run, ok := LastRun([]model.ScanRun{{ID: "newest"}, {ID: "older"}})
	require.True(t, ok)
	assert.Equal(t, "newest", run.ID)
}
