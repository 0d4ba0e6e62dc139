package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressEvent_Terminal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ev   ProgressEvent
		want bool
	}{
		{"early progress", ProgressEvent{Percent: 10, Message: "Pre-flight checks"}, false},
		{"percent 100", ProgressEvent{Percent: 100}, true},
		{"percent above 100", ProgressEvent{Percent: 120, Message: "weird"}, true},
		{"finished keyword below 100", ProgressEvent{Percent: 45, Message: "scan finished early"}, true},
		{"keyword case insensitive", ProgressEvent{Percent: 30, Message: "Scan CANCELLED by user"}, true},
		{"done keyword", ProgressEvent{Percent: 50, Message: "done"}, true},
		{"error keyword", ProgressEvent{Percent: 20, Message: "nmap error: exit 1"}, true},
		{"failed keyword", ProgressEvent{Percent: 20, Message: "Scan failed"}, true},
		{"status finished wins", ProgressEvent{Percent: 40, Message: "wrapping up", Status: StatusFinished}, true},
		{"status running wins over keyword", ProgressEvent{Percent: 60, Message: "retrying after error", Status: StatusRunning}, false},
		{"status running wins over percent", ProgressEvent{Percent: 100, Status: StatusRunning}, false},
		{"unknown status falls back", ProgressEvent{Percent: 100, Status: "paused"}, true},
		{"status is case insensitive", ProgressEvent{Percent: 5, Status: "FAILED"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ev.Terminal())
		})
	}
}

func TestDecodeProgress(t *testing.T) {
	t.Parallel()

	ev, err := DecodeProgress([]byte(`{"percent":40,"message":"Running nmap"}`))
	require.NoError(t, err)
	assert.Equal(t, ProgressEvent{Percent: 40, Message: "Running nmap"}, ev)

	ev, err = DecodeProgress([]byte(`{"percent":100,"message":"Scan finished","status":"finished"}`))
	require.NoError(t, err)
	assert.Equal(t, StatusFinished, ev.Status)

	for _, bad := range []string{``, `not json`, `null`, `[1,2]`, `{"percent":"ten"}`, `{"percent":1`} {
		_, err := DecodeProgress([]byte(bad))
		assert.Error(t, err, "payload %q", bad)
	}
}

func TestProgressEvent_ClampedPercent(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0.0, ProgressEvent{Percent: -3}.ClampedPercent())
	assert.Equal(t, 55.0, ProgressEvent{Percent: 55}.ClampedPercent())
	assert.Equal(t, 100.0, ProgressEvent{Percent: 140}.ClampedPercent())
}

func TestScanRequest_Validate(t *testing.T) {
	t.Parallel()

	ok := []ScanRequest{
		{Targets: []string{"10.0.0.5"}, Ports: "auto"},
		{Targets: []string{"10.0.0.0/24"}, Ports: "22,80,8000-8100"},
		{Targets: []string{"localhost"}, Ports: ""},
		{Targets: []string{"db.internal.example"}, Ports: "top"},
		{Targets: []string{"fe80::1"}, Ports: "443"},
		{Targets: []string{"10.0.0.1"}, Ports: "T:22,U:53"},
		{Targets: []string{"10.0.0.1"}, Ports: "22,80,"},
		{Targets: []string{"10.0.0.1"}, Ports: "-"},
	}
	for _, r := range ok {
		assert.NoError(t, r.Validate(), "%+v", r)
	}

	bad := []ScanRequest{
		{},
		{Targets: []string{"  "}},
		{Targets: []string{"10.0.0.0/33"}},
		{Targets: []string{"http://example.com"}},
		{Targets: []string{"host:22"}},
		{Targets: []string{"a..b"}},
		{Targets: []string{"10.0.0.1", ""}, Ports: "22"},
	}
	for _, r := range bad {
		err := r.Validate()
		require.Error(t, err, "%+v", r)
		var ve *ValidationError
		assert.True(t, errors.As(err, &ve))
	}
}

func TestScanRequest_Normalize(t *testing.T) {
	t.Parallel()

	r := ScanRequest{Targets: []string{" 10.0.0.1 "}, Ports: "  "}.Normalize()
	assert.Equal(t, []string{"10.0.0.1"}, r.Targets)
	assert.Equal(t, "auto", r.Ports)

	r = ScanRequest{Targets: []string{"10.0.0.1"}, Ports: "T:22,U:53"}.Normalize()
	assert.Equal(t, "T:22,U:53", r.Ports)
}

func TestFinding_KeyAndService(t *testing.T) {
	t.Parallel()

	f := Finding{IP: "10.0.0.1", Port: 22}
	assert.Equal(t, "10.0.0.1:22/tcp", f.Key())
	assert.Equal(t, "unknown", f.ServiceName())

	f.Proto, f.Service = "udp", "dns"
	assert.Equal(t, "10.0.0.1:22/udp", f.Key())
	assert.Equal(t, "dns", f.ServiceName())
}
