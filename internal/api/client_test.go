package api

import (
	"bufio"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/L1nMay/portscanner-console/internal/fakeserver"
	"github.com/L1nMay/portscanner-console/internal/metrics"
	"github.com/L1nMay/portscanner-console/internal/model"
)

type staticTokens struct {
	token string
	ok    bool
	err   error
}

func (s staticTokens) Token() (string, bool, error) { return s.token, s.ok, s.err }

func newTestClient(t *testing.T, opts ...Option) (*Client, *fakeserver.Server) {
	t.Helper()
	fs := fakeserver.New()
	ts := httptest.NewServer(fs.Handler())
	t.Cleanup(ts.Close)
	return New(ts.URL+"/", opts...), fs
}

func TestClient_ReadCalls(t *testing.T) {
	t.Parallel()
	c, fs := newTestClient(t)

	seen := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	fs.SetStats(model.Stats{TotalFindings: 3, UniqueHosts: 2})
	fs.SetResults([]model.Finding{
		{IP: "10.0.0.1", Port: 22, Proto: "tcp", Service: "ssh", LastSeen: seen},
	})
	fs.SetRuns([]model.ScanRun{{ID: "1", Engine: "nmap", Found: 3, NewFound: 1, PortsSpec: "1-1024"}})
	fs.SetPlan(&model.ScanPlan{Targets: []string{"10.0.0.0/24"}, Ports: "auto", Engine: "masscan", Reason: "default"})

	ctx := context.Background()

	st, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.Stats{TotalFindings: 3, UniqueHosts: 2}, st)

	res, err := c.Results(ctx)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "ssh", res[0].Service)
	assert.True(t, res[0].LastSeen.Equal(seen))

	runs, err := c.Scans(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "nmap", runs[0].Engine)

	plan, err := c.Plan(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.0/24"}, plan.Targets)
	assert.Equal(t, "masscan", plan.Engine)
}

func TestClient_EmptyCollectionsAreNotNil(t *testing.T) {
	t.Parallel()
	c, fs := newTestClient(t)
	fs.SetResults(nil)
	fs.SetRuns(nil)

	res, err := c.Results(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.Empty(t, res)

	runs, err := c.Scans(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, runs)
}

func TestClient_ErrorMessageFromBody(t *testing.T) {
	t.Parallel()
	c, fs := newTestClient(t)
	fs.Fail(PathScan, http.StatusConflict, "scan already running")

	err := c.StartScan(context.Background())
	require.Error(t, err)
	assert.Equal(t, "scan already running", err.Error())
	assert.True(t, IsStatus(err, http.StatusConflict))
}

func TestClient_ErrorMessageFallsBackToStatusText(t *testing.T) {
	t.Parallel()
	c, fs := newTestClient(t)
	fs.Fail(PathResults, http.StatusServiceUnavailable, "")

	_, err := c.Results(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Service Unavailable", err.Error())

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
}

func TestClient_PlanErrors(t *testing.T) {
	t.Parallel()
	c, _ := newTestClient(t)

	// the fake answers 400 when it has no plan, like the real planner without targets
	_, err := c.Plan(context.Background())
	require.Error(t, err)
	assert.Equal(t, "no targets specified", err.Error())
}

func TestClient_CustomScanBody(t *testing.T) {
	t.Parallel()
	c, fs := newTestClient(t)

	err := c.StartCustomScan(context.Background(), model.ScanRequest{Targets: []string{"10.0.0.7"}, Ports: "22,80"})
	require.NoError(t, err)

	reqs := fs.CustomRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, []string{"10.0.0.7"}, reqs[0].Targets)
	assert.Equal(t, "22,80", reqs[0].Ports)
}

func TestClient_BearerCredential(t *testing.T) {
	t.Parallel()

	c, fs := newTestClient(t, WithTokens(staticTokens{token: "s3cret", ok: true}))
	fs.Token = "s3cret"

	_, err := c.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer s3cret", fs.LastAuthorization(PathStats))

	require.NoError(t, c.CancelScan(context.Background()))
	assert.Equal(t, "Bearer s3cret", fs.LastAuthorization(PathScanCancel))

	ctx, cancel := context.WithCancel(context.Background())
	body, err := c.OpenStream(ctx)
	require.NoError(t, err)
	cancel()
	body.Close()
	assert.Empty(t, fs.LastAuthorization(PathScanStream), "stream is never authenticated")
}

func TestClient_NoCredentialSendsUnauthenticated(t *testing.T) {
	t.Parallel()

	for _, ts := range []TokenSource{nil, staticTokens{}, staticTokens{err: errors.New("db locked")}} {
		var opts []Option
		if ts != nil {
			opts = append(opts, WithTokens(ts))
		}
		c, fs := newTestClient(t, opts...)

		_, err := c.Stats(context.Background())
		require.NoError(t, err)
		assert.Empty(t, fs.LastAuthorization(PathStats))
	}
}

func TestClient_OpenStreamDeliversFrames(t *testing.T) {
	t.Parallel()
	c, fs := newTestClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	body, err := c.OpenStream(ctx)
	require.NoError(t, err)
	defer body.Close()

	require.Eventually(t, func() bool { return fs.Hub().Subscribers() == 1 }, 2*time.Second, 5*time.Millisecond)
	fs.Hub().Publish(model.ProgressEvent{Percent: 20, Message: "Launching scan engine"})

	r := bufio.NewReader(body)
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(line, "data: "))
	assert.Contains(t, line, `"percent":20`)
}

func TestClient_OpenStreamFailure(t *testing.T) {
	t.Parallel()
	c, fs := newTestClient(t)
	fs.Fail(PathScanStream, http.StatusInternalServerError, "stream unsupported")

	_, err := c.OpenStream(context.Background())
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusInternalServerError))
}

func TestClient_NonJSONReplyIsIgnored(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	}))
	defer ts.Close()

	st, err := New(ts.URL).Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.Stats{}, st)

	res, err := New(ts.URL).Results(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestClient_RecordsMetrics(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	c, fs := newTestClient(t, WithMetrics(m))
	fs.Fail(PathStats, 500, "db down")

	_, _ = c.Stats(context.Background())
	_, _ = c.Results(context.Background())

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		if f.GetName() == "portscan_console_api_calls_total" {
			found = true
			assert.Len(t, f.GetMetric(), 2)
		}
	}
	assert.True(t, found)
}

func TestClient_TransportError(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	err := New(url, WithTimeout(time.Second)).StartScan(context.Background())
	require.Error(t, err)
	var se *StatusError
	assert.False(t, errors.As(err, &se))
}
