package jobs

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 2, 6, 0, 0, 0, time.UTC)

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// fakeAPI serves canned GraphQL responses, brotli-compressed when the
// client asks for it, and records the requests it received.
type fakeAPI struct {
	mu       sync.Mutex
	requests []gqlRequest
	respond  func(req gqlRequest) string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req gqlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	body := f.respond(req)
	w.Header().Set("Content-Type", "application/json")
	if r.Header.Get("Accept-Encoding") == "br" {
		w.Header().Set("Content-Encoding", "br")
		bw := brotli.NewWriter(w)
		_, _ = io.WriteString(bw, body)
		_ = bw.Close()
		return
	}
	_, _ = io.WriteString(w, body)
}

func newTestClient(t *testing.T, respond func(req gqlRequest) string) (*Client, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{respond: respond}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, srv.Client()), api
}

func newTestLog(t *testing.T) *LogFile {
	t.Helper()
	l := NewLogFile(filepath.Join(t.TempDir(), "job.log"))
	l.now = func() time.Time { return testNow }
	return l
}

func readLines(t *testing.T, l *LogFile) []string {
	t.Helper()
	data, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestLogFileAppends(t *testing.T) {
	l := newTestLog(t)

	require.NoError(t, l.Write("first"))
	require.NoError(t, l.Write("second", "third"))
	require.NoError(t, l.WriteError(assert.AnError))

	assert.Equal(t, []string{
		"2025-06-02 06:00:00 - first",
		"2025-06-02 06:00:00 - second",
		"2025-06-02 06:00:00 - third",
		"2025-06-02 06:00:00 - ERROR: " + assert.AnError.Error(),
	}, readLines(t, l))
}

func TestHeartbeat(t *testing.T) {
	client, api := newTestClient(t, func(gqlRequest) string {
		return `{"data":{"hello":"Hello, GraphQL!"}}`
	})
	log := newTestLog(t)

	job := &Heartbeat{Client: client, Log: log}
	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, []string{
		"2025-06-02 06:00:00 - CRM is alive",
		"2025-06-02 06:00:00 - GraphQL endpoint responsive: Hello, GraphQL!",
	}, readLines(t, log))
	require.Len(t, api.requests, 1)
	assert.Equal(t, helloQuery, api.requests[0].Query)
}

func TestHeartbeatEndpointDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	log := newTestLog(t)

	job := &Heartbeat{Client: NewClient(srv.URL, nil), Log: log}
	require.Error(t, job.Run(context.Background()))

	lines := readLines(t, log)
	require.Len(t, lines, 2)
	assert.Equal(t, "2025-06-02 06:00:00 - CRM is alive", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "2025-06-02 06:00:00 - ERROR: GraphQL endpoint check failed"), lines[1])
}

func TestLowStock(t *testing.T) {
	client, _ := newTestClient(t, func(gqlRequest) string {
		return `{"data":{"updateLowStockProducts":{
			"updatedProducts":[{"name":"Mouse","stock":10},{"name":"USB Hub","stock":10}],
			"message":"Restocked 2 low-stock products to 10"}}}`
	})
	log := newTestLog(t)

	job := &LowStock{Client: client, Log: log}
	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, []string{
		"2025-06-02 06:00:00 - Restocked 2 low-stock products to 10",
		"2025-06-02 06:00:00 - Updated Mouse to stock level 10",
		"2025-06-02 06:00:00 - Updated USB Hub to stock level 10",
	}, readLines(t, log))
}

func TestLowStockGraphQLError(t *testing.T) {
	client, _ := newTestClient(t, func(gqlRequest) string {
		return `{"data":null,"errors":[{"message":"internal error","extensions":{"code":"INTERNAL"}}]}`
	})
	log := newTestLog(t)

	job := &LowStock{Client: client, Log: log}
	err := job.Run(context.Background())

	var respErr *ResponseError
	require.ErrorAs(t, err, &respErr)
	assert.Equal(t, []string{"internal error"}, respErr.Messages)
	assert.Equal(t, []string{"2025-06-02 06:00:00 - ERROR: graphql: internal error"}, readLines(t, log))
}

func ordersResponder(pages map[string]string) func(req gqlRequest) string {
	return func(req gqlRequest) string {
		if strings.Contains(req.Query, "allCustomers") {
			return `{"data":{"allCustomers":[{"id":"1"},{"id":"2"},{"id":"3"}]}}`
		}
		after, _ := req.Variables["after"].(string)
		return pages[after]
	}
}

func TestReport(t *testing.T) {
	client, api := newTestClient(t, ordersResponder(map[string]string{
		"": `{"data":{"allOrders":{
			"edges":[
				{"node":{"id":"1","totalAmount":"80.00","customer":{"email":"a@example.com"}}},
				{"node":{"id":"2","totalAmount":"0.10","customer":{"email":"b@example.com"}}}
			],
			"pageInfo":{"hasNextPage":true,"endCursor":"Y3Vyc29yMQ=="}}}}`,
		"Y3Vyc29yMQ==": `{"data":{"allOrders":{
			"edges":[{"node":{"id":"3","totalAmount":"0.20","customer":{"email":"c@example.com"}}}],
			"pageInfo":{"hasNextPage":false,"endCursor":"Y3Vyc29yMg=="}}}}`,
	}))
	log := newTestLog(t)

	job := &Report{Client: client, Log: log}
	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, []string{
		"2025-06-02 06:00:00 - Report: 3 customers, 3 orders, 80.30 revenue",
	}, readLines(t, log))

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Len(t, api.requests, 3)
	for _, req := range api.requests {
		assert.NotContains(t, req.Variables, "orderDateGte")
	}
}

func TestReportEmpty(t *testing.T) {
	client, _ := newTestClient(t, func(req gqlRequest) string {
		if strings.Contains(req.Query, "allCustomers") {
			return `{"data":{"allCustomers":[]}}`
		}
		return `{"data":{"allOrders":{"edges":[],"pageInfo":{"hasNextPage":false,"endCursor":null}}}}`
	})
	log := newTestLog(t)

	job := &Report{Client: client, Log: log, Lookback: 7 * 24 * time.Hour, now: func() time.Time { return testNow }}
	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, []string{"2025-06-02 06:00:00 - Report: 0 customers, 0 orders, 0.00 revenue"}, readLines(t, log))
}

func TestReminders(t *testing.T) {
	client, api := newTestClient(t, ordersResponder(map[string]string{
		"": `{"data":{"allOrders":{
			"edges":[
				{"node":{"id":"7","totalAmount":"10.00","customer":{"email":"alice@example.com"}}},
				{"node":{"id":"5","totalAmount":"20.00","customer":{"email":"bob@example.com"}}}
			],
			"pageInfo":{"hasNextPage":false,"endCursor":"Y3Vyc29yMQ=="}}}}`,
	}))
	log := newTestLog(t)

	job := &Reminders{Client: client, Log: log, now: func() time.Time { return testNow }}
	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, []string{
		"2025-06-02 06:00:00 - Processing 2 order reminders",
		"2025-06-02 06:00:00 - Order ID: 7, Customer Email: alice@example.com",
		"2025-06-02 06:00:00 - Order ID: 5, Customer Email: bob@example.com",
	}, readLines(t, log))

	require.Len(t, api.requests, 1)
	assert.Equal(t, "2025-05-26T06:00:00Z", api.requests[0].Variables["orderDateGte"])
	assert.EqualValues(t, ordersPageSize, api.requests[0].Variables["first"])
}

func TestClientUnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	_, err := NewClient(srv.URL, srv.Client()).Hello(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
