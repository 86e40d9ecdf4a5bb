package web

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/CleanCSV/internal/config"
	"github.com/JonMunkholm/CleanCSV/internal/core"
	"github.com/JonMunkholm/CleanCSV/internal/payment"
	"github.com/JonMunkholm/CleanCSV/internal/store"
)

const sampleCSV = "Name,Amount\nalice,1\nbob,2\n"

// fakeGateway is an in-memory payment provider.
type fakeGateway struct {
	sessions map[string]string        // session ID -> job ID
	paid     map[string]bool          // session ID -> paid
	events   map[string]payment.Event // signature -> event
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		sessions: make(map[string]string),
		paid:     make(map[string]bool),
		events:   make(map[string]payment.Event),
	}
}

func (g *fakeGateway) Enabled() bool { return true }

func (g *fakeGateway) CreateCheckout(_ context.Context, jobID string) (payment.Checkout, error) {
	id := "cs_" + jobID[:6]
	g.sessions[id] = jobID
	return payment.Checkout{SessionID: id, URL: "https://checkout.test/" + id}, nil
}

func (g *fakeGateway) SessionPaid(_ context.Context, sessionID, jobID string) (bool, error) {
	return g.paid[sessionID] && g.sessions[sessionID] == jobID, nil
}

func (g *fakeGateway) ParseWebhook(_ []byte, signature string) (payment.Event, error) {
	ev, ok := g.events[signature]
	if !ok {
		return payment.Event{}, payment.ErrInvalidWebhook
	}
	return ev, nil
}

type testServer struct {
	srv  *Server
	svc  *core.Service
	jobs *store.MemoryJobStore
}

func testConfig() *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{RequestTimeout: 10 * time.Second},
		Upload:    config.UploadConfig{MaxFileSize: 1024 * 1024},
		Rate:      config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1000, UploadLimit: 50, UploadWindow: time.Minute},
		Security:  config.SecurityConfig{EnableCSP: true},
		Retention: config.RetentionConfig{TTL: 30 * time.Minute},
		Payment:   config.PaymentConfig{PriceLabel: "$5", SupportEmail: "help@example.com"},
	}
}

func newTestServer(t *testing.T, gw payment.Gateway, cfg *config.Config) *testServer {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	jobs := store.NewMemoryJobStore()
	svc := core.NewService(jobs, store.NewMemoryBlobStore(), gw, core.Options{MaxConcurrent: 2, MaxWait: time.Second})
	return &testServer{srv: NewServer(svc, cfg), svc: svc, jobs: jobs}
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.srv.Router().ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) get(path string) *httptest.ResponseRecorder {
	return ts.do(httptest.NewRequest(http.MethodGet, path, nil))
}

// upload posts a file and returns the response and the new job ID, if any.
func (ts *testServer) upload(t *testing.T, name string, data []byte, fields map[string]string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	before := ts.jobIDs(t)
	rec := ts.do(uploadRequest(t, name, data, fields))
	after := ts.jobIDs(t)

	for id := range after {
		if !before[id] {
			return rec, id
		}
	}
	return rec, ""
}

func (ts *testServer) jobIDs(t *testing.T) map[string]bool {
	t.Helper()
	ids, err := ts.jobs.ListExpired(context.Background(), time.Now().Add(time.Hour))
	require.NoError(t, err)
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func uploadRequest(t *testing.T, name string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if name != "" {
		fw, err := mw.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// ---- Pages ----

func TestIndex(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	rec := ts.get("/")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))

	body := rec.Body.String()
	assert.Contains(t, body, `action="/upload"`)
	assert.Contains(t, body, "Max file size: 1 MB")
	assert.Contains(t, body, "Files auto-delete after 30 minutes.")
	assert.Contains(t, body, "50 uploads per 60s per IP.")
	assert.Contains(t, body, "Payment: disabled")
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	rec := ts.get("/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

// ---- Upload ----

func TestUpload_RendersResultAndServesFiles(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	rec, id := ts.upload(t, "export.csv", []byte(sampleCSV), map[string]string{"near_dupes_remove": "1"})

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, id)
	body := rec.Body.String()
	assert.Contains(t, body, "Job ID: "+id)
	assert.Contains(t, body, "Paid: no")
	assert.Contains(t, body, "Near-dupes: remove")
	assert.Contains(t, body, "Delimiter: Comma")
	assert.Contains(t, body, "Download cleaned file")
	assert.Contains(t, body, "Preview: first 10 rows")
	assert.Contains(t, body, "<td>alice</td>")

	dl := ts.get("/download/" + id)
	require.Equal(t, http.StatusOK, dl.Code)
	assert.Contains(t, dl.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, dl.Header().Get("Content-Disposition"), "cleaned.csv")
	assert.Equal(t, "name,amount\nalice,1\nbob,2\n", dl.Body.String())

	orig := ts.get("/download_original/" + id)
	require.Equal(t, http.StatusOK, orig.Code)
	assert.Contains(t, orig.Header().Get("Content-Disposition"), "export.csv")
	assert.Equal(t, sampleCSV, orig.Body.String())

	page := ts.get("/result/" + id)
	require.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "Job ID: "+id)
}

func TestUpload_TabDelimitedDownloadName(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	rec, id := ts.upload(t, "export.tsv", []byte("a\tb\n1\t2\n3\t4\n"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Delimiter: TAB")

	dl := ts.get("/download/" + id)
	require.Equal(t, http.StatusOK, dl.Code)
	assert.Contains(t, dl.Header().Get("Content-Disposition"), "cleaned.tsv")
	assert.Contains(t, dl.Header().Get("Content-Type"), "tab-separated-values")
}

func TestUpload_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		file       string
		data       []byte
		wantStatus int
		wantBody   string
	}{
		{
			name:       "bad extension",
			file:       "report.xlsx",
			data:       []byte(sampleCSV),
			wantStatus: http.StatusBadRequest,
			wantBody:   "Please upload a .csv or .tsv file",
		},
		{
			name:       "binary data",
			file:       "data.csv",
			data:       []byte("a,b\n\x00\x01\x02\n"),
			wantStatus: http.StatusBadRequest,
			wantBody:   "binary data detected",
		},
		{
			name:       "too large",
			file:       "big.csv",
			data:       bytes.Repeat([]byte("a"), 1024*1024+10),
			wantStatus: http.StatusRequestEntityTooLarge,
			wantBody:   "File too large. Max is 1 MB.",
		},
		{
			name:       "missing file",
			wantStatus: http.StatusBadRequest,
			wantBody:   "No file uploaded.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, nil, nil)

			rec, id := ts.upload(t, tt.file, tt.data, nil)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			assert.Empty(t, id, "no job should be stored")
		})
	}
}

func TestUpload_RateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.Rate.UploadLimit = 2
	ts := newTestServer(t, nil, cfg)

	for i := 0; i < 2; i++ {
		rec, _ := ts.upload(t, "export.csv", []byte(sampleCSV), nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec, id := ts.upload(t, "export.csv", []byte(sampleCSV), nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "Rate limit: too many uploads. Please wait")
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Empty(t, id)
}

func TestUpload_RateLimitDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Rate.Enabled = false
	cfg.Rate.UploadLimit = 1
	ts := newTestServer(t, nil, cfg)

	for i := 0; i < 3; i++ {
		rec, _ := ts.upload(t, "export.csv", []byte(sampleCSV), nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

// ---- Not found ----

func TestUnknownJob(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	unknown := "0123456789abcdef0123456789abcdef"

	for _, path := range []string{
		"/result/" + unknown,
		"/result/not-a-job",
		"/download/" + unknown,
		"/download_original/" + unknown,
	} {
		rec := ts.get(path)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}

	rec := ts.get("/api/jobs/" + unknown)
	require.Equal(t, http.StatusNotFound, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "JOB001", resp.Code)
}

func TestJobAPI(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	_, id := ts.upload(t, "export.csv", []byte(sampleCSV), map[string]string{"near_dupes_preview": "1"})
	require.NotEmpty(t, id)

	rec := ts.get("/api/jobs/" + id)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp JobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, id, resp.JobID)
	assert.Equal(t, 2, resp.Rows)
	assert.Equal(t, 2, resp.Cols)
	assert.Equal(t, "preview", resp.NearDupesMode)
	assert.Equal(t, "Comma", resp.DelimiterLabel)
	assert.False(t, resp.PaymentsEnabled)
	assert.Equal(t, "/download/"+id, resp.DownloadURL)
}

func TestJobAPI_RequiresKeyWhenConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.Security.APIKeys = []string{"secret"}
	ts := newTestServer(t, nil, cfg)

	rec := ts.get("/api/uploads/status")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/uploads/status", nil)
	req.Header.Set("X-API-Key", "secret")
	rec = ts.do(req)
	require.Equal(t, http.StatusOK, rec.Code)

	var status core.UploadLimiterStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, 2, status.MaxConcurrent)
	assert.Equal(t, 0, status.Active)
}

// ---- Payments ----

func TestPayments_Disabled(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	_, id := ts.upload(t, "export.csv", []byte(sampleCSV), nil)

	rec := ts.get("/pay/" + id)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/download/"+id, rec.Header().Get("Location"))

	rec = ts.get("/success?job_id=" + id + "&session_id=cs_1")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(httptest.NewRequest(http.MethodPost, "/stripe/webhook", strings.NewReader("{}")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Webhook secret not configured")
}

func TestPayments_CheckoutFlow(t *testing.T) {
	gw := newFakeGateway()
	ts := newTestServer(t, gw, nil)

	rec, id := ts.upload(t, "export.csv", []byte(sampleCSV), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Pay $5 &amp; download")

	// Unpaid download goes to checkout.
	rec = ts.get("/download/" + id)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/pay/"+id, rec.Header().Get("Location"))

	rec = ts.get("/pay/" + id)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	session := "cs_" + id[:6]
	assert.Equal(t, "https://checkout.test/"+session, rec.Header().Get("Location"))

	// Checkout started but unconfirmed.
	rec = ts.get("/download/" + id)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/result/"+id, rec.Header().Get("Location"))

	page := ts.get("/result/" + id)
	require.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "Payment pending.")

	rec = ts.get("/success?job_id=" + id + "&session_id=" + session)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Contains(t, rec.Body.String(), "Payment not confirmed.")

	gw.paid[session] = true
	rec = ts.get("/success?job_id=" + id + "&session_id=" + session)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Payment received")
	assert.Contains(t, rec.Body.String(), "help@example.com")

	rec = ts.get("/download/" + id)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "name,amount\nalice,1\nbob,2\n", rec.Body.String())

	page = ts.get("/result/" + id)
	assert.Contains(t, page.Body.String(), "Paid: yes")
	assert.NotContains(t, page.Body.String(), "Payment pending.")
}

func TestPayments_SuccessMissingParams(t *testing.T) {
	ts := newTestServer(t, newFakeGateway(), nil)

	rec := ts.get("/success?job_id=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPayments_PayUnknownJob(t *testing.T) {
	ts := newTestServer(t, newFakeGateway(), nil)

	rec := ts.get("/pay/0123456789abcdef0123456789abcdef")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWebhook(t *testing.T) {
	gw := newFakeGateway()
	ts := newTestServer(t, gw, nil)
	_, id := ts.upload(t, "export.csv", []byte(sampleCSV), nil)
	require.NotEmpty(t, id)

	gw.events["sig-ok"] = payment.Event{
		ID:        "evt_1",
		Type:      payment.EventCheckoutCompleted,
		JobID:     id,
		SessionID: "cs_test",
	}

	post := func(sig string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/stripe/webhook", strings.NewReader(`{"id":"evt_1"}`))
		if sig != "" {
			req.Header.Set("Stripe-Signature", sig)
		}
		return ts.do(req)
	}

	rec := post("bad")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid webhook")

	rec = post("sig-ok")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	job, err := ts.svc.Job(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, job.Paid)

	// Redelivery is acknowledged.
	rec = post("sig-ok")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCancel(t *testing.T) {
	ts := newTestServer(t, newFakeGateway(), nil)
	rec := ts.get("/cancel?job_id=abc")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Payment canceled")
	assert.Contains(t, rec.Body.String(), `href="/result/abc"`)
}

// ---- Rate limiter ----

func TestIPLimiter(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := newIPLimiter(2, time.Minute)
	l.now = func() time.Time { return now }

	assert.Zero(t, l.reserve("1.1.1.1"))
	assert.Zero(t, l.reserve("1.1.1.1"))

	wait := l.reserve("1.1.1.1")
	assert.InDelta(t, float64(30*time.Second), float64(wait), float64(time.Millisecond))

	// A refused attempt does not push the next token further out.
	assert.InDelta(t, float64(30*time.Second), float64(l.reserve("1.1.1.1")), float64(time.Millisecond))

	// Other clients are unaffected.
	assert.Zero(t, l.reserve("2.2.2.2"))

	now = now.Add(31 * time.Second)
	assert.Zero(t, l.reserve("1.1.1.1"))

	// Idle buckets are dropped.
	now = now.Add(5 * time.Minute)
	assert.Zero(t, l.reserve("3.3.3.3"))
	assert.Equal(t, 1, l.size())
}
