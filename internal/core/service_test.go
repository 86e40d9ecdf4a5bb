package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/CleanCSV/internal/payment"
	"github.com/JonMunkholm/CleanCSV/internal/repair"
	"github.com/JonMunkholm/CleanCSV/internal/store"
)

const testJobID = "0123456789abcdef0123456789abcdef"

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

type testEnv struct {
	svc   *Service
	jobs  *store.MemoryJobStore
	blobs *store.MemoryBlobStore
}

func newTestEnv(t *testing.T, gw payment.Gateway, opts Options) *testEnv {
	t.Helper()
	jobs := store.NewMemoryJobStore()
	blobs := store.NewMemoryBlobStore()
	svc := NewService(jobs, blobs, gw, opts)
	svc.newID = func() string { return testJobID }
	return &testEnv{svc: svc, jobs: jobs, blobs: blobs}
}

func (e *testEnv) submit(t *testing.T, data string) *store.Job {
	t.Helper()
	job, err := e.svc.Submit(context.Background(), Submission{FileName: "export.csv", Data: []byte(data)})
	require.NoError(t, err)
	return job
}

// ---- Submit Tests ----

func TestSubmit_StoresJobAndFiles(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	ctx := context.Background()

	job := env.submit(t, "Name,Amount\nalice,1\nbob,2\n")

	assert.Equal(t, testJobID, job.ID)
	assert.Equal(t, 2, job.Rows)
	assert.Equal(t, 2, job.Cols)
	assert.Equal(t, ",", job.Delimiter)
	assert.Equal(t, "utf-8", job.Encoding)
	assert.False(t, job.Paid)
	assert.Empty(t, job.NearDupesMode)
	assert.NotEmpty(t, job.Changelog)
	assert.False(t, job.CreatedAt.IsZero())

	stored, err := env.svc.Job(ctx, testJobID)
	require.NoError(t, err)
	assert.Equal(t, job.Changelog, stored.Changelog)

	orig, err := env.svc.Original(ctx, testJobID)
	require.NoError(t, err)
	assert.Equal(t, "export.csv", orig.Name)
	assert.Equal(t, "Name,Amount\nalice,1\nbob,2\n", string(orig.Data))

	action, f, err := env.svc.Download(ctx, testJobID)
	require.NoError(t, err)
	assert.Equal(t, DownloadFree, action)
	require.NotNil(t, f)
	assert.Equal(t, "cleaned.csv", f.Name)
	assert.Equal(t, "name,amount\nalice,1\nbob,2\n", string(f.Data))
}

func TestSubmit_TabDelimitedDownloadName(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	env.submit(t, "a\tb\n1\t2\n3\t4\n")

	_, f, err := env.svc.Download(context.Background(), testJobID)
	require.NoError(t, err)
	assert.Equal(t, "cleaned.tsv", f.Name)
	assert.Contains(t, f.ContentType, "tab-separated")
}

func TestSubmit_NearDupeOptions(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	data := "id,name,city\n1,Alice,Oslo\n2,alice,Oslo\n3,Bob,Rome\n"

	job, err := env.svc.Submit(context.Background(), Submission{
		FileName:  "people.csv",
		Data:      []byte(data),
		NearDupes: repair.NearDupesRemove,
	})
	require.NoError(t, err)

	assert.Equal(t, "remove", job.NearDupesMode)
	assert.Equal(t, 1, job.NearDupesCount)
	assert.Equal(t, []string{"id"}, job.IgnoredColumns)
	assert.Len(t, job.NearDupeExamples, 1)
	assert.Equal(t, 2, job.Rows)
}

func TestSubmit_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		data    string
		opts    Options
		wantErr error
	}{
		{"extension", "book.xlsx", "a,b\n", Options{}, ErrBadExtension},
		{"binary", "x.csv", "a,b\x00\n", Options{}, ErrBinaryFile},
		{"empty", "x.csv", "  \n\n", Options{}, repair.ErrEmptyInput},
		{"rows", "x.csv", "a\n1\n2\n3\n", Options{Repair: repair.Options{MaxRows: 2}}, repair.ErrRowLimit},
		{"cols", "x.csv", "a,b,c\n1,2,3\n", Options{Repair: repair.Options{MaxCols: 2}}, repair.ErrColumnLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil, tt.opts)

			job, err := env.svc.Submit(context.Background(), Submission{FileName: tt.file, Data: []byte(tt.data)})
			assert.Nil(t, job)
			assert.ErrorIs(t, err, tt.wantErr)

			assert.Equal(t, 0, env.blobs.Len(), "no blobs should remain")
			_, err = env.jobs.Get(context.Background(), testJobID)
			assert.ErrorIs(t, err, store.ErrJobNotFound)
			assert.Equal(t, 0, env.svc.UploadLimiterStatus().Active)
		})
	}
}

func TestSubmit_Busy(t *testing.T) {
	env := newTestEnv(t, nil, Options{MaxConcurrent: 1, MaxWait: 20 * time.Millisecond})
	require.True(t, env.svc.limiter.TryAcquire())
	defer env.svc.limiter.Release()

	_, err := env.svc.Submit(context.Background(), Submission{FileName: "x.csv", Data: []byte("a\n1\n")})
	assert.ErrorIs(t, err, ErrTooManyUploads)
}

func TestJob_InvalidIDs(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	for _, id := range []string{"", "../../etc/passwd", "abc", strings.Repeat("z", 32)} {
		_, err := env.svc.Job(context.Background(), id)
		assert.ErrorIs(t, err, ErrJobNotFound, "id %q", id)
	}
}

// ---- Preview Tests ----

func TestPreview(t *testing.T) {
	env := newTestEnv(t, nil, Options{})

	var b strings.Builder
	b.WriteString("n,v\n")
	for i := 0; i < 25; i++ {
		b.WriteString(string(rune('a'+i)) + ",1\n")
	}
	b.WriteString("z,1,extra\n")
	job := env.submit(t, b.String())
	require.Equal(t, []int{25}, job.RepairedRows)

	p, err := env.svc.Preview(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, []string{"n", "v"}, p.Header)
	assert.Len(t, p.First, PreviewRows)
	assert.Len(t, p.Last, PreviewRows)
	assert.Equal(t, []string{"a", "1"}, p.First[0])
	assert.Equal(t, []string{"z", "1"}, p.Last[PreviewRows-1])
	assert.Equal(t, [][]string{{"z", "1"}}, p.Repaired)
}

func TestBuildPreview_ClipsRepairedIndices(t *testing.T) {
	p, err := buildPreview([]byte("a;b\n1;2\n3;4\n"), ';', []int{1, 5, -1})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "2"}, {"3", "4"}}, p.First)
	assert.Equal(t, p.First, p.Last)
	assert.Equal(t, [][]string{{"3", "4"}}, p.Repaired)

	p, err = buildPreview(nil, ',', nil)
	require.NoError(t, err)
	assert.Empty(t, p.Header)
}

// ---- Payment Tests ----

func TestDownloadDecision(t *testing.T) {
	paying := newTestEnv(t, newFakeGateway(), Options{}).svc
	free := newTestEnv(t, nil, Options{}).svc

	tests := []struct {
		name string
		svc  *Service
		job  store.Job
		want DownloadAction
	}{
		{"payments disabled", free, store.Job{}, DownloadFree},
		{"paid", paying, store.Job{Paid: true, StripeSessionID: "cs"}, DownloadPaid},
		{"pending", paying, store.Job{StripeSessionID: "cs"}, DownloadPending},
		{"unpaid", paying, store.Job{}, DownloadPay},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.svc.DownloadDecision(&tt.job))
		})
	}
}

func TestCheckoutFlow(t *testing.T) {
	gw := newFakeGateway()
	env := newTestEnv(t, gw, Options{})
	ctx := context.Background()
	env.submit(t, "a,b\n1,2\n")

	action, f, err := env.svc.Download(ctx, testJobID)
	require.NoError(t, err)
	assert.Equal(t, DownloadPay, action)
	assert.Nil(t, f)

	url, err := env.svc.StartCheckout(ctx, testJobID)
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.test/cs_012345", url)

	job, _ := env.svc.Job(ctx, testJobID)
	assert.True(t, env.svc.PaymentPending(job))

	action, _, err = env.svc.Download(ctx, testJobID)
	require.NoError(t, err)
	assert.Equal(t, DownloadPending, action)

	err = env.svc.ConfirmSuccess(ctx, testJobID, "cs_012345")
	assert.ErrorIs(t, err, ErrPaymentNotConfirmed)

	gw.paid["cs_012345"] = true
	require.NoError(t, env.svc.ConfirmSuccess(ctx, testJobID, "cs_012345"))

	action, f, err = env.svc.Download(ctx, testJobID)
	require.NoError(t, err)
	assert.Equal(t, DownloadPaid, action)
	assert.Equal(t, "a,b\n1,2\n", string(f.Data))
}

func TestConfirmSuccess_Errors(t *testing.T) {
	free := newTestEnv(t, nil, Options{}).svc
	assert.ErrorIs(t, free.ConfirmSuccess(context.Background(), testJobID, "cs"), ErrPaymentsDisabled)

	_, err := free.StartCheckout(context.Background(), testJobID)
	assert.ErrorIs(t, err, ErrPaymentsDisabled)

	paying := newTestEnv(t, newFakeGateway(), Options{}).svc
	assert.ErrorIs(t, paying.ConfirmSuccess(context.Background(), " ", "cs"), ErrMissingParams)
	assert.ErrorIs(t, paying.ConfirmSuccess(context.Background(), testJobID, ""), ErrMissingParams)

	_, err = paying.StartCheckout(context.Background(), testJobID)
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestHandleWebhook(t *testing.T) {
	gw := newFakeGateway()
	env := newTestEnv(t, gw, Options{})
	ctx := context.Background()
	env.submit(t, "a,b\n1,2\n")

	gw.events["sig-ok"] = payment.Event{ID: "evt_1", Type: payment.EventCheckoutCompleted, JobID: testJobID, SessionID: "cs_1"}
	gw.events["sig-other"] = payment.Event{ID: "evt_2", Type: "charge.refunded"}
	gw.events["sig-unknown"] = payment.Event{ID: "evt_3", Type: payment.EventCheckoutCompleted, JobID: "ffffffffffffffffffffffffffffffff"}

	require.NoError(t, env.svc.HandleWebhook(ctx, nil, "sig-other"))
	job, _ := env.svc.Job(ctx, testJobID)
	assert.False(t, job.Paid)

	require.NoError(t, env.svc.HandleWebhook(ctx, nil, "sig-ok"))
	job, _ = env.svc.Job(ctx, testJobID)
	assert.True(t, job.Paid)
	assert.Equal(t, "evt_1", job.StripeEventID)
	assert.Equal(t, "cs_1", job.StripeSessionID)

	// Redelivery and unknown jobs are acknowledged.
	require.NoError(t, env.svc.HandleWebhook(ctx, nil, "sig-ok"))
	require.NoError(t, env.svc.HandleWebhook(ctx, nil, "sig-unknown"))

	err := env.svc.HandleWebhook(ctx, nil, "forged")
	assert.True(t, errors.Is(err, payment.ErrInvalidWebhook))
}

// ---- Retention Tests ----

func TestSweepExpired(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	env.svc.now = func() time.Time { return base }

	env.submit(t, "a,b\n1,2\n")
	require.Equal(t, 2, env.blobs.Len())

	n, err := env.svc.SweepExpired(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	env.svc.now = func() time.Time { return base.Add(31 * time.Minute) }
	n, err = env.svc.SweepExpired(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, env.blobs.Len())

	_, err = env.svc.Job(ctx, testJobID)
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestStartRetentionScheduler(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := env.svc.StartRetentionScheduler(ctx, RetentionConfig{TTL: 0})
	assert.Error(t, err)

	_, err = env.svc.StartRetentionScheduler(ctx, RetentionConfig{TTL: time.Minute, Schedule: "not a schedule"})
	assert.Error(t, err)

	env.submit(t, "a,b\n1,2\n")
	env.svc.now = func() time.Time { return time.Now().Add(time.Hour) }

	c, err := env.svc.StartRetentionScheduler(ctx, RetentionConfig{TTL: time.Minute, Schedule: "@every 1h"})
	require.NoError(t, err)
	defer c.Stop()

	// The first sweep runs before StartRetentionScheduler returns.
	assert.Equal(t, 0, env.blobs.Len())
}
