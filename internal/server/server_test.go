package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/waterbill/internal/billing"
	"github.com/smallbiznis/waterbill/internal/clock"
	"github.com/smallbiznis/waterbill/internal/config"
	"github.com/smallbiznis/waterbill/internal/ledger"
	ledgerdomain "github.com/smallbiznis/waterbill/internal/ledger/domain"
	"github.com/smallbiznis/waterbill/internal/providers/delivery"
	"github.com/smallbiznis/waterbill/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testServer struct {
	server *Server
	store  *ledger.Store
	clock  *clock.FakeClock
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	clk := clock.NewFakeClock(time.Date(2026, time.August, 10, 12, 0, 0, 0, time.UTC))
	tariff := config.NewStaticTariffHolder(config.DefaultTariffConfig())
	cfg := config.Config{
		DataFile:  filepath.Join(dir, "readings.json"),
		BackupDir: filepath.Join(dir, "backups"),
	}

	store, err := ledger.Open(ledger.Params{
		Cfg:    cfg,
		Tariff: tariff,
		Log:    zap.NewNop(),
		Clock:  clk,
	})
	require.NoError(t, err)

	engine := billing.New(billing.Params{Store: store, Tariff: tariff, Clock: clk})

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	sched, err := scheduler.New(scheduler.Params{
		Store:    store,
		Tariff:   tariff,
		Log:      zap.NewNop(),
		Clock:    clk,
		Provider: &delivery.NoOpProvider{},
		GenID:    node,
	})
	require.NoError(t, err)

	srv := NewServer(ServerParams{
		Gin:       NewEngine(zap.NewNop()),
		Cfg:       cfg,
		Store:     store,
		Billing:   engine,
		Scheduler: sched,
		Log:       zap.NewNop(),
	})

	return testServer{server: srv, store: store, clock: clk}
}

func (ts testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.server.Engine().ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	data, _ := resp["data"].(map[string]any)
	return data
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSubmitReading(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/subscribers/1001/readings", gin.H{"reading": 145})
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeData(t, rec)
	assert.Equal(t, "2026-08", data["year_month"])
	assert.Equal(t, 145.0, data["current_reading"])
	assert.Equal(t, 101750.0, data["total_amount"])

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp["message"], "August 2026")
}

func TestSubmitReadingValidation(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/subscribers/1001/readings", gin.H{"reading": "abc"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/subscribers/1001/readings", gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/subscribers/1001/readings", gin.H{"reading": -3})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitReadingBelowPrevious(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/subscribers/1001/readings", gin.H{"reading": 145})
	require.Equal(t, http.StatusOK, rec.Code)

	ts.clock.Advance(31 * 24 * time.Hour)
	rec = ts.do(t, http.MethodPost, "/api/subscribers/1001/readings", gin.H{"reading": 100})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_reading", resp.Error.Type)
	require.NotNil(t, resp.Error.PreviousReading)
	assert.Equal(t, 145.0, *resp.Error.PreviousReading)
}

func TestGetInvoiceByPeriod(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/subscribers/1001/readings", gin.H{"reading": 145})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/subscribers/1001/invoices/2026-08", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	assert.Equal(t, 145.0, data["current_reading"])

	rec = ts.do(t, http.MethodGet, "/api/subscribers/1001/invoices/2026-07", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/subscribers/1001/invoices/not-a-period", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListInvoices(t *testing.T) {
	ts := newTestServer(t)

	for _, period := range []string{"2026-05", "2026-06", "2026-07"} {
		_, err := ts.store.SaveInvoice(ledgerdomain.Invoice{SubscriberID: "1001", Period: period})
		require.NoError(t, err)
	}

	rec := ts.do(t, http.MethodGet, "/api/subscribers/1001/invoices?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []ledgerdomain.Invoice `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "2026-07", resp.Data[0].Period)

	rec = ts.do(t, http.MethodGet, "/api/subscribers/1001/invoices?limit=oops", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubscriberLifecycle(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/subscribers/1001", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	assert.Equal(t, true, data["reminder_enabled"])

	rec = ts.do(t, http.MethodPatch, "/api/subscribers/1001", gin.H{
		"first_name":       "Ali",
		"reminder_enabled": false,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	data = decodeData(t, rec)
	assert.Equal(t, "Ali", data["first_name"])
	assert.Equal(t, false, data["reminder_enabled"])
}

func TestExportSubscriber(t *testing.T) {
	ts := newTestServer(t)

	_, err := ts.store.SaveInvoice(ledgerdomain.Invoice{SubscriberID: "1001", Period: "2026-08"})
	require.NoError(t, err)

	rec := ts.do(t, http.MethodGet, "/api/subscribers/1001/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	assert.Equal(t, "1001", data["user_id"])
	assert.Equal(t, 1.0, data["total_invoices"])
}

func TestGetStats(t *testing.T) {
	ts := newTestServer(t)

	_, err := ts.store.SaveInvoice(ledgerdomain.Invoice{SubscriberID: "1001", Period: "2026-07", Consumption: 40, TotalAmount: 28250})
	require.NoError(t, err)

	rec := ts.do(t, http.MethodGet, "/api/subscribers/1001/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	assert.Equal(t, 1.0, data["total_invoices"])
	assert.Equal(t, 40.0, data["total_consumption"])
}

func TestForceReminders(t *testing.T) {
	ts := newTestServer(t)

	_, err := ts.store.GetSubscriber("1001")
	require.NoError(t, err)
	_, err = ts.store.GetSubscriber("not-a-chat-id")
	require.NoError(t, err)

	rec := ts.do(t, http.MethodPost, "/admin/reminders/force", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	assert.Equal(t, 1.0, data["sent"])
	assert.Equal(t, 0.0, data["failed"])
	assert.Equal(t, 1.0, data["skipped"])
}

func TestManualBackup(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/admin/backups", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	assert.Contains(t, data["backup"], "ledger_backup_manual_")
}
