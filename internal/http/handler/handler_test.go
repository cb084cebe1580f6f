package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"podtracker/internal/http/middleware"
	"podtracker/internal/model"
	"podtracker/internal/report"
	"podtracker/internal/service"
	serviceMocks "podtracker/internal/service/mocks"
	"podtracker/internal/storage"
)

var nop = zerolog.Nop()

func newApp() *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	app.Use(middleware.RequestID())
	return app
}

func decodeError(t *testing.T, r io.Reader) errorPayload {
	t.Helper()
	var body errorPayload
	require.NoError(t, json.NewDecoder(r).Decode(&body))
	return body
}

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "SERVICE_UNAVAILABLE", decodeError(t, resp.Body).Error.Code)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRoot(t *testing.T) {
	app := fiber.New()
	app.Get("/", Root())

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	assert.Equal(t, WelcomeMessage, body["message"])
}

func TestMasterData(t *testing.T) {
	mockSvc := new(serviceMocks.MockTransactionService)
	app := newApp()
	app.Get("/master_data", MasterData(mockSvc, nop))

	t.Run("success", func(t *testing.T) {
		mockSvc.On("MasterData", mock.Anything).
			Return(&model.MasterData{SKUs: []string{"12oz cheerios"}, Retailers: []string{"Target"}}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/master_data", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var md model.MasterData
		json.NewDecoder(resp.Body).Decode(&md)
		assert.Equal(t, []string{"12oz cheerios"}, md.SKUs)
		assert.Equal(t, []string{"Target"}, md.Retailers)
		mockSvc.AssertExpectations(t)
	})

	t.Run("service error", func(t *testing.T) {
		mockSvc.On("MasterData", mock.Anything).Return(nil, errors.New("db down")).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/master_data", nil))

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		body := decodeError(t, resp.Body)
		assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
		assert.NotContains(t, body.Error.Message, "db down")
		assert.NotEmpty(t, body.RequestID)
	})
}

func TestCreateTransaction(t *testing.T) {
	mockSvc := new(serviceMocks.MockTransactionService)
	app := newApp()
	app.Post("/transactions", CreateTransaction(mockSvc, nop))

	in := model.TransactionInput{
		ProductName:   "cheerios 12oz",
		RetailerName:  "target",
		Quantity:      3,
		Status:        "planned",
		EffectiveDate: "2025-07-01",
	}
	payload, _ := json.Marshal(in)

	t.Run("success", func(t *testing.T) {
		trx := &model.Transaction{TrxID: "1-2-x", ProductName: "12oz cheerios", RetailerName: "Target", Status: model.StatusPlanned, QuantityChanged: 3}
		mockSvc.On("Log", mock.Anything, in, "alice", model.SourceUIForm).Return(trx, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/transactions?user_id=alice&source=ui_form", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body struct {
			Status string            `json:"status"`
			Data   model.Transaction `json:"data"`
		}
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "success", body.Status)
		assert.Equal(t, "1-2-x", body.Data.TrxID)
		mockSvc.AssertExpectations(t)
	})

	t.Run("defaults user and source", func(t *testing.T) {
		mockSvc.On("Log", mock.Anything, in, "api_user", model.SourceAPI).Return(&model.Transaction{}, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/transactions", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("validation error", func(t *testing.T) {
		mockSvc.On("Log", mock.Anything, in, "api_user", model.SourceAPI).
			Return(nil, &service.ValidationError{Message: "Invalid Retailer: 'target'."}).Once()

		req := httptest.NewRequest(http.MethodPost, "/transactions", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		body := decodeError(t, resp.Body)
		assert.Equal(t, "VALIDATION_FAILED", body.Error.Code)
		assert.Equal(t, "Invalid Retailer: 'target'.", body.Error.Message)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader("{"))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_BODY", decodeError(t, resp.Body).Error.Code)
	})
}

func TestBulkUpload(t *testing.T) {
	mockSvc := new(serviceMocks.MockTransactionService)
	app := newApp()
	app.Post("/transactions/bulk_upload", BulkUpload(mockSvc, nop))

	t.Run("success", func(t *testing.T) {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		part, _ := writer.CreateFormFile("file", "pods.csv")
		part.Write([]byte("product_name,retailer_name,quantity,status,effective_date\n"))
		writer.Close()

		res := &service.BulkResult{Status: "complete", SuccessfulLogs: 2, Errors: []string{"Row 3: Invalid Product: 'x'."}}
		mockSvc.On("BulkUpload", mock.Anything, mock.Anything, "pods.csv", "bob").Return(res, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/transactions/bulk_upload?user_id=bob", body)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var got service.BulkResult
		json.NewDecoder(resp.Body).Decode(&got)
		assert.Equal(t, *res, got)
		mockSvc.AssertExpectations(t)
	})

	t.Run("wrong file type", func(t *testing.T) {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		part, _ := writer.CreateFormFile("file", "pods.txt")
		part.Write([]byte("x"))
		writer.Close()

		mockSvc.On("BulkUpload", mock.Anything, mock.Anything, "pods.txt", "api_user").
			Return(nil, &service.ValidationError{Message: "Invalid file type. Please upload a CSV."}).Once()

		req := httptest.NewRequest(http.MethodPost, "/transactions/bulk_upload", body)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Invalid file type. Please upload a CSV.", decodeError(t, resp.Body).Error.Message)
	})

	t.Run("missing file", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/transactions/bulk_upload", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "FILE_REQUIRED", decodeError(t, resp.Body).Error.Code)
	})
}

func TestTransactionLog(t *testing.T) {
	mockSvc := new(serviceMocks.MockTransactionService)
	app := newApp()
	app.Get("/transactions/log", TransactionLog(mockSvc, nop))

	mockSvc.On("Ledger", mock.Anything).Return(nil, nil).Once()

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/transactions/log", nil))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	raw, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, "[]", string(raw))
}

func TestSummary(t *testing.T) {
	mockSvc := new(serviceMocks.MockReportService)
	app := newApp()
	app.Get("/summary", Summary(mockSvc, nop))

	m := &report.Matrix{
		Rows:    []string{"12oz cheerios", report.GrandTotal},
		Columns: []string{"Target", report.GrandTotal},
		Cells: map[string]map[string]int64{
			"12oz cheerios":   {"Target": 7, report.GrandTotal: 7},
			report.GrandTotal: {"Target": 7, report.GrandTotal: 7},
		},
	}
	tests := []struct {
		name          string
		target        string
		includeFuture bool
	}{
		{"defaults to future view", "/summary", true},
		{"future view", "/summary?include_future=true", true},
		{"current view", "/summary?include_future=false", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc.On("Summary", mock.Anything, tt.includeFuture).Return(m, nil).Once()

			resp, _ := app.Test(httptest.NewRequest(http.MethodGet, tt.target, nil))

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			var got report.Matrix
			json.NewDecoder(resp.Body).Decode(&got)
			assert.Equal(t, int64(7), got.Value("12oz cheerios", "Target"))
		})
	}
	mockSvc.AssertExpectations(t)
}

func TestQueryPlan(t *testing.T) {
	mockSvc := new(serviceMocks.MockReportService)
	app := newApp()
	app.Post("/query", QueryPlan(mockSvc, nop))

	res := report.Result{GroupBy: []string{report.ColRetailer}, Rows: []report.Row{{Keys: []string{"Target"}, Value: 7}}}
	mockSvc.On("Query", mock.Anything, mock.MatchedBy(func(p report.QueryPlan) bool {
		return len(p.GroupBy) == 1 && p.GroupBy[0] == report.ColRetailer && p.Filters["status"] == "live"
	}), true).Return(res, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/query",
		strings.NewReader(`{"filters":{"status":"live"},"group_by":["retailer"],"include_future_dates":false,"include_future":true}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		IncludeFuture bool `json:"include_future"`
		Result        struct {
			Columns []string         `json:"columns"`
			Rows    []map[string]any `json:"rows"`
		} `json:"result"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	assert.True(t, body.IncludeFuture)
	assert.Equal(t, []string{"retailer", "value"}, body.Result.Columns)
	require.Len(t, body.Result.Rows, 1)
	assert.Equal(t, "Target", body.Result.Rows[0]["retailer"])
	mockSvc.AssertExpectations(t)
}

func TestQueryQuestion(t *testing.T) {
	mockSvc := new(serviceMocks.MockChatService)
	app := newApp()
	app.Get("/query", QueryQuestion(mockSvc, nop))

	pq := &service.PlannedQuery{Question: "pods by retailer", Plan: report.QueryPlan{GroupBy: []string{"retailer"}}}
	mockSvc.On("Query", mock.Anything, "pods by retailer").Return(pq, nil).Once()

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/query?question=pods+by+retailer", nil))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	json.NewDecoder(resp.Body).Decode(&body)
	assert.Equal(t, "pods by retailer", body["query"])
	mockSvc.AssertExpectations(t)
}

func TestChat(t *testing.T) {
	mockSvc := new(serviceMocks.MockChatService)
	app := newApp()
	app.Post("/chat", Chat(mockSvc, nop))
	app.Get("/chat_query", ChatQuery(mockSvc, nop))

	post := func(question string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"question":"`+question+`"}`))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)
		return resp
	}

	t.Run("answer", func(t *testing.T) {
		mockSvc.On("Ask", mock.Anything, "how many?").Return("17 PODs.", nil).Once()

		resp := post("how many?")

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "17 PODs.", body["answer"])
	})

	t.Run("query parameter", func(t *testing.T) {
		mockSvc.On("Ask", mock.Anything, "total").Return("17.", nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/chat_query?question=total", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("unavailable", func(t *testing.T) {
		mockSvc.On("Ask", mock.Anything, "q1").Return("", service.ErrChatUnavailable).Once()

		resp := post("q1")

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "CHAT_UNAVAILABLE", decodeError(t, resp.Body).Error.Code)
	})

	t.Run("upstream failure", func(t *testing.T) {
		mockSvc.On("Ask", mock.Anything, "q2").Return("", errors.Join(service.ErrUpstream, errors.New("status 500"))).Once()

		resp := post("q2")

		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
		assert.Equal(t, "UPSTREAM_ERROR", decodeError(t, resp.Body).Error.Code)
	})

	mockSvc.AssertExpectations(t)
}

func TestExportExcel(t *testing.T) {
	mockSvc := new(serviceMocks.MockReportService)
	app := newApp()
	app.Get("/export/excel", ExportExcel(mockSvc, nop))

	t.Run("archived", func(t *testing.T) {
		exp := &service.Export{Filename: "pod_report_20250615_100000.xlsx", Data: []byte("PK"), URL: "http://minio/r?sig=1"}
		mockSvc.On("Export", mock.Anything).Return(exp, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/export/excel", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, report.ExcelContentType, resp.Header.Get("Content-Type"))
		assert.Contains(t, resp.Header.Get("Content-Disposition"), "pod_report_20250615_100000.xlsx")
		assert.Equal(t, "http://minio/r?sig=1", resp.Header.Get("X-Report-URL"))
		raw, _ := io.ReadAll(resp.Body)
		assert.Equal(t, []byte("PK"), raw)
	})

	t.Run("not archived", func(t *testing.T) {
		mockSvc.On("Export", mock.Anything).Return(&service.Export{Filename: "a.xlsx", Data: []byte("PK")}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/export/excel", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Empty(t, resp.Header.Get("X-Report-URL"))
	})
}

func TestGetReport(t *testing.T) {
	mockSvc := new(serviceMocks.MockReportService)
	app := newApp()
	app.Get("/reports/:name", GetReport(mockSvc, nop))

	t.Run("found", func(t *testing.T) {
		mockSvc.On("Report", mock.Anything, "pod_report_1.xlsx").
			Return(io.NopCloser(strings.NewReader("xlsx")), storage.ObjectInfo{Size: 4}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/reports/pod_report_1.xlsx", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, report.ExcelContentType, resp.Header.Get("Content-Type"))
		raw, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "xlsx", string(raw))
	})

	t.Run("not found", func(t *testing.T) {
		mockSvc.On("Report", mock.Anything, "gone.xlsx").Return(nil, storage.ObjectInfo{}, service.ErrNotFound).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/reports/gone.xlsx", nil))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp.Body).Error.Code)
	})
}

func TestRegisterRoutes_APIKey(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	txSvc := new(serviceMocks.MockTransactionService)
	app := newApp()
	RegisterRoutes(app, Deps{
		DB:           db,
		Transactions: txSvc,
		Reports:      new(serviceMocks.MockReportService),
		Chat:         new(serviceMocks.MockChatService),
		APIKey:       "s3cret",
		Gatherer:     prometheus.NewRegistry(),
		Logger:       nop,
	})

	t.Run("public routes", func(t *testing.T) {
		dbMock.ExpectPing()
		for _, path := range []string{"/", "/health", "/healthz", "/metrics"} {
			resp, _ := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		}
	})

	t.Run("missing key", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/master_data", nil))

		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, middleware.MsgNotAuthenticated, decodeError(t, resp.Body).Error.Message)
	})

	t.Run("wrong key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/master_data", nil)
		req.Header.Set(middleware.APIKeyHeader, "nope")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, middleware.MsgInvalidCredentials, decodeError(t, resp.Body).Error.Message)
	})

	t.Run("valid key", func(t *testing.T) {
		txSvc.On("MasterData", mock.Anything).Return(&model.MasterData{}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/master_data", nil)
		req.Header.Set(middleware.APIKeyHeader, "s3cret")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		txSvc.AssertExpectations(t)
	})

	t.Run("unknown route", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/no-such-route", nil))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
