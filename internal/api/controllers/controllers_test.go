package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"hairsim/internal/config"
	"hairsim/internal/models/domain_models"
	"hairsim/internal/repositories"
	"hairsim/internal/services"
	mem "hairsim/pkg/memcache"
	"hairsim/pkg/metrics"
	"hairsim/pkg/middleware"
	"hairsim/pkg/objectstore"
	"hairsim/pkg/utils"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type stubProvider struct {
	name  string
	resp  *utils.GenerateResponse
	err   error
	calls int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Generate(context.Context, utils.GenerateRequest) (*utils.GenerateResponse, error) {
	s.calls++
	return s.resp, s.err
}

// flakyClients fails the next failSaves report writes.
type flakyClients struct {
	repositories.ClientRepository
	failSaves int
}

func (f *flakyClients) SaveReport(ctx context.Context, id string, update repositories.ReportUpdate) error {
	if f.failSaves > 0 {
		f.failSaves--
		return errors.New("document store unavailable")
	}
	return f.ClientRepository.SaveReport(ctx, id, update)
}

type testEnv struct {
	router  *gin.Engine
	clients *flakyClients
	report  *stubProvider
	image   *stubProvider
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()
	m := metrics.New(prometheus.NewRegistry())

	objects := objectstore.NewMemory("/objects")
	clients := &flakyClients{ClientRepository: repositories.NewClientRepository(repositories.NewMemoryDocumentRepository())}
	prompts := services.NewPromptBuilder(domain_models.DefaultCatalog())
	alerts := services.NewAlertService(config.SMTPConfig{}, "", log)
	ledger := services.NewLedgerService(repositories.NewMemoryLedgerRepository(), alerts, m, log)
	gate := services.NewGateService(ledger, domain_models.DefaultPrices())
	report := &stubProvider{name: "stub", resp: &utils.GenerateResponse{Text: `{"summary":"Good candidate."}`}}
	image := &stubProvider{name: "stub-image", resp: &utils.GenerateResponse{Image: pngBytes, ImageMimeType: "image/png"}}

	generation := services.NewGenerationService(services.GenerationDeps{
		Clients:         clients,
		Ledger:          ledger,
		Gate:            gate,
		Prompts:         prompts,
		Parser:          utils.NewReportParser(log),
		Providers:       utils.ProviderSet{Report: report, Image: image},
		Objects:         objects,
		Leases:          mem.NewLeases(),
		Prices:          domain_models.DefaultPrices(),
		Alerts:          alerts,
		Metrics:         m,
		Log:             log,
		ProviderTimeout: time.Second,
	})

	clientCtl := NewClientController(services.NewClientService(clients, objects, prompts, log), objects)
	generationCtl := NewGenerationController(generation, objects, log)
	balanceCtl := NewBalanceController(ledger, gate)
	catalogCtl := NewCatalogController(prompts)

	r := gin.New()
	r.Use(middleware.TraceIDMiddleware())
	r.Use(func(c *gin.Context) {
		c.Set("account_id", c.GetHeader("X-Account"))
		c.Set("Role", c.GetHeader("X-Role"))
	})
	r.GET("/catalog", catalogCtl.GetCatalog)
	r.POST("/clients", clientCtl.CreateClient)
	r.GET("/clients", clientCtl.ListClients)
	r.GET("/clients/:id", clientCtl.GetClient)
	r.POST("/clients/:id/front-image", clientCtl.UploadFrontImage)
	r.PUT("/clients/:id/selection", clientCtl.SaveSelection)
	r.POST("/clients/:id/report", generationCtl.GenerateReport)
	r.POST("/clients/:id/image", generationCtl.GenerateImage)
	r.POST("/clients/:id/report-and-image", generationCtl.GenerateReportAndImage)
	r.GET("/balance", balanceCtl.GetBalance)
	r.GET("/balance/gate", balanceCtl.CheckGate)
	r.GET("/balance/transactions", balanceCtl.ListTransactions)
	r.POST("/admin/balance/credit", middleware.RoleMiddleware("admin"), balanceCtl.Credit)

	return &testEnv{router: r, clients: clients, report: report, image: image}
}

type envelope struct {
	Status  string          `json:"status"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	TraceID string          `json:"trace_id"`
	Data    json.RawMessage `json:"data"`
}

func (e *testEnv) do(t *testing.T, method, path, role string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Account", "acc")
	if role != "" {
		req.Header.Set("X-Role", role)
	}
	return e.serve(t, req)
}

func (e *testEnv) credit(t *testing.T, amount string) {
	t.Helper()
	rec, _ := e.do(t, http.MethodPost, "/admin/balance/credit", "admin", map[string]any{"account_id": "acc", "amount": amount})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func (e *testEnv) balance(t *testing.T) string {
	t.Helper()
	rec, body := e.do(t, http.MethodGet, "/balance", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var bal struct {
		Balance string `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &bal))
	return bal.Balance
}

func (e *testEnv) upload(t *testing.T, clientID string, data []byte) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("image", "front.png")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/clients/"+clientID+"/front-image", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("X-Account", "acc")
	return e.serve(t, req)
}

func (e *testEnv) serve(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

// createReadyClient returns a client with consent, a photo and a selection.
func (e *testEnv) createReadyClient(t *testing.T) string {
	t.Helper()
	rec, env := e.do(t, http.MethodPost, "/clients", "", map[string]any{"name": "Hoa", "age": 38, "image_consent": true})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var client struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &client))
	require.Equal(t, "draft", client.Status)

	rec, _ = e.upload(t, client.ID, pngBytes)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = e.do(t, http.MethodPut, "/clients/"+client.ID+"/selection", "", map[string]string{"hairline_id": "arch", "hairstyle_id": "textured-quiff"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return client.ID
}

func TestCatalog(t *testing.T) {
	env := newTestEnv(t)
	rec, body := env.do(t, http.MethodGet, "/catalog", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, body.TraceID)

	var catalog domain_models.Catalog
	require.NoError(t, json.Unmarshal(body.Data, &catalog))
	require.Len(t, catalog.Hairlines, 4)
	require.Len(t, catalog.Hairstyles, 3)
}

func TestClientEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec, _ := env.do(t, http.MethodPost, "/clients", "", map[string]any{"age": 30})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	id := env.createReadyClient(t)

	rec, body := env.do(t, http.MethodGet, "/clients/"+id, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var client struct {
		FrontImageURL string                   `json:"front_image_url"`
		Selection     *domain_models.Selection `json:"selection"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &client))
	require.Equal(t, "/objects/clients/"+id+"/front-image.png", client.FrontImageURL)
	require.Equal(t, "arch", client.Selection.Hairline.ID)

	rec, body = env.do(t, http.MethodGet, "/clients", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &list))
	require.Equal(t, 1, list.Total)

	rec, _ = env.do(t, http.MethodGet, "/clients/nope", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = env.do(t, http.MethodPut, "/clients/"+id+"/selection", "", map[string]string{"hairline_id": "arch", "hairstyle_id": "mullet"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadRejections(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodPost, "/clients", "", map[string]any{"name": "Tuan"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var client struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &client))

	rec, _ = env.upload(t, client.ID, pngBytes)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	id := env.createReadyClient(t)
	rec, _ = env.upload(t, id, []byte("just some text"))
	require.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestGenerateReport_PaymentRequiredThenSuccess(t *testing.T) {
	env := newTestEnv(t)
	id := env.createReadyClient(t)

	rec, body := env.do(t, http.MethodPost, "/clients/"+id+"/report", "", nil)
	require.Equal(t, http.StatusPaymentRequired, rec.Code, rec.Body.String())
	var detail utils.ErrorDetail
	require.NoError(t, json.Unmarshal(body.Data, &detail))
	require.Equal(t, "gating", detail.Stage)
	require.True(t, detail.Retryable)

	rec, _ = env.do(t, http.MethodPost, "/admin/balance/credit", "", map[string]any{"account_id": "acc", "amount": "1.00"})
	require.Equal(t, http.StatusForbidden, rec.Code)
	rec, _ = env.do(t, http.MethodPost, "/admin/balance/credit", "admin", map[string]any{"account_id": "acc", "amount": "1.00"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, body = env.do(t, http.MethodPost, "/clients/"+id+"/report", "", map[string]any{"adjustment": "standard_4_6cm"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result struct {
		Status  string `json:"status"`
		Report  map[string]any
		Charges []struct {
			ServiceType  string `json:"service_type"`
			Charged      bool   `json:"charged"`
			BalanceAfter string `json:"balance_after"`
		} `json:"charges"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &result))
	require.Equal(t, "completed", result.Status)
	require.Equal(t, true, result.Report["isStructured"])
	require.Contains(t, result.Report["summary"], "4-6cm")
	require.Len(t, result.Charges, 1)
	require.True(t, result.Charges[0].Charged)
	require.Equal(t, "0.84", result.Charges[0].BalanceAfter)

	rec, body = env.do(t, http.MethodGet, "/balance", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var bal struct {
		Balance string `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &bal))
	require.Equal(t, "0.84", bal.Balance)

	rec, body = env.do(t, http.MethodGet, "/balance/transactions?limit=10", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var txns struct {
		Transactions []map[string]any `json:"transactions"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &txns))
	require.Len(t, txns.Transactions, 2)
}

func TestGenerateReport_InvalidBody(t *testing.T) {
	env := newTestEnv(t)
	id := env.createReadyClient(t)

	rec, _ := env.do(t, http.MethodPost, "/clients/"+id+"/report", "", map[string]any{"adjustment": "3cm"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateReport_ProviderFailure(t *testing.T) {
	env := newTestEnv(t)
	id := env.createReadyClient(t)
	rec, _ := env.do(t, http.MethodPost, "/admin/balance/credit", "admin", map[string]any{"account_id": "acc", "amount": "1.00"})
	require.Equal(t, http.StatusOK, rec.Code)

	env.report.resp, env.report.err = nil, errors.New("safety filter triggered")
	rec, body := env.do(t, http.MethodPost, "/clients/"+id+"/report", "", nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Contains(t, body.Message, "safety filter triggered")
}

func TestGenerateReport_PersistRetriedWithoutRegenerating(t *testing.T) {
	env := newTestEnv(t)
	id := env.createReadyClient(t)
	rec, _ := env.do(t, http.MethodPost, "/admin/balance/credit", "admin", map[string]any{"account_id": "acc", "amount": "1.00"})
	require.Equal(t, http.StatusOK, rec.Code)

	env.clients.failSaves = 1
	rec, _ = env.do(t, http.MethodPost, "/clients/"+id+"/report", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	env.clients.failSaves = services.DefaultPersistAttempts
	rec, body := env.do(t, http.MethodPost, "/clients/"+id+"/report", "", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var detail utils.ErrorDetail
	require.NoError(t, json.Unmarshal(body.Data, &detail))
	require.True(t, detail.RetryPending)
	require.Equal(t, "persisting", detail.Stage)

	rec, body = env.do(t, http.MethodGet, "/balance", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var bal struct {
		Balance string `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &bal))
	require.Equal(t, "0.84", bal.Balance)
}

func TestGenerateImage(t *testing.T) {
	env := newTestEnv(t)
	id := env.createReadyClient(t)
	rec, _ := env.do(t, http.MethodPost, "/admin/balance/credit", "admin", map[string]any{"account_id": "acc", "amount": "0.39"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := env.do(t, http.MethodPost, "/clients/"+id+"/image", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result struct {
		GeneratedImageURL string `json:"generated_image_url"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &result))
	require.Contains(t, result.GeneratedImageURL, "/objects/generated-looks/"+id+"/")
}

type generationBody struct {
	Status            string         `json:"status"`
	Report            map[string]any `json:"report"`
	GeneratedImageURL string         `json:"generated_image_url"`
	Charges           []struct {
		ServiceType string `json:"service_type"`
		Charged     bool   `json:"charged"`
	} `json:"charges"`
}

func TestGenerateReportAndImage(t *testing.T) {
	env := newTestEnv(t)
	id := env.createReadyClient(t)
	env.credit(t, "1.00")

	rec, body := env.do(t, http.MethodPost, "/clients/"+id+"/report-and-image", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "Report and image generated successfully", body.Message)

	var result generationBody
	require.NoError(t, json.Unmarshal(body.Data, &result))
	require.Equal(t, "completed", result.Status)
	require.NotEmpty(t, result.Report)
	require.Contains(t, result.GeneratedImageURL, "/objects/generated-looks/"+id+"/")
	require.Len(t, result.Charges, 2)
	require.Equal(t, "report_generation", result.Charges[0].ServiceType)
	require.Equal(t, "image_generation", result.Charges[1].ServiceType)
	require.Equal(t, "0.45", env.balance(t))
}

func TestGenerateReportAndImage_ImageFailureReturnsStoredReport(t *testing.T) {
	env := newTestEnv(t)
	id := env.createReadyClient(t)
	env.credit(t, "1.00")

	env.image.resp, env.image.err = nil, errors.New("quota exhausted")
	rec, body := env.do(t, http.MethodPost, "/clients/"+id+"/report-and-image", "", nil)
	require.Equal(t, http.StatusBadGateway, rec.Code, rec.Body.String())
	require.Contains(t, body.Message, "quota exhausted")

	var detail struct {
		Stage     string          `json:"stage"`
		Retryable bool            `json:"retryable"`
		Partial   *generationBody `json:"partial"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &detail))
	require.Equal(t, "generating", detail.Stage)
	require.True(t, detail.Retryable)
	require.NotNil(t, detail.Partial)
	require.Equal(t, "completed", detail.Partial.Status)
	require.NotEmpty(t, detail.Partial.Report)
	require.Empty(t, detail.Partial.GeneratedImageURL)
	require.Len(t, detail.Partial.Charges, 1)
	require.True(t, detail.Partial.Charges[0].Charged)

	// only the stored report is paid for
	require.Equal(t, "0.84", env.balance(t))
}

func TestGenerateReportAndImage_ReportSaveRetried(t *testing.T) {
	env := newTestEnv(t)
	id := env.createReadyClient(t)
	env.credit(t, "2.00")

	env.clients.failSaves = 1
	rec, body := env.do(t, http.MethodPost, "/clients/"+id+"/report-and-image", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result generationBody
	require.NoError(t, json.Unmarshal(body.Data, &result))
	require.NotEmpty(t, result.Report)
	require.NotEmpty(t, result.GeneratedImageURL)
	require.Len(t, result.Charges, 2)
	require.Equal(t, 1, env.report.calls)
	require.Equal(t, 1, env.image.calls)
	require.Equal(t, "1.45", env.balance(t))

	env.clients.failSaves = services.DefaultPersistAttempts
	rec, body = env.do(t, http.MethodPost, "/clients/"+id+"/report-and-image", "", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code, rec.Body.String())
	var detail utils.ErrorDetail
	require.NoError(t, json.Unmarshal(body.Data, &detail))
	require.Equal(t, "persisting", detail.Stage)
	require.True(t, detail.RetryPending)
	require.Nil(t, detail.Partial)

	// the image is not generated on top of an unsaved report
	require.Equal(t, 2, env.report.calls)
	require.Equal(t, 1, env.image.calls)
	require.Equal(t, "1.45", env.balance(t))
}

func TestBalanceCredit_RejectsSubCentAmount(t *testing.T) {
	env := newTestEnv(t)

	rec, _ := env.do(t, http.MethodPost, "/admin/balance/credit", "admin", map[string]any{"account_id": "acc", "amount": "0.001"})
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	require.Equal(t, "0", env.balance(t))
}

func TestBalanceGate(t *testing.T) {
	env := newTestEnv(t)

	rec, _ := env.do(t, http.MethodGet, "/balance/gate?service=teleport", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body := env.do(t, http.MethodGet, "/balance/gate?service=report_generation", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var decision services.GateDecision
	require.NoError(t, json.Unmarshal(body.Data, &decision))
	require.False(t, decision.Allowed)
	require.Equal(t, "0.16", decision.Shortfall.String())

	rec, _ = env.do(t, http.MethodGet, "/balance/transactions?limit=abc", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
