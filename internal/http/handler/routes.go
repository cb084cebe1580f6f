package handler

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"podtracker/docs"
	"podtracker/internal/http/middleware"
	"podtracker/internal/model"
	"podtracker/internal/report"
	"podtracker/internal/service"
)

// WelcomeMessage is served on the root path.
const WelcomeMessage = "Welcome to the CPG POD Tracker API. Access /docs for documentation."

// Deps are the collaborators the routes are built from.
type Deps struct {
	DB           *sql.DB
	Transactions service.TransactionService
	Reports      service.ReportService
	Chat         service.ChatService
	APIKey       string
	Gatherer     prometheus.Gatherer
	Logger       zerolog.Logger
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Everything except the root, health, metrics and docs routes requires the API key.
func RegisterRoutes(app *fiber.App, d Deps) {
	log := d.Logger.With().Str("component", "api").Logger()
	auth := middleware.APIKey(d.APIKey, log)

	app.Get("/", Root())
	app.Get("/health", HealthCheck(d.DB))
	app.Get("/healthz", LivenessProbe())
	if d.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}
	app.Get("/swagger/*", SwaggerUI())
	app.Get("/docs", func(c *fiber.Ctx) error {
		return c.Redirect("/swagger/index.html", fiber.StatusFound)
	})

	app.Get("/master_data", auth, MasterData(d.Transactions, log))
	app.Post("/transactions", auth, CreateTransaction(d.Transactions, log))
	app.Post("/transactions/bulk_upload", auth, BulkUpload(d.Transactions, log))
	app.Get("/transactions/log", auth, TransactionLog(d.Transactions, log))
	app.Get("/summary", auth, Summary(d.Reports, log))
	app.Post("/query", auth, QueryPlan(d.Reports, log))
	app.Get("/query", auth, QueryQuestion(d.Chat, log))
	app.Post("/chat", auth, Chat(d.Chat, log))
	app.Get("/chat_query", auth, ChatQuery(d.Chat, log))
	app.Get("/export/excel", auth, ExportExcel(d.Reports, log))
	app.Get("/reports/:name", auth, GetReport(d.Reports, log))
}

// Root godoc
// @Summary Welcome message
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]string
// @Router / [get]
func Root() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": WelcomeMessage})
	}
}

// HealthCheck godoc
// @Summary Database connectivity check
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} errorPayload
// @Router /health [get]
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is a simple liveness endpoint.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// SwaggerUI serves the generated API documentation with the request's host and scheme.
func SwaggerUI() fiber.Handler {
	return func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	}
}

// MasterData godoc
// @Summary Valid product and retailer names
// @Tags ledger
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} model.MasterData
// @Router /master_data [get]
func MasterData(svc service.TransactionService, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		md, err := svc.MasterData(c.UserContext())
		if err != nil {
			return serviceError(c, log, err)
		}
		return c.JSON(md)
	}
}

// CreateTransaction godoc
// @Summary Log a single POD gain or loss
// @Tags ledger
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param user_id query string false "user recorded on the transaction" default(api_user)
// @Param source query string false "origin recorded on the transaction" default(api_single)
// @Param transaction body model.TransactionInput true "transaction"
// @Success 200 {object} map[string]any
// @Failure 400 {object} errorPayload
// @Router /transactions [post]
func CreateTransaction(svc service.TransactionService, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in model.TransactionInput
		if err := c.BodyParser(&in); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "request body must be a JSON transaction")
		}

		trx, err := svc.Log(c.UserContext(), in, c.Query("user_id", "api_user"), c.Query("source", model.SourceAPI))
		if err != nil {
			return serviceError(c, log, err)
		}
		return c.JSON(fiber.Map{"status": "success", "data": trx})
	}
}

// BulkUpload godoc
// @Summary Log transactions from a CSV file
// @Tags ledger
// @Security ApiKeyAuth
// @Accept multipart/form-data
// @Produce json
// @Param user_id query string false "user recorded on the transactions" default(api_user)
// @Param file formData file true "CSV with product_name, retailer_name, quantity, status, effective_date"
// @Success 200 {object} service.BulkResult
// @Failure 400 {object} errorPayload
// @Router /transactions/bulk_upload [post]
func BulkUpload(svc service.TransactionService, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		res, err := svc.BulkUpload(c.UserContext(), f, fh.Filename, c.Query("user_id", "api_user"))
		if err != nil {
			return serviceError(c, log, err)
		}
		return c.JSON(res)
	}
}

// TransactionLog godoc
// @Summary Full transaction ledger
// @Tags ledger
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {array} model.LedgerEntry
// @Router /transactions/log [get]
func TransactionLog(svc service.TransactionService, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		entries, err := svc.Ledger(c.UserContext())
		if err != nil {
			return serviceError(c, log, err)
		}
		if entries == nil {
			entries = []model.LedgerEntry{}
		}
		return c.JSON(entries)
	}
}

// Summary godoc
// @Summary Product by retailer distribution matrix
// @Tags reports
// @Security ApiKeyAuth
// @Produce json
// @Param include_future query bool false "apply future-dated transactions" default(true)
// @Success 200 {object} report.Matrix
// @Router /summary [get]
func Summary(svc service.ReportService, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		m, err := svc.Summary(c.UserContext(), c.QueryBool("include_future", true))
		if err != nil {
			return serviceError(c, log, err)
		}
		return c.JSON(m)
	}
}

type queryRequest struct {
	report.QueryPlan
	IncludeFuture *bool `json:"include_future"`
}

// QueryPlan godoc
// @Summary Execute a query plan against the ledger
// @Tags reports
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param plan body queryRequest true "filters, group_by, include_future"
// @Success 200 {object} map[string]any
// @Router /query [post]
func QueryPlan(svc service.ReportService, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req queryRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "request body must be a JSON query plan")
		}
		includeFuture := req.QueryPlan.IncludeFuture(false)
		if req.IncludeFuture != nil {
			includeFuture = *req.IncludeFuture
		}

		res, err := svc.Query(c.UserContext(), req.QueryPlan, includeFuture)
		if err != nil {
			return serviceError(c, log, err)
		}
		return c.JSON(fiber.Map{"plan": req.QueryPlan, "include_future": includeFuture, "result": res})
	}
}

// QueryQuestion godoc
// @Summary Plan a natural-language question and execute it
// @Tags chat
// @Security ApiKeyAuth
// @Produce json
// @Param question query string true "question"
// @Success 200 {object} service.PlannedQuery
// @Failure 503 {object} errorPayload
// @Router /query [get]
func QueryQuestion(svc service.ChatService, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pq, err := svc.Query(c.UserContext(), c.Query("question"))
		if err != nil {
			return serviceError(c, log, err)
		}
		return c.JSON(pq)
	}
}

type chatRequest struct {
	Question string `json:"question"`
}

// Chat godoc
// @Summary Ask a question about the ledger
// @Tags chat
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param question body chatRequest true "question"
// @Success 200 {object} map[string]string
// @Failure 503 {object} errorPayload
// @Router /chat [post]
func Chat(svc service.ChatService, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req chatRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "request body must be JSON with a question")
		}
		return answer(c, svc, log, req.Question)
	}
}

// ChatQuery is Chat with the question passed as a query parameter.
func ChatQuery(svc service.ChatService, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return answer(c, svc, log, c.Query("question"))
	}
}

func answer(c *fiber.Ctx, svc service.ChatService, log zerolog.Logger, question string) error {
	a, err := svc.Ask(c.UserContext(), question)
	if err != nil {
		return serviceError(c, log, err)
	}
	return c.JSON(fiber.Map{"answer": a})
}

// ExportExcel godoc
// @Summary Download the current and future matrices as a workbook
// @Tags reports
// @Security ApiKeyAuth
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} binary
// @Header 200 {string} X-Report-URL "presigned link to the archived copy"
// @Router /export/excel [get]
func ExportExcel(svc service.ReportService, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		exp, err := svc.Export(c.UserContext())
		if err != nil {
			return serviceError(c, log, err)
		}
		if exp.URL != "" {
			c.Set("X-Report-URL", exp.URL)
		}
		c.Attachment(exp.Filename)
		c.Set(fiber.HeaderContentType, report.ExcelContentType)
		return c.Send(exp.Data)
	}
}

// GetReport godoc
// @Summary Download an archived report
// @Tags reports
// @Security ApiKeyAuth
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param name path string true "report file name"
// @Success 200 {file} binary
// @Failure 404 {object} errorPayload
// @Router /reports/{name} [get]
func GetReport(svc service.ReportService, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name := c.Params("name")
		rc, info, err := svc.Report(c.UserContext(), name)
		if err != nil {
			return serviceError(c, log, err)
		}

		ct := info.ContentType
		if ct == "" {
			ct = report.ExcelContentType
		}
		size := int(info.Size)
		if size <= 0 {
			size = -1
		}
		c.Attachment(name)
		c.Set(fiber.HeaderContentType, ct)
		return c.SendStream(rc, size)
	}
}
