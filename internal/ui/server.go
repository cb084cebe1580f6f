// Package ui is the server-rendered web front end. It has no database access
// and performs every operation through the API.
package ui

import (
	"context"
	"errors"
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/template/html/v2"
	"github.com/rs/zerolog"

	"podtracker/internal/client"
	"podtracker/internal/model"
	"podtracker/internal/report"
	"podtracker/internal/service"
)

// UserID is recorded on transactions submitted through the UI.
const UserID = "ui_user"

// Dashboard views.
const (
	ViewCurrent = "current"
	ViewFuture  = "future"
)

// API is the part of the POD tracker API the UI uses.
type API interface {
	MasterData(ctx context.Context) (*model.MasterData, error)
	Summary(ctx context.Context, includeFuture bool) (*report.Matrix, error)
	LogTransaction(ctx context.Context, in model.TransactionInput, userID, source string) (*model.Transaction, error)
	BulkUpload(ctx context.Context, filename string, r io.Reader, userID string) (*service.BulkResult, error)
	Ask(ctx context.Context, question string) (string, error)
	ExportExcel(ctx context.Context) (*client.Report, error)
}

// Options configure the UI server.
type Options struct {
	TemplateDir    string
	TemplateReload bool
	// LocalAPI shows a notice that the UI talks to a locally running API.
	LocalAPI bool
	Logger   zerolog.Logger
}

type server struct {
	api      API
	sessions *session.Store
	opts     Options
	log      zerolog.Logger
}

// New builds the UI application. Templates are read from opts.TemplateDir and,
// with TemplateReload, re-read on every render.
func New(api API, opts Options) *fiber.App {
	engine := html.New(opts.TemplateDir, ".html")
	engine.Reload(opts.TemplateReload)
	engine.AddFunc("comma", humanize.Comma)
	engine.AddFunc("cell", cell)

	s := &server{
		api:      api,
		sessions: session.New(session.Config{KeyLookup: "cookie:pod_session"}),
		opts:     opts,
		log:      opts.Logger.With().Str("component", "ui").Logger(),
	}

	app := fiber.New(fiber.Config{
		AppName:               "pod-ui",
		Views:                 engine,
		ViewsLayout:           "layouts/main",
		DisableStartupMessage: true,
		BodyLimit:             32 * 1024 * 1024,
	})
	app.Get("/", s.dashboard)
	app.Post("/transactions", s.logTransaction)
	app.Post("/bulk", s.bulkUpload)
	app.Post("/chat", s.chat)
	app.Post("/chat/clear", s.clearChat)
	app.Get("/export", s.export)
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

// cell formats one matrix cell with thousands separators, or "-" when absent.
func cell(m *report.Matrix, row, col string) string {
	if m == nil {
		return "-"
	}
	v, ok := m.Cells[row][col]
	if !ok {
		return "-"
	}
	return humanize.Comma(v)
}

type dashboardData struct {
	View      string
	Future    bool
	Matrix    *report.Matrix
	SKUs      []string
	Retailers []string
	Flashes   []Flash
	Messages  []ChatMessage
	LocalAPI  bool
}

func (s *server) dashboard(c *fiber.Ctx) error {
	sess, err := s.sessions.Get(c)
	if err != nil {
		return err
	}
	st := loadState(sess)

	view := viewOf(c.Query("view"))
	data := dashboardData{
		View:     view,
		Future:   view == ViewFuture,
		Messages: st.Messages,
		LocalAPI: s.opts.LocalAPI,
	}

	ctx := c.UserContext()
	if md, err := s.api.MasterData(ctx); err != nil {
		st.flash(LevelError, "Failed to fetch master data from API: "+apiMessage(err))
	} else {
		data.SKUs = sorted(md.SKUs)
		data.Retailers = sorted(md.Retailers)
	}
	if m, err := s.api.Summary(ctx, data.Future); err != nil {
		st.flash(LevelError, "Failed to fetch summary data: "+apiMessage(err))
	} else if !m.Empty() {
		data.Matrix = m
	}

	data.Flashes = st.takeFlashes()
	if err := st.save(sess); err != nil {
		return err
	}
	return c.Render("index", data)
}

func (s *server) logTransaction(c *fiber.Ctx) error {
	sess, st, err := s.state(c)
	if err != nil {
		return err
	}

	product := strings.TrimSpace(c.FormValue("product_name"))
	retailer := strings.TrimSpace(c.FormValue("retailer_name"))
	qty, qerr := strconv.ParseInt(c.FormValue("quantity"), 10, 64)
	switch {
	case product == "" || retailer == "":
		st.flash(LevelWarning, "Please fill out all fields.")
	case qerr != nil || qty < 1:
		st.flash(LevelWarning, "Quantity must be a whole number of at least 1.")
	default:
		in := model.TransactionInput{
			ProductName:   product,
			RetailerName:  retailer,
			Quantity:      qty,
			Status:        strings.ToLower(c.FormValue("action", model.IntentPlanned)),
			EffectiveDate: c.FormValue("effective_date"),
		}
		if _, err := s.api.LogTransaction(c.UserContext(), in, UserID, model.SourceUIForm); err != nil {
			s.log.Warn().Err(err).Str("event", "transaction_rejected").Send()
			st.flash(LevelError, "API Error: "+apiMessage(err))
		} else {
			st.flash(LevelSuccess, "Transaction logged successfully via API!")
		}
	}
	return s.back(c, sess, st)
}

func (s *server) bulkUpload(c *fiber.Ctx) error {
	sess, st, err := s.state(c)
	if err != nil {
		return err
	}

	fh, err := c.FormFile("file")
	if err != nil {
		st.flash(LevelWarning, "Choose a CSV file to upload.")
		return s.back(c, sess, st)
	}
	f, err := fh.Open()
	if err != nil {
		st.flash(LevelError, "Could not read the uploaded file.")
		return s.back(c, sess, st)
	}
	defer f.Close()

	res, err := s.api.BulkUpload(c.UserContext(), fh.Filename, f, UserID)
	if err != nil {
		st.flash(LevelError, "API Error: "+apiMessage(err))
		return s.back(c, sess, st)
	}
	st.flash(LevelSuccess, "Bulk add complete! Logged "+strconv.Itoa(res.SuccessfulLogs)+" transactions.")
	if len(res.Errors) > 0 {
		st.Flashes = append(st.Flashes, Flash{
			Level:   LevelWarning,
			Text:    "Skipped " + strconv.Itoa(len(res.Errors)) + " rows:",
			Details: res.Errors,
		})
	}
	return s.back(c, sess, st)
}

func (s *server) chat(c *fiber.Ctx) error {
	sess, st, err := s.state(c)
	if err != nil {
		return err
	}

	question := strings.TrimSpace(c.FormValue("question"))
	if question == "" {
		return s.back(c, sess, st)
	}
	st.Messages = append(st.Messages, ChatMessage{Role: RoleUser, Content: question})

	answer, err := s.api.Ask(c.UserContext(), question)
	if err != nil {
		s.log.Warn().Err(err).Str("event", "chat_failed").Send()
		st.flash(LevelError, "Error getting response from chat API: "+apiMessage(err))
	} else {
		if answer == "" {
			answer = "Sorry, I couldn't get a response."
		}
		st.Messages = append(st.Messages, ChatMessage{Role: RoleAssistant, Content: answer})
	}
	return s.back(c, sess, st)
}

func (s *server) clearChat(c *fiber.Ctx) error {
	sess, st, err := s.state(c)
	if err != nil {
		return err
	}
	st.Messages = nil
	return s.back(c, sess, st)
}

func (s *server) export(c *fiber.Ctx) error {
	rep, err := s.api.ExportExcel(c.UserContext())
	if err != nil {
		sess, st, serr := s.state(c)
		if serr != nil {
			return serr
		}
		st.flash(LevelWarning, "Could not generate report from API: "+apiMessage(err))
		return s.back(c, sess, st)
	}
	c.Attachment(rep.Filename)
	c.Set(fiber.HeaderContentType, report.ExcelContentType)
	return c.Send(rep.Data)
}

func (s *server) state(c *fiber.Ctx) (*session.Session, *state, error) {
	sess, err := s.sessions.Get(c)
	if err != nil {
		return nil, nil, err
	}
	return sess, loadState(sess), nil
}

// back saves the session and redirects to the dashboard view the form was posted from.
func (s *server) back(c *fiber.Ctx, sess *session.Session, st *state) error {
	if err := st.save(sess); err != nil {
		return err
	}
	return c.Redirect("/?view="+url.QueryEscape(viewOf(c.FormValue("view"))), fiber.StatusSeeOther)
}

func viewOf(v string) string {
	if v == ViewCurrent {
		return ViewCurrent
	}
	return ViewFuture
}

func sorted(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

func apiMessage(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	return err.Error()
}
