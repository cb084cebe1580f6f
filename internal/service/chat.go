package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"podtracker/internal/llm"
	"podtracker/internal/model"
	"podtracker/internal/report"
	"podtracker/internal/repository"
)

// EmptyLedgerAnswer is returned by Ask when there is nothing to analyse.
const EmptyLedgerAnswer = "The database is empty. I have no data to answer your question."

const (
	maxUpcomingChanges = 5
	maxContextRows     = 50
)

// Completer is the chat completion backend.
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error)
}

// PlannedQuery is a natural-language question translated to a plan and executed.
type PlannedQuery struct {
	Question      string           `json:"query"`
	Plan          report.QueryPlan `json:"plan"`
	IncludeFuture bool             `json:"include_future"`
	Result        report.Result    `json:"result"`
}

// ChatService answers natural-language questions about the ledger.
type ChatService interface {
	// Plan translates question into a QueryPlan.
	Plan(ctx context.Context, question string) (*report.QueryPlan, error)

	// Query plans question and executes the plan.
	Query(ctx context.Context, question string) (*PlannedQuery, error)

	// Ask answers question conversationally from a summary of the ledger.
	Ask(ctx context.Context, question string) (string, error)
}

type chatService struct {
	llm    Completer
	ledger repository.TransactionRepository
	opts   Options
	log    zerolog.Logger
}

// NewChatService constructs a new ChatService. A nil completer makes every
// operation return ErrChatUnavailable.
func NewChatService(completer Completer, ledger repository.TransactionRepository, opts Options) ChatService {
	opts = opts.withDefaults()
	return &chatService{
		llm:    completer,
		ledger: ledger,
		opts:   opts,
		log:    opts.Logger.With().Str("component", "chat").Logger(),
	}
}

func (s *chatService) Plan(ctx context.Context, question string) (*report.QueryPlan, error) {
	if err := s.check(question); err != nil {
		return nil, err
	}
	return s.plan(ctx, question)
}

func (s *chatService) Query(ctx context.Context, question string) (*PlannedQuery, error) {
	if err := s.check(question); err != nil {
		return nil, err
	}
	plan, err := s.plan(ctx, question)
	if err != nil {
		return nil, err
	}
	entries, err := s.ledger.ListLedger(ctx)
	if err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}
	includeFuture := plan.IncludeFuture(false)
	return &PlannedQuery{
		Question:      question,
		Plan:          *plan,
		IncludeFuture: includeFuture,
		Result:        report.Execute(entries, *plan, includeFuture, s.opts.today()),
	}, nil
}

func (s *chatService) Ask(ctx context.Context, question string) (string, error) {
	if err := s.check(question); err != nil {
		return "", err
	}
	entries, err := s.ledger.ListLedger(ctx)
	if err != nil {
		return "", fmt.Errorf("list ledger: %w", err)
	}
	if len(entries) == 0 {
		return EmptyLedgerAnswer, nil
	}

	today := s.opts.today()
	var planned *report.Result
	if plan, err := s.plan(ctx, question); err != nil {
		s.log.Warn().Err(err).Str("event", "chat_plan_failed").Send()
	} else {
		res := report.Execute(entries, *plan, plan.IncludeFuture(false), today)
		planned = &res
	}

	system := "You are a helpful CPG analyst. Based on the data below, answer the user's question concisely. \n\nDATA CONTEXT:\n" +
		BuildContext(entries, planned, today)
	answer, err := s.llm.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: question},
	}, llm.Options{Temperature: 0.1})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return answer, nil
}

func (s *chatService) check(question string) error {
	if s.llm == nil {
		return ErrChatUnavailable
	}
	if strings.TrimSpace(question) == "" {
		return invalid("Question is required.")
	}
	return nil
}

func (s *chatService) plan(ctx context.Context, question string) (*report.QueryPlan, error) {
	columns, _ := json.Marshal(map[string][]string{"columns": report.Columns})
	system := fmt.Sprintf("You are a data query planner. Translate a question into JSON with 'filters', 'group_by', and 'include_future_dates' keys. "+
		"Columns from: %s. Set `include_future_dates` to `true` for future reporting, `false` for current state.", columns)

	out, err := s.llm.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: question},
	}, llm.Options{Temperature: 0, JSON: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	var plan report.QueryPlan
	if err := json.Unmarshal([]byte(out), &plan); err != nil {
		return nil, fmt.Errorf("%w: parse query plan: %v", ErrUpstream, err)
	}
	return &plan, nil
}

// BuildContext summarises the ledger for the analyst prompt: totals as of today,
// the net effect of future-dated rows, the next few changes and, when given,
// the rows of the planned query.
func BuildContext(entries []model.LedgerEntry, planned *report.Result, today model.Date) string {
	var current, futureNet int64
	var upcoming []model.LedgerEntry
	for _, e := range entries {
		if e.EffectiveDate.After(today) {
			futureNet += e.QuantityChanged
			upcoming = append(upcoming, e)
		} else {
			current += e.QuantityChanged
		}
	}
	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].EffectiveDate.Before(upcoming[j].EffectiveDate)
	})

	var b strings.Builder
	fmt.Fprintf(&b, "Current total PODs as of today (%s): %s\n", today, humanize.Comma(current))
	fmt.Fprintf(&b, "Net change from future-dated transactions: %s\n", signed(futureNet))
	fmt.Fprintf(&b, "Projected future total PODs: %s\n", humanize.Comma(current+futureNet))
	b.WriteString("Key upcoming changes:\n")
	if len(upcoming) == 0 {
		b.WriteString("- None in the near future.\n")
	}
	for i, e := range upcoming {
		if i == maxUpcomingChanges {
			break
		}
		change, qty := "gain", e.QuantityChanged
		if qty < 0 {
			change, qty = "loss", -qty
		}
		fmt.Fprintf(&b, "- A %s of %s for %s at %s on %s\n", change, humanize.Comma(qty), e.ProductName, e.Retailer, e.EffectiveDate)
	}

	if planned != nil && len(planned.Rows) > 0 {
		b.WriteString("Query results for the question:\n")
		for i, row := range planned.Rows {
			if i == maxContextRows {
				fmt.Fprintf(&b, "- ... %d more rows\n", len(planned.Rows)-maxContextRows)
				break
			}
			parts := make([]string, 0, len(row.Keys)+1)
			for j, col := range planned.GroupBy {
				parts = append(parts, col+"="+row.Keys[j])
			}
			parts = append(parts, report.ValueColumn+"="+humanize.Comma(row.Value))
			b.WriteString("- " + strings.Join(parts, ", ") + "\n")
		}
	}
	return b.String()
}

func signed(n int64) string {
	if n >= 0 {
		return "+" + humanize.Comma(n)
	}
	return humanize.Comma(n)
}
