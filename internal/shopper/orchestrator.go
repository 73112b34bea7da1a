package shopper

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shopchat/shopchat/internal/eval"
	"github.com/shopchat/shopchat/internal/lang"
	"github.com/shopchat/shopchat/internal/llm"
	"github.com/shopchat/shopchat/internal/products"
	"github.com/shopchat/shopchat/internal/prompts"
	"github.com/shopchat/shopchat/internal/query"
	"github.com/shopchat/shopchat/internal/relevance"
	"github.com/shopchat/shopchat/internal/telemetry"
)

// Store persists orchestration results keyed by query text.
type Store interface {
	Upsert(ctx context.Context, s *Session) error
	List(ctx context.Context) ([]Session, error)
	UpdateEvaluation(ctx context.Context, id int, score eval.Score) error
}

// Orchestrator runs the per-query pipeline: decompose, fetch and filter per
// item, synthesize a grounded answer, score it and persist the session.
type Orchestrator struct {
	source  products.Source
	filter  *relevance.Filter
	llm     llm.Completer
	eval    *eval.Evaluator
	store   Store
	limit   int
	logger  *log.Logger
	metrics *telemetry.Metrics
}

// NewOrchestrator wires the pipeline. limit caps the number of products
// fetched per item term.
func NewOrchestrator(source products.Source, filter *relevance.Filter, completer llm.Completer, evaluator *eval.Evaluator, store Store, limit int, logger *log.Logger, metrics *telemetry.Metrics) *Orchestrator {
	if logger == nil {
		logger = log.New(log.Writer(), "[SHOP] ", log.LstdFlags)
	}
	return &Orchestrator{
		source:  source,
		filter:  filter,
		llm:     completer,
		eval:    evaluator,
		store:   store,
		limit:   limit,
		logger:  logger,
		metrics: metrics,
	}
}

// Handle processes one query. Item terms run sequentially in decomposition
// order; a failed per-item fetch becomes an error placeholder instead of
// failing the request. Only the final answer generation is unguarded.
func (o *Orchestrator) Handle(ctx context.Context, q, sessionID string) (*Session, error) {
	start := time.Now()
	if o.metrics != nil {
		o.metrics.SearchRequests.Inc()
		defer func() { o.metrics.SearchDuration.Observe(time.Since(start).Seconds()) }()
	}

	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	items := query.Decompose(q)
	locale := lang.Detect(q)

	byItem := make(ByItem, 0, len(items))
	var evidence []products.Product
	var transcript strings.Builder

	for _, item := range items {
		transcript.WriteString(prompts.TranscriptHeader(item, locale))

		raw, err := o.source.Fetch(ctx, item, o.limit)
		if err != nil {
			o.logger.Printf("fetching products for %q failed: %v", item, err)
			if o.metrics != nil {
				o.metrics.FetchFailures.Inc()
				o.metrics.UpstreamErrors.WithLabelValues("serpapi").Inc()
			}
			byItem = append(byItem, ItemResult{Item: item, Entries: []Entry{{Error: err.Error()}}})
			continue
		}

		filtered, err := o.filter.Apply(ctx, q, raw)
		if err != nil {
			return nil, err
		}

		entries := make([]Entry, 0, len(filtered))
		for i := range filtered {
			p := &filtered[i]
			fmt.Fprintf(&transcript, "- %s | %s | %s\n", p.Title, p.Price, p.Source)
			entries = append(entries, Entry{Product: p})
		}
		byItem = append(byItem, ItemResult{Item: item, Entries: entries})
		evidence = append(evidence, filtered...)
	}

	aiReply, err := o.llm.Complete(ctx, []llm.Message{
		{Role: "system", Content: prompts.System(prompts.RoleShoppingAssistant, locale)},
		{Role: "user", Content: prompts.Answer(q, transcript.String(), locale)},
	})
	if err != nil {
		return nil, fmt.Errorf("generating answer: %w", err)
	}

	score, err := o.eval.Evaluate(ctx, q, evidence, aiReply)
	if err != nil {
		return nil, err
	}

	sess := &Session{
		SessionID:       sessionID,
		Query:           q,
		Products:        sanitize(evidence),
		ProductsByItem:  byItem,
		AIReply:         aiReply,
		EvaluationScore: score,
	}
	if err := o.store.Upsert(ctx, sess); err != nil {
		return nil, fmt.Errorf("persisting session: %w", err)
	}
	return sess, nil
}

// ReevaluateAll re-scores every stored session in place, retrying rate
// limited attempts. Returns the number of sessions updated.
func (o *Orchestrator) ReevaluateAll(ctx context.Context, maxRetries int, retryDelay time.Duration) (int, error) {
	sessions, err := o.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading sessions: %w", err)
	}
	updated := 0
	for i := range sessions {
		s := &sessions[i]
		score := o.eval.EvaluateWithRetry(ctx, s.Query, s.Products, s.AIReply, maxRetries, retryDelay)
		if err := o.store.UpdateEvaluation(ctx, s.ID, score); err != nil {
			return updated, fmt.Errorf("updating session %d: %w", s.ID, err)
		}
		o.logger.Printf("re-evaluated %q: total %.2f", s.Query, score.Total)
		updated++
	}
	return updated, nil
}

// sanitize builds the JSON-safe projection: image stays only when it is an
// absolute URL.
func sanitize(evidence []products.Product) []products.Product {
	out := make([]products.Product, len(evidence))
	for i, p := range evidence {
		if p.Image != nil && !strings.HasPrefix(*p.Image, "http") {
			p.Image = nil
		}
		out[i] = p
	}
	return out
}
