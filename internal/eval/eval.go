package eval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/shopchat/shopchat/internal/errs"
	"github.com/shopchat/shopchat/internal/lang"
	"github.com/shopchat/shopchat/internal/llm"
	"github.com/shopchat/shopchat/internal/products"
	"github.com/shopchat/shopchat/internal/prompts"
	"github.com/shopchat/shopchat/internal/telemetry"
)

// Score grades a generated answer against retrieved evidence. Each axis and
// the composite live in [10,100].
type Score struct {
	Faithfulness float64 `json:"faithfulness"`
	Relevance    float64 `json:"relevance"`
	Completeness float64 `json:"completeness"`
	Total        float64 `json:"total"`
}

const (
	scoreMin = 10
	scoreMax = 100
)

// Floor is the defined minimum score used when no evidence exists or the
// evaluation fails. It is a valid result, not an error.
func Floor() Score {
	return Score{Faithfulness: scoreMin, Relevance: scoreMin, Completeness: scoreMin, Total: scoreMin}
}

// Evaluator scores answers with the LLM. Upstream and parse failures degrade
// to the floor score; a configuration error is returned to the caller so
// misconfigured deployments do not hide behind floor scores.
type Evaluator struct {
	llm     llm.Completer
	logger  *log.Logger
	metrics *telemetry.Metrics
}

func New(completer llm.Completer, logger *log.Logger, metrics *telemetry.Metrics) *Evaluator {
	if logger == nil {
		logger = log.New(log.Writer(), "[EVAL] ", log.LstdFlags)
	}
	return &Evaluator{llm: completer, logger: logger, metrics: metrics}
}

// Evaluate scores answer against the evidence. An empty evidence set
// short-circuits to the floor score without an LLM call.
func (e *Evaluator) Evaluate(ctx context.Context, query string, evidence []products.Product, answer string) (Score, error) {
	if len(evidence) == 0 {
		return Floor(), nil
	}
	s, err := e.evaluate(ctx, query, evidence, answer)
	if err != nil {
		if errors.Is(err, errs.ErrConfig) {
			return Floor(), err
		}
		e.fallback(err)
		return Floor(), nil
	}
	return s, nil
}

// EvaluateWithRetry is the batch re-scoring variant: retryable upstream
// failures (rate limiting) are retried with a fixed delay up to maxRetries
// attempts, then degrade to the floor score like everything else.
func (e *Evaluator) EvaluateWithRetry(ctx context.Context, query string, evidence []products.Product, answer string, maxRetries int, retryDelay time.Duration) Score {
	if len(evidence) == 0 {
		return Floor()
	}
	for attempt := 1; attempt <= maxRetries; attempt++ {
		s, err := e.evaluate(ctx, query, evidence, answer)
		if err == nil {
			return s
		}
		var ue *errs.UpstreamError
		if errors.As(err, &ue) && ue.Retryable {
			wait := retryDelay
			if ue.RetryAfter > wait {
				wait = ue.RetryAfter
			}
			e.logger.Printf("rate limited, waiting %s before retry (%d/%d)", wait, attempt, maxRetries)
			select {
			case <-ctx.Done():
				e.fallback(ctx.Err())
				return Floor()
			case <-time.After(wait):
			}
			continue
		}
		e.fallback(err)
		return Floor()
	}
	e.logger.Printf("max retries reached, returning floor score")
	e.fallback(nil)
	return Floor()
}

func (e *Evaluator) evaluate(ctx context.Context, query string, evidence []products.Product, answer string) (Score, error) {
	locale := lang.Detect(query)

	var listing strings.Builder
	for i, p := range evidence {
		fmt.Fprintf(&listing, "%d. %s | %s | %s\n", i+1, p.Title, p.Price, p.Source)
	}

	out, err := e.llm.Complete(ctx, []llm.Message{
		{Role: "system", Content: prompts.System(prompts.RoleAccuracyEval, locale)},
		{Role: "user", Content: prompts.Evaluate(query, listing.String(), answer, locale)},
	})
	if err != nil {
		return Score{}, err
	}

	// Absent axes default to the floor before clamping. The model's own
	// total is discarded and recomputed so the composite always agrees with
	// the three sub-scores.
	var raw struct {
		Faithfulness *float64 `json:"faithfulness"`
		Relevance    *float64 `json:"relevance"`
		Completeness *float64 `json:"completeness"`
	}
	if err := json.Unmarshal([]byte(out), &raw); err != nil {
		return Score{}, fmt.Errorf("parsing evaluation output: %w", err)
	}

	s := Score{
		Faithfulness: clamp(deref(raw.Faithfulness)),
		Relevance:    clamp(deref(raw.Relevance)),
		Completeness: clamp(deref(raw.Completeness)),
	}
	s.Total = clamp(round2(0.4*s.Faithfulness + 0.3*s.Relevance + 0.3*s.Completeness))
	return s, nil
}

func (e *Evaluator) fallback(cause error) {
	if cause != nil {
		e.logger.Printf("evaluation failed, returning floor score: %v", cause)
	}
	if e.metrics != nil {
		e.metrics.EvalFallbacks.Inc()
	}
}

func deref(v *float64) float64 {
	if v == nil {
		return scoreMin
	}
	return *v
}

func clamp(v float64) float64 {
	return math.Max(scoreMin, math.Min(v, scoreMax))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
