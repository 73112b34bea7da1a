package eval

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/shopchat/shopchat/internal/errs"
	"github.com/shopchat/shopchat/internal/llm"
	"github.com/shopchat/shopchat/internal/products"
)

type fakeLLM struct {
	replies []string
	errs    []error
	calls   int
}

func (f *fakeLLM) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	i := f.calls
	f.calls++
	var reply string
	var err error
	if i < len(f.replies) {
		reply = f.replies[i]
	}
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return reply, err
}

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func evidence() []products.Product {
	return []products.Product{{Title: "iPhone 15", Price: "4999 SAR", Source: "store-a"}}
}

func TestEvaluateEmptyEvidenceReturnsFloorWithoutCall(t *testing.T) {
	fake := &fakeLLM{}
	s, err := New(fake, quietLogger(), nil).Evaluate(context.Background(), "q", nil, "answer")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if s != Floor() {
		t.Fatalf("expected floor score, got %+v", s)
	}
	if fake.calls != 0 {
		t.Fatalf("expected no LLM call, got %d", fake.calls)
	}
}

func TestEvaluateClampsAndRecomputesTotal(t *testing.T) {
	// Out-of-range axes, missing relevance and a bogus model total.
	fake := &fakeLLM{replies: []string{`{"faithfulness":250,"completeness":3,"total":999}`}}
	s, err := New(fake, quietLogger(), nil).Evaluate(context.Background(), "q", evidence(), "answer")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if s.Faithfulness != 100 || s.Relevance != 10 || s.Completeness != 10 {
		t.Fatalf("clamping wrong: %+v", s)
	}
	// 0.4*100 + 0.3*10 + 0.3*10 = 46
	if s.Total != 46 {
		t.Fatalf("total = %v, want 46", s.Total)
	}
}

func TestEvaluateTotalRounding(t *testing.T) {
	fake := &fakeLLM{replies: []string{`{"faithfulness":77,"relevance":83,"completeness":91}`}}
	s, err := New(fake, quietLogger(), nil).Evaluate(context.Background(), "q", evidence(), "answer")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	// 0.4*77 + 0.3*83 + 0.3*91 = 83.0, rounded to 2 decimals
	if s.Total != 83 {
		t.Fatalf("total = %v, want 83", s.Total)
	}
	if s.Total < 10 || s.Total > 100 {
		t.Fatalf("total out of range: %v", s.Total)
	}
}

func TestEvaluateFloorOnParseFailure(t *testing.T) {
	fake := &fakeLLM{replies: []string{"I would rate it highly"}}
	s, err := New(fake, quietLogger(), nil).Evaluate(context.Background(), "q", evidence(), "answer")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if s != Floor() {
		t.Fatalf("expected floor on parse failure, got %+v", s)
	}
}

func TestEvaluateFloorOnUpstreamFailure(t *testing.T) {
	fake := &fakeLLM{errs: []error{&errs.UpstreamError{Service: "llm", Status: 500}}}
	s, err := New(fake, quietLogger(), nil).Evaluate(context.Background(), "q", evidence(), "answer")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if s != Floor() {
		t.Fatalf("expected floor on upstream failure, got %+v", s)
	}
}

func TestEvaluatePropagatesConfigError(t *testing.T) {
	fake := &fakeLLM{errs: []error{errs.ErrConfig}}
	s, err := New(fake, quietLogger(), nil).Evaluate(context.Background(), "q", evidence(), "answer")
	if !errors.Is(err, errs.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
	if s != Floor() {
		t.Fatalf("expected floor alongside config error, got %+v", s)
	}
}

func TestEvaluateWithRetryRecoversFromRateLimit(t *testing.T) {
	fake := &fakeLLM{
		replies: []string{"", `{"faithfulness":80,"relevance":80,"completeness":80}`},
		errs:    []error{&errs.UpstreamError{Service: "llm", Status: 429, Retryable: true}, nil},
	}
	s := New(fake, quietLogger(), nil).EvaluateWithRetry(context.Background(), "q", evidence(), "answer", 3, time.Millisecond)
	if s.Total != 80 {
		t.Fatalf("expected recovered score, got %+v", s)
	}
	if fake.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", fake.calls)
	}
}

func TestEvaluateWithRetryExhaustsToFloor(t *testing.T) {
	rateLimited := &errs.UpstreamError{Service: "llm", Status: 429, Retryable: true}
	fake := &fakeLLM{errs: []error{rateLimited, rateLimited, rateLimited}}
	s := New(fake, quietLogger(), nil).EvaluateWithRetry(context.Background(), "q", evidence(), "answer", 3, time.Millisecond)
	if s != Floor() {
		t.Fatalf("expected floor after retries, got %+v", s)
	}
	if fake.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", fake.calls)
	}
}

func TestEvaluateWithRetryDoesNotRetryNonRetryable(t *testing.T) {
	fake := &fakeLLM{errs: []error{&errs.UpstreamError{Service: "llm", Status: 500}}}
	s := New(fake, quietLogger(), nil).EvaluateWithRetry(context.Background(), "q", evidence(), "answer", 3, time.Millisecond)
	if s != Floor() {
		t.Fatalf("expected floor, got %+v", s)
	}
	if fake.calls != 1 {
		t.Fatalf("expected single attempt, got %d", fake.calls)
	}
}
