package relevance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/shopchat/shopchat/internal/errs"
	"github.com/shopchat/shopchat/internal/lang"
	"github.com/shopchat/shopchat/internal/llm"
	"github.com/shopchat/shopchat/internal/products"
	"github.com/shopchat/shopchat/internal/prompts"
)

// Filter re-ranks and prunes a product list against the query intent using
// the LLM. Filtering is an enhancement, not a correctness requirement: any
// upstream or parse failure degrades to the unfiltered input list. Only a
// configuration error escapes, so broken deployments fail loud instead of
// silently returning unfiltered results forever.
type Filter struct {
	llm    llm.Completer
	logger *log.Logger
}

func New(completer llm.Completer, logger *log.Logger) *Filter {
	if logger == nil {
		logger = log.New(log.Writer(), "[FILTER] ", log.LstdFlags)
	}
	return &Filter{llm: completer, logger: logger}
}

// Apply returns the products relevant to query, most relevant first. An
// empty input returns empty without an LLM call.
func (f *Filter) Apply(ctx context.Context, query string, prods []products.Product) ([]products.Product, error) {
	if len(prods) == 0 {
		return prods, nil
	}

	locale := lang.Detect(query)
	var listing strings.Builder
	for _, p := range prods {
		fmt.Fprintf(&listing, "- %s | %s | %s\n", p.Title, p.Price, p.Source)
	}

	out, err := f.llm.Complete(ctx, []llm.Message{
		{Role: "system", Content: prompts.System(prompts.RoleProductFiltering, locale)},
		{Role: "user", Content: prompts.Filter(query, listing.String(), locale)},
	})
	if err != nil {
		if errors.Is(err, errs.ErrConfig) {
			return nil, err
		}
		return fallback(prods, f.logger, err)
	}

	var filtered []products.Product
	if err := json.Unmarshal([]byte(out), &filtered); err != nil {
		return fallback(prods, f.logger, fmt.Errorf("parsing filter output: %w", err))
	}
	return filtered, nil
}

// fallback makes the degrade-to-input policy visible at the call site.
func fallback(prods []products.Product, logger *log.Logger, cause error) ([]products.Product, error) {
	logger.Printf("filtering failed, keeping unfiltered list: %v", cause)
	return prods, nil
}
