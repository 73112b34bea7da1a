package main

import (
	"context"
	"log"

	"github.com/spf13/cobra"

	"github.com/shopchat/shopchat/config"
	"github.com/shopchat/shopchat/internal/eval"
	"github.com/shopchat/shopchat/internal/llm"
	"github.com/shopchat/shopchat/internal/shopper"
	"github.com/shopchat/shopchat/internal/store"
)

func reevaluateCMD() *cobra.Command {
	var cfgPath string
	var reevaluate = &cobra.Command{
		Use:   "reevaluate",
		Short: "Re-score every stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			ctx := context.Background()

			st, err := store.Open(ctx, cfg.Storage)
			if err != nil {
				return err
			}
			defer st.Close()

			logger := log.New(log.Writer(), "[REEVAL] ", log.LstdFlags)
			completer := llm.NewClient(cfg.LLM.APIKey, cfg.LLM.URL, cfg.LLM.Model, cfg.LLM.MaxTokens, cfg.LLM.Timeout)
			evaluator := eval.New(completer, logger, nil)
			orch := shopper.NewOrchestrator(nil, nil, completer, evaluator, st, cfg.SerpAPI.Limit, logger, nil)

			updated, err := orch.ReevaluateAll(ctx, cfg.Reevaluate.MaxRetries, cfg.Reevaluate.RetryDelay)
			if err != nil {
				return err
			}
			logger.Printf("re-evaluated %d sessions", updated)
			return nil
		},
	}
	reevaluate.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return reevaluate
}
