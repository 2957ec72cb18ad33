package main

import (
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/crisisgraph/fieldgeo/internal/geo"
	"github.com/crisisgraph/fieldgeo/internal/pipeline"
	"github.com/crisisgraph/fieldgeo/internal/store"
	"github.com/crisisgraph/fieldgeo/pkg/geonames"
	"github.com/crisisgraph/fieldgeo/pkg/goapi"
	"github.com/crisisgraph/fieldgeo/pkg/llm"
)

// env bundles the wired collaborators the commands share.
type env struct {
	Store     *store.Store
	KB        *geo.KnowledgeBase
	Validator *geo.Validator
	Pipeline  *pipeline.Pipeline
}

// initEnv opens the store, restores learned knowledge-base entries, and wires
// the pipeline. A missing Anthropic key is not fatal: the model stages record
// failures and the rest of the pipeline still runs.
func initEnv() (*env, error) {
	st := store.Open(cfg.Store.DataDir)

	kb := geo.NewKnowledgeBase()
	learned, err := st.LoadKnowledgeBase()
	if err != nil {
		return nil, eris.Wrap(err, "load knowledge base")
	}
	if n := kb.Merge(learned); n > 0 {
		zap.L().Info("restored learned assignments", zap.Int("count", n))
	}
	validator := geo.NewValidator(kb)

	api := goapi.NewClient(cfg.GoAPI.AuthToken,
		goapi.WithBaseURL(cfg.GoAPI.BaseURL),
		goapi.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.GoAPI.TimeoutSecs) * time.Second,
		}),
	)

	llmClient, err := llm.NewClient(cfg.Anthropic.Key, cfg.Anthropic.Model)
	if err != nil {
		if !eris.Is(err, llm.ErrNotConfigured) {
			return nil, eris.Wrap(err, "init model client")
		}
		zap.L().Warn("no anthropic key configured, extraction and association will record failures")
		llmClient = nil
	}

	gazetteer := geonames.NewClient(cfg.GeoNames.Username,
		geonames.WithBaseURL(cfg.GeoNames.BaseURL),
		geonames.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.GeoNames.TimeoutSecs) * time.Second,
		}),
	)

	p, err := pipeline.New(pipeline.Deps{
		Store:     st,
		API:       api,
		LLM:       llmClient,
		Gazetteer: gazetteer,
		Validator: validator,
		Config:    cfg,
	})
	if err != nil {
		return nil, eris.Wrap(err, "build pipeline")
	}

	return &env{Store: st, KB: kb, Validator: validator, Pipeline: p}, nil
}
