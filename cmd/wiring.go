package main

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/talent-matcher/internal/matcher"
	"github.com/sells-group/talent-matcher/internal/model"
	"github.com/sells-group/talent-matcher/internal/scoring"
	"github.com/sells-group/talent-matcher/internal/similarity"
	"github.com/sells-group/talent-matcher/internal/source"
	"github.com/sells-group/talent-matcher/internal/store"
)

// initStore opens the configured persistence backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	case "sqlite":
		return store.NewSQLite(cfg.Store.DSN)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// newProvider picks the semantic similarity backend. An empty base URL
// means lexical heuristics only.
func newProvider() similarity.Provider {
	if cfg.Similarity.BaseURL == "" {
		return similarity.NewLexical()
	}
	return similarity.NewRemote(cfg.Similarity.BaseURL, cfg.Similarity.Key,
		similarity.WithTimeout(cfg.Similarity.Timeout()),
		similarity.WithRateLimit(cfg.Similarity.RatePerSec, cfg.Similarity.Burst),
	)
}

// newOrchestrator assembles the full matching stack from config.
func newOrchestrator() *matcher.Orchestrator {
	engine := scoring.NewEngine(cfg.Matching, newProvider())
	return matcher.New(engine, matcher.WithDeadline(cfg.Deadline.Run()))
}

type gigFile struct {
	Gig       *model.Proposer  `yaml:"gig"`
	Proposers []model.Proposer `yaml:"proposers"`
}

// loadProposers reads one gig or a list of proposers from a YAML file.
func loadProposers(path string) ([]model.Proposer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}

	var f gigFile
	if err := yaml.Unmarshal(data, &f); err == nil {
		if f.Gig != nil {
			return []model.Proposer{*f.Gig}, nil
		}
		if len(f.Proposers) > 0 {
			return f.Proposers, nil
		}
	}

	var single model.Proposer
	if err := yaml.Unmarshal(data, &single); err != nil {
		return nil, eris.Wrapf(err, "parse %s", path)
	}
	if single.ID == "" {
		return nil, eris.Errorf("%s: no gig found", path)
	}
	return []model.Proposer{single}, nil
}

// loadCandidates fetches the reviewer pool for a run: from the given
// YAML file when set, otherwise from the store.
func loadCandidates(ctx context.Context, path string, criteria source.Criteria) ([]model.Reviewer, error) {
	var src source.Source
	if path != "" {
		src = source.NewFileSource(path)
	} else {
		st, err := initStore(ctx)
		if err != nil {
			return nil, err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return nil, eris.Wrap(err, "migrate store")
		}
		src = source.NewStoreSource(st)
	}
	return src.Fetch(ctx, criteria)
}
