package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/justestif/go-spotify-moodsync/internal/config"
	"github.com/justestif/go-spotify-moodsync/internal/metrics"
	"github.com/justestif/go-spotify-moodsync/internal/mood"
	"github.com/justestif/go-spotify-moodsync/internal/ollama"
	"github.com/justestif/go-spotify-moodsync/internal/recommend"
)

// engineConfig maps process configuration onto the recommender's.
func engineConfig(cfg *config.Config) recommend.Config {
	rc := recommend.DefaultConfig()
	rc.Count = cfg.RecommendCount
	rc.PreferredCount = cfg.PreferredCount
	rc.FreshCount = cfg.FreshCount
	rc.MinConfidence = cfg.MinConfidence
	rc.Cooldown = cfg.Cooldown
	return rc
}

func engineOptions(cfg *config.Config, log *zap.Logger, m *metrics.Manager) []recommend.Option {
	return []recommend.Option{
		recommend.WithConfig(engineConfig(cfg)),
		recommend.WithLogger(log.Named("recommend")),
		recommend.WithMetrics(m),
	}
}

// newClassifier wires the Ollama sentiment model when one is configured.
func newClassifier(cfg *config.Config, log *zap.Logger) *mood.Classifier {
	opts := []mood.ClassifierOption{mood.WithLogger(log.Named("mood"))}
	if cfg.OllamaURL != "" {
		opts = append(opts, mood.WithSentiment(ollama.NewClient(cfg.OllamaURL, ollama.WithModel(cfg.OllamaModel))))
	}
	return mood.NewClassifier(opts...)
}

// newMetrics registers the engine collectors on reg.
func newMetrics(reg prometheus.Registerer) *metrics.Manager {
	return metrics.NewManager(metrics.WithPrometheusRegistry(reg))
}
