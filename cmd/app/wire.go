//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yanqian/review-digest/internal/bootstrap"
	"github.com/yanqian/review-digest/internal/domain/review"
	"github.com/yanqian/review-digest/internal/infra/config"
	"github.com/yanqian/review-digest/internal/infra/llm/chatgpt"
	"github.com/yanqian/review-digest/internal/infra/summarybackend"
	httpiface "github.com/yanqian/review-digest/internal/interface/http"
	"github.com/yanqian/review-digest/pkg/logger"
	"github.com/yanqian/review-digest/pkg/metrics"
)

func initializeApp() (*bootstrap.App, func(), error) {
	wire.Build(
		config.Load,
		logger.New,
		provideClock,
		provideRegistry,
		wire.Bind(new(prometheus.Registerer), new(*prometheus.Registry)),
		wire.Bind(new(prometheus.Gatherer), new(*prometheus.Registry)),
		metrics.NewSummaryMetrics,
		provideReviewConfig,
		provideReviewStore,
		provideChatGPTClient,
		provideSummarizerConfig,
		summarybackend.NewChatGPTSummarizer,
		wire.Bind(new(summarybackend.ChatClient), new(*chatgpt.Client)),
		wire.Bind(new(review.Summarizer), new(*summarybackend.ChatGPTSummarizer)),
		review.NewService,
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil, nil
}
