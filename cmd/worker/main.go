// cmd/worker is the composition root: it wires every repository,
// provider, and queue handler, then starts one worker pool per queue.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/inboxreel/inboxreel/internal/email"
	emailrepo "github.com/inboxreel/inboxreel/internal/email/repository"
	"github.com/inboxreel/inboxreel/internal/enrichment"
	"github.com/inboxreel/inboxreel/internal/enrichment/cache"
	enrichrepo "github.com/inboxreel/inboxreel/internal/enrichment/repository"
	"github.com/inboxreel/inboxreel/internal/enrichment/ratelimit"
	"github.com/inboxreel/inboxreel/internal/enrichment/youtube"
	"github.com/inboxreel/inboxreel/internal/inboxsync"
	"github.com/inboxreel/inboxreel/internal/mailsource"
	"github.com/inboxreel/inboxreel/internal/mailsource/gmail"
	"github.com/inboxreel/inboxreel/internal/queue"
	"github.com/inboxreel/inboxreel/internal/queue/pubsubqueue"
	"github.com/inboxreel/inboxreel/internal/queue/record"
	rankerpkg "github.com/inboxreel/inboxreel/internal/ranker"
	rankrepo "github.com/inboxreel/inboxreel/internal/ranker/repository"
	userrepo "github.com/inboxreel/inboxreel/internal/user/repository"
	"github.com/inboxreel/inboxreel/pkg/config"
	"github.com/inboxreel/inboxreel/pkg/cryptutil"
	"github.com/inboxreel/inboxreel/pkg/dbconn"
	"github.com/inboxreel/inboxreel/pkg/pipelineconfig"
)

const drainTimeout = 30 * time.Second

func main() {
	cfg := config.Load()
	pipelineCfg, err := pipelineconfig.Load(cfg.PipelineConfigPath)
	if err != nil {
		log.Fatal("failed to load pipeline config:", err)
	}

	db, err := dbconn.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	box, err := cryptutil.NewBox(cfg.CredentialEncryptionKey)
	if err != nil {
		log.Fatal("failed to initialize credential encryption:", err)
	}

	users := userrepo.NewUserRepository(db)
	emails := emailrepo.NewEmailRepository(db)
	links := emailrepo.NewLinkRepository(db)
	senderStats := emailrepo.NewSenderStatsRepository(db)
	videoMetadata := enrichrepo.NewVideoMetadataRepository(db)
	rankings := rankrepo.NewRepository(db)
	ledger := record.NewRepository(db)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	policies := queue.PoliciesFromConfig(pipelineCfg)

	jobQueue, err := pubsubqueue.New(ctx, cfg.PubSubProjectID, policies, ledger)
	if err != nil {
		log.Fatal("failed to initialize job queue:", err)
	}

	var provider mailsource.Provider = gmail.NewProvider(cfg.GoogleClientID, cfg.GoogleClientSecret)

	processor := email.NewProcessor(db, emails, links, senderStats, videoMetadata, users, provider, jobQueue, box)

	youtubeClient, err := youtube.New(ctx, cfg.YouTubeAPIKey)
	if err != nil {
		log.Fatal("failed to initialize youtube client:", err)
	}
	limiter := ratelimit.New(pipelineCfg.YouTube.RequestsPerSecond)
	metadataCache := cache.NewInMemory()
	enrichClient := enrichment.New(metadataCache, limiter, youtubeClient, videoMetadata, enrichment.Config{
		BatchSize:        pipelineCfg.YouTube.BatchSize,
		CacheTTL:         time.Duration(pipelineCfg.CacheTTLDays) * 24 * time.Hour,
		FailureThreshold: pipelineCfg.CircuitBreaker.FailureThreshold,
		ResetTimeout:     time.Duration(pipelineCfg.CircuitBreaker.ResetTimeoutMS) * time.Millisecond,
	})
	enrichHandler := enrichment.NewHandler(enrichClient, links, jobQueue)

	weights := rankerpkg.Weights{
		Sender:       pipelineCfg.Ranking.FeatureWeights.Sender,
		Thread:       pipelineCfg.Ranking.FeatureWeights.Thread,
		Freshness:    pipelineCfg.Ranking.FeatureWeights.Freshness,
		Topic:        pipelineCfg.Ranking.FeatureWeights.Topic,
		NoisePenalty: pipelineCfg.Ranking.FeatureWeights.NoisePenalty,
	}
	thresholds := rankerpkg.Thresholds{
		WatchNow: pipelineCfg.Ranking.WatchNowThreshold,
		Save:     pipelineCfg.Ranking.SaveThreshold,
	}
	rankHandler := rankerpkg.NewHandler(db, videoMetadata, users, rankings, weights, thresholds, pipelineCfg.Ranking.FreshnessHalfLifeDays)

	emailPool := queue.NewPool(jobQueue, queue.EmailProcessQueue, func(ctx context.Context, job queue.Job) error {
		var payload inboxsync.EmailProcessPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return err
		}
		return processor.Process(ctx, payload.UserID, payload.MessageID)
	}, drainTimeout)

	enrichPool := queue.NewPool(jobQueue, queue.EnrichQueue, enrichHandler.Handle, drainTimeout)
	rankPool := queue.NewPool(jobQueue, queue.RankComputeQueue, rankHandler.Handle, drainTimeout)

	done := make(chan struct{}, 3)
	go func() { emailPool.Run(ctx); done <- struct{}{} }()
	go func() { enrichPool.Run(ctx); done <- struct{}{} }()
	go func() { rankPool.Run(ctx); done <- struct{}{} }()

	log.Printf("[Worker] all pools started")
	<-ctx.Done()
	log.Printf("[Worker] shutdown signal received")
	for i := 0; i < 3; i++ {
		<-done
	}
	log.Printf("[Worker] exited cleanly")
}
