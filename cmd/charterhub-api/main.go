// README: Entry point; loads config, wires services, starts HTTP/websocket server and background sweepers.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"charterhub/internal/config"
	httptransport "charterhub/internal/http"
	"charterhub/internal/infra"
	"charterhub/internal/modules/account"
	"charterhub/internal/modules/charter"
	"charterhub/internal/modules/conversation"
	"charterhub/internal/modules/matching"
	"charterhub/internal/modules/pricing"
	"charterhub/internal/modules/report"
	"charterhub/internal/modules/trip"
	"charterhub/internal/realtime"
	"charterhub/internal/types"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := infra.NewLogger(cfg.LogEnv)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	if cfg.LogEnv != "development" && cfg.LogEnv != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	verifier, err := newVerifier(ctx, cfg.Auth)
	if err != nil {
		return err
	}

	clock, err := types.NewClock(cfg.Timezone)
	if err != nil {
		return err
	}

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	hub := realtime.NewHub(realtime.NewRegistry(), logger.Named("realtime"))

	accountStore := account.NewStore(dbPool)

	var index charter.Index
	if redisClient := infra.NewRedis(cfg.Redis.Addr); redisClient != nil {
		defer func() { _ = redisClient.Close() }()
		index = charter.NewGeoIndex(redisClient, charter.DefaultIndexKey)
	}
	charterSvc := charter.NewService(charter.NewStore(dbPool), index, accountStore, clock, logger.Named("charter"))
	if index != nil {
		n, err := charterSvc.Reindex(ctx)
		if err != nil {
			logger.Warn("charter geo index rebuild failed; discovery falls back to directory scans", zap.Error(err))
		} else {
			logger.Info("charter geo index rebuilt", zap.Int("charters", n))
		}
	}

	pricingSvc := pricing.NewService(pricing.NewStore(dbPool), logger.Named("pricing"))

	convSvc := conversation.NewService(conversation.NewStore(dbPool), hub, clock, cfg.Conversation.TTL, logger.Named("conversation"))
	hub.SetAuthorizer(convSvc)

	matchSvc := matching.NewService(matching.NewStore(dbPool), matching.Deps{
		Users:         accountStore,
		Charters:      charterSvc,
		Pricing:       pricingSvc,
		Conversations: convSvc,
		Notifier:      hub,
	}, matching.Config{
		TTL:             cfg.Matching.TTL,
		DefaultRadiusKm: cfg.Matching.DefaultRadiusKm,
	}, clock, logger.Named("matching"))

	tripSvc := trip.NewService(trip.NewStore(dbPool), hub, clock, logger.Named("trip"))
	reportSvc := report.NewService(report.NewStore(dbPool), convSvc, clock, logger.Named("report"))

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Verifier:      verifier,
		Matches:       matchSvc,
		Charters:      charterSvc,
		Conversations: convSvc,
		Reports:       reportSvc,
		Trips:         tripSvc,
		Hub:           hub,
		Log:           logger.Named("http"),
	})

	go matchSvc.RunExpirySweeper(ctx, cfg.Matching.SweepInterval)
	go convSvc.RunSweeper(ctx, cfg.Conversation.SweepInterval)
	go charterSvc.RunIndexResync(ctx, cfg.Charter.IndexResyncInterval)

	return httptransport.NewServer(cfg.HTTP.Addr, router, logger.Named("http")).Run(ctx)
}

func newVerifier(ctx context.Context, auth config.AuthConfig) (infra.TokenVerifier, error) {
	if auth.Provider == config.AuthProviderFirebase {
		return infra.NewFirebaseVerifier(ctx, auth.FirebaseProjectID, auth.FirebaseCredsFile)
	}
	return infra.NewJWTVerifier(auth.JWTSecret), nil
}
