package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/redis/go-redis/v9"

	"github.com/zkpersona/zkpersona/adapters/events"
	"github.com/zkpersona/zkpersona/adapters/prover"
	"github.com/zkpersona/zkpersona/adapters/store"
	"github.com/zkpersona/zkpersona/adapters/tokenizer"
	"github.com/zkpersona/zkpersona/adapters/wallet"
	"github.com/zkpersona/zkpersona/config"
	"github.com/zkpersona/zkpersona/ports"
	"github.com/zkpersona/zkpersona/service"
	"github.com/zkpersona/zkpersona/transport/http"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	// Session signing key. Generated per process here; load from a KMS or
	// key file before running more than one instance.
	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		logger.Error("failed to generate signing key", slog.Any("error", err))
		os.Exit(1)
	}

	clock := ports.SystemClock{}

	var (
		nonceStore   ports.NonceStore
		sessionStore ports.SessionStore
		eventPub     ports.EventPublisher
	)

	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			logger.Error("failed to parse Redis URL", slog.Any("error", err))
			os.Exit(1)
		}
		redisClient := redis.NewClient(opts)

		publisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{Client: redisClient},
			watermill.NewSlogLogger(logger),
		)
		if err != nil {
			logger.Error("failed to create Redis publisher", slog.Any("error", err))
			os.Exit(1)
		}

		nonceStore = store.NewRedisNonceStore(redisClient)
		sessionStore = store.NewRedisSessionStore(redisClient)
		eventPub = events.NewWatermillPublisher(publisher)
	} else {
		memNonces := store.NewMemoryNonceStore()
		memSessions := store.NewMemorySessionStore(clock)
		nonceStore = memNonces
		sessionStore = memSessions
		eventPub = events.NewNoopPublisher()

		// Periodic expiry sweeps; Redis handles this with key TTLs.
		go func() {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for now := range ticker.C {
				memNonces.Sweep(now)
				memSessions.Sweep(now)
			}
		}()
	}

	// User records and proof request state are per-instance; cross-instance
	// dedup relies on the shared nonce and session stores plus the
	// correlation-id conflict on the proof store.
	authService := service.NewAuthService(
		nonceStore,
		sessionStore,
		store.NewMemoryUserStore(),
		wallet.NewEthereumScheme(),
		tokenizer.NewJWTTokenizer(signKey),
		eventPub,
		service.WithAuthLogger(logger),
		service.WithNonceTTL(cfg.Auth.NonceTTL),
		service.WithSessionTTLs(cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL),
	)

	proofService := service.NewProofService(
		store.NewMemoryProofStore(clock),
		prover.NewZKML(clock),
		eventPub,
		service.WithProofLogger(logger),
		service.WithProofTimeout(cfg.Proof.Timeout),
		service.WithProofWorkers(cfg.Proof.Workers),
	)

	router := http.SetupRouter(authService, proofService)

	logger.Info("starting zkpersona gateway", slog.String("address", cfg.Server.Address))
	if err := router.Run(cfg.Server.Address); err != nil {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}
