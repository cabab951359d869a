package main

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/example/describer/internal/auth"
	"github.com/example/describer/internal/config"
	"github.com/example/describer/internal/credentials"
	"github.com/example/describer/internal/handlers"
	"github.com/example/describer/internal/llmclient"
	"github.com/example/describer/internal/logging"
	"github.com/example/describer/internal/session"
	"github.com/example/describer/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	addr := flag.String("addr", cfg.ListenAddr, "HTTP listen address")
	flag.Parse()

	logger, err := logging.NewLogger(cfg.Debug)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	chain := credentials.NewChain(logger, credentials.APIKeyName,
		credentials.NewSecretsFileProvider(cfg.SecretsFile, credentials.APIKeyName),
		credentials.NewEnvProvider(credentials.APIKeyName),
	)
	client := llmclient.New(chain, llmclient.Options{
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
		BaseURL:   cfg.BaseURL,
	}, logger)

	stats := usecase.NewStats()
	uc := usecase.NewDescriptionUseCase(client, stats, logger)

	store := initSessionStore(ctx, cfg, logger)

	hero, err := handlers.LoadHeroImage(cfg.HeroImagePath)
	if err != nil {
		logger.Fatal("failed to load hero image", zap.Error(err))
	}

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	r.MaxMultipartMemory = handlers.MaxUploadSize

	sessionMiddleware := auth.SessionMiddleware(auth.Options{
		Secret: sessionSecret(cfg, logger),
		TTL:    cfg.SessionTTL,
		Secure: cfg.SecureCookies,
	})

	handlers.RegisterRoutes(r, handlers.Dependencies{
		Store:     store,
		Describer: uc,
		Stats:     stats,
		Hero:      hero,
		Logger:    logger,
	}, sessionMiddleware)

	server := &http.Server{
		Addr:    *addr,
		Handler: r,
	}

	logger.Info("describer listening", zap.String("addr", *addr), zap.String("model", cfg.Model))
	if err := serveHTTPServer(server, cfg.ShutdownTimeout, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func initSessionStore(ctx context.Context, cfg *config.Config, zapLogger *zap.Logger) session.Store {
	if cfg.RedisAddr == "" {
		zapLogger.Info("keeping sessions in memory", zap.Duration("ttl", cfg.SessionTTL))
		return session.NewMemoryStore(cfg.SessionTTL)
	}

	redisCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(redisCtx).Err(); err != nil {
		zapLogger.Fatal("redis connection failed", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}
	zapLogger.Info("keeping sessions in redis", zap.String("addr", cfg.RedisAddr), zap.Duration("ttl", cfg.SessionTTL))
	return session.NewRedisStore(session.NewRedisCache(client), cfg.SessionTTL)
}

// sessionSecret falls back to a per-process random key, which invalidates
// session cookies on restart.
func sessionSecret(cfg *config.Config, zapLogger *zap.Logger) []byte {
	if cfg.SessionSecret != "" {
		return []byte(cfg.SessionSecret)
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		zapLogger.Fatal("failed to generate session secret", zap.Error(err))
	}
	zapLogger.Warn("SESSION_SECRET not set, using a random key for this process")
	return secret
}

func serveHTTPServer(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger) error {
	return serveHTTPServerWithOptions(server, shutdownTimeout, logger, nil, nil)
}

func serveHTTPServerWithOptions(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger, listener net.Listener, signalCh <-chan os.Signal) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if listener != nil {
			err = server.Serve(listener)
		} else {
			err = server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	var (
		sigCh       <-chan os.Signal
		stopSignals func()
	)

	if signalCh != nil {
		sigCh = signalCh
		stopSignals = func() {}
	} else {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		sigCh = ch
		stopSignals = func() {
			signal.Stop(ch)
		}
	}
	defer stopSignals()

	select {
	case err := <-errCh:
		return err
	case sig, ok := <-sigCh:
		if !ok {
			return <-errCh
		}
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return <-errCh
	}
}
