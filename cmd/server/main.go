package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/snatchdl/snatch/internal/api"
	"github.com/snatchdl/snatch/internal/api/handler"
	"github.com/snatchdl/snatch/internal/auth"
	"github.com/snatchdl/snatch/internal/config"
	"github.com/snatchdl/snatch/internal/provider/douyin"
	"github.com/snatchdl/snatch/internal/provider/facebook"
	"github.com/snatchdl/snatch/internal/provider/instagram"
	"github.com/snatchdl/snatch/internal/provider/pinterest"
	"github.com/snatchdl/snatch/internal/provider/spotify"
	"github.com/snatchdl/snatch/internal/provider/tiktok"
	"github.com/snatchdl/snatch/internal/provider/twitter"
	"github.com/snatchdl/snatch/internal/provider/youtube"
	"github.com/snatchdl/snatch/internal/repository"
	"github.com/snatchdl/snatch/internal/service"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("snatch %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	// Local development convenience; absence of a .env file is fine.
	_ = godotenv.Load()

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting snatch",
		"version", Version,
		"build_time", BuildTime,
	)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Open the history store
	store, err := repository.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Platform provider clients
	providers := cfg.Providers
	tiktokClient := tiktok.NewClient(providers.UserAgent, providers.Timeout)
	youtubeClient := youtube.NewClient(providers.AIOBaseURL, providers.UserAgent, providers.Timeout)
	instagramClient := instagram.NewClient(providers.YtDlpPath, providers.UserAgent, providers.Timeout)
	douyinClient := douyin.NewClient(providers.UserAgent, providers.Timeout)
	twitterClient := twitter.NewClient(providers.UserAgent, providers.Timeout)
	spotifyClient := spotify.NewClient(providers.AIOBaseURL, providers.UserAgent, providers.Timeout)
	pinterestClient := pinterest.NewClient(providers.PinterestCookie, providers.UserAgent, providers.Timeout)
	facebookClient := facebook.NewClient(providers.AIOBaseURL, providers.UserAgent, providers.Timeout)

	// Services
	downloads := service.NewDownloads(
		logger,
		store,
		tiktokClient,
		youtubeClient,
		instagramClient,
		douyinClient,
		twitterClient,
		spotifyClient,
		pinterestClient,
		facebookClient,
	)
	proxy := service.NewProxy(logger, providers.UserAgent, cfg.Proxy.ImageTimeout, cfg.Proxy.MediaTimeout)

	// Auth
	sessions := auth.NewSessions(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL, cfg.Auth.SecureCookies)
	github := auth.NewGitHub(cfg.Auth.GitHubClientID, cfg.Auth.GitHubClientSecret)

	// Handlers
	downloadHandler := handler.NewDownloadHandler(downloads, logger)
	utilityHandler := handler.NewUtilityHandler(youtubeClient, pinterestClient, spotifyClient, proxy, logger)
	proxyHandler := handler.NewProxyHandler(proxy, logger)
	authHandler := handler.NewAuthHandler(github, sessions, store, logger)
	userHandler := handler.NewUserHandler(store, logger)
	healthHandler := handler.NewHealthHandler(Version)

	// Setup router
	router := api.NewRouter(
		downloadHandler,
		utilityHandler,
		proxyHandler,
		authHandler,
		userHandler,
		healthHandler,
		sessions,
	)

	// Setup HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", "error", err)
	}

	logger.Info("stopped")
}
