package main

import (
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	gostremio "github.com/deflix-tv/go-stremio"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/doingodswork/jellio/pkg/addon"
	"github.com/doingodswork/jellio/pkg/jellyfin"
	"github.com/doingodswork/jellio/pkg/shadow"
)

const (
	version = "0.0.1"
)

func main() {
	// Logger for config parsing, replaced once the log level and encoding are known
	logger, err := gostremio.NewLogger("info")
	if err != nil {
		panic(err)
	}

	logger.Info("Parsing config...")
	config := parseConfig(logger)
	config.validate(logger)

	configuredLogger, err := newLogger(config.LogLevel, config.LogEncoding, os.Stderr)
	if err != nil {
		logger.Fatal("Couldn't create new logger", zap.Error(err))
	}
	logger = configuredLogger
	defer logger.Sync()

	configJSON, err := json.Marshal(config)
	if err != nil {
		logger.Fatal("Couldn't marshal config to JSON", zap.Error(err))
	}
	logger.Info("Parsed config", zap.ByteString("config", configJSON))

	// Token cache

	var tokenCache jellyfin.TokenCache
	var stores []io.Closer
	if config.RedisAddr != "" {
		logger.Info("Connecting to Redis...", zap.String("redisAddr", config.RedisAddr))
		redisStore, err := newRedisStore(config.RedisAddr, config.RedisCreds, config.CacheAgeToken, config.RequestTimeout)
		if err != nil {
			logger.Fatal("Couldn't create Redis token cache", zap.Error(err))
		}
		tokenCache = redisStore
		stores = append(stores, redisStore)
	} else if config.StoragePath != "" {
		logger.Info("Opening DB...", zap.String("storagePath", config.StoragePath))
		badgerStore, err := newBadgerStore(config.StoragePath, logger)
		if err != nil {
			logger.Fatal("Couldn't create BadgerDB token cache", zap.Error(err))
		}
		tokenCache = badgerStore
		stores = append(stores, badgerStore)
	} else {
		tokenCache = newGoCacheStore(config.CacheAgeToken)
	}

	// Clients

	clientOpts := jellyfin.ClientOptions{
		BaseURL:       config.JellyfinURL,
		Timeout:       config.RequestTimeout,
		CacheAge:      config.CacheAgeToken,
		ClientName:    "Jellio",
		ClientVersion: version,
	}
	jellyfinClient, err := jellyfin.NewClient(clientOpts, tokenCache, logger.Named("jellyfin"))
	if err != nil {
		logger.Fatal("Couldn't create Jellyfin client", zap.Error(err))
	}
	tracker := shadow.NewTracker(jellyfinClient, logger.Named("shadow"))
	jellio := addon.New(jellyfinClient, tracker, config.JellyfinPublicURL, logger.Named("addon"))

	app := newApp(jellio, jellyfinClient, logger)

	// Graceful shutdown

	go func() {
		c := make(chan os.Signal, 1)
		// Accept SIGINT (Ctrl+C) and SIGTERM (`docker stop`)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		sig := <-c
		logger.Info("Received signal, shutting down server...", zap.Stringer("signal", sig))
		// `docker stop` gives us 10 seconds
		if err := app.ShutdownWithTimeout(9 * time.Second); err != nil {
			logger.Error("Error shutting down server", zap.Error(err))
		}
	}()

	addr := config.BindAddr + ":" + strconv.Itoa(config.Port)
	logger.Info("Starting server", zap.String("address", addr))
	if err := app.Listen(addr); err != nil {
		logger.Error("Couldn't start server", zap.Error(err))
	}

	if err := closeStores(stores...); err != nil {
		logger.Error("Couldn't close token cache", zap.Error(err))
	}
	logger.Info("Server shut down")
}

// newApp creates the fiber app with all routes.
func newApp(jellio *addon.Addon, jellyfinClient tokenTester, logger *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		// The user data and IDs like "source:<guid>" can be URL encoded
		UnescapePath:          true,
		DisableStartupMessage: true,
		ReadTimeout:           5 * time.Second,
		WriteTimeout:          15 * time.Second,
		IdleTimeout:           60 * time.Second,
	})

	// Stremio doesn't show stream responses when no CORS middleware is used!
	app.Use(cors.New())
	app.Use(recover.New())
	app.Use(createLoggingMiddleware(logger.Named("http")))

	app.Get("/health", healthHandler)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Stremio endpoints

	authMiddleware := createAuthMiddleware(jellyfinClient, logger)
	catalogHandler := createCatalogHandler(jellio, logger)
	app.Get("/:userData/manifest.json", authMiddleware, createManifestHandler(jellio, logger))
	app.Get("/:userData/catalog/:type/:id.json", authMiddleware, catalogHandler)
	app.Get("/:userData/catalog/:type/:id/:extra.json", authMiddleware, catalogHandler)
	app.Get("/:userData/meta/:type/:id.json", authMiddleware, createMetaHandler(jellio, logger))
	app.Get("/:userData/stream/:type/:id.json", authMiddleware, createStreamHandler(jellio, logger))

	// Playback reports of the player
	app.Post("/:userData/playback/progress", authMiddleware, createProgressHandler(jellio, logger))
	app.Post("/:userData/playback/stop", authMiddleware, createStopHandler(jellio, logger))

	return app
}
