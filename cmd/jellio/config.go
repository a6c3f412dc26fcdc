package main

import (
	"flag"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

type config struct {
	BindAddr          string        `json:"bindAddr"`
	Port              int           `json:"port"`
	JellyfinURL       string        `json:"jellyfinURL"`
	JellyfinPublicURL string        `json:"jellyfinPublicURL"`
	RequestTimeout    time.Duration `json:"requestTimeout"`
	CacheAgeToken     time.Duration `json:"cacheAgeToken"`
	RedisAddr         string        `json:"redisAddr"`
	RedisCreds        string        `json:"redisCreds"`
	StoragePath       string        `json:"storagePath"`
	LogLevel          string        `json:"logLevel"`
	LogEncoding       string        `json:"logEncoding"`
	EnvPrefix         string        `json:"envPrefix"`
}

func parseConfig(logger *zap.Logger) config {
	result := config{}

	// Flags
	var (
		bindAddr          = flag.String("bindAddr", "localhost", `Local interface address to bind to. "localhost" only allows access from the local host. "0.0.0.0" binds to all network interfaces.`)
		port              = flag.Int("port", 8080, "Port to listen on")
		jellyfinURL       = flag.String("jellyfinURL", "http://localhost:8096", "Base URL of the Jellyfin server, as reachable by this service")
		jellyfinPublicURL = flag.String("jellyfinPublicURL", "", "Base URL of the Jellyfin server, as reachable by Stremio. It's used for image and stream URLs. An empty value will lead to the value of jellyfinURL being used.")
		requestTimeout    = flag.Duration("requestTimeout", 5*time.Second, "Timeout for requests to Jellyfin. The format must be acceptable by Go's 'time.ParseDuration()', for example \"5s\".")
		cacheAgeToken     = flag.Duration("cacheAgeToken", time.Hour, "Max age of cache entries for valid Jellyfin access tokens. The format must be acceptable by Go's 'time.ParseDuration()', for example \"1h\".")
		redisAddr         = flag.String("redisAddr", "", `Redis host and port, for example "localhost:6379". It's used for the token cache. Keep empty to use in-memory go-cache or BadgerDB (see storagePath).`)
		redisCreds        = flag.String("redisCreds", "", `Credentials for Redis. Password for Redis version 5 and older, username and password for Redis version 6 and newer. Use the colon character (":") for separating username and password. This implies you can't use a colon in the password when using Redis version 5 or older.`)
		storagePath       = flag.String("storagePath", "", "Path for storing the data of the persistent DB which stores the token cache. Only used if redisAddr is empty. An empty value will lead to in-memory go-cache being used.")
		logLevel          = flag.String("logLevel", "info", `Log level to show only logs with the given and more severe levels. Can be "debug", "info", "warn", "error".`)
		logEncoding       = flag.String("logEncoding", "console", `Log encoding. Can be "console" or "json", where "json" makes more sense when using centralized logging solutions like ELK, Graylog or Loki.`)
		envPrefix         = flag.String("envPrefix", "", "Prefix for environment variables")
	)

	flag.Parse()

	if *envPrefix != "" && !strings.HasSuffix(*envPrefix, "_") {
		*envPrefix += "_"
	}
	result.EnvPrefix = *envPrefix

	// Only overwrite the values by their env var counterparts that have not been set (and that *are* set via env var).
	var err error
	if !isArgSet("bindAddr") {
		if val, ok := os.LookupEnv(*envPrefix + "BIND_ADDR"); ok {
			*bindAddr = val
		}
	}
	result.BindAddr = *bindAddr

	if !isArgSet("port") {
		if val, ok := os.LookupEnv(*envPrefix + "PORT"); ok {
			if *port, err = strconv.Atoi(val); err != nil {
				logger.Fatal("Couldn't convert environment variable from string to int", zap.Error(err), zap.String("envVar", "PORT"))
			}
		}
	}
	result.Port = *port

	if !isArgSet("jellyfinURL") {
		if val, ok := os.LookupEnv(*envPrefix + "JELLYFIN_URL"); ok {
			*jellyfinURL = val
		}
	}
	result.JellyfinURL = *jellyfinURL

	if !isArgSet("jellyfinPublicURL") {
		if val, ok := os.LookupEnv(*envPrefix + "JELLYFIN_PUBLIC_URL"); ok {
			*jellyfinPublicURL = val
		}
	}
	result.JellyfinPublicURL = *jellyfinPublicURL

	if !isArgSet("requestTimeout") {
		if val, ok := os.LookupEnv(*envPrefix + "REQUEST_TIMEOUT"); ok {
			if *requestTimeout, err = time.ParseDuration(val); err != nil {
				logger.Fatal("Couldn't convert environment variable from string to time.Duration", zap.Error(err), zap.String("envVar", "REQUEST_TIMEOUT"))
			}
		}
	}
	result.RequestTimeout = *requestTimeout

	if !isArgSet("cacheAgeToken") {
		if val, ok := os.LookupEnv(*envPrefix + "CACHE_AGE_TOKEN"); ok {
			if *cacheAgeToken, err = time.ParseDuration(val); err != nil {
				logger.Fatal("Couldn't convert environment variable from string to time.Duration", zap.Error(err), zap.String("envVar", "CACHE_AGE_TOKEN"))
			}
		}
	}
	result.CacheAgeToken = *cacheAgeToken

	if !isArgSet("redisAddr") {
		if val, ok := os.LookupEnv(*envPrefix + "REDIS_ADDR"); ok {
			*redisAddr = val
		}
	}
	result.RedisAddr = *redisAddr

	if !isArgSet("redisCreds") {
		if val, ok := os.LookupEnv(*envPrefix + "REDIS_CREDS"); ok {
			*redisCreds = val
		}
	}
	result.RedisCreds = *redisCreds

	if !isArgSet("storagePath") {
		if val, ok := os.LookupEnv(*envPrefix + "STORAGE_PATH"); ok {
			*storagePath = val
		}
	}
	result.StoragePath = *storagePath

	if !isArgSet("logLevel") {
		if val, ok := os.LookupEnv(*envPrefix + "LOG_LEVEL"); ok {
			*logLevel = val
		}
	}
	result.LogLevel = *logLevel

	if !isArgSet("logEncoding") {
		if val, ok := os.LookupEnv(*envPrefix + "LOG_ENCODING"); ok {
			*logEncoding = val
		}
	}
	result.LogEncoding = *logEncoding

	return result
}

func (c *config) validate(logger *zap.Logger) {
	if _, err := url.ParseRequestURI(c.JellyfinURL); err != nil {
		logger.Fatal("jellyfinURL must be a valid URL", zap.Error(err), zap.String("jellyfinURL", c.JellyfinURL))
	}
	c.JellyfinURL = strings.TrimSuffix(c.JellyfinURL, "/")

	if c.JellyfinPublicURL == "" {
		c.JellyfinPublicURL = c.JellyfinURL
	} else if _, err := url.ParseRequestURI(c.JellyfinPublicURL); err != nil {
		logger.Fatal("jellyfinPublicURL must be a valid URL", zap.Error(err), zap.String("jellyfinPublicURL", c.JellyfinPublicURL))
	}
	c.JellyfinPublicURL = strings.TrimSuffix(c.JellyfinPublicURL, "/")

	if c.StoragePath != "" {
		c.StoragePath = filepath.Clean(c.StoragePath)
	}
	// If the dir doesn't exist, BadgerDB creates it when writing its DB files.

	if c.RedisAddr != "" && c.StoragePath != "" {
		logger.Warn("Both redisAddr and storagePath are set, storagePath will be ignored")
	}

	if c.RequestTimeout <= 0 {
		logger.Fatal("requestTimeout must be positive", zap.Duration("requestTimeout", c.RequestTimeout))
	}

	if c.LogEncoding != "console" && c.LogEncoding != "json" {
		logger.Fatal(`logEncoding must be one of "console" or "json"`, zap.String("logEncoding", c.LogEncoding))
	}
}

// isArgSet returns true if the argument you're looking for is actually set as command line argument.
// Pass without "-" prefix.
func isArgSet(arg string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == arg {
			found = true
		}
	})
	return found
}
