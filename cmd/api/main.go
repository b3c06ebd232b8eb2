package main

import (
	"expvar"
	"fmt"
	"log"
	"os"
	"runtime"
	"strconv"
	"time"

	"sponsorhub/internal/auth"
	"sponsorhub/internal/cache"
	"sponsorhub/internal/db"
	"sponsorhub/internal/domain/storage"
	"sponsorhub/internal/mailer"
	"sponsorhub/internal/notifications"
	"sponsorhub/internal/ratelimiter"
	"sponsorhub/internal/trust"

	"github.com/9ssi7/exponent"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoadRateLimiterConfig retrieves rate limiter settings from environment variables
func LoadRateLimiterConfig() ratelimiter.Config {
	// Default values
	defaultRequests := 200
	defaultEnabled := false

	// Retrieve request count with error handling
	requestsPerTimeFrame := defaultRequests
	if val, exists := os.LookupEnv("RATELIMITER_REQUESTS_COUNT"); exists {
		if parsedVal, err := strconv.Atoi(val); err == nil {
			requestsPerTimeFrame = parsedVal
		} else {
			fmt.Println("Invalid RATELIMITER_REQUESTS_COUNT, defaulting to", defaultRequests)
		}
	}

	// Retrieve enabled flag with error handling
	enabled := defaultEnabled
	if val, exists := os.LookupEnv("RATE_LIMITER_ENABLED"); exists {
		if parsedVal, err := strconv.ParseBool(val); err == nil {
			enabled = parsedVal
		} else {
			fmt.Println("Invalid RATE_LIMITER_ENABLED, defaulting to", defaultEnabled)
		}
	}

	return ratelimiter.Config{
		RequestsPerTimeFrame: requestsPerTimeFrame,
		TimeFrame:            5 * time.Second,
		Enabled:              enabled,
	}
}

// loadModerationConfig reads the moderation policy knobs, falling back to the
// product defaults when an env var is unset or malformed.
func loadModerationConfig() moderationConfig {
	cfg := moderationConfig{
		autoPublishScore: 85,
		flagScore:        60,
		freeTierLimit:    3,
		quotaWindow:      time.Hour * 24 * 30,
	}

	if val, exists := os.LookupEnv("MODERATION_AUTOPUBLISH_SCORE"); exists {
		if parsed, err := strconv.Atoi(val); err == nil {
			cfg.autoPublishScore = parsed
		}
	}
	if val, exists := os.LookupEnv("MODERATION_FLAG_SCORE"); exists {
		if parsed, err := strconv.Atoi(val); err == nil {
			cfg.flagScore = parsed
		}
	}
	if val, exists := os.LookupEnv("FREE_TIER_REVIEW_LIMIT"); exists {
		if parsed, err := strconv.Atoi(val); err == nil {
			cfg.freeTierLimit = parsed
		}
	}
	if val, exists := os.LookupEnv("REVIEW_QUOTA_WINDOW"); exists {
		if parsed, err := time.ParseDuration(val); err == nil {
			cfg.quotaWindow = parsed
		}
	}

	return cfg
}

// NewLogger creates a new zap logger with color.
func NewLogger() (*zap.SugaredLogger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	consoleEncoder := zapcore.NewConsoleEncoder(encoderCfg)

	level := zapcore.InfoLevel

	core := zapcore.NewCore(consoleEncoder, zapcore.NewMultiWriteSyncer(zapcore.AddSync(os.Stdout)), level)

	logger := zap.New(core)

	return logger.Sugar(), nil
}

var version = "1.0.0"

//	@title			EventSponsorHub API
//	@description	API for EventSponsorHub, sponsorship reviews for industry events.

//	@contact.name	API Support
//	@contact.url	http://www.swagger.io/support
//	@contact.email	support@swagger.io

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@BasePath					/v1
//	@securityDefinitions.apikey	ApiKeyAuth
//	@in							header
//	@name						Authorization
//	@description

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Fatalf("Error loading .env file: %v", err)
	}
	// Retrieve and convert maxOpenConns
	maxOpenConnsStr := os.Getenv("DB_MAX_OPEN_CONNS")
	maxOpenConns, err := strconv.Atoi(maxOpenConnsStr)
	if err != nil {
		log.Fatalf("Invalid value for DB_MAX_OPEN_CONNS: %v", err)
	}

	smtpPortStr := os.Getenv("SMTP_PORT")
	smtpPort, err := strconv.Atoi(smtpPortStr)
	if err != nil {
		log.Fatalf("Invalid value for SMTP_PORT: %v", err)
	}

	redisDB := 0
	if val, exists := os.LookupEnv("REDIS_DB"); exists {
		if parsed, err := strconv.Atoi(val); err == nil {
			redisDB = parsed
		}
	}

	cfg := config{
		addr:        os.Getenv("ADDR"),
		env:         os.Getenv("ENV"),
		frontendURL: os.Getenv("FRONTEND_URL"),
		apiURL:      os.Getenv("EXTERNAL_URL"),
		db: dbConfig{
			addr:         os.Getenv("DB_ADDR"),
			maxOpenConns: maxOpenConns,
			maxIdleTime:  os.Getenv("DB_MAX_IDLE_TIME"),
		},
		mail: mailConfig{
			exp:       time.Hour * 24 * 3, //3 days
			fromEmail: os.Getenv("SMTP_FROM_EMAIL"),
			smtp: smtpConfig{
				host:     os.Getenv("SMTP_HOST"),
				port:     smtpPort,
				username: os.Getenv("SMTP_USERNAME"),
				password: os.Getenv("SMTP_PASSWORD"),
			},
		},
		auth: authConfig{
			basic: basicConfig{
				user: os.Getenv("AUTH_BASIC_USER"),
				pass: os.Getenv("AUTH_BASIC_PASS"),
			},
			token: tokenConfig{
				refreshSecret:   os.Getenv("AUTH_TOKEN_REFRESH_SECRET"),
				secret:          os.Getenv("AUTH_TOKEN_SECRET"),
				accessTokenExp:  time.Hour * 24 * 3, // 3 days
				refreshTokenExp: time.Hour * 24 * 9, // 9 days
				iss:             "EventSponsorHub",
			},
		},
		redis: redisConfig{
			addr:         os.Getenv("REDIS_ADDR"),
			password:     os.Getenv("REDIS_PASSWORD"),
			db:           redisDB,
			aggregateTTL: time.Minute * 10,
		},
		rateLimiter: LoadRateLimiterConfig(),
		moderation:  loadModerationConfig(),
	}

	// Logger
	logger, err := NewLogger()
	if err != nil {
		fmt.Println("Error creating logger:", err)
		return
	}
	defer logger.Sync()

	// Database
	pool, err := db.New(
		cfg.db.addr,
		int32(cfg.db.maxOpenConns),
		cfg.db.maxIdleTime,
	)
	if err != nil {
		logger.Fatal(err)
	}

	defer pool.Close()
	logger.Info("database connection pool established")

	//storage
	store := storage.NewContainer(pool)

	// Redis backs the event aggregate read-through cache
	redisClient, err := cache.NewRedisClient(cfg.redis.addr, cfg.redis.password, cfg.redis.db)
	if err != nil {
		logger.Fatal(err)
	}
	defer redisClient.Close()
	logger.Info("redis connection established")

	cacheStorage := cache.NewRedisStorage(redisClient, cfg.redis.aggregateTTL)

	//cloudinary
	cloudinaryUrl := os.Getenv("CLOUDINARY_URL")
	cld, err := cloudinary.NewFromURL(cloudinaryUrl)
	if err != nil {
		logger.Fatal(err)
	}

	// client to send activation emails
	smtpClient, err := mailer.NewSMTPClient(
		cfg.mail.smtp.host,
		cfg.mail.smtp.port,
		cfg.mail.smtp.username,
		cfg.mail.smtp.password,
		cfg.mail.fromEmail,
	)
	if err != nil {
		logger.Fatal(err)
	}

	// Expo push client for review lifecycle notifications
	expoClient := exponent.NewClient()
	push := notifications.NewExpoAdapter(expoClient)

	// Rate limiter
	rateLimiter := ratelimiter.NewFixedWindowLimiter(
		cfg.rateLimiter.RequestsPerTimeFrame,
		cfg.rateLimiter.TimeFrame,
	)

	// Authenticator
	jwtAuthenticator := auth.NewJWTAuthenticator(
		cfg.auth.token.refreshSecret,
		cfg.auth.token.secret,
		cfg.auth.token.iss,
		cfg.auth.token.iss,
	)

	app := &application{
		config:        cfg,
		logger:        logger,
		store:         store,
		cacheStorage:  cacheStorage,
		cld:           cld,
		mailer:        smtpClient,
		authenticator: jwtAuthenticator,
		push:          push,
		rateLimiter:   rateLimiter,
		scorer:        trust.NewScorer(cfg.moderation.flagScore),
	}

	// Background sweepers: flip past events and prune stale push tokens.
	app.startBackgroundJobs()

	//Metrics collected http://localhost:8080/v1/debug/vars
	expvar.NewString("version").Set(version)
	expvar.Publish("database", expvar.Func(func() any {
		return pool.Stat().TotalConns()
	}))
	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))

	mux := app.mount()

	logger.Fatal(app.run(mux))
}
