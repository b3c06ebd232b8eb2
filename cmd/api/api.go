package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sponsorhub/docs" //this is required to generate swagger docs
	"sponsorhub/internal/auth"
	"sponsorhub/internal/cache"
	"sponsorhub/internal/domain/storage"
	"sponsorhub/internal/mailer"
	"sponsorhub/internal/notifications"
	"sponsorhub/internal/ratelimiter"
	"sponsorhub/internal/trust"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

type application struct {
	config        config
	store         *storage.Container
	cacheStorage  cache.Storage
	logger        *zap.SugaredLogger
	cld           *cloudinary.Cloudinary
	mailer        mailer.Client
	authenticator auth.Authenticator
	push          notifications.PushSender
	rateLimiter   ratelimiter.Limiter
	scorer        trust.Scorer
}

type config struct {
	addr        string
	db          dbConfig
	env         string
	apiURL      string
	mail        mailConfig
	frontendURL string
	auth        authConfig
	redis       redisConfig
	rateLimiter ratelimiter.Config
	moderation  moderationConfig
}

// moderationConfig carries the policy constants the business has not pinned
// down yet; they ship as env-tunable defaults rather than hard-coded rules.
type moderationConfig struct {
	autoPublishScore int           // score at or above which an unflagged review fast-tracks to published
	flagScore        int           // score below which a review lands in the flagged queue
	freeTierLimit    int           // reviews per quota window on the free tier
	quotaWindow      time.Duration // trailing window for the submission quota
}

type authConfig struct {
	basic basicConfig
	token tokenConfig
}

type tokenConfig struct {
	refreshSecret   string
	secret          string
	accessTokenExp  time.Duration
	refreshTokenExp time.Duration
	iss             string
}

type basicConfig struct {
	user string
	pass string
}

type mailConfig struct {
	exp       time.Duration
	fromEmail string
	smtp      smtpConfig
}

type smtpConfig struct {
	host     string
	port     int
	username string
	password string
}

type dbConfig struct {
	addr         string
	maxOpenConns int
	maxIdleTime  string
}

type redisConfig struct {
	addr         string
	password     string
	db           int
	aggregateTTL time.Duration
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.With(app.BasicAuthMiddleware()).Get("/health", app.healthCheckHandler)
		docsURL := fmt.Sprintf("%s/swagger/doc.json", app.config.addr)
		r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL(docsURL)))

		r.With(app.BasicAuthMiddleware()).Get("/debug/vars", expvar.Handler().ServeHTTP)

		r.Route("/events", func(r chi.Router) {
			r.Get("/", app.listEventsHandler)
			r.Get("/by-slug/{slug}", app.getEventBySlugHandler)
			r.Get("/{eventID}", app.getEventHandler)
			r.Get("/{eventID}/reviews", app.getEventReviewsHandler)

			r.Group(func(r chi.Router) {
				r.Use(app.AuthTokenMiddleware)
				r.With(app.RateLimiterMiddleware).Post("/{eventID}/reviews", app.submitReviewHandler)
				r.Patch("/{eventID}/reviews", app.editReviewHandler)
				r.Post("/{eventID}/reviews/{reviewID}/helpful", app.markReviewHelpfulHandler)
				r.Put("/{eventID}/status", app.setEventStatusHandler)
			})

			r.With(app.AuthTokenMiddleware, app.ModeratorOnlyMiddleware).
				Post("/{eventID}/thumbnail", app.uploadEventThumbnailHandler)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(app.AuthTokenMiddleware)
			r.Get("/me", app.currentProfileHandler)
			r.Get("/me/pending-reviews", app.eventsAwaitingReviewHandler)
			r.Post("/push-tokens", app.registerPushTokenHandler)
			r.Delete("/push-tokens", app.removePushTokenHandler)
			r.Post("/logout", app.logoutHandler)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(app.AuthTokenMiddleware)
			r.Use(app.ModeratorOnlyMiddleware)
			r.Get("/reviews", app.listModerationQueueHandler)
			r.Post("/reviews/{reviewID}/approve", app.approveReviewHandler)
			r.Post("/reviews/{reviewID}/reject", app.rejectReviewHandler)
			r.Put("/users/{userID}/tier", app.updateUserTierHandler)
		})

		// Route that does NOT require authentication
		r.Put("/users/activate/{token}", app.activateProfileHandler)

		// Public routes
		r.Route("/authentication", func(r chi.Router) {
			r.Post("/user", app.registerUserHandler)
			r.Post("/token", app.createTokenHandler)
			r.Post("/refresh", app.refreshTokenHandler)
		})
	})
	return r
}

func (app *application) run(mux http.Handler) error {
	// Docs
	docs.SwaggerInfo.Version = version
	docs.SwaggerInfo.Host = app.config.apiURL
	docs.SwaggerInfo.BasePath = "/v1"

	srv := &http.Server{
		Addr:         app.config.addr,
		Handler:      mux,
		WriteTimeout: time.Second * 30,
		ReadTimeout:  time.Second * 10,
		IdleTimeout:  time.Minute,
	}

	// Implementing graceful shutdown
	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Infow("signal caught", "signal", s.String())

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Infow("server has started", "addr", app.config.addr, "env", app.config.env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Infow("server has stopped", "addr", app.config.addr, "env", app.config.env)

	return nil
}

// healthCheckHandler godoc
//
//	@Summary		Health check
//	@Description	Reports service health and version
//	@Tags			ops
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Security		ApiKeyAuth
//	@Router			/health [get]
func (app *application) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	data := map[string]string{
		"status":  "ok",
		"env":     app.config.env,
		"version": version,
	}

	if err := app.jsonResponse(w, http.StatusOK, data); err != nil {
		app.internalServerError(w, r, err)
	}
}
