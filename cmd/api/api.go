package main

import (
	"context"
	"errors"
	"expvar"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"solarshop/internal/auth"
	"solarshop/internal/domain/carts"
	"solarshop/internal/domain/orders"
	"solarshop/internal/metrics"
	"solarshop/internal/pricing"
	"solarshop/internal/ratelimiter"
	"solarshop/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type application struct {
	config        config
	logger        *zap.SugaredLogger
	carts         *session.Manager
	cartStore     carts.Store
	orders        orders.Store
	authenticator auth.Authenticator
	rateLimiter   ratelimiter.Limiter
	metrics       *metrics.Metrics
	registry      *prometheus.Registry
}

type config struct {
	addr        string
	env         string
	apiURL      string
	corsOrigins []string
	db          dbConfig
	auth        authConfig
	rateLimiter ratelimiter.Config
	kafka       kafkaConfig
	cart        cartConfig
}

type authConfig struct {
	basic basicConfig
	token tokenConfig
}

type tokenConfig struct {
	secret string
	aud    string
	iss    string
}

type basicConfig struct {
	user string
	pass string
}

type dbConfig struct {
	addr        string
	maxConns    int32
	minConns    int32
	maxIdleTime time.Duration
}

type kafkaConfig struct {
	brokers string
	topic   string
}

type cartConfig struct {
	syncInterval     time.Duration
	purgeInterval    time.Duration
	operationTimeout time.Duration
	sessionIdle      time.Duration
	ttl              time.Duration
	orderSalt        string
	policy           pricing.Policy
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(app.metricsMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   app.config.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.With(app.BasicAuthMiddleware()).Get("/health", app.healthCheckHandler)
		r.With(app.BasicAuthMiddleware()).Get("/debug/vars", expvar.Handler().ServeHTTP)
		r.Handle("/metrics", metrics.Handler(app.registry))

		r.Route("/partners", func(r chi.Router) {
			r.Use(app.PartnerTokenMiddleware)
			r.Use(app.RateLimiterMiddleware)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", app.getCartHandler)
				r.Delete("/", app.clearCartHandler)
				r.Post("/items", app.addCartItemHandler)
				r.Patch("/items/{productID}", app.updateCartItemHandler)
				r.Delete("/items/{productID}", app.removeCartItemHandler)
				r.Post("/offers/{offerID}/items", app.addOfferItemHandler)
				r.Post("/coupons", app.applyCouponHandler)
				r.Delete("/coupons/{couponID}", app.removeCouponHandler)
				r.Post("/sync", app.syncCartHandler)
				r.Post("/checkout", app.checkoutHandler)
				r.Put("/sidebar", app.sidebarHandler)
			})

			r.Get("/orders", app.listOrdersHandler)
			r.Get("/orders/{orderNumber}", app.getOrderHandler)
		})
	})
	return r
}

func (app *application) run(mux http.Handler) error {
	srv := &http.Server{
		Addr:         app.config.addr,
		Handler:      mux,
		WriteTimeout: time.Second * 30,
		ReadTimeout:  time.Second * 10,
		IdleTimeout:  time.Minute,
	}

	// background jobs live until shutdown
	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	app.startBackground(bgCtx)

	// Implementing graceful shutdown
	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Infow("signal caught", "signal", s.String())

		stopBackground()
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

	app.carts.Close()
	app.logger.Infow("server has stopped", "addr", app.config.addr, "env", app.config.env)

	return nil
}
