package main

import (
	"expvar"
	"fmt"
	"os"
	"runtime"
	"time"

	"solarshop/internal/auth"
	"solarshop/internal/db"
	"solarshop/internal/domain/carts"
	"solarshop/internal/domain/orders"
	"solarshop/internal/domain/storage"
	"solarshop/internal/events"
	"solarshop/internal/metrics"
	"solarshop/internal/pricing"
	"solarshop/internal/ratelimiter"
	"solarshop/internal/session"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoadRateLimiterConfig retrieves rate limiter settings from environment variables
func LoadRateLimiterConfig() ratelimiter.Config {
	return ratelimiter.Config{
		RequestsPerTimeFrame: getEnvInt("RATELIMITER_REQUESTS_COUNT", 200),
		TimeFrame:            getEnvDuration("RATELIMITER_TIME_FRAME", 5*time.Second),
		Enabled:              getEnvBool("RATE_LIMITER_ENABLED", false),
	}
}

// LoadPricingPolicy reads the summary constants and the two opt-in total
// corrections.
func LoadPricingPolicy() pricing.Policy {
	def := pricing.DefaultPolicy()
	return pricing.Policy{
		TaxRate:               getEnvDecimal("CART_TAX_RATE", def.TaxRate),
		FreeShippingThreshold: getEnvDecimal("CART_FREE_SHIPPING_THRESHOLD", def.FreeShippingThreshold),
		FlatShipping:          getEnvDecimal("CART_FLAT_SHIPPING", def.FlatShipping),
		DeductCoupons:         getEnvBool("CART_DEDUCT_COUPONS", false),
		HonorFreeShipping:     getEnvBool("CART_HONOR_FREE_SHIPPING", false),
	}
}

func loadConfig() config {
	return config{
		addr:        getEnv("ADDR", ":8080"),
		env:         getEnv("ENV", "development"),
		apiURL:      getEnv("EXTERNAL_URL", "localhost:8080"),
		corsOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", []string{"https://*", "http://*"}),
		db: dbConfig{
			addr:        os.Getenv("DB_ADDR"),
			maxConns:    int32(getEnvInt("DB_MAX_OPEN_CONNS", 30)),
			minConns:    int32(getEnvInt("DB_MIN_CONNS", 2)),
			maxIdleTime: getEnvDuration("DB_MAX_IDLE_TIME", 15*time.Minute),
		},
		auth: authConfig{
			basic: basicConfig{
				user: os.Getenv("AUTH_BASIC_USER"),
				pass: os.Getenv("AUTH_BASIC_PASS"),
			},
			token: tokenConfig{
				secret: os.Getenv("AUTH_TOKEN_SECRET"),
				aud:    getEnv("AUTH_TOKEN_AUDIENCE", "solarshop"),
				iss:    getEnv("AUTH_TOKEN_ISSUER", "solarshop"),
			},
		},
		rateLimiter: LoadRateLimiterConfig(),
		kafka: kafkaConfig{
			brokers: os.Getenv("KAFKA_BROKERS"),
			topic:   getEnv("KAFKA_CART_TOPIC", "cart.events"),
		},
		cart: cartConfig{
			syncInterval:     getEnvDuration("CART_SYNC_INTERVAL", 30*time.Second),
			purgeInterval:    getEnvDuration("CART_PURGE_INTERVAL", time.Hour),
			operationTimeout: getEnvDuration("CART_OPERATION_TIMEOUT", 5*time.Second),
			sessionIdle:      getEnvDuration("CART_SESSION_IDLE", session.DefaultSessionIdle),
			ttl:              getEnvDuration("CART_TTL", carts.DefaultTTL),
			orderSalt:        getEnv("ORDER_NUMBER_SALT", "solarshop"),
			policy:           LoadPricingPolicy(),
		},
	}
}

// NewLogger creates a new zap logger with color.
func NewLogger() (*zap.SugaredLogger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	consoleEncoder := zapcore.NewConsoleEncoder(encoderCfg)

	level := zapcore.InfoLevel
	if lvl, err := zapcore.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		level = lvl
	}

	core := zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), level)

	return zap.New(core).Sugar(), nil
}

var version = "0.3.0"

func main() {
	// .env is optional outside development
	if err := godotenv.Load(); err != nil {
		fmt.Println("no .env file loaded:", err)
	}

	cfg := loadConfig()

	logger, err := NewLogger()
	if err != nil {
		fmt.Println("Error creating logger:", err)
		return
	}
	defer logger.Sync()

	// Database
	pool, err := db.New(db.Config{
		Addr:        cfg.db.addr,
		MaxConns:    cfg.db.maxConns,
		MinConns:    cfg.db.minConns,
		MaxIdleTime: cfg.db.maxIdleTime,
	})
	if err != nil {
		logger.Fatal(err)
	}
	defer pool.Close()
	logger.Info("database connection pool established")

	store := storage.NewContainer(pool, cfg.cart.ttl)

	numbers, err := orders.NewNumberGenerator(cfg.cart.orderSalt)
	if err != nil {
		logger.Fatal(err)
	}

	publisher := events.New(cfg.kafka.brokers, cfg.kafka.topic)
	defer publisher.Close()
	if _, ok := publisher.(events.Nop); ok {
		logger.Warn("KAFKA_BROKERS not set, cart events are not published")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	manager := session.NewManager(session.Deps{
		Products:  store.Products,
		Coupons:   store.Coupons,
		Carts:     store.Sales.Carts,
		Checkout:  store,
		Numbers:   numbers,
		Publisher: publisher,
		Metrics:   m,
		Logger:    logger,
		Policy:    cfg.cart.policy,

		SessionIdle: cfg.cart.sessionIdle,
	})

	rateLimiter := ratelimiter.NewFixedWindowLimiter(
		cfg.rateLimiter.RequestsPerTimeFrame,
		cfg.rateLimiter.TimeFrame,
	)
	defer rateLimiter.Stop()

	app := &application{
		config:        cfg,
		logger:        logger,
		carts:         manager,
		cartStore:     store.Sales.Carts,
		orders:        store.Sales.Orders,
		authenticator: auth.NewJWTAuthenticator(cfg.auth.token.secret, cfg.auth.token.aud, cfg.auth.token.iss),
		rateLimiter:   rateLimiter,
		metrics:       m,
		registry:      registry,
	}

	//Metrics collected http://localhost:8080/v1/debug/vars
	expvar.NewString("version").Set(version)
	expvar.Publish("database", expvar.Func(func() any {
		return pool.Stat().TotalConns()
	}))
	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))
	expvar.Publish("cart_sessions", expvar.Func(func() any {
		return manager.Len()
	}))

	mux := app.mount()

	logger.Fatal(app.run(mux))
}
