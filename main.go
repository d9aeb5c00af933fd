package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/patrickmn/go-cache"
	"github.com/username/folioboard/backend/src/config"
	"github.com/username/folioboard/backend/src/database"
	"github.com/username/folioboard/backend/src/handlers"
	"github.com/username/folioboard/backend/src/ledger"
	"github.com/username/folioboard/backend/src/logger"
	"github.com/username/folioboard/backend/src/marketdata"
	"github.com/username/folioboard/backend/src/services"
	"golang.org/x/time/rate"
)

func proxyHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Forwarded-Proto") == "https" {
			r.URL.Scheme = "https"
			r.TLS = &tls.ConnectionState{}
		}
		next.ServeHTTP(w, r)
	})
}

func rateLimitMiddleware(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				logger.L.Warn("Rate limit exceeded", "path", r.URL.Path)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func enableCORS(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if allowed[origin] {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
				w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Requested-With, If-None-Match")
			} else if origin == "" {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			}

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func newMarketDataSource() marketdata.Source {
	if config.Cfg.MarketDataMode == "live" {
		return marketdata.NewLiveSource(config.Cfg.MarketDataBaseURL, config.Cfg.MarketDataTimeout, config.Cfg.QuoteCacheTTL)
	}
	return marketdata.NewSimulator(config.Cfg.SimulatorStepPct, time.Now().UnixNano())
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	logger.L.Info("FolioBoard backend server starting...")

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	database.RunMigrations(config.Cfg.DatabasePath)

	reportCache := cache.New(config.Cfg.ReportCacheTTL, services.CacheCleanupInterval)
	source := newMarketDataSource()
	store := services.NewSnapshotStore(database.DB)

	portfolioService := services.NewPortfolioService(
		store,
		source,
		reportCache,
		ledger.BasisFallback(config.Cfg.TaxBasisFallback),
		config.Cfg.PriceWalkAfterFill,
	)

	portfolioHandler := handlers.NewPortfolioHandler(portfolioService)
	reportHandler := handlers.NewReportHandler(portfolioService, config.Cfg.MaxImportBytes)

	limiter := rate.NewLimiter(rate.Every(config.Cfg.RateLimitEvery), config.Cfg.RateLimitBurst)

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(handlers.ContextualLoggerMiddleware)
	r.Use(proxyHeadersMiddleware)
	r.Use(enableCORS(config.Cfg.AllowedOrigins))
	r.Use(rateLimitMiddleware(limiter))
	r.Use(middleware.Timeout(config.Cfg.RequestTimeout))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "FolioBoard Backend is running"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/holdings", portfolioHandler.HandleGetHoldings)
		r.Post("/addasset", portfolioHandler.HandleAddAsset)
		r.Delete("/holdings/{id}", portfolioHandler.HandleDeleteAsset)
		r.Post("/addtrade", portfolioHandler.HandleAddTrade)
		r.Get("/tradedata", portfolioHandler.HandleGetTradeData)
		r.Get("/transactions", portfolioHandler.HandleGetTrades)
		r.Get("/portfolio/metrics", portfolioHandler.HandleGetMetrics)
		r.Get("/portfolio/performance", portfolioHandler.HandleGetPerformance)
		r.Get("/investments", portfolioHandler.HandleGetInvestments)
		r.Get("/finance/{symbol}", portfolioHandler.HandleGetQuote)

		r.Get("/tax/estimate", reportHandler.HandleTaxEstimate)
		r.Get("/export", reportHandler.HandleExport)
		r.Post("/import", reportHandler.HandleImport)
		r.Post("/prices/refresh", reportHandler.HandleRefreshPrices)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := services.NewScheduler(portfolioService, config.Cfg.PriceRefreshEvery, config.Cfg.MarketDataTimeout)
	go func() {
		if err := scheduler.Run(ctx); err != nil && err != context.Canceled {
			logger.L.Error("price refresh scheduler exited", "error", err)
		}
	}()

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.L.Error("server shutdown failed", "error", err)
		}
	}()

	logger.L.Info("Server starting", "address", serverAddr, "marketData", config.Cfg.MarketDataMode)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		stdlog.Fatalf("Failed to start server: %v", err)
	}
	logger.L.Info("Server stopped")
}
