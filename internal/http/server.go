package http

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/ports"
	"fintrack/internal/services"

	"golang.org/x/sync/singleflight"
)

// Services bundles what the API exposes. Store is only used for readiness.
type Services struct {
	Budgets      *services.BudgetService
	Transactions *services.TransactionService
	Categories   *services.CategoryService
	Store        ports.Store
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Addr               string
	SummaryCacheTTL    time.Duration
	SummaryCacheSize   int
	RateLimitPerMinute int
	// Now is the clock used for default dates (default: time.Now)
	Now func() time.Time
}

// DefaultServerConfig returns sensible defaults
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:               ":8081",
		SummaryCacheTTL:    30 * time.Second,
		SummaryCacheSize:   500,
		RateLimitPerMinute: 60,
		Now:                time.Now,
	}
}

type Server struct {
	http.Server
	logger     *log.Logger
	structured *log.StructuredLogger
	svc        Services
	config     ServerConfig

	// Budget summaries per user and date. Keys embed a per-user generation
	// so results computed before a mutation are never served after it.
	summaryCache *cache.LRUCache[summaryResponse]
	cacheManager *cache.Manager
	summaryGroup singleflight.Group
	genMu        sync.Mutex
	generations  map[int64]uint64

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	appMetrics       *appMetrics

	shutdownOnce sync.Once
}

type appMetrics struct {
	uptime               time.Time
	transactionsRecorded atomic.Int64
	budgetsSaved         atomic.Int64
	summariesBuilt       atomic.Int64
}

// NewServer wires routes and middleware and returns a ready-to-run server.
func NewServer(config ServerConfig, svc Services, logger *log.Logger) *Server {
	defaults := DefaultServerConfig()
	if config.Now == nil {
		config.Now = defaults.Now
	}
	if config.SummaryCacheSize <= 0 {
		config.SummaryCacheSize = defaults.SummaryCacheSize
	}
	if config.SummaryCacheTTL <= 0 {
		config.SummaryCacheTTL = defaults.SummaryCacheTTL
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	s := &Server{
		logger:       logger.WithComponent(log.ComponentHTTP),
		svc:          svc,
		config:       config,
		summaryCache: cache.NewLRUCache[summaryResponse](config.SummaryCacheSize, config.SummaryCacheTTL),
		cacheManager: cache.NewManager(),
		generations:  make(map[int64]uint64),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: config.RateLimitPerMinute,
		}),
		securityDetector: security.NewDetector(),
		appMetrics:       &appMetrics{uptime: time.Now()},
	}
	s.structured = log.NewStructuredLogger(s.logger)
	s.traceMiddleware = trace.NewMiddleware(logger, s.securityDetector.ExtractClientIP)

	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.StartCleanup(config.SummaryCacheTTL)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.Handle("GET /api/budgets", s.withUser(s.handleBudgetSummary))
	mux.Handle("POST /api/budgets", s.withUser(s.handleUpsertBudget))
	mux.Handle("DELETE /api/budgets/{id}", s.withUser(s.handleDeleteBudget))

	mux.Handle("GET /api/transactions", s.withUser(s.handleListTransactions))
	mux.Handle("GET /api/transactions/recent", s.withUser(s.handleRecentTransactions))
	mux.Handle("POST /api/transactions", s.withUser(s.handleCreateTransaction))
	mux.Handle("DELETE /api/transactions/{id}", s.withUser(s.handleDeleteTransaction))

	mux.Handle("GET /api/categories", s.withUser(s.handleListCategories))
	mux.Handle("POST /api/categories/defaults", s.withUser(s.handleSeedCategories))
	mux.Handle("DELETE /api/categories/{id}", s.withUser(s.handleDeleteCategory))

	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").Write(w)
	})(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.securityDetector.Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Addr = config.Addr
	s.Handler = handler
	s.ReadHeaderTimeout = 10 * time.Second
	s.ReadTimeout = 30 * time.Second
	s.WriteTimeout = 30 * time.Second
	s.IdleTimeout = 2 * time.Minute
	s.MaxHeaderBytes = 1 << 16 // 64KB
	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) today() core.Date {
	return core.DateOf(s.config.Now())
}

func (s *Server) summaryKey(userID int64, on core.Date) string {
	s.genMu.Lock()
	gen := s.generations[userID]
	s.genMu.Unlock()
	return userPrefix(userID) + strconv.FormatUint(gen, 10) + ":" + on.String()
}

func userPrefix(userID int64) string {
	return "summary:" + strconv.FormatInt(userID, 10) + ":"
}

// invalidateUser drops cached summaries after any mutation by userID.
func (s *Server) invalidateUser(ctx context.Context, userID int64) {
	s.genMu.Lock()
	s.generations[userID]++
	s.genMu.Unlock()
	if n := s.summaryCache.DeletePrefix(userPrefix(userID)); n > 0 {
		log.FromContext(ctx).DebugContext(ctx, "Summary cache invalidated",
			log.FieldUserID, userID, "entries", n)
	}
}

// budgetSummary serves from cache and collapses concurrent misses for the same key.
func (s *Server) budgetSummary(ctx context.Context, userID int64, on core.Date) (summaryResponse, error) {
	key := s.summaryKey(userID, on)
	if resp, ok := s.summaryCache.Get(key); ok {
		return resp, nil
	}

	v, err, _ := s.summaryGroup.Do(key, func() (any, error) {
		// Shared by every waiter, so it must not die with the first caller's request.
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()

		statuses, err := s.svc.Budgets.Summary(cctx, userID, on)
		if err != nil {
			return summaryResponse{}, err
		}
		resp := newSummaryResponse(on, statuses)
		s.summaryCache.Set(key, resp)
		s.appMetrics.summariesBuilt.Add(1)
		return resp, nil
	})
	if err != nil {
		return summaryResponse{}, err
	}
	return v.(summaryResponse), nil
}
