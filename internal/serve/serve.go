// Package serve exposes the read-only lookup API over the precomputed
// aggregate tables. Every table is loaded once at startup and kept resident;
// handlers perform exact-key lookups only, so the only user-visible failure
// is a missing key.
package serve

import (
	"context"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/steamops/vapor/pkg/config"
	"github.com/steamops/vapor/pkg/logger"
)

// Aggregate artifacts the service loads at startup. These are produced by an
// aggregation job downstream of the ETL projections.
const (
	developerStatsFile = "developer_stats.parquet"
	reviewAnalysisFile = "review_analysis.parquet"
	genrePlaytimeFile  = "genre_playtime_stats.parquet"
	userDataFile       = "user_data.parquet"
	bestDevelopersFile = "best_developers_by_year.parquet"
)

// Sentiment count columns are persisted under their numeric encoding and
// renamed for readability at the boundary.
var sentimentLabels = map[string]string{
	"0": "Negative",
	"1": "Neutral",
	"2": "Positive",
}

// Server answers the five lookup endpoints plus health and metrics.
type Server struct {
	cfg    config.ServeConfig
	log    *zap.Logger
	engine *gin.Engine

	developerStats *lookupTable
	reviewAnalysis *lookupTable
	genrePlaytime  *lookupTable
	userData       *lookupTable
	bestDevelopers *yearTable

	lookups *prometheus.CounterVec
}

// New loads every aggregate table and wires the routes. A missing or
// unreadable artifact fails startup; nothing is loaded lazily.
func New(cfg *config.Config) (*Server, error) {
	dir := cfg.Serve.DatasetsDir

	developerStats, err := loadLookup(filepath.Join(dir, developerStatsFile), "developer")
	if err != nil {
		return nil, err
	}
	reviewAnalysis, err := loadLookup(filepath.Join(dir, reviewAnalysisFile), "developer")
	if err != nil {
		return nil, err
	}
	genrePlaytime, err := loadLookup(filepath.Join(dir, genrePlaytimeFile), "genre")
	if err != nil {
		return nil, err
	}
	userData, err := loadLookup(filepath.Join(dir, userDataFile), "user_id")
	if err != nil {
		return nil, err
	}
	bestDevelopers, err := loadYearTable(filepath.Join(dir, bestDevelopersFile))
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:            cfg.Serve,
		log:            logger.Get().Named("serve"),
		developerStats: developerStats,
		reviewAnalysis: reviewAnalysis,
		genrePlaytime:  genrePlaytime,
		userData:       userData,
		bestDevelopers: bestDevelopers,
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vapor_lookups_total",
			Help: "Lookup requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
	}
	s.log.Info("aggregate tables loaded",
		zap.Int("developers", developerStats.size()),
		zap.Int("review_developers", reviewAnalysis.size()),
		zap.Int("genres", genrePlaytime.size()),
		zap.Int("users", userData.size()))

	registry := prometheus.NewRegistry()
	registry.MustRegister(s.lookups)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "vapor lookup service"})
	})
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	engine.GET("/developer/:developer", s.handleDeveloperStats)
	engine.GET("/developer_reviews_analysis/:developer", s.handleReviewAnalysis)
	engine.GET("/genre_playtime/:genre", s.handleGenrePlaytime)
	engine.GET("/userdata/:user_id", s.handleUserData)
	engine.GET("/best_developer_year/:year", s.handleBestDeveloperYear)

	s.engine = engine
	return s, nil
}

// Handler exposes the route tree for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("lookup service listening", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *Server) handleDeveloperStats(c *gin.Context) {
	name := c.Param("developer")
	record, ok := s.developerStats.get(name)
	if !ok {
		s.notFound(c, "developer", "Developer named "+name+" not found")
		return
	}
	s.lookups.WithLabelValues("developer", "hit").Inc()
	c.JSON(http.StatusOK, record)
}

func (s *Server) handleReviewAnalysis(c *gin.Context) {
	name := c.Param("developer")
	record, ok := s.reviewAnalysis.get(name)
	if !ok {
		s.notFound(c, "developer_reviews_analysis", "Developer "+name+" not found")
		return
	}
	labeled := make(map[string]interface{}, len(record))
	for k, v := range record {
		if label, renamed := sentimentLabels[k]; renamed {
			labeled[label] = v
			continue
		}
		labeled[k] = v
	}
	s.lookups.WithLabelValues("developer_reviews_analysis", "hit").Inc()
	c.JSON(http.StatusOK, labeled)
}

func (s *Server) handleGenrePlaytime(c *gin.Context) {
	genre := c.Param("genre")
	record, ok := s.genrePlaytime.get(genre)
	if !ok {
		s.notFound(c, "genre_playtime", "Genre "+genre+" not found")
		return
	}
	s.lookups.WithLabelValues("genre_playtime", "hit").Inc()
	c.JSON(http.StatusOK, record)
}

func (s *Server) handleUserData(c *gin.Context) {
	userID := c.Param("user_id")
	record, ok := s.userData.get(userID)
	if !ok {
		s.notFound(c, "userdata", "User ID "+userID+" not found")
		return
	}
	s.lookups.WithLabelValues("userdata", "hit").Inc()
	c.JSON(http.StatusOK, record)
}

func (s *Server) handleBestDeveloperYear(c *gin.Context) {
	raw := c.Param("year")
	year, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.notFound(c, "best_developer_year", "No data for year "+raw)
		return
	}
	developer, ok := s.bestDevelopers.bestDeveloper(year)
	if !ok {
		s.notFound(c, "best_developer_year", "No data for year "+raw)
		return
	}
	s.lookups.WithLabelValues("best_developer_year", "hit").Inc()
	c.JSON(http.StatusOK, gin.H{"year": year, "best_developer": developer})
}

func (s *Server) notFound(c *gin.Context, endpoint, detail string) {
	s.lookups.WithLabelValues(endpoint, "miss").Inc()
	c.JSON(http.StatusNotFound, gin.H{"detail": detail})
}
