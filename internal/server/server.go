package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/waterbill/internal/billing"
	"github.com/smallbiznis/waterbill/internal/config"
	"github.com/smallbiznis/waterbill/internal/ledger"
	"github.com/smallbiznis/waterbill/internal/scheduler"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger) *gin.Engine {
	return NewEngine(log)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	store      *ledger.Store
	billingSvc *billing.Engine
	sched      *scheduler.Scheduler
	log        *zap.Logger
}

type ServerParams struct {
	fx.In

	Gin       *gin.Engine
	Cfg       config.Config
	Store     *ledger.Store
	Billing   *billing.Engine
	Scheduler *scheduler.Scheduler
	Log       *zap.Logger
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		store:      p.Store,
		billingSvc: p.Billing,
		sched:      p.Scheduler,
		log:        p.Log.Named("server"),
	}

	svc.registerAPIRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Subscribers --------
	api.GET("/subscribers/:id", s.GetSubscriber)
	api.PATCH("/subscribers/:id", s.UpdateSubscriber)
	api.GET("/subscribers/:id/export", s.ExportSubscriber)

	// -------- Readings --------
	api.POST("/subscribers/:id/readings", s.SubmitReading)

	// -------- Invoices --------
	api.GET("/subscribers/:id/invoices", s.ListInvoices)
	api.GET("/subscribers/:id/invoices/:period", s.GetInvoiceByPeriod)

	// -------- Stats --------
	api.GET("/subscribers/:id/stats", s.GetStats)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin")

	admin.POST("/reminders/force", s.ForceReminders)
	admin.POST("/backups", s.CreateBackup)
}
