package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/platefulhq/plateful/internal/account"
	accountdomain "github.com/platefulhq/plateful/internal/account/domain"
	"github.com/platefulhq/plateful/internal/config"
	"github.com/platefulhq/plateful/internal/menu"
	menudomain "github.com/platefulhq/plateful/internal/menu/domain"
	"github.com/platefulhq/plateful/internal/observability"
	obsmiddleware "github.com/platefulhq/plateful/internal/observability/logger"
	obsmetrics "github.com/platefulhq/plateful/internal/observability/metrics"
	obstracing "github.com/platefulhq/plateful/internal/observability/tracing"
	"github.com/platefulhq/plateful/internal/order"
	orderdomain "github.com/platefulhq/plateful/internal/order/domain"
	"github.com/platefulhq/plateful/internal/order/livefeed"
	"github.com/platefulhq/plateful/internal/ratelimit"
	"github.com/platefulhq/plateful/internal/referral"
	"github.com/platefulhq/plateful/internal/wallet"
	walletdomain "github.com/platefulhq/plateful/internal/wallet/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	config.Module,
	fx.Provide(registerGin),
	account.Module,
	menu.Module,
	wallet.Module,
	order.Module,
	referral.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
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
	db         *gorm.DB
	genID      *snowflake.Node
	accountSvc accountdomain.Service
	menuSvc    menudomain.Service
	orderSvc   orderdomain.Service
	walletSvc  walletdomain.Service
	liveFeed   *livefeed.Hub
	rewards    *config.RewardsConfigHolder
	obsMetrics *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	DB         *gorm.DB
	GenID      *snowflake.Node
	AccountSvc accountdomain.Service
	MenuSvc    menudomain.Service
	OrderSvc   orderdomain.Service
	WalletSvc  walletdomain.Service
	LiveFeed   *livefeed.Hub
	Rewards    *config.RewardsConfigHolder
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		db:         p.DB,
		genID:      p.GenID,
		accountSvc: p.AccountSvc,
		menuSvc:    p.MenuSvc,
		orderSvc:   p.OrderSvc,
		walletSvc:  p.WalletSvc,
		liveFeed:   p.LiveFeed,
		rewards:    p.Rewards,
		obsMetrics: p.ObsMetrics,
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
	api.Use(s.ActorContext())

	// -------- Users --------
	api.POST("/users", s.CreateUser)
	api.GET("/users/:id", s.AuthRequired(), s.GetUserByID)
	api.POST("/referral/apply", s.AuthRequired(), s.ApplyReferralCode)
	api.GET("/referral", s.AuthRequired(), s.GetReferralOverview)

	// -------- Menu --------
	api.GET("/menu", s.GetMenu)
	api.GET("/menu/items", s.ListMenuItems)
	api.GET("/menu/items/:id", s.GetMenuItemByID)

	// -------- Orders --------
	api.POST("/orders", s.AuthRequired(), s.PlaceOrder)
	api.GET("/orders", s.AuthRequired(), s.ListOrders)
	api.GET("/orders/:id", s.AuthRequired(), s.GetOrderByRef)
	api.POST("/orders/:id/transition", s.AuthRequired(), s.TransitionOrder)
	api.POST("/orders/:id/cancel", s.AuthRequired(), s.CancelOrder)
	api.GET("/orders/:id/events", s.AuthRequired(), s.StreamOrderEvents)

	// -------- Wallet --------
	api.GET("/wallet/balance", s.AuthRequired(), s.GetWalletBalance)
	api.GET("/wallet/transactions", s.AuthRequired(), s.ListWalletTransactions)
	api.POST("/wallet/validate-usage", s.AuthRequired(), s.ValidateWalletUsage)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin")
	admin.Use(s.ActorContext())
	admin.Use(s.AuthRequired())
	admin.Use(s.StaffRequired())

	admin.GET("/users", s.ListUsers)
	admin.GET("/orders", s.ListOrders)

	admin.POST("/menu/categories", s.CreateMenuCategory)
	admin.POST("/menu/items", s.CreateMenuItem)
	admin.PATCH("/menu/items/:id/availability", s.SetMenuItemAvailability)

	admin.POST("/wallet/credit", s.AdminRequired(), s.AdminCreditWallet)
	admin.POST("/wallet/debit", s.AdminRequired(), s.AdminDebitWallet)
}
