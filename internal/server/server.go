package server

import (
	"context"
	"net/http"

	"macronata/internal/auth"
	"macronata/internal/chat"
	"macronata/internal/config"
	"macronata/internal/email"
	"macronata/internal/payments"
	"macronata/internal/session"
	"macronata/internal/user"
	"macronata/internal/wallet"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Server struct {
	router   *gin.Engine
	http     *http.Server
	db       *sqlx.DB
	config   *config.Config
	email    *email.Service
	sessions session.Service
}

func New(db *sqlx.DB, cfg *config.Config, emailService *email.Service) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(corsMiddleware())

	userRepo := user.NewRepository(db)
	userService := user.NewService(userRepo, cfg.JWTSecret)
	userHandler := user.NewHandler(userService)

	walletRepo := wallet.NewRepository(db)
	checkout := payments.NewClient(cfg.StripeSecretKey)
	walletHandler := wallet.NewHandler(walletRepo, checkout, cfg.SimulatePayments)

	sessionRepo := session.NewRepository(db)
	sessionService := session.NewService(sessionRepo, userRepo, emailService)
	sessionHandler := session.NewHandler(sessionService)

	chatProvider := chat.NewOpenAIProvider(cfg.AIAPIKey, cfg.AIBaseURL, cfg.AIModel)
	chatHandler := chat.NewHandler(chatProvider)

	public := router.Group("/auth")
	public.Use(RateLimitMiddleware(5, 10))
	{
		public.POST("/register", userHandler.Register)
		public.POST("/login", userHandler.Login)
		public.POST("/refresh", userHandler.Refresh)
	}

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", userHandler.GetMe)
		protected.GET("/tutors", userHandler.ListTutors)

		protected.GET("/my_wallet", walletHandler.MyWallet)
		protected.POST("/create_deposit", walletHandler.CreateDeposit)
		protected.POST("/confirm_deposit_simulated", walletHandler.ConfirmSimulatedDeposit)
		protected.POST("/withdraw", walletHandler.Withdraw)

		protected.POST("/book_with_wallet", sessionHandler.BookWithWallet)
		protected.POST("/session_control", sessionHandler.Control)
		protected.GET("/my_sessions", sessionHandler.MySessions)

		protected.POST("/chat", chatHandler.Chat)
	}

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())
	router.GET("/test-email", TestEmail(emailService))

	return &Server{
		router:   router,
		db:       db,
		config:   cfg,
		email:    emailService,
		sessions: sessionService,
	}
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

// Sessions exposes the session service so the overdue sweeper can share the
// exact service (and metrics) the HTTP handlers use.
func (s *Server) Sessions() session.Service {
	return s.sessions
}

func (s *Server) Start(port string) error {
	s.http = &http.Server{
		Addr:    ":" + port,
		Handler: s.router,
	}
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
