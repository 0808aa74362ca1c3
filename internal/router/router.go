// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/insurance-backend/internal/config"
	"github.com/javajoker/insurance-backend/internal/handlers"
	"github.com/javajoker/insurance-backend/internal/middleware"
	"github.com/javajoker/insurance-backend/internal/models"
	"github.com/javajoker/insurance-backend/internal/services"
)

// Services holds the application services the HTTP layer is built on.
type Services struct {
	Auth             *services.AuthService
	Policies         *services.PolicyService
	CustomerPolicies *services.CustomerPolicyService
	Premiums         *services.PremiumService
	Claims           *services.ClaimService
	Ledger           *services.LedgerService
	Users            *services.UserService
	Admin            *services.AdminService
}

func Initialize(svc Services, cfg *config.Config) *gin.Engine {
	// Initialize handlers
	authHandler := handlers.NewAuthHandler(svc.Auth)
	policyHandler := handlers.NewPolicyHandler(svc.Policies)
	customerPolicyHandler := handlers.NewCustomerPolicyHandler(svc.CustomerPolicies)
	premiumHandler := handlers.NewPremiumHandler(svc.Premiums)
	claimHandler := handlers.NewClaimHandler(svc.Claims)
	transactionHandler := handlers.NewTransactionHandler(svc.Ledger)
	userHandler := handlers.NewUserHandler(svc.Users)
	adminHandler := handlers.NewAdminHandler(svc.Admin)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	r.Use(middleware.I18nMiddleware(cfg.I18n.DefaultLocale))
	r.Use(middleware.GeneralRateLimit())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.GET("/me", middleware.AuthRequired(), authHandler.Me)
			auth.POST("/users", middleware.AuthRequired(), middleware.AdminRequired(), authHandler.CreateAccount)
		}

		// User profile
		users := v1.Group("/users")
		users.Use(middleware.AuthRequired())
		{
			users.GET("/profile", userHandler.GetProfile)
			users.PUT("/profile", userHandler.UpdateProfile)
			users.PUT("/password", middleware.AuthRateLimit(), userHandler.ChangePassword)
		}

		// Policy catalog
		policies := v1.Group("/policies")
		policies.Use(middleware.AuthRequired())
		{
			policies.GET("", policyHandler.List)
			policies.GET("/:id", policyHandler.Get)
			policies.POST("", middleware.StaffRequired(), policyHandler.Create)
			policies.PUT("/:id", middleware.StaffRequired(), policyHandler.Update)
			policies.DELETE("/:id", middleware.AdminRequired(), policyHandler.Delete)
		}

		// Customer subscriptions
		customerPolicies := v1.Group("/customer-policies")
		customerPolicies.Use(middleware.AuthRequired())
		{
			customerPolicies.POST("", customerPolicyHandler.Purchase)
			customerPolicies.GET("", customerPolicyHandler.ListMine)
			customerPolicies.GET("/:id", customerPolicyHandler.Get)
			customerPolicies.POST("/:id/pay", middleware.PaymentRateLimit(), customerPolicyHandler.PayPremium)
			customerPolicies.PUT("/:id/renew", customerPolicyHandler.Renew)
			customerPolicies.PUT("/:id/cancel", customerPolicyHandler.Cancel)
		}

		// Premium payments
		premium := v1.Group("/premium")
		premium.Use(middleware.AuthRequired())
		{
			premium.POST("/initiate", middleware.PaymentRateLimit(), premiumHandler.Initiate)
			premium.POST("/verify", middleware.AdminRequired(), premiumHandler.Verify)
			premium.POST("/retry/:transactionId", middleware.PaymentRateLimit(), premiumHandler.Retry)
			premium.POST("/refund/:transactionId", middleware.AdminRequired(), premiumHandler.Refund)
			premium.POST("/cancel/:transactionId", premiumHandler.Cancel)
			premium.GET("/invoice/:transactionId", premiumHandler.Invoice)
			premium.GET("/customer/:customerId", premiumHandler.ListByCustomer)
			premium.GET("/:transactionId", premiumHandler.Get)
		}

		// Claims
		claims := v1.Group("/claims")
		claims.Use(middleware.AuthRequired())
		{
			claims.POST("", claimHandler.Create)
			claims.GET("/my", claimHandler.ListMine)
			claims.GET("", middleware.StaffRequired(), claimHandler.ListAll)
			claims.POST("/documents", middleware.UploadRateLimit(), claimHandler.UploadDocument)
			claims.GET("/:id", claimHandler.Get)
			claims.GET("/:id/documents", claimHandler.DocumentLinks)
			claims.PUT("/:id", claimHandler.Update)
			claims.PUT("/:id/review", middleware.RequireRoles(models.RoleAgent), claimHandler.MoveToReview)
			claims.PUT("/:id/approve", middleware.AdminRequired(), claimHandler.Approve)
			claims.PUT("/:id/reject", middleware.AdminRequired(), claimHandler.Reject)
			claims.DELETE("/:id", claimHandler.Delete)
		}

		// Ledger
		transactions := v1.Group("/transactions")
		transactions.Use(middleware.AuthRequired())
		{
			transactions.POST("", transactionHandler.Create)
			transactions.GET("", middleware.AdminRequired(), transactionHandler.List)
			transactions.GET("/my", transactionHandler.ListMine)
			transactions.GET("/:id", transactionHandler.Get)
			transactions.PATCH("/:id/status", middleware.AdminRequired(), transactionHandler.UpdateStatus)
		}

		// Admin
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			admin.GET("/dashboard/stats", adminHandler.GetDashboardStats)
			admin.GET("/users", adminHandler.GetUsers)
			admin.PUT("/users/:id/role", adminHandler.UpdateUserRole)
		}
	}

	// Locally stored claim documents, reachable through signed links only
	if cfg.AWS.AccessKeyID == "" {
		r.GET("/uploads/*key", claimHandler.ServeDocument)
	}

	return r
}
