package routes

import (
	"time"

	"sacco-backend/internal/adapters/http/handlers"
	"sacco-backend/internal/adapters/http/middleware"
	"sacco-backend/internal/adapters/persistence/repositories"
	"sacco-backend/internal/config"
	"sacco-backend/internal/core/domain"
	"sacco-backend/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
)

// Deps holds everything the HTTP layer needs
type Deps struct {
	Config        *config.Config
	Store         repositories.Store
	Log           *zap.Logger
	Auth          *services.AuthService
	Members       *services.MemberService
	Ledger        *services.LedgerService
	Transactions  *services.TransactionService
	Loans         *services.LoanService
	PasswordReset *services.PasswordResetService
	Dashboard     *services.DashboardService
}

// Setup configures all routes for the application
func Setup(app *fiber.App, deps *Deps) {
	cfg, log := deps.Config, deps.Log

	healthHandler := handlers.NewHealthHandler(deps.Store, cfg)
	authHandler := handlers.NewAuthHandler(deps.Auth, deps.Members, cfg, log)
	resetHandler := handlers.NewPasswordResetHandler(deps.PasswordReset, log)
	profileHandler := handlers.NewProfileHandler(deps.Members, log)
	memberHandler := handlers.NewMemberHandler(deps.Members, deps.Ledger, log)
	txHandler := handlers.NewTransactionHandler(deps.Transactions, log)
	loanHandler := handlers.NewLoanHandler(deps.Loans, log)
	dashboardHandler := handlers.NewDashboardHandler(deps.Dashboard, log)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", middleware.CacheControl(time.Hour), swagger.HandlerDefault)

	apiV1 := app.Group("/api/v1", middleware.NoCacheHeaders())
	apiV1.Get("/", healthHandler.APIInfo)

	auth := middleware.AuthMiddleware(cfg)
	current := middleware.CurrentMember(deps.Store)

	setupAuthRoutes(apiV1.Group("/auth"), authHandler, resetHandler, auth, current)

	setupProfileRoutes(apiV1.Group("/profile", auth, current), profileHandler)
	setupMemberRoutes(apiV1.Group("/members", auth, current), memberHandler)
	apiV1.Get("/balance", auth, current, memberHandler.MyBalance)
	setupTransactionRoutes(apiV1.Group("/transactions", auth, current), txHandler)
	setupLoanRoutes(apiV1.Group("/loans", auth, current), loanHandler)

	dashboardRoutes := apiV1.Group("/dashboard", auth, current)
	dashboardRoutes.Get("/summary", middleware.RequireCapability(domain.CapViewReports), dashboardHandler.Summary)
}

// setupAuthRoutes configures authentication routes
func setupAuthRoutes(router fiber.Router, handler *handlers.AuthHandler, reset *handlers.PasswordResetHandler, auth, current fiber.Handler) {
	// Public routes
	router.Post("/register", middleware.AuthRateLimiter(), handler.Register)
	router.Post("/login", middleware.AuthRateLimiter(), handler.Login)
	router.Post("/refresh", handler.RefreshToken)
	router.Post("/logout", handler.Logout)

	// Password reset (3 req/min/IP)
	router.Post("/password-reset/request", middleware.StrictRateLimiter(), reset.Request)
	router.Post("/password-reset/verify", middleware.StrictRateLimiter(), reset.Verify)
	router.Post("/password-reset/confirm", middleware.StrictRateLimiter(), reset.Confirm)

	// Protected routes
	router.Get("/me", auth, current, handler.Me)
	router.Post("/logout-all", auth, handler.LogoutAll)
}

// setupProfileRoutes configures profile routes (Authenticated)
func setupProfileRoutes(router fiber.Router, handler *handlers.ProfileHandler) {
	router.Get("/", handler.GetProfile)
	router.Put("/", handler.UpdateProfile)
	router.Put("/password", handler.ChangePassword)
}

// setupMemberRoutes configures member administration routes
func setupMemberRoutes(router fiber.Router, handler *handlers.MemberHandler) {
	view := middleware.RequireCapability(domain.CapViewMembers)

	router.Get("/", view, handler.List)
	router.Get("/:id", view, handler.Get)
	router.Get("/:id/balance", view, handler.MemberBalance)
	router.Put("/:id/approve", middleware.RequireCapability(domain.CapApproveMembers), handler.Approve)
	router.Put("/:id/role", middleware.RequireCapability(domain.CapManageRoles), handler.SetRole)
	router.Put("/:id/deactivate", middleware.RequireCapability(domain.CapManageRoles), handler.Deactivate)
	router.Put("/:id/activate", middleware.RequireCapability(domain.CapManageRoles), handler.Reactivate)
}

// setupTransactionRoutes configures transaction routes
func setupTransactionRoutes(router fiber.Router, handler *handlers.TransactionHandler) {
	router.Post("/", handler.Create)
	router.Get("/my", handler.My)
	router.Get("/", middleware.RequireCapability(domain.CapViewAllTransactions), handler.List)

	// Ownership is checked by the service
	router.Get("/:id", handler.Get)

	approver := middleware.RequireCapability(domain.CapApproveTransactions)
	router.Put("/:id/approve", approver, handler.Approve)
	router.Put("/:id/reject", approver, handler.Reject)
}

// setupLoanRoutes configures loan routes
func setupLoanRoutes(router fiber.Router, handler *handlers.LoanHandler) {
	router.Post("/", handler.Request)
	router.Post("/calculate", handler.Calculate)
	router.Get("/my", handler.My)
	router.Get("/guaranteed", handler.Guaranteed)
	router.Get("/", middleware.RequireCapability(domain.CapViewAllLoans), handler.List)

	router.Get("/:id", handler.Get)
	router.Get("/:id/schedule", handler.Schedule)
	router.Get("/:id/guarantors", handler.ListGuarantors)
	router.Post("/:id/guarantors", handler.AddGuarantor)

	officer := middleware.RequireCapability(domain.CapApproveLoans)
	router.Put("/:id/approve", officer, handler.Approve)
	router.Put("/:id/reject", officer, handler.Reject)
	router.Put("/:id/paid", officer, handler.MarkPaid)
}
