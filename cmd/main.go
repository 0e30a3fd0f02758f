package main

import (
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/random"
	echoSwagger "github.com/swaggo/echo-swagger"

	"genius365/internal/analytics"
	"genius365/internal/caching"
	"genius365/internal/config"
	"genius365/internal/handlers"
	"genius365/internal/jobs/background"
	"genius365/internal/middleware"
	"genius365/internal/repositories"
	"genius365/internal/search"
	"genius365/internal/services"
	"genius365/pkg/database"
)

const version = "1.0.0"

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := database.NewPool(databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = random.String(32) // Generate random secret for development
		log.Printf("WARNING: Using generated JWT secret")
	}

	redisAddr := envOr("REDIS_ADDR", "localhost:6379")
	redisPassword := os.Getenv("REDIS_PASSWORD")
	redisDB := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if db, err := strconv.Atoi(dbStr); err == nil {
			redisDB = db
		}
	}

	providerCfg, err := config.LoadProviders(os.Getenv("PROVIDER_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load provider config: %v", err)
	}

	serverURL := envOr("SERVER_URL", "http://localhost:8080")

	// Recording archive
	recordingSvc, err := services.NewRecordingService(
		envOr("MINIO_ENDPOINT", "localhost:9000"),
		envOr("MINIO_ACCESS_KEY", "minioadmin"),
		envOr("MINIO_SECRET_KEY", "minioadmin"),
		envOr("MINIO_BUCKET", "genius365-recordings"),
		os.Getenv("MINIO_USE_SSL") == "true",
	)
	if err != nil {
		log.Fatalf("Failed to initialize recording service: %v", err)
	}

	// Repositories
	partnerRepo := repositories.NewPartnerRepo(pool)
	workspaceRepo := repositories.NewWorkspaceRepo(pool)
	departmentRepo := repositories.NewDepartmentRepo(pool)
	userRepo := repositories.NewUserRepo(pool)
	agentRepo := repositories.NewAgentRepo(pool)
	leadRepo := repositories.NewLeadRepo(pool)
	conversationRepo := repositories.NewConversationRepo(pool)
	campaignRepo := repositories.NewCampaignRepo(pool)
	recipientRepo := repositories.NewCampaignRecipientRepo(pool)
	subscriptionRepo := repositories.NewSubscriptionRepo(pool)
	creditsRepo := repositories.NewCreditsRepo(pool)
	usageRepo := repositories.NewUsageRepo(pool)
	outboxRepo := repositories.NewOutboxRepo(pool)
	roleRepo := repositories.NewRoleRepo(pool)
	permissionRepo := repositories.NewPermissionRepo(pool)
	userRoleRepo := repositories.NewUserRoleRepo(pool)
	rolePermissionRepo := repositories.NewRolePermissionRepo(pool)
	auditLogsRepo := repositories.NewAuditLogsRepo(pool)

	// Infrastructure services
	cacheSvc := caching.NewRedisCacheService(redisAddr, redisPassword, redisDB)
	searchSvc := search.NewMeiliSearch(envOr("MEILI_HOST", "http://localhost:7700"), os.Getenv("MEILI_API_KEY"))
	stripeSvc := services.NewStripeService(providerCfg)
	providers := services.NewProviderRegistry(
		services.NewVapiService(providerCfg),
		services.NewRetellService(providerCfg),
	)

	// Domain services
	rbacSvc := services.NewRBACService(roleRepo, permissionRepo, userRoleRepo, rolePermissionRepo)
	authSvc := services.NewAuthService(userRepo, cacheSvc, jwtSecret, 3600, 7*24*3600)
	auditSvc := services.NewAuditLogsService(auditLogsRepo)
	partnerSvc := services.NewPartnerService(partnerRepo, workspaceRepo)
	workspaceSvc := services.NewWorkspaceService(workspaceRepo, partnerRepo, creditsRepo, stripeSvc, cacheSvc)
	departmentSvc := services.NewDepartmentService(departmentRepo, agentRepo)
	userSvc := services.NewUserService(userRepo, authSvc, rbacSvc)
	agentSvc := services.NewAgentService(agentRepo, providers, cacheSvc, searchSvc, serverURL)
	leadSvc := services.NewLeadService(leadRepo, searchSvc)
	billingSvc := services.NewBillingService(
		conversationRepo, subscriptionRepo, creditsRepo, usageRepo, outboxRepo,
		workspaceRepo, partnerRepo, stripeSvc, providerCfg.Stripe.MinutesMeter,
	)
	usageSvc := services.NewUsageService(usageRepo, outboxRepo, stripeSvc)
	conversationSvc := services.NewConversationService(conversationRepo, agentRepo, providers, billingSvc, recordingSvc)
	campaignSvc := services.NewCampaignService(campaignRepo, recipientRepo, leadRepo, conversationSvc)
	analyticsSvc := analytics.NewAnalyticsService(usageRepo, conversationRepo, campaignRepo, cacheSvc)

	// Middleware
	rbacMiddleware := middleware.NewRBACMiddleware(rbacSvc)
	auditMiddleware := middleware.NewAuditMiddleware(auditSvc)
	versionMiddleware := middleware.NewVersionMiddleware()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cacheSvc)
	jwks := middleware.NewExternalJWKS(os.Getenv("JWT_JWKS_URL"))
	jwtConfig := middleware.NewEchoJWTConfig(jwtSecret, jwks)

	// Handlers
	authHandlers := handlers.NewAuthHandlers(authSvc, userSvc, rbacSvc)
	partnerHandlers := handlers.NewPartnerHandlers(partnerSvc)
	workspaceHandlers := handlers.NewWorkspaceHandlers(workspaceSvc, rbacSvc)
	departmentHandlers := handlers.NewDepartmentHandlers(departmentSvc)
	userHandlers := handlers.NewUserHandlers(userSvc, rbacSvc)
	agentHandlers := handlers.NewAgentHandlers(agentSvc)
	leadHandlers := handlers.NewLeadHandlers(leadSvc)
	conversationHandlers := handlers.NewConversationHandlers(conversationSvc)
	campaignHandlers := handlers.NewCampaignHandlers(campaignSvc)
	billingHandlers := handlers.NewBillingHandlers(billingSvc)
	usageHandlers := handlers.NewUsageHandlers(usageSvc, analyticsSvc)
	auditHandlers := handlers.NewAuditLogsHandlers(auditSvc)
	webhookHandlers := handlers.NewWebhookHandlers(conversationSvc, campaignSvc, billingSvc, stripeSvc, providerCfg)
	healthHandlers := handlers.NewHealthHandlers(pool, cacheSvc, searchSvc)

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.RemoveTrailingSlash())
	e.Use(versionMiddleware.APIVersionResolver())

	// Health and docs (no auth)
	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/ready", healthHandlers.ReadinessCheck)
	e.GET("/health/live", healthHandlers.LivenessCheck)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	v1 := e.Group("/v1")
	v1.Use(versionMiddleware.VersionHeader("v1"))

	// Webhooks verify their own signatures
	webhooks := v1.Group("/webhooks")
	webhooks.POST("/vapi", webhookHandlers.VapiWebhook)
	webhooks.POST("/retell", webhookHandlers.RetellWebhook)
	webhooks.POST("/stripe", webhookHandlers.StripeWebhook)

	// Authentication
	auth := v1.Group("/auth")
	auth.Use(rateLimitMiddleware.Limit("auth", 20, time.Minute))
	auth.POST("/login", authHandlers.Login)
	auth.POST("/refresh", authHandlers.Refresh)
	auth.POST("/logout", authHandlers.Logout)

	// Protected routes
	protected := v1.Group("")
	protected.Use(echojwt.WithConfig(jwtConfig))
	protected.Use(auditMiddleware.AuditRequest("low"))

	protected.GET("/me", authHandlers.Me)

	// Partner routes (platform operator surface)
	protected.POST("/partners", partnerHandlers.CreatePartner)
	protected.GET("/partners", partnerHandlers.ListPartners)
	protected.GET("/partners/:id", partnerHandlers.GetPartner)
	protected.PUT("/partners/:id", partnerHandlers.UpdatePartner)
	protected.DELETE("/partners/:id", partnerHandlers.DeletePartner)
	protected.GET("/partners/:id/workspaces", workspaceHandlers.ListWorkspaces)

	// Workspace routes
	protected.POST("/workspaces", workspaceHandlers.CreateWorkspace)
	protected.GET("/workspaces/:id", workspaceHandlers.GetWorkspace)
	protected.PUT("/workspaces/:id", workspaceHandlers.UpdateWorkspace, rbacMiddleware.RequirePermission(services.PermManageWorkspace))
	protected.DELETE("/workspaces/:id", workspaceHandlers.DeleteWorkspace, rbacMiddleware.RequirePermission(services.PermManageWorkspace))

	// Department routes
	protected.POST("/departments", departmentHandlers.CreateDepartment, rbacMiddleware.RequirePermission(services.PermManageWorkspace))
	protected.GET("/departments", departmentHandlers.ListDepartments)
	protected.GET("/departments/:id", departmentHandlers.GetDepartment)
	protected.PUT("/departments/:id", departmentHandlers.UpdateDepartment, rbacMiddleware.RequirePermission(services.PermManageWorkspace))
	protected.DELETE("/departments/:id", departmentHandlers.DeleteDepartment, rbacMiddleware.RequirePermission(services.PermManageWorkspace))

	// User routes
	protected.POST("/users", userHandlers.CreateUser, rbacMiddleware.RequirePermission(services.PermManageWorkspace))
	protected.GET("/users", userHandlers.ListUsers)
	protected.GET("/users/:id", userHandlers.GetUser)
	protected.PUT("/users/:id", userHandlers.UpdateUser, rbacMiddleware.RequirePermission(services.PermManageWorkspace))
	protected.DELETE("/users/:id", userHandlers.DeleteUser, rbacMiddleware.RequirePermission(services.PermManageWorkspace))
	protected.POST("/users/:id/roles", userHandlers.AssignRole, rbacMiddleware.RequirePermission(services.PermManageWorkspace))
	protected.DELETE("/users/:id/roles/:role", userHandlers.RevokeRole, rbacMiddleware.RequirePermission(services.PermManageWorkspace))

	// Agent routes
	protected.POST("/agents", agentHandlers.CreateAgent, rbacMiddleware.RequirePermission(services.PermManageAgents))
	protected.GET("/agents", agentHandlers.ListAgents)
	protected.GET("/agents/search", agentHandlers.SearchAgents)
	protected.GET("/agents/:id", agentHandlers.GetAgent)
	protected.PUT("/agents/:id", agentHandlers.UpdateAgent, rbacMiddleware.RequirePermission(services.PermManageAgents))
	protected.DELETE("/agents/:id", agentHandlers.DeleteAgent, rbacMiddleware.RequirePermission(services.PermManageAgents))
	protected.POST("/agents/:id/resync", agentHandlers.ResyncAgent, rbacMiddleware.RequirePermission(services.PermManageAgents))

	// Lead routes
	protected.POST("/leads", leadHandlers.CreateLead, rbacMiddleware.RequirePermission(services.PermManageLeads))
	protected.GET("/leads", leadHandlers.ListLeads)
	protected.GET("/leads/search", leadHandlers.SearchLeads)
	protected.GET("/leads/:id", leadHandlers.GetLead)
	protected.PUT("/leads/:id", leadHandlers.UpdateLead, rbacMiddleware.RequirePermission(services.PermManageLeads))
	protected.DELETE("/leads/:id", leadHandlers.DeleteLead, rbacMiddleware.RequirePermission(services.PermManageLeads))

	// Call routes
	protected.POST("/calls", conversationHandlers.StartCall, rbacMiddleware.RequirePermission(services.PermRunCampaigns))
	protected.GET("/conversations", conversationHandlers.ListConversations)
	protected.GET("/conversations/:id", conversationHandlers.GetConversation)
	protected.GET("/conversations/:id/recording", conversationHandlers.GetRecordingLink)

	// Campaign routes
	protected.POST("/campaigns", campaignHandlers.CreateCampaign, rbacMiddleware.RequirePermission(services.PermRunCampaigns))
	protected.GET("/campaigns", campaignHandlers.ListCampaigns)
	protected.GET("/campaigns/:id", campaignHandlers.GetCampaign)
	protected.POST("/campaigns/:id/start", campaignHandlers.StartCampaign, rbacMiddleware.RequirePermission(services.PermRunCampaigns))
	protected.POST("/campaigns/:id/pause", campaignHandlers.PauseCampaign, rbacMiddleware.RequirePermission(services.PermRunCampaigns))
	protected.POST("/campaigns/:id/resume", campaignHandlers.ResumeCampaign, rbacMiddleware.RequirePermission(services.PermRunCampaigns))
	protected.POST("/campaigns/:id/cancel", campaignHandlers.CancelCampaign, rbacMiddleware.RequirePermission(services.PermRunCampaigns))
	protected.GET("/campaigns/:id/progress", campaignHandlers.GetCampaignProgress)
	protected.GET("/campaigns/:id/recipients", campaignHandlers.ListCampaignRecipients)

	// Billing routes
	protected.GET("/billing/plans", billingHandlers.ListPlans)
	protected.POST("/billing/subscription", billingHandlers.Subscribe, rbacMiddleware.RequirePermission(services.PermManageBilling), auditMiddleware.AuditRequest("high"))
	protected.GET("/billing/subscription", billingHandlers.GetSubscription, rbacMiddleware.RequirePermission(services.PermViewBilling))
	protected.DELETE("/billing/subscription", billingHandlers.CancelSubscription, rbacMiddleware.RequirePermission(services.PermManageBilling), auditMiddleware.AuditRequest("high"))
	protected.GET("/billing/credits", billingHandlers.GetCredits, rbacMiddleware.RequirePermission(services.PermViewBilling))
	protected.POST("/billing/credits/purchase", billingHandlers.PurchaseCredits, rbacMiddleware.RequirePermission(services.PermManageBilling), auditMiddleware.AuditRequest("high"))
	protected.GET("/billing/credits/transactions", billingHandlers.ListCreditTransactions, rbacMiddleware.RequirePermission(services.PermViewBilling))

	// Usage routes
	protected.GET("/usage/summary", usageHandlers.GetUsageSummary, rbacMiddleware.RequirePermission(services.PermViewBilling))
	protected.GET("/usage/records", usageHandlers.ListUsageRecords, rbacMiddleware.RequirePermission(services.PermViewBilling))
	protected.GET("/usage/stats", usageHandlers.GetWorkspaceStats)

	// Audit log routes
	protected.GET("/audit-logs", auditHandlers.ListAuditLogs, rbacMiddleware.RequirePermission(services.PermViewAuditLogs))
	protected.GET("/audit-logs/:id", auditHandlers.GetAuditLog, rbacMiddleware.RequirePermission(services.PermViewAuditLogs))
	protected.GET("/audit-logs/records/:table/:record", auditHandlers.GetRecordHistory, rbacMiddleware.RequirePermission(services.PermViewAuditLogs))
	protected.GET("/audit-logs/users/:id", auditHandlers.GetUserActivity, rbacMiddleware.RequirePermission(services.PermViewAuditLogs))

	// Background jobs
	scheduler := background.NewJobScheduler(campaignSvc, billingSvc, usageSvc, conversationSvc, analyticsSvc, workspaceRepo)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start job scheduler: %v", err)
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Printf("Shutting down")
		if err := scheduler.Stop(); err != nil {
			log.Printf("Scheduler shutdown error: %v", err)
		}
		if err := e.Close(); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	port := envOr("PORT", "8080")
	log.Printf("genius365 control plane v%s starting on port %s", version, port)
	e.Logger.Fatal(e.Start(":" + port))
}
