package router

import (
	"github.com/cct-academy/course-portal/config"
	"github.com/cct-academy/course-portal/handlers"
	admin_handlers "github.com/cct-academy/course-portal/handlers/admin"
	auth_handlers "github.com/cct-academy/course-portal/handlers/auth"
	certificate_handlers "github.com/cct-academy/course-portal/handlers/certificate"
	course_handlers "github.com/cct-academy/course-portal/handlers/course"
	lesson_handlers "github.com/cct-academy/course-portal/handlers/lesson"
	progress_handlers "github.com/cct-academy/course-portal/handlers/progress"
	subscription_handlers "github.com/cct-academy/course-portal/handlers/subscription"
	"github.com/cct-academy/course-portal/services"
	"github.com/cct-academy/course-portal/services/storage"
	"github.com/cct-academy/course-portal/services/supabase"
	"github.com/cct-academy/course-portal/utils/auth"
	"github.com/cct-academy/course-portal/utils/middleware"
	"github.com/cct-academy/course-portal/utils/response"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Dependencies are the long-lived clients the routes are built from.
// Attempts may be nil, which turns login lockouts off.
type Dependencies struct {
	Config   *config.Config
	Client   *supabase.Client
	Objects  storage.ObjectStore
	Attempts middleware.AttemptStore
	Logger   *zap.Logger
}

// Services are the domain services behind the routes
type Services struct {
	Catalog       *services.CatalogService
	Lessons       *services.LessonService
	Progress      *services.ProgressService
	Subscriptions *services.SubscriptionService
	Certificates  *services.CertificateService
	Users         *services.UserService
}

// NewServices builds the domain services on one data client
func NewServices(client *supabase.Client, objects storage.ObjectStore) *Services {
	catalog := services.NewCatalogService(client)
	progress := services.NewProgressService(client, catalog)
	return &Services{
		Catalog:       catalog,
		Lessons:       services.NewLessonService(client),
		Progress:      progress,
		Subscriptions: services.NewSubscriptionService(client),
		Certificates:  services.NewCertificateService(client, objects, progress),
		Users:         services.NewUserService(client),
	}
}

func SetupRoutes(app *fiber.App, deps Dependencies) *Services {
	cfg := deps.Config
	svc := NewServices(deps.Client, deps.Objects)

	cookies := auth.Cookies{Secure: cfg.Cookie.Secure}
	impersonator := auth.NewImpersonator(auth.ImpersonationConfig{
		Secret: cfg.Impersonation.Secret,
		Expiry: cfg.Impersonation.TTL,
	})
	authMiddleware := middleware.NewAuthMiddleware(deps.Client, svc.Users, impersonator, cookies)

	var bruteForceProtection *middleware.BruteForceProtection
	if deps.Attempts != nil {
		bruteForceProtection = middleware.NewBruteForceProtection(deps.Attempts)
	}

	authHandler := auth_handlers.NewAuthHandler(deps.Client, svc.Users, authMiddleware, cookies, bruteForceProtection)
	courseHandler := course_handlers.NewCourseHandler(svc.Catalog)
	lessonHandler := lesson_handlers.NewLessonHandler(svc.Lessons)
	progressHandler := progress_handlers.NewProgressHandler(svc.Progress)
	subscriptionHandler := subscription_handlers.NewSubscriptionHandler(svc.Subscriptions)
	certificateHandler := certificate_handlers.NewCertificateHandler(svc.Certificates)
	adminHandler := admin_handlers.NewAdminHandler(svc.Users, impersonator)

	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    cfg.HTTP.AllowedOrigins,
		RateLimitRequests: cfg.HTTP.RateLimitRequests,
		RateLimitWindow:   cfg.HTTP.RateLimitWindow,
	}, deps.Logger)

	app.Get("/health", handlers.HandleCheckHealth(cfg, deps.Client))

	// Confirmation and recovery links land here
	app.Get("/auth/callback", authHandler.Callback)
	app.Get("/verificar/:code", certificateHandler.VerifyPage)

	api := app.Group("/api")

	// Auth routes
	authGroup := api.Group("/auth")
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", bruteForceProtection.CheckAndRecordAttempt(), authHandler.Login)
	authGroup.Post("/logout", authHandler.Logout)
	authGroup.Post("/callback", authHandler.CallbackSession)
	authGroup.Post("/forgot-password", authHandler.ForgotPassword)
	authGroup.Post("/reset-password", authHandler.ResetPassword)
	authGroup.Get("/me", authHandler.Me)
	authGroup.Post("/change-password", authMiddleware.Required(), authHandler.ChangePassword)
	authGroup.Put("/profile", authMiddleware.Required(), authHandler.UpdateName)

	// Signed-in user routes
	user := api.Group("/user", authMiddleware.Required())
	user.Get("/profile", authHandler.GetProfile)
	user.Put("/profile", authHandler.UpdateProfile)
	user.Get("/subscriptions", subscriptionHandler.History)
	user.Get("/access-status", subscriptionHandler.AccessStatus)

	// Catalog
	api.Get("/courses", authMiddleware.Optional(), courseHandler.ListCourses)
	api.Get("/courses/:id", authMiddleware.Optional(), courseHandler.GetCourse)

	lessons := api.Group("/lessons", authMiddleware.Optional())
	lessons.Get("/:id", lessonHandler.GetLesson)
	lessons.Get("/:id/access", lessonHandler.CheckAccess)
	lessons.Post("/:id/comments", lessonHandler.AddComment)

	// Progress
	api.Get("/progress/:email/:courseId", progressHandler.GetProgress)
	api.Post("/progress/complete", authMiddleware.Required(), progressHandler.Complete)
	api.Post("/progress/uncomplete", authMiddleware.Required(), progressHandler.Uncomplete)

	// Plans and subscriptions
	api.Get("/plans", subscriptionHandler.ListPlans)
	api.Get("/subscriptions/current", authMiddleware.Optional(), subscriptionHandler.Current)

	// Certificates
	api.Get("/certificate-template/:courseId", certificateHandler.Template)
	api.Get("/verify/:code", certificateHandler.Verify)
	certificates := api.Group("/certificates", authMiddleware.Required())
	certificates.Post("/generate", certificateHandler.Generate)
	certificates.Get("/", certificateHandler.List)
	certificates.Get("/:id", certificateHandler.Get)
	certificates.Get("/:id/html", certificateHandler.Render)

	// Answers false instead of rejecting, so it sits outside the admin group
	api.Get("/admin/check", authMiddleware.Optional(), adminHandler.Check)

	// Admin routes. Nothing behind this group runs for non-admins.
	admin := api.Group("/admin", authMiddleware.RequireAdmin(), middleware.AdminAuditLog())

	admin.Get("/courses/find", courseHandler.FindCourse)
	admin.Post("/courses", courseHandler.CreateCourse)
	admin.Put("/courses/:id", courseHandler.UpdateCourse)
	admin.Delete("/courses/:id", courseHandler.DeleteCourse)

	admin.Get("/modules/find", courseHandler.FindModule)
	admin.Post("/modules", courseHandler.CreateModule)
	admin.Put("/modules/:id", courseHandler.UpdateModule)
	admin.Delete("/modules/:id", courseHandler.DeleteModule)

	admin.Get("/lessons/find", courseHandler.FindLesson)
	admin.Post("/lessons", courseHandler.CreateLesson)
	admin.Put("/lessons/:id", courseHandler.UpdateLesson)
	admin.Delete("/lessons/:id", courseHandler.DeleteLesson)

	admin.Get("/plans", subscriptionHandler.AdminListPlans)
	admin.Post("/plans", subscriptionHandler.SavePlan)
	admin.Put("/plans/:id", subscriptionHandler.UpdatePlan)
	admin.Delete("/plans/:id", subscriptionHandler.DeletePlan)

	admin.Get("/subscriptions", subscriptionHandler.AdminList)
	admin.Post("/subscriptions", subscriptionHandler.Grant)
	admin.Post("/subscriptions/expire", subscriptionHandler.Expire)
	admin.Get("/subscriptions/find", subscriptionHandler.AdminFind)
	admin.Put("/subscriptions/:id", subscriptionHandler.AdminUpdate)
	admin.Delete("/subscriptions/:id", subscriptionHandler.AdminDelete)

	// member-subscriptions is the name the admin panel uses for the same table
	admin.Get("/member-subscriptions", subscriptionHandler.AdminList)
	admin.Get("/member-subscriptions/find", subscriptionHandler.AdminFind)
	admin.Post("/member-subscriptions", subscriptionHandler.Grant)
	admin.Put("/member-subscriptions/:id", subscriptionHandler.AdminUpdate)
	admin.Delete("/member-subscriptions/:id", subscriptionHandler.AdminDelete)

	admin.Post("/certificate-template", certificateHandler.UploadTemplate)
	admin.Get("/certificates", certificateHandler.AdminList)
	admin.Get("/certificates/find", certificateHandler.AdminFind)
	admin.Get("/certificates/:id", certificateHandler.AdminGet)
	admin.Post("/certificates", certificateHandler.AdminCreate)
	admin.Put("/certificates/:id", certificateHandler.AdminUpdate)
	admin.Delete("/certificates/:id", certificateHandler.AdminDelete)

	admin.Get("/users", adminHandler.ListUsers)
	admin.Get("/users/find", adminHandler.FindUser)
	admin.Post("/users", adminHandler.CreateUser)
	admin.Put("/users/:id", adminHandler.UpdateUser)
	admin.Delete("/users/:id", adminHandler.DeleteUser)

	admin.Post("/impersonate", adminHandler.Impersonate)

	api.Use(func(c *fiber.Ctx) error {
		return response.NotFound(c, "Route not found")
	})

	if cfg.StaticDir != "" {
		app.Static("/static", cfg.StaticDir)
		app.Static("/", cfg.StaticDir)
	}

	return svc
}
