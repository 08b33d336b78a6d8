package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"launchpadResume/internal/admin"
	"launchpadResume/internal/api/middleware"
	"launchpadResume/internal/auth"
	"launchpadResume/internal/config"
	"launchpadResume/internal/resume"
	"launchpadResume/internal/storage"
	"launchpadResume/internal/submission"
	"launchpadResume/internal/tasks"
)

// Dependencies 汇总路由所需的服务实例。Objects and Scanner may be nil.
type Dependencies struct {
	DB          *gorm.DB
	Tokens      *auth.TokenService
	Redis       authStore
	Subscriber  notifySubscriber
	Resumes     *resume.Store
	Submissions *submission.Service
	Admin       *admin.Service
	Dispatcher  *tasks.Dispatcher
	Objects     storage.ObjectStore
	Scanner     VirusScanner
	Logger      *slog.Logger
}

// RegisterRoutes 注册 /api 下的全部路由。
func RegisterRoutes(router *gin.Engine, cfg *config.Config, deps Dependencies) {
	authHandler := NewAuthHandler(deps.DB, deps.Tokens, deps.Redis, LoginLimits{
		RatePerHour:   cfg.Auth.LoginRateLimitPerHour,
		LockThreshold: cfg.Auth.LoginLockThreshold,
		LockTTL:       cfg.Auth.LoginLockTTL,
	}, cfg.Auth.CookieDomain)
	userHandler := NewUserHandler(deps.DB)
	resumeHandler := NewResumeHandler(deps.Resumes, deps.Submissions, deps.Admin, deps.Dispatcher, deps.Objects, cfg.API.MaxResumes)
	photoHandler := NewPhotoHandler(deps.Resumes, deps.Objects, deps.Scanner)
	adminHandler := NewAdminHandler(deps.Admin, deps.Submissions, deps.Dispatcher, deps.Objects)

	authMiddleware := middleware.AuthMiddleware(deps.Tokens)
	passwordGate := middleware.RequirePasswordChangeCompletedMiddleware()

	api := router.Group("/api")

	if deps.Subscriber != nil {
		wsHandler := NewWsHandler(deps.Subscriber, deps.Tokens, deps.Logger, cfg.API.AllowedOrigins)
		api.GET("/ws", wsHandler.HandleConnection)
	}

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authMiddleware, authHandler.Logout)
		authGroup.POST("/change-password", authMiddleware, authHandler.ChangePassword)
	}

	userGroup := api.Group("/users", authMiddleware, passwordGate)
	{
		userGroup.GET("/me", userHandler.Me)
		userGroup.PUT("/profile", userHandler.UpdateProfile)
	}

	resumeGroup := api.Group("/resumes", authMiddleware, passwordGate)
	{
		resumeGroup.GET("", resumeHandler.ListResumes)
		resumeGroup.POST("", resumeHandler.CreateResume)
		resumeGroup.GET("/:id", resumeHandler.GetResume)
		resumeGroup.PUT("/:id", resumeHandler.UpdateResume)
		resumeGroup.DELETE("/:id", resumeHandler.DeleteResume)
		resumeGroup.GET("/:id/readiness", resumeHandler.Readiness)
		resumeGroup.POST("/:id/photo", photoHandler.UploadPhoto)
		resumeGroup.GET("/:id/photo", photoHandler.GetPhotoURL)
		resumeGroup.POST("/:id/submit", resumeHandler.Submit)
		resumeGroup.GET("/:id/submissions", resumeHandler.ListSubmissions)
	}

	adminGroup := api.Group("/admin", authMiddleware, passwordGate, middleware.AdminMiddleware(deps.DB))
	{
		adminGroup.GET("/resumes", adminHandler.ListResumes)
		adminGroup.GET("/resumes/:id", adminHandler.ResumeDetail)
		adminGroup.PUT("/resumes/:id/review", adminHandler.Review)
		adminGroup.GET("/stats", adminHandler.Stats)
		adminGroup.GET("/paid-submissions", adminHandler.ListPaidSubmissions)
		adminGroup.GET("/submission-stats", adminHandler.SubmissionStats)
		adminGroup.PUT("/submissions/:id/status", adminHandler.UpdateSubmissionStatus)
		adminGroup.PUT("/submissions/:id/assign", adminHandler.AssignExpert)
		adminGroup.GET("/submissions/:id/snapshot", adminHandler.Snapshot)
		adminGroup.GET("/experts", adminHandler.ListExperts)
	}
}
