package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yigit/credittransfer/internal/app/controllers"
	"github.com/yigit/credittransfer/internal/app/models"
	"github.com/yigit/credittransfer/internal/app/models/dto"
	"github.com/yigit/credittransfer/internal/middleware"
)

// Controllers groups the handlers mounted by SetupRouter
type Controllers struct {
	Auth     *controllers.AuthController
	Catalog  *controllers.CatalogController
	Transfer *controllers.TransferController
	Admin    *controllers.AdminController
}

// SetupRouter configures all application routes
func SetupRouter(router *gin.Engine, c Controllers, authMiddleware *middleware.AuthMiddleware) {
	v1 := router.Group("/api/v1")

	// --- Public routes ---
	auth := v1.Group("/auth")
	{
		auth.POST("/register", c.Auth.Register)
		auth.POST("/login", c.Auth.Login)
	}

	v1.GET("/institutions", c.Catalog.ListInstitutions)
	v1.GET("/curricula", c.Catalog.ListCurricula)
	v1.GET("/curricula/:id/target-courses", c.Catalog.ListTargetCourses)
	v1.GET("/source-courses", c.Catalog.ListSourceCourses)

	// --- Authenticated routes ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())
	authenticated.GET("/auth/me", c.Auth.Profile)

	student := authenticated.Group("")
	student.Use(authMiddleware.RoleRequired(models.RoleStudent))
	{
		student.POST("/transfer-requests", c.Transfer.CreateRequest)
		student.GET("/transfer-requests", c.Transfer.ListMyRequests)
		student.GET("/transfer-requests/:id", c.Transfer.GetMyRequest)
		student.POST("/transfer-requests/:id/evidence", c.Transfer.UploadEvidence)
		student.POST("/transfer-requests/:id/viewed", c.Transfer.MarkViewed)
		student.GET("/notifications", c.Transfer.Notifications)
	}

	admin := authenticated.Group("/admin")
	admin.Use(authMiddleware.RoleRequired(models.RoleFaculty))
	{
		admin.GET("/requests/pending", c.Admin.ListPending)
		admin.GET("/requests/history", c.Admin.ListHistory)
		admin.GET("/requests/:id", c.Admin.GetRequest)
		admin.GET("/requests/:id/report", c.Admin.Report)
		admin.PATCH("/requests/:id/status", c.Admin.OverrideRequestStatus)
		admin.DELETE("/requests/:id", c.Admin.DeleteRequest)
		admin.PATCH("/request-items/:id/status", c.Admin.UpdateItemStatus)
		admin.POST("/recalculate-score", c.Admin.RecalculateScore)

		manage := admin.Group("/manage")
		{
			manage.POST("/institutions", c.Catalog.CreateInstitution)
			manage.PUT("/institutions/:id", c.Catalog.UpdateInstitution)
			manage.DELETE("/institutions/:id", c.Catalog.DeleteInstitution)

			manage.POST("/curricula", c.Catalog.CreateCurriculum)
			manage.PUT("/curricula/:id", c.Catalog.UpdateCurriculum)
			manage.DELETE("/curricula/:id", c.Catalog.DeleteCurriculum)

			manage.POST("/source-courses", c.Catalog.CreateSourceCourse)
			manage.PUT("/source-courses/:id", c.Catalog.UpdateSourceCourse)
			manage.DELETE("/source-courses/:id", c.Catalog.DeleteSourceCourse)

			manage.POST("/target-courses", c.Catalog.CreateTargetCourse)
			manage.PUT("/target-courses/:id", c.Catalog.UpdateTargetCourse)
			manage.DELETE("/target-courses/:id", c.Catalog.DeleteTargetCourse)
		}
	}

	// Health check endpoint (public)
	v1.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, dto.NewSuccessResponse(gin.H{"status": "ok"}, ""))
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
