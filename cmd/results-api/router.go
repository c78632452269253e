package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-exam-results/internal/handler"
	"github.com/noah-isme/sma-exam-results/internal/middleware"
	"github.com/noah-isme/sma-exam-results/internal/service"
	"github.com/noah-isme/sma-exam-results/pkg/config"
	"github.com/noah-isme/sma-exam-results/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-exam-results/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-exam-results/pkg/middleware/requestid"
)

type routerDeps struct {
	cfg          *config.Config
	logger       *zap.Logger
	metrics      *service.MetricsService
	gradeScales  *handler.GradeScaleHandler
	marks        *handler.MarkHandler
	results      *handler.ResultHandler
	publications *handler.PublicationHandler
	checks       map[string]handler.Pinger
}

func newRouter(deps routerDeps) *gin.Engine {
	if deps.cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(middleware.Metrics(deps.metrics, "/metrics"))
	r.Use(logger.GinMiddleware(deps.logger))
	r.Use(corsmiddleware.New(deps.cfg.CORS.AllowedOrigins))

	system := handler.NewMetricsHandler(deps.metrics, deps.checks)
	r.GET("/health", system.Health)
	r.GET("/ready", system.Ready)
	if deps.cfg.Metrics.Enabled {
		r.GET("/metrics", system.Prometheus)
	}
	if deps.cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(deps.cfg.APIPrefix, middleware.Tenant(), middleware.WithResponseMeta())

	scales := api.Group("/grade-scales")
	scales.GET("", deps.gradeScales.List)
	scales.POST("", deps.gradeScales.Create)
	scales.POST("/default", deps.gradeScales.CreateDefault)
	scales.DELETE("/:id", deps.gradeScales.Delete)

	exams := api.Group("/examinations/:examId")
	exams.POST("/subjects/:subjectId/marks", deps.marks.Upsert)
	exams.PUT("/subjects/:subjectId/marks/:studentId", deps.marks.UpsertOne)
	exams.GET("/classes/:classId/completeness", deps.results.Completeness)
	exams.POST("/classes/:classId/process", deps.results.Process)
	exams.GET("/classes/:classId/results/export", deps.results.Export)
	exams.GET("/results", deps.results.List)
	exams.GET("/students/:studentId/result", deps.results.StudentDetail)
	exams.GET("/publication", deps.publications.Get)
	exams.POST("/publish", deps.publications.Publish)
	exams.POST("/unpublish", deps.publications.Unpublish)
	exams.POST("/clear", deps.publications.Clear)

	return r
}
