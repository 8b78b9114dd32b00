package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/highspring-tester/hat/internal/models"
	"github.com/highspring-tester/hat/internal/services"
	"github.com/highspring-tester/hat/internal/utils"
)

type HandlerManager struct {
	authHandler         *AuthHandler
	examHandler         *ExamHandler
	questionBankHandler *QuestionBankHandler
	enrollmentHandler   *EnrollmentHandler
	verifier            TokenVerifier
	serviceManager      services.ServiceManager
}

func NewHandlerManager(serviceManager services.ServiceManager, logger utils.Logger) *HandlerManager {
	return &HandlerManager{
		authHandler:         NewAuthHandler(serviceManager.Auth(), logger),
		examHandler:         NewExamHandler(serviceManager.Exam(), logger),
		questionBankHandler: NewQuestionBankHandler(serviceManager.QuestionBank(), serviceManager.ImportExport(), logger),
		enrollmentHandler:   NewEnrollmentHandler(serviceManager.Enrollment(), logger),
		verifier:            serviceManager.Auth(),
		serviceManager:      serviceManager,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		authRoutes := v1.Group("/auth")
		{
			authRoutes.POST("/login/:scope", hm.authHandler.Login)
			authRoutes.POST("/sso", hm.authHandler.SSOLogin)
		}

		enrollment := v1.Group("/enrollment")
		enrollment.Use(RequireScope(hm.verifier, models.ScopeEnrollment, models.RoleOwner, models.RoleManager, models.RoleRecruiter))
		{
			enrollment.POST("/candidates", hm.enrollmentHandler.EnrollCandidate)
			enrollment.GET("/candidates", hm.enrollmentHandler.ListCandidates)
			enrollment.GET("/candidates/export", hm.enrollmentHandler.ExportCandidates)
		}

		quizzer := v1.Group("/quizzer")
		quizzer.Use(RequireScope(hm.verifier, models.ScopeQuizzer, models.RoleOwner, models.RoleManager, models.RoleEditor))
		{
			quizzer.GET("/banks/:bank/questions", hm.questionBankHandler.ListQuestions)
			quizzer.POST("/banks/:bank/questions", hm.questionBankHandler.AddQuestion)
			quizzer.GET("/banks/:bank/stats", hm.questionBankHandler.GetStats)
			quizzer.GET("/banks/:bank/next-id", hm.questionBankHandler.PeekNextID)
			quizzer.POST("/banks/:bank/import", hm.questionBankHandler.ImportQuestions)
			quizzer.GET("/banks/:bank/export", hm.questionBankHandler.ExportQuestions)
			quizzer.PUT("/questions/:question_id", hm.questionBankHandler.UpdateQuestion)

			// Editors may change questions but not remove them.
			quizzer.DELETE("/questions/:question_id",
				RequireScope(hm.verifier, models.ScopeQuizzer, models.RoleOwner, models.RoleManager),
				hm.questionBankHandler.DeleteQuestion)
		}

		exam := v1.Group("/exam")
		exam.Use(RequireScope(hm.verifier, models.ScopeTestTaker))
		{
			exam.GET("/setup", hm.examHandler.Setup)
			exam.POST("/submit", hm.examHandler.Submit)
			exam.POST("/fail", hm.examHandler.Fail)
		}

		v1.GET("/health", hm.health)
	}

	// Unprefixed alias for load balancer health checks.
	router.GET("/health", hm.health)
}

func (hm *HandlerManager) health(c *gin.Context) {
	if err := hm.serviceManager.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": "hat-assessment",
			"error":   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "hat-assessment",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
