package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-service/internal/config"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"github.com/SAP-F-2025/exam-service/internal/services"
	"github.com/SAP-F-2025/exam-service/internal/utils"
	"github.com/SAP-F-2025/exam-service/internal/validator"
)

type HandlerManager struct {
	examHandler       *ExamHandler
	attemptHandler    *AttemptHandler
	courseHandler     *CourseHandler
	assignmentHandler *AssignmentHandler
	userHandler       *UserHandler
	authMiddleware    *CasdoorAuthMiddleware
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	casdoorConfig config.CasdoorConfig,
	userRepo repositories.UserRepository,
) *HandlerManager {
	authMiddleware := NewCasdoorAuthMiddleware(casdoorConfig, userRepo)

	return &HandlerManager{
		examHandler:       NewExamHandler(serviceManager.Exam(), serviceManager.Export(), validator, logger),
		attemptHandler:    NewAttemptHandler(serviceManager.Attempt(), validator, logger),
		courseHandler:     NewCourseHandler(serviceManager.Prerequisite(), logger),
		assignmentHandler: NewAssignmentHandler(serviceManager.Assignment(), validator, logger),
		userHandler:       NewUserHandler(userRepo, logger),
		authMiddleware:    authMiddleware,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	staffOnly := hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleAdmin)

	// API v1 routes with authentication
	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		// Exam routes
		exams := v1.Group("/exams")
		{
			// Authoring - Teachers and Admins only
			exams.POST("", staffOnly, hm.examHandler.CreateExam)
			exams.POST("/:id/questions", staffOnly, hm.examHandler.AddQuestion)
			exams.POST("/:id/publish", staffOnly, hm.examHandler.PublishExam)
			exams.POST("/:id/archive", staffOnly, hm.examHandler.ArchiveExam)
			exams.GET("/:id/results/export", staffOnly, hm.examHandler.ExportResults)

			// Taking and viewing - all authenticated users
			exams.GET("", hm.examHandler.ListExams)
			exams.GET("/:id", hm.examHandler.GetExam)
			exams.POST("/:id/start", hm.attemptHandler.StartAttemptByExam)
		}

		// Attempt routes
		attempts := v1.Group("/attempts")
		{
			attempts.GET("", hm.attemptHandler.ListAttempts)
			attempts.GET("/:id", hm.attemptHandler.GetAttempt)
			attempts.POST("/:id/start", hm.attemptHandler.StartAttempt)
			attempts.POST("/:id/answer", hm.attemptHandler.RecordAnswer)
			attempts.POST("/:id/review", hm.attemptHandler.MarkReview)
			attempts.POST("/:id/finish", hm.attemptHandler.FinishAttempt)

			// Stats - Teachers and Admins only
			attempts.GET("/stats/:exam_id", staffOnly, hm.attemptHandler.GetAttemptStats)
		}

		// Course enrollment routes
		courses := v1.Group("/courses")
		{
			courses.GET("/:id/prerequisites/check", hm.courseHandler.CheckPrerequisites)
			courses.POST("/:id/enroll", hm.courseHandler.Enroll)
		}

		// Assignment routes - Teachers and Admins only
		assignments := v1.Group("/assignments")
		assignments.Use(staffOnly)
		{
			assignments.POST("", hm.assignmentHandler.IssueAssignment)
			assignments.GET("/:id/submissions", hm.assignmentHandler.ListSubmissions)
		}
		v1.POST("/submissions/:id/grade", staffOnly, hm.assignmentHandler.GradeSubmission)

		// User routes
		users := v1.Group("/users")
		{
			users.GET("", hm.userHandler.ListUsers)
			users.GET("/:id", hm.userHandler.GetUser)
		}
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "exam-service",
		})
	})
}
