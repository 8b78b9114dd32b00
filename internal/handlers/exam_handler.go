package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/highspring-tester/hat/internal/services"
	"github.com/highspring-tester/hat/internal/utils"
)

type ExamHandler struct {
	BaseHandler
	service services.ExamService
}

func NewExamHandler(service services.ExamService, logger utils.Logger) *ExamHandler {
	return &ExamHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// Setup returns the candidate profile and a freshly assembled exam
// @Summary Fetch the exam for the logged-in candidate
// @Tags exam
// @Produce json
// @Success 200 {object} services.ExamSetupResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse "Already attempted"
// @Failure 404 {object} ErrorResponse "Bank empty"
// @Router /exam/setup [get]
func (h *ExamHandler) Setup(c *gin.Context) {
	claims := h.claims(c)
	h.LogRequest(c, "Fetching exam", "candidate_id", claims.CandidateID)

	response, err := h.service.FetchExam(c.Request.Context(), claims)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// Submit records a completed attempt
// @Summary Submit the exam outcome
// @Tags exam
// @Accept json
// @Produce json
// @Param request body services.SubmitRequest true "Outcome"
// @Success 200 {object} services.ExamResultResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse "Already submitted"
// @Router /exam/submit [post]
func (h *ExamHandler) Submit(c *gin.Context) {
	var req services.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request payload", err)
		return
	}

	claims := h.claims(c)
	h.LogRequest(c, "Submitting exam", "candidate_id", claims.CandidateID, "score", req.ScoreString)

	response, err := h.service.Submit(c.Request.Context(), claims, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// Fail records a disqualification
// @Summary Disqualify the current attempt
// @Tags exam
// @Accept json
// @Produce json
// @Param request body services.FailRequest true "Failure reason"
// @Success 200 {object} services.ExamResultResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse "Already submitted"
// @Router /exam/fail [post]
func (h *ExamHandler) Fail(c *gin.Context) {
	var req services.FailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request payload", err)
		return
	}

	claims := h.claims(c)
	h.LogRequest(c, "Failing exam", "candidate_id", claims.CandidateID)

	response, err := h.service.Fail(c.Request.Context(), claims, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}
