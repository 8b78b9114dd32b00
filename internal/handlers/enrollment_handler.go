package handlers

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/highspring-tester/hat/internal/repositories"
	"github.com/highspring-tester/hat/internal/services"
	"github.com/highspring-tester/hat/internal/utils"
)

type EnrollmentHandler struct {
	BaseHandler
	service services.EnrollmentService
}

func NewEnrollmentHandler(service services.EnrollmentService, logger utils.Logger) *EnrollmentHandler {
	return &EnrollmentHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// EnrollCandidate registers a candidate and mails the invitation
// @Summary Enroll a candidate
// @Tags enrollment
// @Accept json
// @Produce json
// @Param request body services.EnrollCandidateRequest true "Candidate"
// @Success 201 {object} services.EnrollCandidateResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Candidate already enrolled"
// @Router /enrollment/candidates [post]
func (h *EnrollmentHandler) EnrollCandidate(c *gin.Context) {
	var req services.EnrollCandidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request payload", err)
		return
	}

	claims := h.claims(c)
	h.LogRequest(c, "Enrolling candidate", "program", req.Program, "project", req.Project, "enrolled_by", claims.Subject)

	response, err := h.service.EnrollCandidate(c.Request.Context(), &req, claims)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response)
}

// ListCandidates lists candidates and their outcomes
// @Summary List candidates
// @Tags enrollment
// @Produce json
// @Param program query string false "Program"
// @Param project query string false "Project"
// @Param status query string false "Status"
// @Param finished query bool false "Only finished (true) or open (false) attempts"
// @Param page query int false "Page" default(1)
// @Param size query int false "Page size" default(50)
// @Success 200 {object} services.CandidateListResponse
// @Router /enrollment/candidates [get]
func (h *EnrollmentHandler) ListCandidates(c *gin.Context) {
	response, err := h.service.ListResults(c.Request.Context(), h.parseCandidateFilters(c, true))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// ExportCandidates downloads candidate outcomes as a workbook
// @Summary Export candidates to xlsx
// @Tags enrollment
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Router /enrollment/candidates/export [get]
func (h *EnrollmentHandler) ExportCandidates(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.service.ExportResults(c.Request.Context(), h.parseCandidateFilters(c, false), &buf); err != nil {
		h.handleServiceError(c, err)
		return
	}

	sendWorkbook(c, "candidates_"+time.Now().UTC().Format("20060102")+".xlsx", &buf)
}

func (h *EnrollmentHandler) parseCandidateFilters(c *gin.Context, paged bool) repositories.CandidateFilters {
	filters := repositories.CandidateFilters{
		Program: c.Query("program"),
		Project: c.Query("project"),
		Status:  c.Query("status"),
	}
	if finished, err := strconv.ParseBool(c.Query("finished")); err == nil {
		filters.Finished = &finished
	}

	if paged {
		page := h.parseIntQuery(c, "page", 1)
		if page < 1 {
			page = 1
		}
		size := h.parseIntQuery(c, "size", 50)
		if size < 1 || size > 500 {
			size = 50
		}
		filters.Limit = size
		filters.Offset = (page - 1) * size
	}
	return filters
}
