package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/highspring-tester/hat/internal/services"
	"github.com/highspring-tester/hat/internal/utils"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	maxUploadBytes  = 10 << 20
)

type QuestionBankHandler struct {
	BaseHandler
	service      services.QuestionBankService
	importExport services.ImportExportService
}

func NewQuestionBankHandler(service services.QuestionBankService, importExport services.ImportExportService, logger utils.Logger) *QuestionBankHandler {
	return &QuestionBankHandler{
		BaseHandler:  NewBaseHandler(logger),
		service:      service,
		importExport: importExport,
	}
}

// ListQuestions returns every question of a bank
// @Summary List bank questions
// @Tags question-banks
// @Produce json
// @Param bank path string true "Bank name (program and project)"
// @Success 200 {object} services.QuestionListResponse
// @Router /quizzer/banks/{bank}/questions [get]
func (h *QuestionBankHandler) ListQuestions(c *gin.Context) {
	response, err := h.service.ListByBank(c.Request.Context(), c.Param("bank"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetStats returns per-tier counts and the resulting exam length
// @Summary Bank statistics
// @Tags question-banks
// @Produce json
// @Param bank path string true "Bank name"
// @Success 200 {object} models.BankStats
// @Router /quizzer/banks/{bank}/stats [get]
func (h *QuestionBankHandler) GetStats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context(), c.Param("bank"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// PeekNextID shows the id the next added question will receive without reserving it
// @Summary Preview next question id
// @Tags question-banks
// @Produce json
// @Param bank path string true "Bank name"
// @Router /quizzer/banks/{bank}/next-id [get]
func (h *QuestionBankHandler) PeekNextID(c *gin.Context) {
	id, err := h.service.PeekNextID(c.Request.Context(), c.Param("bank"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bank": strings.TrimSpace(c.Param("bank")), "nextId": id})
}

// AddQuestion appends a question to a bank under the next sequential id
// @Summary Add a question
// @Tags question-banks
// @Accept json
// @Produce json
// @Param bank path string true "Bank name"
// @Param request body services.QuestionRequest true "Question"
// @Success 201 {object} models.Question
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /quizzer/banks/{bank}/questions [post]
func (h *QuestionBankHandler) AddQuestion(c *gin.Context) {
	var req services.QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request payload", err)
		return
	}

	editor := h.claims(c).Subject
	h.LogRequest(c, "Adding question", "bank", c.Param("bank"), "editor", editor)

	question, err := h.service.Add(c.Request.Context(), c.Param("bank"), &req, editor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, question)
}

// UpdateQuestion replaces the content of a question, keeping its id and bank
// @Summary Update a question
// @Tags question-banks
// @Accept json
// @Produce json
// @Param question_id path string true "Question id, e.g. GB001"
// @Param request body services.QuestionRequest true "Question"
// @Success 200 {object} models.Question
// @Router /quizzer/questions/{question_id} [put]
func (h *QuestionBankHandler) UpdateQuestion(c *gin.Context) {
	var req services.QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request payload", err)
		return
	}

	question, err := h.service.Update(c.Request.Context(), c.Param("question_id"), &req, h.claims(c).Subject)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

// DeleteQuestion removes a question; its id is never reused
// @Summary Delete a question
// @Tags question-banks
// @Param question_id path string true "Question id"
// @Success 200 {object} SuccessResponse
// @Router /quizzer/questions/{question_id} [delete]
func (h *QuestionBankHandler) DeleteQuestion(c *gin.Context) {
	questionID := c.Param("question_id")
	h.LogRequest(c, "Deleting question", "question_id", questionID, "editor", h.claims(c).Subject)

	if err := h.service.Delete(c.Request.Context(), questionID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Question deleted successfully"})
}

// ImportQuestions adds questions from an uploaded workbook
// @Summary Import questions from xlsx
// @Tags question-banks
// @Accept multipart/form-data
// @Produce json
// @Param bank path string true "Bank name"
// @Param file formData file true "Workbook with question, difficulty, options, answer and links columns"
// @Success 200 {object} services.ImportResult
// @Router /quizzer/banks/{bank}/import [post]
func (h *QuestionBankHandler) ImportQuestions(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		h.badRequest(c, "Missing file upload", err)
		return
	}
	if header.Size > maxUploadBytes {
		h.badRequest(c, fmt.Sprintf("File exceeds %d MB", maxUploadBytes>>20), nil)
		return
	}

	file, err := header.Open()
	if err != nil {
		h.badRequest(c, "Unreadable file upload", err)
		return
	}
	defer file.Close()

	editor := h.claims(c).Subject
	h.LogRequest(c, "Importing questions", "bank", c.Param("bank"), "file", header.Filename, "editor", editor)

	result, err := h.importExport.ImportQuestions(c.Request.Context(), c.Param("bank"), file, editor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ExportQuestions downloads the bank as a workbook
// @Summary Export questions to xlsx
// @Tags question-banks
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param bank path string true "Bank name"
// @Router /quizzer/banks/{bank}/export [get]
func (h *QuestionBankHandler) ExportQuestions(c *gin.Context) {
	bank := strings.TrimSpace(c.Param("bank"))

	var buf bytes.Buffer
	if err := h.importExport.ExportQuestions(c.Request.Context(), bank, &buf); err != nil {
		h.handleServiceError(c, err)
		return
	}

	sendWorkbook(c, strings.ReplaceAll(bank, " ", "_")+"_questions.xlsx", &buf)
}

func sendWorkbook(c *gin.Context, filename string, buf *bytes.Buffer) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
