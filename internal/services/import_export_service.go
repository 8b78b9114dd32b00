package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/highspring-tester/hat/internal/models"
	"github.com/highspring-tester/hat/internal/repositories"
)

const (
	questionSheet  = "Questions"
	candidateSheet = "Candidates"
	maxImportRows  = 2000
)

var questionColumns = []string{"Question ID", "Question", "Difficulty", "Options", "Answer", "Links"}

var candidateColumns = []string{
	"Name", "Email", "Program", "Project", "Recruiter", "Recruiter Email",
	"Status", "Result", "Score", "Disqualification", "Completed At",
}

type importExportService struct {
	repo   repositories.Repository
	bank   QuestionBankService
	logger *slog.Logger
}

func NewImportExportService(repo repositories.Repository, bank QuestionBankService, logger *slog.Logger) ImportExportService {
	return &importExportService{
		repo:   repo,
		bank:   bank,
		logger: logger,
	}
}

// ImportQuestions adds every valid row of the first sheet to bank. Rows are
// matched by header name; invalid rows are reported and skipped.
func (s *importExportService) ImportQuestions(ctx context.Context, bank string, r io.Reader, editor string) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fieldError("file", "must be a valid xlsx workbook")
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("failed to read workbook: %w", err)
	}
	if len(rows) < 2 {
		return nil, fieldError("file", "must contain a header row and at least one question")
	}
	if len(rows)-1 > maxImportRows {
		return nil, fieldError("file", fmt.Sprintf("must not contain more than %d questions", maxImportRows))
	}

	cols := headerIndex(rows[0])
	for _, required := range []string{"question", "difficulty", "options", "answer"} {
		if _, ok := cols[required]; !ok {
			return nil, fieldError("file", fmt.Sprintf("missing %q column", required))
		}
	}

	result := &ImportResult{Bank: strings.TrimSpace(bank), Imported: []string{}, Failed: []ImportRowError{}}
	for i, row := range rows[1:] {
		rowNum := i + 2
		if isBlankRow(row) {
			continue
		}

		req := &QuestionRequest{
			Question:   cell(row, cols, "question"),
			Difficulty: models.DifficultyTier(strings.ToLower(cell(row, cols, "difficulty"))),
			Options:    cell(row, cols, "options"),
			Answer:     cell(row, cols, "answer"),
			Links:      strings.Fields(cell(row, cols, "links")),
		}
		q, err := s.bank.Add(ctx, bank, req, editor)
		if err != nil {
			result.Failed = append(result.Failed, ImportRowError{Row: rowNum, Message: err.Error()})
			continue
		}
		result.Imported = append(result.Imported, q.QuestionID)
	}

	s.logger.Info("Questions imported",
		"bank", result.Bank,
		"imported", len(result.Imported),
		"failed", len(result.Failed),
		"editor", editor)
	return result, nil
}

func (s *importExportService) ExportQuestions(ctx context.Context, bank string, w io.Writer) error {
	list, err := s.bank.ListByBank(ctx, bank)
	if err != nil {
		return err
	}

	rows := make([][]interface{}, 0, len(list.Questions))
	for _, q := range list.Questions {
		rows = append(rows, []interface{}{
			q.QuestionID, q.Question, string(q.Difficulty), q.Options, q.Answer, strings.Join(q.Links, "\n"),
		})
	}
	return writeWorkbook(w, questionSheet, questionColumns, rows)
}

func (s *importExportService) ExportCandidates(ctx context.Context, filters repositories.CandidateFilters, w io.Writer) error {
	candidates, _, err := s.repo.Candidate().List(ctx, filters)
	if err != nil {
		return fmt.Errorf("failed to list candidates: %w", err)
	}

	rows := make([][]interface{}, 0, len(candidates))
	for _, c := range candidates {
		completed := ""
		if c.CompletedAt != nil {
			completed = c.CompletedAt.UTC().Format(time.RFC3339)
		}
		rows = append(rows, []interface{}{
			c.Name, c.Email, c.Program, c.Project, c.RecruiterName, c.RecruiterEmail,
			c.Status, c.Result, c.Score, c.VideoLink, completed,
		})
	}
	return writeWorkbook(w, candidateSheet, candidateColumns, rows)
}

func writeWorkbook(w io.Writer, sheet string, header []string, rows [][]interface{}) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerCells := make([]interface{}, len(header))
	for i, h := range header {
		headerCells[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headerCells); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	lastCol, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(sheet, "A1", lastCol, style); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, row := range rows {
		start, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, start, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if key == "question id" {
			key = "question_id"
		}
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

func cell(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
