package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-exam-results/internal/models"
	"github.com/noah-isme/sma-exam-results/pkg/export"
	appErrors "github.com/noah-isme/sma-exam-results/pkg/errors"
)

// ExportFormat selects the rendered sheet type.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

var classSheetHeaders = []string{"Rank", "Roll No", "Student", "Marks", "Total", "Percentage", "Grade", "Subjects Passed", "Status"}

// ExportFile is a rendered sheet ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders class result sheets.
type ExportService struct {
	db      txProvider
	exams   examinationReader
	results resultViewReader
	csv     datasetRenderer
	pdf     datasetRenderer
	logger  *zap.Logger
}

// NewExportService constructs an ExportService. Nil renderers fall back to the package defaults.
func NewExportService(db txProvider, exams examinationReader, results resultViewReader, csv, pdf datasetRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter("L")
	}
	return &ExportService{db: db, exams: exams, results: results, csv: csv, pdf: pdf, logger: logger}
}

// ClassSheet renders the ranked results of one class.
func (s *ExportService) ClassSheet(ctx context.Context, tenantID, examID, classID string, format ExportFormat) (*ExportFile, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	format = ExportFormat(strings.ToLower(string(format)))
	if format == "" {
		format = ExportCSV
	}
	var renderer datasetRenderer
	contentType := ""
	switch format {
	case ExportCSV:
		renderer, contentType = s.csv, "text/csv"
	case ExportPDF:
		renderer, contentType = s.pdf, "application/pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrUnsupportedFormat, fmt.Sprintf("format %q is not supported", format))
	}
	if classID == "" {
		return nil, validationError("class id is required")
	}

	exam, err := s.exams.FindByID(ctx, s.db, tenantID, examID)
	if err != nil {
		return nil, lookupError(err, "examination not found", "failed to load examination")
	}
	views, err := s.results.ListViews(ctx, examID, models.ResultFilter{ClassID: classID})
	if err != nil {
		return nil, internalError(err, "failed to list results")
	}

	data, err := renderer.Render(classSheetDataset(exam, views))
	if err != nil {
		return nil, internalError(err, "failed to render result sheet")
	}
	s.logger.Info("result sheet exported",
		zap.String("examination_id", examID),
		zap.String("class_id", classID),
		zap.String("format", string(format)),
		zap.Int("rows", len(views)))
	return &ExportFile{
		Filename:    fmt.Sprintf("results-%s-%s.%s", examID, classID, format),
		ContentType: contentType,
		Data:        data,
	}, nil
}

func classSheetDataset(exam *models.Examination, views []models.ResultView) export.Dataset {
	rows := make([]map[string]string, 0, len(views))
	for _, v := range views {
		rank := "-"
		if v.RankInClass != nil {
			rank = strconv.Itoa(*v.RankInClass)
		}
		roll := ""
		if v.RollNumber != nil {
			roll = *v.RollNumber
		}
		rows = append(rows, map[string]string{
			"Rank":            rank,
			"Roll No":         roll,
			"Student":         v.StudentName,
			"Marks":           formatMark(v.MarksObtained),
			"Total":           formatMark(v.TotalMarks),
			"Percentage":      formatMark(v.Percentage),
			"Grade":           v.Grade,
			"Subjects Passed": fmt.Sprintf("%d/%d", v.SubjectsPassed, v.SubjectsAppeared),
			"Status":          string(v.PassStatus()),
		})
	}
	stats := computeStats(views)
	return export.Dataset{
		Title:   exam.Name + " Results",
		Headers: classSheetHeaders,
		Rows:    rows,
		Summary: []export.SummaryLine{
			{Label: "Students", Value: strconv.Itoa(stats.Total)},
			{Label: "Passed", Value: strconv.Itoa(stats.Passed)},
			{Label: "Failed", Value: strconv.Itoa(stats.Failed)},
			{Label: "Pass %", Value: formatMark(stats.PassPercentage)},
			{Label: "Average %", Value: formatMark(stats.AveragePercentage)},
		},
	}
}

func formatMark(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
