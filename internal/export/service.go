package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/pressmesh/reconcile/internal/domain"
	"github.com/pressmesh/reconcile/internal/repository"
)

// Format selects the export file format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ErrUnsupportedFormat is returned when a caller asks for a format the
// service cannot render.
var ErrUnsupportedFormat = errors.New("unsupported export format")

var reviewHeader = []string{
	"id", "entity_type", "entity_id", "entity_name", "field",
	"current_value", "suggested_value", "source", "value_age_days",
	"variants", "confidence", "priority", "created_at",
}

// Service renders open conflict reviews as downloadable files for offline
// triage.
type Service struct {
	reviews repository.ReviewRepository
	now     func() time.Time
}

// NewService creates an export service.
func NewService(reviews repository.ReviewRepository) *Service {
	return &Service{reviews: reviews, now: time.Now}
}

// Result is a rendered export file.
type Result struct {
	FileName    string
	ContentType string
	Data        []byte
}

// OpenConflicts exports pending reviews matching the filter.
func (s *Service) OpenConflicts(ctx context.Context, filter domain.ReviewFilter, format Format) (Result, error) {
	reviews, err := s.reviews.ListOpen(ctx, filter)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load open conflicts: %w", err)
	}

	stamp := s.now().Format("20060102-150405")
	switch format {
	case FormatCSV:
		data, err := renderCSV(reviews)
		if err != nil {
			return Result{}, err
		}
		return Result{
			FileName:    fmt.Sprintf("open-conflicts-%s.csv", stamp),
			ContentType: "text/csv",
			Data:        data,
		}, nil
	case FormatXLSX, "":
		data, err := renderXLSX(reviews)
		if err != nil {
			return Result{}, err
		}
		return Result{
			FileName:    fmt.Sprintf("open-conflicts-%s.xlsx", stamp),
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        data,
		}, nil
	default:
		return Result{}, fmt.Errorf("%w %q", ErrUnsupportedFormat, format)
	}
}

func renderCSV(reviews []domain.ConflictReview) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(reviewHeader); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, review := range reviews {
		if err := writer.Write(reviewRow(review)); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func renderXLSX(reviews []domain.ConflictReview) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Open Conflicts"
	f.SetSheetName(f.GetSheetName(0), sheet)

	for col, title := range reviewHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to compute header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, title); err != nil {
			return nil, fmt.Errorf("failed to write header cell: %w", err)
		}
	}

	for i, review := range reviews {
		for col, value := range reviewRow(review) {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, fmt.Errorf("failed to compute cell: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write cell: %w", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func reviewRow(review domain.ConflictReview) []string {
	return []string{
		review.ID.String(),
		string(review.EntityType),
		review.EntityID.String(),
		review.EntityName,
		review.Field,
		renderValue(review.CurrentValue),
		renderValue(review.SuggestedValue),
		string(review.Evidence.CurrentValueSource),
		strconv.Itoa(review.Evidence.CurrentValueAgeDays),
		fmt.Sprintf("%d/%d", review.Evidence.NewVariantsCount, review.Evidence.TotalVariantsCount),
		strconv.FormatFloat(review.Confidence, 'f', 2, 64),
		string(review.Priority),
		review.CreatedAt.Format(time.RFC3339),
	}
}

func renderValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}
