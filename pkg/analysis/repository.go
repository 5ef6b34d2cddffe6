package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrReportNotFound = errors.New("analysis report not found")

// ReportModel is the durable row for one generated report. Sections, patient
// snapshot and metadata are stored as JSON so the report round-trips without
// re-fetching clinical data.
type ReportModel struct {
	ID        string `gorm:"primaryKey"`
	ReportID  string `gorm:"uniqueIndex;not null"`
	PatientID string `gorm:"index:idx_analysis_patient_date;not null"`

	ReportDate   time.Time `gorm:"index:idx_analysis_patient_date;not null"`
	GeneratedBy  string    `gorm:"not null"`
	AnalysisType string    `gorm:"default:comprehensive"`

	ExecutiveSummary   string `gorm:"type:text"`
	OverallHealthScore *int

	Patient   datatypes.JSONMap
	DateRange datatypes.JSONMap
	Sections  datatypes.JSONMap
	Metadata  datatypes.JSONMap

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ReportModel) TableName() string { return "ai_analyses" }

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&ReportModel{})
}

func (r *Repository) Save(ctx context.Context, report Report) error {
	model := ReportModel{
		ID:                 uuid.New().String(),
		ReportID:           report.ReportID,
		PatientID:          report.Patient.ID,
		ReportDate:         report.ReportDate,
		GeneratedBy:        report.GeneratedBy,
		AnalysisType:       "comprehensive",
		ExecutiveSummary:   report.ExecutiveSummary,
		OverallHealthScore: report.OverallHealthScore,
	}

	var err error
	if model.Patient, err = toJSONMap(report.Patient); err != nil {
		return err
	}
	if model.DateRange, err = toJSONMap(report.AnalysisDateRange); err != nil {
		return err
	}
	if model.Sections, err = toJSONMap(report.Sections); err != nil {
		return err
	}
	if model.Metadata, err = toJSONMap(report.Metadata); err != nil {
		return err
	}

	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *Repository) GetByReportID(ctx context.Context, reportID string) (Report, error) {
	var model ReportModel
	err := r.db.WithContext(ctx).First(&model, "report_id = ?", reportID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Report{}, ErrReportNotFound
	}
	if err != nil {
		return Report{}, err
	}

	report := Report{
		ReportID:           model.ReportID,
		ReportDate:         model.ReportDate,
		GeneratedBy:        model.GeneratedBy,
		ExecutiveSummary:   model.ExecutiveSummary,
		OverallHealthScore: model.OverallHealthScore,
	}
	if err := fromJSONMap(model.Patient, &report.Patient); err != nil {
		return Report{}, err
	}
	if err := fromJSONMap(model.DateRange, &report.AnalysisDateRange); err != nil {
		return Report{}, err
	}
	if err := fromJSONMap(model.Sections, &report.Sections); err != nil {
		return Report{}, err
	}
	if err := fromJSONMap(model.Metadata, &report.Metadata); err != nil {
		return Report{}, err
	}
	return report, nil
}

// ListByPatient returns recent report summaries for a patient, newest first.
func (r *Repository) ListByPatient(ctx context.Context, patientID string, limit int) ([]ReportModel, error) {
	if limit <= 0 {
		limit = 20
	}
	var models []ReportModel
	err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("report_date DESC").
		Limit(limit).
		Find(&models).Error
	return models, err
}

func toJSONMap(v interface{}) (datatypes.JSONMap, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, err
	}
	return datatypes.JSONMap(m), nil
}

func fromJSONMap(m datatypes.JSONMap, out interface{}) error {
	if m == nil {
		return nil
	}
	payload, err := json.Marshal(map[string]interface{}(m))
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, out)
}
