package clinical

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrPatientNotFound = errors.New("patient not found")

// Repository provides read access to patient records and persistence for
// chat history. Analysis reads it; it never writes clinical data.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&Patient{}, &Vital{}, &Medication{}, &ChatMessage{})
}

func (r *Repository) GetPatient(ctx context.Context, patientID string) (*Patient, error) {
	var patient Patient
	err := r.db.WithContext(ctx).First(&patient, "id = ?", patientID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, err
	}
	return &patient, nil
}

// ListVitalsInRange returns readings newest-first. Nil bounds are open ended.
func (r *Repository) ListVitalsInRange(ctx context.Context, patientID string, from, to *time.Time) ([]Vital, error) {
	query := r.db.WithContext(ctx).Where("patient_id = ?", patientID)
	if from != nil {
		query = query.Where("timestamp >= ?", *from)
	}
	if to != nil {
		query = query.Where("timestamp <= ?", *to)
	}

	var vitals []Vital
	if err := query.Order("timestamp DESC").Find(&vitals).Error; err != nil {
		return nil, err
	}
	return vitals, nil
}

func (r *Repository) ListActiveMedications(ctx context.Context, patientID string) ([]Medication, error) {
	var medications []Medication
	err := r.db.WithContext(ctx).
		Where("patient_id = ? AND is_active = ?", patientID, true).
		Find(&medications).Error
	if err != nil {
		return nil, err
	}
	return medications, nil
}

// ChatHistory returns the most recent messages of a conversation in
// chronological order.
func (r *Repository) ChatHistory(ctx context.Context, userID, conversationID string, limit int) ([]ChatMessage, error) {
	var messages []ChatMessage
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if conversationID != "" {
		query = query.Where("conversation_id = ?", conversationID)
	}
	if limit <= 0 {
		limit = 50
	}

	if err := query.Order("created_at DESC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *Repository) SaveChatMessage(ctx context.Context, msg *ChatMessage) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *Repository) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND conversation_id = ?", userID, conversationID).
		Delete(&ChatMessage{}).Error
}
