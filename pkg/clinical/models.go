package clinical

import (
	"time"
)

// Patient carries demographics and the clinical snapshot used by report
// generation.
type Patient struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	FirstName   string    `gorm:"not null" json:"first_name"`
	LastName    string    `gorm:"not null" json:"last_name"`
	DateOfBirth time.Time `json:"date_of_birth"`
	Age         int       `gorm:"not null" json:"age"`
	Sex         string    `gorm:"size:10;not null" json:"sex"`

	Weight    float64 `json:"weight"` // kg
	Height    float64 `json:"height"` // meters
	BMI       float64 `json:"bmi"`
	Status    string  `gorm:"default:active" json:"status"`
	RiskLevel string  `gorm:"default:low" json:"risk_level"`

	Allergies         string `json:"allergies,omitempty"`
	ChronicConditions string `json:"chronic_conditions,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Patient) TableName() string { return "patients" }

func (p *Patient) FullName() string {
	return p.FirstName + " " + p.LastName
}

// Vital is one timestamped set of measurements.
type Vital struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	PatientID string    `gorm:"index:idx_vital_patient_timestamp;not null" json:"patient_id"`
	Timestamp time.Time `gorm:"index:idx_vital_patient_timestamp;not null" json:"timestamp"`

	BloodPressureSystolic  float64 `json:"blood_pressure_systolic"`  // mmHg
	BloodPressureDiastolic float64 `json:"blood_pressure_diastolic"` // mmHg
	HeartRate              float64 `json:"heart_rate"`               // bpm
	Temperature            float64 `json:"temperature"`              // Celsius
	OxygenSaturation       float64 `json:"oxygen_saturation"`        // %
	RespiratoryRate        float64 `json:"respiratory_rate"`         // breaths/min

	RecordedBy string `json:"recorded_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (Vital) TableName() string { return "vitals" }

// Medication is one prescription row.
type Medication struct {
	ID        string `gorm:"primaryKey" json:"id"`
	PatientID string `gorm:"index:idx_medication_active;not null" json:"patient_id"`

	Name      string `gorm:"not null" json:"name"`
	Dosage    string `gorm:"not null" json:"dosage"`
	Frequency string `gorm:"not null" json:"frequency"`
	Route     string `json:"route,omitempty"`

	PrescribedBy string     `json:"prescribed_by,omitempty"`
	StartDate    time.Time  `json:"start_date"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	IsActive     bool       `gorm:"index:idx_medication_active;default:true" json:"is_active"`

	Indication string `json:"indication,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Medication) TableName() string { return "medications" }

// ChatMessage is one turn of an assistant conversation.
type ChatMessage struct {
	ID             string    `gorm:"primaryKey" json:"id"`
	UserID         string    `gorm:"index:idx_chat_user_conversation;not null" json:"user_id"`
	ConversationID string    `gorm:"index:idx_chat_user_conversation;not null" json:"conversation_id"`
	Role           string    `gorm:"not null" json:"role"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

func (ChatMessage) TableName() string { return "chat_messages" }
