package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// EquipmentItem is one entry of the lab inventory catalog. Required items form
// the exact set the student must select during StageEquipment.
type EquipmentItem struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"size:128;uniqueIndex;not null" json:"name"`
	Required bool   `gorm:"not null" json:"required"`
}

// Mineral is a row of the reference density table shown at StageMineral.
// Expected marks the designated correct identification for the seeded sample.
type Mineral struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Name         string `gorm:"size:128;uniqueIndex;not null" json:"name"`
	DensityLabel string `gorm:"size:64;not null" json:"density"`
	Expected     bool   `gorm:"not null" json:"-"`
}

// SafetyOption is one answer of the PPE question at StageSafety.
type SafetyOption struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Key     string `gorm:"size:32;uniqueIndex;not null" json:"key"`
	Label   string `gorm:"size:128;not null" json:"label"`
	Correct bool   `gorm:"not null" json:"-"`
}

// LabRecord archives a frozen ProgressRecord. The full record travels as a
// JSON payload; the scalar columns exist for listing and lookups.
type LabRecord struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	SessionID   string         `gorm:"size:64;uniqueIndex;not null" json:"session_id"`
	StudentName string         `gorm:"size:255;not null" json:"student_name"`
	Course      string         `gorm:"size:255" json:"course"`
	Score       int            `gorm:"not null" json:"score"`
	Payload     datatypes.JSON `gorm:"type:json" json:"-"`
	CompletedAt time.Time      `json:"completed_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// SetRecord serializes the frozen record into the payload column.
func (l *LabRecord) SetRecord(record ProgressRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	l.Payload = datatypes.JSON(data)
	return nil
}

// Record deserializes the archived payload back into a ProgressRecord.
func (l LabRecord) Record() (ProgressRecord, error) {
	var record ProgressRecord
	if err := json.Unmarshal(l.Payload, &record); err != nil {
		return ProgressRecord{}, err
	}
	return record, nil
}

// DefaultEquipment returns the seeded inventory catalog. Exactly four items
// are required to measure mass and volume by displacement.
func DefaultEquipment() []EquipmentItem {
	return []EquipmentItem{
		{Name: "Balanza", Required: true},
		{Name: "Probeta", Required: true},
		{Name: "Agua", Required: true},
		{Name: "Muestra de Mena", Required: true},
		{Name: "Vaso de precipitados", Required: false},
		{Name: "Matraz Erlenmeyer", Required: false},
		{Name: "Termómetro", Required: false},
		{Name: "Mechero Bunsen", Required: false},
	}
}

// DefaultMinerals returns the seeded reference density table. The oxidised
// copper ore sample runs lighter than pure chalcopyrite, so the expected
// answer is flagged explicitly instead of being inferred from the ranges.
func DefaultMinerals() []Mineral {
	return []Mineral{
		{Name: "Cuarzo", DensityLabel: "2.65 g/cm³"},
		{Name: "Calcopirita (Mena de Cobre)", DensityLabel: "4.1 - 4.3 g/cm³", Expected: true},
		{Name: "Hematita (Mena de Hierro)", DensityLabel: "5.26 g/cm³"},
		{Name: "Galena (Mena de Plomo)", DensityLabel: "7.58 g/cm³"},
	}
}

// DefaultSafetyOptions returns the seeded PPE question answers.
func DefaultSafetyOptions() []SafetyOption {
	return []SafetyOption{
		{Key: "guantes", Label: "Guantes de látex"},
		{Key: "gafas", Label: "Gafas de seguridad", Correct: true},
		{Key: "bata", Label: "Bata de laboratorio"},
		{Key: "mascarilla", Label: "Mascarilla antipolvo"},
	}
}
