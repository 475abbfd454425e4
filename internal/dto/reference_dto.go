package dto

import "github.com/noah-isme/minlab-go-api/internal/models"

// EquipmentItemResponse is one inventory entry. Whether the item is required
// is deliberately not exposed; guessing the set is part of the exercise.
type EquipmentItemResponse struct {
	Name string `json:"name"`
}

// NewEquipmentResponseSlice maps the catalog rows for the inventory screen.
func NewEquipmentResponseSlice(items []models.EquipmentItem) []EquipmentItemResponse {
	responses := make([]EquipmentItemResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, EquipmentItemResponse{Name: item.Name})
	}
	return responses
}

// MineralResponse is one row of the reference density table.
type MineralResponse struct {
	Name    string `json:"name"`
	Density string `json:"density"`
}

// NewMineralResponseSlice maps the density table without the expected flag.
func NewMineralResponseSlice(minerals []models.Mineral) []MineralResponse {
	responses := make([]MineralResponse, 0, len(minerals))
	for _, mineral := range minerals {
		responses = append(responses, MineralResponse{Name: mineral.Name, Density: mineral.DensityLabel})
	}
	return responses
}

// SafetyOptionResponse is one PPE answer choice, without the correctness flag.
type SafetyOptionResponse struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// NewSafetyOptionResponseSlice maps the PPE question choices.
func NewSafetyOptionResponseSlice(options []models.SafetyOption) []SafetyOptionResponse {
	responses := make([]SafetyOptionResponse, 0, len(options))
	for _, option := range options {
		responses = append(responses, SafetyOptionResponse{Key: option.Key, Label: option.Label})
	}
	return responses
}
