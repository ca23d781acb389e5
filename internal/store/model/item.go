package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	api "github.com/roomstudio/asset-forge/api/v1alpha1"
)

type Item struct {
	ID                uuid.UUID `gorm:"primaryKey"`
	Name              string    `gorm:"not null"`
	ModelUrl          *string
	ProcessedImages   *JSONField[[]string] `gorm:"type:jsonb"`
	GenerationPending bool
	ActiveJobID       *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type ItemList []Item

func (i Item) String() string {
	val, _ := json.Marshal(i)
	return string(val)
}

func NewItemFromApiCreateResource(resource *api.CreateItemRequest) *Item {
	return &Item{
		ID:   uuid.New(),
		Name: resource.Name,
	}
}

func (i *Item) Images() []string {
	if i.ProcessedImages == nil {
		return nil
	}
	return i.ProcessedImages.Data
}

func (i *Item) ToApiResource() api.Item {
	return api.Item{
		ID:                i.ID,
		Name:              i.Name,
		ModelUrl:          i.ModelUrl,
		ProcessedImages:   i.Images(),
		GenerationPending: i.GenerationPending,
		ActiveJobID:       i.ActiveJobID,
		CreatedAt:         i.CreatedAt,
		UpdatedAt:         i.UpdatedAt,
	}
}
