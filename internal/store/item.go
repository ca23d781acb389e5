package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/roomstudio/asset-forge/internal/store/model"
)

// Item interface for consumer records referencing generated assets.
type Item interface {
	Create(ctx context.Context, item model.Item) (*model.Item, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Item, error)
	Update(ctx context.Context, item model.Item) (*model.Item, error)
}

type ItemStore struct {
	db *gorm.DB
}

// Make sure we conform to Item interface
var _ Item = (*ItemStore)(nil)

func NewItemStore(db *gorm.DB) Item {
	return &ItemStore{db: db}
}

func (s *ItemStore) Create(ctx context.Context, item model.Item) (*model.Item, error) {
	result := s.getDB(ctx).Create(&item)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("creating item: %w", result.Error)
	}
	return &item, nil
}

func (s *ItemStore) Get(ctx context.Context, id uuid.UUID) (*model.Item, error) {
	var item model.Item
	result := s.getDB(ctx).First(&item, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying item: %w", result.Error)
	}
	return &item, nil
}

func (s *ItemStore) Update(ctx context.Context, item model.Item) (*model.Item, error) {
	result := s.getDB(ctx).Save(&item)
	if result.Error != nil {
		return nil, fmt.Errorf("updating item: %w", result.Error)
	}
	return &item, nil
}

func (s *ItemStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
