package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	api "github.com/roomstudio/asset-forge/api/v1alpha1"
	"github.com/roomstudio/asset-forge/internal/store"
	"github.com/roomstudio/asset-forge/internal/store/model"
)

type ItemService struct {
	store store.Store
}

func NewItemService(s store.Store) *ItemService {
	return &ItemService{store: s}
}

func (s *ItemService) CreateItem(ctx context.Context, resource api.CreateItemRequest) (*api.Item, error) {
	if resource.Name == "" {
		return nil, NewErrInvalidRequest("name is required")
	}

	item, err := s.store.Item().Create(ctx, *model.NewItemFromApiCreateResource(&resource))
	if err != nil {
		return nil, err
	}

	apiItem := item.ToApiResource()
	return &apiItem, nil
}

func (s *ItemService) GetItem(ctx context.Context, id uuid.UUID) (*api.Item, error) {
	item, err := s.store.Item().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrItemNotFound(id)
		}
		return nil, err
	}

	apiItem := item.ToApiResource()
	return &apiItem, nil
}
