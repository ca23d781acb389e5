package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/roomstudio/asset-forge/internal/store/model"
)

type Store interface {
	NewTransactionContext(ctx context.Context) (context.Context, error)
	Job() Job
	Item() Item
	InitialMigration() error
	Close() error
}

type DataStore struct {
	db   *gorm.DB
	job  Job
	item Item
}

func NewStore(db *gorm.DB) Store {
	return &DataStore{
		db:   db,
		job:  NewJobStore(db),
		item: NewItemStore(db),
	}
}

func (s *DataStore) NewTransactionContext(ctx context.Context) (context.Context, error) {
	return newTransactionContext(ctx, s.db)
}

func (s *DataStore) Job() Job {
	return s.job
}

func (s *DataStore) Item() Item {
	return s.item
}

func (s *DataStore) InitialMigration() error {
	return s.db.AutoMigrate(&model.Job{}, &model.Item{})
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
