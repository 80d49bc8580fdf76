package gallery

import (
	"context"
	"errors"

	"github.com/eleven-am/smart-selfie/internal/shared"
	"gorm.io/gorm"
)

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&Photo{})
}

func (s *Store) Create(ctx context.Context, photo *Photo) error {
	if photo.ID == "" {
		photo.ID = shared.NewID("photo_")
	}

	err := s.db.WithContext(ctx).Create(photo).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.ErrConflict
	}
	return err
}

// List returns photos newest first. A non-positive limit returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]*Photo, error) {
	var photos []*Photo
	q := s.db.WithContext(ctx).Order("captured_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&photos).Error
	return photos, err
}

func (s *Store) GetByFilename(ctx context.Context, filename string) (*Photo, error) {
	var photo Photo
	err := s.db.WithContext(ctx).Where("filename = ?", filename).First(&photo).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.ErrNotFound
	}
	return &photo, err
}

func (s *Store) Delete(ctx context.Context, filename string) error {
	result := s.db.WithContext(ctx).Where("filename = ?", filename).Delete(&Photo{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).Where("1 = 1").Delete(&Photo{})
	return result.RowsAffected, result.Error
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&Photo{}).Count(&n).Error
	return n, err
}
