package repository

import (
	"context"
	"errors"

	"github.com/sifan077/PowerDrive/internal/app/model"
	"gorm.io/gorm"
)

// ErrFileNotFound signals that the requested file does not exist.
var ErrFileNotFound = errors.New("file not found")

// FileRepository is the slice of file storage the sharing flows depend on.
type FileRepository interface {
	Create(ctx context.Context, file *model.File) error
	GetByID(ctx context.Context, id uint64) (*model.File, error)
	Delete(ctx context.Context, id uint64) error
}

type fileRepository struct {
	db *gorm.DB
}

// NewFileRepository returns a GORM-backed FileRepository.
func NewFileRepository(db *gorm.DB) FileRepository {
	return &fileRepository{db: db}
}

func (r *fileRepository) Create(ctx context.Context, file *model.File) error {
	return r.db.WithContext(ctx).Create(file).Error
}

func (r *fileRepository) GetByID(ctx context.Context, id uint64) (*model.File, error) {
	var file model.File
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&file).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	return &file, nil
}

func (r *fileRepository) Delete(ctx context.Context, id uint64) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.File{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrFileNotFound
	}
	return nil
}
