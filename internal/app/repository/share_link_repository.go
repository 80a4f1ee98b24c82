package repository

import (
	"context"
	"errors"

	"github.com/sifan077/PowerDrive/internal/app/model"
	"gorm.io/gorm"
)

var (
	// ErrShareLinkNotFound signals that no link matches the requested key.
	ErrShareLinkNotFound = errors.New("share link not found")
	// ErrDuplicateToken signals that a link with the same token already exists.
	ErrDuplicateToken = errors.New("share token already exists")
)

// ShareLinkRepository defines the data access contract for share links.
// It stores records exactly as given and never interprets expiry or ownership.
type ShareLinkRepository interface {
	Create(ctx context.Context, link *model.ShareLink) error
	FindByToken(ctx context.Context, token string) (*model.ShareLink, error)
	FindByID(ctx context.Context, id uint64) (*model.ShareLink, error)
	FindAllByFileID(ctx context.Context, fileID uint64) ([]model.ShareLink, error)
	DeleteByID(ctx context.Context, id uint64) (bool, error)
	DeleteByFileID(ctx context.Context, fileID uint64) ([]model.ShareLink, error)
	ListTokens(ctx context.Context) ([]string, error)
}

type shareLinkRepository struct {
	db *gorm.DB
}

// NewShareLinkRepository returns a GORM-backed ShareLinkRepository.
func NewShareLinkRepository(db *gorm.DB) ShareLinkRepository {
	return &shareLinkRepository{db: db}
}

func (r *shareLinkRepository) Create(ctx context.Context, link *model.ShareLink) error {
	if err := r.db.WithContext(ctx).Create(link).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateToken
		}
		return err
	}
	return nil
}

func (r *shareLinkRepository) FindByToken(ctx context.Context, token string) (*model.ShareLink, error) {
	return r.first(ctx, "token = ?", token)
}

func (r *shareLinkRepository) FindByID(ctx context.Context, id uint64) (*model.ShareLink, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *shareLinkRepository) first(ctx context.Context, query string, arg interface{}) (*model.ShareLink, error) {
	var link model.ShareLink
	if err := r.db.WithContext(ctx).Where(query, arg).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShareLinkNotFound
		}
		return nil, err
	}
	return &link, nil
}

func (r *shareLinkRepository) FindAllByFileID(ctx context.Context, fileID uint64) ([]model.ShareLink, error) {
	var result []model.ShareLink
	if err := r.db.WithContext(ctx).
		Where("file_id = ?", fileID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

func (r *shareLinkRepository) DeleteByID(ctx context.Context, id uint64) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.ShareLink{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// DeleteByFileID removes every link of the file and returns the removed records.
func (r *shareLinkRepository) DeleteByFileID(ctx context.Context, fileID uint64) ([]model.ShareLink, error) {
	var removed []model.ShareLink
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("file_id = ?", fileID).Order("id").Find(&removed).Error; err != nil {
			return err
		}
		if len(removed) == 0 {
			return nil
		}

		ids := make([]uint64, len(removed))
		for i, link := range removed {
			ids[i] = link.ID
		}
		return tx.Where("id IN ?", ids).Delete(&model.ShareLink{}).Error
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

func (r *shareLinkRepository) ListTokens(ctx context.Context) ([]string, error) {
	var tokens []string
	if err := r.db.WithContext(ctx).Model(&model.ShareLink{}).Pluck("token", &tokens).Error; err != nil {
		return nil, err
	}
	return tokens, nil
}
