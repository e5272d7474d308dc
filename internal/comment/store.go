package comment

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("comment not found")

type Store interface {
	Create(ctx context.Context, c *Comment) error
	FindByID(ctx context.Context, id string) (*Comment, error)
	List(ctx context.Context) ([]Comment, error)
	ListByUser(ctx context.Context, userID string) ([]Comment, error)
	ListByReference(ctx context.Context, refType, refID string) ([]Comment, error)
	ListTopLevel(ctx context.Context, refType, refID string) ([]Comment, error)
	ListReplies(ctx context.Context, parentID string) ([]Comment, error)
	UpdateContent(ctx context.Context, c *Comment) error
	Delete(ctx context.Context, id string) error
	IncrementLikes(ctx context.Context, id string) error
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Create(ctx context.Context, c *Comment) error {
	return s.db.WithContext(ctx).Create(c).Error
}

func (s *GormStore) FindByID(ctx context.Context, id string) (*Comment, error) {
	var c Comment
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *GormStore) find(ctx context.Context, order string, query any, args ...any) ([]Comment, error) {
	q := s.db.WithContext(ctx).Order(order)
	if query != nil {
		q = q.Where(query, args...)
	}
	var out []Comment
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *GormStore) List(ctx context.Context) ([]Comment, error) {
	return s.find(ctx, "created_at ASC", nil)
}

func (s *GormStore) ListByUser(ctx context.Context, userID string) ([]Comment, error) {
	return s.find(ctx, "created_at DESC", "user_id = ?", userID)
}

func (s *GormStore) ListByReference(ctx context.Context, refType, refID string) ([]Comment, error) {
	return s.find(ctx, "created_at DESC", "reference_type = ? AND reference_id = ?", refType, refID)
}

func (s *GormStore) ListTopLevel(ctx context.Context, refType, refID string) ([]Comment, error) {
	return s.find(ctx, "created_at DESC",
		"reference_type = ? AND reference_id = ? AND parent_comment_id IS NULL", refType, refID)
}

func (s *GormStore) ListReplies(ctx context.Context, parentID string) ([]Comment, error) {
	return s.find(ctx, "created_at ASC", "parent_comment_id = ?", parentID)
}

func (s *GormStore) UpdateContent(ctx context.Context, c *Comment) error {
	res := s.db.WithContext(ctx).Model(&Comment{}).Where("id = ?", c.ID).
		Updates(map[string]any{"content": c.Content, "updated_at": c.UpdatedAt})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&Comment{}).Error
}

// IncrementLikes bumps the counter in the database so concurrent likes are
// not lost.
func (s *GormStore) IncrementLikes(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&Comment{}).Where("id = ?", id).
		UpdateColumn("likes", gorm.Expr("likes + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
