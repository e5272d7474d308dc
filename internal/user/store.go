package user

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound  = errors.New("user not found")
	ErrDuplicate = errors.New("username or email already in use")
)

// Store persists users and the follow graph.
type Store interface {
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	List(ctx context.Context, offset, limit int) ([]User, error)
	Count(ctx context.Context) (int64, error)
	Follow(ctx context.Context, followerID, followeeID string) error
	Unfollow(ctx context.Context, followerID, followeeID string) error
	Followers(ctx context.Context, id string) ([]User, error)
	Following(ctx context.Context, id string) ([]User, error)
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

func (s *GormStore) Create(ctx context.Context, u *User) error {
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (s *GormStore) Update(ctx context.Context, u *User) error {
	res := s.db.WithContext(ctx).Model(u).Select(
		"username", "email", "password_hash", "role", "full_name", "bio",
		"profile_picture", "location", "badges", "updated_at",
	).Updates(u)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the user and every edge touching it. Deleting an unknown
// id is not an error.
func (s *GormStore) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("follower_id = ? OR followee_id = ?", id, id).Delete(&Follow{}).Error; err != nil {
			return fmt.Errorf("delete follows: %w", err)
		}
		if err := tx.Where("id = ?", id).Delete(&User{}).Error; err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
}

func (s *GormStore) findOne(ctx context.Context, query string, arg any) (*User, error) {
	var u User
	if err := s.db.WithContext(ctx).Where(query, arg).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	if err := s.hydrate(ctx, []*User{&u}); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *GormStore) FindByID(ctx context.Context, id string) (*User, error) {
	return s.findOne(ctx, "id = ?", id)
}

func (s *GormStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	return s.findOne(ctx, "username = ?", username)
}

func (s *GormStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.findOne(ctx, "email = ?", email)
}

func (s *GormStore) exists(ctx context.Context, query string, arg any) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&User{}).Where(query, arg).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *GormStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return s.exists(ctx, "username = ?", username)
}

func (s *GormStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return s.exists(ctx, "email = ?", email)
}

func (s *GormStore) List(ctx context.Context, offset, limit int) ([]User, error) {
	var users []User
	q := s.db.WithContext(ctx).Order("created_at ASC").Order("id ASC").Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&users).Error; err != nil {
		return nil, err
	}
	if err := s.hydrateSlice(ctx, users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *GormStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&User{}).Count(&n).Error
	return n, err
}

func (s *GormStore) Follow(ctx context.Context, followerID, followeeID string) error {
	edge := Follow{FollowerID: followerID, FolloweeID: followeeID}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&edge).Error
}

func (s *GormStore) Unfollow(ctx context.Context, followerID, followeeID string) error {
	return s.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&Follow{}).Error
}

func (s *GormStore) Followers(ctx context.Context, id string) ([]User, error) {
	return s.neighbours(ctx, "follower_id", "followee_id", id)
}

func (s *GormStore) Following(ctx context.Context, id string) ([]User, error) {
	return s.neighbours(ctx, "followee_id", "follower_id", id)
}

// neighbours loads the users whose id appears in column pick of the edges
// whose column match equals id.
func (s *GormStore) neighbours(ctx context.Context, pick, match, id string) ([]User, error) {
	sub := s.db.Model(&Follow{}).Select(pick).Where(match+" = ?", id)
	var users []User
	if err := s.db.WithContext(ctx).Where("id IN (?)", sub).Order("username ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	if err := s.hydrateSlice(ctx, users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *GormStore) hydrateSlice(ctx context.Context, users []User) error {
	ptrs := make([]*User, len(users))
	for i := range users {
		ptrs[i] = &users[i]
	}
	return s.hydrate(ctx, ptrs)
}

// hydrate fills Following and Followers for users with one batched query.
func (s *GormStore) hydrate(ctx context.Context, users []*User) error {
	if len(users) == 0 {
		return nil
	}
	ids := make([]string, len(users))
	byID := make(map[string]*User, len(users))
	for i, u := range users {
		ids[i] = u.ID
		byID[u.ID] = u
		u.Following = []string{}
		u.Followers = []string{}
	}
	var edges []Follow
	err := s.db.WithContext(ctx).
		Where("follower_id IN ? OR followee_id IN ?", ids, ids).
		Order("created_at ASC").
		Find(&edges).Error
	if err != nil {
		return fmt.Errorf("load follows: %w", err)
	}
	for _, e := range edges {
		if u, ok := byID[e.FollowerID]; ok {
			u.Following = append(u.Following, e.FolloweeID)
		}
		if u, ok := byID[e.FolloweeID]; ok {
			u.Followers = append(u.Followers, e.FollowerID)
		}
	}
	return nil
}
