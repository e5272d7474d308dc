package comment

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"agriapp/internal/apperr"

	"github.com/google/uuid"
)

type CreateInput struct {
	UserID          string
	ReferenceType   string
	ReferenceID     string
	ParentCommentID string
	Content         string
}

type Service struct {
	store Store
	log   *slog.Logger
	now   func() time.Time
	newID func() string
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Create stores a new comment. A reply must point at an existing comment on
// the same (referenceType, referenceId).
func (s *Service) Create(ctx context.Context, in CreateInput) (*Comment, error) {
	in.Content = strings.TrimSpace(in.Content)
	switch {
	case in.UserID == "":
		return nil, apperr.Invalid("userId is required")
	case in.ReferenceType == "" || in.ReferenceID == "":
		return nil, apperr.Invalid("referenceType and referenceId are required")
	case in.Content == "":
		return nil, apperr.Invalid("content must not be empty")
	}

	now := s.now().UTC()
	c := &Comment{
		ID:            s.newID(),
		UserID:        in.UserID,
		ReferenceType: in.ReferenceType,
		ReferenceID:   in.ReferenceID,
		Content:       in.Content,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if in.ParentCommentID != "" {
		parent, err := s.mustFind(ctx, in.ParentCommentID)
		if err != nil {
			return nil, err
		}
		if !c.SameScope(parent) {
			return nil, apperr.InvalidOperation("reply must target the same reference as its parent")
		}
		parentID := parent.ID
		c.ParentCommentID = &parentID
	}
	if err := s.store.Create(ctx, c); err != nil {
		return nil, apperr.Internal("create comment", err)
	}
	s.log.InfoContext(ctx, "comment created", "commentId", c.ID, "userId", c.UserID, "reply", c.IsReply())
	return c, nil
}

func (s *Service) mustFind(ctx context.Context, id string) (*Comment, error) {
	c, err := s.store.FindByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("comment not found")
	}
	if err != nil {
		return nil, apperr.Internal("find comment", err)
	}
	return c, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Comment, error) {
	return s.mustFind(ctx, id)
}

func orEmpty(cs []Comment, err error) ([]Comment, error) {
	if err != nil {
		return nil, apperr.Internal("list comments", err)
	}
	if cs == nil {
		cs = []Comment{}
	}
	return cs, nil
}

func (s *Service) List(ctx context.Context) ([]Comment, error) {
	return orEmpty(s.store.List(ctx))
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]Comment, error) {
	return orEmpty(s.store.ListByUser(ctx, userID))
}

// ListByReference returns every comment on the reference, newest first.
func (s *Service) ListByReference(ctx context.Context, refType, refID string) ([]Comment, error) {
	return orEmpty(s.store.ListByReference(ctx, refType, refID))
}

func (s *Service) ListTopLevel(ctx context.Context, refType, refID string) ([]Comment, error) {
	return orEmpty(s.store.ListTopLevel(ctx, refType, refID))
}

func (s *Service) ListReplies(ctx context.Context, parentID string) ([]Comment, error) {
	return orEmpty(s.store.ListReplies(ctx, parentID))
}

// Update replaces the content only; author, reference, likes and creation
// time are fixed once written.
func (s *Service) Update(ctx context.Context, id, content string) (*Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.Invalid("content must not be empty")
	}
	c, err := s.mustFind(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Content = content
	c.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateContent(ctx, c); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("comment not found")
		}
		return nil, apperr.Internal("update comment", err)
	}
	return c, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return apperr.Internal("delete comment", err)
	}
	return nil
}

func (s *Service) Like(ctx context.Context, id string) (*Comment, error) {
	if err := s.store.IncrementLikes(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("comment not found")
		}
		return nil, apperr.Internal("like comment", err)
	}
	return s.mustFind(ctx, id)
}
