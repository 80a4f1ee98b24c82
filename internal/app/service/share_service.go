package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sifan077/PowerDrive/internal/app/model"
	"github.com/sifan077/PowerDrive/internal/app/repository"
)

var (
	// ErrNotFound covers unknown tokens, unknown links and files that no longer exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the requester does not own the file or link.
	ErrForbidden = errors.New("forbidden")
	// ErrExpired is returned when a token is resolved after its expiry date.
	ErrExpired = errors.New("share link expired")
	// ErrTokenExhausted is returned when no unused token could be produced.
	ErrTokenExhausted = errors.New("could not generate a unique share token")
)

// DefaultExpiryDays applies when a caller expresses no expiry preference.
const DefaultExpiryDays = 7

const maxTokenAttempts = 3

// ShareService issues, resolves and revokes share links.
type ShareService interface {
	IssueLink(ctx context.Context, requesterID, fileID uint64, expiryDays int) (*model.ShareLink, error)
	ResolveLink(ctx context.Context, token string) (*ResolvedShare, error)
	RevokeLink(ctx context.Context, requesterID, linkID uint64) (*model.ShareLink, error)
	ListLinks(ctx context.Context, requesterID, fileID uint64) ([]model.ShareLink, error)
	RevokeAllForFile(ctx context.Context, requesterID, fileID uint64) ([]model.ShareLink, error)
}

// ResolvedShare is the outcome of a successful resolution.
type ResolvedShare struct {
	Link *model.ShareLink
	File *model.File
}

// Option customises a share service.
type Option func(*shareService)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *shareService) {
		s.now = now
	}
}

// WithTokenFilter makes issuance skip tokens the filter may have seen.
func WithTokenFilter(filter *TokenFilter) Option {
	return func(s *shareService) {
		s.filter = filter
	}
}

// WithTokenSource replaces GenerateToken.
func WithTokenSource(source func() (string, error)) Option {
	return func(s *shareService) {
		s.newToken = source
	}
}

type shareService struct {
	links    repository.ShareLinkRepository
	files    repository.FileRepository
	filter   *TokenFilter
	now      func() time.Time
	newToken func() (string, error)
}

// NewShareService returns a service backed by the given repositories.
func NewShareService(links repository.ShareLinkRepository, files repository.FileRepository, opts ...Option) ShareService {
	s := &shareService{
		links:    links,
		files:    files,
		now:      time.Now,
		newToken: GenerateToken,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExpiryFor computes the expiry date for a link created at createdAt.
// expiryDays <= 0 means the link never expires.
func ExpiryFor(createdAt time.Time, expiryDays int) *time.Time {
	if expiryDays <= 0 {
		return nil
	}
	expiry := createdAt.Add(time.Duration(expiryDays) * 24 * time.Hour)
	return &expiry
}

func (s *shareService) IssueLink(ctx context.Context, requesterID, fileID uint64, expiryDays int) (*model.ShareLink, error) {
	if _, err := s.ownedFile(ctx, requesterID, fileID); err != nil {
		return nil, err
	}

	createdAt := s.now().UTC()
	link := &model.ShareLink{
		FileID:     fileID,
		UserID:     requesterID,
		CreatedAt:  createdAt,
		ExpiryDate: ExpiryFor(createdAt, expiryDays),
	}

	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		token, err := s.newToken()
		if err != nil {
			return nil, fmt.Errorf("generate token: %w", err)
		}
		if s.consultFilter() && s.filter.MayContain(token) {
			continue
		}

		link.ID = 0
		link.Token = token
		if err := s.links.Create(ctx, link); err != nil {
			if errors.Is(err, repository.ErrDuplicateToken) {
				continue
			}
			return nil, fmt.Errorf("create share link: %w", err)
		}

		if s.filter != nil {
			s.filter.Add(token)
		}
		return link, nil
	}

	return nil, ErrTokenExhausted
}

// consultFilter reports whether a filter hit should cost an attempt. A saturated
// filter answers yes to almost everything; the unique index still catches reuse.
func (s *shareService) consultFilter() bool {
	return s.filter != nil && !s.filter.Saturated()
}

func (s *shareService) ResolveLink(ctx context.Context, token string) (*ResolvedShare, error) {
	if token == "" {
		return nil, fmt.Errorf("resolve link: %w", ErrNotFound)
	}

	link, err := s.links.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrShareLinkNotFound) {
			return nil, fmt.Errorf("resolve link: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("load share link: %w", err)
	}

	if link.ExpiredAt(s.now()) {
		return nil, fmt.Errorf("resolve link %d: %w", link.ID, ErrExpired)
	}

	file, err := s.files.GetByID(ctx, link.FileID)
	if err != nil {
		if errors.Is(err, repository.ErrFileNotFound) {
			return nil, fmt.Errorf("resolve link %d: file %d: %w", link.ID, link.FileID, ErrNotFound)
		}
		return nil, fmt.Errorf("load shared file: %w", err)
	}

	return &ResolvedShare{Link: link, File: file}, nil
}

func (s *shareService) RevokeLink(ctx context.Context, requesterID, linkID uint64) (*model.ShareLink, error) {
	link, err := s.links.FindByID(ctx, linkID)
	if err != nil {
		if errors.Is(err, repository.ErrShareLinkNotFound) {
			return nil, fmt.Errorf("revoke link %d: %w", linkID, ErrNotFound)
		}
		return nil, fmt.Errorf("load share link: %w", err)
	}

	if link.UserID != requesterID {
		return nil, fmt.Errorf("revoke link %d: %w", linkID, ErrForbidden)
	}

	removed, err := s.links.DeleteByID(ctx, linkID)
	if err != nil {
		return nil, fmt.Errorf("delete share link: %w", err)
	}
	if !removed {
		return nil, fmt.Errorf("revoke link %d: %w", linkID, ErrNotFound)
	}
	return link, nil
}

func (s *shareService) ListLinks(ctx context.Context, requesterID, fileID uint64) ([]model.ShareLink, error) {
	if _, err := s.ownedFile(ctx, requesterID, fileID); err != nil {
		return nil, err
	}

	links, err := s.links.FindAllByFileID(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("list share links: %w", err)
	}
	return links, nil
}

func (s *shareService) RevokeAllForFile(ctx context.Context, requesterID, fileID uint64) ([]model.ShareLink, error) {
	if _, err := s.ownedFile(ctx, requesterID, fileID); err != nil {
		return nil, err
	}

	removed, err := s.links.DeleteByFileID(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("delete share links: %w", err)
	}
	return removed, nil
}

func (s *shareService) ownedFile(ctx context.Context, requesterID, fileID uint64) (*model.File, error) {
	file, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, repository.ErrFileNotFound) {
			return nil, fmt.Errorf("file %d: %w", fileID, ErrNotFound)
		}
		return nil, fmt.Errorf("load file: %w", err)
	}
	if file.UserID != requesterID {
		return nil, fmt.Errorf("file %d: %w", fileID, ErrForbidden)
	}
	return file, nil
}
