package user

import (
	"context"
	stderrors "errors"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/victornm/tables/internal/domain"
	"github.com/victornm/tables/internal/errors"
)

// ErrNoUser is returned by repositories when nothing is stored for a client.
var ErrNoUser = stderrors.New("no user")

// Repository persists the identity of each client.
type Repository interface {
	LoadUser(ctx context.Context, client string) (domain.User, error)
	SaveUser(ctx context.Context, client string, u domain.User) error
	RemoveUser(ctx context.Context, client string) error
}

type Config struct {
	Repository Repository
	Now        func() time.Time
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(c Config) *Service {
	s := &Service{
		repo: c.Repository,
		now:  c.Now,
	}

	if s.now == nil {
		s.now = time.Now
	}

	return s
}

// FormatUsername trims raw and capitalizes it: "  aNN " becomes "Ann".
func FormatUsername(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return ""
	}

	return string(unicode.ToUpper(r)) + s[size:]
}

// Login formats the username once and stores it as the client's identity.
func (s *Service) Login(ctx context.Context, client, raw string) (domain.User, error) {
	name := FormatUsername(raw)
	if name == "" {
		return domain.User{}, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("username is required"))
	}

	u := domain.User{
		Username:  name,
		LastLogin: s.now(),
	}

	if err := s.repo.SaveUser(ctx, client, u); err != nil {
		return domain.User{}, errors.New(errors.CodeUnavailable,
			errors.WithMessagef("save user %s", name),
			errors.WithCause(err),
		)
	}

	return u, nil
}

// Current returns the client's identity, CodeNotFound when nobody is logged in.
func (s *Service) Current(ctx context.Context, client string) (domain.User, error) {
	u, err := s.repo.LoadUser(ctx, client)
	if stderrors.Is(err, ErrNoUser) {
		return domain.User{}, errors.New(errors.CodeNotFound,
			errors.WithMessagef("not logged in"),
			errors.WithCause(err),
		)
	}
	if err != nil {
		return domain.User{}, errors.New(errors.CodeUnavailable,
			errors.WithMessagef("load user"),
			errors.WithCause(err),
		)
	}

	return u, nil
}

func (s *Service) Logout(ctx context.Context, client string) error {
	if err := s.repo.RemoveUser(ctx, client); err != nil {
		return errors.New(errors.CodeUnavailable,
			errors.WithMessagef("remove user"),
			errors.WithCause(err),
		)
	}

	return nil
}
