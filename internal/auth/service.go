package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"rollcall/internal/apperr"
	"rollcall/internal/model"
	"rollcall/internal/store"
)

// BcryptCost is the salted hash cost for governor passwords.
const BcryptCost = 10

// Messages shared with the HTTP layer and tests.
const (
	MsgFieldsRequired     = "All fields are required"
	MsgIDNumExists        = "ID Number already exists"
	MsgInvalidCredentials = "Invalid credentials"
	MsgNoToken            = "No token provided"
	MsgInvalidToken       = "Invalid token"
	MsgUnauthorized       = "Unauthorized"
)

// Store persists governors.
type Store interface {
	CreateGovernor(ctx context.Context, g model.Governor) (model.Governor, error)
	// GetGovernor returns nil, nil when no governor matches.
	GetGovernor(ctx context.Context, idNum string) (*model.Governor, error)
}

// RegisterInput is the registration payload.
type RegisterInput struct {
	IDNum      string `json:"id_num" validate:"required"`
	Name       string `json:"name" validate:"required"`
	CollegeDep string `json:"college_dep" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// Session is what register and login hand back to the client.
type Session struct {
	Token     string             `json:"token"`
	ExpiresAt time.Time          `json:"-"`
	User      model.GovernorView `json:"user"`
}

// Service registers and authenticates governors.
type Service struct {
	store     Store
	tokens    *Tokens
	validate  *validator.Validate
	dummyHash []byte
}

// NewService creates a credential service.
func NewService(s Store, tokens *Tokens) *Service {
	// Compared against when the id is unknown so both login failures cost a hash.
	dummy, _ := bcrypt.GenerateFromPassword([]byte("rollcall-timing-equalizer"), BcryptCost)
	return &Service{store: s, tokens: tokens, validate: validator.New(), dummyHash: dummy}
}

// Tokens exposes the issuer for cookie lifetimes.
func (s *Service) Tokens() *Tokens { return s.tokens }

// Register creates a governor and issues its first token.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Session, error) {
	in.IDNum = strings.TrimSpace(in.IDNum)
	in.Name = strings.TrimSpace(in.Name)
	in.CollegeDep = strings.TrimSpace(in.CollegeDep)
	if err := s.validate.Struct(in); err != nil {
		return Session{}, apperr.Wrap(apperr.KindValidation, MsgFieldsRequired, err)
	}

	existing, err := s.store.GetGovernor(ctx, in.IDNum)
	if err != nil {
		return Session{}, apperr.Internal(err)
	}
	if existing != nil {
		return Session{}, apperr.Conflict(MsgIDNumExists)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), BcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return Session{}, apperr.Validation("Password is too long")
		}
		return Session{}, apperr.Internal(err)
	}

	g, err := s.store.CreateGovernor(ctx, model.Governor{
		IDNum:      in.IDNum,
		Name:       in.Name,
		CollegeDep: in.CollegeDep,
		Password:   string(hash),
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return Session{}, apperr.Wrap(apperr.KindConflict, MsgIDNumExists, err)
		}
		return Session{}, apperr.Internal(err)
	}
	return s.session(g)
}

// Login verifies credentials. Unknown ids and wrong passwords fail identically.
func (s *Service) Login(ctx context.Context, idNum, password string) (Session, error) {
	g, err := s.store.GetGovernor(ctx, strings.TrimSpace(idNum))
	if err != nil {
		return Session{}, apperr.Internal(err)
	}
	if g == nil {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return Session{}, apperr.Auth(MsgInvalidCredentials)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(g.Password), []byte(password)); err != nil {
		return Session{}, apperr.Auth(MsgInvalidCredentials)
	}
	return s.session(*g)
}

// Authenticate resolves a bearer token to the governor it was issued for.
func (s *Service) Authenticate(ctx context.Context, token string) (model.GovernorView, error) {
	if token == "" {
		return model.GovernorView{}, apperr.Auth(MsgNoToken)
	}
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return model.GovernorView{}, apperr.Wrap(apperr.KindAuth, MsgInvalidToken, err)
	}
	g, err := s.store.GetGovernor(ctx, claims.IDNum)
	if err != nil {
		return model.GovernorView{}, apperr.Internal(err)
	}
	if g == nil {
		return model.GovernorView{}, apperr.Auth(MsgUnauthorized)
	}
	return g.View(), nil
}

func (s *Service) session(g model.Governor) (Session, error) {
	token, exp, err := s.tokens.Issue(g.IDNum)
	if err != nil {
		return Session{}, apperr.Internal(err)
	}
	return Session{Token: token, ExpiresAt: exp, User: g.View()}, nil
}
