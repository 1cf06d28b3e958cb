package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/suqhub/suq-backend/internal/errs"
)

type claims struct {
	BusinessID string `json:"biz,omitempty"`
	Role       string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type service struct {
	repo      UserRepository
	jwtKey    []byte
	accessTTL time.Duration

	botToken       string
	initDataMaxAge time.Duration
}

// NewService creates the auth service.
func NewService(repo UserRepository, jwtKey []byte, accessTTL time.Duration, botToken string, initDataMaxAge time.Duration) Service {
	return &service{
		repo:           repo,
		jwtKey:         jwtKey,
		accessTTL:      accessTTL,
		botToken:       botToken,
		initDataMaxAge: initDataMaxAge,
	}
}

func (s *service) TelegramLogin(ctx context.Context, initData string) (*LoginResult, error) {
	tgUser, err := ValidateInitData(s.botToken, initData, s.initDataMaxAge)
	if err != nil {
		return nil, err
	}

	u, err := s.repo.GetUserByTelegramID(ctx, tgUser.ID)
	if errors.Is(err, errs.ErrNotFound) {
		name := strings.TrimSpace(tgUser.FirstName + " " + tgUser.LastName)
		if name == "" {
			name = tgUser.Username
		}
		u = &User{
			ID:         uuid.New(),
			TelegramID: tgUser.ID,
			Name:       name,
			Role:       "OWNER",
		}
		if err := s.repo.CreateUser(ctx, u); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	return s.result(u)
}

func (s *service) PinLogin(ctx context.Context, phone, pin string) (*LoginResult, error) {
	if phone == "" || pin == "" {
		return nil, fmt.Errorf("%w: phone and pin are required", errs.ErrValidation)
	}
	u, err := s.repo.GetUserByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.ErrUnauthorized
		}
		return nil, err
	}
	if u.PinHash == "" {
		return nil, errs.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PinHash), []byte(pin)); err != nil {
		return nil, errs.ErrUnauthorized
	}
	return s.result(u)
}

func (s *service) TokenForUser(ctx context.Context, userID uuid.UUID) (*LoginResult, error) {
	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.result(u)
}

func (s *service) result(u *User) (*LoginResult, error) {
	var bizID string
	if u.BusinessID != nil {
		bizID = u.BusinessID.String()
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		BusinessID: bizID,
		Role:       u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	})
	signed, err := token.SignedString(s.jwtKey)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		Token:      signed,
		UserID:     u.ID,
		BusinessID: u.BusinessID,
		Name:       u.Name,
		Role:       u.Role,
	}, nil
}

func (s *service) ParseToken(tokenStr string) (Identity, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenStr, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtKey, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, errs.ErrUnauthorized
	}

	userID, err := uuid.Parse(c.Subject)
	if err != nil {
		return Identity{}, errs.ErrUnauthorized
	}
	id := Identity{UserID: userID, Role: c.Role}
	if c.BusinessID != "" {
		bizID, err := uuid.Parse(c.BusinessID)
		if err != nil {
			return Identity{}, errs.ErrUnauthorized
		}
		id.BusinessID = bizID
	}
	return id, nil
}

// HashPin produces a bcrypt hash for a staff PIN.
func HashPin(pin string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	return string(b), err
}
