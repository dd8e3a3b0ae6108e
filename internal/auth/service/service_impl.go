package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/courierlog/payroll/internal/auth/domain"
	"github.com/courierlog/payroll/internal/clock"
	"github.com/courierlog/payroll/internal/config"
	"github.com/courierlog/payroll/pkg/db"
	"github.com/courierlog/payroll/pkg/repository"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	Config config.Config
	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
}

type Service struct {
	secret   []byte
	tokenTTL time.Duration
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	users    repository.Repository[domain.User]
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		secret:   []byte(p.Config.AuthJWTSecret),
		tokenTTL: time.Duration(p.Config.AuthTokenTTLMin) * time.Minute,
		log:      p.Log.Named("auth.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		users:    repository.ProvideStore[domain.User](p.DB),
	}
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindOne(ctx, &domain.User{Username: username})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrInvalidCredentials
	}
	if !user.Active {
		return nil, domain.ErrUserInactive
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}

	now := s.clock.Now()
	expiresAt := now.Add(s.tokenTTL)
	claims := domain.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Role:       user.Role,
		DriverCode: user.DriverCode,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, err
	}

	s.log.Info("user logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)),
	)
	return &domain.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Role:      user.Role,
	}, nil
}

func (s *Service) CreateUser(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, domain.ErrInvalidUsername
	}
	if len(req.Password) < 8 {
		return nil, domain.ErrInvalidPassword
	}
	switch req.Role {
	case domain.RoleAdmin, domain.RoleDriver:
	default:
		return nil, domain.ErrInvalidRole
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	user := &domain.User{
		ID:           s.genID.Generate(),
		Username:     username,
		PasswordHash: string(hash),
		Role:         req.Role,
		DriverCode:   strings.TrimSpace(req.DriverCode),
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrUserExists
		}
		return nil, err
	}
	return user, nil
}

func (s *Service) ParseToken(token string) (*domain.Claims, error) {
	var claims domain.Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.clock.Now))
	if err != nil || !parsed.Valid {
		return nil, domain.ErrInvalidToken
	}
	return &claims, nil
}

func (s *Service) EnsureAdmin(ctx context.Context, username, password string) error {
	existing, err := s.users.FindOne(ctx, &domain.User{Username: username})
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	_, err = s.CreateUser(ctx, domain.CreateUserRequest{
		Username: username,
		Password: password,
		Role:     domain.RoleAdmin,
	})
	if err == domain.ErrUserExists {
		return nil
	}
	return err
}
