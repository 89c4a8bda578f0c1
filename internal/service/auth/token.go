package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Temutjin2k/taxi-dispatch/internal/domain/models"
	"github.com/Temutjin2k/taxi-dispatch/internal/domain/types"
	"github.com/Temutjin2k/taxi-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/taxi-dispatch/pkg/logger/wrapper"
)

// Claims of an access token. Subject holds the user id.
type Claims struct {
	Role     types.UserRole `json:"role"`
	DriverID *int64         `json:"driver_id,omitempty"`
	jwt.RegisteredClaims
}

// TokenService verifies HS256 access tokens. Tokens are issued by the
// identity service; Sign exists for tooling and tests.
type TokenService struct {
	secret []byte
	now    func() time.Time
	log    logger.Logger
}

func NewTokenService(secret string, log logger.Logger) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		now:    time.Now,
		log:    log,
	}
}

// RoleCheck validates token and returns the user it was issued to.
func (s *TokenService) RoleCheck(ctx context.Context, token string) (*models.User, error) {
	ctx = wrap.WithAction(ctx, "validate_token")

	claims, err := s.Validate(token)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return nil, wrap.Error(ctx, fmt.Errorf("%w: invalid 'sub' claim", ErrInvalidToken))
	}

	switch claims.Role {
	case types.RoleCustomer, types.RoleDriver, types.RoleAdmin:
	default:
		return nil, wrap.Error(ctx, ErrInvalidRole)
	}

	if claims.Role == types.RoleDriver && claims.DriverID == nil {
		return nil, wrap.Error(ctx, fmt.Errorf("%w: driver token without 'driver_id'", ErrInvalidToken))
	}

	return &models.User{
		ID:       id,
		Role:     claims.Role,
		DriverID: claims.DriverID,
	}, nil
}

// Validate checks the signature and expiry of token.
func (s *TokenService) Validate(token string) (*Claims, error) {
	claims := &Claims{}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// Sign issues a token for user valid for ttl.
func (s *TokenService) Sign(user *models.User, ttl time.Duration) (string, error) {
	if user == nil {
		return "", errors.New("user is nil")
	}

	issuedAt := s.now().UTC()
	claims := Claims{
		Role:     user.Role,
		DriverID: user.DriverID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}
