// Package jwttoken signs and validates the two HS256 token kinds the engine
// uses: operator access tokens and the tamper-evidence signatures stored on
// port verification records.
package jwttoken

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"seacert/internal/platform/middleware"
	"seacert/internal/shipment"
	dErrors "seacert/pkg/domain-errors"
)

// Claims are the operator access token claims.
type Claims struct {
	ActorID   string `json:"actor_id"`
	ActorName string `json:"actor_name"`
	jwt.RegisteredClaims
}

// verificationClaims bind a signature to the facts of one port
// verification.
type verificationClaims struct {
	VerificationID string `json:"verification_id"`
	Checkpoint     string `json:"checkpoint"`
	Port           string `json:"port"`
	SealObserved   string `json:"seal_observed"`
	Passed         bool   `json:"passed"`
	jwt.RegisteredClaims
}

// Service signs and validates tokens with a shared HS256 key.
type Service struct {
	signingKey []byte
	issuer     string
}

func NewService(signingKey, issuer string) *Service {
	return &Service{signingKey: []byte(signingKey), issuer: issuer}
}

// GenerateAccessToken issues an operator token.
func (s *Service) GenerateAccessToken(actorID, actorName string, expiresIn time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		ActorID:   actorID,
		ActorName: actorName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.signingKey)
}

// ValidateToken checks an operator token and returns the middleware claims.
func (s *Service) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, s.keyFunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return &middleware.JWTClaims{ActorID: claims.ActorID, ActorName: claims.ActorName}, nil
}

// SignVerification produces the signature token stored on a port
// verification record. The token has no expiry; it attests to a historical
// fact.
func (s *Service) SignVerification(v shipment.PortVerification) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, verificationClaims{
		VerificationID: v.ID.String(),
		Checkpoint:     string(v.Type),
		Port:           v.PortName,
		SealObserved:   v.SealNumberObserved,
		Passed:         v.Passed,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(v.VerifiedAt),
			Issuer:   s.issuer,
			Subject:  v.VerifierID,
		},
	})
	return token.SignedString(s.signingKey)
}

// VerifySignature checks that a stored signature matches the verification it
// is attached to.
func (s *Service) VerifySignature(v shipment.PortVerification) error {
	parsed, err := jwt.ParseWithClaims(v.Signature, &verificationClaims{}, s.keyFunc)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "verification signature does not parse")
	}
	claims, ok := parsed.Claims.(*verificationClaims)
	if !ok || !parsed.Valid {
		return dErrors.New(dErrors.CodeValidation, "verification signature is invalid")
	}
	if claims.VerificationID != v.ID.String() || claims.Passed != v.Passed || claims.SealObserved != v.SealNumberObserved {
		return dErrors.New(dErrors.CodeValidation, "verification record does not match its signature")
	}
	return nil
}

func (s *Service) keyFunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
	}
	return s.signingKey, nil
}
