package jwttoken

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seacert/internal/shipment"
	"seacert/pkg/domain"
	dErrors "seacert/pkg/domain-errors"
)

const testSigningKey = "test-signing-key-0123456789abcdef"

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := NewService(testSigningKey, "seacert")

	token, err := svc.GenerateAccessToken("op-41", "Awa Diallo", time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "op-41", claims.ActorID)
	assert.Equal(t, "Awa Diallo", claims.ActorName)
}

func TestExpiredTokenRejected(t *testing.T) {
	svc := NewService(testSigningKey, "seacert")

	token, err := svc.GenerateAccessToken("op-41", "Awa Diallo", -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.Contains(t, err.Error(), "expired")
}

func TestWrongKeyRejected(t *testing.T) {
	svc := NewService(testSigningKey, "seacert")
	other := NewService("a-different-signing-key-entirely", "seacert")

	token, err := other.GenerateAccessToken("op-41", "Awa Diallo", time.Hour)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestNonHMACTokenRejected(t *testing.T) {
	svc := NewService(testSigningKey, "seacert")

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{ActorID: "op-41"})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestVerificationSignature(t *testing.T) {
	svc := NewService(testSigningKey, "seacert")
	v := shipment.PortVerification{
		ID:                 domain.NewVerificationID(),
		Type:               shipment.VerifyOriginDeparture,
		PortName:           "Montreal",
		VerifierID:         "insp-7",
		VerifierName:       "A. Tremblay",
		SealNumberObserved: "SL-7741023",
		VerifiedAt:         time.Date(2026, time.March, 4, 6, 0, 0, 0, time.UTC),
		Passed:             true,
	}

	signature, err := svc.SignVerification(v)
	require.NoError(t, err)
	v.Signature = signature
	require.NoError(t, svc.VerifySignature(v))

	t.Run("a doctored record no longer matches", func(t *testing.T) {
		tampered := v
		tampered.Passed = false
		err := svc.VerifySignature(tampered)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("a signature from another key does not parse", func(t *testing.T) {
		other := NewService("a-different-signing-key-entirely", "seacert")
		foreign, err := other.SignVerification(v)
		require.NoError(t, err)
		tampered := v
		tampered.Signature = foreign
		assert.Error(t, svc.VerifySignature(tampered))
	})
}
