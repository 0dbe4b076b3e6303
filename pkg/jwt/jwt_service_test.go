package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DigitumDei/WellnessWingman-sub001/domain"
)

func TestDeviceToken_RoundTrip(t *testing.T) {
	svc := NewJWTService("s3cret")

	token, err := svc.GenerateDeviceToken("phone-1", time.Hour)
	require.NoError(t, err)

	id, err := svc.GetDeviceIDByToken(token)
	require.NoError(t, err)
	assert.Equal(t, "phone-1", id)
}

func TestDeviceToken_Expired(t *testing.T) {
	svc := NewJWTService("s3cret").(*jwtService)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := svc.GenerateDeviceToken("phone-1", time.Hour)
	require.NoError(t, err)

	_, err = NewJWTService("s3cret").GetDeviceIDByToken(token)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestDeviceToken_WrongSecret(t *testing.T) {
	token, err := NewJWTService("one").GenerateDeviceToken("phone-1", 0)
	require.NoError(t, err)

	_, err = NewJWTService("two").GetDeviceIDByToken(token)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)

	_, err = NewJWTService("one").GetDeviceIDByToken("not-a-token")
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestDeviceToken_RequiresDeviceID(t *testing.T) {
	_, err := NewJWTService("s3cret").GenerateDeviceToken("", time.Hour)
	assert.Error(t, err)
}
