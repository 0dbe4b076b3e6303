package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/DigitumDei/WellnessWingman-sub001/domain"
)

const defaultIssuer = "WellnessWingman"

type (
	JWTService interface {
		GenerateDeviceToken(deviceID string, ttl time.Duration) (string, error)
		ValidateToken(token string) (*jwt.Token, error)
		GetDeviceIDByToken(token string) (string, error)
	}

	deviceClaim struct {
		DeviceID string `json:"device_id"`
		jwt.RegisteredClaims
	}

	jwtService struct {
		secretKey []byte
		issuer    string
		now       func() time.Time
	}
)

func NewJWTService(secret string) JWTService {
	return &jwtService{
		secretKey: []byte(secret),
		issuer:    defaultIssuer,
		now:       time.Now,
	}
}

// GenerateDeviceToken signs a token for a paired device. A zero ttl issues a
// token without expiry.
func (j *jwtService) GenerateDeviceToken(deviceID string, ttl time.Duration) (string, error) {
	if deviceID == "" {
		return "", errors.New("device id is required")
	}
	now := j.now()
	claims := deviceClaim{
		DeviceID: deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   j.issuer,
			Subject:  deviceID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secretKey)
}

func (j *jwtService) keyFunc(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
	}
	return j.secretKey, nil
}

func (j *jwtService) ValidateToken(token string) (*jwt.Token, error) {
	return jwt.ParseWithClaims(token, &deviceClaim{}, j.keyFunc)
}

func (j *jwtService) GetDeviceIDByToken(token string) (string, error) {
	parsed, err := j.ValidateToken(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", domain.ErrTokenExpired
		}
		return "", domain.ErrTokenInvalid
	}
	claims, ok := parsed.Claims.(*deviceClaim)
	if !parsed.Valid || !ok || claims.DeviceID == "" {
		return "", domain.ErrTokenInvalid
	}
	if claims.Issuer != j.issuer {
		return "", domain.ErrTokenInvalid
	}
	return claims.DeviceID, nil
}
