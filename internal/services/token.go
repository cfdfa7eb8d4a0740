package services

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// RespondentClaims ties a respondent id to the distribution it answered.
type RespondentClaims struct {
	DistributionID string `json:"did"`
	jwt.RegisteredClaims
}

// RespondentTokens signs and verifies the tokens that let a respondent
// submit several sections of one survey under the same id.
type RespondentTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewRespondentTokens(secret string, ttl time.Duration) *RespondentTokens {
	return &RespondentTokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *RespondentTokens) Sign(distributionID, respondentID string) (string, error) {
	now := t.now()
	claims := RespondentClaims{
		DistributionID: distributionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   respondentID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign respondent token: %w", err)
	}
	return signed, nil
}

// Verify returns the respondent id carried by tok if it is valid for
// distributionID.
func (t *RespondentTokens) Verify(tok, distributionID string) (string, error) {
	parsed, err := jwt.ParseWithClaims(tok, &RespondentClaims{}, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRespondentToken, err)
	}
	c, ok := parsed.Claims.(*RespondentClaims)
	if !ok || !parsed.Valid {
		return "", ErrInvalidRespondentToken
	}
	if c.DistributionID != distributionID || c.Subject == "" {
		return "", errors.Join(ErrInvalidRespondentToken, errors.New("token issued for another distribution"))
	}
	return c.Subject, nil
}
