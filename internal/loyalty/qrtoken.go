package loyalty

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/example/hani/internal/models"
)

// qrClaims is the signed QR payload. Tokens carry an issued-at instead of
// an expiry; freshness is judged against the configured window so the
// window can change without reissuing cards.
type qrClaims struct {
	CardNumber string `json:"card_number"`
	UserID     string `json:"user_id"`
	StoreID    string `json:"store_id,omitempty"`
	jwt.RegisteredClaims
}

// QRToken is the validated content of a scanned token.
type QRToken struct {
	CardNumber string
	UserID     uuid.UUID
	StoreID    *uuid.UUID
}

// IssueQRToken signs a QR payload for the card. storeID optionally scopes
// the token to a single store. Reissuing never changes the card number.
func (s *Service) IssueQRToken(card *models.LoyaltyCard, storeID *uuid.UUID) (string, error) {
	claims := &qrClaims{
		CardNumber: card.CardNumber,
		UserID:     card.UserID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  card.UserID.String(),
			IssuedAt: jwt.NewNumericDate(s.now()),
		},
	}
	if storeID != nil {
		claims.StoreID = storeID.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.qrSecret)
}

// ValidateQRToken verifies the signature and freshness of a scanned token.
// Validation never mutates state.
func (s *Service) ValidateQRToken(tokenString string) (*QRToken, error) {
	token, err := jwt.ParseWithClaims(tokenString, &qrClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenMalformed
		}
		return s.qrSecret, nil
	})
	if err != nil {
		return nil, ErrTokenMalformed
	}

	claims, ok := token.Claims.(*qrClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenMalformed
	}

	if claims.CardNumber == "" || claims.UserID == "" || claims.IssuedAt == nil {
		return nil, errf(KindTokenMalformed, "missing required fields")
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, errf(KindTokenMalformed, "invalid user id")
	}

	if s.now().Sub(claims.IssuedAt.Time) > s.qrTTL {
		return nil, ErrTokenExpired
	}

	parsed := &QRToken{
		CardNumber: claims.CardNumber,
		UserID:     userID,
	}

	if claims.StoreID != "" {
		storeID, err := uuid.Parse(claims.StoreID)
		if err != nil {
			return nil, errf(KindTokenMalformed, "invalid store scope")
		}
		parsed.StoreID = &storeID
	}

	return parsed, nil
}
