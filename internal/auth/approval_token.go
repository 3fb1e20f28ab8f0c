package auth

import (
	"crypto/sha256"
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Approval token errors. Any signature, purpose, or shape problem collapses
// into ErrTokenInvalid; only an aged-out token reports ErrTokenExpired.
var (
	ErrTokenExpired = errors.New("approval token expired")
	ErrTokenInvalid = errors.New("approval token invalid")
)

// ApprovalPayload binds one approval step to one ticket.
type ApprovalPayload struct {
	ApprovalID string
	TicketID   string
}

// ApprovalTokenCodec issues and verifies signed, salted, time-limited
// approval tokens. Tokens are stateless: there is no revocation list, and a
// consumed token is neutralized only by its approval record leaving PENDING.
type ApprovalTokenCodec struct {
	secret []byte
}

// NewApprovalTokenCodec builds a codec around the server secret.
func NewApprovalTokenCodec(secret string) *ApprovalTokenCodec {
	return &ApprovalTokenCodec{secret: []byte(secret)}
}

type approvalClaims struct {
	ApprovalID string `json:"approval_id"`
	TicketID   string `json:"ticket_id"`
	jwt.RegisteredClaims
}

// signingKey folds the purpose-specific salt into the HMAC key, so a token
// issued for one purpose never verifies under another.
func (c *ApprovalTokenCodec) signingKey(purpose string) []byte {
	h := sha256.New()
	h.Write(c.secret)
	h.Write([]byte{0})
	h.Write([]byte(purpose))
	return h.Sum(nil)
}

// Issue produces an opaque signed token embedding the payload.
func (c *ApprovalTokenCodec) Issue(payload ApprovalPayload, purpose string) (string, error) {
	claims := &approvalClaims{
		ApprovalID: payload.ApprovalID,
		TicketID:   payload.TicketID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.signingKey(purpose))
}

// Verify checks signature and age. The max age is evaluated against the
// issue timestamp at verification time, mirroring a salted timed serializer:
// the token itself carries no expiry.
func (c *ApprovalTokenCodec) Verify(tokenStr, purpose string, maxAge time.Duration) (*ApprovalPayload, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &approvalClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, ErrTokenInvalid
		}
		return c.signingKey(purpose), nil
	})
	if err != nil {
		return nil, ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*approvalClaims)
	if !ok || !parsed.Valid || claims.IssuedAt == nil {
		return nil, ErrTokenInvalid
	}
	if time.Since(claims.IssuedAt.Time) > maxAge {
		return nil, ErrTokenExpired
	}
	if claims.ApprovalID == "" || claims.TicketID == "" {
		return nil, ErrTokenInvalid
	}
	return &ApprovalPayload{ApprovalID: claims.ApprovalID, TicketID: claims.TicketID}, nil
}
