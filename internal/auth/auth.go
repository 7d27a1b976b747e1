// Package auth turns bearer tokens into a model.Session for the request.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/healthythako/booking-service/internal/model"
	xhttp "github.com/healthythako/booking-service/pkg/http"
)

const sessionKey = "session"

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid or expired token")
)

type Claims struct {
	Role  string `json:"role"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

type Authenticator struct {
	secret []byte
	issuer string
}

func New(secret, issuer string) *Authenticator {
	return &Authenticator{secret: []byte(secret), issuer: issuer}
}

// Issue signs a token for the session. Used by tests and the cli.
func (a *Authenticator) Issue(s model.Session, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role:  string(s.Role),
		Email: s.Email,
		Name:  s.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.UserID.String(),
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *Authenticator) Parse(tokenString string) (*model.Session, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}
	claims := &Claims{}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}
	role := model.Role(claims.Role)
	if role == "" {
		role = model.RoleClient
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}
	return &model.Session{UserID: userID, Role: role, Email: claims.Email, Name: claims.Name}, nil
}

// Require rejects the request with 401 unless it carries a valid token.
func (a *Authenticator) Require(next xhttp.RequestHandler) xhttp.RequestHandler {
	return func(ctx *xhttp.RequestCtx) {
		s, err := a.Parse(bearer(ctx))
		if err != nil {
			ctx.Response.Header.SetContentType("application/json; charset=utf-8")
			ctx.SetStatusCode(xhttp.StatusUnauthorized)
			ctx.SetBodyString(`{"error":"` + err.Error() + `","code":"unauthenticated"}`)
			return
		}
		ctx.SetUserValue(sessionKey, s)
		next(ctx)
	}
}

// Optional attaches a session when the token is valid and carries on regardless.
func (a *Authenticator) Optional(next xhttp.RequestHandler) xhttp.RequestHandler {
	return func(ctx *xhttp.RequestCtx) {
		if s, err := a.Parse(bearer(ctx)); err == nil {
			ctx.SetUserValue(sessionKey, s)
		}
		next(ctx)
	}
}

// SessionFrom returns the caller's session, or nil on an anonymous request.
func SessionFrom(ctx *xhttp.RequestCtx) *model.Session {
	s, _ := ctx.UserValue(sessionKey).(*model.Session)
	return s
}

func bearer(ctx *xhttp.RequestCtx) string {
	h := string(ctx.Request.Header.Peek("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
