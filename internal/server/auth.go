package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mithrel/craftforum/pkg/api"
)

const tokenIssuer = "craftforum"

var errNoSecret = errors.New("auth.jwt_secret is not configured")

// Claims carry the viewer identity inside a bearer token.
type Claims struct {
	Username    string `json:"username"`
	ForumUserID api.ID `json:"forum_user_id,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) Viewer() api.Viewer {
	return api.Viewer{Username: c.Username, ForumUserID: c.ForumUserID}
}

// Tokens mints and validates HS256 viewer tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *Tokens) Mint(v api.Viewer) (string, error) {
	if len(t.secret) == 0 {
		return "", errNoSecret
	}
	if v.Username == "" {
		return "", errors.New("username is required")
	}
	now := t.now()
	claims := &Claims{
		Username:    v.Username,
		ForumUserID: v.ForumUserID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   v.Username,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

func (t *Tokens) Parse(raw string) (*Claims, error) {
	if len(t.secret) == 0 {
		return nil, errNoSecret
	}
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(t.now))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Username == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

type contextKey string

const viewerKey contextKey = "viewer"

func withViewer(ctx context.Context, v api.Viewer) context.Context {
	return context.WithValue(ctx, viewerKey, v)
}

// ViewerFrom returns the request viewer; anonymous when no token was sent.
func ViewerFrom(ctx context.Context) api.Viewer {
	v, _ := ctx.Value(viewerKey).(api.Viewer)
	return v
}

// authenticate attaches the bearer token's viewer to the request. Requests
// without a token continue anonymously; a bad token is rejected.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, s.log, &apiError{Status: http.StatusUnauthorized, Code: codeUnauthenticated, Message: "invalid authorization format"})
			return
		}
		claims, err := s.tokens.Parse(strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")))
		if err != nil {
			s.log.Debugw("token rejected", "err", err)
			writeError(w, s.log, &apiError{Status: http.StatusUnauthorized, Code: codeUnauthenticated, Message: "invalid token"})
			return
		}
		next.ServeHTTP(w, r.WithContext(withViewer(r.Context(), claims.Viewer())))
	})
}
