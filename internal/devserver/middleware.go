package devserver

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const subjectKey contextKey = "devserver.subject"

var (
	errNoSecret      = errors.New("missing JWT secret")
	errNoSubject     = errors.New("missing subject")
	errInvalidToken  = errors.New("invalid token")
	errHeaderMissing = errors.New("authorization header required")
	errHeaderFormat  = errors.New("invalid authorization header")
)

// GetUserID returns the subject of the verified bearer token, if any.
func GetUserID(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	subject, ok := ctx.Value(subjectKey).(string)
	return subject, ok && subject != ""
}

// issuer signs and verifies the HS256 access tokens handed out by /auth/login.
type issuer struct {
	secret []byte
	ttl    time.Duration
	parser *jwt.Parser
}

func newIssuer(secret string, ttl time.Duration) *issuer {
	return &issuer{
		secret: []byte(strings.TrimSpace(secret)),
		ttl:    ttl,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()),
	}
}

func (i *issuer) sign(subject string, now time.Time) (string, error) {
	if len(i.secret) == 0 {
		return "", errNoSecret
	}
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

func (i *issuer) verify(raw string) (string, error) {
	if len(i.secret) == 0 {
		return "", errNoSecret
	}
	claims := &jwt.RegisteredClaims{}
	if _, err := i.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	}); err != nil {
		return "", errInvalidToken
	}
	if claims.Subject == "" {
		return "", errNoSubject
	}
	return claims.Subject, nil
}

// authenticate verifies the bearer token and stores its subject on the request
// context. With required false, a request carrying no Authorization header
// continues anonymously; a header that is present must still be valid.
func (i *issuer) authenticate(required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" && !required {
			c.Next()
			return
		}

		raw, err := bearerToken(header)
		if err != nil {
			unauthorized(c, err.Error())
			return
		}
		subject, err := i.verify(raw)
		if err != nil {
			unauthorized(c, err.Error())
			return
		}

		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), subjectKey, subject))
		c.Next()
	}
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errHeaderMissing
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", errHeaderFormat
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errHeaderFormat
	}
	return token, nil
}

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": message})
}
