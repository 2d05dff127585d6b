package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"usermanager/internal/cache"
	"usermanager/internal/models"
)

const (
	flashCookie   = "flash"
	sessionCookie = "session_id"
	flashTTL      = 5 * time.Minute
	sessionMaxAge = 7 * 24 * 60 * 60
)

// FlashStore carries a one-shot message across a redirect.
type FlashStore interface {
	Put(c *gin.Context, f models.Flash) error
	// Pop returns the pending message, if any, and clears it.
	Pop(c *gin.Context) (*models.Flash, error)
}

// CookieStore keeps the flash in an HS256-signed cookie.
type CookieStore struct {
	secret []byte
}

func NewCookieStore(secret string) (*CookieStore, error) {
	if secret == "" {
		return nil, errors.New("session secret is empty")
	}
	return &CookieStore{secret: []byte(secret)}, nil
}

type flashClaims struct {
	Kind    string `json:"kind"`
	Message string `json:"msg"`
	jwt.RegisteredClaims
}

func (s *CookieStore) Put(c *gin.Context, f models.Flash) error {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, flashClaims{
		Kind:    f.Kind,
		Message: f.Message,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(flashTTL)),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return fmt.Errorf("failed to sign flash: %w", err)
	}
	setCookie(c, flashCookie, signed, int(flashTTL.Seconds()))
	return nil
}

// Pop clears the cookie. A tampered or expired cookie yields no flash.
func (s *CookieStore) Pop(c *gin.Context) (*models.Flash, error) {
	raw, err := c.Cookie(flashCookie)
	if err != nil || raw == "" {
		return nil, nil
	}
	setCookie(c, flashCookie, "", -1)

	tok, err := jwt.ParseWithClaims(raw, &flashClaims{}, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid {
		return nil, nil
	}
	claims, _ := tok.Claims.(*flashClaims)
	if claims == nil || claims.Message == "" {
		return nil, nil
	}
	return &models.Flash{Kind: claims.Kind, Message: claims.Message}, nil
}

// RedisStore keys flashes by a random session id cookie.
type RedisStore struct {
	cache cache.Cache
}

func NewRedisStore(c cache.Cache) *RedisStore {
	return &RedisStore{cache: c}
}

func (s *RedisStore) Put(c *gin.Context, f models.Flash) error {
	sid, err := c.Cookie(sessionCookie)
	if err != nil || uuid.Validate(sid) != nil {
		sid = uuid.NewString()
		setCookie(c, sessionCookie, sid, sessionMaxAge)
	}
	if err := s.cache.SetJSON(c.Request.Context(), flashKey(sid), f, flashTTL); err != nil {
		return fmt.Errorf("failed to store flash: %w", err)
	}
	return nil
}

func (s *RedisStore) Pop(c *gin.Context) (*models.Flash, error) {
	sid, err := c.Cookie(sessionCookie)
	if err != nil || uuid.Validate(sid) != nil {
		return nil, nil
	}
	var f models.Flash
	if err := s.cache.TakeJSON(c.Request.Context(), flashKey(sid), &f); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load flash: %w", err)
	}
	return &f, nil
}

func flashKey(sid string) string {
	return "flash:" + sid
}

func setCookie(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", "", c.Request.TLS != nil, true)
}
