package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"checkout-service/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	AuthContextKey = "auth"
	GuestIDHeader  = "X-Guest-ID"
	guestCookie    = "guest_id"
	tokenCookie    = "token"
)

var ErrMissingSecret = errors.New("JWT secret not configured")

// TokenParser validates HMAC-signed access tokens.
type TokenParser struct {
	secret []byte
}

func NewTokenParser(secret string) *TokenParser {
	s := strings.TrimSpace(secret)
	if s == "" {
		return &TokenParser{}
	}
	return &TokenParser{secret: []byte(s)}
}

// Parse returns the token's claims. A "typ" claim, when present, must be
// "access".
func (p *TokenParser) Parse(tokenStr string) (jwt.MapClaims, error) {
	if p.secret == nil {
		return nil, ErrMissingSecret
	}

	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil || token == nil || !token.Valid {
		return nil, fmt.Errorf("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	if typ, ok := claims["typ"].(string); ok && typ != "access" {
		return nil, fmt.Errorf("invalid token type")
	}
	return claims, nil
}

// Authenticate resolves who is checking out. A request with a token must
// carry a valid one. A request without a token is a guest, identified by the
// X-Guest-ID header or guest_id cookie, and gets a fresh guest id otherwise.
func Authenticate(parser *TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Authenticated shopper
		if tokenStr := bearerToken(c); tokenStr != "" {
			claims, err := parser.Parse(tokenStr)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
				return
			}
			// Older tokens only carry sub
			userID := claimString(claims, "user_id")
			if userID == "" {
				userID = claimString(claims, "sub")
			}
			if userID == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Missing User ID"})
				return
			}
			c.Set(AuthContextKey, models.AuthContext{
				UserID: userID,
				Role:   claimString(claims, "role"),
				Token:  tokenStr,
			})
			c.Next()
			return
		}

		// Guest: header first, then cookie
		guestID := c.GetHeader(GuestIDHeader)
		if guestID == "" {
			if v, err := c.Cookie(guestCookie); err == nil {
				guestID = v
			}
		}
		if _, err := uuid.Parse(guestID); err != nil {
			guestID = uuid.NewString()
		}
		c.Header(GuestIDHeader, guestID)
		c.Set(AuthContextKey, models.AuthContext{GuestID: guestID})
		c.Next()
	}
}

// RequireRole rejects guests and users without role.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth, err := GetAuth(c)
		if err != nil || auth.IsGuest() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		if auth.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}
		c.Next()
	}
}

func GetAuth(c *gin.Context) (models.AuthContext, error) {
	val, exists := c.Get(AuthContextKey)
	if !exists {
		return models.AuthContext{}, errors.New("auth context not found")
	}
	auth, ok := val.(models.AuthContext)
	if !ok {
		return models.AuthContext{}, errors.New("auth context has invalid type")
	}
	return auth, nil
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if v, err := c.Cookie(tokenCookie); err == nil {
		return v
	}
	return ""
}

func claimString(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
