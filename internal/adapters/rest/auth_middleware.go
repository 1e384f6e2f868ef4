package rest

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Определяем кастомный тип для ключа контекста, чтобы избежать коллизий.
type contextKey string

const identityKey = contextKey("identity")

// identityFromContext возвращает identity текущего запроса.
// nil - неаутентифицированный (анонимный) запрос; это штатное состояние,
// а не ошибка: каталог доступен на чтение всем.
func identityFromContext(ctx context.Context) *uuid.UUID {
	identity, _ := ctx.Value(identityKey).(*uuid.UUID)
	return identity
}

type tokenClaims struct {
	UserID uuid.UUID `json:"user_id"`
	jwt.RegisteredClaims
}

// AuthMiddleware извлекает identity из Bearer-токена.
//
// Отсутствие заголовка - не ошибка: запрос продолжается анонимным.
// А вот предъявленный, но невалидный токен отклоняется: молчаливое
// понижение до анонима маскировало бы проблемы клиента.
type AuthMiddleware struct {
	signingKey []byte
}

func NewAuthMiddleware(signingKey string) *AuthMiddleware {
	return &AuthMiddleware{signingKey: []byte(signingKey)}
}

func (m *AuthMiddleware) parseToken(tokenString string) (*uuid.UUID, error) {
	token, err := jwt.ParseWithClaims(tokenString, &tokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.signingKey, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid || claims.UserID == uuid.Nil {
		return nil, fmt.Errorf("invalid token claims")
	}
	userID := claims.UserID
	return &userID, nil
}

// Identify - middleware для всех маршрутов: кладет identity (или nil) в контекст.
func (m *AuthMiddleware) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			next.ServeHTTP(w, r)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			WriteJSONError(w, http.StatusUnauthorized, "Invalid Authorization header format")
			return
		}

		identity, err := m.parseToken(tokenString)
		if err != nil {
			WriteJSONError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireIdentity - middleware для мутаций: анонимные запросы отклоняются
// сразу, не доходя до use case.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if identityFromContext(r.Context()) == nil {
			WriteJSONError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
