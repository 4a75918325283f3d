package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Actor is the explicitly-identified person behind a request. Every mutating
// workflow operation takes the actor id as an argument; this middleware only
// resolves it from the bearer token. Full authentication lives upstream.
type Actor struct {
	ID   int64  `json:"act"`
	Name string `json:"name"`
	Role string `json:"role"`
}

type actorClaims struct {
	Actor
	jwt.RegisteredClaims
}

type ctxKey string

const ctxKeyActor ctxKey = "actor"

func ResolveActor(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := parseToken(secret, parts[1])
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyActor, claims.Actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetActor(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(ctxKeyActor).(Actor)
	return actor, ok && actor.ID > 0
}

func parseToken(secret, tokenString string) (*actorClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &actorClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*actorClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
