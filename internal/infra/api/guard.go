package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"whatsapp-ai-agent/internal/infra/logging"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Middleware func(http.Handler) http.Handler

func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func TraceID(logger *zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tid := r.Header.Get("X-Request-ID")
			if tid == "" {
				tid = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", tid)
			ctx := logging.WithTraceID(r.Context(), tid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequestLog(logger *zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := logging.With(r.Context(), logger)
			start := time.Now()
			ww := &respWriter{ResponseWriter: w, status: 200}
			next.ServeHTTP(ww, r)
			l.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.status).
				Dur("duration", time.Since(start)).
				Msg("http_request")
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func Recover(logger *zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					l := logging.With(r.Context(), logger)
					l.Error().Interface("panic", rec).Msg("panic recovered")
					writeJSON(w, http.StatusInternalServerError, errorReply{Success: false, Error: "internal error"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BridgeClaims is the token payload the WhatsApp bridge signs with the shared secret.
type BridgeClaims struct {
	SessionID string `json:"session_id,omitempty"`
	jwt.RegisteredClaims
}

// BridgeAuth requires an HS256 bearer token signed with secret. An empty secret disables the check.
func BridgeAuth(secret, issuer string, logger *zerolog.Logger) Middleware {
	key := []byte(secret)
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	parser := jwt.NewParser(opts...)

	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := &BridgeClaims{}
			tok, err := bearerToken(r)
			if err == nil {
				_, err = parser.ParseWithClaims(tok, claims, func(*jwt.Token) (any, error) { return key, nil })
			}
			if err != nil {
				logging.With(r.Context(), logger).Warn().Err(err).Str("path", r.URL.Path).Msg("bridge auth rejected")
				writeJSON(w, http.StatusUnauthorized, errorReply{Success: false, Error: "unauthorized"})
				return
			}
			ctx := r.Context()
			if claims.SessionID != "" {
				ctx = context.WithValue(ctx, bridgeSessionKey{}, claims.SessionID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type bridgeSessionKey struct{}

// sessionAllowed reports whether a token scoped to one session may act on sessionID.
// Tokens without a session claim may act on any session.
func sessionAllowed(ctx context.Context, sessionID string) bool {
	scoped, ok := ctx.Value(bridgeSessionKey{}).(string)
	return !ok || scoped == sessionID
}

func bearerToken(r *http.Request) (string, error) {
	hdr := r.Header.Get("Authorization")
	if hdr == "" {
		return "", errors.New("missing token")
	}
	if len(hdr) < 7 || !strings.EqualFold(hdr[:7], "bearer ") {
		return "", errors.New("malformed authorization header")
	}
	return strings.TrimSpace(hdr[7:]), nil
}
