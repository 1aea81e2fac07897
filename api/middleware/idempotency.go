package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

const (
	idempotencyHeader = "Idempotency-Key"
	replayHeader      = "Idempotent-Replayed"

	cartIdempotencyTTL  = 24 * time.Hour
	orderIdempotencyTTL = 7 * 24 * time.Hour
	// inFlightTTL bounds a claim whose request never finished.
	inFlightTTL = time.Minute
)

// idempotentRoutes lists the mutating routes that require an Idempotency-Key,
// keyed by "METHOD pattern".
var idempotentRoutes = map[string]time.Duration{
	http.MethodPost + " /api/v1/cart/items":       cartIdempotencyTTL,
	http.MethodPost + " /api/v1/orders":           orderIdempotencyTTL,
	http.MethodPost + " /api/v1/checkout/payment": orderIdempotencyTTL,
	http.MethodPost + " /api/v1/checkout/retry":   orderIdempotencyTTL,
}

type idempotencyStore interface {
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// storedResponse is the record kept under an idempotency key. A record with
// Done unset marks a request still being handled.
type storedResponse struct {
	RequestHash string `json:"request_hash"`
	Done        bool   `json:"done"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Idempotency makes the routes in idempotentRoutes safe to retry. The first
// request claims the key; repeats with the same body replay its response, a
// different body is rejected, and a repeat while the first is running gets a
// conflict. Server errors release the key so the client can retry.
func Idempotency(store idempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, ok := idempotentRoutes[r.Method+" "+routePattern(r)]
			if !ok || isNilStore(store) {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if clientKey == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			hash := requestHash(r, body)
			key := store.IdempotencyKey(idempotencyScope(r), clientKey)

			claim, _ := json.Marshal(storedResponse{RequestHash: hash})
			claimed, err := store.SetNX(ctx, key, string(claim), inFlightTTL)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key"))
				return
			}
			if !claimed {
				replayStored(ctx, store, logg, w, key, hash)
				return
			}

			rec := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			// The request context may already be canceled; the key still has
			// to be settled.
			settleCtx := context.WithoutCancel(ctx)
			status := rec.statusCode()
			if status >= http.StatusInternalServerError {
				if err := store.Del(settleCtx, key); err != nil {
					logError(ctx, logg, "release idempotency key", err)
				}
				return
			}
			record, _ := json.Marshal(storedResponse{
				RequestHash: hash,
				Done:        true,
				Status:      status,
				ContentType: rec.Header().Get("Content-Type"),
				Body:        rec.body.Bytes(),
			})
			if err := store.Set(settleCtx, key, string(record), ttl); err != nil {
				logError(ctx, logg, "persist idempotency record", err)
			}
		})
	}
}

func replayStored(ctx context.Context, store idempotencyStore, logg *logger.Logger, w http.ResponseWriter, key, hash string) {
	raw, err := store.Get(ctx, key)
	if pkgredis.IsNil(err) {
		// The claim expired or was released between SetNX and Get.
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "request with this idempotency key is in progress"))
		return
	}
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read idempotency record"))
		return
	}
	var stored storedResponse
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode idempotency record"))
		return
	}
	switch {
	case stored.RequestHash != hash:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with a different request"))
	case !stored.Done:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "request with this idempotency key is in progress"))
	default:
		if stored.ContentType != "" {
			w.Header().Set("Content-Type", stored.ContentType)
		}
		w.Header().Set(replayHeader, "true")
		w.WriteHeader(stored.Status)
		_, _ = w.Write(stored.Body)
	}
}

// isNilStore catches a typed nil *redis.Client passed through the interface.
func isNilStore(store idempotencyStore) bool {
	if store == nil {
		return true
	}
	client, ok := store.(*pkgredis.Client)
	return ok && client == nil
}

// idempotencyScope keeps keys from different customers and routes apart.
func idempotencyScope(r *http.Request) string {
	return strings.Join([]string{CustomerIDFromContext(r.Context()), r.Method, r.URL.Path}, "|")
}

func requestHash(r *http.Request, body []byte) string {
	h := sha256.New()
	h.Write([]byte(r.Method + " " + r.URL.Path + "\n"))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// routePattern prefers the matched chi pattern; inside a mounted group the
// pattern is still a wildcard, so it falls back to the request path.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" && !strings.HasSuffix(pattern, "*") {
			return pattern
		}
	}
	path := r.URL.Path
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}

// responseCapture tees the response so it can be stored.
type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseCapture) statusCode() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

func logError(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg == nil || err == nil || errors.Is(err, context.Canceled) {
		return
	}
	logg.Error(ctx, msg, err)
}
