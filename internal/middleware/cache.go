package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/auditorium-seat-reservation/internal/config"
	"github.com/iliyamo/auditorium-seat-reservation/internal/model"
)

// captureWriter tees the response body into buf until it grows past limit.
type captureWriter struct {
	http.ResponseWriter
	status   int
	buf      bytes.Buffer
	limit    int
	overflow bool
}

func (w *captureWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *captureWriter) Write(b []byte) (int, error) {
	if !w.overflow {
		if w.limit > 0 && w.buf.Len()+len(b) > w.limit {
			w.overflow = true
			w.buf.Reset()
		} else {
			w.buf.Write(b)
		}
	}
	return w.ResponseWriter.Write(b)
}

// Every cached entry of a show lives under "<prefix>:show:<id>:". The
// generation counter sits outside that scope so invalidation never deletes
// it.
func showScope(prefix, showID string) string {
	return prefix + ":show:" + showID
}

func generationKey(prefix, showID string) string {
	return prefix + ":gen:show:" + showID
}

// cacheKey hashes the request path and query into the show's scope.
func cacheKey(prefix string, c echo.Context) string {
	r := c.Request()
	sum := sha1.Sum([]byte(r.URL.Path + "?" + r.URL.RawQuery))
	return fmt.Sprintf("%s:%x", showScope(prefix, c.Param("id")), sum[:])
}

// encodePayload packs: [4 bytes status][4 bytes headerLen][headerJSON][body]
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hdrJSON, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdrJSON)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
	copy(out[8:], hdrJSON)
	copy(out[8+len(hdrJSON):], body)
	return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status = int(binary.BigEndian.Uint32(bs[0:4]))
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if hlen < 0 || 8+hlen > len(bs) {
		return 0, nil, nil, false
	}
	header = make(http.Header)
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &header); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, header, bs[8+hlen:], true
}

// ResponseCache caches the per-show read views in Redis and listens for
// ledger changes to drop the entries of the affected show.
//
// A response computed while a reservation commits could be stored after
// the invalidation that followed the commit. To rule that out each show
// carries a generation counter: Invalidate bumps it before deleting, and
// the middleware only stores when the generation it saw before running
// the handler is still current.
type ResponseCache struct {
	cfg    config.CacheConfig
	rdb    *redis.Client
	logger *log.Logger
}

// NewResponseCache returns a cache; a nil client or a disabled config
// turns every operation into a no-op.
func NewResponseCache(cfg config.CacheConfig, rdb *redis.Client) *ResponseCache {
	return &ResponseCache{cfg: cfg, rdb: rdb, logger: log.New("cache")}
}

func (rc *ResponseCache) active() bool {
	return rc.cfg.Enabled && rc.rdb != nil
}

// Invalidate advances the show's generation and deletes every cached
// response scoped to it.
func (rc *ResponseCache) Invalidate(ctx context.Context, showID uint64) error {
	if !rc.active() {
		return nil
	}
	id := strconv.FormatUint(showID, 10)
	if err := rc.rdb.Incr(ctx, generationKey(rc.cfg.Prefix, id)).Err(); err != nil {
		return err
	}
	match := showScope(rc.cfg.Prefix, id) + ":*"
	var cursor uint64
	for {
		keys, next, err := rc.rdb.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := rc.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// ReservationCommitted drops the cached views of the reservation's show.
func (rc *ResponseCache) ReservationCommitted(ctx context.Context, r model.Reservation) {
	rc.invalidateDetached(ctx, r.ShowID)
}

// ReservationCancelled drops the cached views of the reservation's show.
func (rc *ResponseCache) ReservationCancelled(ctx context.Context, r model.Reservation) {
	rc.invalidateDetached(ctx, r.ShowID)
}

func (rc *ResponseCache) invalidateDetached(ctx context.Context, showID uint64) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := rc.Invalidate(ctx, showID); err != nil {
		rc.logger.Warnf("invalidate show %d: %v", showID, err)
	}
}

// generation reads the show's counter; a missing key is generation "".
func (rc *ResponseCache) generation(ctx context.Context, key string) (string, error) {
	gen, err := rc.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return gen, err
}

// storeIfCurrent writes payload under key only while the show's generation
// still equals seen. It reports whether the entry was stored.
func (rc *ResponseCache) storeIfCurrent(ctx context.Context, genKey, seen, key string, payload []byte) (bool, error) {
	stored := false
	err := rc.rdb.Watch(ctx, func(tx *redis.Tx) error {
		gen, err := tx.Get(ctx, genKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if gen != seen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetEx(ctx, key, payload, rc.cfg.TTL)
			return nil
		})
		if errors.Is(err, redis.TxFailedErr) {
			return nil
		}
		stored = err == nil
		return err
	}, genKey)
	return stored, err
}

// Middleware caches successful GET responses of routes carrying a show
// :id. Headers and body are replayed as originally written.
func (rc *ResponseCache) Middleware() echo.MiddlewareFunc {
	if !rc.active() {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return next
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			showID := c.Param("id")
			if c.Request().Method != http.MethodGet || showID == "" {
				return next(c)
			}

			ctx := c.Request().Context()
			key := cacheKey(rc.cfg.Prefix, c)

			if bs, err := rc.rdb.Get(ctx, key).Bytes(); err == nil {
				if status, hdr, body, ok := decodePayload(bs); ok {
					for k, vals := range hdr {
						if strings.EqualFold(k, echo.HeaderContentLength) {
							continue
						}
						for _, v := range vals {
							c.Response().Header().Add(k, v)
						}
					}
					c.Response().Header().Set("X-Cache", "HIT")
					c.Response().WriteHeader(status)
					_, err := c.Response().Write(body)
					return err
				}
			}

			genKey := generationKey(rc.cfg.Prefix, showID)
			seen, err := rc.generation(ctx, genKey)
			if err != nil {
				rc.logger.Warnf("read generation of show %s: %v", showID, err)
				return next(c)
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: rc.cfg.MaxBodyBytes}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK || cw.overflow {
				return nil
			}

			payload, err := encodePayload(cw.status, c.Response().Header().Clone(), cw.buf.Bytes())
			if err != nil {
				return nil
			}
			if stored, err := rc.storeIfCurrent(context.WithoutCancel(ctx), genKey, seen, key, payload); err != nil {
				rc.logger.Warnf("store %s: %v", key, err)
			} else if !stored {
				rc.logger.Debugf("show %s changed while rendering; %s not stored", showID, key)
			}
			return nil
		}
	}
}
