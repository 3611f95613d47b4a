package normalize

import (
	"bufio"
	"bytes"
	"fmt"
	"net/http"
	"net/http/httputil"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// cacheTransport keeps successful GET responses in memory so the same article
// linked from several entries is downloaded once.
type cacheTransport struct {
	cache *expirable.LRU[string, []byte]
	log   *zap.Logger
}

func newCacheTransport(cacheSize int, expiration time.Duration, log *zap.Logger) *cacheTransport {
	return &cacheTransport{
		cache: expirable.NewLRU[string, []byte](cacheSize, nil, expiration),
		log:   log,
	}
}

func (c *cacheTransport) wrap(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		if req.Method != http.MethodGet {
			return next.RoundTrip(req)
		}

		key := req.URL.String()
		if val, ok := c.cache.Get(key); ok {
			c.log.Debug("Cache hit", zap.String("url", key))
			return responseFromBytes(val, req)
		}

		resp, err := next.RoundTrip(req)
		if err != nil {
			return resp, err
		}
		// only cache successful responses
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return resp, nil
		}

		v, err := httputil.DumpResponse(resp, true)
		if err != nil {
			c.log.Warn("Failed to dump response", zap.Error(err))
			return resp, nil
		}
		c.cache.Add(key, v)
		return responseFromBytes(v, req)
	})
}

func responseFromBytes(v []byte, req *http.Request) (*http.Response, error) {
	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(v)), req)
	if err != nil {
		return nil, fmt.Errorf("failed to read cached response: %w", err)
	}
	return resp, nil
}
