package services

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Raed-Bourouis/VoiceUP/internal/metrics"
	"github.com/Raed-Bourouis/VoiceUP/pkg/logger"
)

// signedURLTTL is how long a presigned GET stays valid. Cached entries
// are not refreshed within a view's lifetime, so a chat kept open past
// the TTL can hold expired links until it is reopened.
const signedURLTTL = 3600 * time.Second

// Presigner issues a time-limited GET URL for a private object.
type Presigner interface {
	PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

// MediaResolver turns stored media URLs into renderable ones. Objects
// in the private media bucket get a presigned GET; the public avatar
// bucket passes through. One resolver lives per open chat view and
// memoizes every answer for that view's lifetime.
type MediaResolver struct {
	presigner     Presigner
	privateBucket string
	publicBucket  string
	log           zerolog.Logger

	mu    sync.Mutex
	cache map[string]string
}

func NewMediaResolver(presigner Presigner, privateBucket, publicBucket string) *MediaResolver {
	return &MediaResolver{
		presigner:     presigner,
		privateBucket: privateBucket,
		publicBucket:  publicBucket,
		log:           logger.With("mediaresolver"),
		cache:         make(map[string]string),
	}
}

// Resolve maps a stored URL to the one the UI renders. It never fails:
// any parse or presign problem falls back to the original URL, which
// the UI will show as a broken image rather than a broken chat.
func (r *MediaResolver) Resolve(ctx context.Context, originalURL string) string {
	if originalURL == "" {
		return originalURL
	}

	r.mu.Lock()
	if resolved, ok := r.cache[originalURL]; ok {
		r.mu.Unlock()
		metrics.SignedURLHits.Inc()
		return resolved
	}
	r.mu.Unlock()
	metrics.SignedURLMisses.Inc()

	resolved := r.resolve(ctx, originalURL)

	r.mu.Lock()
	r.cache[originalURL] = resolved
	r.mu.Unlock()
	return resolved
}

func (r *MediaResolver) resolve(ctx context.Context, originalURL string) string {
	bucket, key, ok := r.parse(originalURL)
	if !ok {
		return originalURL
	}
	if bucket != r.privateBucket {
		// Public bucket, the stored URL is already renderable
		return originalURL
	}

	signed, err := r.presigner.PresignGet(ctx, bucket, key, signedURLTTL)
	if err != nil {
		r.log.Warn().Err(err).Str("bucket", bucket).Str("key", key).Msg("presign failed, falling back to original url")
		return originalURL
	}
	return signed
}

// parse scans the URL's path segments for a known bucket name; the
// remainder is the object key.
func (r *MediaResolver) parse(originalURL string) (bucket, key string, ok bool) {
	parsed, err := url.Parse(originalURL)
	if err != nil {
		return "", "", false
	}

	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	for i, segment := range segments {
		if segment != r.privateBucket && segment != r.publicBucket {
			continue
		}
		if i == len(segments)-1 {
			return "", "", false
		}
		return segment, strings.Join(segments[i+1:], "/"), true
	}
	return "", "", false
}
