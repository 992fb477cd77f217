package classcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/DevHassanMehdi/ImageUpLift/internal/db"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/classification"
)

var cacheKeyPrefix = domain.KeyPrefix + "class_cache:"

type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// entry is the cached form of a classification.
type entry struct {
	Label      string             `json:"label"`
	Confidence float64            `json:"confidence"`
	Probs      map[string]float64 `json:"probs"`
}

// Classifier caches classifications keyed by image content and classifier name.
type Classifier struct {
	inner      classification.Classifier
	name       string
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New wraps inner. name scopes the keys so switching models never serves stale
// labels. cacheTotal has a single "result" label (hit/miss) and may be nil.
func New(
	inner classification.Classifier,
	name string,
	s store,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *Classifier {
	return &Classifier{
		inner:      inner,
		name:       name,
		store:      s,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Classify returns the cached result or calls the inner classifier.
func (c *Classifier) Classify(ctx context.Context, img domain.Image) (classification.Classification, error) {
	key := c.cacheKey(img.Data)

	if cls, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return cls, nil
	}
	c.incCache("miss")

	cls, err := c.inner.Classify(ctx, img)
	if err != nil {
		return classification.Classification{}, err
	}

	c.putToCache(ctx, key, cls)
	return cls, nil
}

// HealthCheck delegates to the inner classifier when it supports it.
func (c *Classifier) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (c *Classifier) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *Classifier) cacheKey(data []byte) string {
	h := sha256.Sum256(data)
	return cacheKeyPrefix + c.name + ":" + hex.EncodeToString(h[:])
}

func (c *Classifier) getFromCache(ctx context.Context, key string) (classification.Classification, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached classification", zap.String("key", key), zap.Error(err))
		}
		return classification.Classification{}, false
	}
	if len(data) == 0 {
		return classification.Classification{}, false
	}

	cls, err := decodeEntry(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached classification", zap.String("key", key), zap.Error(err))
		return classification.Classification{}, false
	}
	return cls, true
}

func (c *Classifier) putToCache(ctx context.Context, key string, cls classification.Classification) {
	data, err := json.Marshal(entry{
		Label:      string(cls.Label()),
		Confidence: cls.Confidence(),
		Probs:      cls.Probs(),
	})
	if err != nil {
		c.logger.Warn("Failed to encode classification", zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache classification", zap.String("key", key), zap.Error(err))
	}
}

func decodeEntry(data []byte) (classification.Classification, error) {
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return classification.Classification{}, fmt.Errorf("unmarshal: %w", err)
	}
	label, err := classification.ParseImageType(e.Label)
	if err != nil {
		return classification.Classification{}, err
	}
	if e.Confidence < 0 || e.Confidence > 1 {
		return classification.Classification{}, fmt.Errorf("confidence %v out of range", e.Confidence)
	}
	return classification.Reconstruct(label, e.Confidence, e.Probs), nil
}
