// Package cache wraps an in-memory TTL cache behind a small interface so the
// live REST accessors can short-circuit repeated upstream lookups.
package cache

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// Cache defines the contract for cache implementations
type Cache interface {
	// Set stores a value in cache with the given key and duration
	Set(key string, value interface{}, duration time.Duration)

	// Get retrieves a value from cache by key
	// Returns the value and true if found, nil and false otherwise
	Get(key string) (interface{}, bool)

	// Delete removes a value from cache by key
	Delete(key string)

	// GetOrSet retrieves a value from cache, or loads it using the loader function if not found
	GetOrSet(key string, duration time.Duration, loader func() (any, error)) (interface{}, error)

	// Flush drops every cached entry
	Flush()
}

// Service is the in-memory cache implementation backed by go-cache.
type Service struct {
	cache *cache.Cache
}

// Ensure Service implements Cache
var _ Cache = (*Service)(nil)

func NewService(defaultExpirationSeconds, cleanUpIntervalSeconds int) *Service {
	defaultExpiration := time.Duration(defaultExpirationSeconds) * time.Second
	cleanUpInterval := time.Duration(cleanUpIntervalSeconds) * time.Second
	c := cache.New(defaultExpiration, cleanUpInterval)
	return &Service{cache: c}
}

func (cs *Service) Set(key string, value interface{}, duration time.Duration) {
	cs.cache.Set(key, value, duration)
}

func (cs *Service) Get(key string) (interface{}, bool) {
	return cs.cache.Get(key)
}

func (cs *Service) Delete(key string) {
	cs.cache.Delete(key)
}

func (cs *Service) GetOrSet(
	key string,
	duration time.Duration,
	loader func() (any, error)) (interface{}, error) {
	if val, found := cs.Get(key); found {
		return val, nil
	}

	val, err := loader()
	if err != nil {
		return nil, err
	}

	cs.Set(key, val, duration)
	return val, nil
}

func (cs *Service) Flush() {
	cs.cache.Flush()
}
