package cache

import "time"

// Service is a minimal TTL key-value cache. The harvester uses it to put an
// engine on cool-down after a harvest failure.
type Service interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte, expiration time.Duration) error
	Delete(key string) error
}
