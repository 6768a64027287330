// Package kv is the key-value persistence medium behind the agenda store.
// Every backend stores whole values by string key, the way a browser's
// local storage does.
package kv

import (
	"context"
	"errors"
)

// ErrClosed is returned by backends used after Close.
var ErrClosed = errors.New("kv: store closed")

// Store is a synchronous key-value mapping with whole-value reads and writes.
type Store interface {
	// Get returns the value for key. ok is false when the key was never set.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set replaces the value for key.
	Set(ctx context.Context, key string, value []byte) error
	// Ping reports whether the medium is reachable.
	Ping(ctx context.Context) error
	Close() error
}
