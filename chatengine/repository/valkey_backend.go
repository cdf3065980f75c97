package repository

import (
	"context"
	"fmt"
	"time"

	valkeylib "github.com/valkey-io/valkey-go"

	"github.com/karacho11/first-chatbot-back/chatengine/domain"
	"github.com/karacho11/first-chatbot-back/infrastructure/valkey"
)

// ValkeyBackend implements domain.Backend using Valkey. Expiry is delegated
// to Valkey's native per-key TTL.
type ValkeyBackend struct {
	client *valkey.Client
}

var _ domain.Backend = (*ValkeyBackend)(nil)

// NewValkeyBackend creates a new ValkeyBackend on top of a shared client.
func NewValkeyBackend(client *valkey.Client) *ValkeyBackend {
	return &ValkeyBackend{client: client}
}

func (s *ValkeyBackend) inner() valkeylib.Client {
	return s.client.Inner()
}

func (s *ValkeyBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	set := s.inner().B().Set().Key(s.client.Key(key)).Value(valkeylib.BinaryString(value))

	var err error
	if ttl > 0 {
		err = s.inner().Do(ctx, set.Ex(ttl).Build()).Error()
	} else {
		err = s.inner().Do(ctx, set.Build()).Error()
	}
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (s *ValkeyBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	cmd := s.inner().B().Get().Key(s.client.Key(key)).Build()

	data, err := s.inner().Do(ctx, cmd).AsBytes()
	if err != nil {
		if valkey.IsNil(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return data, true, nil
}

func (s *ValkeyBackend) Delete(ctx context.Context, key string) error {
	cmd := s.inner().B().Del().Key(s.client.Key(key)).Build()
	if err := s.inner().Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (s *ValkeyBackend) Exists(ctx context.Context, key string) (bool, error) {
	cmd := s.inner().B().Exists().Key(s.client.Key(key)).Build()
	n, err := s.inner().Do(ctx, cmd).AsInt64()
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", key, err)
	}
	return n > 0, nil
}

// Keys lists matching keys via SCAN so large keyspaces are never blocked by KEYS.
func (s *ValkeyBackend) Keys(ctx context.Context, pattern string) ([]string, error) {
	raw, err := s.client.Scan(ctx, s.client.Key(pattern))
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(raw))
	for _, k := range raw {
		keys = append(keys, s.client.StripPrefix(k))
	}
	return keys, nil
}

func (s *ValkeyBackend) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}
