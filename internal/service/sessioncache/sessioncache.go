// Package sessioncache хранит токены сессий курьера между синхронизациями.
// Данные трекинга и финансов здесь не кешируются.
package sessioncache

import (
	"context"
	"strings"
	"time"
)

type Cache interface {
	// Get: ok == false, если токена нет или он истек
	Get(ctx context.Context, key string) (token string, ok bool, err error)
	Set(ctx context.Context, key string, token string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

const keyPrefix = "allset:courier:session:"

// Key - ключ сессии для пары тенант + email
func Key(tenant string, email string) string {
	return keyPrefix + strings.ToLower(strings.TrimSpace(tenant)) + ":" + strings.ToLower(strings.TrimSpace(email))
}
