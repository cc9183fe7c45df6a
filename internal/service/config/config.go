package config

import "time"

type Config struct {
	Courier CourierConfig

	// Фоновая синхронизация заказов с курьером. 0 - выключена
	SyncInterval time.Duration `env:"SYNC_INTERVAL" envDefault:"15m"`
	SyncWorkers  int           `env:"SYNC_WORKERS" envDefault:"4"`

	// Кеш сессий курьера. Без адреса - в памяти процесса
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"6h"`
}

// Учетные данные Curfox
type CourierConfig struct {
	Enabled  bool          `env:"CURFOX_ENABLED" envDefault:"false"`
	BaseURL  string        `env:"CURFOX_BASE_URL" envDefault:"https://v1.api.curfox.com"`
	Email    string        `env:"CURFOX_EMAIL"`
	Password string        `env:"CURFOX_PASSWORD"`
	Tenant   string        `env:"CURFOX_TENANT"`
	Timeout  time.Duration `env:"COURIER_TIMEOUT" envDefault:"15s"`
}
