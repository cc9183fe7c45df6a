package config

import (
	"errors"
	"flag"
	"io/fs"
	"os"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	authConfig "github.com/aofbiz/allset/internal/auth/config"
	handlerConfig "github.com/aofbiz/allset/internal/handler/config"
	loggerConfig "github.com/aofbiz/allset/internal/logger/config"
	serviceConfig "github.com/aofbiz/allset/internal/service/config"
	storeConfig "github.com/aofbiz/allset/internal/store/config"
)

type Config struct {
	Handler handlerConfig.Config
	Service serviceConfig.Config
	Store   storeConfig.Config
	Logger  loggerConfig.Config
	Auth    authConfig.Config
}

const envFile = ".env"

// GetConfig собирает конфигурацию: .env, переменные окружения, флаги.
// Флаги имеют приоритет.
func GetConfig() (Config, error) {
	// .env не обязателен
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}
	return parse(os.Args[0], os.Args[1:])
}

func parse(name string, args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}

	fset := flag.NewFlagSet(name, flag.ContinueOnError)
	fset.StringVar(&cfg.Handler.ServerAddr, "a", cfg.Handler.ServerAddr, "{host:port} HTTP-сервера")
	fset.StringVar(&cfg.Store.DBDsn, "d", cfg.Store.DBDsn, "строка подключения к PostgreSQL")
	fset.StringVar(&cfg.Logger.LogLevel, "l", cfg.Logger.LogLevel, "уровень логирования")
	fset.StringVar(&cfg.Service.Courier.BaseURL, "c", cfg.Service.Courier.BaseURL, "адрес API курьера")
	if err := fset.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.Service.Courier.Enabled && (cfg.Service.Courier.Email == "" || cfg.Service.Courier.Tenant == "") {
		return Config{}, errors.New("CURFOX_EMAIL and CURFOX_TENANT must be set when CURFOX_ENABLED")
	}

	return cfg, nil
}
