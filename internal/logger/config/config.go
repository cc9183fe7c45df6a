package config

type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	// development - человекочитаемый вывод
	Env string `env:"ENV" envDefault:"production"`
}
