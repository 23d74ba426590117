package main

import (
	"log/slog"
	"os"
	"strconv"

	_ "github.com/joho/godotenv/autoload"

	"github.com/madisonwongtx/producktive/mail"
	"github.com/madisonwongtx/producktive/server"
)

func main() {
	cfg := server.Config{
		Port:          getEnvInt("PORT", 3000),
		Env:           getEnv("ENV", "dev"),
		DBPath:        getEnv("DB_PATH", "./producktive.db"),
		AllowedOrigin: getEnv("ALLOWED_ORIGIN", "http://localhost:3001"),
		Mail: mail.Config{
			Host:     os.Getenv("MAIL_HOST"),
			Port:     getEnvInt("MAIL_PORT", 587),
			Username: os.Getenv("MAIL_USERNAME"),
			Password: os.Getenv("MAIL_PASSWORD"),
			From:     getEnv("MAIL_FROM", "duck@producktive.app"),
		},
	}

	srv, err := server.New(cfg)
	if err != nil {
		slog.Error("failed to build server", "err", err)
		os.Exit(1)
	}
	if err := srv.Start(); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("ignoring non-numeric env value", "key", key, "value", value)
		return fallback
	}
	return n
}
