package main

import (
	"io"
	"log/slog"

	"github.com/International-Combat-Archery-Alliance/fan-registration/config"
)

func newLogger(w io.Writer, env config.Environment) *slog.Logger {
	if env == config.PROD {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})).With(slog.String("env", env.String()))
}
