package main

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/ipatlas/ipatlas/atlas"
)

type logger struct {
	loadLog   zerolog.Logger
	lookupLog zerolog.Logger
}

func (l *logger) LoadInfo(dataset string, records int) {
	l.loadLog.Info().Str("dataset", dataset).Int("records", records).Msg("Database was loaded")
}

func (l *logger) LoadError(dataset string, err error) {
	l.loadLog.Error().Str("dataset", dataset).Err(err).Msg("")
}

func (l *logger) LookupError(ip string, err error) {
	l.lookupLog.Error().Str("ip", ip).Err(err).Msg("")
}

func newLogger() atlas.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	return &logger{
		loadLog:   zerolog.New(os.Stderr).With().Timestamp().Str("event_name", "load").Logger(),
		lookupLog: zerolog.New(os.Stderr).With().Timestamp().Str("event_name", "lookup").Logger(),
	}
}
