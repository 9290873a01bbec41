package logger

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogging points the global logger at the console and, when path is
// set, at that file too.
func InitLogging(path string) {
	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Error().Err(err).Str("path", path).Msg("cannot open log file, logging to console only")
		} else {
			out = zerolog.MultiLevelWriter(out, f)
		}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}

// SetLevel sets the global level. Unknown names fall back to info.
func SetLevel(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// WithFields returns a context whose log lines carry the given fields.
// Packages logging through zerolog.Ctx pick them up as well.
func WithFields(ctx context.Context, fields map[string]interface{}) context.Context {
	l := fromContext(ctx).With().Fields(fields).Logger()
	return l.WithContext(ctx)
}

func fromContext(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
			return l
		}
	}
	return &log.Logger
}

func DebugLog(ctx context.Context, format string, args ...interface{}) {
	fromContext(ctx).Debug().Msgf(format, args...)
}

func InfoLog(ctx context.Context, format string, args ...interface{}) {
	fromContext(ctx).Info().Msgf(format, args...)
}

func WarnLog(ctx context.Context, format string, args ...interface{}) {
	fromContext(ctx).Warn().Msgf(format, args...)
}

func ErrorLog(ctx context.Context, format string, args ...interface{}) {
	fromContext(ctx).Error().Msgf(format, args...)
}
