package logger

import (
	"io"
	"log/slog"
	"time"

	"github.com/rs/zerolog"
)

type zeroLogger struct {
	logger zerolog.Logger
	group  string
}

// Console writes human readable lines through zerolog's ConsoleWriter.
func Console(w io.Writer, level slog.Level, noColor bool) Logger {
	out := zerolog.ConsoleWriter{Out: w, NoColor: noColor, TimeFormat: time.DateTime}
	return &zeroLogger{
		logger: zerolog.New(out).Level(zerologLevel(level)).With().Timestamp().Logger(),
	}
}

func zerologLevel(level slog.Level) zerolog.Level {
	switch {
	case level >= slog.LevelError:
		return zerolog.ErrorLevel
	case level >= slog.LevelWarn:
		return zerolog.WarnLevel
	case level >= slog.LevelInfo:
		return zerolog.InfoLevel
	default:
		return zerolog.DebugLevel
	}
}

func (z *zeroLogger) Debug(msg string, args ...any) { z.emit(z.logger.Debug(), msg, args) }
func (z *zeroLogger) Info(msg string, args ...any)  { z.emit(z.logger.Info(), msg, args) }
func (z *zeroLogger) Warn(msg string, args ...any)  { z.emit(z.logger.Warn(), msg, args) }
func (z *zeroLogger) Error(msg string, args ...any) { z.emit(z.logger.Error(), msg, args) }

func (z *zeroLogger) emit(e *zerolog.Event, msg string, args []any) {
	if e == nil {
		return
	}
	if len(args) > 0 {
		e = e.Fields(z.fields(args))
	}
	e.Msg(msg)
}

func (z *zeroLogger) With(args ...any) Logger {
	return &zeroLogger{
		logger: z.logger.With().Fields(z.fields(args)).Logger(),
		group:  z.group,
	}
}

func (z *zeroLogger) WithGroup(name string) Logger {
	if name == "" {
		return z
	}
	return &zeroLogger{logger: z.logger, group: z.group + name + "."}
}

// fields turns slog style arguments into zerolog's key/value slice. A
// dangling value is reported under !BADKEY like slog does.
func (z *zeroLogger) fields(args []any) []any {
	out := make([]any, 0, len(args))
	for i := 0; i < len(args); i++ {
		switch a := args[i].(type) {
		case slog.Attr:
			out = append(out, z.group+a.Key, a.Value.Resolve().Any())
		case string:
			if i+1 == len(args) {
				out = append(out, "!BADKEY", a)
				continue
			}
			out = append(out, z.group+a, args[i+1])
			i++
		default:
			out = append(out, "!BADKEY", a)
		}
	}
	return out
}
