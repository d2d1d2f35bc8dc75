// Package logging builds the zap logger shared by the pipeline, the batch
// runner and the CLI.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects the level, encoding and destination of log output.
type Options struct {
	// Level is a zap level name: debug, info, warn, error.
	Level string
	// Format is "console" or "json".
	Format string
	// File, when set, sends output to a size-rotated file instead of stderr.
	File string
}

// New returns a logger for opts. Callers should Sync it before exit.
func New(opts Options) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		parsed, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("failed to parse log level: %w", err)
		}
		level = parsed
	}

	encoder, err := newEncoder(opts.Format, opts.File == "")
	if err != nil {
		return nil, err
	}

	var sink zapcore.WriteSyncer = zapcore.Lock(os.Stderr)
	if opts.File != "" {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // MB
			MaxBackups: 2,
			MaxAge:     28, // days
			Compress:   true,
		})
	}

	core := zapcore.NewCore(encoder, sink, level)
	return zap.New(core, zap.AddCaller()), nil
}

// newEncoder builds the encoder for format. Level colors are only used on a
// terminal stream; files get plain level names.
func newEncoder(format string, colored bool) (zapcore.Encoder, error) {
	switch format {
	case "", "console":
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		if colored {
			cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		return zapcore.NewConsoleEncoder(cfg), nil
	case "json":
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		return zapcore.NewJSONEncoder(cfg), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}
