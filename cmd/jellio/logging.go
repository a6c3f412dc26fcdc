package main

import (
	"io"

	gostremio "github.com/deflix-tv/go-stremio"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger creates a logger with go-stremio's defaults for the given level.
// With the "json" encoding the core is replaced by a JSON core with the same level that writes to jsonOut.
func newLogger(level, encoding string, jsonOut io.Writer) (*zap.Logger, error) {
	logger, err := gostremio.NewLogger(level)
	if err != nil || encoding != "json" {
		return logger, err
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "ts"
	encoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	encoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	return logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.Lock(zapcore.AddSync(jsonOut)), zapcore.LevelOf(core))
	})), nil
}
