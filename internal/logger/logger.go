// Package logger wraps zap behind a package-level logger, the teacher's
// pattern of a single initialized instance instead of threading a value
// through every call.
package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var log *zap.Logger

// Init configures the package logger to write structured JSON to stdout
// and, when logPath is non-empty, a rotating file via lumberjack. Call
// once at process start.
func Init(logPath string) error {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderCfg)

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(os.Stdout)), zap.InfoLevel),
	}
	if logPath != "" {
		rotator := &lumberjack.Logger{
			Filename:   logPath,
			MaxSize:    50,
			MaxBackups: 5,
			MaxAge:     28,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(rotator), zap.InfoLevel))
	}

	log = zap.New(zapcore.NewTee(cores...))
	return nil
}

func checkLogger() {
	if log == nil {
		panic(fmt.Errorf("logger not initialized, call logger.Init() first"))
	}
}

func Info(msg string, fields ...zap.Field) {
	checkLogger()
	log.Info(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	checkLogger()
	log.Error(msg, fields...)
}

func Debug(msg string, fields ...zap.Field) {
	checkLogger()
	log.Debug(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	checkLogger()
	log.Warn(msg, fields...)
}

func Fatal(msg string, fields ...zap.Field) {
	checkLogger()
	log.Fatal(msg, fields...)
}

// Sync flushes any buffered log entries.
func Sync() error {
	checkLogger()
	return log.Sync()
}
