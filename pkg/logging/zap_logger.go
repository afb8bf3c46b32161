package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ZapLogger struct {
	sugarLogger *zap.SugaredLogger
	rotator     *SequentialRotator
}

var _ Logger = (*ZapLogger)(nil)

// NewZapLogger builds a console + daily file logger for the configured process
func NewZapLogger(config LoggerConfig) (*ZapLogger, error) {
	level := zapcore.InfoLevel
	if config.IsDevelopment {
		level = zapcore.DebugLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(TimeFormat)
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	consoleConfig := encoderConfig
	if config.IsDevelopment {
		consoleConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleConfig), zapcore.Lock(os.Stdout), level),
	}

	var rotator *SequentialRotator
	if !config.DisableFile {
		baseDir := config.LogDir
		if baseDir == "" {
			baseDir = BaseDataDir
		}
		logDir := filepath.Join(baseDir, LogsDir, string(config.ProcessName))
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		logPath := filepath.Join(logDir, time.Now().Format(LogFileFormat))
		rotator = NewSequentialRotator(logPath, config.MaxSizeMB, config.MaxAgeDays, config.MaxBackups)
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(rotator), level))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1)).
		With(zap.String("process", string(config.ProcessName)))

	return &ZapLogger{
		sugarLogger: logger.Sugar(),
		rotator:     rotator,
	}, nil
}

func (z *ZapLogger) Debug(msg string, tags ...any) {
	z.sugarLogger.Debugw(msg, tags...)
}

func (z *ZapLogger) Info(msg string, tags ...any) {
	z.sugarLogger.Infow(msg, tags...)
}

func (z *ZapLogger) Warn(msg string, tags ...any) {
	z.sugarLogger.Warnw(msg, tags...)
}

func (z *ZapLogger) Error(msg string, tags ...any) {
	z.sugarLogger.Errorw(msg, tags...)
}

func (z *ZapLogger) Fatal(msg string, tags ...any) {
	z.sugarLogger.Fatalw(msg, tags...)
}

func (z *ZapLogger) Debugf(template string, args ...interface{}) {
	z.sugarLogger.Debugf(template, args...)
}

func (z *ZapLogger) Infof(template string, args ...interface{}) {
	z.sugarLogger.Infof(template, args...)
}

func (z *ZapLogger) Warnf(template string, args ...interface{}) {
	z.sugarLogger.Warnf(template, args...)
}

func (z *ZapLogger) Errorf(template string, args ...interface{}) {
	z.sugarLogger.Errorf(template, args...)
}

func (z *ZapLogger) Fatalf(template string, args ...interface{}) {
	z.sugarLogger.Fatalf(template, args...)
}

func (z *ZapLogger) With(tags ...any) Logger {
	return &ZapLogger{
		sugarLogger: z.sugarLogger.With(tags...),
		rotator:     z.rotator,
	}
}

func (z *ZapLogger) WithTraceID(traceID string) Logger {
	return z.With("trace_id", traceID)
}

// Sync flushes buffered entries and closes the log file
func (z *ZapLogger) Sync() error {
	// stdout sync errors are expected on most platforms
	_ = z.sugarLogger.Sync()
	if z.rotator != nil {
		return z.rotator.Close()
	}
	return nil
}
