package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Options struct {
	Debug   bool
	Level   string
	LogDir  string // 为空时只输出到标准输出
	MaxDays int
}

// New 创建 zap 日志，调试模式使用 console 编码，否则使用 JSON
func New(opts Options) (*zap.Logger, func(), error) {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return nil, nil, fmt.Errorf("init logger: invalid level %q: %w", opts.Level, err)
		}
	}

	var encCfg zapcore.EncoderConfig
	if opts.Debug {
		encCfg = zap.NewDevelopmentEncoderConfig()
	} else {
		encCfg = zap.NewProductionEncoderConfig()
	}
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if opts.Debug {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	sinks := []zapcore.WriteSyncer{zapcore.Lock(os.Stdout)}
	cleanup := func() {}

	if opts.LogDir != "" {
		file, err := NewRotatingFile(opts.LogDir, opts.MaxDays)
		if err != nil {
			return nil, nil, fmt.Errorf("init logger: %w", err)
		}
		sinks = append(sinks, file)
		cleanup = func() { _ = file.Close() }
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(sinks...), level)

	options := []zap.Option{zap.AddCaller()}
	if opts.Debug {
		options = append(options, zap.Development())
	}

	l := zap.New(core, options...)
	return l, func() {
		_ = l.Sync()
		cleanup()
	}, nil
}
