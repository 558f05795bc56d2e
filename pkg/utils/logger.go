package utils

import (
	"io"
	"log/syslog"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Destination names where debug output goes.
type Destination string

const (
	// DestinationConsole writes human-readable lines to stderr.
	DestinationConsole Destination = "console"
	// DestinationSyslog sends messages over UDP to the cellveyor log server.
	DestinationSyslog Destination = "syslog"

	// DefaultLevel is the level used when none or an unknown one is given.
	DefaultLevel = "ERROR"
	// DefaultSyslogAddress is where the log server listens by default.
	DefaultSyslogAddress = "127.0.0.1:2525"
)

// LoggerConfig selects the logger's level and destination.
type LoggerConfig struct {
	// Level is one of DEBUG, INFO, WARNING, ERROR, CRITICAL (case-insensitive).
	Level string
	// Destination is "console" or "syslog"; anything else falls back to console.
	Destination string
	// SyslogAddress is host:port of the log server; defaults to DefaultSyslogAddress.
	SyslogAddress string
	// Writer receives console output; defaults to stderr.
	Writer io.Writer
}

var levels = map[string]zapcore.Level{
	"DEBUG":    zapcore.DebugLevel,
	"INFO":     zapcore.InfoLevel,
	"WARNING":  zapcore.WarnLevel,
	"ERROR":    zapcore.ErrorLevel,
	"CRITICAL": zapcore.DPanicLevel,
}

type loggerFactory func(level zapcore.Level, cfg LoggerConfig) (*zap.Logger, error)

var destinations = map[Destination]loggerFactory{
	DestinationConsole: newConsoleLogger,
	DestinationSyslog:  newSyslogLogger,
}

// ParseLevel maps a level name to a zap level. Unknown names give ERROR and false.
func ParseLevel(name string) (zapcore.Level, bool) {
	if l, ok := levels[strings.ToUpper(strings.TrimSpace(name))]; ok {
		return l, true
	}
	return levels[DefaultLevel], false
}

// NewLogger builds a zap logger for cfg. The destination is looked up in a fixed
// table; when it is unknown or cannot be opened the console logger is returned
// and ok is false.
func NewLogger(cfg LoggerConfig) (logger *zap.Logger, ok bool, err error) {
	level, _ := ParseLevel(cfg.Level)
	dest := Destination(strings.ToLower(strings.TrimSpace(cfg.Destination)))
	if dest == "" {
		dest = DestinationConsole
	}
	if factory, found := destinations[dest]; found {
		if logger, err := factory(level, cfg); err == nil {
			return logger, true, nil
		}
	}
	logger, err = newConsoleLogger(level, cfg)
	return logger, false, err
}

func newConsoleLogger(level zapcore.Level, cfg LoggerConfig) (*zap.Logger, error) {
	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("[15:04:05]")
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(zapcore.AddSync(w)), level)
	return zap.New(core), nil
}

func newSyslogLogger(level zapcore.Level, cfg LoggerConfig) (*zap.Logger, error) {
	addr := cfg.SyslogAddress
	if addr == "" {
		addr = DefaultSyslogAddress
	}
	// UDP needs no listener, so the log server may start after us or not at all.
	w, err := syslog.Dial("udp", addr, syslog.LOG_USER|syslog.LOG_DEBUG, "cellveyor")
	if err != nil {
		return nil, err
	}
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), level)
	return zap.New(core), nil
}
