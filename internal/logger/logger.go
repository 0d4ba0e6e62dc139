package logger

import (
	"strings"

	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/gologger/levels"
)

// SetLevel sets the maximum level printed. Unknown names fall back to info.
func SetLevel(level string) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		gologger.DefaultLogger.SetMaxLevel(levels.LevelDebug)
	case "warning", "warn":
		gologger.DefaultLogger.SetMaxLevel(levels.LevelWarning)
	case "error":
		gologger.DefaultLogger.SetMaxLevel(levels.LevelError)
	case "silent":
		gologger.DefaultLogger.SetMaxLevel(levels.LevelSilent)
	default:
		gologger.DefaultLogger.SetMaxLevel(levels.LevelInfo)
	}
}

func Debugf(format string, v ...interface{}) {
	gologger.Debug().Msgf(format, v...)
}

func Infof(format string, v ...interface{}) {
	gologger.Info().Msgf(format, v...)
}

func Warnf(format string, v ...interface{}) {
	gologger.Warning().Msgf(format, v...)
}

func Errorf(format string, v ...interface{}) {
	gologger.Error().Msgf(format, v...)
}

func Fatalf(format string, v ...interface{}) {
	gologger.Fatal().Msgf(format, v...)
}
