// Command awgjunk inspects and exercises AmneziaWG junk descriptors,
// magic header ranges and obfuscation profiles.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const appName = "awgjunk"

var logLevelMap = map[string]zapcore.Level{
	"debug": zapcore.DebugLevel,
	"info":  zapcore.InfoLevel,
	"warn":  zapcore.WarnLevel,
	"error": zapcore.ErrorLevel,
}

type app struct {
	logLevel string
	level    zap.AtomicLevel
	logger   *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           appName,
		Short:         "AmneziaWG junk packet toolkit",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := parseLogLevel(a.logLevel)
			if err != nil {
				return err
			}
			a.level = zap.NewAtomicLevelAt(l)
			logger, err := initLogger(a.level)
			if err != nil {
				return err
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&a.logLevel, "log-level", "l", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(
		a.compileCmd(),
		a.rangeCmd(),
		a.configCmd(),
		a.mimicCmd(),
		a.sendCmd(),
	)
	return root
}

func parseLogLevel(level string) (zapcore.Level, error) {
	l, ok := logLevelMap[strings.ToLower(level)]
	if !ok {
		return 0, fmt.Errorf("unsupported log level: %s", level)
	}
	return l, nil
}

// initLogger builds the console logger. Changing level later retunes it.
func initLogger(level zap.AtomicLevel) (*zap.Logger, error) {
	c := zap.Config{
		Level:             level,
		DisableCaller:     true,
		DisableStacktrace: true,
		Encoding:          "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "time",
			LevelKey:       "level",
			NameKey:        "logger",
			MessageKey:     "msg",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalLevelEncoder,
			EncodeTime:     zapcore.RFC3339TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
		},
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	return c.Build()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		os.Exit(1)
	}
}
