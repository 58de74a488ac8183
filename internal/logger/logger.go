package logger

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strings"
	"sync"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logger = logrus.New()
	once   sync.Once
)

type Fields = logrus.Fields

// Init configures the package logger once. An empty file disables the rotating file writer.
func Init(level, file string) *logrus.Logger {
	once.Do(func() {
		lvl, err := logrus.ParseLevel(level)
		if err != nil {
			lvl = logrus.InfoLevel
		}
		logger.SetLevel(lvl)

		logger.SetFormatter(&formatter.Formatter{
			NoColors:        false,
			TimestampFormat: "02 Jan 06 - 15:04:05",
			HideKeys:        false,
			CallerFirst:     true,
			CustomCallerFormatter: func(f *runtime.Frame) string {
				s := strings.Split(f.Function, ".")
				funcName := s[len(s)-1]
				return fmt.Sprintf(" \x1b[%dm[%s:%d][%s()]", 34, path.Base(f.File), f.Line, funcName)
			},
		})

		writers := []io.Writer{os.Stderr}
		if file != "" {
			writers = append(writers, &lumberjack.Logger{
				Filename:   file,
				LocalTime:  true,
				Compress:   true,
				MaxSize:    50,
				MaxAge:     7,
				MaxBackups: 3,
			})
		}

		logger.SetOutput(io.MultiWriter(writers...))
		logger.SetReportCaller(true)
	})

	return logger
}

// Get returns the package logger; it logs to stderr with logrus defaults until Init runs.
func Get() *logrus.Logger {
	return logger
}

func Debug(fields Fields, msg string) {
	logger.WithFields(orEmpty(fields)).Debug(msg)
}

func Info(fields Fields, msg string) {
	logger.WithFields(orEmpty(fields)).Info(msg)
}

func Warn(fields Fields, msg string) {
	logger.WithFields(orEmpty(fields)).Warn(msg)
}

func Error(fields Fields, msg string) {
	logger.WithFields(orEmpty(fields)).Error(msg)
}

func Fatal(fields Fields, msg string) {
	logger.WithFields(orEmpty(fields)).Fatal(msg)
}

func orEmpty(fields Fields) Fields {
	if fields == nil {
		return Fields{}
	}
	return fields
}
