// Package logging configures the structured logrus logger shared by all components.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Options はロガーの設定。
type Options struct {
	Level string    // "debug" / "info" / "warn" / "error"
	File  string    // 空でなければ JSON ログを追記する
	Out   io.Writer // nil なら os.Stderr。TUI 起動時は io.Discard を渡す
}

// New は JSON 形式のロガーを作る。File があれば Out と両方に書く。
// 返す close はファイルを閉じる（ファイルがなければ何もしない）。
func New(opts Options) (*logrus.Logger, func() error, error) {
	level := logrus.InfoLevel
	if opts.Level != "" {
		l, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("logging: %w", err)
		}
		level = l
	}

	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(level)

	closeFn := func() error { return nil }
	if opts.File != "" {
		file, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			logger.SetOutput(out)
			logger.WithError(err).Error("could not open log file")
		} else {
			logger.SetOutput(io.MultiWriter(out, file))
			closeFn = file.Close
		}
	} else {
		logger.SetOutput(out)
	}
	return logger, closeFn, nil
}
