package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
)

func slogReplaceAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.SourceKey {
		source := a.Value.Any().(*slog.Source)
		if source.File == "" {
			// Log from a dependency (e.g. sherpa-onnx callbacks).
			if pc, file, line, ok := runtime.Caller(7); ok {
				if f := runtime.FuncForPC(pc); f != nil {
					source.File = filepath.Base(filepath.Dir(file)) + "/" + filepath.Base(file)
					source.Line = line
				}
			}
		} else {
			source.File = filepath.Base(source.File)
		}
	}
	return a
}

func setLogger(level slog.Level) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   true,
		Level:       level,
		ReplaceAttr: slogReplaceAttr,
	}))
	slog.SetDefault(logger)
}

func main() {
	setLogger(slog.LevelDebug)

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		slog.Error("transcriber failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
}
