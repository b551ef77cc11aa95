package audio

import (
	"fmt"
	"log/slog"
	"os"
)

// TempClip writes buf to a new WAV file inside dir. The returned cleanup
// function removes the file and is safe to call on every exit path.
func TempClip(dir, pattern string, buf Buffer) (string, func(), error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", func() {}, fmt.Errorf("failed to create clip file: %w", err)
	}
	path := f.Name()

	cleanup := func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			slog.Error("failed to remove clip file", slog.String("err", err.Error()), slog.String("path", path))
		}
	}

	err = EncodeWAV(f, buf)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close clip file: %w", closeErr)
	}
	if err != nil {
		cleanup()
		return "", func() {}, err
	}

	return path, cleanup, nil
}
