package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
)

// Sound plays a sound file with the first available platform player and
// falls back to the terminal bell.
type Sound struct {
	players  []string
	bell     io.Writer
	lookPath func(string) (string, error)
	start    func(name string, args ...string) error
	logger   *slog.Logger
}

func NewSound(bell io.Writer) *Sound {
	return &Sound{
		players:  defaultPlayers(runtime.GOOS),
		bell:     bell,
		lookPath: exec.LookPath,
		start:    startDetached,
		logger:   slog.Default(),
	}
}

func defaultPlayers(goos string) []string {
	if goos == "darwin" {
		return []string{"afplay"}
	}
	return []string{"paplay", "aplay"}
}

// Play does not wait for playback to finish.
func (s *Sound) Play(_ context.Context, path string) error {
	if path == "" {
		return ErrSoundMissing
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrSoundMissing, path)
		}
		return fmt.Errorf("checking sound %s: %w", path, err)
	}

	for _, p := range s.players {
		bin, err := s.lookPath(p)
		if err != nil {
			continue
		}
		if err := s.start(bin, path); err != nil {
			s.logger.Debug("sound player failed", "player", p, "error", err)
			continue
		}
		return nil
	}

	if s.bell != nil {
		_, err := io.WriteString(s.bell, "\a")
		return err
	}
	return nil
}

func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait()
	return nil
}
