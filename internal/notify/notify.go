// Package notify presents due reminders: a best-effort sound and a
// blocking acknowledgment on the terminal.
package notify

import (
	"context"

	"github.com/kalambet/ainoter/internal/reminder"
)

// ErrSoundMissing is returned by Sound.Play when the resource does not exist.
var ErrSoundMissing = reminder.ErrSoundMissing

// Console combines a sound player and a terminal prompt into a
// reminder.Notifier.
type Console struct {
	Sound    *Sound
	Terminal *Terminal
}

var _ reminder.Notifier = (*Console)(nil)

func (c *Console) Play(ctx context.Context, sound string) error {
	if c.Sound == nil {
		return ErrSoundMissing
	}
	return c.Sound.Play(ctx, sound)
}

func (c *Console) Acknowledge(ctx context.Context, title, text string) error {
	return c.Terminal.Acknowledge(ctx, title, text)
}
