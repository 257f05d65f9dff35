package sound

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/rl1809/table-order/internal/core/domain"
	"github.com/rl1809/table-order/internal/port"
)

// Bell rings the terminal bell on w.
type Bell struct {
	mu sync.Mutex
	w  io.Writer
}

func NewBell(w io.Writer) *Bell {
	return &Bell{w: w}
}

func (b *Bell) Play(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := io.WriteString(b.w, "\a"); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPlayback, err)
	}
	return nil
}

// Command runs an external player such as `paplay /usr/share/sounds/bell.oga`.
type Command struct {
	name string
	args []string
}

func NewCommand(name string, args ...string) *Command {
	return &Command{name: name, args: args}
}

func (c *Command) Play(ctx context.Context) error {
	out, err := exec.CommandContext(ctx, c.name, c.args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s: %w (%s)", domain.ErrPlayback, c.name, err, out)
	}
	return nil
}

// Chime numbers each cue so browser clients can poll for ones they have not
// played yet.
type Chime struct {
	mu  sync.Mutex
	seq uint64
}

func NewChime() *Chime {
	return &Chime{}
}

func (c *Chime) Play(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return nil
}

// Latest is the sequence number of the last cue, zero if none.
func (c *Chime) Latest() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Multi plays every player and joins their errors.
type Multi []port.SoundPlayer

func (m Multi) Play(ctx context.Context) error {
	var errs []error
	for _, p := range m {
		if err := p.Play(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
