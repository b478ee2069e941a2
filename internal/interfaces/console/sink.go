package console

import (
	"context"
	"fmt"
	"io"
	"os"

	"ratecast/internal/application/port"
	"ratecast/internal/domain/model"
)

// Sink redraws a single live line on every publish.
type Sink struct {
	out io.Writer
	fmt *Formatter
}

func NewSink() *Sink { return NewSinkTo(os.Stdout) }

func NewSinkTo(out io.Writer) *Sink {
	return &Sink{out: out, fmt: NewFormatter()}
}

func (s *Sink) Publish(ctx context.Context, snaps *model.Snapshots) error {
	if snaps.Len() == 0 {
		return nil
	}
	_, err := fmt.Fprint(s.out, s.fmt.Render(snaps)) // no newline
	return err
}

// NewLine ends the live line, e.g. on shutdown.
func (s *Sink) NewLine() error {
	_, err := fmt.Fprint(s.out, "\n")
	return err
}

var _ port.Publisher = (*Sink)(nil)
