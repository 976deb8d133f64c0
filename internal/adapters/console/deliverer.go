// Package console writes messages to a terminal instead of a webhook.
package console

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/bnema/repo-digest-notifier/internal/ports"
)

type Deliverer struct {
	mu  sync.Mutex
	out io.Writer
}

var _ ports.Deliverer = (*Deliverer)(nil)

func NewDeliverer(out io.Writer) *Deliverer {
	return &Deliverer{out: out}
}

func (d *Deliverer) Deliver(ctx context.Context, msg ports.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := fmt.Fprintln(d.out, msg.Text); err != nil {
		return fmt.Errorf("write message: %w", err)
	}

	return nil
}
