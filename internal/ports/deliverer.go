package ports

import "context"

type Message struct {
	Text      string
	Username  string
	IconEmoji string
}

// Deliverer performs exactly one outbound write per call. A rejection by
// the sink is reported as *domain.DeliveryError.
type Deliverer interface {
	Deliver(ctx context.Context, msg Message) error
}
