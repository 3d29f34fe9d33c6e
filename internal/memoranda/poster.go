package memoranda

import (
	"context"
	"log/slog"

	"pacioli/internal/amqp"
)

// Poster is the worker-side consumer: it receives posting messages
// from the queue and drives Service.Post.
type Poster struct {
	service *Service
}

func NewPoster(service *Service) *Poster {
	return &Poster{service: service}
}

// HandlePosting processes one posting message. Errors bubble up to the
// consumer loop, which nacks and requeues the delivery.
func (p *Poster) HandlePosting(ctx context.Context, msg *amqp.MemorandumPostingMessage) error {
	slog.InfoContext(ctx, "Processing posting message", "memorandum_id", msg.MemorandumID)
	return p.service.Post(ctx, msg.MemorandumID)
}
