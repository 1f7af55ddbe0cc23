package probe

import (
	"context"

	"github.com/Bahjat/arrestorgear/internal/future"
	"github.com/Bahjat/arrestorgear/internal/httpcall"
)

// Sender starts an HTTP request and returns its pending outcome.
type Sender interface {
	Send(ctx context.Context, req httpcall.Request) *future.Future[*httpcall.Result]
}
