package tcp

import (
	"context"
	"io"

	"github.com/dayanaadylkhanova/pow-duel/internal/duel"
)

//go:generate mockgen -source=interfaces.go -destination=./server_mock.go -package=tcp

type Duelist interface {
	Run(ctx context.Context, conn io.ReadWriter, role duel.Role) (duel.Outcome, error)
}
