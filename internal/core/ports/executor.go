package ports

import (
	"context"
	"io"

	"go.trai.ch/oxidizer/internal/core/domain"
)

// Executor defines the interface for running build tools and shell hooks.
//
//go:generate mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type Executor interface {
	// Execute runs the command to completion, streaming its combined output to stdout.
	//
	// A non-zero exit is returned as an error carrying the "exit_code" metadata.
	Execute(ctx context.Context, cmd domain.Command, stdout, stderr io.Writer) error
}
