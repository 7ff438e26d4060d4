package singleinstance

// This file defines the API for single-instance ownership and image hand-off
// from the CLI to the resident GUI.

import (
	"context"

	"github.com/rs/zerolog"
)

// Server owns the loopback endpoint and accepts OPEN requests.
type Server interface {
	// Start binds the configured port. It fails when another resident owns it.
	Start(ctx context.Context) error
	// Port returns the bound TCP port, or 0 if not started.
	Port() int
	// Next returns the next accepted request, or ctx error.
	Next(ctx context.Context) (Conn, error)
	// Close releases ownership and stops accepting clients.
	Close() error
}

// Conn is one client connection carrying an OPEN request.
type Conn interface {
	Request() Request
	// RespondSuccess acknowledges that the image was selected.
	RespondSuccess() error
	// RespondError sends a human-readable failure.
	RespondError(msg string) error
	Close() error
}

// Request asks the resident to select the image at Path.
type Request struct {
	Path string
}

// Client hands images to a resident instance.
type Client interface {
	// Send delivers path to the resident. If no resident answers PING,
	// it returns delivered=false, err=nil.
	Send(ctx context.Context, path string) (delivered bool, err error)
}

func NewServer(port int, log zerolog.Logger) Server {
	return newTcpServer(resolvePort(port), log.With().Str("component", "singleinstance").Logger())
}

func NewClient(port int) Client { return newTcpClient(resolvePort(port)) }
