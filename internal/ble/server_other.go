//go:build !linux

package ble

import (
	"errors"

	"github.com/sweeney/kepler-watch/internal/profile"
)

// Server is a stub for non-Linux platforms.
type Server struct{}

// Start returns an error on non-Linux platforms.
func Start(name string, table *profile.Table, onConn ConnectionFunc) (*Server, error) {
	return nil, errors.New("ble peripheral only supported on Linux")
}

// Close is a no-op stub.
func (s *Server) Close() error {
	return nil
}
