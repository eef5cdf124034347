package testlog

import (
	"testing"

	"github.com/rs/zerolog"
)

// Logger returns a zerolog logger that writes through t.Log, so channel
// traffic shows up attached to the failing test.
func Logger(t *testing.T) zerolog.Logger {
	t.Helper()
	return zerolog.New(zerolog.NewTestWriter(t)).With().Timestamp().Logger()
}
