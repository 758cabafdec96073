package cmd

import "github.com/peteragility/smartone/internal/logging"

func testLogger() *logging.Logger {
	return logging.NewNop()
}
