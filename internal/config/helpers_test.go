package config

import (
	"io"

	logx "animkit/pkg/logx"
)

func testLogger() logx.Logger { return logx.NewWriter(io.Discard, "debug") }
