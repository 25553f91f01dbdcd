package animation

import (
	"io"

	logx "animkit/pkg/logx"
)

func loggerForTest() logx.Logger { return logx.NewWriter(io.Discard, "debug") }
