package actuator

import (
	"bytes"
	"io"

	"go.uber.org/zap"
)

// DryRunPort is the port name that selects the dry-run opener from config
const DryRunPort = "dry-run"

// logPort logs every record instead of sending it
type logPort struct {
	logger *zap.Logger
}

func (p *logPort) Write(b []byte) (int, error) {
	p.logger.Info("Actuator record", zap.ByteString("record", bytes.TrimRight(b, "\n")))
	return len(b), nil
}

func (p *logPort) Close() error { return nil }

// DryRunOpener returns an opener that logs records, for benches without a board
func DryRunOpener(logger *zap.Logger) OpenFunc {
	return func(name string, baudRate int) (io.WriteCloser, error) {
		return &logPort{logger: logger.Named("dry-run")}, nil
	}
}
