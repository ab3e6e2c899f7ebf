// Package actuator talks to the servo microcontroller over a serial line
// using newline-delimited JSON records. The link is write-only: there is no
// acknowledgment and no flow control.
package actuator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/satriahrh/arunika-actor/domain/entities"
	"github.com/satriahrh/arunika-actor/domain/repositories"
)

const (
	defaultBaudRate    = 115200
	defaultSettleDelay = 2 * time.Second // the board resets when the port opens
)

// ErrNotConnected is returned by writes on a link without an open port
var ErrNotConnected = errors.New("actuator link not connected")

// ConnectErrorKind classifies why the port could not be opened
type ConnectErrorKind string

const (
	ConnectNotFound         ConnectErrorKind = "not_found"
	ConnectPermissionDenied ConnectErrorKind = "permission_denied"
	ConnectBusy             ConnectErrorKind = "busy"
	ConnectOther            ConnectErrorKind = "other"
)

// ConnectError is returned by Connect when the serial port cannot be opened
type ConnectError struct {
	Port string
	Kind ConnectErrorKind
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("failed to open serial port %s (%s): %v", e.Port, e.Kind, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// WriteError is returned when a record could not be written to the port
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string { return fmt.Sprintf("failed to write actuator record: %v", e.Err) }

func (e *WriteError) Unwrap() error { return e.Err }

// Config holds configuration for the Link.
// SettleDelay is waited after opening the port; a negative value skips it.
type Config struct {
	Port        string
	BaudRate    int
	SettleDelay time.Duration
}

// OpenFunc opens the named port
type OpenFunc func(name string, baudRate int) (io.WriteCloser, error)

// Option customizes a Link
type Option func(*Link)

// WithOpener replaces the serial port opener
func WithOpener(open OpenFunc) Option {
	return func(l *Link) { l.open = open }
}

// WithWriteFailureHook registers a callback invoked on every failed write
func WithWriteFailureHook(hook func(error)) Option {
	return func(l *Link) { l.onWriteFailure = hook }
}

// Link is a write-only serial connection to the actuator board.
// Writes are serialized so concurrent callers never interleave records.
type Link struct {
	mu             sync.Mutex
	port           io.WriteCloser
	name           string
	open           OpenFunc
	onWriteFailure func(error)
	logger         *zap.Logger
}

// Ensure Link implements the Actuator interface
var _ repositories.Actuator = (*Link)(nil)

// ValidateConfig validates the link Config
func ValidateConfig(config Config) error {
	if config.Port == "" {
		return errors.New("serial port is required")
	}
	if config.BaudRate < 0 {
		return fmt.Errorf("baud rate must be positive, got %d", config.BaudRate)
	}
	return nil
}

// Connect opens the serial port, waits for the board to settle and returns
// a live link. The settle wait is aborted when ctx is done.
func Connect(ctx context.Context, config Config, logger *zap.Logger, opts ...Option) (*Link, error) {
	if err := ValidateConfig(config); err != nil {
		return nil, err
	}

	baudRate := config.BaudRate
	if baudRate == 0 {
		baudRate = defaultBaudRate
		logger.Info("Using default baud rate", zap.Int("baudRate", baudRate))
	}

	settle := config.SettleDelay
	if settle == 0 {
		settle = defaultSettleDelay
		logger.Info("Using default settle delay", zap.Duration("settleDelay", settle))
	}

	l := &Link{
		name:   config.Port,
		open:   openSerial,
		logger: logger,
	}
	for _, opt := range opts {
		opt(l)
	}

	port, err := l.open(config.Port, baudRate)
	if err != nil {
		return nil, &ConnectError{Port: config.Port, Kind: classifyOpenError(err), Err: err}
	}
	l.port = port

	if settle > 0 {
		timer := time.NewTimer(settle)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			l.Close()
			return nil, ctx.Err()
		}
	}

	logger.Info("Actuator link connected",
		zap.String("port", config.Port),
		zap.Int("baudRate", baudRate))
	return l, nil
}

func openSerial(name string, baudRate int) (io.WriteCloser, error) {
	return serial.Open(name, &serial.Mode{BaudRate: baudRate})
}

func classifyOpenError(err error) ConnectErrorKind {
	var portErr *serial.PortError
	if !errors.As(err, &portErr) {
		return ConnectOther
	}
	switch portErr.Code() {
	case serial.PortNotFound, serial.InvalidSerialPort:
		return ConnectNotFound
	case serial.PermissionDenied:
		return ConnectPermissionDenied
	case serial.PortBusy:
		return ConnectBusy
	default:
		return ConnectOther
	}
}

// servoRecord is the wire form of a servo command
type servoRecord struct {
	Servo    int     `json:"servo"`
	Angle    int     `json:"angle"`
	Duration float64 `json:"duration"`
}

// indicatorRecord is the wire form of the listening indicator
type indicatorRecord struct {
	Listening bool `json:"listening"`
}

// SetAngle moves a servo. The angle is clamped to [0, 180] before it is sent.
func (l *Link) SetAngle(servo, angle int, duration time.Duration) error {
	cmd := entities.ActuatorCommand{Servo: servo, Angle: angle, Duration: duration}.Normalized()
	return l.write(servoRecord{
		Servo:    cmd.Servo,
		Angle:    cmd.Angle,
		Duration: cmd.Duration.Seconds(),
	})
}

// SetIndicator toggles the listening indicator
func (l *Link) SetIndicator(active bool) error {
	return l.write(indicatorRecord{Listening: active})
}

func (l *Link) write(record interface{}) error {
	if l == nil {
		return ErrNotConnected
	}

	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal actuator record: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.port == nil {
		return ErrNotConnected
	}

	if _, err := l.port.Write(line); err != nil {
		werr := &WriteError{Err: err}
		if l.onWriteFailure != nil {
			l.onWriteFailure(werr)
		}
		return werr
	}

	l.logger.Debug("Sent actuator record", zap.ByteString("record", line[:len(line)-1]))
	return nil
}

// Connected reports whether the port is open
func (l *Link) Connected() bool {
	if l == nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.port != nil
}

// Close closes the port. Closing twice is a no-op.
func (l *Link) Close() error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.port == nil {
		return nil
	}
	err := l.port.Close()
	l.port = nil
	l.logger.Info("Actuator link closed", zap.String("port", l.name))
	return err
}
