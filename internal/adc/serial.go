package adc

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"

	"go.bug.st/serial"

	"github.com/sweeney/cell-charger/internal/logic"
)

// Serial drives a converter front-end over a serial line.
//
// The host requests a conversion by writing the channel letter followed by a
// newline ("A\n", "B\n"). The front-end answers with "<channel>,<raw>\n",
// e.g. "A,612". Lines that do not parse are logged and dropped.
type Serial struct {
	conn   io.ReadWriteCloser
	maxRaw int

	out    chan Conversion
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	writeMu sync.Mutex
	closeMu sync.Mutex
	closed  bool
}

// OpenSerial opens the serial port and starts reading conversions.
func OpenSerial(port string, baudRate, maxRaw int) (*Serial, error) {
	conn, err := serial.Open(port, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", port, err)
	}
	return newSerial(conn, maxRaw), nil
}

func newSerial(conn io.ReadWriteCloser, maxRaw int) *Serial {
	if maxRaw <= 0 {
		maxRaw = DefaultMaxRaw
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Serial{
		conn:   conn,
		maxRaw: maxRaw,
		out:    make(chan Conversion, 1),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go s.readConversions()
	return s
}

// StartConversion asks the front-end to convert ch.
func (s *Serial) StartConversion(ch logic.Channel) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := io.WriteString(s.conn, ch.String()+"\n"); err != nil {
		return fmt.Errorf("send conversion request: %w", err)
	}
	return nil
}

// Conversions returns the channel of completed conversions. It is closed
// when the reader stops.
func (s *Serial) Conversions() <-chan Conversion {
	return s.out
}

// Close stops the reader and closes the port.
func (s *Serial) Close() error {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	s.cancel()
	err := s.conn.Close()
	<-s.done
	if err != nil {
		return fmt.Errorf("close serial port: %w", err)
	}
	return nil
}

func (s *Serial) readConversions() {
	defer close(s.done)
	defer close(s.out)

	scanner := bufio.NewScanner(s.conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		conv, err := parseLine(line, s.maxRaw)
		if err != nil {
			log.Printf("adc: dropping line %q: %v", line, err)
			continue
		}

		select {
		case s.out <- conv:
		case <-s.ctx.Done():
			return
		}
	}

	if err := scanner.Err(); err != nil && s.ctx.Err() == nil {
		log.Printf("adc: serial read error: %v", err)
	}
}

// parseLine parses a front-end line into a Conversion.
// Format: channel,raw
// Example: A,612
func parseLine(line string, maxRaw int) (Conversion, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 2 {
		return Conversion{}, fmt.Errorf("invalid line format: expected 2 comma-separated values, got %d", len(parts))
	}

	var ch logic.Channel
	switch strings.TrimSpace(parts[0]) {
	case "A":
		ch = logic.ChannelA
	case "B":
		ch = logic.ChannelB
	default:
		return Conversion{}, fmt.Errorf("invalid channel %q", parts[0])
	}

	raw, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 16)
	if err != nil {
		return Conversion{}, fmt.Errorf("invalid raw value: %w", err)
	}
	if raw > uint64(maxRaw) {
		return Conversion{}, fmt.Errorf("raw value out of range: %d (max %d)", raw, maxRaw)
	}

	return Conversion{Channel: ch, Raw: logic.Raw(raw)}, nil
}
