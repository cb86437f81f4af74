package printer

import (
	"fmt"
	"net"
	"os"
	"time"
)

// ConnectionKind is the closed set of supported printer interfaces.
type ConnectionKind string

const (
	ConnectionNetwork ConnectionKind = "network"
	ConnectionUSB     ConnectionKind = "usb"
	ConnectionNull    ConnectionKind = "null"
)

// Descriptor identifies one physical printer connection.
type Descriptor struct {
	Kind ConnectionKind
	// Address is a TCP address ("192.168.1.100:9100") for network printers
	// or a device path ("/dev/usb/lp0") for USB printers.
	Address string
}

// Transport opens connections to physical printers. Connections are
// per-job: the dispatcher opens, transmits one payload, and closes.
type Transport interface {
	Open(desc Descriptor) (Conn, error)
}

// Conn is one open printer connection.
type Conn interface {
	// Transmit sends one compiled command payload to the printer.
	Transmit(payload []byte) error
	Close() error
}

type transport struct {
	dialTimeout  time.Duration
	writeTimeout time.Duration
}

// NewTransport returns the default transport with conservative timeouts.
func NewTransport() Transport {
	return &transport{
		dialTimeout:  5 * time.Second,
		writeTimeout: 10 * time.Second,
	}
}

func (t *transport) Open(desc Descriptor) (Conn, error) {
	switch desc.Kind {
	case ConnectionNetwork:
		if desc.Address == "" {
			return nil, fmt.Errorf("printer: address is required for network printers")
		}
		conn, err := net.DialTimeout("tcp", desc.Address, t.dialTimeout)
		if err != nil {
			return nil, fmt.Errorf("printer: failed to connect to %s: %w", desc.Address, err)
		}
		return &networkConn{conn: conn, writeTimeout: t.writeTimeout}, nil
	case ConnectionUSB:
		if desc.Address == "" {
			return nil, fmt.Errorf("printer: device path is required for USB printers")
		}
		f, err := os.OpenFile(desc.Address, os.O_WRONLY, 0)
		if err != nil {
			return nil, fmt.Errorf("printer: failed to open USB device %s: %w", desc.Address, err)
		}
		return &usbConn{f: f, path: desc.Address}, nil
	case ConnectionNull, "":
		return nullConn{}, nil
	default:
		return nil, fmt.Errorf("printer: unknown connection kind %q", desc.Kind)
	}
}

type networkConn struct {
	conn         net.Conn
	writeTimeout time.Duration
}

func (c *networkConn) Transmit(payload []byte) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	if _, err := c.conn.Write(payload); err != nil {
		return fmt.Errorf("printer: failed to write to %s: %w", c.conn.RemoteAddr(), err)
	}
	return nil
}

func (c *networkConn) Close() error {
	return c.conn.Close()
}

type usbConn struct {
	f    *os.File
	path string
}

func (c *usbConn) Transmit(payload []byte) error {
	if _, err := c.f.Write(payload); err != nil {
		return fmt.Errorf("printer: failed to write to USB device %s: %w", c.path, err)
	}
	return nil
}

func (c *usbConn) Close() error {
	return c.f.Close()
}

// nullConn swallows payloads, used for terminals without hardware.
type nullConn struct{}

func (nullConn) Transmit([]byte) error { return nil }
func (nullConn) Close() error          { return nil }
