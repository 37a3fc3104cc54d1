package sensor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"arduino-radar.klederson.com/internal/config"
	"github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"
)

// ErrDeviceNotFound is returned when no peripheral with the configured name
// advertises before the scan timeout.
var ErrDeviceNotFound = errors.New("ble device not found")

// maxLineLen bounds the notification reassembly buffer.
const maxLineLen = 256

// BLEProvider reads the Arduino serial protocol from a BLE UART module
// (HM-10 style: one notify characteristic carrying text lines).
type BLEProvider struct {
	adapter     *bluetooth.Adapter
	name        string
	scanTimeout time.Duration
	serviceUUID bluetooth.UUID
	charUUID    bluetooth.UUID
	log         logrus.FieldLogger

	mu      sync.Mutex
	device  *bluetooth.Device
	pending []byte
	lines   chan Reading
}

// NewBLEProvider creates a provider for the peripheral advertising name.
func NewBLEProvider(name string, scanTimeout time.Duration, log logrus.FieldLogger) *BLEProvider {
	return &BLEProvider{
		adapter:     bluetooth.DefaultAdapter,
		name:        name,
		scanTimeout: scanTimeout,
		serviceUUID: bluetooth.New16BitUUID(config.BLEServiceUUID),
		charUUID:    bluetooth.New16BitUUID(config.BLECharUUID),
		log:         log.WithField("component", "ble"),
		lines:       make(chan Reading, 1),
	}
}

// Connect scans for the peripheral, connects and subscribes to the UART
// characteristic.
func (p *BLEProvider) Connect(ctx context.Context) (string, error) {
	if err := p.adapter.Enable(); err != nil {
		return "", fmt.Errorf("failed to enable BLE adapter: %w (try running with sudo or setcap cap_net_admin+ep)", err)
	}

	addr, err := p.scan(ctx)
	if err != nil {
		return "", err
	}

	dev, err := p.adapter.Connect(addr, bluetooth.ConnectionParams{})
	if err != nil {
		return "", fmt.Errorf("connect %s: %w", addr.String(), err)
	}

	services, err := dev.DiscoverServices([]bluetooth.UUID{p.serviceUUID})
	if err != nil || len(services) == 0 {
		_ = dev.Disconnect()
		return "", fmt.Errorf("discover uart service on %s: %w", p.name, errOrMissing(err))
	}
	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{p.charUUID})
	if err != nil || len(chars) == 0 {
		_ = dev.Disconnect()
		return "", fmt.Errorf("discover uart characteristic on %s: %w", p.name, errOrMissing(err))
	}
	if err := chars[0].EnableNotifications(p.deliver); err != nil {
		_ = dev.Disconnect()
		return "", fmt.Errorf("enable notifications on %s: %w", p.name, err)
	}

	p.mu.Lock()
	p.device = &dev
	p.pending = p.pending[:0]
	p.mu.Unlock()

	p.log.WithField("address", addr.String()).Info("connected")
	return p.name, nil
}

func (p *BLEProvider) scan(ctx context.Context) (bluetooth.Address, error) {
	ctx, cancel := context.WithTimeout(ctx, p.scanTimeout)
	defer cancel()

	found := make(chan bluetooth.Address, 1)
	done := make(chan error, 1)
	go func() {
		done <- p.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
			if result.LocalName() != p.name {
				return
			}
			select {
			case found <- result.Address:
			default:
			}
			_ = adapter.StopScan()
		})
	}()

	select {
	case addr := <-found:
		<-done
		return addr, nil
	case err := <-done:
		select {
		case addr := <-found:
			return addr, nil
		default:
		}
		if err != nil {
			return bluetooth.Address{}, fmt.Errorf("ble scan: %w", err)
		}
		return bluetooth.Address{}, fmt.Errorf("%w: %q", ErrDeviceNotFound, p.name)
	case <-ctx.Done():
		_ = p.adapter.StopScan()
		<-done
		select {
		case addr := <-found:
			return addr, nil
		default:
		}
		return bluetooth.Address{}, fmt.Errorf("%w: %q", ErrDeviceNotFound, p.name)
	}
}

// Disconnect drops the link. Safe to call when not connected.
func (p *BLEProvider) Disconnect() error {
	p.mu.Lock()
	dev := p.device
	p.device = nil
	p.mu.Unlock()

	if dev == nil {
		return nil
	}
	return dev.Disconnect()
}

// Poll waits for the next complete line from the peripheral.
func (p *BLEProvider) Poll(ctx context.Context) (Reading, error) {
	select {
	case r := <-p.lines:
		return r, nil
	case <-ctx.Done():
		return Reading{}, fmt.Errorf("%w: %v", ErrNoReading, ctx.Err())
	}
}

// deliver reassembles notification chunks into lines. Only the newest parsed
// line is kept for the next Poll.
func (p *BLEProvider) deliver(buf []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pending = append(p.pending, buf...)
	for {
		i := bytes.IndexByte(p.pending, '\n')
		if i < 0 {
			break
		}
		line := string(p.pending[:i])
		p.pending = p.pending[i+1:]

		r, err := ParseLine(line)
		if err != nil {
			p.log.WithError(err).Debug("dropping line")
			continue
		}
		select {
		case <-p.lines:
		default:
		}
		p.lines <- r
	}
	if len(p.pending) > maxLineLen {
		p.pending = p.pending[:0]
	}
}

func errOrMissing(err error) error {
	if err != nil {
		return err
	}
	return errors.New("not advertised")
}
