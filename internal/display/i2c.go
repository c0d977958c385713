package display

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// DefaultAddr is the panel's I2C address.
const DefaultAddr = 0x3C

// I2CTransport talks to the panel over an I2C bus.
type I2CTransport struct {
	bus i2c.BusCloser
	dev *i2c.Dev
}

// OpenI2C initialises the host drivers and opens the named bus
// ("" selects the first one).
func OpenI2C(busName string, addr uint16) (*I2CTransport, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init host: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", busName, err)
	}
	return &I2CTransport{
		bus: bus,
		dev: &i2c.Dev{Bus: bus, Addr: addr},
	}, nil
}

// Command sends each command byte with its own control byte, in one write.
func (t *I2CTransport) Command(cmds ...byte) error {
	if err := t.dev.Tx(encodeCommands(cmds), nil); err != nil {
		return fmt.Errorf("i2c command: %w", err)
	}
	return nil
}

// Data sends the frame as one data stream.
func (t *I2CTransport) Data(p []byte) error {
	if err := checkFrame(p); err != nil {
		return err
	}
	if err := t.dev.Tx(encodeData(p), nil); err != nil {
		return fmt.Errorf("i2c data: %w", err)
	}
	return nil
}

// Close releases the bus.
func (t *I2CTransport) Close() error {
	if t.bus != nil {
		return t.bus.Close()
	}
	return nil
}
