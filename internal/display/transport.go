package display

import (
	"fmt"
	"sync"
)

// Transport carries bytes to the panel controller.
type Transport interface {
	// Command sends controller commands in one transaction.
	Command(cmds ...byte) error

	// Data sends pixel data in one transaction.
	Data(p []byte) error
}

// Control bytes that prefix every I2C frame.
const (
	controlCommand = 0x80 // Co=1, D/C#=0: one command byte follows
	controlData    = 0x40 // Co=0, D/C#=1: data stream follows
)

// FakeTransport records frames for test assertions.
type FakeTransport struct {
	mu sync.Mutex

	// Commands holds every Command call in order.
	Commands [][]byte

	// Frames holds every Data call in order.
	Frames [][]byte

	// Err, if set, is returned by both methods.
	Err error

	// Limit, if > 0, keeps only the most recent Limit commands and frames.
	Limit int
}

// NewFakeTransport creates an empty FakeTransport.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{}
}

// Command records the command bytes.
func (f *FakeTransport) Command(cmds ...byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.Commands = trim(append(f.Commands, append([]byte(nil), cmds...)), f.Limit)
	return nil
}

// Data records a copy of the frame.
func (f *FakeTransport) Data(p []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.Frames = trim(append(f.Frames, append([]byte(nil), p...)), f.Limit)
	return nil
}

func trim(s [][]byte, limit int) [][]byte {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return append(s[:0], s[len(s)-limit:]...)
}

// LastFrame returns the most recent data frame, or nil.
func (f *FakeTransport) LastFrame() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Frames) == 0 {
		return nil
	}
	return f.Frames[len(f.Frames)-1]
}

// FrameCount returns the number of data frames sent.
func (f *FakeTransport) FrameCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Frames)
}

// LastCommand returns the most recent command, or nil.
func (f *FakeTransport) LastCommand() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Commands) == 0 {
		return nil
	}
	return f.Commands[len(f.Commands)-1]
}

// Reset clears recorded frames.
func (f *FakeTransport) Reset() {
	f.mu.Lock()
	f.Commands = nil
	f.Frames = nil
	f.Err = nil
	f.mu.Unlock()
}

// encodeCommands interleaves a command control byte before each command.
func encodeCommands(cmds []byte) []byte {
	buf := make([]byte, 0, 2*len(cmds))
	for _, c := range cmds {
		buf = append(buf, controlCommand, c)
	}
	return buf
}

// encodeData prefixes a data frame with the data control byte.
func encodeData(p []byte) []byte {
	buf := make([]byte, 0, len(p)+1)
	buf = append(buf, controlData)
	return append(buf, p...)
}

func checkFrame(p []byte) error {
	if len(p) != BufferSize {
		return fmt.Errorf("display: frame is %d bytes, want %d", len(p), BufferSize)
	}
	return nil
}
