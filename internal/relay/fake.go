package relay

import "sync"

// Write is one register write seen by FakeBus.
type Write struct {
	Addr  uint16
	Reg   byte
	Value byte
}

// FakeBus is a test double that records writes and can script failures.
type FakeBus struct {
	mu     sync.Mutex
	writes []Write
	calls  int

	// Err, if set, is returned by every write.
	Err error

	// FailWrite, if set, is consulted with the zero-based call number; a non-nil result
	// fails that write.
	FailWrite func(call int) error

	// Hang, if set, blocks every write until it is closed.
	Hang chan struct{}
}

func NewFakeBus() *FakeBus {
	return &FakeBus{}
}

func (f *FakeBus) WriteRegister(addr uint16, reg, value byte) error {
	if f.Hang != nil {
		<-f.Hang
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	call := f.calls
	f.calls++

	if f.Err != nil {
		return f.Err
	}
	if f.FailWrite != nil {
		if err := f.FailWrite(call); err != nil {
			return err
		}
	}

	f.writes = append(f.writes, Write{Addr: addr, Reg: reg, Value: value})
	return nil
}

// Writes returns the successful writes in order.
func (f *FakeBus) Writes() []Write {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Write(nil), f.writes...)
}

// Values returns the register values of the successful writes in order.
func (f *FakeBus) Values() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]byte, len(f.writes))
	for i, w := range f.writes {
		out[i] = w.Value
	}
	return out
}

// Calls counts every write attempt, failed or not.
func (f *FakeBus) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Last returns the most recent successful register value.
func (f *FakeBus) Last() (byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.writes) == 0 {
		return 0, false
	}
	return f.writes[len(f.writes)-1].Value, true
}
