package lsc

import (
	"context"
	"errors"
)

// fakeTransport replays scripted reads and records writes.
type fakeTransport struct {
	open      bool
	openErr   error
	writeErr  error
	reads     [][]byte
	readErr   error
	written   [][]byte
	readCalls int
}

func newFakeTransport(reads ...[]byte) *fakeTransport {
	return &fakeTransport{open: true, reads: reads}
}

func (f *fakeTransport) Open(ctx context.Context) error {
	if f.openErr != nil {
		return f.openErr
	}
	f.open = true
	return nil
}

func (f *fakeTransport) Close() error {
	f.open = false
	return nil
}

func (f *fakeTransport) IsOpen() bool { return f.open }

func (f *fakeTransport) Write(ctx context.Context, data []byte) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.written = append(f.written, append([]byte(nil), data...))
	return nil
}

func (f *fakeTransport) Read(ctx context.Context, maxBytes int) ([]byte, error) {
	f.readCalls++
	if f.readErr != nil {
		return nil, f.readErr
	}
	if len(f.reads) == 0 {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	frame := f.reads[0]
	f.reads = f.reads[1:]
	if len(frame) > maxBytes {
		frame = frame[:maxBytes]
	}
	return frame, nil
}

func (f *fakeTransport) touched() bool {
	return len(f.written) > 0 || f.readCalls > 0
}

var errBus = errors.New("bus error")

// padReport pads a frame to a full HID report
func padReport(frame []byte) []byte {
	report := make([]byte, ReportSize)
	copy(report, frame)
	return report
}
