// internal/protocol/stream.go
package protocol

import (
	"context"
	"errors"
	"io"
	"net"
	"time"
)

// readBurst reads one burst from a byte stream. The first read waits until the
// context deadline; later reads wait only gap, so the burst ends when the line
// goes idle or maxBytes is reached. setTimeout arms the next read.
func readBurst(ctx context.Context, maxBytes int, gap time.Duration,
	setTimeout func(time.Duration) error, read func([]byte) (int, error)) ([]byte, error) {

	wait := fallbackReadWait
	if deadline, ok := ctx.Deadline(); ok {
		wait = time.Until(deadline)
	}
	if wait <= 0 {
		return nil, context.DeadlineExceeded
	}
	if gap <= 0 {
		gap = defaultByteGap
	}

	buf := make([]byte, maxBytes)
	total := 0
	for total < maxBytes {
		if err := ctx.Err(); err != nil {
			if total > 0 {
				break
			}
			return nil, err
		}
		if err := setTimeout(wait); err != nil {
			return nil, err
		}

		n, err := read(buf[total:])
		total += n
		if err != nil {
			if total > 0 && errors.Is(err, io.EOF) {
				break
			}
			if isTimeout(err) {
				if total > 0 {
					break
				}
				return nil, context.DeadlineExceeded
			}
			return nil, err
		}
		if n == 0 {
			if total > 0 {
				break
			}
			return nil, context.DeadlineExceeded
		}
		wait = gap
	}

	return buf[:total], nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
