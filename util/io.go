package util

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
)

// Relay pipes r into conn and conn into w until the remote side closes
// or ctx is cancelled.  When r is exhausted the write half of a TCP
// connection is closed so the peer sees EOF, while replies still
// drain into w.
func Relay(ctx context.Context, conn net.Conn, r io.Reader, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	record := func(err error) {
		if isHarmless(err) {
			return
		}
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		defer cancel()
		_, err := io.Copy(w, conn)
		record(err)
	}()
	go func() {
		defer wg.Done()
		_, err := io.Copy(conn, r)
		if tc, ok := conn.(*net.TCPConn); ok {
			tc.CloseWrite() //nolint:errcheck
		}
		if err != nil {
			record(err)
			cancel()
		}
	}()

	<-ctx.Done()
	conn.Close() // unblocks both copies
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	return firstErr
}

// isHarmless reports errors that are expected while tearing down.
func isHarmless(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, net.ErrClosed)
	}
	return false
}
