package transport

import (
	"context"
	"fmt"
	"net"
	"syscall"

	xerrors "xm2m/internal/errors"
	"xm2m/util"
)

// Listeners are the three server endpoints.  They are created once at
// startup and never recreated.
type Listeners struct {
	Console     *net.TCPListener
	Transaction *net.TCPListener
	Datagram    *net.UDPConn
}

// Listen binds the console listener, then the TCP and UDP transaction
// endpoints, all on host.  Any failure closes what was already bound.
// A port of 0 picks an ephemeral port; the UDP endpoint then reuses
// whatever port the TCP transaction listener got.
func Listen(ctx context.Context, host string, transactionPort, consolePort int, logger *util.Logger) (*Listeners, error) {
	lc := listenConfig(logger)
	ls := &Listeners{}

	con, err := lc.Listen(ctx, "tcp4", util.FormatAddr(host, consolePort))
	if err != nil {
		return nil, xerrors.Wrap("listen", util.FormatAddr(host, consolePort), err)
	}
	ls.Console = con.(*net.TCPListener)

	txAddr := util.FormatAddr(host, transactionPort)
	tx, err := lc.Listen(ctx, "tcp4", txAddr)
	if err != nil {
		ls.Close()
		return nil, xerrors.Wrap("listen", txAddr, err)
	}
	ls.Transaction = tx.(*net.TCPListener)

	udpAddr := util.FormatAddr(host, util.ListenerPort(tx.Addr()))
	pc, err := lc.ListenPacket(ctx, "udp4", udpAddr)
	if err != nil {
		ls.Close()
		return nil, xerrors.Wrap("listen", udpAddr, err)
	}
	ls.Datagram = pc.(*net.UDPConn)

	return ls, nil
}

// Close closes every bound endpoint.
func (ls *Listeners) Close() error {
	var errs []error
	if ls.Console != nil {
		errs = append(errs, ls.Console.Close())
	}
	if ls.Transaction != nil {
		errs = append(errs, ls.Transaction.Close())
	}
	if ls.Datagram != nil {
		errs = append(errs, ls.Datagram.Close())
	}
	return xerrors.Join(errs...)
}

// listenConfig enables address reuse so a restarted server can rebind
// its ports immediately.  Failing to set the option is only a warning.
func listenConfig(logger *util.Logger) net.ListenConfig {
	return net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = setReuseAddr(fd)
			})
			if err == nil {
				err = sockErr
			}
			if err != nil {
				logger.Warn("unable to set address reuse on %s %s: %v", network, address, err)
			}
			return nil
		},
	}
}

func (ls *Listeners) String() string {
	return fmt.Sprintf("console=%s tcp=%s udp=%s",
		ls.Console.Addr(), ls.Transaction.Addr(), ls.Datagram.LocalAddr())
}
