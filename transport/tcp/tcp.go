// Package tcp provides a transport over plain TCP with length-prefixed
// frames. Every node listens on one address and dials peers lazily on
// first send; a static rank-to-address map takes the place of a
// communicator.
//
// Frame layout: sender rank (u32) | payload length (u32) | payload,
// little-endian.
package tcp

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/hitmerge/transport"
)

const frameHeaderSize = 8

// MaxFrameSize bounds a single frame payload. Larger frames indicate a
// corrupt stream, not a legitimate hit batch.
const MaxFrameSize = 1 << 30

type envelope struct {
	from    int
	payload []byte
}

// Node is a TCP transport endpoint.
type Node struct {
	rank  int
	peers map[int]string

	ln    net.Listener
	inbox chan envelope

	mu    sync.Mutex
	conns map[int]*sendConn

	g      *errgroup.Group
	done   chan struct{}
	closed sync.Once
}

type sendConn struct {
	mu     sync.Mutex
	conn   net.Conn
	w      *bufio.Writer
	header [frameHeaderSize]byte
}

// Listen starts a node for rank on addr. peers maps every remote rank to
// its listen address; the local rank may be present and is ignored.
func Listen(rank int, addr string, peers map[int]string) (*Node, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("tcp: listen %s: %w", addr, err)
	}

	n := &Node{
		rank:  rank,
		peers: peers,
		ln:    ln,
		inbox: make(chan envelope, 64),
		conns: make(map[int]*sendConn),
		g:     &errgroup.Group{},
		done:  make(chan struct{}),
	}
	n.g.Go(n.acceptLoop)
	return n, nil
}

// Addr returns the bound listen address.
func (n *Node) Addr() net.Addr {
	return n.ln.Addr()
}

// Rank implements transport.Transport.
func (n *Node) Rank() int {
	return n.rank
}

func (n *Node) acceptLoop() error {
	for {
		conn, err := n.ln.Accept()
		if err != nil {
			select {
			case <-n.done:
				return nil
			default:
				return err
			}
		}
		c := conn
		n.g.Go(func() error { return n.readLoop(c) })
	}
}

func (n *Node) readLoop(conn net.Conn) error {
	defer conn.Close()

	r := bufio.NewReader(conn)
	var header [frameHeaderSize]byte
	for {
		if _, err := io.ReadFull(r, header[:]); err != nil {
			if err == io.EOF {
				return nil
			}
			select {
			case <-n.done:
				return nil
			default:
				return err
			}
		}

		from := binary.LittleEndian.Uint32(header[0:4])
		size := binary.LittleEndian.Uint32(header[4:8])
		if size > MaxFrameSize {
			return fmt.Errorf("tcp: frame of %d bytes exceeds limit", size)
		}

		payload := make([]byte, size)
		if _, err := io.ReadFull(r, payload); err != nil {
			return err
		}

		select {
		case n.inbox <- envelope{from: int(from), payload: payload}:
		case <-n.done:
			return nil
		}
	}
}

// Send implements transport.Transport. Frames to one destination are
// serialized over a single cached connection.
func (n *Node) Send(ctx context.Context, dest int, payload []byte) error {
	select {
	case <-n.done:
		return transport.ErrClosed
	default:
	}

	sc, err := n.dial(dest)
	if err != nil {
		return err
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = sc.conn.SetWriteDeadline(deadline)
	}

	binary.LittleEndian.PutUint32(sc.header[0:4], uint32(n.rank))
	binary.LittleEndian.PutUint32(sc.header[4:8], uint32(len(payload)))
	if _, err := sc.w.Write(sc.header[:]); err != nil {
		return fmt.Errorf("tcp: send to rank %d: %w", dest, err)
	}
	if _, err := sc.w.Write(payload); err != nil {
		return fmt.Errorf("tcp: send to rank %d: %w", dest, err)
	}
	if err := sc.w.Flush(); err != nil {
		return fmt.Errorf("tcp: send to rank %d: %w", dest, err)
	}
	return nil
}

func (n *Node) dial(dest int) (*sendConn, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if sc, ok := n.conns[dest]; ok {
		return sc, nil
	}

	addr, ok := n.peers[dest]
	if !ok {
		return nil, fmt.Errorf("tcp: unknown rank %d", dest)
	}
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("tcp: dial rank %d at %s: %w", dest, addr, err)
	}

	sc := &sendConn{conn: conn, w: bufio.NewWriter(conn)}
	n.conns[dest] = sc
	return sc, nil
}

// Recv implements transport.Transport.
func (n *Node) Recv(ctx context.Context, buf []byte) ([]byte, int, error) {
	select {
	case env := <-n.inbox:
		return append(buf[:0], env.payload...), env.from, nil
	case <-n.done:
		return nil, 0, transport.ErrClosed
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	}
}

// Close shuts the node down: listener, cached connections, reader
// goroutines.
func (n *Node) Close() error {
	var err error
	n.closed.Do(func() {
		close(n.done)
		err = n.ln.Close()

		n.mu.Lock()
		for _, sc := range n.conns {
			_ = sc.conn.Close()
		}
		n.mu.Unlock()

		_ = n.g.Wait()
	})
	return err
}
