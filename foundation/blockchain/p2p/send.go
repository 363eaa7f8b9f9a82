package p2p

import (
	"errors"
	"fmt"
	"math/rand"
	"net"
	"time"

	"github.com/tinychain/tinychain/foundation/blockchain/peer"
	"github.com/tinychain/tinychain/foundation/blockchain/serialize"
)

const (
	// sendTimeout bounds one connect plus send to a peer.
	sendTimeout = 10 * time.Second

	// maxSendAttempts is how many delivery attempts are made before the
	// peer is evicted from the known set.
	maxSendAttempts = 3

	// retryWait is the pause between delivery attempts.
	retryWait = 2 * time.Second
)

// ErrNoPeers is returned when a send is requested and no peers are known.
var ErrNoPeers = errors.New("no known peers")

// Client delivers framed messages to peers.
type Client struct {
	Port      int
	Peers     *peer.PeerSet
	EvHandler func(v string, args ...any)
}

// Send delivers one framed message to the specified peer, or to a peer
// chosen uniformly at random when host is empty. After the retry budget
// is exhausted the peer is evicted from the known set.
func (c *Client) Send(host string, v any) error {
	if host == "" {
		peers := c.Peers.Copy("")
		if len(peers) == 0 {
			return ErrNoPeers
		}
		host = peers[rand.Intn(len(peers))].Host
	}

	for attempt := 0; attempt < maxSendAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(retryWait)
		}

		if err := c.sendOnce(host, v); err != nil {
			c.ev("p2p: send: %s: attempt %d: ERROR: %s", host, attempt+1, err)
			continue
		}
		return nil
	}

	c.ev("p2p: send: removing dead peer %s", host)
	c.Peers.Remove(peer.New(host))

	return fmt.Errorf("peer %s unreachable", host)
}

// Request connects to the peer, sends one framed message, and reads one
// framed reply. Used for the query messages that answer on the same
// connection.
func (c *Client) Request(host string, v any) (any, error) {
	conn, err := net.DialTimeout("tcp", c.hostPort(host), sendTimeout)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(sendTimeout))

	if err := serialize.WriteFrame(conn, v); err != nil {
		return nil, err
	}

	return serialize.ReadMessage(conn)
}

func (c *Client) sendOnce(host string, v any) error {
	conn, err := net.DialTimeout("tcp", c.hostPort(host), sendTimeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(sendTimeout))

	return serialize.WriteFrame(conn, v)
}

func (c *Client) hostPort(host string) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}

	return fmt.Sprintf("%s:%d", host, c.Port)
}

func (c *Client) ev(v string, args ...any) {
	if c.EvHandler != nil {
		c.EvHandler(v, args...)
	}
}
