package chromium

import (
	"fmt"
	"math/rand"
	"net"
	"strconv"
	"sync"
	"time"
)

const (
	minDebugPort = 8000
	maxDebugPort = 8999

	// maxPortAttempts bounds the relaunches done with a fresh auto chosen
	// port after endpoint discovery failed.
	maxPortAttempts = 10
)

// portPool hands out debugging ports. A port stays reserved from acquire
// until release so that concurrent launches in this process never pick
// the same one while a browser is still binding it.
type portPool struct {
	min, max int
	// isFree reports whether nobody is bound to the port.
	isFree func(port int) bool

	mu       sync.Mutex
	reserved map[int]struct{}
	randSrc  *rand.Rand
}

func newPortPool() *portPool {
	return &portPool{
		min:      minDebugPort,
		max:      maxDebugPort,
		isFree:   canBind,
		reserved: make(map[int]struct{}),
		randSrc:  rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec
	}
}

// acquire reserves a random free port of the pool.
func (p *portPool) acquire() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ports := make([]int, 0, p.max-p.min+1)
	for port := p.min; port <= p.max; port++ {
		ports = append(ports, port)
	}
	p.randSrc.Shuffle(len(ports), func(i, j int) { ports[i], ports[j] = ports[j], ports[i] })

	for _, port := range ports {
		if _, ok := p.reserved[port]; ok {
			continue
		}
		if !p.isFree(port) {
			continue
		}
		p.reserved[port] = struct{}{}
		return port, nil
	}

	return 0, fmt.Errorf("no available port between %d and %d", p.min, p.max)
}

func (p *portPool) release(port int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.reserved, port)
}

func canBind(port int) bool {
	l, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		return false
	}
	_ = l.Close()
	return true
}
