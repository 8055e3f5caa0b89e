package sinkclient

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/crlsmrls/esmonitor/internal/metrics"
	"github.com/crlsmrls/esmonitor/internal/model"
)

// Pool is the semaphore-gated set of N sink connections described in
// SPEC_FULL.md §4.2. Sink writes are bursty, so the semaphore bounds
// concurrent outbound load to the sink regardless of how many source
// clusters are being monitored.
type Pool struct {
	clients []*Client
	sem     *semaphore.Weighted
}

// NewPool constructs desc.PoolCnt independent sink connections and a
// counting semaphore of the same size.
func NewPool(desc model.SinkDescriptor) (*Pool, error) {
	if desc.PoolCnt <= 0 {
		return nil, fmt.Errorf("sinkclient: pool_cnt must be positive, got %d", desc.PoolCnt)
	}

	clients := make([]*Client, 0, desc.PoolCnt)
	for i := 0; i < desc.PoolCnt; i++ {
		c, err := New(desc)
		if err != nil {
			return nil, fmt.Errorf("sinkclient: build pool member %d: %w", i, err)
		}
		clients = append(clients, c)
	}

	return &Pool{
		clients: clients,
		sem:     semaphore.NewWeighted(int64(desc.PoolCnt)),
	}, nil
}

// Guard is a scoped borrow of one pool member. Release must be called
// exactly once, typically via defer; it is safe to call more than once.
type Guard struct {
	client *Client
	sem    *semaphore.Weighted
	once   sync.Once
}

// Client returns the borrowed sink connection.
func (g *Guard) Client() *Client { return g.client }

// Release returns the permit to the pool. Safe to call more than once and
// safe to call from a deferred panic-unwind path.
func (g *Guard) Release() {
	g.once.Do(func() {
		g.sem.Release(1)
		metrics.SinkPoolInUse.Dec()
	})
}

// AcquireGuard blocks until a permit is available, then returns a
// uniformly-random pool member wrapped in a Guard.
func (p *Pool) AcquireGuard(ctx context.Context) (*Guard, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("sinkclient: acquire pool permit: %w", err)
	}
	metrics.SinkPoolInUse.Inc()

	idx := rand.IntN(len(p.clients))
	return &Guard{client: p.clients[idx], sem: p.sem}, nil
}

// Size returns the configured pool width.
func (p *Pool) Size() int { return len(p.clients) }
