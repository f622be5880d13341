package remote

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/LeJamon/goxrpl-remote/internal/config"
	"github.com/LeJamon/goxrpl-remote/internal/storage/pending"
	"github.com/LeJamon/goxrpl-remote/internal/transport"
)

// Notifier receives transaction notifications for one account or order book.
type Notifier interface {
	Notify(msg json.RawMessage)
}

// Remote coordinates a set of node connections: request routing, ledger
// tracking, transaction fan-out and per-account caches. One Remote serves one
// configured network.
type Remote struct {
	cfg     config.Config
	log     *logrus.Entry
	metrics *Metrics

	pool     *Pool
	registry *registry
	ledger   *LedgerTracker
	dedup    *DedupCache
	accounts *AccountCache
	store    pending.Store

	events chan transport.Event

	mu               sync.Mutex
	state            ConnectionState
	deferred         []*Request
	inflight         map[uint64]*Request
	nextID           uint64
	accountNotifiers map[string]Notifier
	bookNotifiers    map[string]Notifier
	activePathFind   *PathFind
	everConnected    bool
	closed           bool

	closeCh chan struct{}
}

// Option configures a Remote.
type Option func(*Remote)

// WithLogger sets the structured logger.
func WithLogger(log *logrus.Entry) Option {
	return func(r *Remote) { r.log = log }
}

// WithStore sets the pending-operation store.
func WithStore(store pending.Store) Option {
	return func(r *Remote) { r.store = store }
}

// WithRegisterer sets the metrics registerer.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(r *Remote) { r.metrics = NewMetrics(reg) }
}

// WithDedupCapacity overrides the seen-transaction cache capacity.
func WithDedupCapacity(n int) Option {
	return func(r *Remote) {
		if cache, err := NewDedupCache(n); err == nil {
			r.dedup = cache
		}
	}
}

// New creates a Remote from a validated configuration.
func New(cfg config.Config, opts ...Option) (*Remote, error) {
	cfg.Normalize()
	if err := config.Validate(&cfg); err != nil {
		return nil, err
	}

	dedup, err := NewDedupCache(DefaultDedupCapacity)
	if err != nil {
		return nil, err
	}
	accounts, err := NewAccountCache()
	if err != nil {
		return nil, err
	}

	r := &Remote{
		cfg:              cfg,
		log:              logrus.NewEntry(logrus.StandardLogger()),
		pool:             NewPool(),
		registry:         newRegistry(),
		ledger:           NewLedgerTracker(),
		dedup:            dedup,
		accounts:         accounts,
		events:           make(chan transport.Event, 256),
		inflight:         make(map[uint64]*Request),
		accountNotifiers: make(map[string]Notifier),
		bookNotifiers:    make(map[string]Notifier),
		closeCh:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.metrics == nil {
		r.metrics = NewMetrics(nil)
	}
	r.registry.onCount = r.onListenerCount

	return r, nil
}

// Config returns the remote's configuration.
func (r *Remote) Config() config.Config {
	return r.cfg
}

// InboundEvents is the channel node connections deliver their events on.
func (r *Remote) InboundEvents() chan<- transport.Event {
	return r.events
}

// AddServer registers a node connection with the pool.
func (r *Remote) AddServer(conn transport.Conn, primary bool) {
	r.pool.Add(conn, primary)
}

// Connect dials every registered node, staggered by the configured offset.
// It fails fast when no servers are registered.
func (r *Remote) Connect(ctx context.Context) error {
	return r.pool.Connect(ctx, r.cfg.ConnectionOffset)
}

// Run processes node events until the context is cancelled or the remote is
// closed.
func (r *Remote) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.closeCh:
			return nil
		case evt := <-r.events:
			r.handleEvent(evt)
		}
	}
}

// Close shuts the remote down: the event loop stops, every connection is torn
// down and queued requests fail.
func (r *Remote) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	deferred := r.deferred
	r.deferred = nil
	inflight := r.inflight
	r.inflight = make(map[uint64]*Request)
	r.mu.Unlock()

	close(r.closeCh)
	r.pool.Disconnect()

	for _, req := range deferred {
		req.fail(ErrClosed)
	}
	for _, req := range inflight {
		req.fail(ErrClosed)
	}
}

// On registers an event listener and returns its subscription.
func (r *Remote) On(typ EventType, fn Listener) *Subscription {
	return r.registry.add(typ, fn)
}

// handleEvent dispatches one node event.
func (r *Remote) handleEvent(evt transport.Event) {
	switch evt.Type {
	case transport.EventConnected:
		r.handleConnUp(evt.Conn)
	case transport.EventDisconnected:
		r.handleConnDown(evt.Conn, evt.Err)
	case transport.EventMessage:
		r.handleMessage(evt.Conn, evt.Payload)
	}
}

// Submit validates and routes a request: it fails fast without servers,
// defers while offline, honors an explicit server pin, and otherwise
// dispatches to the pool's current best connection.
func (r *Remote) Submit(req *Request) {
	if req == nil {
		r.log.WithField("error", ErrRequestNil).Warn("dropped nil request")
		return
	}
	if req.Command == "" {
		r.metrics.RequestsFailed.Inc()
		req.fail(ErrUnknownCommand)
		return
	}
	if r.pool.Count() == 0 {
		r.metrics.RequestsFailed.Inc()
		req.fail(ErrNoServers)
		return
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		req.fail(ErrClosed)
		return
	}
	if r.state == StateOffline {
		// Deferred, not retried: the request keeps its identity and is
		// dispatched exactly once on the next online transition.
		r.deferred = append(r.deferred, req)
		r.mu.Unlock()
		r.metrics.RequestsDeferred.Inc()
		r.log.WithField("command", req.Command).Debug("request deferred while offline")
		return
	}
	r.mu.Unlock()

	if r.interceptAccountRoot(req) {
		return
	}

	conn := req.pinnedServer()
	if conn != nil && !r.pool.Contains(conn) {
		r.metrics.RequestsFailed.Inc()
		req.fail(ErrServerNotFound)
		return
	}
	if conn == nil {
		conn = r.pool.Choose()
	}
	if conn == nil {
		r.metrics.RequestsFailed.Inc()
		req.fail(ErrNoServerConnected)
		return
	}

	r.dispatch(conn, req)
}

// dispatch assigns a correlation id, records the request in flight and sends
// the encoded frame.
func (r *Remote) dispatch(conn transport.Conn, req *Request) {
	if r.cfg.SubmissionTimeout > 0 {
		req.mu.Lock()
		if req.timeout == 0 {
			req.timeout = r.cfg.SubmissionTimeout
		}
		req.mu.Unlock()
	}

	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.inflight[id] = req
	r.mu.Unlock()

	frame, err := req.encode(id)
	if err != nil {
		r.forget(id)
		req.fail(err)
		return
	}
	if err := conn.Dispatch(frame); err != nil {
		r.forget(id)
		r.metrics.RequestsFailed.Inc()
		req.fail(err)
		return
	}
	r.metrics.RequestsSubmitted.Inc()
}

// forget drops an in-flight request record.
func (r *Remote) forget(id uint64) {
	r.mu.Lock()
	delete(r.inflight, id)
	r.mu.Unlock()
}

// takeInflight removes and returns the in-flight request for a response id.
func (r *Remote) takeInflight(id uint64) *Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.inflight[id]
	if ok {
		delete(r.inflight, id)
	}
	return req
}

// RegisterAccount routes transaction notifications affecting the account to
// the notifier. A nil notifier unregisters.
func (r *Remote) RegisterAccount(account string, n Notifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n == nil {
		delete(r.accountNotifiers, account)
		return
	}
	r.accountNotifiers[account] = n
}

// RegisterBook routes transaction notifications affecting the order book to
// the notifier. A nil notifier unregisters.
func (r *Remote) RegisterBook(key string, n Notifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n == nil {
		delete(r.bookNotifiers, key)
		return
	}
	r.bookNotifiers[key] = n
}

// CreatePathFind opens a path-find session, superseding any active one. The
// create request is routed like any other request.
func (r *Remote) CreatePathFind(source, destination string, amount any) *PathFind {
	session := newPathFind(source, destination, amount)

	r.mu.Lock()
	prev := r.activePathFind
	r.activePathFind = session
	r.mu.Unlock()

	if prev != nil {
		prev.supersede()
	}

	req := NewRequest("path_find").
		Set("subcommand", "create").
		Set("source_account", source).
		Set("destination_account", destination).
		Set("destination_amount", amount)
	r.Submit(req)
	return session
}

// Ledger returns the ledger tracker.
func (r *Remote) Ledger() *LedgerTracker {
	return r.ledger
}

// Accounts returns the per-account state cache.
func (r *Remote) Accounts() *AccountCache {
	return r.accounts
}

// chooseConn returns the pool's current best connection, distinguishing an
// empty pool from a pool with nothing connected.
func (r *Remote) chooseConn() (transport.Conn, error) {
	if conn := r.pool.Choose(); conn != nil {
		return conn, nil
	}
	if r.pool.Count() == 0 {
		return nil, ErrNoServers
	}
	return nil, ErrNoServerConnected
}

// FeeForUnits converts fee units to drops under the selected node's quote.
func (r *Remote) FeeForUnits(units uint64) (uint64, error) {
	conn, err := r.chooseConn()
	if err != nil {
		return 0, err
	}
	return conn.Quote().FeeForUnits(units), nil
}

// FeeUnit returns the selected node's reference fee unit.
func (r *Remote) FeeUnit() (uint64, error) {
	conn, err := r.chooseConn()
	if err != nil {
		return 0, err
	}
	return conn.Quote().FeeRef, nil
}

// Reserve returns the reserve in drops for an account owning ownerCount
// objects, under the selected node's quote.
func (r *Remote) Reserve(ownerCount uint64) (uint64, error) {
	conn, err := r.chooseConn()
	if err != nil {
		return 0, err
	}
	return conn.Quote().Reserve(ownerCount), nil
}
