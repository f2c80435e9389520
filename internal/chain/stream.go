package chain

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/moonape1226/dlob-server/internal/dlob"
)

// AccountUpdate is one event from a subscription: either an upsert of a
// full decoded account, or a deletion signal (spec.md §3 "Lifecycle").
type AccountUpdate struct {
	PubKey  solana.PublicKey
	Account *dlob.UserAccount // nil when Deleted
	Deleted bool
	Slot    uint64
}

// Decoder turns one raw subscription message into an AccountUpdate. The
// wire-level account decoder is an external collaborator (spec.md §1);
// callers inject the binding that actually understands the chain
// program's account layout.
type Decoder func(raw []byte) (AccountUpdate, error)

// Fetcher pulls the full current account map in one round trip, for the
// "user map" subscription mode (spec.md §9 "Two subscription modes").
// The RPC client behind it is external.
type Fetcher func(ctx context.Context) ([]AccountUpdate, error)

// Provider is the DLOBProvider abstraction from spec.md §9: a single
// interface with two concrete variants (full user-map poll vs. compact
// order-stream push), both of which populate and expose an OrderIndex.
type Provider interface {
	Subscribe(ctx context.Context) error
	Size() int
	GetUserAccount(pubkey solana.PublicKey) *dlob.UserAccount
	GetUserAccounts() []dlob.IndexEntry
	GetUniqueAuthorities() map[solana.PublicKey]struct{}
}

const (
	minReconnectBackoff = time.Second
	maxReconnectBackoff = 30 * time.Second
)

// UserMapProvider rebuilds the full account map on a fixed polling
// interval (USE_ORDER_SUBSCRIBER=false). Grounded on
// ice-coldbell-easyclaw's orderbookCollector per-target loop: poll,
// apply, sleep, with the previous index left untouched on a failed poll.
type UserMapProvider struct {
	index    *dlob.OrderIndex
	slots    *SlotSource
	fetch    Fetcher
	interval time.Duration
	logger   *zap.SugaredLogger
}

// NewUserMapProvider creates a polling provider. interval defaults to
// one second if zero or negative.
func NewUserMapProvider(index *dlob.OrderIndex, slots *SlotSource, fetch Fetcher, interval time.Duration, logger *zap.SugaredLogger) *UserMapProvider {
	if interval <= 0 {
		interval = time.Second
	}
	return &UserMapProvider{index: index, slots: slots, fetch: fetch, interval: interval, logger: logger}
}

// Subscribe polls until ctx is cancelled. A single failed poll is logged
// and retried on the next tick; it never tears down the previously built
// index (spec.md §7 UpstreamTransient handling).
func (p *UserMapProvider) Subscribe(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			updates, err := p.fetch(ctx)
			if err != nil {
				if p.logger != nil {
					p.logger.Warnw("user_map_poll_failed", "err", err)
				}
				continue
			}
			seen := make(map[solana.PublicKey]struct{}, len(updates))
			for _, u := range updates {
				p.apply(u)
				seen[u.PubKey] = struct{}{}
			}
			for _, e := range p.index.Iterate() {
				if _, ok := seen[e.PubKey]; !ok {
					p.index.Delete(e.PubKey)
				}
			}
		}
	}
}

func (p *UserMapProvider) apply(u AccountUpdate) {
	if u.Deleted {
		p.index.Delete(u.PubKey)
		return
	}
	p.index.Upsert(u.PubKey, u.Account)
	if u.Slot > 0 {
		p.slots.Advance(u.Slot)
	}
}

func (p *UserMapProvider) Size() int { return p.index.Size() }
func (p *UserMapProvider) GetUserAccount(pubkey solana.PublicKey) *dlob.UserAccount {
	return p.index.Get(pubkey)
}
func (p *UserMapProvider) GetUserAccounts() []dlob.IndexEntry { return p.index.Iterate() }
func (p *UserMapProvider) GetUniqueAuthorities() map[solana.PublicKey]struct{} {
	return p.index.UniqueAuthorities()
}

// OrderSubscriberProvider streams only orders over a websocket connection
// to WS_ENDPOINT (USE_ORDER_SUBSCRIBER=true), reconnecting with capped
// backoff on disconnect. The teacher's gorilla/websocket Hub pushed book
// updates out to browser clients; here the same dependency dials *into*
// the chain's websocket endpoint as a client instead.
type OrderSubscriberProvider struct {
	index   *dlob.OrderIndex
	slots   *SlotSource
	url     string
	decode  Decoder
	logger  *zap.SugaredLogger
	dialer  *websocket.Dialer
}

// NewOrderSubscriberProvider creates a push-mode provider against url,
// decoding each inbound message with decode.
func NewOrderSubscriberProvider(index *dlob.OrderIndex, slots *SlotSource, url string, decode Decoder, logger *zap.SugaredLogger) *OrderSubscriberProvider {
	return &OrderSubscriberProvider{
		index:  index,
		slots:  slots,
		url:    url,
		decode: decode,
		logger: logger,
		dialer: websocket.DefaultDialer,
	}
}

// Subscribe dials and reads until ctx is cancelled, reconnecting with
// exponential backoff (capped at maxReconnectBackoff) on any read/dial
// error — a dropped connection is UpstreamTransient (spec.md §7), not a
// reason to tear down the index built so far.
func (p *OrderSubscriberProvider) Subscribe(ctx context.Context) error {
	backoff := minReconnectBackoff
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn, _, err := p.dialer.DialContext(ctx, p.url, nil)
		if err != nil {
			if p.logger != nil {
				p.logger.Warnw("order_subscriber_dial_failed", "err", err, "backoff", backoff)
			}
			if !sleepOrDone(ctx, backoff) {
				return ctx.Err()
			}
			backoff = nextBackoff(backoff)
			continue
		}
		backoff = minReconnectBackoff

		if err := p.readLoop(ctx, conn); err != nil && p.logger != nil {
			p.logger.Warnw("order_subscriber_disconnected", "err", err)
		}
		conn.Close()

		if !sleepOrDone(ctx, backoff) {
			return ctx.Err()
		}
		backoff = nextBackoff(backoff)
	}
}

func (p *OrderSubscriberProvider) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		update, err := p.decode(raw)
		if err != nil {
			if p.logger != nil {
				p.logger.Warnw("order_subscriber_decode_failed", "err", err)
			}
			continue
		}
		if update.Deleted {
			p.index.Delete(update.PubKey)
		} else {
			p.index.Upsert(update.PubKey, update.Account)
		}
		if update.Slot > 0 {
			p.slots.Advance(update.Slot)
		}
	}
}

func (p *OrderSubscriberProvider) Size() int { return p.index.Size() }
func (p *OrderSubscriberProvider) GetUserAccount(pubkey solana.PublicKey) *dlob.UserAccount {
	return p.index.Get(pubkey)
}
func (p *OrderSubscriberProvider) GetUserAccounts() []dlob.IndexEntry { return p.index.Iterate() }
func (p *OrderSubscriberProvider) GetUniqueAuthorities() map[solana.PublicKey]struct{} {
	return p.index.UniqueAuthorities()
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > maxReconnectBackoff {
		return maxReconnectBackoff
	}
	return d
}
