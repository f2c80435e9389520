package main

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/moonape1226/dlob-server/internal/api"
	"github.com/moonape1226/dlob-server/internal/chain"
	"github.com/moonape1226/dlob-server/internal/dlob"
	"github.com/moonape1226/dlob-server/internal/market"
	"github.com/moonape1226/dlob-server/internal/supervisor"
	"github.com/moonape1226/dlob-server/internal/util"
	"github.com/moonape1226/dlob-server/params"
)

// atomicBool backs App.Subscribed — a plain bool written from the stream
// goroutine and read from arbitrary HTTP handler goroutines.
type atomicBool struct{ v atomic.Bool }

func (b *atomicBool) set(v bool) { b.v.Store(v) }
func (b *atomicBool) get() bool  { return b.v.Load() }

func bigFromInt(v int64) *big.Int { return big.NewInt(v) }

func main() {
	cfg, err := params.LoadFromEnv("")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logFile := os.Getenv("LOG_FILE")
	if logFile == "" {
		logFile = "data/dlobserver.log"
	}
	logger, err := util.NewLoggerWithFile(logFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", logFile, "env", cfg.Env, "commit", cfg.Commit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	supervisor.Run(ctx, func(ctx context.Context) error {
		return runDaemon(ctx, cfg, sugar)
	}, sugar)
}

// runDaemon builds every component fresh and serves until ctx is
// cancelled or an unrecoverable error occurs. supervisor.Run restarts it
// wholesale — cold-rebuilding the index, book and HTTP server — on any
// non-nil return (spec.md §4.7, §7 "Recovery").
func runDaemon(ctx context.Context, cfg params.Config, sugar *zap.SugaredLogger) error {
	registry := buildMarketRegistry()

	slots := chain.NewSlotSource()
	oracle := chain.NewOracleView()
	index := dlob.NewOrderIndex()
	stats := dlob.NewUserStatsIndex(statsPDADeriver{}, nil)

	rpcClient := rpc.New(cfg.Endpoint)

	var provider chain.Provider
	if cfg.UseOrderSubscriber {
		if cfg.WSEndpoint == "" {
			return fmt.Errorf("WS_ENDPOINT is required when USE_ORDER_SUBSCRIBER=true")
		}
		provider = chain.NewOrderSubscriberProvider(index, slots, cfg.WSEndpoint, decodeOrderMessageStub, sugar)
	} else {
		provider = chain.NewUserMapProvider(index, slots, newRPCFetcher(rpcClient, nil), time.Second, sugar)
	}

	var subscribed atomicBool
	subscribeCtx, cancelSubscribe := context.WithCancel(ctx)
	defer cancelSubscribe()

	subscribeErr := make(chan error, 1)
	go func() {
		err := provider.Subscribe(subscribeCtx)
		subscribed.set(false)
		subscribeErr <- err
	}()

	// Give the first poll/dial a head start before declaring the stream
	// "subscribed" for /startup purposes (spec.md §6 readiness predicate).
	go func() {
		select {
		case <-ctx.Done():
		case <-time.After(2 * time.Second):
			subscribed.set(true)
		}
	}()

	books := dlob.NewBookBuilder(index, slots, oracle, registry, sugar)
	bookCtx, cancelBooks := context.WithCancel(ctx)
	defer cancelBooks()
	go books.Run(bookCtx, dlob.TickInterval)

	venues := buildVenues(registry, sugar)
	for _, vs := range venues {
		for _, fb := range vs.Fallbacks {
			go fb.Run(bookCtx, 5*time.Second)
		}
	}

	app := &api.App{
		Markets:    registry,
		Books:      books,
		Source:     provider,
		Oracle:     oracle,
		Stats:      stats,
		Venues:     venues,
		Subscribed: subscribed.get,
		StartedAt:  time.Now(),
		Commit:     cfg.Commit,
	}

	srv := api.NewServer(app, cfg.RateLimitCallsPerSecond, cfg.AllowLoadTest, sugar)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: srv.Handler(),
	}

	serveErr := make(chan error, 1)
	go func() {
		sugar.Infow("http_server_starting", "port", cfg.Port)
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case err := <-subscribeErr:
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("account stream: %w", err)
		}
		return nil
	}
}

func decodeOrderMessageStub(raw []byte) (chain.AccountUpdate, error) {
	return chain.AccountUpdate{}, fmt.Errorf("order subscriber decoder not wired")
}

// buildMarketRegistry loads the static market catalogue. Real deployments
// read this from chain state or a config file at startup (spec.md §3
// "Markets are loaded once at startup"); the two markets below are the
// devnet defaults the rest of the pack tests against.
func buildMarketRegistry() *market.Registry {
	reg := market.NewRegistry()
	_ = reg.Register(&market.Market{
		Key:        market.Key{Type: market.Perp, Index: 0},
		Name:       "SOL-PERP",
		BaseAsset:  "SOL",
		QuoteAsset: "USDC",
	})
	_ = reg.Register(&market.Market{
		Key:        market.Key{Type: market.Spot, Index: 0},
		Name:       "SOL-USDC",
		BaseAsset:  "SOL",
		QuoteAsset: "USDC",
		Venues: market.Venues{
			Phoenix: "4DoNfFBfF7UokCC2FQzriy7yHK6DY6NVdYpuekQ5pRgg",
			Serum:   "9wFFyRfZBsuAha4YcuxcXLKwMxJR43S7fPfQLusDBzvT",
		},
	})
	return reg
}

func buildVenues(reg *market.Registry, sugar *zap.SugaredLogger) map[market.Key]api.VenueSet {
	venues := make(map[market.Key]api.VenueSet)
	for _, m := range reg.All() {
		switch m.Key.Type {
		case market.Perp:
			venues[m.Key] = api.VenueSet{
				Vamm: dlob.NewVammCurve(bigFromInt(100_000_000_000_000), bigFromInt(10_000_000_000), bigFromInt(1_000_000_000)),
			}
		case market.Spot:
			venues[m.Key] = api.VenueSet{Fallbacks: spotFallbacks(m, sugar)}
		}
	}
	return venues
}

// spotFallbacks wires one FallbackVenue per external venue address a spot
// market advertises. The venue-specific RPC/websocket client is out of
// scope (spec.md §1), same boundary as bootstrap.go's decodeAccount; each
// gets a stub VenueFetchFunc so the subscribe-and-degrade contract (spec
// §4.6) is actually exercised end to end instead of left wholly unwired.
func spotFallbacks(m *market.Market, sugar *zap.SugaredLogger) []*dlob.FallbackVenue {
	var out []*dlob.FallbackVenue
	if m.Venues.Phoenix != "" {
		out = append(out, dlob.NewFallbackVenue("phoenix", stubVenueFetch("phoenix", m.Venues.Phoenix), sugar))
	}
	if m.Venues.Serum != "" {
		out = append(out, dlob.NewFallbackVenue("serum", stubVenueFetch("serum", m.Venues.Serum), sugar))
	}
	return out
}

// stubVenueFetch always fails, the same nil-fallback treatment bootstrap.go
// gives decodeAccount: the venue is reported unsubscribed and omitted
// from L2 until a real venue client is wired in, rather than fabricating
// liquidity or panicking.
func stubVenueFetch(venue, marketAddr string) dlob.VenueFetchFunc {
	return func(ctx context.Context) (bids, asks []dlob.Level, err error) {
		return nil, nil, fmt.Errorf("%s client not wired for market %s", venue, marketAddr)
	}
}
