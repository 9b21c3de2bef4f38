// Package sim hosts the pool program in process: an in-memory token ledger,
// order book and account store, with each instruction applied atomically.
package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/krazyTry/raydium-go/amm"
	"github.com/krazyTry/raydium-go/amm/event"
	"github.com/krazyTry/raydium-go/amm/shared"
	"github.com/krazyTry/raydium-go/amm/state"
	"github.com/krazyTry/raydium-go/venue/memory"
)

// Runtime serializes instructions and rolls back every collaborator when
// one fails.
type Runtime struct {
	mu sync.Mutex

	Ledger *memory.Ledger
	Book   *memory.Book
	Store  *state.MemoryStore
	Clock  *Clock

	network   amm.Network
	processor *amm.Processor
	logger    *zap.Logger

	events []event.Event
	logs   []string
}

type Option func(*options)

type options struct {
	network amm.Network
	logger  *zap.Logger
	start   time.Time
}

func WithNetwork(network amm.Network) Option {
	return func(o *options) {
		o.network = network
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func WithStartTime(t time.Time) Option {
	return func(o *options) {
		o.start = t
	}
}

func New(opts ...Option) *Runtime {
	o := &options{network: amm.DefaultNetwork(), start: time.Unix(1_700_000_000, 0)}
	for _, fn := range opts {
		fn(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	r := &Runtime{
		Ledger:  memory.NewLedger(),
		Store:   state.NewMemoryStore(),
		Clock:   NewClock(o.start),
		network: o.network,
		logger:  o.logger.Named("sim"),
	}
	r.Book = memory.NewBook(r.Ledger)
	r.processor = amm.NewProcessor(r.Store, r.Ledger, r.Book,
		amm.WithNetwork(o.network),
		amm.WithClock(r.Clock),
		amm.WithLogger(o.logger),
		amm.WithEventHandler(func(e event.Event, line string) {
			r.events = append(r.events, e)
			r.logs = append(r.logs, line)
		}),
	)
	return r
}

func (r *Runtime) Network() amm.Network {
	return r.network
}

// Result is what a successful transaction emitted.
type Result struct {
	Slot   uint64
	Events []event.Event
	Logs   []string
}

type snapshot struct {
	ledger memory.LedgerSnapshot
	book   memory.BookSnapshot
	store  map[solana.PublicKey]*state.Account
}

func (r *Runtime) snapshot() snapshot {
	return snapshot{ledger: r.Ledger.Snapshot(), book: r.Book.Snapshot(), store: r.Store.Snapshot()}
}

func (r *Runtime) restore(s snapshot) {
	r.Ledger.Restore(s.ledger)
	r.Book.Restore(s.book)
	r.Store.Restore(s.store)
}

// Execute runs instructions as one transaction. On error nothing any of them
// did remains.
func (r *Runtime) Execute(ctx context.Context, instructions ...solana.Instruction) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Clock.Advance(1, 400*time.Millisecond)
	slot, _ := r.Clock.Now()
	r.events, r.logs = nil, nil
	before := r.snapshot()

	for i, ix := range instructions {
		if err := r.execute(ctx, ix); err != nil {
			r.restore(before)
			r.logger.Debug("transaction rolled back", zap.Uint64("slot", slot), zap.Int("instruction", i), zap.Error(err))
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
	}
	return &Result{Slot: slot, Events: r.events, Logs: r.logs}, nil
}

func (r *Runtime) execute(ctx context.Context, ix solana.Instruction) error {
	if !ix.ProgramID().Equals(r.network.ProgramID) {
		return fmt.Errorf("%w: program %s", shared.ErrInvalidAccountKey, ix.ProgramID())
	}
	data, err := ix.Data()
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrInvalidInstructionData, err)
	}
	return r.processor.Process(ctx, ix.Accounts(), data)
}

// Do runs fn under the runtime lock, rolling back on error. It drives the
// venue outside of pool instructions, e.g. a taker crossing the book.
func (r *Runtime) Do(fn func() error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	before := r.snapshot()
	if err := fn(); err != nil {
		r.restore(before)
		return err
	}
	return nil
}
