// Package amm is the pool program: a constant-product AMM that shares its
// reserves with an order book through a Fibonacci ladder of limit orders.
//
// Processor.Process executes one instruction. Every handler validates and
// prices first, then moves funds, then commits its records in one batch.
package amm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/krazyTry/raydium-go/amm/event"
	"github.com/krazyTry/raydium-go/amm/instruction"
	"github.com/krazyTry/raydium-go/amm/scheduler"
	"github.com/krazyTry/raydium-go/amm/shared"
	"github.com/krazyTry/raydium-go/amm/state"
	"github.com/krazyTry/raydium-go/venue"
)

// Clock reports the current slot and unix time.
type Clock interface {
	Now() (slot uint64, unixTime int64)
}

type wallClock struct{}

// Now derives the slot from wall time with 400ms slots.
func (wallClock) Now() (uint64, int64) {
	now := time.Now()
	return uint64(now.UnixMilli() / 400), now.Unix()
}

// EventHandler receives every event a successful or failed instruction
// emitted, already encoded as a ray_log line.
type EventHandler func(e event.Event, line string)

type Processor struct {
	network   Network
	store     state.Store
	token     venue.TokenProgram
	book      venue.OrderBook
	clock     Clock
	scheduler *scheduler.Scheduler
	logger    *zap.Logger
	onEvent   EventHandler
}

type Option func(*Processor)

func WithNetwork(network Network) Option {
	return func(p *Processor) {
		p.network = network
	}
}

func WithClock(clock Clock) Option {
	return func(p *Processor) {
		p.clock = clock
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

func WithEventHandler(fn EventHandler) Option {
	return func(p *Processor) {
		p.onEvent = fn
	}
}

func NewProcessor(store state.Store, token venue.TokenProgram, book venue.OrderBook, opts ...Option) *Processor {
	p := &Processor{
		network: DefaultNetwork(),
		store:   store,
		token:   token,
		book:    book,
		clock:   wallClock{},
	}
	for _, fn := range opts {
		fn(p)
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	p.logger = p.logger.Named("amm")
	p.scheduler = scheduler.New(book, token, p.logger)
	return p
}

func (p *Processor) Network() Network {
	return p.network
}

// Process decodes data and runs the instruction against accounts, which are
// positional per instruction (see the instruction package builders).
func (p *Processor) Process(ctx context.Context, accounts []*solana.AccountMeta, data []byte) error {
	ix, err := instruction.Decode(data)
	if err != nil {
		return err
	}
	log := p.logger.With(zap.Stringer("instruction", ix.Tag()))

	switch ix := ix.(type) {
	case *instruction.Initialize:
		err = p.initialize(ctx, log, accounts, ix)
	case *instruction.Deposit:
		err = p.deposit(ctx, log, accounts, ix)
	case *instruction.Withdraw:
		err = p.withdraw(ctx, log, accounts, ix)
	case *instruction.SwapBaseIn:
		err = p.swapBaseIn(ctx, log, accounts, ix)
	case *instruction.SwapBaseOut:
		err = p.swapBaseOut(ctx, log, accounts, ix)
	case *instruction.MonitorStep:
		err = p.monitorStep(ctx, log, accounts)
	case *instruction.SetStatus:
		err = p.setStatus(ctx, log, accounts, ix)
	case *instruction.CollectProtocolFee:
		err = p.collectProtocolFee(ctx, log, accounts)
	default:
		err = fmt.Errorf("%w: tag %d", shared.ErrInvalidInstructionData, ix.Tag())
	}
	if err != nil {
		log.Debug("instruction failed", zap.Error(err))
	}
	return err
}

func (p *Processor) emit(log *zap.Logger, e event.Event) {
	payload, err := event.Encode(e)
	if err != nil {
		log.Error("encode event", zap.Stringer("type", e.Type()), zap.Error(err))
		return
	}
	log.Info(e.Type().String(), zap.String("ray_log", payload))
	if p.onEvent != nil {
		p.onEvent(e, event.Prefix+payload)
	}
}

func requireAccounts(accounts []*solana.AccountMeta, n int) error {
	if len(accounts) < n {
		return fmt.Errorf("%w: got %d, need %d", shared.ErrNotEnoughAccounts, len(accounts), n)
	}
	for i, a := range accounts[:n] {
		if a == nil {
			return fmt.Errorf("%w: account %d is nil", shared.ErrNotEnoughAccounts, i)
		}
	}
	return nil
}

func requireSigner(a *solana.AccountMeta) error {
	if !a.IsSigner {
		return fmt.Errorf("%w: %s", shared.ErrInvalidSigner, a.PublicKey)
	}
	return nil
}

func expectKey(name string, got, want solana.PublicKey) error {
	if !got.Equals(want) {
		return fmt.Errorf("%w: %s is %s, expected %s", shared.ErrInvalidAccountKey, name, got, want)
	}
	return nil
}

func external(op string, err error) error {
	if errors.Is(err, shared.ErrExternalCallFailed) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", shared.ErrExternalCallFailed, op, err)
}

// pool is a loaded pool with the values every handler needs.
type pool struct {
	key       solana.PublicKey
	info      *state.AmmInfo
	config    *state.AmmConfig
	authority solana.PublicKey
}

func (p *Processor) loadPool(ctx context.Context, ammKey, configKey, authorityKey solana.PublicKey) (*pool, error) {
	programID := p.network.ProgramID
	info, err := state.LoadAmmInfo(ctx, p.store, programID, ammKey)
	if err != nil {
		return nil, err
	}
	if err = expectKey("config", configKey, info.Config); err != nil {
		return nil, err
	}
	config, err := state.LoadAmmConfig(ctx, p.store, programID, configKey)
	if err != nil {
		return nil, err
	}
	authority, err := authorityWithNonce(programID, info.Nonce)
	if err != nil {
		return nil, err
	}
	if err = expectKey("authority", authorityKey, authority); err != nil {
		return nil, err
	}
	return &pool{key: ammKey, info: info, config: config, authority: authority}, nil
}

// checkVenueKeys verifies the market, open orders and vault accounts.
func (pl *pool) checkVenueKeys(market, openOrders, baseVault, quoteVault solana.PublicKey) error {
	for _, c := range []struct {
		name      string
		got, want solana.PublicKey
	}{
		{"market", market, pl.info.Market},
		{"open orders", openOrders, pl.info.OpenOrders},
		{"base vault", baseVault, pl.info.BaseVault},
		{"quote vault", quoteVault, pl.info.QuoteVault},
	} {
		if err := expectKey(c.name, c.got, c.want); err != nil {
			return err
		}
	}
	return nil
}

func (pl *pool) accounts() scheduler.PoolAccounts {
	return scheduler.PoolAccounts{
		Amm:               pl.key,
		Authority:         pl.authority,
		Market:            pl.info.Market,
		OpenOrders:        pl.info.OpenOrders,
		BaseVault:         pl.info.BaseVault,
		QuoteVault:        pl.info.QuoteVault,
		ProtocolFeesBase:  pl.info.ProtocolFeesBase,
		ProtocolFeesQuote: pl.info.ProtocolFeesQuote,
	}
}

func (pl *pool) params() scheduler.Params {
	return scheduler.ParamsFromState(pl.config, pl.info)
}

func (pl *pool) budget() *scheduler.Budget {
	return scheduler.NewBudget(pl.config.MaxExternalCalls)
}

// accrueFills records fills collected by a settle in the book accumulators.
func (pl *pool) accrueFills(f scheduler.FillTotals) error {
	return pl.info.AccrueFills(f.BaseIn, f.BaseOut, f.QuoteIn, f.QuoteOut)
}

// release frees vault funds for a payout of needBase and needQuote,
// planning every call before making any.
func (p *Processor) release(ctx context.Context, pl *pool, snap scheduler.Snapshot, budget *scheduler.Budget, needBase, needQuote uint64) (scheduler.Release, error) {
	pa := pl.accounts()
	if needBase <= snap.AvailableBase(pa) && needQuote <= snap.AvailableQuote(pa) {
		return scheduler.Release{}, nil
	}
	resting, err := p.scheduler.Resting(ctx, pa)
	if err != nil {
		return scheduler.Release{}, err
	}
	return scheduler.PlanRelease(snap, pa, resting, pl.params(), needBase, needQuote, budget.Remaining())
}

func (p *Processor) transfer(ctx context.Context, from, to, authority solana.PublicKey, amount uint64) error {
	if amount == 0 {
		return nil
	}
	if err := p.token.Transfer(ctx, from, to, authority, amount); err != nil {
		return external("transfer", err)
	}
	return nil
}

func (p *Processor) commit(ctx context.Context, records ...func() (*state.Account, error)) error {
	accounts := make([]*state.Account, 0, len(records))
	for _, record := range records {
		acc, err := record()
		if err != nil {
			return err
		}
		accounts = append(accounts, acc)
	}
	if err := p.store.Commit(ctx, accounts...); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (p *Processor) infoRecord(pl *pool) func() (*state.Account, error) {
	return func() (*state.Account, error) {
		return pl.info.ToAccount(pl.key, p.network.ProgramID)
	}
}
