package swap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/krazyTry/gamma-go/gamma/curve"
	"github.com/krazyTry/gamma-go/gamma/events"
	"github.com/krazyTry/gamma-go/gamma/ledger"
	"github.com/krazyTry/gamma-go/gamma/referral"
	"github.com/krazyTry/gamma-go/gamma/segmenter"
	"github.com/krazyTry/gamma-go/gamma/shared"
	"github.com/krazyTry/gamma-go/gamma/state"
)

// Settler moves tokens. A batch is applied atomically.
type Settler interface {
	Settle(ctx context.Context, transfers []ledger.Transfer) error
}

// FeeOracle reports mint-level transfer fees.
type FeeOracle interface {
	// TransferFee is withheld when amount is sent.
	TransferFee(mint solana.PublicKey, epoch, amount uint64) (uint64, error)
	// InverseTransferFee must be added to postFeeAmount so that exactly
	// postFeeAmount arrives.
	InverseTransferFee(mint solana.PublicKey, epoch, postFeeAmount uint64) (uint64, error)
}

// Instant is the time a swap executes at.
type Instant struct {
	UnixTimestamp uint64
	Epoch         uint64
}

// Clock supplies the swap's timestamp and epoch.
type Clock interface {
	Now() Instant
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() Instant

func (f ClockFunc) Now() Instant { return f() }

// SystemClock reads the wall clock. It has no notion of epochs.
var SystemClock Clock = ClockFunc(func() Instant {
	return Instant{UnixTimestamp: uint64(time.Now().Unix())}
})

// Accounts are the pool accounts a swap reads and writes. Config is only read.
type Accounts struct {
	PoolID solana.PublicKey
	// Authority owns both vaults.
	Authority   solana.PublicKey
	Config      *state.AmmConfig
	Pool        *state.PoolState
	Observation *state.ObservationState
}

func (a Accounts) validate() error {
	if a.Config == nil || a.Pool == nil || a.Observation == nil {
		return fmt.Errorf("%w: missing pool accounts", shared.ErrInvalidInput)
	}
	return a.Config.Validate()
}

// Swapper executes swaps against a single pool's accounts. It does not
// serialize callers; see Engine.
type Swapper struct {
	settler    Settler
	fees       FeeOracle
	policy     curve.FeePolicy
	referrals  referral.Registry
	segmenters *segmenter.Registry
	sink       events.Sink
	clock      Clock
	logger     *zap.Logger
}

// Option configures a Swapper.
type Option func(*Swapper)

// WithLogger sets the logger; nil keeps the no-op default.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Swapper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithFeePolicy replaces the static trade fee with policy.
func WithFeePolicy(policy curve.FeePolicy) Option {
	return func(s *Swapper) { s.policy = policy }
}

// WithReferrals enables referral payouts.
func WithReferrals(r referral.Registry) Option {
	return func(s *Swapper) { s.referrals = r }
}

// WithSegmenters sets the keys whose proofs mark a swap as trusted.
func WithSegmenters(r *segmenter.Registry) Option {
	return func(s *Swapper) { s.segmenters = r }
}

// WithSink sets where swap events go.
func WithSink(sink events.Sink) Option {
	return func(s *Swapper) { s.sink = sink }
}

// WithClock overrides SystemClock.
func WithClock(clock Clock) Option {
	return func(s *Swapper) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewSwapper returns a Swapper settling through settler and pricing transfer
// fees with fees.
func NewSwapper(settler Settler, fees FeeOracle, opts ...Option) *Swapper {
	s := &Swapper{
		settler: settler,
		fees:    fees,
		policy:  curve.StaticFee{},
		clock:   SystemClock,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// resolveDirection maps the caller's vault pair onto the pool.
func resolveDirection(pool *state.PoolState, inputVault, outputVault solana.PublicKey) (shared.TradeDirection, error) {
	switch {
	case inputVault.Equals(pool.Token0Vault) && outputVault.Equals(pool.Token1Vault):
		return shared.TradeDirectionZeroForOne, nil
	case inputVault.Equals(pool.Token1Vault) && outputVault.Equals(pool.Token0Vault):
		return shared.TradeDirectionOneForZero, nil
	}
	return 0, shared.ErrInvalidVault
}

// reserves returns the (input, output) reserves for direction.
func reserves(pool *state.PoolState, direction shared.TradeDirection) (uint64, uint64) {
	amount0, amount1 := pool.VaultAmountWithoutFee()
	if direction == shared.TradeDirectionZeroForOne {
		return amount0, amount1
	}
	return amount1, amount0
}

func approve(pool *state.PoolState, now uint64) error {
	if !pool.GetStatusByBit(shared.PoolStatusBitSwap) {
		return fmt.Errorf("%w: swaps disabled", shared.ErrNotApproved)
	}
	if now < pool.OpenTime {
		return fmt.Errorf("%w: pool opens at %d", shared.ErrNotApproved, pool.OpenTime)
	}
	return nil
}

// curveError reports every curve failure as ZeroTradingTokens while keeping
// the underlying cause matchable.
func curveError(err error) error {
	if errors.Is(err, shared.ErrZeroTradingTokens) {
		return err
	}
	return fmt.Errorf("%w: %w", shared.ErrZeroTradingTokens, err)
}

func (s *Swapper) trusted(proof *segmenter.Proof, message []byte) bool {
	if proof == nil || s.segmenters == nil {
		return false
	}
	return s.segmenters.Verify(proof, message)
}

func (s *Swapper) lookupReferral(acc Accounts, inputMint, inputProgram solana.PublicKey, ra *referral.Accounts) (*referral.Info, error) {
	if s.referrals == nil || ra == nil {
		return nil, nil
	}
	return s.referrals.Lookup(inputMint, inputProgram, acc.Config.ReferralProject, ra)
}

// commit publishes the working copies and emits the event. The swap has
// already settled, so a failing sink is logged rather than returned.
func (s *Swapper) commit(ctx context.Context, acc Accounts, pool *state.PoolState, obs *state.ObservationState, event *state.SwapEvent) {
	*acc.Pool = *pool
	*acc.Observation = *obs
	if s.sink == nil {
		return
	}
	if err := s.sink.Emit(ctx, event); err != nil {
		s.logger.Warn("emit swap event", zap.String("pool", acc.PoolID.String()), zap.Error(err))
	}
}
