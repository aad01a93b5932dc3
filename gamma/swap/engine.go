package swap

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/krazyTry/gamma-go/gamma/fees"
	"github.com/krazyTry/gamma-go/gamma/state"
)

// ErrUnknownPool is returned for a pool id the engine has not registered.
var ErrUnknownPool = errors.New("unknown pool")

type poolEntry struct {
	mu       sync.Mutex
	accounts Accounts
}

// Engine owns a set of pools and serializes operations per pool. Swaps on
// different pools run concurrently.
type Engine struct {
	swapper *Swapper

	mu    sync.RWMutex
	pools map[solana.PublicKey]*poolEntry
}

// NewEngine returns an empty engine executing swaps with swapper.
func NewEngine(swapper *Swapper) *Engine {
	return &Engine{swapper: swapper, pools: make(map[solana.PublicKey]*poolEntry)}
}

// Register hands the pool's accounts to the engine. Callers must not touch
// them afterwards except through the engine.
func (e *Engine) Register(acc Accounts) error {
	if err := acc.validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.pools[acc.PoolID]; ok {
		return fmt.Errorf("pool %s already registered", acc.PoolID)
	}
	e.pools[acc.PoolID] = &poolEntry{accounts: acc}
	return nil
}

func (e *Engine) entry(poolID solana.PublicKey) (*poolEntry, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.pools[poolID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPool, poolID)
	}
	return p, nil
}

func (e *Engine) with(poolID solana.PublicKey, fn func(acc Accounts) error) error {
	p, err := e.entry(poolID)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return fn(p.accounts)
}

// SwapBaseInput runs Swapper.SwapBaseInput under the pool's lock.
func (e *Engine) SwapBaseInput(ctx context.Context, poolID solana.PublicKey, req SwapBaseInputRequest) (r *Receipt, err error) {
	err = e.with(poolID, func(acc Accounts) error {
		r, err = e.swapper.SwapBaseInput(ctx, acc, req)
		return err
	})
	return r, err
}

// SwapBaseOutput runs Swapper.SwapBaseOutput under the pool's lock.
func (e *Engine) SwapBaseOutput(ctx context.Context, poolID solana.PublicKey, req SwapBaseOutputRequest) (r *Receipt, err error) {
	err = e.with(poolID, func(acc Accounts) error {
		r, err = e.swapper.SwapBaseOutput(ctx, acc, req)
		return err
	})
	return r, err
}

// CollectProtocolFee pays out accrued protocol fees under the pool's lock.
func (e *Engine) CollectProtocolFee(ctx context.Context, poolID solana.PublicKey, req fees.CollectRequest) (c *fees.Collection, err error) {
	err = e.with(poolID, func(acc Accounts) error {
		c, err = e.swapper.CollectProtocolFee(ctx, acc, req)
		return err
	})
	return c, err
}

// CollectFundFee pays out accrued fund fees under the pool's lock.
func (e *Engine) CollectFundFee(ctx context.Context, poolID solana.PublicKey, req fees.CollectRequest) (c *fees.Collection, err error) {
	err = e.with(poolID, func(acc Accounts) error {
		c, err = e.swapper.CollectFundFee(ctx, acc, req)
		return err
	})
	return c, err
}

// SetStatus updates the pool's status mask, e.g. to pause swaps.
func (e *Engine) SetStatus(poolID solana.PublicKey, status uint8) error {
	return e.with(poolID, func(acc Accounts) error {
		acc.Pool.SetStatus(status)
		return nil
	})
}

// Snapshot returns copies of the pool and its oracle.
func (e *Engine) Snapshot(poolID solana.PublicKey) (pool state.PoolState, obs state.ObservationState, err error) {
	err = e.with(poolID, func(acc Accounts) error {
		pool, obs = *acc.Pool, *acc.Observation
		return nil
	})
	return pool, obs, err
}
