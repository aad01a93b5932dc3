package swap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/krazyTry/gamma-go/gamma/fees"
	"github.com/krazyTry/gamma-go/gamma/state"
)

// CollectProtocolFee pays accrued protocol fees out of the vaults.
func (s *Swapper) CollectProtocolFee(ctx context.Context, acc Accounts, req fees.CollectRequest) (*fees.Collection, error) {
	return s.collect(ctx, acc, req, "protocol", fees.CollectProtocolFee)
}

// CollectFundFee pays accrued fund fees out of the vaults.
func (s *Swapper) CollectFundFee(ctx context.Context, acc Accounts, req fees.CollectRequest) (*fees.Collection, error) {
	return s.collect(ctx, acc, req, "fund", fees.CollectFundFee)
}

func (s *Swapper) collect(
	ctx context.Context,
	acc Accounts,
	req fees.CollectRequest,
	kind string,
	fn func(*state.PoolState, fees.CollectRequest) *fees.Collection,
) (*fees.Collection, error) {
	if acc.Pool == nil {
		return nil, fmt.Errorf("collect %s fee: missing pool", kind)
	}
	if req.Authority.IsZero() {
		req.Authority = acc.Authority
	}
	pool := *acc.Pool
	c := fn(&pool, req)
	if len(c.Transfers) > 0 {
		if err := s.settler.Settle(ctx, c.Transfers); err != nil {
			return nil, fmt.Errorf("settle %s fee: %w", kind, err)
		}
	}
	*acc.Pool = pool
	s.logger.Info("collect fee",
		zap.String("kind", kind),
		zap.String("pool", acc.PoolID.String()),
		zap.Uint64("amount_0", c.Amount0),
		zap.Uint64("amount_1", c.Amount1),
	)
	return c, nil
}
