package token2022

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/tidwall/gjson"
)

// FetchMint loads a mint account. The node is asked for jsonParsed data;
// when it cannot parse the account it falls back to base64 and the raw
// layout is decoded instead.
func FetchMint(ctx context.Context, rpcClient *rpc.Client, address solana.PublicKey) (*Mint, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()
	out, err := rpcClient.GetAccountInfoWithOpts(ctx, address, &rpc.GetAccountInfoOpts{
		Commitment: rpc.CommitmentFinalized,
		Encoding:   solana.EncodingJSONParsed,
	})
	if errors.Is(err, rpc.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMint, address)
	}
	if err != nil {
		return nil, err
	}
	if out == nil || out.Value == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMint, address)
	}
	return decodeAccountData(address, out.Value.Owner, out.Value.Data)
}

func decodeAccountData(address, program solana.PublicKey, data *rpc.DataBytesOrJSON) (*Mint, error) {
	if data == nil {
		return nil, fmt.Errorf("%w: %s has no data", ErrInvalidMintData, address)
	}
	if raw := data.GetRawJSON(); len(raw) > 0 {
		return ParseJSONMint(address, program, raw)
	}
	return DecodeMint(address, program, data.GetBinary())
}

// GetCurrentEpoch returns the epoch used to select transfer fee schedules.
func GetCurrentEpoch(ctx context.Context, rpcClient *rpc.Client) (uint64, error) {
	info, err := rpcClient.GetEpochInfo(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return 0, fmt.Errorf("failed to get epoch info: %w", err)
	}
	return info.Epoch, nil
}

// ParseJSONMint decodes a mint account returned with jsonParsed encoding.
func ParseJSONMint(address, program solana.PublicKey, raw []byte) (*Mint, error) {
	info := gjson.GetBytes(raw, "parsed.info")
	if !info.Exists() || gjson.GetBytes(raw, "parsed.type").String() != "mint" {
		return nil, fmt.Errorf("%w: not a parsed mint", ErrInvalidMintData)
	}
	m := &Mint{
		Address:  address,
		Program:  program,
		Decimals: uint8(info.Get("decimals").Uint()),
	}
	ext := info.Get(`extensions.#(extension=="transferFeeConfig").state`)
	if !ext.Exists() {
		return m, nil
	}
	cfg := &TransferFeeConfig{
		WithheldAmount:   ext.Get("withheldAmount").Uint(),
		OlderTransferFee: jsonTransferFee(ext.Get("olderTransferFee")),
		NewerTransferFee: jsonTransferFee(ext.Get("newerTransferFee")),
	}
	var err error
	if cfg.TransferFeeConfigAuthority, err = jsonPubkey(ext.Get("transferFeeConfigAuthority")); err != nil {
		return nil, err
	}
	if cfg.WithdrawWithheldAuthority, err = jsonPubkey(ext.Get("withdrawWithheldAuthority")); err != nil {
		return nil, err
	}
	m.TransferFee = cfg
	return m, nil
}

func jsonTransferFee(v gjson.Result) TransferFee {
	return TransferFee{
		Epoch:       v.Get("epoch").Uint(),
		MaximumFee:  v.Get("maximumFee").Uint(),
		BasisPoints: uint16(v.Get("transferFeeBasisPoints").Uint()),
	}
}

func jsonPubkey(v gjson.Result) (*solana.PublicKey, error) {
	if v.Type == gjson.Null || v.String() == "" {
		return nil, nil
	}
	key, err := solana.PublicKeyFromBase58(v.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMintData, err)
	}
	return &key, nil
}
