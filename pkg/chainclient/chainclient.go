// Package chainclient wraps the chain RPC connection behind the narrow
// capabilities the engine needs: receipt waits, allowance reads, venue
// amount queries.
package chainclient

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/paystream-hq/payflow/pkg/logger"
	"github.com/paystream-hq/payflow/pkg/models"
)

// receiptPollInterval is how often WaitForReceipt polls for a pending hash.
const receiptPollInterval = 2 * time.Second

// EVMClient is the production chain client.
type EVMClient struct {
	client *ethclient.Client
	router common.Address
	logger logger.Logger
}

// New dials the RPC endpoint and returns a connected client.
func New(ctx context.Context, rpcURL string, router common.Address, log logger.Logger) (*EVMClient, error) {
	if log == nil {
		log = &logger.EmptyLogger{}
	}

	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to client: %v", err)
	}

	return &EVMClient{
		client: client,
		router: router,
		logger: log,
	}, nil
}

// Close releases the underlying RPC connection.
func (c *EVMClient) Close() {
	c.client.Close()
}

// BlockNumber returns the latest block number.
func (c *EVMClient) BlockNumber(ctx context.Context) (uint64, error) {
	return c.client.BlockNumber(ctx)
}

// WaitForReceipt polls for the receipt of hash until it appears or the
// bounded wait elapses. A timeout is a monitoring failure, not a transaction
// failure: the hash may still confirm later.
func (c *EVMClient) WaitForReceipt(ctx context.Context, hash common.Hash, timeout time.Duration) (*types.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.client.TransactionReceipt(waitCtx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			c.logger.DebugWithComponent(logger.Monitor, "Receipt lookup for %s: %v", hash.Hex(), err)
		}

		select {
		case <-waitCtx.Done():
			return nil, fmt.Errorf("timed out waiting for receipt of %s: %v", hash.Hex(), waitCtx.Err())
		case <-ticker.C:
		}
	}
}

// Allowance returns the ERC20 allowance granted by owner to spender.
func (c *EVMClient) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	if err := loadABIs(); err != nil {
		return nil, fmt.Errorf("failed to parse ERC20 ABI: %v", err)
	}

	contract := bind.NewBoundContract(token, erc20ABI, c.client, c.client, c.client)

	var out []interface{}
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, "allowance", owner, spender); err != nil {
		return nil, fmt.Errorf("failed to check allowance: %v", err)
	}
	if len(out) == 0 || out[0] == nil {
		return nil, fmt.Errorf("empty result from allowance call")
	}

	allowance, ok := out[0].(*big.Int)
	if !ok || allowance == nil {
		return nil, fmt.Errorf("invalid allowance result type")
	}
	return allowance, nil
}

// AmountsOut asks the swap venue how much output amountIn buys along path.
func (c *EVMClient) AmountsOut(ctx context.Context, amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	return c.routerAmounts(ctx, "getAmountsOut", amountIn, path)
}

// AmountsIn asks the swap venue how much input is needed for an exact
// amountOut along path.
func (c *EVMClient) AmountsIn(ctx context.Context, amountOut *big.Int, path []common.Address) ([]*big.Int, error) {
	return c.routerAmounts(ctx, "getAmountsIn", amountOut, path)
}

func (c *EVMClient) routerAmounts(ctx context.Context, method string, amount *big.Int, path []common.Address) ([]*big.Int, error) {
	if err := loadABIs(); err != nil {
		return nil, fmt.Errorf("failed to parse router ABI: %v", err)
	}

	contract := bind.NewBoundContract(c.router, routerABI, c.client, c.client, c.client)

	var out []interface{}
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, method, amount, path); err != nil {
		// The venue reverts amount queries for pairs without liquidity.
		if strings.Contains(err.Error(), "execution reverted") {
			return nil, models.ErrNoLiquidity
		}
		return nil, fmt.Errorf("%s call failed: %v", method, err)
	}
	if len(out) == 0 || out[0] == nil {
		return nil, fmt.Errorf("empty result from %s call", method)
	}

	amounts, ok := out[0].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("invalid %s result type", method)
	}
	if len(amounts) != len(path) {
		return nil, fmt.Errorf("%s returned %d amounts for a %d-token path", method, len(amounts), len(path))
	}
	return amounts, nil
}
