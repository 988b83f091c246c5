package chainclient

import (
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

const erc20ABIJSON = `[
	{"constant":true,"inputs":[{"name":"_owner","type":"address"},{"name":"_spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"},
	{"constant":false,"inputs":[{"name":"_spender","type":"address"},{"name":"_value","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"payable":false,"stateMutability":"nonpayable","type":"function"},
	{"constant":false,"inputs":[{"name":"_to","type":"address"},{"name":"_value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"payable":false,"stateMutability":"nonpayable","type":"function"},
	{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"from","type":"address"},{"indexed":true,"name":"to","type":"address"},{"indexed":false,"name":"value","type":"uint256"}],"name":"Transfer","type":"event"}
]`

const routerABIJSON = `[
	{"constant":true,"inputs":[{"name":"amountIn","type":"uint256"},{"name":"path","type":"address[]"}],"name":"getAmountsOut","outputs":[{"name":"amounts","type":"uint256[]"}],"payable":false,"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[{"name":"amountOut","type":"uint256"},{"name":"path","type":"address[]"}],"name":"getAmountsIn","outputs":[{"name":"amounts","type":"uint256[]"}],"payable":false,"stateMutability":"view","type":"function"},
	{"constant":false,"inputs":[{"name":"amountOut","type":"uint256"},{"name":"amountInMax","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"name":"swapTokensForExactTokens","outputs":[{"name":"amounts","type":"uint256[]"}],"payable":false,"stateMutability":"nonpayable","type":"function"}
]`

var (
	abiOnce   sync.Once
	erc20ABI  abi.ABI
	routerABI abi.ABI
	abiErr    error
)

func loadABIs() error {
	abiOnce.Do(func() {
		erc20ABI, abiErr = abi.JSON(strings.NewReader(erc20ABIJSON))
		if abiErr != nil {
			return
		}
		routerABI, abiErr = abi.JSON(strings.NewReader(routerABIJSON))
	})
	return abiErr
}

// TransferTopic is the topic hash of the ERC20 Transfer event.
var TransferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// BuildTransferData packs calldata for an ERC20 transfer.
func BuildTransferData(to common.Address, amount *big.Int) ([]byte, error) {
	if err := loadABIs(); err != nil {
		return nil, fmt.Errorf("failed to parse ERC20 ABI: %v", err)
	}
	return erc20ABI.Pack("transfer", to, amount)
}

// BuildApproveData packs calldata for an ERC20 approval.
func BuildApproveData(spender common.Address, amount *big.Int) ([]byte, error) {
	if err := loadABIs(); err != nil {
		return nil, fmt.Errorf("failed to parse ERC20 ABI: %v", err)
	}
	return erc20ABI.Pack("approve", spender, amount)
}

// BuildSwapData packs calldata for a fixed-output swap along path, sending
// the output tokens to the given address.
func BuildSwapData(amountOut, amountInMax *big.Int, path []common.Address, to common.Address, deadline *big.Int) ([]byte, error) {
	if err := loadABIs(); err != nil {
		return nil, fmt.Errorf("failed to parse router ABI: %v", err)
	}
	return routerABI.Pack("swapTokensForExactTokens", amountOut, amountInMax, path, to, deadline)
}

// TransferEvent is a decoded ERC20 Transfer log.
type TransferEvent struct {
	Token common.Address
	From  common.Address
	To    common.Address
	Value *big.Int
}

// ParseTransferLog decodes an ERC20 Transfer event from a receipt log.
// Returns false for logs that are not Transfer events.
func ParseTransferLog(l *types.Log) (TransferEvent, bool) {
	if len(l.Topics) != 3 || l.Topics[0] != TransferTopic {
		return TransferEvent{}, false
	}
	if len(l.Data) == 0 {
		return TransferEvent{}, false
	}
	return TransferEvent{
		Token: l.Address,
		From:  common.BytesToAddress(l.Topics[1].Bytes()),
		To:    common.BytesToAddress(l.Topics[2].Bytes()),
		Value: new(big.Int).SetBytes(l.Data),
	}, true
}
