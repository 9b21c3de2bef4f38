package raydium

import (
	"github.com/krazyTry/raydium-go/amm"
	"github.com/krazyTry/raydium-go/client"
	"github.com/krazyTry/raydium-go/sim"
)

// NewProcessor creates the pool program over a store, a token program and
// an order book.
//
// Example:
//
// processor := NewProcessor(store, ledger, book, amm.WithNetwork(network))
//
// processor.Process(ctx, ix.Accounts(), data)
var NewProcessor = amm.NewProcessor

// NewClient creates an RPC client for deployed pools.
//
// Example:
//
// raydiumClient := NewClient(rpcClient, amm.DefaultNetwork(), client.WithWebsocket(wsClient))
//
// pool, _ := raydiumClient.GetPool(ctx, ammAddress)
//
// raydiumClient.SwapBaseIn(ctx, payer, pool, shared.SwapDirectionQuoteToBase, amountIn, 50)
var NewClient = client.New

// NewSimulator creates an in-process runtime with an in-memory ledger and
// order book.
//
// Example:
//
// rt := NewSimulator(sim.WithNetwork(network))
//
// report, _ := sim.DefaultScenario().Run(ctx, rt)
var NewSimulator = sim.New

// NetworkByName selects a deployment by name; "" is the build default.
var NetworkByName = amm.NetworkByName
