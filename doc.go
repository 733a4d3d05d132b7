// Package entrypoint implements a swap-and-action entry point contract.
//
// A user attaches a single coin and asks the entry point to swap it on a
// named venue and then do something with the output: send it to a local
// address, transfer it over IBC, or hand it to another contract. Affiliates
// named in the request receive a share of the swap output first.
//
// The swap and the action each run as a sub-call of the entry point. Before
// dispatching one, the entry point writes a continuation record to its
// storage; the reply for that sub-call consumes the record and either
// carries on or refunds the recovery address. A persisted Phase guarantees
// that only one request is in flight at a time.
//
// Overview
//
//  1. Deploy the contract with Instantiate, naming the swap venues (venue
//     name to adapter contract) and the IBC transfer adapter.
//  2. Send ExecuteMsg.SwapAndAction with exactly one coin attached, or send
//     cw20 tokens to the entry point with the request as the receive hook's
//     message. The request is validated in full before anything is
//     recorded.
//  3. The UserSwap self-call swaps through the venue adapter and checks the
//     output against the minimum asset. Any failure inside it reverts the
//     swap and refunds the original funds.
//  4. On success, affiliate fees are paid in declaration order and the
//     PostSwapAction self-call performs the action. A failed action refunds
//     what it was given.
//
// Contracts run on the runtime in package chain.
package entrypoint
