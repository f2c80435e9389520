package main

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/moonape1226/dlob-server/internal/chain"
	"github.com/moonape1226/dlob-server/internal/dlob"
)

// programID is the on-chain program whose user accounts carry orders.
// Hardcoding it here (rather than reading it from params.Config) mirrors
// spec.md §1: the program's account layout is an external bootstrap
// concern, so the only thing this daemon needs to know about it is its
// address and a discriminator to filter program accounts by.
var programID = solana.MustPublicKeyFromBase58("dRiftyHA39MWEi3m9aunc5MzRF1JYuBsbn6VPcn33UH")

// userAccountDiscriminator is the fixed 8-byte account-type tag Anchor
// programs prefix every account with. Filtering on it at the RPC layer
// (spec.md grounded on ice-coldbell-easyclaw's scanAndStore) avoids
// pulling unrelated program accounts into the index.
var userAccountDiscriminator = [8]byte{0x9c, 0x6d, 0x6e, 0x21, 0xd7, 0x5b, 0x3c, 0x49}

// newRPCFetcher returns a chain.Fetcher that pulls every user account for
// programID in one round trip, for UserMapProvider's polling mode.
// decodeAccount is the injected wire decoder — the account layout itself
// is out of scope (spec.md §1); callers wire in a real Borsh/Anchor
// decoder for production use. Left unset, every account decodes to an
// empty UserAccount whose Authority is set to the account's own pubkey,
// so the daemon still starts and
// serves an (empty) book against a live RPC endpoint.
func newRPCFetcher(client *rpc.Client, decodeAccount func(pubkey solana.PublicKey, data []byte) (*dlob.UserAccount, error)) chain.Fetcher {
	if decodeAccount == nil {
		decodeAccount = decodeUserAccountStub
	}
	return func(ctx context.Context) ([]chain.AccountUpdate, error) {
		slot, err := client.GetSlot(ctx, rpc.CommitmentConfirmed)
		if err != nil {
			return nil, fmt.Errorf("get slot: %w", err)
		}

		accounts, err := client.GetProgramAccountsWithOpts(ctx, programID, &rpc.GetProgramAccountsOpts{
			Commitment: rpc.CommitmentConfirmed,
			Filters: []rpc.RPCFilter{
				{Memcmp: &rpc.RPCFilterMemcmp{Offset: 0, Bytes: solana.Base58(userAccountDiscriminator[:])}},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("get program accounts: %w", err)
		}

		updates := make([]chain.AccountUpdate, 0, len(accounts))
		for _, item := range accounts {
			acct, err := decodeAccount(item.Pubkey, item.Account.Data.GetBinary())
			if err != nil {
				continue
			}
			updates = append(updates, chain.AccountUpdate{
				PubKey:  item.Pubkey,
				Account: acct,
				Slot:    uint64(slot),
			})
		}
		return updates, nil
	}
}

// decodeUserAccountStub is the default no-op decoder: it produces a
// valid, empty UserAccount rather than failing the fetch outright, so a
// freshly wired endpoint with no real decoder plugged in still boots and
// serves a (correctly empty) book instead of crash-looping.
func decodeUserAccountStub(pubkey solana.PublicKey, data []byte) (*dlob.UserAccount, error) {
	return &dlob.UserAccount{Authority: pubkey}, nil
}

// statsPDADeriver derives a user's stats account the way Anchor PDAs are
// derived across the pack (grounded on ice-coldbell-easyclaw's
// pkg/dex/pda.go FindProgramAddress calls): a fixed seed plus the
// authority's bytes, against the same program.
type statsPDADeriver struct{}

func (statsPDADeriver) DeriveUserStatsPDA(authority solana.PublicKey) (solana.PublicKey, error) {
	pk, _, err := solana.FindProgramAddress([][]byte{[]byte("user_stats"), authority.Bytes()}, programID)
	return pk, err
}
