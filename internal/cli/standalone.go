package cli

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/LeJamon/goledgerd/internal/config"
	"github.com/LeJamon/goledgerd/internal/core/feetrack"
	"github.com/LeJamon/goledgerd/internal/core/ledger"
	"github.com/LeJamon/goledgerd/internal/core/types"
	"github.com/LeJamon/goledgerd/internal/hashrouter"
	"github.com/LeJamon/goledgerd/internal/jobqueue"
	"github.com/LeJamon/goledgerd/internal/storage/nodestore"
	"github.com/LeJamon/goledgerd/internal/storage/relationaldb"
)

// networkEpoch is the protocol epoch (2000-01-01 UTC) as a Unix timestamp.
const networkEpoch = 946684800

func newStandaloneCmd() *cobra.Command {
	var (
		count       uint32
		masterHex   string
		startAmount uint64
	)

	cmd := &cobra.Command{
		Use:   "standalone",
		Short: "Run a standalone chain: genesis, advance, persist",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(confFile)
			if err != nil {
				return err
			}
			cfg.Standalone = true
			return runStandalone(cmd, cfg, count, masterHex, startAmount)
		},
	}

	cmd.Flags().Uint32Var(&count, "ledgers", 5, "how many ledgers to build")
	cmd.Flags().StringVar(&masterHex, "master", "", "master account (40 hex chars)")
	cmd.Flags().Uint64Var(&startAmount, "start-amount", 100_000_000_000, "genesis balance in drops")
	return cmd
}

func runStandalone(cmd *cobra.Command, cfg *config.Config, count uint32, masterHex string, startAmount uint64) error {
	store, err := nodestore.New(cfg.NodeStoreConfig())
	if err != nil {
		return fmt.Errorf("open node store: %w", err)
	}
	defer store.Close()

	indexDB, err := relationaldb.Open(context.Background(), cfg.RelationalConfig())
	if err != nil {
		return fmt.Errorf("open relational db: %w", err)
	}
	defer indexDB.Close()

	queue := jobqueue.New(4)
	defer queue.Shutdown()

	env := &ledger.Env{
		Config:     cfg.LedgerConfig(),
		Family:     store.AsFamily(),
		NodeStore:  store.AsLedgerStore(),
		IndexDB:    indexDB.AsIndexDB(),
		JobQueue:   queue,
		HashRouter: hashrouter.New(0),
		FeeTrack:   feetrack.New(),
		Now: func() uint64 {
			return uint64(time.Now().Unix() - networkEpoch)
		},
	}
	env.FailedSave = func(seq uint32, hash types.Hash256) {
		fmt.Fprintf(cmd.ErrOrStderr(), "failed to save ledger %d %s\n", seq, hash)
	}

	master := masterAccount(masterHex)
	current, err := ledger.NewGenesis(env, master, startAmount)
	if err != nil {
		return fmt.Errorf("create genesis: %w", err)
	}

	out := cmd.OutOrStdout()
	for current.Seq() <= count {
		current.SetClosed()
		if err := current.SetAccepted(env.Now(), ledger.LedgerTimeAccuracy, true); err != nil {
			return fmt.Errorf("accept ledger %d: %w", current.Seq(), err)
		}
		current.SetValidated()

		if !current.PendSaveValidated(true, true) {
			return fmt.Errorf("save ledger %d", current.Seq())
		}
		fmt.Fprintf(out, "ledger %3d  %s\n", current.Seq(), current.Hash())

		next, err := ledger.NewChild(current)
		if err != nil {
			return fmt.Errorf("build child of %d: %w", current.Seq(), err)
		}
		current = next
	}

	queue.Wait()
	fmt.Fprintf(out, "built %d ledgers, chain head %s\n", count, current.ParentHash())
	return nil
}

func masterAccount(masterHex string) types.AccountID {
	var account types.AccountID
	if b, err := hex.DecodeString(masterHex); err == nil && len(b) == 20 {
		copy(account[:], b)
		return account
	}
	for i := range account {
		account[i] = 0xaa
	}
	return account
}
