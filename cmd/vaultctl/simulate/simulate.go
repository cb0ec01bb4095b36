package simulate

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/samber/lo"
	"github.com/solbootcamp/vaultkit/pkg/accounts"
	"github.com/solbootcamp/vaultkit/pkg/replay"
	"github.com/solbootcamp/vaultkit/pkg/scenario"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

var (
	Cmd = cobra.Command{
		Use:   "simulate",
		Short: "Run a scenario file against a fresh account store",
		Args:  cobra.NoArgs,
		RunE:  run,
	}

	scenarioPath string
	dbDir        string
	showMetrics  bool
)

func init() {
	Cmd.Flags().StringVarP(&scenarioPath, "scenario", "f", "", "Path of the scenario YAML file")
	Cmd.Flags().StringVar(&dbDir, "db", "", "Directory of a pebble account store (in memory if unset)")
	Cmd.Flags().BoolVar(&showMetrics, "metrics", false, "Print replay metrics after the run")
	_ = Cmd.MarkFlagRequired("scenario")
}

func run(c *cobra.Command, _ []string) error {
	s, err := scenario.LoadFile(scenarioPath)
	if err != nil {
		return err
	}

	var accts accounts.Accounts = accounts.NewMemAccounts()
	if dbDir != "" {
		db, err := accounts.OpenAccountsDb(dbDir)
		if err != nil {
			return fmt.Errorf("opening account store %s: %w", dbDir, err)
		}
		defer db.Close()
		accts = db
		klog.Infof("using account store at %s", dbDir)
	}

	registry := prometheus.NewRegistry()
	metrics, err := replay.NewMetrics(registry)
	if err != nil {
		return err
	}

	runner, err := scenario.NewRunner(s, accts, metrics)
	if err != nil {
		return err
	}
	err = runner.Genesis()
	if err != nil {
		return fmt.Errorf("genesis: %w", err)
	}

	results, runErr := runner.Run(c.Context())
	out := c.OutOrStdout()
	printResults(out, results)

	if runErr != nil && !errors.Is(runErr, scenario.ErrExpectationFailed) {
		return runErr
	}

	report, err := runner.Report()
	if err != nil {
		return err
	}
	printReport(out, report)

	if showMetrics {
		err = printMetrics(out, registry)
		if err != nil {
			return err
		}
	}
	return runErr
}

func printResults(out io.Writer, results []*scenario.StepResult) {
	for _, result := range results {
		status := "ok"
		if result.Mismatch != nil {
			status = "MISMATCH"
		}
		fmt.Fprintf(out, "step %-3d slot %-6d %-20s %-8s %s", result.Index, result.Slot, result.Step.Op, result.Step.Actor, status)
		if err := result.Err(); err != nil {
			fmt.Fprintf(out, " (%s)", err)
		}
		fmt.Fprintln(out)
		if result.Mismatch != nil {
			fmt.Fprintf(out, "    %s\n", result.Mismatch)
		}
	}
	if len(results) > 0 {
		fmt.Fprintf(out, "bank hash %x\n", results[len(results)-1].BankHash)
	}
}

func sortedKeys(m map[string]uint64) []string {
	keys := lo.Keys(m)
	slices.Sort(keys)
	return keys
}

func printReport(out io.Writer, report *scenario.Report) {
	fmt.Fprintln(out, "\nbalances:")
	for _, balance := range report.Balances {
		if balance.Amount > 0 {
			fmt.Fprintf(out, "  %-12s %-12s %d\n", balance.Actor, balance.Mint, balance.Amount)
		}
	}

	if len(report.Stakes) > 0 {
		fmt.Fprintln(out, "stakes:")
		for _, stake := range report.Stakes {
			fmt.Fprintf(out, "  %-12s %-12s amount=%d stake_at=%d vault=%d\n", stake.Actor, stake.Mint, stake.Amount, stake.StakeAt, stake.Vault)
		}
	}

	if len(report.RewardVaults) > 0 {
		fmt.Fprintln(out, "reward vaults:")
		for _, mint := range sortedKeys(report.RewardVaults) {
			fmt.Fprintf(out, "  %-12s %d\n", mint, report.RewardVaults[mint])
		}
	}

	for _, pool := range report.Pools {
		fmt.Fprintf(out, "pool %s: reserves %d / %d, lp supply %d\n", pool.Name, pool.ReserveA, pool.ReserveB, pool.LpSupply)
		for _, actor := range sortedKeys(pool.Liquidity) {
			fmt.Fprintf(out, "  %-12s %d\n", actor, pool.Liquidity[actor])
		}
	}
}

func printMetrics(out io.Writer, gatherer prometheus.Gatherer) error {
	families, err := gatherer.Gather()
	if err != nil {
		return err
	}
	fmt.Fprintln(out)
	for _, family := range families {
		_, err = expfmt.MetricFamilyToText(out, family)
		if err != nil {
			return err
		}
	}
	return nil
}
