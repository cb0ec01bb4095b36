package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/solbootcamp/vaultkit/cmd/vaultctl/derive"
	"github.com/solbootcamp/vaultkit/cmd/vaultctl/simulate"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

var cmd = cobra.Command{
	Use:   "vaultctl",
	Short: "Staking vault and pool toolkit",
}

func init() {
	klogFlags := flag.NewFlagSet("klog", flag.ExitOnError)
	klog.InitFlags(klogFlags)
	cmd.PersistentFlags().AddGoFlagSet(klogFlags)

	cmd.AddCommand(
		&derive.Cmd,
		&simulate.Cmd,
	)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	cobra.CheckErr(cmd.ExecuteContext(ctx))
}
