package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ACNet-AI/OpenPersona-sub000/internal/cli"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/economy"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/model"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/wallet"

	"github.com/spf13/cobra"
)

var (
	flagProvider      string
	flagCredentialEnv string
	flagEndpoint      string
	flagAgentID       string
	flagAddress       string
	flagNetwork       string
)

var walletInitCmd = &cobra.Command{
	Use:   "wallet-init",
	Short: "Create the persona's wallet identity and economic state",
	RunE:  runWalletInit,
}

var walletConnectCmd = &cobra.Command{
	Use:   "wallet-connect",
	Short: "Enable an external balance provider and sync it",
	RunE:  runWalletConnect,
}

var setPrimaryCmd = &cobra.Command{
	Use:   "set-primary",
	Short: "Choose which provider funds the operational balance",
	RunE:  runSetPrimary,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Refresh cached balances from external providers",
	RunE:  runSync,
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show per-provider balances",
	RunE:  runBalance,
}

func init() {
	walletConnectCmd.Flags().StringVar(&flagProvider, "provider", "", "Provider: coinbase-cdp, acn, onchain")
	walletConnectCmd.Flags().StringVar(&flagCredentialEnv, "credential-env", "", "Environment variable holding the provider credential")
	walletConnectCmd.Flags().StringVar(&flagEndpoint, "endpoint", "", "Provider API endpoint")
	walletConnectCmd.Flags().StringVar(&flagAgentID, "agent-id", "", "ACN agent id")
	walletConnectCmd.Flags().StringVar(&flagAddress, "address", "", "Wallet address (defaults to the persona's derived address)")
	walletConnectCmd.Flags().StringVar(&flagNetwork, "network", "", "CDP network")

	setPrimaryCmd.Flags().StringVar(&flagProvider, "provider", "", "Provider: local, coinbase-cdp, acn, onchain")
	syncCmd.Flags().StringVar(&flagProvider, "provider", "", "Sync only this provider (default: all enabled)")

	rootCmd.AddCommand(walletInitCmd, walletConnectCmd, setPrimaryCmd, syncCmd, balanceCmd)
}

func runWalletInit(_ *cobra.Command, _ []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	res, err := e.svc.InitWallet()
	if err != nil {
		return err
	}
	return cli.Write(os.Stdout, e.format, res, func() string {
		var b strings.Builder
		b.WriteString("\n")
		if res.IdentityCreated {
			fmt.Fprintf(&b, "  Created wallet identity for %s\n", e.loc.Slug)
		} else {
			fmt.Fprintf(&b, "  Wallet identity for %s already exists\n", e.loc.Slug)
		}
		fmt.Fprintf(&b, "  Address: %s\n", res.Identity.WalletAddress)
		fmt.Fprintf(&b, "  State:   %s\n", res.StatePath)
		b.WriteString("\n")
		b.WriteString("  Fund it with `economy deposit --amount N` or connect a provider with `economy wallet-connect`.\n\n")
		return b.String()
	})
}

func runWalletConnect(_ *cobra.Command, _ []string) error {
	p, err := parseProvider(flagProvider)
	if err != nil {
		return err
	}
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	settings := model.ProviderSettings{
		CredentialEnv: flagCredentialEnv,
		Endpoint:      flagEndpoint,
		AgentID:       flagAgentID,
		Address:       flagAddress,
		Network:       flagNetwork,
	}
	if settings.Network == "" && p == wallet.CoinbaseCDP {
		settings.Network = e.cfg.Providers.CoinbaseCDP.Network
	}

	logf("  Connecting %s...\n", p)
	res, err := e.svc.ConnectProvider(context.Background(), p, settings)
	if err != nil {
		return err
	}
	return cli.Write(os.Stdout, e.format, res, func() string {
		var b strings.Builder
		b.WriteString("\n")
		fmt.Fprintf(&b, "  Enabled %s\n", p)
		if res.Settings.CredentialEnv != "" {
			fmt.Fprintf(&b, "  Credential env: %s\n", res.Settings.CredentialEnv)
		}
		b.WriteString(renderSync(res.Sync))
		b.WriteString("\n")
		return b.String()
	})
}

func runSetPrimary(_ *cobra.Command, _ []string) error {
	p, err := parseProvider(flagProvider)
	if err != nil {
		return err
	}
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	out, err := e.svc.SetPrimary(p)
	if err != nil {
		return err
	}
	return cli.Write(os.Stdout, e.format, out, func() string {
		return fmt.Sprintf("\n  Primary provider: %s\n  Operational balance: %s\n\n",
			p, cli.FormatAmount(out.Balance, out.Currency))
	})
}

func runSync(_ *cobra.Command, _ []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := context.Background()
	var results []wallet.SyncResult
	if flagProvider != "" {
		p, err := wallet.ParseProvider(flagProvider)
		if err != nil {
			return err
		}
		r, err := e.svc.Sync(ctx, p)
		if err != nil {
			return err
		}
		results = append(results, r)
	} else {
		logf("  Syncing enabled providers...\n")
		results, err = e.svc.SyncAll(ctx)
		if err != nil {
			return err
		}
	}

	return cli.Write(os.Stdout, e.format, results, func() string {
		if len(results) == 0 {
			return "\n  No external providers enabled. Connect one with `economy wallet-connect`.\n\n"
		}
		var b strings.Builder
		b.WriteString("\n")
		for _, r := range results {
			b.WriteString(renderSync(r))
		}
		b.WriteString("\n")
		return b.String()
	})
}

func renderSync(r wallet.SyncResult) string {
	if r.IsFresh() {
		return fmt.Sprintf("  %-13s %s (fresh)\n", r.Provider, cli.FormatAmount(r.Balance, r.Currency))
	}
	return fmt.Sprintf("  %-13s %s (cached)\n%s\n",
		r.Provider, cli.FormatAmount(r.Balance, r.Currency), cli.RenderWarning(r.Reason))
}

func runBalance(_ *cobra.Command, _ []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	r, err := e.svc.Status()
	if err != nil {
		return err
	}
	return cli.Write(os.Stdout, e.format, r.Providers, func() string {
		return "\n" + renderBalances(r) + "\n"
	})
}

func renderBalances(r economy.Report) string {
	t := cli.Table{
		Title:   "Balances",
		Headers: []string{"Provider", "Balance", "Enabled", "Last Sync"},
	}
	for _, p := range r.Providers {
		name := string(p.Provider)
		if p.Primary {
			name += " *"
		}
		t.Rows = append(t.Rows, []string{
			name,
			cli.FormatAmount(p.Balance, p.Currency),
			yesNo(p.Enabled),
			cli.FormatAgo(p.LastSync),
		})
	}
	t.Rows = append(t.Rows, []string{"---"})
	t.Rows = append(t.Rows, []string{"Operational", cli.FormatAmount(r.OperationalBalance, r.OperationalCurrency), "", ""})
	return cli.RenderTable(t)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
