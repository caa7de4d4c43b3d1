// File: cmd/navigate.go
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jmosier/campusnav/api/schemas"
	"github.com/jmosier/campusnav/internal/navigator"
	"github.com/jmosier/campusnav/internal/observability"
)

var navigateFlow string

var navigateCmd = &cobra.Command{
	Use:   "navigate",
	Short: "Run a single portal navigation flow and print its result as JSON.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runNavigate(navigateFlow)
	},
}

func init() {
	navigateCmd.Flags().StringVar(&navigateFlow, "flow", "registration",
		"flow to run: registration or financial-account")
	rootCmd.AddCommand(navigateCmd)
}

func runNavigate(flow string) error {
	logger := observability.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	nav := navigator.New(logger, cfg)
	defer func() {
		if err := nav.Sessions().Shutdown(); err != nil {
			logger.Warn("Browser session shutdown failed", zap.Error(err))
		}
	}()

	var result schemas.FlowResult
	switch flow {
	case "registration":
		result = nav.RunRegistration(ctx, nil)
	case "financial-account", "finances":
		result = nav.RunFinancialAccount(ctx, nil)
	default:
		return fmt.Errorf("unknown flow %q (expected registration or financial-account)", flow)
	}

	out, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(out))

	if !result.Success {
		// Non-zero exit so scripts can branch on the outcome.
		os.Exit(1)
	}
	return nil
}
