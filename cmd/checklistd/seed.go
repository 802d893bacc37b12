package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Write the default categories, checklist types and administrator",
	Long: `Create the default user categories and checklist types that do not exist
yet. The administrator account is created as well when the user store is empty
and bootstrap_admin_password is set.`,
	RunE: runSeed,
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, logger, logCloser, err := loadRuntime(os.Stderr)
	if err != nil {
		return err
	}
	defer func() { _ = logCloser.Close() }()

	a, err := newApp(cmd.Context(), cfg, logger, time.Now)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if err := a.bootstrap(cmd.Context(), cfg.BootstrapAdminPassword, logger); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "seed complete")
	return nil
}
