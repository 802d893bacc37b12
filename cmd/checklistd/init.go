package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const defaultConfigYAML = `# checklistd configuration
# Priority: CLI flag > environment (CHECKLIST_*) > this file > default.

http_port: 8080
data_dir: "data"
storage_driver: "jsonfile"   # jsonfile | sqlite
# sqlite_dsn: "file:data/checklists.db"

# Required. Signs the session tokens; keep it secret.
token_secret: ""
token_ttl: "24h"

timezone: "America/Sao_Paulo"
# public_url: "https://checklists.example.com"   # printed in QR codes

# upload_dir: "data/uploads/checklist-photos"
photo_max_width: 1600

digest_schedule: "@hourly"   # cron expression or descriptor

log_level: "info"            # debug | info | warn | error
# log_file: "logs/checklistd.log"

# Creates the "admin" account on first start when no user exists.
# bootstrap_admin_password: ""
`

func newInitCmd(name, defaultYAML string) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Long: fmt.Sprintf(`Write the default configuration of %s.

If --config is given the file is written to that path.
Otherwise it is written to ./%s.yaml.
Fails if the file already exists unless --force is passed.`, name, name),
		RunE: func(cmd *cobra.Command, _ []string) error {
			dest := cfgFile
			if dest == "" {
				dest = name + ".yaml"
			}

			if dir := filepath.Dir(dest); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("mkdir: %w", err)
				}
			}

			if !force {
				if _, err := os.Stat(dest); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", dest)
				} else if !errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("stat %s: %w", dest, err)
				}
			}

			if err := os.WriteFile(dest, []byte(defaultYAML), 0o600); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config written to %s\n", dest)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing config file")
	return cmd
}
