package main

import (
	"fmt"
	"os"
	"time"

	"memberhub/internal/service"

	"github.com/spf13/cobra"
)

var (
	exportOut  string
	exportTier string
	exportQ    string
)

var exportCmd = &cobra.Command{
	Use:   "export-members",
	Short: "Write the member directory to an .xlsx file",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.close()

		svc := service.New(service.Deps{Repos: a.repos, KV: a.kv, SessionTTL: time.Hour, Logger: a.logger})
		data, err := svc.Admin.ExportMembers(cmd.Context(), service.ListMembersRequest{Query: exportQ, Tier: exportTier})
		if err != nil {
			return err
		}
		if exportOut == "" {
			exportOut = fmt.Sprintf("members-%s.xlsx", time.Now().Format("20060102"))
		}
		if err := os.WriteFile(exportOut, data, 0o644); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", exportOut, len(data))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default members-YYYYMMDD.xlsx)")
	exportCmd.Flags().StringVar(&exportTier, "tier", "", "Only export members of this tier")
	exportCmd.Flags().StringVarP(&exportQ, "query", "q", "", "Only export members matching this name or email")
}
