package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/facility-checklists/internal/application"
)

var agendaUserID string

var agendaCmd = &cobra.Command{
	Use:   "agenda",
	Short: "Print the pending checklists of a technician",
	Long: `Evaluate the agenda of one technician against the stored checklists and
executions, exactly as the /agenda endpoint does, and print it.`,
	RunE: runAgenda,
}

func init() {
	agendaCmd.Flags().StringVar(&agendaUserID, "user", "", "technician id (required)")
	_ = agendaCmd.MarkFlagRequired("user")
}

func runAgenda(cmd *cobra.Command, _ []string) error {
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

	agenda, err := a.agenda.EvaluateForTechnician(cmd.Context(), application.Principal{UserID: serviceName, IsAdmin: true}, agendaUserID)
	if err != nil {
		return err
	}
	return printAgenda(cmd.OutOrStdout(), agenda, cfg.Location)
}

func printAgenda(w io.Writer, agenda application.Agenda, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Técnico:\t%s\n", agenda.UserID)
	fmt.Fprintf(tw, "Avaliado em:\t%s\n", agenda.EvaluatedAt.In(loc).Format("02/01/2006 15:04"))
	fmt.Fprintf(tw, "Pendentes:\t%d (hoje: %d)\n", len(agenda.Pending), len(agenda.PendingToday))
	fmt.Fprintf(tw, "Progresso diário:\t%d/%d (%d%%)\n",
		agenda.DailyProgress.CompletedDailyChecklistsToday,
		agenda.DailyProgress.TotalDailyChecklists,
		agenda.DailyProgress.CompletionPercent(),
	)
	fmt.Fprintf(tw, "Geral:\t%d/%d (%d%%)\n",
		agenda.OverallStats.TotalCompletedOverall,
		agenda.OverallStats.TotalScheduledOverall,
		agenda.OverallStats.CompletionPercent(),
	)

	if len(agenda.Pending) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "ID\tCHECKLIST\tPERIODICIDADE\tMOTIVO\tÚLTIMA EXECUÇÃO")
		for _, entry := range agenda.Pending {
			last := "-"
			if entry.Status.LastCompletedAt != nil {
				last = entry.Status.LastCompletedAt.In(loc).Format("02/01/2006 15:04")
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				entry.Checklist.ID,
				entry.Checklist.Title,
				entry.Checklist.Periodicity,
				entry.Status.Reason,
				last,
			)
		}
	}
	return tw.Flush()
}
