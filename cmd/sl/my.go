package main

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"staffline/internal/domain"
	"staffline/internal/lifecycle"
)

func myCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "my",
		Short: "Work with your own allocations",
	}
	cmd.AddCommand(myAllocationsCmd())
	cmd.AddCommand(myStatusCmd())
	cmd.AddCommand(myHistoryCmd())
	return cmd
}

func newTracker(rt *runtime) *lifecycle.Tracker {
	return lifecycle.NewTracker(rt.Client, lifecycle.Options{
		Notifier:          rt.Notifier,
		Log:               rt.Log,
		RollbackOnFailure: rt.Config.Status.Rollback(),
	})
}

func myAllocationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "allocations",
		Short: "List your allocations and the allowed statuses",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				tr := newTracker(rt)
				if err := tr.Load(ctx); err != nil {
					rt.Log.WithError(err).Debug("partial load")
				}
				return printMyAllocations(tr.Allocations(), tr.Statuses())
			})
		},
	}
}

func printMyAllocations(items []domain.Allocation, statuses domain.Vocabulary) error {
	if viper.GetBool("json") {
		return printJSON(items)
	}
	tw := newTable("ID", "Project", "Role", "Allocated On", "Deadline", "Status")
	for _, a := range items {
		project := fmt.Sprintf("#%d", a.ProjectID)
		if a.Project != nil {
			project = fmt.Sprintf("%s (%s)", a.Project.Name, a.Project.Code)
		}
		tw.AppendRow(table.Row{a.ID, project, refName(a.Role), a.AllocatedOn, a.Deadline, statuses.Label(a.Status)})
	}
	tw.AppendFooter(table.Row{"", "", "", "", "Statuses", fmt.Sprint([]string(statuses))})
	tw.Render()
	return nil
}

func myStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <allocation-id> <status>",
		Short: "Change the status of one of your allocations",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				tr := newTracker(rt)
				if err := tr.Load(ctx); err != nil {
					return err
				}
				if !tr.Statuses().Contains(args[1]) {
					rt.Log.WithField("status", args[1]).Warn("status is not in the fetched vocabulary")
				}
				a, err := tr.ChangeStatus(ctx, id, args[1])
				if err != nil {
					return err
				}
				return printMyAllocations([]domain.Allocation{a}, tr.Statuses())
			})
		},
	}
}

func myHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <allocation-id>",
		Short: "Show the status history of one of your allocations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				tr := newTracker(rt)
				entries, err := tr.LoadHistory(ctx, id)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(entries)
				}
				tw := newTable("From", "To", "Changed At", "Time Spent")
				for e := range tr.History(ctx, id) {
					tw.AppendRow(table.Row{refName(e.FromStatus), refName(e.ToStatus),
						changedAt(e), lifecycle.DurationLabel(e.DurationSpent)})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func changedAt(e domain.StatusHistoryEntry) string {
	if e.ChangedAt.IsZero() {
		return "-"
	}
	return e.ChangedAt.Local().Format("2006-01-02 15:04:05")
}
