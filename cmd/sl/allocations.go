package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"staffline/internal/domain"
	"staffline/internal/editor"
)

func allocationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "allocations",
		Short: "Inspect and edit project allocations",
	}
	cmd.AddCommand(allocationsListCmd())
	cmd.AddCommand(allocationsEditCmd())
	return cmd
}

func allocationsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <project-id>",
		Short: "List the allocations of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				items, err := rt.Client.ProjectAllocations(ctx, projectID)
				if err != nil {
					return err
				}
				return printAllocations(items)
			})
		},
	}
}

func printAllocations(items []domain.Allocation) error {
	if viper.GetBool("json") {
		return printJSON(items)
	}
	tw := newTable("ID", "Employee", "Name", "Role", "Allocated On", "Deadline", "Status")
	for _, a := range items {
		name := "-"
		if a.Employee != nil {
			name = a.Employee.Name
		}
		tw.AppendRow(table.Row{a.ID, a.EmployeeID, name, refName(a.Role), a.AllocatedOn, a.Deadline, refName(a.Status)})
	}
	tw.Render()
	return nil
}

func allocationsEditCmd() *cobra.Command {
	var (
		add       []int64
		remove    []int64
		roles     map[string]string
		deadlines map[string]string
		dryRun    bool
	)
	cmd := &cobra.Command{
		Use:   "edit <project-id>",
		Short: "Stage allocation changes for a project and save them as one batch",
		Long: `Stages removals (--remove, by allocation id) and additions (--add, by
employee id), then saves: every removal first, then every addition, in the
order given. The first failing request stops the batch; earlier requests
stay applied.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				project, err := rt.Client.Project(ctx, projectID)
				if err != nil {
					return err
				}
				session, err := editor.Open(ctx, rt.Client, project, editor.Options{Notifier: rt.Notifier, Log: rt.Log})
				if err != nil {
					return err
				}
				defer session.Close()

				for _, id := range remove {
					if !session.StageRemoval(id) {
						return fmt.Errorf("allocation %d is not part of project %d", id, projectID)
					}
				}
				for _, id := range add {
					e, ok := findEmployee(session.Directory(), id)
					if !ok {
						return fmt.Errorf("employee %d not found", id)
					}
					if err := session.StageCreate(e); err != nil {
						return err
					}
				}
				for key, role := range roles {
					id, err := parseID(key)
					if err != nil {
						return err
					}
					if !session.SetStagedRole(id, role) {
						return fmt.Errorf("employee %d is not staged", id)
					}
				}
				for key, date := range deadlines {
					id, err := parseID(key)
					if err != nil {
						return err
					}
					if !session.SetStagedDeadline(id, date) {
						return fmt.Errorf("employee %d is not staged", id)
					}
				}

				printPlan(session)
				if dryRun {
					return nil
				}
				res, err := session.Save(ctx)
				if res.Allocations != nil {
					if perr := printAllocations(res.Allocations); perr != nil {
						return perr
					}
				}
				return err
			})
		},
	}
	cmd.Flags().Int64SliceVar(&add, "add", nil, "employee ids to allocate")
	cmd.Flags().Int64SliceVar(&remove, "remove", nil, "allocation ids to remove")
	cmd.Flags().StringToStringVar(&roles, "role", nil, "role for a staged employee (employee-id=Role)")
	cmd.Flags().StringToStringVar(&deadlines, "deadline", nil, "deadline for a staged employee (employee-id=YYYY-MM-DD)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the staged plan without saving")
	return cmd
}

func findEmployee(dir []domain.Employee, id int64) (domain.Employee, bool) {
	for _, e := range dir {
		if e.ID == id {
			return e, true
		}
	}
	return domain.Employee{}, false
}

func printPlan(s *editor.Session) {
	p := s.Project()
	fmt.Fprintf(os.Stderr, "Project %s (%s): team %d/%d\n", p.Name, p.Code, s.TeamCount(), p.MaxTeamSize)
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stderr)
	tw.AppendHeader(table.Row{"Change", "Target", "Role", "Deadline", "Allocated On"})
	for _, id := range s.Removals() {
		tw.AppendRow(table.Row{"remove", fmt.Sprintf("allocation %d", id), "", "", ""})
	}
	for _, st := range s.Staged() {
		tw.AppendRow(table.Row{"add", fmt.Sprintf("%s (%d)", st.Employee.Name, st.Employee.ID),
			s.Metadata().Roles.Label(st.Role), st.Deadline, st.AllocatedOn})
	}
	tw.Render()
}
