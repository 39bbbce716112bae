package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"staffline/internal/domain"
	"staffline/internal/filter"
	"staffline/internal/notify"
	"staffline/internal/ranking"
)

func employeesCmd() *cobra.Command {
	var c filter.Criteria
	cmd := &cobra.Command{
		Use:   "employees",
		Short: "List the scored employee directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				dir, err := ranking.New(rt.Client, rt.Log).LoadDirectoryWithScores(ctx)
				if err != nil {
					rt.Notifier.Notify(notify.LevelWarning, notify.Summarize("Loading employees", err))
				}
				var skills filter.SkillSet
				for _, s := range c.Skills {
					skills.Add(s)
				}
				c.Skills = skills.Tags()
				return printEmployees(filter.Apply(dir, c))
			})
		},
	}
	cmd.Flags().StringVarP(&c.Query, "query", "q", "", "match name, email or employee code")
	cmd.Flags().Int64Var(&c.ShiftID, "shift", 0, "shift id")
	cmd.Flags().Int64Var(&c.DepartmentID, "department", 0, "department id")
	cmd.Flags().Int64Var(&c.DesignationID, "designation", 0, "designation id")
	cmd.Flags().StringSliceVar(&c.Skills, "skill", nil, "required skill tag (repeatable)")
	return cmd
}

func printEmployees(items []domain.Employee) error {
	if viper.GetBool("json") {
		return printJSON(items)
	}
	tw := newTable("ID", "Code", "Name", "Score", "Experience", "Department", "Designation", "Shift", "Skills")
	for _, e := range items {
		tw.AppendRow(table.Row{e.ID, e.EmployeeCode, e.Name, fmt.Sprintf("%.2f", e.Score), e.Experience,
			refLabel(e.Department), refLabel(e.Designation), refLabel(e.Shift), strings.Join(e.Skills, ", ")})
	}
	tw.Render()
	return nil
}

func refLabel(r *domain.Ref) string {
	if r == nil {
		return "-"
	}
	return refName(r.Name)
}

func projectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				items, err := rt.Client.Projects(ctx)
				if err != nil {
					return err
				}
				md, err := rt.Client.ProjectsMetadata(ctx)
				if err != nil {
					rt.Log.WithError(err).Warn("fetch projects metadata failed")
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("ID", "Code", "Name", "Start", "End", "Team Size", "Status", "Priority", "Required Skills")
				for _, p := range items {
					tw.AppendRow(table.Row{p.ID, p.Code, p.Name, p.StartDate, p.EndDate, p.MaxTeamSize,
						md.Statuses.Label(p.Status), md.Priorities.Label(p.Priority), strings.Join(p.RequiredSkills, ", ")})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func suggestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <project-id>",
		Short: "Show the server-ranked shortlist for a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				r := ranking.New(rt.Client, rt.Log)
				dir, err := r.LoadDirectoryWithScores(ctx)
				if err != nil {
					rt.Notifier.Notify(notify.LevelWarning, notify.Summarize("Loading employees", err))
				}
				suggested, err := r.LoadSuggestions(ctx, projectID, dir)
				if err != nil {
					rt.Notifier.Notify(notify.LevelWarning, notify.Summarize("Loading suggested employees", err))
				}
				return printEmployees(suggested)
			})
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
