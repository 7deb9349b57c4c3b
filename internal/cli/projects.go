package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	sessionerrors "github.com/jrsteele09/go-session-client/internal/errors"
	"github.com/jrsteele09/go-session-client/projects"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newProjectsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"project"},
		Short:   "List and select projects",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Cobra only runs the nearest persistent hook.
			if err := cmd.Root().PersistentPreRunE(cmd, args); err != nil {
				return err
			}
			return waitForProjects(appFrom(cmd))
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List projects, marking the selected one",
		RunE: func(cmd *cobra.Command, args []string) error {
			printProjects(cmd.OutOrStdout(), appFrom(cmd).projects)
			return nil
		},
	}

	selectCmd := &cobra.Command{
		Use:   "select <id>",
		Short: "Select and remember a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			if err := a.projects.Select(args[0]); err != nil {
				return userError(err)
			}
			p, _ := a.projects.Selected()
			fmt.Fprintf(cmd.OutOrStdout(), "Selected %s (%s)\n", p.Name, p.ID)
			return nil
		},
	}

	var in projects.Input
	var tags string
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			in.Name = args[0]
			in.Tags = splitTags(tags)
			p, err := a.projects.Create(cmd.Context(), in)
			if err != nil {
				return userError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\n", p.Name, p.ID)
			return nil
		},
	}
	create.Flags().StringVar(&in.Description, "description", "", "project description")
	create.Flags().StringVar(&tags, "tags", "", "comma separated tags")
	create.Flags().BoolVar(&in.IsDefault, "default", false, "make this the default project")

	var update projects.Input
	var updateTags string
	updateCmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			current, err := findProject(a.projects, args[0])
			if err != nil {
				return err
			}
			in := projects.Input{Name: current.Name, Description: current.Description, Tags: current.Tags, IsDefault: current.IsDefault}
			if cmd.Flags().Changed("name") {
				in.Name = update.Name
			}
			if cmd.Flags().Changed("description") {
				in.Description = update.Description
			}
			if cmd.Flags().Changed("tags") {
				in.Tags = splitTags(updateTags)
			}
			if cmd.Flags().Changed("default") {
				in.IsDefault = update.IsDefault
			}
			p, err := a.projects.Update(cmd.Context(), args[0], in)
			if err != nil {
				return userError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s (%s)\n", p.Name, p.ID)
			return nil
		},
	}
	updateCmd.Flags().StringVar(&update.Name, "name", "", "new name")
	updateCmd.Flags().StringVar(&update.Description, "description", "", "new description")
	updateCmd.Flags().StringVar(&updateTags, "tags", "", "comma separated tags")
	updateCmd.Flags().BoolVar(&update.IsDefault, "default", false, "make this the default project")

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			if err := a.projects.Delete(cmd.Context(), args[0]); err != nil {
				return userError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, selectCmd, create, updateCmd, deleteCmd)
	return cmd
}

// waitForProjects blocks until the load started by bootstrap settles.
func waitForProjects(a *app) error {
	if !a.auth.Current().Ready() {
		return errors.New("not signed in")
	}
	a.projects.Wait()
	if a.projects.State() != projects.Ready {
		if err := a.projects.Err(); err != nil {
			return userError(err)
		}
		return sessionerrors.ErrNotReady
	}
	return nil
}

func findProject(c *projects.Coordinator, id string) (projects.Project, error) {
	for _, p := range c.Projects() {
		if p.ID == id {
			return p, nil
		}
	}
	return projects.Project{}, errors.Wrapf(sessionerrors.ErrProjectNotFound, "%s", id)
}

func printProjects(w io.Writer, c *projects.Coordinator) {
	list := c.Projects()
	if len(list) == 0 {
		fmt.Fprintln(w, "No projects")
		return
	}
	selected, _ := c.Selected()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tNAME\tDEFAULT\tTAGS")
	for _, p := range list {
		mark := ""
		if p.ID == selected.ID {
			mark = "*"
		}
		def := ""
		if p.IsDefault {
			def = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", mark, p.ID, p.Name, def, strings.Join(p.Tags, ","))
	}
	_ = tw.Flush()
}

func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
