package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage learner accounts",
	}
	addStoreFlag(cmd)

	create := &cobra.Command{
		Use:   "create",
		Short: "Register a learner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			u, err := a.Service.Signup(cmd.Context(), name, email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", u.Email)
			return nil
		},
	}
	create.Flags().String("name", "", "Display name")
	create.Flags().String("email", "", "Email address")
	create.Flags().String("password", "", "Initial password")
	for _, f := range []string{"name", "email", "password"} {
		_ = create.MarkFlagRequired(f)
	}

	show := &cobra.Command{
		Use:   "show EMAIL",
		Short: "Print a learner's progress summary as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			sum, err := a.Service.Progress(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(sum)
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List registered learners",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			users, err := a.Users.All(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "EMAIL\tNAME\tCOURSES")
			for _, u := range users {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", u.Email, u.Name, len(u.CoursesEnrolled))
			}
			return tw.Flush()
		},
	}

	cmd.AddCommand(create, show, list)
	return cmd
}
