package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jwalitptl/patient-records/internal/form"
	"github.com/jwalitptl/patient-records/internal/list"
	"github.com/jwalitptl/patient-records/internal/model"
	"github.com/jwalitptl/patient-records/pkg/errors"
	"github.com/jwalitptl/patient-records/pkg/format"
	"github.com/jwalitptl/patient-records/pkg/validator"
)

func listCmd(a *app) *cobra.Command {
	var (
		search   string
		page     int
		pageSize int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List patients, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.connect(); err != nil {
				return err
			}

			ctrl := list.New(a.svc, pageSize)
			if err := ctrl.Load(cmd.Context()); err != nil {
				return err
			}
			ctrl.SetFilter(search)
			ctrl.SetPage(page - 1)

			view := ctrl.Page()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNOME\tCPF\tCELULAR\tEMAIL\tCADASTRO")
			for _, p := range view.Items {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
					p.ID, p.FullName, p.CPF, p.MobilePhone, p.Email, p.CreatedAt.Format("02/01/2006"))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "page %d/%d, %d patients\n", view.Page+1, max(view.Pages, 1), view.Total)
			return nil
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "filter by name, CPF, email or mobile phone")
	cmd.Flags().IntVar(&page, "page", 1, "page number, starting at 1")
	cmd.Flags().IntVar(&pageSize, "page-size", model.DefaultPageSize, "rows per page")
	return cmd
}

func showCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one patient",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.connect(); err != nil {
				return err
			}

			p, err := a.svc.GetByID(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
}

func createCmd(a *app) *cobra.Command {
	var specialties []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a patient",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl := form.New(a)
			if err := fillForm(cmd, ctrl, specialties); err != nil {
				return err
			}

			p, err := ctrl.Submit(cmd.Context())
			if err != nil {
				return report(cmd.OutOrStdout(), err)
			}
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
	addFieldFlags(cmd)
	cmd.Flags().StringSliceVar(&specialties, "specialty", nil, "specialty, repeatable")
	return cmd
}

func updateCmd(a *app) *cobra.Command {
	var specialties []string
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Update a patient; only the given fields change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.connect(); err != nil {
				return err
			}

			current, err := a.svc.GetByID(cmd.Context(), id)
			if err != nil {
				return err
			}

			ctrl := form.Edit(a.svc, current)
			if err := fillForm(cmd, ctrl, specialties); err != nil {
				return err
			}
			p, err := ctrl.Submit(cmd.Context())
			if err != nil {
				return report(cmd.OutOrStdout(), err)
			}
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
	addFieldFlags(cmd)
	cmd.Flags().StringSliceVar(&specialties, "specialty", nil, "toggle a specialty, repeatable")
	return cmd
}

func deleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a patient",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.connect(); err != nil {
				return err
			}

			if err := a.svc.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "patient %d deleted\n", id)
			return nil
		},
	}
}

func formatCmd() *cobra.Command {
	formatters := map[string]func(string) string{
		"cpf":   format.CPF,
		"cep":   format.CEP,
		"phone": format.Phone,
	}
	return &cobra.Command{
		Use:       "format cpf|cep|phone VALUE",
		Short:     "Print the masked form of a value",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"cpf", "cep", "phone"},
		RunE: func(cmd *cobra.Command, args []string) error {
			fn, ok := formatters[args[0]]
			if !ok {
				return fmt.Errorf("unknown format %q", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), fn(args[1]))
			return nil
		},
	}
}

func validateCmd() *cobra.Command {
	checks := map[string]func(string) bool{
		"cpf":   validator.CPF,
		"email": validator.Email,
	}
	return &cobra.Command{
		Use:   "validate cpf|email VALUE",
		Short: "Check a CPF or email; exits non-zero when invalid",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			check, ok := checks[args[0]]
			if !ok {
				return fmt.Errorf("unknown check %q", args[0])
			}
			if !check(args[1]) {
				return fmt.Errorf("invalid %s: %s", args[0], args[1])
			}
			fmt.Fprintln(cmd.OutOrStdout(), "valid")
			return nil
		},
	}
}

// flagName maps a store column to its flag, e.g. nome_completo to
// nome-completo.
func flagName(column string) string {
	return strings.ReplaceAll(column, "_", "-")
}

func fieldColumns() []string {
	return append(model.TextColumns(), model.ColumnSex)
}

func addFieldFlags(cmd *cobra.Command) {
	for _, col := range fieldColumns() {
		cmd.Flags().String(flagName(col), "", col)
	}
}

// fillForm feeds every flag the user set through the form controller, so
// masks apply exactly as they do on keystrokes.
func fillForm(cmd *cobra.Command, ctrl *form.Controller, specialties []string) error {
	for _, col := range fieldColumns() {
		name := flagName(col)
		if !cmd.Flags().Changed(name) {
			continue
		}
		value, err := cmd.Flags().GetString(name)
		if err != nil {
			return err
		}
		ctrl.Set(col, value)
	}
	for _, s := range specialties {
		ctrl.ToggleSpecialty(s)
	}
	return nil
}

// report prints per-field validation messages and passes err through.
func report(w io.Writer, err error) error {
	fields := errors.FieldsOf(err)
	for _, col := range append(fieldColumns(), model.ColumnSpecialties) {
		if msg, ok := fields[col]; ok {
			fmt.Fprintf(w, "--%s: %s\n", flagName(col), msg)
		}
	}
	return err
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid patient ID %q", s)
	}
	return id, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
