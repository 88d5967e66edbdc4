package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nssnepal/membership/internal/config"
	"github.com/nssnepal/membership/internal/db"
	"github.com/nssnepal/membership/internal/services"
)

var readPasswordFunc = term.ReadPassword // mockable

var (
	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := db.Init(config.Conf.GetString("dbPath")); err != nil {
				return errors.Wrap(err, "migrate")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}

	createSuperuserCmd = &cobra.Command{
		Use:   "createsuperuser",
		Short: "Create an approved superuser account; the password is prompted",
		RunE:  runCreateSuperuser,
	}

	resyncCmd = &cobra.Command{
		Use:   "resync",
		Short: "Recompute every member's last payment and valid-until dates from their payments",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := db.Init(config.Conf.GetString("dbPath")); err != nil {
				return errors.Wrap(err, "db init")
			}
			n, err := services.RederiveAll(db.Conn().WithContext(cmd.Context()))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d member(s) re-synced\n", n)
			return nil
		},
	}

	importCmd = &cobra.Command{
		Use:   "import FILE",
		Short: "Bulk-import members from a .csv, .xlsx or .xls file",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}
)

func init() {
	createSuperuserCmd.Flags().String("username", "", "login name (required)")
	createSuperuserCmd.Flags().String("email", "", "email address")
	createSuperuserCmd.Flags().String("password", "", "password; prompted when empty")
	_ = createSuperuserCmd.MarkFlagRequired("username")
}

func runCreateSuperuser(cmd *cobra.Command, _ []string) error {
	username, _ := cmd.Flags().GetString("username")
	email, _ := cmd.Flags().GetString("email")
	pwd, _ := cmd.Flags().GetString("password")

	if pwd == "" {
		var err error
		if pwd, err = promptPassword(cmd, "Password: "); err != nil {
			return err
		}
		again, err := promptPassword(cmd, "Password (again): ")
		if err != nil {
			return err
		}
		if pwd != again {
			return errors.New("passwords do not match")
		}
	}

	if err := db.Init(config.Conf.GetString("dbPath")); err != nil {
		return errors.Wrap(err, "db init")
	}
	u, err := services.CreateSuperuser(db.Conn().WithContext(cmd.Context()), username, email, pwd)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "superuser %q created (id %d)\n", u.Username, u.ID)
	return nil
}

func promptPassword(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	b, err := readPasswordFunc(int(os.Stdin.Fd()))
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return "", errors.Wrap(err, "read password")
	}
	return string(b), nil
}

func runImport(cmd *cobra.Command, args []string) error {
	path := args[0]
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := db.Init(config.Conf.GetString("dbPath")); err != nil {
		return errors.Wrap(err, "db init")
	}
	res, err := services.ImportMembers(db.Conn().WithContext(cmd.Context()), filepath.Base(path), f)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "imported %d, skipped %d, failed %d\n", res.SuccessCount, res.SkippedCount, res.ErrorCount)
	if len(res.Warnings) > 0 {
		fmt.Fprintln(out, "warnings:\n  "+strings.Join(res.Warnings, "\n  "))
	}
	if len(res.Errors) > 0 {
		fmt.Fprintln(out, "errors:\n  "+strings.Join(res.Errors, "\n  "))
	}
	return nil
}
