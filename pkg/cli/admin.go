package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/usercenter/pkg/accounts"
	"github.com/platinummonkey/usercenter/pkg/auth"
	"github.com/platinummonkey/usercenter/pkg/storage"
)

func (c *CLI) newMigrateCommand() *Command {
	fs, configPath := c.newFlagSet("migrate")
	return &Command{
		Name:        "migrate",
		Description: "Create the accounts schema if it does not exist",
		Flags:       fs,
		Run: func(ctx context.Context, args []string) error {
			if err := fs.Parse(args); err != nil {
				return err
			}
			s, err := c.open(ctx, *configPath)
			if err != nil {
				return err
			}
			defer s.Close()

			c.logger.Info("schema is up to date")
			fmt.Fprintln(c.out, "schema is up to date")
			return nil
		},
	}
}

func (c *CLI) newCreateAdminCommand() *Command {
	fs, configPath := c.newFlagSet("create-admin")
	account := fs.String("account", "", "Login account of the administrator")
	name := fs.String("name", "", "Display name")

	return &Command{
		Name:        "create-admin",
		Description: "Create an administrator with the default password",
		Flags:       fs,
		Run: func(ctx context.Context, args []string) error {
			if err := fs.Parse(args); err != nil {
				return err
			}
			if utf8.RuneCountInString(*account) < auth.MinAccountLength {
				return fmt.Errorf("-account must be at least 6 characters")
			}

			s, err := c.open(ctx, *configPath)
			if err != nil {
				return err
			}
			defer s.Close()

			id, err := s.service.AdminCreate(ctx, accounts.CreateRequest{
				UserAccount: *account,
				UserName:    *name,
				UserRole:    auth.RoleAdmin,
			})
			if err != nil {
				return describe(err)
			}

			c.logger.WithFields(logrus.Fields{"id": id, "account": *account}).Info("administrator created")
			fmt.Fprintf(c.out, "created administrator %s with id %d; change the default password %s\n", *account, id, auth.DefaultPassword)
			return nil
		},
	}
}

func (c *CLI) newSetRoleCommand() *Command {
	fs, configPath := c.newFlagSet("set-role")
	id := fs.Int64("id", 0, "Account id")
	role := fs.String("role", "", "New role: user, admin or ban")

	return &Command{
		Name:        "set-role",
		Description: "Change the role of an account",
		Flags:       fs,
		Run: func(ctx context.Context, args []string) error {
			if err := fs.Parse(args); err != nil {
				return err
			}
			r := auth.Role(*role)
			if !r.Valid() {
				return fmt.Errorf("-role must be one of user, admin, ban")
			}

			s, err := c.open(ctx, *configPath)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.service.AdminUpdate(ctx, accounts.UpdateRequest{ID: *id, UserRole: &r}); err != nil {
				return describe(err)
			}

			c.logger.WithFields(logrus.Fields{"id": *id, "role": r}).Info("role updated")
			fmt.Fprintf(c.out, "account %d is now %s\n", *id, r)
			return nil
		},
	}
}

func (c *CLI) newListCommand() *Command {
	fs, configPath := c.newFlagSet("list")
	page := fs.Int64("page", 1, "Page number")
	size := fs.Int64("size", 20, "Page size")
	role := fs.String("role", "", "Only list accounts with this role")

	return &Command{
		Name:        "list",
		Description: "List accounts",
		Flags:       fs,
		Run: func(ctx context.Context, args []string) error {
			if err := fs.Parse(args); err != nil {
				return err
			}

			s, err := c.open(ctx, *configPath)
			if err != nil {
				return err
			}
			defer s.Close()

			result, err := s.service.AdminListPage(ctx, accounts.QueryRequest{
				UserRole:  auth.Role(*role),
				Current:   *page,
				PageSize:  *size,
				SortField: "id",
				SortOrder: storage.SortOrderAscend,
			})
			if err != nil {
				return describe(err)
			}

			w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tACCOUNT\tNAME\tROLE\tCREATED")
			for _, a := range result.Records {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", a.ID, a.UserAccount, a.UserName, a.UserRole, a.CreateTime.Format(time.RFC3339))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "page %d of %d, %d accounts\n", result.Current, result.Pages, result.Total)
			return nil
		},
	}
}

// describe turns service errors into a one-line message
func describe(err error) error {
	var accountErr *auth.Error
	if errors.As(err, &accountErr) {
		return fmt.Errorf("%s: %s", accountErr.Kind, accountErr.Message)
	}
	return err
}
