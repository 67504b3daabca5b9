// Command schoolctl runs administrative tasks against the booking database.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gorm.io/gorm"

	"schoolbooking/internal/config"
	"schoolbooking/internal/database"
	"schoolbooking/internal/domain"
	"schoolbooking/internal/modules/reservations"
	"schoolbooking/internal/pkg/logger"
	"schoolbooking/internal/server"
)

var readPasswordFunc = func() ([]byte, error) { return term.ReadPassword(int(syscall.Stdin)) }

var errEmptyPassword = errors.New("password must not be empty")

type cli struct {
	configPath  string
	databaseURL string
	out         io.Writer

	cfg *config.Config
	log zerolog.Logger
	db  *gorm.DB
}

func main() {
	_ = godotenv.Load()
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out}
	root := &cobra.Command{
		Use:           "schoolctl",
		Short:         "School resource booking administration",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return c.close()
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $CONFIG_PATH or configs/config.yaml)")
	root.PersistentFlags().StringVar(&c.databaseURL, "database-url", "", "overrides database.url")

	root.AddCommand(
		c.migrateCmd(),
		c.createAdminCmd(),
		c.resetPasswordCmd(),
		c.exportCmd(),
	)
	return root
}

func (c *cli) open() (*server.App, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	if c.databaseURL != "" {
		cfg.Database.URL = c.databaseURL
	}
	c.cfg = cfg
	c.log = logger.New(cfg.Log.Level, "console").With().Str("component", "schoolctl").Logger()

	db, err := database.Connect(cfg.Database.URL, c.log)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	c.db = db
	if err := database.Migrate(db, c.log); err != nil {
		return nil, err
	}
	return server.New(server.Options{Config: cfg, DB: db, Logger: c.log}), nil
}

func (c *cli) close() error {
	if c.db == nil {
		return nil
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := c.open()
			if err != nil {
				return err
			}
			app.Hub.Close()
			fmt.Fprintln(c.out, "schema is up to date")
			return nil
		},
	}
}

func (c *cli) createAdminCmd() *cobra.Command {
	var name, email string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account. The password is prompted for.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pwd, err := promptPassword(c.out, "Password: ")
			if err != nil {
				return err
			}
			if len(pwd) == 0 {
				return errEmptyPassword
			}
			app, err := c.open()
			if err != nil {
				return err
			}
			defer app.Hub.Close()

			u, err := app.Users.CreateAdmin(cmd.Context(), name, email, pwd)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "admin %s created with id %d\n", u.Email, u.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "Administrator", "display name")
	cmd.Flags().StringVar(&email, "email", "", "login email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (c *cli) resetPasswordCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a user's password. Leave the prompt empty to generate one.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pwd, err := promptPassword(c.out, "New password (empty to generate): ")
			if err != nil {
				return err
			}
			app, err := c.open()
			if err != nil {
				return err
			}
			defer app.Hub.Close()

			res, err := app.Users.ResetPasswordOffline(cmd.Context(), email, pwd)
			if err != nil {
				return err
			}
			if res.TemporaryPassword != "" {
				fmt.Fprintf(c.out, "temporary password for %s: %s\n", res.Email, res.TemporaryPassword)
				return nil
			}
			fmt.Fprintf(c.out, "password updated for %s\n", res.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (c *cli) exportCmd() *cobra.Command {
	var (
		path string
		q    reservations.ListQuery
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write reservations to an xlsx workbook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := c.open()
			if err != nil {
				return err
			}
			defer app.Hub.Close()

			f, err := os.Create(path)
			if err != nil {
				return err
			}
			n, err := app.Reservations.Export(cmd.Context(), systemActor(), q, f)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				_ = os.Remove(path)
				return err
			}
			fmt.Fprintf(c.out, "%d reservations written to %s\n", n, path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "out", "o", "reservations.xlsx", "output file")
	cmd.Flags().StringVar(&q.Status, "status", "all", "comma separated statuses, or all")
	cmd.Flags().StringVar(&q.From, "from", "", "first date, YYYY-MM-DD")
	cmd.Flags().StringVar(&q.To, "to", "", "last date, YYYY-MM-DD")
	cmd.Flags().Int64Var(&q.ResourceID, "resource", 0, "only this resource id")
	cmd.Flags().Int64Var(&q.UserID, "user", 0, "only this user id")
	return cmd
}

// systemActor is the identity offline commands act as.
func systemActor() domain.Actor {
	return domain.Actor{Role: domain.RoleAdmin}
}

func promptPassword(out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	pwd, err := readPasswordFunc()
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(string(pwd)), nil
}
