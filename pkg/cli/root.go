package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/usercenter/pkg/accounts"
	"github.com/platinummonkey/usercenter/pkg/config"
	"github.com/platinummonkey/usercenter/pkg/observability"
	"github.com/platinummonkey/usercenter/pkg/storage/backend"
)

// Command represents a CLI command
type Command struct {
	Name        string
	Description string
	Run         func(ctx context.Context, args []string) error
	Subcommands map[string]*Command
	Flags       *flag.FlagSet
}

// CLI is the usercenter-admin command line
type CLI struct {
	root   *Command
	out    io.Writer
	logger *logrus.Logger
}

// New creates the admin CLI writing results to out
func New(out io.Writer, logger *logrus.Logger) *CLI {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	c := &CLI{out: out, logger: logger}
	c.root = &Command{
		Name:        "usercenter-admin",
		Description: "User center administration",
		Subcommands: map[string]*Command{},
	}
	for _, cmd := range []*Command{
		c.newMigrateCommand(),
		c.newCreateAdminCommand(),
		c.newSetRoleCommand(),
		c.newListCommand(),
	} {
		c.root.Subcommands[cmd.Name] = cmd
	}
	return c
}

// Root returns the root command
func (c *CLI) Root() *Command {
	return c.root
}

// Execute runs the subcommand named by args[0]
func (c *CLI) Execute(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" {
		c.usage()
		return nil
	}

	cmd, ok := c.root.Subcommands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command: %s", args[0])
	}
	return cmd.Run(ctx, args[1:])
}

func (c *CLI) usage() {
	fmt.Fprintf(c.out, "Usage: %s <command> [flags]\n\n", c.root.Name)
	fmt.Fprintf(c.out, "Commands:\n")

	names := make([]string, 0, len(c.root.Subcommands))
	for name := range c.root.Subcommands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(c.out, "  %-15s %s\n", name, c.root.Subcommands[name].Description)
	}
}

// newFlagSet creates a flag set with the shared -config flag
func (c *CLI) newFlagSet(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.out)
	path := fs.String("config", "", "YAML configuration file (defaults to $"+config.EnvConfigFile+")")
	return fs, path
}

// session is an open backend and the account service over it
type session struct {
	backend *backend.Backend
	service *accounts.Service
}

func (c *CLI) open(ctx context.Context, configPath string) (*session, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		return nil, err
	}

	c.logger.WithField("storage", cfg.Storage.Type).Debug("opening account storage")
	b, err := backend.Open(ctx, cfg.Storage, observability.NewNopLogger())
	if err != nil {
		return nil, err
	}

	service := accounts.NewService(b.Store, nil, accounts.Config{
		Salt:              cfg.Accounts.Salt,
		MaxPublicPageSize: cfg.Accounts.MaxPublicPageSize,
	}, observability.NewNopLogger(), nil)
	return &session{backend: b, service: service}, nil
}

func (s *session) Close() error {
	return s.backend.Close()
}
