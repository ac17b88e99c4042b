package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"cif-onboarding/internal/common/backend"
	"cif-onboarding/internal/common/config"
	"cif-onboarding/internal/common/logger"
	"cif-onboarding/internal/completion"
)

const commandTimeout = 60 * time.Second

// cli carries the state shared by every subcommand.
type cli struct {
	configPath string
	output     string
	apiURL     string
	timeout    time.Duration

	out   io.Writer
	cfg   *config.Config
	api   *backend.Client
	calc  *completion.Calculator
	redis *redis.Client
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out}

	root := &cobra.Command{
		Use:   "cifctl",
		Short: "Operate the CIF onboarding backend from a terminal",
		Long: `cifctl talks to the onboarding REST API with the same client the
workers use. Credentials come from backend.email and backend.password
(or CIF_BACKEND_EMAIL / CIF_BACKEND_PASSWORD).

When database.redis.address is set the session is shared with the workers
through Redis, otherwise it lives for the duration of one command.`,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c.redis != nil {
				return c.redis.Close()
			}
			return nil
		},
	}
	root.SetOut(out)

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file (default: configs/config.yaml)")
	root.PersistentFlags().StringVarP(&c.output, "output", "o", "yaml", "output format: yaml or json")
	root.PersistentFlags().StringVar(&c.apiURL, "api-url", "", "override backend.base_url")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 0, "override backend.timeout for each request")

	root.AddCommand(
		c.loginCmd(),
		c.logoutCmd(),
		c.meCmd(),
		c.clientsCmd(),
		c.completionCmd(),
		c.flattenCmd(),
		c.documentsCmd(),
		c.statsCmd(),
		c.registryCmd(),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	if c.output != "yaml" && c.output != "json" {
		return fmt.Errorf("unsupported output format %q", c.output)
	}

	var err error
	if c.configPath != "" {
		c.cfg, err = config.LoadClientFile(c.configPath)
	} else {
		c.cfg, err = config.LoadClientConfig()
	}
	if err != nil {
		return err
	}
	if c.apiURL != "" {
		c.cfg.Backend.BaseURL = c.apiURL
	}

	log := logger.NewStructured(c.cfg.Logging.Level, "console", "stderr")

	var opts []backend.Option
	if c.timeout > 0 {
		opts = append(opts, backend.WithHTTPClient(&http.Client{Timeout: c.timeout}))
	}
	if addr := c.cfg.Database.Redis.Address; addr != "" {
		c.redis = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: c.cfg.Database.Redis.Password,
			DB:       c.cfg.Database.Redis.DB,
		})
		opts = append(opts, backend.WithTokenStore(backend.NewRedisTokenStore(c.redis, c.cfg.Backend.TokenKey)))
	}
	c.api = backend.NewClient(c.cfg.Backend, log, opts...)

	reg := completion.DefaultRegistry()
	if path := c.cfg.Completion.RegistryPath; path != "" {
		if reg, err = completion.LoadRegistry(path); err != nil {
			return err
		}
	}
	c.calc = completion.NewCalculator(reg)
	return nil
}

// session logs in with the configured credentials unless a token is stored.
func (c *cli) session(cmd *cobra.Command) (context.Context, context.CancelFunc, error) {
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	if err := c.api.EnsureSession(ctx, c.cfg.Backend.Email, c.cfg.Backend.Password); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("backend session: %w", err)
	}
	return ctx, cancel, nil
}

func (c *cli) print(v interface{}) error {
	return render(c.out, c.output, v)
}
