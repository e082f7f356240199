package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/brettbedarf/mtpview"
	"github.com/brettbedarf/mtpview/config"
	"github.com/brettbedarf/mtpview/internal/util"
	"github.com/brettbedarf/mtpview/sessions"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

const configFileEnv = "MTPVIEW_CONFIG"

var cmds []CreateFunc

// Context is shared by every subcommand. It is filled in before the
// subcommand runs
type Context struct {
	Config  *config.Config
	Session mtpview.Session
	// Metrics collects the session metrics of this invocation
	Metrics *prometheus.Registry
}

type CreateFunc func(c *Context) *cobra.Command

func register(cr CreateFunc) {
	cmds = append(cmds, cr)
}

type rootFlags struct {
	config  string
	session string
	root    string
	verbose int
}

// sessionDefinition picks the session in flag, then config order
func sessionDefinition(cfg *config.Config, flags *rootFlags) ([]byte, error) {
	switch {
	case flags.root != "" && flags.session != "":
		return nil, errors.New("--root and --session are mutually exclusive")
	case flags.root != "":
		return json.Marshal(map[string]any{"type": sessions.LocalDirType, "root": flags.root})
	case flags.session != "":
		return []byte(flags.session), nil
	}
	raw, err := cfg.SessionDefinition()
	if err != nil {
		return nil, fmt.Errorf("no session given, use --session, --root or a config file: %w", err)
	}
	return raw, nil
}

func initContext(c *Context, cmd *cobra.Command, flags *rootFlags) error {
	path := flags.config
	if path == "" {
		path = os.Getenv(configFileEnv)
	}
	cfg := config.NewDefaultConfig()
	if path != "" {
		var err error
		if cfg, err = config.NewConfigFromFile(path); err != nil {
			return fmt.Errorf("load config %s: %w", path, err)
		}
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Merge(&config.ConfigOverride{LogLvl: &flags.verbose})
	}
	util.InitializeLogger(cfg.LogLvl, cmd.ErrOrStderr())
	logger := util.GetLogger("main")

	raw, err := sessionDefinition(cfg, flags)
	if err != nil {
		return err
	}
	s, err := sessions.Open(raw)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	logger.Debug().RawJSON("session", raw).Msg("Session opened")

	c.Config = cfg
	c.Metrics = prometheus.NewRegistry()
	c.Session = sessions.NewInstrumented(s, sessions.NewMetrics(c.Metrics))
	return nil
}

func NewRoot() *cobra.Command {
	flags := &rootFlags{}
	c := &Context{}
	rootCmd := &cobra.Command{
		Use:           "mtpview",
		Short:         "Browse and manage the objects of an MTP device",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	for _, cr := range cmds {
		rootCmd.AddCommand(cr(c))
	}
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return initContext(c, cmd, flags)
	}
	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if c.Session == nil {
			return nil
		}
		return c.Session.Close()
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.config, "config", "c", "", "config file (yaml or json), also read from $"+configFileEnv)
	pf.StringVarP(&flags.session, "session", "s", "", `session definition as JSON, e.g. '{"type":"memory"}'`)
	pf.StringVar(&flags.root, "root", "", "serve a host directory as the device (localdir session)")
	pf.IntVarP(&flags.verbose, "verbose", "v", config.WarnVerbose, "log verbosity between 1 (error) and 5 (trace)")
	return rootCmd
}
