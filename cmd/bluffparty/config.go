package main

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind           string
	port           int
	directoryURL   string
	advertiseHost  string
	store          string
	redisAddr      string
	redisPassword  string
	redisDB        int
	postgresDSN    string
	profile        string
	name           string
	avatar         string
	contentURL     string
	contentTimeout time.Duration
	heartbeat      time.Duration
	playerTimeout  time.Duration
	recoveryWindow time.Duration
	hostProbe      time.Duration
	verbose        bool
}

func (c *Config) validate() error {
	if c.port < 0 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 0-65535 inclusive): %d", c.port)
	}
	switch c.store {
	case "memory":
	case "redis":
		if c.redisAddr == "" {
			return errors.New("--redis-addr is required with --store=redis")
		}
	case "postgres":
		if c.postgresDSN == "" {
			return errors.New("--postgres-dsn is required with --store=postgres")
		}
	default:
		return fmt.Errorf("unknown store %q (memory, redis or postgres)", c.store)
	}
	if c.directoryURL == "" {
		return errors.New("--directory-url must not be empty")
	}
	if c.heartbeat <= 0 {
		return fmt.Errorf("heartbeat must be positive: %v", c.heartbeat)
	}
	if c.playerTimeout < 0 || c.recoveryWindow < 0 || c.contentTimeout < 0 || c.hostProbe < 0 {
		return errors.New("timeouts must not be negative")
	}
	if c.profile == "" {
		return errors.New("--profile must not be empty")
	}
	return nil
}

func (c *Config) listenAddr() string {
	return net.JoinHostPort(c.bind, strconv.Itoa(c.port))
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("BLUFFPARTY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "bluffparty",
		Short:         "A bluffing party game played over a host-authoritative room.",
		SilenceErrors: true,
		Version:       releaseVersion,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cfg.validate()
		},
	}

	fs := cmd.PersistentFlags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: BLUFFPARTY_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 0, "port to listen on, 0 picks one (env: BLUFFPARTY_PORT)")
	fs.StringVar(&cfg.directoryURL, "directory-url", "http://127.0.0.1:8080", "room directory base url (env: BLUFFPARTY_DIRECTORY_URL)")
	fs.StringVar(&cfg.advertiseHost, "advertise-host", "", "host peers should dial, defaults to the bound address (env: BLUFFPARTY_ADVERTISE_HOST)")
	fs.StringVar(&cfg.store, "store", "memory", "where to keep sessions and credentials: memory, redis or postgres (env: BLUFFPARTY_STORE)")
	fs.StringVar(&cfg.redisAddr, "redis-addr", "127.0.0.1:6379", "redis address (env: BLUFFPARTY_REDIS_ADDR)")
	fs.StringVar(&cfg.redisPassword, "redis-password", "", "redis password (env: BLUFFPARTY_REDIS_PASSWORD)")
	fs.IntVar(&cfg.redisDB, "redis-db", 0, "redis database number (env: BLUFFPARTY_REDIS_DB)")
	fs.StringVar(&cfg.postgresDSN, "postgres-dsn", "", "postgres connection string (env: BLUFFPARTY_POSTGRES_DSN)")
	fs.StringVar(&cfg.profile, "profile", "default", "name under which rejoin credentials are stored (env: BLUFFPARTY_PROFILE)")
	fs.StringVarP(&cfg.name, "name", "n", "Player", "display name (env: BLUFFPARTY_NAME)")
	fs.StringVar(&cfg.avatar, "avatar", "", "avatar (env: BLUFFPARTY_AVATAR)")
	fs.StringVar(&cfg.contentURL, "content-url", "", "text generation endpoint, empty uses the built-in pool (env: BLUFFPARTY_CONTENT_URL)")
	fs.DurationVar(&cfg.contentTimeout, "content-timeout", 15*time.Second, "content request timeout (env: BLUFFPARTY_CONTENT_TIMEOUT)")
	fs.DurationVar(&cfg.heartbeat, "heartbeat", 4*time.Second, "host state rebroadcast interval (env: BLUFFPARTY_HEARTBEAT)")
	fs.DurationVar(&cfg.playerTimeout, "player-timeout", 0, "remove disconnected players after this long, 0 never (env: BLUFFPARTY_PLAYER_TIMEOUT)")
	fs.DurationVar(&cfg.recoveryWindow, "recovery-window", 30*time.Second, "how long to look for a new host (env: BLUFFPARTY_RECOVERY_WINDOW)")
	fs.DurationVar(&cfg.hostProbe, "host-probe", 2*time.Second, "how long to retry the host before taking over (env: BLUFFPARTY_HOST_PROBE)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: BLUFFPARTY_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.AddCommand(
		&cobra.Command{
			Use:   "directory",
			Short: "Run the room directory",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return serveDirectory(cmd.Context(), cfg)
			},
		},
		&cobra.Command{
			Use:   "host",
			Short: "Open a new room and host it",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return hostRoom(cmd.Context(), cfg)
			},
		},
		&cobra.Command{
			Use:   "join CODE",
			Short: "Join a room by its code",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return joinRoom(cmd.Context(), cfg, strings.ToUpper(args[0]))
			},
		},
		&cobra.Command{
			Use:   "resume",
			Short: "Rejoin the room stored for this profile",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return resumeRoom(cmd.Context(), cfg)
			},
		},
	)

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("bluffparty v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
