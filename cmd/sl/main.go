package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"staffline/internal/config"
	"staffline/internal/logger"
	"staffline/internal/notify"
	stafflinesdk "staffline/sdk/go"
)

var rootCmd = &cobra.Command{
	Use:   "sl",
	Short: "Staffline CLI",
	Long: `Staffline staffs projects with employees and tracks allocation status.
- Directory: employees ranked by performance score, filterable by text, shift, department, designation and skills.
- Suggestions: the server's ranked shortlist for a project.
- Allocations: stage additions and removals for a project, then save them as one batch (removals first).
- My allocations: change the status of your own allocations and browse their status history.
- Sandbox: 'sl serve' runs a local gateway seeded from a fixture for development.`,
	SilenceUsage: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("STAFFLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("workspace", "w", ".", "directory holding staffline.yml")
	flags.Bool("json", false, "output JSON")
	flags.Bool("no-color", false, "disable colored notifications")
	flags.String("base-url", "", "gateway base URL (overrides api.base_url)")
	flags.String("token", "", "bearer token (overrides api.token)")
	flags.String("log-level", "", "log level (overrides log.level)")
	flags.String("log-format", "", "log format: text or json (overrides log.format)")
	_ = viper.BindPFlag("workspace", flags.Lookup("workspace"))
	_ = viper.BindPFlag("json", flags.Lookup("json"))
	_ = viper.BindPFlag("no-color", flags.Lookup("no-color"))
	_ = viper.BindPFlag("api.base_url", flags.Lookup("base-url"))
	_ = viper.BindPFlag("api.token", flags.Lookup("token"))
	_ = viper.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("log.format", flags.Lookup("log-format"))
}

func registerCommands() {
	rootCmd.AddCommand(employeesCmd())
	rootCmd.AddCommand(projectsCmd())
	rootCmd.AddCommand(suggestCmd())
	rootCmd.AddCommand(allocationsCmd())
	rootCmd.AddCommand(myCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(configCmd())
}

// --- helpers ---

type runtime struct {
	Config   *config.Config
	Log      *logrus.Logger
	Notifier notify.Notifier
	Client   *stafflinesdk.Client
}

// loadConfig reads staffline.yml from the workspace, falling back to the
// defaults, and applies flag and STAFFLINE_* overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOptional(viper.GetString("workspace"))
	if err != nil {
		return nil, err
	}
	overrides := map[string]*string{
		"api.base_url":       &cfg.API.BaseURL,
		"api.token":          &cfg.API.Token,
		"api.user_agent":     &cfg.API.UserAgent,
		"log.level":          &cfg.Log.Level,
		"log.format":         &cfg.Log.Format,
		"sandbox.addr":       &cfg.Sandbox.Addr,
		"sandbox.base_path":  &cfg.Sandbox.BasePath,
		"sandbox.jwt_secret": &cfg.Sandbox.JWTSecret,
		"sandbox.seed_file":  &cfg.Sandbox.SeedFile,
		"sandbox.workspace":  &cfg.Sandbox.Workspace,
	}
	for key, dst := range overrides {
		if v := viper.GetString(key); v != "" {
			*dst = v
		}
	}
	if viper.IsSet("status.rollback_on_failure") {
		v := viper.GetBool("status.rollback_on_failure")
		cfg.Status.RollbackOnFailure = &v
	}
	if viper.IsSet("sandbox.dev_auth") {
		cfg.Sandbox.DevAuth = viper.GetBool("sandbox.dev_auth")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newRuntime() (*runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return nil, err
	}
	notifier := &notify.Terminal{Out: os.Stderr, Color: !viper.GetBool("no-color")}
	client := stafflinesdk.New(cfg.API.BaseURL, cfg.API.Token)
	if cfg.API.UserAgent != "" {
		client.UserAgent = cfg.API.UserAgent
	}
	if cfg.API.Timeout > 0 {
		client.Timeout = cfg.API.Timeout
	}
	client.Logger = log
	client.WithRateLimit(cfg.API.RateLimit, cfg.API.RateBurst)
	client.OnUnauthorized = func() {
		notifier.Notify(notify.LevelError, "Session expired; mint a new token with sl token or set STAFFLINE_API_TOKEN")
	}
	return &runtime{Config: cfg, Log: log, Notifier: notifier, Client: client}, nil
}

func withRuntime(ctx context.Context, fn func(context.Context, *runtime) error) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	return fn(ctx, rt)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(header ...any) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row(header))
	return tw
}

func refName(name string) string {
	if name == "" {
		return "-"
	}
	return name
}
