package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"staffline/internal/app"
	"staffline/internal/config"
	"staffline/internal/server"
)

func serveCmd() *cobra.Command {
	var (
		addr     string
		basePath string
		memory   bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the sandbox gateway",
		Long: `Runs a local staffing gateway backed by SQLite and seeded from a fixture
(sandbox.seed_file, or the built-in one) the first time it starts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				sb := rt.Config.Sandbox
				if addr != "" {
					sb.Addr = addr
				}
				if basePath != "" {
					sb.BasePath = basePath
				}
				sb.Workspace = sandboxWorkspace(sb, memory)
				if sb.Addr == "" {
					return fmt.Errorf("sandbox.addr is required")
				}
				if sb.JWTSecret == "" {
					if !sb.DevAuth {
						return fmt.Errorf("sandbox.jwt_secret is required unless dev_auth is enabled")
					}
					sb.JWTSecret = uuid.NewString()
					rt.Log.Warn("no sandbox.jwt_secret configured; using a random secret for this run")
				}

				e, conn, err := app.OpenSandbox(ctx, sb, rt.Log)
				if err != nil {
					return err
				}
				defer conn.Close()
				handler, err := server.New(server.Config{
					Engine:   e,
					BasePath: sb.BasePath,
					Auth:     server.AuthConfig{JWTSecret: sb.JWTSecret, DevAuth: sb.DevAuth, Logger: rt.Log},
					Log:      rt.Log,
				})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: sb.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				rt.Log.WithField("addr", sb.Addr).Info("sandbox listening")
				fmt.Printf("Serving Staffline sandbox on http://%s%s (OpenAPI at /openapi.json, Swagger UI at /docs)\n", sb.Addr, sb.BasePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides sandbox.addr)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (overrides sandbox.base_path)")
	cmd.Flags().BoolVar(&memory, "memory", false, "keep sandbox data in memory only")
	return cmd
}

// sandboxWorkspace resolves sandbox.workspace against the CLI workspace.
func sandboxWorkspace(sb config.SandboxConfig, memory bool) string {
	if memory || sb.Workspace == app.MemoryWorkspace {
		return app.MemoryWorkspace
	}
	if filepath.IsAbs(sb.Workspace) {
		return sb.Workspace
	}
	return filepath.Join(viper.GetString("workspace"), sb.Workspace)
}

func tokenCmd() *cobra.Command {
	var (
		roles []string
		ttl   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token <employee-id>",
		Short: "Mint a sandbox bearer token",
		Long: `Signs a token locally when sandbox.jwt_secret is configured. Otherwise asks
a running sandbox with dev_auth enabled to issue one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			employeeID, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				var token string
				if secret := rt.Config.Sandbox.JWTSecret; secret != "" {
					token, err = server.SignToken(secret, employeeID, roles, ttl)
				} else {
					token, err = rt.Client.DevLogin(ctx, employeeID, roles)
				}
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"token": token, "employee_id": employeeID, "roles": roles})
				}
				fmt.Println(token)
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&roles, "role", nil, "role claim (repeatable), e.g. admin")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime when signing locally (default 12h)")
	return cmd
}
