package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/itzana/itzanago/config"
	"github.com/itzana/itzanago/internal/debug"
	"github.com/itzana/itzanago/internal/server"
	"github.com/itzana/itzanago/internal/service"
	"github.com/itzana/itzanago/pkg/app"
)

const Version = "v1.0.0"

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "itzana",
		Short: "Itzana - analytical questions over hotel reservations",
		Long: `Itzana answers natural-language questions about reservations and grouped accounts.
An analyst agent queries a relational snapshot of the spreadsheets and the answer is
returned as a markdown report, with a chart when the question asks for one.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractiveMode(cmd.Context(), configPath)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file path (default ./itzana.json)")

	rootCmd.AddCommand(newServeCmd(&configPath))
	rootCmd.AddCommand(newAskCmd(&configPath))
	rootCmd.AddCommand(newReloadCmd(&configPath))
	rootCmd.AddCommand(newConfigCmd(&configPath))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newServeCmd(configPath *string) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP service (/ask, /reload, /healthz)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, *configPath, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides http_addr)")
	return cmd
}

func runServe(ctx context.Context, configPath, addr string) error {
	var s *session
	// scheduled reloads go through the engine current at fire time
	schedule := service.NewReloadSchedule(service.ReloaderFunc(func(ctx context.Context) error {
		_, err := s.runtime.Engine().Reloader.Reload(ctx)
		return err
	}))

	s, err := openSession(configPath, app.OnSwap(func(prev, next *app.Engine) {
		if prev.Config.ReloadCron == next.Config.ReloadCron {
			return
		}
		if err := schedule.Apply(next.Config.ReloadCron); err != nil {
			DisplayError(fmt.Errorf("invalid reload_cron %q, keeping %q: %w",
				next.Config.ReloadCron, schedule.Spec(), err))
		}
	}))
	if err != nil {
		return err
	}
	defer s.Close()
	defer schedule.Stop()

	eng := s.runtime.Engine()
	cfg := eng.Config
	if addr == "" {
		addr = cfg.HTTPAddr
	}

	if err := debug.NewEinoDebugger(&cfg).Initialize(ctx); err != nil {
		return err
	}

	if cfg.ReloadOnStart {
		res, err := eng.Reloader.Reload(ctx)
		if err != nil {
			return fmt.Errorf("initial reload: %w", err)
		}
		DisplayReload(res)
	}

	if err := schedule.Apply(s.runtime.Engine().Config.ReloadCron); err != nil {
		return fmt.Errorf("invalid reload_cron %q: %w", cfg.ReloadCron, err)
	}

	DisplayInfo(fmt.Sprintf("Serving on %s (config %s)", addr, s.cfgMgr.Path()))
	return server.New(s.runtime).ListenAndServe(ctx, addr)
}

func newAskCmd(configPath *string) *cobra.Command {
	var (
		reload bool
		save   bool
	)
	cmd := &cobra.Command{
		Use:   "ask [QUESTION]",
		Short: "Ask one question and print the markdown answer",
		Long: `Ask one analytical question. Without arguments the question is prompted for.
Example: itzana ask "Hazme una gráfica de ingresos por mes"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				q, err := PromptForQuestion()
				if err != nil {
					return err
				}
				question = q
			}

			s, err := openSession(*configPath)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			if reload {
				res, err := s.runtime.Engine().Reloader.Reload(ctx)
				if err != nil {
					return err
				}
				DisplayReload(res)
			}
			return askOnce(ctx, s, question, save)
		},
	}
	cmd.Flags().BoolVar(&reload, "reload", false, "Rebuild the snapshot before asking")
	cmd.Flags().BoolVar(&save, "save", false, "Also write the answer under results_dir")
	return cmd
}

// answerer is implemented by the orchestrator; it exposes the chart
// outcome that the markdown alone hides.
type answerer interface {
	Answer(ctx context.Context, question string) (*service.Answer, error)
}

func askOnce(ctx context.Context, s *session, question string, save bool) error {
	eng := s.runtime.Engine()
	DisplayQuestion(question)

	var markdown string
	if a, ok := eng.Asker.(answerer); ok {
		ans, err := a.Answer(ctx, question)
		if err != nil {
			DisplayError(err)
			return err
		}
		markdown = ans.Markdown
		DisplayMarkdown(markdown)
		DisplayChartOutcome(ans.Chart)
	} else {
		resp, err := eng.Asker.Ask(ctx, question)
		if err != nil {
			DisplayError(err)
			return err
		}
		markdown = resp.Markdown
		DisplayMarkdown(markdown)
	}

	if save {
		path, err := SaveAnswer(eng.Config.ResultsDir, question, markdown)
		if err != nil {
			return err
		}
		DisplaySuccess("Saved to " + path)
	}
	return nil
}

func newReloadCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Rebuild the relational snapshot from the spreadsheets",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(*configPath)
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := s.runtime.Engine().Reloader.Reload(cmd.Context())
			if err != nil {
				DisplayError(err)
				return err
			}
			DisplayReload(res)
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Itzana %s\n", Version)
		},
	}
}

func newConfigCmd(configPath *string) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := newConfigManager(*configPath)
			if err != nil {
				return err
			}
			cfg := mgr.Get()
			showConfig(cmd, mgr.Path(), &cfg)
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and input files",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := newConfigManager(*configPath)
			if err != nil {
				return err
			}
			cfg := mgr.Get()
			return validateConfig(cmd, &cfg)
		},
	})

	return configCmd
}

func showConfig(cmd *cobra.Command, path string, cfg *config.Config) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render("Itzana configuration"))
	fmt.Fprintf(out, "Config File:          %s\n", path)
	fmt.Fprintf(out, "Data Directory:       %s\n", cfg.DataDir)
	fmt.Fprintf(out, "Results Directory:    %s\n", cfg.ResultsDir)
	fmt.Fprintf(out, "Snapshot DB:          %s\n", cfg.DBPath)
	fmt.Fprintf(out, "Reservations File:    %s\n", cfg.ReservationsFile)
	fmt.Fprintf(out, "Accounts File:        %s\n", cfg.AccountsFile)
	fmt.Fprintf(out, "Reload On Start:      %t\n", cfg.ReloadOnStart)
	fmt.Fprintf(out, "Reload Cron:          %s\n", cfg.ReloadCron)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "LLM Provider:         %s\n", cfg.LLMProvider)
	fmt.Fprintf(out, "Backend URL:          %s\n", cfg.BackendURL)
	fmt.Fprintf(out, "Analyst Model:        %s\n", cfg.AnalystLLM)
	fmt.Fprintf(out, "Chart Model:          %s\n", cfg.ChartLLM)
	fmt.Fprintf(out, "Max Agent Steps:      %d\n", cfg.MaxAgentSteps)
	fmt.Fprintf(out, "Agent Timeout:        %s\n", cfg.AgentTimeout.Std())
	fmt.Fprintf(out, "API Key:              %s\n", keyStatus(cfg.APIKey()))
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Chart Keywords:       %s\n", strings.Join(cfg.ChartKeywords, ", "))
	fmt.Fprintf(out, "QuickChart URL:       %s\n", cfg.QuickChartURL)
	fmt.Fprintf(out, "Chart Output:         %s\n", cfg.ChartOutput)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "HTTP Address:         %s\n", cfg.HTTPAddr)
	fmt.Fprintf(out, "Error Traceback:      %t\n", cfg.ErrorTraceback)
	fmt.Fprintf(out, "Eino Debug:           %t\n", cfg.EinoDebugEnabled)
	if cfg.EinoDebugEnabled {
		fmt.Fprintf(out, "Debug URL:            http://localhost:%d\n", cfg.EinoDebugPort)
	}
}

func keyStatus(key string) string {
	if key == "" {
		return "not configured"
	}
	return "configured"
}

func validateConfig(cmd *cobra.Command, cfg *config.Config) error {
	out := cmd.OutOrStdout()

	fmt.Fprint(out, "Checking configuration values... ")
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(out, errorStyle.Render("failed"))
		return err
	}
	fmt.Fprintln(out, completedStyle.Render("ok"))

	fmt.Fprint(out, "Checking directories... ")
	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Fprintln(out, errorStyle.Render("failed"))
		return fmt.Errorf("directory validation failed: %w", err)
	}
	fmt.Fprintln(out, completedStyle.Render("ok"))

	var warnings []string
	if cfg.APIKey() == "" {
		warnings = append(warnings, fmt.Sprintf("no API key for provider %s", cfg.LLMProvider))
	}
	for _, f := range []string{cfg.ReservationsFile, cfg.AccountsFile} {
		if _, err := os.Stat(f); err != nil {
			warnings = append(warnings, fmt.Sprintf("spreadsheet %s is not readable", f))
		}
	}
	for _, w := range warnings {
		fmt.Fprintln(out, inProgressStyle.Render("warning: "+w))
	}
	if len(warnings) == 0 {
		fmt.Fprintln(out, completedStyle.Render("Configuration validation completed successfully"))
	}
	return nil
}
