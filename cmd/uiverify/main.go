package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	internalcli "github.com/themizzi/uiverify/internal/cli"
	"github.com/themizzi/uiverify/internal/browser"
	"github.com/themizzi/uiverify/internal/config"
	"github.com/themizzi/uiverify/internal/database"
	"github.com/themizzi/uiverify/internal/handlers"
	"github.com/themizzi/uiverify/internal/repository"
	"github.com/themizzi/uiverify/internal/scenario"
	"github.com/themizzi/uiverify/internal/services"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

var version = "0.1.0"

// openHistory connects to the run history database. It returns a nil
// repository when POSTGRES_* is not set.
func openHistory() (services.RunRepository, error) {
	pgConfig, err := config.LoadPostgresConfig(os.Getenv)
	if errors.Is(err, config.ErrPostgresNotConfigured) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("invalid postgres configuration: %w", err)
	}

	if err := database.Connect(pgConfig); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("Connected to database successfully")

	if err := database.RunMigrations(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	return repository.NewRunRepository(), nil
}

// buildRunOptions merges environment configuration with command flags
func buildRunOptions(c *cli.Context) (services.RunOptions, *config.BrowserConfig, error) {
	browserConfig, err := config.LoadBrowserConfig(os.Getenv)
	if err != nil {
		return services.RunOptions{}, nil, err
	}
	targetConfig := config.LoadTargetConfig(os.Getenv)

	if c.IsSet("engine") {
		browserConfig.Engine = c.String("engine")
	}
	if c.Bool("headed") {
		browserConfig.Headless = false
	}
	if c.IsSet("viewport") {
		if browserConfig.Viewport, err = config.ParseViewport(c.String("viewport")); err != nil {
			return services.RunOptions{}, nil, fmt.Errorf("--viewport: %w", err)
		}
	}
	if c.IsSet("nav-timeout") {
		browserConfig.NavigationTimeout = c.Duration("nav-timeout")
	}
	if c.IsSet("element-timeout") {
		browserConfig.ElementTimeout = c.Duration("element-timeout")
	}
	if c.Bool("install") {
		browserConfig.InstallDriver = true
	}
	if c.IsSet("base-url") {
		targetConfig.BaseURL = c.String("base-url")
	}
	if c.IsSet("output-dir") {
		targetConfig.OutputDir = c.String("output-dir")
	}

	options := services.RunOptions{
		Engine:            browserConfig.Engine,
		Headless:          browserConfig.Headless,
		Viewport:          browserConfig.Viewport,
		NavigationTimeout: browserConfig.NavigationTimeout,
		ElementTimeout:    browserConfig.ElementTimeout,
		BaseURL:           targetConfig.BaseURL,
		OutputDir:         targetConfig.OutputDir,
	}
	if c.Bool("verbose") {
		options.Diagnostics = os.Stderr
	}

	return options, browserConfig, nil
}

// RunCommand returns the run command
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Run a scenario and capture its screenshots",
		ArgsUsage: "<scenario.yaml>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "engine", Usage: "browser engine: playwright or chromedp"},
			&cli.BoolFlag{Name: "headed", Usage: "show the browser window"},
			&cli.StringFlag{Name: "viewport", Usage: "window size, e.g. 1280x720"},
			&cli.DurationFlag{Name: "nav-timeout", Usage: "navigation timeout"},
			&cli.DurationFlag{Name: "element-timeout", Usage: "default element wait timeout"},
			&cli.StringFlag{Name: "base-url", Usage: "origin that scenario paths resolve against"},
			&cli.StringFlag{Name: "output-dir", Usage: "directory for relative screenshot paths"},
			&cli.BoolFlag{Name: "install", Usage: "download the Playwright driver and Chromium if missing"},
			&cli.BoolFlag{Name: "no-history", Usage: "do not record the run in Postgres"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "print page console output and errors"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("usage: uiverify run <scenario.yaml>", 2)
			}

			sc, err := scenario.Load(c.Args().First())
			if err != nil {
				return err
			}

			options, browserConfig, err := buildRunOptions(c)
			if err != nil {
				return err
			}

			launcher, err := browser.NewLauncher(browserConfig.Engine, browserConfig.InstallDriver)
			if err != nil {
				return err
			}

			var history services.RunRepository
			if !c.Bool("no-history") {
				repo, err := openHistory()
				if err != nil {
					log.Printf("Warning: run history disabled: %v", err)
				} else if repo != nil {
					history = repo
					defer database.Close()
				}
			}

			service := services.NewVerificationService(launcher, history, options)
			_, err = internalcli.RunVerify(c.Context, service, sc, nil)
			return err
		},
	}
}

// ServeCommand returns the serve command
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve an app directory for scenarios that need an origin",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "port", Usage: "listen port (default $PORT or 8080)"},
			&cli.StringFlag{Name: "dir", Usage: "directory to serve (default $UIVERIFY_SERVE_DIR or .)"},
			&cli.StringFlag{Name: "artifacts", Usage: "screenshot directory exposed under /artifacts/"},
		},
		Action: func(c *cli.Context) error {
			serverConfig := config.LoadServerConfig(os.Getenv)
			if c.IsSet("port") {
				serverConfig.Port = c.String("port")
			}
			if c.IsSet("dir") {
				serverConfig.Dir = c.String("dir")
			}

			deps := internalcli.ServerDependencies{
				ServerConfig:  serverConfig,
				StaticHandler: handlers.NewStaticHandler(serverConfig.Dir),
				ArtifactsDir:  c.String("artifacts"),
			}
			if deps.ArtifactsDir == "" {
				deps.ArtifactsDir = config.LoadTargetConfig(os.Getenv).OutputDir
			}

			history, err := openHistory()
			if err != nil {
				return err
			}
			if history != nil {
				defer database.Close()
				deps.RunsHandler = handlers.NewRunsHandler(services.NewHistoryService(history))
			}

			return internalcli.RunServe(deps)
		},
	}
}

// HistoryCommand returns the history command
func HistoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recent runs recorded in Postgres",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: services.DefaultHistoryLimit, Usage: "number of runs to show"},
		},
		Action: func(c *cli.Context) error {
			history, err := openHistory()
			if err != nil {
				return err
			}
			if history != nil {
				defer database.Close()
			}

			return internalcli.RunHistory(services.NewHistoryService(history), c.Int("limit"), c.App.Writer)
		},
	}
}

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	app := &cli.App{
		Name:    "uiverify",
		Usage:   "Scripted browser runs that capture UI screenshots for review",
		Version: version,
		Commands: []*cli.Command{
			RunCommand(),
			ServeCommand(),
			HistoryCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		log.Fatal(err)
	}
}
