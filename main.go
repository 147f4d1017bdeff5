package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"

	"github.com/utilitywarehouse/forge-mirror/auth"
	"github.com/utilitywarehouse/forge-mirror/crawl"
	"github.com/utilitywarehouse/forge-mirror/forge"
	"github.com/utilitywarehouse/forge-mirror/repository"
)

const metricsNamespace = "forge_mirror"

var (
	loggerLevel = new(slog.LevelVar)
	logger      *slog.Logger

	levelStrings = map[string]slog.Level{
		"trace": slog.Level(-8),
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}

	flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Sources: cli.EnvVars("FORGE_MIRROR_CONFIG"),
			Value:   "/etc/forge-mirror/config.yaml",
			Usage:   "Absolute path to the config file.",
		},
		&cli.StringFlag{
			Name:    "log-level",
			Sources: cli.EnvVars("LOG_LEVEL"),
			Value:   "info",
			Usage:   "Log level",
		},
		&cli.StringFlag{
			Name:    "metrics-addr",
			Sources: cli.EnvVars("METRICS_ADDR"),
			Usage:   "Listen address for the metrics endpoint, metrics are disabled when empty.",
		},
	}
)

func init() {
	loggerLevel.Set(slog.LevelInfo)
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: loggerLevel,
	}))
}

func main() {
	cmd := &cli.Command{
		Name:  "forge-mirror",
		Usage: "forge-mirror crawls forge metadata of mirrored repositories and commits it to a data branch.",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {

			// set log level according to argument
			if v, ok := levelStrings[strings.ToLower(c.String("log-level"))]; ok {
				loggerLevel.Set(v)
			}

			conf, err := parseConfigFile(c.String("config"))
			if err != nil {
				logger.Error("unable to parse config file", "err", err)
				os.Exit(1)
			}

			if addr := c.String("metrics-addr"); addr != "" {
				crawl.EnableMetrics(metricsNamespace, prometheus.DefaultRegisterer)
				repository.EnableMetrics(metricsNamespace, prometheus.DefaultRegisterer)

				go func() {
					http.Handle("/metrics", promhttp.Handler())
					if err := http.ListenAndServe(addr, nil); err != nil {
						logger.Error("metrics listener failed", "err", err)
					}
				}()
			}

			var src forge.TokenSource
			if app := conf.API.GithubApp; app != nil {
				src = &auth.AppTokenSource{
					Endpoint:       conf.API.Endpoint,
					AppID:          app.AppID,
					InstallationID: app.InstallationID,
					PrivateKeyPath: app.PrivateKeyPath,
				}
			}

			forgeClient, err := forge.NewGitHub(conf.API.Endpoint, conf.API.Token, src, conf.API.PageSize)
			if err != nil {
				logger.Error("unable to create forge client", "err", err)
				os.Exit(1)
			}

			repo, err := repository.New(ctx, conf.Path, &conf.Auth, logger.With("logger", "repository"))
			if err != nil {
				logger.Error("unable to open local repository", "err", err)
				os.Exit(1)
			}

			crawler := crawl.NewCrawler(
				forgeClient,
				repo,
				repo,
				crawl.NewStore(repo.GitDir(), logger.With("logger", "store")),
				crawl.PendingFile(repo.GitDir()),
				crawl.Config{
					Branch:        conf.Branch,
					Host:          conf.API.Host,
					CommitMessage: conf.CommitMessage,
				},
				logger.With("logger", "crawl"),
			)

			outstanding, err := crawler.Run(ctx)
			if err != nil {
				logger.Error("crawl failed", "err", err)
				os.Exit(1)
			}
			if outstanding > 0 {
				logger.Error("run finished with outstanding requests", "count", outstanding)
				os.Exit(1)
			}

			return nil
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		logger.Error("failed to run app", "err", err)
		os.Exit(1)
	}
}
