package main

import (
	"cmp"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	json "github.com/goccy/go-json"
	"github.com/urfave/cli/v2"

	"github.com/micasa/marketer/internal/archive"
	"github.com/micasa/marketer/internal/collector"
	"github.com/micasa/marketer/internal/config"
	"github.com/micasa/marketer/internal/content"
	"github.com/micasa/marketer/internal/errors"
	"github.com/micasa/marketer/internal/holiday"
	"github.com/micasa/marketer/internal/imagegen"
	"github.com/micasa/marketer/internal/logging"
	"github.com/micasa/marketer/internal/mcp"
	"github.com/micasa/marketer/internal/metrics"
	"github.com/micasa/marketer/internal/ops"
	"github.com/micasa/marketer/internal/publisher"
	"github.com/micasa/marketer/internal/scraper"
	"github.com/micasa/marketer/internal/upstream"
	"github.com/micasa/marketer/internal/video"
	"github.com/micasa/marketer/internal/web"
)

// midjourneyTimeout bounds a single proxy request; polling has its own budget.
const midjourneyTimeout = 60 * time.Second

// cliEnv is shared by every command. Logger and metrics are created in Before,
// once --config and --store have been applied.
type cliEnv struct {
	db      *sql.DB
	cfg     *config.Config
	logger  logging.Logger
	metrics metrics.Recorder
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config) *cli.App {
	env := &cliEnv{db: db, cfg: cfg, logger: logging.Nop(), metrics: metrics.Nop()}
	app := &cli.App{
		Name:    "marketer",
		Usage:   "Holiday captions, branded images and social posts",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config file applied over ~/.marketer/config.yaml"},
			&cli.StringFlag{Name: "store", Usage: "Holiday store path (overrides store_path)"},
		},
		Before: env.before,
		After:  env.after,
		Commands: []*cli.Command{
			generateCmd(env),
			captionsCmd(env),
			enhanceCmd(env),
			scrapeCmd(env),
			brandCmd(env),
			publishCmd(env),
			exportPromptsCmd(env),
			backupCmd(env),
			restoreCmd(env),
			statusCmd(env),
			datesCmd(env),
			lintCmd(env),
			runsCmd(env),
			postsCmd(env),
			serveCmd(env),
			mcpCmd(env),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func (e *cliEnv) before(c *cli.Context) error {
	if e.cfg == nil {
		return nil // help and version only
	}
	if path := c.String("config"); path != "" {
		if _, err := os.Stat(path); err != nil {
			return outputError(errors.NewSetup(fmt.Sprintf("config file %s not found", path)))
		}
		cfg, err := config.LoadFiles(filepath.Join(e.cfg.BaseDir, "config.yaml"), path)
		if err != nil {
			return outputError(err)
		}
		if cfg.BaseDir == "" {
			cfg.BaseDir = e.cfg.BaseDir
		}
		if cfg.Archive.Kind == "local" && cfg.Archive.Dir == "" {
			cfg.Archive.Dir = filepath.Join(cfg.BaseDir, "snapshots")
		}
		*e.cfg = *cfg
	}
	if store := c.String("store"); store != "" {
		e.cfg.StorePath = store
	}

	logger, err := logging.NewLogProvider(e.cfg.Logger)
	if err != nil {
		return outputError(err)
	}
	e.logger = logger
	e.metrics = metrics.New(e.cfg.Metrics)
	return nil
}

func (e *cliEnv) after(_ *cli.Context) error {
	e.logger.Close()
	return nil
}

func (e *cliEnv) runtime() *ops.Runtime {
	return &ops.Runtime{DB: e.db, Logger: e.logger, Metrics: e.metrics}
}

func (e *cliEnv) openAI() *content.OpenAI {
	return content.NewOpenAI(e.cfg.OpenAI, upstream.New(e.cfg.OpenAI.Timeout, e.metrics))
}

func (e *cliEnv) scraper() *scraper.Scraper {
	return scraper.New(e.cfg.Scraper, nil, e.logger, e.metrics)
}

func (e *cliEnv) publisher() *publisher.Client {
	return publisher.New(e.cfg.Publer, nil, e.logger, e.metrics)
}

func (e *cliEnv) eventWriter() *content.EventWriter {
	return content.NewEventWriter(e.openAI(), e.cfg.Scraper.BaseURL, e.cfg.Scraper.EventsPerPost, e.logger)
}

// imageGenerator picks the backend named by images.backend.
func (e *cliEnv) imageGenerator() imagegen.Generator {
	if e.cfg.Images.Backend == "midjourney" {
		return imagegen.NewMidjourney(e.cfg.Midjourney, upstream.New(midjourneyTimeout, e.metrics), e.logger)
	}
	return imagegen.NewDallE(e.cfg.OpenAI, upstream.New(e.cfg.OpenAI.Timeout, e.metrics))
}

// webServices wires whatever the configured keys allow. Unset services stay
// nil interfaces so the handlers can report SETUP_ERROR.
func (e *cliEnv) webServices() web.Services {
	services := web.Services{Scraper: e.scraper()}
	keys := e.cfg.KeyStatus()
	if keys[config.ServiceOpenAI] {
		chat := e.openAI()
		services.Writer = content.NewEventWriter(chat, e.cfg.Scraper.BaseURL, e.cfg.Scraper.EventsPerPost, e.logger)
		services.Facts = content.NewFactWriter(chat, e.logger)
	}
	if keys[config.ServicePubler] {
		services.Publisher = e.publisher()
	}
	return services
}

// generateCmd creates the generate command.
func generateCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "Collect holidays, write captions and render images into the store",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "holidays", Value: "holidays.json", Usage: "Holidays JSON file (empty to skip)"},
			&cli.BoolFlag{Name: "events", Usage: "Also collect scraped local events"},
			&cli.StringFlag{Name: "start-date", Usage: "First date YYYY-MM-DD (default: today)"},
			&cli.IntFlag{Name: "days-ahead", Value: collector.DefaultDaysAhead, Usage: "Look-ahead window in days"},
			&cli.BoolFlag{Name: "skip-existing", Value: true, Usage: "Keep dates already in the store"},
			&cli.BoolFlag{Name: "no-skip-existing", Usage: "Regenerate dates already in the store"},
			&cli.BoolFlag{Name: "no-images", Usage: "Write captions only; records stay pending"},
			&cli.BoolFlag{Name: "reset-corrupt", Usage: "Back up and reset an unreadable store"},
		},
		Action: func(c *cli.Context) error {
			var daysAhead *int
			if c.IsSet("days-ahead") {
				days := c.Int("days-ahead")
				if days < 0 {
					return outputError(errors.NewInvalidRequest(fmt.Sprintf("--days-ahead must not be negative, got %d", days)))
				}
				daysAhead = &days
			}

			services := []string{config.ServiceOpenAI}
			if !c.Bool("no-images") {
				services = append(services, env.cfg.ImageServices()...)
			}
			if err := env.cfg.Require(services...); err != nil {
				return outputError(err)
			}

			var sources []collector.Source
			if path := c.String("holidays"); path != "" {
				sources = append(sources, collector.FileSource{Path: path})
			}
			if c.Bool("events") {
				src, err := eventSource(env.scraper(), c.String("start-date"), daysAhead)
				if err != nil {
					return outputError(err)
				}
				sources = append(sources, src)
			}
			if len(sources) == 0 {
				return outputError(errors.NewInvalidRequest("nothing to collect: pass --holidays or --events"))
			}

			input := ops.GenerateInput{
				StorePath:    env.cfg.StorePath,
				Sources:      sources,
				Generator:    content.NewGenerator(env.openAI()),
				StartDate:    c.String("start-date"),
				DaysAhead:    daysAhead,
				SkipExisting: c.Bool("skip-existing") && !c.Bool("no-skip-existing"),
				ResetCorrupt: c.Bool("reset-corrupt"),
			}
			if !c.Bool("no-images") {
				input.Assets = &imagegen.Assets{
					Generator: env.imageGenerator(),
					Dir:       env.cfg.Images.Dir,
					Watermark: env.cfg.Images.Watermark,
					Animate:   env.cfg.Images.Animate,
					Logger:    env.logger,
				}
			}

			output, err := ops.Generate(c.Context, env.runtime(), input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// eventSource covers the same window Generate will keep. A nil days uses the
// default window.
func eventSource(s collector.RangeScraper, start string, days *int) (collector.EventSource, error) {
	from := time.Now()
	if start != "" {
		t, err := holiday.ParseDate(start)
		if err != nil {
			return collector.EventSource{}, errors.NewInvalidRequest(fmt.Sprintf("invalid start date %q", start))
		}
		from = t
	}
	window := collector.DefaultDaysAhead
	if days != nil {
		window = *days
	}
	if window < 0 {
		return collector.EventSource{}, errors.NewInvalidRequest(fmt.Sprintf("days ahead must not be negative, got %d", window))
	}
	return collector.EventSource{
		Scraper: s,
		From:    from.Format(holiday.DateLayout),
		To:      from.AddDate(0, 0, window).Format(holiday.DateLayout),
	}, nil
}

// captionsCmd creates the captions command.
func captionsCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:  "captions",
		Usage: "Rewrite captions for existing dates, keeping their images",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "date", Aliases: []string{"d"}, Usage: "Only these dates (repeatable)"},
		},
		Action: func(c *cli.Context) error {
			if err := env.cfg.Require(config.ServiceOpenAI); err != nil {
				return outputError(err)
			}
			output, err := ops.RegenerateCaptions(c.Context, env.runtime(), ops.RegenerateCaptionsInput{
				StorePath: env.cfg.StorePath,
				Generator: content.NewGenerator(env.openAI()),
				Dates:     c.StringSlice("date"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// enhanceCmd creates the enhance command.
func enhanceCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:  "enhance",
		Usage: "Add promotional call-to-action copy to stored captions",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "Re-enhance captions that already have a CTA"},
			&cli.DurationFlag{Name: "delay", Value: time.Second, Usage: "Pause between model calls"},
			&cli.StringSliceFlag{Name: "date", Aliases: []string{"d"}, Usage: "Only these dates (repeatable)"},
		},
		Action: func(c *cli.Context) error {
			if err := env.cfg.Require(config.ServiceOpenAI); err != nil {
				return outputError(err)
			}
			output, err := ops.Enhance(c.Context, env.runtime(), ops.EnhanceInput{
				StorePath: env.cfg.StorePath,
				Enhancer:  content.NewEnhancer(env.openAI()),
				Force:     c.Bool("force"),
				Delay:     c.Duration("delay"),
				Dates:     c.StringSlice("date"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// scrapeCmd creates the scrape command.
func scrapeCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:  "scrape",
		Usage: "Scrape local events into a JSON document",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "from", Usage: "First day YYYY-MM-DD (default: today)"},
			&cli.IntFlag{Name: "days", Value: 1, Usage: "Number of days to scrape"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write the document to this .json file"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.ScrapeEvents(c.Context, env.runtime(), ops.ScrapeEventsInput{
				Scraper: env.scraper(),
				From:    c.String("from"),
				Days:    c.Int("days"),
				Output:  c.String("output"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// brandCmd creates the brand command.
func brandCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:  "brand",
		Usage: "Burn captions and the logo into DDMM.mp4 clips",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "videos", Required: true, Usage: "Directory of DDMM.mp4 clips"},
			&cli.IntFlag{Name: "year", Usage: "Year the clips belong to (default: current year)"},
			&cli.StringFlag{Name: "out", Usage: "Output directory (default: video.branded_dir)"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.BrandVideos(c.Context, env.runtime(), ops.BrandVideosInput{
				StorePath: env.cfg.StorePath,
				VideoDir:  c.String("videos"),
				Year:      c.Int("year"),
				Brander: &video.Brander{
					FFmpegPath: env.cfg.Video.FFmpegPath,
					Logo:       env.cfg.Video.LogoPath,
					OutDir:     cmp.Or(c.String("out"), env.cfg.Video.BrandedDir),
					Logger:     env.logger,
				},
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// publishFlags returns the flags every publish subcommand accepts, plus extra.
func publishFlags(extra ...cli.Flag) []cli.Flag {
	return append(extra,
		&cli.BoolFlag{Name: "dry-run", Usage: "Build the posts without sending them"},
		&cli.StringFlag{Name: "schedule", Usage: "Schedule instead of posting now (e.g. \"2025-12-01 09:00\")"},
		&cli.StringFlag{Name: "platforms", Usage: "Comma-separated platforms (default: publer.platforms)"},
	)
}

// publishOptions reads the shared publish flags.
func publishOptions(c *cli.Context, cfg *config.Config) (ops.PublishOptions, error) {
	opts := ops.PublishOptions{
		Platforms:       cfg.Publer.Platforms,
		AutoDeleteAfter: cfg.Publer.AutoDeleteAfter,
		DryRun:          c.Bool("dry-run"),
	}
	if p := parseList(c.String("platforms")); len(p) > 0 {
		opts.Platforms = p
	}
	if s := c.String("schedule"); s != "" {
		at, err := dateparse.ParseLocal(s)
		if err != nil {
			return opts, errors.NewInvalidRequest(fmt.Sprintf("invalid schedule time %q", s))
		}
		opts.ScheduleAt = &at
	}
	return opts, nil
}

// publishCmd creates the publish command and its subcommands.
func publishCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:  "publish",
		Usage: "Post events, facts, stored dates or branded videos to social platforms",
		Subcommands: []*cli.Command{
			{
				Name:  "events",
				Usage: "Post scraped events for a day as a feed post and a reel",
				Flags: publishFlags(
					&cli.StringFlag{Name: "date", Usage: "Day YYYY-MM-DD (default: today)"},
				),
				Action: func(c *cli.Context) error {
					opts, err := publishOptions(c, env.cfg)
					if err != nil {
						return outputError(err)
					}
					if err := env.cfg.Require(publishServices(opts, config.ServiceOpenAI)...); err != nil {
						return outputError(err)
					}
					input := ops.PostEventsInput{
						Scraper:        env.scraper(),
						Writer:         env.eventWriter(),
						Date:           c.String("date"),
						PublishOptions: opts,
					}
					if !opts.DryRun {
						input.Publisher = env.publisher()
					}
					output, err := ops.PostEvents(c.Context, env.runtime(), input)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "fact",
				Usage: "Post one local fact",
				Flags: publishFlags(),
				Action: func(c *cli.Context) error {
					opts, err := publishOptions(c, env.cfg)
					if err != nil {
						return outputError(err)
					}
					if err := env.cfg.Require(publishServices(opts, config.ServiceOpenAI)...); err != nil {
						return outputError(err)
					}
					input := ops.PostFactInput{
						Facts:          content.NewFactWriter(env.openAI(), env.logger),
						PublishOptions: opts,
					}
					if !opts.DryRun {
						input.Publisher = env.publisher()
					}
					output, err := ops.PostFact(c.Context, env.runtime(), input)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "date",
				Usage:     "Post the stored caption and image for a date",
				ArgsUsage: "<date>",
				Flags:     publishFlags(),
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return outputError(errors.NewInvalidRequest("exactly one date is required"))
					}
					opts, err := publishOptions(c, env.cfg)
					if err != nil {
						return outputError(err)
					}
					if err := env.cfg.Require(publishServices(opts)...); err != nil {
						return outputError(err)
					}
					input := ops.PostDateInput{
						StorePath:      env.cfg.StorePath,
						Date:           c.Args().First(),
						PublishOptions: opts,
					}
					if !opts.DryRun {
						input.Publisher = env.publisher()
					}
					output, err := ops.PostDate(c.Context, env.runtime(), input)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "video",
				Usage: "Post a branded clip as a reel with a promo caption",
				Flags: publishFlags(
					&cli.StringFlag{Name: "dir", Usage: "Directory of branded clips (default: video.branded_dir)"},
					&cli.StringFlag{Name: "video", Usage: "Clip file name in --dir (default: random)"},
				),
				Action: func(c *cli.Context) error {
					opts, err := publishOptions(c, env.cfg)
					if err != nil {
						return outputError(err)
					}
					if err := env.cfg.Require(publishServices(opts)...); err != nil {
						return outputError(err)
					}
					input := ops.PostVideoInput{
						VideoDir:       cmp.Or(c.String("dir"), env.cfg.Video.BrandedDir),
						Video:          c.String("video"),
						PublishOptions: opts,
					}
					if !opts.DryRun {
						input.Publisher = env.publisher()
					}
					output, err := ops.PostVideo(c.Context, env.runtime(), input)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
		},
	}
}

// publishServices adds publer unless the run is dry.
func publishServices(opts ops.PublishOptions, services ...string) []string {
	if !opts.DryRun {
		services = append(services, config.ServicePubler)
	}
	return services
}

// exportPromptsCmd creates the export-prompts command.
func exportPromptsCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:  "export-prompts",
		Usage: "List every image prompt in the store",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Also write the prompts to this .json file"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.ExportPrompts(ops.ExportPromptsInput{
				StorePath: env.cfg.StorePath,
				Output:    c.String("output"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// backupCmd creates the backup command.
func backupCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "Snapshot the store to the configured archive",
		Action: func(c *cli.Context) error {
			arch, err := archive.New(env.cfg.Archive)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.Backup(c.Context, env.runtime(), ops.BackupInput{
				StorePath: env.cfg.StorePath,
				Archiver:  arch,
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// restoreCmd creates the restore command.
func restoreCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:      "restore",
		Usage:     "Replace the store with a snapshot",
		ArgsUsage: "<snapshot-name>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidRequest("exactly one snapshot name is required"))
			}
			arch, err := archive.New(env.cfg.Archive)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.Restore(c.Context, env.runtime(), ops.RestoreInput{
				StorePath: env.cfg.StorePath,
				Archiver:  arch,
				Name:      c.Args().First(),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// statusCmd creates the status command.
func statusCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show store counts, configured keys and recent runs",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "runs", Value: 5, Usage: "Number of recent runs to include"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Status(env.runtime(), ops.StatusInput{
				StorePath:  env.cfg.StorePath,
				Keys:       env.cfg.KeyStatus(),
				RecentRuns: c.Int("runs"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// datesCmd creates the dates command.
func datesCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:      "dates",
		Usage:     "List stored dates, or show one date in full",
		ArgsUsage: "[date]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "filter", Value: "all", Usage: "all|ready|pending"},
			&cli.StringFlag{Name: "from", Usage: "Inclusive lower bound YYYY-MM-DD"},
			&cli.StringFlag{Name: "to", Usage: "Inclusive upper bound YYYY-MM-DD"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 20, Usage: "Max results"},
			&cli.IntFlag{Name: "offset", Usage: "Pagination offset"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() > 0 {
				output, err := ops.GetDate(ops.GetDateInput{
					StorePath: env.cfg.StorePath,
					Date:      c.Args().First(),
				})
				if err != nil {
					return outputError(err)
				}
				return outputJSON(output)
			}
			output, err := ops.ListDates(ops.ListDatesInput{
				StorePath: env.cfg.StorePath,
				Filter:    c.String("filter"),
				From:      c.String("from"),
				To:        c.String("to"),
				Limit:     c.Int("limit"),
				Offset:    c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// lintCmd creates the lint command. It exits 1 when any record has problems.
func lintCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:  "lint",
		Usage: "Check stored records for problems that would break posting",
		Action: func(c *cli.Context) error {
			output, err := ops.Lint(ops.LintInput{StorePath: env.cfg.StorePath})
			if err != nil {
				return outputError(err)
			}
			if err := outputJSON(output); err != nil {
				return err
			}
			if output.Invalid > 0 {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

// runsCmd creates the runs command.
func runsCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "Show recent batch runs",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 20, Usage: "Max results"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.RunHistory(env.db, ops.RunHistoryInput{Limit: c.Int("limit")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// postsCmd creates the posts command.
func postsCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:  "posts",
		Usage: "Show recorded social posts",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "kind", Usage: "Filter by kind: events|fact|date|video"},
			&cli.StringFlag{Name: "date", Usage: "Filter by date YYYY-MM-DD"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 20, Usage: "Max results"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.PostHistory(env.db, ops.PostHistoryInput{
				Kind:  c.String("kind"),
				Date:  c.String("date"),
				Limit: c.Int("limit"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the admin web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Bind address (default: web.bind)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Port (default: web.port)"},
		},
		Action: func(c *cli.Context) error {
			if bind := c.String("bind"); bind != "" {
				env.cfg.Web.Bind = bind
			}
			if port := c.Int("port"); port > 0 {
				env.cfg.Web.Port = port
			}
			srv, err := web.NewServer(web.Options{
				Config:   env.cfg,
				Runtime:  env.runtime(),
				Services: env.webServices(),
				Version:  Version,
			})
			if err != nil {
				return outputError(err)
			}
			if err := web.Run(srv, env.logger); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Run the MCP server on stdio",
		Action: func(c *cli.Context) error {
			if err := mcp.Run(env.db, env.cfg, Version); err != nil {
				return outputError(err)
			}
			return nil
		},
	}
}

// outputJSON writes JSON to stdout.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if mErr := errors.As(err); mErr != nil {
		return cli.Exit(fmt.Sprintf("[%s] %s", mErr.Code, mErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// parseList splits a comma-separated string, dropping blanks.
func parseList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
