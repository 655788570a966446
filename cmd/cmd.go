// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

const (
	defaultConfigPath = "config.toml"
	cookieEnv         = "CLOUDMATCH_COOKIE"
)

// app is the root command.
func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:    "cloudmatch",
		Usage:   "Match songs in a NetEase Cloud Music drive to catalog entries",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   defaultConfigPath,
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Before:   r.Before,
		After:    r.After,
		Commands: r.register(),
	}
}

// cookieFlag lets scripted runs skip the QR login.
func cookieFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "cookie",
		Usage:   "Session cookie (MUSIC_U=...), a copied cURL command or @file, instead of a QR login",
		Sources: cli.EnvVars(cookieEnv),
	}
}

func pageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "page",
			Aliases: []string{"p"},
			Usage:   "Page number, 1-based",
			Value:   1,
		},
		&cli.IntFlag{
			Name:    "limit",
			Aliases: []string{"l"},
			Usage:   "Songs per page (default from config)",
		},
	}
}

// setupCommand handles configuration setup.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write a config.toml populated with defaults",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Where to write the file",
						Value:   defaultConfigPath,
					},
				},
				Action: r.SetupConfig,
			},
		},
	}
}

// loginCommand runs a login and prints the account.
func loginCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Log in with a QR code and show the account and drive usage",
		Flags: []cli.Flag{
			cookieFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the identity as JSON",
			},
		},
		Action: r.Login,
	}
}

// songsCommand lists one page of the drive.
func songsCommand(r *Runner) *cli.Command {
	flags := append(pageFlags(),
		cookieFlag(),
		&cli.StringFlag{
			Name:    "search",
			Aliases: []string{"s"},
			Usage:   "Only songs whose name, artist or album contains this text",
		},
		&cli.StringFlag{
			Name:  "sort",
			Usage: "Sort keys, e.g. added:desc,name",
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: text, json, csv or markdown",
			Value:   "text",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Shorthand for --format json",
		},
		&cli.BoolFlag{
			Name:  "csv",
			Usage: "Shorthand for --format csv",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write to a file instead of stdout",
		},
	)

	return &cli.Command{
		Name:    "songs",
		Aliases: []string{"ls"},
		Usage:   "List songs in the cloud drive",
		Flags:   flags,
		Action:  r.Songs,
	}
}

// matchCommand matches one song or a CSV batch.
func matchCommand(r *Runner) *cli.Command {
	flags := append(pageFlags(),
		cookieFlag(),
		&cli.StringFlag{
			Name:  "song",
			Usage: "Cloud song id to match",
		},
		&cli.StringFlag{
			Name:    "target",
			Aliases: []string{"t"},
			Usage:   "Catalog song id to match it to",
		},
		&cli.StringFlag{
			Name:    "batch",
			Aliases: []string{"b"},
			Usage:   "CSV file of song_id,target_id rows",
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "Concurrent matches for --batch",
			Value: 3,
		},
		&cli.Float64Flag{
			Name:  "rate",
			Usage: "Match requests per second for --batch",
			Value: 2,
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Log output format: text, json or csv",
			Value:   "text",
		},
	)

	return &cli.Command{
		Name:   "match",
		Usage:  "Match cloud songs to catalog ids",
		Flags:  flags,
		Action: r.Match,
	}
}

// apiCommand handles direct (proxy) API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct calls to the NeteaseCloudMusicApi proxy",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET to the proxy, prints raw JSON",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					cookieFlag(),
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.APIGet,
			},
			{
				Name:  "post",
				Usage: "Direct POST with JSON body",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					cookieFlag(),
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "JSON body to send",
						Required: true,
					},
				},
				Action: r.APIPost,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive matcher",
		Flags:   []cli.Flag{cookieFlag()},
		Action:  r.TUI,
	}
}
