// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// runCommand starts the bot
func runCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Connect Spotify and Twitch chat and serve the now playing overlay",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-chat",
				Usage: "Skip the Twitch connection (overlay and history only)",
			},
			&cli.BoolFlag{
				Name:  "no-browser",
				Usage: "Print the authorization URL instead of opening a browser",
			},
		},
		Action: r.Run,
	}
}

// authCommand checks the Spotify authorization flow
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authorize with Spotify once and report the player state",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-browser",
				Usage: "Print the authorization URL instead of opening a browser",
			},
		},
		Action: r.Auth,
	}
}

// historyCommand handles playback history operations
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Playback history operations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recent plays, newest first",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of plays to show (0 for all)",
						Value: 20,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.HistoryList,
			},
			{
				Name:  "export",
				Usage: "Export the playback history",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format (csv, json, md, txt)",
						Value:   "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
					},
				},
				Action: r.HistoryExport,
			},
			{
				Name:   "clear",
				Usage:  "Delete every history entry",
				Action: r.HistoryClear,
			},
		},
	}
}

// blacklistCommand edits the blacklists offline
func blacklistCommand(r *Runner) *cli.Command {
	kindArgs := []cli.Argument{
		&cli.StringArg{Name: "kind"},
		&cli.StringArg{Name: "value"},
	}

	return &cli.Command{
		Name:  "blacklist",
		Usage: "Track, artist and user blacklist operations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "Show the blacklists",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "kind"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.BlacklistList,
			},
			{
				Name:      "add",
				Usage:     "Add a track, artist (ID or Spotify link) or user",
				Arguments: kindArgs,
				Action:    r.BlacklistAdd,
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Remove a track, artist (ID or Spotify link) or user",
				Arguments: kindArgs,
				Action:    r.BlacklistRemove,
			},
		},
	}
}

// configCommand handles configuration files
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write an example config.toml",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.ConfigInit,
			},
			{
				Name:   "check",
				Usage:  "Validate credentials and print the effective command permissions",
				Action: r.ConfigCheck,
			},
		},
	}
}
