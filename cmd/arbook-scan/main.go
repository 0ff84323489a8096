// Command arbook-scan recognizes book pages in image files from the command
// line. It prints one JSON object per frame.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/urfave/cli/v2"
)

// Version is set by ldflags during build.
var Version = "dev"

const (
	flagBook   = "book"
	flagFrames = "frames"
	flagAll    = "all"
	flagSettle = "settle"
)

func newApp() *cli.App {
	bookFlag := &cli.StringFlag{
		Name:     flagBook,
		Aliases:  []string{"b"},
		Usage:    "book `DIR` holding config.txt and the page images",
		Required: true,
	}
	return &cli.App{
		Name:            "arbook-scan",
		Usage:           "recognize AR book pages in image files",
		Version:         Version,
		HideHelpCommand: true,
		Commands: []*cli.Command{
			{
				Name:      "scan",
				Usage:     "process frames in order as one video sequence",
				ArgsUsage: "FRAME...",
				Flags:     []cli.Flag{bookFlag},
				Action:    scanAction,
			},
			{
				Name:  "watch",
				Usage: "process frames as they appear in a directory",
				Flags: []cli.Flag{
					bookFlag,
					&cli.StringFlag{
						Name:     flagFrames,
						Aliases:  []string{"f"},
						Usage:    "`DIR` to watch for new frames",
						Required: true,
					},
					&cli.DurationFlag{
						Name:  flagSettle,
						Usage: "quiet time after the last write before a frame is read",
						Value: 250 * time.Millisecond,
					},
				},
				Action: watchAction,
			},
			{
				Name:  "inspect",
				Usage: "print a summary of a book",
				Flags: []cli.Flag{
					bookFlag,
					&cli.BoolFlag{
						Name:  flagAll,
						Usage: "also list the page images and their training size",
					},
				},
				Action: inspectAction,
			},
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "arbook-scan: %v\n", err)
		os.Exit(1)
	}
}
