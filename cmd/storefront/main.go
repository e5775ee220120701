// Command storefront is a terminal client for the food ordering service.
//
// Every invocation behaves like a page load: it reopens the configured
// local store, so the cart and the session survive between invocations.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/rs/zerolog"
	"github.com/urfave/cli"

	"github.com/bluescreen10/storefront/config"
)

var version = "zero"

type metadata struct {
	cfg *config.Config
	log zerolog.Logger
	r   io.Reader
	w   io.Writer
}

func main() {
	app := newApp(os.Stdin, os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

func newApp(r io.Reader, w, e io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = "storefront"
	app.Usage = "order food from the terminal"
	app.Version = version
	app.HideVersion = true
	app.Writer = w
	app.ErrWriter = e
	app.Metadata = map[string]interface{}{}

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config, c",
			Value:  "",
			Usage:  " YAML configuration `FILE`",
			EnvVar: "STOREFRONT_CONFIG",
		},
		cli.StringFlag{
			Name:  "api-url, a",
			Value: "",
			Usage: " order service base `URL`",
		},
		cli.StringFlag{
			Name:  "store, s",
			Value: "",
			Usage: " local store `BACKEND` [memory|sqlite|redis|mysql]",
		},
		cli.StringFlag{
			Name:  "dsn, d",
			Value: "",
			Usage: " local store `DSN`",
		},
		cli.BoolFlag{
			Name:  "verbose, v",
			Usage: " debug logging",
		},
	}

	app.Commands = []cli.Command{
		{
			Name:   "serve",
			Usage:  "run the reference order service",
			Action: runServe,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "addr",
					Value: "",
					Usage: " listen `ADDRESS`",
				},
				cli.StringSliceFlag{
					Name:  "user, u",
					Usage: " register `EMAIL:PASSWORD`",
				},
				cli.StringFlag{
					Name:  "catalog",
					Value: "",
					Usage: " menu catalog JSON `FILE`",
				},
			},
		},
		{
			Name:      "login",
			Usage:     "create a session",
			ArgsUsage: "EMAIL PASSWORD",
			Action: withClient(func(ctx context.Context, cl *client, c *cli.Context, w io.Writer) error {
				return doLogin(ctx, cl, w, c.Args().Get(0), c.Args().Get(1))
			}),
		},
		{
			Name:  "menu",
			Usage: "show the menu",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "type, t",
					Value: "",
					Usage: " only show items of `CATEGORY`",
				},
			},
			Action: withClient(func(ctx context.Context, cl *client, c *cli.Context, w io.Writer) error {
				return doMenu(ctx, cl, w, c.String("type"))
			}),
		},
		{
			Name:      "add",
			Usage:     "add one unit of a menu item to the cart",
			ArgsUsage: "NAME",
			Action: withClient(func(ctx context.Context, cl *client, c *cli.Context, w io.Writer) error {
				return doAdd(ctx, cl, w, itemName(c))
			}),
		},
		{
			Name:      "remove",
			Usage:     "remove one unit of an item from the cart",
			ArgsUsage: "NAME",
			Action: withClient(func(ctx context.Context, cl *client, c *cli.Context, w io.Writer) error {
				return doRemove(cl, w, itemName(c))
			}),
		},
		{
			Name:  "cart",
			Usage: "show the cart",
			Action: withClient(func(ctx context.Context, cl *client, c *cli.Context, w io.Writer) error {
				return doCart(cl, w)
			}),
		},
		{
			Name:  "logout",
			Usage: "submit the cart and end the session",
			Action: withClient(func(ctx context.Context, cl *client, c *cli.Context, w io.Writer) error {
				return doLogout(ctx, cl, w)
			}),
		},
		{
			Name:  "menu-refresh",
			Usage: "drop the cached menu and fetch it again",
			Action: withClient(func(ctx context.Context, cl *client, c *cli.Context, w io.Writer) error {
				return doRefresh(ctx, cl, w)
			}),
		},
		{
			Name:   "shell",
			Usage:  "interactive session, exposes metrics when metrics_addr is set",
			Action: runShell,
		},
	}

	app.Before = func(c *cli.Context) error {
		cfg, err := config.Load(c.GlobalString("config"))
		if err != nil {
			return err
		}

		if v := c.GlobalString("api-url"); v != "" {
			cfg.APIURL = v
		}
		if v := c.GlobalString("store"); v != "" {
			cfg.Store.Backend = v
		}
		if v := c.GlobalString("dsn"); v != "" {
			cfg.Store.DSN = v
		}
		if c.GlobalBool("verbose") {
			cfg.LogLevel = "debug"
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		lvl, _ := cfg.Level()
		log := zerolog.New(zerolog.ConsoleWriter{Out: c.App.ErrWriter}).
			Level(lvl).
			With().Timestamp().Logger()

		c.App.Metadata["config"] = &metadata{
			cfg: cfg,
			log: log,
			r:   r,
			w:   c.App.Writer,
		}
		return nil
	}

	return app
}

type action func(ctx context.Context, cl *client, c *cli.Context, w io.Writer) error

// withClient opens a client for the duration of one command.
func withClient(fn action) func(*cli.Context) error {
	return func(c *cli.Context) error {
		m := c.App.Metadata["config"].(*metadata)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		cl, err := newClient(m.cfg, m.log, m.w)
		if err != nil {
			return err
		}
		defer cl.Close()

		return fn(ctx, cl, c, m.w)
	}
}

func itemName(c *cli.Context) string {
	return strings.Join(c.Args(), " ")
}
