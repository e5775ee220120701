package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/urfave/cli"

	"github.com/bluescreen10/storefront/metrics"
)

const shellHelp = `commands:
  login EMAIL PASSWORD
  menu [CATEGORY]
  add NAME
  remove NAME
  cart
  logout
  refresh
  quit`

func runShell(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cl, err := newClient(m.cfg, m.log, m.w)
	if err != nil {
		return err
	}
	defer cl.Close()

	stopCleanup := cl.startCleanup(m.cfg.Store.CleanupInterval)
	defer stopCleanup()

	if addr := m.cfg.MetricsAddr; addr != "" {
		srv := &http.Server{Addr: addr, Handler: metrics.Handler(cl.registry)}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				m.log.Error().Err(err).Msg("metrics server stopped")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
		m.log.Info().Str("addr", addr).Msg("serving metrics")
	}

	return shell(ctx, cl, m.r, m.w)
}

// shell runs commands read line by line from r until quit or EOF. Command
// errors are printed and do not end the shell.
func shell(ctx context.Context, cl *client, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	fmt.Fprint(w, "> ")

	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			fmt.Fprint(w, "> ")
			continue
		}

		cmd, args := fields[0], fields[1:]
		if cmd == "quit" || cmd == "exit" {
			return nil
		}

		if err := dispatch(ctx, cl, w, cmd, args); err != nil {
			fmt.Fprintf(w, "error: %s\n", err)
		}
		fmt.Fprint(w, "> ")
	}
	return scanner.Err()
}

func dispatch(ctx context.Context, cl *client, w io.Writer, cmd string, args []string) error {
	arg := func(i int) string {
		if i < len(args) {
			return args[i]
		}
		return ""
	}

	switch cmd {
	case "login":
		return doLogin(ctx, cl, w, arg(0), arg(1))
	case "menu":
		return doMenu(ctx, cl, w, arg(0))
	case "add":
		return doAdd(ctx, cl, w, strings.Join(args, " "))
	case "remove":
		return doRemove(cl, w, strings.Join(args, " "))
	case "cart":
		return doCart(cl, w)
	case "logout":
		return doLogout(ctx, cl, w)
	case "refresh":
		return doRefresh(ctx, cl, w)
	case "help":
		fmt.Fprintln(w, shellHelp)
		return nil
	default:
		return fmt.Errorf("unknown command %q, try help", cmd)
	}
}
