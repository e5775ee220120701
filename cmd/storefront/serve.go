package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli"

	"github.com/bluescreen10/storefront/devserver"
	"github.com/bluescreen10/storefront/menu"
)

func defaultCatalog() menu.Catalog {
	item := func(name, price, typ string) menu.Item {
		return menu.Item{Name: name, Price: decimal.RequireFromString(price), Type: typ}
	}

	return menu.NewCatalog(
		item("Margherita", "9.50", "Pizza"),
		item("Pepperoni", "11.25", "Pizza"),
		item("Quattro Formaggi", "12.00", "Pizza"),
		item("Carbonara", "10.75", "Pasta"),
		item("Arrabbiata", "8.40", "Pasta"),
		item("Cola", "1.99", "Drink"),
		item("Sparkling Water", "1.50", "Drink"),
		item("Tiramisu", "5.00", "Dessert"),
	)
}

func loadCatalog(path string) (menu.Catalog, error) {
	if path == "" {
		return defaultCatalog(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return menu.Catalog{}, fmt.Errorf("failed to read catalog: %w", err)
	}

	var cat menu.Catalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return menu.Catalog{}, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}
	return cat, nil
}

func runServe(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)

	cat, err := loadCatalog(c.String("catalog"))
	if err != nil {
		return err
	}

	users := make(map[string]string, len(m.cfg.Serve.Users))
	for email, password := range m.cfg.Serve.Users {
		users[email] = password
	}
	for _, u := range c.StringSlice("user") {
		email, password, ok := strings.Cut(u, ":")
		if !ok || email == "" || password == "" {
			return fmt.Errorf("invalid user %q, expected EMAIL:PASSWORD", u)
		}
		users[email] = password
	}

	dev := devserver.New(
		devserver.WithCatalog(cat),
		devserver.WithUsers(users),
		devserver.WithTokenTTL(m.cfg.Serve.TokenTTL),
		devserver.WithTokenHeader(m.cfg.TokenHeader),
		devserver.WithLogger(m.log),
	)

	addr := m.cfg.Serve.Addr
	if v := c.String("addr"); v != "" {
		addr = v
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           dev.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		m.log.Info().Str("addr", addr).Int("items", cat.Len()).Msg("order service listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
