package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/bluescreen10/storefront/cart"
	"github.com/bluescreen10/storefront/gateway"
	"github.com/bluescreen10/storefront/menu"
	"github.com/bluescreen10/storefront/session"
)

var errUnknownItem = errors.New("unknown menu item")

func doLogin(ctx context.Context, cl *client, w io.Writer, email, password string) error {
	if email == "" || password == "" {
		return errors.New("email and password are required")
	}

	tok, err := cl.session.Login(ctx, gateway.Credentials{Email: email, Password: password})
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "logged in as %s\n", tok.Email)
	return nil
}

func doMenu(ctx context.Context, cl *client, w io.Writer, category string) error {
	if err := cl.menu.Load(ctx); err != nil {
		return err
	}

	categories, err := cl.menu.Categories()
	if err != nil {
		return err
	}

	if category != "" {
		if category != menu.All && !slices.Contains(categories, category) {
			category = menu.CategoryFromLabel(category)
		}
		cl.menu.Select(category)
	}

	labels := []string{menu.All}
	for _, c := range categories {
		labels = append(labels, menu.CategoryLabel(c))
	}
	fmt.Fprintln(w, strings.Join(labels, " | "))

	items, err := cl.menu.Visible()
	if err != nil {
		return err
	}
	for _, it := range items {
		fmt.Fprintf(w, "  %-24s %-10s $%s\n", it.Name, it.Type, it.Price.StringFixed(2))
	}
	return nil
}

func doAdd(ctx context.Context, cl *client, w io.Writer, name string) error {
	if err := cl.menu.Load(ctx); err != nil {
		return err
	}

	cat, err := cl.menu.Catalog()
	if err != nil {
		return err
	}

	it, ok := cat.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", errUnknownItem, name)
	}

	cl.cart.Add(it.Name, it.Price, it.Type)
	fmt.Fprintf(w, "added %s (%d in cart)\n", it.Name, cart.Count(cl.cart.Snapshot()))
	return nil
}

func doRemove(cl *client, w io.Writer, name string) error {
	cl.cart.Remove(name)
	fmt.Fprintf(w, "removed %s (%d in cart)\n", name, cart.Count(cl.cart.Snapshot()))
	return nil
}

func doCart(cl *client, w io.Writer) error {
	st := cl.cart.Snapshot()

	fmt.Fprintln(w, cart.Header(st))
	for _, e := range st.Entries() {
		fmt.Fprintf(w, "  %d x %-24s $%s\n", e.Quantity, e.Name, e.InitialPrice.StringFixed(2))
	}
	if !st.Empty() {
		fmt.Fprintf(w, "Total: $%s\n", cart.FormatTotal(st))
	}
	return nil
}

func doLogout(ctx context.Context, cl *client, w io.Writer) error {
	report, err := cl.session.Logout(ctx)
	if errors.Is(err, session.ErrNoSession) {
		fmt.Fprintln(w, "not logged in")
		return nil
	}
	if err != nil {
		return err
	}

	for _, warn := range report.Warnings {
		cl.log.Warn().Err(warn).Msg("logout completed with a remote failure")
	}
	return nil
}

func doRefresh(ctx context.Context, cl *client, w io.Writer) error {
	cl.menu.Invalidate()
	if err := cl.menu.Load(ctx); err != nil {
		return err
	}

	items, err := cl.menu.Items()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "menu refreshed (%d items)\n", len(items))
	return nil
}
