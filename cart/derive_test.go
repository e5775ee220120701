package cart_test

import (
	"testing"

	"github.com/bluescreen10/storefront/cart"
)

func TestTotalEmptyCart(t *testing.T) {
	var st cart.State

	if !cart.Total(st).IsZero() {
		t.Fatalf("expected '0' got '%s'", cart.Total(st))
	}

	if got := cart.FormatTotal(st); got != "0.00" {
		t.Fatalf("expected '0.00' got '%s'", got)
	}

	if got := cart.Count(st); got != 0 {
		t.Fatalf("expected '0' got '%d'", got)
	}

	if got := cart.Header(st); got != "Your Cart is empty" {
		t.Fatalf("expected 'Your Cart is empty' got '%s'", got)
	}
}

func TestTotalAndCount(t *testing.T) {
	c := cart.NewStore(newStorage())

	c.Add("Margherita", price("9.99"), "Pizza")
	c.Add("Margherita", price("9.99"), "Pizza")
	c.Add("Margherita", price("9.99"), "Pizza")
	c.Add("Cola", price("0.10"), "Drink")
	c.Add("Cola", price("0.20"), "Drink")

	snap := c.Snapshot()

	if expected := price("30.17"); !cart.Total(snap).Equal(expected) {
		t.Fatalf("expected '%s' got '%s'", expected, cart.Total(snap))
	}

	if got := cart.Count(snap); got != 5 {
		t.Fatalf("expected '5' got '%d'", got)
	}

	if got := cart.Header(snap); got != "Your Cart" {
		t.Fatalf("expected 'Your Cart' got '%s'", got)
	}
}

func TestTotalIsExactAndRoundsOnlyForDisplay(t *testing.T) {
	c := cart.NewStore(newStorage())

	c.Add("Slice", price("0.333"), "Pizza")
	c.Add("Slice", price("0.333"), "Pizza")
	c.Add("Slice", price("0.333"), "Pizza")

	snap := c.Snapshot()
	if !cart.Total(snap).Equal(price("0.999")) {
		t.Fatalf("expected exact '0.999' got '%s'", cart.Total(snap))
	}

	if got := cart.FormatTotal(snap); got != "1.00" {
		t.Fatalf("expected '1.00' got '%s'", got)
	}
}

func TestDerivationsFollowEveryMutation(t *testing.T) {
	c := cart.NewStore(newStorage())

	var totals []string
	c.Subscribe(func(s cart.State) {
		totals = append(totals, cart.FormatTotal(s))
	})

	c.Add("Margherita", price("9.50"), "Pizza")
	c.Add("Cola", price("1.25"), "Drink")
	c.Remove("Margherita")
	c.Clear()

	expected := []string{"9.50", "10.75", "1.25", "0.00"}
	if len(totals) != len(expected) {
		t.Fatalf("expected '%v' got '%v'", expected, totals)
	}
	for i := range expected {
		if totals[i] != expected[i] {
			t.Fatalf("expected '%v' got '%v'", expected, totals)
		}
	}
}
