package taxlots_test

import (
	"context"
	"errors"
	"testing"

	"github.com/etnz/taxlots"
	"github.com/etnz/taxlots/date"
	"github.com/etnz/taxlots/memstore"
	"github.com/rs/zerolog"
)

func USD(v float64) taxlots.Money  { return taxlots.M(v, "USD") }
func Q(v float64) taxlots.Quantity { return taxlots.Q(v) }
func day(s string) date.Date       { return date.MustParse(s) }

// newBook returns a book on an empty in-memory repository.
func newBook(t *testing.T) (*taxlots.Book, *memstore.Repository) {
	t.Helper()
	repo := memstore.New()
	return taxlots.NewBook(repo, zerolog.Nop()), repo
}

func addSecurity(t *testing.T, book *taxlots.Book, symbol string) taxlots.Security {
	t.Helper()
	sec, err := taxlots.NewSecurity(symbol, "", "", "USD")
	if err != nil {
		t.Fatalf("NewSecurity() error = %v", err)
	}
	if err := book.AddSecurity(context.Background(), sec); err != nil {
		t.Fatalf("AddSecurity() error = %v", err)
	}
	return sec
}

func acquire(t *testing.T, book *taxlots.Book, account string, sec taxlots.Security, on string, quantity, cost float64) taxlots.TaxLot {
	t.Helper()
	lot, err := book.Acquire(context.Background(), taxlots.Acquisition{
		AccountID:    account,
		SecurityID:   sec.ID,
		Date:         day(on),
		Quantity:     Q(quantity),
		CostPerShare: USD(cost),
	})
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	return lot
}

func TestBook_ExecuteSale(t *testing.T) {
	ctx := context.Background()
	book, _ := newBook(t)
	aapl := addSecurity(t, book, "AAPL")
	lot1 := acquire(t, book, "broker", aapl, "2023-01-15", 50, 100)
	lot2 := acquire(t, book, "broker", aapl, "2023-06-15", 50, 120)

	dispositions, err := book.ExecuteSale(ctx, taxlots.Sale{
		PositionID: lot1.PositionID(),
		Quantity:   Q(70),
		Proceeds:   USD(9800),
		Date:       day("2024-06-15"),
		Method:     taxlots.FIFO,
	})
	if err != nil {
		t.Fatalf("ExecuteSale() error = %v", err)
	}
	if len(dispositions) != 2 || dispositions[0].LotID != lot1.ID() || dispositions[1].LotID != lot2.ID() {
		t.Fatalf("ExecuteSale() = %+v, want lot1 then lot2", dispositions)
	}
	if !dispositions[0].CostBasis.Equal(USD(5000)) || !dispositions[1].CostBasis.Equal(USD(2400)) {
		t.Errorf("cost basis = %v, %v, want $5,000.00, $2,400.00", dispositions[0].CostBasis, dispositions[1].CostBasis)
	}

	open, err := book.OpenLots(ctx, lot1.PositionID())
	if err != nil {
		t.Fatalf("OpenLots() error = %v", err)
	}
	if len(open) != 1 || open[0].ID() != lot2.ID() || !open[0].RemainingQuantity().Equal(Q(30)) {
		t.Errorf("OpenLots() = %d lots, want lot2 with 30 shares", len(open))
	}

	pos, err := book.Position(ctx, lot1.PositionID())
	if err != nil {
		t.Fatalf("Position() error = %v", err)
	}
	if !pos.Quantity.Equal(Q(30)) || !pos.CostBasis.Equal(USD(3600)) {
		t.Errorf("position = %v shares, basis %v, want 30 shares, $3,600.00", pos.Quantity, pos.CostBasis)
	}

	closed, err := book.ClosedLots(ctx, lot1.PositionID(), 2024)
	if err != nil {
		t.Fatalf("ClosedLots() error = %v", err)
	}
	if len(closed) != 1 || closed[0].ID() != lot1.ID() {
		t.Errorf("ClosedLots(2024) = %d lots, want lot1", len(closed))
	}
	if closed, _ := book.ClosedLots(ctx, lot1.PositionID(), 2023); len(closed) != 0 {
		t.Errorf("ClosedLots(2023) = %d lots, want none", len(closed))
	}
}

func TestBook_ExecuteSale_NothingWrittenOnError(t *testing.T) {
	ctx := context.Background()
	book, _ := newBook(t)
	aapl := addSecurity(t, book, "AAPL")
	lot := acquire(t, book, "broker", aapl, "2023-01-15", 100, 100)

	sales := []struct {
		name string
		sale taxlots.Sale
		want error
	}{
		{"too many", taxlots.Sale{Quantity: Q(101), Proceeds: USD(1), Method: taxlots.FIFO}, taxlots.ErrInsufficientLots},
		{"zero", taxlots.Sale{Quantity: Q(0), Proceeds: USD(1), Method: taxlots.LIFO}, taxlots.ErrInvalidQuantity},
		{"unknown lot", taxlots.Sale{Quantity: Q(1), Proceeds: USD(1), Method: taxlots.SpecificID, LotIDs: []string{"nope"}}, taxlots.ErrInvalidLotSelection},
		// lots acquired after the sale are not eligible.
		{"before acquisition", taxlots.Sale{Quantity: Q(1), Proceeds: USD(1), Method: taxlots.FIFO, Date: day("2022-12-31")}, taxlots.ErrInsufficientLots},
	}
	for _, tt := range sales {
		t.Run(tt.name, func(t *testing.T) {
			sale := tt.sale
			sale.PositionID = lot.PositionID()
			if sale.Date.IsZero() {
				sale.Date = day("2024-01-15")
			}
			if _, err := book.ExecuteSale(ctx, sale); !errors.Is(err, tt.want) {
				t.Errorf("ExecuteSale() error = %v, want %v", err, tt.want)
			}
			open, err := book.OpenLots(ctx, lot.PositionID())
			if err != nil {
				t.Fatal(err)
			}
			if len(open) != 1 || !open[0].RemainingQuantity().Equal(Q(100)) {
				t.Errorf("failed sale changed the lot")
			}
		})
	}

	if _, err := book.ExecuteSale(ctx, taxlots.Sale{PositionID: "nope", Quantity: Q(1), Date: day("2024-01-15")}); !errors.Is(err, taxlots.ErrNotFound) {
		t.Errorf("ExecuteSale(unknown position) error = %v, want ErrNotFound", err)
	}
}

func TestBook_ExecuteSale_SpecificClosedLot(t *testing.T) {
	ctx := context.Background()
	book, _ := newBook(t)
	aapl := addSecurity(t, book, "AAPL")
	lot1 := acquire(t, book, "broker", aapl, "2023-01-15", 10, 100)
	acquire(t, book, "broker", aapl, "2023-06-15", 10, 120)

	sale := taxlots.Sale{PositionID: lot1.PositionID(), Quantity: Q(10), Proceeds: USD(1100), Date: day("2024-01-15"), Method: taxlots.FIFO}
	if _, err := book.ExecuteSale(ctx, sale); err != nil {
		t.Fatalf("ExecuteSale() error = %v", err)
	}

	sale.Method, sale.LotIDs, sale.Quantity = taxlots.SpecificID, []string{lot1.ID()}, Q(5)
	if _, err := book.ExecuteSale(ctx, sale); !errors.Is(err, taxlots.ErrInvalidLotSelection) {
		t.Errorf("ExecuteSale(closed lot) error = %v, want ErrInvalidLotSelection", err)
	}
}

func TestBook_Acquire(t *testing.T) {
	ctx := context.Background()
	book, _ := newBook(t)
	aapl := addSecurity(t, book, "AAPL")

	first := acquire(t, book, "broker", aapl, "2023-01-15", 10, 100)
	second := acquire(t, book, "broker", aapl, "2023-02-15", 10, 110)
	other := acquire(t, book, "ira", aapl, "2023-02-15", 5, 110)

	if first.PositionID() != second.PositionID() {
		t.Error("lots of the same account and security are in different positions")
	}
	if first.PositionID() == other.PositionID() {
		t.Error("lots of different accounts share a position")
	}
	if second.Seq() <= first.Seq() {
		t.Errorf("creation order %d <= %d", second.Seq(), first.Seq())
	}

	pos, err := book.FindPosition(ctx, "broker", aapl.ID)
	if err != nil {
		t.Fatalf("FindPosition() error = %v", err)
	}
	if !pos.Quantity.Equal(Q(20)) || !pos.CostBasis.Equal(USD(2100)) {
		t.Errorf("position = %v shares, basis %v, want 20, $2,100.00", pos.Quantity, pos.CostBasis)
	}

	invalid := []taxlots.Acquisition{
		{AccountID: "broker", SecurityID: "unknown", Date: day("2023-01-15"), Quantity: Q(1), CostPerShare: USD(1)},
		{AccountID: "broker", SecurityID: aapl.ID, Date: day("2023-01-15"), Quantity: Q(0), CostPerShare: USD(1)},
		{AccountID: "broker", SecurityID: aapl.ID, Date: day("2023-01-15"), Quantity: Q(1), CostPerShare: taxlots.M(1, "EUR")},
		{AccountID: "", SecurityID: aapl.ID, Date: day("2023-01-15"), Quantity: Q(1), CostPerShare: USD(1)},
	}
	for i, a := range invalid {
		if _, err := book.Acquire(ctx, a); err == nil {
			t.Errorf("invalid acquisition #%d succeeded", i)
		}
	}
	lots, err := book.Lots(ctx, first.PositionID())
	if err != nil {
		t.Fatal(err)
	}
	if len(lots) != 2 {
		t.Errorf("failed acquisitions added lots: %d lots, want 2", len(lots))
	}
}

func TestBook_LookupSecurity(t *testing.T) {
	ctx := context.Background()
	book, _ := newBook(t)
	sec, err := taxlots.NewSecurity("AAPL", "037833100", "US0378331005", "USD")
	if err != nil {
		t.Fatal(err)
	}
	if err := book.AddSecurity(ctx, sec); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"AAPL", "037833100"} {
		got, err := book.LookupSecurity(ctx, key)
		if err != nil {
			t.Errorf("LookupSecurity(%q) error = %v", key, err)
			continue
		}
		if got.ID != sec.ID {
			t.Errorf("LookupSecurity(%q) = %s, want %s", key, got.ID, sec.ID)
		}
	}
	if _, err := book.LookupSecurity(ctx, "MSFT"); !errors.Is(err, taxlots.ErrNotFound) {
		t.Errorf("LookupSecurity(MSFT) error = %v, want ErrNotFound", err)
	}
}

func TestBook_UpdatePrice(t *testing.T) {
	ctx := context.Background()
	book, _ := newBook(t)
	aapl := addSecurity(t, book, "AAPL")
	lot := acquire(t, book, "broker", aapl, "2023-01-15", 10, 100)

	if err := book.UpdatePrice(ctx, aapl.ID, USD(150)); err != nil {
		t.Fatalf("UpdatePrice() error = %v", err)
	}
	pos, err := book.Position(ctx, lot.PositionID())
	if err != nil {
		t.Fatal(err)
	}
	if !pos.MarketValue.Equal(USD(1500)) || !pos.UnrealizedGain().Equal(USD(500)) {
		t.Errorf("position value %v, gain %v, want $1,500.00, $500.00", pos.MarketValue, pos.UnrealizedGain())
	}
	if err := book.UpdatePrice(ctx, aapl.ID, taxlots.M(150, "EUR")); err == nil {
		t.Error("UpdatePrice(EUR) succeeded, want error")
	}
}

func TestBook_WashSale(t *testing.T) {
	ctx := context.Background()
	book, _ := newBook(t)
	aapl := addSecurity(t, book, "AAPL")
	lot := acquire(t, book, "broker", aapl, "2024-01-15", 10, 100)
	replacement := acquire(t, book, "broker", aapl, "2024-06-20", 10, 90)

	dispositions, err := book.ExecuteSale(ctx, taxlots.Sale{
		PositionID: lot.PositionID(),
		Quantity:   Q(10),
		Proceeds:   USD(905),
		Date:       day("2024-06-15"),
		Method:     taxlots.FIFO,
	})
	if err != nil {
		t.Fatalf("ExecuteSale() error = %v", err)
	}
	loss := taxlots.Summarize(dispositions).Loss()
	if !loss.Equal(USD(95)) {
		t.Fatalf("loss = %v, want $95.00", loss)
	}

	candidates, err := book.FindWashSaleCandidates(ctx, lot.PositionID(), day("2024-06-15"), loss)
	if err != nil {
		t.Fatalf("FindWashSaleCandidates() error = %v", err)
	}
	// the sold lot is outside the window, the replacement is in.
	if len(candidates) != 1 || candidates[0].ID() != replacement.ID() {
		t.Fatalf("FindWashSaleCandidates() = %d lots, want the replacement", len(candidates))
	}

	if err := book.MarkWashSale(ctx, replacement.ID(), loss); err != nil {
		t.Fatalf("MarkWashSale() error = %v", err)
	}
	open, err := book.OpenLots(ctx, lot.PositionID())
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 1 || !open[0].WashSaleDisallowed() || !open[0].AdjustedTotalCost().Equal(USD(995)) {
		t.Errorf("replacement lot not adjusted")
	}

	if err := book.MarkWashSale(ctx, "nope", loss); !errors.Is(err, taxlots.ErrNotFound) {
		t.Errorf("MarkWashSale(unknown) error = %v, want ErrNotFound", err)
	}
	if candidates, _ := book.FindWashSaleCandidates(ctx, lot.PositionID(), day("2024-06-15"), USD(0)); len(candidates) != 0 {
		t.Errorf("FindWashSaleCandidates(no loss) = %d lots, want none", len(candidates))
	}
}

func TestBook_EntityPositions(t *testing.T) {
	ctx := context.Background()
	book, _ := newBook(t)
	aapl := addSecurity(t, book, "AAPL")
	for _, account := range []string{"broker", "ira"} {
		if _, err := book.Acquire(ctx, taxlots.Acquisition{
			AccountID: account, EntityID: "alice", SecurityID: aapl.ID,
			Date: day("2023-01-15"), Quantity: Q(1), CostPerShare: USD(100),
		}); err != nil {
			t.Fatal(err)
		}
	}
	acquire(t, book, "joint", aapl, "2023-01-15", 1, 100)

	positions, err := book.EntityPositions(ctx, "alice")
	if err != nil {
		t.Fatalf("EntityPositions() error = %v", err)
	}
	if len(positions) != 2 {
		t.Errorf("EntityPositions() = %d positions, want 2", len(positions))
	}
	if positions, _ := book.AccountPositions(ctx, "joint"); len(positions) != 1 {
		t.Errorf("AccountPositions() = %d positions, want 1", len(positions))
	}
}

func TestBook_OpenPosition(t *testing.T) {
	ctx := context.Background()
	book, _ := newBook(t)
	aapl := addSecurity(t, book, "AAPL")

	pos, err := book.OpenPosition(ctx, "broker", "alice", aapl.ID)
	if err != nil {
		t.Fatalf("OpenPosition() error = %v", err)
	}
	if !pos.Quantity.IsZero() || pos.EntityID != "alice" {
		t.Errorf("OpenPosition() = %+v, want an empty position of alice", pos)
	}
	again, err := book.OpenPosition(ctx, "broker", "alice", aapl.ID)
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != pos.ID {
		t.Errorf("second OpenPosition() = %s, want the same position %s", again.ID, pos.ID)
	}
	if _, err := book.OpenPosition(ctx, "broker", "", "unknown"); !errors.Is(err, taxlots.ErrNotFound) {
		t.Errorf("OpenPosition(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestBook_LotsAcquired(t *testing.T) {
	ctx := context.Background()
	book, _ := newBook(t)
	aapl := addSecurity(t, book, "AAPL")
	acquire(t, book, "broker", aapl, "2022-12-31", 1, 100)
	in := acquire(t, book, "broker", aapl, "2023-01-01", 1, 100)
	last := acquire(t, book, "broker", aapl, "2023-12-31", 1, 100)
	acquire(t, book, "broker", aapl, "2024-01-01", 1, 100)

	lots, err := book.LotsAcquired(ctx, in.PositionID(), date.Year(2023))
	if err != nil {
		t.Fatalf("LotsAcquired() error = %v", err)
	}
	if len(lots) != 2 || lots[0].ID() != in.ID() || lots[1].ID() != last.ID() {
		t.Errorf("LotsAcquired(2023) = %d lots, want the two 2023 lots", len(lots))
	}
}
