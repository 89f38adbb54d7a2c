package entity

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/smileynet/ledgerdeck/internal/action"
	"github.com/smileynet/ledgerdeck/internal/api/apitest"
	"github.com/smileynet/ledgerdeck/internal/fetcher"
	"github.com/smileynet/ledgerdeck/internal/ledger"
	"github.com/smileynet/ledgerdeck/internal/store"
)

func stubFactory(Deps, func(View)) Page { return nil }

func TestRegistry(t *testing.T) {
	t.Run("lookup registered entity", func(t *testing.T) {
		r := NewRegistry()
		r.Register(Definition{Name: ledger.Tokens, Title: "Tokens", New: stubFactory})

		d, err := r.Lookup("tokens")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d.Title != "Tokens" {
			t.Errorf("Title = %q, want Tokens", d.Title)
		}
	})

	t.Run("unknown entity returns UnknownEntityError", func(t *testing.T) {
		r := NewRegistry()
		r.Register(Definition{Name: ledger.Accounts, New: stubFactory})

		_, err := r.Lookup("planets")
		var uee *UnknownEntityError
		if !errors.As(err, &uee) {
			t.Fatalf("expected *UnknownEntityError, got %T", err)
		}
		if uee.Name != "planets" {
			t.Errorf("Name = %q, want planets", uee.Name)
		}
		if len(uee.Available) != 1 || uee.Available[0] != "accounts" {
			t.Errorf("Available = %v, want [accounts]", uee.Available)
		}
	})

	t.Run("tabs keep registration order, available is sorted", func(t *testing.T) {
		r := NewRegistry()
		r.Register(Definition{Name: ledger.Wallets, New: stubFactory})
		r.Register(Definition{Name: ledger.Accounts, New: stubFactory})
		r.Register(Definition{Name: ledger.Wallets, Title: "again", New: stubFactory})

		tabs := r.Tabs()
		if len(tabs) != 2 || tabs[0].Name != ledger.Wallets || tabs[1].Name != ledger.Accounts {
			t.Errorf("Tabs = %+v", tabs)
		}
		if tabs[0].Title != "again" {
			t.Errorf("re-register did not overwrite: %q", tabs[0].Title)
		}
		if got := r.Available(); !sort.StringsAreSorted(got) || len(got) != 2 {
			t.Errorf("Available = %v", got)
		}
	})

	t.Run("register panics on programmer error", func(t *testing.T) {
		for name, d := range map[string]Definition{
			"empty name":  {New: stubFactory},
			"nil factory": {Name: ledger.Users},
		} {
			t.Run(name, func(t *testing.T) {
				defer func() {
					if recover() == nil {
						t.Error("Register did not panic")
					}
				}()
				NewRegistry().Register(d)
			})
		}
	})
}

func TestUnknownEntityError_Message(t *testing.T) {
	err := &UnknownEntityError{Name: "x", Available: []string{"accounts", "tokens"}}
	want := `unknown entity "x" (available: accounts, tokens)`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestBuiltin_RowRendering(t *testing.T) {
	reg := Builtin()

	tests := []struct {
		entity string
		record ledger.Record
		col    int
		want   string
	}{
		{
			entity: "transactions",
			record: ledger.Transaction{
				ID:   "txn_1",
				From: ledger.TransactionSide{AccountID: "acc_1", Amount: "123456", Token: &ledger.Token{Symbol: "OMG", SubunitToUnit: "100"}},
				To:   ledger.TransactionSide{Address: "abcd000000000001"},
			},
			col:  3,
			want: "1,234.56 OMG",
		},
		{
			entity: "transactions",
			record: ledger.Transaction{ID: "txn_2", To: ledger.TransactionSide{Address: "abcd000000000001"}},
			col:    2,
			want:   "abcd000000000001",
		},
		{
			entity: "tokens",
			record: ledger.Token{ID: "tok_1", SubunitToUnit: "1000000000000000000"},
			col:    3,
			want:   "18",
		},
		{
			entity: "access_keys",
			record: ledger.AccessKey{ID: "key_1", Enabled: false},
			col:    3,
			want:   "disabled",
		},
	}
	for _, tt := range tests {
		t.Run(tt.entity+"/"+tt.record.RecordID(), func(t *testing.T) {
			d, err := reg.Lookup(tt.entity)
			if err != nil {
				t.Fatal(err)
			}
			row := d.Row(tt.record)
			if len(row) != len(d.Columns) {
				t.Fatalf("row has %d cells, want %d", len(row), len(d.Columns))
			}
			if row[tt.col] != tt.want {
				t.Errorf("cell %d = %q, want %q", tt.col, row[tt.col], tt.want)
			}
		})
	}
}

func TestBuiltin_RowOfWrongTypeIsBlank(t *testing.T) {
	d, err := Builtin().Lookup("accounts")
	if err != nil {
		t.Fatal(err)
	}
	for i, cell := range d.Row(ledger.Token{ID: "tok_1"}) {
		if cell != "" {
			t.Errorf("cell %d = %q, want blank", i, cell)
		}
	}
}

func TestBuiltin_PageFetchesThroughActions(t *testing.T) {
	// Given a fake API with two accounts and a real store
	srv := apitest.New(t)
	srv.SetList("account.all", []ledger.Account{{ID: "acc_1", Name: "One"}, {ID: "acc_2", Name: "Two"}})
	st := store.New()
	t.Cleanup(st.Close)

	d, err := Builtin().Lookup("accounts")
	if err != nil {
		t.Fatal(err)
	}
	views := make(chan View, 16)
	page := d.New(Deps{
		Actions: action.New(srv.Client(), st),
		Source:  st,
		Options: []fetcher.Option{fetcher.WithSlowAfter(time.Minute)},
	}, func(v View) { views <- v })
	t.Cleanup(page.Close)

	// When the page mounts
	page.Mount(context.Background(), store.Query{Page: 1, PerPage: 10})

	// Then it renders the accounts once the fetch succeeds
	deadline := time.After(2 * time.Second)
	for {
		select {
		case v := <-views:
			if v.Status != store.StatusSuccess {
				continue
			}
			if v.Entity != ledger.Accounts || len(v.Records) != 2 {
				t.Fatalf("view = %+v", v)
			}
			if v.Records[0].RecordID() != "acc_1" {
				t.Errorf("first record = %q", v.Records[0].RecordID())
			}
			return
		case <-deadline:
			t.Fatal("no successful render")
		}
	}
}

func TestBuiltin_ListWithoutFetcher(t *testing.T) {
	srv := apitest.New(t)
	srv.SetList("token.all", []ledger.Token{{ID: "tok_1", Symbol: "OMG"}})
	st := store.New()
	t.Cleanup(st.Close)

	for _, d := range Builtin().Tabs() {
		if d.List == nil {
			t.Errorf("%s has no List", d.Name)
		}
	}

	d, err := Builtin().Lookup("tokens")
	if err != nil {
		t.Fatal(err)
	}
	act, err := d.List(action.New(srv.Client(), st), context.Background(), store.Query{Page: 1})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(act.Data) != 1 || act.Data[0].RecordID() != "tok_1" {
		t.Errorf("List() data = %+v", act.Data)
	}
}
