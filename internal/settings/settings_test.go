package settings

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/smileynet/ledgerdeck/internal/ledger"
)

func TestPositiveInteger(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{in: "1"},
		{in: "600"},
		{in: "10.0"},
		{in: "0", wantErr: true},
		{in: "-5", wantErr: true},
		{in: "1.5", wantErr: true},
		{in: "ten", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			err := PositiveInteger(tt.in)
			if (err != nil) != tt.wantErr {
				t.Errorf("PositiveInteger(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
		})
	}
}

func TestRows_FiltersAndSortsByPosition(t *testing.T) {
	// Given configurations mixing catalogued and unrelated keys
	configs := []ledger.Configuration{
		{Key: "blockchain_sync_interval", Value: json.RawMessage(`50`), Position: 30},
		{Key: "base_url", Value: json.RawMessage(`"https://example.com"`), Position: 1},
		{Key: "blockchain_json_rpc_url", Value: json.RawMessage(`"http://localhost:8545"`), Position: 10, Description: "RPC"},
		{Key: "blockchain_chain_id", Value: json.RawMessage(`null`), Position: 20},
	}

	// When rows are built
	rows := Rows(configs)

	// Then only blockchain keys remain, ordered by position
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	wantKeys := []string{"blockchain_json_rpc_url", "blockchain_chain_id", "blockchain_sync_interval"}
	for i, k := range wantKeys {
		if rows[i].Key != k {
			t.Errorf("rows[%d].Key = %q, want %q", i, rows[i].Key, k)
		}
	}
	if rows[0].Value != "http://localhost:8545" || rows[0].DisplayName != "Blockchain JSON-RPC URL" || !rows[0].ReadOnly {
		t.Errorf("rows[0] = %+v", rows[0])
	}
	if rows[1].Value != "" {
		t.Errorf("null value rendered as %q", rows[1].Value)
	}
	if rows[2].Value != "50" || rows[2].ReadOnly {
		t.Errorf("rows[2] = %+v", rows[2])
	}
}

func TestValidateUpdate(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		want    any
		wantErr error
	}{
		{name: "editable integer", key: "blockchain_poll_interval", value: "20", want: int64(20)},
		{name: "read-only", key: "blockchain_chain_id", value: "4", wantErr: ErrReadOnly},
		{name: "unknown", key: "max_per_page", value: "10", wantErr: ErrUnknownKey},
		{name: "not positive", key: "blockchain_sync_interval", value: "0", wantErr: ErrNotPositiveInteger},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateUpdate(tt.key, tt.value)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateUpdate() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v (%T), want %v", got, got, tt.want)
			}
		})
	}
}

func TestCatalogue_ReturnsCopy(t *testing.T) {
	c := Catalogue()
	c[0].ReadOnly = false
	if s, _ := Lookup(c[0].Key); !s.ReadOnly {
		t.Error("modifying Catalogue() result changed the catalogue")
	}
}
