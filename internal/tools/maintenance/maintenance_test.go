package maintenance

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	currencyservice "github.com/ithrek/syncadapter-currencies/internal/services/currency/api/grpc/currency"
	"github.com/ithrek/syncadapter-currencies/internal/services/currency/storage"
	"github.com/ithrek/syncadapter-currencies/internal/services/currency/storage/sqlite"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("maintenance", flag.ContinueOnError)
	cfg, err := parseConfigFrom(fs, nil, map[string]string{})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DBPath != filepath.Join("data", "currencies.db") {
		t.Fatalf("expected default db path, got %q", cfg.DBPath)
	}
	if cfg.Timeout != time.Minute {
		t.Fatalf("expected default timeout 1m, got %v", cfg.Timeout)
	}
	if cfg.Addr != "" {
		t.Fatalf("expected empty addr, got %q", cfg.Addr)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	fs := flag.NewFlagSet("maintenance", flag.ContinueOnError)
	environ := map[string]string{
		"CURRENCIES_DB_PATH":             "env.db",
		"CURRENCIES_MAINTENANCE_TIMEOUT": "30s",
	}
	args := []string{"-db-path", "flag.db", "-get", "7", "-json"}
	cfg, err := parseConfigFrom(fs, args, environ)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DBPath != "flag.db" {
		t.Fatalf("expected flag override for db path, got %q", cfg.DBPath)
	}
	if cfg.Timeout != 30*time.Second {
		t.Fatalf("expected env timeout 30s, got %v", cfg.Timeout)
	}
	if cfg.GetID != 7 || !cfg.HasGetID || !cfg.JSONOutput {
		t.Fatalf("expected -get 7 -json, got get=%d set=%t json=%t", cfg.GetID, cfg.HasGetID, cfg.JSONOutput)
	}
}

func TestParseConfigAcceptsZeroIDs(t *testing.T) {
	fs := flag.NewFlagSet("maintenance", flag.ContinueOnError)
	cfg, err := parseConfigFrom(fs, []string{"-delete", "0"}, map[string]string{})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if !cfg.HasDeleteID || cfg.DeleteID != 0 {
		t.Fatalf("expected -delete 0 to be recorded, got set=%t id=%d", cfg.HasDeleteID, cfg.DeleteID)
	}
	if cfg.HasGetID {
		t.Fatal("expected -get to stay unset")
	}
	got, err := resolveAction(cfg)
	if err != nil {
		t.Fatalf("resolve action: %v", err)
	}
	if got != actionDelete {
		t.Fatalf("action = %q, want %q", got, actionDelete)
	}
}

func TestResolveAction(t *testing.T) {
	tests := []struct {
		cfg     Config
		want    action
		wantErr bool
	}{
		{cfg: Config{}, want: actionList},
		{cfg: Config{List: true}, want: actionList},
		{cfg: Config{GetID: 3, HasGetID: true}, want: actionGet},
		{cfg: Config{HasGetID: true}, want: actionGet},
		{cfg: Config{Pending: true}, want: actionPending},
		{cfg: Config{Latest: true}, want: actionLatest},
		{cfg: Config{Ack: true}, want: actionAck},
		{cfg: Config{DeleteID: 4, HasDeleteID: true}, want: actionDelete},
		{cfg: Config{Version: true}, want: actionVersion},
		{cfg: Config{Ack: true, DeleteID: 4, HasDeleteID: true}, wantErr: true},
	}

	for _, tc := range tests {
		got, err := resolveAction(tc.cfg)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("expected error for %+v", tc.cfg)
			}
			continue
		}
		if err != nil {
			t.Fatalf("unexpected error for %+v: %v", tc.cfg, err)
		}
		if got != tc.want {
			t.Fatalf("action = %q, want %q", got, tc.want)
		}
	}
}

func seedDB(t *testing.T, currencies ...storage.Currency) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "currencies.db")
	store, err := sqlite.Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	for _, currency := range currencies {
		if _, err := store.InsertCurrency(context.Background(), currency); err != nil {
			t.Fatalf("insert %d: %v", currency.ID, err)
		}
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}
	return path
}

func TestRunListText(t *testing.T) {
	path := seedDB(t,
		storage.Currency{ID: 1, Name: "Euro", Abbreviation: "EUR", Value: 1.1},
		storage.Currency{ID: 2, BackendID: 12, Name: "Dollar", Abbreviation: "USD", Value: 1},
	)

	var out bytes.Buffer
	if err := Run(context.Background(), Config{DBPath: path, List: true}, &out, nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	text := out.String()
	for _, want := range []string{"EUR", "USD", "state=pending", "state=synced", "2 currencies"} {
		if !strings.Contains(text, want) {
			t.Fatalf("output %q missing %q", text, want)
		}
	}
}

func TestRunAckThenPendingJSON(t *testing.T) {
	path := seedDB(t,
		storage.Currency{ID: 1, Name: "Euro", Abbreviation: "EUR", Value: 1.1},
		storage.Currency{ID: 2, Name: "Dollar", Abbreviation: "USD", Value: 1},
	)

	var out bytes.Buffer
	if err := Run(context.Background(), Config{DBPath: path, Ack: true, JSONOutput: true}, &out, nil); err != nil {
		t.Fatalf("run ack: %v", err)
	}
	var ack report
	if err := json.Unmarshal(out.Bytes(), &ack); err != nil {
		t.Fatalf("decode ack report: %v", err)
	}
	if ack.Action != actionAck || ack.Count != 2 {
		t.Fatalf("ack report = %+v, want 2 acknowledged", ack)
	}

	out.Reset()
	if err := Run(context.Background(), Config{DBPath: path, Pending: true, JSONOutput: true}, &out, nil); err != nil {
		t.Fatalf("run pending: %v", err)
	}
	var pending report
	if err := json.Unmarshal(out.Bytes(), &pending); err != nil {
		t.Fatalf("decode pending report: %v", err)
	}
	if pending.Count != 0 || len(pending.Currencies) != 0 {
		t.Fatalf("pending report = %+v, want empty", pending)
	}
}

func TestRunGetAndDeleteZeroID(t *testing.T) {
	path := seedDB(t, storage.Currency{ID: 0, Name: "Zloty", Abbreviation: "PLN", Value: 0.25})

	var out bytes.Buffer
	if err := Run(context.Background(), Config{DBPath: path, HasGetID: true, JSONOutput: true}, &out, nil); err != nil {
		t.Fatalf("run get: %v", err)
	}
	var got report
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode get report: %v", err)
	}
	if got.Action != actionGet || got.Count != 1 || got.Currencies[0].Abbreviation != "PLN" {
		t.Fatalf("get report = %+v, want PLN", got)
	}

	out.Reset()
	if err := Run(context.Background(), Config{DBPath: path, HasDeleteID: true, JSONOutput: true}, &out, nil); err != nil {
		t.Fatalf("run delete: %v", err)
	}
	var deleted report
	if err := json.Unmarshal(out.Bytes(), &deleted); err != nil {
		t.Fatalf("decode delete report: %v", err)
	}
	if deleted.Count != 1 {
		t.Fatalf("deleted = %d, want 1", deleted.Count)
	}
}

func TestRunVersion(t *testing.T) {
	path := seedDB(t)

	var out bytes.Buffer
	if err := Run(context.Background(), Config{DBPath: path, Version: true}, &out, nil); err != nil {
		t.Fatalf("run version: %v", err)
	}
	if !strings.Contains(out.String(), "Schema version 2") {
		t.Fatalf("output = %q, want schema version 2", out.String())
	}

	err := Run(context.Background(), Config{Addr: "127.0.0.1:1", Version: true}, nil, nil)
	if err == nil {
		t.Fatal("expected -version with -addr to fail")
	}
}

func TestRunGetMissingText(t *testing.T) {
	path := seedDB(t)

	var out bytes.Buffer
	if err := Run(context.Background(), Config{DBPath: path, GetID: 99, HasGetID: true}, &out, nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "No currency found") {
		t.Fatalf("output = %q, want not-found message", out.String())
	}
}

func TestRunRejectsConflictingActions(t *testing.T) {
	err := Run(context.Background(), Config{DBPath: filepath.Join(t.TempDir(), "x.db"), Ack: true, Latest: true}, nil, nil)
	if err == nil {
		t.Fatal("expected error for conflicting actions")
	}
}

func TestRunAgainstServer(t *testing.T) {
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "currencies.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if _, err := store.InsertCurrency(context.Background(), storage.Currency{ID: 5, BackendID: 40, Name: "Pound", Abbreviation: "GBP", Value: 1.3}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	currencyservice.RegisterCurrencyServiceServer(grpcServer, currencyservice.NewService(store))
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(currencyservice.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	go func() {
		_ = grpcServer.Serve(listener)
	}()
	t.Cleanup(grpcServer.Stop)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out bytes.Buffer
	if err := Run(ctx, Config{Addr: listener.Addr().String(), Latest: true, JSONOutput: true}, &out, nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	var rep report
	if err := json.Unmarshal(out.Bytes(), &rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if rep.Count != 1 || rep.Currencies[0].Abbreviation != "GBP" {
		t.Fatalf("report = %+v, want GBP", rep)
	}
}
