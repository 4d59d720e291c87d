// Package maintenance inspects and edits a currency database from the command line.
package maintenance

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/ithrek/syncadapter-currencies/internal/platform/config"
	platformgrpc "github.com/ithrek/syncadapter-currencies/internal/platform/grpc"
	"github.com/ithrek/syncadapter-currencies/internal/platform/timeouts"
	currencyservice "github.com/ithrek/syncadapter-currencies/internal/services/currency/api/grpc/currency"
	"github.com/ithrek/syncadapter-currencies/internal/services/currency/storage"
	"github.com/ithrek/syncadapter-currencies/internal/services/currency/storage/sqlite"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Config holds maintenance command configuration.
type Config struct {
	DBPath      string        `env:"CURRENCIES_DB_PATH"`
	Addr        string        `env:"CURRENCIES_MAINTENANCE_ADDR"`
	Timeout     time.Duration `env:"CURRENCIES_MAINTENANCE_TIMEOUT" envDefault:"1m"`
	List        bool
	GetID       int64
	HasGetID    bool
	Pending     bool
	Latest      bool
	Ack         bool
	DeleteID    int64
	HasDeleteID bool
	Version     bool
	JSONOutput  bool
}

// ParseConfig parses environment defaults and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return parseFlags(fs, args, cfg)
}

func parseConfigFrom(fs *flag.FlagSet, args []string, environ map[string]string) (Config, error) {
	var cfg Config
	if err := config.ParseEnvFrom(&cfg, environ); err != nil {
		return Config{}, err
	}
	return parseFlags(fs, args, cfg)
}

func parseFlags(fs *flag.FlagSet, args []string, cfg Config) (Config, error) {
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = filepath.Join("data", "currencies.db")
	}

	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "path to currency sqlite database (default: CURRENCIES_DB_PATH or data/currencies.db)")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "address of a running currency server; when set the database is not opened")
	fs.BoolVar(&cfg.List, "list", false, "list every currency")
	fs.Int64Var(&cfg.GetID, "get", 0, "print the currency with this id")
	fs.BoolVar(&cfg.Pending, "pending", false, "print the newest currency still awaiting a backend id")
	fs.BoolVar(&cfg.Latest, "latest", false, "print the currency with the largest backend id")
	fs.BoolVar(&cfg.Ack, "ack", false, "mark every pending currency as acknowledged")
	fs.Int64Var(&cfg.DeleteID, "delete", 0, "delete the currency with this id")
	fs.BoolVar(&cfg.Version, "version", false, "print the applied schema version of the local database")
	fs.BoolVar(&cfg.JSONOutput, "json", false, "output JSON reports")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "overall timeout")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	// Ids are caller supplied, so 0 is a valid key; track presence separately.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "get":
			cfg.HasGetID = true
		case "delete":
			cfg.HasDeleteID = true
		}
	})
	return cfg, nil
}

type action string

const (
	actionList    action = "list"
	actionGet     action = "get"
	actionPending action = "pending"
	actionLatest  action = "latest"
	actionAck     action = "ack"
	actionDelete  action = "delete"
	actionVersion action = "version"
)

// resolveAction picks the single requested action; no flag means list.
func resolveAction(cfg Config) (action, error) {
	var selected []action
	if cfg.List {
		selected = append(selected, actionList)
	}
	if cfg.HasGetID {
		selected = append(selected, actionGet)
	}
	if cfg.Pending {
		selected = append(selected, actionPending)
	}
	if cfg.Latest {
		selected = append(selected, actionLatest)
	}
	if cfg.Ack {
		selected = append(selected, actionAck)
	}
	if cfg.HasDeleteID {
		selected = append(selected, actionDelete)
	}
	if cfg.Version {
		selected = append(selected, actionVersion)
	}
	switch len(selected) {
	case 0:
		return actionList, nil
	case 1:
		return selected[0], nil
	default:
		names := make([]string, len(selected))
		for i, a := range selected {
			names[i] = "-" + string(a)
		}
		return "", fmt.Errorf("only one action may be given, got %s", strings.Join(names, ", "))
	}
}

// Run executes the maintenance command.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	act, err := resolveAction(cfg)
	if err != nil {
		return err
	}
	if act == actionVersion && strings.TrimSpace(cfg.Addr) != "" {
		return errors.New("-version reads the database file and cannot be combined with -addr")
	}

	store, closeStore, err := openStore(ctx, cfg, errOut)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := closeStore(); closeErr != nil {
			fmt.Fprintf(errOut, "Error: close currency store: %v\n", closeErr)
		}
	}()

	rep, err := runAction(ctx, store, act, cfg)
	if err != nil {
		return err
	}
	if cfg.JSONOutput {
		return outputJSON(out, rep)
	}
	printReport(out, rep)
	return nil
}

func openStore(ctx context.Context, cfg Config, errOut io.Writer) (storage.CurrencyStore, func() error, error) {
	if addr := strings.TrimSpace(cfg.Addr); addr != "" {
		logf := func(format string, args ...any) {
			fmt.Fprintf(errOut, format+"\n", args...)
		}
		conn, err := platformgrpc.Connect(ctx, addr, currencyservice.ServiceName, timeouts.GRPCDial, logf, platformgrpc.DefaultClientDialOptions()...)
		if err != nil {
			return nil, nil, fmt.Errorf("connect currency server: %w", err)
		}
		return currencyservice.NewClient(conn), conn.Close, nil
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open currency store: %w", err)
	}
	return store, store.Close, nil
}

type currencyRow struct {
	ID           int64   `json:"id"`
	BackendID    int64   `json:"id_backend"`
	Name         string  `json:"name"`
	Abbreviation string  `json:"abbreviation"`
	Value        float64 `json:"value"`
	IsRead       bool    `json:"is_read"`
	State        string  `json:"state"`
}

type report struct {
	Action        action        `json:"action"`
	Count         int64         `json:"count"`
	SchemaVersion int           `json:"schema_version,omitempty"`
	Currencies    []currencyRow `json:"currencies"`
}

type versionedStore interface {
	SchemaVersion(ctx context.Context) (int, error)
}

func runAction(ctx context.Context, store storage.CurrencyStore, act action, cfg Config) (report, error) {
	rep := report{Action: act, Currencies: []currencyRow{}}
	addOne := func(currency storage.Currency, found bool, err error) (report, error) {
		if err != nil {
			return report{}, err
		}
		if found {
			rep.Count = 1
			rep.Currencies = append(rep.Currencies, toRow(currency))
		}
		return rep, nil
	}

	switch act {
	case actionList:
		for currency, err := range store.ListCurrencies(ctx) {
			if err != nil {
				return report{}, fmt.Errorf("list currencies: %w", err)
			}
			rep.Currencies = append(rep.Currencies, toRow(currency))
		}
		rep.Count = int64(len(rep.Currencies))
		return rep, nil
	case actionGet:
		return addOne(store.GetCurrency(ctx, cfg.GetID))
	case actionPending:
		return addOne(store.GetLastUnsyncedCurrency(ctx))
	case actionLatest:
		return addOne(store.GetMostRecentSyncedCurrency(ctx))
	case actionAck:
		changed, err := store.AcknowledgeUnsyncedCurrencies(ctx)
		if err != nil {
			return report{}, fmt.Errorf("acknowledge unsynced currencies: %w", err)
		}
		rep.Count = changed
		return rep, nil
	case actionDelete:
		removed, err := store.DeleteCurrency(ctx, cfg.DeleteID)
		if err != nil {
			return report{}, fmt.Errorf("delete currency %d: %w", cfg.DeleteID, err)
		}
		rep.Count = removed
		return rep, nil
	case actionVersion:
		versioned, ok := store.(versionedStore)
		if !ok {
			return report{}, errors.New("schema version is only available for a local database")
		}
		version, err := versioned.SchemaVersion(ctx)
		if err != nil {
			return report{}, fmt.Errorf("read schema version: %w", err)
		}
		rep.SchemaVersion = version
		return rep, nil
	default:
		return report{}, errors.New("unknown action")
	}
}

func toRow(currency storage.Currency) currencyRow {
	return currencyRow{
		ID:           currency.ID,
		BackendID:    currency.BackendID,
		Name:         currency.Name,
		Abbreviation: currency.Abbreviation,
		Value:        currency.Value,
		IsRead:       currency.IsRead,
		State:        currency.SyncState().String(),
	}
}

func outputJSON(out io.Writer, rep report) error {
	encoded, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	fmt.Fprintln(out, string(encoded))
	return nil
}

func printReport(out io.Writer, rep report) {
	p := message.NewPrinter(language.English)
	switch rep.Action {
	case actionAck:
		p.Fprintf(out, "Acknowledged %d pending currencies\n", rep.Count)
		return
	case actionDelete:
		p.Fprintf(out, "Deleted %d currencies\n", rep.Count)
		return
	case actionVersion:
		p.Fprintf(out, "Schema version %d\n", rep.SchemaVersion)
		return
	}

	if len(rep.Currencies) == 0 {
		p.Fprintf(out, "No currency found\n")
		return
	}
	for _, row := range rep.Currencies {
		p.Fprintf(out, "%6d  %-5s %-24s %14.4f  backend=%d state=%s read=%t\n",
			row.ID, row.Abbreviation, row.Name, row.Value, row.BackendID, row.State, row.IsRead)
	}
	if rep.Action == actionList {
		p.Fprintf(out, "%d currencies\n", rep.Count)
	}
}
