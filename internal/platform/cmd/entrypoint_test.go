package cmd

import (
	"context"
	"errors"
	"flag"
	"testing"
	"time"
)

type testConfig struct {
	DBPath string `env:"CMD_TEST_DB_PATH" envDefault:"data/currencies.db"`
	Port   int    `env:"CMD_TEST_PORT" envDefault:"8095"`
}

func TestParseConfigReadsEnvAndFlags(t *testing.T) {
	t.Setenv("CMD_TEST_DB_PATH", "env/currencies.db")
	t.Setenv("CMD_TEST_PORT", "9000")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfgRef := testConfig{}
	if err := ParseConfig(&cfgRef); err != nil {
		t.Fatalf("load config defaults: %v", err)
	}
	fs.StringVar(&cfgRef.DBPath, "db-path", cfgRef.DBPath, "db path")
	fs.IntVar(&cfgRef.Port, "port", cfgRef.Port, "port")

	if err := ParseArgs(fs, []string{"-port", "9001"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if cfgRef.Port != 9001 {
		t.Fatalf("expected flag value for port, got %d", cfgRef.Port)
	}
	if cfgRef.DBPath != "env/currencies.db" {
		t.Fatalf("expected env db path, got %q", cfgRef.DBPath)
	}
}

func TestParseConfigRejectsNilTarget(t *testing.T) {
	if err := ParseConfig[testConfig](nil); err == nil {
		t.Fatal("expected nil target error")
	}
}

func TestParseArgsRejectsNilParser(t *testing.T) {
	if err := ParseArgs(nil, []string{}); err == nil {
		t.Fatal("expected parse args to reject nil parser")
	}
}

func TestLogPrefix(t *testing.T) {
	if got := LogPrefix(ServiceCurrencies); got != "[CURRENCIES] " {
		t.Fatalf("prefix = %q, want %q", got, "[CURRENCIES] ")
	}
}

func TestRunWithTelemetryRejectsMissingInputs(t *testing.T) {
	if err := RunWithTelemetry(context.Background(), "", func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected missing service error")
	}
	if err := RunWithTelemetry(context.Background(), ServiceCurrencies, nil); err == nil {
		t.Fatal("expected missing run function error")
	}
}

func TestRunWithTelemetryReturnsRunError(t *testing.T) {
	t.Setenv("CURRENCIES_OTEL_ENDPOINT", "")

	want := errors.New("serve failed")
	err := RunWithTelemetryAndOptions(context.Background(), ServiceMaintenance, RunOptions{ShutdownTimeout: time.Second}, func(context.Context) error {
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("run error = %v, want %v", err, want)
	}
}
