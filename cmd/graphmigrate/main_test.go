package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dfryer1193/graphmigrate/api"
	"github.com/dfryer1193/graphmigrate/internal/config"
	"github.com/dfryer1193/graphmigrate/internal/data/repository/dse"
	"github.com/dfryer1193/graphmigrate/internal/data/repository/sqlite"
	"github.com/dfryer1193/graphmigrate/internal/rest/handlers"
)

func TestFlags(t *testing.T) {
	testCases := []struct {
		name    string
		args    []string
		env     config.Env
		check   func(t *testing.T, opts *options)
		wantErr string
	}{
		{
			name: "defaults",
			args: []string{"-H", "10.0.0.1,10.0.0.2"},
			env:  config.Env{LogLevel: "info"},
			check: func(t *testing.T, opts *options) {
				if len(opts.hosts) != 2 || opts.hosts[1] != "10.0.0.2" {
					t.Errorf("hosts = %v", opts.hosts)
				}
				if opts.port != 9042 || opts.configPath != config.DefaultPath || opts.maxVersion != 0 || opts.ssl {
					t.Errorf("unexpected defaults: %+v", opts)
				}
				if opts.logLevel != "info" {
					t.Errorf("logLevel = %q, want info", opts.logLevel)
				}
			},
		},
		{
			name: "all flags",
			args: []string{"-H", "dse", "-c", "conf/migrate.yaml", "-m", "production", "-p", "9142", "-s",
				"-u", "admin", "-P", "secret", "-v", "7", "--log-level", "debug"},
			check: func(t *testing.T, opts *options) {
				if opts.configPath != "conf/migrate.yaml" || opts.profile != "production" || opts.port != 9142 {
					t.Errorf("unexpected options: %+v", opts)
				}
				if !opts.ssl || opts.username != "admin" || opts.password != "secret" || opts.maxVersion != 7 {
					t.Errorf("unexpected options: %+v", opts)
				}
				if opts.logLevel != "debug" {
					t.Errorf("logLevel = %q, want debug", opts.logLevel)
				}
			},
		},
		{
			name: "credentials from env",
			args: []string{"-H", "dse"},
			env:  config.Env{Username: "cassandra", Password: "cassandra", LedgerDSN: "postgres://ledger"},
			check: func(t *testing.T, opts *options) {
				if opts.username != "cassandra" || opts.password != "cassandra" || opts.ledgerDSN != "postgres://ledger" {
					t.Errorf("env not applied: %+v", opts)
				}
			},
		},
		{
			name: "flags win over env",
			args: []string{"-H", "dse", "-u", "admin", "-P", "secret"},
			env:  config.Env{Username: "cassandra", Password: "cassandra"},
			check: func(t *testing.T, opts *options) {
				if opts.username != "admin" || opts.password != "secret" {
					t.Errorf("flags should win: %+v", opts)
				}
			},
		},
		{
			name:    "username without password",
			args:    []string{"-H", "dse", "-u", "admin"},
			wantErr: "--username requires --password",
		},
		{
			name:    "no hosts",
			args:    []string{"-H", ""},
			wantErr: "--hosts is required",
		},
		{
			name:    "bad port",
			args:    []string{"-H", "dse", "-p", "0"},
			wantErr: "invalid port",
		},
		{
			name:    "negative max version",
			args:    []string{"-H", "dse", "-v", "-1"},
			wantErr: "--max-version",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			opts := &options{}
			cmd := newRootCmd(opts, tc.env)
			if err := cmd.ParseFlags(tc.args); err != nil {
				t.Fatalf("ParseFlags() unexpected error: %v", err)
			}

			err := opts.complete(cmd, tc.env)
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("complete() error = %v, want %q", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("complete() unexpected error: %v", err)
			}
			tc.check(t, opts)
		})
	}
}

func TestHostsRequired(t *testing.T) {
	cmd := newRootCmd(&options{}, config.Env{})
	cmd.SetArgs([]string{"-c", "missing.yaml"})
	var output bytes.Buffer
	cmd.SetOut(&output)
	cmd.SetErr(&output)

	err := cmd.Execute()
	if err == nil || err.Error() != "--hosts is required" {
		t.Fatalf("expected missing hosts error, got %v", err)
	}
	if !strings.Contains(output.String(), "Usage:") {
		t.Errorf("expected usage on a missing flag, got %q", output.String())
	}
}

func TestSubcommands(t *testing.T) {
	cmd := newRootCmd(&options{}, config.Env{})
	for _, name := range []string{"status", "serve", "drop"} {
		sub, _, err := cmd.Find([]string{name})
		if err != nil || sub.Name() != name {
			t.Errorf("subcommand %s not registered: %v", name, err)
		}
	}
}

func TestPrintStatus(t *testing.T) {
	appliedAt := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	statuses := []api.MigrationStatus{
		{FileName: "v001_property_keys.gremlin", Version: 1, Checksum: "725b63a6", State: api.MigrationStateApplied, AppliedAt: &appliedAt},
		{FileName: "v002_vertex_labels.gremlin", Version: 2, Checksum: "051a0c30", State: api.MigrationStateConflict,
			RecordedChecksum: "deadbeef", AppliedAt: &appliedAt},
		{FileName: "v003_seed_data.groovy", Version: 3, Checksum: "0c0ffee0", State: api.MigrationStateNew},
	}

	var buf bytes.Buffer
	if err := printStatus(&buf, statuses); err != nil {
		t.Fatalf("printStatus() unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "VERSION") {
		t.Errorf("missing header: %q", lines[0])
	}
	for i, want := range []string{"001", "applied", "2024-03-01 09:30:00"} {
		if !strings.Contains(lines[2], want) {
			t.Errorf("line %d missing %q: %q", i, want, lines[2])
		}
	}
	if !strings.Contains(lines[3], "recorded deadbeef") {
		t.Errorf("conflict line should show the recorded checksum: %q", lines[3])
	}
	if !strings.HasSuffix(strings.TrimSpace(lines[4]), "-") {
		t.Errorf("new migration should have no applied time: %q", lines[4])
	}
}

func writeConfig(t *testing.T, contents string) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "graph-migrate.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	return cfg
}

func TestOpenLedger(t *testing.T) {
	ctx := context.Background()

	t.Run("graph", func(t *testing.T) {
		cfg := writeConfig(t, "schema: social\nmigrationPath: migrations\n")
		ledger, err := openLedger(ctx, cfg, nil, "")
		if err != nil {
			t.Fatalf("openLedger() unexpected error: %v", err)
		}
		if _, ok := ledger.(*dse.LedgerRepository); !ok {
			t.Errorf("expected graph ledger, got %T", ledger)
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		cfg := writeConfig(t, "schema: social\nmigrationPath: migrations\nledger:\n  backend: sqlite\n  path: state/ledger.db\n")
		ledger, err := openLedger(ctx, cfg, nil, "")
		if err != nil {
			t.Fatalf("openLedger() unexpected error: %v", err)
		}
		defer ledger.Close()

		if _, ok := ledger.(*sqlite.LedgerRepository); !ok {
			t.Errorf("expected sqlite ledger, got %T", ledger)
		}
		if _, err := os.Stat(filepath.Dir(cfg.LedgerPath())); err != nil {
			t.Errorf("ledger directory not created next to the config: %v", err)
		}
	})

	t.Run("postgres bad port", func(t *testing.T) {
		cfg := writeConfig(t, "schema: social\nmigrationPath: migrations\nledger:\n  backend: postgres\n  port: 70000\n")
		if _, err := openLedger(ctx, cfg, nil, ""); err == nil {
			t.Error("expected error for invalid port")
		}
	})

	t.Run("postgres bad dsn from env", func(t *testing.T) {
		cfg := writeConfig(t, "schema: social\nmigrationPath: migrations\nledger:\n  backend: postgres\n")
		if _, err := openLedger(ctx, cfg, nil, "postgres://localhost:notaport/db"); err == nil {
			t.Error("expected error for unparsable dsn")
		}
	})
}

type staticStatus []api.MigrationStatus

func (s staticStatus) Status(_ context.Context) ([]api.MigrationStatus, error) {
	return s, nil
}

func TestRouter(t *testing.T) {
	router := newRouter(handlers.NewMigrationHandler(staticStatus{
		{FileName: "v001_property_keys.gremlin", Version: 1, State: api.MigrationStateNew},
	}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/migrations/v1", nil))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected a generated X-Request-ID header")
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/migrations/v1/v009_missing.gremlin", nil)
	req.Header.Set("X-Request-ID", "req-42")
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if got := w.Header().Get("X-Request-ID"); got != "req-42" {
		t.Errorf("X-Request-ID = %q, want req-42", got)
	}
}

func TestServeStopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := serve(ctx, "127.0.0.1:0", http.NotFoundHandler()); err != nil {
		t.Errorf("serve() unexpected error: %v", err)
	}
}

func TestServeListenError(t *testing.T) {
	if err := serve(context.Background(), "not-an-address", http.NotFoundHandler()); err == nil {
		t.Error("expected listen error")
	}
}
