// Command toolexec is a flag-parsed, one-shot front-end for the core
// pipeline: load a config, resolve one component, run one action, print
// the result. It is explicitly non-core plumbing, the way
// cmd/helm/main.go's flag-dispatched Run(args, stdout, stderr) is
// ambient to HELM's kernel rather than part of it.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	_ "github.com/lib/pq"

	"github.com/ionforge/toolexec/pkg/audit"
	"github.com/ionforge/toolexec/pkg/execconfig"
	"github.com/ionforge/toolexec/pkg/execerr"
	"github.com/ionforge/toolexec/pkg/retry"
	"github.com/ionforge/toolexec/pkg/telemetry"
	"github.com/ionforge/toolexec/pkg/toolexec"
)

func main() {
	os.Exit(Run(os.Args[1:], os.Stdout, os.Stderr))
}

// Run is the testable entrypoint: it never calls os.Exit itself.
func Run(args []string, stdout, stderr io.Writer) int {
	logger := slog.New(slog.NewJSONHandler(stderr, nil))

	fs := flag.NewFlagSet("toolexec", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath string
		component  string
		action     string
		argsJSON   string
		auditDSN   string
	)
	fs.StringVar(&configPath, "config", "", "path to a .json or .yaml ExecConfig (required)")
	fs.StringVar(&component, "component", "", "component name to resolve (required)")
	fs.StringVar(&action, "action", "", "action to invoke (required)")
	fs.StringVar(&argsJSON, "args", "{}", "JSON-encoded action arguments")
	fs.StringVar(&auditDSN, "audit-dsn", "", "optional Postgres DSN for audit logging")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if configPath == "" || component == "" || action == "" {
		fmt.Fprintln(stderr, "usage: toolexec -config <path> -component <name> -action <name> [-args <json>] [-audit-dsn <dsn>]")
		return 2
	}

	var rawArgs json.RawMessage
	if err := json.Unmarshal([]byte(argsJSON), &rawArgs); err != nil {
		fmt.Fprintf(stderr, "toolexec: invalid -args JSON: %v\n", err)
		return 2
	}

	cfg, err := execconfig.Load(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "toolexec: %v\n", err)
		return 2
	}

	backends := toolexec.Backends{Telemetry: telemetry.NewProvider()}
	if auditDSN != "" {
		db, dbErr := sql.Open("postgres", auditDSN)
		if dbErr != nil {
			fmt.Fprintf(stderr, "toolexec: open audit db: %v\n", dbErr)
			return 2
		}
		defer db.Close()
		sink, sinkErr := audit.NewPostgresSink(db, logger)
		if sinkErr != nil {
			fmt.Fprintf(stderr, "toolexec: init audit sink: %v\n", sinkErr)
			return 2
		}
		backends.Audit = sink
	}

	pipeline := func(ctx context.Context, req toolexec.ExecRequest, cfg *execconfig.ExecConfig) (json.RawMessage, error) {
		return toolexec.Run(ctx, req, cfg, backends)
	}

	req := toolexec.ExecRequest{
		Component: component,
		Action:    action,
		Args:      rawArgs,
		Tenant:    &toolexec.TenantCtx{},
	}

	result, runErr := retry.ExecWithRetries(context.Background(), req, cfg, pipeline)
	if runErr != nil {
		logger.Error("exec failed", "component", component, "action", action, "kind", execerr.KindOf(runErr), "error", runErr)
		fmt.Fprintf(stderr, "toolexec: %s\n", execerr.KindOf(runErr))
		return 1
	}

	fmt.Fprintln(stdout, string(result))
	return 0
}
