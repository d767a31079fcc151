package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/routethat/playsim/internal/api"
	"github.com/routethat/playsim/internal/config"
	"github.com/routethat/playsim/internal/dispatcher"
	"github.com/routethat/playsim/internal/geo"
	"github.com/routethat/playsim/internal/monitor"
	"github.com/routethat/playsim/internal/playbook"
	"github.com/routethat/playsim/internal/session"
	"github.com/routethat/playsim/internal/storage/memory"
	"github.com/routethat/playsim/internal/worker"
	"github.com/routethat/playsim/pkg/core"
	"github.com/spf13/viper"
)

// out is where command output goes; tests swap it.
var out io.Writer = os.Stdout

func dispatch(ctx context.Context, name string, payload any) (any, error) {
	c, err := dispatcher.NewCommand(name, payload)
	if err != nil {
		return nil, err
	}
	return eventDispatcher.Dispatch(ctx, c)
}

func printJSON(v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// runPlay simulates one play headless: run [play] [seed]
func runPlay(ctx context.Context, args []string) error {
	req := worker.SimulateRequest{}
	if len(args) > 0 {
		req.Play = args[0]
	}
	if len(args) > 1 {
		seed, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid seed %q: %w", args[1], err)
		}
		req.Seed = seed
	}

	res, err := dispatch(ctx, worker.CmdSimulate, req)
	if err != nil && !errors.Is(err, session.ErrTickLimit) {
		return err
	}
	if err != nil {
		Logger.Warn("Play stopped at tick limit", "limit", viper.GetInt("sim.maxTicks"))
	}
	resp, ok := res.(*worker.SimulateResponse)
	if !ok {
		return fmt.Errorf("unexpected simulate result %T", res)
	}

	r := resp.Result
	fmt.Fprintf(out, "%s vs %s: %s", r.PlayName, r.Coverage, r.Status)
	if r.Target != "" {
		fmt.Fprintf(out, " (target %s)", r.Target)
	}
	fmt.Fprintf(out, " in %d ticks\n", r.Ticks)
	if resp.ExportPath != "" {
		fmt.Fprintln(out, "exported to", resp.ExportPath)
	}
	return printJSON(r)
}

func serve(ctx context.Context) error {
	srv := api.NewServer(config.GetAPIConfig(), api.Dependencies{
		Dispatcher: eventDispatcher,
		Workers:    workerManager,
		Logger:     Logger,
		Secret:     viper.GetString("stream.secret"),
	})

	mon := monitor.NewService(monitor.Dependencies{
		LogManager:  SlogManager,
		Influx:      influxManager,
		Storage:     storageBackend,
		Connections: srv.Connections,
		StatusFile:  filepath.Join(viper.GetString("logsDir"), "status.json"),
		Interval:    viper.GetDuration("monitor.interval"),
	})
	if err := mon.Start(); err != nil {
		return err
	}
	defer mon.Stop()

	return srv.ListenAndServe(ctx)
}

func playsCommand(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("plays: missing subcommand\n\n%s", usage)
	}

	switch args[0] {
	case "list":
		res, err := dispatch(ctx, worker.CmdPlaysList, nil)
		if err != nil {
			return err
		}
		plays, _ := res.([]core.SavedPlay)
		if len(plays) == 0 {
			fmt.Fprintln(out, "no stored plays")
			return nil
		}
		for _, p := range plays {
			fmt.Fprintf(out, "%s\t%d routes\n", p.Name, len(p.Routes))
		}
		return nil

	case "builtin":
		for _, name := range playbook.Names() {
			fmt.Fprintln(out, name)
		}
		return nil

	case "save":
		if len(args) < 3 {
			return fmt.Errorf("usage: plays save <name> <file>")
		}
		data, err := os.ReadFile(args[2])
		if err != nil {
			return err
		}
		routes, err := geo.ParseRouteSpec(data)
		if err != nil {
			return err
		}
		if _, err := dispatch(ctx, worker.CmdPlaysSave, core.SavedPlay{Name: args[1], Routes: routes}); err != nil {
			return err
		}
		fmt.Fprintf(out, "saved %q\n", args[1])
		return nil

	case "delete":
		if len(args) < 2 {
			return fmt.Errorf("usage: plays delete <name>")
		}
		if _, err := dispatch(ctx, worker.CmdPlaysDelete, worker.DeleteRequest{Name: args[1]}); err != nil {
			return err
		}
		fmt.Fprintf(out, "deleted %q\n", args[1])
		return nil

	case "import":
		if len(args) < 2 {
			return fmt.Errorf("usage: plays import <file>")
		}
		return importPlays(ctx, args[1])

	default:
		return fmt.Errorf("plays: unknown subcommand %q", args[0])
	}
}

// importPlays stores every play of a JSON array file, stopping at the first failure.
func importPlays(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var plays []core.SavedPlay
	if err := json.Unmarshal(data, &plays); err != nil {
		return fmt.Errorf("%w: %v", worker.ErrInvalidRequest, err)
	}
	for i, p := range plays {
		if _, err := dispatch(ctx, worker.CmdPlaysSave, p); err != nil {
			return fmt.Errorf("play %d (%q): %w", i, p.Name, err)
		}
	}
	fmt.Fprintf(out, "imported %d plays\n", len(plays))
	return nil
}

func listResults(ctx context.Context, args []string) error {
	req := worker.ResultsRequest{Limit: 20}
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 {
			return fmt.Errorf("invalid limit %q", args[0])
		}
		req.Limit = n
	}
	res, err := dispatch(ctx, worker.CmdResultsList, req)
	if err != nil {
		return err
	}
	results, _ := res.([]core.PlayResult)
	for _, r := range results {
		fmt.Fprintf(out, "%s  %-16s %-8s %-28s %4d yds  %5d ticks\n",
			r.EndedAt.Format("2006-01-02 15:04:05"), r.PlayName, r.Coverage, r.Status, r.YardsGained, r.Ticks)
	}
	return nil
}

// inspectExport summarises exported run files without starting any services.
func inspectExport(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: inspect <export file>...")
	}
	for _, path := range args {
		export, err := memory.ReadExport(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		r := export.Result
		fmt.Fprintf(out, "%s\n", path)
		fmt.Fprintf(out, "  run:      %s\n", export.Run.ID)
		fmt.Fprintf(out, "  play:     %s (seed %d, x%.2f)\n", export.Run.PlayName, export.Run.Seed, export.Run.SpeedMultiplier)
		fmt.Fprintf(out, "  coverage: %s\n", r.Coverage)
		fmt.Fprintf(out, "  frames:   %d\n", len(export.Frames))
		fmt.Fprintf(out, "  status:   %s\n", r.Status)
		fmt.Fprintf(out, "  yards:    %d\n", r.YardsGained)
	}
	return nil
}
