package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/squadopt/app"
	"github.com/kilianp07/squadopt/config"
	"github.com/kilianp07/squadopt/infra/playertable"
	"github.com/kilianp07/squadopt/internal/report"
	"github.com/kilianp07/squadopt/internal/roster"
	"github.com/kilianp07/squadopt/pkg/export"
)

type pickOptions struct {
	players   string
	criterion string
	formation string
	budget    float64
	lock      []string
	exclude   []string
	format    string
	publish   bool
}

func newPickCmd(root *rootOptions) *cobra.Command {
	opts := &pickOptions{}
	c := &cobra.Command{
		Use:   "pick",
		Short: "Optimize a squad from a player table",
		Example: `  squadopt pick --players players.csv --criterion xP --formation 4-4-2 --budget 100
  squadopt pick --players players.csv --criterion xP --lock "Salah" --exclude p042 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPick(cmd, root, opts)
		},
	}
	f := c.Flags()
	f.StringVarP(&opts.players, "players", "p", "", "player table (csv); defaults to input.path")
	f.StringVar(&opts.criterion, "criterion", "", "projection column to maximize (required unless optimizer.criterion is set)")
	f.StringVarP(&opts.formation, "formation", "f", "", "starting formation DEF-MID-FWD (required unless optimizer.formation is set)")
	f.Float64VarP(&opts.budget, "budget", "b", 0, "total squad budget (required unless optimizer.budget is set)")
	f.StringSliceVar(&opts.lock, "lock", nil, "players (id or name) that must be in the squad")
	f.StringSliceVar(&opts.exclude, "exclude", nil, "players (id or name) that must be left out")
	f.StringVarP(&opts.format, "format", "o", "text", "output format: text, json or csv")
	f.BoolVar(&opts.publish, "publish", false, "publish the run to the configured MQTT topic")
	return c
}

// applyFlags overrides the configured optimizer settings with the flags the
// user set explicitly.
func applyFlags(cmd *cobra.Command, cfg *config.Config, opts *pickOptions) error {
	flags := cmd.Flags()
	if flags.Changed("criterion") {
		cfg.Optimizer.Criterion = opts.criterion
	}
	if flags.Changed("formation") {
		cfg.Optimizer.Formation = opts.formation
	}
	if flags.Changed("budget") {
		b := opts.budget
		cfg.Optimizer.Budget = &b
	}
	if flags.Changed("lock") {
		cfg.Optimizer.Locked = opts.lock
	}
	if flags.Changed("exclude") {
		cfg.Optimizer.Excluded = opts.exclude
	}
	if opts.players != "" {
		cfg.Input.Path = opts.players
	}
	return cfg.Optimizer.Validate()
}

func runPick(cmd *cobra.Command, root *rootOptions, opts *pickOptions) error {
	switch opts.format {
	case "text", "json", "csv":
	default:
		return fmt.Errorf("unknown format %q", opts.format)
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(root.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := applyFlags(cmd, cfg, opts); err != nil {
		return err
	}
	if cfg.Input.Path == "" {
		return errors.New("no player table: use --players or input.path")
	}
	players, err := playertable.LoadFile(cfg.Input.Path)
	if err != nil {
		return err
	}

	sc, err := cfg.Optimizer.Squad()
	if err != nil {
		return err
	}
	if sc.Locked, err = roster.ResolveIDs(players, cfg.Optimizer.Locked); err != nil {
		return fmt.Errorf("lock: %w", err)
	}
	if sc.Excluded, err = roster.ResolveIDs(players, cfg.Optimizer.Excluded); err != nil {
		return fmt.Errorf("exclude: %w", err)
	}

	svc, err := app.New(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "close: %v\n", err)
		}
	}()

	res, rec, err := svc.Pick(ctx, players, sc)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	switch opts.format {
	case "json":
		err = export.WriteJSON(out, res)
	case "csv":
		err = export.WriteCSV(out, res)
	default:
		err = report.Text(out, res)
	}
	if err != nil {
		return err
	}

	if opts.publish {
		id, err := svc.Publish(ctx, rec)
		if err != nil {
			return fmt.Errorf("publish: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "published run %s as message %s\n", rec.RunID, id)
	}
	return nil
}
