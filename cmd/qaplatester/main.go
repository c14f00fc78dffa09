// Command qaplatester drives the engine-conformance, stability and
// strength-measurement workflows of spec.md §6 against one or more
// UCI/XBoard engines.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mangar2/qaplatester/internal/version"
	"github.com/mangar2/qaplatester/pkg/config"
	"github.com/mangar2/qaplatester/pkg/epd"
	"github.com/mangar2/qaplatester/pkg/pool"
	"github.com/mangar2/qaplatester/pkg/protocol"
	"github.com/mangar2/qaplatester/pkg/providers"
	"github.com/mangar2/qaplatester/pkg/report"
	"github.com/mangar2/qaplatester/pkg/sprt"
	"github.com/mangar2/qaplatester/pkg/tournament"
	"github.com/mangar2/qaplatester/pkg/worker"
	"github.com/seekerror/logw"
	"github.com/spf13/cobra"
)

func main() {
	ctx := context.Background()
	if err := newRootCmd(ctx).Execute(); err != nil {
		logw.Errorf(ctx, "qaplatester: %v", err)
		os.Exit(int(report.EngineError))
	}
}

func newRootCmd(ctx context.Context) *cobra.Command {
	root := &cobra.Command{
		Use:     "qaplatester",
		Short:   "Conformance, stability and strength tester for UCI/XBoard chess engines",
		Version: version.String(),
	}

	root.AddCommand(newEPDCmd(ctx))
	root.AddCommand(newMatchCmd(ctx))
	return root
}

func newEPDCmd(ctx context.Context) *cobra.Command {
	var configPath, suitePath, engineName string
	var moveTimeMs int64

	cmd := &cobra.Command{
		Use:   "epd",
		Short: "Run an EPD best-move suite against one engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, _, err := config.LoadManager(configPath)
			if err != nil {
				return err
			}
			cfg, ok := mgr.Get(engineName)
			if !ok {
				return fmt.Errorf("epd: unknown engine %q", engineName)
			}

			f, err := os.Open(suitePath)
			if err != nil {
				return err
			}
			defer f.Close()
			suite, err := epd.Read(f)
			if err != nil {
				return err
			}

			check := report.NewInstance(ctx, nil, cfg.Name)
			w, err := worker.Start(ctx, cfg, worker.ProcessFactory(check), check)
			if err != nil {
				return err
			}
			defer w.Stop(true)

			rep, err := providers.RunSuite(ctx, w, suite, moveTimeMs, check)
			if err != nil {
				return err
			}

			fmt.Printf("%d/%d correct\n", rep.Correct, rep.Total)
			summaries, code := check.Log()
			for _, s := range summaries {
				fmt.Printf("[%v] %v: %d/%d passed\n", s.Section, s.Topic, s.Total-s.Failures, s.Total)
			}
			os.Exit(int(code))
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "engines", "", "path to the engine config TOML file")
	cmd.Flags().StringVar(&suitePath, "suite", "", "path to the EPD suite file")
	cmd.Flags().StringVar(&engineName, "engine", "", "engine name from the config file")
	cmd.Flags().Int64Var(&moveTimeMs, "movetime", 1000, "milliseconds to think per position")
	return cmd
}

func newMatchCmd(ctx context.Context) *cobra.Command {
	var configPath, tcStr, openingsPath string
	var games, concurrency int
	var sprtElo0, sprtElo1 float64
	var useSPRT bool

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Play an engine-vs-engine duel, optionally under SPRT stopping rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, file, err := config.LoadManager(configPath)
			if err != nil {
				return err
			}
			engines := mgr.All()
			if len(engines) != 2 {
				return fmt.Errorf("match: config must declare exactly 2 engines, got %d", len(engines))
			}

			tc, err := resolveTC(tcStr, file.TC)
			if err != nil {
				return err
			}

			var openings []tournament.Opening
			if openingsPath != "" {
				f, err := os.Open(openingsPath)
				if err != nil {
					return err
				}
				defer f.Close()
				openings, err = tournament.ParseEPDBook(f)
				if err != nil {
					return err
				}
			}
			book := tournament.NewOpeningBook(openings, true, nil)

			duel := tournament.NewDuel(tournament.Pairing{
				White: engines[0], Black: engines[1], TC: tc, Openings: book, GamesTarget: games,
			})

			check := report.NewInstance(ctx, nil, "match")

			var provider pool.TaskProvider = duel
			var sprtTest *sprt.Test
			if useSPRT {
				sd := tournament.NewSPRTDuel(duel, sprt.Params{Elo0: sprtElo0, Elo1: sprtElo1, Alpha: 0.05, Beta: 0.05})
				provider = sd
				sprtTest = sd.Test()
			}

			pairs := make([]pool.SlotEngines, concurrency)
			for i := range pairs {
				pairs[i] = pool.SlotEngines{White: engines[0], Black: engines[1]}
			}

			p, err := pool.New(ctx, worker.ProcessFactory(check), pairs, provider, check)
			if err != nil {
				return err
			}
			p.Run()
			p.Stop()

			fmt.Println(duel.Result().String())
			if sprtTest != nil {
				fmt.Printf("SPRT: llr=%.3f decision=%v\n", sprtTest.LLR(), sprtTest.Decision())
			}
			_, code := check.Log()
			os.Exit(int(code))
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "engines", "", "path to the engine config TOML file")
	cmd.Flags().StringVar(&tcStr, "tc", "", "time control, e.g. 40/60+0.5")
	cmd.Flags().StringVar(&openingsPath, "openings", "", "path to an EPD opening book")
	cmd.Flags().IntVar(&games, "games", 0, "number of games to play (0 = unbounded, SPRT-driven)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 1, "number of games to run in parallel")
	cmd.Flags().BoolVar(&useSPRT, "sprt", false, "stop once the SPRT reaches a decision")
	cmd.Flags().Float64Var(&sprtElo0, "elo0", 0, "SPRT H0 Elo bound")
	cmd.Flags().Float64Var(&sprtElo1, "elo1", 5, "SPRT H1 Elo bound")
	return cmd
}

func resolveTC(flagValue, fileValue string) (protocol.TimeControl, error) {
	s := flagValue
	if s == "" {
		s = fileValue
	}
	if s == "" {
		s = "40/60+0.5"
	}
	return protocol.ParseTimeControl(s)
}
