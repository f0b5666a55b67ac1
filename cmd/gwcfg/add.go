package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tcam/gwcfg/internal/api"
	"github.com/tcam/gwcfg/internal/catalog"
	"github.com/tcam/gwcfg/internal/config"
	"github.com/tcam/gwcfg/internal/flows"
	"github.com/tcam/gwcfg/internal/logging"
	"github.com/tcam/gwcfg/internal/submit"
	"github.com/tcam/gwcfg/internal/ui"
	"github.com/tcam/gwcfg/internal/wizard"
	"github.com/tcam/gwcfg/internal/wizard/tui"
)

// Add command flags
var (
	answersFile string
	dryRun      bool
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a model, parameter, device or rule",
	Long: `Run one of the configuration wizards.

Without --file the wizard runs interactively: fill in each step, review
the summary, then submit. With --file the answers come from a YAML file
and are validated step by step exactly as typed entries would be.`,
}

func init() {
	addCmd.PersistentFlags().StringVarP(&answersFile, "file", "f", "", "YAML answer file (non-interactive)")
	addCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Validate the answer file and print the review without submitting")

	addCmd.AddCommand(
		newAddCmd(wizard.KindModel, "Add a device model and its parameters",
			`  # Interactive
  gwcfg add model

  # From an answer file
  gwcfg add model -f pm5350.yaml`),
		newAddCmd(wizard.KindParameter, "Add a parameter to an existing model",
			`  gwcfg add parameter --gateway lab`),
		newAddCmd(wizard.KindDevice, "Add a device and link its model's parameters",
			`  # Pick the model first; its parameters are linked automatically
  gwcfg add device

  # Check an answer file without touching the gateway
  gwcfg add device -f occupancy-12.yaml --dry-run`),
		newAddCmd(wizard.KindRule, "Add an automation rule",
			`  gwcfg add rule`),
	)
	rootCmd.AddCommand(addCmd)
}

func newAddCmd(kind wizard.Kind, short, example string) *cobra.Command {
	return &cobra.Command{
		Use:     string(kind),
		Short:   short,
		Example: example,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(cmd.Context(), kind)
		},
	}
}

func runAdd(ctx context.Context, kind wizard.Kind) error {
	if dryRun && answersFile == "" {
		return errors.New("--dry-run needs an answer file (--file)")
	}

	client, target, err := connect(ctx)
	if err != nil {
		return err
	}

	def, ok := flows.For(kind, modelCatalog(ctx, kind, client))
	if !ok {
		return fmt.Errorf("unknown wizard %q", kind)
	}
	s := wizard.NewSession(def)

	if answersFile == "" {
		return runInteractive(ctx, s, client, target)
	}
	return runAnswers(ctx, s, client, target)
}

// modelCatalog lists the models a device or parameter can be attached to.
// An unreachable gateway leaves the built-in templates only.
func modelCatalog(ctx context.Context, kind wizard.Kind, r api.Reader) *catalog.Catalog {
	if kind != wizard.KindDevice && kind != wizard.KindParameter {
		return nil
	}
	models, err := r.ListModels(ctx)
	if err != nil {
		logging.Warn("Failed to list models, using built-in templates", zap.Error(err))
	}
	return flows.ModelCatalog(models)
}

func runInteractive(ctx context.Context, s *wizard.Session, b api.Backend, target *config.Target) error {
	m := tui.NewWizardModel(ctx, s, b, headerInfo(target))
	final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil {
		return fmt.Errorf("wizard error: %w", err)
	}

	res, ok := final.(tui.WizardModel).Outcome()
	if !ok {
		fmt.Println("Nothing was submitted.")
		return nil
	}
	touch(target)

	p := ui.NewPrinter(os.Stdout)
	p.PrintResult(ui.NewSubmissionResult(s.Definition().Title, res))
	if res.Status == submit.StatusException {
		return res.Err
	}
	return nil
}

func runAnswers(ctx context.Context, s *wizard.Session, b api.Backend, target *config.Target) error {
	f, err := os.Open(answersFile)
	if err != nil {
		return fmt.Errorf("failed to open answer file: %w", err)
	}
	defer f.Close()

	def := s.Definition()
	header := commandHeader(def.Title, "gwcfg add "+string(def.Kind), target,
		ui.Param{Key: "Answers", Value: answersFile},
		ui.Param{Key: "Operator", Value: operator()},
	)

	if err := flows.LoadAnswers(ctx, f, s, b); err != nil {
		return err
	}

	if dryRun {
		p := ui.NewPrinter(os.Stdout)
		p.PrintHeader(header)
		p.PrintSummary(wizard.Summarize(def, s.Fields()))
		p.Newline()
		p.Println("Dry run: nothing was submitted.")
		return nil
	}

	plan, err := flows.Prepare(s, b)
	if err != nil {
		return err
	}

	runner := ui.NewSubmissionRunner(header, os.Stdout)
	res, err := runner.Run(plan, func(observe func(submit.Result)) (submit.Result, error) {
		res := submit.Run(ctx, plan, observe)
		flows.Finish(s, res)
		return res, nil
	})
	if err != nil {
		return err
	}
	touch(target)
	return itemFailures(res, len(plan.Items))
}

// itemFailures reports failed items. Optional steps that failed inside an
// otherwise created item do not count.
func itemFailures(res submit.Result, items int) error {
	if res.Failed > 0 {
		return fmt.Errorf("%d of %d items failed", res.Failed, items)
	}
	return nil
}
