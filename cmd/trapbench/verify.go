package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/trapbench/trapbench/internal/accuracy"
	"github.com/trapbench/trapbench/internal/backend"
	"github.com/trapbench/trapbench/internal/config"
	"github.com/trapbench/trapbench/internal/metrics"
	"github.com/trapbench/trapbench/internal/runner"
	"github.com/trapbench/trapbench/internal/ui"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check backend answers against known integrals",
	Long: `Run the reference backend once per scenario and compare its answer with
the analytic value. A scenario passes when |actual - expected| < tolerance.
A missing reference backend skips the scenario instead of failing it.

The built-in scenarios are sin over [0, pi] with n=1000000 (expected 2) and
x^2 over [0, 1] with n=200000 (expected 1/3), both with tolerance 1e-6.
A TOML file passed with --scenarios replaces them:

  [[scenario]]
  name = "cos-half"
  a = 0.0
  b = 1.5707963267948966
  n = 1000000
  func = 1          # expected defaults to the analytic integral
  tolerance = 1e-9

Examples:
  trapbench verify
  trapbench verify --reference mpi --scenarios accuracy.toml
`,
	RunE: runVerify,
}

func init() {
	d := config.Default()
	verifyCmd.Flags().String("bin-dir", d.BinDir, "Directory holding the backend executables")
	verifyCmd.Flags().Duration("timeout", d.Timeout, "Per-attempt timeout (0 disables)")
	verifyCmd.Flags().String("format", d.Format, "Output format: text, json or yaml")
	verifyCmd.Flags().String("metrics-file", d.MetricsFile, "Also write Prometheus metrics to this textfile")
	verifyCmd.Flags().String("scenarios", "", "TOML file of scenarios (default: built-in)")
	verifyCmd.Flags().String("reference", backend.KindSerial.String(), "Backend to verify: serial, openmp or mpi")
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	scenariosPath, _ := cmd.Flags().GetString("scenarios")
	referenceName, _ := cmd.Flags().GetString("reference")

	reference, err := backend.ParseKind(referenceName)
	if err != nil {
		return err
	}

	scenarios := accuracy.DefaultScenarios()
	if scenariosPath != "" {
		scenarios, err = accuracy.LoadScenarios(scenariosPath)
		if err != nil {
			return err
		}
	}

	report := verifyOnce(cmd.Context(), settings, reference, scenarios)

	if err := writeVerification(cmd.OutOrStdout(), settings, report); err != nil {
		return err
	}
	if settings.MetricsFile != "" {
		exporter := metrics.NewExporter()
		exporter.ObserveReport(report)
		if err := exporter.WriteTextfile(settings.MetricsFile, time.Now()); err != nil {
			return err
		}
	}

	if err := cmd.Context().Err(); err != nil {
		return err
	}
	if !report.OK() {
		return fmt.Errorf("%d of %d scenarios failed", report.Failed(), len(report.Outcomes))
	}
	return nil
}

// verifyOnce discovers backends afresh and checks every scenario.
func verifyOnce(ctx context.Context, cfg config.Config, reference backend.Kind, scenarios []accuracy.Scenario) accuracy.Report {
	log := slog.Default()
	exec := runner.New(runner.WithLogger(log), runner.WithTimeout(cfg.Timeout))
	oracle := accuracy.NewOracle(exec, backend.Discover(cfg.BinDir),
		accuracy.WithReference(reference),
		accuracy.WithLogger(log),
	)
	return oracle.Verify(ctx, scenarios)
}

type outcomeDoc struct {
	Scenario  string   `json:"scenario" yaml:"scenario"`
	Status    string   `json:"status" yaml:"status"`
	Expected  float64  `json:"expected" yaml:"expected"`
	Actual    *float64 `json:"actual" yaml:"actual"`
	Tolerance float64  `json:"tolerance" yaml:"tolerance"`
	ElapsedMS float64  `json:"elapsed_ms" yaml:"elapsed_ms"`
	Error     string   `json:"error,omitempty" yaml:"error,omitempty"`
}

type verificationDoc struct {
	Passed   int          `json:"passed" yaml:"passed"`
	Failed   int          `json:"failed" yaml:"failed"`
	Skipped  int          `json:"skipped" yaml:"skipped"`
	Outcomes []outcomeDoc `json:"outcomes" yaml:"outcomes"`
}

func newVerificationDoc(r accuracy.Report) verificationDoc {
	doc := verificationDoc{
		Passed:   r.Passed(),
		Failed:   r.Failed(),
		Skipped:  r.Skipped(),
		Outcomes: make([]outcomeDoc, 0, len(r.Outcomes)),
	}
	for _, o := range r.Outcomes {
		tol := o.Scenario.Tolerance
		if tol <= 0 {
			tol = accuracy.DefaultTolerance
		}
		od := outcomeDoc{
			Scenario:  o.Scenario.Name,
			Status:    o.Status.String(),
			Expected:  o.Scenario.Expected,
			Actual:    o.Actual,
			Tolerance: tol,
			ElapsedMS: float64(o.Elapsed.Microseconds()) / 1000,
		}
		if o.Err != nil {
			od.Error = o.Err.Error()
		}
		doc.Outcomes = append(doc.Outcomes, od)
	}
	return doc
}

func writeVerification(w io.Writer, cfg config.Config, r accuracy.Report) error {
	switch cfg.Format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(newVerificationDoc(r)); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		return nil
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(newVerificationDoc(r)); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		return enc.Close()
	default:
		ui.New(w, cfg.NoColor).Verification(r)
		return nil
	}
}
