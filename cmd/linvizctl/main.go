package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/blueplan/linviz-go/internal/linviz/agent"
	"github.com/blueplan/linviz-go/internal/linviz/config"
	"github.com/blueplan/linviz-go/internal/linviz/linalg"
	"github.com/blueplan/linviz-go/internal/linviz/llm"
	logx "github.com/blueplan/linviz-go/internal/linviz/log"
	"github.com/blueplan/linviz-go/internal/linviz/probe"
	"github.com/blueplan/linviz-go/internal/linviz/router"
	"github.com/blueplan/linviz-go/internal/linviz/term"
	"github.com/blueplan/linviz-go/internal/linviz/tutor"
	"github.com/spf13/cobra"
)

var (
	matrixFlag  string
	vectorFlag  string
	jsonOutput  bool
	verbose     bool
	samples     int
	plotWidth   int
	plotHeight  int
	epsParallel float64
	epsZero     float64
)

// main registers the linvizctl commands and runs the root command.
func main() {
	rootCmd := &cobra.Command{
		Use:          "linvizctl",
		Short:        "linear algebra visualization toolkit",
		SilenceUsage: true,
	}
	rootCmd.PersistentPreRun = func(*cobra.Command, []string) {
		logx.SetGlobalLogger(newLogger(verbose))
	}
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print JSON instead of text")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr")
	rootCmd.PersistentFlags().Float64Var(&epsParallel, "eps-parallel", probe.EpsParallel, "parallel threshold for |x × Ax|")
	rootCmd.PersistentFlags().Float64Var(&epsZero, "eps-zero", probe.EpsZero, "zero threshold for x components")

	routeCmd := &cobra.Command{
		Use:   "route [message.json|-]",
		Short: "route an agent message",
		Args:  cobra.MaximumNArgs(1),
		RunE:  routeMessage,
	}

	probeCmd := &cobra.Command{
		Use:   "probe",
		Short: "check whether a vector is an eigenvector",
		RunE:  runProbe,
	}
	addMatrixFlag(probeCmd)
	probeCmd.Flags().StringVar(&vectorFlag, "vector", "1,1", "vector as x,y")

	eigenCmd := &cobra.Command{
		Use:   "eigen",
		Short: "eigen decomposition of a 2x2 matrix",
		RunE:  runEigen,
	}
	addMatrixFlag(eigenCmd)

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "plot x × Ax around the unit circle",
		RunE:  runSweep,
	}
	addMatrixFlag(sweepCmd)
	sweepCmd.Flags().IntVar(&samples, "samples", 180, "number of angles")
	sweepCmd.Flags().IntVar(&plotWidth, "width", 80, "plot width")
	sweepCmd.Flags().IntVar(&plotHeight, "height", 12, "plot height")

	tuiCmd := &cobra.Command{
		Use:   "tui",
		Short: "interactive eigenvector probe",
		RunE:  runTUI,
	}
	addMatrixFlag(tuiCmd)
	tuiCmd.Flags().StringVar(&vectorFlag, "vector", "1,1", "initial vector as x,y")

	chatCmd := &cobra.Command{
		Use:   "chat [question]",
		Short: "ask the tutor and route its reply",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runChat,
	}

	rootCmd.AddCommand(routeCmd, probeCmd, eigenCmd, sweepCmd, tuiCmd, chatCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addMatrixFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&matrixFlag, "matrix", "2,0,0,3", "matrix as a,b,c,d or [[a,b],[c,d]]")
}

func newLogger(verbose bool) *logx.Logger {
	if verbose {
		return logx.New(os.Stderr, logx.LogConfig{Level: "DEBUG"})
	}
	return logx.Discard()
}

func logger() *logx.Logger {
	return logx.GetLogger()
}

func thresholds() probe.Thresholds {
	return probe.Thresholds{Parallel: epsParallel, Zero: epsZero}
}

func routeMessage(cmd *cobra.Command, args []string) error {
	var data []byte
	var err error
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return err
	}

	raw, err := agent.ParseReply(string(data))
	if err != nil {
		return fmt.Errorf("message is not a JSON object: %w", err)
	}
	out := router.New(logger()).Route(cmd.Context(), raw)
	return printResult(cmd, out, term.Outcome(out))
}

func runProbe(cmd *cobra.Command, _ []string) error {
	m, err := parseMatrix(matrixFlag)
	if err != nil {
		return err
	}
	x, err := parseVector(vectorFlag)
	if err != nil {
		return err
	}
	res := probe.EvaluateWith(thresholds(), m, x)
	return printResult(cmd, res, term.Result(res))
}

func runEigen(cmd *cobra.Command, _ []string) error {
	m, err := parseMatrix(matrixFlag)
	if err != nil {
		return err
	}
	d, err := linalg.Decompose(m)
	if err != nil {
		return err
	}

	var b strings.Builder
	for i, ev := range d.Eigenvalues {
		if d.Real() {
			fmt.Fprintf(&b, "λ%d = %.6g", i+1, ev.Real)
		} else {
			fmt.Fprintf(&b, "λ%d = %.6g %+.6gi", i+1, ev.Real, ev.Imag)
		}
		if dirs := d.Directions(); i < len(dirs) {
			fmt.Fprintf(&b, "   v%d = %s", i+1, dirs[i])
		}
		b.WriteString("\n")
	}
	if !d.Real() {
		b.WriteString("complex spectrum: no real eigen directions\n")
	}
	return printResult(cmd, d, strings.TrimRight(b.String(), "\n"))
}

func runSweep(cmd *cobra.Command, _ []string) error {
	m, err := parseMatrix(matrixFlag)
	if err != nil {
		return err
	}
	s := probe.Sweep(thresholds(), m, samples)
	return printResult(cmd, s, term.Sweep(s, plotWidth, plotHeight))
}

func runTUI(_ *cobra.Command, _ []string) error {
	m, err := parseMatrix(matrixFlag)
	if err != nil {
		return err
	}
	x, err := parseVector(vectorFlag)
	if err != nil {
		return err
	}
	return term.RunProbe(m, x, thresholds())
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	client, err := llm.NewClient(cfg.LLM)
	if err != nil {
		return fmt.Errorf("llm client: %w", err)
	}
	log := logger()
	raw, err := tutor.New(client, log).Reply(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}
	out := router.New(log).Route(cmd.Context(), raw)
	return printResult(cmd, out, term.Outcome(out))
}

func printResult(cmd *cobra.Command, v any, text string) error {
	w := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(w, text)
	return err
}

// parseMatrix accepts "a,b,c,d" or a JSON [[a,b],[c,d]].
func parseMatrix(s string) (linalg.Mat2, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		var rows any
		if err := json.Unmarshal([]byte(s), &rows); err != nil {
			return linalg.Mat2{}, fmt.Errorf("invalid matrix %q: %w", s, err)
		}
		return linalg.ParseMat2(rows)
	}
	vals, err := parseFloats(s, 4)
	if err != nil {
		return linalg.Mat2{}, fmt.Errorf("invalid matrix %q: %w", s, err)
	}
	return linalg.Mat2{A: vals[0], B: vals[1], C: vals[2], D: vals[3]}, nil
}

func parseVector(s string) (linalg.Vec2, error) {
	vals, err := parseFloats(s, 2)
	if err != nil {
		return linalg.Vec2{}, fmt.Errorf("invalid vector %q: %w", s, err)
	}
	return linalg.Vec2{X: vals[0], Y: vals[1]}, nil
}

func parseFloats(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("want %d comma-separated numbers, got %d", n, len(parts))
	}
	out := make([]float64, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
