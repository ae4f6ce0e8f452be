package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/syssam/loom/compiler"
	"github.com/syssam/loom/compiler/gen"
)

// NewGenCommand creates the gen command
func NewGenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate code from a domain model",
		Long: `Generate the code of a domain model.

Examples:
  # Generate the domain package under ./gen/shop
  loom gen -m model.yaml --module example.com/app/gen -o gen

  # Thread safe store persisted as msgpack
  loom gen -m model.yaml --module example.com/app/gen --ownership locked --persist --format msgpack

  # Regenerate whenever the model changes
  loom gen -m model.yaml --module example.com/app/gen --watch
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configFile, _ := cmd.Flags().GetString("config")
			s, err := LoadSettings(cmd, configFile)
			if err != nil {
				return err
			}
			log, err := NewLogger(s.Verbose)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			defer func() { _ = log.Sync() }()
			return runGen(cmd.Context(), cmd.OutOrStdout(), s, log)
		},
	}

	flags := cmd.Flags()
	flags.StringP("model", "m", "model.yaml", "model file (.yaml, .yml or .json)")
	flags.String("module", "", "import path of the output directory")
	flags.StringP("out", "o", "gen", "output directory")
	flags.StringP("target", "t", "domain", "target: domain, application or graphql")
	flags.String("id", "hash", "id strategy: hash, random or index")
	flags.String("ownership", "exclusive", "store ownership: exclusive, shared or locked")
	flags.Bool("persist", false, "generate Persist and Load on the store")
	flags.Bool("timestamps", false, "record and persist intern times (implies --persist)")
	flags.String("format", "json", "persistence format: json or msgpack")
	flags.StringSlice("derive", nil, "extra struct tag keys on generated fields")
	flags.StringSlice("use", nil, "extra blank imports in generated files")
	flags.Bool("always", false, "regenerate even when the model is unchanged")
	flags.Int("workers", 0, "size of the generation pool (default GOMAXPROCS)")
	flags.String("header", "", "header comment of generated files")
	flags.BoolP("watch", "w", false, "regenerate when the model file changes")
	return cmd
}

func runGen(ctx context.Context, out io.Writer, s *Settings, log *zap.Logger) error {
	opts, err := s.Options()
	if err != nil {
		return err
	}
	opts = append(opts, gen.WithLogger(log))

	once := func() error {
		start := time.Now()
		n, err := compiler.CompileFile(ctx, s.Model, s.Module, s.Output, opts...)
		if err != nil {
			return err
		}
		printSummary(out, s, n, time.Since(start))
		return nil
	}
	if err := once(); err != nil {
		return err
	}
	if !s.Watch {
		return nil
	}
	return Watch(ctx, s.Model, log, once)
}

func printSummary(w io.Writer, s *Settings, n int, elapsed time.Duration) {
	successColor := color.New(color.FgGreen, color.Bold)
	infoColor := color.New(color.FgCyan)
	dimColor := color.New(color.Faint)

	if n == 0 {
		infoColor.Fprintf(w, "%s is up to date", s.Output)
		dimColor.Fprintf(w, " (%s)\n", elapsed.Round(time.Millisecond))
		return
	}
	successColor.Fprint(w, "✓ ")
	fmt.Fprintf(w, "%s: %d %s written to %s", s.Model, n, plural(n, "file"), s.Output)
	dimColor.Fprintf(w, " (%s)\n", elapsed.Round(time.Millisecond))
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
