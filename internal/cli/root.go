package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"
)

// Version is reported by --version. It is set at build time.
var Version = "dev"

// globalOptions are the flags every command accepts.
type globalOptions struct {
	configPath string
	logLevel   string
	logFormat  string
	source     sourceOptions
}

// NewRootCommand builds the logicrouter command tree. Command output goes to
// out, logs go to logW.
func NewRootCommand(out, logW io.Writer) *cobra.Command {
	return newRootCommand(&globalOptions{}, out, logW)
}

func newRootCommand(opts *globalOptions, out, logW io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "logicrouter",
		Short: "Serve custom logic scripts as HTTP endpoints",
		Long: `logicrouter discovers custom logic written in Go or Lua, either as files in a
directory or as code embedded in a customLogic manifest, and exposes every unit
as a POST /<name> endpoint next to GET /ping and GET /metrics.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(logW)
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "Path to an HCL settings file.")
	pf.StringVar(&opts.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	pf.StringVar(&opts.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	opts.source.bind(pf)

	rootCmd.AddCommand(
		newServeCommand(opts, logW),
		newRunCommand(opts, logW),
		newRoutesCommand(opts, logW),
	)
	return rootCmd
}

// Execute runs the command tree with args.
func Execute(ctx context.Context, args []string, out, logW io.Writer) error {
	rootCmd := NewRootCommand(out, logW)
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}
