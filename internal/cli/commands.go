package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/vk/logicrouter/internal/app"
)

func newServeCommand(opts *globalOptions, logW io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve every discovered custom logic unit over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, opts, logW)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Serve(cmd.Context()); err != nil {
				return startupError(err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.source.listen, "listen", "", "Address to listen on. Defaults to :$PORT, then :8080.")
	return cmd
}

func newRunCommand(opts *globalOptions, logW io.Writer) *cobra.Command {
	var plugin, input, output string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Pass one JSON document through a custom logic unit and exit",
		Long: `run reads a JSON document from --input, calls the custom logic named by
--plugin with it and writes the result to --output.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, opts, logW)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.RunBatch(cmd.Context(), plugin, input, output); err != nil {
				return startupError(err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&plugin, "plugin", app.DefaultBatchPlugin, "Name of the custom logic to run.")
	cmd.Flags().StringVar(&input, "input", app.DefaultBatchInput, "JSON input document.")
	cmd.Flags().StringVar(&output, "output", app.DefaultBatchOutput, "File the JSON result is written to.")
	return cmd
}

func newRoutesCommand(opts *globalOptions, logW io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Print the route table and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, opts, logW)
			if err != nil {
				return err
			}
			defer a.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "METHOD\tROUTE\tORIGIN\tTRIGGER\tSOURCE")
			fmt.Fprintln(w, "GET\t/ping\t-\t-\t-")
			fmt.Fprintln(w, "GET\t/metrics\t-\t-\t-")
			for _, ref := range a.Routes() {
				def := ref.Definition
				source := def.Source
				if source == "" {
					source = "-"
				}
				fmt.Fprintf(w, "POST\t%s\t%s\t%s\t%s\n", def.RoutePath(), def.Origin, def.Trigger, source)
			}
			return w.Flush()
		},
	}
}
