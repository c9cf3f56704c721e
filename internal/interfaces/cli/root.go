// Package cli implements the ctk command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	appMol "github.com/ClairePA/ChemistryToolkit/internal/application/molecule"
	"github.com/ClairePA/ChemistryToolkit/internal/bootstrap"
	"github.com/ClairePA/ChemistryToolkit/internal/config"
	"github.com/ClairePA/ChemistryToolkit/internal/infrastructure/monitoring/logging"
	"github.com/ClairePA/ChemistryToolkit/pkg/client"
	"github.com/ClairePA/ChemistryToolkit/pkg/errors"
)

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Exit codes returned by ExitCode.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitBadInput = 2
)

type cliContextKey struct{}

type RootOptions struct {
	ConfigPath   string
	LogLevel     string
	OutputFormat string
	Verbose      bool
	NoColor      bool
	Timeout      time.Duration
	ServerAddr   string
}

// CLIContext is built once per invocation and stored in the command context.
type CLIContext struct {
	Config       *config.Config
	Logger       logging.Logger
	Toolkit      Toolkit
	OutputFormat string
	Verbose      bool
	NoColor      bool
	Timeout      time.Duration

	backends *bootstrap.Backends
}

func NewRootCommand() *cobra.Command {
	return newRootCommand(nil)
}

// newRootCommand builds the command tree.  A non-nil tk replaces the
// toolkit persistentPreRun would otherwise construct.
func newRootCommand(tk Toolkit) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "ctk",
		Short: "Chemistry toolkit: validate, canonicalize and merge molecules by R-group",
		Long: "ctk works on line notations with R-group placeholders such as \"O[*] |$;_R1$|\".\n" +
			"It validates and canonicalizes notations, converts to and from MDL molfiles,\n" +
			"merges molecules at attachment sites and caps open sites.\n\n" +
			"Commands run in-process by default; pass --server to use a running apiserver.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, opts, tk)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if cliCtx, err := GetCLIContext(cmd); err == nil && cliCtx.backends != nil {
				cliCtx.backends.Close(context.Background())
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: ./ctk.yaml)")
	pf.StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringVarP(&opts.OutputFormat, "output", "o", "text", "output format (text, json, table)")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable verbose output")
	pf.BoolVar(&opts.NoColor, "no-color", false, "disable colored output")
	pf.DurationVar(&opts.Timeout, "timeout", 30*time.Second, "per-command timeout")
	pf.StringVar(&opts.ServerAddr, "server", "", "apiserver base URL, e.g. http://localhost:8080")

	cmd.AddCommand(
		NewValidateCmd(),
		NewCanonicalizeCmd(),
		NewInfoCmd(),
		NewConvertCmd(),
		NewMergeCmd(),
		NewCapCmd(),
		NewFragmentsCmd(),
		NewEngineCmd(),
		newVersionCmd(),
	)
	return cmd
}

func persistentPreRun(cmd *cobra.Command, opts *RootOptions, tk Toolkit) error {
	if opts.NoColor {
		color.NoColor = true
	}
	switch strings.ToLower(opts.OutputFormat) {
	case "text", "json", "table":
	default:
		return errors.InvalidParam("output must be one of text, json, table").WithDetail(opts.OutputFormat)
	}

	cliCtx := &CLIContext{
		OutputFormat: strings.ToLower(opts.OutputFormat),
		Verbose:      opts.Verbose,
		NoColor:      opts.NoColor,
		Timeout:      opts.Timeout,
		Toolkit:      tk,
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, cliContextKey{}, cliCtx)
	cmd.SetContext(ctx)

	if cmd.Name() == "version" {
		return nil
	}

	cfg, err := initConfig(opts)
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}
	logger, err := initLogger(opts)
	if err != nil {
		return fmt.Errorf("logger initialization failed: %w", err)
	}
	cliCtx.Config = cfg
	cliCtx.Logger = logger

	if cliCtx.Toolkit != nil {
		return nil
	}
	if opts.ServerAddr != "" {
		c, err := client.NewClient(opts.ServerAddr,
			client.WithTimeout(opts.Timeout),
			client.WithUserAgent("ctk-cli/"+Version),
			client.WithLogger(clientLogger{logger}))
		if err != nil {
			return err
		}
		cliCtx.Toolkit = NewRemoteToolkit(c)
		return nil
	}
	return initLocal(ctx, cliCtx)
}

// initLocal opens whatever backends the config enables, so a local run with
// a database configured can use the fragment library.
func initLocal(ctx context.Context, cliCtx *CLIContext) error {
	engine, err := bootstrap.Engine(cliCtx.Config.Toolkit, cliCtx.Logger)
	if err != nil {
		return err
	}
	openCtx := ctx
	if cliCtx.Timeout > 0 {
		var cancel context.CancelFunc
		openCtx, cancel = context.WithTimeout(ctx, cliCtx.Timeout)
		defer cancel()
	}
	backends, err := bootstrap.Open(openCtx, cliCtx.Config, cliCtx.Logger)
	if err != nil {
		return err
	}
	svc, err := appMol.NewService(backends.ServiceDeps(engine, "ctk-cli", nil, cliCtx.Logger))
	if err != nil {
		backends.Close(ctx)
		return err
	}
	cliCtx.backends = backends
	cliCtx.Toolkit = NewLocalToolkit(svc)
	return nil
}

func initConfig(opts *RootOptions) (*config.Config, error) {
	if opts.ConfigPath != "" {
		return config.Load(opts.ConfigPath)
	}

	searchPaths := []string{"./ctk.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, ".ctk", "config.yaml"))
	}
	searchPaths = append(searchPaths, "/etc/ctk/config.yaml")

	for _, p := range searchPaths {
		if _, statErr := os.Stat(p); statErr == nil {
			return config.Load(p)
		}
	}
	return config.LoadFromEnv()
}

func initLogger(opts *RootOptions) (logging.Logger, error) {
	level := strings.ToLower(opts.LogLevel)
	if opts.Verbose {
		level = logging.LevelDebug
	}
	return logging.NewLogger(logging.LogConfig{
		Level:            level,
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	})
}

// clientLogger forwards SDK logs to the CLI logger.
type clientLogger struct{ l logging.Logger }

func (c clientLogger) Debugf(format string, args ...interface{}) { c.l.Debug(fmt.Sprintf(format, args...)) }
func (c clientLogger) Infof(format string, args ...interface{})  { c.l.Info(fmt.Sprintf(format, args...)) }
func (c clientLogger) Errorf(format string, args ...interface{}) { c.l.Error(fmt.Sprintf(format, args...)) }

func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.Internal("command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.Internal("CLIContext not found in command context")
	}
	return cliCtx, nil
}

// commandContext returns the toolkit and a context bounded by --timeout.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc, Toolkit, error) {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	if cliCtx.Toolkit == nil {
		return nil, nil, nil, errors.Internal("toolkit is not initialised")
	}
	if cliCtx.Timeout > 0 {
		ctx, cancel := context.WithTimeout(cmd.Context(), cliCtx.Timeout)
		return ctx, cancel, cliCtx.Toolkit, nil
	}
	ctx, cancel := context.WithCancel(cmd.Context())
	return ctx, cancel, cliCtx.Toolkit, nil
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		PrintError(rootCmd, err)
		return ExitCode(err)
	}
	return ExitOK
}

// ExitCode maps client-side failures (bad notation, unknown site, missing
// fragment) to ExitBadInput and everything else to ExitFailure.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if errors.IsClientError(errors.GetCode(err)) {
		return ExitBadInput
	}
	return ExitFailure
}

type tableProvider interface {
	TableHeaders() []string
	TableRows() [][]string
}

// PrintResult writes data in the selected output format.  Table output needs
// a tableProvider and falls back to text otherwise.
func PrintResult(cmd *cobra.Command, data interface{}) error {
	format := "text"
	if cliCtx, err := GetCLIContext(cmd); err == nil {
		format = cliCtx.OutputFormat
	}
	switch format {
	case "json":
		return printJSON(cmd, data)
	case "table":
		if tp, ok := data.(tableProvider); ok {
			renderTable(cmd, tp.TableHeaders(), tp.TableRows())
			return nil
		}
	}
	return printText(cmd, data)
}

func printJSON(cmd *cobra.Command, data interface{}) error {
	if j, ok := data.(interface{ JSONValue() interface{} }); ok {
		data = j.JSONValue()
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func printText(cmd *cobra.Command, data interface{}) error {
	switch v := data.(type) {
	case string:
		fmt.Fprintln(cmd.OutOrStdout(), v)
	case fmt.Stringer:
		fmt.Fprint(cmd.OutOrStdout(), v.String())
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "%+v\n", v)
	}
	return nil
}

func renderTable(cmd *cobra.Command, headers []string, rows [][]string) {
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader(headers)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.AppendBulk(rows)
	table.Render()
}

func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", color.RedString("Error:"), err.Error())
}

func PrintSuccess(cmd *cobra.Command, msg string) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.GreenString("OK:"), msg)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ctk %s\ncommit: %s\nbuilt:  %s\n", Version, GitCommit, BuildDate)
		},
	}
}
