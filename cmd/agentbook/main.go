// Package main provides the agentbook CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/richinex/agentbook/cli"
	"github.com/richinex/agentbook/config"
)

var (
	// Global flags
	configPath string
	noInherit  bool
	noColor    bool
	verbose    bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "agentbook",
		Short: "Compile agent books into model requirements",
		Long: `A CLI tool for compiling agent books.

An agent book is plain text: the first line names the agent and every
line starting with a commitment keyword (PERSONA, RULE, USE SEARCH ENGINE,
FROM, ...) shapes the compiled system message, model parameters and tools.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML settings file")
	rootCmd.PersistentFlags().BoolVar(&noInherit, "no-inherit", false, "Compile the book alone, ignoring FROM and the default parent")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored log output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show debug logs")

	rootCmd.AddCommand(compileCmd())
	rootCmd.AddCommand(commitmentsCmd())
	rootCmd.AddCommand(toolsCmd())
	rootCmd.AddCommand(requestCmd())
	rootCmd.AddCommand(mcpConfigCmd())
	rootCmd.AddCommand(callCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withApp loads settings, builds the logger and runs fn.
func withApp(fn func(app *cli.App) error) error {
	var (
		settings config.Settings
		err      error
	)
	if configPath != "" {
		settings, err = config.Load(configPath)
	} else {
		settings, err = config.New()
	}
	if err != nil {
		return err
	}
	if verbose {
		settings.Log.Level = "debug"
	}

	logger, closeLog, err := cli.NewLogger(os.Stderr, settings.Log, noColor)
	if err != nil {
		return err
	}
	defer closeLog()

	return fn(cli.NewApp(settings, logger, os.Stdout))
}

func bookOptions() cli.BookOptions {
	return cli.BookOptions{NoInherit: noInherit}
}

func compileCmd() *cobra.Command {
	var systemOnly bool

	cmd := &cobra.Command{
		Use:   "compile [book]",
		Short: "Compile a book and print its requirements as JSON",
		Long: `Compile a book and print its requirements as JSON.

Parents named by FROM are fetched (http, https or file paths relative to
the book) and merged under the book. Use "-" to read the book from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(app *cli.App) error {
				return app.Compile(cmd.Context(), args[0], systemOnly, bookOptions())
			})
		},
	}

	cmd.Flags().BoolVarP(&systemOnly, "system", "s", false, "Print only the system message")

	return cmd
}

func commitmentsCmd() *cobra.Command {
	var verboseList bool

	cmd := &cobra.Command{
		Use:   "commitments",
		Short: "List commitment types",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(app *cli.App) error {
				return app.Commitments(verboseList)
			})
		},
	}

	cmd.Flags().BoolVarP(&verboseList, "long", "l", false, "Show content requirement and description")

	return cmd
}

func toolsCmd() *cobra.Command {
	var verboseTools bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List tools commitments can register",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(app *cli.App) error {
				return app.Tools(verboseTools)
			})
		},
	}

	cmd.Flags().BoolVarP(&verboseTools, "long", "l", false, "Show tool parameters")

	return cmd
}

func requestCmd() *cobra.Command {
	var provider string
	var messages []string

	cmd := &cobra.Command{
		Use:   "request [book]",
		Short: "Print the provider request for a conversation with the book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(app *cli.App) error {
				return app.Request(cmd.Context(), args[0], provider, messages, bookOptions())
			})
		},
	}

	cmd.Flags().StringVarP(&provider, "provider", "p", "openai", "LLM provider (openai, anthropic, deepseek, gemini)")
	cmd.Flags().StringArrayVarP(&messages, "message", "m", nil, "User message (repeatable)")

	return cmd
}

func mcpConfigCmd() *cobra.Command {
	var hostConfig string
	var discover bool

	cmd := &cobra.Command{
		Use:   "mcp-config [book]",
		Short: "Print the MCP server configuration of a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(app *cli.App) error {
				return app.MCPConfig(cmd.Context(), args[0], hostConfig, discover, bookOptions())
			})
		},
	}

	cmd.Flags().StringVar(&hostConfig, "merge", "", "Path to an MCP config file to merge")
	cmd.Flags().BoolVar(&discover, "discover", false, "Start stdio servers and list their tools")

	return cmd
}

func callCmd() *cobra.Command {
	var opts cli.CallOptions

	cmd := &cobra.Command{
		Use:   "call [book] [tool]",
		Short: "Invoke one tool enabled by the book",
		Long: `Invoke one tool enabled by the book and print its result.

Memory and wallet tools need --user. Project tools read the GitHub token
from GITHUB_TOKEN or, with --user, from the wallet.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Tool = args[1]
			opts.Book = bookOptions()
			return withApp(func(app *cli.App) error {
				return app.Call(cmd.Context(), args[0], opts)
			})
		},
	}

	cmd.Flags().StringVarP(&opts.Arguments, "args", "a", "", "Tool arguments as a JSON object")
	cmd.Flags().StringVar(&opts.CallID, "id", "", "Tool call id")
	cmd.Flags().StringVar(&opts.UserID, "user", "", "User id for memory and wallet tools")
	cmd.Flags().StringVar(&opts.RuntimeContext, "runtime-context", "", "Serialized runtime context, overrides --user")

	return cmd
}
