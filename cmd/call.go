package cmd

import (
	"fmt"

	"github.com/mailru/easyjson"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tidwall/gjson"

	"github.com/liuxd6825/cdpdriver/errext"
	"github.com/liuxd6825/cdpdriver/errext/exitcodes"
)

type cmdCall struct {
	gs *globalState

	tab   string
	query string
}

func (c *cmdCall) flagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.SortFlags = false
	flags.StringVar(&c.tab, "tab", "", "open a tab on this URL and send the call to it instead of the browser")
	flags.StringVarP(&c.query, "query", "q", "", "print only the part of the result selected by this GJSON path")
	return flags
}

func (c *cmdCall) run(cmd *cobra.Command, args []string) error {
	method := args[0]
	params := easyjson.RawMessage("{}")
	if len(args) > 1 {
		if !gjson.Valid(args[1]) {
			return errext.WithExitCodeIfNone(
				fmt.Errorf("the parameters of %s are not valid JSON", method), exitcodes.InvalidConfig)
		}
		params = easyjson.RawMessage(args[1])
	}

	b, err := startBrowser(c.gs, cmd.Flags())
	if err != nil {
		return err
	}
	defer b.Close()

	var res easyjson.RawMessage
	if cmd.Flags().Changed("tab") {
		tab, err := b.NewTab(c.tab)
		if err != nil {
			return withExitCode(err)
		}
		res, err = tab.CallMethod(c.gs.ctx, method, params)
		if err != nil {
			return withExitCode(err)
		}
	} else {
		res, err = b.Connection().CallMethod(c.gs.ctx, "", method, params)
		if err != nil {
			return withExitCode(err)
		}
	}

	out := gjson.ParseBytes(res)
	if c.query != "" {
		out = out.Get(c.query)
		if !out.Exists() {
			return errext.WithExitCodeIfNone(
				fmt.Errorf("%q matched nothing in the result of %s", c.query, method), exitcodes.GenericError)
		}
	}
	c.gs.console.Printf("%s\n", out.String())

	return nil
}

func getCmdCall(gs *globalState) *cobra.Command {
	c := &cmdCall{gs: gs}

	callCmd := &cobra.Command{
		Use:   "call METHOD [PARAMS]",
		Short: "Send one DevTools protocol command",
		Long: `Send one DevTools protocol command and print its result as JSON.

PARAMS is the JSON object of the command's parameters.`,
		Example: `
  # Print the browser's user agent.
  cdpdriver call Browser.getVersion -q userAgent

  # Evaluate an expression in a new tab.
  cdpdriver call Runtime.evaluate '{"expression":"1+1"}' --tab about:blank -q result.value`[1:],
		Args: rangeArgsWithMsg(1, 2, "a method name and optionally its JSON parameters"),
		RunE: c.run,
	}
	callCmd.Flags().SortFlags = false
	callCmd.Flags().AddFlagSet(c.flagSet())
	callCmd.Flags().AddFlagSet(launchFlagSet())

	return callCmd
}
