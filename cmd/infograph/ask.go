package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/avi3tal/infograph/pkg/types"
)

var (
	askYes  bool
	askUser string
)

var askCmd = &cobra.Command{
	Use:   "ask <query>",
	Short: "Answer a single question",
	Long: `Run one query through decomposition, execution and synthesis.

If the plan needs confirmation, the estimate is printed and nothing runs unless
--yes is given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		o, err := newOrchestrator(cfg)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		resp := o.ProcessUserInput(ctx, strings.Join(args, " "), askUser, nil, nil)
		if awaitingConfirmation(resp) {
			if !askYes {
				printResponse(resp)
				fmt.Println(color.New(color.Faint).Sprint("Re-run with --yes to execute this plan."))
				return nil
			}
			printResponse(resp)
			resp = o.ResumeConfirmed(ctx, askUser, resp.State)
		}

		printResponse(resp)
		if !resp.Success {
			return fmt.Errorf("request %s failed", resp.Metadata.RequestID)
		}
		return nil
	},
}

func init() {
	askCmd.Flags().BoolVarP(&askYes, "yes", "y", false, "Execute plans that need confirmation")
	askCmd.Flags().StringVar(&askUser, "user", "local", "User ID passed to strategies")
}

func awaitingConfirmation(resp types.Response) bool {
	return resp.Success && resp.State != nil && resp.State.AwaitingConfirmation
}

func printResponse(resp types.Response) {
	switch {
	case !resp.Success:
		fmt.Println(color.RedString(resp.Message))
	case awaitingConfirmation(resp):
		fmt.Println(color.YellowString(resp.Message))
	default:
		fmt.Println(resp.Message)
	}

	md := resp.Metadata
	fmt.Println(color.New(color.Faint).Sprintf("[%s] %d steps, %d tokens, %dms",
		md.RequestID, md.TotalSteps, md.TokensUsed, md.ProcessingTimeMs))
}
