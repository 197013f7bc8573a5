package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/avi3tal/infograph/pkg/checkpoints"
	"github.com/avi3tal/infograph/pkg/types"
)

var chatUser string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long: `Read questions from stdin, one per line. Conversation history and the
state of the last turn are kept between questions, so a plan awaiting
confirmation runs when the next line is "yes".

Type /exit to quit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		o, err := newOrchestrator(cfg)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		store := checkpoints.NewStateCheckpointer(checkpoints.NewMemoryStore(cfg.Store.MaxStates))
		key := checkpoints.Key{UserID: chatUser, ConversationID: uuid.NewString()}
		logger.Debug("Starting conversation.", "conversationID", key.ConversationID)

		prompt := color.New(color.FgCyan, color.Bold)
		reader := bufio.NewReader(os.Stdin)
		for {
			prompt.Print("> ")
			line, err := reader.ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return errors.Wrap(err, "reading input")
			}
			input := strings.TrimSpace(line)

			if input == "/exit" {
				return nil
			}
			if input != "" {
				if err := chatTurn(ctx, o, store, key, input); err != nil {
					return err
				}
			}
			if errors.Is(err, io.EOF) {
				fmt.Println()
				return nil
			}
		}
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatUser, "user", "local", "User ID passed to strategies")
}

// turnRunner is the part of the orchestrator a chat turn needs.
type turnRunner interface {
	ProcessUserInput(
		ctx context.Context,
		input string,
		userID string,
		conversation []types.ConversationTurn,
		previous *types.OrchestratorState,
	) types.Response
	ResumeConfirmed(ctx context.Context, userID string, previous *types.OrchestratorState) types.Response
}

func chatTurn(
	ctx context.Context,
	o turnRunner,
	store *checkpoints.StateCheckpointer,
	key checkpoints.Key,
	input string,
) error {
	var conv checkpoints.Conversation
	loaded, err := store.Load(ctx, key)
	switch {
	case err == nil:
		conv = *loaded
	case !errors.Is(err, checkpoints.ErrCheckpointNotFound):
		return err
	}

	var resp types.Response
	if conv.State != nil && conv.State.AwaitingConfirmation && isAffirmative(input) {
		resp = o.ResumeConfirmed(ctx, key.UserID, conv.State)
	} else {
		resp = o.ProcessUserInput(ctx, input, key.UserID, conv.History, conv.State)
	}
	printResponse(resp)

	history := append(conv.History,
		types.ConversationTurn{Role: types.RoleUser, Content: input},
		types.ConversationTurn{Role: types.RoleAssistant, Content: resp.Message},
	)
	return store.Save(ctx, key, resp.State, history)
}

func isAffirmative(input string) bool {
	switch strings.ToLower(strings.Trim(input, " .!")) {
	case "y", "yes", "ok", "okay", "confirm", "go", "go ahead", "proceed":
		return true
	}
	return false
}
