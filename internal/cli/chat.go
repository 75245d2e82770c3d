package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/elli-study/elli/internal/llm"
	"github.com/elli-study/elli/internal/models"
	"github.com/elli-study/elli/internal/persist"
	"github.com/elli-study/elli/internal/services"
	"github.com/elli-study/elli/internal/sheet"
)

// NewChatCommand runs one interview over stdin/stdout against a CSV sheet.
func NewChatCommand() *cobra.Command {
	var (
		sheetPath string
		model     string
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Run a check-in interview in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), sheetPath, model)
		},
	}
	cmd.Flags().StringVar(&sheetPath, "sheet", "elli-sheet.csv", "CSV sheet to record into")
	cmd.Flags().StringVar(&model, "model", "gpt-4o-mini", "language model (needs OPENAI_API_KEY)")
	return cmd
}

func runChat(ctx context.Context, sheetPath, model string) error {
	store, err := sheet.NewCSVStore(sheetPath)
	if err != nil {
		return fmt.Errorf("open sheet %s: %w", sheetPath, err)
	}

	var lang llm.Service
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		lang = llm.NewClient(key, model)
	} else {
		color.Yellow("OPENAI_API_KEY not set; using rule-based responses")
	}

	svc := services.NewIntakeService(lang, persist.NewAdapter(store))
	bot := color.New(color.FgCyan, color.Bold)
	warn := color.New(color.FgYellow)
	prompt := color.New(color.FgGreen)

	sess, res := svc.NewSession(ctx)
	printMessages(bot, res.Messages)

	scanner := bufio.NewScanner(os.Stdin)
	for sess.Step != models.StepDone {
		prompt.Print("you> ")
		if !scanner.Scan() {
			fmt.Println()
			break
		}
		res := svc.HandleTurn(ctx, sess, scanner.Text())
		for _, w := range res.Warnings {
			warn.Fprintf(os.Stderr, "warning: %s\n", w)
		}
		printMessages(bot, res.Messages)
	}
	return scanner.Err()
}

func printMessages(bot *color.Color, msgs []models.Message) {
	for _, m := range msgs {
		bot.Print("elli> ")
		fmt.Println(m.Text)
	}
}
