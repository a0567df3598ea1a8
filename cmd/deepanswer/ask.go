package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aiden-Hyun/deepanswer/internal/orchestrator"
)

func newAskCmd() *cobra.Command {
	var (
		model    string
		asJSON   bool
		timeoutS int
	)
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer one question from the command line",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutS)*time.Second)
			defer cancel()

			question := strings.Join(args, " ")
			result, err := a.workflow.Run(ctx, question, orchestrator.Options{ReasoningModel: model})
			if err != nil {
				return err
			}

			if asJSON {
				return json.NewEncoder(os.Stdout).Encode(result)
			}

			fmt.Println(result.FinalAnswerMarkdown)
			if result.TimeWarning != "" {
				fmt.Printf("\n> %s\n", result.TimeWarning)
			}
			if len(result.Citations) > 0 {
				fmt.Println("\nSources:")
				for _, c := range result.Citations {
					fmt.Printf("- %s (%s)\n", c.Title, c.URL)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&model, "model", "", "reasoning model override")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw result as JSON")
	cmd.Flags().IntVar(&timeoutS, "timeout", 90, "overall timeout in seconds")
	return cmd
}
