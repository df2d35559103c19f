package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/enfinlibre/formation/internal/config"
	"github.com/enfinlibre/formation/internal/course"
	"github.com/enfinlibre/formation/internal/feedback"
	"github.com/enfinlibre/formation/internal/llm"
	"github.com/enfinlibre/formation/internal/logging"
	"github.com/enfinlibre/formation/internal/quizerr"
	"github.com/enfinlibre/formation/internal/store"
)

var submissionsCmd = &cobra.Command{
	Use:     "submissions",
	Aliases: []string{"sub"},
	Short:   "Inspect stored quiz submissions",
}

var submissionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List submissions, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return withBackend(cmd, func(ctx context.Context, _ *config.Config, b store.Backend) error {
			subs, err := b.SubmissionRepo().List(ctx, store.ListOpts{Limit: limit})
			if err != nil {
				return fmt.Errorf("list submissions: %w", err)
			}
			if len(subs) == 0 {
				fmt.Println("No submissions found.")
				return nil
			}

			fmt.Printf("%-36s  %-16s  %-24s  %-28s  %-8s  %s\n",
				"ID", "Created", "Name", "Email", "Progress", "Analysis")
			fmt.Println(strings.Repeat("─", 128))
			for _, s := range subs {
				analysed := "-"
				if s.HasAnalysis() {
					analysed = "✓"
				}
				fmt.Printf("%-36s  %-16s  %-24s  %-28s  %-8s  %s\n",
					s.ID,
					s.CreatedAt.Local().Format("2006-01-02 15:04"),
					truncate(s.FirstName+" "+s.LastName, 24),
					truncate(s.Email, 28),
					fmt.Sprintf("%d/%d", s.CompletedModules, s.TotalModules),
					analysed,
				)
			}
			return nil
		})
	},
}

var submissionsViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "Show a submission with its answers and analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackend(cmd, func(ctx context.Context, _ *config.Config, b store.Backend) error {
			s, err := b.SubmissionRepo().Get(ctx, args[0])
			if err != nil {
				return fmt.Errorf("get submission: %w", err)
			}
			if s == nil {
				return fmt.Errorf("submission %s not found", args[0])
			}
			printSubmission(s)
			return nil
		})
	},
}

var submissionsAnalyzeCmd = &cobra.Command{
	Use:   "analyze <id>",
	Short: "Generate the analysis of a submission if none is stored",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackend(cmd, func(ctx context.Context, cfg *config.Config, b store.Backend) error {
			logCfg := cfg.Logging
			logCfg.Console = false
			logger, _, err := logging.New(logCfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			if err := cfg.LLM.Validate(); err != nil {
				return fmt.Errorf("LLM provider not configured: %w", err)
			}
			provider, err := llm.NewProvider(ctx, cfg.LLM, b.EventRepo(), logger)
			if err != nil {
				return fmt.Errorf("create LLM provider: %w", err)
			}

			svc := feedback.NewService(b.SubmissionRepo(), provider, cfg.Analysis, nil, logger)
			res, err := svc.Analyze(ctx, args[0])
			var notFound *quizerr.ErrNotFound
			if errors.As(err, &notFound) {
				return err
			}
			if err != nil && res == nil {
				return err
			}
			if err != nil {
				fmt.Println("Warning: analysis generated but not saved:", err)
			} else if res.Cached {
				fmt.Println("Analysis already stored; nothing generated.")
			}
			fmt.Println()
			fmt.Println(res.Analysis)
			printScores(res.Breakdown)
			return nil
		})
	},
}

func printSubmission(s *store.Submission) {
	sep := strings.Repeat("─", 60)

	fmt.Printf("ID:        %s\n", s.ID)
	fmt.Printf("Created:   %s\n", s.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("Name:      %s %s\n", s.FirstName, s.LastName)
	fmt.Printf("Email:     %s\n", s.Email)
	fmt.Printf("Progress:  %d/%d modules\n", s.CompletedModules, s.TotalModules)

	for _, ex := range course.Exercises() {
		fmt.Println()
		fmt.Println(sep)
		fmt.Printf("QUESTION %d  %s\n", ex.ID, ex.Question)
		fmt.Println(sep)
		if a, ok := s.Answers[ex.ID]; ok {
			fmt.Println(a)
		} else {
			fmt.Println(feedback.NotAnswered)
		}
	}

	fmt.Println()
	fmt.Println(sep)
	fmt.Println("ANALYSIS")
	fmt.Println(sep)
	if !s.HasAnalysis() {
		fmt.Println("(none yet, run `formation submissions analyze " + s.ID + "`)")
		return
	}
	fmt.Println(*s.Analysis)
	printScores(feedback.ParseFeedback(*s.Analysis))
}

func printScores(b feedback.Breakdown) {
	fmt.Println()
	parts := make([]string, 0, len(course.Exercises()))
	for _, ex := range course.Exercises() {
		score := "?"
		if q, ok := b[ex.ID]; ok && q.Score.Found {
			score = fmt.Sprintf("%d/10", q.Score.Value)
		}
		parts = append(parts, fmt.Sprintf("Q%d %s", ex.ID, score))
	}
	fmt.Println("Scores:", strings.Join(parts, "  "))
}

func init() {
	submissionsListCmd.Flags().IntP("limit", "n", 20, "Number of submissions to show (0 = all)")

	submissionsCmd.AddCommand(submissionsListCmd)
	submissionsCmd.AddCommand(submissionsViewCmd)
	submissionsCmd.AddCommand(submissionsAnalyzeCmd)
}
