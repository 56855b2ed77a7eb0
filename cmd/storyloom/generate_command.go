package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"storyloom/internal/dispatch"
	"storyloom/internal/pipeline"
	"storyloom/internal/stages"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var (
		jobID         string
		stageFlag     string
		pages         []int
		randomizeSeed bool
		enqueueOnly   bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a stage's pages for a job",
		Long: `Generate runs the full stage for a job: backgrounds (including face
swaps) first, then text composition. With --enqueue the work is queued
for a running worker instead of executing in this process.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := stages.Parse(stageFlag); err != nil {
				return err
			}
			svc, err := ctx.openServices()
			if err != nil {
				return err
			}
			defer svc.Close()

			job, err := resolveJob(cmd, svc, jobID)
			if err != nil {
				return err
			}

			buildArgs := pipeline.BuildBackgroundsArgs{
				JobID:         job.ID,
				Stage:         stageFlag,
				Pages:         pages,
				RandomizeSeed: randomizeSeed,
			}

			out := cmd.OutOrStdout()
			if enqueueOnly {
				if _, err := svc.queue.Enqueue(cmd.Context(), dispatch.TaskBuildBackgrounds, buildArgs, ""); err != nil {
					return fmt.Errorf("enqueue generation: %w", err)
				}
				fmt.Fprintf(out, "Queued %s generation for job %s\n", stageFlag, job.ID)
				return nil
			}

			if err := svc.pipeline.BuildStageBackgrounds(cmd.Context(), buildArgs); err != nil {
				return fmt.Errorf("build backgrounds: %w", err)
			}
			fmt.Fprintln(out, "Backgrounds built")

			composeArgs := pipeline.ComposePagesArgs{JobID: job.ID, Stage: stageFlag, Pages: pages}
			if err := svc.pipeline.ComposeStagePages(cmd.Context(), composeArgs); err != nil {
				return fmt.Errorf("compose pages: %w", err)
			}

			refreshed, err := svc.store.GetByID(cmd.Context(), job.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Pages composed; job %s is %s\n", refreshed.ID, refreshed.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&jobID, "job", "", "Job id or unambiguous prefix (required)")
	cmd.Flags().StringVar(&stageFlag, "stage", "prepay", "Stage to generate (prepay or postpay)")
	cmd.Flags().IntSliceVar(&pages, "pages", nil, "Restrict to specific page numbers")
	cmd.Flags().BoolVar(&randomizeSeed, "randomize-seed", false, "Randomize face-swap seeds for this run")
	cmd.Flags().BoolVar(&enqueueOnly, "enqueue", false, "Queue the work for a worker instead of running it here")
	_ = cmd.MarkFlagRequired("job")
	return cmd
}
