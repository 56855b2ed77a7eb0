package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"storyloom/internal/dispatch"
	"storyloom/internal/jobs"
	"storyloom/internal/pipeline"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Manage generation jobs",
	}

	jobsCmd.AddCommand(newJobsNewCommand(ctx))
	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	jobsCmd.AddCommand(newJobsRetryCommand(ctx))

	return jobsCmd
}

func newJobsNewCommand(ctx *commandContext) *cobra.Command {
	var (
		slug     string
		name     string
		age      int
		gender   string
		photoKey string
		prompt   string
		analyze  bool
	)

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a generation job for a book",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.openServices()
			if err != nil {
				return err
			}
			defer svc.Close()

			job, err := svc.store.NewJob(cmd.Context(), jobs.NewJobParams{
				Slug:          slug,
				ChildName:     name,
				ChildAge:      age,
				ChildGender:   gender,
				ChildPhotoKey: photoKey,
				CommonPrompt:  prompt,
			})
			if err != nil {
				return fmt.Errorf("create job: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created job %s for book %s\n", job.ID, job.Slug)

			if analyze {
				if !svc.cfg.Vision.Enabled {
					return fmt.Errorf("vision analysis is disabled in the configuration")
				}
				if _, err := svc.queue.Enqueue(cmd.Context(), dispatch.TaskAnalyzePhoto,
					pipeline.AnalyzeArgs{JobID: job.ID}, ""); err != nil {
					return fmt.Errorf("enqueue analysis: %w", err)
				}
				fmt.Fprintln(out, "Photo analysis queued")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&slug, "slug", "", "Book slug (required)")
	cmd.Flags().StringVar(&name, "name", "", "Child's name (required)")
	cmd.Flags().IntVar(&age, "age", 0, "Child's age")
	cmd.Flags().StringVar(&gender, "gender", "", "Child's gender")
	cmd.Flags().StringVar(&photoKey, "photo-key", "", "Blob key of the child's photo")
	cmd.Flags().StringVar(&prompt, "prompt", "", "Common generation prompt")
	cmd.Flags().BoolVar(&analyze, "analyze", false, "Queue photo analysis after creation")
	_ = cmd.MarkFlagRequired("slug")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var statusFilter []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List generation jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.openServices()
			if err != nil {
				return err
			}
			defer svc.Close()

			statuses := make([]jobs.Status, 0, len(statusFilter))
			for _, raw := range statusFilter {
				status, ok := jobs.ParseStatus(raw)
				if !ok {
					return fmt.Errorf("unknown status %q", raw)
				}
				statuses = append(statuses, status)
			}

			list, err := svc.store.List(cmd.Context(), statuses...)
			if err != nil {
				return fmt.Errorf("list jobs: %w", err)
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No jobs")
				return nil
			}

			rows := make([][]string, 0, len(list))
			for _, job := range list {
				rows = append(rows, []string{
					shortID(job.ID),
					job.Slug,
					job.ChildName,
					string(job.Status),
					job.UpdatedAt.Local().Format("2006-01-02 15:04"),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Book", "Child", "Status", "Updated"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&statusFilter, "status", nil, "Filter by status (repeatable)")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show a job and its artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.openServices()
			if err != nil {
				return err
			}
			defer svc.Close()

			job, err := resolveJob(cmd, svc, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			rows := [][]string{
				{"ID", job.ID},
				{"Book", job.Slug},
				{"Child", fmt.Sprintf("%s (%d, %s)", job.ChildName, job.ChildAge, job.ChildGender)},
				{"Status", string(job.Status)},
				{"Photo key", job.ChildPhotoKey},
				{"Prompt", job.CommonPrompt},
				{"Created", job.CreatedAt.Local().Format("2006-01-02 15:04:05")},
				{"Updated", job.UpdatedAt.Local().Format("2006-01-02 15:04:05")},
			}
			if job.ErrorMessage != "" {
				rows = append(rows, []string{"Error", job.ErrorMessage})
			}
			fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, nil))

			for _, stage := range []string{"prepay", "postpay"} {
				for _, kind := range []string{jobs.ArtifactPageBackground, jobs.ArtifactPageFinal} {
					artifacts, err := svc.store.ArtifactsByStage(cmd.Context(), job.ID, stage, kind)
					if err != nil {
						return fmt.Errorf("list artifacts: %w", err)
					}
					if len(artifacts) == 0 {
						continue
					}
					fmt.Fprintf(out, "\n%s %s:\n", stage, kind)
					artRows := make([][]string, 0, len(artifacts))
					for _, a := range artifacts {
						artRows = append(artRows, []string{
							fmt.Sprintf("%d", a.PageNum),
							a.Locator,
							a.CreatedAt.Local().Format("2006-01-02 15:04:05"),
						})
					}
					fmt.Fprintln(out, renderTable([]string{"Page", "Locator", "Created"}, artRows,
						[]columnAlignment{alignRight, alignLeft, alignLeft}))
				}
			}
			return nil
		},
	}
}

func newJobsRetryCommand(ctx *commandContext) *cobra.Command {
	var (
		stage         string
		randomizeSeed bool
	)

	cmd := &cobra.Command{
		Use:   "retry <job-id>",
		Short: "Re-queue generation for a failed job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.openServices()
			if err != nil {
				return err
			}
			defer svc.Close()

			job, err := resolveJob(cmd, svc, args[0])
			if err != nil {
				return err
			}

			if randomizeSeed {
				if err := jobs.SetRandomizeSeed(job); err != nil {
					return err
				}
				if err := svc.store.Update(cmd.Context(), job); err != nil {
					return fmt.Errorf("record retry directive: %w", err)
				}
			}

			if _, err := svc.queue.Enqueue(cmd.Context(), dispatch.TaskBuildBackgrounds,
				pipeline.BuildBackgroundsArgs{JobID: job.ID, Stage: stage}, ""); err != nil {
				return fmt.Errorf("enqueue generation: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued %s generation for job %s\n", stage, job.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&stage, "stage", "prepay", "Stage to regenerate (prepay or postpay)")
	cmd.Flags().BoolVar(&randomizeSeed, "randomize-seed", false, "Randomize face-swap seeds on this retry")
	return cmd
}

// resolveJob accepts a full job id or an unambiguous prefix.
func resolveJob(cmd *cobra.Command, svc *serviceSet, raw string) (*jobs.Job, error) {
	raw = strings.TrimSpace(raw)
	if job, err := svc.store.GetByID(cmd.Context(), raw); err == nil {
		return job, nil
	}

	all, err := svc.store.List(cmd.Context())
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	var match *jobs.Job
	for _, job := range all {
		if strings.HasPrefix(job.ID, raw) {
			if match != nil {
				return nil, fmt.Errorf("job id prefix %q is ambiguous", raw)
			}
			match = job
		}
	}
	if match == nil {
		return nil, fmt.Errorf("no job matches %q", raw)
	}
	return match, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
