package pipeline

import (
	"context"
	"fmt"

	"storyloom/internal/dispatch"
	"storyloom/internal/services"
)

// Execute runs one claimed task to completion. The worker loop owns claim,
// retry, and completion bookkeeping; this only maps task names to pipeline
// operations.
func (p *Pipeline) Execute(ctx context.Context, task *dispatch.Task) error {
	switch task.Name {
	case dispatch.TaskBuildBackgrounds:
		var args BuildBackgroundsArgs
		if err := task.UnmarshalArgs(&args); err != nil {
			return fmt.Errorf("%w: decode %s args: %w", services.ErrValidation, task.Name, err)
		}
		return p.BuildStageBackgrounds(ctx, args)
	case dispatch.TaskComposePages:
		var args ComposePagesArgs
		if err := task.UnmarshalArgs(&args); err != nil {
			return fmt.Errorf("%w: decode %s args: %w", services.ErrValidation, task.Name, err)
		}
		return p.ComposeStagePages(ctx, args)
	case dispatch.TaskAnalyzePhoto:
		var args AnalyzeArgs
		if err := task.UnmarshalArgs(&args); err != nil {
			return fmt.Errorf("%w: decode %s args: %w", services.ErrValidation, task.Name, err)
		}
		return p.AnalyzeChildPhoto(ctx, args)
	default:
		return fmt.Errorf("%w: unknown task %q", services.ErrValidation, task.Name)
	}
}
