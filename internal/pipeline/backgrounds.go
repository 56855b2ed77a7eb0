package pipeline

import (
	"context"
	"fmt"

	"storyloom/internal/blob"
	"storyloom/internal/dispatch"
	"storyloom/internal/jobs"
	"storyloom/internal/logging"
	"storyloom/internal/manifest"
	"storyloom/internal/render"
	"storyloom/internal/services"
	"storyloom/internal/services/faceswap"
	"storyloom/internal/stages"
)

// renderTarget is one page or cover slot scheduled for background production.
type renderTarget struct {
	pageNum  int
	baseKey  string
	faceSwap bool
	prompt   string
	negative string
}

type pendingSwap struct {
	pageNum int
	token   string
}

// BuildStageBackgrounds produces the background artifact for every page in
// the stage's set. Face-swap pages are all submitted before any result is
// collected so the remote renders overlap with local work; swap-free pages
// are normalized and stored while the service runs. Any failure marks the
// job generation_failed and surfaces the original error.
func (p *Pipeline) BuildStageBackgrounds(ctx context.Context, args BuildBackgroundsArgs) error {
	stage, err := stages.Parse(args.Stage)
	if err != nil {
		return services.Wrap(services.ErrValidation, args.Stage, "backgrounds", "parse stage", err)
	}
	job, err := p.store.GetByID(ctx, args.JobID)
	if err != nil {
		return err
	}
	ctx = services.WithStage(services.WithJobID(ctx, job.ID), string(stage))

	if err := p.buildBackgrounds(ctx, job, stage, args); err != nil {
		log := logging.WithContext(ctx, p.log)
		log.Error("background build failed",
			logging.String(logging.FieldPhase, "backgrounds"),
			logging.String(logging.FieldEventType, "phase_failure"),
			logging.Error(err),
		)
		if markErr := p.store.MarkGenerationFailed(ctx, job, err.Error()); markErr != nil {
			log.Warn("could not record generation failure", logging.Error(markErr))
		}
		return err
	}
	return nil
}

func (p *Pipeline) buildBackgrounds(ctx context.Context, job *jobs.Job, stage stages.Stage, args BuildBackgroundsArgs) error {
	log := logging.WithContext(ctx, p.log)
	log.Info("building stage backgrounds",
		logging.String(logging.FieldPhase, "backgrounds"),
		logging.String(logging.FieldEventType, "phase_start"),
	)

	m, err := manifest.Load(ctx, p.blobs, job.Slug)
	if err != nil {
		return err
	}

	pageNums := filterPages(stages.PagesForStage(m, stage), args.Pages)

	// The one-shot directive is consumed on a scratch copy: a failed run must
	// leave it in place so the retry still randomizes.
	randomize := args.RandomizeSeed
	consumed := false
	scratch := *job
	if stage == stages.StagePrepay {
		set, err := jobs.ConsumeRandomizeSeed(&scratch)
		if err != nil {
			return err
		}
		if set {
			randomize = true
			consumed = true
		}
	}

	if target := generatingStatus(stage); job.Status != target {
		if err := p.store.Transition(ctx, job, target); err != nil {
			return err
		}
	}

	targets := make([]renderTarget, 0, len(pageNums))
	for _, num := range pageNums {
		spec := m.PageByNum(num)
		if spec == nil {
			return services.Wrap(services.ErrConfiguration, string(stage), "backgrounds",
				fmt.Sprintf("manifest %s has no page %d", m.Slug, num), nil)
		}
		targets = append(targets, renderTarget{
			pageNum:  num,
			baseKey:  spec.BaseKey,
			faceSwap: spec.NeedsFaceSwap,
			prompt:   spec.Prompt,
			negative: spec.NegativePrompt,
		})
	}

	coverTargets := make([]renderTarget, 0, 2)
	for _, cover := range stages.CoversForStage(m, stage) {
		coverTargets = append(coverTargets, renderTarget{
			pageNum:  cover.Type.PageNum(),
			baseKey:  cover.Spec.BaseKey,
			faceSwap: cover.Spec.NeedsFaceSwap,
			prompt:   cover.Spec.Prompt,
			negative: cover.Spec.NegativePrompt,
		})
	}

	childPhoto, err := p.loadChildPhoto(ctx, job, append(append([]renderTarget{}, targets...), coverTargets...))
	if err != nil {
		return err
	}

	if err := p.runBatch(ctx, job, stage, m, targets, childPhoto, randomize); err != nil {
		return err
	}
	// Covers run as their own submit/store/collect cycle after the interior
	// pages are settled.
	if err := p.runBatch(ctx, job, stage, m, coverTargets, childPhoto, randomize); err != nil {
		return err
	}

	if consumed {
		job.AnalysisJSON = scratch.AnalysisJSON
		if err := p.store.Update(ctx, job); err != nil {
			return fmt.Errorf("clear randomize-seed directive: %w", err)
		}
	}

	composeArgs := ComposePagesArgs{JobID: job.ID, Stage: string(stage), Pages: args.Pages}
	if _, err := p.queue.Enqueue(ctx, dispatch.TaskComposePages, composeArgs, p.cfg.Workflow.RenderQueue); err != nil {
		return fmt.Errorf("dispatch compose task: %w", err)
	}

	log.Info("stage backgrounds built",
		logging.String(logging.FieldPhase, "backgrounds"),
		logging.String(logging.FieldEventType, "phase_complete"),
		logging.Int("pages", len(targets)),
		logging.Int("covers", len(coverTargets)),
	)
	return nil
}

// loadChildPhoto fetches the source photo once when any target needs a face
// swap. A face-swap page on a job without a photo is a setup mistake that no
// amount of retrying fixes.
func (p *Pipeline) loadChildPhoto(ctx context.Context, job *jobs.Job, targets []renderTarget) ([]byte, error) {
	if p.cfg.FaceSwap.Skip {
		return nil, nil
	}
	needed := false
	for _, t := range targets {
		if t.faceSwap {
			needed = true
			break
		}
	}
	if !needed {
		return nil, nil
	}
	if job.ChildPhotoKey == "" {
		return nil, services.Wrap(services.ErrValidation, "", "backgrounds",
			"job has face-swap pages but no child photo", nil)
	}
	photo, _, err := blob.ReadVariant(ctx, p.blobs, job.ChildPhotoKey)
	if err != nil {
		return nil, fmt.Errorf("load child photo %s: %w", job.ChildPhotoKey, err)
	}
	return photo, nil
}

// runBatch drives one submit/store/collect cycle over a target set.
func (p *Pipeline) runBatch(ctx context.Context, job *jobs.Job, stage stages.Stage, m *manifest.Manifest, targets []renderTarget, childPhoto []byte, randomize bool) error {
	var (
		pending   []pendingSwap
		immediate []renderTarget
	)

	for _, t := range targets {
		if !t.faceSwap || p.cfg.FaceSwap.Skip {
			immediate = append(immediate, t)
			continue
		}
		token, err := p.submitSwap(ctx, job, t, childPhoto, randomize)
		if err != nil {
			return err
		}
		pending = append(pending, pendingSwap{pageNum: t.pageNum, token: token})
	}

	for _, t := range immediate {
		base, _, err := blob.ReadVariant(ctx, p.blobs, t.baseKey)
		if err != nil {
			return fmt.Errorf("load base illustration %s: %w", t.baseKey, err)
		}
		if err := p.writeBackground(ctx, job, stage, t.pageNum, base, m.Output); err != nil {
			return err
		}
	}

	// Collect in submission order; the service finishes in whatever order it
	// likes, but artifacts land deterministically.
	for _, s := range pending {
		data, err := p.swap.Collect(ctx, s.token)
		if err != nil {
			return fmt.Errorf("collect face swap for page %d: %w", s.pageNum, err)
		}
		if err := p.writeBackground(ctx, job, stage, s.pageNum, data, m.Output); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) submitSwap(ctx context.Context, job *jobs.Job, t renderTarget, childPhoto []byte, randomize bool) (string, error) {
	base, _, err := blob.ReadVariant(ctx, p.blobs, t.baseKey)
	if err != nil {
		return "", fmt.Errorf("load base illustration %s: %w", t.baseKey, err)
	}
	mask, _, err := blob.ReadMask(ctx, p.blobs, t.baseKey)
	if err != nil {
		return "", fmt.Errorf("load mask for %s: %w", t.baseKey, err)
	}

	req := faceswap.SubmitRequest{
		SourcePhoto:        childPhoto,
		TargetIllustration: base,
		Mask:               mask,
		Prompt:             firstNonEmpty(t.prompt, job.CommonPrompt, p.cfg.FaceSwap.DefaultPrompt, "child portrait"),
		NegativePrompt:     firstNonEmpty(t.negative, p.cfg.FaceSwap.DefaultNegative, "low quality, bad face, distorted"),
	}
	if randomize {
		seed := faceswap.RandomSeed()
		req.Seed = &seed
	}

	token, err := p.swap.Submit(ctx, req)
	if err != nil {
		return "", fmt.Errorf("submit face swap for page %d: %w", t.pageNum, err)
	}
	logging.WithContext(ctx, p.log).Debug("face swap submitted",
		logging.Int(logging.FieldPageNum, t.pageNum),
		logging.String("token", token),
	)
	return token, nil
}

// writeBackground normalizes the raw image to the output size, stamps print
// density, and stores it under the page's deterministic background key.
func (p *Pipeline) writeBackground(ctx context.Context, job *jobs.Job, stage stages.Stage, pageNum int, raw []byte, out manifest.OutputSpec) error {
	img, err := render.DecodeImage(raw)
	if err != nil {
		return fmt.Errorf("decode image for page %d: %w", pageNum, err)
	}
	data, err := render.EncodePNG(render.NormalizeSize(img, out.PageSizePx), out.DPI)
	if err != nil {
		return fmt.Errorf("encode background for page %d: %w", pageNum, err)
	}

	key := blob.BackgroundKey(job.ID, pageNum)
	locator, err := p.blobs.Write(ctx, key, data, blob.Metadata{"content-type": "image/png"})
	if err != nil {
		return fmt.Errorf("store background %s: %w", key, err)
	}
	return p.store.AddArtifact(ctx, &jobs.Artifact{
		JobID:   job.ID,
		Stage:   string(stage),
		Kind:    jobs.ArtifactPageBackground,
		PageNum: pageNum,
		Locator: locator,
	})
}
