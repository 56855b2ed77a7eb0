package pipeline

import (
	"context"
	"fmt"
	"image"

	"storyloom/internal/blob"
	"storyloom/internal/jobs"
	"storyloom/internal/logging"
	"storyloom/internal/manifest"
	"storyloom/internal/render"
	"storyloom/internal/services"
	"storyloom/internal/stages"
)

// ComposeStagePages renders text layers onto every background in the stage's
// set and stores the final page artifacts. Successful completion moves the
// job to its stage-terminal status: prepay_ready or completed.
func (p *Pipeline) ComposeStagePages(ctx context.Context, args ComposePagesArgs) error {
	stage, err := stages.Parse(args.Stage)
	if err != nil {
		return services.Wrap(services.ErrValidation, args.Stage, "compose", "parse stage", err)
	}
	job, err := p.store.GetByID(ctx, args.JobID)
	if err != nil {
		return err
	}
	ctx = services.WithStage(services.WithJobID(ctx, job.ID), string(stage))

	if err := p.composePages(ctx, job, stage, args); err != nil {
		log := logging.WithContext(ctx, p.log)
		log.Error("page composition failed",
			logging.String(logging.FieldPhase, "compose"),
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

func (p *Pipeline) composePages(ctx context.Context, job *jobs.Job, stage stages.Stage, args ComposePagesArgs) error {
	log := logging.WithContext(ctx, p.log)
	log.Info("composing stage pages",
		logging.String(logging.FieldPhase, "compose"),
		logging.String(logging.FieldEventType, "phase_start"),
	)

	m, err := manifest.Load(ctx, p.blobs, job.Slug)
	if err != nil {
		return err
	}

	if target := generatingStatus(stage); job.Status != target {
		if err := p.store.Transition(ctx, job, target); err != nil {
			return err
		}
	}

	vars := templateVars(job)
	pageNums := filterPages(stages.PagesForStage(m, stage), args.Pages)

	for _, num := range pageNums {
		spec := m.PageByNum(num)
		if spec == nil {
			return services.Wrap(services.ErrConfiguration, string(stage), "compose",
				fmt.Sprintf("manifest %s has no page %d", m.Slug, num), nil)
		}
		if err := p.composeOne(ctx, job, stage, m, num, spec.BaseKey, spec.NeedsFaceSwap, spec.TextLayers, m.Typography, vars); err != nil {
			return err
		}
	}

	for _, cover := range stages.CoversForStage(m, stage) {
		typo := coverTypography(m, cover.Spec)
		if err := p.composeOne(ctx, job, stage, m, cover.Type.PageNum(), cover.Spec.BaseKey, cover.Spec.NeedsFaceSwap, cover.Spec.TextLayers, typo, vars); err != nil {
			return err
		}
	}

	if err := p.store.Transition(ctx, job, readyStatus(stage)); err != nil {
		return err
	}
	log.Info("stage pages composed",
		logging.String(logging.FieldPhase, "compose"),
		logging.String(logging.FieldEventType, "phase_complete"),
		logging.Int("pages", len(pageNums)),
		logging.String("status", string(job.Status)),
	)
	return nil
}

// coverTypography resolves the typography for a cover: per-cover override,
// then the covers group default, then the book default.
func coverTypography(m *manifest.Manifest, spec *manifest.CoverSpec) manifest.TypographySpec {
	if spec.Typography != nil {
		return *spec.Typography
	}
	if m.Covers != nil && m.Covers.Typography != nil {
		return *m.Covers.Typography
	}
	return m.Typography
}

func (p *Pipeline) composeOne(ctx context.Context, job *jobs.Job, stage stages.Stage, m *manifest.Manifest, pageNum int, baseKey string, faceSwap bool, layers []manifest.TextLayer, typo manifest.TypographySpec, vars map[string]string) error {
	background, err := p.loadBackground(ctx, job, stage, pageNum, baseKey, faceSwap, m.Output)
	if err != nil {
		return err
	}

	final := background
	if len(layers) > 0 {
		final, err = p.comp.CompositeLayers(ctx, background, render.Params{
			Layers:       layers,
			TemplateVars: vars,
			OutputPx:     m.Output.PageSizePx,
			Typography:   typo,
			DPI:          m.Output.DPI,
			SafeZonePt:   m.Output.SafeZonePt,
		})
		if err != nil {
			return fmt.Errorf("composite page %d: %w", pageNum, err)
		}
	}

	data, err := render.EncodePNG(render.NormalizeSize(final, m.Output.PageSizePx), m.Output.DPI)
	if err != nil {
		return fmt.Errorf("encode final page %d: %w", pageNum, err)
	}
	key := blob.FinalKey(job.ID, pageNum)
	locator, err := p.blobs.Write(ctx, key, data, blob.Metadata{"content-type": "image/png"})
	if err != nil {
		return fmt.Errorf("store final page %s: %w", key, err)
	}
	return p.store.AddArtifact(ctx, &jobs.Artifact{
		JobID:   job.ID,
		Stage:   string(stage),
		Kind:    jobs.ArtifactPageFinal,
		PageNum: pageNum,
		Locator: locator,
	})
}

// loadBackground returns the page's background image. Face-swap pages must
// already have a stored background from the build phase; swap-free pages are
// derived from the base illustration here so composition can run standalone,
// with the derived background persisted the same way the build phase would.
func (p *Pipeline) loadBackground(ctx context.Context, job *jobs.Job, stage stages.Stage, pageNum int, baseKey string, faceSwap bool, out manifest.OutputSpec) (image.Image, error) {
	if faceSwap && !p.cfg.FaceSwap.Skip {
		data, err := p.blobs.Read(ctx, blob.BackgroundKey(job.ID, pageNum))
		if err != nil {
			return nil, fmt.Errorf("background for face-swap page %d missing, run background build first: %w", pageNum, err)
		}
		img, err := render.DecodeImage(data)
		if err != nil {
			return nil, fmt.Errorf("decode background for page %d: %w", pageNum, err)
		}
		return img, nil
	}

	base, _, err := blob.ReadVariant(ctx, p.blobs, baseKey)
	if err != nil {
		return nil, fmt.Errorf("load base illustration %s: %w", baseKey, err)
	}
	if err := p.writeBackground(ctx, job, stage, pageNum, base, out); err != nil {
		return nil, err
	}
	img, err := render.DecodeImage(base)
	if err != nil {
		return nil, fmt.Errorf("decode base illustration %s: %w", baseKey, err)
	}
	return render.NormalizeSize(img, out.PageSizePx), nil
}
