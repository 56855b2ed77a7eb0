package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"storyloom/internal/blob"
	"storyloom/internal/jobs"
	"storyloom/internal/logging"
	"storyloom/internal/services"
	"storyloom/internal/services/vision"
)

// AnalyzeChildPhoto runs vision analysis over the job's child photo and
// folds the detected attributes into the job's generation prompt. Failure
// moves the job to analysis_failed; the job can be re-queued for another
// attempt from there.
func (p *Pipeline) AnalyzeChildPhoto(ctx context.Context, args AnalyzeArgs) error {
	job, err := p.store.GetByID(ctx, args.JobID)
	if err != nil {
		return err
	}
	ctx = services.WithJobID(ctx, job.ID)
	log := logging.WithContext(ctx, p.log)

	if !p.cfg.Vision.Enabled {
		log.Info("vision analysis disabled, leaving job untouched")
		return nil
	}

	if err := p.store.Transition(ctx, job, jobs.StatusAnalyzing); err != nil {
		return err
	}
	if err := p.analyze(ctx, job); err != nil {
		log.Error("child photo analysis failed",
			logging.String(logging.FieldPhase, "analyze"),
			logging.String(logging.FieldEventType, "phase_failure"),
			logging.Error(err),
		)
		if failErr := p.store.Transition(ctx, job, jobs.StatusAnalysisFailed); failErr != nil {
			log.Warn("could not record analysis failure", logging.Error(failErr))
		} else {
			job.ErrorMessage = err.Error()
			if updateErr := p.store.Update(ctx, job); updateErr != nil {
				log.Warn("could not record analysis failure message", logging.Error(updateErr))
			}
		}
		return err
	}
	return p.store.Transition(ctx, job, jobs.StatusAnalyzed)
}

func (p *Pipeline) analyze(ctx context.Context, job *jobs.Job) error {
	if job.ChildPhotoKey == "" {
		return services.Wrap(services.ErrValidation, "", "analyze", "job has no child photo", nil)
	}
	photo, _, err := blob.ReadVariant(ctx, p.blobs, job.ChildPhotoKey)
	if err != nil {
		return fmt.Errorf("load child photo %s: %w", job.ChildPhotoKey, err)
	}

	analysis, err := p.analyzer.Analyze(ctx, photo)
	if err != nil {
		return err
	}

	if err := recordAnalysis(job, analysis); err != nil {
		return err
	}
	job.CommonPrompt = vision.BuildPrompt(
		firstNonEmpty(job.CommonPrompt, p.cfg.FaceSwap.DefaultPrompt, "child portrait"),
		analysis,
	)
	if err := p.store.Update(ctx, job); err != nil {
		return fmt.Errorf("persist analysis: %w", err)
	}
	logging.WithContext(ctx, p.log).Info("child photo analyzed",
		logging.String(logging.FieldPhase, "analyze"),
		logging.String(logging.FieldEventType, "phase_complete"),
		logging.Bool("face_detected", analysis.FaceDetected),
	)
	return nil
}

// recordAnalysis merges the analysis verdict into the job's analysis
// document without disturbing unrelated fields such as retry directives.
func recordAnalysis(job *jobs.Job, analysis *vision.Analysis) error {
	doc := map[string]any{}
	if job.AnalysisJSON != "" {
		if err := json.Unmarshal([]byte(job.AnalysisJSON), &doc); err != nil {
			return fmt.Errorf("parse analysis json: %w", err)
		}
	}
	doc["face_detected"] = analysis.FaceDetected
	if len(analysis.Attributes) > 0 {
		doc["attributes"] = analysis.Attributes
	}
	encoded, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode analysis json: %w", err)
	}
	job.AnalysisJSON = string(encoded)
	return nil
}
