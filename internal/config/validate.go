package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateFaceSwap(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case "fs":
		return nil
	case "supabase":
		if c.Storage.SupabaseURL == "" || c.Storage.SupabaseKey == "" {
			return errors.New("storage.supabase_url and storage.supabase_key are required for the supabase backend")
		}
		if c.Storage.SupabaseBucket == "" {
			return errors.New("storage.supabase_bucket must be set for the supabase backend")
		}
		return nil
	default:
		return fmt.Errorf("storage.backend: unsupported value %q (expected fs or supabase)", c.Storage.Backend)
	}
}

func (c *Config) validateFaceSwap() error {
	if c.FaceSwap.Skip {
		return nil
	}
	if c.FaceSwap.CollectTimeout <= 0 {
		return errors.New("face_swap.collect_timeout must be positive")
	}
	if c.FaceSwap.PollInterval <= 0 {
		return errors.New("face_swap.poll_interval must be positive")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.PollInterval <= 0 {
		return errors.New("workflow.poll_interval must be positive")
	}
	if c.Workflow.TaskRetries < 0 {
		return errors.New("workflow.task_retries must not be negative")
	}
	if c.Workflow.RenderQueue == "" {
		return errors.New("workflow.render_queue must be set")
	}
	return nil
}
