package filter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"notify-step-filter/internal/logger"
)

// StepLoader handles loading step definitions from the filesystem
type StepLoader struct {
	logger *logger.Logger
}

// NewStepLoader creates a new step loader
func NewStepLoader(log *logger.Logger) *StepLoader {
	return &StepLoader{
		logger: log,
	}
}

// LoadFromDirectory loads all step definitions from a directory and its
// subdirectories. JSON and YAML files are both accepted; every loaded step
// is validated before it is returned.
func (l *StepLoader) LoadFromDirectory(path string) ([]Step, error) {
	var steps []Step

	err := filepath.Walk(path, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".json" && ext != ".yaml" && ext != ".yml" {
			return nil
		}

		l.logger.Debug("loading step file", "path", path)

		data, err := os.ReadFile(path)
		if err != nil {
			l.logger.Error("failed to read step file",
				"path", path,
				"error", err)
			return err
		}

		var stepSet []Step
		if ext == ".json" {
			err = json.Unmarshal(data, &stepSet)
		} else {
			err = yaml.Unmarshal(data, &stepSet)
		}
		if err != nil {
			l.logger.Error("failed to parse step file",
				"path", path,
				"error", err)
			return err
		}

		for i := range stepSet {
			if err := validateStep(&stepSet[i]); err != nil {
				l.logger.Error("invalid step definition",
					"path", path,
					"step", stepSet[i].ID,
					"error", err)
				return fmt.Errorf("invalid step in %s: %w", path, err)
			}
		}

		l.logger.Debug("successfully loaded steps",
			"path", path,
			"count", len(stepSet))

		steps = append(steps, stepSet...)
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to load steps: %w", err)
	}

	l.logger.Info("steps loaded successfully",
		"totalSteps", len(steps))

	return steps, nil
}
