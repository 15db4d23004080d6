package epochs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/mira-amm/pointsx/pkg/models"
	"github.com/mira-amm/pointsx/pkg/utils"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when EPOCHS_CONFIG_PATH is unset.
const DefaultPath = "config/campaigns.json"

// LoadError means the epoch definitions could not be read or are malformed.
// It is a deployment defect and is never retried.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load epoch config %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// FileProvider serves epoch definitions from a JSON or YAML file.
// The file is parsed on first use and kept for the process lifetime.
type FileProvider struct {
	path string

	once   sync.Once
	epochs []models.Epoch
	err    error
}

func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

// NewFileProviderFromEnv reads the path from EPOCHS_CONFIG_PATH.
func NewFileProviderFromEnv() *FileProvider {
	return NewFileProvider(utils.Env("EPOCHS_CONFIG_PATH", DefaultPath))
}

// GetEpochs returns all configured epochs, or only those whose number is listed, in file order.
func (p *FileProvider) GetEpochs(numbers ...int) ([]models.Epoch, error) {
	all, err := p.load()
	if err != nil {
		return nil, err
	}
	if len(numbers) == 0 {
		return slices.Clone(all), nil
	}
	out := make([]models.Epoch, 0, len(numbers))
	for _, e := range all {
		if slices.Contains(numbers, e.Number) {
			out = append(out, e)
		}
	}
	return out, nil
}

// GetEpochsByRewardAsset returns the epochs with at least one campaign rewarding assetID.
func (p *FileProvider) GetEpochsByRewardAsset(assetID string) ([]models.Epoch, error) {
	all, err := p.load()
	if err != nil {
		return nil, err
	}
	var out []models.Epoch
	for _, e := range all {
		if e.RewardsAsset(assetID) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (p *FileProvider) load() ([]models.Epoch, error) {
	p.once.Do(func() {
		p.epochs, p.err = readFile(p.path)
		if p.err != nil {
			p.err = &LoadError{Path: p.path, Err: p.err}
		}
	})
	return p.epochs, p.err
}

func readFile(path string) ([]models.Epoch, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw, filepath.Ext(path))
}

// Parse decodes and validates epoch definitions. ext selects YAML for ".yaml"/".yml", JSON otherwise.
func Parse(raw []byte, ext string) ([]models.Epoch, error) {
	var epochs []models.Epoch
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &epochs); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(raw, &epochs); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	}
	if err := validate(epochs); err != nil {
		return nil, err
	}
	return epochs, nil
}

func validate(epochs []models.Epoch) error {
	if len(epochs) == 0 {
		return errors.New("no epochs defined")
	}
	seen := make(map[int]struct{}, len(epochs))
	for _, e := range epochs {
		if e.Number <= 0 {
			return fmt.Errorf("epoch number must be positive, got %d", e.Number)
		}
		if _, dup := seen[e.Number]; dup {
			return fmt.Errorf("duplicate epoch %d", e.Number)
		}
		seen[e.Number] = struct{}{}
		if e.StartDate.IsZero() || e.EndDate.IsZero() {
			return fmt.Errorf("epoch %d: start and end dates are required", e.Number)
		}
		if !e.StartDate.Before(e.EndDate) {
			return fmt.Errorf("epoch %d: startDate must precede endDate", e.Number)
		}
		for i, c := range e.Campaigns {
			if c.Pool.LPToken == "" {
				return fmt.Errorf("epoch %d campaign %d: missing pool.lpToken", e.Number, i)
			}
			if len(c.Rewards) == 0 {
				return fmt.Errorf("epoch %d campaign %d: no rewards", e.Number, i)
			}
		}
	}
	return nil
}
