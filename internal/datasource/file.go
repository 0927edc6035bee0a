package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/apex-predict/internal/models"
)

// FileProvider serves race inputs from JSON files on disk, one file per
// race named <race_id>.json. Used by the CLI and in development where no
// timing feed is available.
type FileProvider struct {
	dir    string
	logger *logrus.Logger
}

// NewFileProvider creates a file-backed race input provider
func NewFileProvider(dir string, logger *logrus.Logger) *FileProvider {
	return &FileProvider{dir: dir, logger: logger}
}

// RaceInput loads and decodes one race input file.
func (p *FileProvider) RaceInput(ctx context.Context, raceID uuid.UUID) (*models.RaceInput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(p.dir, raceID.String()+".json")
	return LoadRaceInputFile(path)
}

// LoadRaceInputFile decodes a race input from an explicit path.
func LoadRaceInputFile(path string) (*models.RaceInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: race input file %s", models.ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read race input %s: %w", path, err)
	}

	var input models.RaceInput
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("failed to decode race input %s: %w", path, err)
	}

	if input.RaceID == uuid.Nil {
		return nil, fmt.Errorf("%w: race input %s has no race id", models.ErrDataIntegrity, path)
	}
	return &input, nil
}
