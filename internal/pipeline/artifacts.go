package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Artifact file names inside the data directory. These are exported by the
// training job and are read-only for the lifetime of the process.
const (
	schemaFile = "feature_names.json"
	scalerFile = "scaler.json"
	pcaFile    = "pca.json"
	modelFile  = "model.json"
)

// ScalerParams holds the per-feature standardization parameters.
type ScalerParams struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// PCAParams holds the projection learned by the training job. Components
// are row vectors in original feature space; Mean is subtracted before
// projection.
type PCAParams struct {
	Mean       []float64   `json:"mean"`
	Components [][]float64 `json:"components"`
}

// ModelParams holds the regression weights in reduced space.
type ModelParams struct {
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
}

// Artifacts bundles everything loaded from the data directory.
type Artifacts struct {
	Schema []string
	Scaler ScalerParams
	PCA    PCAParams
	Model  ModelParams
}

func loadJSON(dataDir, name string, v any) error {
	path := filepath.Join(dataDir, name)
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open artifact %s: %w", name, err)
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(v); err != nil {
		return fmt.Errorf("failed to decode artifact %s: %w", name, err)
	}
	return nil
}

// LoadArtifacts reads the four artifact files and cross-checks their
// dimensions against each other. Any missing file, malformed JSON, or
// dimension disagreement is an error; the caller treats it as fatal.
func LoadArtifacts(dataDir string) (*Artifacts, error) {
	a := &Artifacts{}

	if err := loadJSON(dataDir, schemaFile, &a.Schema); err != nil {
		return nil, err
	}
	if err := loadJSON(dataDir, scalerFile, &a.Scaler); err != nil {
		return nil, err
	}
	if err := loadJSON(dataDir, pcaFile, &a.PCA); err != nil {
		return nil, err
	}
	if err := loadJSON(dataDir, modelFile, &a.Model); err != nil {
		return nil, err
	}

	if err := a.validate(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Artifacts) validate() error {
	n := len(a.Schema)
	if n == 0 {
		return fmt.Errorf("artifact %s: schema is empty", schemaFile)
	}
	if len(a.Scaler.Mean) != n || len(a.Scaler.Scale) != n {
		return fmt.Errorf("artifact %s: scaler dimensions %d/%d do not match schema length %d",
			scalerFile, len(a.Scaler.Mean), len(a.Scaler.Scale), n)
	}
	if len(a.PCA.Mean) != n {
		return fmt.Errorf("artifact %s: projection mean length %d does not match schema length %d",
			pcaFile, len(a.PCA.Mean), n)
	}
	if len(a.PCA.Components) == 0 {
		return fmt.Errorf("artifact %s: no projection components", pcaFile)
	}
	for i, row := range a.PCA.Components {
		if len(row) != n {
			return fmt.Errorf("artifact %s: component %d has length %d, want %d",
				pcaFile, i, len(row), n)
		}
	}
	if len(a.Model.Coefficients) != len(a.PCA.Components) {
		return fmt.Errorf("artifact %s: %d coefficients for %d projected dimensions",
			modelFile, len(a.Model.Coefficients), len(a.PCA.Components))
	}
	return nil
}
