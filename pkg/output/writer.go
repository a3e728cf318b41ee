package output

import (
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/promptfit/promptfit/pkg/compress"
	"github.com/promptfit/promptfit/pkg/fileops"
	"github.com/promptfit/promptfit/pkg/logging"
)

// DefaultDocumentName is where the packed document lands unless the user
// points --out somewhere else.
const DefaultDocumentName = "promptfit.out"

// PlanPath derives the plan sidecar path for an output document.
func PlanPath(outPath string) string {
	return outPath + ".plan.yaml"
}

// PlanFile is the YAML sidecar describing how a packed document was
// produced, enough to replay or audit the run.
type PlanFile struct {
	RunID         string        `yaml:"run_id"`
	CreatedAt     time.Time     `yaml:"created_at"`
	WorkingDir    string        `yaml:"working_dir"`
	Budget        int           `yaml:"budget,omitempty"`
	BufferPercent int           `yaml:"buffer_percent,omitempty"`
	Plan          compress.Plan `yaml:"plan"`
}

// Writer persists documents and plan files through the fileops manager.
type Writer struct {
	files  fileops.Manager
	logger logging.Logger
}

// NewWriter creates a Writer.
func NewWriter(files fileops.Manager) *Writer {
	return &Writer{
		files:  files,
		logger: logging.NewComponentLogger("output"),
	}
}

// WriteDocument writes the packed document, expanding a leading ~ and
// creating parent directories. Returns the expanded path.
func (w *Writer) WriteDocument(path, doc string) (string, error) {
	full, err := homedir.Expand(path)
	if err != nil {
		return "", err
	}
	if err := w.files.WriteFile(full, []byte(doc)); err != nil {
		return "", err
	}
	w.logger.Debug("wrote packed document", "path", full, "bytes", len(doc))
	return full, nil
}

// WritePlan writes the plan sidecar as YAML. Returns the expanded path.
func (w *Writer) WritePlan(path string, plan PlanFile) (string, error) {
	full, err := homedir.Expand(path)
	if err != nil {
		return "", err
	}
	if err := w.files.WriteObjectAsYAML(full, plan); err != nil {
		return "", err
	}
	w.logger.Debug("wrote plan file", "path", full, "files", len(plan.Plan.Files))
	return full, nil
}
