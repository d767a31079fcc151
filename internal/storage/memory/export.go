package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/routethat/playsim/pkg/core"
)

// RunExport is the root JSON structure of an exported run
type RunExport struct {
	Run    core.PlayRun    `json:"run"`
	Frames []core.Snapshot `json:"frames"`
	Result core.PlayResult `json:"result"`
}

// exportFileName builds "<play>_<start>_<run8>.json[.gz]" with filesystem-safe play names
func exportFileName(run core.PlayRun, compress bool) string {
	name := strings.NewReplacer(" ", "_", ":", "_", "/", "_", "\\", "_").Replace(run.PlayName)
	if name == "" {
		name = "play"
	}
	id := run.ID
	if len(id) > 8 {
		id = id[:8]
	}
	filename := fmt.Sprintf("%s_%s_%s.json", name, run.StartedAt.Format("20060102_150405"), id)
	if compress {
		filename += ".gz"
	}
	return filename
}

// exportJSON writes the active run to a (optionally gzipped) JSON file. Caller holds b.mu.
func (b *Backend) exportJSON(result core.PlayResult) error {
	export := RunExport{
		Run:    *b.run,
		Frames: b.frames,
		Result: result,
	}
	if export.Frames == nil {
		export.Frames = []core.Snapshot{}
	}

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(b.cfg.OutputDir, exportFileName(*b.run, b.cfg.CompressOutput))

	if err := writeExport(outputPath, export, b.cfg.CompressOutput); err != nil {
		return err
	}
	b.lastExportPath = outputPath
	return nil
}

func writeExport(path string, data RunExport, compress bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	var w io.Writer = f
	if compress {
		gzWriter := gzip.NewWriter(f)
		defer gzWriter.Close()
		w = gzWriter
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("failed to encode run: %w", err)
	}
	return nil
}

// ReadExport loads an exported run, transparently handling gzip by file extension.
func ReadExport(path string) (RunExport, error) {
	f, err := os.Open(path)
	if err != nil {
		return RunExport{}, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return RunExport{}, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	var export RunExport
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return RunExport{}, fmt.Errorf("failed to decode run: %w", err)
	}
	return export, nil
}
