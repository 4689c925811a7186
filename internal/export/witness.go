// Package export produces the two artifact kinds the operator hands to
// clients: witness placeholder clips proving a spot aired, and contract
// PDFs. Both are written to disk and reported back by path.
package export

import (
	"fmt"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"adboard/internal/telemetry"
)

// maxOffsetSeconds bounds the simulated position of a witness clip inside
// an hour-long playout window.
const maxOffsetSeconds = 3600

var mediaExtensions = map[string]bool{
	".mp4": true,
	".mov": true,
	".avi": true,
	".mkv": true,
	".txt": true,
}

// WitnessArtifact is one generated placeholder clip.
type WitnessArtifact struct {
	Path          string `json:"path"`
	Source        string `json:"source"`
	OffsetSeconds int    `json:"offset_seconds"`
}

// WitnessBatch reports one witness export run. Seeded is true when the
// client had no media and a sample file was created first.
type WitnessBatch struct {
	BatchID   string            `json:"batch_id"`
	ClientID  string            `json:"client_id"`
	CreatedAt time.Time         `json:"created_at"`
	Seeded    bool              `json:"seeded"`
	Artifacts []WitnessArtifact `json:"artifacts"`
}

// WitnessExporter writes placeholder witness files for a client's media.
type WitnessExporter struct {
	videosDir    string
	witnessDir   string
	duration     int
	defaultCount int
	log          *logrus.Logger
}

// NewWitnessExporter returns an exporter over the given directories.
// duration is the nominal clip length in seconds; defaultCount is used
// when a caller asks for zero artifacts.
func NewWitnessExporter(videosDir, witnessDir string, duration, defaultCount int, log *logrus.Logger) *WitnessExporter {
	return &WitnessExporter{
		videosDir:    videosDir,
		witnessDir:   witnessDir,
		duration:     duration,
		defaultCount: defaultCount,
		log:          log,
	}
}

// FindClientMedia lists the media files attributable to a client: base name
// contains the client id, extension is a known media type. Sorted by name.
func (e *WitnessExporter) FindClientMedia(clientID string) ([]string, error) {
	var media []string
	err := filepath.WalkDir(e.videosDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if !strings.Contains(name, clientID) {
			return nil
		}
		if mediaExtensions[strings.ToLower(filepath.Ext(name))] {
			media = append(media, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", e.videosDir, err)
	}
	sort.Strings(media)
	return media, nil
}

// Export writes up to count placeholder artifacts for the client, one per
// source media file. When the client has no media at all, a sample file is
// seeded first so the export always yields something to hand over. Offsets
// are drawn fresh on every run; repeat exports produce different batches.
func (e *WitnessExporter) Export(clientID string, count int) (WitnessBatch, error) {
	if count <= 0 {
		count = e.defaultCount
	}

	batch := WitnessBatch{
		BatchID:   uuid.NewString(),
		ClientID:  clientID,
		CreatedAt: time.Now(),
		Artifacts: []WitnessArtifact{},
	}

	media, err := e.FindClientMedia(clientID)
	if err != nil {
		telemetry.ExportsTotal.WithLabelValues("witness", "error").Inc()
		return WitnessBatch{}, err
	}
	if len(media) == 0 {
		seeded, err := e.seedSampleMedia(clientID)
		if err != nil {
			telemetry.ExportsTotal.WithLabelValues("witness", "error").Inc()
			return WitnessBatch{}, err
		}
		media = []string{seeded}
		batch.Seeded = true
	}
	if len(media) > count {
		media = media[:count]
	}

	for i, source := range media {
		artifact, err := e.writeArtifact(clientID, source, i+1, batch.CreatedAt)
		if err != nil {
			telemetry.ExportsTotal.WithLabelValues("witness", "error").Inc()
			return WitnessBatch{}, err
		}
		batch.Artifacts = append(batch.Artifacts, artifact)
	}

	telemetry.ExportsTotal.WithLabelValues("witness", "ok").Inc()
	e.log.WithFields(logrus.Fields{
		"client":    clientID,
		"batch_id":  batch.BatchID,
		"artifacts": len(batch.Artifacts),
	}).Info("witness batch exported")
	return batch, nil
}

func (e *WitnessExporter) writeArtifact(clientID, source string, n int, at time.Time) (WitnessArtifact, error) {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	offset := rand.Intn(maxOffsetSeconds + 1)

	var b strings.Builder
	fmt.Fprintln(&b, "TESTIGO DE TRANSMISION")
	fmt.Fprintln(&b, "======================")
	fmt.Fprintf(&b, "Archivo fuente: %s\n", filepath.Base(source))
	fmt.Fprintf(&b, "Cliente: %s\n", clientID)
	fmt.Fprintf(&b, "Generado: %s\n", at.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Duracion del clip: %ds\n", e.duration)
	fmt.Fprintf(&b, "Offset en la pauta: %ds\n", offset)

	path := filepath.Join(e.witnessDir, fmt.Sprintf("testigo_%s_%d.txt", base, n))
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return WitnessArtifact{}, fmt.Errorf("write witness %s: %w", path, err)
	}
	return WitnessArtifact{
		Path:          path,
		Source:        filepath.Base(source),
		OffsetSeconds: offset,
	}, nil
}

// seedSampleMedia creates the placeholder source file used when a client
// has no uploaded media yet.
func (e *WitnessExporter) seedSampleMedia(clientID string) (string, error) {
	path := filepath.Join(e.videosDir, clientID+"_ejemplo.txt")
	content := fmt.Sprintf("Archivo de ejemplo para %s\n", clientID)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("seed sample media: %w", err)
	}
	e.log.WithField("client", clientID).Info("seeded sample media for witness export")
	return path, nil
}
