package htmlpack

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mbeisser1/homelab/job"
	"github.com/mbeisser1/homelab/logger"
)

// Batcher packages batches of HTML files plus their referenced assets into
// sequential zip archives, tracking progress in a state file
type Batcher struct {
	Root         string // source tree
	OutputDir    string // where the zips land
	OutputPrefix string
	BatchSize    int
	Job          *job.JobContext
}

func NewBatcher(root, outputDir, outputPrefix string, batchSize int, jobctx *job.JobContext) *Batcher {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Batcher{
		Root:         root,
		OutputDir:    outputDir,
		OutputPrefix: outputPrefix,
		BatchSize:    batchSize,
		Job:          jobctx,
	}
}

func (b *Batcher) logBaseFields() map[string]interface{} {
	return logger.MergeFields(logger.CoreLogFields(b.Job, "htmlpack"), map[string]interface{}{
		"root":       b.Root,
		"batch_size": b.BatchSize,
	})
}

// addFileToZip stores one file under its tree-relative path
func addFileToZip(zw *zip.Writer, root, relPath string) error {
	srcPath := filepath.Join(root, relPath)
	fi, err := os.Stat(srcPath)
	if err != nil || !fi.Mode().IsRegular() {
		// missing assets are tolerated, the HTML simply keeps a dead link
		return nil
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	w, err := zw.Create(filepath.ToSlash(relPath))
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}

// buildZip writes one archive of html files + assets
func (b *Batcher) buildZip(zipPath string, htmlFiles []string, assets map[string]bool) error {
	out, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("creating %s: %v", zipPath, err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for _, relPath := range htmlFiles {
		if err := addFileToZip(zw, b.Root, relPath); err != nil {
			zw.Close()
			return fmt.Errorf("adding %s: %v", relPath, err)
		}
	}
	for relPath := range assets {
		if err := addFileToZip(zw, b.Root, relPath); err != nil {
			zw.Close()
			return fmt.Errorf("adding asset %s: %v", relPath, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalizing %s: %v", zipPath, err)
	}
	return nil
}

// Run packages all unprocessed HTML files into batch zips. Returns the
// number of archives written.
func (b *Batcher) Run() (int, error) {
	verboseFields := b.logBaseFields()

	statePath := filepath.Join(b.Root, StateFileName)
	processed, err := LoadState(statePath)
	if err != nil {
		return 0, fmt.Errorf("loading state file: %v", err)
	}

	allFiles, err := FindHTMLFiles(b.Root)
	if err != nil {
		return 0, err
	}

	var batch []string
	assets := map[string]bool{}
	archives := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		zipName := fmt.Sprintf("%s_%d.zip", b.OutputPrefix, len(processed)/b.BatchSize+1)
		zipPath := filepath.Join(b.OutputDir, zipName)

		if err := b.buildZip(zipPath, batch, assets); err != nil {
			return err
		}
		archives++

		logger.LogxWithFields("info", fmt.Sprintf("Created %s (%d HTML, %d assets)", zipName, len(batch), len(assets)), logger.MergeFields(verboseFields, map[string]interface{}{
			"zip":    zipName,
			"html":   len(batch),
			"assets": len(assets),
		}))

		for _, relPath := range batch {
			processed[relPath] = true
		}
		if err := SaveState(statePath, processed); err != nil {
			return fmt.Errorf("saving state file: %v", err)
		}
		batch = batch[:0]
		assets = map[string]bool{}
		return nil
	}

	for _, htmlPath := range allFiles {
		relPath, err := filepath.Rel(b.Root, htmlPath)
		if err != nil {
			continue
		}
		if processed[relPath] {
			continue
		}

		batch = append(batch, relPath)
		if fileAssets, err := CollectAssets(htmlPath, b.Root); err == nil {
			for asset := range fileAssets {
				assets[asset] = true
			}
		} else {
			logger.LogxWithFields("warn", fmt.Sprintf("Could not scan assets of %s: %v", relPath, err), verboseFields)
		}

		if len(batch) >= b.BatchSize {
			if err := flush(); err != nil {
				return archives, err
			}
		}
	}

	if err := flush(); err != nil {
		return archives, err
	}

	logger.LogxWithFields("info", fmt.Sprintf("Batch packaging finished, %d archives written", archives), verboseFields)
	return archives, nil
}
