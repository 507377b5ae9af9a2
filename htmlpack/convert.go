package htmlpack

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/mbeisser1/homelab/job"
	"github.com/mbeisser1/homelab/logger"
	"github.com/mbeisser1/homelab/sysutil"
)

// Converter turns HTML files into self-contained documents by shelling to
// pandoc, with juice as the fallback inliner. Conversions run through a
// bounded pool, failures are counted per file and never stop the batch.
type Converter struct {
	Runner sysutil.Runner
	Job    *job.JobContext
	Jobs   int // max conversions in flight
}

func NewConverter(runner sysutil.Runner, jobctx *job.JobContext, jobs int) *Converter {
	if jobs <= 0 {
		jobs = 1
	}
	return &Converter{Runner: runner, Job: jobctx, Jobs: jobs}
}

// FindHTMLFiles walks root collecting *.html paths
func FindHTMLFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			return nil
		}
		if strings.HasSuffix(strings.ToLower(entry.Name()), ".html") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %v", root, err)
	}
	return files, nil
}

// convertOne runs pandoc first, juice when pandoc refuses the document
func (c *Converter) convertOne(srcFile, dstFile string) error {
	if err := os.MkdirAll(filepath.Dir(dstFile), 0755); err != nil {
		return fmt.Errorf("creating output dir: %v", err)
	}

	_, pandocErr := c.Runner.Output("pandoc", "--standalone", "--embed-resources", "-o", dstFile, srcFile)
	if pandocErr == nil {
		return nil
	}

	_, juiceErr := c.Runner.Output("juice", srcFile, dstFile)
	if juiceErr != nil {
		return fmt.Errorf("pandoc failed (%v) and juice failed (%v)", pandocErr, juiceErr)
	}
	return nil
}

// ConvertTree converts every HTML file under srcRoot into dstRoot,
// preserving relative layout. Returns converted & failed counts.
func (c *Converter) ConvertTree(srcRoot, dstRoot string) (int, int, error) {
	verboseFields := logger.MergeFields(logger.CoreLogFields(c.Job, "htmlpack"), map[string]interface{}{
		"src_root": srcRoot,
		"dst_root": dstRoot,
		"jobs":     c.Jobs,
	})

	files, err := FindHTMLFiles(srcRoot)
	if err != nil {
		return 0, 0, err
	}
	if len(files) == 0 {
		logger.LogxWithFields("warn", "No HTML files found under source tree", verboseFields)
		return 0, 0, nil
	}

	logger.LogxWithFields("info", fmt.Sprintf("Converting %d HTML files with %d workers", len(files), c.Jobs), verboseFields)

	var converted, failed atomic.Int64
	var group errgroup.Group
	group.SetLimit(c.Jobs)

	for _, srcFile := range files {
		srcFile := srcFile
		group.Go(func() error {
			relPath, err := filepath.Rel(srcRoot, srcFile)
			if err != nil {
				relPath = filepath.Base(srcFile)
			}
			dstFile := filepath.Join(dstRoot, relPath)

			if err := c.convertOne(srcFile, dstFile); err != nil {
				failed.Add(1)
				logger.LogxWithFields("error", fmt.Sprintf("Conversion failed for %s: %v", relPath, err), logger.MergeFields(verboseFields, map[string]interface{}{
					"file":    relPath,
					"success": false,
				}))
				return nil // per-file errors never abort the batch
			}

			converted.Add(1)
			logger.LogxWithFields("debug", fmt.Sprintf("Converted %s", relPath), verboseFields)
			return nil
		})
	}
	group.Wait()

	logger.LogxWithFields("info", fmt.Sprintf("Conversion finished, %d converted, %d failed", converted.Load(), failed.Load()), logger.MergeFields(verboseFields, map[string]interface{}{
		"converted": converted.Load(),
		"failed":    failed.Load(),
		"success":   failed.Load() == 0,
	}))

	return int(converted.Load()), int(failed.Load()), nil
}
