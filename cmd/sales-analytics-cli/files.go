package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"

	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/analyzer"
)

// largeFile is the size from which reads show byte progress.
const largeFile = 8 << 20

// readUpload loads path into an analyzer upload. Large files show a byte
// progress bar on interactive terminals.
func readUpload(ui *UI, path string) (analyzer.Upload, error) {
	f, err := os.Open(path)
	if err != nil {
		return analyzer.Upload{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return analyzer.Upload{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return analyzer.Upload{}, fmt.Errorf("%s is a directory", path)
	}

	var r io.Reader = f
	if ui.interactive && info.Size() >= largeFile {
		bar := progressbar.NewOptions64(info.Size(),
			progressbar.OptionSetDescription("reading "+filepath.Base(path)),
			progressbar.OptionSetWriter(ui.errOut),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionClearOnFinish(),
		)
		defer bar.Close()
		r = io.TeeReader(f, bar)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return analyzer.Upload{}, fmt.Errorf("read %s: %w", path, err)
	}
	return analyzer.Upload{Data: data, Filename: filepath.Base(path)}, nil
}
