package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/ssargent/utgallery/pkg/codec"
	"github.com/ssargent/utgallery/pkg/store"
)

// galleryPath resolves a command argument to a gallery file. Existing files
// are used as given; otherwise a valid gallery name maps into the data
// directory.
func galleryPath(arg string) string {
	if _, err := os.Stat(arg); err == nil {
		return arg
	}
	if store.ValidateName(arg) == nil {
		return filepath.Join(container.Config().GalleryDir(), arg+store.GalleryExt)
	}
	return arg
}

// openGallery opens a standalone gallery for one command
func openGallery(arg string) (*store.Gallery, error) {
	path := galleryPath(arg)
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(store.ErrFileNotFound, "gallery %s", arg)
	}
	gallery, err := store.NewGallery(container.GalleryConfig(path))
	if err != nil {
		return nil, err
	}
	if _, err := gallery.Open(); err != nil {
		return nil, err
	}
	return gallery, nil
}

// parseFeatures parses a comma-separated list of float32 values
func parseFeatures(s string) ([]float32, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	features := make([]float32, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			return nil, fmt.Errorf("invalid feature %q: %w", part, err)
		}
		features = append(features, float32(v))
	}
	return features, nil
}

func printTemplateHeader(w io.Writer) {
	fmt.Fprintf(w, "%-10s %-32s %5s %5s %-21s %s\n", "OFFSET", "IMAGE", "ALG", "LABEL", "ROI", "URL")
}

// printTemplate writes one summary line. A negative offset is shown as "-".
func printTemplate(w io.Writer, offset int64, r *codec.Record) {
	h := r.Header()
	off := "-"
	if offset >= 0 {
		off = strconv.FormatInt(offset, 10)
	}
	roi := fmt.Sprintf("%d,%d %dx%d", h.X, h.Y, h.Width, h.Height)
	fmt.Fprintf(w, "%-10s %-32s %5d %5d %-21s %s\n", off, h.ImageIDHex(), h.AlgorithmID, h.Label, roi, r.URL())
}

// printTemplateDetail writes every field of r, decoding the feature vector
// as float32 when its length allows.
func printTemplateDetail(w io.Writer, r *codec.Record) {
	h := r.Header()
	fmt.Fprintf(w, "Image ID:     %s\n", h.ImageIDHex())
	fmt.Fprintf(w, "Algorithm ID: %d\n", h.AlgorithmID)
	fmt.Fprintf(w, "ROI:          x=%d y=%d width=%d height=%d\n", h.X, h.Y, h.Width, h.Height)
	fmt.Fprintf(w, "Label:        %d\n", h.Label)
	fmt.Fprintf(w, "URL:          %s\n", r.URL())
	fmt.Fprintf(w, "Size:         %d bytes (url %d, fv %d)\n", r.Size(), h.URLSize, h.FVSize)
	if features, err := codec.BytesFloat32(r.FeatureVector()); err == nil && len(features) > 0 {
		fmt.Fprintf(w, "Features:     %v\n", features)
	} else if len(r.FeatureVector()) > 0 {
		fmt.Fprintf(w, "Features:     %x\n", r.FeatureVector())
	}
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
