package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/utgallery/pkg/codec"
)

// addTemplateFlags registers the flags that describe a single template
func addTemplateFlags(cmd *cobra.Command) {
	cmd.Flags().String("image", "", "Source image file; its MD5 becomes the image ID")
	cmd.Flags().String("image-id", "", "Image ID as 32 hex characters (overrides --image)")
	cmd.Flags().Int32("algorithm", 0, "Algorithm ID describing the feature vector")
	cmd.Flags().Uint32("x", 0, "Region of interest horizontal offset")
	cmd.Flags().Uint32("y", 0, "Region of interest vertical offset")
	cmd.Flags().Uint32("width", 0, "Region of interest width")
	cmd.Flags().Uint32("height", 0, "Region of interest height")
	cmd.Flags().Uint32("label", 0, "Training class or ground-truth label")
	cmd.Flags().String("url", "", "Where the source image can be found")
	cmd.Flags().String("features", "", "Comma-separated float32 feature vector")
	cmd.Flags().String("fv-file", "", "File holding the raw feature vector bytes")
}

// templateFromFlags builds the template described by the template flags.
// Without --image or --image-id the image ID is the MD5 of the feature vector.
func templateFromFlags(cmd *cobra.Command) (*codec.Record, error) {
	flags := cmd.Flags()
	imagePath, _ := flags.GetString("image")
	imageIDHex, _ := flags.GetString("image-id")
	algorithm, _ := flags.GetInt32("algorithm")
	x, _ := flags.GetUint32("x")
	y, _ := flags.GetUint32("y")
	width, _ := flags.GetUint32("width")
	height, _ := flags.GetUint32("height")
	label, _ := flags.GetUint32("label")
	url, _ := flags.GetString("url")
	featureList, _ := flags.GetString("features")
	fvFile, _ := flags.GetString("fv-file")

	var fv []byte
	switch {
	case featureList != "" && fvFile != "":
		return nil, fmt.Errorf("--features and --fv-file are mutually exclusive")
	case featureList != "":
		features, err := parseFeatures(featureList)
		if err != nil {
			return nil, err
		}
		fv = codec.Float32Bytes(features)
	case fvFile != "":
		data, err := os.ReadFile(fvFile)
		if err != nil {
			return nil, fmt.Errorf("read feature vector: %w", err)
		}
		fv = data
	}

	var imageID [16]byte
	switch {
	case imageIDHex != "":
		parsed, err := codec.ParseImageID(imageIDHex)
		if err != nil {
			return nil, err
		}
		imageID = parsed
	case imagePath != "":
		data, err := os.ReadFile(imagePath)
		if err != nil {
			return nil, fmt.Errorf("read image: %w", err)
		}
		imageID = codec.ImageIDFromContent(data)
	default:
		imageID = codec.ImageIDFromContent(fv)
	}

	return codec.New(imageID, algorithm, x, y, width, height, label, url, fv)
}
