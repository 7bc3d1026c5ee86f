package api

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"
	"github.com/ssargent/utgallery/pkg/codec"
	"github.com/ssargent/utgallery/pkg/storage"
	"github.com/ssargent/utgallery/pkg/store"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Port            int
	Bind            string
	APIKey          string
	DefaultParallel bool  // scan mode when a request does not choose one
	MaxBodyBytes    int64 // upload limit, 0 for the default
	Logger          zerolog.Logger
	Registerer      prometheus.Registerer // nil for the global registry
}

// Galleries is the named-gallery surface the server needs. *store.Registry
// satisfies it.
type Galleries interface {
	Get(name string) (*store.Gallery, error)
	GetOrCreate(name string) (*store.Gallery, error)
	List() ([]store.GalleryInfo, error)
}

// TemplateCatalog is the pending-template store. *storage.Catalog satisfies it.
type TemplateCatalog interface {
	Create(r *codec.Record) (ksuid.KSUID, error)
	Read(id ksuid.KSUID) (*codec.Record, error)
	Delete(id ksuid.KSUID) error
	List(limit int) ([]storage.Entry, error)
	Count() (int, error)
	Export(ctx context.Context, appendFn func(*codec.Record) error) (*storage.ExportResult, error)
}

// TemplateRequest is the JSON form of a template submission. Features, when
// present, is encoded as little-endian float32 and takes precedence over
// FeatureVector. ImageID is 32 hex characters; when empty it is derived from
// the feature vector bytes.
type TemplateRequest struct {
	ImageID       string    `json:"image_id,omitempty"`
	AlgorithmID   int32     `json:"algorithm_id"`
	X             uint32    `json:"x"`
	Y             uint32    `json:"y"`
	Width         uint32    `json:"width"`
	Height        uint32    `json:"height"`
	Label         uint32    `json:"label"`
	URL           string    `json:"url"`
	FeatureVector []byte    `json:"feature_vector,omitempty"` // base64
	Features      []float32 `json:"features,omitempty"`
}

// Record builds the template described by the request
func (req *TemplateRequest) Record() (*codec.Record, error) {
	fv := req.FeatureVector
	if len(req.Features) > 0 {
		fv = codec.Float32Bytes(req.Features)
	}

	var id [16]byte
	if req.ImageID != "" {
		parsed, err := codec.ParseImageID(req.ImageID)
		if err != nil {
			return nil, err
		}
		id = parsed
	} else {
		id = codec.ImageIDFromContent(fv)
	}

	return codec.New(id, req.AlgorithmID, req.X, req.Y, req.Width, req.Height, req.Label, req.URL, fv)
}

// TemplateResponse is the JSON form of a stored template
type TemplateResponse struct {
	ID            string `json:"id,omitempty"`
	Offset        *int64 `json:"offset,omitempty"`
	ImageID       string `json:"image_id"`
	AlgorithmID   int32  `json:"algorithm_id"`
	X             uint32 `json:"x"`
	Y             uint32 `json:"y"`
	Width         uint32 `json:"width"`
	Height        uint32 `json:"height"`
	Label         uint32 `json:"label"`
	URL           string `json:"url"`
	URLSize       uint32 `json:"url_size"`
	FVSize        uint32 `json:"fv_size"`
	FeatureVector []byte `json:"feature_vector,omitempty"`
}

// newTemplateResponse describes r. The feature vector is included only when
// withFV is set.
func newTemplateResponse(r *codec.Record, withFV bool) TemplateResponse {
	h := r.Header()
	resp := TemplateResponse{
		ImageID:     hex.EncodeToString(h.ImageID[:]),
		AlgorithmID: h.AlgorithmID,
		X:           h.X,
		Y:           h.Y,
		Width:       h.Width,
		Height:      h.Height,
		Label:       h.Label,
		URL:         r.URL(),
		URLSize:     h.URLSize,
		FVSize:      h.FVSize,
	}
	if withFV {
		resp.FeatureVector = append([]byte{}, r.FeatureVector()...)
	}
	return resp
}

// AppendResponse reports where appended templates landed
type AppendResponse struct {
	Gallery  string             `json:"gallery"`
	Appended int                `json:"appended"`
	Entries  []store.IndexEntry `json:"entries"`
}

// QueryResponse carries query results and the plan that produced them
type QueryResponse struct {
	Query     string             `json:"query"`
	Plan      string             `json:"plan"`
	Count     int                `json:"count"`
	Templates []TemplateResponse `json:"templates"`
}

// CatalogEntryResponse is the JSON form of a catalog entry
type CatalogEntryResponse struct {
	ID        string           `json:"id"`
	CreatedAt time.Time        `json:"created_at"`
	Template  TemplateResponse `json:"template"`
}

// StatsResponse summarizes every gallery
type StatsResponse struct {
	Galleries []store.GalleryInfo            `json:"galleries"`
	Open      map[string]*store.GalleryStats `json:"open"`
	Catalog   int                            `json:"catalog_entries"`
}
