package service

import (
	"context"
	"fmt"
	"log"

	"github.com/mansoorceksport/mediakart/internal/domain"
	"github.com/oklog/ulid/v2"
)

// ProcessedMedia is the output of the media-processing collaborator.
type ProcessedMedia struct {
	Preview []byte
	Meta    domain.MediaMeta
}

// MediaProcessor abstracts watermarking / metadata extraction. The core
// never depends on what processing actually happens.
type MediaProcessor interface {
	Process(ctx context.Context, raw []byte, contentType string) (*ProcessedMedia, error)
}

// PassthroughProcessor is the default processor: no watermark, the original
// bytes double as the preview.
type PassthroughProcessor struct{}

func (p *PassthroughProcessor) Process(ctx context.Context, raw []byte, contentType string) (*ProcessedMedia, error) {
	return &ProcessedMedia{
		Preview: raw,
		Meta:    domain.MediaMeta{Format: contentType, SizeBytes: int64(len(raw))},
	}, nil
}

// IngestedMedia holds the stored URLs and extracted metadata for a new item.
type IngestedMedia struct {
	PreviewURL  string
	DownloadURL string
	Meta        domain.MediaMeta
}

// MediaService runs uploaded item media through the processor and stores
// both the original and the preview.
type MediaService struct {
	storage   domain.FileStorage
	processor MediaProcessor
}

func NewMediaService(storage domain.FileStorage, processor MediaProcessor) *MediaService {
	return &MediaService{storage: storage, processor: processor}
}

// Ingest processes and stores raw item media. Processing failure never
// blocks item creation: the original bytes are used as the preview and the
// failure is logged.
func (s *MediaService) Ingest(ctx context.Context, kind domain.Kind, filename string, raw []byte, contentType string) (*IngestedMedia, error) {
	if s.storage == nil {
		return nil, fmt.Errorf("no media storage configured")
	}

	processed, err := s.processor.Process(ctx, raw, contentType)
	if err != nil {
		log.Printf("[Media] Processing failed for %s, falling back to original: %v", filename, err)
		processed = &ProcessedMedia{
			Preview: raw,
			Meta:    domain.MediaMeta{Format: contentType, SizeBytes: int64(len(raw))},
		}
	}

	keyBase := fmt.Sprintf("%s/%s-%s", kind, ulid.Make().String(), filename)

	downloadURL, err := s.storage.Upload(ctx, raw, keyBase, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to store original media: %w", err)
	}
	previewURL, err := s.storage.Upload(ctx, processed.Preview, keyBase+".preview", contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to store preview: %w", err)
	}

	return &IngestedMedia{
		PreviewURL:  previewURL,
		DownloadURL: downloadURL,
		Meta:        processed.Meta,
	}, nil
}
