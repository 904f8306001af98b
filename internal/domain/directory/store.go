package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/carepilot/carepilot/internal/platform/blobstore"
)

const maxDirectoryBytes = 32 << 20

// DirectoryStore reads and writes the doctors.json directory object. Reads go
// through the blob SDK when a store is configured, otherwise through the
// public URL without credentials.
type DirectoryStore struct {
	store     blobstore.Store
	blobName  string
	publicURL string
	client    *http.Client
	logger    zerolog.Logger
}

// NewDirectoryStore builds a directory store. store may be nil.
func NewDirectoryStore(store blobstore.Store, blobName, publicURL string, logger zerolog.Logger) *DirectoryStore {
	return &DirectoryStore{
		store:     store,
		blobName:  blobName,
		publicURL: publicURL,
		client:    &http.Client{Timeout: 15 * time.Second},
		logger:    logger.With().Str("component", "doctor_directory").Logger(),
	}
}

// FetchDoctors returns the directory or the reason it could not be read.
func (s *DirectoryStore) FetchDoctors(ctx context.Context) ([]*Doctor, error) {
	var raw []byte
	if s.store != nil {
		ok, err := s.store.Exists(ctx, s.blobName)
		if err != nil {
			return nil, fmt.Errorf("check %s: %w", s.blobName, err)
		}
		if !ok {
			return nil, fmt.Errorf("%s: %w", s.blobName, blobstore.ErrBlobNotFound)
		}
		raw, _, err = s.store.Get(ctx, s.blobName)
		if err != nil {
			return nil, fmt.Errorf("download %s: %w", s.blobName, err)
		}
	} else {
		if s.publicURL == "" {
			return nil, blobstore.ErrNotConfigured
		}
		var err error
		raw, err = s.fetchPublic(ctx)
		if err != nil {
			return nil, err
		}
	}
	return decodeDoctors(raw)
}

func (s *DirectoryStore) fetchPublic(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.publicURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", s.publicURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", s.publicURL, resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxDirectoryBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.publicURL, err)
	}
	return raw, nil
}

// decodeDoctors accepts a bare array or an object with a "doctors" array.
func decodeDoctors(raw []byte) ([]*Doctor, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		var wrapped struct {
			Doctors []*Doctor `json:"doctors"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil, fmt.Errorf("decode doctors: %w", err)
		}
		return nonNil(wrapped.Doctors), nil
	}
	var doctors []*Doctor
	if err := json.Unmarshal(raw, &doctors); err != nil {
		return nil, fmt.Errorf("decode doctors: %w", err)
	}
	return nonNil(doctors), nil
}

func nonNil(doctors []*Doctor) []*Doctor {
	if doctors == nil {
		return []*Doctor{}
	}
	return doctors
}

// DownloadDoctors never fails: any error is logged and yields an empty list.
func (s *DirectoryStore) DownloadDoctors(ctx context.Context) []*Doctor {
	doctors, err := s.FetchDoctors(ctx)
	if err != nil {
		s.logger.Warn().Err(err).
			Bool("sdk", s.store != nil).
			Str("blob", s.blobName).
			Msg("doctor directory unavailable, returning empty list")
		return []*Doctor{}
	}
	return doctors
}

// UploadDoctors replaces doctors.json. It needs a configured blob store.
func (s *DirectoryStore) UploadDoctors(ctx context.Context, doctors []*Doctor) error {
	if s.store == nil {
		return fmt.Errorf("upload %s: %w", s.blobName, blobstore.ErrNotConfigured)
	}
	data, err := json.MarshalIndent(nonNil(doctors), "", "  ")
	if err != nil {
		return fmt.Errorf("encode doctors: %w", err)
	}
	if _, err := s.store.Put(ctx, s.blobName, data, "application/json"); err != nil {
		return fmt.Errorf("upload %s: %w", s.blobName, err)
	}
	s.logger.Info().Int("count", len(doctors)).Str("blob", s.blobName).Msg("doctor directory uploaded")
	return nil
}
