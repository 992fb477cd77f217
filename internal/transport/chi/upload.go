package chi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"slices"
	"strings"

	"github.com/DevHassanMehdi/ImageUpLift/internal/domain"
)

// multipartMemory is how much of a multipart body is kept in memory before
// spilling to temporary files.
const multipartMemory = 8 << 20

// upload is a file read from the "file" form field.
type upload struct {
	Name string
	Data []byte
}

// errUploadTooLarge reports a body over the configured upload limit.
var errUploadTooLarge = errors.New("upload too large")

// parseMultipart bounds and parses the request body.
func (s *Server) parseMultipart(w http.ResponseWriter, r *http.Request) error {
	if s.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errUploadTooLarge
		}
		return fmt.Errorf("invalid multipart form: %v: %w", err, domain.ErrInvalidParams)
	}
	return nil
}

// readUpload returns the "file" field, or nil when it is absent.
func readUpload(r *http.Request) (*upload, error) {
	f, hdr, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read file field: %v: %w", err, domain.ErrInvalidParams)
	}
	defer f.Close()

	ext := strings.ToLower(filepath.Ext(hdr.Filename))
	if !slices.Contains(domain.AcceptedExtensions, ext) {
		return nil, domain.NewParamError("file", "unsupported file type %q, expected one of %s",
			ext, strings.Join(domain.AcceptedExtensions, ", "))
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, domain.NewParamError("file", "is empty")
	}
	return &upload{Name: filepath.Base(hdr.Filename), Data: data}, nil
}

// writeUploadError answers a failed parseMultipart or readUpload.
func (s *Server) writeUploadError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errUploadTooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge,
			fmt.Sprintf("upload exceeds %d bytes", s.maxUploadBytes))
		return
	}
	s.handleDomainError(w, r, err)
}
