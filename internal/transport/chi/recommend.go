package chi

import (
	"net/http"

	"github.com/DevHassanMehdi/ImageUpLift/internal/domain"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/metadata"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/policy"
	recommenduc "github.com/DevHassanMehdi/ImageUpLift/internal/usecase/recommend"
)

// RecommendResponse is the body of POST /recommend.
type RecommendResponse struct {
	ImageID          int64                  `json:"image_id"`
	RecommendationID int64                  `json:"recommendation_id"`
	Reused           bool                   `json:"reused"`
	Metadata         metadata.ImageMetadata `json:"metadata"`
	Recommendation   policy.Recommendation  `json:"recommendation"`
}

// Recommend handles POST /recommend.
func (s *Server) Recommend(w http.ResponseWriter, r *http.Request) {
	if err := s.parseMultipart(w, r); err != nil {
		s.writeUploadError(w, r, err)
		return
	}
	up, err := readUpload(r)
	if err != nil {
		s.writeUploadError(w, r, err)
		return
	}
	if up == nil {
		s.handleDomainError(w, r, domain.NewParamError("file", "is required"))
		return
	}

	res, err := s.svc.Recommend.Analyze(r.Context(), recommenduc.Upload{Name: up.Name, Data: up.Data})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, RecommendResponse{
		ImageID:          res.ImageID,
		RecommendationID: res.RecommendationID,
		Reused:           res.Reused,
		Metadata:         res.Metadata,
		Recommendation:   res.Recommendation,
	})
}
