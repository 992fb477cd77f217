package chi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	chirouter "github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/oapi-codegen/runtime"

	"github.com/DevHassanMehdi/ImageUpLift/internal/domain"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/mode"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/record"
	convertuc "github.com/DevHassanMehdi/ImageUpLift/internal/usecase/convert"
)

var validate = validator.New()

// conversionForm holds the non-file fields of POST /conversion.
type conversionForm struct {
	Mode    string `validate:"required,oneof=vectorize outline enhance"`
	ImageID int64  `validate:"gte=0"`
	Params  string `validate:"omitempty,json"`
}

// listParams are the query parameters of GET /conversion/list.
type listParams struct {
	Mode  *string `validate:"omitempty,oneof=vectorize outline enhance"`
	Limit *int    `validate:"omitempty,min=1,max=500"`
}

// ConversionItem is a gallery entry.
type ConversionItem struct {
	ID              int64           `json:"id"`
	ImageID         int64           `json:"image_id,omitempty"`
	ImageName       string          `json:"image_name"`
	ImageType       string          `json:"image_type,omitempty"`
	Mode            string          `json:"mode"`
	Status          string          `json:"status"`
	FailureReason   string          `json:"failure_reason,omitempty"`
	Device          string          `json:"device"`
	ChosenParams    json.RawMessage `json:"chosen_params,omitempty"`
	OutputMIME      string          `json:"output_mime,omitempty"`
	OutputSize      int64           `json:"output_size_bytes"`
	OutputHash      string          `json:"output_hash,omitempty"`
	OutputThumbMIME string          `json:"output_thumb_mime,omitempty"`
	OutputThumbSize int64           `json:"output_thumb_size"`
	StartedAt       time.Time       `json:"started_at"`
	EndedAt         time.Time       `json:"ended_at"`
	DurationSec     float64         `json:"duration_sec"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Convert handles POST /conversion. The artifact is returned as the body.
func (s *Server) Convert(w http.ResponseWriter, r *http.Request) {
	if err := s.parseMultipart(w, r); err != nil {
		s.writeUploadError(w, r, err)
		return
	}

	form := conversionForm{
		Mode:   r.FormValue("mode"),
		Params: r.FormValue("params"),
	}
	if v := r.FormValue("image_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			s.handleDomainError(w, r, domain.NewParamError("image_id", "must be an integer, got %q", v))
			return
		}
		form.ImageID = id
	}
	if err := validate.Struct(form); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, validationMessage(err))
		return
	}

	up, err := readUpload(r)
	if err != nil {
		s.writeUploadError(w, r, err)
		return
	}
	if up == nil && form.ImageID == 0 {
		s.handleDomainError(w, r, domain.NewParamError("file", "or image_id is required"))
		return
	}

	req := convertuc.Request{ImageID: form.ImageID, Mode: mode.Mode(form.Mode)}
	if up != nil {
		req.Upload = &convertuc.Upload{Name: up.Name, Data: up.Data}
	}
	if form.Params != "" {
		req.Params = json.RawMessage(form.Params)
	}

	res, err := s.svc.Convert.Convert(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	h := w.Header()
	h.Set("Content-Type", res.Output.MIME)
	h.Set("X-Conversion-ID", strconv.FormatInt(res.ConversionID, 10))
	h.Set("X-Image-ID", strconv.FormatInt(res.ImageID, 10))
	h.Set("X-Time-Taken", strconv.FormatFloat(res.Duration.Seconds(), 'f', 3, 64))
	h.Set("X-Device", string(res.Device))
	if chosen, err := json.Marshal(res.Params); err == nil {
		h.Set("X-Params", string(chosen))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Output.Data)
}

// ListConversions handles GET /conversion/list.
func (s *Server) ListConversions(w http.ResponseWriter, r *http.Request) {
	var p listParams
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "mode", q, &p.Mode); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid mode parameter")
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", q, &p.Limit); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid limit parameter")
		return
	}
	if err := validate.Struct(p); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, validationMessage(err))
		return
	}

	var (
		modeFilter string
		limit      int
	)
	if p.Mode != nil {
		modeFilter = *p.Mode
	}
	if p.Limit != nil {
		limit = *p.Limit
	}

	rows, err := s.svc.Gallery.List(r.Context(), modeFilter, limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	items := make([]ConversionItem, len(rows))
	for i, c := range rows {
		items[i] = conversionToItem(c)
	}
	writeJSON(w, http.StatusOK, items)
}

// GetConversion handles GET /conversion/{id}.
func (s *Server) GetConversion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, err := s.svc.Gallery.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conversionToItem(c))
}

// DeleteConversion handles DELETE /conversion/{id}.
func (s *Server) DeleteConversion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.svc.Gallery.Delete(r.Context(), id); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ConversionOutput handles GET /conversion/output/{id}?thumb=true.
func (s *Server) ConversionOutput(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var thumb *bool
	if err := runtime.BindQueryParameter("form", true, false, "thumb", r.URL.Query(), &thumb); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid thumb parameter")
		return
	}

	blob, err := s.svc.Gallery.Output(r.Context(), id, thumb != nil && *thumb)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", blob.MIME)
	w.Header().Set("Content-Length", strconv.Itoa(len(blob.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(blob.Data)
}

// pathID binds the {id} path parameter. It writes the error response itself.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	var id int64
	err := runtime.BindStyledParameterWithOptions("simple", "id", chirouter.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func validationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	if fe.Param() != "" {
		return fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
}

func conversionToItem(c record.Conversion) ConversionItem {
	item := ConversionItem{
		ID:              c.ID,
		ImageID:         c.ImageID,
		ImageName:       c.ImageName,
		ImageType:       c.ImageType,
		Mode:            string(c.Mode),
		Status:          string(c.Status),
		FailureReason:   c.FailureReason,
		Device:          string(c.Device),
		OutputMIME:      c.Output.MIME,
		OutputSize:      c.OutputSize,
		OutputHash:      c.OutputHash,
		OutputThumbMIME: c.OutputThumb.MIME,
		OutputThumbSize: c.OutputThumbSize,
		StartedAt:       c.StartedAt,
		EndedAt:         c.EndedAt,
		DurationSec:     c.DurationSec,
		CreatedAt:       c.CreatedAt,
	}
	if json.Valid(c.ChosenParams) {
		item.ChosenParams = c.ChosenParams
	}
	return item
}
