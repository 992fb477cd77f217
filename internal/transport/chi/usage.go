package chi

import (
	"net/http"

	"github.com/oapi-codegen/runtime"

	domusage "github.com/DevHassanMehdi/ImageUpLift/internal/domain/usage"
)

// GetUsage handles GET /usage?period=day|month.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	var raw string
	if err := runtime.BindQueryParameter("form", true, false, "period", r.URL.Query(), &raw); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid period parameter")
		return
	}
	period, err := domusage.ParsePeriod(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Usage.Report(r.Context(), period))
}
