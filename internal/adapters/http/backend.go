package httpadapter

import (
	"net/http"

	"github.com/oapi-codegen/runtime"

	"vantage/internal/domain"
)

func (s *Server) apiOrganizations(w http.ResponseWriter, r *http.Request) {
	resp, err := s.backend.Organizations(r.Context())
	s.writeEnvelope(w, resp.Success, resp, err)
}

// apiPortfolio serves both GET /portfolio?orgId= and
// GET /portfolio?companyId=&companyName=.
func (s *Server) apiPortfolio(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Has("companyId") {
		var raw string
		var name *string
		if err := runtime.BindQueryParameter("form", true, true, "companyId", q, &raw); err != nil {
			writeError(w, http.StatusBadRequest, "invalid companyId")
			return
		}
		if err := runtime.BindQueryParameter("form", true, false, "companyName", q, &name); err != nil {
			writeError(w, http.StatusBadRequest, "invalid companyName")
			return
		}
		var hint string
		if name != nil {
			hint = *name
		}
		resp, err := s.backend.CompanyWithTargets(r.Context(), domain.ParseCompanyID(raw), hint)
		s.writeEnvelope(w, resp.Success, resp, err)
		return
	}
	var orgID int64
	if err := runtime.BindQueryParameter("form", true, true, "orgId", q, &orgID); err != nil {
		writeError(w, http.StatusBadRequest, "orgId or companyId is required")
		return
	}
	resp, err := s.backend.PortfolioByOrg(r.Context(), orgID)
	s.writeEnvelope(w, resp.Success, resp, err)
}

func (s *Server) apiTargetSynergy(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var buyer, target string
	if err := runtime.BindQueryParameter("form", true, true, "buyerCompanyId", q, &buyer); err != nil {
		writeError(w, http.StatusBadRequest, "buyerCompanyId is required")
		return
	}
	if err := runtime.BindQueryParameter("form", true, true, "targetCompanyId", q, &target); err != nil {
		writeError(w, http.StatusBadRequest, "targetCompanyId is required")
		return
	}
	resp, err := s.backend.TargetSynergy(r.Context(), domain.ParseCompanyID(buyer), domain.ParseCompanyID(target))
	s.writeEnvelope(w, resp.Success, resp, err)
}
