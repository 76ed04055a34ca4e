package server

import (
	"encoding/json"
	"net/http"

	"github.com/sebiscope/sebiscope/internal/utils"
	"github.com/sebiscope/sebiscope/pkg/artifact"
	"github.com/sebiscope/sebiscope/pkg/catalog"
	"github.com/sebiscope/sebiscope/pkg/storage"
)

type resolveRequest struct {
	Company string `json:"company"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Company == "" {
		http.Error(w, "body must be {\"company\": \"...\"}", http.StatusBadRequest)
		return
	}

	result, err := catalog.ResolveDocument(r.Context(), req.Company, s.Proxy)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	s.recordResolution(r, req.Company, result)
	json.NewEncoder(w).Encode(result)
}

type fetchResponse struct {
	Resolution catalog.ResolutionResult `json:"resolution"`
	Download   *artifact.Outcome        `json:"download,omitempty"`
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Company == "" {
		http.Error(w, "body must be {\"company\": \"...\"}", http.StatusBadRequest)
		return
	}

	result, err := catalog.ResolveDocument(r.Context(), req.Company, s.Proxy)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	s.recordResolution(r, req.Company, result)

	resp := fetchResponse{Resolution: result}
	if result.Found {
		outcome, err := artifact.AcquireArtifact(r.Context(), result.Match.LandingURL, req.Company, s.DataDir, s.Proxy)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		resp.Download = &outcome
		if outcome.Saved && s.DB != nil {
			if err := s.DB.RecordArtifact(r.Context(), storage.Artifact{
				Company:     req.Company,
				LandingURL:  result.Match.LandingURL,
				ResolvedURL: outcome.ResolvedURL,
				Path:        outcome.Path,
				SizeBytes:   outcome.SizeBytes,
				Attempts:    outcome.Attempts,
			}); err != nil {
				utils.Log.Warnf("failed to record artifact: %v", err)
			}
		}
	}

	json.NewEncoder(w).Encode(resp)
}

type historyResponse struct {
	Resolutions []storage.Resolution `json:"resolutions"`
	Artifacts   []storage.Artifact   `json:"artifacts"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "history store not configured", http.StatusNotFound)
		return
	}

	resolutions, err := s.DB.ListResolutions(r.Context(), 50)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	artifacts, err := s.DB.ListArtifacts(r.Context(), 50)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(historyResponse{Resolutions: resolutions, Artifacts: artifacts})
}

func (s *Server) recordResolution(r *http.Request, company string, result catalog.ResolutionResult) {
	if s.DB == nil {
		return
	}
	rec := storage.Resolution{
		Company:         company,
		NormalizedQuery: catalog.NewMatchQuery(company).NormalizedName,
		Found:           result.Found,
		PagesScanned:    result.PagesScanned,
		UniqueTitles:    result.UniqueTitles,
	}
	if result.Found {
		rec.MatchedTitle = result.Match.RawTitle
		rec.DocType = string(result.Match.DocType)
		rec.Score = result.Match.Score
		rec.LandingURL = result.Match.LandingURL
	}
	if err := s.DB.RecordResolution(r.Context(), rec); err != nil {
		utils.Log.Warnf("failed to record resolution: %v", err)
	}
}
