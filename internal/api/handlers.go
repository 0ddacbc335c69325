package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"studiobook/internal/aggregate"
	"studiobook/internal/export"
	"studiobook/internal/models"
	"studiobook/internal/schedule"
	"studiobook/internal/service"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// IntervalRequest is the body of the check and alternatives endpoints.
type IntervalRequest struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// RangeRequest is the body of the multi-engineer endpoints.
type RangeRequest struct {
	StartDate   string   `json:"start_date"` // Format: YYYY-MM-DD
	EndDate     string   `json:"end_date"`   // Format: YYYY-MM-DD
	EngineerIDs []string `json:"engineer_ids,omitempty"`
}

// CheckResponse answers a single slot check.
type CheckResponse struct {
	Free bool `json:"free"`
}

// AlternativesResponse lists replacement slots, nearest first.
type AlternativesResponse struct {
	Requested    models.Interval   `json:"requested"`
	Alternatives []models.Interval `json:"alternatives"`
}

// DaysResponse lists free slots per operating day.
type DaysResponse struct {
	Days []models.DayAvailability `json:"days"`
}

// HourSummary describes one hour of the overview.
type HourSummary struct {
	Engineers []string        `json:"engineers"`
	Count     int             `json:"count"`
	Level     aggregate.Level `json:"level"`
}

// OverviewResponse is the multi-engineer hourly overview.
type OverviewResponse struct {
	Period struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"period"`
	Hours map[string]HourSummary `json:"hours"`
}

// GET /api/v1/engineers/{id}/free?start_date=&end_date=
func (s *HTTPServer) handleEngineerFree(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	q := r.URL.Query()
	rng, err := s.parseDateRange(q.Get("start_date"), q.Get("end_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	days, err := s.svc.ListFreeSlots(r.Context(), id, rng)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DaysResponse{Days: days})
}

// POST /api/v1/engineers/{id}/check
func (s *HTTPServer) handleEngineerCheck(w http.ResponseWriter, r *http.Request) {
	iv, ok := decodeInterval(w, r)
	if !ok {
		return
	}
	free, err := s.svc.IsSlotFree(r.Context(), mux.Vars(r)["id"], iv)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CheckResponse{Free: free})
}

// POST /api/v1/studios/{id}/check
func (s *HTTPServer) handleStudioCheck(w http.ResponseWriter, r *http.Request) {
	iv, ok := decodeInterval(w, r)
	if !ok {
		return
	}
	free, err := s.svc.IsStudioFree(r.Context(), mux.Vars(r)["id"], iv)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CheckResponse{Free: free})
}

// POST /api/v1/engineers/{id}/alternatives
func (s *HTTPServer) handleEngineerAlternatives(w http.ResponseWriter, r *http.Request) {
	iv, ok := decodeInterval(w, r)
	if !ok {
		return
	}
	alts, err := s.svc.ListAlternatives(r.Context(), mux.Vars(r)["id"], iv, s.now())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AlternativesResponse{Requested: iv, Alternatives: alts})
}

// POST /api/v1/free
func (s *HTTPServer) handleFree(w http.ResponseWriter, r *http.Request) {
	req, rng, ok := s.decodeRange(w, r)
	if !ok {
		return
	}
	days, err := s.svc.ListFreeSlotsMulti(r.Context(), req.EngineerIDs, rng)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DaysResponse{Days: days})
}

// POST /api/v1/overview
func (s *HTTPServer) handleOverview(w http.ResponseWriter, r *http.Request) {
	req, rng, ok := s.decodeRange(w, r)
	if !ok {
		return
	}
	hours, err := s.svc.Overview(r.Context(), req.EngineerIDs, rng)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	var resp OverviewResponse
	resp.Period.Start = req.StartDate
	resp.Period.End = req.EndDate
	resp.Hours = make(map[string]HourSummary, len(hours))
	for key, ids := range hours {
		resp.Hours[key] = HourSummary{Engineers: ids, Count: len(ids), Level: aggregate.LevelOf(len(ids))}
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /api/v1/overview.xlsx?start_date=&end_date=&engineer_ids=a,b
func (s *HTTPServer) handleOverviewExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rng, err := s.parseDateRange(q.Get("start_date"), q.Get("end_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var ids []string
	if raw := strings.TrimSpace(q.Get("engineer_ids")); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}

	hours, err := s.svc.Overview(r.Context(), ids, rng)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	engineers := s.dir.Active()
	if len(ids) > 0 {
		engineers = make([]models.Resource, 0, len(ids))
		for _, id := range ids {
			if e, ok := s.dir.Lookup(id); ok {
				engineers = append(engineers, e)
			}
		}
	}

	var buf bytes.Buffer
	if err := export.WriteOverview(&buf, hours, engineers); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("overview export failed")
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	filename := fmt.Sprintf("overview_%s_%s.xlsx", q.Get("start_date"), q.Get("end_date"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func decodeInterval(w http.ResponseWriter, r *http.Request) (models.Interval, bool) {
	var req IntervalRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return models.Interval{}, false
	}
	if req.Start.IsZero() || req.End.IsZero() {
		writeError(w, http.StatusBadRequest, "start and end are required")
		return models.Interval{}, false
	}
	iv := models.Interval{Start: req.Start, End: req.End}
	if !iv.Valid() {
		writeError(w, http.StatusBadRequest, "end must be after start")
		return models.Interval{}, false
	}
	return iv, true
}

func (s *HTTPServer) decodeRange(w http.ResponseWriter, r *http.Request) (RangeRequest, models.DateRange, bool) {
	var req RangeRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return req, models.DateRange{}, false
	}
	rng, err := s.parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return req, models.DateRange{}, false
	}
	return req, rng, true
}

// parseDateRange turns inclusive operating dates into the instants they cover.
func (s *HTTPServer) parseDateRange(startStr, endStr string) (models.DateRange, error) {
	if startStr == "" || endStr == "" {
		return models.DateRange{}, fmt.Errorf("start_date and end_date are required")
	}
	loc := s.svc.Location()

	start, err := time.ParseInLocation(models.DateFormat, startStr, loc)
	if err != nil {
		return models.DateRange{}, fmt.Errorf("invalid start_date format; expected YYYY-MM-DD")
	}
	end, err := time.ParseInLocation(models.DateFormat, endStr, loc)
	if err != nil {
		return models.DateRange{}, fmt.Errorf("invalid end_date format; expected YYYY-MM-DD")
	}
	if start.After(end) {
		return models.DateRange{}, fmt.Errorf("start_date must be before or equal to end_date")
	}

	return models.DateRange{
		Start: schedule.OperatingDayBounds(start, loc).Start,
		End:   schedule.OperatingDayBounds(end, loc).End,
	}, nil
}

func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrUnknownResource), errors.Is(err, service.ErrUnknownStudio):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrRangeTooLarge),
		errors.Is(err, service.ErrInvalidRange),
		errors.Is(err, service.ErrInvalidInterval):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUpstream):
		writeError(w, http.StatusBadGateway, service.ErrUpstream.Error())
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
