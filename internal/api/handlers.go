package api

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/Psnastudent/sgp4-service/internal/metrics"
	"github.com/Psnastudent/sgp4-service/internal/propagation"
	"github.com/Psnastudent/sgp4-service/internal/timeconv"
	"github.com/Psnastudent/sgp4-service/internal/tle"
	"github.com/Psnastudent/sgp4-service/internal/transform"
)

// Codes for request-level failures. Per-satellite codes come from the
// parser and the propagator.
const (
	codeInvalidRequest  = "invalid_request"
	codeRequestTooLarge = "request_too_large"
	codeBatchTooLarge   = "batch_too_large"
	codeTooManyRequests = "too_many_requests"
	codeCatalogDisabled = "catalog_disabled"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

// satelliteRequest is one entry of a propagation request. The tle1/tle2
// spellings are accepted as aliases of tle_line1/tle_line2.
type satelliteRequest struct {
	Name     string `json:"name"`
	TLELine1 string `json:"tle_line1"`
	TLELine2 string `json:"tle_line2"`
	TLE1     string `json:"tle1"`
	TLE2     string `json:"tle2"`
}

func (s satelliteRequest) input() propagation.Input {
	in := propagation.Input{Name: s.Name, Line1: s.TLELine1, Line2: s.TLELine2}
	if in.Line1 == "" {
		in.Line1 = s.TLE1
	}
	if in.Line2 == "" {
		in.Line2 = s.TLE2
	}
	return in
}

type observerRequest struct {
	LatDeg float64 `json:"lat_deg"`
	LonDeg float64 `json:"lon_deg"`
	AltKm  float64 `json:"alt_km"`
}

type propagateRequest struct {
	Satellites []satelliteRequest `json:"satellites"`
	Timestamp  string             `json:"timestamp"`
	Frame      string             `json:"frame,omitempty"`
	Geodetic   bool               `json:"geodetic,omitempty"`
	Observer   *observerRequest   `json:"observer,omitempty"`
}

// options validates the optional output settings of a request.
func (req *propagateRequest) options() (propagation.Options, error) {
	var opts propagation.Options
	switch f := propagation.Frame(strings.ToLower(req.Frame)); f {
	case "", propagation.FrameTEME, propagation.FrameECEF:
		opts.Frame = f
	default:
		return opts, errors.Errorf("unknown frame %q (want teme or ecef)", req.Frame)
	}
	opts.Geodetic = req.Geodetic

	if o := req.Observer; o != nil {
		if math.IsNaN(o.LatDeg) || o.LatDeg < -90 || o.LatDeg > 90 {
			return opts, errors.Errorf("observer latitude %g out of range [-90, 90]", o.LatDeg)
		}
		if math.IsNaN(o.LonDeg) || o.LonDeg < -180 || o.LonDeg > 360 {
			return opts, errors.Errorf("observer longitude %g out of range [-180, 360]", o.LonDeg)
		}
		obs := transform.NewObserver(o.LatDeg, o.LonDeg, o.AltKm)
		opts.Observer = &obs
	}
	return opts, nil
}

type positionKm struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type velocityKmS struct {
	VX float64 `json:"vx"`
	VY float64 `json:"vy"`
	VZ float64 `json:"vz"`
}

type geodeticResponse struct {
	LatDeg float64 `json:"lat_deg"`
	LonDeg float64 `json:"lon_deg"`
	AltKm  float64 `json:"alt_km"`
}

type lookResponse struct {
	AzimuthDeg   float64 `json:"azimuth_deg"`
	ElevationDeg float64 `json:"elevation_deg"`
	RangeKm      float64 `json:"range_km"`
}

// satelliteResult is either a state vector or an error, never both.
type satelliteResult struct {
	Name        string            `json:"name"`
	NORADID     int               `json:"norad_id,omitempty"`
	PositionKm  *positionKm       `json:"position_km,omitempty"`
	VelocityKmS *velocityKmS      `json:"velocity_km_s,omitempty"`
	Geodetic    *geodeticResponse `json:"geodetic,omitempty"`
	LookAngles  *lookResponse     `json:"look_angles,omitempty"`
	Error       string            `json:"error,omitempty"`
	Code        string            `json:"code,omitempty"`
}

type propagateResponse struct {
	Satellites []satelliteResult `json:"satellites"`
}

func newSatelliteResult(r propagation.Result) satelliteResult {
	out := satelliteResult{Name: r.Name, NORADID: r.NORADID}
	if r.Err != nil {
		out.Error = r.Err.Error()
		out.Code = r.Code()
		return out
	}
	out.PositionKm = &positionKm{X: r.State.X, Y: r.State.Y, Z: r.State.Z}
	out.VelocityKmS = &velocityKmS{VX: r.State.VX, VY: r.State.VY, VZ: r.State.VZ}
	if g := r.Geodetic; g != nil {
		out.Geodetic = &geodeticResponse{LatDeg: g.LatDeg, LonDeg: g.LonDeg, AltKm: g.AltKm}
	}
	if l := r.Look; l != nil {
		out.LookAngles = &lookResponse{AzimuthDeg: l.AzimuthDeg, ElevationDeg: l.ElevationDeg, RangeKm: l.RangeKm}
	}
	return out
}

// EncodeBatch writes batch in the propagation response shape, indented.
func EncodeBatch(w io.Writer, batch *propagation.Batch) error {
	resp := propagateResponse{Satellites: make([]satelliteResult, len(batch.Results))}
	for i, res := range batch.Results {
		resp.Satellites[i] = newSatelliteResult(res)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// decodeBody reads one JSON value from a size-limited body and writes the
// error response itself when that fails.
func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, codeRequestTooLarge,
				"request body exceeds "+humanBytes(tooLarge.Limit))
			return false
		}
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// handlePropagate serves POST /api/v1/propagate and its /propagate alias.
func (s *Server) handlePropagate(w http.ResponseWriter, r *http.Request) {
	var req propagateRequest
	if !decodeBody(w, r, s.cfg.MaxBodyBytes, &req) {
		return
	}
	opts, err := req.options()
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}

	inputs := make([]propagation.Input, len(req.Satellites))
	for i, sat := range req.Satellites {
		inputs[i] = sat.input()
	}

	batch, err := s.prop.PropagateBatch(inputs, req.Timestamp, opts)
	if err != nil {
		var tsErr *timeconv.TimestampError
		switch {
		case errors.As(err, &tsErr):
			writeError(w, http.StatusBadRequest, tsErr.ErrorCode(), err.Error())
		case errors.Is(err, propagation.ErrBatchTooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, codeBatchTooLarge, err.Error())
		default:
			s.logger.Error("batch propagation failed",
				"component", "api",
				"request_id", RequestID(r.Context()),
				"error", err,
			)
			writeError(w, http.StatusInternalServerError, propagation.CodeInternal, "internal error")
		}
		return
	}

	resp := propagateResponse{Satellites: make([]satelliteResult, len(batch.Results))}
	for i, res := range batch.Results {
		resp.Satellites[i] = newSatelliteResult(res)
	}
	writeJSON(w, http.StatusOK, resp)
}

type engineResponse struct {
	Engine        string   `json:"engine"`
	Gravity       string   `json:"gravity"`
	Workers       int      `json:"workers"`
	MaxBatch      int      `json:"max_batch"`
	Engines       []string `json:"engines"`
	GravityModels []string `json:"gravity_models"`
}

// handleEngines serves GET /api/v1/engines.
func (s *Server) handleEngines(w http.ResponseWriter, r *http.Request) {
	cfg := s.prop.Config()
	gravity := cfg.Gravity
	if gravity == "" {
		gravity = "wgs72"
	}
	writeJSON(w, http.StatusOK, engineResponse{
		Engine:        cfg.Engine,
		Gravity:       gravity,
		Workers:       cfg.Workers,
		MaxBatch:      cfg.MaxBatch,
		Engines:       []string{propagation.EngineNative, propagation.EngineReference},
		GravityModels: []string{"wgs72", "wgs72old", "wgs84"},
	})
}

type entrySummary struct {
	NORADID        int     `json:"norad_id"`
	Name           string  `json:"name"`
	Epoch          string  `json:"epoch"`
	InclinationDeg float64 `json:"inclination_deg"`
	Eccentricity   float64 `json:"eccentricity"`
	RevsPerDay     float64 `json:"revs_per_day"`
	PeriodMin      float64 `json:"period_min"`
	TLELine1       string  `json:"tle_line1"`
	TLELine2       string  `json:"tle_line2"`
}

type catalogResponse struct {
	Source     string         `json:"source"`
	FetchedAt  string         `json:"fetched_at"`
	Count      int            `json:"count"`
	EpochMin   string         `json:"epoch_min,omitempty"`
	EpochMax   string         `json:"epoch_max,omitempty"`
	Satellites []entrySummary `json:"satellites"`
}

func newCatalogResponse(ds *tle.Dataset) catalogResponse {
	resp := catalogResponse{
		Source:     ds.Source,
		FetchedAt:  ds.FetchedAt.UTC().Format(time.RFC3339),
		Count:      len(ds.Satellites),
		Satellites: make([]entrySummary, len(ds.Satellites)),
	}
	if len(ds.Satellites) > 0 {
		resp.EpochMin = ds.EpochRange.Min.UTC().Format(time.RFC3339)
		resp.EpochMax = ds.EpochRange.Max.UTC().Format(time.RFC3339)
	}
	for i, e := range ds.Satellites {
		el := e.Elements
		resp.Satellites[i] = entrySummary{
			NORADID:        e.NORADID,
			Name:           e.Name,
			Epoch:          e.Epoch.UTC().Format(time.RFC3339Nano),
			InclinationDeg: el.Inclination * 180 / math.Pi,
			Eccentricity:   el.Eccentricity,
			RevsPerDay:     el.RevsPerDay,
			PeriodMin:      timeconv.MinutesPerDay / el.RevsPerDay,
			TLELine1:       e.Line1,
			TLELine2:       e.Line2,
		}
	}
	return resp
}

// handleCatalog serves GET /api/v1/catalog. The raw catalog text is passed
// through unparsed unless format=json is requested.
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if s.fetcher == nil {
		writeError(w, http.StatusServiceUnavailable, codeCatalogDisabled, "catalog fetch is disabled")
		return
	}

	body, err := s.fetcher.Fetch(r.Context())
	metrics.RecordCatalogFetch(err == nil)
	if err != nil {
		s.logger.Warn("catalog fetch failed",
			"component", "api",
			"request_id", RequestID(r.Context()),
			"error", err,
		)
		writeError(w, http.StatusBadGateway, propagation.ErrorCode(err), err.Error())
		return
	}

	if r.URL.Query().Get("format") != "json" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write(body)
		return
	}

	entries, err := tle.Parse(bytes.NewReader(body), s.logger)
	if err != nil {
		writeError(w, http.StatusBadGateway, propagation.CodeInternal, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newCatalogResponse(tle.NewDataset(s.fetcher.SourceURL(), time.Now(), entries)))
}

// handleSatellites serves POST /api/v1/satellites: it parses a posted
// 2- or 3-line catalog and summarizes the valid entries.
func (s *Server) handleSatellites(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, codeRequestTooLarge,
				"request body exceeds "+humanBytes(tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}

	entries, err := tle.Parse(bytes.NewReader(body), s.logger)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newCatalogResponse(tle.NewDataset("request", time.Now(), entries)))
}

func humanBytes(n int64) string {
	switch {
	case n >= 1<<20 && n%(1<<20) == 0:
		return strconv.FormatInt(n>>20, 10) + " MiB"
	case n >= 1<<10 && n%(1<<10) == 0:
		return strconv.FormatInt(n>>10, 10) + " KiB"
	}
	return strconv.FormatInt(n, 10) + " bytes"
}
