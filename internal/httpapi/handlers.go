package httpapi

import (
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/larouxn/flipper"
	"github.com/larouxn/flipper/expression"
)

func (a *API) handleListFeatures(w http.ResponseWriter, r *http.Request) {
	all, err := a.adapter.GetAll(r.Context())
	if err != nil {
		a.storageError(w, r, err)
		return
	}

	keys := make([]string, 0, len(all))
	for key := range all {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	resp := FeaturesResponse{Features: make([]FeatureResponse, 0, len(keys))}
	for _, key := range keys {
		resp.Features = append(resp.Features, featureResponse(key, all[key]))
	}
	render.JSON(w, r, resp)
}

func (a *API) handleCreateFeature(w http.ResponseWriter, r *http.Request) {
	var req CreateFeatureRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		a.badRequest(w, r, "ERR_INVALID_JSON", "invalid JSON payload")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		a.badRequest(w, r, "ERR_INVALID_NAME", "feature name cannot be empty")
		return
	}

	if err := a.adapter.Add(r.Context(), req.Name); err != nil {
		a.storageError(w, r, err)
		return
	}

	values, err := a.adapter.Get(r.Context(), req.Name)
	if err != nil {
		a.storageError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, featureResponse(req.Name, values))
}

// handleGetFeature always answers 200: an unknown feature reads as the
// default-shaped state, matching adapter.Get semantics.
func (a *API) handleGetFeature(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	values, err := a.adapter.Get(r.Context(), key)
	if err != nil {
		a.storageError(w, r, err)
		return
	}
	render.JSON(w, r, featureResponse(key, values))
}

func (a *API) handleRemoveFeature(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	if err := a.adapter.Remove(r.Context(), key); err != nil {
		a.storageError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

func (a *API) handleClearFeature(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	if err := a.adapter.Clear(r.Context(), key); err != nil {
		a.storageError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// handleGate serves both gate directions; enable selects between
// adapter.Enable and adapter.Disable.
func (a *API) handleGate(enable bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")
		gateName := flipper.GateName(chi.URLParam(r, "gate"))

		gate, ok := flipper.GateByName(gateName)
		if !ok {
			a.badRequest(w, r, "ERR_UNKNOWN_GATE", "unknown gate "+string(gateName))
			return
		}

		var req GateRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			a.badRequest(w, r, "ERR_INVALID_JSON", "invalid JSON payload")
			return
		}

		if errResp := validateGateValue(gate, req.Value, enable); errResp != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, errResp)
			return
		}

		var err error
		if enable {
			if err = a.adapter.Add(r.Context(), key); err == nil {
				err = a.adapter.Enable(r.Context(), key, gate, req.Value)
			}
		} else {
			err = a.adapter.Disable(r.Context(), key, gate, req.Value)
		}
		if err != nil {
			a.storageError(w, r, err)
			return
		}

		values, err := a.adapter.Get(r.Context(), key)
		if err != nil {
			a.storageError(w, r, err)
			return
		}
		render.JSON(w, r, featureResponse(key, values))
	}
}

// validateGateValue rejects wire values the adapter would silently
// mangle: out-of-range percentages, malformed booleans and expressions.
func validateGateValue(gate flipper.Gate, value string, enable bool) *ErrorResponse {
	switch gate.DataType() {
	case flipper.DataTypeBoolean:
		if value != "true" && value != "false" {
			return &ErrorResponse{Code: "ERR_INVALID_VALUE", Message: `boolean gate takes "true" or "false"`}
		}
	case flipper.DataTypeInteger:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 || n > 100 {
			return &ErrorResponse{Code: "ERR_INVALID_VALUE", Message: "percentage must be an integer between 0 and 100"}
		}
	case flipper.DataTypeSet:
		if value == "" {
			return &ErrorResponse{Code: "ERR_INVALID_VALUE", Message: "set gates take a non-empty element"}
		}
	case flipper.DataTypeJSON:
		if !enable {
			return nil // disable clears, no payload needed
		}
		if _, err := expression.FromJSON([]byte(value)); err != nil {
			return &ErrorResponse{Code: "ERR_INVALID_VALUE", Message: "malformed expression: " + err.Error()}
		}
	}
	return nil
}

func featureResponse(key string, values *flipper.GateValues) FeatureResponse {
	return FeatureResponse{
		Key:   key,
		State: string(values.State()),
		Gates: GatesDocumentFromValues(values),
	}
}

func (a *API) badRequest(w http.ResponseWriter, r *http.Request, code, message string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, ErrorResponse{Code: code, Message: message})
}

func (a *API) storageError(w http.ResponseWriter, r *http.Request, err error) {
	a.logger.Error("storage operation failed",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	render.Status(r, http.StatusInternalServerError)
	render.JSON(w, r, ErrorResponse{Code: "ERR_STORAGE", Message: "storage operation failed"})
}
