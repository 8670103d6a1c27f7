// Package httpapi exposes the conversion service over a JSON HTTP API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/louisbranch/numeral.space/internal/services/numeral/roman"
	"github.com/louisbranch/numeral.space/internal/services/numeral/storage"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// ConversionService answers conversion requests.
type ConversionService interface {
	ArabicToRoman(ctx context.Context, number int) (string, error)
	RomanToArabic(ctx context.Context, numeral string) (int, error)
}

// Handler serves the conversion JSON API.
type Handler struct {
	service ConversionService
	store   storage.ConversionStore
}

// New creates an API handler over the given service and store.
func New(service ConversionService, store storage.ConversionStore) *Handler {
	return &Handler{service: service, store: store}
}

// Register attaches all API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/roman/{arabic}", h.handleArabicToRoman)
	mux.HandleFunc("GET /api/arabic/{roman}", h.handleRomanToArabic)
	mux.HandleFunc("GET /api/conversions", h.handleListConversions)
	mux.HandleFunc("DELETE /api/conversions", h.handleClearConversions)
	mux.HandleFunc("GET /healthz", h.handleHealth)
}

type conversionResponse struct {
	Arabic int    `json:"arabic"`
	Roman  string `json:"roman"`
}

type listResponse struct {
	Conversions []conversionResponse `json:"conversions"`
	Total       int64                `json:"total"`
	Limit       int                  `json:"limit"`
	Offset      int                  `json:"offset"`
}

type clearResponse struct {
	Deleted int64 `json:"deleted"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) handleArabicToRoman(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(r.PathValue("arabic"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "arabic value must be an integer")
		return
	}
	numeral, err := h.service.ArabicToRoman(r.Context(), number)
	if err != nil {
		writeConversionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conversionResponse{Arabic: number, Roman: numeral})
}

func (h *Handler) handleRomanToArabic(w http.ResponseWriter, r *http.Request) {
	numeral := r.PathValue("roman")
	number, err := h.service.RomanToArabic(r.Context(), numeral)
	if err != nil {
		writeConversionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conversionResponse{Arabic: number, Roman: roman.Normalize(numeral)})
}

func (h *Handler) handleListConversions(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		offset = parsed
	}

	page, err := h.store.ListConversions(r.Context(), limit, offset)
	if err != nil {
		log.Printf("list conversions: %v", err)
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}

	response := listResponse{
		Conversions: make([]conversionResponse, 0, len(page.Conversions)),
		Total:       page.Total,
		Limit:       page.Limit,
		Offset:      page.Offset,
	}
	for _, conversion := range page.Conversions {
		response.Conversions = append(response.Conversions, conversionResponse{
			Arabic: conversion.Arabic,
			Roman:  conversion.Roman,
		})
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *Handler) handleClearConversions(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.store.ClearConversions(r.Context())
	if err != nil {
		log.Printf("clear conversions: %v", err)
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	writeJSON(w, http.StatusOK, clearResponse{Deleted: deleted})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.store.HealthCheck(r.Context()); err != nil {
		log.Printf("health check: %v", err)
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeConversionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, roman.ErrOutOfRange), errors.Is(err, roman.ErrInvalidNumeral):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("conversion failed: %v", err)
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode response: %v", err)
	}
}
