package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

const mapsEmbedBase = "https://www.google.com/maps/embed/v1/place"

// MapsAPIKey handles GET /api/maps/api-key.
func (h *Handlers) MapsAPIKey(w http.ResponseWriter, r *http.Request) {
	if h.MapsKey == "" {
		respondError(w, http.StatusInternalServerError, "Google Maps API key not configured")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"api_key": h.MapsKey})
}

// MapsEmbed handles GET /api/maps/embed: builds the embed URL server-side so
// the key never reaches query logs on the client path.
func (h *Handlers) MapsEmbed(w http.ResponseWriter, r *http.Request) {
	lat, lon, ok := requireCoordinates(w, r)
	if !ok {
		return
	}
	zoom := queryInt(r, "zoom", 18)
	maptype := r.URL.Query().Get("maptype")
	if maptype == "" {
		maptype = "satellite"
	}
	h.respondEmbedURL(w, lat, lon, zoom, maptype)
}

// MapsDetailedView handles GET /api/maps/detailed-view: a maximum-zoom embed
// for inspecting individual plots.
func (h *Handlers) MapsDetailedView(w http.ResponseWriter, r *http.Request) {
	lat, lon, ok := requireCoordinates(w, r)
	if !ok {
		return
	}
	maptype := "satellite"
	if r.URL.Query().Get("view_type") == "roadmap" {
		maptype = "roadmap"
	}
	h.respondEmbedURL(w, lat, lon, 20, maptype)
}

func (h *Handlers) respondEmbedURL(w http.ResponseWriter, lat, lon float64, zoom int, maptype string) {
	if h.MapsKey == "" {
		respondError(w, http.StatusInternalServerError, "Google Maps API key not configured")
		return
	}
	params := url.Values{}
	params.Set("key", h.MapsKey)
	params.Set("q", fmt.Sprintf("%v,%v", lat, lon))
	params.Set("zoom", strconv.Itoa(zoom))
	params.Set("maptype", maptype)

	respondJSON(w, http.StatusOK, map[string]string{
		"embed_url": mapsEmbedBase + "?" + params.Encode(),
	})
}
