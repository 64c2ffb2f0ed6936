package routers

import (
	"net/http"

	"dag-console/auth"
	"dag-console/handlers"

	"github.com/gorilla/mux"
)

// RegisterRoutes sets up all the HTTP routes the rendering surface uses
func RegisterRoutes(r *mux.Router, h *handlers.Handler) {
	dagView := func(next http.HandlerFunc) http.HandlerFunc {
		return h.RequirePermission(auth.PermViewDAG, next)
	}
	board := func(next http.HandlerFunc) http.HandlerFunc {
		return h.RequirePermission(auth.PermViewDashboard, next)
	}

	// Session lifecycle; open so an anonymous surface can sign in
	r.HandleFunc("/auth/login", h.Login).Methods("POST")
	r.HandleFunc("/auth/logout", h.Logout).Methods("POST")
	r.HandleFunc("/auth/refresh", h.Refresh).Methods("POST")
	r.HandleFunc("/auth/activity", h.Activity).Methods("POST")
	r.HandleFunc("/auth/session", h.Session).Methods("GET")

	// Derived views over the latest DAG snapshot
	r.HandleFunc("/dag/view", dagView(h.GetView)).Methods("GET")
	r.HandleFunc("/dag/filters", dagView(h.GetFilters)).Methods("GET")
	r.HandleFunc("/dag/filters", dagView(h.ApplyFilters)).Methods("POST")
	r.HandleFunc("/dag/filters", dagView(h.ClearFilters)).Methods("DELETE")
	r.HandleFunc("/dag/search", dagView(h.Search)).Methods("POST")
	r.HandleFunc("/dag/export", dagView(h.Export)).Methods("GET")
	r.HandleFunc("/dag/tips", dagView(h.GetTips)).Methods("GET")
	r.HandleFunc("/dag/stats", dagView(h.GetStats)).Methods("GET")
	r.HandleFunc("/dag/weights", dagView(h.GetWeights)).Methods("GET")
	r.HandleFunc("/dag/nodes/{id}", dagView(h.GetNode)).Methods("GET")

	// Chart annotations; fixed paths before {id}
	r.HandleFunc("/annotations", board(h.ListAnnotations)).Methods("GET")
	r.HandleFunc("/annotations", board(h.AddAnnotation)).Methods("POST")
	r.HandleFunc("/annotations", board(h.ClearAnnotations)).Methods("DELETE")
	r.HandleFunc("/annotations/hit", board(h.HitTest)).Methods("GET")
	r.HandleFunc("/annotations/export", board(h.ExportAnnotations)).Methods("GET")
	r.HandleFunc("/annotations/tool", board(h.SelectTool)).Methods("POST")
	r.HandleFunc("/annotations/tool", board(h.CancelTool)).Methods("DELETE")
	r.HandleFunc("/annotations/tool/pointer", board(h.Pointer)).Methods("POST")
	r.HandleFunc("/annotations/import", board(h.ImportAnnotations)).Methods("PUT")
	r.HandleFunc("/annotations/{id}", board(h.UpdateAnnotation)).Methods("PATCH")
	r.HandleFunc("/annotations/{id}", board(h.DeleteAnnotation)).Methods("DELETE")
	r.HandleFunc("/annotations/{id}/levels", board(h.FibonacciLevels)).Methods("GET")

	// Per-user dashboard layout
	r.HandleFunc("/dashboard/layout", board(h.GetLayout)).Methods("GET")
	r.HandleFunc("/dashboard/layout", board(h.SaveLayout)).Methods("PUT")
	r.HandleFunc("/dashboard/layout", board(h.ResetLayout)).Methods("DELETE")
}
