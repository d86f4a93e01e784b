package handlers

import (
	"net/http"

	"github.com/Harshitk-cp/clawguild/internal/provider"
	"github.com/Harshitk-cp/clawguild/internal/runtime"
)

type ProviderHandler struct {
	providers *provider.Registry
	runtimes  *runtime.Registry
}

func NewProviderHandler(providers *provider.Registry, runtimes *runtime.Registry) *ProviderHandler {
	return &ProviderHandler{providers: providers, runtimes: runtimes}
}

// List reports which providers are configured and which runtimes can be
// booted on them.
func (h *ProviderHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"providers": h.providers.Providers(),
		"runtimes":  h.runtimes.Kinds(),
	})
}
