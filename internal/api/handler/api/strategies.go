package api

import (
	"net/http"

	"github.com/newthinker/strata/internal/api/response"
	"github.com/newthinker/strata/internal/strategy"
)

// StrategiesHandler serves the strategy catalog.
type StrategiesHandler struct {
	catalog func() []strategy.Definition
}

func NewStrategiesHandler(catalog func() []strategy.Definition) *StrategiesHandler {
	return &StrategiesHandler{catalog: catalog}
}

// List returns every strategy type with its parameters.
func (h *StrategiesHandler) List(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.catalog())
}
