package main

import "net/http"

// HealthCheck godoc
//
//	@Summary		Health check
//	@Description	Reports service status, version and the number of live cart sessions
//	@Tags			Ops
//	@Produce		json
//	@Success		200	{object}	envelope{data=map[string]any}
//	@Failure		500	{object}	error	"Internal Server Error"
//	@Security		BasicAuth
//	@Router			/health [get]
func (app *application) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{
		"status":   "ok",
		"env":      app.config.env,
		"version":  version,
		"sessions": app.carts.Len(),
	}

	if err := app.jsonResponse(w, http.StatusOK, data); err != nil {
		app.internalServerError(w, r, err)
	}
}
