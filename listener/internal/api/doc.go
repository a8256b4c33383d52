// Package api serves the listener's JSON status endpoints.
//
// Routes (all GET):
//
//	/api/v1/health           session counts per state and alert count
//	/api/v1/sessions         every tracked source with diagnostics
//	/api/v1/sessions/{name}  one source
//	/api/v1/alerts           recent alerts, newest first
//	/api/v1/snapshot         sessions and alerts together
//
// BuildSnapshot is shared with the WebSocket hub so both surfaces render the
// same schema.
package api
