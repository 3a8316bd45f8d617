// Package health polls Gatus monitors deployed on fabric nodes.
//
// CheckHealth waits for a monitor to come up by retrying GET /health with
// a fixed delay. GetStatus reads the monitored endpoint results once from
// GET /api/v1/endpoints/statuses.
package health
