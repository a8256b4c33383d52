// Package ws pushes listener state to WebSocket clients at /ws/stream.
//
// Every interval the hub broadcasts the current snapshot; each fired alert is
// pushed as soon as it happens. A new client receives a snapshot on connect.
//
// Message format:
//
//	{"event": "snapshot", "data": { /* GET /api/v1/snapshot schema */ }}
//	{"event": "alert",    "data": { /* one alert event */ }}
//
// The upgrader accepts all origins; restrict them at the reverse proxy.
package ws
