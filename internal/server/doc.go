// Package server exposes scanning and normalization over HTTP.
//
// Routes:
//
//	POST /api/scan/url         {"url": "..."}      scan a URL
//	POST /api/scan/message     {"message": "..."}  scan a message
//	POST /api/normalize?kind=  raw model output    normalize without calling a provider
//	GET  /api/history          ?kind=&limit=       recent scans, newest first
//	GET  /api/history/{id}                         one scan
//	GET  /healthz
//	GET  /metrics                                  Prometheus exposition
//
// History routes answer 503 when no store is configured.
package server
