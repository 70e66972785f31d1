// Package logx is hwbot's structured logging layer over zerolog.
//
// Console output is human-readable with a short file:line caller. The file
// sink writes one JSON object per line and only ever appends.
package logx
