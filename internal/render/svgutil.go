package render

import "bytes"

// normalizeSVG rewrites CSS declarations oksvg fails to parse (spaces after
// the colon, colors without '#').
func normalizeSVG(svg []byte) []byte {
	out := bytes.ReplaceAll(svg, []byte("fill:000000"), []byte("fill:#000000"))
	out = bytes.ReplaceAll(out, []byte("fill: 000000"), []byte("fill:#000000"))
	out = bytes.ReplaceAll(out, []byte("stroke: 000000"), []byte("stroke:#000000"))
	out = bytes.ReplaceAll(out, []byte("fill: #"), []byte("fill:#"))
	out = bytes.ReplaceAll(out, []byte("stroke: #"), []byte("stroke:#"))
	return out
}
