package geo

import "github.com/twpayne/go-polyline"

// DecodePolyline decodes a Google encoded polyline into coordinates.
// Malformed input returns nil rather than an error; callers treat an
// empty result as "no usable geometry".
func DecodePolyline(encoded string) []LatLng {
	if encoded == "" {
		return nil
	}
	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil || len(coords) == 0 {
		return nil
	}
	pts := make([]LatLng, 0, len(coords))
	for _, c := range coords {
		pts = append(pts, LatLng{Lat: c[0], Lng: c[1]})
	}
	return pts
}

// EncodePolyline encodes coordinates as a Google polyline string.
func EncodePolyline(points []LatLng) string {
	if len(points) == 0 {
		return ""
	}
	coords := make([][]float64, len(points))
	for i, p := range points {
		coords[i] = []float64{p.Lat, p.Lng}
	}
	return string(polyline.EncodeCoords(coords))
}
