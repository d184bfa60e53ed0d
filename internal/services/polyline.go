package services

import (
	"fmt"

	"wayfarer/pkg/traveltypes"

	"github.com/twpayne/go-polyline"
)

// DecodePolyline decodes an encoded polyline (precision 1e5) as returned in
// a directions overview_polyline.
func DecodePolyline(encoded string) ([]traveltypes.LatLng, error) {
	if encoded == "" {
		return nil, nil
	}
	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode polyline: %w", err)
	}
	points := make([]traveltypes.LatLng, 0, len(coords))
	for _, c := range coords {
		points = append(points, traveltypes.LatLng{Lat: c[0], Lng: c[1]})
	}
	return points, nil
}
