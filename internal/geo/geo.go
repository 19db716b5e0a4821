package geo

// Coordinate is a WGS 84 point.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// PolygonContains reports whether p lies inside the polygon ring using the
// even-odd ray casting rule. The ring is treated as closed; the last vertex
// connects back to the first, a duplicated closing vertex is harmless.
//
// Boundary convention is half-open: a point exactly on the polygon's southern
// or western boundary counts as inside, one on the northern or eastern
// boundary counts as outside. Adjacent zones sharing an edge therefore never
// both claim a boundary point.
func PolygonContains(ring []Coordinate, p Coordinate) bool {
	if len(ring) < 3 {
		return false
	}

	inside := false
	j := len(ring) - 1
	for i := 0; i < len(ring); i++ {
		vi, vj := ring[i], ring[j]
		if (vi.Lat > p.Lat) != (vj.Lat > p.Lat) {
			crossLng := (vj.Lng-vi.Lng)*(p.Lat-vi.Lat)/(vj.Lat-vi.Lat) + vi.Lng
			if p.Lng < crossLng {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}
