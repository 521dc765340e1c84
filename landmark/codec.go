package landmark

import (
	"encoding/json"
	"image"
)

// Marshal encodes the landmark set as indented JSON mapping each part
// name to its [x, y] point list. The encoding round-trips through
// Unmarshal without loss.
func Marshal(set Set) ([]byte, error) {
	out := make(map[string][][2]int, len(set))
	for name, points := range set {
		coords := make([][2]int, len(points))
		for i, p := range points {
			coords[i] = [2]int{p.X, p.Y}
		}
		out[name] = coords
	}
	return json.MarshalIndent(out, "", "  ")
}

// Unmarshal decodes a landmark set written by Marshal.
func Unmarshal(data []byte) (Set, error) {
	var in map[string][][2]int
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, err
	}
	set := make(Set, len(in))
	for name, coords := range in {
		points := make([]image.Point, len(coords))
		for i, c := range coords {
			points[i] = image.Point{X: c[0], Y: c[1]}
		}
		set[name] = points
	}
	return set, nil
}
