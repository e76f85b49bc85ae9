package grid

import (
	"fmt"
	"strconv"
	"strings"
)

// ChunkSize is fixed at launch. Changing it would make every stored chunk key
// non-canonical, so it is a constant, not config.
const ChunkSize = 20

// MaxPathLen caps generated and player-supplied movement paths.
const MaxPathLen = 1000

// Coord is a tile position on the unbounded integer grid.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// floorDiv is mathematical floor division: floorDiv(-1, 20) == -1, not 0.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// ChunkKey returns the canonical chunk key for a tile position.
func ChunkKey(x, y int) string {
	return fmt.Sprintf("%d,%d", floorDiv(x, ChunkSize), floorDiv(y, ChunkSize))
}

// TileKey returns the tile key for a position, "x,y" in decimal.
func TileKey(x, y int) string {
	return fmt.Sprintf("%d,%d", x, y)
}

func parsePair(key string) (int, int, error) {
	parts := strings.Split(key, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("grid: bad key %q", key)
	}
	a, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("grid: bad key %q", key)
	}
	b, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("grid: bad key %q", key)
	}
	return a, b, nil
}

// ParseChunkKey is the inverse of ChunkKey.
func ParseChunkKey(key string) (cx, cy int, err error) {
	return parsePair(key)
}

// ParseTileKey is the inverse of TileKey.
func ParseTileKey(key string) (x, y int, err error) {
	return parsePair(key)
}

// Line returns the Bresenham line from (x0,y0) to (x1,y1) inclusive,
// truncated to MaxPathLen steps after the start tile.
func Line(x0, y0, x1, y1 int) []Coord {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := 1
	if x0 > x1 {
		sx = -1
	}
	sy := 1
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy

	path := []Coord{{X: x0, Y: y0}}
	x, y := x0, y0
	for (x != x1 || y != y1) && len(path) <= MaxPathLen {
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
		path = append(path, Coord{X: x, Y: y})
	}
	return path
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
