package geo

// maxLinePoints bounds a single rasterised segment
const maxLinePoints = 4096

// BresenhamLine returns the cells on the segment between two cells, both ends included
func BresenhamLine(x1, y1, x2, y2 int) [][2]int {
	var points [][2]int

	dx := abs(x2 - x1)
	dy := abs(y2 - y1)
	sx := 1
	if x1 >= x2 {
		sx = -1
	}
	sy := 1
	if y1 >= y2 {
		sy = -1
	}
	err := dx - dy

	for count := 0; count < maxLinePoints; count++ {
		points = append(points, [2]int{x1, y1})

		if x1 == x2 && y1 == y2 {
			break
		}

		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}

	return points
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
