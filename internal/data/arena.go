package data

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gridfire/server/internal/nav"
)

// LoadArena reads an arena tile file into a nav.Grid. The file is CSV: each
// line is one row (Y), each value one cell (X). Cell values: 0 = open,
// 1 = obstacle, >= 2 = open with extraWeight of (value - 1). Lines starting
// with '#' and blank lines are skipped. All rows must have the same width.
func LoadArena(path string) (*nav.Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open arena %s: %w", path, err)
	}
	defer f.Close()

	var rows [][]int
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		toks := strings.Split(line, ",")
		row := make([]int, 0, len(toks))
		for _, tok := range toks {
			v, err := strconv.Atoi(strings.TrimSpace(tok))
			if err != nil {
				return nil, fmt.Errorf("arena %s row %d: %w", path, len(rows), err)
			}
			row = append(row, v)
		}
		if len(rows) > 0 && len(row) != len(rows[0]) {
			return nil, fmt.Errorf("arena %s: row %d width %d != %d", path, len(rows), len(row), len(rows[0]))
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read arena %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("arena %s: no tile rows", path)
	}

	grid := nav.NewGrid(len(rows[0]), len(rows))
	for y, row := range rows {
		for x, v := range row {
			switch {
			case v == 1:
				grid.AddObstacle(nav.Cell{X: x, Y: y})
			case v >= 2:
				grid.SetWeight(nav.Cell{X: x, Y: y}, float64(v-1))
			}
		}
	}
	return grid, nil
}
