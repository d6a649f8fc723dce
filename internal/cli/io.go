package cli

import (
	"bufio"
	"encoding/json"
	"io"
	"math"
	"os"
)

// maxLineSize bounds a single input text.
const maxLineSize = 4 << 20

// readLines returns every line of path, or of stdin for "-". Trailing
// carriage returns are dropped; blank lines are kept as empty texts.
func readLines(path string) ([]string, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	return scanLines(r)
}

func scanLines(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var lines []string
	for scanner.Scan() {
		line := scanner.Text()
		if n := len(line); n > 0 && line[n-1] == '\r' {
			line = line[:n-1]
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}

type outputLine struct {
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

// writeJSONL writes one object per row. A row containing NaN is written
// with a null embedding, since JSON has no NaN.
func writeJSONL(w io.Writer, rows [][]float64) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for i, row := range rows {
		line := outputLine{Index: i, Embedding: row}
		if hasNaN(row) {
			line.Embedding = nil
		}
		if err := enc.Encode(line); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func hasNaN(row []float64) bool {
	for _, v := range row {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
