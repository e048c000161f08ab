package generator

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Render draws the result with one glyph per cell. Square grids print one
// row per y, lines and rings a single row, hex regions one row per r with
// the rows offset so neighbours line up.
func (r *Result) Render() string {
	if len(r.Cells) == 0 {
		return ""
	}

	var sb strings.Builder
	switch r.Shape {
	case ShapeHex:
		row := r.Cells[0].Y
		sb.WriteString(strings.Repeat(" ", abs(row)))
		for i, c := range r.Cells {
			if c.Y != row {
				row = c.Y
				sb.WriteString("\n")
				sb.WriteString(strings.Repeat(" ", abs(row)))
			} else if i > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString(glyph(c))
		}
	default:
		row := r.Cells[0].Y
		for _, c := range r.Cells {
			if c.Y != row {
				row = c.Y
				sb.WriteString("\n")
			}
			sb.WriteString(glyph(c))
		}
	}
	sb.WriteString("\n")
	return sb.String()
}

func glyph(p Placement) string {
	if p.Glyph == "" {
		return "?"
	}
	return p.Glyph
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// WriteResultYAML writes a result to a YAML file
func WriteResultYAML(result *Result, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	// Write header comment
	fmt.Fprintf(f, "# %s field solved with module set %s\n", result.Shape, result.ModuleSet)
	fmt.Fprintf(f, "# Generated with seed: %d (attempt %d)\n", result.Seed, result.Attempts)
	fmt.Fprintf(f, "# Cell count: %d\n\n", len(result.Cells))

	encoder := yaml.NewEncoder(f)
	encoder.SetIndent(2)

	if err := encoder.Encode(result); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return encoder.Close()
}

// ReadResultYAML loads a result written by WriteResultYAML.
func ReadResultYAML(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read result file: %w", err)
	}

	var result Result
	if err := yaml.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse result YAML: %w", err)
	}
	return &result, nil
}
