package linalg

import (
	"encoding/json"
	"fmt"
	"strconv"
)

func formatNumber(x float64) string {
	return strconv.FormatFloat(x, 'g', -1, 64)
}

// toFloat accepts the numeric forms produced by encoding/json and yaml decoders.
func toFloat(v any) (float64, error) {
	var x float64
	switch n := v.(type) {
	case float64:
		x = n
	case float32:
		x = float64(n)
	case int:
		x = float64(n)
	case int64:
		x = float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrNotNumber, err)
		}
		x = f
	default:
		return 0, fmt.Errorf("%w: got %T", ErrNotNumber, v)
	}
	if err := checkElement(x); err != nil {
		return 0, err
	}
	return x, nil
}

func toPair(v any) (float64, float64, error) {
	var items []any
	switch s := v.(type) {
	case []any:
		items = s
	case []float64:
		items = []any{}
		for _, x := range s {
			items = append(items, x)
		}
	default:
		return 0, 0, fmt.Errorf("%w: want array of 2, got %T", ErrShape, v)
	}
	if len(items) != 2 {
		return 0, 0, fmt.Errorf("%w: want array of 2, got %d", ErrShape, len(items))
	}
	a, err := toFloat(items[0])
	if err != nil {
		return 0, 0, err
	}
	b, err := toFloat(items[1])
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

// ParseVec2 decodes [x, y] or {"x": .., "y": ..}.
func ParseVec2(v any) (Vec2, error) {
	if obj, ok := v.(map[string]any); ok {
		x, err := toFloat(obj["x"])
		if err != nil {
			return Vec2{}, err
		}
		y, err := toFloat(obj["y"])
		if err != nil {
			return Vec2{}, err
		}
		return Vec2{X: x, Y: y}, nil
	}
	x, y, err := toPair(v)
	if err != nil {
		return Vec2{}, err
	}
	return Vec2{X: x, Y: y}, nil
}

// ParseMat2 decodes [[a, b], [c, d]].
func ParseMat2(v any) (Mat2, error) {
	rows, ok := v.([]any)
	if !ok {
		if typed, ok := v.([][]float64); ok {
			return FromRows(typed)
		}
		return Mat2{}, fmt.Errorf("%w: matrix is %T", ErrShape, v)
	}
	if len(rows) != 2 {
		return Mat2{}, fmt.Errorf("%w: want 2 rows, got %d", ErrShape, len(rows))
	}
	a, b, err := toPair(rows[0])
	if err != nil {
		return Mat2{}, fmt.Errorf("row 0: %w", err)
	}
	c, d, err := toPair(rows[1])
	if err != nil {
		return Mat2{}, fmt.Errorf("row 1: %w", err)
	}
	return Mat2{A: a, B: b, C: c, D: d}, nil
}

// ParseVectors decodes a list of vectors. An empty list is valid.
func ParseVectors(v any) ([]Vec2, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: vectors is %T", ErrShape, v)
	}
	out := make([]Vec2, 0, len(items))
	for i, item := range items {
		vec, err := ParseVec2(item)
		if err != nil {
			return nil, fmt.Errorf("vector %d: %w", i, err)
		}
		out = append(out, vec)
	}
	return out, nil
}
