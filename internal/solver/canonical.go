package solver

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"

	"github.com/roach88/hyperdem/internal/ir"
)

// Canonical renders the initializer as a canonical value. Weights are
// carried as shortest round-trip decimal strings and herald entries are
// listed by ascending edge index.
func (in *Initializer) Canonical() ir.Object {
	edges := make(ir.Array, len(in.WeightedEdges))
	for i, e := range in.WeightedEdges {
		edges[i] = ir.Object{
			"vertices": ir.Ints(e.Vertices),
			"weight":   ir.Float(e.Weight),
		}
	}
	heralds := make(ir.Array, len(in.Heralds))
	for h, m := range in.Heralds {
		keys := make([]int, 0, len(m))
		for e := range m {
			keys = append(keys, e)
		}
		slices.Sort(keys)
		entries := make(ir.Array, len(keys))
		for i, e := range keys {
			entries[i] = ir.Object{
				"edge":   ir.Int(e),
				"weight": ir.Float(m[e]),
			}
		}
		heralds[h] = entries
	}
	return ir.Object{
		"vertex_num": ir.Int(in.VertexNum),
		"edges":      edges,
		"heralds":    heralds,
	}
}

type canonicalInitializer struct {
	VertexNum int `json:"vertex_num"`
	Edges     []struct {
		Vertices []int  `json:"vertices"`
		Weight   string `json:"weight"`
	} `json:"edges"`
	Heralds [][]struct {
		Edge   int    `json:"edge"`
		Weight string `json:"weight"`
	} `json:"heralds"`
}

// ParseInitializer decodes the canonical JSON written for Canonical and
// validates the result.
func ParseInitializer(data []byte) (Initializer, error) {
	var raw canonicalInitializer
	if err := json.Unmarshal(data, &raw); err != nil {
		return Initializer{}, fmt.Errorf("parse initializer: %w", err)
	}
	in := Initializer{
		VertexNum:     raw.VertexNum,
		WeightedEdges: make([]HyperEdge, len(raw.Edges)),
	}
	for i, e := range raw.Edges {
		w, err := strconv.ParseFloat(e.Weight, 64)
		if err != nil {
			return Initializer{}, fmt.Errorf("parse initializer: edge %d weight: %w", i, err)
		}
		vertices := e.Vertices
		if vertices == nil {
			vertices = []int{}
		}
		in.WeightedEdges[i] = HyperEdge{Vertices: vertices, Weight: w}
	}
	if len(raw.Heralds) > 0 {
		in.Heralds = make([]map[int]float64, len(raw.Heralds))
	}
	for h, entries := range raw.Heralds {
		m := make(map[int]float64, len(entries))
		for _, entry := range entries {
			w, err := strconv.ParseFloat(entry.Weight, 64)
			if err != nil {
				return Initializer{}, fmt.Errorf("parse initializer: herald %d edge %d weight: %w", h, entry.Edge, err)
			}
			if _, dup := m[entry.Edge]; dup {
				return Initializer{}, fmt.Errorf("parse initializer: herald %d repeats edge %d", h, entry.Edge)
			}
			m[entry.Edge] = w
		}
		in.Heralds[h] = m
	}
	if err := in.Validate(); err != nil {
		return Initializer{}, fmt.Errorf("parse initializer: %w", err)
	}
	return in, nil
}

// Canonical renders the syndrome as a canonical value.
func (s SyndromePattern) Canonical() ir.Object {
	return ir.Object{
		"defects":  ir.Ints(s.Defects),
		"heralds":  ir.Ints(s.Heralds),
		"erasures": ir.Ints(s.Erasures),
	}
}

// ParseSyndrome decodes the canonical JSON written for
// SyndromePattern.Canonical. Empty lists decode as nil.
func ParseSyndrome(data []byte) (SyndromePattern, error) {
	var s SyndromePattern
	if err := json.Unmarshal(data, &s); err != nil {
		return SyndromePattern{}, fmt.Errorf("parse syndrome: %w", err)
	}
	if len(s.Defects) == 0 {
		s.Defects = nil
	}
	if len(s.Heralds) == 0 {
		s.Heralds = nil
	}
	if len(s.Erasures) == 0 {
		s.Erasures = nil
	}
	return s, nil
}
