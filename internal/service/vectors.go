package service

// Vector is one stored embedding with its attached metadata
type Vector struct {
	ID       string
	Values   []float32
	Metadata map[string]interface{}
}

// VectorMatch is one nearest-neighbour hit
type VectorMatch struct {
	ID       string
	Score    float64
	Metadata map[string]interface{}
}
