package model

// PieDatum is one slice of the 3D donut chart.
type PieDatum struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}
