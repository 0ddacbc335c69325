package models

// Resource is a schedulable sound engineer.
type Resource struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Active bool   `json:"active" yaml:"active"`
	// AlwaysAvailable engineers bypass declared availability and leave.
	AlwaysAvailable bool `json:"always_available" yaml:"always_available"`
}
