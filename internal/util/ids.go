package util

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewID returns a random public identifier with the given prefix,
// e.g. NewID("plan") -> "plan_p3x0q9k2m1".
func NewID(prefix string) (string, error) {
	id, err := gonanoid.Generate(idAlphabet, 12)
	if err != nil {
		return "", err
	}
	if prefix == "" {
		return id, nil
	}
	return prefix + "_" + id, nil
}

// NewPlanID returns a public identifier for a diagram plan.
func NewPlanID() (string, error) {
	return NewID("plan")
}
