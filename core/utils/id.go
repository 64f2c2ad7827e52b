package utils

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// lowercase only, object keys are case-sensitive on S3 but not on every mirror
const objectKeyAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

const objectKeySuffixLength = 10

// ObjectKeySuffix returns a random suffix that keeps re-published objects from overwriting each other
func ObjectKeySuffix() (string, error) {
	return gonanoid.Generate(objectKeyAlphabet, objectKeySuffixLength)
}
