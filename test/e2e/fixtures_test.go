package e2e

import (
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/extract"
)

func TestFixture_extractable(t *testing.T) {
	e := extract.NewExtractor()
	sample := "Outgoing packages leave the mailroom daily at four o'clock."
	for _, ext := range FixtureExtensions {
		ext := ext
		t.Run(ext, func(t *testing.T) {
			content, err := Fixture(ext, sample)
			if err != nil {
				t.Fatalf("Fixture: %v", err)
			}
			got, err := e.ExtractBytes(content, ext)
			if err != nil {
				t.Fatalf("ExtractBytes: %v", err)
			}
			if !strings.Contains(got, "leave the mailroom daily") {
				t.Errorf("extracted text %q does not contain the sample", got)
			}
		})
	}
}
