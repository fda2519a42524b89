package render

import (
	"testing"

	"github.com/matzehuels/calostack/pkg/errors"
)

func TestConvertWithoutTool(t *testing.T) {
	saved := converter
	converter = "calostack-no-such-converter"
	defer func() { converter = saved }()

	if Available() {
		t.Fatal("Available() = true for a missing tool")
	}
	for name, fn := range map[string]func() ([]byte, error){
		"pdf": func() ([]byte, error) { return ToPDF([]byte("<svg/>")) },
		"png": func() ([]byte, error) { return ToPNG([]byte("<svg/>"), 2) },
	} {
		t.Run(name, func(t *testing.T) {
			_, err := fn()
			if !errors.Is(err, errors.ErrCodeUnsupported) {
				t.Errorf("error = %v, want UNSUPPORTED", err)
			}
		})
	}
}
