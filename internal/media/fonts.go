package media

import (
	"os"
	"strings"

	"github.com/flopp/go-findfont"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ErrNoFont is returned when neither the requested family nor any fallback
// could be located. Callers treat it as the distinct "no font available"
// signal; every other resolution failure degrades through the chain.
var ErrNoFont = errors.New("no usable font found")

// FontResolver locates a usable font file for a family/style request. It
// never fails for merely-unavailable families: the fallback chain is tried
// before giving up with ErrNoFont.
type FontResolver interface {
	Resolve(family string, bold bool) (path string, err error)
}

// SystemFonts resolves fonts from the host's font directories.
type SystemFonts struct {
	logger zerolog.Logger

	// fallbacks are tried, regular before bold-less, when the requested
	// family cannot be found in the requested style.
	fallbacks []string
}

// NewSystemFonts creates a resolver with the default fallback chain.
func NewSystemFonts(logger zerolog.Logger) *SystemFonts {
	return &SystemFonts{
		logger:    logger,
		fallbacks: []string{"DejaVuSans", "LiberationSans", "Arial", "Roboto", "NotoSans"},
	}
}

// Resolve walks the candidate chain and returns the first font file that
// exists. Falling back is logged but not an error; only a fully empty chain
// yields ErrNoFont.
func (s *SystemFonts) Resolve(family string, bold bool) (string, error) {
	candidates := fontCandidates(family, bold, s.fallbacks)
	for i, name := range candidates {
		path, err := findfont.Find(name)
		if err != nil {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if i > 0 {
			s.logger.Debug().
				Str("requested", family).
				Str("resolved", path).
				Msg("font family unavailable, using fallback")
		}
		return path, nil
	}
	return "", errors.Wrapf(ErrNoFont, "family %q bold=%v", family, bold)
}

// ReadFont resolves and loads the font file bytes.
func (s *SystemFonts) ReadFont(family string, bold bool) ([]byte, error) {
	path, err := s.Resolve(family, bold)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read font %s", path)
	}
	return data, nil
}

// fontCandidates builds the ordered filename chain for a request: the
// requested family in the requested style, the family in regular style,
// then each fallback family (styled, then regular).
func fontCandidates(family string, bold bool, fallbacks []string) []string {
	var names []string
	add := func(fam string) {
		fam = strings.ReplaceAll(fam, " ", "")
		if fam == "" {
			return
		}
		if bold {
			names = append(names, fam+"-Bold.ttf", fam+"Bold.ttf", fam+"bd.ttf")
		}
		names = append(names, fam+".ttf")
	}
	add(family)
	for _, f := range fallbacks {
		if !strings.EqualFold(f, family) {
			add(f)
		}
	}
	return names
}
