package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// HasAudioHeader carries audio presence out-of-band on extraction
// responses; the in-browser side of an export cannot re-probe cheaply.
const HasAudioHeader = "X-Clip-Has-Audio"

// FetchedClip is a pre-trimmed, decodable rendition of a source range.
type FetchedClip struct {
	Data     []byte
	HasAudio bool
}

// Fetcher is the transport the client-side export realization uses to pull
// pre-transcoded clip ranges, fonts and background audio from the backend
// extraction endpoints. Callers supply timeouts through ctx.
type Fetcher interface {
	FetchClip(ctx context.Context, src string, start, end float64) (*FetchedClip, error)
	FetchFont(ctx context.Context, family string, bold bool) ([]byte, error)
	FetchAudio(ctx context.Context, src string) ([]byte, error)
}

// HTTPFetcher talks to the backend extraction endpoints.
type HTTPFetcher struct {
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

// NewHTTPFetcher creates a fetcher. A nil client uses http.DefaultClient;
// per-request deadlines come from the caller's context.
func NewHTTPFetcher(baseURL string, client *http.Client, logger zerolog.Logger) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{baseURL: baseURL, client: client, logger: logger}
}

// FetchClip pulls the [start,end) range of src, pre-transcoded to a codec
// the in-browser toolchain can decode. Audio presence is read from the
// response header.
func (f *HTTPFetcher) FetchClip(ctx context.Context, src string, start, end float64) (*FetchedClip, error) {
	q := url.Values{}
	q.Set("src", src)
	q.Set("start", fmt.Sprintf("%.3f", start))
	q.Set("end", fmt.Sprintf("%.3f", end))

	data, header, err := f.get(ctx, "/extract?"+q.Encode())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch clip range of %s", src)
	}
	return &FetchedClip{
		Data:     data,
		HasAudio: header.Get(HasAudioHeader) == "true",
	}, nil
}

// FetchFont pulls a font file for the family/style, resolved server-side
// through the same fallback chain as local resolution.
func (f *HTTPFetcher) FetchFont(ctx context.Context, family string, bold bool) ([]byte, error) {
	q := url.Values{}
	q.Set("family", family)
	if bold {
		q.Set("bold", "true")
	}
	data, _, err := f.get(ctx, "/fonts?"+q.Encode())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch font %q", family)
	}
	return data, nil
}

// FetchAudio pulls a background audio source in full.
func (f *HTTPFetcher) FetchAudio(ctx context.Context, src string) ([]byte, error) {
	q := url.Values{}
	q.Set("src", src)
	data, _, err := f.get(ctx, "/audio?"+q.Encode())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch audio %s", src)
	}
	return data, nil
}

func (f *HTTPFetcher) get(ctx context.Context, path string) ([]byte, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+path, nil)
	if err != nil {
		return nil, nil, errors.WithStack(err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, nil, errors.WithStack(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, errors.Errorf("unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, errors.WithStack(err)
	}
	f.logger.Debug().Str("path", path).Int("bytes", len(data)).Msg("fetched")
	return data, resp.Header, nil
}
