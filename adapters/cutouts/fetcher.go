package cutouts

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	apperrors "github.com/erezimm/cast/internal/errors"
	"github.com/erezimm/cast/ports"
)

const (
	ps1FilenamesURL = "http://ps1images.stsci.edu/cgi-bin/ps1filenames.py"
	ps1CutoutURL    = "https://ps1images.stsci.edu/cgi-bin/fitscut.cgi"
	sdssCutoutURL   = "https://skyserver.sdss.org/dr16/SkyServerWS/ImgCutout/getjpeg"

	stampSize = 240
)

// PS1Fetcher retrieves color composite stamps from the Pan-STARRS image
// service. Building a stamp takes two round trips: one to resolve the
// per-filter image filenames at the position, one to cut the composite.
type PS1Fetcher struct {
	filenamesURL string
	cutoutURL    string
	httpClient   *http.Client
	log          *logrus.Entry
}

// NewPS1Fetcher creates a Pan-STARRS stamp fetcher
func NewPS1Fetcher() *PS1Fetcher {
	return &PS1Fetcher{
		filenamesURL: ps1FilenamesURL,
		cutoutURL:    ps1CutoutURL,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		log:          logrus.WithField("component", "cutouts.ps1"),
	}
}

// NewPS1FetcherWithURLs overrides the service endpoints, for tests
func NewPS1FetcherWithURLs(filenamesURL, cutoutURL string) *PS1Fetcher {
	f := NewPS1Fetcher()
	f.filenamesURL = filenamesURL
	f.cutoutURL = cutoutURL
	return f
}

var _ ports.CutoutFetcher = (*PS1Fetcher)(nil)

// Fetch downloads an i/r/g composite stamp centered on the position
func (f *PS1Fetcher) Fetch(ctx context.Context, ra, dec float64) ([]byte, string, error) {
	filenames, err := f.resolveFilenames(ctx, ra, dec)
	if err != nil {
		return nil, "", err
	}
	red, okR := filenames["i"]
	green, okG := filenames["r"]
	blue, okB := filenames["g"]
	if !okR || !okG || !okB {
		return nil, "", apperrors.NotFound("PS1 imagery at position")
	}

	params := url.Values{}
	params.Set("red", red)
	params.Set("green", green)
	params.Set("blue", blue)
	params.Set("x", fmt.Sprintf("%f", ra))
	params.Set("y", fmt.Sprintf("%f", dec))
	params.Set("size", fmt.Sprintf("%d", stampSize))
	params.Set("wcs", "1")
	params.Set("asinh", "True")
	params.Set("autoscale", "99.750000")

	return f.download(ctx, f.cutoutURL+"?"+params.Encode(), "image/jpeg")
}

// resolveFilenames queries the whitespace-delimited filename table and
// indexes it by filter.
func (f *PS1Fetcher) resolveFilenames(ctx context.Context, ra, dec float64) (map[string]string, error) {
	params := url.Values{}
	params.Set("ra", fmt.Sprintf("%f", ra))
	params.Set("dec", fmt.Sprintf("%f", dec))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		f.filenamesURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.RemoteFailure("PS1 image service", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.RemoteFailure("PS1 image service",
			fmt.Errorf("filename query returned %d", resp.StatusCode))
	}

	scanner := bufio.NewScanner(resp.Body)
	if !scanner.Scan() {
		return nil, apperrors.NotFound("PS1 imagery at position")
	}
	header := strings.Fields(scanner.Text())
	filterCol, fileCol := -1, -1
	for i, col := range header {
		switch col {
		case "filter":
			filterCol = i
		case "filename":
			fileCol = i
		}
	}
	if filterCol < 0 || fileCol < 0 {
		return nil, apperrors.RemoteFailure("PS1 image service",
			fmt.Errorf("unexpected filename table header: %v", header))
	}

	filenames := make(map[string]string)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) <= filterCol || len(fields) <= fileCol {
			continue
		}
		filenames[fields[filterCol]] = fields[fileCol]
	}
	return filenames, scanner.Err()
}

func (f *PS1Fetcher) download(ctx context.Context, rawURL, contentType string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, "", apperrors.RemoteFailure("PS1 image service", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", apperrors.RemoteFailure("PS1 image service",
			fmt.Errorf("cutout request returned %d", resp.StatusCode))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", apperrors.Wrap(err, "failed to read cutout")
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		contentType = ct
	}
	return data, contentType, nil
}

// SDSSFetcher retrieves JPEG stamps from the SDSS SkyServer.
type SDSSFetcher struct {
	cutoutURL  string
	httpClient *http.Client
	log        *logrus.Entry
}

// NewSDSSFetcher creates an SDSS stamp fetcher
func NewSDSSFetcher() *SDSSFetcher {
	return &SDSSFetcher{
		cutoutURL:  sdssCutoutURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        logrus.WithField("component", "cutouts.sdss"),
	}
}

// NewSDSSFetcherWithURL overrides the service endpoint, for tests
func NewSDSSFetcherWithURL(cutoutURL string) *SDSSFetcher {
	f := NewSDSSFetcher()
	f.cutoutURL = cutoutURL
	return f
}

var _ ports.CutoutFetcher = (*SDSSFetcher)(nil)

// Fetch downloads a JPEG stamp centered on the position
func (f *SDSSFetcher) Fetch(ctx context.Context, ra, dec float64) ([]byte, string, error) {
	params := url.Values{}
	params.Set("ra", fmt.Sprintf("%f", ra))
	params.Set("dec", fmt.Sprintf("%f", dec))
	params.Set("scale", "0.2")
	params.Set("width", fmt.Sprintf("%d", stampSize))
	params.Set("height", fmt.Sprintf("%d", stampSize))
	params.Set("opt", "G")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		f.cutoutURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, "", apperrors.RemoteFailure("SDSS SkyServer", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", apperrors.RemoteFailure("SDSS SkyServer",
			fmt.Errorf("cutout request returned %d", resp.StatusCode))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", apperrors.Wrap(err, "failed to read cutout")
	}
	return data, "image/jpeg", nil
}
