package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/erezimm/cast/internal/config"
	apperrors "github.com/erezimm/cast/internal/errors"
	"github.com/erezimm/cast/ports"
)

// Client talks to a Lasair-style alert-broker REST API. Authentication is a
// token header; cone searches and lightcurve fetches are separate endpoints.
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
	log        *logrus.Entry
}

// NewClient creates a broker client from configuration
func NewClient(cfg config.BrokerConfig) *Client {
	return &Client{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        logrus.WithField("component", "broker"),
	}
}

var _ ports.SkyBroker = (*Client)(nil)

func (c *Client) get(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.endpoint+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Token "+c.token)
	return c.httpClient.Do(req)
}

// NearestObject runs a cone search and returns the closest archived object
func (c *Client) NearestObject(ctx context.Context, ra, dec, radiusArcsec float64) (string, float64, bool, error) {
	params := url.Values{}
	params.Set("ra", strconv.FormatFloat(ra, 'f', -1, 64))
	params.Set("dec", strconv.FormatFloat(dec, 'f', -1, 64))
	params.Set("radius", strconv.FormatFloat(radiusArcsec, 'f', -1, 64))
	params.Set("requestType", "nearest")

	resp, err := c.get(ctx, "/cone/", params)
	if err != nil {
		return "", 0, false, apperrors.RemoteFailure("sky broker", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", 0, false, apperrors.RemoteFailure("sky broker",
			fmt.Errorf("cone search returned %d: %s", resp.StatusCode, body))
	}

	var result struct {
		Object     string  `json:"object"`
		Separation float64 `json:"separation"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", 0, false, apperrors.Wrap(err, "failed to decode cone search response")
	}
	if result.Object == "" {
		return "", 0, false, nil
	}
	c.log.WithFields(logrus.Fields{
		"object":     result.Object,
		"separation": result.Separation,
	}).Debug("broker cone search hit")
	return result.Object, result.Separation, true, nil
}

// Lightcurve returns the object's archived measurements
func (c *Client) Lightcurve(ctx context.Context, objectID string) ([]ports.BrokerObservation, error) {
	params := url.Values{}
	params.Set("objectIds", objectID)

	resp, err := c.get(ctx, "/lightcurves/", params)
	if err != nil {
		return nil, apperrors.RemoteFailure("sky broker", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, apperrors.RemoteFailure("sky broker",
			fmt.Errorf("lightcurve fetch returned %d: %s", resp.StatusCode, body))
	}

	var lcs []struct {
		ObjectID   string `json:"objectId"`
		Candidates []struct {
			JD         float64  `json:"jd"`
			FID        int      `json:"fid"`
			MagPSF     *float64 `json:"magpsf"`
			SigmaPSF   *float64 `json:"sigmapsf"`
			DiffMagLim *float64 `json:"diffmaglim"`
			CandID     *int64   `json:"candid"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&lcs); err != nil {
		return nil, apperrors.Wrap(err, "failed to decode lightcurve response")
	}
	if len(lcs) == 0 {
		return nil, nil
	}

	var obs []ports.BrokerObservation
	for _, cand := range lcs[0].Candidates {
		o := ports.BrokerObservation{
			JD:     cand.JD,
			Filter: filterName(cand.FID),
		}
		// Rows without a candid are upper limits from the image stream.
		if cand.CandID != nil {
			o.Magnitude = cand.MagPSF
			o.MagnitudeError = cand.SigmaPSF
		} else {
			o.Limit = cand.DiffMagLim
		}
		obs = append(obs, o)
	}
	return obs, nil
}

// filterName maps the broker's numeric filter ids to band names.
func filterName(fid int) string {
	switch fid {
	case 1:
		return "g"
	case 2:
		return "r"
	case 3:
		return "i"
	default:
		return strconv.Itoa(fid)
	}
}
