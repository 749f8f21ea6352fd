package registry

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

// Client talks to the transient-naming registry's bulk-report API.
// Authentication is an api_key form field plus a bot marker User-Agent.
type Client struct {
	baseURL    string
	botID      int
	botName    string
	apiKey     string
	httpClient *http.Client
	log        *logrus.Entry
}

// NewClient creates a registry client from configuration
func NewClient(cfg config.RegistryConfig) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		botID:      cfg.BotID,
		botName:    cfg.BotName,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        logrus.WithField("component", "registry"),
	}
}

var _ ports.NamingRegistry = (*Client)(nil)

func (c *Client) marker() string {
	return fmt.Sprintf(`tns_marker{"tns_id": "%d", "type": "bot", "name": "%s"}`, c.botID, c.botName)
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.marker())
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.httpClient.Do(req)
}

// SubmitReport sends the report and returns the registry-assigned report id
func (c *Client) SubmitReport(ctx context.Context, report *ports.RegistryReport) (int64, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to encode registry report")
	}

	form := url.Values{}
	form.Set("api_key", c.apiKey)
	form.Set("data", string(data))

	resp, err := c.postForm(ctx, "/set/bulk-report", form)
	if err != nil {
		return 0, apperrors.RemoteFailure("naming registry", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, apperrors.RemoteFailure("naming registry",
			fmt.Errorf("bulk-report returned %d: %s", resp.StatusCode, truncate(body)))
	}

	var submitResp struct {
		Data struct {
			ReportID int64 `json:"report_id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&submitResp); err != nil {
		return 0, apperrors.Wrap(err, "failed to decode bulk-report response")
	}
	c.log.WithField("report_id", submitResp.Data.ReportID).Info("report submitted")
	return submitResp.Data.ReportID, nil
}

// replyBody is the shape of a processed bulk-report reply. The feedback
// block keys each outcome by a numeric code; "101" carries the existing
// designation when the object was already known, "100" the newly assigned
// one.
type replyBody struct {
	Data struct {
		Feedback json.RawMessage `json:"feedback"`
	} `json:"data"`
}

type feedbackBlock struct {
	ATReport []map[string]struct {
		ObjName string `json:"objname"`
	} `json:"at_report"`
}

// FetchReply retrieves the processed outcome of a submitted report. The
// registry answers 404 while the report is still in its queue; that
// surfaces as a TIMEOUT-coded error so the caller keeps polling.
func (c *Client) FetchReply(ctx context.Context, reportID int64) (*ports.RegistryReply, error) {
	form := url.Values{}
	form.Set("api_key", c.apiKey)
	form.Set("report_id", strconv.FormatInt(reportID, 10))

	resp, err := c.postForm(ctx, "/get/bulk-report-reply", form)
	if err != nil {
		return nil, apperrors.RemoteFailure("naming registry", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var reply replyBody
		if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
			return nil, apperrors.Wrap(err, "failed to decode bulk-report reply")
		}
		name := extractObjectName(reply.Data.Feedback)
		return &ports.RegistryReply{
			ObjectName: name,
			Accepted:   true,
			Feedback:   reply.Data.Feedback,
		}, nil

	case http.StatusBadRequest:
		// Processed but rejected. The feedback explains which fields
		// failed and must be persisted.
		var reply replyBody
		if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
			return nil, apperrors.Wrap(err, "failed to decode rejection reply")
		}
		c.log.WithField("report_id", reportID).Warn("report rejected by registry")
		return &ports.RegistryReply{
			Accepted: false,
			Feedback: reply.Data.Feedback,
		}, nil

	case http.StatusNotFound:
		return nil, apperrors.Timeout(fmt.Sprintf("report %d not yet processed", reportID))

	default:
		body, _ := io.ReadAll(resp.Body)
		return nil, apperrors.RemoteFailure("naming registry",
			fmt.Errorf("bulk-report-reply returned %d: %s", resp.StatusCode, truncate(body)))
	}
}

// extractObjectName pulls the assigned designation out of the feedback
// block, preferring the already-known code over the newly-inserted one.
func extractObjectName(feedback json.RawMessage) string {
	var fb feedbackBlock
	if err := json.Unmarshal(feedback, &fb); err != nil || len(fb.ATReport) == 0 {
		return ""
	}
	for _, key := range []string{"101", "100"} {
		if entry, ok := fb.ATReport[0][key]; ok && entry.ObjName != "" {
			return entry.ObjName
		}
	}
	return ""
}

// ConeSearch returns designations already registered near the position
func (c *Client) ConeSearch(ctx context.Context, ra, dec, radiusArcsec float64) ([]string, error) {
	search, err := json.Marshal(map[string]interface{}{
		"ra":     ra,
		"dec":    dec,
		"radius": radiusArcsec,
		"units":  "arcsec",
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to encode cone search")
	}

	form := url.Values{}
	form.Set("api_key", c.apiKey)
	form.Set("data", string(search))

	resp, err := c.postForm(ctx, "/get/search", form)
	if err != nil {
		return nil, apperrors.RemoteFailure("naming registry", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, apperrors.RemoteFailure("naming registry",
			fmt.Errorf("search returned %d: %s", resp.StatusCode, truncate(body)))
	}

	var searchResp struct {
		Data []struct {
			ObjName string `json:"objname"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, apperrors.Wrap(err, "failed to decode search response")
	}

	names := make([]string, 0, len(searchResp.Data))
	for _, obj := range searchResp.Data {
		names = append(names, obj.ObjName)
	}
	return names, nil
}

func truncate(body []byte) string {
	const max = 256
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
