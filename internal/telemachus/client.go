package telemachus

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/juju/errors"
	"github.com/telepanel/telepanel/helpers"
	"github.com/telepanel/telepanel/log2"
)

const DefaultURL = "http://127.0.0.1:8085/telemachus/datalink"

// Result of one send. Transport failure is a value, not a propagating error,
// so the frame loop keeps running while telemachus is down.
type Result struct {
	URL      string
	Duration time.Duration
	Status   int
	Err      error
}

func (r Result) OK() bool { return r.Err == nil }

func (r Result) String() string {
	if r.Err != nil {
		return fmt.Sprintf("%s err=%v (%dms)", r.URL, r.Err, helpers.Milliseconds(r.Duration))
	}
	return fmt.Sprintf("%s status=%d (%dms)", r.URL, r.Status, helpers.Milliseconds(r.Duration))
}

type Client struct {
	base *url.URL
	http *http.Client
	log  *log2.Log
}

// NewClient validates endpoint URL. hc=nil uses http.DefaultClient,
// no timeout beyond transport defaults.
func NewClient(log *log2.Log, endpoint string, hc *http.Client) (*Client, error) {
	if endpoint == "" {
		endpoint = DefaultURL
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, errors.Annotatef(err, "telemachus url=%s", endpoint)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.NotValidf("telemachus url=%s scheme", endpoint)
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{base: u, http: hc, log: log}, nil
}

// URL returns full request target for commands.
func (self *Client) URL(cmds []Command) string {
	u := *self.base
	u.RawQuery = Query(cmds)
	return u.String()
}

// Send performs one GET. Yes, telemachus changes state with GET.
func (self *Client) Send(ctx context.Context, cmds []Command) Result {
	r := Result{URL: self.URL(cmds)}
	tbegin := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, nil)
	if err != nil {
		r.Err = errors.Annotate(err, "telemachus request")
		r.Duration = time.Since(tbegin)
		return r
	}
	resp, err := self.http.Do(req)
	if err != nil {
		r.Err = errors.Annotate(err, "telemachus send")
		r.Duration = time.Since(tbegin)
		return r
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	r.Status = resp.StatusCode
	if resp.StatusCode >= http.StatusBadRequest {
		r.Err = errors.Errorf("telemachus status=%s", resp.Status)
	}
	r.Duration = time.Since(tbegin)
	self.log.Debugf("sent %s", r.String())
	return r
}
